package repl

import (
	"testing"

	"github.com/danmuck/framectl/internal/observability"
	"github.com/danmuck/framectl/internal/testutil/testlog"
)

func TestFrameLoopRecordsSessionMetrics(t *testing.T) {
	testlog.Start(t)
	conn := &fakeFrameConn{}
	opts := DefaultFrameOptions()
	opts.Policy = PolicyReprompt
	opts.Metrics = observability.NewSessionMetrics("frame")

	if _, err := runFrameLoop(t, conn, "1 hello\nnope\n2\n", opts); err != nil {
		t.Fatalf("run: %v", err)
	}
	totals, err := opts.Metrics.Totals()
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	checks := map[string]float64{
		"framectl_session_messages_sent_total":     2,
		"framectl_session_messages_received_total": 2,
		"framectl_session_bytes_sent_total":        5 + 5 + 5,
		"framectl_session_bytes_received_total":    (5 + 13 + 5) + (5 + 13),
		"framectl_session_input_errors_total":      1,
	}
	for name, want := range checks {
		if totals[name] != want {
			t.Fatalf("%s: got %v want %v", name, totals[name], want)
		}
	}
}

func TestPacketLoopRecordsSessionMetrics(t *testing.T) {
	testlog.Start(t)
	conn := &fakeFrameConn{}
	opts := DefaultPacketOptions()
	opts.Metrics = observability.NewSessionMetrics("packet")

	if _, err := runPacketLoop(t, conn, "x\n1 -1 0\nhi\n", opts); err != nil {
		t.Fatalf("run: %v", err)
	}
	totals, err := opts.Metrics.Totals()
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if totals["framectl_session_bytes_sent_total"] != 18 {
		t.Fatalf("bytes sent: %v", totals["framectl_session_bytes_sent_total"])
	}
	if totals["framectl_session_input_errors_total"] != 1 {
		t.Fatalf("input errors: %v", totals["framectl_session_input_errors_total"])
	}
}
