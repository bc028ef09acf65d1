package observability

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/framectl/internal/testutil/testlog"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestSessionMetricsRecordAndTotals(t *testing.T) {
	testlog.Start(t)
	m := NewSessionMetrics("frame")
	m.RecordSent(16)
	m.RecordSent(5)
	m.RecordReceived(29, 3*time.Millisecond)
	m.RecordInputError()

	if got := testutil.ToFloat64(m.bytesSent); got != 21 {
		t.Fatalf("bytes sent: got %v want 21", got)
	}
	totals, err := m.Totals()
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	want := map[string]float64{
		"framectl_session_messages_sent_total":     2,
		"framectl_session_messages_received_total": 1,
		"framectl_session_bytes_received_total":    29,
		"framectl_session_input_errors_total":      1,
		"framectl_session_reply_duration_seconds":  1,
	}
	for name, v := range want {
		if totals[name] != v {
			t.Fatalf("%s: got %v want %v", name, totals[name], v)
		}
	}
}

func TestNilSessionMetricsIsNoop(t *testing.T) {
	testlog.Start(t)
	var m *SessionMetrics
	m.RecordSent(1)
	m.RecordReceived(1, time.Millisecond)
	m.RecordInputError()
	if err := m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")); err != nil {
		t.Fatalf("nil write: %v", err)
	}
	totals, err := m.Totals()
	if err != nil || len(totals) != 0 {
		t.Fatalf("nil totals: %v %v", totals, err)
	}
}

func TestWriteTextfileAndSummary(t *testing.T) {
	testlog.Start(t)
	m := NewSessionMetrics("packet")
	m.RecordSent(18)

	path := filepath.Join(t.TempDir(), "session.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("write textfile: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(raw), `framectl_session_bytes_sent_total{loop="packet"} 18`) {
		t.Fatalf("unexpected textfile:\n%s", raw)
	}

	var buf bytes.Buffer
	m.LogSummary(zerolog.New(&buf), "packet")
	if !strings.Contains(buf.String(), `"bytes_sent":18`) {
		t.Fatalf("unexpected summary: %s", buf.String())
	}
}
