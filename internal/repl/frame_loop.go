package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/framectl/internal/observability"
	"github.com/danmuck/framectl/internal/protocol/frame"
)

const framePrompt = "> "

// FrameConn is the connection surface the frame loop needs.
type FrameConn interface {
	SendFrame(ctx context.Context, f frame.Frame, limits frame.Limits) error
	ReceiveFrame(ctx context.Context, limits frame.Limits) (frame.Frame, error)
	Close() error
}

type FrameOptions struct {
	// Target is shown in the banner, typically host:port.
	Target string
	Policy InputPolicy
	Limits frame.Limits
	// Metrics is optional.
	Metrics *observability.SessionMetrics
}

func DefaultFrameOptions() FrameOptions {
	return FrameOptions{Policy: PolicyAbort, Limits: frame.DefaultLimits()}
}

// FrameLoop sends one frame per input line and prints the single reply.
type FrameLoop struct {
	conn FrameConn
	in   *lineReader
	out  io.Writer
	opts FrameOptions
}

func NewFrameLoop(conn FrameConn, in io.Reader, out io.Writer, opts FrameOptions) *FrameLoop {
	return &FrameLoop{conn: conn, in: newLineReader(in), out: out, opts: opts}
}

// Run drives the loop until quit, end of input, interrupt or a fatal error.
// The connection is closed before Run returns.
func (l *FrameLoop) Run(ctx context.Context) error {
	defer closeConn("frame", l.conn)
	defer l.in.stop()

	l.printBanner()
	return drive(ctx, "frame", l.out, l.opts.Policy, l.opts.Metrics, l.Step)
}

// Step runs one AwaitingInput -> Parsing -> Sending -> AwaitingReply -> Printing pass.
func (l *FrameLoop) Step(ctx context.Context) (Outcome, error) {
	fmt.Fprint(l.out, framePrompt)
	line, err := l.in.next(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(l.out)
			return Quit, nil
		}
		return Quit, err
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return Continue, nil
	}
	if isQuit(line) {
		return Quit, nil
	}

	req, err := ParseFrameCommand(line)
	if err != nil {
		return Continue, &InputError{Err: err}
	}
	if err := l.conn.SendFrame(ctx, req, l.opts.Limits); err != nil {
		if errors.Is(err, frame.ErrPayloadTooLarge) {
			return Continue, &InputError{Err: err}
		}
		return Quit, &TransportError{Op: "send", Err: err}
	}
	l.opts.Metrics.RecordSent(req.Len())

	fmt.Fprintln(l.out, "Waiting for server...")
	sentAt := time.Now()
	resp, err := l.conn.ReceiveFrame(ctx, l.opts.Limits)
	if err != nil {
		return Quit, &TransportError{Op: "receive", Err: err}
	}
	l.opts.Metrics.RecordReceived(resp.Len(), time.Since(sentAt))
	printFrameResponse(l.out, resp)
	return Continue, nil
}

func (l *FrameLoop) printBanner() {
	if l.opts.Target != "" {
		fmt.Fprintf(l.out, "Connected to %s (TLS)\n", l.opts.Target)
	}
	fmt.Fprintln(l.out, "Protocol = |1 byte msg_id|4 byte len|payload|")
	fmt.Fprintln(l.out)
	fmt.Fprintln(l.out, "Enter commands like: 1 hello world")
}

// ParseFrameCommand parses `<msg_id> [payload]`. The payload is everything
// after the first space, sent as raw UTF-8; a bare msg_id sends an empty payload.
func ParseFrameCommand(line string) (frame.Frame, error) {
	idTok, payload, _ := strings.Cut(line, " ")
	id, err := strconv.ParseInt(idTok, 10, 64)
	if err != nil {
		return frame.Frame{}, fmt.Errorf("%w: %q", ErrInvalidMsgID, idTok)
	}
	if id < 0 || id > 255 {
		return frame.Frame{}, fmt.Errorf("%w: %d", ErrMsgIDOutOfRange, id)
	}
	return frame.Frame{Type: byte(id), Payload: []byte(payload)}, nil
}

func printFrameResponse(out io.Writer, f frame.Frame) {
	fmt.Fprintln(out, "[Server Response]")
	fmt.Fprintf(out, "  msg_id = %d\n", f.Type)
	fmt.Fprintf(out, "  length = %d\n", len(f.Payload))
	fmt.Fprintf(out, "  payload = %s\n", frame.Escape(f.Payload))
	fmt.Fprintln(out)
}
