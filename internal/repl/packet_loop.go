package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/danmuck/framectl/internal/observability"
	"github.com/danmuck/framectl/internal/protocol/packet"
)

const (
	intsPrompt = "Ints> "
	textPrompt = "String> "
)

// PacketConn is the connection surface the packet loop needs.
type PacketConn interface {
	Send(ctx context.Context, p []byte) error
	Close() error
}

type PacketOptions struct {
	Target  string
	Policy  InputPolicy
	Metrics *observability.SessionMetrics
}

func DefaultPacketOptions() PacketOptions {
	return PacketOptions{Policy: PolicyReprompt}
}

// PacketLoop sends int-list + string packets. Nothing is read back.
type PacketLoop struct {
	conn PacketConn
	in   *lineReader
	out  io.Writer
	opts PacketOptions
}

func NewPacketLoop(conn PacketConn, in io.Reader, out io.Writer, opts PacketOptions) *PacketLoop {
	return &PacketLoop{conn: conn, in: newLineReader(in), out: out, opts: opts}
}

// Run drives the loop until quit, end of input, interrupt or a fatal error.
// The connection is closed before Run returns.
func (l *PacketLoop) Run(ctx context.Context) error {
	defer closeConn("packet", l.conn)
	defer l.in.stop()

	if l.opts.Target != "" {
		fmt.Fprintf(l.out, "Connected to %s (TLS)\n", l.opts.Target)
	}
	fmt.Fprintln(l.out, "Packet = |4 byte int|* |4 byte len|utf-8 string|")
	fmt.Fprintln(l.out, "Enter space-separated integers, then the string. quit or exit to leave.")
	return drive(ctx, "packet", l.out, l.opts.Policy, l.opts.Metrics, l.Step)
}

// Step prompts for the integers and the text, then sends one packet.
func (l *PacketLoop) Step(ctx context.Context) (Outcome, error) {
	fmt.Fprint(l.out, intsPrompt)
	line, err := l.in.next(ctx)
	if err != nil {
		return l.inputEnded(err)
	}
	if strings.TrimSpace(line) == "" {
		return Continue, nil
	}
	if isQuit(line) {
		return Quit, nil
	}
	ints, err := packet.ParseInts(line)
	if err != nil {
		return Continue, &InputError{Err: err}
	}

	fmt.Fprint(l.out, textPrompt)
	text, err := l.in.next(ctx)
	if err != nil {
		return l.inputEnded(err)
	}

	raw := packet.Encode(ints, text)
	if err := l.conn.Send(ctx, raw); err != nil {
		return Quit, &TransportError{Op: "send", Err: err}
	}
	l.opts.Metrics.RecordSent(len(raw))
	fmt.Fprintf(l.out, "Sent %d bytes: %s\n", len(raw), packet.Hex(raw))
	return Continue, nil
}

func (l *PacketLoop) inputEnded(err error) (Outcome, error) {
	if errors.Is(err, io.EOF) {
		fmt.Fprintln(l.out)
		return Quit, nil
	}
	return Quit, err
}
