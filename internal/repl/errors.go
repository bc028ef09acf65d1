package repl

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidMsgID       = errors.New("repl: msg_id must be an integer")
	ErrMsgIDOutOfRange    = errors.New("repl: msg_id out of range 0-255")
	ErrUnknownInputPolicy = errors.New("repl: unknown input policy")
)

// InputError is a problem with what the user typed. Whether the session
// survives it is decided by the loop's InputPolicy.
type InputError struct {
	Err error
}

func (e *InputError) Error() string {
	return e.Err.Error()
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// TransportError is a send or receive failure. It always ends the session.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ReportedError wraps a fatal error the loop already printed to its output.
type ReportedError struct {
	Err error
}

func (e *ReportedError) Error() string {
	return e.Err.Error()
}

func (e *ReportedError) Unwrap() error {
	return e.Err
}

// Reported reports whether err was already shown to the user by a loop.
func Reported(err error) bool {
	var reported *ReportedError
	return errors.As(err, &reported)
}

// Outcome tells the loop driver what to do after a successful step.
type Outcome int

const (
	Continue Outcome = iota
	Quit
)

type InputPolicy int

const (
	PolicyAbort InputPolicy = iota
	PolicyReprompt
)

func (p InputPolicy) String() string {
	switch p {
	case PolicyAbort:
		return "abort"
	case PolicyReprompt:
		return "reprompt"
	default:
		return fmt.Sprintf("InputPolicy(%d)", int(p))
	}
}

func ParseInputPolicy(raw string) (InputPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "abort":
		return PolicyAbort, nil
	case "reprompt", "continue":
		return PolicyReprompt, nil
	default:
		return PolicyAbort, fmt.Errorf("%w: %q", ErrUnknownInputPolicy, raw)
	}
}
