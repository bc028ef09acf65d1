package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/danmuck/framectl/internal/observability"
	"github.com/rs/zerolog/log"
)

type stepFunc func(ctx context.Context) (Outcome, error)

// drive runs step until quit, interrupt, or an error the policy treats as fatal.
// Interrupts return nil; fatal errors are printed and returned.
func drive(ctx context.Context, name string, out io.Writer, policy InputPolicy, metrics *observability.SessionMetrics, step stepFunc) error {
	for {
		outcome, err := step(ctx)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				fmt.Fprintln(out, "\nExiting.")
				log.Info().Str("loop", name).Msg("interrupted")
				return nil
			}
			fmt.Fprintf(out, "ERROR: %v\n", err)

			var inputErr *InputError
			isInput := errors.As(err, &inputErr)
			if isInput {
				metrics.RecordInputError()
			}
			if isInput && policy == PolicyReprompt {
				log.Debug().Str("loop", name).Err(err).Msg("input rejected")
				continue
			}
			log.Error().Str("loop", name).Err(err).Msg("session aborted")
			return &ReportedError{Err: err}
		}
		if outcome == Quit {
			log.Info().Str("loop", name).Msg("session ended")
			return nil
		}
	}
}

// closeConn releases the loop's connection. Close errors are logged only;
// the session outcome is already decided.
func closeConn(name string, c io.Closer) {
	if err := c.Close(); err != nil {
		log.Debug().Str("loop", name).Err(err).Msg("close connection")
	}
}

func isQuit(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "quit", "exit":
		return true
	default:
		return false
	}
}
