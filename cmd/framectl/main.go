package main

import (
	"os"

	"github.com/danmuck/framectl/internal/logging"
	"github.com/danmuck/framectl/internal/repl"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	logging.ConfigureRuntime()
	if err := newRootCmd().Execute(); err != nil {
		logFailure(log.Logger, err)
		os.Exit(1)
	}
}

// logFailure logs err unless a REPL already printed it to the user.
func logFailure(logger zerolog.Logger, err error) {
	if repl.Reported(err) {
		logger.Debug().Err(err).Msg("framectl failed")
		return
	}
	logger.Error().Err(err).Msg("framectl failed")
}
