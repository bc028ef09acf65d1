package observability

import (
	"github.com/rs/zerolog"
)

// LogSummary emits one event with the session totals.
func (m *SessionMetrics) LogSummary(logger zerolog.Logger, loop string) {
	if m == nil {
		return
	}
	totals, err := m.Totals()
	if err != nil {
		logger.Warn().Err(err).Str("loop", loop).Msg("session metrics unavailable")
		return
	}
	logger.Info().
		Str("loop", loop).
		Float64("sent", totals["framectl_session_messages_sent_total"]).
		Float64("received", totals["framectl_session_messages_received_total"]).
		Float64("bytes_sent", totals["framectl_session_bytes_sent_total"]).
		Float64("bytes_received", totals["framectl_session_bytes_received_total"]).
		Float64("input_errors", totals["framectl_session_input_errors_total"]).
		Msg("session summary")
}
