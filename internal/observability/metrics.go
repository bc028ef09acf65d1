package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SessionMetrics counts traffic for one REPL session. Each session owns its
// registry so nothing leaks into the process default. A nil *SessionMetrics
// records nothing.
type SessionMetrics struct {
	registry *prometheus.Registry

	messagesSent     prometheus.Counter
	messagesReceived prometheus.Counter
	bytesSent        prometheus.Counter
	bytesReceived    prometheus.Counter
	inputErrors      prometheus.Counter
	replyLatency     prometheus.Histogram
}

func NewSessionMetrics(loop string) *SessionMetrics {
	labels := prometheus.Labels{"loop": loop}
	m := &SessionMetrics{
		registry: prometheus.NewRegistry(),
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "framectl",
			Subsystem:   "session",
			Name:        "messages_sent_total",
			Help:        "Frames or packets written to the server.",
			ConstLabels: labels,
		}),
		messagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "framectl",
			Subsystem:   "session",
			Name:        "messages_received_total",
			Help:        "Complete frames read from the server.",
			ConstLabels: labels,
		}),
		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "framectl",
			Subsystem:   "session",
			Name:        "bytes_sent_total",
			Help:        "Encoded bytes written, headers included.",
			ConstLabels: labels,
		}),
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "framectl",
			Subsystem:   "session",
			Name:        "bytes_received_total",
			Help:        "Encoded bytes read, headers included.",
			ConstLabels: labels,
		}),
		inputErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "framectl",
			Subsystem:   "session",
			Name:        "input_errors_total",
			Help:        "Input lines rejected before anything was sent.",
			ConstLabels: labels,
		}),
		replyLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "framectl",
			Subsystem:   "session",
			Name:        "reply_duration_seconds",
			Help:        "Time from request sent to full reply frame read.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: labels,
		}),
	}
	m.registry.MustRegister(
		m.messagesSent,
		m.messagesReceived,
		m.bytesSent,
		m.bytesReceived,
		m.inputErrors,
		m.replyLatency,
	)
	return m
}

func (m *SessionMetrics) RecordSent(n int) {
	if m == nil {
		return
	}
	m.messagesSent.Inc()
	m.bytesSent.Add(float64(n))
}

func (m *SessionMetrics) RecordReceived(n int, wait time.Duration) {
	if m == nil {
		return
	}
	m.messagesReceived.Inc()
	m.bytesReceived.Add(float64(n))
	m.replyLatency.Observe(wait.Seconds())
}

func (m *SessionMetrics) RecordInputError() {
	if m == nil {
		return
	}
	m.inputErrors.Inc()
}

func (m *SessionMetrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Totals returns counter values keyed by metric name. Histograms report
// their sample count.
func (m *SessionMetrics) Totals() (map[string]float64, error) {
	out := map[string]float64{}
	if m == nil {
		return out, nil
	}
	families, err := m.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather session metrics: %w", err)
	}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				out[mf.GetName()] += metric.GetCounter().GetValue()
			case metric.GetHistogram() != nil:
				out[mf.GetName()] += float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}
	return out, nil
}

// WriteTextfile dumps the session in the node_exporter textfile format.
func (m *SessionMetrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write session metrics: %w", err)
	}
	return nil
}
