package dispatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Handler outcomes.
const (
	outcomeOK    = "ok"
	outcomeError = "error"
	outcomePanic = "panic"
)

// Handler kinds.
const (
	kindCommand = "command"
	kindHook    = "hook"
	kindTimer   = "timer"
)

// Metrics holds Prometheus metrics for handler invocations.
type Metrics struct {
	Commands *prometheus.CounterVec   // By plugin, command and outcome
	Hooks    *prometheus.CounterVec   // By plugin, event_type and outcome
	Timers   *prometheus.CounterVec   // By plugin and outcome
	Duration *prometheus.HistogramVec // By kind
}

// NewMetrics creates the dispatcher metrics and registers them with reg when
// it is non-nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roombot",
			Subsystem: "dispatch",
			Name:      "commands_total",
			Help:      "Total number of command handler invocations",
		}, []string{"plugin", "command", "outcome"}),

		Hooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roombot",
			Subsystem: "dispatch",
			Name:      "hooks_total",
			Help:      "Total number of hook handler invocations",
		}, []string{"plugin", "event_type", "outcome"}),

		Timers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roombot",
			Subsystem: "dispatch",
			Name:      "timers_total",
			Help:      "Total number of timer handler invocations",
		}, []string{"plugin", "outcome"}),

		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "roombot",
			Subsystem: "dispatch",
			Name:      "handler_duration_seconds",
			Help:      "Handler duration in seconds",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10},
		}, []string{"kind"}),
	}

	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.Commands, m.Hooks, m.Timers, m.Duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(kind, pluginName, name, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	switch kind {
	case kindCommand:
		m.Commands.WithLabelValues(pluginName, name, outcome).Inc()
	case kindHook:
		m.Hooks.WithLabelValues(pluginName, name, outcome).Inc()
	case kindTimer:
		m.Timers.WithLabelValues(pluginName, outcome).Inc()
	}
	m.Duration.WithLabelValues(kind).Observe(took.Seconds())
}
