package observability

import (
	"context"
	"fmt"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors fed by engine lifecycle events.
type Metrics struct {
	StateEntries   *prometheus.CounterVec
	Transitions    *prometheus.CounterVec
	ScriptRuns     *prometheus.CounterVec
	ScriptDuration *prometheus.HistogramVec
	LiveSessions   prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		StateEntries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fable_state_entries_total",
				Help: "Total number of states entered",
			},
			[]string{"state_key"},
		),
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fable_transitions_total",
				Help: "Total number of applied transitions",
			},
			[]string{"overridden"},
		),
		ScriptRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fable_script_runs_total",
				Help: "Total number of script runs by result",
			},
			[]string{"result"},
		),
		ScriptDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fable_script_duration_seconds",
				Help:    "Duration of script runs",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
			[]string{"script"},
		),
		LiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fable_live_sessions",
			Help: "Number of sessions currently registered",
		}),
	}

	for _, c := range []prometheus.Collector{m.StateEntries, m.Transitions, m.ScriptRuns, m.ScriptDuration, m.LiveSessions} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that record into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateEnter: func(_ context.Context, e *domain.StateEvent) {
			m.StateEntries.WithLabelValues(e.StateKey).Inc()
		},
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			m.Transitions.WithLabelValues(fmt.Sprint(e.Overridden)).Inc()
		},
		OnScriptRun: func(_ context.Context, e *domain.ScriptEvent) {
			result := "ok"
			if e.IsError {
				result = "error"
			}
			m.ScriptRuns.WithLabelValues(result).Inc()
			m.ScriptDuration.WithLabelValues(e.Script).Observe(e.Duration.Seconds())
		},
		OnSessionCreated: func(context.Context, *domain.SessionEvent) {
			m.LiveSessions.Inc()
		},
		OnSessionExpired: func(context.Context, *domain.SessionEvent) {
			m.LiveSessions.Dec()
		},
	}
}
