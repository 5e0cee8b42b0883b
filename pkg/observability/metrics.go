package observability

import (
	"context"

	"github.com/aretw0/sequence/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records step and run activity as Prometheus metrics.
type Metrics struct {
	steps        *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	suspensions  *prometheus.CounterVec
	runs         *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sequence_steps_total",
				Help: "Total number of settled step invocations",
			},
			[]string{"sequence", "kind", "signal"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sequence_step_duration_seconds",
				Help:    "Duration of step invocations, including time spent pending",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"sequence", "kind"},
		),
		suspensions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sequence_step_suspensions_total",
				Help: "Total number of step invocations that returned a deferred value",
			},
			[]string{"sequence"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sequence_runs_total",
				Help: "Total number of settled runs",
			},
			[]string{"sequence", "status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sequence_run_duration_seconds",
				Help:    "Duration of runs from start to settlement",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"sequence"},
		),
	}

	for _, c := range []prometheus.Collector{m.steps, m.stepDuration, m.suspensions, m.runs, m.runDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks feeding the metrics.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepSettle: func(_ context.Context, e *domain.StepEvent) {
			signal := e.Signal.String()
			if e.IsError {
				signal = "error"
			}
			m.steps.WithLabelValues(e.Sequence, string(e.Kind), signal).Inc()
			m.stepDuration.WithLabelValues(e.Sequence, string(e.Kind)).Observe(e.Duration.Seconds())
			if e.Async {
				m.suspensions.WithLabelValues(e.Sequence).Inc()
			}
		},
		OnRunSettle: func(_ context.Context, e *domain.RunEvent) {
			m.runs.WithLabelValues(e.Sequence, string(e.Status)).Inc()
			m.runDuration.WithLabelValues(e.Sequence).Observe(e.Duration.Seconds())
		},
	}
}
