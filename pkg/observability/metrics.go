package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/sluice/pkg/domain"
)

// Metrics holds the Prometheus collectors fed by pipeline hooks.
type Metrics struct {
	Steps        *prometheus.CounterVec
	StepDuration *prometheus.HistogramVec
	Runs         *prometheus.CounterVec
	Faults       *prometheus.CounterVec
	Suspends     prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sluice_steps_total",
				Help: "Contributor steps executed, by contributor and continuation.",
			},
			[]string{"contributor", "continuation"},
		),
		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sluice_step_duration_seconds",
				Help:    "Duration of contributor steps.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"contributor"},
		),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sluice_runs_total",
				Help: "Runs that reached a terminal outcome.",
			},
			[]string{"outcome"},
		),
		Faults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sluice_step_faults_total",
				Help: "Step execution faults, by contributor.",
			},
			[]string{"contributor"},
		),
		Suspends: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sluice_suspends_total",
				Help: "Runs that handed control back to their caller.",
			},
		),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.Steps, m.StepDuration, m.Runs, m.Faults, m.Suspends} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepLeave: func(_ context.Context, e *domain.StepEvent) {
			cont := string(e.Continuation)
			if e.Err != nil {
				cont = "fault"
			}
			m.Steps.WithLabelValues(string(e.Contributor), cont).Inc()
			m.StepDuration.WithLabelValues(string(e.Contributor)).Observe(e.Duration.Seconds())
		},
		OnFault: func(_ context.Context, e *domain.StepEvent) {
			m.Faults.WithLabelValues(string(e.Contributor)).Inc()
		},
		OnSuspend: func(context.Context, *domain.RunEvent) {
			m.Suspends.Inc()
		},
		OnFinish: func(_ context.Context, e *domain.RunEvent) {
			m.Runs.WithLabelValues(string(e.Outcome)).Inc()
		},
	}
}
