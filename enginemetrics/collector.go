// Package enginemetrics registers the Prometheus collectors the
// pipeline runtime and lineage registry report through
// (SPEC_FULL.md §4.11), grounded on
// internal/interfaces/http/metrics.go's MetricsRegistry/StepTimer
// pattern: one histogram + one counter vec per pipeline step, plus a
// StepTimer helper that observes both on Stop.
package enginemetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every collector this module exports.
type Registry struct {
	StepDuration        *prometheus.HistogramVec
	StepsTotal          *prometheus.CounterVec
	CancellationsTotal  prometheus.Counter
	LineageStaleMarks   prometheus.Counter
}

// NewRegistry builds and registers a fresh Registry against reg (pass
// prometheus.DefaultRegisterer in production, a fresh
// prometheus.NewRegistry() in tests to avoid cross-test collisions).
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipeline_step_duration_seconds",
				Help:    "Duration of each pipeline step in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"transform"},
		),
		StepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_steps_total",
				Help: "Total number of pipeline steps executed, by transform and outcome.",
			},
			[]string{"transform", "outcome"},
		),
		CancellationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pipeline_cancellations_total",
				Help: "Total number of pipeline executions aborted via cancellation.",
			},
		),
		LineageStaleMarks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "lineage_stale_marks_total",
				Help: "Total number of lineage entries marked stale.",
			},
		),
	}
	reg.MustRegister(r.StepDuration, r.StepsTotal, r.CancellationsTotal, r.LineageStaleMarks)
	return r
}

// StepTimer times one pipeline step and records both collectors on
// Stop, mirroring MetricsRegistry.StartStepTimer/StepTimer.Stop.
type StepTimer struct {
	reg       *Registry
	transform string
	start     time.Time
}

// StartStepTimer begins timing transform's execution.
func (r *Registry) StartStepTimer(transform string) *StepTimer {
	return &StepTimer{reg: r, transform: transform, start: time.Now()}
}

// Stop records the elapsed duration and increments the outcome
// counter ("ok" or "error").
func (t *StepTimer) Stop(outcome string) {
	duration := time.Since(t.start)
	t.reg.StepDuration.WithLabelValues(t.transform).Observe(duration.Seconds())
	t.reg.StepsTotal.WithLabelValues(t.transform, outcome).Inc()
}

// RecordCancellation increments the cancellation counter.
func (r *Registry) RecordCancellation() {
	r.CancellationsTotal.Inc()
}

// RecordLineageStaleMark increments the lineage staleness counter. Wire
// it as a lineage.InvalidationCallback via
// registry.OnInvalidate(func(_, _ string, _ lineage.ChangeType) { m.RecordLineageStaleMark() }).
func (r *Registry) RecordLineageStaleMark() {
	r.LineageStaleMarks.Inc()
}
