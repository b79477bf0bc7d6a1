// Package metrics records build and run counters for eo.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder receives one observation per external step and one per run.
type Recorder interface {
	// ObserveStep records a finished step (query, assemble, link,
	// compile, execute, remove) and its status.
	ObserveStep(language, step, status string, duration time.Duration)

	// ObserveRun records the final status of a run.
	ObserveRun(language, status string)
}

// NoopRecorder discards all metrics.
type NoopRecorder struct{}

// Nop returns a recorder that discards everything.
func Nop() Recorder { return NoopRecorder{} }

// ObserveStep does nothing.
func (NoopRecorder) ObserveStep(_, _, _ string, _ time.Duration) {}

// ObserveRun does nothing.
func (NoopRecorder) ObserveRun(_, _ string) {}

// PrometheusRecorder implements Recorder on a Prometheus registry.
type PrometheusRecorder struct {
	runsTotal    *prometheus.CounterVec
	stepsTotal   *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
}

// NewPrometheusRecorder registers the eo collectors on reg. Passing nil
// uses the default registerer.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &PrometheusRecorder{
		runsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eo_runs_total",
				Help: "Total number of eo runs by language and final status",
			},
			[]string{"language", "status"},
		),
		stepsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eo_steps_total",
				Help: "Total number of external steps by language, step and status",
			},
			[]string{"language", "step", "status"},
		),
		stepDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "eo_step_duration_seconds",
				Help:    "Duration of external steps in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"language", "step"},
		),
	}
}

// ObserveStep records a finished step.
func (p *PrometheusRecorder) ObserveStep(language, step, status string, duration time.Duration) {
	p.stepsTotal.WithLabelValues(language, step, status).Inc()
	p.stepDuration.WithLabelValues(language, step).Observe(duration.Seconds())
}

// ObserveRun records a finished run.
func (p *PrometheusRecorder) ObserveRun(language, status string) {
	p.runsTotal.WithLabelValues(language, status).Inc()
}
