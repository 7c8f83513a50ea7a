package sagatx

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Execution outcomes used as metric label values.
const (
	OutcomeCompleted = "completed"
	OutcomeHalted    = "halted"
	OutcomeFailed    = "failed"
	OutcomeDegraded  = "completed_with_failures"
)

// Step outcomes used as metric label values.
const (
	stepSucceeded = "succeeded"
	stepFailed    = "failed"
	stepSkipped   = "skipped"
)

// Metrics wraps Prometheus metrics for saga executions. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	executions    *prometheus.CounterVec
	steps         *prometheus.CounterVec
	compensations *prometheus.CounterVec
	duration      prometheus.Histogram
}

// NewMetrics creates saga metrics under namespace and registers them on reg.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saga_executions_total",
			Help:      "Total number of saga executions by outcome.",
		}, []string{"outcome"}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saga_steps_total",
			Help:      "Total number of step invocations by step and outcome.",
		}, []string{"step", "outcome"}),
		compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saga_compensations_total",
			Help:      "Total number of step compensations by step and outcome.",
		}, []string{"step", "outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "saga_execution_duration_seconds",
			Help:      "Duration of saga executions in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	for _, c := range []prometheus.Collector{m.executions, m.steps, m.compensations, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeExecution(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.executions.WithLabelValues(outcome).Inc()
	m.duration.Observe(d.Seconds())
}

func (m *Metrics) observeStep(step, outcome string) {
	if m == nil {
		return
	}
	m.steps.WithLabelValues(step, outcome).Inc()
}

func (m *Metrics) observeCompensation(step string, err error) {
	if m == nil {
		return
	}
	outcome := stepSucceeded
	if err != nil {
		outcome = stepFailed
	}
	m.compensations.WithLabelValues(step, outcome).Inc()
}
