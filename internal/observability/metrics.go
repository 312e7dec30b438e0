// Package observability provides the Prometheus metrics recorder for
// facility use-cases.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records per-action counters and latency histograms.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// New registers the metrics on the supplied registerer. Pass
// prometheus.DefaultRegisterer for process-wide metrics or a fresh registry
// in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "carecore_operations_total",
			Help: "Total facility operations by action and outcome.",
		}, []string{"action", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "carecore_operation_duration_seconds",
			Help:    "Facility operation latency by action.",
			Buckets: prometheus.DefBuckets,
		}, []string{"action"}),
	}
}

// NewDefaultMetrics registers on the process-wide default registerer.
func NewDefaultMetrics() *Metrics { return New(prometheus.DefaultRegisterer) }

// ObserveOperation implements the service metrics recorder contract.
func (m *Metrics) ObserveOperation(action string, elapsed time.Duration, success bool) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	m.operations.WithLabelValues(action, outcome).Inc()
	m.duration.WithLabelValues(action).Observe(elapsed.Seconds())
}
