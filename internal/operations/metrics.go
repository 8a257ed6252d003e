package operations

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments of the operation manager.
type Metrics struct {
	OperationsTotal *prometheus.CounterVec
	StepDuration    *prometheus.HistogramVec
}

// NewMetrics registers the operation metrics with the given registerer. A
// nil registerer falls back to the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		OperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tuesdata",
			Subsystem: "operations",
			Name:      "runs_total",
			Help:      "Completed preprocessing operations by final status.",
		}, []string{"status"}),
		StepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tuesdata",
			Subsystem: "operations",
			Name:      "step_duration_seconds",
			Help:      "Wall-clock duration of each pipeline step.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"step"}),
	}
}
