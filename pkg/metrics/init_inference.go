package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initInferenceMetrics() {
	r.PropertiesEvaluatedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sketch_properties_evaluated_total",
			Help: "Total number of dynamic properties applied to a transition system",
		},
		[]string{"status"},
	)

	r.PropertyDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sketch_property_duration_seconds",
			Help:    "Time spent evaluating one property and restricting colors",
			Buckets: []float64{0.001, 0.01, 0.1, 1, 10, 60, 600},
		},
		[]string{"kind"},
	)

	r.Candidates = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "sketch_candidates",
			Help: "Approximate number of candidate networks after the latest step",
		},
	)

	r.CandidatesLog2 = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "sketch_candidates_log2",
			Help: "Base-2 logarithm of the candidate count, usable when the count overflows a float",
		},
	)
}
