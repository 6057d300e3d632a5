package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initEngineMetrics() {
	r.FixpointIterationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sketch_fixpoint_iterations_total",
			Help: "Productive fixpoint steps performed by each engine",
		},
		[]string{"engine"},
	)

	r.AttractorsFoundTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "sketch_attractors_found_total",
			Help: "Symbolic attractor components emitted by the pivot search",
		},
	)

	r.ReductionRemovedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "sketch_reduction_steps_total",
			Help: "Reduction steps that removed states from the search universe",
		},
	)

	r.EngineCancellations = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sketch_engine_cancellations_total",
			Help: "Engine runs stopped early by context cancellation",
		},
		[]string{"engine"},
	)
}
