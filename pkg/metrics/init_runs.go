package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initRunMetrics() {
	r.RunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sketch_runs_total",
			Help: "Completed sketch runs by outcome",
		},
		[]string{"status"},
	)

	r.RunDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sketch_run_duration_seconds",
			Help:    "Wall time of a full sketch run",
			Buckets: []float64{0.1, 1, 10, 60, 600, 3600},
		},
	)

	r.WitnessesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "sketch_witnesses_total",
			Help: "Witness networks sampled from surviving colors",
		},
	)

	r.ReportsSaved = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sketch_reports_saved_total",
			Help: "Reports persisted by store backend and outcome",
		},
		[]string{"backend", "status"},
	)

	r.BatchQueueLength = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "sketch_batch_queue_length",
			Help: "Sketch files waiting for a batch worker",
		},
	)
}
