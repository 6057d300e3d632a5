package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// Inference Metrics
	PropertiesEvaluatedTotal *prometheus.CounterVec
	PropertyDuration         *prometheus.HistogramVec
	Candidates               prometheus.Gauge
	CandidatesLog2           prometheus.Gauge

	// Engine Metrics
	FixpointIterationsTotal *prometheus.CounterVec
	AttractorsFoundTotal    prometheus.Counter
	ReductionRemovedTotal   prometheus.Counter
	EngineCancellations     *prometheus.CounterVec

	// Run Metrics
	RunsTotal        *prometheus.CounterVec
	RunDuration      prometheus.Histogram
	WitnessesTotal   prometheus.Counter
	ReportsSaved     *prometheus.CounterVec
	BatchQueueLength prometheus.Gauge

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}

	r.initInferenceMetrics()
	r.initEngineMetrics()
	r.initRunMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
