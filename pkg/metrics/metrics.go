package metrics

import (
	"math"
	"time"
)

// Status label values shared by the counters.
const (
	StatusOK        = "ok"
	StatusEmpty     = "empty"
	StatusError     = "error"
	StatusCancelled = "cancelled"
)

// RecordProperty records one pipeline step. kind is the formula shape, status tells
// whether candidates survived the step.
func (r *Registry) RecordProperty(kind, status string, duration time.Duration, candidates float64) {
	r.PropertiesEvaluatedTotal.WithLabelValues(status).Inc()
	r.PropertyDuration.WithLabelValues(kind).Observe(duration.Seconds())
	r.SetCandidates(candidates)
}

// SetCandidates updates the candidate gauges.
func (r *Registry) SetCandidates(candidates float64) {
	r.Candidates.Set(candidates)
	if candidates > 0 {
		r.CandidatesLog2.Set(math.Log2(candidates))
	} else {
		r.CandidatesLog2.Set(0)
	}
}

// RecordIterations adds productive fixpoint steps for an engine.
func (r *Registry) RecordIterations(engine string, n int) {
	if n > 0 {
		r.FixpointIterationsTotal.WithLabelValues(engine).Add(float64(n))
	}
}

// RecordAttractor counts one emitted attractor component.
func (r *Registry) RecordAttractor() {
	r.AttractorsFoundTotal.Inc()
}

// RecordReduction counts one productive reduction step.
func (r *Registry) RecordReduction() {
	r.ReductionRemovedTotal.Inc()
}

// RecordCancellation counts an engine stopped by its context.
func (r *Registry) RecordCancellation(engine string) {
	r.EngineCancellations.WithLabelValues(engine).Inc()
}

// RecordRun records a finished sketch run.
func (r *Registry) RecordRun(status string, duration time.Duration, witnesses int) {
	r.RunsTotal.WithLabelValues(status).Inc()
	r.RunDuration.Observe(duration.Seconds())
	r.WitnessesTotal.Add(float64(witnesses))
}

// RecordReportSaved records a report persistence attempt.
func (r *Registry) RecordReportSaved(backend string, err error) {
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	r.ReportsSaved.WithLabelValues(backend, status).Inc()
}

// SetBatchQueue records how many sketch files wait for a batch worker.
func (r *Registry) SetBatchQueue(n int) {
	r.BatchQueueLength.Set(float64(n))
}
