package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Counter.GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var metric dto.Metric
	if err := g.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Gauge.GetValue()
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}
	if r.PropertiesEvaluatedTotal == nil || r.FixpointIterationsTotal == nil || r.RunsTotal == nil {
		t.Error("metrics not initialized")
	}
	if r.GetPrometheusRegistry() == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestDefaultRegistry(t *testing.T) {
	if DefaultRegistry() != DefaultRegistry() {
		t.Error("DefaultRegistry() should return the same instance")
	}
}

func TestRecordProperty(t *testing.T) {
	r := NewRegistry()

	r.RecordProperty("attractor", StatusOK, 10*time.Millisecond, 8)
	r.RecordProperty("attractor", StatusOK, 20*time.Millisecond, 4)
	r.RecordProperty("fixed-point", StatusEmpty, 5*time.Millisecond, 0)

	ok, err := r.PropertiesEvaluatedTotal.GetMetricWithLabelValues(StatusOK)
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}
	if got := counterValue(t, ok); got != 2 {
		t.Errorf("ok counter = %v, want 2", got)
	}

	empty, err := r.PropertiesEvaluatedTotal.GetMetricWithLabelValues(StatusEmpty)
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}
	if got := counterValue(t, empty); got != 1 {
		t.Errorf("empty counter = %v, want 1", got)
	}

	if got := gaugeValue(t, r.Candidates); got != 0 {
		t.Errorf("candidates = %v, want 0", got)
	}
}

func TestSetCandidates(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		candidates float64
		log2       float64
	}{
		{1024, 10},
		{1, 0},
		{0, 0},
	}

	for _, tt := range tests {
		r.SetCandidates(tt.candidates)
		if got := gaugeValue(t, r.Candidates); got != tt.candidates {
			t.Errorf("candidates = %v, want %v", got, tt.candidates)
		}
		if got := gaugeValue(t, r.CandidatesLog2); got != tt.log2 {
			t.Errorf("log2 = %v, want %v", got, tt.log2)
		}
	}
}

func TestEngineMetrics(t *testing.T) {
	r := NewRegistry()

	r.RecordIterations("forward", 3)
	r.RecordIterations("forward", 0)
	r.RecordIterations("backward", 2)
	r.RecordAttractor()
	r.RecordAttractor()
	r.RecordReduction()
	r.RecordCancellation("xie-beerel")

	fwd, _ := r.FixpointIterationsTotal.GetMetricWithLabelValues("forward")
	if got := counterValue(t, fwd); got != 3 {
		t.Errorf("forward iterations = %v, want 3", got)
	}
	if got := counterValue(t, r.AttractorsFoundTotal); got != 2 {
		t.Errorf("attractors = %v, want 2", got)
	}
	if got := counterValue(t, r.ReductionRemovedTotal); got != 1 {
		t.Errorf("reductions = %v, want 1", got)
	}
	cancelled, _ := r.EngineCancellations.GetMetricWithLabelValues("xie-beerel")
	if got := counterValue(t, cancelled); got != 1 {
		t.Errorf("cancellations = %v, want 1", got)
	}
}

func TestRunMetrics(t *testing.T) {
	r := NewRegistry()

	r.RecordRun(StatusOK, time.Second, 3)
	r.RecordReportSaved("file", nil)
	r.RecordReportSaved("postgres", errors.New("connection refused"))

	runs, _ := r.RunsTotal.GetMetricWithLabelValues(StatusOK)
	if got := counterValue(t, runs); got != 1 {
		t.Errorf("runs = %v, want 1", got)
	}
	if got := counterValue(t, r.WitnessesTotal); got != 3 {
		t.Errorf("witnesses = %v, want 3", got)
	}
	failed, _ := r.ReportsSaved.GetMetricWithLabelValues("postgres", StatusError)
	if got := counterValue(t, failed); got != 1 {
		t.Errorf("failed saves = %v, want 1", got)
	}
}

func TestMetricNames(t *testing.T) {
	r := NewRegistry()
	r.RecordProperty("trap-space", StatusOK, time.Millisecond, 2)
	r.RecordIterations("backward", 1)
	r.RecordAttractor()
	r.RecordRun(StatusOK, time.Millisecond, 0)

	families, err := r.GetPrometheusRegistry().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	found := make(map[string]bool)
	for _, f := range families {
		if !strings.HasPrefix(f.GetName(), "sketch_") {
			t.Errorf("metric %s lacks the sketch_ prefix", f.GetName())
		}
		found[f.GetName()] = true
	}
	for _, name := range []string{
		"sketch_properties_evaluated_total",
		"sketch_property_duration_seconds",
		"sketch_candidates",
		"sketch_fixpoint_iterations_total",
		"sketch_attractors_found_total",
		"sketch_runs_total",
	} {
		if !found[name] {
			t.Errorf("metric %s not registered", name)
		}
	}
}
