package inference

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/dd0wney/cluso-sketch/pkg/attractors"
	"github.com/dd0wney/cluso-sketch/pkg/graph"
	"github.com/dd0wney/cluso-sketch/pkg/hctl"
	"github.com/dd0wney/cluso-sketch/pkg/logging"
	"github.com/dd0wney/cluso-sketch/pkg/metrics"
	"github.com/dd0wney/cluso-sketch/pkg/network"
	"github.com/dd0wney/cluso-sketch/pkg/observations"
	"github.com/dd0wney/cluso-sketch/pkg/properties"
	"github.com/dd0wney/cluso-sketch/pkg/symbolic"
)

// ErrInvalidSketch is returned when a sketch cannot be turned into constraints.
var ErrInvalidSketch = errors.New("invalid sketch")

// ObservationSet is a list of observations together with the encoding to use for it.
type ObservationSet struct {
	Name string
	List *observations.List
	// As overrides the type declared by the list unless it is Unspecified.
	As observations.Type
}

func (o ObservationSet) encoding() observations.Type {
	if o.As != observations.Unspecified {
		return o.As
	}
	return o.List.Type
}

// Sketch is a model skeleton with the dynamic properties its candidates must satisfy.
type Sketch struct {
	Name  string
	Model *network.Network

	// Properties are applied after the properties annotated in the model.
	Properties   []Constraint
	Observations []ObservationSet
	// ForbidExtraAttractors adds, for every attractor or fixed-point observation list, the
	// constraint that no other attractors (or fixed points) exist.
	ForbidExtraAttractors bool

	// ExtraSlots are added to the slots the constraints need.
	ExtraSlots int
	// SkipValidation evaluates constraints without the Validate pass.
	SkipValidation bool

	Witnesses int
	// Summarize enables the update function summary, over at most SummaryLimit candidates
	// (zero means all).
	Summarize    bool
	SummaryLimit int
	// Classify counts the candidates by the number of fixed-point and oscillating
	// attractors.
	Classify bool
	Goal     *network.Network

	// Seed drives witness and pivot choice; zero picks deterministically.
	Seed uint64
}

// ClassCount is the number of candidates in one attractor class.
type ClassCount struct {
	Class      attractors.Class
	Candidates *big.Int
}

// Result is the outcome of running a sketch.
type Result struct {
	Sketch            string
	InitialCandidates *big.Int
	FinalCandidates   *big.Int
	Steps             []Step
	Duration          time.Duration

	Witnesses []*network.Network
	Summary   *Summary
	Classes   []ClassCount

	GoalChecked bool
	Goal        GoalStatus
	// GoalReason explains a GoalNotComparable status.
	GoalReason string

	// System is the transition system restricted to the remaining candidates.
	System *graph.TransitionSystem
}

// Constraints collects the constraints of s in evaluation order: model annotations sorted by
// name, explicit properties, then one constraint per observation list followed by the
// exclusions requested by ForbidExtraAttractors.
func Constraints(s *Sketch) ([]Constraint, error) {
	if s.Model == nil {
		return nil, fmt.Errorf("%w: no model", ErrInvalidSketch)
	}
	var out []Constraint
	for _, p := range s.Model.Properties() {
		f, err := hctl.Parse(p.Formula)
		if err != nil {
			return nil, fmt.Errorf("%w: property %s: %w", ErrInvalidSketch, p.Name, err)
		}
		out = append(out, Constraint{Name: p.Name, Formula: f})
	}
	out = append(out, s.Properties...)

	var forbid []Constraint
	for i, o := range s.Observations {
		if o.List == nil {
			return nil, fmt.Errorf("%w: observation set %d is empty", ErrInvalidSketch, i+1)
		}
		name := o.Name
		if name == "" {
			name = fmt.Sprintf("observations %d", i+1)
		}
		t := o.encoding()
		f, err := observations.EncodeListAs(o.List, t)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSketch, name, err)
		}
		out = append(out, Constraint{Name: name, Formula: f})

		if !s.ForbidExtraAttractors {
			continue
		}
		states, err := observations.EncodeAll(o.List)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSketch, name, err)
		}
		switch t {
		case observations.Attractor:
			forbid = append(forbid, Constraint{Name: name + " (no other attractors)", Formula: properties.ForbidOtherAttractors(states)})
		case observations.FixedPoint:
			forbid = append(forbid, Constraint{Name: name + " (no other fixed points)", Formula: properties.ForbidOtherFixedPoints(states)})
		}
	}
	return append(out, forbid...), nil
}

// Runner executes sketches.
type Runner struct {
	// Progress, when set, is called after every pipeline step.
	Progress func(Step)

	Logger  logging.Logger
	Metrics *metrics.Registry
}

func (r Runner) logger() logging.Logger {
	if r.Logger == nil {
		return logging.NewNopLogger()
	}
	return r.Logger
}

// Run executes s with a default Runner.
func Run(ctx context.Context, s *Sketch) (*Result, error) {
	return Runner{}.Run(ctx, s)
}

// Run builds the transition system of s, applies its constraints and analyses the
// remaining candidates. A partial result is returned with any error raised after the
// system was built.
func (r Runner) Run(ctx context.Context, s *Sketch) (*Result, error) {
	start := time.Now()
	log := r.logger().With(logging.String("sketch", s.Name))

	res, err := r.run(ctx, s, log)
	if res != nil {
		res.Duration = time.Since(start)
	}
	if r.Metrics != nil {
		status := metrics.StatusOK
		switch {
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			status = metrics.StatusCancelled
		case err != nil:
			status = metrics.StatusError
		case res.FinalCandidates.Sign() == 0:
			status = metrics.StatusEmpty
		}
		witnesses := 0
		if res != nil {
			witnesses = len(res.Witnesses)
		}
		r.Metrics.RecordRun(status, time.Since(start), witnesses)
	}
	if err != nil {
		log.Error("sketch run failed", logging.Error(err))
		return res, err
	}
	log.Info("sketch run finished",
		logging.Cardinality(approx(res.FinalCandidates)),
		logging.Latency(res.Duration))
	return res, nil
}

func (r Runner) run(ctx context.Context, s *Sketch, log logging.Logger) (*Result, error) {
	constraints, err := Constraints(s)
	if err != nil {
		return nil, err
	}
	formulas := make([]hctl.Formula, len(constraints))
	for i, c := range constraints {
		formulas[i] = c.Formula
	}
	slots := hctl.SlotsNeeded(formulas...) + s.ExtraSlots

	ts, err := graph.New(s.Model, slots)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Sketch:            s.Name,
		InitialCandidates: ts.UnitColors().Cardinality(),
	}
	log.Info("sketch loaded",
		logging.Count(len(constraints)),
		logging.Int("slots", slots),
		logging.Cardinality(ts.UnitColors().ApproxCardinality()))
	if r.Metrics != nil {
		r.Metrics.SetCandidates(ts.UnitColors().ApproxCardinality())
	}

	pipeline := Pipeline{
		Evaluator: hctl.Checker{SkipValidation: s.SkipValidation, Logger: r.Logger, Metrics: r.Metrics},
		Logger:    r.Logger,
		Metrics:   r.Metrics,
		Progress: func(st Step) {
			res.Steps = append(res.Steps, st)
			if r.Progress != nil {
				r.Progress(st)
			}
		},
	}
	ts, err = pipeline.Apply(ctx, constraints, ts)
	res.System = ts
	res.FinalCandidates = ts.UnitColors().Cardinality()
	if err != nil {
		return res, err
	}
	if r.Metrics != nil {
		r.Metrics.SetCandidates(ts.UnitColors().ApproxCardinality())
	}

	var picker symbolic.Picker = symbolic.FirstPicker
	if s.Seed != 0 {
		picker = symbolic.NewPicker(s.Seed)
	}
	colors := ts.UnitColors()

	if res.Witnesses, err = Witnesses(ts, colors, s.Witnesses, picker); err != nil {
		return res, fmt.Errorf("sampling witnesses: %w", err)
	}
	if s.Summarize && !colors.IsEmpty() {
		if res.Summary, err = Summarize(ts, colors, s.SummaryLimit, picker); err != nil {
			return res, err
		}
	}
	if s.Classify && !colors.IsEmpty() {
		if res.Classes, err = r.classify(ctx, ts, picker); err != nil {
			return res, err
		}
	}
	if s.Goal != nil {
		res.GoalChecked = true
		res.Goal, err = CheckGoal(ts, s.Goal, colors)
		if err != nil {
			if !errors.Is(err, graph.ErrGoalNotComparable) {
				return res, err
			}
			res.GoalReason = err.Error()
			log.Warn("goal network not comparable", logging.Error(err))
		}
	}
	return res, nil
}

func (r Runner) classify(ctx context.Context, ts *graph.TransitionSystem, picker symbolic.Picker) ([]ClassCount, error) {
	classifier := attractors.NewStateClassifier(ts)
	engine := attractors.Engine{
		Reduction:  true,
		Picker:     picker,
		Classifier: classifier,
		Metrics:    r.Metrics,
		Logger:     r.Logger,
	}
	if _, err := engine.Find(ctx, ts); err != nil {
		return nil, fmt.Errorf("classifying attractors: %w", err)
	}
	var out []ClassCount
	for _, c := range classifier.Classes() {
		out = append(out, ClassCount{Class: c.Class, Candidates: c.Colors.Cardinality()})
	}
	return out, nil
}

func approx(x *big.Int) float64 {
	f, _ := new(big.Float).SetInt(x).Float64()
	return f
}
