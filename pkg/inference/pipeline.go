// Package inference narrows the candidate networks of a sketch by dynamic constraints and
// analyses the candidates that remain.
package inference

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/dd0wney/cluso-sketch/pkg/graph"
	"github.com/dd0wney/cluso-sketch/pkg/hctl"
	"github.com/dd0wney/cluso-sketch/pkg/logging"
	"github.com/dd0wney/cluso-sketch/pkg/metrics"
	"github.com/dd0wney/cluso-sketch/pkg/properties"
	"github.com/dd0wney/cluso-sketch/pkg/symbolic"
)

// Evaluator computes the pairs of a transition system satisfying a formula. hctl.Checked
// and hctl.Dirty implement it.
type Evaluator interface {
	Evaluate(ctx context.Context, f hctl.Formula, ts *graph.TransitionSystem) (symbolic.ColoredSet, error)
}

// Constraint is a named dynamic property.
type Constraint struct {
	Name    string
	Formula hctl.Formula
}

// Step reports one applied constraint.
type Step struct {
	Index      int
	Name       string
	Candidates *big.Int
	Duration   time.Duration
	// Skipped is set for constraints not evaluated because no candidate was left.
	Skipped bool
}

// Pipeline applies constraints one after another, restricting the colors of the system to
// those satisfying each constraint before evaluating the next.
type Pipeline struct {
	// Evaluator defaults to hctl.Checked configured with the pipeline's logger and metrics.
	Evaluator Evaluator
	// Progress, when set, is called after every step.
	Progress func(Step)

	Logger  logging.Logger
	Metrics *metrics.Registry
}

func (p Pipeline) evaluator() Evaluator {
	if p.Evaluator != nil {
		return p.Evaluator
	}
	return hctl.Checker{Logger: p.Logger, Metrics: p.Metrics}
}

func (p Pipeline) logger() logging.Logger {
	if p.Logger == nil {
		return logging.NewNopLogger()
	}
	return p.Logger
}

// Apply evaluates constraints in order and returns the system restricted to the colors
// satisfying all of them. Once no color is left the remaining constraints are reported as
// skipped. On error the system restricted so far is returned with the error.
func (p Pipeline) Apply(ctx context.Context, constraints []Constraint, ts *graph.TransitionSystem) (*graph.TransitionSystem, error) {
	eval := p.evaluator()
	for i, c := range constraints {
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("#%d", i+1)
		}
		step := Step{Index: i, Name: name}

		if ts.UnitColors().IsEmpty() {
			step.Skipped = true
			step.Candidates = new(big.Int)
			p.report(step)
			continue
		}

		start := time.Now()
		sat, err := eval.Evaluate(ctx, c.Formula, ts)
		step.Duration = time.Since(start)
		if err != nil {
			status := metrics.StatusError
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				status = metrics.StatusCancelled
			}
			if p.Metrics != nil {
				p.Metrics.RecordProperty(Kind(c.Formula), status, step.Duration, ts.UnitColors().ApproxCardinality())
			}
			p.logger().Error("constraint evaluation failed", logging.Property(name), logging.Error(err))
			return ts, fmt.Errorf("constraint %s: %w", name, err)
		}

		ts = ts.RestrictColors(sat.Colors())
		step.Candidates = ts.UnitColors().Cardinality()

		if p.Metrics != nil {
			status := metrics.StatusOK
			if step.Candidates.Sign() == 0 {
				status = metrics.StatusEmpty
			}
			p.Metrics.RecordProperty(Kind(c.Formula), status, step.Duration, ts.UnitColors().ApproxCardinality())
		}
		p.logger().Info("constraint applied",
			logging.Step(i),
			logging.Property(name),
			logging.Cardinality(ts.UnitColors().ApproxCardinality()),
			logging.Latency(step.Duration))
		p.report(step)
	}
	return ts, nil
}

func (p Pipeline) report(s Step) {
	if p.Progress != nil {
		p.Progress(s)
	}
}

// Kind names the outermost operator of f, used as a metrics label.
func Kind(f hctl.Formula) string {
	switch n := f.(type) {
	case hctl.Const:
		return "constant"
	case hctl.Prop, hctl.Var:
		return "atom"
	case hctl.Not:
		return "not"
	case hctl.Binary:
		return n.Op.String()
	case hctl.Temporal:
		return n.Op.String()
	case hctl.Hybrid:
		return "hybrid"
	}
	return "unknown"
}

// InferWithAttractors requires an attractor (or, with useFixedPoints, a fixed point) for
// every state formula and, with forbidExtra, forbids all other attractors or fixed points.
// The existence constraints go first; the exclusion is evaluated once on the narrowed
// system.
func (p Pipeline) InferWithAttractors(ctx context.Context, ts *graph.TransitionSystem, states []hctl.Formula, useFixedPoints, forbidExtra bool) (*graph.TransitionSystem, error) {
	constraints := make([]Constraint, 0, len(states)+1)
	for i, s := range states {
		c := Constraint{Name: fmt.Sprintf("attractor %d", i+1), Formula: properties.Attractor(s)}
		if useFixedPoints {
			c = Constraint{Name: fmt.Sprintf("fixed point %d", i+1), Formula: properties.FixedPoint(s)}
		}
		constraints = append(constraints, c)
	}
	if forbidExtra && len(states) > 0 {
		c := Constraint{Name: "no other attractors", Formula: properties.ForbidOtherAttractors(states)}
		if useFixedPoints {
			c = Constraint{Name: "no other fixed points", Formula: properties.ForbidOtherFixedPoints(states)}
		}
		constraints = append(constraints, c)
	}
	return p.Apply(ctx, constraints, ts)
}
