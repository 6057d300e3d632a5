// Package attractors finds the terminal strongly connected components of a colored
// transition system, symbolically and for all colors at once.
package attractors

import (
	"context"

	"github.com/dd0wney/cluso-sketch/pkg/graph"
	"github.com/dd0wney/cluso-sketch/pkg/logging"
	"github.com/dd0wney/cluso-sketch/pkg/metrics"
	"github.com/dd0wney/cluso-sketch/pkg/reachability"
	"github.com/dd0wney/cluso-sketch/pkg/symbolic"
)

const engineName = "xie-beerel"

// Engine runs the attractor search. The zero value uses FirstPicker, no reduction, and
// reports nothing.
type Engine struct {
	// Reduction shrinks the universe with Reduce before the pivot search.
	Reduction bool
	// Picker selects pivots; nil means FirstPicker.
	Picker symbolic.Picker
	// Classifier, when set, receives every emitted component.
	Classifier Classifier

	Metrics *metrics.Registry
	Logger  logging.Logger
}

func (e Engine) reach() reachability.Engine {
	return reachability.Engine{Metrics: e.Metrics, Logger: e.Logger}
}

func (e Engine) logger() logging.Logger {
	if e.Logger == nil {
		return logging.NewNopLogger()
	}
	return e.Logger
}

// Reduce removes from universe every pair that lies on no attractor. For each variable v
// with transitions inside universe, the pairs that can reach a v-transition but are not
// reachable after one are dropped. Variables are revisited until no removal happens.
// The universe must be closed under attractor membership: every attractor intersecting it
// is contained in it.
func (e Engine) Reduce(ctx context.Context, ts *graph.TransitionSystem, universe symbolic.ColoredSet) (symbolic.ColoredSet, error) {
	reach := e.reach()
	for {
		changed := false
		for v := 0; v < ts.NumVars(); v++ {
			if err := ctx.Err(); err != nil {
				return universe, err
			}
			source := ts.CanPost(v, universe)
			if source.IsEmpty() {
				continue
			}
			target := ts.Post(v, source).Intersect(universe)
			leadsTo := reach.BackwardWithin(ts, source, universe)
			after := reach.ForwardWithin(ts, target, universe)
			transient := leadsTo.Minus(after)
			if transient.IsEmpty() {
				continue
			}
			universe = universe.Minus(transient)
			changed = true
			if e.Metrics != nil {
				e.Metrics.RecordReduction()
			}
			e.logger().Debug("reduction removed states",
				logging.Variable(ts.Variables()[v]),
				logging.Cardinality(universe.ApproxCardinality()))
		}
		if !changed {
			return universe, nil
		}
	}
}

// XieBeerel partitions universe into basins and calls emit once for every pivot component
// that turns out to be an attractor. A component may pack attractors of many colors, at
// most one per color.
//
// The context is checked at the top of every outer iteration. On cancellation the
// components emitted so far are correct but incomplete and ctx.Err() is returned.
func (e Engine) XieBeerel(ctx context.Context, ts *graph.TransitionSystem, universe symbolic.ColoredSet, emit func(symbolic.ColoredSet)) error {
	reach := e.reach()
	picker := e.Picker
	if picker == nil {
		picker = symbolic.FirstPicker
	}
	whole := ts.UnitColoredVertices()

	for round := 0; !universe.IsEmpty(); round++ {
		if err := ctx.Err(); err != nil {
			if e.Metrics != nil {
				e.Metrics.RecordCancellation(engineName)
			}
			e.logger().Warn("attractor search cancelled", logging.Iterations(round))
			return err
		}

		pivots := universe.PickVertex(picker)
		basin := reach.BackwardWithin(ts, pivots, universe)

		// Grow the pivot's forward set; a color whose forward set leaves the basin cannot
		// return to its pivot and is dropped.
		component := pivots
		steps := 0
		for {
			next, progressed := reachability.Step(ts, component, whole, reachability.Forward)
			if !progressed {
				break
			}
			steps++
			escaped := next.Minus(basin).Colors()
			component = next.MinusColors(escaped)
		}
		if e.Metrics != nil {
			e.Metrics.RecordIterations(engineName, steps)
		}

		if !component.IsEmpty() {
			if e.Metrics != nil {
				e.Metrics.RecordAttractor()
			}
			if e.Classifier != nil {
				e.Classifier.Classify(component)
			}
			emit(component)
		}
		universe = universe.Minus(basin)
	}
	return nil
}

// Find returns the attractors of ts, optionally after reduction.
func (e Engine) Find(ctx context.Context, ts *graph.TransitionSystem) ([]symbolic.ColoredSet, error) {
	op := logging.StartTimer(e.logger(), "attractor search", logging.Engine(engineName))

	universe := ts.UnitColoredVertices()
	if e.Reduction {
		var err error
		universe, err = e.Reduce(ctx, ts, universe)
		if err != nil {
			op.EndError(err)
			return nil, err
		}
	}

	var found []symbolic.ColoredSet
	err := e.XieBeerel(ctx, ts, universe, func(c symbolic.ColoredSet) {
		found = append(found, c)
	})
	if err != nil {
		op.EndError(err)
		return found, err
	}
	op.EndDebug(logging.Count(len(found)))
	return found, nil
}

// States returns the union of all attractors of ts.
func (e Engine) States(ctx context.Context, ts *graph.TransitionSystem) (symbolic.ColoredSet, error) {
	out := ts.EmptyColoredVertices()
	universe := ts.UnitColoredVertices()
	if e.Reduction {
		var err error
		universe, err = e.Reduce(ctx, ts, universe)
		if err != nil {
			return out, err
		}
	}
	err := e.XieBeerel(ctx, ts, universe, func(c symbolic.ColoredSet) {
		out = out.Union(c)
	})
	return out, err
}

// Find runs an Engine with reduction enabled.
func Find(ctx context.Context, ts *graph.TransitionSystem) ([]symbolic.ColoredSet, error) {
	return Engine{Reduction: true}.Find(ctx, ts)
}

// AttractorStates returns the pairs (state, color) where state lies in an attractor of
// the color.
func AttractorStates(ctx context.Context, ts *graph.TransitionSystem) (symbolic.ColoredSet, error) {
	return Engine{Reduction: true}.States(ctx, ts)
}
