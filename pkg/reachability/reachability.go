// Package reachability computes forward and backward reachable sets of a colored
// transition system by saturation.
package reachability

import (
	"github.com/dd0wney/cluso-sketch/pkg/graph"
	"github.com/dd0wney/cluso-sketch/pkg/logging"
	"github.com/dd0wney/cluso-sketch/pkg/metrics"
	"github.com/dd0wney/cluso-sketch/pkg/symbolic"
)

// Direction selects successors or predecessors.
type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// Engine runs saturation and reports productive steps. The zero value reports nothing.
type Engine struct {
	Metrics *metrics.Registry
	Logger  logging.Logger
}

// Step performs one saturation step: the first variable, in order, whose post (or pre)
// image adds pairs inside bound extends set. It returns the extended set and whether
// anything was added.
func Step(ts *graph.TransitionSystem, set, bound symbolic.ColoredSet, dir Direction) (symbolic.ColoredSet, bool) {
	for v := 0; v < ts.NumVars(); v++ {
		var image symbolic.ColoredSet
		if dir == Forward {
			image = ts.Post(v, set)
		} else {
			image = ts.Pre(v, set)
		}
		delta := image.Intersect(bound).Minus(set)
		if !delta.IsEmpty() {
			return set.Union(delta), true
		}
	}
	return set, false
}

// Saturate returns the least superset of seed closed under one-step successors (or
// predecessors) that stay inside bound. After every productive step the scan restarts
// from the first variable.
func (e Engine) Saturate(ts *graph.TransitionSystem, seed, bound symbolic.ColoredSet, dir Direction) symbolic.ColoredSet {
	result := seed
	steps := 0
	for {
		next, progressed := Step(ts, result, bound, dir)
		if !progressed {
			break
		}
		result = next
		steps++
	}
	if e.Metrics != nil {
		e.Metrics.RecordIterations(dir.String(), steps)
	}
	if e.Logger != nil && e.Logger.Enabled(logging.DebugLevel) {
		e.Logger.Debug("saturation finished",
			logging.Engine(dir.String()),
			logging.Iterations(steps),
			logging.Cardinality(result.ApproxCardinality()))
	}
	return result
}

// ForwardWithin saturates seed forward without leaving bound.
func (e Engine) ForwardWithin(ts *graph.TransitionSystem, seed, bound symbolic.ColoredSet) symbolic.ColoredSet {
	return e.Saturate(ts, seed, bound, Forward)
}

// BackwardWithin saturates seed backward without leaving bound.
func (e Engine) BackwardWithin(ts *graph.TransitionSystem, seed, bound symbolic.ColoredSet) symbolic.ColoredSet {
	return e.Saturate(ts, seed, bound, Backward)
}

// ForwardSaturated returns every pair reachable from seed.
func (e Engine) ForwardSaturated(ts *graph.TransitionSystem, seed symbolic.ColoredSet) symbolic.ColoredSet {
	return e.Saturate(ts, seed, ts.UnitColoredVertices(), Forward)
}

// BackwardSaturated returns every pair that can reach seed.
func (e Engine) BackwardSaturated(ts *graph.TransitionSystem, seed symbolic.ColoredSet) symbolic.ColoredSet {
	return e.Saturate(ts, seed, ts.UnitColoredVertices(), Backward)
}

// ForwardSaturated runs Engine{}.ForwardSaturated.
func ForwardSaturated(ts *graph.TransitionSystem, seed symbolic.ColoredSet) symbolic.ColoredSet {
	return Engine{}.ForwardSaturated(ts, seed)
}

// BackwardSaturated runs Engine{}.BackwardSaturated.
func BackwardSaturated(ts *graph.TransitionSystem, seed symbolic.ColoredSet) symbolic.ColoredSet {
	return Engine{}.BackwardSaturated(ts, seed)
}

// ForwardWithin runs Engine{}.ForwardWithin.
func ForwardWithin(ts *graph.TransitionSystem, seed, bound symbolic.ColoredSet) symbolic.ColoredSet {
	return Engine{}.ForwardWithin(ts, seed, bound)
}

// BackwardWithin runs Engine{}.BackwardWithin.
func BackwardWithin(ts *graph.TransitionSystem, seed, bound symbolic.ColoredSet) symbolic.ColoredSet {
	return Engine{}.BackwardWithin(ts, seed, bound)
}
