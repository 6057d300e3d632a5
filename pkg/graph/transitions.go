package graph

import (
	"github.com/dd0wney/cluso-sketch/pkg/symbolic"
)

// Post returns the successors of set obtained by updating variable v.
func (ts *TransitionSystem) Post(v int, set symbolic.ColoredSet) symbolic.ColoredSet {
	on := ts.ctx.Literal(v, true)
	off := ts.ctx.Literal(v, false)
	fn := ts.update[v]

	rising := set.Intersect(off).Intersect(fn).ExistVar(v).Intersect(on)
	falling := set.Intersect(on).Minus(fn).ExistVar(v).Intersect(off)
	return rising.Union(falling).IntersectColors(ts.unitColors)
}

// Pre returns the predecessors of set obtained by updating variable v.
func (ts *TransitionSystem) Pre(v int, set symbolic.ColoredSet) symbolic.ColoredSet {
	on := ts.ctx.Literal(v, true)
	off := ts.ctx.Literal(v, false)
	fn := ts.update[v]

	fromLow := set.Intersect(on).ExistVar(v).Intersect(off).Intersect(fn)
	fromHigh := set.Intersect(off).ExistVar(v).Intersect(on).Minus(fn)
	return fromLow.Union(fromHigh).IntersectColors(ts.unitColors)
}

// CanPost returns the pairs of set that have a successor by updating variable v.
func (ts *TransitionSystem) CanPost(v int, set symbolic.ColoredSet) symbolic.ColoredSet {
	return set.Intersect(ts.canFlip[v]).IntersectColors(ts.unitColors)
}

// PostAll returns the one-step successors of set over every variable.
func (ts *TransitionSystem) PostAll(set symbolic.ColoredSet) symbolic.ColoredSet {
	out := ts.ctx.Empty()
	for v := range ts.update {
		out = out.Union(ts.Post(v, set))
	}
	return out
}

// PreAll returns the one-step predecessors of set over every variable.
func (ts *TransitionSystem) PreAll(set symbolic.ColoredSet) symbolic.ColoredSet {
	out := ts.ctx.Empty()
	for v := range ts.update {
		out = out.Union(ts.Pre(v, set))
	}
	return out
}

// HasSuccessor returns the pairs of set with at least one outgoing transition.
func (ts *TransitionSystem) HasSuccessor(set symbolic.ColoredSet) symbolic.ColoredSet {
	out := ts.ctx.Empty()
	for v := range ts.canFlip {
		out = out.Union(ts.CanPost(v, set))
	}
	return out
}

// FixedPoints returns the states without outgoing transitions, for every valid color.
func (ts *TransitionSystem) FixedPoints() symbolic.ColoredSet {
	out := ts.UnitColoredVertices()
	for _, flip := range ts.canFlip {
		out = out.Minus(flip)
	}
	return out
}
