package symbolic

import (
	"fmt"
	"math/big"

	"github.com/dalzilio/rudd"
)

// ColorSet is a symbolic set of colors (full parameter valuations).
type ColorSet struct {
	ctx  *Context
	node rudd.Node
}

// Context returns the context the set belongs to.
func (s ColorSet) Context() *Context { return s.ctx }

// Union returns s ∪ o.
func (s ColorSet) Union(o ColorSet) ColorSet {
	s.ctx.check(o.ctx)
	return s.ctx.colors(s.ctx.bdd.Or(s.node, o.node))
}

// Intersect returns s ∩ o.
func (s ColorSet) Intersect(o ColorSet) ColorSet {
	s.ctx.check(o.ctx)
	return s.ctx.colors(s.ctx.bdd.And(s.node, o.node))
}

// Minus returns s \ o.
func (s ColorSet) Minus(o ColorSet) ColorSet {
	s.ctx.check(o.ctx)
	return s.ctx.colors(s.ctx.bdd.And(s.node, s.ctx.bdd.Not(o.node)))
}

// IsEmpty reports whether the set has no colors.
func (s ColorSet) IsEmpty() bool { return s.ctx.isFalse(s.node) }

// Equals reports whether both sets hold the same colors.
func (s ColorSet) Equals(o ColorSet) bool {
	s.ctx.check(o.ctx)
	return s.ctx.same(s.node, o.node)
}

// IsSubset reports whether s ⊆ o.
func (s ColorSet) IsSubset(o ColorSet) bool { return s.Minus(o).IsEmpty() }

// AsColored lifts the colors to every state.
func (s ColorSet) AsColored() ColoredSet { return s.ctx.colored(s.node) }

// Cardinality returns the exact number of colors.
func (s ColorSet) Cardinality() *big.Int {
	return s.ctx.count(s.node, len(s.ctx.stateLevels)*(s.ctx.slots+1))
}

// ApproxCardinality returns Cardinality as a float.
func (s ColorSet) ApproxCardinality() float64 { return approx(s.Cardinality()) }

// PickSingleton returns a set with exactly one color of s, or the empty set when s is
// empty.
func (s ColorSet) PickSingleton(p Picker) ColorSet {
	if p == nil {
		p = FirstPicker
	}
	if s.IsEmpty() {
		return s
	}
	return s.ctx.colors(s.ctx.fixLevels(s.node, s.ctx.paramLevels, p, 0))
}

// Valuation returns the function table of every parameter for one color of s (the one
// PickSingleton with FirstPicker would choose). It returns false when s is empty.
func (s ColorSet) Valuation() (map[string][]bool, bool) {
	if s.IsEmpty() {
		return nil, false
	}
	c := s.ctx
	n := c.fixLevels(s.node, c.paramLevels, FirstPicker, 0)
	out := make(map[string][]bool, len(c.params))
	for _, p := range c.params {
		table := make([]bool, len(p.rows))
		for r, level := range p.rows {
			table[r] = !c.isFalse(c.bdd.And(n, c.bdd.Ithvar(level)))
		}
		out[p.Name] = table
	}
	return out, true
}

// Iterate returns an iterator over single colors of s. A limit of zero or less means
// no bound.
func (s ColorSet) Iterate(p Picker, limit int) *ColorIterator {
	if p == nil {
		p = FirstPicker
	}
	return &ColorIterator{remaining: s, picker: p, limit: limit}
}

func (s ColorSet) String() string {
	return fmt.Sprintf("ColorSet(%s)", s.Cardinality())
}
