package symbolic

import (
	"fmt"
	"math/big"

	"github.com/dalzilio/rudd"
)

// ColoredSet is a symbolic relation between states and colors. Values are immutable;
// every operation returns a new set.
type ColoredSet struct {
	ctx  *Context
	node rudd.Node
}

// Context returns the context the set belongs to.
func (s ColoredSet) Context() *Context { return s.ctx }

// Union returns s ∪ o.
func (s ColoredSet) Union(o ColoredSet) ColoredSet {
	s.ctx.check(o.ctx)
	return s.ctx.colored(s.ctx.bdd.Or(s.node, o.node))
}

// Intersect returns s ∩ o.
func (s ColoredSet) Intersect(o ColoredSet) ColoredSet {
	s.ctx.check(o.ctx)
	return s.ctx.colored(s.ctx.bdd.And(s.node, o.node))
}

// Minus returns s \ o.
func (s ColoredSet) Minus(o ColoredSet) ColoredSet {
	s.ctx.check(o.ctx)
	return s.ctx.colored(s.ctx.bdd.And(s.node, s.ctx.bdd.Not(o.node)))
}

// Complement returns every pair of the context's full space not in s.
func (s ColoredSet) Complement() ColoredSet {
	return s.ctx.colored(s.ctx.bdd.Not(s.node))
}

// IntersectColors keeps only the pairs whose color is in colors.
func (s ColoredSet) IntersectColors(colors ColorSet) ColoredSet {
	s.ctx.check(colors.ctx)
	return s.ctx.colored(s.ctx.bdd.And(s.node, colors.node))
}

// MinusColors removes every pair whose color is in colors.
func (s ColoredSet) MinusColors(colors ColorSet) ColoredSet {
	s.ctx.check(colors.ctx)
	return s.ctx.colored(s.ctx.bdd.And(s.node, s.ctx.bdd.Not(colors.node)))
}

// IsEmpty reports whether the set has no elements.
func (s ColoredSet) IsEmpty() bool { return s.ctx.isFalse(s.node) }

// Equals reports whether both sets hold the same pairs.
func (s ColoredSet) Equals(o ColoredSet) bool {
	s.ctx.check(o.ctx)
	return s.ctx.same(s.node, o.node)
}

// IsSubset reports whether s ⊆ o.
func (s ColoredSet) IsSubset(o ColoredSet) bool {
	return s.Minus(o).IsEmpty()
}

// ExistVar forgets the value of network variable i.
func (s ColoredSet) ExistVar(i int) ColoredSet {
	cube := s.ctx.bdd.Makeset([]int{s.ctx.stateLevels[i]})
	return s.ctx.colored(s.ctx.exist(s.node, cube))
}

// ExistStates forgets the current state, keeping colors and slot values.
func (s ColoredSet) ExistStates() ColoredSet {
	return s.ctx.colored(s.ctx.exist(s.node, s.ctx.stateCube))
}

// ExistSlot forgets the values held in slot k.
func (s ColoredSet) ExistSlot(k int) ColoredSet {
	return s.ctx.colored(s.ctx.exist(s.node, s.ctx.slotCubes[k]))
}

// Colors projects the set to the colors appearing in it.
func (s ColoredSet) Colors() ColorSet {
	n := s.ctx.exist(s.node, s.ctx.stateCube)
	n = s.ctx.exist(n, s.ctx.allSlotsCube)
	return s.ctx.colors(n)
}

// Vertices projects the set to the states appearing in it, for any color.
func (s ColoredSet) Vertices() VertexSet {
	n := s.ctx.exist(s.node, s.ctx.paramCube)
	n = s.ctx.exist(n, s.ctx.allSlotsCube)
	return VertexSet{ctx: s.ctx, node: n}
}

// Cardinality returns the exact number of (state, color) pairs, ignoring slot values.
func (s ColoredSet) Cardinality() *big.Int {
	n := s.ctx.exist(s.node, s.ctx.allSlotsCube)
	return s.ctx.count(n, s.ctx.slots*len(s.ctx.varNames))
}

// ApproxCardinality returns Cardinality as a float.
func (s ColoredSet) ApproxCardinality() float64 { return approx(s.Cardinality()) }

// PickVertex returns a subset holding exactly one state for every color of s.
func (s ColoredSet) PickVertex(p Picker) ColoredSet {
	if p == nil {
		p = FirstPicker
	}
	c := s.ctx
	rest := c.exist(s.node, c.allSlotsCube)
	for i, level := range c.stateLevels {
		pref := p.PreferTrue(i)
		lit := c.litNode(level, pref)
		with := c.bdd.And(rest, lit)
		withColors := c.exist(with, c.stateCube)
		without := c.bdd.And(rest, c.litNode(level, !pref), c.bdd.Not(withColors))
		rest = c.bdd.Or(with, without)
	}
	return c.colored(rest)
}

// PickSingleton returns a set with exactly one (state, color) pair of s, or the empty set
// when s is empty.
func (s ColoredSet) PickSingleton(p Picker) ColoredSet {
	if p == nil {
		p = FirstPicker
	}
	c := s.ctx
	n := c.exist(s.node, c.allSlotsCube)
	if c.isFalse(n) {
		return c.colored(n)
	}
	n = c.fixLevels(n, c.stateLevels, p, 0)
	n = c.fixLevels(n, c.paramLevels, p, len(c.stateLevels))
	return c.colored(n)
}

func (s ColoredSet) String() string {
	return fmt.Sprintf("ColoredSet(%s)", s.Cardinality())
}

// fixLevels narrows n to a single value on each of the given levels, following the
// picker's preference whenever both values are possible.
func (c *Context) fixLevels(n rudd.Node, levels []int, p Picker, offset int) rudd.Node {
	for i, level := range levels {
		pref := p.PreferTrue(offset + i)
		cand := c.bdd.And(n, c.litNode(level, pref))
		if c.isFalse(cand) {
			cand = c.bdd.And(n, c.litNode(level, !pref))
		}
		n = cand
	}
	return n
}
