package symbolic

import (
	"math/big"

	"github.com/dalzilio/rudd"
)

// VertexSet is a symbolic set of states, independent of colors.
type VertexSet struct {
	ctx  *Context
	node rudd.Node
}

// IsEmpty reports whether the set has no states.
func (s VertexSet) IsEmpty() bool { return s.ctx.isFalse(s.node) }

// Cardinality returns the number of states.
func (s VertexSet) Cardinality() *big.Int {
	return s.ctx.count(s.node, len(s.ctx.stateLevels)*s.ctx.slots+len(s.ctx.paramLevels))
}

// AsColored lifts the states to every color.
func (s VertexSet) AsColored() ColoredSet { return s.ctx.colored(s.node) }

// States enumerates up to limit states of the set in the order chosen by p. A limit of
// zero or less enumerates everything, which is exponential in the worst case.
func (s VertexSet) States(p Picker, limit int) [][]bool {
	if p == nil {
		p = FirstPicker
	}
	c := s.ctx
	var out [][]bool
	rest := s.node
	for !c.isFalse(rest) {
		if limit > 0 && len(out) >= limit {
			break
		}
		one := c.fixLevels(rest, c.stateLevels, p, 0)
		state := make([]bool, len(c.stateLevels))
		for i, level := range c.stateLevels {
			state[i] = !c.isFalse(c.bdd.And(one, c.bdd.Ithvar(level)))
		}
		out = append(out, state)
		cube := c.bdd.True()
		for i, level := range c.stateLevels {
			cube = c.bdd.And(cube, c.litNode(level, state[i]))
		}
		rest = c.bdd.And(rest, c.bdd.Not(cube))
	}
	return out
}
