// Package graph builds the colored asynchronous transition system of a partially
// specified Boolean network.
package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dd0wney/cluso-sketch/pkg/network"
	"github.com/dd0wney/cluso-sketch/pkg/symbolic"
)

var (
	// ErrInvalidSkeleton is returned when a network cannot be turned into a transition system.
	ErrInvalidSkeleton = errors.New("invalid network skeleton")

	// ErrGoalNotComparable is returned when a goal network does not fit the skeleton.
	ErrGoalNotComparable = errors.New("goal network not comparable with skeleton")
)

// TransitionSystem is the colored asynchronous state-transition graph of a network. A value
// is never modified after construction; RestrictColors derives a new one.
type TransitionSystem struct {
	net *network.Network
	ctx *symbolic.Context

	// update[i] holds the (state, color) pairs where the update function of variable i is true.
	update []symbolic.ColoredSet
	// canFlip[i] holds the pairs where variable i differs from its update function.
	canFlip []symbolic.ColoredSet

	// implicit maps variables without an update function to their anonymous parameter.
	implicit map[string]string

	unitColors symbolic.ColorSet
}

// New builds the transition system of net with extraSlots state copies available for
// HCTL variables. Static constraints of the regulatory graph (monotonicity and
// observability) form the initial unit colors.
func New(net *network.Network, extraSlots int, opts ...symbolic.Options) (*TransitionSystem, error) {
	if net == nil || net.NumVars() == 0 {
		return nil, fmt.Errorf("%w: network has no variables", ErrInvalidSkeleton)
	}

	params := make([]symbolic.ParameterSpec, 0)
	taken := make(map[string]bool)
	for _, p := range net.Parameters() {
		params = append(params, symbolic.ParameterSpec{Name: p.Name, Arity: p.Arity})
		taken[p.Name] = true
	}
	implicit := make(map[string]string)
	for _, v := range net.Variables() {
		if net.Update(v) != nil {
			continue
		}
		name := "f_" + v
		for taken[name] {
			name += "_"
		}
		taken[name] = true
		implicit[v] = name
		params = append(params, symbolic.ParameterSpec{Name: name, Arity: len(net.Regulators(v))})
	}

	ctx, err := symbolic.NewContext(net.Variables(), params, extraSlots, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSkeleton, err)
	}

	ts := &TransitionSystem{
		net:      net,
		ctx:      ctx,
		update:   make([]symbolic.ColoredSet, net.NumVars()),
		canFlip:  make([]symbolic.ColoredSet, net.NumVars()),
		implicit: implicit,
	}

	for i, v := range net.Variables() {
		fn, err := ts.updateSet(v)
		if err != nil {
			return nil, fmt.Errorf("%w: update function of %s: %v", ErrInvalidSkeleton, v, err)
		}
		ts.update[i] = fn
		ts.canFlip[i] = xor(ctx.Literal(i, true), fn)
	}

	ts.unitColors = ts.staticConstraints()
	return ts, nil
}

// updateSet evaluates the update function of v, explicit or implicit.
func (ts *TransitionSystem) updateSet(v string) (symbolic.ColoredSet, error) {
	if name, ok := ts.implicit[v]; ok {
		regs := ts.net.Regulators(v)
		args := make([]symbolic.ColoredSet, len(regs))
		for i, r := range regs {
			idx, _ := ts.ctx.VarIndex(r)
			args[i] = ts.ctx.Literal(idx, true)
		}
		return ts.ctx.ApplyParameter(name, args)
	}
	return ts.eval(ts.net.Update(v))
}

// eval builds the set of pairs where e is true.
func (ts *TransitionSystem) eval(e network.Expr) (symbolic.ColoredSet, error) {
	switch x := e.(type) {
	case network.Const:
		if x {
			return ts.ctx.Full(), nil
		}
		return ts.ctx.Empty(), nil
	case network.VarRef:
		idx, ok := ts.ctx.VarIndex(string(x))
		if !ok {
			return symbolic.ColoredSet{}, fmt.Errorf("unknown variable %q", string(x))
		}
		return ts.ctx.Literal(idx, true), nil
	case network.Not:
		inner, err := ts.eval(x.X)
		if err != nil {
			return symbolic.ColoredSet{}, err
		}
		return inner.Complement(), nil
	case network.Binary:
		l, err := ts.eval(x.Left)
		if err != nil {
			return symbolic.ColoredSet{}, err
		}
		r, err := ts.eval(x.Right)
		if err != nil {
			return symbolic.ColoredSet{}, err
		}
		switch x.Op {
		case network.And:
			return l.Intersect(r), nil
		case network.Or:
			return l.Union(r), nil
		case network.Xor:
			return xor(l, r), nil
		case network.Imp:
			return l.Complement().Union(r), nil
		case network.Iff:
			return xor(l, r).Complement(), nil
		}
		return symbolic.ColoredSet{}, fmt.Errorf("unknown operator %v", x.Op)
	case network.Call:
		args := make([]symbolic.ColoredSet, len(x.Args))
		for i, a := range x.Args {
			s, err := ts.eval(a)
			if err != nil {
				return symbolic.ColoredSet{}, err
			}
			args[i] = s
		}
		return ts.ctx.ApplyParameter(x.Name, args)
	}
	return symbolic.ColoredSet{}, fmt.Errorf("unsupported expression %T", e)
}

// staticConstraints returns the colors for which every regulation has its declared sign
// and every observable regulation has an effect in at least one state.
func (ts *TransitionSystem) staticConstraints() symbolic.ColorSet {
	colors := ts.ctx.AllColors()
	for _, r := range ts.net.Regulations() {
		t, _ := ts.ctx.VarIndex(r.Target)
		reg, _ := ts.ctx.VarIndex(r.Regulator)
		fn := ts.update[t]
		low := fn.Intersect(ts.ctx.Literal(reg, false)).ExistVar(reg)
		high := fn.Intersect(ts.ctx.Literal(reg, true)).ExistVar(reg)

		switch r.Monotonicity {
		case network.Activation:
			colors = colors.Minus(low.Minus(high).Colors())
		case network.Inhibition:
			colors = colors.Minus(high.Minus(low).Colors())
		}
		if r.Observable {
			colors = colors.Intersect(xor(low, high).Colors())
		}
	}
	return colors
}

func xor(a, b symbolic.ColoredSet) symbolic.ColoredSet {
	return a.Union(b).Minus(a.Intersect(b))
}

// Network returns the skeleton the system was built from.
func (ts *TransitionSystem) Network() *network.Network { return ts.net }

// Context returns the symbolic context shared by every set of the system.
func (ts *TransitionSystem) Context() *symbolic.Context { return ts.ctx }

// NumVars returns the number of network variables.
func (ts *TransitionSystem) NumVars() int { return ts.ctx.NumVars() }

// Variables returns the ordered variable names.
func (ts *TransitionSystem) Variables() []string { return ts.ctx.VarNames() }

// VarIndex looks up a variable by name.
func (ts *TransitionSystem) VarIndex(name string) (int, bool) { return ts.ctx.VarIndex(name) }

// ImplicitParameters returns the anonymous parameter name of every variable without an
// update function.
func (ts *TransitionSystem) ImplicitParameters() map[string]string {
	out := make(map[string]string, len(ts.implicit))
	for k, v := range ts.implicit {
		out[k] = v
	}
	return out
}

// UnitColors returns the currently valid colors.
func (ts *TransitionSystem) UnitColors() symbolic.ColorSet { return ts.unitColors }

// EmptyColors returns the empty color set.
func (ts *TransitionSystem) EmptyColors() symbolic.ColorSet { return ts.ctx.NoColors() }

// UnitColoredVertices returns every state paired with every valid color.
func (ts *TransitionSystem) UnitColoredVertices() symbolic.ColoredSet {
	return ts.unitColors.AsColored()
}

// EmptyColoredVertices returns the empty colored set.
func (ts *TransitionSystem) EmptyColoredVertices() symbolic.ColoredSet { return ts.ctx.Empty() }

// RestrictColors returns a system whose unit colors are the current ones intersected with
// colors. The receiver stays valid.
func (ts *TransitionSystem) RestrictColors(colors symbolic.ColorSet) *TransitionSystem {
	next := *ts
	next.unitColors = ts.unitColors.Intersect(colors)
	return &next
}

// MkState returns one state with every valid color.
func (ts *TransitionSystem) MkState(values []bool) (symbolic.ColoredSet, error) {
	s, err := ts.ctx.State(values)
	if err != nil {
		return symbolic.ColoredSet{}, err
	}
	return s.IntersectColors(ts.unitColors), nil
}

// MkPartialState returns the states matching the given assignment, with every valid color.
func (ts *TransitionSystem) MkPartialState(values map[string]bool) (symbolic.ColoredSet, error) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	s := ts.UnitColoredVertices()
	for _, name := range names {
		idx, ok := ts.ctx.VarIndex(name)
		if !ok {
			return symbolic.ColoredSet{}, fmt.Errorf("unknown variable %q", name)
		}
		s = s.Intersect(ts.ctx.Literal(idx, values[name]))
	}
	return s, nil
}
