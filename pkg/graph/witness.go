package graph

import (
	"fmt"

	"github.com/dd0wney/cluso-sketch/pkg/network"
	"github.com/dd0wney/cluso-sketch/pkg/symbolic"
)

// PickWitness instantiates one concrete network from colors. Regulations are copied from
// the skeleton, update functions are fully specified.
func (ts *TransitionSystem) PickWitness(colors symbolic.ColorSet, p symbolic.Picker) (*network.Network, error) {
	one := colors.Intersect(ts.unitColors).PickSingleton(p)
	valuation, ok := one.Valuation()
	if !ok {
		return nil, fmt.Errorf("cannot pick a witness from an empty color set")
	}

	witness, err := network.New(ts.net.Variables()...)
	if err != nil {
		return nil, err
	}
	for _, r := range ts.net.Regulations() {
		if err := witness.AddRegulation(r); err != nil {
			return nil, err
		}
	}
	for _, v := range ts.net.Variables() {
		if err := witness.SetUpdate(v, ts.instantiate(v, valuation)); err != nil {
			return nil, fmt.Errorf("instantiating %s: %w", v, err)
		}
	}
	return witness, nil
}

// InstantiatedUpdate renders the update function a color assigns to variable v. When
// color holds several colors, the one chosen by FirstPicker is used.
func (ts *TransitionSystem) InstantiatedUpdate(v string, color symbolic.ColorSet) (string, error) {
	if _, ok := ts.ctx.VarIndex(v); !ok {
		return "", fmt.Errorf("unknown variable %q", v)
	}
	valuation, ok := color.Valuation()
	if !ok {
		return "", fmt.Errorf("empty color set")
	}
	return ts.instantiate(v, valuation).String(), nil
}

func (ts *TransitionSystem) instantiate(v string, valuation map[string][]bool) network.Expr {
	if name, ok := ts.implicit[v]; ok {
		regs := ts.net.Regulators(v)
		args := make([]network.Expr, len(regs))
		for i, r := range regs {
			args[i] = network.VarRef(r)
		}
		return tableExpr(valuation[name], args)
	}
	return simplify(substitute(ts.net.Update(v), valuation))
}

// substitute replaces every parameter call by the table the valuation assigns to it.
func substitute(e network.Expr, valuation map[string][]bool) network.Expr {
	switch x := e.(type) {
	case network.Not:
		return network.Not{X: substitute(x.X, valuation)}
	case network.Binary:
		return network.Binary{Op: x.Op, Left: substitute(x.Left, valuation), Right: substitute(x.Right, valuation)}
	case network.Call:
		args := make([]network.Expr, len(x.Args))
		for i, a := range x.Args {
			args[i] = substitute(a, valuation)
		}
		return tableExpr(valuation[x.Name], args)
	default:
		return e
	}
}

// tableExpr renders a function table as a disjunction of its true rows. Row r assigns
// bit i of r to argument i.
func tableExpr(table []bool, args []network.Expr) network.Expr {
	var terms []network.Expr
	for row, value := range table {
		if !value {
			continue
		}
		var term network.Expr
		for i, a := range args {
			lit := a
			if row&(1<<i) == 0 {
				lit = network.Not{X: a}
			}
			if term == nil {
				term = lit
			} else {
				term = network.Binary{Op: network.And, Left: term, Right: lit}
			}
		}
		if term == nil {
			term = network.Const(true)
		}
		terms = append(terms, term)
	}
	switch {
	case len(terms) == 0:
		return network.Const(false)
	case len(terms) == len(table):
		return network.Const(true)
	}
	out := terms[0]
	for _, t := range terms[1:] {
		out = network.Binary{Op: network.Or, Left: out, Right: t}
	}
	return out
}

// simplify folds constants out of e.
func simplify(e network.Expr) network.Expr {
	switch x := e.(type) {
	case network.Not:
		inner := simplify(x.X)
		switch y := inner.(type) {
		case network.Const:
			return !y
		case network.Not:
			return y.X
		}
		return network.Not{X: inner}
	case network.Binary:
		l, r := simplify(x.Left), simplify(x.Right)
		lc, lok := l.(network.Const)
		rc, rok := r.(network.Const)
		if lok && rok {
			return network.Const(applyOp(x.Op, bool(lc), bool(rc)))
		}
		if rok {
			if folded, ok := foldConst(x.Op, l, bool(rc)); ok {
				return folded
			}
		}
		if lok && x.Op != network.Imp {
			if folded, ok := foldConst(x.Op, r, bool(lc)); ok {
				return folded
			}
		}
		return network.Binary{Op: x.Op, Left: l, Right: r}
	default:
		return e
	}
}

// foldConst simplifies "other op c" for the commutative connectives and "other => c".
func foldConst(op network.BinaryOp, other network.Expr, c bool) (network.Expr, bool) {
	switch op {
	case network.And:
		if c {
			return other, true
		}
		return network.Const(false), true
	case network.Or:
		if c {
			return network.Const(true), true
		}
		return other, true
	case network.Xor:
		if c {
			return simplify(network.Not{X: other}), true
		}
		return other, true
	case network.Iff:
		if c {
			return other, true
		}
		return simplify(network.Not{X: other}), true
	case network.Imp:
		if c {
			return network.Const(true), true
		}
		return simplify(network.Not{X: other}), true
	}
	return nil, false
}

func applyOp(op network.BinaryOp, a, b bool) bool {
	switch op {
	case network.And:
		return a && b
	case network.Or:
		return a || b
	case network.Xor:
		return a != b
	case network.Imp:
		return !a || b
	default:
		return a == b
	}
}

// SubnetworkColors returns the colors whose instantiated network equals goal. The goal must
// be fully specified over the same variables and read only regulators declared by the
// skeleton.
func (ts *TransitionSystem) SubnetworkColors(goal *network.Network) (symbolic.ColorSet, error) {
	if goal == nil || goal.NumVars() != ts.NumVars() {
		return ts.EmptyColors(), fmt.Errorf("%w: variable sets differ", ErrGoalNotComparable)
	}
	if !goal.IsFullySpecified() {
		return ts.EmptyColors(), fmt.Errorf("%w: goal is not fully specified", ErrGoalNotComparable)
	}

	colors := ts.ctx.AllColors()
	for _, v := range goal.Variables() {
		idx, ok := ts.ctx.VarIndex(v)
		if !ok {
			return ts.EmptyColors(), fmt.Errorf("%w: unknown variable %q", ErrGoalNotComparable, v)
		}
		fn := goal.Update(v)
		for _, reg := range network.Variables(fn) {
			if _, ok := ts.net.Regulation(reg, v); !ok {
				return ts.EmptyColors(), fmt.Errorf("%w: %s does not regulate %s in the skeleton", ErrGoalNotComparable, reg, v)
			}
		}
		expected, err := ts.eval(fn)
		if err != nil {
			return ts.EmptyColors(), fmt.Errorf("%w: %v", ErrGoalNotComparable, err)
		}
		colors = colors.Minus(xor(ts.update[idx], expected).Colors())
	}
	return colors, nil
}
