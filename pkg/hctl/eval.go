package hctl

import (
	"context"
	"fmt"

	"github.com/dd0wney/cluso-sketch/pkg/attractors"
	"github.com/dd0wney/cluso-sketch/pkg/graph"
	"github.com/dd0wney/cluso-sketch/pkg/logging"
	"github.com/dd0wney/cluso-sketch/pkg/metrics"
	"github.com/dd0wney/cluso-sketch/pkg/reachability"
	"github.com/dd0wney/cluso-sketch/pkg/symbolic"
)

const engineName = "hctl"

// Checker evaluates formulas against transition systems. The transition relation is made
// total: a state without successors loops on itself.
type Checker struct {
	// SkipValidation evaluates without the Validate pass. Unknown propositions and missing
	// slots are still reported; free variables range over every state.
	SkipValidation bool

	Metrics *metrics.Registry
	Logger  logging.Logger
}

var (
	// Checked validates every formula before evaluating it.
	Checked = Checker{}
	// Dirty skips validation.
	Dirty = Checker{SkipValidation: true}
)

// Evaluate returns the (state, color) pairs of ts satisfying f. Free HCTL variables, if
// any, are existentially projected only by callers that take Colors.
func (c Checker) Evaluate(ctx context.Context, f Formula, ts *graph.TransitionSystem) (symbolic.ColoredSet, error) {
	if !c.SkipValidation {
		if err := Validate(f, ts); err != nil {
			return ts.EmptyColoredVertices(), err
		}
	}
	vars := Variables(f)
	if len(vars) > ts.Context().Slots() {
		return ts.EmptyColoredVertices(), fmt.Errorf("%w: formula uses %d variables, system has %d slots",
			ErrNotEnoughSlots, len(vars), ts.Context().Slots())
	}

	e := &evaluation{
		ctx:       ctx,
		ts:        ts,
		slots:     make(map[string]int, len(vars)),
		cache:     make(map[string]symbolic.ColoredSet),
		unit:      ts.UnitColoredVertices(),
		deadlocks: ts.FixedPoints(),
		reach:     reachability.Engine{Metrics: c.Metrics, Logger: c.Logger},
		attractor: attractors.Engine{Reduction: true, Metrics: c.Metrics, Logger: c.Logger},
	}
	for i, x := range vars {
		e.slots[x] = i
	}

	out, err := e.eval(f)
	if c.Metrics != nil {
		c.Metrics.RecordIterations(engineName, e.iterations)
	}
	if err != nil {
		return ts.EmptyColoredVertices(), err
	}
	if c.Logger != nil && c.Logger.Enabled(logging.DebugLevel) {
		c.Logger.Debug("formula evaluated",
			logging.Property(f.String()),
			logging.Iterations(e.iterations),
			logging.Cardinality(out.ApproxCardinality()))
	}
	return out, nil
}

// Evaluate validates and evaluates f.
func Evaluate(f Formula, ts *graph.TransitionSystem) (symbolic.ColoredSet, error) {
	return Checked.Evaluate(context.Background(), f, ts)
}

// EvaluateDirty evaluates f without validation. Any evaluation error yields the empty set.
func EvaluateDirty(f Formula, ts *graph.TransitionSystem) symbolic.ColoredSet {
	out, err := Dirty.Evaluate(context.Background(), f, ts)
	if err != nil {
		return ts.EmptyColoredVertices()
	}
	return out
}

type evaluation struct {
	ctx       context.Context
	ts        *graph.TransitionSystem
	slots     map[string]int
	cache     map[string]symbolic.ColoredSet
	unit      symbolic.ColoredSet
	deadlocks symbolic.ColoredSet
	reach     reachability.Engine
	attractor attractors.Engine

	iterations int
}

func (e *evaluation) eval(f Formula) (symbolic.ColoredSet, error) {
	key := f.String()
	if out, ok := e.cache[key]; ok {
		return out, nil
	}
	out, err := e.compute(f)
	if err != nil {
		return out, err
	}
	e.cache[key] = out
	return out, nil
}

func (e *evaluation) slot(x string) (int, error) {
	s, ok := e.slots[x]
	if !ok {
		return 0, fmt.Errorf("%w: {%s}", ErrNotEnoughSlots, x)
	}
	return s, nil
}

func (e *evaluation) compute(f Formula) (symbolic.ColoredSet, error) {
	if op, ok := shortcut(f); ok {
		if op == OpAX {
			return e.deadlocks, nil
		}
		return e.attractor.States(e.ctx, e.ts)
	}

	switch n := f.(type) {
	case Const:
		if n {
			return e.unit, nil
		}
		return e.ts.EmptyColoredVertices(), nil
	case Prop:
		i, ok := e.ts.VarIndex(string(n))
		if !ok {
			return e.unit, fmt.Errorf("%w: %s", ErrUnknownProposition, string(n))
		}
		return e.ts.Context().Literal(i, true).IntersectColors(e.ts.UnitColors()), nil
	case Var:
		s, err := e.slot(string(n))
		if err != nil {
			return e.unit, err
		}
		return e.ts.Context().SlotEquals(s).IntersectColors(e.ts.UnitColors()), nil
	case Not:
		x, err := e.eval(n.X)
		if err != nil {
			return x, err
		}
		return e.unit.Minus(x), nil
	case Binary:
		return e.binary(n)
	case Temporal:
		return e.temporal(n)
	case Hybrid:
		return e.hybrid(n)
	}
	return e.unit, fmt.Errorf("unsupported formula node %T", f)
}

func (e *evaluation) binary(n Binary) (symbolic.ColoredSet, error) {
	l, err := e.eval(n.Left)
	if err != nil {
		return l, err
	}
	r, err := e.eval(n.Right)
	if err != nil {
		return r, err
	}
	switch n.Op {
	case OpAnd:
		return l.Intersect(r), nil
	case OpOr:
		return l.Union(r), nil
	case OpXor:
		return l.Minus(r).Union(r.Minus(l)), nil
	case OpImp:
		return e.unit.Minus(l).Union(r), nil
	case OpIff:
		return e.unit.Minus(l.Minus(r).Union(r.Minus(l))), nil
	case OpEU:
		return e.reach.BackwardWithin(e.ts, r, l.Union(r)), nil
	case OpAU:
		// μZ. r ∪ (l ∩ AX Z)
		return e.fixpoint(r, func(z symbolic.ColoredSet) symbolic.ColoredSet {
			return r.Union(l.Intersect(e.ax(z)))
		})
	}
	return e.unit, fmt.Errorf("unsupported binary operator %v", n.Op)
}

func (e *evaluation) temporal(n Temporal) (symbolic.ColoredSet, error) {
	x, err := e.eval(n.X)
	if err != nil {
		return x, err
	}
	switch n.Op {
	case OpEX:
		return e.ex(x), nil
	case OpAX:
		return e.ax(x), nil
	case OpEF:
		return e.reach.BackwardSaturated(e.ts, x), nil
	case OpAG:
		return e.unit.Minus(e.reach.BackwardSaturated(e.ts, e.unit.Minus(x))), nil
	case OpAF:
		return e.fixpoint(x, func(z symbolic.ColoredSet) symbolic.ColoredSet {
			return x.Union(e.ax(z))
		})
	case OpEG:
		return e.fixpoint(x, func(z symbolic.ColoredSet) symbolic.ColoredSet {
			return x.Intersect(e.ex(z))
		})
	}
	return e.unit, fmt.Errorf("unsupported temporal operator %v", n.Op)
}

func (e *evaluation) hybrid(n Hybrid) (symbolic.ColoredSet, error) {
	s, err := e.slot(n.Var)
	if err != nil {
		return e.unit, err
	}
	x, err := e.eval(n.X)
	if err != nil {
		return x, err
	}
	here := e.ts.Context().SlotEquals(s)
	switch n.Op {
	case OpExists:
		return x.ExistSlot(s), nil
	case OpForall:
		return e.unit.Minus(e.unit.Minus(x).ExistSlot(s)), nil
	case OpBind:
		return x.Intersect(here).ExistSlot(s), nil
	case OpAt:
		return x.Intersect(here).ExistStates(), nil
	}
	return e.unit, fmt.Errorf("unsupported hybrid operator %v", n.Op)
}

// ex is the existential predecessor in the total relation.
func (e *evaluation) ex(x symbolic.ColoredSet) symbolic.ColoredSet {
	return e.ts.PreAll(x).Union(x.Intersect(e.deadlocks))
}

func (e *evaluation) ax(x symbolic.ColoredSet) symbolic.ColoredSet {
	return e.unit.Minus(e.ex(e.unit.Minus(x)))
}

// fixpoint iterates next from start until it stabilizes. next must be monotone and start
// must lie below (least) or above (greatest) its first image.
func (e *evaluation) fixpoint(start symbolic.ColoredSet, next func(symbolic.ColoredSet) symbolic.ColoredSet) (symbolic.ColoredSet, error) {
	z := start
	for {
		if err := e.ctx.Err(); err != nil {
			return z, err
		}
		e.iterations++
		following := next(z)
		if following.Equals(z) {
			return z, nil
		}
		z = following
	}
}
