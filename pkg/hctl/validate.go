package hctl

import (
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-sketch/pkg/graph"
)

var (
	// ErrUnboundVariable is returned when {x} or @{x} is used outside a binder of x.
	ErrUnboundVariable = errors.New("unbound hctl variable")

	// ErrUnknownProposition is returned for propositions that name no network variable.
	ErrUnknownProposition = errors.New("unknown proposition")

	// ErrNotEnoughSlots is returned when the transition system was built with fewer extra
	// state slots than the formula has distinct variables.
	ErrNotEnoughSlots = errors.New("not enough hctl variable slots")
)

// shortcut reports whether f is evaluated without slots: !{y}: AG EF {y} (attractor
// states) or !{y}: AX {y} (fixed points).
func shortcut(f Formula) (UnaryOp, bool) {
	h, ok := f.(Hybrid)
	if !ok || h.Op != OpBind {
		return 0, false
	}
	t, ok := h.X.(Temporal)
	if !ok {
		return 0, false
	}
	switch t.Op {
	case OpAG:
		ef, ok := t.X.(Temporal)
		if ok && ef.Op == OpEF && ef.X == Var(h.Var) {
			return OpAG, true
		}
	case OpAX:
		if t.X == Var(h.Var) {
			return OpAX, true
		}
	}
	return 0, false
}

// Variables returns the HCTL variables of fs that need a state slot, in order of first
// appearance. Shortcut subformulas need none.
func Variables(fs ...Formula) []string {
	var out []string
	seen := map[string]bool{}
	add := func(x string) {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	for _, f := range fs {
		Walk(f, func(g Formula) bool {
			if _, ok := shortcut(g); ok {
				return false
			}
			switch n := g.(type) {
			case Var:
				add(string(n))
			case Hybrid:
				add(n.Var)
			}
			return true
		})
	}
	return out
}

// SlotsNeeded returns the number of extra state slots a transition system needs to
// evaluate all of fs.
func SlotsNeeded(fs ...Formula) int {
	return len(Variables(fs...))
}

// Validate checks that every proposition of f is a variable of ts, that every HCTL
// variable is bound and that ts has a slot for each of them.
func Validate(f Formula, ts *graph.TransitionSystem) error {
	for _, p := range Props(f) {
		if _, ok := ts.VarIndex(p); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownProposition, p)
		}
	}
	if err := checkBound(f, nil); err != nil {
		return err
	}
	if need, have := SlotsNeeded(f), ts.Context().Slots(); need > have {
		return fmt.Errorf("%w: formula uses %d variables, system has %d slots", ErrNotEnoughSlots, need, have)
	}
	return nil
}

func checkBound(f Formula, bound map[string]bool) error {
	switch n := f.(type) {
	case Var:
		if !bound[string(n)] {
			return fmt.Errorf("%w: {%s}", ErrUnboundVariable, string(n))
		}
	case Not:
		return checkBound(n.X, bound)
	case Binary:
		if err := checkBound(n.Left, bound); err != nil {
			return err
		}
		return checkBound(n.Right, bound)
	case Temporal:
		return checkBound(n.X, bound)
	case Hybrid:
		if n.Op == OpAt {
			if !bound[n.Var] {
				return fmt.Errorf("%w: @{%s}", ErrUnboundVariable, n.Var)
			}
			return checkBound(n.X, bound)
		}
		inner := make(map[string]bool, len(bound)+1)
		for k := range bound {
			inner[k] = true
		}
		inner[n.Var] = true
		return checkBound(n.X, inner)
	}
	return nil
}
