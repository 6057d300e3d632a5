// Package properties builds the HCTL formulas that encode attractor, fixed-point, trap
// space and reachability observations.
//
// State arguments are propositional formulas describing one (possibly partial) state, such
// as the conjunction of literals produced by the observations package. Passing a nil state
// or an empty sequence where one is required is a programming error and panics.
package properties

import (
	"github.com/dd0wney/cluso-sketch/pkg/hctl"
)

// anchor is the HCTL variable bound to the witness state.
const anchor = "x"

func mustState(state hctl.Formula, fn string) {
	if state == nil {
		panic("properties." + fn + ": state formula must not be empty")
	}
}

func mustStates(states []hctl.Formula, fn string) {
	if len(states) == 0 {
		panic("properties." + fn + ": at least one state formula is required")
	}
	for _, s := range states {
		mustState(s, fn)
	}
}

// anchored wraps body as 3{x}: @{x}: body.
func anchored(body hctl.Formula) hctl.Formula {
	return hctl.Exists(anchor, hctl.At(anchor, body))
}

// AttractorSpecific requires an attractor containing state. state must fix every variable;
// for partial states use Attractor.
func AttractorSpecific(state hctl.Formula) hctl.Formula {
	mustState(state, "AttractorSpecific")
	return anchored(hctl.And(state, hctl.AG(hctl.EF(state))))
}

// Attractor requires an attractor containing a state matching the (partial) state. The
// bound variable pins the AG EF target to the witness state itself.
func Attractor(state hctl.Formula) hctl.Formula {
	mustState(state, "Attractor")
	return anchored(hctl.And(state, hctl.AG(hctl.EF(hctl.And(state, hctl.Var(anchor))))))
}

// AttractorAEON is Attractor written so that the evaluator computes attractor states with
// the attractor search instead of a nested fixpoint.
func AttractorAEON(state hctl.Formula) hctl.Formula {
	mustState(state, "AttractorAEON")
	return anchored(hctl.And(state, hctl.Bind("y", hctl.AG(hctl.EF(hctl.Var("y"))))))
}

// AttractorSet requires an attractor for each state. An empty set gives true.
func AttractorSet(states []hctl.Formula) hctl.Formula {
	parts := make([]hctl.Formula, 0, len(states))
	for _, s := range states {
		parts = append(parts, Attractor(s))
	}
	return hctl.And(parts...)
}

// ForbidOtherAttractors rejects every attractor that contains none of states:
// ~(3{x}: @{x}: ~AG EF (s1 | ... | sn | false)).
func ForbidOtherAttractors(states []hctl.Formula) hctl.Formula {
	mustStates(states, "ForbidOtherAttractors")
	allowed := append(append([]hctl.Formula(nil), states...), hctl.False)
	return hctl.Not{X: anchored(hctl.Not{X: hctl.AG(hctl.EF(hctl.Or(allowed...)))})}
}

// AttractorsCombined is AttractorSet and ForbidOtherAttractors in one formula.
func AttractorsCombined(states []hctl.Formula) hctl.Formula {
	mustStates(states, "AttractorsCombined")
	parts := make([]hctl.Formula, 0, len(states)+1)
	for _, s := range states {
		parts = append(parts, Attractor(s))
	}
	return hctl.And(append(parts, ForbidOtherAttractors(states))...)
}

// FixedPointSpecific requires state, which must fix every variable, to be a fixed point.
func FixedPointSpecific(state hctl.Formula) hctl.Formula {
	mustState(state, "FixedPointSpecific")
	return anchored(hctl.And(state, hctl.AX(state)))
}

// FixedPoint requires a fixed point matching the (partial) state.
func FixedPoint(state hctl.Formula) hctl.Formula {
	mustState(state, "FixedPoint")
	return anchored(hctl.And(state, hctl.AX(hctl.And(state, hctl.Var(anchor)))))
}

// FixedPointSet requires a fixed point for each state. An empty set gives true.
func FixedPointSet(states []hctl.Formula) hctl.Formula {
	parts := make([]hctl.Formula, 0, len(states))
	for _, s := range states {
		parts = append(parts, FixedPoint(s))
	}
	return hctl.And(parts...)
}

// ForbidOtherFixedPoints rejects fixed points matching none of states:
// ~(3{x}: @{x}: ~s1 & ... & ~sn & AX {x}).
func ForbidOtherFixedPoints(states []hctl.Formula) hctl.Formula {
	mustStates(states, "ForbidOtherFixedPoints")
	parts := make([]hctl.Formula, 0, len(states)+1)
	for _, s := range states {
		parts = append(parts, hctl.Not{X: s})
	}
	parts = append(parts, hctl.AX(hctl.Var(anchor)))
	return hctl.Not{X: anchored(hctl.And(parts...))}
}

// FixedPointsCombined is FixedPointSet and ForbidOtherFixedPoints in one formula.
func FixedPointsCombined(states []hctl.Formula) hctl.Formula {
	mustStates(states, "FixedPointsCombined")
	parts := make([]hctl.Formula, 0, len(states)+1)
	for _, s := range states {
		parts = append(parts, FixedPoint(s))
	}
	return hctl.And(append(parts, ForbidOtherFixedPoints(states))...)
}

// TrapSpace requires a state of space from which space is never left.
func TrapSpace(space hctl.Formula) hctl.Formula {
	mustState(space, "TrapSpace")
	return anchored(hctl.And(space, hctl.AG(space)))
}

// ReachabilityPair requires a state matching from that reaches to on some path (EF), on
// every path (AF, universal) or never (~EF, negative). universal and negative are
// mutually exclusive.
func ReachabilityPair(from, to hctl.Formula, universal, negative bool) hctl.Formula {
	mustState(from, "ReachabilityPair")
	mustState(to, "ReachabilityPair")
	if universal && negative {
		panic("properties.ReachabilityPair: universal and negative are mutually exclusive")
	}
	var reach hctl.Formula
	switch {
	case universal:
		reach = hctl.AF(to)
	case negative:
		reach = hctl.Not{X: hctl.EF(to)}
	default:
		reach = hctl.EF(to)
	}
	return anchored(hctl.And(from, reach))
}

// ReachabilityChain requires a path visiting the states in order:
// 3{x}: @{x}: s0 & EF (s1 & EF (... & EF sn)).
func ReachabilityChain(states []hctl.Formula) hctl.Formula {
	mustStates(states, "ReachabilityChain")
	chain := states[len(states)-1]
	for i := len(states) - 2; i >= 0; i-- {
		chain = hctl.And(states[i], hctl.EF(chain))
	}
	return anchored(chain)
}
