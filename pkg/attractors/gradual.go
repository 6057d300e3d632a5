package attractors

import (
	"context"

	"github.com/dd0wney/cluso-sketch/pkg/graph"
	"github.com/dd0wney/cluso-sketch/pkg/logging"
	"github.com/dd0wney/cluso-sketch/pkg/symbolic"
)

// InAttractor returns the colors for which every state of states lies in an attractor:
// everything reachable from the state can reach it back.
func (e Engine) InAttractor(ts *graph.TransitionSystem, states symbolic.ColoredSet) symbolic.ColorSet {
	reach := e.reach()
	forward := reach.ForwardSaturated(ts, states)
	back := reach.BackwardWithin(ts, states, forward)
	return ts.UnitColors().Minus(forward.Minus(back).Colors())
}

// GradualInference restricts ts, one measured state after another, to the colors where
// the state belongs to an attractor. Each element of measured must hold a single state.
// The context is checked before every state; on cancellation the system restricted so far
// is returned with ctx.Err().
func (e Engine) GradualInference(ctx context.Context, ts *graph.TransitionSystem, measured []symbolic.ColoredSet) (*graph.TransitionSystem, error) {
	for i, state := range measured {
		if err := ctx.Err(); err != nil {
			return ts, err
		}
		ts = ts.RestrictColors(e.InAttractor(ts, state.IntersectColors(ts.UnitColors())))
		e.logger().Debug("measured state applied",
			logging.Step(i),
			logging.Cardinality(ts.UnitColors().ApproxCardinality()))
		if ts.UnitColors().IsEmpty() {
			break
		}
	}
	return ts, nil
}
