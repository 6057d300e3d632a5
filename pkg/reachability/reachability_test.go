package reachability

import (
	"math/big"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-sketch/pkg/graph"
	"github.com/dd0wney/cluso-sketch/pkg/metrics"
	"github.com/dd0wney/cluso-sketch/pkg/network"
	"github.com/dd0wney/cluso-sketch/pkg/symbolic"
)

const (
	oscillator = "a -> b\nb -| a\n$a: !b\n$b: a"
	bistable   = "a -> a\na -> b\n$a: a\n$b: a"
	toyModel   = "a -?? a\na -?? b\n$a: a\n$b: p(a) ^ q()"
)

func mustSystem(t *testing.T, model string) *graph.TransitionSystem {
	t.Helper()
	net, err := network.Parse(model)
	require.NoError(t, err)
	ts, err := graph.New(net, 0)
	require.NoError(t, err)
	return ts
}

func state(t *testing.T, ts *graph.TransitionSystem, values ...bool) symbolic.ColoredSet {
	t.Helper()
	s, err := ts.MkState(values)
	require.NoError(t, err)
	return s
}

func TestForwardSaturated_Cycle(t *testing.T) {
	ts := mustSystem(t, oscillator)
	require.Equal(t, big.NewInt(1), ts.UnitColors().Cardinality())

	reached := ForwardSaturated(ts, state(t, ts, false, false))
	assert.True(t, reached.Equals(ts.UnitColoredVertices()))

	back := BackwardSaturated(ts, state(t, ts, true, true))
	assert.True(t, back.Equals(ts.UnitColoredVertices()))
}

func TestSaturation_Bistable(t *testing.T) {
	ts := mustSystem(t, bistable)
	s00 := state(t, ts, false, false)
	s01 := state(t, ts, false, true)
	s10 := state(t, ts, true, false)
	s11 := state(t, ts, true, true)

	assert.True(t, ForwardSaturated(ts, s01).Equals(s01.Union(s00)))
	assert.True(t, ForwardSaturated(ts, s10).Equals(s10.Union(s11)))
	assert.True(t, BackwardSaturated(ts, s00).Equals(s00.Union(s01)))

	// The bound cuts the only predecessor of 11.
	assert.True(t, BackwardWithin(ts, s11, s11.Union(s00)).Equals(s11))
	assert.True(t, ForwardWithin(ts, s10, s10).Equals(s10))
}

func TestStep(t *testing.T) {
	ts := mustSystem(t, bistable)
	s01 := state(t, ts, false, true)

	next, progressed := Step(ts, s01, ts.UnitColoredVertices(), Forward)
	assert.True(t, progressed)
	assert.Equal(t, big.NewInt(2), next.Cardinality())

	_, progressed = Step(ts, next, ts.UnitColoredVertices(), Forward)
	assert.False(t, progressed)
}

func TestEngine_ReportsIterations(t *testing.T) {
	ts := mustSystem(t, oscillator)
	reg := metrics.NewRegistry()

	Engine{Metrics: reg}.ForwardSaturated(ts, state(t, ts, false, false))

	c, err := reg.FixpointIterationsTotal.GetMetricWithLabelValues("forward")
	require.NoError(t, err)
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	assert.Equal(t, 3.0, m.Counter.GetValue())
}

func TestSaturation_ClosedUnderImage(t *testing.T) {
	ts := mustSystem(t, toyModel)

	seedFrom := func(mask uint8) symbolic.ColoredSet {
		out := ts.EmptyColoredVertices()
		for s := 0; s < 4; s++ {
			if mask&(1<<s) != 0 {
				out = out.Union(state(t, ts, s&1 != 0, s&2 != 0))
			}
		}
		return out
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 40
	properties := gopter.NewProperties(parameters)

	properties.Property("forward result is closed under post", prop.ForAll(
		func(mask uint8) bool {
			seed := seedFrom(mask)
			result := ForwardSaturated(ts, seed)
			if !seed.IsSubset(result) {
				return false
			}
			for v := 0; v < ts.NumVars(); v++ {
				if !ts.Post(v, result).IsSubset(result) {
					return false
				}
			}
			return true
		},
		gen.UInt8Range(0, 15),
	))

	properties.Property("backward result is closed under pre", prop.ForAll(
		func(mask uint8) bool {
			result := BackwardSaturated(ts, seedFrom(mask))
			for v := 0; v < ts.NumVars(); v++ {
				if !ts.Pre(v, result).IsSubset(result) {
					return false
				}
			}
			return true
		},
		gen.UInt8Range(0, 15),
	))

	properties.Property("forward and backward are dual", prop.ForAll(
		func(m1, m2 uint8) bool {
			a, b := seedFrom(m1), seedFrom(m2)
			// b is reachable from a iff a can be reached backward from b, per color.
			fwd := ForwardSaturated(ts, a).Intersect(b).Colors()
			bwd := BackwardSaturated(ts, b).Intersect(a).Colors()
			return fwd.Equals(bwd)
		},
		gen.UInt8Range(0, 15),
		gen.UInt8Range(0, 15),
	))

	properties.TestingRun(t)
}
