package graph

import (
	"math/big"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-sketch/pkg/network"
	"github.com/dd0wney/cluso-sketch/pkg/symbolic"
)

const toyModel = `
a -?? a
a -?? b
$a: a
$b: p(a) ^ q()
`

func mustSystem(t *testing.T, model string, slots int) *TransitionSystem {
	t.Helper()
	net, err := network.Parse(model)
	require.NoError(t, err)
	ts, err := New(net, slots)
	require.NoError(t, err)
	return ts
}

func TestNew_ToyModel(t *testing.T) {
	ts := mustSystem(t, toyModel, 0)

	assert.Equal(t, big.NewInt(8), ts.UnitColors().Cardinality())
	assert.Equal(t, big.NewInt(32), ts.UnitColoredVertices().Cardinality())
	assert.Empty(t, ts.ImplicitParameters())
}

func TestNew_FullySpecified(t *testing.T) {
	ts := mustSystem(t, "a -> b\nb -| a\n$a: !b\n$b: a", 0)

	assert.Equal(t, big.NewInt(1), ts.UnitColors().Cardinality())
	assert.Equal(t, big.NewInt(4), ts.UnitColoredVertices().Vertices().Cardinality())
	assert.Equal(t, big.NewInt(4), ts.UnitColoredVertices().Cardinality())
}

func TestNew_StaticConstraints(t *testing.T) {
	// The regulator a has an implicit constant function contributing two colors.
	tests := []struct {
		arrow string
		want  int64
	}{
		{"->", 1},
		{"-|", 1},
		{"-?", 2},
		{"->?", 3},
		{"-|?", 3},
		{"-??", 4},
	}

	for _, tt := range tests {
		t.Run(tt.arrow, func(t *testing.T) {
			ts := mustSystem(t, "a "+tt.arrow+" b", 0)
			assert.Equal(t, big.NewInt(2*tt.want), ts.UnitColors().Cardinality())
			assert.Equal(t, map[string]string{"a": "f_a", "b": "f_b"}, ts.ImplicitParameters())
		})
	}
}

func TestNew_ImplicitNameClash(t *testing.T) {
	ts := mustSystem(t, "a -> b\nb -> a\n$a: f_b(b)", 0)
	assert.Equal(t, map[string]string{"b": "f_b_"}, ts.ImplicitParameters())
}

func TestNew_Errors(t *testing.T) {
	_, err := New(nil, 0)
	assert.ErrorIs(t, err, ErrInvalidSkeleton)

	empty, err := network.New()
	require.NoError(t, err)
	_, err = New(empty, 0)
	assert.ErrorIs(t, err, ErrInvalidSkeleton)
}

func TestPostPre(t *testing.T) {
	ts := mustSystem(t, toyModel, 0)
	b, _ := ts.VarIndex("b")
	a, _ := ts.VarIndex("a")

	s00, err := ts.MkState([]bool{false, false})
	require.NoError(t, err)
	s01, err := ts.MkState([]bool{false, true})
	require.NoError(t, err)

	// b rises in 00 exactly for the colors where p(0) ^ q = 1.
	up := ts.Post(b, s00)
	assert.Equal(t, big.NewInt(4), up.Cardinality())
	assert.True(t, up.IsSubset(s01))

	back := ts.Pre(b, up)
	assert.True(t, back.Equals(s00.IntersectColors(up.Colors())))

	// a never changes.
	assert.True(t, ts.Post(a, ts.UnitColoredVertices()).IsEmpty())
	assert.True(t, ts.Pre(a, ts.UnitColoredVertices()).IsEmpty())

	assert.True(t, ts.CanPost(b, s00).Equals(s00.IntersectColors(up.Colors())))
}

func TestFixedPoints(t *testing.T) {
	ts := mustSystem(t, toyModel, 0)

	fixed := ts.FixedPoints()
	// Two fixed points per color.
	assert.Equal(t, big.NewInt(16), fixed.Cardinality())
	assert.True(t, ts.HasSuccessor(fixed).IsEmpty())
	assert.True(t, ts.PostAll(fixed).IsEmpty())

	s11, err := ts.MkState([]bool{true, true})
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(4), fixed.Intersect(s11).Colors().Cardinality())
}

func TestRestrictColors(t *testing.T) {
	ts := mustSystem(t, toyModel, 0)
	s11, err := ts.MkState([]bool{true, true})
	require.NoError(t, err)

	narrowed := ts.RestrictColors(ts.FixedPoints().Intersect(s11).Colors())
	assert.Equal(t, big.NewInt(4), narrowed.UnitColors().Cardinality())
	// The previous snapshot is untouched.
	assert.Equal(t, big.NewInt(8), ts.UnitColors().Cardinality())

	b, _ := ts.VarIndex("b")
	assert.True(t, narrowed.Post(b, narrowed.UnitColoredVertices()).Colors().IsSubset(narrowed.UnitColors()))
}

func TestMkPartialState(t *testing.T) {
	ts := mustSystem(t, toyModel, 0)

	s, err := ts.MkPartialState(map[string]bool{"a": true})
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(2), s.Vertices().Cardinality())

	_, err = ts.MkPartialState(map[string]bool{"zzz": true})
	assert.Error(t, err)
}

func TestPickWitness(t *testing.T) {
	ts := mustSystem(t, toyModel, 0)

	w, err := ts.PickWitness(ts.UnitColors(), symbolic.NewPicker(11))
	require.NoError(t, err)
	assert.True(t, w.IsFullySpecified())

	again, err := network.Parse(w.String())
	require.NoError(t, err)
	assert.Equal(t, w.String(), again.String())

	// p ^ q and !p ^ !q instantiate the same function for b.
	colors, err := ts.SubnetworkColors(w)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(2), colors.Intersect(ts.UnitColors()).Cardinality())

	_, err = ts.PickWitness(ts.EmptyColors(), nil)
	assert.Error(t, err)
}

func TestInstantiatedUpdate(t *testing.T) {
	ts := mustSystem(t, "a -> b", 0)

	// The only activating, observable table for b is the identity.
	fn, err := ts.InstantiatedUpdate("b", ts.UnitColors())
	require.NoError(t, err)
	assert.Equal(t, "a", fn)

	_, err = ts.InstantiatedUpdate("zzz", ts.UnitColors())
	assert.Error(t, err)
}

func TestSubnetworkColors(t *testing.T) {
	ts := mustSystem(t, toyModel, 0)

	goal, err := network.Parse("a -> a\na -> b\n$a: a\n$b: a")
	require.NoError(t, err)
	colors, err := ts.SubnetworkColors(goal)
	require.NoError(t, err)
	// p = identity with q = 0, or p = negation with q = 1.
	assert.Equal(t, big.NewInt(2), colors.Cardinality())

	other, err := network.Parse("a -> b\nb -> a\n$a: b\n$b: a")
	require.NoError(t, err)
	_, err = ts.SubnetworkColors(other)
	assert.ErrorIs(t, err, ErrGoalNotComparable)

	partial, err := network.Parse("a -> a\na -> b\n$a: a")
	require.NoError(t, err)
	_, err = ts.SubnetworkColors(partial)
	assert.ErrorIs(t, err, ErrGoalNotComparable)
}

// stateUnion builds the union of the states selected by the bits of mask.
func stateUnion(ts *TransitionSystem, mask uint8) symbolic.ColoredSet {
	out := ts.EmptyColoredVertices()
	for s := 0; s < 4; s++ {
		if mask&(1<<s) == 0 {
			continue
		}
		st, _ := ts.MkState([]bool{s&1 != 0, s&2 != 0})
		out = out.Union(st)
	}
	return out
}

func TestPostPre_MonotoneProperties(t *testing.T) {
	ts := mustSystem(t, toyModel, 0)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("post distributes over union", prop.ForAll(
		func(m1, m2 uint8) bool {
			a, b := stateUnion(ts, m1), stateUnion(ts, m2)
			for v := 0; v < ts.NumVars(); v++ {
				if !ts.Post(v, a.Union(b)).Equals(ts.Post(v, a).Union(ts.Post(v, b))) {
					return false
				}
			}
			return true
		},
		gen.UInt8Range(0, 15),
		gen.UInt8Range(0, 15),
	))

	properties.Property("pre distributes over union", prop.ForAll(
		func(m1, m2 uint8) bool {
			a, b := stateUnion(ts, m1), stateUnion(ts, m2)
			for v := 0; v < ts.NumVars(); v++ {
				if !ts.Pre(v, a.Union(b)).Equals(ts.Pre(v, a).Union(ts.Pre(v, b))) {
					return false
				}
			}
			return true
		},
		gen.UInt8Range(0, 15),
		gen.UInt8Range(0, 15),
	))

	properties.Property("restriction is monotone", prop.ForAll(
		func(m1, m2 uint8) bool {
			wide := stateUnion(ts, m1|m2).Intersect(ts.FixedPoints()).Colors()
			narrow := stateUnion(ts, m1).Intersect(ts.FixedPoints()).Colors()
			return ts.RestrictColors(narrow).UnitColors().IsSubset(ts.RestrictColors(wide).UnitColors())
		},
		gen.UInt8Range(0, 15),
		gen.UInt8Range(0, 15),
	))

	properties.TestingRun(t)
}
