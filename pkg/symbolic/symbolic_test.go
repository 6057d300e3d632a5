package symbolic

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T) *Context {
	t.Helper()
	ctx, err := NewContext([]string{"a", "b"}, []ParameterSpec{{Name: "p", Arity: 1}}, 1)
	require.NoError(t, err)
	return ctx
}

func TestNewContext_Validation(t *testing.T) {
	tests := []struct {
		name   string
		vars   []string
		params []ParameterSpec
		slots  int
	}{
		{"no variables", nil, nil, 0},
		{"duplicate variable", []string{"a", "a"}, nil, 0},
		{"duplicate parameter", []string{"a"}, []ParameterSpec{{"p", 0}, {"p", 1}}, 0},
		{"negative slots", []string{"a"}, nil, -1},
		{"arity too large", []string{"a"}, []ParameterSpec{{"p", MaxParameterArity + 1}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewContext(tt.vars, tt.params, tt.slots)
			assert.ErrorIs(t, err, ErrInvalidContext)
		})
	}
}

func TestCardinalities(t *testing.T) {
	ctx := newTestContext(t)

	assert.Equal(t, big.NewInt(16), ctx.Full().Cardinality())
	assert.Equal(t, big.NewInt(4), ctx.AllColors().Cardinality())
	assert.Equal(t, big.NewInt(4), ctx.Full().Vertices().Cardinality())
	assert.True(t, ctx.Empty().IsEmpty())
	assert.Equal(t, 4.0, ctx.Full().Colors().ApproxCardinality())

	a := ctx.Literal(0, true)
	assert.Equal(t, big.NewInt(8), a.Cardinality())
	assert.Equal(t, big.NewInt(2), a.Vertices().Cardinality())
}

func TestProjections_DegenerateLayouts(t *testing.T) {
	tests := []struct {
		name       string
		params     []ParameterSpec
		slots      int
		wantColors int64
	}{
		{"no slots", []ParameterSpec{{Name: "p", Arity: 1}}, 0, 4},
		{"no parameters", nil, 1, 1},
		{"no slots or parameters", nil, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, err := NewContext([]string{"a", "b"}, tt.params, tt.slots)
			require.NoError(t, err)
			full := ctx.Full()

			assert.Equal(t, big.NewInt(4*tt.wantColors), full.Cardinality())
			assert.Equal(t, big.NewInt(tt.wantColors), full.Colors().Cardinality())
			assert.Equal(t, big.NewInt(4), full.Vertices().Cardinality())
			assert.Equal(t, big.NewInt(tt.wantColors), full.PickVertex(FirstPicker).Cardinality())
			assert.Equal(t, big.NewInt(1), full.PickSingleton(FirstPicker).Cardinality())

			a := ctx.Literal(0, true)
			assert.Equal(t, big.NewInt(2), a.Vertices().Cardinality())
			assert.Equal(t, big.NewInt(2*tt.wantColors), a.ExistVar(0).Minus(a).Cardinality())
			assert.True(t, ctx.Empty().Colors().IsEmpty())
		})
	}
}

func TestSetAlgebra(t *testing.T) {
	ctx := newTestContext(t)
	a := ctx.Literal(0, true)
	b := ctx.Literal(1, true)

	assert.Equal(t, big.NewInt(4), a.Intersect(b).Cardinality())
	assert.Equal(t, big.NewInt(12), a.Union(b).Cardinality())
	assert.Equal(t, big.NewInt(4), a.Minus(b).Cardinality())
	assert.True(t, a.Intersect(b).IsSubset(a))
	assert.False(t, a.IsSubset(b))
	assert.True(t, a.Complement().Equals(ctx.Literal(0, false)))
	assert.True(t, a.ExistVar(0).Equals(ctx.Full()))
}

func TestApplyParameter(t *testing.T) {
	ctx := newTestContext(t)

	fa, err := ctx.ApplyParameter("p", []ColoredSet{ctx.Literal(0, true)})
	require.NoError(t, err)
	// p(a) holds for half of the tables in every state.
	assert.Equal(t, big.NewInt(8), fa.Cardinality())

	// In state a=1 the value is decided by row 1 only.
	colorsWhenTrue := fa.Intersect(ctx.Literal(0, true)).Colors()
	assert.Equal(t, big.NewInt(2), colorsWhenTrue.Cardinality())

	_, err = ctx.ApplyParameter("missing", nil)
	assert.ErrorIs(t, err, ErrUnknownParameter)

	_, err = ctx.ApplyParameter("p", nil)
	assert.Error(t, err)
}

func TestSlotEquals(t *testing.T) {
	ctx := newTestContext(t)
	eq := ctx.SlotEquals(0)

	assert.True(t, eq.ExistSlot(0).Equals(ctx.Full()))
	assert.True(t, eq.ExistStates().Equals(ctx.Full()))
	assert.Equal(t, big.NewInt(16), eq.Cardinality())
}

func TestState(t *testing.T) {
	ctx := newTestContext(t)

	s, err := ctx.State([]bool{true, false})
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(4), s.Cardinality())
	assert.Equal(t, big.NewInt(1), s.Vertices().Cardinality())
	assert.Equal(t, [][]bool{{true, false}}, s.Vertices().States(nil, 0))

	_, err = ctx.State([]bool{true})
	assert.Error(t, err)
}

func TestPickVertex_OnePerColor(t *testing.T) {
	ctx := newTestContext(t)

	picked := ctx.Full().PickVertex(NewPicker(7))
	assert.Equal(t, big.NewInt(4), picked.Cardinality())
	assert.True(t, picked.Colors().Equals(ctx.AllColors()))
	assert.True(t, picked.IsSubset(ctx.Full()))
}

func TestPickSingleton(t *testing.T) {
	ctx := newTestContext(t)

	one := ctx.Full().PickSingleton(nil)
	assert.Equal(t, big.NewInt(1), one.Cardinality())

	color := ctx.AllColors().PickSingleton(NewPicker(1))
	assert.Equal(t, big.NewInt(1), color.Cardinality())

	assert.True(t, ctx.NoColors().PickSingleton(nil).IsEmpty())
}

func TestPicker_Deterministic(t *testing.T) {
	ctx := newTestContext(t)

	first := ctx.AllColors().PickSingleton(NewPicker(42))
	second := ctx.AllColors().PickSingleton(NewPicker(42))
	assert.True(t, first.Equals(second))
}

func TestValuation(t *testing.T) {
	ctx := newTestContext(t)
	fa, err := ctx.ApplyParameter("p", []ColoredSet{ctx.Literal(0, true)})
	require.NoError(t, err)

	// Colors where p(1) = 1 and p(0) = 0.
	onlyIdentity := fa.Intersect(ctx.Literal(0, true)).Colors().
		Minus(fa.Intersect(ctx.Literal(0, false)).Colors())
	require.Equal(t, big.NewInt(1), onlyIdentity.Cardinality())

	val, ok := onlyIdentity.Valuation()
	require.True(t, ok)
	assert.Equal(t, []bool{false, true}, val["p"])

	_, ok = ctx.NoColors().Valuation()
	assert.False(t, ok)
}

func TestColorIterator(t *testing.T) {
	ctx := newTestContext(t)

	t.Run("exhausts without replacement", func(t *testing.T) {
		it := ctx.AllColors().Iterate(NewPicker(3), 0)
		seen := ctx.NoColors()
		for {
			c, ok := it.Next()
			if !ok {
				break
			}
			assert.True(t, c.Intersect(seen).IsEmpty(), "color yielded twice")
			seen = seen.Union(c)
		}
		assert.Equal(t, 4, it.Count())
		assert.True(t, it.Exhausted())
		assert.True(t, seen.Equals(ctx.AllColors()))
	})

	t.Run("respects limit", func(t *testing.T) {
		it := ctx.AllColors().Iterate(nil, 3)
		n := 0
		for _, ok := it.Next(); ok; _, ok = it.Next() {
			n++
		}
		assert.Equal(t, 3, n)
		assert.False(t, it.Exhausted())
		assert.Equal(t, big.NewInt(1), it.Remaining().Cardinality())
	})
}

func TestMixingContextsPanics(t *testing.T) {
	a := newTestContext(t)
	b := newTestContext(t)

	assert.Panics(t, func() { a.Full().Union(b.Full()) })
	assert.Panics(t, func() { a.AllColors().Intersect(b.AllColors()) })
}
