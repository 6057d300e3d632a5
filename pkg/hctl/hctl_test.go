package hctl

import (
	"context"
	"errors"
	"math/big"
	"testing"

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

func mustSystem(t *testing.T, model string, slots int) *graph.TransitionSystem {
	t.Helper()
	net, err := network.Parse(model)
	require.NoError(t, err)
	ts, err := graph.New(net, slots)
	require.NoError(t, err)
	return ts
}

func states(t *testing.T, ts *graph.TransitionSystem, vectors ...[]bool) symbolic.ColoredSet {
	t.Helper()
	out := ts.EmptyColoredVertices()
	for _, v := range vectors {
		s, err := ts.MkState(v)
		require.NoError(t, err)
		out = out.Union(s)
	}
	return out
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Formula
	}{
		{"proposition", "a", Prop("a")},
		{"negation", "~a", Not{X: Prop("a")}},
		{"bang negation", "!a", Not{X: Prop("a")}},
		{"and binds tighter than or", "a | b & c", Or(Prop("a"), And(Prop("b"), Prop("c")))},
		{"implication is right associative", "a => b => c", Imp(Prop("a"), Imp(Prop("b"), Prop("c")))},
		{"iff lowest", "a <=> b | c", Iff(Prop("a"), Or(Prop("b"), Prop("c")))},
		{"temporal prefix binds tightest", "EX a & b", And(EX(Prop("a")), Prop("b"))},
		{"nested temporal", "AG EF {x}", AG(EF(Var("x")))},
		{"until", "a EU b & c", And(EU(Prop("a"), Prop("b")), Prop("c"))},
		{"hybrid extends right", "3{x}: @{x}: a & {x}", Exists("x", At("x", And(Prop("a"), Var("x"))))},
		{"bind", "!{y}: AX {y}", Bind("y", AX(Var("y")))},
		{"forall with spaces", "V{ x } : a", Forall("x", Prop("a"))},
		{"constants", "true & ~false", And(True, Not{X: False})},
		{
			"attractor template",
			"(3{x}: (@{x}: (a & b & ~c & (AG EF (a & b & ~c & {x})))))",
			Exists("x", At("x", And(Prop("a"), Prop("b"), Not{X: Prop("c")},
				AG(EF(And(Prop("a"), Prop("b"), Not{X: Prop("c")}, Var("x"))))))),
		},
		{
			"forbid template",
			"~(3{x}: (@{x}: ~(AG EF ((a & b & ~c) | (a & b & c) | false ))))",
			Not{X: Exists("x", At("x", Not{X: AG(EF(Or(
				And(Prop("a"), Prop("b"), Not{X: Prop("c")}),
				And(Prop("a"), Prop("b"), Prop("c")),
				False,
			)))}))},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, err := Parse(got.String())
			require.NoError(t, err, "rendering %q", got.String())
			assert.Equal(t, got, again)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	for _, input := range []string{
		"",
		"a &",
		"(a",
		"a)",
		"3{x} a",
		"{}",
		"{x",
		"EU a",
		"a EU",
		"a $ b",
		"AG",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			assert.ErrorIs(t, err, ErrSyntax)
		})
	}
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParse("a &") })
}

func TestString(t *testing.T) {
	assert.Equal(t, "(~a & ~b & c)", And(Not{X: Prop("a")}, Not{X: Prop("b")}, Prop("c")).String())
	assert.Equal(t, "(a & (b & c))", Binary{Op: OpAnd, Left: Prop("a"), Right: And(Prop("b"), Prop("c"))}.String())
	assert.Equal(t, "(3{x}: (@{x}: (a & AX {x})))", Exists("x", At("x", And(Prop("a"), AX(Var("x"))))).String())
	assert.Equal(t, "(a EU b)", EU(Prop("a"), Prop("b")).String())
	assert.Equal(t, "true", And().String())
	assert.Equal(t, "false", Or().String())
}

func TestVariables(t *testing.T) {
	f := MustParse("3{x}: @{x}: (a & (!{y}: AG EF {y})) & V{z}: {z}")
	assert.Equal(t, []string{"x", "z"}, Variables(f))
	assert.Equal(t, 0, SlotsNeeded(MustParse("!{y}: AX {y}")))
	assert.Equal(t, 1, SlotsNeeded(MustParse("!{y}: AX ({y} & true)")))
	assert.Equal(t, []string{"b", "a"}, Props(MustParse("b & EF (a | b)")))
}

func TestValidate(t *testing.T) {
	ts := mustSystem(t, bistable, 1)
	noSlots := mustSystem(t, bistable, 0)

	tests := []struct {
		name    string
		formula string
		ts      *graph.TransitionSystem
		wantErr error
	}{
		{"valid", "3{x}: @{x}: a & AX {x}", ts, nil},
		{"unknown proposition", "a & c", ts, ErrUnknownProposition},
		{"free variable", "a & {x}", ts, ErrUnboundVariable},
		{"jump to unbound", "@{x}: a", ts, ErrUnboundVariable},
		{"variable out of scope", "(3{x}: a) & {x}", ts, ErrUnboundVariable},
		{"too many variables", "3{x}: 3{y}: {x} & {y}", ts, ErrNotEnoughSlots},
		{"no slots", "3{x}: {x}", noSlots, ErrNotEnoughSlots},
		{"shortcut needs no slot", "a & (!{y}: AG EF {y})", noSlots, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(MustParse(tt.formula), tt.ts)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEvaluate_Bistable(t *testing.T) {
	ts := mustSystem(t, bistable, 1)
	s00 := []bool{false, false}
	s01 := []bool{false, true}
	s10 := []bool{true, false}
	s11 := []bool{true, true}

	tests := []struct {
		formula string
		want    symbolic.ColoredSet
	}{
		{"EF b", states(t, ts, s01, s10, s11)},
		{"AG a", states(t, ts, s10, s11)},
		{"EG b", states(t, ts, s11)},
		{"EX ~b", states(t, ts, s00, s01)},
		{"AX b", states(t, ts, s10, s11)},
		{"AF ~b", states(t, ts, s00, s01, s10)},
		{"b EU ~b", states(t, ts, s00, s01, s10)},
		{"~a AU ~b", states(t, ts, s00, s01, s10)},
		{"a ^ b", states(t, ts, s01, s10)},
		{"a <=> b", states(t, ts, s00, s11)},
		{"a => b", states(t, ts, s00, s01, s11)},
		{"!{y}: AG EF {y}", states(t, ts, s00, s11)},
		{"!{y}: AX {y}", states(t, ts, s00, s11)},
		{"3{x}: @{x}: a & b & AG EF (a & b)", ts.UnitColoredVertices()},
		{"3{x}: @{x}: ~a & b & AG EF (~a & b)", ts.EmptyColoredVertices()},
		{"V{x}: @{x}: EF (a <=> b)", ts.UnitColoredVertices()},
	}
	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			got, err := Evaluate(MustParse(tt.formula), ts)
			require.NoError(t, err)
			assert.True(t, got.Equals(tt.want), "got %s", got)
		})
	}
}

func TestEvaluate_Oscillator(t *testing.T) {
	ts := mustSystem(t, oscillator, 1)

	all, err := Evaluate(MustParse("AF a & AF ~a"), ts)
	require.NoError(t, err)
	assert.True(t, all.Equals(ts.UnitColoredVertices()))

	none, err := Evaluate(MustParse("EG a"), ts)
	require.NoError(t, err)
	assert.True(t, none.IsEmpty())

	fixed, err := Evaluate(MustParse("3{x}: @{x}: AX {x}"), ts)
	require.NoError(t, err)
	assert.True(t, fixed.IsEmpty())
}

func TestEvaluate_ToyModelColors(t *testing.T) {
	ts := mustSystem(t, toyModel, 1)
	require.Equal(t, big.NewInt(8), ts.UnitColors().Cardinality())

	tests := []struct {
		formula string
		colors  int64
	}{
		{"3{x}: @{x}: (a & b & AX (a & b))", 4},
		{"3{x}: @{x}: (a & b & AG EF (a & b))", 4},
		{"3{x}: @{x}: (b & AG EF (b & {x}))", 6},
		{"3{x}: @{x}: (b & (!{y}: AG EF {y}))", 6},
		{"~(3{x}: (@{x}: ~(AG EF ((a & b) | false))))", 0},
		{"true", 8},
		{"false", 0},
	}
	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			got, err := Evaluate(MustParse(tt.formula), ts)
			require.NoError(t, err)
			assert.Equal(t, tt.colors, got.Colors().Cardinality().Int64())
		})
	}
}

func TestEvaluate_ShortcutsMatchGeneralEvaluation(t *testing.T) {
	for name, model := range map[string]string{"oscillator": oscillator, "bistable": bistable, "toy": toyModel} {
		t.Run(name, func(t *testing.T) {
			ts := mustSystem(t, model, 1)

			fast, err := Evaluate(MustParse("!{y}: AG EF {y}"), ts)
			require.NoError(t, err)
			slow, err := Evaluate(MustParse("!{y}: AG EF ({y} & true)"), ts)
			require.NoError(t, err)
			assert.True(t, fast.Equals(slow))

			fast, err = Evaluate(MustParse("!{y}: AX {y}"), ts)
			require.NoError(t, err)
			slow, err = Evaluate(MustParse("!{y}: AX ({y} & true)"), ts)
			require.NoError(t, err)
			assert.True(t, fast.Equals(slow))
		})
	}
}

func TestEvaluateDirty(t *testing.T) {
	ts := mustSystem(t, bistable, 1)

	assert.True(t, EvaluateDirty(MustParse("c"), ts).IsEmpty())

	free := EvaluateDirty(MustParse("EF {x}"), ts)
	assert.True(t, free.Colors().Equals(ts.UnitColors()))

	_, err := Evaluate(MustParse("EF {x}"), ts)
	assert.ErrorIs(t, err, ErrUnboundVariable)

	_, err = Dirty.Evaluate(context.Background(), MustParse("3{x}: 3{y}: {x} & {y}"), ts)
	assert.True(t, errors.Is(err, ErrNotEnoughSlots))
}

func TestChecker_Cancelled(t *testing.T) {
	ts := mustSystem(t, oscillator, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := Checked.Evaluate(ctx, MustParse("AF a"), ts)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, got.IsEmpty())
}

func TestChecker_RecordsIterations(t *testing.T) {
	ts := mustSystem(t, oscillator, 0)
	reg := metrics.NewRegistry()

	_, err := Checker{Metrics: reg}.Evaluate(context.Background(), MustParse("EG a"), ts)
	require.NoError(t, err)

	c, err := reg.FixpointIterationsTotal.GetMetricWithLabelValues(engineName)
	require.NoError(t, err)
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	assert.Greater(t, m.Counter.GetValue(), 0.0)
}
