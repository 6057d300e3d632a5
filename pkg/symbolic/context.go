package symbolic

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/dalzilio/rudd"
)

// MaxParameterArity bounds the size of a parameter's function table (2^arity BDD variables).
const MaxParameterArity = 16

var (
	// ErrInvalidContext is returned when a context cannot be built from its description.
	ErrInvalidContext = errors.New("invalid symbolic context")

	// ErrUnknownParameter is returned when a parameter name is not part of the context.
	ErrUnknownParameter = errors.New("unknown parameter")
)

// ParameterSpec describes an uninterpreted function whose table is encoded symbolically.
type ParameterSpec struct {
	Name  string
	Arity int
}

// Parameter is a ParameterSpec together with the BDD levels of its table rows.
// Row r of the table holds the value of the function for the argument vector whose
// i-th argument equals bit i of r.
type Parameter struct {
	Name  string
	Arity int
	rows  []int
}

// Rows returns the number of rows in the parameter's function table.
func (p Parameter) Rows() int {
	return len(p.rows)
}

// Options configures the underlying BDD.
type Options struct {
	NodeSize  int
	CacheSize int
}

// DefaultOptions returns the BDD sizing used when no options are given.
func DefaultOptions() Options {
	return Options{NodeSize: 10000, CacheSize: 5000}
}

// Context owns the BDD shared by every set of one transition system together with the
// variable layout: network variables, extra state slots used by bound HCTL variables and
// parameter tables.
//
// Level of network variable i in slot j (slot 0 is the state itself) is i*(slots+1)+j.
// Parameter rows follow all state levels.
//
// A Context is not safe for concurrent use.
type Context struct {
	bdd        *rudd.BDD
	varNames   []string
	varIndex   map[string]int
	slots      int
	params     []Parameter
	paramIndex map[string]int

	stateLevels []int
	slotLevels  [][]int
	paramLevels []int

	stateCube    rudd.Node
	allSlotsCube rudd.Node
	slotCubes    []rudd.Node
	paramCube    rudd.Node
}

// NewContext creates a context for the given variables, parameters and number of extra
// state slots.
func NewContext(varNames []string, params []ParameterSpec, slots int, opts ...Options) (*Context, error) {
	if len(varNames) == 0 {
		return nil, fmt.Errorf("%w: at least one variable is required", ErrInvalidContext)
	}
	if slots < 0 {
		return nil, fmt.Errorf("%w: negative slot count %d", ErrInvalidContext, slots)
	}

	o := DefaultOptions()
	if len(opts) > 0 {
		o = opts[0]
	}

	c := &Context{
		varNames:   append([]string(nil), varNames...),
		varIndex:   make(map[string]int, len(varNames)),
		slots:      slots,
		paramIndex: make(map[string]int, len(params)),
	}
	for i, name := range varNames {
		if _, dup := c.varIndex[name]; dup {
			return nil, fmt.Errorf("%w: duplicate variable %q", ErrInvalidContext, name)
		}
		c.varIndex[name] = i
	}

	stride := slots + 1
	c.stateLevels = make([]int, len(varNames))
	c.slotLevels = make([][]int, slots)
	for s := range c.slotLevels {
		c.slotLevels[s] = make([]int, len(varNames))
	}
	for i := range varNames {
		c.stateLevels[i] = i * stride
		for s := 0; s < slots; s++ {
			c.slotLevels[s][i] = i*stride + s + 1
		}
	}

	next := len(varNames) * stride
	for _, spec := range params {
		if _, dup := c.paramIndex[spec.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate parameter %q", ErrInvalidContext, spec.Name)
		}
		if spec.Arity < 0 || spec.Arity > MaxParameterArity {
			return nil, fmt.Errorf("%w: parameter %q has unsupported arity %d", ErrInvalidContext, spec.Name, spec.Arity)
		}
		p := Parameter{Name: spec.Name, Arity: spec.Arity, rows: make([]int, 1<<spec.Arity)}
		for r := range p.rows {
			p.rows[r] = next
			c.paramLevels = append(c.paramLevels, next)
			next++
		}
		c.paramIndex[spec.Name] = len(c.params)
		c.params = append(c.params, p)
	}

	bdd, err := rudd.New(next, rudd.Nodesize(o.NodeSize), rudd.Cachesize(o.CacheSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContext, err)
	}
	c.bdd = bdd

	c.stateCube = bdd.Makeset(c.stateLevels)
	c.slotCubes = make([]rudd.Node, slots)
	var allSlots []int
	for s := 0; s < slots; s++ {
		c.slotCubes[s] = bdd.Makeset(c.slotLevels[s])
		allSlots = append(allSlots, c.slotLevels[s]...)
	}
	c.allSlotsCube = bdd.Makeset(allSlots)
	c.paramCube = bdd.Makeset(c.paramLevels)

	return c, nil
}

// NumVars returns the number of network variables.
func (c *Context) NumVars() int { return len(c.varNames) }

// VarNames returns the ordered network variable names.
func (c *Context) VarNames() []string { return append([]string(nil), c.varNames...) }

// VarName returns the name of variable i.
func (c *Context) VarName(i int) string { return c.varNames[i] }

// VarIndex looks up a variable by name.
func (c *Context) VarIndex(name string) (int, bool) {
	i, ok := c.varIndex[name]
	return i, ok
}

// Slots returns the number of extra state slots.
func (c *Context) Slots() int { return c.slots }

// Parameters returns the parameter tables of the context.
func (c *Context) Parameters() []Parameter { return append([]Parameter(nil), c.params...) }

// NumParameterBits returns the number of BDD variables used by parameter tables.
func (c *Context) NumParameterBits() int { return len(c.paramLevels) }

// Parameter looks up a parameter by name.
func (c *Context) Parameter(name string) (Parameter, bool) {
	i, ok := c.paramIndex[name]
	if !ok {
		return Parameter{}, false
	}
	return c.params[i], true
}

// Full returns the set of every (state, color) pair, including colors ruled out by static
// constraints.
func (c *Context) Full() ColoredSet { return c.colored(c.bdd.True()) }

// Empty returns the empty colored set.
func (c *Context) Empty() ColoredSet { return c.colored(c.bdd.False()) }

// AllColors returns every parameter valuation.
func (c *Context) AllColors() ColorSet { return c.colors(c.bdd.True()) }

// NoColors returns the empty color set.
func (c *Context) NoColors() ColorSet { return c.colors(c.bdd.False()) }

// Literal returns the states where variable i has the given value.
func (c *Context) Literal(i int, value bool) ColoredSet {
	if value {
		return c.colored(c.bdd.Ithvar(c.stateLevels[i]))
	}
	return c.colored(c.bdd.NIthvar(c.stateLevels[i]))
}

// State returns the colored set of one fully specified state, for every color.
func (c *Context) State(values []bool) (ColoredSet, error) {
	if len(values) != len(c.varNames) {
		return ColoredSet{}, fmt.Errorf("state has %d values, context has %d variables", len(values), len(c.varNames))
	}
	n := c.bdd.True()
	for i, v := range values {
		n = c.bdd.And(n, c.litNode(c.stateLevels[i], v))
	}
	return c.colored(n), nil
}

// SlotEquals returns the pairs where slot s holds a copy of the current state.
func (c *Context) SlotEquals(s int) ColoredSet {
	n := c.bdd.True()
	for i := range c.varNames {
		n = c.bdd.And(n, c.bdd.Equiv(c.bdd.Ithvar(c.stateLevels[i]), c.bdd.Ithvar(c.slotLevels[s][i])))
	}
	return c.colored(n)
}

// ApplyParameter evaluates the uninterpreted function name on the given argument sets:
// the result holds for a (state, color) pair when the color's table for name maps the
// argument values of that state to true.
func (c *Context) ApplyParameter(name string, args []ColoredSet) (ColoredSet, error) {
	idx, ok := c.paramIndex[name]
	if !ok {
		return ColoredSet{}, fmt.Errorf("%w: %s", ErrUnknownParameter, name)
	}
	p := c.params[idx]
	if len(args) != p.Arity {
		return ColoredSet{}, fmt.Errorf("parameter %s expects %d arguments, got %d", name, p.Arity, len(args))
	}
	for _, a := range args {
		c.check(a.ctx)
	}

	result := c.bdd.False()
	for row, level := range p.rows {
		term := c.bdd.Ithvar(level)
		for i, a := range args {
			if row&(1<<i) != 0 {
				term = c.bdd.And(term, a.node)
			} else {
				term = c.bdd.And(term, c.bdd.Not(a.node))
			}
		}
		result = c.bdd.Or(result, term)
	}
	return c.colored(result), nil
}

// Stats returns the statistics string of the underlying BDD.
func (c *Context) Stats() string { return c.bdd.Stats() }

func (c *Context) colored(n rudd.Node) ColoredSet { return ColoredSet{ctx: c, node: n} }

func (c *Context) colors(n rudd.Node) ColorSet { return ColorSet{ctx: c, node: n} }

func (c *Context) litNode(level int, value bool) rudd.Node {
	if value {
		return c.bdd.Ithvar(level)
	}
	return c.bdd.NIthvar(level)
}

// exist quantifies the levels of cube out of n. A cube over no levels is the constant
// True, which rudd rejects as a varset, so n is returned as is.
func (c *Context) exist(n, cube rudd.Node) rudd.Node {
	if *cube == *c.bdd.True() {
		return n
	}
	return c.bdd.Exist(n, cube)
}

func (c *Context) isFalse(n rudd.Node) bool { return *n == *c.bdd.False() }

func (c *Context) same(a, b rudd.Node) bool { return *a == *b }

// check enforces that sets of different contexts are never combined.
func (c *Context) check(other *Context) {
	if other != c {
		panic("symbolic: combining sets of different contexts")
	}
}

// count returns the number of satisfying assignments of n over all levels except the
// dropped ones; n must not depend on the dropped levels.
func (c *Context) count(n rudd.Node, dropped int) *big.Int {
	total := c.bdd.Satcount(n)
	return new(big.Int).Rsh(total, uint(dropped))
}

func approx(x *big.Int) float64 {
	f, _ := new(big.Float).SetInt(x).Float64()
	return f
}
