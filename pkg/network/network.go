package network

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrParse is returned for malformed network descriptions.
	ErrParse = errors.New("network parse error")

	// ErrInvalidNetwork is returned for structurally inconsistent skeletons.
	ErrInvalidNetwork = errors.New("invalid network")
)

// Monotonicity is the declared sign of a regulation.
type Monotonicity int

const (
	Unknown Monotonicity = iota
	Activation
	Inhibition
)

func (m Monotonicity) String() string {
	switch m {
	case Activation:
		return "activation"
	case Inhibition:
		return "inhibition"
	default:
		return "unknown"
	}
}

// Regulation is an edge of the regulatory graph.
type Regulation struct {
	Regulator    string
	Target       string
	Monotonicity Monotonicity
	Observable   bool
}

// Arrow renders the regulation arrow in the textual format.
func (r Regulation) Arrow() string {
	var arrow string
	switch r.Monotonicity {
	case Activation:
		arrow = "->"
	case Inhibition:
		arrow = "-|"
	default:
		arrow = "-?"
	}
	if !r.Observable {
		arrow += "?"
	}
	return arrow
}

// Property is a named dynamic property attached to a model as an annotation.
type Property struct {
	Name    string
	Formula string
}

// ParameterDecl is an explicit uninterpreted function used by some update function.
type ParameterDecl struct {
	Name  string
	Arity int
}

// Network is a partially specified Boolean network: a regulatory graph with optional
// update functions. A variable without an update function is governed by an anonymous
// function of all its regulators.
type Network struct {
	variables   []string
	index       map[string]int
	regulations []Regulation
	updates     map[string]Expr
	params      map[string]int
	properties  []Property
}

// New creates a network over the given variables, without regulations.
func New(variables ...string) (*Network, error) {
	n := &Network{
		index:   make(map[string]int),
		updates: make(map[string]Expr),
		params:  make(map[string]int),
	}
	for _, v := range variables {
		if err := n.AddVariable(v); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// AddVariable declares a new variable.
func (n *Network) AddVariable(name string) error {
	if !isName(name) {
		return fmt.Errorf("%w: invalid variable name %q", ErrInvalidNetwork, name)
	}
	if _, dup := n.index[name]; dup {
		return fmt.Errorf("%w: duplicate variable %q", ErrInvalidNetwork, name)
	}
	n.index[name] = len(n.variables)
	n.variables = append(n.variables, name)
	return nil
}

// ensureVariable declares name unless it already exists.
func (n *Network) ensureVariable(name string) error {
	if _, ok := n.index[name]; ok {
		return nil
	}
	return n.AddVariable(name)
}

// AddRegulation adds an edge between two declared variables.
func (n *Network) AddRegulation(r Regulation) error {
	if _, ok := n.index[r.Regulator]; !ok {
		return fmt.Errorf("%w: unknown regulator %q", ErrInvalidNetwork, r.Regulator)
	}
	if _, ok := n.index[r.Target]; !ok {
		return fmt.Errorf("%w: unknown target %q", ErrInvalidNetwork, r.Target)
	}
	if _, exists := n.Regulation(r.Regulator, r.Target); exists {
		return fmt.Errorf("%w: duplicate regulation %s -> %s", ErrInvalidNetwork, r.Regulator, r.Target)
	}
	n.regulations = append(n.regulations, r)
	return nil
}

// SetUpdate assigns an explicit update function to target. Every variable read by the
// function must regulate target, explicit parameters must be used with one arity across
// the whole network and must not shadow variable names.
func (n *Network) SetUpdate(target string, fn Expr) error {
	if _, ok := n.index[target]; !ok {
		return fmt.Errorf("%w: unknown variable %q", ErrInvalidNetwork, target)
	}
	if _, dup := n.updates[target]; dup {
		return fmt.Errorf("%w: duplicate update function for %q", ErrInvalidNetwork, target)
	}
	for _, v := range Variables(fn) {
		if _, ok := n.index[v]; !ok {
			return fmt.Errorf("%w: update function of %q reads unknown variable %q", ErrInvalidNetwork, target, v)
		}
		if _, ok := n.Regulation(v, target); !ok {
			return fmt.Errorf("%w: update function of %q reads %q which does not regulate it", ErrInvalidNetwork, target, v)
		}
	}
	var arityErr error
	Walk(fn, func(x Expr) {
		c, ok := x.(Call)
		if !ok || arityErr != nil {
			return
		}
		if _, clash := n.index[c.Name]; clash {
			arityErr = fmt.Errorf("%w: parameter %q shadows a variable", ErrInvalidNetwork, c.Name)
			return
		}
		if arity, seen := n.params[c.Name]; seen && arity != len(c.Args) {
			arityErr = fmt.Errorf("%w: parameter %q used with arity %d and %d", ErrInvalidNetwork, c.Name, arity, len(c.Args))
			return
		}
		n.params[c.Name] = len(c.Args)
	})
	if arityErr != nil {
		return arityErr
	}
	n.updates[target] = fn
	return nil
}

// AddProperty attaches a named dynamic property.
func (n *Network) AddProperty(p Property) {
	n.properties = append(n.properties, p)
}

// Variables returns the ordered variable names.
func (n *Network) Variables() []string { return append([]string(nil), n.variables...) }

// NumVars returns the number of variables.
func (n *Network) NumVars() int { return len(n.variables) }

// VariableIndex returns the position of a variable.
func (n *Network) VariableIndex(name string) (int, bool) {
	i, ok := n.index[name]
	return i, ok
}

// Regulations returns all regulations in declaration order.
func (n *Network) Regulations() []Regulation { return append([]Regulation(nil), n.regulations...) }

// Regulation looks up the edge regulator -> target.
func (n *Network) Regulation(regulator, target string) (Regulation, bool) {
	for _, r := range n.regulations {
		if r.Regulator == regulator && r.Target == target {
			return r, true
		}
	}
	return Regulation{}, false
}

// Regulators returns the regulators of target ordered by variable position.
func (n *Network) Regulators(target string) []string {
	var out []string
	for _, r := range n.regulations {
		if r.Target == target {
			out = append(out, r.Regulator)
		}
	}
	sort.Slice(out, func(i, j int) bool { return n.index[out[i]] < n.index[out[j]] })
	return out
}

// Update returns the explicit update function of v, or nil when it is implicit.
func (n *Network) Update(v string) Expr { return n.updates[v] }

// Parameters returns the explicit parameters sorted by name.
func (n *Network) Parameters() []ParameterDecl {
	out := make([]ParameterDecl, 0, len(n.params))
	for name, arity := range n.params {
		out = append(out, ParameterDecl{Name: name, Arity: arity})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Properties returns the named dynamic properties sorted by name.
func (n *Network) Properties() []Property {
	out := append([]Property(nil), n.properties...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// IsFullySpecified reports whether every variable has a parameter-free update function.
func (n *Network) IsFullySpecified() bool {
	for _, v := range n.variables {
		fn, ok := n.updates[v]
		if !ok || len(Calls(fn)) > 0 {
			return false
		}
	}
	return true
}

// String renders the network in the textual format accepted by Parse.
func (n *Network) String() string {
	var sb strings.Builder
	for _, r := range n.regulations {
		fmt.Fprintf(&sb, "%s %s %s\n", r.Regulator, r.Arrow(), r.Target)
	}
	for _, v := range n.variables {
		if fn, ok := n.updates[v]; ok {
			fmt.Fprintf(&sb, "$%s: %s\n", v, trimParens(fn.String()))
		}
	}
	for _, p := range n.Properties() {
		fmt.Fprintf(&sb, "#!dynamic_property: %s: %s\n", p.Name, p.Formula)
	}
	return sb.String()
}

// trimParens drops one pair of redundant outer parentheses.
func trimParens(s string) string {
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return s
	}
	depth := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(s)-1 {
				return s
			}
		}
	}
	return s[1 : len(s)-1]
}

func isName(s string) bool {
	if s == "" || s == "true" || s == "false" {
		return false
	}
	for _, r := range s {
		if !isNameRune(r) {
			return false
		}
	}
	return true
}

func isNameRune(r rune) bool {
	return r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'
}
