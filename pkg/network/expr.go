package network

import (
	"strings"
)

// Expr is an update-function expression.
type Expr interface {
	String() string
	exprNode()
}

// Const is a constant update function.
type Const bool

// VarRef reads the value of a regulator.
type VarRef string

// Not negates its operand.
type Not struct {
	X Expr
}

// BinaryOp enumerates binary Boolean connectives.
type BinaryOp int

const (
	And BinaryOp = iota
	Or
	Xor
	Imp
	Iff
)

// String returns the textual operator.
func (op BinaryOp) String() string {
	switch op {
	case And:
		return "&"
	case Or:
		return "|"
	case Xor:
		return "^"
	case Imp:
		return "=>"
	case Iff:
		return "<=>"
	default:
		return "?"
	}
}

// Binary combines two expressions.
type Binary struct {
	Op          BinaryOp
	Left, Right Expr
}

// Call applies an uninterpreted function (an explicit parameter) to its arguments.
type Call struct {
	Name string
	Args []Expr
}

func (Const) exprNode()  {}
func (VarRef) exprNode() {}
func (Not) exprNode()    {}
func (Binary) exprNode() {}
func (Call) exprNode()   {}

func (c Const) String() string {
	if c {
		return "true"
	}
	return "false"
}

func (v VarRef) String() string { return string(v) }

func (n Not) String() string { return "!" + n.X.String() }

func (b Binary) String() string {
	return "(" + b.Left.String() + " " + b.Op.String() + " " + b.Right.String() + ")"
}

func (c Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return c.Name + "(" + strings.Join(args, ", ") + ")"
}

// Variables returns the distinct variables read by e, in order of first occurrence.
func Variables(e Expr) []string {
	var out []string
	seen := make(map[string]bool)
	Walk(e, func(x Expr) {
		if v, ok := x.(VarRef); ok && !seen[string(v)] {
			seen[string(v)] = true
			out = append(out, string(v))
		}
	})
	return out
}

// Calls returns the arity of every uninterpreted function used in e. When a function is
// used with several arities, the first one wins; Network.SetUpdate rejects such input.
func Calls(e Expr) map[string]int {
	out := make(map[string]int)
	Walk(e, func(x Expr) {
		if c, ok := x.(Call); ok {
			if _, seen := out[c.Name]; !seen {
				out[c.Name] = len(c.Args)
			}
		}
	})
	return out
}

// Walk visits e and all its sub-expressions in pre-order.
func Walk(e Expr, visit func(Expr)) {
	if e == nil {
		return
	}
	visit(e)
	switch x := e.(type) {
	case Not:
		Walk(x.X, visit)
	case Binary:
		Walk(x.Left, visit)
		Walk(x.Right, visit)
	case Call:
		for _, a := range x.Args {
			Walk(a, visit)
		}
	}
}
