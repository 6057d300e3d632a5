// Package hctl implements hybrid computation tree logic over colored transition systems:
// the formula tree, its text syntax, validation and symbolic evaluation.
package hctl

import (
	"strings"
)

// Formula is an HCTL state formula.
type Formula interface {
	String() string
	formula()
}

// Const is true or false.
type Const bool

// Prop holds in the states where the network variable of the same name is true.
type Prop string

// Var holds in the state currently bound to the HCTL variable.
type Var string

// Not negates its operand.
type Not struct {
	X Formula
}

// BinaryOp enumerates binary operators, Boolean and temporal.
type BinaryOp int

const (
	OpAnd BinaryOp = iota
	OpOr
	OpXor
	OpImp
	OpIff
	OpEU
	OpAU
)

var binarySymbols = [...]string{"&", "|", "^", "=>", "<=>", "EU", "AU"}

func (op BinaryOp) String() string {
	if int(op) < len(binarySymbols) {
		return binarySymbols[op]
	}
	return "?"
}

func (op BinaryOp) associative() bool {
	return op == OpAnd || op == OpOr || op == OpXor
}

// Binary combines two formulas.
type Binary struct {
	Op          BinaryOp
	Left, Right Formula
}

// UnaryOp enumerates temporal prefix operators.
type UnaryOp int

const (
	OpEX UnaryOp = iota
	OpAX
	OpEF
	OpAF
	OpEG
	OpAG
)

var unarySymbols = [...]string{"EX", "AX", "EF", "AF", "EG", "AG"}

func (op UnaryOp) String() string {
	if int(op) < len(unarySymbols) {
		return unarySymbols[op]
	}
	return "?"
}

// Temporal applies a temporal prefix operator.
type Temporal struct {
	Op UnaryOp
	X  Formula
}

// HybridOp enumerates the operators dealing with HCTL variables.
type HybridOp int

const (
	// OpExists is 3{x}: some state assigned to x satisfies the body.
	OpExists HybridOp = iota
	// OpForall is V{x}: every state assigned to x satisfies the body.
	OpForall
	// OpBind is !{x}: the body holds with x bound to the current state.
	OpBind
	// OpAt is @{x}: the body holds in the state bound to x.
	OpAt
)

var hybridSymbols = [...]string{"3", "V", "!", "@"}

func (op HybridOp) String() string {
	if int(op) < len(hybridSymbols) {
		return hybridSymbols[op]
	}
	return "?"
}

// Hybrid applies a hybrid operator over the variable Var.
type Hybrid struct {
	Op  HybridOp
	Var string
	X   Formula
}

func (Const) formula()    {}
func (Prop) formula()     {}
func (Var) formula()      {}
func (Not) formula()      {}
func (Binary) formula()   {}
func (Temporal) formula() {}
func (Hybrid) formula()   {}

// True and False are the formula constants.
const (
	True  = Const(true)
	False = Const(false)
)

func (c Const) String() string {
	if c {
		return "true"
	}
	return "false"
}

func (p Prop) String() string { return string(p) }

func (v Var) String() string { return "{" + string(v) + "}" }

func (n Not) String() string { return "~" + n.X.String() }

// String renders chains of one associative operator flat, "(a & b & c)", and every other
// binary node in its own parentheses.
func (b Binary) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	if b.Op.associative() {
		writeChain(&sb, b.Op, b)
	} else {
		sb.WriteString(b.Left.String())
		sb.WriteByte(' ')
		sb.WriteString(b.Op.String())
		sb.WriteByte(' ')
		sb.WriteString(b.Right.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

func writeChain(sb *strings.Builder, op BinaryOp, f Formula) {
	if b, ok := f.(Binary); ok && b.Op == op {
		writeChain(sb, op, b.Left)
		sb.WriteString(" " + op.String() + " ")
		// Parsing is left associative, so a right operand of the same operator keeps its
		// parentheses.
		sb.WriteString(b.Right.String())
		return
	}
	sb.WriteString(f.String())
}

func (t Temporal) String() string { return t.Op.String() + " " + t.X.String() }

func (h Hybrid) String() string {
	return "(" + h.Op.String() + "{" + h.Var + "}: " + h.X.String() + ")"
}

// And conjoins fs left to right; no operand gives True.
func And(fs ...Formula) Formula { return fold(OpAnd, True, fs) }

// Or disjoins fs left to right; no operand gives False.
func Or(fs ...Formula) Formula { return fold(OpOr, False, fs) }

func fold(op BinaryOp, empty Formula, fs []Formula) Formula {
	if len(fs) == 0 {
		return empty
	}
	out := fs[0]
	for _, f := range fs[1:] {
		out = Binary{Op: op, Left: out, Right: f}
	}
	return out
}

func Imp(l, r Formula) Formula { return Binary{Op: OpImp, Left: l, Right: r} }
func Iff(l, r Formula) Formula { return Binary{Op: OpIff, Left: l, Right: r} }
func EU(l, r Formula) Formula  { return Binary{Op: OpEU, Left: l, Right: r} }
func AU(l, r Formula) Formula  { return Binary{Op: OpAU, Left: l, Right: r} }

func EX(f Formula) Formula { return Temporal{Op: OpEX, X: f} }
func AX(f Formula) Formula { return Temporal{Op: OpAX, X: f} }
func EF(f Formula) Formula { return Temporal{Op: OpEF, X: f} }
func AF(f Formula) Formula { return Temporal{Op: OpAF, X: f} }
func EG(f Formula) Formula { return Temporal{Op: OpEG, X: f} }
func AG(f Formula) Formula { return Temporal{Op: OpAG, X: f} }

func Exists(x string, f Formula) Formula { return Hybrid{Op: OpExists, Var: x, X: f} }
func Forall(x string, f Formula) Formula { return Hybrid{Op: OpForall, Var: x, X: f} }
func Bind(x string, f Formula) Formula   { return Hybrid{Op: OpBind, Var: x, X: f} }
func At(x string, f Formula) Formula     { return Hybrid{Op: OpAt, Var: x, X: f} }

// Walk visits f and its subformulas in pre-order. Returning false skips the children.
func Walk(f Formula, visit func(Formula) bool) {
	if !visit(f) {
		return
	}
	switch n := f.(type) {
	case Not:
		Walk(n.X, visit)
	case Binary:
		Walk(n.Left, visit)
		Walk(n.Right, visit)
	case Temporal:
		Walk(n.X, visit)
	case Hybrid:
		Walk(n.X, visit)
	}
}

// Props returns the propositions of f in order of first appearance.
func Props(f Formula) []string {
	var out []string
	seen := map[string]bool{}
	Walk(f, func(g Formula) bool {
		if p, ok := g.(Prop); ok && !seen[string(p)] {
			seen[string(p)] = true
			out = append(out, string(p))
		}
		return true
	})
	return out
}
