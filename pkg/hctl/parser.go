package hctl

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrSyntax is returned for formulas that cannot be parsed.
var ErrSyntax = errors.New("hctl syntax error")

// Parse reads a formula. Operators by increasing precedence: <=>, => (right associative),
// |, ^, &, the infix EU and AU, and the prefix operators ~, EX, AX, EF, AF, EG, AG.
// Hybrid operators 3{x}:, V{x}:, !{x}: and @{x}: extend as far right as possible.
func Parse(text string) (Formula, error) {
	toks, err := lex(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	p := &parser{toks: toks}
	f, err := p.formula()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	if !p.done() {
		return nil, fmt.Errorf("%w: unexpected %q at offset %d", ErrSyntax, p.toks[p.pos].text, p.toks[p.pos].offset)
	}
	return f, nil
}

// MustParse is Parse for formulas known to be valid, such as constants in code and tests.
func MustParse(text string) Formula {
	f, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return f
}

type tokenKind int

const (
	tokSymbol tokenKind = iota
	tokName
	// tokHybrid is an operator such as 3{x}: with its symbol in text and the variable in name.
	tokHybrid
	// tokVar is {x}.
	tokVar
)

type token struct {
	kind   tokenKind
	text   string
	name   string
	offset int
}

func isNameRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func lex(text string) ([]token, error) {
	var toks []token
	rs := []rune(text)
	rest := func(i int) string { return string(rs[i:]) }

	// braced reads "{name}" starting at i and returns the name and the index after '}'.
	braced := func(i int) (string, int, error) {
		j := i + 1
		for j < len(rs) && unicode.IsSpace(rs[j]) {
			j++
		}
		start := j
		for j < len(rs) && isNameRune(rs[j]) {
			j++
		}
		name := string(rs[start:j])
		for j < len(rs) && unicode.IsSpace(rs[j]) {
			j++
		}
		if name == "" || j >= len(rs) || rs[j] != '}' {
			return "", 0, fmt.Errorf("malformed variable at offset %d", i)
		}
		return name, j + 1, nil
	}

	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case strings.ContainsRune("3V!@", r) && i+1 < len(rs) && rs[i+1] == '{':
			name, j, err := braced(i + 1)
			if err != nil {
				return nil, err
			}
			for j < len(rs) && unicode.IsSpace(rs[j]) {
				j++
			}
			if j >= len(rs) || rs[j] != ':' {
				return nil, fmt.Errorf("expected ':' after hybrid operator at offset %d", i)
			}
			toks = append(toks, token{kind: tokHybrid, text: string(r), name: name, offset: i})
			i = j + 1
		case r == '{':
			name, j, err := braced(i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokVar, text: "{" + name + "}", name: name, offset: i})
			i = j
		case isNameRune(r):
			start := i
			for i < len(rs) && isNameRune(rs[i]) {
				i++
			}
			toks = append(toks, token{kind: tokName, text: string(rs[start:i]), offset: start})
		case strings.HasPrefix(rest(i), "<=>"):
			toks = append(toks, token{text: "<=>", offset: i})
			i += 3
		case strings.HasPrefix(rest(i), "=>"):
			toks = append(toks, token{text: "=>", offset: i})
			i += 2
		case r == '!':
			// Plain '!' is accepted as negation.
			toks = append(toks, token{text: "~", offset: i})
			i++
		case strings.ContainsRune("()~&|^", r):
			toks = append(toks, token{text: string(r), offset: i})
			i++
		default:
			return nil, fmt.Errorf("unexpected character %q at offset %d", r, i)
		}
	}
	if len(toks) == 0 {
		return nil, errors.New("empty formula")
	}
	return toks, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) done() bool { return p.pos >= len(p.toks) }

func (p *parser) peekSymbol(text string) bool {
	return !p.done() && p.toks[p.pos].kind == tokSymbol && p.toks[p.pos].text == text
}

func (p *parser) peekName(text string) bool {
	return !p.done() && p.toks[p.pos].kind == tokName && p.toks[p.pos].text == text
}

func (p *parser) formula() (Formula, error) {
	left, err := p.imp()
	if err != nil {
		return nil, err
	}
	for p.peekSymbol("<=>") {
		p.pos++
		right, err := p.imp()
		if err != nil {
			return nil, err
		}
		left = Iff(left, right)
	}
	return left, nil
}

func (p *parser) imp() (Formula, error) {
	left, err := p.binary(0)
	if err != nil {
		return nil, err
	}
	if p.peekSymbol("=>") {
		p.pos++
		right, err := p.imp()
		if err != nil {
			return nil, err
		}
		return Imp(left, right), nil
	}
	return left, nil
}

var binaryLevels = []struct {
	text string
	op   BinaryOp
}{
	{text: "|", op: OpOr},
	{text: "^", op: OpXor},
	{text: "&", op: OpAnd},
}

func (p *parser) binary(level int) (Formula, error) {
	if level == len(binaryLevels) {
		return p.until()
	}
	left, err := p.binary(level + 1)
	if err != nil {
		return nil, err
	}
	for p.peekSymbol(binaryLevels[level].text) {
		p.pos++
		right, err := p.binary(level + 1)
		if err != nil {
			return nil, err
		}
		left = Binary{Op: binaryLevels[level].op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) until() (Formula, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.peekName("EU") || p.peekName("AU") {
		op := OpEU
		if p.toks[p.pos].text == "AU" {
			op = OpAU
		}
		p.pos++
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

var temporalNames = map[string]UnaryOp{
	"EX": OpEX, "AX": OpAX, "EF": OpEF, "AF": OpAF, "EG": OpEG, "AG": OpAG,
}

var hybridOps = map[string]HybridOp{
	"3": OpExists, "V": OpForall, "!": OpBind, "@": OpAt,
}

func (p *parser) unary() (Formula, error) {
	if p.done() {
		return nil, errors.New("unexpected end of formula")
	}
	tok := p.toks[p.pos]
	switch tok.kind {
	case tokHybrid:
		p.pos++
		body, err := p.formula()
		if err != nil {
			return nil, err
		}
		return Hybrid{Op: hybridOps[tok.text], Var: tok.name, X: body}, nil
	case tokVar:
		p.pos++
		return Var(tok.name), nil
	case tokName:
		p.pos++
		if op, ok := temporalNames[tok.text]; ok {
			x, err := p.unary()
			if err != nil {
				return nil, err
			}
			return Temporal{Op: op, X: x}, nil
		}
		switch tok.text {
		case "true":
			return True, nil
		case "false":
			return False, nil
		case "EU", "AU":
			return nil, fmt.Errorf("missing left operand of %s at offset %d", tok.text, tok.offset)
		}
		return Prop(tok.text), nil
	}

	switch tok.text {
	case "~":
		p.pos++
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return Not{X: x}, nil
	case "(":
		p.pos++
		f, err := p.formula()
		if err != nil {
			return nil, err
		}
		if !p.peekSymbol(")") {
			if p.done() {
				return nil, errors.New("expected ')' at end of formula")
			}
			return nil, fmt.Errorf("expected ')' at offset %d", p.toks[p.pos].offset)
		}
		p.pos++
		return f, nil
	}
	return nil, fmt.Errorf("unexpected %q at offset %d", tok.text, tok.offset)
}
