package network

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var regulationPattern = regexp.MustCompile(`^([A-Za-z0-9_]+)\s*(->\?|-\|\?|-\?\?|->|-\||-\?)\s*([A-Za-z0-9_]+)$`)

const propertyAnnotation = "#!dynamic_property:"

var arrows = map[string]struct {
	monotonicity Monotonicity
	observable   bool
}{
	"->":  {Activation, true},
	"->?": {Activation, false},
	"-|":  {Inhibition, true},
	"-|?": {Inhibition, false},
	"-?":  {Unknown, true},
	"-??": {Unknown, false},
}

// Parse reads a network in the line-based text format:
//
//	a -> b          activation, observable
//	a -|? b         inhibition, not necessarily observable
//	$b: a & p(a)    explicit update function
//	#!dynamic_property: name: formula
//
// Other lines starting with '#' are comments. Variables are declared in order of first
// appearance.
func Parse(text string) (*Network, error) {
	n, _ := New()
	type pendingUpdate struct {
		line   int
		target string
		expr   Expr
	}
	var updates []pendingUpdate

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, propertyAnnotation):
			name, formula, ok := strings.Cut(strings.TrimPrefix(line, propertyAnnotation), ":")
			name = strings.TrimSpace(name)
			formula = strings.TrimSpace(formula)
			if !ok || !isName(name) || formula == "" {
				return nil, fmt.Errorf("%w: line %d: malformed property annotation", ErrParse, lineNo)
			}
			n.AddProperty(Property{Name: name, Formula: formula})
		case strings.HasPrefix(line, "#"):
			continue
		case strings.HasPrefix(line, "$"):
			target, body, ok := strings.Cut(line[1:], ":")
			target = strings.TrimSpace(target)
			if !ok || !isName(target) {
				return nil, fmt.Errorf("%w: line %d: expected '$name: expression'", ErrParse, lineNo)
			}
			expr, err := ParseExpr(body)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrParse, lineNo, err)
			}
			if err := n.ensureVariable(target); err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrParse, lineNo, err)
			}
			updates = append(updates, pendingUpdate{line: lineNo, target: target, expr: expr})
		default:
			m := regulationPattern.FindStringSubmatch(line)
			if m == nil {
				return nil, fmt.Errorf("%w: line %d: unrecognized line %q", ErrParse, lineNo, line)
			}
			arrow := arrows[m[2]]
			reg := Regulation{Regulator: m[1], Target: m[3], Monotonicity: arrow.monotonicity, Observable: arrow.observable}
			for _, v := range []string{reg.Regulator, reg.Target} {
				if err := n.ensureVariable(v); err != nil {
					return nil, fmt.Errorf("%w: line %d: %v", ErrParse, lineNo, err)
				}
			}
			if err := n.AddRegulation(reg); err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrParse, lineNo, err)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	// Update functions are attached once every regulation is known.
	for _, u := range updates {
		if err := n.SetUpdate(u.target, u.expr); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrParse, u.line, err)
		}
	}
	if n.NumVars() == 0 {
		return nil, fmt.Errorf("%w: network has no variables", ErrParse)
	}
	return n, nil
}

// ParseExpr parses a single update-function expression. Operators by increasing
// precedence: <=>, =>, |, ^, &, and prefix !.
func ParseExpr(text string) (Expr, error) {
	toks, err := tokenize(text)
	if err != nil {
		return nil, err
	}
	p := &exprParser{toks: toks}
	e, err := p.iff()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, fmt.Errorf("unexpected %q at offset %d", p.toks[p.pos].text, p.toks[p.pos].offset)
	}
	return e, nil
}

type token struct {
	text   string
	offset int
	ident  bool
}

func tokenize(text string) ([]token, error) {
	var toks []token
	rs := []rune(text)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case isNameRune(r):
			start := i
			for i < len(rs) && isNameRune(rs[i]) {
				i++
			}
			toks = append(toks, token{text: string(rs[start:i]), offset: start, ident: true})
		case strings.HasPrefix(string(rs[i:]), "<=>"):
			toks = append(toks, token{text: "<=>", offset: i})
			i += 3
		case strings.HasPrefix(string(rs[i:]), "=>"):
			toks = append(toks, token{text: "=>", offset: i})
			i += 2
		case strings.ContainsRune("()!&|^,", r):
			toks = append(toks, token{text: string(r), offset: i})
			i++
		default:
			return nil, fmt.Errorf("unexpected character %q at offset %d", r, i)
		}
	}
	if len(toks) == 0 {
		return nil, fmt.Errorf("empty expression")
	}
	return toks, nil
}

type exprParser struct {
	toks []token
	pos  int
}

func (p *exprParser) peek(text string) bool {
	return p.pos < len(p.toks) && !p.toks[p.pos].ident && p.toks[p.pos].text == text
}

func (p *exprParser) expect(text string) error {
	if !p.peek(text) {
		if p.pos >= len(p.toks) {
			return fmt.Errorf("expected %q at end of expression", text)
		}
		return fmt.Errorf("expected %q at offset %d", text, p.toks[p.pos].offset)
	}
	p.pos++
	return nil
}

func (p *exprParser) iff() (Expr, error) {
	left, err := p.imp()
	if err != nil {
		return nil, err
	}
	for p.peek("<=>") {
		p.pos++
		right, err := p.imp()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: Iff, Left: left, Right: right}
	}
	return left, nil
}

// imp is right associative.
func (p *exprParser) imp() (Expr, error) {
	left, err := p.binary(0)
	if err != nil {
		return nil, err
	}
	if p.peek("=>") {
		p.pos++
		right, err := p.imp()
		if err != nil {
			return nil, err
		}
		return Binary{Op: Imp, Left: left, Right: right}, nil
	}
	return left, nil
}

var binaryLevels = []struct {
	text string
	op   BinaryOp
}{
	{"|", Or},
	{"^", Xor},
	{"&", And},
}

func (p *exprParser) binary(level int) (Expr, error) {
	if level == len(binaryLevels) {
		return p.unary()
	}
	left, err := p.binary(level + 1)
	if err != nil {
		return nil, err
	}
	for p.peek(binaryLevels[level].text) {
		p.pos++
		right, err := p.binary(level + 1)
		if err != nil {
			return nil, err
		}
		left = Binary{Op: binaryLevels[level].op, Left: left, Right: right}
	}
	return left, nil
}

func (p *exprParser) unary() (Expr, error) {
	if p.pos >= len(p.toks) {
		return nil, fmt.Errorf("unexpected end of expression")
	}
	if p.peek("!") {
		p.pos++
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return Not{X: x}, nil
	}
	if p.peek("(") {
		p.pos++
		e, err := p.iff()
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return e, nil
	}
	tok := p.toks[p.pos]
	if !tok.ident {
		return nil, fmt.Errorf("unexpected %q at offset %d", tok.text, tok.offset)
	}
	p.pos++
	switch tok.text {
	case "true":
		return Const(true), nil
	case "false":
		return Const(false), nil
	}
	if !p.peek("(") {
		return VarRef(tok.text), nil
	}
	p.pos++
	call := Call{Name: tok.text}
	if p.peek(")") {
		p.pos++
		return call, nil
	}
	for {
		arg, err := p.iff()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
		if p.peek(",") {
			p.pos++
			continue
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return call, nil
	}
}
