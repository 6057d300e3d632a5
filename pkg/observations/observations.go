// Package observations reads binarized measurements and encodes them as HCTL formulas.
//
// An observation file has the variable names on its first line ("a | b | c"), the data type
// on the second and one observation per following line, each a string over {0, 1, -} with
// one character per variable. Lines starting with '#' are comments.
package observations

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/dd0wney/cluso-sketch/pkg/hctl"
	"github.com/dd0wney/cluso-sketch/pkg/properties"
)

// ErrInvalidObservation is returned for malformed observation data.
var ErrInvalidObservation = errors.New("invalid observation")

// Value is the measured value of one variable.
type Value byte

const (
	False Value = '0'
	True  Value = '1'
	Any   Value = '-'
)

func (v Value) String() string { return string(rune(v)) }

// Observation is one binarized measurement.
type Observation []Value

func (o Observation) String() string {
	var sb strings.Builder
	for _, v := range o {
		sb.WriteByte(byte(v))
	}
	return sb.String()
}

// Assignment returns the fixed values of o keyed by the corresponding variable name.
func (o Observation) Assignment(varNames []string) (map[string]bool, error) {
	if len(o) != len(varNames) {
		return nil, fmt.Errorf("%w: %q has %d values for %d variables", ErrInvalidObservation, o.String(), len(o), len(varNames))
	}
	out := make(map[string]bool, len(o))
	for i, v := range o {
		switch v {
		case True:
			out[varNames[i]] = true
		case False:
			out[varNames[i]] = false
		}
	}
	return out, nil
}

// ParseObservation reads a string over {0, 1, -}.
func ParseObservation(s string) (Observation, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty observation", ErrInvalidObservation)
	}
	out := make(Observation, 0, len(s))
	for i, r := range s {
		switch Value(r) {
		case False, True, Any:
			out = append(out, Value(r))
		default:
			return nil, fmt.Errorf("%w: unexpected %q at position %d of %q", ErrInvalidObservation, r, i, s)
		}
	}
	return out, nil
}

// Type tells how a list of observations is to be interpreted.
type Type int

const (
	Unspecified Type = iota
	Attractor
	FixedPoint
	TimeSeries
)

var typeNames = map[Type]string{
	Unspecified: "Unspecified",
	Attractor:   "Attractor",
	FixedPoint:  "FixedPoint",
	TimeSeries:  "TimeSeries",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// ParseType reads one of Attractor, FixedPoint, TimeSeries or Unspecified.
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	for t, name := range typeNames {
		if name == s {
			return t, nil
		}
	}
	return Unspecified, fmt.Errorf("%w: invalid data type %q", ErrInvalidObservation, s)
}

func isNameRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// ParseVarNames reads variable names separated by '|'. Names may be surrounded by spaces but
// not contain them.
func ParseVarNames(s string) ([]string, error) {
	var names []string
	for _, part := range strings.Split(s, "|") {
		name := strings.TrimSpace(part)
		switch {
		case name == "" && strings.TrimSpace(s) == "":
			return nil, fmt.Errorf("%w: no variable names provided", ErrInvalidObservation)
		case name == "":
			return nil, fmt.Errorf("%w: variable name can't be empty", ErrInvalidObservation)
		case strings.IndexFunc(name, unicode.IsSpace) >= 0:
			return nil, fmt.Errorf("%w: variable name %q can't contain spaces", ErrInvalidObservation, name)
		}
		if i := strings.IndexFunc(name, func(r rune) bool { return !isNameRune(r) }); i >= 0 {
			return nil, fmt.Errorf("%w: unexpected char %q in variable name", ErrInvalidObservation, name[i:i+1])
		}
		names = append(names, name)
	}
	return names, nil
}

// List is an ordered set of observations over the same variables.
type List struct {
	Observations []Observation
	VarNames     []string
	Type         Type
}

// NewList checks that there is at least one observation and that every observation has one
// value per variable.
func NewList(obs []Observation, varNames []string, t Type) (*List, error) {
	if len(obs) == 0 {
		return nil, fmt.Errorf("%w: no observations provided", ErrInvalidObservation)
	}
	if len(varNames) == 0 {
		return nil, fmt.Errorf("%w: no variable names provided", ErrInvalidObservation)
	}
	for _, o := range obs {
		if len(o) != len(varNames) {
			return nil, fmt.Errorf("%w: observation %q has invalid length", ErrInvalidObservation, o.String())
		}
	}
	return &List{Observations: obs, VarNames: varNames, Type: t}, nil
}

// Load reads an observation file.
func Load(path string) (*List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open observations: %w", err)
	}
	defer f.Close()
	list, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return list, nil
}

// Read parses observation data in the file format.
func Read(r io.Reader) (*List, error) {
	sc := bufio.NewScanner(r)
	var (
		header []string
		obs    []Observation
	)
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := strings.TrimSpace(sc.Text())
		if len(header) < 2 {
			header = append(header, line)
			continue
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		o, err := ParseObservation(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		obs = append(obs, o)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read observations: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("%w: missing header lines", ErrInvalidObservation)
	}
	names, err := ParseVarNames(header[0])
	if err != nil {
		return nil, err
	}
	t, err := ParseType(header[1])
	if err != nil {
		return nil, err
	}
	return NewList(obs, names, t)
}

// Encode returns the conjunction of literals fixed by o over props, in order: 1 gives the
// proposition, 0 its negation and - nothing. An observation without fixed values gives
// true.
func Encode(o Observation, props []string) (hctl.Formula, error) {
	if len(o) != len(props) {
		return nil, fmt.Errorf("%w: %d values for %d propositions", ErrInvalidObservation, len(o), len(props))
	}
	var literals []hctl.Formula
	for i, v := range o {
		switch v {
		case True:
			literals = append(literals, hctl.Prop(props[i]))
		case False:
			literals = append(literals, hctl.Not{X: hctl.Prop(props[i])})
		}
	}
	return hctl.And(literals...), nil
}

// EncodeAll encodes every observation of l.
func EncodeAll(l *List) ([]hctl.Formula, error) {
	out := make([]hctl.Formula, 0, len(l.Observations))
	for _, o := range l.Observations {
		f, err := Encode(o, l.VarNames)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// EncodeList encodes l as one formula chosen by its type.
func EncodeList(l *List) (hctl.Formula, error) {
	return EncodeListAs(l, l.Type)
}

// EncodeListAs encodes l as if it had type t: the attractor set, the fixed-point set or the
// reachability chain of its observations.
func EncodeListAs(l *List, t Type) (hctl.Formula, error) {
	states, err := EncodeAll(l)
	if err != nil {
		return nil, err
	}
	switch t {
	case Attractor:
		return properties.AttractorSet(states), nil
	case FixedPoint:
		return properties.FixedPointSet(states), nil
	case TimeSeries:
		return properties.ReachabilityChain(states), nil
	}
	return nil, fmt.Errorf("%w: cannot encode data of type %v", ErrInvalidObservation, t)
}
