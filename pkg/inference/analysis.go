package inference

import (
	"errors"
	"fmt"
	"slices"

	"golang.org/x/exp/maps"

	"github.com/dd0wney/cluso-sketch/pkg/graph"
	"github.com/dd0wney/cluso-sketch/pkg/network"
	"github.com/dd0wney/cluso-sketch/pkg/symbolic"
)

// Variant is one update function a variable receives and how many sampled candidates
// give it.
type Variant struct {
	Update string `json:"update"`
	Count  int    `json:"count"`
}

// Summary tabulates the update functions of sampled candidates.
type Summary struct {
	// Sampled is the number of candidates examined.
	Sampled int `json:"sampled"`
	// Exhausted is set when every candidate was examined; otherwise the counts describe a
	// sample.
	Exhausted bool `json:"exhausted"`
	// Variants lists, per variable, the distinct update functions by decreasing count.
	Variants map[string][]Variant `json:"variants"`
	// Fixed holds variables with a single update function among the sampled candidates,
	// Free the others. Both are sorted.
	Fixed []string `json:"fixed"`
	Free  []string `json:"free"`
}

// Summarize draws candidates from colors without replacement, at most limit of them
// (zero means all), and counts the update function each variable receives.
func Summarize(ts *graph.TransitionSystem, colors symbolic.ColorSet, limit int, p symbolic.Picker) (*Summary, error) {
	counts := make(map[string]map[string]int, ts.NumVars())
	for _, v := range ts.Variables() {
		counts[v] = map[string]int{}
	}

	it := colors.Intersect(ts.UnitColors()).Iterate(p, limit)
	for {
		color, ok := it.Next()
		if !ok {
			break
		}
		for _, v := range ts.Variables() {
			update, err := ts.InstantiatedUpdate(v, color)
			if err != nil {
				return nil, fmt.Errorf("summarizing %s: %w", v, err)
			}
			counts[v][update]++
		}
	}

	s := &Summary{
		Sampled:   it.Count(),
		Exhausted: it.Exhausted(),
		Variants:  make(map[string][]Variant, len(counts)),
	}
	vars := maps.Keys(counts)
	slices.Sort(vars)
	for _, v := range vars {
		updates := maps.Keys(counts[v])
		slices.Sort(updates)
		variants := make([]Variant, 0, len(updates))
		for _, update := range updates {
			variants = append(variants, Variant{Update: update, Count: counts[v][update]})
		}
		slices.SortStableFunc(variants, func(a, b Variant) int { return b.Count - a.Count })
		s.Variants[v] = variants
		if len(variants) == 1 {
			s.Fixed = append(s.Fixed, v)
		} else if len(variants) > 1 {
			s.Free = append(s.Free, v)
		}
	}
	return s, nil
}

// GoalStatus is the outcome of comparing a goal network with the candidates.
type GoalStatus int

const (
	GoalIncluded GoalStatus = iota
	GoalExcluded
	GoalNotComparable
)

func (g GoalStatus) String() string {
	switch g {
	case GoalIncluded:
		return "included"
	case GoalExcluded:
		return "excluded"
	default:
		return "not comparable"
	}
}

// CheckGoal reports whether every color instantiating goal is among colors. A goal that does
// not fit the skeleton gives GoalNotComparable together with the reason; it is not a failure
// of the inference.
func CheckGoal(ts *graph.TransitionSystem, goal *network.Network, colors symbolic.ColorSet) (GoalStatus, error) {
	goalColors, err := ts.SubnetworkColors(goal)
	if err != nil {
		if errors.Is(err, graph.ErrGoalNotComparable) {
			return GoalNotComparable, err
		}
		return GoalNotComparable, fmt.Errorf("%w: %v", graph.ErrGoalNotComparable, err)
	}
	// Goal colors outside the skeleton's static constraints are never candidates.
	if goalColors.IsEmpty() || !goalColors.IsSubset(colors) {
		return GoalExcluded, nil
	}
	return GoalIncluded, nil
}

// Witnesses instantiates up to n distinct candidate networks drawn from colors.
func Witnesses(ts *graph.TransitionSystem, colors symbolic.ColorSet, n int, p symbolic.Picker) ([]*network.Network, error) {
	if n <= 0 {
		return nil, nil
	}
	var out []*network.Network
	it := colors.Intersect(ts.UnitColors()).Iterate(p, n)
	for {
		color, ok := it.Next()
		if !ok {
			return out, nil
		}
		w, err := ts.PickWitness(color, p)
		if err != nil {
			return out, err
		}
		out = append(out, w)
	}
}
