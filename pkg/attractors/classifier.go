package attractors

import (
	"fmt"
	"sort"

	"github.com/dd0wney/cluso-sketch/pkg/graph"
	"github.com/dd0wney/cluso-sketch/pkg/symbolic"
)

// Classifier consumes attractor components as the search emits them.
type Classifier interface {
	Classify(component symbolic.ColoredSet)
}

// Class counts the attractors of one color by kind.
type Class struct {
	FixedPoints int
	Oscillating int
}

func (c Class) String() string {
	return fmt.Sprintf("%d fixed, %d oscillating", c.FixedPoints, c.Oscillating)
}

// ClassColors pairs a class with the colors having it.
type ClassColors struct {
	Class  Class
	Colors symbolic.ColorSet
}

// StateClassifier partitions colors by the number and kind of their attractors. A
// component is a fixed point for the colors where it has no outgoing transition.
type StateClassifier struct {
	ts      *graph.TransitionSystem
	classes map[Class]symbolic.ColorSet
}

// NewStateClassifier starts with every unit color in the empty class.
func NewStateClassifier(ts *graph.TransitionSystem) *StateClassifier {
	return &StateClassifier{
		ts:      ts,
		classes: map[Class]symbolic.ColorSet{{}: ts.UnitColors()},
	}
}

// Classify implements Classifier.
func (c *StateClassifier) Classify(component symbolic.ColoredSet) {
	fixed := component.Minus(c.ts.HasSuccessor(component)).Colors()
	oscillating := component.Colors().Minus(fixed)

	next := make(map[Class]symbolic.ColorSet, len(c.classes))
	add := func(cl Class, colors symbolic.ColorSet) {
		if colors.IsEmpty() {
			return
		}
		if prev, ok := next[cl]; ok {
			colors = prev.Union(colors)
		}
		next[cl] = colors
	}
	for cl, colors := range c.classes {
		add(cl, colors.Minus(fixed).Minus(oscillating))
		add(Class{cl.FixedPoints + 1, cl.Oscillating}, colors.Intersect(fixed))
		add(Class{cl.FixedPoints, cl.Oscillating + 1}, colors.Intersect(oscillating))
	}
	c.classes = next
}

// Classes returns the non-empty classes ordered by total attractor count, then by number
// of fixed points.
func (c *StateClassifier) Classes() []ClassColors {
	out := make([]ClassColors, 0, len(c.classes))
	for cl, colors := range c.classes {
		out = append(out, ClassColors{Class: cl, Colors: colors})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Class, out[j].Class
		if ta, tb := a.FixedPoints+a.Oscillating, b.FixedPoints+b.Oscillating; ta != tb {
			return ta < tb
		}
		return a.FixedPoints > b.FixedPoints
	})
	return out
}
