package symbolic

import (
	"math/rand/v2"
)

// Picker decides which value to try first when a single element is extracted from a
// symbolic set. The choice never affects correctness, only which element is returned.
type Picker interface {
	// PreferTrue is asked once per BDD variable, in level order.
	PreferTrue(position int) bool
}

type firstPicker struct{}

func (firstPicker) PreferTrue(int) bool { return false }

// FirstPicker always prefers false, giving the lexicographically smallest element.
var FirstPicker Picker = firstPicker{}

// RandomPicker makes seeded pseudo-random choices; equal seeds give equal picks.
type RandomPicker struct {
	rng *rand.Rand
}

// NewPicker returns a RandomPicker seeded with seed.
func NewPicker(seed uint64) *RandomPicker {
	return &RandomPicker{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// PreferTrue implements Picker.
func (p *RandomPicker) PreferTrue(int) bool { return p.rng.IntN(2) == 1 }
