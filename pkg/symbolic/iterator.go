package symbolic

// ColorIterator yields single colors of a set without replacement. Color spaces can be
// exponentially large, so callers normally bound the iteration and treat the result as
// a sample.
type ColorIterator struct {
	remaining ColorSet
	picker    Picker
	limit     int
	count     int
}

// Next returns the next color, or false once the set is exhausted or the limit reached.
func (it *ColorIterator) Next() (ColorSet, bool) {
	if it.remaining.IsEmpty() {
		return it.remaining, false
	}
	if it.limit > 0 && it.count >= it.limit {
		return it.remaining.ctx.NoColors(), false
	}
	c := it.remaining.PickSingleton(it.picker)
	it.remaining = it.remaining.Minus(c)
	it.count++
	return c, true
}

// Remaining returns the colors not yet yielded.
func (it *ColorIterator) Remaining() ColorSet { return it.remaining }

// Count returns how many colors were yielded so far.
func (it *ColorIterator) Count() int { return it.count }

// Exhausted reports whether every color of the original set was yielded.
func (it *ColorIterator) Exhausted() bool { return it.remaining.IsEmpty() }
