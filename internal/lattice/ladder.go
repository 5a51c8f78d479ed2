package lattice

import "math"

// ladderEpsilon absorbs rounding when deciding whether -S+k still fits below S.
const ladderEpsilon = 1e-9

// Ladder is the conserved set of z projections of a quantized site.
// Exactly one value is occupied; the rest sit in Available. Proposals swap
// values between the two, so the multiset never changes.
type Ladder struct {
	Occupied  float64
	Available []float64

	lastSlot int // slot touched by the last swap, -1 when none
}

// NewLadder builds -S, -S+1, ... up to S with -S occupied.
func NewLadder(spinNorm float64) Ladder {
	var values []float64
	for k := 0; ; k++ {
		p := -spinNorm + float64(k)
		if p > spinNorm+ladderEpsilon {
			break
		}
		values = append(values, p)
	}
	return Ladder{
		Occupied:  values[0],
		Available: values[1:],
		lastSlot:  -1,
	}
}

// Swap moves Available[slot] into the occupied position and parks the
// previous occupant in the vacated slot.
func (l *Ladder) Swap(slot int) float64 {
	next := l.Available[slot]
	l.Available[slot] = l.Occupied
	l.Occupied = next
	l.lastSlot = slot
	return next
}

// Undo reverts the last Swap. It is a no-op when nothing is pending.
func (l *Ladder) Undo() {
	if l.lastSlot < 0 {
		return
	}
	slot := l.lastSlot
	prev := l.Available[slot]
	l.Available[slot] = l.Occupied
	l.Occupied = prev
	l.lastSlot = -1
}

// commit forgets the pending swap.
func (l *Ladder) commit() {
	l.lastSlot = -1
}

// Values returns the occupied value followed by the available ones.
func (l *Ladder) Values() []float64 {
	out := make([]float64, 0, len(l.Available)+1)
	out = append(out, l.Occupied)
	return append(out, l.Available...)
}

// Has reports whether z is on the ladder, occupied or available.
func (l *Ladder) Has(z float64) bool {
	if math.Abs(l.Occupied-z) <= ladderEpsilon {
		return true
	}
	for _, v := range l.Available {
		if math.Abs(v-z) <= ladderEpsilon {
			return true
		}
	}
	return false
}

// occupy swaps z into the occupied position. It reports false when z is not
// one of the available values.
func (l *Ladder) occupy(z float64) bool {
	if math.Abs(l.Occupied-z) <= ladderEpsilon {
		return true
	}
	for i, v := range l.Available {
		if math.Abs(v-z) <= ladderEpsilon {
			l.Swap(i)
			l.commit()
			return true
		}
	}
	return false
}
