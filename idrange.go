package archecs

import "math"

// IDRangeAllocator supplies half-open [low, high) ranges of raw entity ID
// bits to an EntitySet. The default allocator hands out a single range
// covering 1..2^64-1; a WorldBuilder may install a different one (for
// example to partition ID space across processes or save slots).
type IDRangeAllocator interface {
	// NextRange returns the next range to draw IDs from. ok is false once
	// the allocator has no further ranges to offer; the caller treats this
	// as fatal (range exhaustion is documented as unrecoverable).
	NextRange() (low, high uint64, ok bool)
}

// singleRangeAllocator is the default allocator: the entire 64-bit space
// (minus zero, which EntityID reserves as "no entity"), handed out once.
type singleRangeAllocator struct {
	done bool
}

// DefaultIDRangeAllocator returns the allocator used when a WorldBuilder is
// not given one explicitly: the half-open range [1, 2^64-1).
func DefaultIDRangeAllocator() IDRangeAllocator {
	return &singleRangeAllocator{}
}

func (a *singleRangeAllocator) NextRange() (uint64, uint64, bool) {
	if a.done {
		return 0, 0, false
	}
	a.done = true
	return 1, math.MaxUint64, true
}

// FixedRangeAllocator cycles through a caller-supplied list of [low, high)
// ranges in order, then reports exhaustion. Useful for tests that want
// predictable, small ID spaces, or for partitioning ID space between
// cooperating worlds.
type FixedRangeAllocator struct {
	ranges [][2]uint64
	next   int
}

// NewFixedRangeAllocator builds an allocator over the given ranges, each a
// [low, high) pair.
func NewFixedRangeAllocator(ranges ...[2]uint64) *FixedRangeAllocator {
	return &FixedRangeAllocator{ranges: ranges}
}

func (a *FixedRangeAllocator) NextRange() (uint64, uint64, bool) {
	if a.next >= len(a.ranges) {
		return 0, 0, false
	}
	r := a.ranges[a.next]
	a.next++
	low := r[0]
	if low == 0 {
		low = 1 // EntityID zero is reserved as "no entity"
	}
	return low, r[1], true
}
