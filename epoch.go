package archecs

import "sync/atomic"

// EpochID is a monotonic logical timestamp. Comparison is absolute: a later
// epoch always compares greater than an earlier one, and wraparound is
// treated as a fatal, practically-impossible condition rather than handled.
type EpochID uint64

// StartEpoch is the value an EpochCounter begins at.
const StartEpoch EpochID = 1

// After reports whether e happened strictly after other.
func (e EpochID) After(other EpochID) bool { return e > other }

// EpochCounter is the world's single source of monotonic epochs. Per-column,
// per-chunk, and per-row stamps are all drawn from it.
type EpochCounter struct {
	value atomic.Uint64
}

// NewEpochCounter returns a counter starting at StartEpoch.
func NewEpochCounter() *EpochCounter {
	c := &EpochCounter{}
	c.value.Store(uint64(StartEpoch))
	return c
}

// Current returns the counter's present value without advancing it.
func (c *EpochCounter) Current() EpochID {
	return EpochID(c.value.Load())
}

// NextIf returns the current epoch, advancing it first iff mutable is true.
// Safe to call from a shared (&self-equivalent) context: advancing is a
// single atomic increment.
func (c *EpochCounter) NextIf(mutable bool) EpochID {
	if !mutable {
		return c.Current()
	}
	next := c.value.Add(1)
	if next == 0 {
		panic("archecs: epoch counter overflow")
	}
	return EpochID(next)
}

// NextMut unconditionally advances and returns the new epoch.
func (c *EpochCounter) NextMut() EpochID {
	return c.NextIf(true)
}
