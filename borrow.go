package archecs

import (
	"fmt"
	"sync/atomic"
)

// borrowState is the runtime borrow-reckoning cell backing World's "runtime"
// borrow strategy (spec.md §5's alternative to &mut World exclusivity: a
// RefCell-style check that panics on conflict instead of failing to
// compile). state encodes: 0 = free, N>0 = N shared borrows held, -1 =
// exclusive borrow held. Acquisition never blocks; it either succeeds
// immediately or panics, matching the teacher's "this library does not
// support borrow checking across goroutines" framing in world.go extended
// to a debug-assertable borrow cell for the runtime strategy.
type borrowState struct {
	state atomic.Int64
}

const exclusiveHeld = -1

// BorrowGuard holds a borrow until its Release method is called (exactly
// once); nothing releases it automatically.
type BorrowGuard struct {
	b         *borrowState
	exclusive bool
	released  atomic.Bool
}

// Release gives the borrow back. Safe to call at most once; a second call
// panics, matching a double-free-style programmer error.
func (g *BorrowGuard) Release() {
	if g.released.Swap(true) {
		panic("archecs: borrow guard released twice")
	}
	if g.exclusive {
		g.b.state.Store(0)
		return
	}
	g.b.state.Add(-1)
}

// Shared acquires a non-exclusive borrow, panicking if an exclusive borrow is
// currently held.
func (b *borrowState) Shared() *BorrowGuard {
	for {
		cur := b.state.Load()
		if cur == exclusiveHeld {
			panic("archecs: cannot borrow, already exclusively borrowed")
		}
		if b.state.CompareAndSwap(cur, cur+1) {
			return &BorrowGuard{b: b}
		}
	}
}

// Exclusive acquires an exclusive borrow, panicking if any borrow (shared or
// exclusive) is currently held.
func (b *borrowState) Exclusive() *BorrowGuard {
	if !b.state.CompareAndSwap(0, exclusiveHeld) {
		cur := b.state.Load()
		if cur == exclusiveHeld {
			panic("archecs: cannot exclusively borrow, already exclusively borrowed")
		}
		panic(fmt.Sprintf("archecs: cannot exclusively borrow, %d shared borrow(s) held", cur))
	}
	return &BorrowGuard{b: b, exclusive: true}
}

// TryShared behaves like Shared but reports failure instead of panicking.
func (b *borrowState) TryShared() (*BorrowGuard, bool) {
	for {
		cur := b.state.Load()
		if cur == exclusiveHeld {
			return nil, false
		}
		if b.state.CompareAndSwap(cur, cur+1) {
			return &BorrowGuard{b: b}, true
		}
	}
}

// TryExclusive behaves like Exclusive but reports failure instead of
// panicking.
func (b *borrowState) TryExclusive() (*BorrowGuard, bool) {
	if b.state.CompareAndSwap(0, exclusiveHeld) {
		return &BorrowGuard{b: b, exclusive: true}, true
	}
	return nil, false
}
