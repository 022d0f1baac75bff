package archecs

import "testing"

func TestBorrowStateSharedAllowsMultiple(t *testing.T) {
	var b borrowState
	g1 := b.Shared()
	g2 := b.Shared()
	g1.Release()
	g2.Release()
}

func TestBorrowStateExclusivePanicsUnderShared(t *testing.T) {
	var b borrowState
	g := b.Shared()
	defer g.Release()

	defer func() {
		if recover() == nil {
			t.Fatalf("expected Exclusive to panic while a shared borrow is held")
		}
	}()
	b.Exclusive()
}

func TestBorrowStateSharedPanicsUnderExclusive(t *testing.T) {
	var b borrowState
	g := b.Exclusive()
	defer g.Release()

	defer func() {
		if recover() == nil {
			t.Fatalf("expected Shared to panic while an exclusive borrow is held")
		}
	}()
	b.Shared()
}

func TestBorrowStateTryVariantsDoNotPanic(t *testing.T) {
	var b borrowState
	g, ok := b.TryExclusive()
	if !ok || g == nil {
		t.Fatalf("expected first TryExclusive to succeed")
	}
	if _, ok := b.TryShared(); ok {
		t.Fatalf("expected TryShared to fail while exclusive is held")
	}
	g.Release()
	if _, ok := b.TryShared(); !ok {
		t.Fatalf("expected TryShared to succeed once released")
	}
}

func TestQueryPanicsWhenColumnAlreadyExclusivelyBorrowed(t *testing.T) {
	w := NewWorld(WorldOptions{})
	id := Spawn1(w, testPosition{X: 1})
	loc, _ := w.Lookup(id)
	arch := w.archetypes[loc.Archetype]

	guard := arch.columnBorrow(ComponentIDFor[testPosition]()).Exclusive()
	defer guard.Release()

	defer func() {
		if recover() == nil {
			t.Fatalf("expected QueryMut1 to panic while the column is already exclusively borrowed")
		}
	}()
	for range QueryMut1[testPosition](w) {
	}
}

func TestQueryDoesNotBlockOnUnrelatedColumn(t *testing.T) {
	w := NewWorld(WorldOptions{})
	Spawn2(w, testPosition{X: 1}, testVelocity{DX: 1})
	loc, _ := w.Lookup(Spawn2(w, testPosition{X: 2}, testVelocity{DX: 2}))
	arch := w.archetypes[loc.Archetype]

	guard := arch.columnBorrow(ComponentIDFor[testPosition]()).Exclusive()
	defer guard.Release()

	n := 0
	for range QueryMut1[testVelocity](w) {
		n++
	}
	if n != 2 {
		t.Fatalf("expected a query over an unrelated column to proceed unblocked, got %d rows", n)
	}
}

func TestBorrowOneAndBorrowAll(t *testing.T) {
	w := NewWorld(WorldOptions{})
	id := Spawn2(w, testPosition{X: 1}, testVelocity{DX: 2})

	pos, ok := BorrowOne[testPosition](w, id)
	if !ok || pos.X != 1 {
		t.Fatalf("expected BorrowOne to find the unique testPosition match, got %+v ok=%v", pos, ok)
	}

	all := BorrowAll[any](w, id)
	if len(all) != 2 {
		t.Fatalf("expected BorrowAll[any] to find both components' any-borrows, got %d", len(all))
	}
}

func TestBorrowOnePanicsOnAmbiguousMatch(t *testing.T) {
	w := NewWorld(WorldOptions{})
	id := Spawn2(w, testPosition{X: 1}, testVelocity{DX: 2})

	defer func() {
		if recover() == nil {
			t.Fatalf("expected BorrowOne[any] to panic: both components expose an any-borrow")
		}
	}()
	BorrowOne[any](w, id)
}

func TestBorrowGuardDoubleReleasePanics(t *testing.T) {
	var b borrowState
	g := b.Shared()
	g.Release()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a second Release to panic")
		}
	}()
	g.Release()
}
