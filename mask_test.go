package archecs

import "testing"

func TestComponentMaskBasics(t *testing.T) {
	m := newComponentMask()
	m = m.With(1).With(3)
	if !m.Has(1) || !m.Has(3) || m.Has(2) {
		t.Fatalf("unexpected membership after With: %+v", m.IDs())
	}
	if m.Len() != 2 {
		t.Fatalf("expected len 2, got %d", m.Len())
	}
	without := m.Without(1)
	if without.Has(1) || !without.Has(3) {
		t.Fatalf("unexpected membership after Without")
	}
	if !m.Has(1) {
		t.Fatalf("Without must not mutate the receiver")
	}
}

func TestComponentMaskIncludesAllAndIntersects(t *testing.T) {
	super := maskFromIDs([]ComponentID{1, 2, 3})
	sub := maskFromIDs([]ComponentID{1, 3})
	disjoint := maskFromIDs([]ComponentID{9})

	if !super.IncludesAll(sub) {
		t.Fatalf("expected super to include sub")
	}
	if super.IncludesAll(disjoint) {
		t.Fatalf("expected super not to include disjoint")
	}
	if !super.Intersects(sub) {
		t.Fatalf("expected super and sub to intersect")
	}
	if super.Intersects(disjoint) {
		t.Fatalf("expected super and disjoint not to intersect")
	}
	empty := newComponentMask()
	if !super.IncludesAll(empty) {
		t.Fatalf("every mask includes the empty mask")
	}
}

func TestComponentMaskKeyIsOrderIndependent(t *testing.T) {
	a := maskFromIDs([]ComponentID{3, 1, 2})
	b := maskFromIDs([]ComponentID{1, 2, 3})
	if a.key() != b.key() {
		t.Fatalf("expected identical keys regardless of insertion order")
	}
	c := maskFromIDs([]ComponentID{1, 2})
	if a.key() == c.key() {
		t.Fatalf("expected different keys for different sets")
	}
}

func TestComponentMaskEquals(t *testing.T) {
	a := maskFromIDs([]ComponentID{1, 2})
	b := maskFromIDs([]ComponentID{2, 1})
	if !a.Equals(b) {
		t.Fatalf("expected set equality regardless of construction order")
	}
}
