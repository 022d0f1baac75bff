package archecs

import (
	"encoding/binary"

	"github.com/RoaringBitmap/roaring/v2"
)

// componentMask is the set of ComponentIDs belonging to one archetype. It
// backs archetype identity ("the set of component TypeIds is uniquely
// identifying") and the include/exclude masks used by query visitation.
//
// The teacher (lazyecs) represents this as a fixed maskType [4]uint64 /
// bitmask256, capping the library at 256 distinct component types. A
// roaring.Bitmap gives the same containment/intersection operations over an
// unbounded universe of ids, at the cost of an allocation per mask instead
// of a stack array — an acceptable trade for a structural-identity value
// that is created once per archetype, not once per row.
type componentMask struct {
	bits *roaring.Bitmap
}

func newComponentMask() componentMask {
	return componentMask{bits: roaring.New()}
}

// maskFromIDs builds a mask containing exactly ids.
func maskFromIDs(ids []ComponentID) componentMask {
	m := roaring.New()
	for _, id := range ids {
		m.Add(uint32(id))
	}
	return componentMask{bits: m}
}

// Clone returns an independent copy.
func (m componentMask) Clone() componentMask {
	return componentMask{bits: m.bits.Clone()}
}

// With returns a copy of m with id added.
func (m componentMask) With(id ComponentID) componentMask {
	c := m.Clone()
	c.bits.Add(uint32(id))
	return c
}

// Without returns a copy of m with id removed.
func (m componentMask) Without(id ComponentID) componentMask {
	c := m.Clone()
	c.bits.Remove(uint32(id))
	return c
}

// Has reports whether id is a member of m.
func (m componentMask) Has(id ComponentID) bool {
	return m.bits.Contains(uint32(id))
}

// IncludesAll reports whether m contains every id in include (m ⊇ include).
func (m componentMask) IncludesAll(include componentMask) bool {
	if include.bits.IsEmpty() {
		return true
	}
	missing := include.bits.Clone()
	missing.AndNot(m.bits)
	return missing.IsEmpty()
}

// Intersects reports whether m and other share any member.
func (m componentMask) Intersects(other componentMask) bool {
	if other.bits.IsEmpty() {
		return false
	}
	return m.bits.Intersects(other.bits)
}

// Equals reports whether m and other contain exactly the same ids.
func (m componentMask) Equals(other componentMask) bool {
	return m.bits.Equals(other.bits)
}

// Len reports the number of distinct component ids in m.
func (m componentMask) Len() int {
	return int(m.bits.GetCardinality())
}

// IDs returns the member ids in ascending order.
func (m componentMask) IDs() []ComponentID {
	arr := m.bits.ToArray()
	ids := make([]ComponentID, len(arr))
	for i, v := range arr {
		ids[i] = ComponentID(v)
	}
	return ids
}

// key returns a canonical, comparable string usable as a map key for this
// exact set of component ids (the dynamic-bundle / archetype-identity cache
// key from spec.md §4.4's "spawn_ids" / "sub_bundle" caches).
func (m componentMask) key() string {
	arr := m.bits.ToArray()
	buf := make([]byte, 4*len(arr))
	for i, v := range arr {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return string(buf)
}
