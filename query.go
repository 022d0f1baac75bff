package archecs

import (
	"iter"
	"reflect"
	"unsafe"
)

// touchedColumn names one component id a query's visit pass will fetch, and
// whether it fetches it mutably. visit uses this to acquire the matching
// per-(archetype,column) runtime-borrow cell (shared or exclusive) for the
// whole archetype before handing out any row from it, and release it once
// every row of that archetype has been visited — see borrow.go and spec.md
// §4.6.
type touchedColumn struct {
	id      ComponentID
	mutable bool
}

// visit walks every archetype whose mask includes all of required and which
// passes every filter's VisitArchetype check, then every chunk passing
// VisitChunk, then every row passing VisitItem, calling visitRow for each.
// visitRow returning false stops iteration early (the range-over-func
// consumer broke out of the loop). Before visiting an archetype's rows, visit
// acquires a runtime-borrow guard (shared for a read-only touch, exclusive
// for a mutable one) on every column named in touched that the archetype
// actually carries, and releases all of them before moving to the next
// archetype or returning.
func visit(w *World, required []ComponentID, filters []Filter, touched []touchedColumn, visitRow func(arch *Archetype, row int) bool) {
	reqMask := maskFromIDs(required)
archLoop:
	for _, arch := range w.Archetypes() {
		if !arch.mask.IncludesAll(reqMask) {
			continue
		}
		for _, f := range filters {
			if !f.VisitArchetype(arch) {
				continue archLoop
			}
		}
		if !visitArchetypeRows(arch, filters, touched, visitRow) {
			return
		}
	}
}

// visitArchetypeRows visits every matching row of one archetype under its
// acquired column borrows, reporting whether the caller should keep visiting
// further archetypes.
func visitArchetypeRows(arch *Archetype, filters []Filter, touched []touchedColumn, visitRow func(arch *Archetype, row int) bool) bool {
	guards := make([]*BorrowGuard, 0, len(touched))
	defer func() {
		for _, g := range guards {
			g.Release()
		}
	}()
	for _, tc := range touched {
		cell := arch.columnBorrow(tc.id)
		if cell == nil {
			continue
		}
		if tc.mutable {
			guards = append(guards, cell.Exclusive())
		} else {
			guards = append(guards, cell.Shared())
		}
	}

	nchunks := arch.NumChunks()
	for ci := 0; ci < nchunks; ci++ {
		chunkOK := true
		for _, f := range filters {
			if !f.VisitChunk(arch, ci) {
				chunkOK = false
				break
			}
		}
		if !chunkOK {
			continue
		}
		lo, hi := arch.ChunkBounds(ci)
		for row := lo; row < hi; row++ {
			rowOK := true
			for _, f := range filters {
				if !f.VisitItem(arch, row) {
					rowOK = false
					break
				}
			}
			if !rowOK {
				continue
			}
			if !visitRow(arch, row) {
				return false
			}
		}
	}
	return true
}

// Item1..Item4 bundle the fetched component pointers a query yields
// alongside the owning entity, playing the role the teacher's Query1..
// Query5 item structs play (query.go), generalized to the filter-composable
// visit engine above.
type Item1[T1 any] struct{ C1 *T1 }
type Item2[T1, T2 any] struct {
	C1 *T1
	C2 *T2
}
type Item3[T1, T2, T3 any] struct {
	C1 *T1
	C2 *T2
	C3 *T3
}
type Item4[T1, T2, T3, T4 any] struct {
	C1 *T1
	C2 *T2
	C3 *T3
	C4 *T4
}

// Option wraps a component fetch that is not required to be present: Ok is
// false (and V nil) on any row of an archetype that lacks the column, rather
// than excluding the archetype from the query entirely. This is the Go
// rendering of spec.md's Option[Q] fetch combinator.
type Option[T any] struct {
	V  *T
	Ok bool
}

// fetchPtr returns a pointer to column id's value at row, stamping it with
// epoch if mutable is set. epoch must be computed once per query call
// (outside the row loop) and threaded through every fetch of that call, so a
// whole QueryMut pass advances the world epoch by exactly one regardless of
// how many rows or components it touches (spec.md §8); a read-only Query pass
// does not advance it.
func fetchPtr(arch *Archetype, row int, id ComponentID, mutable bool, epoch EpochID) unsafe.Pointer {
	if mutable {
		return arch.GetMut(row, id, epoch)
	}
	return arch.Get(row, id)
}

func fetchOption[T any](arch *Archetype, row int, id ComponentID, mutable bool, epoch EpochID) Option[T] {
	if !arch.HasComponent(id) {
		return Option[T]{}
	}
	return Option[T]{V: (*T)(fetchPtr(arch, row, id, mutable, epoch)), Ok: true}
}

// checkWriteAlias panics with a *WriteAlias if a mutable query's fetch list
// names the same component id more than once: two *T pointers into the same
// underlying storage, both declared mutable, is always a programming bug
// (spec.md's component_type_access conflict check, ComponentTypeAccess in
// the Rust source). Read-only queries may harmlessly repeat a type (two
// shared reads of the same memory alias safely), so this only fires for
// mutable fetch lists.
func checkWriteAlias(mutable bool, ids []ComponentID) {
	if !mutable {
		return
	}
	seen := make(map[ComponentID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			t, _ := TypeOfComponent(id)
			name := "?"
			if t != nil {
				name = t.String()
			}
			panic(&WriteAlias{Type: name})
		}
		seen[id] = true
	}
}

func mutEpoch(w *World, mutable bool) EpochID {
	if mutable {
		return w.epoch.NextMut()
	}
	return 0
}

func query1[T1 any](w *World, mutable bool, filters []Filter) iter.Seq2[EntityID, Item1[T1]] {
	id1 := ComponentIDFor[T1]()
	checkWriteAlias(mutable, []ComponentID{id1})
	touched := []touchedColumn{{id1, mutable}}
	return func(yield func(EntityID, Item1[T1]) bool) {
		epoch := mutEpoch(w, mutable)
		visit(w, []ComponentID{id1}, filters, touched, func(arch *Archetype, row int) bool {
			item := Item1[T1]{C1: (*T1)(fetchPtr(arch, row, id1, mutable, epoch))}
			return yield(arch.Entity(row), item)
		})
	}
}

func query2[T1, T2 any](w *World, mutable bool, filters []Filter) iter.Seq2[EntityID, Item2[T1, T2]] {
	id1, id2 := ComponentIDFor[T1](), ComponentIDFor[T2]()
	checkWriteAlias(mutable, []ComponentID{id1, id2})
	touched := []touchedColumn{{id1, mutable}, {id2, mutable}}
	return func(yield func(EntityID, Item2[T1, T2]) bool) {
		epoch := mutEpoch(w, mutable)
		visit(w, []ComponentID{id1, id2}, filters, touched, func(arch *Archetype, row int) bool {
			item := Item2[T1, T2]{
				C1: (*T1)(fetchPtr(arch, row, id1, mutable, epoch)),
				C2: (*T2)(fetchPtr(arch, row, id2, mutable, epoch)),
			}
			return yield(arch.Entity(row), item)
		})
	}
}

func query3[T1, T2, T3 any](w *World, mutable bool, filters []Filter) iter.Seq2[EntityID, Item3[T1, T2, T3]] {
	id1, id2, id3 := ComponentIDFor[T1](), ComponentIDFor[T2](), ComponentIDFor[T3]()
	checkWriteAlias(mutable, []ComponentID{id1, id2, id3})
	touched := []touchedColumn{{id1, mutable}, {id2, mutable}, {id3, mutable}}
	return func(yield func(EntityID, Item3[T1, T2, T3]) bool) {
		epoch := mutEpoch(w, mutable)
		visit(w, []ComponentID{id1, id2, id3}, filters, touched, func(arch *Archetype, row int) bool {
			item := Item3[T1, T2, T3]{
				C1: (*T1)(fetchPtr(arch, row, id1, mutable, epoch)),
				C2: (*T2)(fetchPtr(arch, row, id2, mutable, epoch)),
				C3: (*T3)(fetchPtr(arch, row, id3, mutable, epoch)),
			}
			return yield(arch.Entity(row), item)
		})
	}
}

func query4[T1, T2, T3, T4 any](w *World, mutable bool, filters []Filter) iter.Seq2[EntityID, Item4[T1, T2, T3, T4]] {
	id1, id2, id3, id4 := ComponentIDFor[T1](), ComponentIDFor[T2](), ComponentIDFor[T3](), ComponentIDFor[T4]()
	checkWriteAlias(mutable, []ComponentID{id1, id2, id3, id4})
	touched := []touchedColumn{{id1, mutable}, {id2, mutable}, {id3, mutable}, {id4, mutable}}
	return func(yield func(EntityID, Item4[T1, T2, T3, T4]) bool) {
		epoch := mutEpoch(w, mutable)
		visit(w, []ComponentID{id1, id2, id3, id4}, filters, touched, func(arch *Archetype, row int) bool {
			item := Item4[T1, T2, T3, T4]{
				C1: (*T1)(fetchPtr(arch, row, id1, mutable, epoch)),
				C2: (*T2)(fetchPtr(arch, row, id2, mutable, epoch)),
				C3: (*T3)(fetchPtr(arch, row, id3, mutable, epoch)),
				C4: (*T4)(fetchPtr(arch, row, id4, mutable, epoch)),
			}
			return yield(arch.Entity(row), item)
		})
	}
}

// Query1 visits every entity carrying a component of type T1 matching
// filters, yielding a read pointer. Reading the pointer does not advance
// epochs.
func Query1[T1 any](w *World, filters ...Filter) iter.Seq2[EntityID, Item1[T1]] {
	return query1[T1](w, false, filters)
}

// QueryMut1 behaves like Query1 but stamps the fetched component's epoch,
// for callers that intend to write through the pointer. The whole pass
// advances the world epoch exactly once, no matter how many rows it yields.
func QueryMut1[T1 any](w *World, filters ...Filter) iter.Seq2[EntityID, Item1[T1]] {
	return query1[T1](w, true, filters)
}

// Query2 visits every entity carrying components of types T1 and T2.
func Query2[T1, T2 any](w *World, filters ...Filter) iter.Seq2[EntityID, Item2[T1, T2]] {
	return query2[T1, T2](w, false, filters)
}

// QueryMut2 is the mutable-fetch counterpart of Query2.
func QueryMut2[T1, T2 any](w *World, filters ...Filter) iter.Seq2[EntityID, Item2[T1, T2]] {
	return query2[T1, T2](w, true, filters)
}

// Query3 visits every entity carrying components of types T1, T2, and T3.
func Query3[T1, T2, T3 any](w *World, filters ...Filter) iter.Seq2[EntityID, Item3[T1, T2, T3]] {
	return query3[T1, T2, T3](w, false, filters)
}

// QueryMut3 is the mutable-fetch counterpart of Query3.
func QueryMut3[T1, T2, T3 any](w *World, filters ...Filter) iter.Seq2[EntityID, Item3[T1, T2, T3]] {
	return query3[T1, T2, T3](w, true, filters)
}

// Query4 visits every entity carrying components of types T1, T2, T3, and
// T4.
func Query4[T1, T2, T3, T4 any](w *World, filters ...Filter) iter.Seq2[EntityID, Item4[T1, T2, T3, T4]] {
	return query4[T1, T2, T3, T4](w, false, filters)
}

// QueryMut4 is the mutable-fetch counterpart of Query4.
func QueryMut4[T1, T2, T3, T4 any](w *World, filters ...Filter) iter.Seq2[EntityID, Item4[T1, T2, T3, T4]] {
	return query4[T1, T2, T3, T4](w, true, filters)
}

// Item1Option1 pairs one required fetch with one optional fetch.
type Item1Option1[T1, O1 any] struct {
	C1   *T1
	Opt1 Option[O1]
}

func query1Option1[T1, O1 any](w *World, mutable bool, filters []Filter) iter.Seq2[EntityID, Item1Option1[T1, O1]] {
	id1, optID := ComponentIDFor[T1](), ComponentIDFor[O1]()
	checkWriteAlias(mutable, []ComponentID{id1, optID})
	touched := []touchedColumn{{id1, mutable}, {optID, mutable}}
	return func(yield func(EntityID, Item1Option1[T1, O1]) bool) {
		epoch := mutEpoch(w, mutable)
		visit(w, []ComponentID{id1}, filters, touched, func(arch *Archetype, row int) bool {
			item := Item1Option1[T1, O1]{
				C1:   (*T1)(fetchPtr(arch, row, id1, mutable, epoch)),
				Opt1: fetchOption[O1](arch, row, optID, mutable, epoch),
			}
			return yield(arch.Entity(row), item)
		})
	}
}

// Query1Option1 visits every entity carrying T1, additionally fetching O1 if
// present without requiring it — spec.md's Option[Q] combinator applied to
// one required component plus one optional one.
func Query1Option1[T1, O1 any](w *World, filters ...Filter) iter.Seq2[EntityID, Item1Option1[T1, O1]] {
	return query1Option1[T1, O1](w, false, filters)
}

// QueryMut1Option1 is the mutable-fetch counterpart of Query1Option1.
func QueryMut1Option1[T1, O1 any](w *World, filters ...Filter) iter.Seq2[EntityID, Item1Option1[T1, O1]] {
	return query1Option1[T1, O1](w, true, filters)
}

// Item2Option1 pairs two required fetches with one optional fetch.
type Item2Option1[T1, T2, O1 any] struct {
	C1   *T1
	C2   *T2
	Opt1 Option[O1]
}

func query2Option1[T1, T2, O1 any](w *World, mutable bool, filters []Filter) iter.Seq2[EntityID, Item2Option1[T1, T2, O1]] {
	id1, id2, optID := ComponentIDFor[T1](), ComponentIDFor[T2](), ComponentIDFor[O1]()
	checkWriteAlias(mutable, []ComponentID{id1, id2, optID})
	touched := []touchedColumn{{id1, mutable}, {id2, mutable}, {optID, mutable}}
	return func(yield func(EntityID, Item2Option1[T1, T2, O1]) bool) {
		epoch := mutEpoch(w, mutable)
		visit(w, []ComponentID{id1, id2}, filters, touched, func(arch *Archetype, row int) bool {
			item := Item2Option1[T1, T2, O1]{
				C1:   (*T1)(fetchPtr(arch, row, id1, mutable, epoch)),
				C2:   (*T2)(fetchPtr(arch, row, id2, mutable, epoch)),
				Opt1: fetchOption[O1](arch, row, optID, mutable, epoch),
			}
			return yield(arch.Entity(row), item)
		})
	}
}

// Query2Option1 visits every entity carrying T1 and T2, additionally
// fetching O1 if present.
func Query2Option1[T1, T2, O1 any](w *World, filters ...Filter) iter.Seq2[EntityID, Item2Option1[T1, T2, O1]] {
	return query2Option1[T1, T2, O1](w, false, filters)
}

// QueryMut2Option1 is the mutable-fetch counterpart of Query2Option1.
func QueryMut2Option1[T1, T2, O1 any](w *World, filters ...Filter) iter.Seq2[EntityID, Item2Option1[T1, T2, O1]] {
	return query2Option1[T1, T2, O1](w, true, filters)
}

// Entities visits every live entity matching filters, without fetching any
// component. Useful combined with With/Without/Modified alone.
func Entities(w *World, filters ...Filter) iter.Seq[EntityID] {
	return func(yield func(EntityID) bool) {
		visit(w, nil, filters, nil, func(arch *Archetype, row int) bool {
			return yield(arch.Entity(row))
		})
	}
}

// BorrowAny looks across every component id's archetype carries, and returns
// the first one whose ComponentInfo exposes a borrow vtable targeting
// Target (spec.md's supplemented "borrow by trait object" access: querying
// by capability rather than by concrete type). Ordering among multiple
// matches is the archetype's column order, which is unspecified beyond
// being stable for that archetype's lifetime.
func BorrowAny[Target any](w *World, id EntityID) (Target, bool) {
	var zero Target
	matches := borrowMatches[Target](w, id)
	if len(matches) == 0 {
		return zero, false
	}
	return matches[0], true
}

// BorrowOne behaves like BorrowAny but panics if more than one component on
// id exposes a borrow vtable targeting Target: it is for callers that know
// the capability is unique on any entity carrying it and want that assumption
// checked rather than silently resolved by column order.
func BorrowOne[Target any](w *World, id EntityID) (Target, bool) {
	var zero Target
	matches := borrowMatches[Target](w, id)
	switch len(matches) {
	case 0:
		return zero, false
	case 1:
		return matches[0], true
	default:
		panic("archecs: BorrowOne found more than one matching component")
	}
}

// BorrowAll returns every component on id whose ComponentInfo exposes a
// borrow vtable targeting Target, in the archetype's stable column order.
func BorrowAll[Target any](w *World, id EntityID) []Target {
	return borrowMatches[Target](w, id)
}

func borrowMatches[Target any](w *World, id EntityID) []Target {
	loc, ok := w.entities.GetLocation(id)
	if !ok || loc.Reserved() {
		return nil
	}
	arch := w.archetypes[loc.Archetype]
	targetType := reflect.TypeFor[Target]()
	var out []Target
	for _, cid := range arch.ComponentIDs() {
		info, ok := w.registry.get(cid)
		if !ok {
			continue
		}
		for _, b := range info.Borrows {
			if b.Target != targetType {
				continue
			}
			ptr := arch.Get(int(loc.Row), cid)
			if v, ok := b.Borrow(ptr).(Target); ok {
				out = append(out, v)
			}
		}
	}
	return out
}
