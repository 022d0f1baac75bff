package archecs

// Filter narrows which archetypes, chunks, and rows a query visits, beyond
// the component types it fetches. It mirrors the three-layer visit
// discipline spec.md's query model requires: a cheap per-archetype check,
// a per-chunk check (so a filter like Modified can skip an entire
// untouched chunk without inspecting every row), and a per-row check.
type Filter interface {
	VisitArchetype(a *Archetype) bool
	VisitChunk(a *Archetype, chunkIndex int) bool
	VisitItem(a *Archetype, row int) bool
}

type withFilter struct{ ids []ComponentID }

func (f withFilter) VisitArchetype(a *Archetype) bool {
	for _, id := range f.ids {
		if !a.HasComponent(id) {
			return false
		}
	}
	return true
}
func (f withFilter) VisitChunk(a *Archetype, chunkIndex int) bool { return true }
func (f withFilter) VisitItem(a *Archetype, row int) bool         { return true }

// With requires the archetype to carry a component of type T, without
// fetching it (use a Query for that). Useful for marker/tag components.
func With[T any]() Filter {
	return withFilter{ids: []ComponentID{ComponentIDFor[T]()}}
}

// WithID is the dynamic-id equivalent of With, for code that only knows the
// ComponentID at runtime.
func WithID(id ComponentID) Filter {
	return withFilter{ids: []ComponentID{id}}
}

type withoutFilter struct{ ids []ComponentID }

func (f withoutFilter) VisitArchetype(a *Archetype) bool {
	for _, id := range f.ids {
		if a.HasComponent(id) {
			return false
		}
	}
	return true
}
func (f withoutFilter) VisitChunk(a *Archetype, chunkIndex int) bool { return true }
func (f withoutFilter) VisitItem(a *Archetype, row int) bool         { return true }

// Without excludes any archetype that carries a component of type T.
func Without[T any]() Filter {
	return withoutFilter{ids: []ComponentID{ComponentIDFor[T]()}}
}

// WithoutID is the dynamic-id equivalent of Without.
func WithoutID(id ComponentID) Filter {
	return withoutFilter{ids: []ComponentID{id}}
}

type modifiedFilter struct {
	id    ComponentID
	after EpochID
}

func (f modifiedFilter) VisitArchetype(a *Archetype) bool {
	return a.HasComponent(f.id) && a.ColumnEpoch(f.id).After(f.after)
}
func (f modifiedFilter) VisitChunk(a *Archetype, chunkIndex int) bool {
	lo, _ := a.ChunkBounds(chunkIndex)
	return a.ChunkEpoch(lo, f.id).After(f.after)
}
func (f modifiedFilter) VisitItem(a *Archetype, row int) bool {
	return a.RowEpoch(row, f.id).After(f.after)
}

// Modified matches rows whose component of type T has been written (via
// GetMut, Insert, or Set) more recently than after. Pair it with the epoch
// a previous pass recorded (World.Epoch) to implement "process only what
// changed since last time".
func Modified[T any](after EpochID) Filter {
	return modifiedFilter{id: ComponentIDFor[T](), after: after}
}

type andFilter struct{ filters []Filter }

func (f andFilter) VisitArchetype(a *Archetype) bool {
	for _, g := range f.filters {
		if !g.VisitArchetype(a) {
			return false
		}
	}
	return true
}
func (f andFilter) VisitChunk(a *Archetype, chunkIndex int) bool {
	for _, g := range f.filters {
		if !g.VisitChunk(a, chunkIndex) {
			return false
		}
	}
	return true
}
func (f andFilter) VisitItem(a *Archetype, row int) bool {
	for _, g := range f.filters {
		if !g.VisitItem(a, row) {
			return false
		}
	}
	return true
}

// And matches when every filter matches. Equivalent to listing filters
// consecutively, spelled out for readability when composing with Or/Xor.
func And(filters ...Filter) Filter { return andFilter{filters} }

type orFilter struct{ filters []Filter }

func (f orFilter) VisitArchetype(a *Archetype) bool {
	for _, g := range f.filters {
		if g.VisitArchetype(a) {
			return true
		}
	}
	return false
}
func (f orFilter) VisitChunk(a *Archetype, chunkIndex int) bool {
	for _, g := range f.filters {
		if g.VisitChunk(a, chunkIndex) {
			return true
		}
	}
	return false
}
func (f orFilter) VisitItem(a *Archetype, row int) bool {
	for _, g := range f.filters {
		if g.VisitItem(a, row) {
			return true
		}
	}
	return false
}

// Or matches when at least one filter matches. Each level (archetype,
// chunk, row) is evaluated independently, so a row can pass Or without the
// same sub-filter having "won" at every level above it.
func Or(filters ...Filter) Filter { return orFilter{filters} }

type xorFilter struct{ filters []Filter }

func countMatches(filters []Filter, test func(Filter) bool) int {
	n := 0
	for _, f := range filters {
		if test(f) {
			n++
		}
	}
	return n
}

func (f xorFilter) VisitArchetype(a *Archetype) bool {
	return countMatches(f.filters, func(g Filter) bool { return g.VisitArchetype(a) }) == 1
}
func (f xorFilter) VisitChunk(a *Archetype, chunkIndex int) bool {
	return countMatches(f.filters, func(g Filter) bool {
		return g.VisitArchetype(a) && g.VisitChunk(a, chunkIndex)
	}) == 1
}
func (f xorFilter) VisitItem(a *Archetype, row int) bool {
	return countMatches(f.filters, func(g Filter) bool {
		return g.VisitArchetype(a) && g.VisitChunk(a, rowChunk(row)) && g.VisitItem(a, row)
	}) == 1
}

// Xor matches when exactly one filter matches. At the chunk and row levels a
// sub-filter only counts if it also passes every level above.
func Xor(filters ...Filter) Filter { return xorFilter{filters} }
