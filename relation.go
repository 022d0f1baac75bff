package archecs

import (
	"iter"
	"unsafe"
)

// Relation is implemented by value types usable as the payload of a binary
// relation between two entities (spec.md's relation model). Exclusive
// reports whether an origin entity may hold at most one instance of this
// relation at a time (inserting a new one replaces the old, instead of
// accumulating a second simultaneous target); Symmetric reports whether
// inserting the relation on an origin also mirrors it onto the target (so
// either side can be queried as the "origin"); Owned reports whether the
// target is the relation's logical owner, so despawning the target cascades
// into despawning every origin still pointing at it (spec.md §3/§4.9's
// "Owned cascade": despawn(parent) implies is_alive(child) == false).
type Relation interface {
	Exclusive() bool
	Symmetric() bool
	Owned() bool
}

// relationLink is one (target, payload) pair. Exclusive relations store at
// most one; non-exclusive relations store one per simultaneous target, the
// Go rendering of spec.md's Vec<(target,R)> origin-side storage.
type relationLink[R Relation] struct {
	Target EntityID
	Rel    R
}

// RelationComponent is the component actually stored on an entity that
// participates in a relation. RelationComponentID[R] names its ComponentID.
type RelationComponent[R Relation] struct {
	links []relationLink[R]
}

// Targets returns every target currently linked from the holder of this
// component, in insertion order.
func (rc *RelationComponent[R]) Targets() []EntityID {
	if rc == nil {
		return nil
	}
	out := make([]EntityID, len(rc.links))
	for i, l := range rc.links {
		out[i] = l.Target
	}
	return out
}

// Link returns the payload rel for target, if origin currently links to it.
func (rc *RelationComponent[R]) Link(target EntityID) (R, bool) {
	var zero R
	if rc == nil {
		return zero, false
	}
	for _, l := range rc.links {
		if l.Target == target {
			return l.Rel, true
		}
	}
	return zero, false
}

// RelationComponentID returns the stable ComponentID for relation R's
// backing component, assigning one on first use.
func RelationComponentID[R Relation]() ComponentID {
	return ComponentIDFor[RelationComponent[R]]()
}

// RegisterRelation ensures w has a ComponentInfo for R's backing component
// and that its drop-cascade hook (reverse-index cleanup, and for symmetric
// relations removing the mirrored half) is installed exactly once.
func RegisterRelation[R Relation](w *World) ComponentID {
	id := RegisterComponent[RelationComponent[R]](w)
	w.relMu.Lock()
	defer w.relMu.Unlock()
	if w.relHooksDone[id] {
		return id
	}
	var zero R
	w.relOwned[id] = zero.Owned()
	info, _ := w.registry.get(id)
	info.OnDrop = func(eid EntityID, ptr unsafe.Pointer, enc *ActionEncoder) {
		rc := (*RelationComponent[R])(ptr)
		symmetric := zero.Symmetric()
		for _, link := range rc.links {
			w.unindexRelation(id, link.Target, eid)
			if symmetric && link.Target != eid {
				enc.Closure(func(w *World) {
					RemoveRelationTarget[R](w, link.Target, eid)
				})
			}
		}
	}
	w.relHooksDone[id] = true
	return id
}

// addOrReplaceLink installs (target, rel) into holder's RelationComponent[R],
// creating it if absent. For an exclusive relation this replaces whatever
// single link was there, returning the displaced target (nil if none or it
// was already target); for a non-exclusive relation it replaces the link to
// target if one exists, else appends, always returning nil.
func addOrReplaceLink[R Relation](w *World, holder EntityID, target EntityID, rel R, exclusive bool) *EntityID {
	if existing, ok := GetMut[RelationComponent[R]](w, holder); ok {
		if exclusive {
			var displaced *EntityID
			if len(existing.links) > 0 && existing.links[0].Target != target {
				old := existing.links[0].Target
				displaced = &old
			}
			existing.links = []relationLink[R]{{Target: target, Rel: rel}}
			return displaced
		}
		for i := range existing.links {
			if existing.links[i].Target == target {
				existing.links[i].Rel = rel
				return nil
			}
		}
		existing.links = append(existing.links, relationLink[R]{Target: target, Rel: rel})
		return nil
	}
	Insert(w, holder, RelationComponent[R]{links: []relationLink[R]{{Target: target, Rel: rel}}})
	return nil
}

// removeLinkSide drops holder's link to target (the whole component, for an
// exclusive relation; just that one link, for a non-exclusive one).
func removeLinkSide[R Relation](w *World, holder EntityID, target EntityID, exclusive bool) {
	if exclusive {
		Remove[RelationComponent[R]](w, holder)
		return
	}
	existing, ok := GetMut[RelationComponent[R]](w, holder)
	if !ok {
		return
	}
	for i, l := range existing.links {
		if l.Target == target {
			existing.links = append(existing.links[:i], existing.links[i+1:]...)
			break
		}
	}
	if len(existing.links) == 0 {
		Remove[RelationComponent[R]](w, holder)
	}
}

// InsertRelation records that origin relates to target via rel. If R is
// Exclusive and origin already held an instance of R pointing elsewhere, the
// old link is replaced (and, for a symmetric relation, its mirror on the old
// target is then removed). If R is not Exclusive, origin may hold links to
// several simultaneous targets; inserting again for the same target replaces
// just that target's payload. If R is Symmetric, the relation is
// additionally recorded from target's side.
func InsertRelation[R Relation](w *World, origin EntityID, rel R, target EntityID) {
	id := RegisterRelation[R](w)
	var zero R
	exclusive, symmetric := zero.Exclusive(), zero.Symmetric()

	if displaced := addOrReplaceLink[R](w, origin, target, rel, exclusive); displaced != nil {
		old := *displaced
		w.unindexRelation(id, old, origin)
		if symmetric && old != target {
			removeLinkSide[R](w, old, origin, exclusive)
			w.unindexRelation(id, origin, old)
		}
	}
	w.indexRelation(id, target, origin)

	if symmetric && target != origin {
		addOrReplaceLink[R](w, target, origin, rel, exclusive)
		w.indexRelation(id, origin, target)
	}
}

// RemoveRelation removes every link origin currently holds for R, mirroring
// each removal onto its target when R is symmetric. Reports whether any
// relation was actually present.
func RemoveRelation[R Relation](w *World, origin EntityID) bool {
	id := RegisterRelation[R](w)
	rc, ok := Get[RelationComponent[R]](w, origin)
	if !ok || len(rc.links) == 0 {
		return false
	}
	var zero R
	symmetric, exclusive := zero.Symmetric(), zero.Exclusive()
	targets := rc.Targets()
	for _, target := range targets {
		w.unindexRelation(id, target, origin)
		if symmetric && target != origin {
			removeLinkSide[R](w, target, origin, exclusive)
			w.unindexRelation(id, origin, target)
		}
	}
	Remove[RelationComponent[R]](w, origin)
	return true
}

// RemoveRelationTarget removes just origin's link to target, leaving any
// other simultaneous targets (for a non-exclusive relation) intact. Reports
// whether that specific link was present.
func RemoveRelationTarget[R Relation](w *World, origin EntityID, target EntityID) bool {
	id := RegisterRelation[R](w)
	rc, ok := GetMut[RelationComponent[R]](w, origin)
	if !ok {
		return false
	}
	removed := false
	for i, l := range rc.links {
		if l.Target == target {
			rc.links = append(rc.links[:i], rc.links[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		return false
	}
	w.unindexRelation(id, target, origin)
	var zero R
	if zero.Symmetric() && target != origin {
		removeLinkSide[R](w, target, origin, zero.Exclusive())
		w.unindexRelation(id, origin, target)
	}
	if len(rc.links) == 0 {
		Remove[RelationComponent[R]](w, origin)
	}
	return true
}

// AddRelation is an alias of InsertRelation.
func AddRelation[R Relation](w *World, origin EntityID, rel R, target EntityID) {
	InsertRelation(w, origin, rel, target)
}

// DropRelation is an alias of RemoveRelation.
func DropRelation[R Relation](w *World, origin EntityID) bool {
	return RemoveRelation[R](w, origin)
}

// RelationTarget returns the first entity origin's instance of R points at,
// if any. For an Exclusive relation this is its only target; for a
// non-exclusive one, use RelationTargets for the full set.
func RelationTarget[R Relation](w *World, origin EntityID) (EntityID, bool) {
	rc, ok := Get[RelationComponent[R]](w, origin)
	if !ok || len(rc.links) == 0 {
		return 0, false
	}
	return rc.links[0].Target, true
}

// RelationTargets returns every target origin currently links to via R, in
// insertion order (spec.md's Vec<(target,R)> read side).
func RelationTargets[R Relation](w *World, origin EntityID) []EntityID {
	rc, ok := Get[RelationComponent[R]](w, origin)
	if !ok {
		return nil
	}
	return rc.Targets()
}

// RelationOrigins returns every entity currently holding an instance of R
// that points at target (the reverse index spec.md's relation model
// requires for cascade and query support).
func RelationOrigins[R Relation](w *World, target EntityID) []EntityID {
	id := RelationComponentID[R]()
	w.relMu.RLock()
	defer w.relMu.RUnlock()
	byTarget := w.relIndex[id]
	if byTarget == nil {
		return nil
	}
	origins := byTarget[target]
	out := make([]EntityID, 0, len(origins))
	for o := range origins {
		out = append(out, o)
	}
	return out
}

func (w *World) indexRelation(relID ComponentID, target, origin EntityID) {
	w.relMu.Lock()
	defer w.relMu.Unlock()
	byTarget, ok := w.relIndex[relID]
	if !ok {
		byTarget = make(map[EntityID]map[EntityID]struct{})
		w.relIndex[relID] = byTarget
	}
	origins, ok := byTarget[target]
	if !ok {
		origins = make(map[EntityID]struct{})
		byTarget[target] = origins
	}
	origins[origin] = struct{}{}
}

func (w *World) unindexRelation(relID ComponentID, target, origin EntityID) {
	w.relMu.Lock()
	defer w.relMu.Unlock()
	byTarget, ok := w.relIndex[relID]
	if !ok {
		return
	}
	origins, ok := byTarget[target]
	if !ok {
		return
	}
	delete(origins, origin)
	if len(origins) == 0 {
		delete(byTarget, target)
	}
}

// cascadeOwnedDespawn despawns every origin of every Owned relation pointing
// at target, recursively: an origin despawned this way may itself be the
// Owned target of further relations. Called from World.Despawn after
// target's own components (and their OnDrop hooks) have already run, so the
// reverse-index entries read here describe exactly who still points at
// target as the relation's owner.
func (w *World) cascadeOwnedDespawn(target EntityID) {
	w.relMu.RLock()
	var origins []EntityID
	for relID, owned := range w.relOwned {
		if !owned {
			continue
		}
		byTarget, ok := w.relIndex[relID]
		if !ok {
			continue
		}
		for o := range byTarget[target] {
			origins = append(origins, o)
		}
	}
	w.relMu.RUnlock()
	for _, origin := range origins {
		if w.IsAlive(origin) {
			w.Despawn(origin)
		}
	}
}

// HasRelation requires the archetype to carry relation R's backing
// component, without fetching it. Useful alongside Entities or another
// Query to restrict to entities participating in R at all.
func HasRelation[R Relation]() Filter {
	return withFilter{ids: []ComponentID{RelationComponentID[R]()}}
}

// WithoutRelation excludes any archetype carrying relation R's backing
// component.
func WithoutRelation[R Relation]() Filter {
	return withoutFilter{ids: []ComponentID{RelationComponentID[R]()}}
}

type relationTargetFilter[R Relation] struct {
	target EntityID
	id     ComponentID
}

func (f relationTargetFilter[R]) VisitArchetype(a *Archetype) bool {
	return a.HasComponent(f.id)
}
func (f relationTargetFilter[R]) VisitChunk(a *Archetype, chunkIndex int) bool { return true }
func (f relationTargetFilter[R]) VisitItem(a *Archetype, row int) bool {
	ptr := a.Get(row, f.id)
	if ptr == nil {
		return false
	}
	rc := (*RelationComponent[R])(ptr)
	_, ok := rc.Link(f.target)
	return ok
}

// WithRelationTarget matches entities holding an instance of relation R
// whose set of targets includes target — spec.md §4.9's relation-query
// combinator, letting a query restrict to "every origin of R pointing at
// this specific entity" the same way With/Without restrict by component.
func WithRelationTarget[R Relation](target EntityID) Filter {
	return relationTargetFilter[R]{target: target, id: RelationComponentID[R]()}
}

// RelationEntities iterates every (origin, target) pair currently recorded
// for relation R. A non-exclusive origin with several simultaneous targets
// is yielded once per target.
func RelationEntities[R Relation](w *World) iter.Seq2[EntityID, EntityID] {
	return func(yield func(origin, target EntityID) bool) {
		id := RelationComponentID[R]()
		visit(w, []ComponentID{id}, nil, nil, func(arch *Archetype, row int) bool {
			rc := (*RelationComponent[R])(arch.Get(row, id))
			origin := arch.Entity(row)
			for _, link := range rc.links {
				if !yield(origin, link.Target) {
					return false
				}
			}
			return true
		})
	}
}
