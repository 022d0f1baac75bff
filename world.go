package archecs

import (
	"reflect"
	"sync"
	"sync/atomic"
	"unsafe"
)

// WorldOptions configures a new World. The zero value is usable: it starts
// empty, allocates entity ids from DefaultIDRangeAllocator, and creates no
// ActionChannel (callers that want one call NewActionChannel themselves and
// drive it explicitly).
type WorldOptions struct {
	InitialCapacity       int
	IDAllocator           IDRangeAllocator
	ActionChannelCapacity int
}

// World owns every entity, archetype, and resource created under it. Its
// exported surface is deliberately thin: most operations are package-level
// generic functions (Spawn1, Get, Insert, ...) taking a *World, because Go
// methods cannot introduce type parameters beyond their receiver's.
type World struct {
	entities *EntitySet
	epoch    *EpochCounter
	registry *componentRegistry
	graph    *archetypeGraph
	resources *resources

	archMu     sync.Mutex
	archetypes []*Archetype

	relMu        sync.RWMutex
	relHooksDone map[ComponentID]bool
	relIndex     map[ComponentID]map[EntityID]map[EntityID]struct{}
	relOwned     map[ComponentID]bool

	runtimeBorrow borrowState
	localBuf      *ActionBuffer
	channel       *ActionChannel
}

// NewWorld builds an empty World per opts.
func NewWorld(opts WorldOptions) *World {
	w := &World{
		entities:     NewEntitySet(opts.IDAllocator),
		epoch:        NewEpochCounter(),
		registry:     newComponentRegistry(),
		graph:        newArchetypeGraph(),
		resources:    newResources(),
		relHooksDone: make(map[ComponentID]bool),
		relIndex:     make(map[ComponentID]map[EntityID]map[EntityID]struct{}),
		relOwned:     make(map[ComponentID]bool),
		localBuf:     NewActionBuffer(),
	}
	if opts.InitialCapacity > 0 {
		w.entities.Reserve(opts.InitialCapacity)
	}
	if opts.ActionChannelCapacity > 0 {
		w.channel = NewActionChannel(opts.ActionChannelCapacity)
	}
	empty := newArchetype(0, newComponentMask(), nil)
	w.archetypes = append(w.archetypes, empty)
	w.graph.register(empty.mask.key(), 0)
	return w
}

// WorldBuilder lets callers register external ComponentInfo (custom drop
// glue, clone glue, extra borrow vtables) before any entity exists, mirroring
// the teacher's builder-pattern World construction generalized to the
// spec's "explicit component registration" entry point.
type WorldBuilder struct {
	opts      WorldOptions
	externals []*ComponentInfo
}

// NewWorldBuilder starts a builder with default options.
func NewWorldBuilder() *WorldBuilder {
	return &WorldBuilder{}
}

// WithInitialCapacity sets the entity-table capacity hint.
func (b *WorldBuilder) WithInitialCapacity(n int) *WorldBuilder {
	b.opts.InitialCapacity = n
	return b
}

// WithIDAllocator overrides the id range allocator.
func (b *WorldBuilder) WithIDAllocator(a IDRangeAllocator) *WorldBuilder {
	b.opts.IDAllocator = a
	return b
}

// WithActionChannelCapacity creates the World with a ready-to-use
// ActionChannel of the given buffer capacity.
func (b *WorldBuilder) WithActionChannelCapacity(n int) *WorldBuilder {
	b.opts.ActionChannelCapacity = n
	return b
}

// RegisterExternal installs a caller-authored ComponentInfo for T, letting
// configure override drop glue, clone glue, and borrow vtables before any
// value of T is ever stored. Must be called before Build.
func RegisterExternal[T any](b *WorldBuilder, configure func(info *ComponentInfo)) *WorldBuilder {
	id := ComponentIDFor[T]()
	t, _ := TypeOfComponent(id)
	info := defaultComponentInfo(id, t)
	if configure != nil {
		configure(info)
	}
	b.externals = append(b.externals, info)
	return b
}

// Build constructs the World.
func (b *WorldBuilder) Build() *World {
	w := NewWorld(b.opts)
	for _, info := range b.externals {
		w.registry.registerExternal(info)
	}
	return w
}

// Archetypes returns the live archetype list, in creation order. Index 0 is
// always the empty archetype.
func (w *World) Archetypes() []*Archetype {
	return w.archetypes
}

// Epoch returns the world's current epoch without advancing it.
func (w *World) Epoch() EpochID {
	return w.epoch.Current()
}

// LocalBuffer returns the World's built-in ActionBuffer, for callers that
// want to defer actions without managing their own buffer.
func (w *World) LocalBuffer() *ActionBuffer {
	return w.localBuf
}

// Channel returns the World's ActionChannel, or nil if it was not created
// with WithActionChannelCapacity.
func (w *World) Channel() *ActionChannel {
	return w.channel
}

// Maintain materializes every entity reserved via a shared Alloc call since
// the last Maintain, then executes and clears the local action buffer and
// (if present) the action channel. Call it once per frame/tick from
// exclusive World access.
func (w *World) Maintain() {
	for _, id := range w.entities.DrainPending() {
		loc, ok := w.entities.GetLocation(id)
		if !ok || !loc.Reserved() {
			continue
		}
		w.materializeReserved(id, emptyBundle{})
	}
	w.localBuf.Execute(w)
	if w.channel != nil {
		w.channel.Execute(w)
	}
}

// BorrowShared acquires a shared runtime borrow of the whole World, for
// callers (e.g. an async task holding a `*World` across an await point) that
// need a coarse "nobody is exclusively using this World" guarantee
// independently of any particular query. Every Query1..4/QueryMut1..4 pass
// additionally takes its own finer-grained per-(archetype,column) borrows
// (see Archetype.columnBorrow, wired in query.go's visit), so two queries
// over disjoint components never contend here even while both run. Release
// the guard when done.
func (w *World) BorrowShared() *BorrowGuard {
	return w.runtimeBorrow.Shared()
}

// BorrowExclusive acquires an exclusive runtime borrow of the whole World.
func (w *World) BorrowExclusive() *BorrowGuard {
	return w.runtimeBorrow.Exclusive()
}

// IsAlive reports whether id currently names a live entity (materialized or
// reserved).
func (w *World) IsAlive(id EntityID) bool {
	return w.entities.IsAlive(id)
}

// Len reports the number of live entities.
func (w *World) Len() int {
	return w.entities.Len()
}

// Lookup returns id's current Location, or ok=false if it is not alive.
func (w *World) Lookup(id EntityID) (Location, bool) {
	return w.entities.GetLocation(id)
}

// Allocate reserves a fresh EntityID without requiring exclusive World
// access. The id is immediately usable as an argument to other operations
// that go through an ActionEncoder/ActionChannel; Maintain materializes it
// into storage on the next call from exclusive access.
func (w *World) Allocate() EntityLoc {
	return w.entities.Alloc()
}

// ArchetypeSetID returns the number of archetypes that have ever existed,
// a monotonic counter bumped each time a new archetype is created. External
// schedulers can cache query plans keyed by this value.
func (w *World) ArchetypeSetID() uint64 {
	w.archMu.Lock()
	defer w.archMu.Unlock()
	return uint64(len(w.archetypes))
}

// IterComponentInfo calls f for every ComponentInfo registered on w, in no
// particular order.
func (w *World) IterComponentInfo(f func(*ComponentInfo)) {
	w.registry.iterInfo(f)
}

// NewActionSender returns a thread-safe producer for w's ActionChannel. Panics
// if w was not built with an ActionChannel.
func (w *World) NewActionSender() *ActionSender {
	if w.channel == nil {
		panic("archecs: world has no ActionChannel (see WithActionChannelCapacity)")
	}
	return w.channel.Sender()
}

// ExecuteReceivedActions drains and runs every action buffered on w's
// ActionChannel. No-op if w has no ActionChannel.
func (w *World) ExecuteReceivedActions() {
	if w.channel != nil {
		w.channel.Execute(w)
	}
}

func (w *World) getOrCreateArchetype(mask componentMask) *Archetype {
	key := mask.key()
	if idx, ok := w.graph.lookup(key); ok {
		return w.archetypes[idx]
	}
	w.archMu.Lock()
	defer w.archMu.Unlock()
	if idx, ok := w.graph.lookup(key); ok {
		return w.archetypes[idx]
	}
	ids := mask.IDs()
	infos := make([]*ComponentInfo, 0, len(ids))
	for _, id := range ids {
		info, ok := w.registry.get(id)
		if !ok {
			t, _ := TypeOfComponent(id)
			info = w.registry.ensure(t)
		}
		infos = append(infos, info)
	}
	if uint64(len(w.archetypes)) >= uint64(ReservedArchetype) {
		panic("archecs: archetype count overflow")
	}
	idx := uint32(len(w.archetypes))
	arch := newArchetype(idx, mask, infos)
	w.archetypes = append(w.archetypes, arch)
	w.graph.register(key, idx)
	return arch
}

func (w *World) spawn(bundle bundleSpec) EntityID {
	mask := maskFromIDs(bundle.componentIDs())
	arch := w.getOrCreateArchetype(mask)
	epoch := w.epoch.NextMut()
	id, _ := w.entities.Spawn(arch.Index(), func(eid EntityID) uint32 {
		row := arch.appendRawRow(eid)
		bundle.writeInto(func(cid ComponentID) unsafe.Pointer {
			return arch.GetMut(row, cid, epoch)
		})
		return uint32(row)
	})
	return id
}

func (w *World) materializeReserved(id EntityID, bundle bundleSpec) {
	mask := maskFromIDs(bundle.componentIDs())
	arch := w.getOrCreateArchetype(mask)
	epoch := w.epoch.NextMut()
	row := arch.appendRawRow(id)
	bundle.writeInto(func(cid ComponentID) unsafe.Pointer {
		return arch.GetMut(row, cid, epoch)
	})
	w.entities.SetLocation(id, Location{Archetype: arch.Index(), Row: uint32(row)})
}

// moveTo relocates id from old (at loc) to newArch, dropping dropIDs'
// values in place first, carrying every column newArch shares with old
// across unchanged, then (if bundle is non-nil) writing bundle's values into
// newArch's newly-gained columns.
func (w *World) moveTo(id EntityID, loc Location, old, newArch *Archetype, dropIDs []ComponentID, bundle bundleSpec, enc *ActionEncoder) {
	oldRow := int(loc.Row)
	for _, cid := range dropIDs {
		old.DropErased(oldRow, cid, enc)
	}
	newRow := newArch.appendRawRow(id)
	old.CopyShared(oldRow, newArch, newRow)
	if bundle != nil {
		epoch := w.epoch.NextMut()
		bundle.writeInto(func(cid ComponentID) unsafe.Pointer {
			return newArch.GetMut(newRow, cid, epoch)
		})
	}
	moved := old.removeRowRaw(oldRow)
	if moved != nil {
		w.entities.SetLocation(*moved, Location{Archetype: old.Index(), Row: loc.Row})
	}
	w.entities.SetLocation(id, Location{Archetype: newArch.Index(), Row: uint32(newRow)})
}

func (w *World) insertBundle(id EntityID, bundle bundleSpec, enc *ActionEncoder) {
	loc, ok := w.entities.GetLocation(id)
	if !ok {
		return
	}
	if loc.Reserved() {
		w.materializeReserved(id, bundle)
		return
	}
	old := w.archetypes[loc.Archetype]
	ids := bundle.componentIDs()
	newMask := old.mask.Clone()
	for _, cid := range ids {
		newMask = newMask.With(cid)
	}
	if newMask.Equals(old.mask) {
		epoch := w.epoch.NextMut()
		bundle.writeInto(func(cid ComponentID) unsafe.Pointer {
			old.DropErased(int(loc.Row), cid, enc)
			return old.GetMut(int(loc.Row), cid, epoch)
		})
		return
	}
	var newArch *Archetype
	if len(ids) == 1 {
		if idx, ok := w.graph.cachedAddOne(old.Index(), ids[0]); ok {
			newArch = w.archetypes[idx]
		} else {
			newArch = w.getOrCreateArchetype(newMask)
			w.graph.cacheAddOne(old.Index(), ids[0], newArch.Index())
		}
	} else {
		setKey := maskFromIDs(ids).key()
		if idx, ok := w.graph.cachedAddSet(old.Index(), setKey); ok {
			newArch = w.archetypes[idx]
		} else {
			newArch = w.getOrCreateArchetype(newMask)
			w.graph.cacheAddSet(old.Index(), setKey, newArch.Index())
		}
	}
	w.moveTo(id, loc, old, newArch, nil, bundle, enc)
}

func (w *World) removeComponent(id EntityID, compID ComponentID, enc *ActionEncoder) bool {
	return w.dropComponents(id, []ComponentID{compID}, enc)
}

// dropComponents removes every id in ids that old currently carries, moving
// the entity to the resulting archetype in a single transition. Reports
// whether any of ids was actually present.
func (w *World) dropComponents(id EntityID, ids []ComponentID, enc *ActionEncoder) bool {
	loc, ok := w.entities.GetLocation(id)
	if !ok || loc.Reserved() {
		return false
	}
	old := w.archetypes[loc.Archetype]
	present := false
	for _, cid := range ids {
		if old.HasComponent(cid) {
			present = true
			break
		}
	}
	if !present {
		return false
	}
	if enc == nil {
		buf := NewActionBuffer()
		enc = NewActionEncoder(buf)
		defer buf.Execute(w)
	}
	var newArch *Archetype
	if len(ids) == 1 {
		if idx, ok := w.graph.cachedSubOne(old.Index(), ids[0]); ok {
			newArch = w.archetypes[idx]
		} else {
			newMask := old.mask.Without(ids[0])
			newArch = w.getOrCreateArchetype(newMask)
			w.graph.cacheSubOne(old.Index(), ids[0], newArch.Index())
		}
	} else {
		setKey := maskFromIDs(ids).key()
		if idx, ok := w.graph.cachedSubSet(old.Index(), setKey); ok {
			newArch = w.archetypes[idx]
		} else {
			newMask := old.mask.Clone()
			for _, cid := range ids {
				newMask = newMask.Without(cid)
			}
			newArch = w.getOrCreateArchetype(newMask)
			w.graph.cacheSubSet(old.Index(), setKey, newArch.Index())
		}
	}
	w.moveTo(id, loc, old, newArch, ids, nil, enc)
	return true
}

// DropComponents removes every component named by ids from id's entity in a
// single archetype transition, for callers that only know the ComponentIDs
// at runtime (the dynamic-bundle counterpart of Remove[T]).
func DropComponents(w *World, id EntityID, ids ...ComponentID) bool {
	return w.dropComponents(id, ids, nil)
}

// Despawn removes id and drops every component it still carries, then
// cascades: any origin holding an Owned relation pointing at id is despawned
// too (recursively, since that origin may itself be an Owned target of
// further relations). Actions recorded by drop hooks run before Despawn
// returns. Reports whether id was alive.
func (w *World) Despawn(id EntityID) bool {
	loc, ok := w.entities.Despawn(id)
	if !ok {
		return false
	}
	buf := NewActionBuffer()
	if !loc.Reserved() {
		arch := w.archetypes[loc.Archetype]
		enc := NewActionEncoder(buf)
		moved := arch.DespawnUnchecked(int(loc.Row), enc)
		if moved != nil {
			w.entities.SetLocation(*moved, loc)
		}
	}
	w.cascadeOwnedDespawn(id)
	buf.Execute(w)
	return true
}

// Close runs every resource's Close hook (if it has one). The World itself
// holds no other releasable handles.
func (w *World) Close() {
	w.resources.closeAll()
}

// Spawn1 creates a new entity carrying a single component.
func Spawn1[A any](w *World, a A) EntityID {
	return w.spawn(Bundle1[A]{A: a})
}

// Spawn2 creates a new entity carrying two components.
func Spawn2[A, B any](w *World, a A, b B) EntityID {
	return w.spawn(Bundle2[A, B]{A: a, B: b})
}

// Spawn3 creates a new entity carrying three components.
func Spawn3[A, B, C any](w *World, a A, b B, c C) EntityID {
	return w.spawn(Bundle3[A, B, C]{A: a, B: b, C: c})
}

// Spawn4 creates a new entity carrying four components.
func Spawn4[A, B, C, D any](w *World, a A, b B, c C, d D) EntityID {
	return w.spawn(Bundle4[A, B, C, D]{A: a, B: b, C: c, D: d})
}

// SpawnEmpty creates a new entity with no components.
func SpawnEmpty(w *World) EntityID {
	return w.spawn(emptyBundle{})
}

// SpawnDynamic creates a new entity carrying bundle's runtime-determined
// component set.
func SpawnDynamic(w *World, bundle *DynamicBundle) EntityID {
	return w.spawn(bundle)
}

// SpawnAt creates id (which must not already be alive) carrying bundle's
// components. Reports whether id was free to use.
func SpawnAt(w *World, id EntityID, bundle bundleSpec) bool {
	mask := maskFromIDs(bundle.componentIDs())
	arch := w.getOrCreateArchetype(mask)
	epoch := w.epoch.NextMut()
	_, ok := w.entities.SpawnAt(id, arch.Index(), func(eid EntityID) uint32 {
		row := arch.appendRawRow(eid)
		bundle.writeInto(func(cid ComponentID) unsafe.Pointer {
			return arch.GetMut(row, cid, epoch)
		})
		return uint32(row)
	})
	return ok
}

// InsertBundle adds bundle's components to id, moving it to a new archetype
// if necessary. A component id already carries is overwritten in place.
func InsertBundle(w *World, id EntityID, bundle bundleSpec) {
	w.insertBundle(id, bundle, nil)
}

// InsertExternal is an alias of Insert. Rust's registration split between
// owned (`Component`-impl) and external (caller-supplied ComponentInfo) types
// exists because Rust requires a trait impl to auto-register a type; Go's
// reflection-driven registry has no such requirement, so both paths already
// converge on RegisterComponent/ComponentIDFor. The name is kept for callers
// migrating from the Rust API.
func InsertExternal[T any](w *World, id EntityID, value T) {
	Insert(w, id, value)
}

// SpawnExternal is an alias of Spawn1, for the same reason InsertExternal
// aliases Insert.
func SpawnExternal[A any](w *World, a A) EntityID {
	return Spawn1(w, a)
}

// SpawnExternalAt is an alias of SpawnAt, for the same reason InsertExternal
// aliases Insert.
func SpawnExternalAt[A any](w *World, id EntityID, a A) bool {
	return SpawnAt(w, id, Bundle1[A]{A: a})
}

// SpawnExternalBatch is an alias of SpawnBatch, for the same reason
// InsertExternal aliases Insert.
func SpawnExternalBatch(w *World, bundles []bundleSpec) []EntityLoc {
	return SpawnBatch(w, bundles)
}

// SpawnOrInsert spawns id with bundle if it is not currently alive, or
// inserts bundle's components into it (moving archetypes as needed) if it
// already is.
func SpawnOrInsert(w *World, id EntityID, bundle bundleSpec) {
	if w.entities.IsAlive(id) {
		w.insertBundle(id, bundle, nil)
		return
	}
	SpawnAt(w, id, bundle)
}

// RemoveComponent drops T from id, if present, moving it to a new
// archetype. Reports whether T was present.
func RemoveComponent[T any](w *World, id EntityID) bool {
	return w.removeComponent(id, ComponentIDFor[T](), nil)
}

// Has reports whether id currently carries a component of type T.
func Has[T any](w *World, id EntityID) bool {
	loc, ok := w.entities.GetLocation(id)
	if !ok || loc.Reserved() {
		return false
	}
	return w.archetypes[loc.Archetype].HasComponent(ComponentIDFor[T]())
}

// Get returns a read pointer to id's component of type T, if present. Must
// not be retained past the next structural change affecting id.
func Get[T any](w *World, id EntityID) (*T, bool) {
	loc, ok := w.entities.GetLocation(id)
	if !ok || loc.Reserved() {
		return nil, false
	}
	ptr := w.archetypes[loc.Archetype].Get(int(loc.Row), ComponentIDFor[T]())
	if ptr == nil {
		return nil, false
	}
	return (*T)(ptr), true
}

// GetMut behaves like Get but stamps the component's row/chunk/column
// epochs, recording that it may have been written.
func GetMut[T any](w *World, id EntityID) (*T, bool) {
	loc, ok := w.entities.GetLocation(id)
	if !ok || loc.Reserved() {
		return nil, false
	}
	ptr := w.archetypes[loc.Archetype].GetMut(int(loc.Row), ComponentIDFor[T](), w.epoch.NextMut())
	if ptr == nil {
		return nil, false
	}
	return (*T)(ptr), true
}

// Insert adds (or overwrites) id's component of type T.
func Insert[T any](w *World, id EntityID, value T) {
	RegisterComponent[T](w)
	w.insertBundle(id, Bundle1[T]{A: value}, nil)
}

// Remove drops id's component of type T, if present. Reports whether it was
// present.
func Remove[T any](w *World, id EntityID) bool {
	return w.removeComponent(id, ComponentIDFor[T](), nil)
}

// TryRemove drops id's component of type T and returns its value, or an
// EntityError distinguishing NoSuchEntity (id is not alive) from Mismatch
// (id is alive but does not currently carry T).
func TryRemove[T any](w *World, id EntityID) (T, error) {
	var zero T
	loc, ok := w.entities.GetLocation(id)
	if !ok {
		return zero, newNoSuchEntity(id)
	}
	if loc.Reserved() {
		return zero, newMismatch(id, reflect.TypeFor[T]().String())
	}
	arch := w.archetypes[loc.Archetype]
	cid := ComponentIDFor[T]()
	ptr := arch.Get(int(loc.Row), cid)
	if ptr == nil {
		return zero, newMismatch(id, reflect.TypeFor[T]().String())
	}
	value := *(*T)(ptr)
	w.removeComponent(id, cid, nil)
	return value, nil
}

// Drop is an alias of RemoveComponent, discarding the "was present" report —
// the spec's `drop` entry point is a fire-and-forget variant of `remove`.
func Drop[T any](w *World, id EntityID) {
	w.removeComponent(id, ComponentIDFor[T](), nil)
}

// DropBundle is an alias of DropComponents, discarding the "any present"
// report — the spec's `drop_bundle` entry point mirrors `drop`'s
// fire-and-forget shape for the multi-component case.
func DropBundle(w *World, id EntityID, ids ...ComponentID) {
	DropComponents(w, id, ids...)
}

// HasComponent is an alias of Has, named to match the spec's
// has_component::<T> entry point.
func HasComponent[T any](w *World, id EntityID) bool {
	return Has[T](w, id)
}

// TryHasComponent behaves like Has but distinguishes "absent" from "no such
// entity": ok is false only when id is not alive at all.
func TryHasComponent[T any](w *World, id EntityID) (has bool, ok bool) {
	loc, alive := w.entities.GetLocation(id)
	if !alive || loc.Reserved() {
		return false, false
	}
	return w.archetypes[loc.Archetype].HasComponent(ComponentIDFor[T]()), true
}

// SpawnBatch spawns one entity per element of bundles, pre-reserving entity
// table capacity for the whole batch up front.
func SpawnBatch(w *World, bundles []bundleSpec) []EntityLoc {
	w.entities.Reserve(len(bundles))
	out := make([]EntityLoc, 0, len(bundles))
	for _, b := range bundles {
		id := w.spawn(b)
		loc, _ := w.entities.GetLocation(id)
		out = append(out, EntityLoc{ID: id, Location: loc})
	}
	return out
}

// currentWorld backs the ambient "current world" accessor an external async
// runtime may use to recover a *World inside a thread-local task without this
// package baking in any scheduler of its own.
var currentWorld atomic.Pointer[World]

// SetCurrentWorld installs w as the ambient current world, for external flow
// runtimes to pick up via CurrentWorld. Never read or written by this
// package's own operations.
func SetCurrentWorld(w *World) {
	currentWorld.Store(w)
}

// CurrentWorld returns whatever *World was last installed by SetCurrentWorld,
// or nil if none has been.
func CurrentWorld() *World {
	return currentWorld.Load()
}
