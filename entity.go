package archecs

import (
	"math"
	"sync"
	"sync/atomic"
)

// EntityID is a stable, opaque, non-zero 64-bit identifier. It is never
// reused for the lifetime of the EntitySet that allocated it.
type EntityID uint64

// Bits returns the raw bit representation of the id, for persistence.
func (id EntityID) Bits() uint64 { return uint64(id) }

// EntityIDFromBits reconstructs an EntityID previously obtained from Bits.
func EntityIDFromBits(bits uint64) EntityID { return EntityID(bits) }

// IsZero reports whether id is the zero value, which never names a live
// entity.
func (id EntityID) IsZero() bool { return id == 0 }

// ReservedArchetype is the sentinel Location.Archetype value meaning
// "reserved, not yet materialized into storage".
const ReservedArchetype uint32 = math.MaxUint32

// Location identifies where an entity's component data lives: a row inside
// one of the world's archetypes, or the reserved sentinel.
type Location struct {
	Archetype uint32
	Row       uint32
}

// Reserved reports whether this location is the "allocated but not yet
// materialized" sentinel.
func (l Location) Reserved() bool { return l.Archetype == ReservedArchetype }

// EntityLoc pairs an EntityID with its current Location, as returned by the
// reservation and batch-spawn APIs.
type EntityLoc struct {
	ID       EntityID
	Location Location
}

// EntitySet maps EntityID to Location and supports allocating fresh IDs
// concurrently from a shared *EntitySet (no &mut required), at the cost of a
// short lock around the map write that records the reservation. Mutating an
// existing entry (SpawnAt, SetLocation, Despawn) requires the caller to hold
// whatever exclusivity the World's own API already demands; EntitySet itself
// only guarantees the map is never corrupted by concurrent access.
type EntitySet struct {
	mu        sync.RWMutex
	locations map[EntityID]Location

	allocator       IDRangeAllocator
	cur             atomic.Uint64
	high            atomic.Uint64
	rangeMu         sync.Mutex
	pendingMu       sync.Mutex
	pendingReserved []EntityID
}

// NewEntitySet builds an EntitySet drawing IDs from allocator. A nil
// allocator uses DefaultIDRangeAllocator.
func NewEntitySet(allocator IDRangeAllocator) *EntitySet {
	if allocator == nil {
		allocator = DefaultIDRangeAllocator()
	}
	es := &EntitySet{
		locations: make(map[EntityID]Location, 1024),
		allocator: allocator,
	}
	low, high, ok := allocator.NextRange()
	if !ok {
		panic("archecs: id range allocator produced no initial range")
	}
	es.cur.Store(low)
	es.high.Store(high)
	return es
}

// nextID hands out the next raw id from the current range, switching to a
// new range under a short lock when the current one is exhausted.
func (es *EntitySet) nextID() EntityID {
	for {
		id := es.cur.Add(1) - 1
		if id < es.high.Load() {
			return EntityID(id)
		}
		es.rangeMu.Lock()
		if es.cur.Load()-1 >= es.high.Load() {
			low, high, ok := es.allocator.NextRange()
			if !ok {
				es.rangeMu.Unlock()
				panic(errRangeExhausted)
			}
			es.cur.Store(low)
			es.high.Store(high)
		}
		es.rangeMu.Unlock()
	}
}

// AllocMut draws a fresh id for immediate, synchronous installation by the
// caller (the Spawn family). It is the `&mut`-flavoured allocation: it never
// leaves the id in a reserved/unmapped state.
func (es *EntitySet) AllocMut() EntityID {
	return es.nextID()
}

// Alloc reserves a fresh id from a shared *EntitySet without requiring
// exclusive access. The returned location is the reserved sentinel; the id
// is recorded as alive immediately (GetLocation will report it), and is
// queued so a later Maintenance pass can materialize it into archetype 0.
func (es *EntitySet) Alloc() EntityLoc {
	id := es.nextID()
	loc := Location{Archetype: ReservedArchetype}
	es.mu.Lock()
	es.locations[id] = loc
	es.mu.Unlock()
	es.pendingMu.Lock()
	es.pendingReserved = append(es.pendingReserved, id)
	es.pendingMu.Unlock()
	return EntityLoc{ID: id, Location: loc}
}

// DrainPending removes and returns the list of entities reserved via Alloc
// since the last DrainPending call. Entities that were despawned in the
// meantime are silently skipped by the caller (their GetLocation lookup will
// simply fail).
func (es *EntitySet) DrainPending() []EntityID {
	es.pendingMu.Lock()
	defer es.pendingMu.Unlock()
	drained := es.pendingReserved
	es.pendingReserved = nil
	return drained
}

// Spawn draws a fresh id, calls install to write its storage row, and
// records the resulting Location atomically from the caller's viewpoint.
func (es *EntitySet) Spawn(archIdx uint32, install func(EntityID) uint32) (EntityID, Location) {
	id := es.AllocMut()
	row := install(id)
	loc := Location{Archetype: archIdx, Row: row}
	es.mu.Lock()
	es.locations[id] = loc
	es.mu.Unlock()
	return id, loc
}

// SpawnAt behaves like Spawn but with a caller-chosen id; it fails (ok=false)
// if that id is already mapped to a live entity.
func (es *EntitySet) SpawnAt(id EntityID, archIdx uint32, install func(EntityID) uint32) (Location, bool) {
	es.mu.RLock()
	_, exists := es.locations[id]
	es.mu.RUnlock()
	if exists {
		return Location{}, false
	}
	row := install(id)
	loc := Location{Archetype: archIdx, Row: row}
	es.mu.Lock()
	defer es.mu.Unlock()
	if _, exists := es.locations[id]; exists {
		return Location{}, false
	}
	es.locations[id] = loc
	return loc, true
}

// Despawn removes id's mapping and returns its prior Location. Despawning a
// reserved (not yet materialized) id is legal.
func (es *EntitySet) Despawn(id EntityID) (Location, bool) {
	es.mu.Lock()
	defer es.mu.Unlock()
	loc, ok := es.locations[id]
	if !ok {
		return Location{}, false
	}
	delete(es.locations, id)
	return loc, true
}

// SetLocation overwrites id's recorded Location. The caller must already
// know id is alive; SetLocation does not validate that.
func (es *EntitySet) SetLocation(id EntityID, loc Location) {
	es.mu.Lock()
	es.locations[id] = loc
	es.mu.Unlock()
}

// GetLocation returns id's current Location, or ok=false if it is not alive.
func (es *EntitySet) GetLocation(id EntityID) (Location, bool) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	loc, ok := es.locations[id]
	return loc, ok
}

// IsAlive reports whether id currently has a mapping (materialized or
// reserved).
func (es *EntitySet) IsAlive(id EntityID) bool {
	_, ok := es.GetLocation(id)
	return ok
}

// Reserve is a capacity hint; it pre-grows the backing map so that the next
// `additional` insertions need not trigger Go map growth mid-operation.
func (es *EntitySet) Reserve(additional int) {
	if additional <= 0 {
		return
	}
	es.mu.Lock()
	defer es.mu.Unlock()
	grown := make(map[EntityID]Location, len(es.locations)+additional)
	for k, v := range es.locations {
		grown[k] = v
	}
	es.locations = grown
}

// Len reports the number of live (materialized or reserved) entities.
func (es *EntitySet) Len() int {
	es.mu.RLock()
	defer es.mu.RUnlock()
	return len(es.locations)
}
