package archecs

import (
	"reflect"
	"sync"
)

// resourceCloser is implemented by resource values that hold something worth
// releasing deterministically (a file handle, a connection pool). World
// calls Close on any resource still present when the World itself is
// closed, so forgetting to RemoveResource does not silently leak it.
type resourceCloser interface {
	Close() error
}

// resourceSlot holds one resource, boxed behind its own pointer so that
// GetResourceMut's pointer aliases the actual stored value rather than a
// throwaway copy.
type resourceSlot struct {
	value any // always a *T for the slot's declared type
}

// resources is the world's typed resource table, split into Sync (safe to
// fetch from any goroutine, guarded by a mutex) and local (no locking,
// intended for single-goroutine access patterns like a main update loop)
// slots, mirroring spec.md's distinction between shared and
// thread-confined global state.
type resources struct {
	mu    sync.RWMutex
	sync  map[reflect.Type]*resourceSlot
	local map[reflect.Type]*resourceSlot
}

func newResources() *resources {
	return &resources{
		sync:  make(map[reflect.Type]*resourceSlot),
		local: make(map[reflect.Type]*resourceSlot),
	}
}

func (r *resources) closeAll() {
	for _, tbl := range []map[reflect.Type]*resourceSlot{r.sync, r.local} {
		for _, slot := range tbl {
			if closer, ok := slot.value.(resourceCloser); ok {
				closer.Close()
			}
		}
	}
}

func closeIfPresent(tbl map[reflect.Type]*resourceSlot, t reflect.Type) {
	if old, ok := tbl[t]; ok {
		if closer, ok := old.value.(resourceCloser); ok {
			closer.Close()
		}
	}
}

// InsertResource installs value as the Sync resource of type T, replacing
// any prior value of that type (closing it first if it implements
// resourceCloser).
func InsertResource[T any](w *World, value T) {
	t := reflect.TypeFor[T]()
	box := new(T)
	*box = value
	w.resources.mu.Lock()
	defer w.resources.mu.Unlock()
	closeIfPresent(w.resources.sync, t)
	w.resources.sync[t] = &resourceSlot{value: box}
}

// InsertLocalResource installs value as the local (unsynchronized) resource
// of type T.
func InsertLocalResource[T any](w *World, value T) {
	t := reflect.TypeFor[T]()
	box := new(T)
	*box = value
	closeIfPresent(w.resources.local, t)
	w.resources.local[t] = &resourceSlot{value: box}
}

// GetResource returns a pointer to the Sync resource of type T, if present.
func GetResource[T any](w *World) (*T, bool) {
	t := reflect.TypeFor[T]()
	w.resources.mu.RLock()
	defer w.resources.mu.RUnlock()
	slot, ok := w.resources.sync[t]
	if !ok {
		return nil, false
	}
	return slot.value.(*T), true
}

// GetResourceMut is an alias of GetResource: Sync resources are always
// returned by pointer into their actual storage, so there is no separate
// read-only accessor to distinguish it from.
func GetResourceMut[T any](w *World) (*T, bool) {
	return GetResource[T](w)
}

// GetLocalResource returns a pointer to the local resource of type T. Not
// safe to call concurrently with InsertLocalResource/RemoveLocalResource for
// the same T from another goroutine.
func GetLocalResource[T any](w *World) (*T, bool) {
	t := reflect.TypeFor[T]()
	slot, ok := w.resources.local[t]
	if !ok {
		return nil, false
	}
	return slot.value.(*T), true
}

// RemoveResource deletes and returns the Sync resource of type T, without
// invoking resourceCloser (the caller now owns it).
func RemoveResource[T any](w *World) (T, bool) {
	t := reflect.TypeFor[T]()
	w.resources.mu.Lock()
	defer w.resources.mu.Unlock()
	slot, ok := w.resources.sync[t]
	if !ok {
		var zero T
		return zero, false
	}
	delete(w.resources.sync, t)
	return *slot.value.(*T), true
}

// RemoveLocalResource deletes and returns the local resource of type T.
func RemoveLocalResource[T any](w *World) (T, bool) {
	t := reflect.TypeFor[T]()
	slot, ok := w.resources.local[t]
	if !ok {
		var zero T
		return zero, false
	}
	delete(w.resources.local, t)
	return *slot.value.(*T), true
}

// HasResource reports whether a Sync resource of type T is present.
func HasResource[T any](w *World) bool {
	t := reflect.TypeFor[T]()
	w.resources.mu.RLock()
	defer w.resources.mu.RUnlock()
	_, ok := w.resources.sync[t]
	return ok
}

// GetLocalResourceMut is an alias of GetLocalResource, for the same reason
// GetResourceMut aliases GetResource: local slots are already boxed.
func GetLocalResourceMut[T any](w *World) (*T, bool) {
	return GetLocalResource[T](w)
}

// WithResource returns the Sync resource of type T, inserting makeDefault()
// as its initial value if none is present yet.
func WithResource[T any](w *World, makeDefault func() T) *T {
	if v, ok := GetResource[T](w); ok {
		return v
	}
	InsertResource(w, makeDefault())
	v, _ := GetResource[T](w)
	return v
}

// ExpectResource returns the Sync resource of type T, panicking if absent.
func ExpectResource[T any](w *World) *T {
	v, ok := GetResource[T](w)
	if !ok {
		panic("archecs: expected resource not present: " + reflect.TypeFor[T]().String())
	}
	return v
}

// ExpectResourceMut is an alias of ExpectResource.
func ExpectResourceMut[T any](w *World) *T {
	return ExpectResource[T](w)
}

// CopyResource returns a shallow copy of the Sync resource of type T.
func CopyResource[T any](w *World) (T, bool) {
	v, ok := GetResource[T](w)
	if !ok {
		var zero T
		return zero, false
	}
	return *v, true
}

// CloneResource is an alias of CopyResource: every resource value in this
// core is a plain Go value, so "clone" and "copy" coincide.
func CloneResource[T any](w *World) (T, bool) {
	return CopyResource[T](w)
}

// UndoResourceLeaks removes every Sync and local resource without invoking
// resourceCloser, for test teardown that wants a clean slate without relying
// on World.Close's closing semantics.
func (w *World) UndoResourceLeaks() {
	w.resources.mu.Lock()
	defer w.resources.mu.Unlock()
	w.resources.sync = make(map[reflect.Type]*resourceSlot)
	w.resources.local = make(map[reflect.Type]*resourceSlot)
}

// ResourceTypes returns the reflect.Type of every Sync resource currently
// installed, in no particular order.
func (w *World) ResourceTypes() []reflect.Type {
	w.resources.mu.RLock()
	defer w.resources.mu.RUnlock()
	types := make([]reflect.Type, 0, len(w.resources.sync))
	for t := range w.resources.sync {
		types = append(types, t)
	}
	return types
}
