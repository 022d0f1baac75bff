package archecs

import (
	"reflect"
	"sync"
	"unsafe"
)

// ComponentID is a process-wide, stable identifier for a Go type used as a
// component. Ids are assigned on first use (by RegisterComponent,
// RegisterExternal, or implicitly the first time a type is spawned) and
// never reused, mirroring the teacher's RegisterComponent[T]/GetID[T]
// globals (component.go) but adding per-world ComponentInfo on top.
type ComponentID uint32

var (
	typeRegistryMu  sync.RWMutex
	typeToComponent = map[reflect.Type]ComponentID{}
	componentToType = map[ComponentID]reflect.Type{}
	nextComponentID ComponentID
)

func typeID(t reflect.Type) ComponentID {
	typeRegistryMu.RLock()
	id, ok := typeToComponent[t]
	typeRegistryMu.RUnlock()
	if ok {
		return id
	}
	typeRegistryMu.Lock()
	defer typeRegistryMu.Unlock()
	if id, ok := typeToComponent[t]; ok {
		return id
	}
	id = nextComponentID
	nextComponentID++
	typeToComponent[t] = id
	componentToType[id] = t
	return id
}

// ComponentIDFor returns the stable ComponentID for T, assigning one on
// first use.
func ComponentIDFor[T any]() ComponentID {
	return typeID(reflect.TypeFor[T]())
}

// TypeOfComponent returns the reflect.Type registered under id, if any.
func TypeOfComponent(id ComponentID) (reflect.Type, bool) {
	typeRegistryMu.RLock()
	defer typeRegistryMu.RUnlock()
	t, ok := componentToType[id]
	return t, ok
}

// DropFunc runs a component's destructor, if it has one (e.g. to close a
// handle embedded in the component). ptr points at a single live element.
type DropFunc func(ptr unsafe.Pointer)

// CloneFunc copies src onto dst using the component's own semantics (only
// registered for components an explicit bundle clone needs).
type CloneFunc func(dst, src unsafe.Pointer)

// DropHook is invoked once per component value dropped, either via an
// explicit Drop/Remove or as a side effect of despawning the owning entity.
// It may record further structural changes through enc.
type DropHook func(id EntityID, ptr unsafe.Pointer, enc *ActionEncoder)

// ReplaceHook is invoked when Set overwrites an existing component value; it
// returns whether the component's own drop glue should additionally run on
// the old value.
type ReplaceHook func(id EntityID, oldPtr, newPtr unsafe.Pointer, enc *ActionEncoder) (runDrop bool)

// ComponentBorrow converts a raw (ptr) for a registered component into a
// trait-object-shaped value of Target, without the caller needing to know
// the component's concrete type. Every ComponentInfo always carries at
// least two borrows: an identity borrow to itself, and a borrow to `any`.
type ComponentBorrow struct {
	Target    reflect.Type
	Borrow    func(ptr unsafe.Pointer) any
	BorrowMut func(ptr unsafe.Pointer) any // nil if this target cannot be borrowed mutably
}

// ComponentInfo is everything the runtime needs to know about a component
// type: its layout, its destructor/hooks, and its borrow vtables.
type ComponentInfo struct {
	ID      ComponentID
	Type    reflect.Type
	Name    string
	Size    uintptr
	Align   uintptr

	Drop      DropFunc
	Clone     CloneFunc
	OnDrop    DropHook
	OnReplace ReplaceHook

	Borrows []ComponentBorrow
}

func defaultComponentInfo(id ComponentID, t reflect.Type) *ComponentInfo {
	align := uintptr(t.Align())
	if align == 0 {
		align = 1
	}
	info := &ComponentInfo{
		ID:    id,
		Type:  t,
		Name:  t.String(),
		Size:  t.Size(),
		Align: align,
	}
	info.Borrows = []ComponentBorrow{identityBorrow(t), anyBorrow(t)}
	return info
}

func identityBorrow(t reflect.Type) ComponentBorrow {
	return ComponentBorrow{
		Target: t,
		Borrow: func(ptr unsafe.Pointer) any {
			return reflect.NewAt(t, ptr).Elem().Interface()
		},
		BorrowMut: func(ptr unsafe.Pointer) any {
			return reflect.NewAt(t, ptr).Interface()
		},
	}
}

func anyBorrow(t reflect.Type) ComponentBorrow {
	anyType := reflect.TypeFor[any]()
	return ComponentBorrow{
		Target: anyType,
		Borrow: func(ptr unsafe.Pointer) any {
			return reflect.NewAt(t, ptr).Elem().Interface()
		},
	}
}

// componentRegistry holds the ComponentInfo for every component type a
// specific World has seen, whether registered implicitly (first use) or
// explicitly through WorldBuilder.
type componentRegistry struct {
	mu    sync.RWMutex
	infos map[ComponentID]*ComponentInfo
}

func newComponentRegistry() *componentRegistry {
	return &componentRegistry{infos: make(map[ComponentID]*ComponentInfo, 32)}
}

// ensure returns the ComponentInfo for t, registering it with defaults if
// this is the first time this World has seen it (implicit registration).
func (r *componentRegistry) ensure(t reflect.Type) *ComponentInfo {
	id := typeID(t)
	r.mu.RLock()
	info, ok := r.infos[id]
	r.mu.RUnlock()
	if ok {
		return info
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if info, ok := r.infos[id]; ok {
		return info
	}
	info = defaultComponentInfo(id, t)
	r.infos[id] = info
	return info
}

// registerExternal installs a caller-supplied ComponentInfo, overriding any
// default that implicit use would otherwise install. Used by
// WorldBuilder.RegisterExternal.
func (r *componentRegistry) registerExternal(info *ComponentInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.infos[info.ID] = info
}

func (r *componentRegistry) get(id ComponentID) (*ComponentInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.infos[id]
	return info, ok
}

// iterInfo calls f for every registered ComponentInfo, in no particular
// order.
func (r *componentRegistry) iterInfo(f func(*ComponentInfo)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, info := range r.infos {
		f(info)
	}
}

// RegisterComponent ensures T has a ComponentInfo on w, registering with
// defaults if w has not seen T before. Returns the type's stable ComponentID.
func RegisterComponent[T any](w *World) ComponentID {
	t := reflect.TypeFor[T]()
	info := w.registry.ensure(t)
	return info.ID
}
