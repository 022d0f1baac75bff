package archecs

import (
	"reflect"
	"unsafe"
)

// bundleSpec is the shape every Spawn/Insert call needs: the set of
// component types it carries, and a way to write each one into storage once
// a destination pointer is known. Bundle1..Bundle4 implement it for the
// common static-arity case (known types at compile time, no reflection on
// the write path besides a ComponentIDFor lookup per component); DynamicBundle
// implements it for the variable-width case spec.md's dynamic bundle API
// needs.
type bundleSpec interface {
	componentIDs() []ComponentID
	writeInto(get func(id ComponentID) unsafe.Pointer)
}

// Bundle1 carries a single typed component.
type Bundle1[A any] struct {
	A A
}

func (b Bundle1[A]) componentIDs() []ComponentID {
	return []ComponentID{ComponentIDFor[A]()}
}

func (b Bundle1[A]) writeInto(get func(id ComponentID) unsafe.Pointer) {
	*(*A)(get(ComponentIDFor[A]())) = b.A
}

// Bundle2 carries two typed components.
type Bundle2[A, B any] struct {
	A A
	B B
}

func (b Bundle2[A, B]) componentIDs() []ComponentID {
	return []ComponentID{ComponentIDFor[A](), ComponentIDFor[B]()}
}

func (b Bundle2[A, B]) writeInto(get func(id ComponentID) unsafe.Pointer) {
	*(*A)(get(ComponentIDFor[A]())) = b.A
	*(*B)(get(ComponentIDFor[B]())) = b.B
}

// Bundle3 carries three typed components.
type Bundle3[A, B, C any] struct {
	A A
	B B
	C C
}

func (b Bundle3[A, B, C]) componentIDs() []ComponentID {
	return []ComponentID{ComponentIDFor[A](), ComponentIDFor[B](), ComponentIDFor[C]()}
}

func (b Bundle3[A, B, C]) writeInto(get func(id ComponentID) unsafe.Pointer) {
	*(*A)(get(ComponentIDFor[A]())) = b.A
	*(*B)(get(ComponentIDFor[B]())) = b.B
	*(*C)(get(ComponentIDFor[C]())) = b.C
}

// Bundle4 carries four typed components.
type Bundle4[A, B, C, D any] struct {
	A A
	B B
	C C
	D D
}

func (b Bundle4[A, B, C, D]) componentIDs() []ComponentID {
	return []ComponentID{ComponentIDFor[A](), ComponentIDFor[B](), ComponentIDFor[C](), ComponentIDFor[D]()}
}

func (b Bundle4[A, B, C, D]) writeInto(get func(id ComponentID) unsafe.Pointer) {
	*(*A)(get(ComponentIDFor[A]())) = b.A
	*(*B)(get(ComponentIDFor[B]())) = b.B
	*(*C)(get(ComponentIDFor[C]())) = b.C
	*(*D)(get(ComponentIDFor[D]())) = b.D
}

// DynamicBundle carries a runtime-determined set of components, each boxed
// as `any`. It is the bundle flavour for code that does not know its
// component set at compile time (deserializing a prefab, scripting
// bindings) — spec.md's "dynamic bundle" operation.
type DynamicBundle struct {
	ids    []ComponentID
	types  []reflect.Type
	values []any
}

// NewDynamicBundle builds a DynamicBundle from a set of component values.
// Passing the same concrete type twice panics: a bundle's component set must
// be a set, not a multiset.
func NewDynamicBundle(values ...any) *DynamicBundle {
	d := &DynamicBundle{
		ids:    make([]ComponentID, len(values)),
		types:  make([]reflect.Type, len(values)),
		values: values,
	}
	seen := make(map[ComponentID]reflect.Type, len(values))
	for i, v := range values {
		t := reflect.TypeOf(v)
		id := typeID(t)
		if prev, ok := seen[id]; ok {
			panic("archecs: duplicate component type " + prev.String() + " in dynamic bundle")
		}
		seen[id] = t
		d.types[i] = t
		d.ids[i] = id
	}
	return d
}

func (d *DynamicBundle) componentIDs() []ComponentID {
	return d.ids
}

func (d *DynamicBundle) writeInto(get func(id ComponentID) unsafe.Pointer) {
	for i, id := range d.ids {
		dst := get(id)
		reflect.NewAt(d.types[i], dst).Elem().Set(reflect.ValueOf(d.values[i]))
	}
}

// emptyBundle spawns an entity with no components.
type emptyBundle struct{}

func (emptyBundle) componentIDs() []ComponentID                  { return nil }
func (emptyBundle) writeInto(get func(id ComponentID) unsafe.Pointer) {}
