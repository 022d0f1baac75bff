package archecs

import (
	"reflect"
	"testing"
	"unsafe"
)

type testPosition struct{ X, Y float32 }
type testVelocity struct{ DX, DY float32 }

func TestComponentIDForIsStable(t *testing.T) {
	id1 := ComponentIDFor[testPosition]()
	id2 := ComponentIDFor[testVelocity]()
	id3 := ComponentIDFor[testPosition]()
	if id1 != id3 {
		t.Fatalf("expected the same id for the same type, got %d and %d", id1, id3)
	}
	if id1 == id2 {
		t.Fatalf("expected different ids for different types")
	}
	typ, ok := TypeOfComponent(id1)
	if !ok || typ != reflect.TypeFor[testPosition]() {
		t.Fatalf("TypeOfComponent mismatch: %v ok=%v", typ, ok)
	}
}

func TestComponentRegistryImplicitRegistration(t *testing.T) {
	r := newComponentRegistry()
	info := r.ensure(reflect.TypeFor[testPosition]())
	if info.Size != reflect.TypeFor[testPosition]().Size() {
		t.Fatalf("unexpected size %d", info.Size)
	}
	again := r.ensure(reflect.TypeFor[testPosition]())
	if again != info {
		t.Fatalf("expected ensure to return the same *ComponentInfo on repeat calls")
	}
}

func TestComponentRegistryExternalOverride(t *testing.T) {
	r := newComponentRegistry()
	id := ComponentIDFor[testPosition]()
	var dropped bool
	custom := &ComponentInfo{
		ID:   id,
		Type: reflect.TypeFor[testPosition](),
		Name: "custom-position",
		Drop: func(unsafe.Pointer) { dropped = true },
	}
	r.registerExternal(custom)
	got, ok := r.get(id)
	if !ok || got.Name != "custom-position" {
		t.Fatalf("expected registerExternal to install the custom info")
	}
	got.Drop(nil)
	if !dropped {
		t.Fatalf("expected custom drop glue to run")
	}
}
