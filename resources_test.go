package archecs

import "testing"

type testCounter struct{ N int }

func TestResourceInsertGetMutPersists(t *testing.T) {
	w := NewWorld(WorldOptions{})
	InsertResource(w, testCounter{N: 1})

	c, ok := GetResourceMut[testCounter](w)
	if !ok {
		t.Fatalf("expected resource to be present")
	}
	c.N += 41

	again, ok := GetResource[testCounter](w)
	if !ok || again.N != 42 {
		t.Fatalf("expected mutation through GetResourceMut to persist, got %+v ok=%v", again, ok)
	}
}

func TestResourceRemove(t *testing.T) {
	w := NewWorld(WorldOptions{})
	InsertResource(w, testCounter{N: 7})
	if !HasResource[testCounter](w) {
		t.Fatalf("expected resource to be present")
	}
	got, ok := RemoveResource[testCounter](w)
	if !ok || got.N != 7 {
		t.Fatalf("unexpected removed value %+v ok=%v", got, ok)
	}
	if HasResource[testCounter](w) {
		t.Fatalf("expected resource to be gone after Remove")
	}
}

type closingResource struct{ closed *bool }

func (c closingResource) Close() error {
	*c.closed = true
	return nil
}

func TestResourceCloseOnWorldClose(t *testing.T) {
	w := NewWorld(WorldOptions{})
	closed := false
	InsertResource(w, closingResource{closed: &closed})
	w.Close()
	if !closed {
		t.Fatalf("expected World.Close to close resources implementing resourceCloser")
	}
}

func TestLocalResource(t *testing.T) {
	w := NewWorld(WorldOptions{})
	InsertLocalResource(w, testCounter{N: 3})
	c, ok := GetLocalResource[testCounter](w)
	if !ok || c.N != 3 {
		t.Fatalf("unexpected local resource %+v ok=%v", c, ok)
	}
	removed, ok := RemoveLocalResource[testCounter](w)
	if !ok || removed.N != 3 {
		t.Fatalf("unexpected removed local resource %+v ok=%v", removed, ok)
	}
}

func TestLocalResourceMutAliasesStorage(t *testing.T) {
	w := NewWorld(WorldOptions{})
	InsertLocalResource(w, testCounter{N: 1})
	c, ok := GetLocalResourceMut[testCounter](w)
	if !ok {
		t.Fatalf("expected local resource to be present")
	}
	c.N += 9
	again, _ := GetLocalResource[testCounter](w)
	if again.N != 10 {
		t.Fatalf("expected mutation through GetLocalResourceMut to persist, got %+v", again)
	}
}

func TestWithResourceInsertsDefaultOnlyOnce(t *testing.T) {
	w := NewWorld(WorldOptions{})
	first := WithResource(w, func() testCounter { return testCounter{N: 5} })
	first.N++
	second := WithResource(w, func() testCounter { return testCounter{N: 99} })
	if second.N != 6 {
		t.Fatalf("expected WithResource to keep the existing value, got %+v", second)
	}
}

func TestExpectResourcePanicsWhenAbsent(t *testing.T) {
	w := NewWorld(WorldOptions{})
	defer func() {
		if recover() == nil {
			t.Fatalf("expected ExpectResource to panic for a missing resource")
		}
	}()
	ExpectResource[testCounter](w)
}

func TestCopyAndCloneResource(t *testing.T) {
	w := NewWorld(WorldOptions{})
	InsertResource(w, testCounter{N: 4})
	copied, ok := CopyResource[testCounter](w)
	if !ok || copied.N != 4 {
		t.Fatalf("unexpected copied resource %+v ok=%v", copied, ok)
	}
	cloned, ok := CloneResource[testCounter](w)
	if !ok || cloned.N != 4 {
		t.Fatalf("unexpected cloned resource %+v ok=%v", cloned, ok)
	}
	copied.N = 1000
	fresh, _ := GetResource[testCounter](w)
	if fresh.N != 4 {
		t.Fatalf("expected CopyResource to return an independent copy, storage now %+v", fresh)
	}
}

func TestResourceTypesAndUndoResourceLeaks(t *testing.T) {
	w := NewWorld(WorldOptions{})
	InsertResource(w, testCounter{N: 1})
	types := w.ResourceTypes()
	if len(types) != 1 {
		t.Fatalf("expected exactly one resource type, got %v", types)
	}
	w.UndoResourceLeaks()
	if HasResource[testCounter](w) {
		t.Fatalf("expected UndoResourceLeaks to clear every resource")
	}
}
