package archecs

import "testing"

func TestDynamicBundleSpawn(t *testing.T) {
	w := NewWorld(WorldOptions{})
	bundle := NewDynamicBundle(testPosition{X: 5, Y: 6}, testVelocity{DX: 1})
	id := SpawnDynamic(w, bundle)

	pos, ok := Get[testPosition](w, id)
	if !ok || pos.X != 5 || pos.Y != 6 {
		t.Fatalf("unexpected position %+v ok=%v", pos, ok)
	}
	vel, ok := Get[testVelocity](w, id)
	if !ok || vel.DX != 1 {
		t.Fatalf("unexpected velocity %+v ok=%v", vel, ok)
	}
}

func TestSpawnEmptyThenInsertBundle(t *testing.T) {
	w := NewWorld(WorldOptions{})
	id := SpawnEmpty(w)
	if Has[testPosition](w, id) {
		t.Fatalf("expected a freshly spawned empty entity to carry nothing")
	}
	InsertBundle(w, id, Bundle2[testPosition, testVelocity]{
		A: testPosition{X: 1},
		B: testVelocity{DX: 2},
	})
	if !Has[testPosition](w, id) || !Has[testVelocity](w, id) {
		t.Fatalf("expected InsertBundle to add both components")
	}
}
