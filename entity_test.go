package archecs

import "testing"

func TestEntitySetSpawnAndDespawn(t *testing.T) {
	es := NewEntitySet(nil)
	id, loc := es.Spawn(0, func(EntityID) uint32 { return 7 })
	if id.IsZero() {
		t.Fatalf("expected non-zero id")
	}
	if loc.Archetype != 0 || loc.Row != 7 {
		t.Fatalf("unexpected location %+v", loc)
	}
	got, ok := es.GetLocation(id)
	if !ok || got != loc {
		t.Fatalf("GetLocation mismatch: got %+v ok=%v want %+v", got, ok, loc)
	}
	old, ok := es.Despawn(id)
	if !ok || old != loc {
		t.Fatalf("Despawn mismatch: got %+v ok=%v want %+v", old, ok, loc)
	}
	if es.IsAlive(id) {
		t.Fatalf("expected id to be dead after despawn")
	}
}

func TestEntitySetSpawnAtRejectsDuplicate(t *testing.T) {
	es := NewEntitySet(nil)
	id := EntityID(42)
	loc, ok := es.SpawnAt(id, 0, func(EntityID) uint32 { return 0 })
	if !ok {
		t.Fatalf("expected first SpawnAt to succeed")
	}
	if loc.Archetype != 0 {
		t.Fatalf("unexpected archetype %d", loc.Archetype)
	}
	if _, ok := es.SpawnAt(id, 0, func(EntityID) uint32 { return 1 }); ok {
		t.Fatalf("expected SpawnAt to reject an already-alive id")
	}
}

func TestEntitySetAllocReservesThenDrains(t *testing.T) {
	es := NewEntitySet(nil)
	loc1 := es.Alloc()
	loc2 := es.Alloc()
	if !loc1.Location.Reserved() || !loc2.Location.Reserved() {
		t.Fatalf("expected reserved locations from Alloc")
	}
	if !es.IsAlive(loc1.ID) || !es.IsAlive(loc2.ID) {
		t.Fatalf("expected ids to be alive immediately after Alloc")
	}
	drained := es.DrainPending()
	if len(drained) != 2 {
		t.Fatalf("expected 2 pending ids, got %d", len(drained))
	}
	if len(es.DrainPending()) != 0 {
		t.Fatalf("expected DrainPending to empty the pending list")
	}
}

func TestEntitySetSpawnAtZeroIsLegalOnlyWhenFree(t *testing.T) {
	es := NewEntitySet(nil)
	id, loc := es.Spawn(0, func(EntityID) uint32 { return 0 })
	es.Despawn(id)
	// SpawnAt on a previously despawned id is legal again.
	_, ok := es.SpawnAt(id, 0, func(EntityID) uint32 { return 0 })
	if !ok {
		t.Fatalf("expected SpawnAt to succeed on a despawned id")
	}
	_ = loc
}
