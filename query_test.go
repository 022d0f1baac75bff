package archecs

import "testing"

func TestQuery2VisitsMatchingEntities(t *testing.T) {
	w := NewWorld(WorldOptions{})
	a := Spawn2(w, testPosition{X: 1}, testVelocity{DX: 1})
	b := Spawn2(w, testPosition{X: 2}, testVelocity{DX: 2})
	Spawn1(w, testPosition{X: 3}) // no velocity, must be excluded

	seen := map[EntityID]float32{}
	for id, item := range Query2[testPosition, testVelocity](w) {
		seen[id] = item.C1.X + item.C2.DX
	}
	if len(seen) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(seen))
	}
	if seen[a] != 2 || seen[b] != 4 {
		t.Fatalf("unexpected aggregated values: %+v", seen)
	}
}

func TestQueryMut1WritesThrough(t *testing.T) {
	w := NewWorld(WorldOptions{})
	id := Spawn1(w, testPosition{X: 1})

	for _, item := range QueryMut1[testPosition](w) {
		item.C1.X += 41
	}
	pos, _ := Get[testPosition](w, id)
	if pos.X != 42 {
		t.Fatalf("expected mutation to persist, got %+v", pos)
	}
}

func TestQueryWithWithoutFilters(t *testing.T) {
	w := NewWorld(WorldOptions{})
	a := Spawn2(w, testPosition{X: 1}, testVelocity{DX: 1})
	Spawn1(w, testPosition{X: 2})

	var gotWith, gotWithout []EntityID
	for id := range Entities(w, With[testVelocity]()) {
		gotWith = append(gotWith, id)
	}
	for id := range Entities(w, Without[testVelocity]()) {
		gotWithout = append(gotWithout, id)
	}
	if len(gotWith) != 1 || gotWith[0] != a {
		t.Fatalf("expected only %v to match With, got %v", a, gotWith)
	}
	if len(gotWithout) != 1 || gotWithout[0] == a {
		t.Fatalf("expected the other entity to match Without, got %v", gotWithout)
	}
}

func TestQueryModifiedFilter(t *testing.T) {
	w := NewWorld(WorldOptions{})
	id := Spawn1(w, testPosition{X: 1})
	checkpoint := w.Epoch()

	count := func() int {
		n := 0
		for range Query1[testPosition](w, Modified[testPosition](checkpoint)) {
			n++
		}
		return n
	}
	if count() != 0 {
		t.Fatalf("expected no modifications yet")
	}
	if _, ok := GetMut[testPosition](w, id); !ok {
		t.Fatalf("expected GetMut to find the component")
	}
	if count() != 1 {
		t.Fatalf("expected the modified filter to catch the GetMut touch")
	}
}

func TestQueryMutAdvancesEpochExactlyOncePerPass(t *testing.T) {
	w := NewWorld(WorldOptions{})
	for i := 0; i < 5; i++ {
		Spawn2(w, testPosition{X: float32(i)}, testVelocity{DX: float32(i)})
	}
	before := w.Epoch()

	for _, item := range QueryMut2[testPosition, testVelocity](w) {
		item.C1.X += 1
		item.C2.DX += 1
	}

	after := w.Epoch()
	if after != before+1 {
		t.Fatalf("expected exactly one epoch advance for the whole pass, got before=%d after=%d", before, after)
	}
}

func TestQueryMutMutableAliasPanics(t *testing.T) {
	w := NewWorld(WorldOptions{})
	Spawn1(w, testPosition{X: 1})

	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected QueryMut2[testPosition, testPosition] to panic with a WriteAlias")
		}
		if _, ok := r.(*WriteAlias); !ok {
			t.Fatalf("expected a *WriteAlias panic, got %#v", r)
		}
	}()
	for range QueryMut2[testPosition, testPosition](w) {
	}
}

func TestQueryOptionCombinatorFetchesAbsentAsNotOK(t *testing.T) {
	w := NewWorld(WorldOptions{})
	withVel := Spawn2(w, testPosition{X: 1}, testVelocity{DX: 9})
	withoutVel := Spawn1(w, testPosition{X: 2})

	results := map[EntityID]Item1Option1[testPosition, testVelocity]{}
	for id, item := range Query1Option1[testPosition, testVelocity](w) {
		results[id] = item
	}
	if len(results) != 2 {
		t.Fatalf("expected both entities to match the required-only component, got %d", len(results))
	}
	if !results[withVel].Opt1.Ok || results[withVel].Opt1.V.DX != 9 {
		t.Fatalf("expected the optional fetch to be present for %v, got %+v", withVel, results[withVel].Opt1)
	}
	if results[withoutVel].Opt1.Ok {
		t.Fatalf("expected the optional fetch to be absent for %v, got %+v", withoutVel, results[withoutVel].Opt1)
	}
}

func TestQueryEarlyExit(t *testing.T) {
	w := NewWorld(WorldOptions{})
	for i := 0; i < 10; i++ {
		Spawn1(w, testPosition{X: float32(i)})
	}
	n := 0
	for range Query1[testPosition](w) {
		n++
		if n == 3 {
			break
		}
	}
	if n != 3 {
		t.Fatalf("expected range-over-func break to stop iteration at 3, got %d", n)
	}
}
