package archecs

import "testing"

func TestEpochCounterNextIf(t *testing.T) {
	c := NewEpochCounter()
	start := c.Current()
	if got := c.NextIf(false); got != start {
		t.Fatalf("NextIf(false) should not advance: got %d want %d", got, start)
	}
	advanced := c.NextIf(true)
	if !advanced.After(start) {
		t.Fatalf("NextIf(true) should advance past %d, got %d", start, advanced)
	}
	if c.Current() != advanced {
		t.Fatalf("Current() should reflect the last mutable advance")
	}
}

func TestEpochCounterNextMut(t *testing.T) {
	c := NewEpochCounter()
	a := c.NextMut()
	b := c.NextMut()
	if !b.After(a) {
		t.Fatalf("successive NextMut calls must strictly increase: %d then %d", a, b)
	}
}

func TestEpochOverflowPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected overflow to panic")
		}
	}()
	c := &EpochCounter{}
	c.value.Store(^uint64(0))
	c.NextMut()
}
