package rng

import "testing"

func TestSameSeedSameSequence(t *testing.T) {
	a, b := New(42), New(42)
	for i := 0; i < 100; i++ {
		if x, y := a.BetweenClosed(0, 1000), b.BetweenClosed(0, 1000); x != y {
			t.Fatalf("draw %d: %d != %d", i, x, y)
		}
	}
}

func TestBetweenClosedBounds(t *testing.T) {
	r := New(1)
	seenLo, seenHi := false, false
	for i := 0; i < 500; i++ {
		v := r.BetweenClosed(5, 2)
		if v < 2 || v > 5 {
			t.Fatalf("out of range: %d", v)
		}
		seenLo = seenLo || v == 2
		seenHi = seenHi || v == 5
	}
	if !seenLo || !seenHi {
		t.Fatalf("bounds not inclusive: lo=%v hi=%v", seenLo, seenHi)
	}
	if v := r.BetweenClosed(3, 3); v != 3 {
		t.Fatalf("degenerate range: %d", v)
	}
}

func TestPercentAndPickEdges(t *testing.T) {
	r := New(7)
	for i := 0; i < 200; i++ {
		if r.Percent(0) {
			t.Fatalf("Percent(0) returned true")
		}
		if !r.Percent(100) {
			t.Fatalf("Percent(100) returned false")
		}
		if r.Chance(0) {
			t.Fatalf("Chance(0) returned true")
		}
	}
	if got := r.Pick(0); got != -1 {
		t.Fatalf("Pick(0)=%d", got)
	}
	if got := r.Pick(1); got != 0 {
		t.Fatalf("Pick(1)=%d", got)
	}
}
