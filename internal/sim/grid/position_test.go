package grid

import "testing"

func TestWrapIdempotentAndDistanceSymmetric(t *testing.T) {
	geo := Geometry{Width: 10, Height: 7}
	pts := []Position{{0, 0}, {-1, -1}, {9, 6}, {23, -15}, {5, 3}, {-10, 7}}
	for _, p := range pts {
		w := geo.Wrap(p)
		if !geo.InBounds(w) {
			t.Fatalf("wrap(%v)=%v out of bounds", p, w)
		}
		if geo.Wrap(w) != w {
			t.Fatalf("wrap not idempotent for %v", p)
		}
		for _, q := range pts {
			if geo.Distance(p, q) != geo.Distance(q, p) {
				t.Fatalf("distance asymmetric for %v %v", p, q)
			}
			if d := geo.Distance(p, q); d > geo.Width/2+geo.Height/2 {
				t.Fatalf("distance %d exceeds torus bound for %v %v", d, p, q)
			}
		}
	}
	if d := geo.Distance(Position{0, 0}, Position{9, 0}); d != 1 {
		t.Fatalf("expected wrap distance 1, got %d", d)
	}
	if d := geo.Distance(Position{0, 0}, Position{0, 6}); d != 1 {
		t.Fatalf("expected wrap distance 1 on y, got %d", d)
	}
}

func TestSpanAreaSizes(t *testing.T) {
	geo := Geometry{Width: 20, Height: 20}
	want := []int{1, 5, 13, 25}
	for r, n := range want {
		if got := len(geo.SpanArea(Position{0, 0}, r)); got != n {
			t.Fatalf("span r=%d: got %d want %d", r, got, n)
		}
	}
	small := Geometry{Width: 3, Height: 3}
	if got := len(small.SpanArea(Position{1, 1}, 5)); got != 9 {
		t.Fatalf("span larger than grid must not duplicate: got %d", got)
	}
}

func TestRotated90(t *testing.T) {
	geo := Geometry{Width: 10, Height: 10}
	c := Position{5, 5}
	north := Position{5, 4}
	if got := geo.Rotated90(north, c, true); got != (Position{6, 5}) {
		t.Fatalf("cw of north: %v", got)
	}
	if got := geo.Rotated90(north, c, false); got != (Position{4, 5}) {
		t.Fatalf("ccw of north: %v", got)
	}
	p := Position{7, 4}
	q := p
	for i := 0; i < 4; i++ {
		q = geo.Rotated90(q, c, true)
	}
	if q != p {
		t.Fatalf("four rotations should be identity: %v", q)
	}
	// Across the seam.
	edge := Position{0, 0}
	if got := geo.Rotated90(Position{9, 0}, edge, true); got != (Position{0, 9}) {
		t.Fatalf("cw across seam: %v", got)
	}
}

func TestParseDirection(t *testing.T) {
	for _, s := range []string{"n", "s", "e", "w"} {
		if _, ok := ParseDirection(s); !ok {
			t.Fatalf("expected %q valid", s)
		}
	}
	if _, ok := ParseDirection("north"); ok {
		t.Fatalf("expected invalid direction")
	}
}
