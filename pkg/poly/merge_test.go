package poly

import (
	"testing"

	"github.com/Faultbox/midgard-csg/pkg/math"
)

func TestTryToMerge(t *testing.T) {
	a := square(0, 0, 1)
	b := square(1, 0, 1)
	if !TryToMerge(&a, &b, 16) {
		t.Fatal("TryToMerge = false for two adjacent squares")
	}
	if len(a.Vertices) != 4 {
		t.Errorf("merged polygon has %d vertices, want 4", len(a.Vertices))
	}
	if !approx(a.Area(), 2) {
		t.Errorf("merged area = %v, want 2", a.Area())
	}
	if len(b.Vertices) != 0 {
		t.Error("second polygon should be emptied")
	}
}

func TestTryToMergeRejectsPartialEdge(t *testing.T) {
	a := square(0, 0, 2)
	b := square(2, 0, 1)
	// b shares only part of a's edge, so no full shared edge exists.
	if TryToMerge(&a, &b, 16) {
		t.Error("TryToMerge should reject polygons without a shared edge")
	}
}

func TestOptimizeIntoConvexPolys(t *testing.T) {
	polys := []Poly{square(0, 0, 1), square(1, 0, 1), square(0, 1, 1), square(1, 1, 1)}
	before := 0.0
	for i := range polys {
		before += polys[i].Area()
	}
	out := OptimizeIntoConvexPolys(polys)
	if len(out) != 1 {
		t.Fatalf("got %d polygons, want 1", len(out))
	}
	if !approx(out[0].Area(), before) {
		t.Errorf("area = %v, want %v", out[0].Area(), before)
	}
	if !out[0].IsConvex() {
		t.Error("merged polygon is not convex")
	}
	if !out[0].Normal.Equals(math.AxisZ, 1e-12) {
		t.Errorf("normal = %v", out[0].Normal)
	}
}

func TestOptimizeKeepsConcaveSplit(t *testing.T) {
	// Three squares in an L can merge at most into two convex pieces.
	polys := []Poly{square(0, 0, 1), square(1, 0, 1), square(0, 1, 1)}
	out := OptimizeIntoConvexPolys(polys)
	if len(out) != 2 {
		t.Fatalf("got %d polygons, want 2", len(out))
	}
	total := 0.0
	for i := range out {
		total += out[i].Area()
		if !out[i].IsConvex() {
			t.Errorf("polygon %d not convex", i)
		}
	}
	if !approx(total, 3) {
		t.Errorf("area = %v, want 3", total)
	}
}

func TestGetOutsideWindings(t *testing.T) {
	polys := []Poly{square(0, 0, 1), square(1, 0, 1)}
	loops := GetOutsideWindings(polys, false)
	if len(loops) != 1 {
		t.Fatalf("got %d loops, want 1", len(loops))
	}
	if len(loops[0]) != 6 {
		t.Errorf("loop has %d points, want 6", len(loops[0]))
	}
	ring := New(loops[0]...)
	if n := sumNormal(ring.Vertices).Normalize(); !n.Equals(math.AxisZ, 1e-9) {
		t.Errorf("loop winds around %v, want +Z", n)
	}
	flipped := GetOutsideWindings(polys, true)
	if n := sumNormal(flipped[0]).Normalize(); !n.Equals(math.Vec3{Z: -1}, 1e-9) {
		t.Errorf("flipped loop winds around %v, want -Z", n)
	}
}
