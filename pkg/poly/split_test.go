package poly

import (
	"testing"

	"github.com/Faultbox/midgard-csg/pkg/math"
)

func TestSplitUnitSquare(t *testing.T) {
	p := square(0, 0, 1)
	var front, back Poly
	got := p.SplitWithPlane(math.Vec3{X: 0.5}, math.AxisX, &front, &back, true)
	if got != SplitSplit {
		t.Fatalf("SplitWithPlane = %v, want split", got)
	}
	for name, half := range map[string]*Poly{"front": &front, "back": &back} {
		if len(half.Vertices) != 4 {
			t.Errorf("%s has %d vertices, want 4", name, len(half.Vertices))
		}
		if !approx(half.Area(), 0.5) {
			t.Errorf("%s area = %v, want 0.5", name, half.Area())
		}
		if !half.IsConvex() {
			t.Errorf("%s is not convex", name)
		}
		if !half.Flags.Has(FlagEdCut) {
			t.Errorf("%s not marked as cut", name)
		}
	}
	for _, v := range front.Vertices {
		if v.X < 0.5-1e-9 {
			t.Errorf("front vertex %v behind plane", v)
		}
	}
	for _, v := range back.Vertices {
		if v.X > 0.5+1e-9 {
			t.Errorf("back vertex %v in front of plane", v)
		}
	}
}

func TestSplitClassification(t *testing.T) {
	p := square(0, 0, 1)
	tests := []struct {
		name   string
		base   math.Vec3
		normal math.Vec3
		want   SplitResult
	}{
		{"front", math.Vec3{X: -1}, math.AxisX, SplitFront},
		{"back", math.Vec3{X: 2}, math.AxisX, SplitBack},
		{"coplanar", math.Vec3{}, math.AxisZ, SplitCoplanar},
		{"coplanar flipped", math.Vec3{}, math.Vec3{Z: -1}, SplitCoplanar},
		{"touching edge", math.Vec3{X: 1}, math.AxisX, SplitBack},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sentinel := New(math.Vec3{X: 9}, math.Vec3{X: 9}, math.Vec3{X: 9})
			front, back := sentinel.Clone(), sentinel.Clone()
			got := p.SplitWithPlane(tt.base, tt.normal, &front, &back, false)
			if got != tt.want {
				t.Fatalf("SplitWithPlane = %v, want %v", got, tt.want)
			}
			if !front.Equal(&sentinel) || !back.Equal(&sentinel) {
				t.Error("outputs must be untouched when the polygon is not split")
			}
		})
	}
}

func TestSplitSliver(t *testing.T) {
	// The plane clips 0.3 off one corner; with the coarse epsilon the front
	// piece is within threshold and the whole polygon stays behind.
	p := square(0, 0, 10)
	var front, back Poly
	got := p.SplitWithPlane(math.Vec3{X: 9.8}, math.AxisX, &front, &back, false)
	if got != SplitBack {
		t.Errorf("SplitWithPlane = %v, want back", got)
	}
}

func TestSplitPrecision(t *testing.T) {
	p := square(0, 0, 10)
	var front, back Poly
	base := math.Vec3{X: 9.9}
	if got := p.SplitWithPlane(base, math.AxisX, nil, nil, false); got != SplitBack {
		t.Errorf("coarse = %v, want back", got)
	}
	if got := p.SplitWithPlane(base, math.AxisX, &front, &back, true); got != SplitSplit {
		t.Errorf("precise = %v, want split", got)
	}
}

func TestSplitWithPlaneFast(t *testing.T) {
	p := square(0, 0, 1)
	plane := math.NewPlane(math.Vec3{X: 0.5}, math.AxisX)
	var front, back Poly
	if got := p.SplitWithPlaneFast(plane, &front, &back); got != SplitSplit {
		t.Fatalf("SplitWithPlaneFast = %v, want split", got)
	}
	if !approx(front.Area()+back.Area(), 1) {
		t.Errorf("halves area = %v, want 1", front.Area()+back.Area())
	}
	if got := p.SplitWithPlaneFast(math.NewPlane(math.Vec3{Z: -3}, math.AxisZ), nil, nil); got != SplitFront {
		t.Errorf("SplitWithPlaneFast = %v, want front", got)
	}
	if got := p.SplitWithPlaneFast(math.NewPlane(math.Vec3{}, math.AxisZ), nil, nil); got != SplitCoplanar {
		t.Errorf("SplitWithPlaneFast = %v, want coplanar", got)
	}
}

func TestSplitDiagonalKeepsBoundary(t *testing.T) {
	// A plane through two opposite corners puts those corners in both halves.
	p := square(0, 0, 2)
	n := math.Vec3{X: 1, Y: -1}.Normalize()
	var front, back Poly
	if got := p.SplitWithPlane(math.Vec3{}, n, &front, &back, true); got != SplitSplit {
		t.Fatalf("SplitWithPlane = %v, want split", got)
	}
	if len(front.Vertices) != 3 || len(back.Vertices) != 3 {
		t.Errorf("halves have %d and %d vertices, want 3 and 3", len(front.Vertices), len(back.Vertices))
	}
	if !approx(front.Area(), 2) || !approx(back.Area(), 2) {
		t.Errorf("areas %v and %v, want 2 and 2", front.Area(), back.Area())
	}
}
