package bsp

import (
	gomath "math"
	"testing"

	"github.com/Faultbox/midgard-csg/pkg/builders"
	"github.com/Faultbox/midgard-csg/pkg/math"
	"github.com/Faultbox/midgard-csg/pkg/poly"
)

func approx(a, b float64) bool {
	return gomath.Abs(a-b) < 1e-4
}

// cubeBrush returns a cube brush of edge size centered at center.
func cubeBrush(t *testing.T, size float64, center math.Vec3) *Brush {
	t.Helper()
	list, err := builders.Cube{X: size, Y: size, Z: size}.Build()
	if err != nil {
		t.Fatalf("cube: %v", err)
	}
	m := NewModel()
	m.Polys = list
	return &Brush{Model: m, Transform: math.Translation(center)}
}

// boxBrush returns an x*y*z box brush centered at center whose faces are
// ordered by the outward normals in order.
func boxBrush(t *testing.T, x, y, z float64, center math.Vec3, order []math.Vec3) *Brush {
	t.Helper()
	list, err := builders.Cube{X: x, Y: y, Z: z}.Build()
	if err != nil {
		t.Fatalf("box: %v", err)
	}
	var sorted []poly.Poly
	for _, n := range order {
		for _, p := range list.Element {
			if math.NormalsAreSame(p.Normal, n) {
				sorted = append(sorted, p)
			}
		}
	}
	if len(sorted) != len(list.Element) {
		t.Fatalf("face order %v matched %d of %d faces", order, len(sorted), len(list.Element))
	}
	list.Element = sorted
	m := NewModel()
	m.Polys = list
	return &Brush{Model: m, Transform: math.Translation(center)}
}

// quad returns a finalized polygon on z = 0 facing +Z.
func quad(t *testing.T, x0, y0, x1, y1 float64) poly.Poly {
	t.Helper()
	p := poly.New(
		math.Vec3{X: x0, Y: y0},
		math.Vec3{X: x1, Y: y0},
		math.Vec3{X: x1, Y: y1},
		math.Vec3{X: x0, Y: y1},
	)
	if err := p.Finalize(nil, true); err != nil {
		t.Fatalf("quad: %v", err)
	}
	return p
}

// csg applies brush to world and fails the test on non-fatal errors.
func csg(t *testing.T, ctx *CsgContext, world *Model, brush *Brush, oper CsgOper) {
	t.Helper()
	if got := ctx.BrushCSG(brush, world, CsgOptions{Oper: oper, BuildBounds: true}); got != 1 {
		t.Fatalf("BrushCSG(%s) = %d, want 1", oper, got)
	}
}

// reachable counts the nodes reachable from the root.
func reachable(m *Model) int {
	n := 0
	m.Walk(func(int) { n++ })
	return n
}
