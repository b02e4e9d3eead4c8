package bsp

import (
	"testing"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/Faultbox/midgard-csg/pkg/math"
	"github.com/Faultbox/midgard-csg/pkg/poly"
)

func TestBrushCSGNoModel(t *testing.T) {
	ctx := NewContext(nil)
	if got := ctx.BrushCSG(&Brush{}, NewModel(), CsgOptions{}); got != 0 {
		t.Errorf("BrushCSG() = %d, want 0", got)
	}
}

func TestCsgAddToEmptyWorld(t *testing.T) {
	ctx := NewContext(nil)
	world := NewModel()
	csg(t, ctx, world, cubeBrush(t, 2, math.Vec3{}), CsgAdd)

	if got := len(world.VisibleNodes()); got != 6 {
		t.Fatalf("visible nodes = %d, want 6", got)
	}
	if !approx(world.Area(), 24) {
		t.Errorf("area = %v, want 24", world.Area())
	}
	if PointOutside(world, math.Vec3{}) {
		t.Error("center of the added cube is outside")
	}
	if !PointOutside(world, math.Vec3{X: 2}) {
		t.Error("point beyond the cube is inside")
	}
	for _, i := range world.VisibleNodes() {
		if world.Nodes[i].Flags&NodeIsNew != 0 {
			t.Errorf("node %d still flagged new", i)
		}
	}
}

func TestCsgAddThenSubtractSameCube(t *testing.T) {
	ctx := NewContext(nil)
	world := NewModel()
	csg(t, ctx, world, cubeBrush(t, 2, math.Vec3{}), CsgAdd)
	csg(t, ctx, world, cubeBrush(t, 2, math.Vec3{}), CsgSubtract)

	if got := len(world.VisibleNodes()); got != 0 {
		t.Errorf("visible nodes = %d, want 0", got)
	}
	if !PointOutside(world, math.Vec3{}) {
		t.Error("center is still solid")
	}
}

func TestCsgDisjointAddSubtractIsInverse(t *testing.T) {
	ctx := NewContext(nil)
	world := NewModel()
	csg(t, ctx, world, cubeBrush(t, 2, math.Vec3{}), CsgAdd)
	before := world.Area()

	far := math.Vec3{X: 10}
	csg(t, ctx, world, cubeBrush(t, 2, far), CsgAdd)
	if !approx(world.Area(), 2*before) {
		t.Fatalf("area after second add = %v, want %v", world.Area(), 2*before)
	}
	csg(t, ctx, world, cubeBrush(t, 2, far), CsgSubtract)

	if !approx(world.Area(), before) {
		t.Errorf("area = %v, want %v", world.Area(), before)
	}
	if got := len(world.VisibleNodes()); got != 6 {
		t.Errorf("visible nodes = %d, want 6", got)
	}
	if !PointOutside(world, far) {
		t.Error("subtracted cube is still solid")
	}
}

func TestCsgAddAdjacentCubes(t *testing.T) {
	ctx := NewContext(nil)
	world := NewModel()
	csg(t, ctx, world, cubeBrush(t, 2, math.Vec3{}), CsgAdd)
	csg(t, ctx, world, cubeBrush(t, 2, math.Vec3{X: 2}), CsgAdd)

	// The two touching faces disappear.
	if !approx(world.Area(), 40) {
		t.Errorf("area = %v, want 40", world.Area())
	}
	for _, p := range []math.Vec3{{X: -0.5}, {X: 1}, {X: 2.5}} {
		if PointOutside(world, p) {
			t.Errorf("%v is outside", p)
		}
	}
}

func TestCsgSubtractPartialOverlap(t *testing.T) {
	for _, size := range []float64{4, 64} {
		ctx := NewContext(nil)
		world := NewModel()
		csg(t, ctx, world, cubeBrush(t, size, math.Vec3{}), CsgAdd)
		csg(t, ctx, world, cubeBrush(t, size, math.Vec3{X: size / 2}), CsgSubtract)

		// Half a cube is left: two full end faces and four half faces.
		want := 4 * size * size
		if got := world.Area(); !approx(got, want) {
			t.Errorf("size %v: area = %v, want %v", size, got, want)
		}
		for _, i := range world.VisibleNodes() {
			var p poly.Poly
			world.NodeToPoly(i, &p)
			if c := p.MidPoint(); c.X > 1e-3 {
				t.Errorf("size %v: face at %v lies in the carved half", size, c)
			}
		}
		if PointOutside(world, math.Vec3{X: -size / 4}) {
			t.Errorf("size %v: remaining half is outside", size)
		}
		if !PointOutside(world, math.Vec3{X: size / 4}) {
			t.Errorf("size %v: carved half is solid", size)
		}
	}
}

func TestCsgAddAdjacentBoxesFaceOrder(t *testing.T) {
	px, nx := math.Vec3{X: 1}, math.Vec3{X: -1}
	py, ny := math.Vec3{Y: 1}, math.Vec3{Y: -1}
	pz, nz := math.Vec3{Z: 1}, math.Vec3{Z: -1}
	tests := []struct {
		name  string
		order []math.Vec3
	}{
		{"+x first", []math.Vec3{px, py, ny, pz, nz, nx}},
		{"-x first", []math.Vec3{nx, px, py, ny, pz, nz}},
		{"y first", []math.Vec3{py, ny, px, nx, pz, nz}},
		{"z first", []math.Vec3{pz, nz, py, ny, nx, px}},
		{"reversed", []math.Vec3{nz, pz, ny, py, nx, px}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := NewContext(nil)
			world := NewModel()
			csg(t, ctx, world, boxBrush(t, 32, 64, 64, math.Vec3{X: -16}, tt.order), CsgAdd)
			csg(t, ctx, world, boxBrush(t, 32, 64, 64, math.Vec3{X: 16}, tt.order), CsgAdd)

			// Together the boxes form a 64 cube; the shared wall is gone.
			if got, want := world.Area(), 6*64*64.0; !approx(got, want) {
				t.Errorf("area = %v, want %v", got, want)
			}
			for _, p := range []math.Vec3{{X: -40}, {X: 40}, {Y: 40}, {Z: -40}} {
				if !PointOutside(world, p) {
					t.Errorf("%v is inside", p)
				}
			}
			for _, p := range []math.Vec3{{X: -16}, {X: 16}, {X: 0.5}} {
				if PointOutside(world, p) {
					t.Errorf("%v is outside", p)
				}
			}
		})
	}
}

func TestCsgIntersect(t *testing.T) {
	ctx := NewContext(nil)
	world := NewModel()
	csg(t, ctx, world, cubeBrush(t, 4, math.Vec3{}), CsgAdd)

	tests := []struct {
		oper  CsgOper
		faces int
		// Local-space x range the surviving faces must stay within.
		minX, maxX float64
	}{
		{CsgIntersect, 5, -1, 0},
		{CsgDeintersect, 5, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.oper.String(), func(t *testing.T) {
			brush := cubeBrush(t, 2, math.Vec3{X: 2})
			nodes := len(world.Nodes)
			if got := ctx.BrushCSG(brush, world, CsgOptions{Oper: tt.oper, MergePolys: true}); got != 1 {
				t.Fatalf("BrushCSG() = %d, want 1", got)
			}
			if len(world.Nodes) != nodes {
				t.Errorf("world changed: %d nodes, want %d", len(world.Nodes), nodes)
			}
			polys := brush.Model.Polys
			if polys.Len() != tt.faces {
				t.Errorf("faces = %d, want %d", polys.Len(), tt.faces)
			}
			if !approx(polys.Area(), 12) {
				t.Errorf("area = %v, want 12", polys.Area())
			}
			for _, p := range polys.Element {
				for _, v := range p.Vertices {
					if v.X < tt.minX-1e-6 || v.X > tt.maxX+1e-6 {
						t.Fatalf("vertex %v outside [%v, %v]", v, tt.minX, tt.maxX)
					}
				}
			}
		})
	}
}

func TestCsgSphereRejectMatches(t *testing.T) {
	build := func(reject bool) *Model {
		ctx := NewContext(nil)
		world := NewModel()
		for _, c := range []math.Vec3{{}, {X: 10}, {Y: 10}} {
			csg(t, ctx, world, cubeBrush(t, 2, c), CsgAdd)
		}
		brush := cubeBrush(t, 2, math.Vec3{X: 1})
		ctx.BrushCSG(brush, world, CsgOptions{Oper: CsgSubtract, SphereReject: reject})
		return world
	}
	plain, rejected := build(false), build(true)
	if !approx(plain.Area(), rejected.Area()) {
		t.Errorf("area with reject = %v, without = %v", rejected.Area(), plain.Area())
	}
}

// TestCsgMatchesDistanceField checks inside/outside answers after a notch
// is carved out of a block against the same solid expressed as an SDF.
func TestCsgMatchesDistanceField(t *testing.T) {
	ctx := NewContext(nil)
	world := NewModel()
	csg(t, ctx, world, cubeBrush(t, 4, math.Vec3{}), CsgAdd)
	csg(t, ctx, world, cubeBrush(t, 2, math.Vec3{X: 2}), CsgSubtract)

	block, err := sdf.Box3D(v3.Vec{X: 4, Y: 4, Z: 4}, 0)
	if err != nil {
		t.Fatal(err)
	}
	notch, err := sdf.Box3D(v3.Vec{X: 2, Y: 2, Z: 2}, 0)
	if err != nil {
		t.Fatal(err)
	}
	notch = sdf.Transform3D(notch, sdf.Translate3d(v3.Vec{X: 2}))
	solid := sdf.Difference3D(block, notch)

	// Samples sit half a unit off every face.
	coords := []float64{-2.5, -1.5, -0.5, 0.5, 1.5, 2.5}
	for _, x := range coords {
		for _, y := range coords {
			for _, z := range coords {
				p := math.Vec3{X: x, Y: y, Z: z}
				want := solid.Evaluate(v3.Vec{X: x, Y: y, Z: z}) > 0
				if got := PointOutside(world, p); got != want {
					t.Errorf("PointOutside(%v) = %v, want %v", p, got, want)
				}
			}
		}
	}
}

func TestParseCsgOper(t *testing.T) {
	for _, o := range []CsgOper{CsgAdd, CsgSubtract, CsgIntersect, CsgDeintersect} {
		got, err := ParseCsgOper(o.String())
		if err != nil || got != o {
			t.Errorf("ParseCsgOper(%q) = %v, %v", o.String(), got, err)
		}
	}
	if _, err := ParseCsgOper("xor"); err == nil {
		t.Error("expected an error")
	}
	if CsgSubtract.BrushType() != BrushSubtract || CsgIntersect.BrushType() != BrushAdd {
		t.Error("unexpected brush types")
	}
}
