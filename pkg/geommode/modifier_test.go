package geommode

import (
	"errors"
	"testing"

	"github.com/Faultbox/midgard-csg/pkg/math"
)

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, err)
		}
		m, err := New(k)
		if err != nil {
			t.Fatalf("New(%s) error = %v", k, err)
		}
		if m.Kind() != k {
			t.Errorf("New(%s).Kind() = %s", k, m.Kind())
		}
	}
	if _, err := ParseKind("bevel"); err == nil {
		t.Error("expected an error for an unknown modifier")
	}
}

func TestApplyUnsupportedSelection(t *testing.T) {
	ctx := ctxFor(cubeObject(t, 4))
	if _, err := Apply(ctx, &Extrude{Length: 16, Segments: 1}); !errors.Is(err, ErrUnsupportedSelection) {
		t.Errorf("Apply() error = %v, want ErrUnsupportedSelection", err)
	}
}

func TestSupports(t *testing.T) {
	tests := []struct {
		name   string
		faces  int
		edges  int
		verts  int
		kind   Kind
		expect bool
	}{
		{"extrude face", 1, 0, 0, KindExtrude, true},
		{"extrude edge", 0, 1, 0, KindExtrude, false},
		{"weld one", 0, 0, 1, KindWeld, false},
		{"weld two", 0, 0, 2, KindWeld, true},
		{"create three", 0, 0, 3, KindCreate, true},
		{"turn edge", 0, 1, 0, KindTurn, true},
		{"flip nothing", 0, 0, 0, KindFlip, true},
		{"flip verts", 0, 0, 2, KindFlip, false},
		{"split face edge", 1, 1, 0, KindSplit, true},
		{"split face", 1, 0, 0, KindSplit, false},
		{"delete edge", 0, 1, 0, KindDelete, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := cubeObject(t, 4)
			for i := 0; i < tt.faces; i++ {
				o.Select(ElemFace, i, true)
			}
			for i := 0; i < tt.edges; i++ {
				o.Select(ElemEdge, i, true)
			}
			for i := 0; i < tt.verts; i++ {
				o.Select(ElemVertex, i, true)
			}
			m, _ := New(tt.kind)
			if got := m.Supports(ctxFor(o)); got != tt.expect {
				t.Errorf("Supports() = %v, want %v", got, tt.expect)
			}
		})
	}
}

func TestExtrudeQuadFace(t *testing.T) {
	o := cubeObject(t, 4)
	top := faceFacing(t, o, math.Vec3{Z: 1})
	o.Select(ElemFace, top, true)

	mustApply(t, ctxFor(o), &Extrude{Length: 64, Segments: 1})

	if o.Polys.Len() != 10 {
		t.Errorf("polygons = %d, want 10", o.Polys.Len())
	}
	if len(o.Vertices) != 12 {
		t.Errorf("vertices = %d, want 12", len(o.Vertices))
	}
	for _, v := range o.FacePoly(top).Vertices {
		if !approx(v.Z, 66) {
			t.Errorf("extruded face vertex %v, want z = 66", v)
		}
	}
	if !o.Faces[top].Selected {
		t.Error("extruded face lost its selection")
	}
	for i := 6; i < 10; i++ {
		p := o.Polys.Element[i]
		if len(p.Vertices) != 4 {
			t.Errorf("side %d has %d vertices, want 4", i, len(p.Vertices))
		}
		if !approx(p.Area(), 4*64) {
			t.Errorf("side %d area = %v, want %v", i, p.Area(), 4*64)
		}
		if p.Normal.Z != 0 || p.Normal.Dot(p.MidPoint()) <= 0 {
			t.Errorf("side %d normal %v does not face out", i, p.Normal)
		}
	}
	if v := signedVolume(o.Polys); !approx(v, 4*4*68) {
		t.Errorf("volume = %v, want %v", v, 4*4*68)
	}
}

func TestExtrudeSegments(t *testing.T) {
	o := cubeObject(t, 4)
	o.Select(ElemFace, faceFacing(t, o, math.Vec3{X: 1}), true)
	mustApply(t, ctxFor(o), &Extrude{Length: 8, Segments: 3})
	if o.Polys.Len() != 6+12 {
		t.Errorf("polygons = %d, want 18", o.Polys.Len())
	}
	if len(o.Vertices) != 8+12 {
		t.Errorf("vertices = %d, want 20", len(o.Vertices))
	}
}

func TestEditDrag(t *testing.T) {
	o := cubeObject(t, 4)
	top := faceFacing(t, o, math.Vec3{Z: 1})
	o.Select(ElemFace, top, true)
	mustApply(t, ctxFor(o), &Edit{Drag: math.Vec3{Z: 2}})
	for _, v := range o.FacePoly(top).Vertices {
		if !approx(v.Z, 4) {
			t.Errorf("vertex %v, want z = 4", v)
		}
	}
	if v := signedVolume(o.Polys); !approx(v, 4*4*6) {
		t.Errorf("volume = %v, want 96", v)
	}
}

func TestEditScaleFace(t *testing.T) {
	o := cubeObject(t, 4)
	top := faceFacing(t, o, math.Vec3{Z: 1})
	o.Select(ElemFace, top, true)
	ctx := ctxFor(o)
	ctx.Pivot = math.Vec3{Z: 2}
	mustApply(t, ctx, &Edit{Scale: math.Vec3{X: 0.5, Y: 0.5, Z: 1}})
	if got := o.FacePoly(top).Area(); !approx(got, 4) {
		t.Errorf("scaled face area = %v, want 4", got)
	}
}

func TestEditOverlapRollsBack(t *testing.T) {
	o := polyObject(t, square(4))
	o.Select(ElemVertex, vertexAt(t, o, math.Vec3{}), true)
	_, err := Apply(ctxFor(o), &Edit{Drag: math.Vec3{X: 6, Y: 2}})
	if !errors.Is(err, ErrEdgesOverlap) {
		t.Fatalf("Apply() error = %v, want ErrEdgesOverlap", err)
	}
	if got := o.Polys.Element[0].Vertices[0]; got != (math.Vec3{}) {
		t.Errorf("vertex = %v, want the origin", got)
	}
	if _, _, verts := o.SelectedCounts(); verts != 1 {
		t.Error("rollback lost the selection")
	}
}

func TestFlip(t *testing.T) {
	o := cubeObject(t, 4)
	mustApply(t, ctxFor(o), Flip{})
	if v := signedVolume(o.Polys); !approx(v, -64) {
		t.Errorf("volume = %v, want -64", v)
	}

	o = cubeObject(t, 4)
	top := faceFacing(t, o, math.Vec3{Z: 1})
	o.Select(ElemFace, top, true)
	mustApply(t, ctxFor(o), Flip{})
	if n := o.FacePoly(top).Normal; !n.Equals(math.Vec3{Z: -1}, 1e-6) {
		t.Errorf("flipped normal = %v", n)
	}
	if n := o.FacePoly(faceFacing(t, o, math.Vec3{X: 1})).Normal; !n.Equals(math.Vec3{X: 1}, 1e-6) {
		t.Errorf("unselected face flipped: %v", n)
	}
}

func TestDelete(t *testing.T) {
	o := cubeObject(t, 4)
	o.Select(ElemFace, faceFacing(t, o, math.Vec3{Z: 1}), true)
	mustApply(t, ctxFor(o), Delete{})
	if o.Polys.Len() != 5 {
		t.Errorf("polygons = %d, want 5", o.Polys.Len())
	}

	o = cubeObject(t, 4)
	o.Select(ElemVertex, vertexAt(t, o, math.Vec3{X: 2, Y: 2, Z: 2}), true)
	mustApply(t, ctxFor(o), Delete{})
	if len(o.Vertices) != 7 {
		t.Errorf("vertices = %d, want 7", len(o.Vertices))
	}
	tris := 0
	for _, p := range o.Polys.Element {
		if len(p.Vertices) == 3 {
			tris++
		}
	}
	if tris != 3 {
		t.Errorf("triangles = %d, want 3", tris)
	}
}

func TestCreate(t *testing.T) {
	o := polyObject(t, square(4))
	for _, p := range []math.Vec3{{}, {X: 4}, {X: 4, Y: 4}} {
		o.Select(ElemVertex, vertexAt(t, o, p), true)
	}
	mustApply(t, ctxFor(o), Create{})
	if o.Polys.Len() != 2 {
		t.Fatalf("polygons = %d, want 2", o.Polys.Len())
	}
	p := o.Polys.Element[1]
	if len(p.Vertices) != 3 || !p.Normal.Equals(math.Vec3{Z: 1}, 1e-6) {
		t.Errorf("created %v with normal %v", p.Vertices, p.Normal)
	}
}

func TestTriangulateOptimize(t *testing.T) {
	o := cubeObject(t, 4)
	mustApply(t, ctxFor(o), Triangulate{})
	if o.Polys.Len() != 12 {
		t.Fatalf("triangles = %d, want 12", o.Polys.Len())
	}
	mustApply(t, ctxFor(o), Optimize{})
	if o.Polys.Len() != 6 {
		t.Errorf("optimized polygons = %d, want 6", o.Polys.Len())
	}
	if !approx(o.Polys.Area(), 96) {
		t.Errorf("area = %v, want 96", o.Polys.Area())
	}
}

func TestTurn(t *testing.T) {
	o := polyObject(t,
		[]math.Vec3{{}, {X: 4}, {X: 4, Y: 4}},
		[]math.Vec3{{}, {X: 4, Y: 4}, {Y: 4}},
	)
	o.Select(ElemEdge, edgeBetween(t, o, math.Vec3{}, math.Vec3{X: 4, Y: 4}), true)
	mustApply(t, ctxFor(o), Turn{})

	edgeBetween(t, o, math.Vec3{X: 4}, math.Vec3{Y: 4})
	for i, p := range o.Polys.Element {
		if !p.Normal.Equals(math.Vec3{Z: 1}, 1e-6) {
			t.Errorf("triangle %d normal = %v", i, p.Normal)
		}
	}
	if !approx(o.Polys.Area(), 16) {
		t.Errorf("area = %v, want 16", o.Polys.Area())
	}
}

func TestTurnNeedsTriangles(t *testing.T) {
	o := cubeObject(t, 4)
	o.Select(ElemEdge, 0, true)
	if _, err := Apply(ctxFor(o), Turn{}); !errors.Is(err, ErrNotTriangles) {
		t.Errorf("Apply() error = %v, want ErrNotTriangles", err)
	}
}

func TestWeld(t *testing.T) {
	o := polyObject(t, square(4))
	o.Select(ElemVertex, vertexAt(t, o, math.Vec3{X: 4}), true)
	o.Select(ElemVertex, vertexAt(t, o, math.Vec3{}), true)
	mustApply(t, ctxFor(o), Weld{})
	p := o.Polys.Element[0]
	if len(p.Vertices) != 3 {
		t.Fatalf("vertices = %v, want a triangle", p.Vertices)
	}
	if p.VertexIndex(math.Vec3{X: 4}) < 0 || p.VertexIndex(math.Vec3{}) >= 0 {
		t.Errorf("welded onto the wrong vertex: %v", p.Vertices)
	}
}
