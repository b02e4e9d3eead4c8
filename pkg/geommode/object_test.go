package geommode

import (
	"testing"

	"github.com/Faultbox/midgard-csg/pkg/math"
)

func TestObjectPools(t *testing.T) {
	o := cubeObject(t, 4)
	if len(o.Vertices) != 8 || len(o.Edges) != 12 || len(o.Faces) != 6 {
		t.Fatalf("pools = %d/%d/%d, want 8/12/6", len(o.Vertices), len(o.Edges), len(o.Faces))
	}
	for i, e := range o.Edges {
		if len(e.Faces) != 2 {
			t.Errorf("edge %d borders %d faces, want 2", i, len(e.Faces))
		}
	}
	for i, v := range o.Vertices {
		if len(v.Refs) != 3 {
			t.Errorf("vertex %d is shared by %d polygons, want 3", i, len(v.Refs))
		}
	}
}

func TestSendToSource(t *testing.T) {
	o := cubeObject(t, 4)
	corner := vertexAt(t, o, math.Vec3{X: 2, Y: 2, Z: 2})
	o.Vertices[corner].Pos = math.Vec3{X: 3, Y: 3, Z: 3}
	o.SendToSource()
	n := 0
	for _, p := range o.Polys.Element {
		if p.VertexIndex(math.Vec3{X: 3, Y: 3, Z: 3}) >= 0 {
			n++
		}
	}
	if n != 3 {
		t.Errorf("moved corner found in %d polygons, want 3", n)
	}
}

func TestSelectionOrder(t *testing.T) {
	o := cubeObject(t, 4)
	o.Select(ElemVertex, 5, true)
	o.Select(ElemEdge, 2, true)
	o.Select(ElemVertex, 1, true)

	if got := o.SelectedVertices(); len(got) != 2 || got[0] != 5 || got[1] != 1 {
		t.Errorf("SelectedVertices() = %v, want [5 1]", got)
	}
	faces, edges, verts := o.SelectedCounts()
	if faces != 0 || edges != 1 || verts != 2 {
		t.Errorf("SelectedCounts() = %d/%d/%d, want 0/1/2", faces, edges, verts)
	}

	sel := o.Selection()
	o.Refresh()
	if _, _, verts := o.SelectedCounts(); verts != 0 {
		t.Fatal("Refresh kept the selection")
	}
	o.Restore(sel)
	if got := o.SelectedVertices(); len(got) != 2 || got[0] != 5 || got[1] != 1 {
		t.Errorf("restored SelectedVertices() = %v, want [5 1]", got)
	}
}

func TestUniqueSelectedVertices(t *testing.T) {
	o := cubeObject(t, 4)
	top := faceFacing(t, o, math.Vec3{Z: 1})
	o.Select(ElemFace, top, true)
	o.Select(ElemVertex, o.Faces[top].Verts[0], true)
	o.Select(ElemEdge, o.Faces[top].Edges[1], true)
	if got := len(o.uniqueSelectedVertices()); got != 4 {
		t.Errorf("unique vertices = %d, want 4", got)
	}
}

func TestCacheRestore(t *testing.T) {
	o := cubeObject(t, 4)
	o.CacheState()
	o.Polys.RemoveAt(0)
	o.Refresh()
	if !o.RestoreState() {
		t.Fatal("RestoreState() = false")
	}
	if o.Polys.Len() != 6 || len(o.Faces) != 6 {
		t.Errorf("restored %d polygons, want 6", o.Polys.Len())
	}
}

func TestEdgesOverlap(t *testing.T) {
	o := polyObject(t, square(4))
	if o.EdgesOverlap() {
		t.Fatal("a plain square reports overlapping edges")
	}
	// Pull one corner across the opposite side.
	o.Vertices[vertexAt(t, o, math.Vec3{})].Pos = math.Vec3{X: 6, Y: 2}
	if !o.EdgesOverlap() {
		t.Error("crossed edges not detected")
	}
}

func TestFinalizeSourceDropsDegenerate(t *testing.T) {
	o := polyObject(t, square(4), []math.Vec3{{Z: 1}, {X: 1, Z: 1}, {Y: 1, Z: 1}})
	tri := &o.Polys.Element[1]
	tri.Vertices[1] = tri.Vertices[0]
	if got := o.FinalizeSource(); got != 1 {
		t.Errorf("FinalizeSource() = %d, want 1", got)
	}
	if o.Polys.Len() != 1 || o.Polys.Element[0].Link != 0 {
		t.Errorf("left %d polygons", o.Polys.Len())
	}
}
