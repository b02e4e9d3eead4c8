package geommode

import (
	"sort"

	"github.com/samber/lo"

	"github.com/Faultbox/midgard-csg/pkg/arena"
	"github.com/Faultbox/midgard-csg/pkg/math"
	"github.com/Faultbox/midgard-csg/pkg/poly"
)

// Element is the kind of a selectable sub-object.
type Element int

// Selectable elements.
const (
	ElemVertex Element = iota
	ElemEdge
	ElemFace
)

func (e Element) String() string {
	switch e {
	case ElemEdge:
		return "edge"
	case ElemFace:
		return "face"
	}
	return "vertex"
}

// VertexRef locates one polygon corner.
type VertexRef struct {
	Poly   int
	Vertex int
}

// Vertex is a unique corner position shared by every polygon that has a
// vertex there.
type Vertex struct {
	Pos      math.Vec3
	Refs     []VertexRef
	Selected bool
	SelIndex int
}

// Edge joins two vertices and lists the faces it borders.
type Edge struct {
	V        [2]int
	Faces    []int
	Selected bool
	SelIndex int
}

// Face is one source polygon.
type Face struct {
	Poly     int
	Verts    []int
	Edges    []int
	Selected bool
	SelIndex int
}

// Selection records one selected element, in selection order.
type Selection struct {
	Type  Element
	Index int
	Order int
}

// Object is the editable view of one brush: its polygons broken into
// shared vertices, edges and faces.
type Object struct {
	Brush     arena.Handle
	Polys     *poly.List
	Transform math.Transform
	// Shape marks a 2D brush shape.
	Shape bool

	Vertices []Vertex
	Edges    []Edge
	Faces    []Face

	nextSel int
	cache   *poly.List
}

// NewObject wraps polys, which stay owned by the brush; modifiers edit them
// in place.
func NewObject(brush arena.Handle, polys *poly.List, transform math.Transform) *Object {
	if polys == nil {
		polys = &poly.List{}
	}
	o := &Object{Brush: brush, Polys: polys, Transform: transform}
	o.Refresh()
	return o
}

// Refresh rebuilds the vertex, edge and face pools from the polygons.
// Selection is cleared.
func (o *Object) Refresh() {
	o.Vertices = o.Vertices[:0]
	o.Edges = o.Edges[:0]
	o.Faces = o.Faces[:0]
	o.nextSel = 0

	edgeIndex := map[[2]int]int{}
	for pi := range o.Polys.Element {
		p := &o.Polys.Element[pi]
		f := Face{Poly: pi}
		for vi, v := range p.Vertices {
			idx := o.findVertex(v)
			if idx < 0 {
				idx = len(o.Vertices)
				o.Vertices = append(o.Vertices, Vertex{Pos: v})
			}
			o.Vertices[idx].Refs = append(o.Vertices[idx].Refs, VertexRef{Poly: pi, Vertex: vi})
			f.Verts = append(f.Verts, idx)
		}
		for k := range f.Verts {
			a, b := f.Verts[k], f.Verts[(k+1)%len(f.Verts)]
			if a == b {
				continue
			}
			key := [2]int{min(a, b), max(a, b)}
			ei, ok := edgeIndex[key]
			if !ok {
				ei = len(o.Edges)
				edgeIndex[key] = ei
				o.Edges = append(o.Edges, Edge{V: key})
			}
			o.Edges[ei].Faces = append(o.Edges[ei].Faces, len(o.Faces))
			f.Edges = append(f.Edges, ei)
		}
		o.Faces = append(o.Faces, f)
	}
}

func (o *Object) findVertex(v math.Vec3) int {
	for i := range o.Vertices {
		if math.PointsAreSame(o.Vertices[i].Pos, v) {
			return i
		}
	}
	return -1
}

// SendToSource writes every vertex position back to the polygons that
// share it.
func (o *Object) SendToSource() {
	for _, v := range o.Vertices {
		for _, r := range v.Refs {
			o.Polys.Element[r.Poly].Vertices[r.Vertex] = v.Pos
		}
	}
}

// FinalizeSource refinalizes every polygon, dropping the ones that
// degenerated, and relinks each face to itself. It returns the number
// dropped.
func (o *Object) FinalizeSource() int {
	dropped := o.Polys.Retain(func(p *poly.Poly) bool {
		p.Normal = math.Vec3{}
		return p.Finalize(nil, true) == nil
	})
	for i := range o.Polys.Element {
		o.Polys.Element[i].Link = i
		o.Polys.Element[i].Flags &^= poly.EditorFlags
	}
	return dropped
}

// CacheState snapshots the polygons so that a failed edit can be rolled
// back.
func (o *Object) CacheState() {
	o.cache = o.Polys.Clone()
}

// RestoreState puts back the polygons saved by CacheState and re-reads
// them. It reports false when nothing was cached.
func (o *Object) RestoreState() bool {
	if o.cache == nil {
		return false
	}
	o.Polys.Element = o.cache.Clone().Element
	o.Refresh()
	return true
}

// Select selects or deselects an element. Selecting records the order.
func (o *Object) Select(e Element, index int, selected bool) {
	order := 0
	if selected {
		o.nextSel++
		order = o.nextSel
	}
	switch e {
	case ElemVertex:
		o.Vertices[index].Selected, o.Vertices[index].SelIndex = selected, order
	case ElemEdge:
		o.Edges[index].Selected, o.Edges[index].SelIndex = selected, order
	case ElemFace:
		o.Faces[index].Selected, o.Faces[index].SelIndex = selected, order
	}
}

// SelectNone clears the selection.
func (o *Object) SelectNone() {
	for i := range o.Vertices {
		o.Vertices[i].Selected, o.Vertices[i].SelIndex = false, 0
	}
	for i := range o.Edges {
		o.Edges[i].Selected, o.Edges[i].SelIndex = false, 0
	}
	for i := range o.Faces {
		o.Faces[i].Selected, o.Faces[i].SelIndex = false, 0
	}
	o.nextSel = 0
}

// Selection returns the selected elements in the order they were selected.
func (o *Object) Selection() []Selection {
	var out []Selection
	for i, v := range o.Vertices {
		if v.Selected {
			out = append(out, Selection{Type: ElemVertex, Index: i, Order: v.SelIndex})
		}
	}
	for i, e := range o.Edges {
		if e.Selected {
			out = append(out, Selection{Type: ElemEdge, Index: i, Order: e.SelIndex})
		}
	}
	for i, f := range o.Faces {
		if f.Selected {
			out = append(out, Selection{Type: ElemFace, Index: i, Order: f.SelIndex})
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Order < out[b].Order })
	return out
}

// Restore reapplies a saved selection, skipping elements that no longer
// exist.
func (o *Object) Restore(sel []Selection) {
	o.SelectNone()
	for _, s := range sel {
		n := 0
		switch s.Type {
		case ElemVertex:
			n = len(o.Vertices)
		case ElemEdge:
			n = len(o.Edges)
		case ElemFace:
			n = len(o.Faces)
		}
		if s.Index < n {
			o.Select(s.Type, s.Index, true)
		}
	}
}

// SelectedCounts returns how many faces, edges and vertices are selected.
func (o *Object) SelectedCounts() (faces, edges, verts int) {
	faces = lo.CountBy(o.Faces, func(f Face) bool { return f.Selected })
	edges = lo.CountBy(o.Edges, func(e Edge) bool { return e.Selected })
	verts = lo.CountBy(o.Vertices, func(v Vertex) bool { return v.Selected })
	return faces, edges, verts
}

// SelectedFaces returns the indices of the selected faces.
func (o *Object) SelectedFaces() []int {
	var out []int
	for i, f := range o.Faces {
		if f.Selected {
			out = append(out, i)
		}
	}
	return out
}

// SelectedEdges returns the indices of the selected edges in selection
// order.
func (o *Object) SelectedEdges() []int {
	return o.selectedOf(ElemEdge)
}

// SelectedVertices returns the indices of the selected vertices in
// selection order.
func (o *Object) SelectedVertices() []int {
	return o.selectedOf(ElemVertex)
}

func (o *Object) selectedOf(e Element) []int {
	sel := lo.Filter(o.Selection(), func(s Selection, _ int) bool { return s.Type == e })
	return lo.Map(sel, func(s Selection, _ int) int { return s.Index })
}

// FacePoly returns the polygon behind face i.
func (o *Object) FacePoly(i int) *poly.Poly {
	return &o.Polys.Element[o.Faces[i].Poly]
}

// VertexNormal returns the average normal of the faces sharing vertex i.
func (o *Object) VertexNormal(i int) math.Vec3 {
	var n math.Vec3
	for _, r := range o.Vertices[i].Refs {
		n = n.Add(o.Polys.Element[r.Poly].Normal)
	}
	return n.Normalize()
}

// uniqueSelectedVertices gathers every vertex touched by the selection:
// selected vertices, the ends of selected edges and the corners of selected
// faces. Each vertex appears once.
func (o *Object) uniqueSelectedVertices() []int {
	var out []int
	for _, f := range o.Faces {
		if f.Selected {
			out = append(out, f.Verts...)
		}
	}
	for _, e := range o.Edges {
		if e.Selected {
			out = append(out, e.V[0], e.V[1])
		}
	}
	for i, v := range o.Vertices {
		if v.Selected {
			out = append(out, i)
		}
	}
	return lo.Uniq(out)
}

// WorldVertex returns vertex i in world space.
func (o *Object) WorldVertex(i int) math.Vec3 {
	return o.Transform.TransformPosition(o.Vertices[i].Pos)
}

// EdgesOverlap reports whether any two edges of the object cross away from
// a vertex. Edges sharing a vertex, and edges meeting at a vertex, do not
// count.
func (o *Object) EdgesOverlap() bool {
	for i := range o.Edges {
		a0 := o.Vertices[o.Edges[i].V[0]].Pos
		a1 := o.Vertices[o.Edges[i].V[1]].Pos
		for j := i + 1; j < len(o.Edges); j++ {
			b0 := o.Vertices[o.Edges[j].V[0]].Pos
			b1 := o.Vertices[o.Edges[j].V[1]].Pos
			p, q := math.SegmentDistToSegment(a0, a1, b0, b1)
			if !p.Equals(q, math.KindaSmallNumber) {
				continue
			}
			if a0.Equals(b0, math.KindaSmallNumber) || a0.Equals(b1, math.KindaSmallNumber) ||
				a1.Equals(b0, math.KindaSmallNumber) || a1.Equals(b1, math.KindaSmallNumber) {
				continue
			}
			if math.PointsAreSame(a0, q) || math.PointsAreSame(a1, q) ||
				math.PointsAreSame(b0, q) || math.PointsAreSame(b1, q) {
				continue
			}
			return true
		}
	}
	return false
}

// doEdgesOverlap checks every object in the context.
func doEdgesOverlap(ctx *Context) bool {
	return lo.SomeBy(ctx.Objects, func(o *Object) bool { return o.EdgesOverlap() })
}
