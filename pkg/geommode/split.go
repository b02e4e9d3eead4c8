package geommode

import (
	"github.com/samber/lo"

	"github.com/Faultbox/midgard-csg/pkg/math"
	"github.com/Faultbox/midgard-csg/pkg/poly"
)

// splitNormalLength is how far along a normal the third point of a split
// plane is placed.
const splitNormalLength = 64

type splitMode int

const (
	splitNone splitMode = iota
	// One face and one of its edges: cut the face across the edge's
	// midpoint.
	splitScalpel
	// Edges only: cut the whole brush across the first edge.
	splitRing
	// One face and two of its vertices: cut the face between them.
	splitFaceVerts
	// Two vertices: cut the whole brush between them.
	splitVerts
)

// Split cuts polygons with a plane derived from the selection. It works on
// a single object.
type Split struct{ passive }

// Kind implements Modifier.
func (Split) Kind() Kind { return KindSplit }

func splitModeOf(ctx *Context) splitMode {
	if len(ctx.Objects) != 1 {
		return splitNone
	}
	faces, edges, verts := ctx.Objects[0].SelectedCounts()
	switch {
	case faces == 1 && edges == 1 && verts == 0:
		return splitScalpel
	case faces == 0 && edges > 0 && verts == 0:
		return splitRing
	case faces == 1 && edges == 0 && verts == 2:
		return splitFaceVerts
	case faces == 0 && edges == 0 && verts == 2:
		return splitVerts
	}
	return splitNone
}

// Supports implements Modifier.
func (Split) Supports(ctx *Context) bool {
	return splitModeOf(ctx) != splitNone
}

// Apply implements Modifier.
func (Split) Apply(ctx *Context) (Result, error) {
	var res Result
	mode := splitModeOf(ctx)
	if mode == splitNone {
		return res, ErrUnsupportedSelection
	}
	o := ctx.Objects[0]

	switch mode {
	case splitScalpel:
		face := o.SelectedFaces()[0]
		e := o.Edges[o.SelectedEdges()[0]]
		if !lo.Contains(o.Faces[face].Verts, e.V[0]) || !lo.Contains(o.Faces[face].Verts, e.V[1]) {
			return res, ErrNotInPolygon
		}
		a, b := o.Vertices[e.V[0]].Pos, o.Vertices[e.V[1]].Pos
		normal := b.Sub(a)
		if normal.SizeSquared() < math.ThreshZeroNormSquared {
			return res, ErrDegeneratePlane
		}
		plane := math.NewPlane(a.Lerp(b, 0.5), normal.Normalize())
		target := o.Faces[face].Poly
		facePlane := o.Polys.Element[target].Plane()
		splitPolys(o.Polys, plane, []int{target})
		insertCrossings(o.Polys, plane, facePlane, target)

	case splitRing:
		e := o.Edges[o.SelectedEdges()[0]]
		a, b := o.Vertices[e.V[0]].Pos, o.Vertices[e.V[1]].Pos
		normal := b.Sub(a)
		if normal.SizeSquared() < math.ThreshZeroNormSquared {
			return res, ErrDegeneratePlane
		}
		splitPolys(o.Polys, math.NewPlane(a.Lerp(b, 0.5), normal.Normalize()), nil)

	case splitFaceVerts:
		face := o.SelectedFaces()[0]
		sel := o.SelectedVertices()
		for _, v := range sel {
			if !lo.Contains(o.Faces[face].Verts, v) {
				return res, ErrNotInPolygon
			}
		}
		v0, v1 := o.Vertices[sel[0]].Pos, o.Vertices[sel[1]].Pos
		n := o.FacePoly(face).Normal
		plane, ok := planeThrough(v0, v1, v0.Add(n.Scale(splitNormalLength)))
		if !ok {
			return res, ErrDegeneratePlane
		}
		splitPolys(o.Polys, plane, []int{o.Faces[face].Poly})

	case splitVerts:
		sel := o.SelectedVertices()
		v0, v1 := o.Vertices[sel[0]].Pos, o.Vertices[sel[1]].Pos
		n := o.VertexNormal(sel[0]).Add(o.VertexNormal(sel[1])).Scale(0.5)
		plane, ok := planeThrough(v0, v1, n.Scale(splitNormalLength))
		if !ok {
			return res, ErrDegeneratePlane
		}
		splitPolys(o.Polys, plane, nil)
	}
	res.modified(o)
	return res, nil
}

func planeThrough(a, b, c math.Vec3) (math.Plane, bool) {
	n := b.Sub(a).Cross(c.Sub(a))
	if n.SizeSquared() < math.ThreshZeroNormSquared {
		return math.Plane{}, false
	}
	return math.NewPlane(a, n.Normalize()), true
}

// splitPolys cuts the listed polygons, or every polygon when only is nil,
// with plane. A cut polygon keeps its front half in place and the back half
// is appended.
func splitPolys(list *poly.List, plane math.Plane, only []int) {
	targets := only
	if targets == nil {
		targets = lo.Range(list.Len())
	}
	base := plane.Normal().Scale(plane.W)
	for _, i := range targets {
		var front, back poly.Poly
		if list.Element[i].SplitWithPlane(base, plane.Normal(), &front, &back, true) == poly.SplitSplit {
			list.Element[i] = front
			list.Element = append(list.Element, back)
		}
	}
}

// insertCrossings adds a vertex to every other polygon edge that crosses
// plane on the split face's plane, so that neighbors of the cut face share
// its new corners.
func insertCrossings(list *poly.List, plane, facePlane math.Plane, skip int) {
	n := list.Len()
	for i := 0; i < n; i++ {
		if i == skip {
			continue
		}
		p := &list.Element[i]
		for k := 0; k < len(p.Vertices); k++ {
			a := p.Vertices[k]
			b := p.Vertices[(k+1)%len(p.Vertices)]
			da, db := plane.Dot(a), plane.Dot(b)
			if da*db >= 0 || abs(da) < math.ThreshSplitPolyPrecisely || abs(db) < math.ThreshSplitPolyPrecisely {
				continue
			}
			x := math.LinePlaneIntersection(a, b, plane)
			if abs(facePlane.Dot(x)) > math.ThreshPointOnPlane {
				continue
			}
			p.InsertVertex(k+1, x)
			k++
		}
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
