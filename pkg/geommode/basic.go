package geommode

import (
	"github.com/samber/lo"

	"github.com/Faultbox/midgard-csg/pkg/math"
	"github.com/Faultbox/midgard-csg/pkg/poly"
)

// Delete removes the selected faces, then takes the selected vertices out
// of every polygon that uses them.
type Delete struct{ passive }

// Kind implements Modifier.
func (Delete) Kind() Kind { return KindDelete }

// Supports implements Modifier.
func (Delete) Supports(ctx *Context) bool {
	faces, edges, verts := counts(ctx)
	return edges == 0 && (faces > 0 || verts > 0)
}

// Apply implements Modifier.
func (Delete) Apply(ctx *Context) (Result, error) {
	var res Result
	for _, o := range ctx.Objects {
		faces, _, verts := o.SelectedCounts()
		if faces == 0 && verts == 0 {
			continue
		}
		drop := make(map[int]bool, faces)
		for _, f := range o.SelectedFaces() {
			drop[o.Faces[f].Poly] = true
		}
		positions := lo.Map(o.SelectedVertices(), func(v int, _ int) math.Vec3 { return o.Vertices[v].Pos })

		i := 0
		o.Polys.Retain(func(*poly.Poly) bool {
			keep := !drop[i]
			i++
			return keep
		})
		for pi := range o.Polys.Element {
			for _, pos := range positions {
				o.Polys.Element[pi].RemoveVertex(pos)
			}
		}
		res.modified(o)
	}
	return res, nil
}

// Create builds a new polygon from the selected vertices, in the order
// they were selected.
type Create struct{ passive }

// Kind implements Modifier.
func (Create) Kind() Kind { return KindCreate }

// Supports implements Modifier.
func (Create) Supports(ctx *Context) bool {
	faces, edges, verts := counts(ctx)
	return faces == 0 && edges == 0 && verts > 2
}

// Apply implements Modifier.
func (Create) Apply(ctx *Context) (Result, error) {
	var res Result
	for _, o := range ctx.Objects {
		sel := o.SelectedVertices()
		if len(sel) < 3 {
			continue
		}
		p := poly.New(lo.Map(sel, func(v int, _ int) math.Vec3 { return o.Vertices[v].Pos })...)
		if err := p.Finalize(nil, true); err != nil {
			res.warn("cannot create a polygon: %v", err)
			continue
		}
		o.Polys.Add(p)
		res.modified(o)
	}
	return res, nil
}

// Flip reverses the selected faces, or every face when none is selected.
type Flip struct{ passive }

// Kind implements Modifier.
func (Flip) Kind() Kind { return KindFlip }

// Supports implements Modifier.
func (Flip) Supports(ctx *Context) bool {
	_, edges, verts := counts(ctx)
	return edges == 0 && verts == 0
}

// Apply implements Modifier.
func (Flip) Apply(ctx *Context) (Result, error) {
	var res Result
	for _, o := range ctx.Objects {
		for _, pi := range targetPolys(o) {
			o.Polys.Element[pi].Reverse()
		}
		res.modified(o)
	}
	return res, nil
}

// targetPolys returns the polygons behind the selected faces, or every
// polygon when no face is selected.
func targetPolys(o *Object) []int {
	sel := o.SelectedFaces()
	if len(sel) == 0 {
		return lo.Range(o.Polys.Len())
	}
	return lo.Map(sel, func(f int, _ int) int { return o.Faces[f].Poly })
}

// Triangulate breaks the selected faces, or every face, into triangles.
type Triangulate struct{ passive }

// Kind implements Modifier.
func (Triangulate) Kind() Kind { return KindTriangulate }

// Supports implements Modifier.
func (Triangulate) Supports(ctx *Context) bool {
	_, edges, verts := counts(ctx)
	return edges == 0 && verts == 0
}

// Apply implements Modifier.
func (Triangulate) Apply(ctx *Context) (Result, error) {
	var res Result
	for _, o := range ctx.Objects {
		targets := lo.SliceToMap(targetPolys(o), func(pi int) (int, bool) { return pi, true })
		out := make([]poly.Poly, 0, o.Polys.Len())
		for pi := range o.Polys.Element {
			p := &o.Polys.Element[pi]
			if !targets[pi] || len(p.Vertices) == 3 {
				out = append(out, *p)
				continue
			}
			tris, err := p.Triangulate()
			if err != nil {
				res.warn("polygon %d: %v", pi, err)
				out = append(out, *p)
				continue
			}
			out = append(out, tris...)
		}
		o.Polys.Element = out
		res.modified(o)
	}
	return res, nil
}

// Optimize merges the selected faces, or every face, into as few convex
// polygons as possible.
type Optimize struct{ passive }

// Kind implements Modifier.
func (Optimize) Kind() Kind { return KindOptimize }

// Supports implements Modifier.
func (Optimize) Supports(ctx *Context) bool {
	_, edges, verts := counts(ctx)
	return edges == 0 && verts == 0
}

// Apply implements Modifier.
func (Optimize) Apply(ctx *Context) (Result, error) {
	var res Result
	for _, o := range ctx.Objects {
		targets := lo.SliceToMap(targetPolys(o), func(pi int) (int, bool) { return pi, true })
		var keep, merge []poly.Poly
		for pi := range o.Polys.Element {
			if targets[pi] {
				merge = append(merge, o.Polys.Element[pi])
			} else {
				keep = append(keep, o.Polys.Element[pi])
			}
		}
		o.Polys.Element = append(keep, poly.OptimizeIntoConvexPolys(merge)...)
		res.modified(o)
	}
	return res, nil
}

// Turn swaps the diagonal shared by the two triangles on each selected
// edge.
type Turn struct{ passive }

// Kind implements Modifier.
func (Turn) Kind() Kind { return KindTurn }

// Supports implements Modifier.
func (Turn) Supports(ctx *Context) bool {
	faces, edges, verts := counts(ctx)
	return faces == 0 && verts == 0 && edges > 0
}

// Apply implements Modifier.
func (Turn) Apply(ctx *Context) (Result, error) {
	var res Result
	for _, o := range ctx.Objects {
		for _, ei := range o.SelectedEdges() {
			e := o.Edges[ei]
			if len(e.Faces) != 2 {
				return Result{}, ErrNotTriangles
			}
			for _, f := range e.Faces {
				if len(o.Faces[f].Verts) != 3 {
					return Result{}, ErrNotTriangles
				}
			}
		}
		for _, ei := range o.SelectedEdges() {
			e := o.Edges[ei]
			f1, f2 := e.Faces[0], e.Faces[1]
			x, y, z, ok := triangleAround(o.Faces[f1].Verts, e.V)
			if !ok {
				continue
			}
			_, _, w, ok := triangleAround(o.Faces[f2].Verts, [2]int{y, x})
			if !ok {
				continue
			}
			if len(lo.Uniq([]int{x, w, y, z})) < 4 {
				res.warn("edge %d: quad has only three distinct corners", ei)
				continue
			}
			pos := func(v int) math.Vec3 { return o.Vertices[v].Pos }
			p1 := o.FacePoly(f1)
			p2 := o.FacePoly(f2)
			*p1 = p1.WithVertices([]math.Vec3{pos(x), pos(w), pos(z)})
			*p2 = p2.WithVertices([]math.Vec3{pos(w), pos(y), pos(z)})
			// The shared ring changed; later edges must be re-read.
			o.Faces[f1].Verts = []int{x, w, z}
			o.Faces[f2].Verts = []int{w, y, z}
		}
		res.modified(o)
	}
	return res, nil
}

// triangleAround rotates a triangle's ring so that it reads x, y, z with
// {x, y} the given edge. It reports false when the edge is not on the
// triangle.
func triangleAround(tri []int, edge [2]int) (x, y, z int, ok bool) {
	for k := 0; k < 3; k++ {
		a, b := tri[k], tri[(k+1)%3]
		if (a == edge[0] && b == edge[1]) || (a == edge[1] && b == edge[0]) {
			return a, b, tri[(k+2)%3], true
		}
	}
	return 0, 0, 0, false
}

// Weld moves every selected vertex onto the first one selected.
type Weld struct{ passive }

// Kind implements Modifier.
func (Weld) Kind() Kind { return KindWeld }

// Supports implements Modifier.
func (Weld) Supports(ctx *Context) bool {
	faces, edges, verts := counts(ctx)
	return faces == 0 && edges == 0 && verts > 1
}

// Apply implements Modifier.
func (Weld) Apply(ctx *Context) (Result, error) {
	var res Result
	for _, o := range ctx.Objects {
		sel := o.SelectedVertices()
		if len(sel) < 2 {
			continue
		}
		target := o.Vertices[sel[0]].Pos
		for _, v := range sel[1:] {
			o.Vertices[v].Pos = target
		}
		o.SendToSource()
		res.modified(o)
	}
	return res, nil
}
