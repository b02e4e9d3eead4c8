package poly

import "github.com/Faultbox/midgard-csg/pkg/math"

// TryToMerge joins two coplanar polygons that share an edge. On success a
// becomes the merged convex polygon, b is emptied and true is returned.
// maxVertices caps the merged vertex count.
func TryToMerge(a, b *Poly, maxVertices int) bool {
	na, nb := len(a.Vertices), len(b.Vertices)
	if na < 3 || nb < 3 || na+nb > maxVertices+2 {
		return false
	}

	start1, start2 := -1, -1
find:
	for i := 0; i < na; i++ {
		for j := 0; j < nb; j++ {
			if math.PointsAreSame(a.Vertices[i], b.Vertices[j]) {
				start1, start2 = i, j
				break find
			}
		}
	}
	if start1 < 0 {
		return false
	}

	// The shared edge runs start1->end1 in a and end2<-start2 in b.
	end1, end2 := start1, start2
	test1 := (start1 + 1) % na
	test2 := (start2 + nb - 1) % nb
	if math.PointsAreSame(a.Vertices[test1], b.Vertices[test2]) {
		end1 = test1
		start2 = test2
	} else {
		test1 = (start1 + na - 1) % na
		test2 = (start2 + 1) % nb
		if !math.PointsAreSame(a.Vertices[test1], b.Vertices[test2]) {
			return false
		}
		start1 = test1
		end2 = test2
	}

	merged := make([]math.Vec3, 0, na+nb-2)
	v := end1
	for i := 0; i < na; i++ {
		merged = append(merged, a.Vertices[v])
		v = (v + 1) % na
	}
	v = end2
	for i := 0; i < nb-2; i++ {
		v = (v + 1) % nb
		merged = append(merged, b.Vertices[v])
	}

	candidate := a.WithVertices(merged)
	if !candidate.RemoveColinears() || len(candidate.Vertices) > maxVertices {
		return false
	}
	*a = candidate
	b.Vertices = b.Vertices[:0]
	return true
}

type edge struct {
	a, b math.Vec3
}

func (e edge) matches(o edge) bool {
	return (math.PointsAreSame(e.a, o.a) && math.PointsAreSame(e.b, o.b)) ||
		(math.PointsAreSame(e.a, o.b) && math.PointsAreSame(e.b, o.a))
}

func edgesOf(p *Poly) []edge {
	n := len(p.Vertices)
	out := make([]edge, n)
	for i := 0; i < n; i++ {
		out[i] = edge{p.Vertices[i], p.Vertices[(i+1)%n]}
	}
	return out
}

// cuttingPlanes returns the outward side planes of every edge of p except
// the one at skip.
func cuttingPlanes(p *Poly, skip int, dst []math.Plane) []math.Plane {
	n := len(p.Vertices)
	for i := 0; i < n; i++ {
		if i == skip {
			continue
		}
		a, b := p.Vertices[i], p.Vertices[(i+1)%n]
		nrm := b.Sub(a).Cross(p.Normal).Normalize()
		if nrm.IsNearlyZero(math.SmallNumber) {
			continue
		}
		dst = append(dst, math.NewPlane(a, nrm))
	}
	return dst
}

// OptimizeIntoConvexPolys repeatedly merges pairs of coplanar polygons that
// share exactly one full edge whenever the union stays convex. The merged
// polygon is rebuilt by clipping an infinite polygon on the shared plane
// against the outline's remaining edges, which snaps it onto the plane.
// The polygon count never grows and the covered area is preserved.
func OptimizeIntoConvexPolys(polys []Poly) []Poly {
	for {
		merged := false
	scan:
		for i := 0; i < len(polys); i++ {
			pi := &polys[i]
			if len(pi.Vertices) < 3 {
				continue
			}
			ei := edgesOf(pi)
			for j := i + 1; j < len(polys); j++ {
				pj := &polys[j]
				if len(pj.Vertices) < 3 || !pi.Normal.Equals(pj.Normal, math.ThreshNormalsAreSame) {
					continue
				}
				if !pj.OnPlane(pi.Vertices[0]) {
					continue
				}
				ej := edgesOf(pj)
				si, sj, shared := -1, -1, 0
				for a := range ei {
					for b := range ej {
						if ei[a].matches(ej[b]) {
							si, sj = a, b
							shared++
						}
					}
				}
				if shared != 1 {
					continue
				}

				planes := cuttingPlanes(pi, si, nil)
				planes = cuttingPlanes(pj, sj, planes)
				if !behindAll(planes, pi.Vertices) || !behindAll(planes, pj.Vertices) {
					continue
				}

				out, ok := clipInfinite(pi, planes)
				if !ok {
					continue
				}
				polys[i] = out
				polys = append(polys[:j], polys[j+1:]...)
				merged = true
				break scan
			}
		}
		if !merged {
			return polys
		}
	}
}

func behindAll(planes []math.Plane, points []math.Vec3) bool {
	for _, pl := range planes {
		for _, v := range points {
			if pl.Dot(v) > math.ThreshPointOnPlane {
				return false
			}
		}
	}
	return true
}

func clipInfinite(src *Poly, planes []math.Plane) (Poly, bool) {
	inf := BuildInfinite(src.Plane())
	for _, pl := range planes {
		var front, back Poly
		switch inf.SplitWithPlaneValue(pl, &front, &back, true) {
		case SplitSplit:
			inf = back
		case SplitFront:
			return Poly{}, false
		}
	}
	out := src.WithVertices(inf.Vertices)
	out.Normal = src.Normal
	if !out.RemoveColinears() {
		return Poly{}, false
	}
	return out, true
}

// GetOutsideWindings returns the boundary loops of a connected polygon set:
// the chains of edges that no second polygon shares. Each loop follows the
// winding of the polygons it came from, reversed when flip is set.
func GetOutsideWindings(polys []Poly, flip bool) [][]math.Vec3 {
	var outside []edge
	for i := range polys {
		for _, e := range edgesOf(&polys[i]) {
			shared := false
			for j := range polys {
				if j == i {
					continue
				}
				for _, o := range edgesOf(&polys[j]) {
					if e.matches(o) {
						shared = true
						break
					}
				}
				if shared {
					break
				}
			}
			if !shared {
				outside = append(outside, e)
			}
		}
	}

	var windings [][]math.Vec3
	used := make([]bool, len(outside))
	for start := range outside {
		if used[start] {
			continue
		}
		used[start] = true
		loop := []math.Vec3{outside[start].a}
		cur := outside[start].b
		for !math.PointsAreSame(cur, outside[start].a) {
			next := -1
			for k := range outside {
				if !used[k] && math.PointsAreSame(outside[k].a, cur) {
					next = k
					break
				}
			}
			if next < 0 {
				break
			}
			used[next] = true
			loop = append(loop, cur)
			cur = outside[next].b
		}
		if len(loop) < 3 {
			continue
		}
		if flip {
			for a, b := 0, len(loop)-1; a < b; a, b = a+1, b-1 {
				loop[a], loop[b] = loop[b], loop[a]
			}
		}
		windings = append(windings, loop)
	}
	return windings
}
