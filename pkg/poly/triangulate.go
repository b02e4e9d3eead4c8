package poly

import (
	gomath "math"

	"github.com/Faultbox/midgard-csg/pkg/math"
)

// Triangulate decomposes a planar, possibly concave polygon into triangles
// by ear clipping. Every triangle keeps the polygon's attributes and
// winding, so each one faces along the original normal.
func (p *Poly) Triangulate() ([]Poly, error) {
	n := len(p.Vertices)
	if n < 3 {
		return nil, ErrTooFewVertices
	}
	if n == 3 {
		return []Poly{p.Clone()}, nil
	}

	normal := p.Normal
	if normal.IsNearlyZero(math.SmallNumber) {
		normal = sumNormal(p.Vertices).Normalize()
		if normal.IsNearlyZero(math.SmallNumber) {
			return nil, ErrZeroArea
		}
	}

	axis := normal.DominantAxis()
	pts := make([]math.Vec2, n)
	for i, v := range p.Vertices {
		pts[i] = math.Project(v, axis)
	}
	// Projection keeps right-handedness only when the normal points along
	// the positive dropped axis.
	orient := 1.0
	if normal.Component(axis) < 0 {
		orient = -1
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	tris := make([]Poly, 0, n-2)
	emit := func(a, b, c int) {
		t := p.WithVertices([]math.Vec3{p.Vertices[a], p.Vertices[b], p.Vertices[c]})
		t.Normal = normal
		tris = append(tris, t)
	}

	for len(idx) > 3 {
		clipped := false
		for k := 0; k < len(idx); k++ {
			ia := idx[(k+len(idx)-1)%len(idx)]
			ib := idx[k]
			ic := idx[(k+1)%len(idx)]
			if !isEar(pts, idx, ia, ib, ic, orient) {
				continue
			}
			emit(ia, ib, ic)
			idx = append(idx[:k], idx[k+1:]...)
			clipped = true
			break
		}
		if clipped {
			continue
		}
		// No ear: drop a degenerate (colinear) corner if there is one.
		dropped := false
		for k := 0; k < len(idx); k++ {
			ia := idx[(k+len(idx)-1)%len(idx)]
			ib := idx[k]
			ic := idx[(k+1)%len(idx)]
			if gomath.Abs(cross2(pts[ia], pts[ib], pts[ic])) < math.KindaSmallNumber {
				idx = append(idx[:k], idx[k+1:]...)
				dropped = true
				break
			}
		}
		if !dropped {
			return nil, ErrTriangulate
		}
	}
	if len(idx) == 3 {
		if orient*cross2(pts[idx[0]], pts[idx[1]], pts[idx[2]]) > 0 {
			emit(idx[0], idx[1], idx[2])
		}
	}
	if len(tris) == 0 {
		return nil, ErrTriangulate
	}
	return tris, nil
}

func cross2(a, b, c math.Vec2) float64 {
	return b.Sub(a).Cross(c.Sub(b))
}

func isEar(pts []math.Vec2, idx []int, ia, ib, ic int, orient float64) bool {
	a, b, c := pts[ia], pts[ib], pts[ic]
	if orient*cross2(a, b, c) <= math.KindaSmallNumber {
		return false // reflex or flat corner
	}
	for _, j := range idx {
		if j == ia || j == ib || j == ic {
			continue
		}
		q := pts[j]
		if q == a || q == b || q == c {
			continue
		}
		if pointInTriangle(q, a, b, c, orient) {
			return false
		}
	}
	return true
}

func pointInTriangle(q, a, b, c math.Vec2, orient float64) bool {
	d1 := orient * b.Sub(a).Cross(q.Sub(a))
	d2 := orient * c.Sub(b).Cross(q.Sub(b))
	d3 := orient * a.Sub(c).Cross(q.Sub(c))
	return d1 >= 0 && d2 >= 0 && d3 >= 0
}
