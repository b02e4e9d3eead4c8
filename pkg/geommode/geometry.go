package geommode

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/midgard-csg/pkg/math"
	"github.com/Faultbox/midgard-csg/pkg/poly"
)

// axisVector returns the unit vector along axis 0, 1 or 2.
func axisVector(axis int) math.Vec3 {
	return math.Vec3{}.WithComponent(axis, 1)
}

// rotateAbout rotates v by angle radians, right-handed, about an axis
// through the origin.
func rotateAbout(v, axis math.Vec3, angle float64) math.Vec3 {
	return math.FromMgl(mgl64.QuatRotate(angle, axis.Mgl()).Rotate(v.Mgl()))
}

// addFinalized finalizes p and appends it to list, reporting whether it
// survived.
func addFinalized(list *poly.List, p poly.Poly) bool {
	if err := p.Finalize(nil, true); err != nil {
		return false
	}
	list.Add(p)
	return true
}

// worldPolys returns copies of the object's polygons in world space.
func worldPolys(o *Object) []poly.Poly {
	out := make([]poly.Poly, o.Polys.Len())
	for i := range o.Polys.Element {
		out[i] = o.Polys.Element[i].Clone()
		out[i].Transform(o.Transform)
	}
	return out
}

// convexPieces triangulates the polygon with the given outline and merges
// the triangles back into convex polygons.
func convexPieces(outline []math.Vec3, merge bool) ([]poly.Poly, error) {
	p := poly.New(outline...)
	if err := p.Finalize(nil, true); err != nil {
		return nil, err
	}
	tris, err := p.Triangulate()
	if err != nil {
		return nil, err
	}
	if !merge {
		return tris, nil
	}
	return poly.OptimizeIntoConvexPolys(tris), nil
}
