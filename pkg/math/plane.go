package math

import "math"

// Plane is the set of points p with Normal().Dot(p) == W.
type Plane struct {
	X, Y, Z, W float64
}

// NewPlane builds a plane through point with the given (unit) normal.
func NewPlane(point, normal Vec3) Plane {
	return Plane{normal.X, normal.Y, normal.Z, point.Dot(normal)}
}

// PlaneFromPoints builds the plane through a, b and c, facing
// (b-a) x (c-a).
func PlaneFromPoints(a, b, c Vec3) Plane {
	n := b.Sub(a).Cross(c.Sub(a)).Normalize()
	return NewPlane(a, n)
}

// Normal returns the plane normal.
func (p Plane) Normal() Vec3 {
	return Vec3{p.X, p.Y, p.Z}
}

// Dot returns the signed distance from point to the plane.
func (p Plane) Dot(point Vec3) float64 {
	return p.X*point.X + p.Y*point.Y + p.Z*point.Z - p.W
}

// NormalDot returns the dot product of the two plane normals.
func (p Plane) NormalDot(other Plane) float64 {
	return p.X*other.X + p.Y*other.Y + p.Z*other.Z
}

// Flip returns the same plane facing the other way.
func (p Plane) Flip() Plane {
	return Plane{-p.X, -p.Y, -p.Z, -p.W}
}

// Equals reports whether both planes match within tolerance.
func (p Plane) Equals(other Plane, tolerance float64) bool {
	return math.Abs(p.X-other.X) <= tolerance &&
		math.Abs(p.Y-other.Y) <= tolerance &&
		math.Abs(p.Z-other.Z) <= tolerance &&
		math.Abs(p.W-other.W) <= tolerance
}

// IsValid reports whether the plane has a usable normal.
func (p Plane) IsValid() bool {
	return p.Normal().SizeSquared() >= ThreshZeroNormSquared
}

// Intersect returns the point where segment a-b crosses the plane. The
// caller guarantees a and b are on opposite sides.
func (p Plane) Intersect(a, b Vec3) Vec3 {
	return LinePlaneIntersection(a, b, p)
}

// LinePlaneIntersection returns the intersection of the infinite line
// through a and b with plane.
func LinePlaneIntersection(a, b Vec3, plane Plane) Vec3 {
	dir := b.Sub(a)
	denom := plane.Normal().Dot(dir)
	if denom == 0 {
		return a
	}
	t := (plane.W - plane.Normal().Dot(a)) / denom
	return a.Add(dir.Scale(t))
}
