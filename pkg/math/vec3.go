// Package math provides the vector, plane and transform types used by the
// geometry core. All math is float64: BSP construction accumulates error
// across many splits and single precision is not enough for it.
package math

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec3 is a 3D vector.
type Vec3 struct {
	X, Y, Z float64
}

// Axis unit vectors.
var (
	AxisX = Vec3{1, 0, 0}
	AxisY = Vec3{0, 1, 0}
	AxisZ = Vec3{0, 0, 1}
)

// Add returns v + other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{v.X + other.X, v.Y + other.Y, v.Z + other.Z}
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

// Scale returns v * scalar.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Mul returns the component-wise product.
func (v Vec3) Mul(other Vec3) Vec3 {
	return Vec3{v.X * other.X, v.Y * other.Y, v.Z * other.Z}
}

// Neg returns -v.
func (v Vec3) Neg() Vec3 {
	return Vec3{-v.X, -v.Y, -v.Z}
}

// Dot returns the dot product.
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Cross returns the cross product.
func (v Vec3) Cross(other Vec3) Vec3 {
	return Vec3{
		v.Y*other.Z - v.Z*other.Y,
		v.Z*other.X - v.X*other.Z,
		v.X*other.Y - v.Y*other.X,
	}
}

// Length returns the magnitude.
func (v Vec3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// SizeSquared returns the squared magnitude.
func (v Vec3) SizeSquared() float64 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

// Normalize returns a unit vector, or the zero vector when v is too short
// to have a meaningful direction.
func (v Vec3) Normalize() Vec3 {
	sq := v.SizeSquared()
	if sq < SmallNumber {
		return Vec3{}
	}
	inv := 1 / math.Sqrt(sq)
	return Vec3{v.X * inv, v.Y * inv, v.Z * inv}
}

// Distance returns the distance to another point.
func (v Vec3) Distance(other Vec3) float64 {
	return v.Sub(other).Length()
}

// DistSquared returns the squared distance to another point.
func (v Vec3) DistSquared(other Vec3) float64 {
	return v.Sub(other).SizeSquared()
}

// Abs returns the component-wise absolute value.
func (v Vec3) Abs() Vec3 {
	return Vec3{math.Abs(v.X), math.Abs(v.Y), math.Abs(v.Z)}
}

// Min returns the component-wise minimum.
func (v Vec3) Min(other Vec3) Vec3 {
	return Vec3{math.Min(v.X, other.X), math.Min(v.Y, other.Y), math.Min(v.Z, other.Z)}
}

// Max returns the component-wise maximum.
func (v Vec3) Max(other Vec3) Vec3 {
	return Vec3{math.Max(v.X, other.X), math.Max(v.Y, other.Y), math.Max(v.Z, other.Z)}
}

// Lerp interpolates between v and other.
func (v Vec3) Lerp(other Vec3, t float64) Vec3 {
	return v.Add(other.Sub(v).Scale(t))
}

// Component returns the i-th component (0 = X, 1 = Y, 2 = Z).
func (v Vec3) Component(i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// WithComponent returns a copy of v with the i-th component replaced.
func (v Vec3) WithComponent(i int, value float64) Vec3 {
	switch i {
	case 0:
		v.X = value
	case 1:
		v.Y = value
	default:
		v.Z = value
	}
	return v
}

// DominantAxis returns the index of the component with the largest magnitude.
func (v Vec3) DominantAxis() int {
	a := v.Abs()
	if a.X >= a.Y && a.X >= a.Z {
		return 0
	}
	if a.Y >= a.Z {
		return 1
	}
	return 2
}

// Equals reports whether every component differs by at most tolerance.
func (v Vec3) Equals(other Vec3, tolerance float64) bool {
	return math.Abs(v.X-other.X) <= tolerance &&
		math.Abs(v.Y-other.Y) <= tolerance &&
		math.Abs(v.Z-other.Z) <= tolerance
}

// IsNearlyZero reports whether every component is within tolerance of zero.
func (v Vec3) IsNearlyZero(tolerance float64) bool {
	return v.Equals(Vec3{}, tolerance)
}

// GridSnap rounds every component to the nearest multiple of grid.
func (v Vec3) GridSnap(grid float64) Vec3 {
	if grid == 0 {
		return v
	}
	return Vec3{
		math.Round(v.X/grid) * grid,
		math.Round(v.Y/grid) * grid,
		math.Round(v.Z/grid) * grid,
	}
}

// FindBestAxisVectors returns two unit vectors that, together with v
// (assumed normalized), form an orthogonal basis.
func (v Vec3) FindBestAxisVectors() (Vec3, Vec3) {
	a := v.Abs()
	axis1 := AxisZ
	if a.Z > a.X && a.Z > a.Y {
		axis1 = AxisX
	}
	axis1 = axis1.Sub(v.Scale(axis1.Dot(v))).Normalize()
	return axis1, axis1.Cross(v)
}

// Mgl converts to an mgl64 vector.
func (v Vec3) Mgl() mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Y, v.Z}
}

// FromMgl converts from an mgl64 vector.
func FromMgl(m mgl64.Vec3) Vec3 {
	return Vec3{m[0], m[1], m[2]}
}

// String returns a compact representation for logs.
func (v Vec3) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}

// PointsAreSame reports whether two points coincide within ThreshPointsAreSame.
func PointsAreSame(a, b Vec3) bool {
	return a.Equals(b, ThreshPointsAreSame)
}

// PointsAreNear reports whether two points are within dist on every axis.
func PointsAreNear(a, b Vec3, dist float64) bool {
	return a.Equals(b, dist)
}

// NormalsAreSame reports whether two normals coincide within ThreshNormalsAreSame.
func NormalsAreSame(a, b Vec3) bool {
	return a.Equals(b, ThreshNormalsAreSame)
}
