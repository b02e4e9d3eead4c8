package math

import "math"

// Box is an axis-aligned bounding box. The zero value is an empty box.
type Box struct {
	Min, Max Vec3
	Valid    bool
}

// Sphere is a bounding sphere with radius W.
type Sphere struct {
	Center Vec3
	W      float64
}

// BoxFromPoints returns the smallest box containing points.
func BoxFromPoints(points []Vec3) Box {
	var b Box
	for _, p := range points {
		b = b.AddPoint(p)
	}
	return b
}

// AddPoint grows the box to contain p.
func (b Box) AddPoint(p Vec3) Box {
	if !b.Valid {
		return Box{Min: p, Max: p, Valid: true}
	}
	b.Min = b.Min.Min(p)
	b.Max = b.Max.Max(p)
	return b
}

// AddBox grows the box to contain other.
func (b Box) AddBox(other Box) Box {
	if !other.Valid {
		return b
	}
	if !b.Valid {
		return other
	}
	b.Min = b.Min.Min(other.Min)
	b.Max = b.Max.Max(other.Max)
	return b
}

// Center returns the box center.
func (b Box) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Extent returns the half-size of the box.
func (b Box) Extent() Vec3 {
	return b.Max.Sub(b.Min).Scale(0.5)
}

// ExpandBy grows the box by d on every side.
func (b Box) ExpandBy(d float64) Box {
	if !b.Valid {
		return b
	}
	e := Vec3{d, d, d}
	return Box{Min: b.Min.Sub(e), Max: b.Max.Add(e), Valid: true}
}

// Contains reports whether p is inside the box.
func (b Box) Contains(p Vec3) bool {
	return b.Valid &&
		p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Intersects reports whether the two boxes overlap.
func (b Box) Intersects(other Box) bool {
	if !b.Valid || !other.Valid {
		return false
	}
	return b.Min.X <= other.Max.X && b.Max.X >= other.Min.X &&
		b.Min.Y <= other.Max.Y && b.Max.Y >= other.Min.Y &&
		b.Min.Z <= other.Max.Z && b.Max.Z >= other.Min.Z
}

// Sphere returns a sphere enclosing the box.
func (b Box) Sphere() Sphere {
	if !b.Valid {
		return Sphere{}
	}
	return Sphere{Center: b.Center(), W: b.Extent().Length()}
}

// Corners returns the eight box corners.
func (b Box) Corners() [8]Vec3 {
	var out [8]Vec3
	for i := 0; i < 8; i++ {
		out[i] = Vec3{
			pick(i&1 != 0, b.Max.X, b.Min.X),
			pick(i&2 != 0, b.Max.Y, b.Min.Y),
			pick(i&4 != 0, b.Max.Z, b.Min.Z),
		}
	}
	return out
}

// Volume returns the box volume.
func (b Box) Volume() float64 {
	if !b.Valid {
		return 0
	}
	d := b.Max.Sub(b.Min)
	return math.Abs(d.X * d.Y * d.Z)
}

func pick(cond bool, a, b float64) float64 {
	if cond {
		return a
	}
	return b
}
