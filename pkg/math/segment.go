package math

import "math"

// ClosestPointOnSegment returns the point on segment a-b nearest to p.
func ClosestPointOnSegment(p, a, b Vec3) Vec3 {
	ab := b.Sub(a)
	den := ab.SizeSquared()
	if den < SmallNumber {
		return a
	}
	t := p.Sub(a).Dot(ab) / den
	t = math.Max(0, math.Min(1, t))
	return a.Add(ab.Scale(t))
}

// PointDistToSegment returns the distance from p to segment a-b.
func PointDistToSegment(p, a, b Vec3) float64 {
	return p.Distance(ClosestPointOnSegment(p, a, b))
}

// SegmentDistToSegment returns the closest points between segments a0-a1
// and b0-b1.
func SegmentDistToSegment(a0, a1, b0, b1 Vec3) (Vec3, Vec3) {
	d1 := a1.Sub(a0)
	d2 := b1.Sub(b0)
	r := a0.Sub(b0)
	a := d1.SizeSquared()
	e := d2.SizeSquared()
	f := d2.Dot(r)

	if a < SmallNumber && e < SmallNumber {
		return a0, b0
	}
	var s, t float64
	if a < SmallNumber {
		s = 0
		t = clamp01(f / e)
	} else {
		c := d1.Dot(r)
		if e < SmallNumber {
			t = 0
			s = clamp01(-c / a)
		} else {
			b := d1.Dot(d2)
			denom := a*e - b*b
			if denom > SmallNumber {
				s = clamp01((b*f - c*e) / denom)
			}
			t = (b*s + f) / e
			if t < 0 {
				t = 0
				s = clamp01(-c / a)
			} else if t > 1 {
				t = 1
				s = clamp01((b - c) / a)
			}
		}
	}
	return a0.Add(d1.Scale(s)), b0.Add(d2.Scale(t))
}

// SegmentsIntersect2D reports whether segments a0-a1 and b0-b1 cross.
// Touching within epsilon counts as crossing.
func SegmentsIntersect2D(a0, a1, b0, b1 Vec2, epsilon float64) bool {
	d1 := orient(b0, b1, a0)
	d2 := orient(b0, b1, a1)
	d3 := orient(a0, a1, b0)
	d4 := orient(a0, a1, b1)

	if ((d1 > epsilon && d2 < -epsilon) || (d1 < -epsilon && d2 > epsilon)) &&
		((d3 > epsilon && d4 < -epsilon) || (d3 < -epsilon && d4 > epsilon)) {
		return true
	}
	if math.Abs(d1) <= epsilon && onSegment2D(b0, b1, a0, epsilon) {
		return true
	}
	if math.Abs(d2) <= epsilon && onSegment2D(b0, b1, a1, epsilon) {
		return true
	}
	if math.Abs(d3) <= epsilon && onSegment2D(a0, a1, b0, epsilon) {
		return true
	}
	if math.Abs(d4) <= epsilon && onSegment2D(a0, a1, b1, epsilon) {
		return true
	}
	return false
}

func orient(a, b, c Vec2) float64 {
	return b.Sub(a).Cross(c.Sub(a))
}

func onSegment2D(a, b, p Vec2, epsilon float64) bool {
	return p.X >= math.Min(a.X, b.X)-epsilon && p.X <= math.Max(a.X, b.X)+epsilon &&
		p.Y >= math.Min(a.Y, b.Y)-epsilon && p.Y <= math.Max(a.Y, b.Y)+epsilon
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
