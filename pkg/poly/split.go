package poly

import "github.com/Faultbox/midgard-csg/pkg/math"

// SplitResult classifies a polygon against a plane.
type SplitResult int

// Split outcomes.
const (
	SplitCoplanar SplitResult = iota
	SplitFront
	SplitBack
	SplitSplit
)

func (r SplitResult) String() string {
	switch r {
	case SplitCoplanar:
		return "coplanar"
	case SplitFront:
		return "front"
	case SplitBack:
		return "back"
	case SplitSplit:
		return "split"
	}
	return "unknown"
}

type side int8

const (
	sideBack side = iota - 1
	sideOn
	sideFront
)

// SplitWithPlane classifies the polygon against the plane through base
// with the given normal. When the polygon straddles the plane and front
// and back are non-nil they receive the two halves: front vertices go to
// front, back vertices to back, vertices on the plane and the edge
// intersection points to both. A half that collapses below three vertices
// turns the result into Front or Back so no sliver is emitted; the other
// output is then left untouched.
//
// precise selects ThreshSplitPolyPrecisely instead of the coarser
// ThreshSplitPolyWithPlane.
func (p *Poly) SplitWithPlane(base, normal math.Vec3, front, back *Poly, precise bool) SplitResult {
	thresh := math.ThreshSplitPolyWithPlane
	if precise {
		thresh = math.ThreshSplitPolyPrecisely
	}
	n := len(p.Vertices)
	if n == 0 {
		return SplitCoplanar
	}

	dist := make([]float64, n)
	sides := make([]side, n)
	minDist, maxDist := 0.0, 0.0
	for i, v := range p.Vertices {
		d := v.Sub(base).Dot(normal)
		dist[i] = d
		if i == 0 || d > maxDist {
			maxDist = d
		}
		if i == 0 || d < minDist {
			minDist = d
		}
		switch {
		case d > thresh:
			sides[i] = sideFront
		case d < -thresh:
			sides[i] = sideBack
		default:
			sides[i] = sideOn
		}
	}

	switch {
	case maxDist < thresh && minDist > -thresh:
		return SplitCoplanar
	case maxDist < thresh:
		return SplitBack
	case minDist > -thresh:
		return SplitFront
	}
	if front == nil || back == nil {
		return SplitSplit
	}

	fv := make([]math.Vec3, 0, n+2)
	bv := make([]math.Vec3, 0, n+2)
	for i := 0; i < n; i++ {
		v := p.Vertices[i]
		switch sides[i] {
		case sideFront:
			fv = append(fv, v)
		case sideBack:
			bv = append(bv, v)
		default:
			fv = append(fv, v)
			bv = append(bv, v)
		}
		j := (i + 1) % n
		if (sides[i] == sideFront && sides[j] == sideBack) || (sides[i] == sideBack && sides[j] == sideFront) {
			t := dist[i] / (dist[i] - dist[j])
			x := v.Add(p.Vertices[j].Sub(v).Scale(t))
			fv = append(fv, x)
			bv = append(bv, x)
		}
	}

	f := p.WithVertices(fv)
	b := p.WithVertices(bv)
	f.Flags |= FlagEdCut
	b.Flags |= FlagEdCut
	if f.Fix() < 3 {
		return SplitBack
	}
	if b.Fix() < 3 {
		return SplitFront
	}
	*front = f
	*back = b
	return SplitSplit
}

// SplitWithPlaneValue splits against a plane value.
func (p *Poly) SplitWithPlaneValue(plane math.Plane, front, back *Poly, precise bool) SplitResult {
	n := plane.Normal()
	return p.SplitWithPlane(n.Scale(plane.W), n, front, back, precise)
}

// SplitWithPlaneFast classifies the polygon with a single epsilon, and
// only computes intersections when the polygon really straddles the plane.
// It is meant for hot classification loops; the outputs are not fixed up.
func (p *Poly) SplitWithPlaneFast(plane math.Plane, front, back *Poly) SplitResult {
	n := len(p.Vertices)
	status := make([]bool, n) // true = front
	hasFront, hasBack := false, false
	for i, v := range p.Vertices {
		d := plane.Dot(v)
		if d >= 0 {
			status[i] = true
			if d > math.ThreshSplitPolyWithPlane {
				hasFront = true
			}
		} else if d < -math.ThreshSplitPolyWithPlane {
			hasBack = true
		}
	}
	switch {
	case !hasFront && !hasBack:
		return SplitCoplanar
	case !hasFront:
		return SplitBack
	case !hasBack:
		return SplitFront
	}
	if front == nil || back == nil {
		return SplitSplit
	}

	*front = p.WithVertices(nil)
	*back = p.WithVertices(nil)
	prev := status[n-1]
	w := p.Vertices[n-1]
	for i := 0; i < n; i++ {
		v := p.Vertices[i]
		cur := status[i]
		if cur != prev {
			x := math.LinePlaneIntersection(w, v, plane)
			front.Vertices = append(front.Vertices, x)
			back.Vertices = append(back.Vertices, x)
			if prev {
				back.Vertices = append(back.Vertices, v)
			} else {
				front.Vertices = append(front.Vertices, v)
			}
		} else if cur {
			front.Vertices = append(front.Vertices, v)
		} else {
			back.Vertices = append(back.Vertices, v)
		}
		prev = cur
		w = v
	}
	return SplitSplit
}
