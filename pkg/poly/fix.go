package poly

import (
	"fmt"

	"github.com/Faultbox/midgard-csg/pkg/math"
)

// Fix removes consecutive duplicate vertices, including a duplicate of the
// first vertex at the end of the ring. A polygon left with fewer than three
// vertices is emptied. Returns the resulting vertex count.
func (p *Poly) Fix() int {
	n := len(p.Vertices)
	if n == 0 {
		return 0
	}
	out := make([]math.Vec3, 0, n)
	last := p.Vertices[n-1]
	for _, v := range p.Vertices {
		if !math.PointsAreSame(v, last) {
			out = append(out, v)
			last = v
		}
	}
	p.Vertices = append(p.Vertices[:0], out...)
	if len(p.Vertices) < 3 {
		p.Vertices = p.Vertices[:0]
	}
	return len(p.Vertices)
}

func sumNormal(vertices []math.Vec3) math.Vec3 {
	var n math.Vec3
	if len(vertices) < 3 {
		return n
	}
	v0 := vertices[0]
	for i := 2; i < len(vertices); i++ {
		n = n.Add(vertices[i-1].Sub(v0).Cross(vertices[i].Sub(v0)))
	}
	return n
}

// CalcNormal recomputes the normal from the vertex ring. A zero-area polygon
// fails with ErrZeroArea and keeps its previous normal; silent drops the
// diagnostic detail from the error.
func (p *Poly) CalcNormal(silent bool) error {
	n := sumNormal(p.Vertices)
	if n.SizeSquared() < math.ThreshZeroNormSquared {
		if silent {
			return ErrZeroArea
		}
		return fmt.Errorf("%w: %d vertices, cross sum %v", ErrZeroArea, len(p.Vertices), n)
	}
	p.Normal = n.Normalize()
	return nil
}

// RemoveColinears drops vertices that sit on a straight edge or collapse
// an edge to zero length. It returns false and empties the polygon when
// fewer than three vertices remain or when a concave corner is found.
func (p *Poly) RemoveColinears() bool {
	n := len(p.Vertices)
	if n < 3 {
		p.Vertices = p.Vertices[:0]
		return false
	}
	side := make([]math.Vec3, 0, n)

	// Side-plane normal i belongs to the edge ending at vertex i.
	for i := 0; i < len(p.Vertices); {
		j := (i + len(p.Vertices) - 1) % len(p.Vertices)
		s := p.Vertices[i].Sub(p.Vertices[j]).Cross(p.Normal)
		if s.SizeSquared() < math.SmallNumber {
			p.Vertices = append(p.Vertices[:i], p.Vertices[i+1:]...)
			if len(p.Vertices) < 3 {
				p.Vertices = p.Vertices[:0]
				return false
			}
			side = side[:0]
			i = 0
			continue
		}
		side = append(side, s.Normalize())
		i++
	}

	for i := 0; i < len(p.Vertices); {
		j := (i + 1) % len(p.Vertices)
		if side[i].Equals(side[j], math.ThreshVectorsAreNear) {
			// Vertex i joins two edges pointing the same way.
			side = append(side[:i], side[i+1:]...)
			p.Vertices = append(p.Vertices[:i], p.Vertices[i+1:]...)
			if len(p.Vertices) < 3 {
				p.Vertices = p.Vertices[:0]
				return false
			}
			continue
		}
		switch p.SplitWithPlane(p.Vertices[i], side[i], nil, nil, false) {
		case SplitFront, SplitSplit:
			p.Vertices = p.Vertices[:0]
			return false
		}
		i++
	}
	return true
}

// Finalize validates a freshly built or mutated polygon and derives the
// normal and texture axes when they are missing.
//
// A polygon that degenerates below three vertices is removed from owner when
// owner holds it. With allowError false a degenerate polygon is a programming
// error and panics.
func (p *Poly) Finalize(owner *List, allowError bool) error {
	snapshot := p.WithVertices(p.Vertices)
	p.Fix()
	if len(p.Vertices) < 3 {
		if owner != nil {
			idx := owner.IndexOf(p)
			if idx < 0 {
				idx = owner.IndexOf(&snapshot)
			}
			if idx >= 0 {
				owner.RemoveAt(idx)
			}
		}
		err := fmt.Errorf("%w: finalize left %d", ErrTooFewVertices, len(p.Vertices))
		if !allowError && owner == nil {
			panic(err)
		}
		return err
	}

	if p.Normal.IsNearlyZero(0) {
		if err := p.CalcNormal(false); err != nil {
			if !allowError {
				panic(err)
			}
			return err
		}
	}

	if p.TextureU.IsNearlyZero(0) && p.TextureV.IsNearlyZero(0) {
		for i := 1; i < len(p.Vertices); i++ {
			p.TextureU = p.Vertices[0].Sub(p.Vertices[i]).Cross(p.Normal).Normalize()
			p.TextureV = p.Normal.Cross(p.TextureU).Normalize()
			if p.TextureU.SizeSquared() != 0 && p.TextureV.SizeSquared() != 0 {
				break
			}
		}
	}
	if p.Base.IsNearlyZero(0) {
		p.Base = p.Vertices[0]
	}
	return nil
}

// OnPlane reports whether point lies on the polygon's plane.
func (p *Poly) OnPlane(point math.Vec3) bool {
	if len(p.Vertices) == 0 {
		return false
	}
	d := point.Sub(p.Vertices[0]).Dot(p.Normal)
	return d > -math.ThreshPointOnPlane && d < math.ThreshPointOnPlane
}

// OnPoly reports whether point lies inside the polygon's outline, testing
// it against every edge's side plane.
func (p *Poly) OnPoly(point math.Vec3) bool {
	n := len(p.Vertices)
	if n < 3 {
		return false
	}
	for x := 0; x < n; x++ {
		prev := p.Vertices[(x+n-1)%n]
		side := p.Vertices[x].Sub(prev).Cross(p.Normal).Normalize()
		if point.Sub(p.Vertices[x]).Dot(side) > math.ThreshPointOnPlane {
			return false
		}
	}
	return true
}
