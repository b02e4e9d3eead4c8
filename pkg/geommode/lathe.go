package geommode

import (
	gomath "math"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-csg/pkg/math"
	"github.com/Faultbox/midgard-csg/pkg/poly"
)

// Lathe sweeps the selected brush shapes around the pivot. The rotation
// axis is the axis the orthographic view looks along.
type Lathe struct {
	passive
	// TotalSegments is the number of steps in a full turn.
	TotalSegments int
	// Segments is how many of those steps to sweep.
	Segments int
	// AlignToSide starts and ends the sweep with half steps.
	AlignToSide bool
}

// NewLathe returns a lathe with the editor defaults.
func NewLathe() *Lathe {
	return &Lathe{TotalSegments: 16, Segments: 4}
}

// Kind implements Modifier.
func (*Lathe) Kind() Kind { return KindLathe }

// Supports implements Modifier. At least one brush shape is needed.
func (*Lathe) Supports(ctx *Context) bool {
	return len(shapes(ctx)) > 0
}

func shapes(ctx *Context) []*Object {
	var out []*Object
	for _, o := range ctx.Objects {
		if o.Shape && o.Polys.Len() > 0 {
			out = append(out, o)
		}
	}
	return out
}

// Apply implements Modifier. The result replaces the builder brush, placed
// at the pivot, and is also returned as a new additive brush.
func (m *Lathe) Apply(ctx *Context) (Result, error) {
	if !ctx.View.IsOrtho() {
		return Result{}, ErrNotOrtho
	}
	total := max(m.TotalSegments, 3)
	segments := max(m.Segments, 1)
	if segments > total {
		total = segments
	}
	axis := axisVector(ctx.View.Axis())
	step := 2 * gomath.Pi / float64(total)
	caps := segments < total

	angles := []float64{0}
	rings := segments + 1
	if m.AlignToSide {
		rings++
	}
	for s := 0; len(angles) < rings; s++ {
		a := step
		if m.AlignToSide && (s == 0 || s == segments) {
			a = step / 2
		}
		angles = append(angles, angles[len(angles)-1]+a)
	}
	endAngle := angles[len(angles)-1]

	out := &poly.List{}
	for _, shape := range shapes(ctx) {
		src := worldPolys(shape)
		normal := src[0].Normal
		for _, winding := range poly.GetOutsideWindings(src, false) {
			local := make([]math.Vec3, len(winding))
			for i, v := range winding {
				local[i] = v.Sub(ctx.Pivot)
			}
			m.sweep(out, local, normal, axis, angles)
			if !caps {
				continue
			}
			m.cap(ctx, out, local, axis, false)
			m.cap(ctx, out, rotateAll(local, axis, endAngle), axis, true)
		}
	}

	res := Result{Created: []NewBrush{{Polys: out.Clone(), Transform: math.Translation(ctx.Pivot)}}}
	if b := ctx.Builder; b != nil {
		b.CacheState()
		b.Polys.Element = out.Clone().Element
		b.Transform = math.Translation(ctx.Pivot)
		b.Refresh()
		if b.EdgesOverlap() {
			b.RestoreState()
			return Result{}, ErrEdgesOverlap
		}
		res.modified(b)
	}
	return res, nil
}

// sweep appends the side walls of one winding. The walls of a winding are
// turned as a whole so that they face away from the shape's interior.
func (m *Lathe) sweep(out *poly.List, winding []math.Vec3, normal, axis math.Vec3, angles []float64) {
	n := len(winding)
	rings := make([][]math.Vec3, len(angles))
	for s, a := range angles {
		rings[s] = rotateAll(winding, axis, a)
	}

	var walls []poly.Poly
	facing := 0.0
	for s := 0; s+1 < len(rings); s++ {
		mid := (angles[s] + angles[s+1]) / 2
		for v := 0; v < n; v++ {
			w := (v + 1) % n
			p := poly.New(rings[s][v], rings[s+1][v], rings[s+1][w], rings[s][w])
			if err := p.Finalize(nil, true); err != nil {
				continue
			}
			outward := rotateAbout(winding[w].Sub(winding[v]).Cross(normal), axis, mid)
			facing += p.Normal.Dot(outward) * p.Area()
			walls = append(walls, p)
		}
	}
	for i := range walls {
		if facing < 0 {
			walls[i].Reverse()
		}
		out.Add(walls[i])
	}
}

// cap closes one end of a partial sweep. The start cap faces against the
// direction of rotation and the end cap along it.
func (m *Lathe) cap(ctx *Context, out *poly.List, outline []math.Vec3, axis math.Vec3, end bool) {
	pieces, err := convexPieces(outline, true)
	if err != nil {
		ctx.logger().Debug("geommode: lathe cap skipped", zap.Error(err))
		return
	}
	for _, p := range pieces {
		tangent := axis.Cross(p.MidPoint())
		d := p.Normal.Dot(tangent)
		if (end && d < 0) || (!end && d > 0) {
			p.Reverse()
		}
		addFinalized(out, p)
	}
}

func rotateAll(points []math.Vec3, axis math.Vec3, angle float64) []math.Vec3 {
	out := make([]math.Vec3, len(points))
	for i, p := range points {
		out[i] = rotateAbout(p, axis, angle)
	}
	return out
}
