package geommode

import (
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-csg/pkg/bsp"
	"github.com/Faultbox/midgard-csg/pkg/math"
	"github.com/Faultbox/midgard-csg/pkg/poly"
)

// clipMarkerDepth offsets the third point of the clip plane along the view
// axis.
const clipMarkerDepth = 64

// capPlaneTolerance matches cap fragments to the clip plane.
const capPlaneTolerance = 0.01

// Clip cuts brushes with the plane through two markers placed in an
// orthographic view and the view direction. The part behind the plane is
// kept and the cut is closed with a cap.
type Clip struct {
	// Flip keeps the other side.
	Flip bool
	// Split keeps both sides as separate brushes.
	Split bool
	// Markers are the placed points in world space, at most two.
	Markers []math.Vec3

	view   View
	cursor math.Vec3
}

// Kind implements Modifier.
func (*Clip) Kind() Kind { return KindClip }

// Supports implements Modifier.
func (*Clip) Supports(ctx *Context) bool {
	for _, o := range ctx.Objects {
		if !o.Shape {
			return true
		}
	}
	return false
}

// HandleKey implements Modifier. Space or Ctrl+right click places a marker;
// a third marker replaces the oldest. Escape and Backspace remove the last
// marker. Enter applies.
func (m *Clip) HandleKey(_ *Context, ev KeyEvent) KeyAction {
	if ev.Released || !ev.View.IsOrtho() {
		return KeyIgnored
	}
	m.cursor = ev.Cursor
	switch {
	case ev.placesPoint():
		if len(m.Markers) > 0 && ev.View != m.view {
			m.Markers = m.Markers[:0]
		}
		if len(m.Markers) == 2 {
			m.Markers = append(m.Markers[:0], m.Markers[1])
		}
		m.view = ev.View
		m.Markers = append(m.Markers, ev.Cursor)
		return KeyHandled
	case ev.Key == KeyEscape || ev.Key == KeyBackspace:
		if len(m.Markers) > 0 {
			m.Markers = m.Markers[:len(m.Markers)-1]
		}
		return KeyHandled
	case ev.Key == KeyEnter:
		if len(m.Markers) == 2 {
			return KeyApply
		}
	}
	return KeyIgnored
}

// plane returns the world-space clip plane.
func (m *Clip) plane(ctx *Context) (math.Plane, error) {
	if len(m.Markers) < 2 {
		return math.Plane{}, ErrNotEnoughMarkers
	}
	view := m.view
	if !view.IsOrtho() {
		view = ctx.View
	}
	if !view.IsOrtho() {
		return math.Plane{}, ErrNotOrtho
	}
	m1, m2 := m.Markers[0], m.Markers[1]
	m3 := m1.Sub(axisVector(view.Axis()).Scale(clipMarkerDepth))
	normal := m2.Sub(m1).Cross(m3.Sub(m1))
	if normal.SizeSquared() < math.ThreshZeroNormSquared {
		return math.Plane{}, ErrDegeneratePlane
	}
	p := math.NewPlane(m1, normal.Normalize())
	if m.Flip {
		p = p.Flip()
	}
	return p, nil
}

// Apply implements Modifier. The builder brush is clipped in place. Other
// brushes are replaced by their clipped halves.
func (m *Clip) Apply(ctx *Context) (Result, error) {
	world, err := m.plane(ctx)
	if err != nil {
		return Result{}, err
	}
	var res Result
	for _, o := range ctx.Objects {
		if o.Shape {
			continue
		}
		local := localPlane(o.Transform, world)
		kept := clipBrush(ctx, o.Polys, local)
		var other *poly.List
		if m.Split {
			other = clipBrush(ctx, o.Polys, local.Flip())
		}

		if o == ctx.Builder {
			o.Polys.Element = kept.Element
			res.modified(o)
			if other != nil && other.Len() > 0 {
				res.Created = append(res.Created, NewBrush{Polys: other, Transform: o.Transform})
			}
			continue
		}

		res.Removed = append(res.Removed, o.Brush)
		for _, half := range []*poly.List{kept, other} {
			if half != nil && half.Len() > 0 {
				res.Created = append(res.Created, NewBrush{Polys: half, Transform: o.Transform, Replaces: o.Brush})
			}
		}
	}
	ctx.logger().Debug("geommode: clipped",
		zap.Float64("nx", world.X), zap.Float64("ny", world.Y), zap.Float64("nz", world.Z), zap.Float64("w", world.W),
		zap.Bool("split", m.Split))
	return res, nil
}

// Render implements Modifier: the markers, the line between them and the
// direction of the kept side.
func (m *Clip) Render(ctx *Context) Lines {
	var l Lines
	for _, v := range m.Markers {
		l = l.Marker(v, 2)
	}
	if len(m.Markers) == 2 {
		l = l.Line(m.Markers[0], m.Markers[1])
		if p, err := m.plane(ctx); err == nil {
			mid := m.Markers[0].Lerp(m.Markers[1], 0.5)
			l = l.Dashed(mid, mid.Sub(p.Normal().Scale(16)), 2)
		}
	}
	return l.Marker(m.cursor, 4)
}

// localPlane maps a world plane into the space of t.
func localPlane(t math.Transform, p math.Plane) math.Plane {
	n := p.Normal()
	base := n.Scale(p.W)
	u, v := n.FindBestAxisVectors()
	a := t.InverseTransformPosition(base)
	b := t.InverseTransformPosition(base.Add(u))
	c := t.InverseTransformPosition(base.Add(v))
	out := math.PlaneFromPoints(a, b, c)
	if out.Normal().Dot(t.InverseTransformPosition(base.Add(n)).Sub(a)) < 0 {
		out = out.Flip()
	}
	return out
}

// clipBrush returns the part of a closed brush behind plane, closed with
// cap polygons on the plane. The cap is found by intersecting an infinite
// polygon on the plane with the brush's own tree.
func clipBrush(ctx *Context, src *poly.List, plane math.Plane) *poly.List {
	bctx := bsp.NewContext(ctx.logger())
	tree := bsp.NewModel()
	brush := bsp.NewModel()
	brush.Polys = src.Clone()
	bctx.BrushCSG(&bsp.Brush{Model: brush, Transform: math.IdentityTransform()}, tree, bsp.CsgOptions{Oper: bsp.CsgAdd})

	capModel := bsp.NewModel()
	capModel.Polys.Add(poly.BuildInfinite(plane))
	bctx.BrushCSG(&bsp.Brush{Model: capModel, Transform: math.IdentityTransform()}, tree,
		bsp.CsgOptions{Oper: bsp.CsgIntersect, MergePolys: true})

	var caps []poly.Poly
	for _, p := range capModel.Polys.Element {
		if len(p.Vertices) >= 3 && p.Plane().Equals(plane, capPlaneTolerance) {
			caps = append(caps, p)
		}
	}
	caps = poly.OptimizeIntoConvexPolys(caps)

	out := &poly.List{}
	base := plane.Normal().Scale(plane.W)
	for i := range src.Element {
		p := &src.Element[i]
		var front, back poly.Poly
		switch p.SplitWithPlane(base, plane.Normal(), &front, &back, true) {
		case poly.SplitBack:
			addFinalized(out, p.Clone())
		case poly.SplitSplit:
			addFinalized(out, back)
		}
	}
	for _, c := range caps {
		c.Link, c.BrushPoly = -1, -1
		addFinalized(out, c)
	}
	for i := range out.Element {
		out.Element[i].Link = i
		out.Element[i].Flags &^= poly.EditorFlags
	}
	return out
}
