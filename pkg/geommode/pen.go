package geommode

import (
	gomath "math"

	"github.com/Faultbox/midgard-csg/pkg/math"
	"github.com/Faultbox/midgard-csg/pkg/poly"
)

// Pen draws a new brush vertex by vertex in an orthographic view.
type Pen struct {
	// CreateBrushShape makes a flat brush shape instead of a solid.
	CreateBrushShape bool
	// AutoExtrude gives the drawn shape ExtrudeDepth of thickness.
	AutoExtrude  bool
	ExtrudeDepth float64
	// CreateConvex merges the triangulated shape into convex polygons.
	CreateConvex bool

	// Vertices are the placed points in world space.
	Vertices []math.Vec3

	view   View
	cursor math.Vec3
}

// NewPen returns a pen with the editor defaults.
func NewPen() *Pen {
	return &Pen{AutoExtrude: true, ExtrudeDepth: 256, CreateConvex: true}
}

// Kind implements Modifier.
func (*Pen) Kind() Kind { return KindPen }

// Supports implements Modifier. The pen always accepts input; Apply needs
// three placed points.
func (m *Pen) Supports(*Context) bool { return true }

// HandleKey implements Modifier. Space or Ctrl+right click places a point,
// and placing it on the first point closes the shape. Escape and Backspace
// take the last point back. Enter closes the shape.
func (m *Pen) HandleKey(ctx *Context, ev KeyEvent) KeyAction {
	if ev.Released || !ev.View.IsOrtho() {
		return KeyIgnored
	}
	m.cursor = ev.Cursor
	switch {
	case ev.placesPoint():
		if len(m.Vertices) > 0 && ev.View != m.view {
			ctx.logger().Warn("geommode: pen points can only be placed in one viewport at a time")
			return KeyHandled
		}
		if len(m.Vertices) > 0 && ev.Cursor.Equals(m.Vertices[0], math.KindaSmallNumber) {
			if !finalLineCrosses(m.Vertices, m.Vertices[0]) {
				return KeyApply
			}
			return KeyIgnored
		}
		if finalLineCrosses(m.Vertices, ev.Cursor) {
			return KeyIgnored
		}
		m.view = ev.View
		m.Vertices = append(m.Vertices, ev.Cursor)
		return KeyHandled
	case ev.Key == KeyEscape || ev.Key == KeyBackspace:
		if len(m.Vertices) > 0 {
			m.Vertices = m.Vertices[:len(m.Vertices)-1]
		}
		return KeyHandled
	case ev.Key == KeyEnter:
		if len(m.Vertices) > 0 && !finalLineCrosses(m.Vertices, m.Vertices[0]) {
			return KeyApply
		}
	}
	return KeyIgnored
}

// Apply implements Modifier. The drawn shape is flattened onto the builder
// brush's height and returned as a new brush centered on the shape. The
// placed points are cleared.
func (m *Pen) Apply(ctx *Context) (Result, error) {
	var res Result
	if len(m.Vertices) < 3 {
		res.warn("the pen needs at least three points")
		return res, nil
	}
	view := m.view
	if !view.IsOrtho() {
		view = ctx.View
	}
	if !view.IsOrtho() {
		return Result{}, ErrNotOrtho
	}
	axis := view.Axis()
	height := 0.0
	if ctx.Builder != nil {
		height = ctx.Builder.Transform.Location.Component(axis)
	}

	flat := make([]math.Vec3, len(m.Vertices))
	for i, v := range m.Vertices {
		flat[i] = v.WithComponent(axis, height)
	}
	base := math.BoxFromPoints(flat).Center()
	local := make([]math.Vec3, len(flat))
	for i, v := range flat {
		local[i] = v.Sub(base)
	}

	pieces, err := convexPieces(local, m.CreateConvex)
	if err != nil {
		return Result{}, err
	}

	out := &poly.List{}
	if !m.CreateBrushShape && m.AutoExtrude && m.ExtrudeDepth > 0 {
		half := pieces[0].Normal.Scale(m.ExtrudeDepth / 2)
		for _, p := range pieces {
			top := p.WithVertices(translate(p.Vertices, half))
			addFinalized(out, top)
			bottom := p.WithVertices(translate(p.Vertices, half.Neg()))
			bottom.Reverse()
			addFinalized(out, bottom)
		}
		for v := range local {
			a := local[v]
			b := local[(v+1)%len(local)]
			addFinalized(out, poly.New(b.Add(half), a.Add(half), a.Sub(half), b.Sub(half)))
		}
	} else {
		for _, p := range pieces {
			addFinalized(out, p)
		}
	}

	m.Vertices = m.Vertices[:0]
	res.Created = append(res.Created, NewBrush{
		Polys:     out,
		Transform: math.Translation(base),
		Shape:     m.CreateBrushShape,
	})
	return res, nil
}

// Render implements Modifier: the placed points, the edges between them
// and the rubber band to the cursor.
func (m *Pen) Render(*Context) Lines {
	var l Lines
	for i, v := range m.Vertices {
		l = l.Marker(v, 2)
		if i > 0 {
			l = l.Line(m.Vertices[i-1], v)
		}
	}
	if n := len(m.Vertices); n > 0 {
		l = l.Line(m.Vertices[n-1], m.cursor)
		if n > 2 {
			l = l.Dashed(m.cursor, m.Vertices[0], 4)
		}
	}
	return l.Marker(m.cursor, 4)
}

func translate(points []math.Vec3, d math.Vec3) []math.Vec3 {
	out := make([]math.Vec3, len(points))
	for i, p := range points {
		out[i] = p.Add(d)
	}
	return out
}

// finalLineCrosses reports whether the segment from the last point to end
// crosses any edge of the open shape. Touching at an end does not count.
func finalLineCrosses(points []math.Vec3, end math.Vec3) bool {
	if len(points) < 2 {
		return false
	}
	s1 := points[len(points)-1]
	dir1 := end.Sub(s1)
	len1 := dir1.Length()
	if len1 < math.KindaSmallNumber {
		return false
	}
	xAxis := dir1.Scale(1 / len1)

	for i := 0; i+1 < len(points); i++ {
		s2, e2 := points[i], points[i+1]
		dir2 := e2.Sub(s2)
		delta := s2.Sub(s1)

		normal := dir1.Cross(dir2)
		if gomath.Abs(delta.Dot(normal)) > math.KindaSmallNumber {
			// Not coplanar.
			continue
		}
		if normal.SizeSquared() < math.KindaSmallNumber {
			normal = dir1.Cross(delta)
		}
		yAxis := normal.Normalize().Cross(xAxis)

		a0 := math.Vec2{}
		a1 := math.Vec2{X: len1}
		b0 := math.Vec2{X: xAxis.Dot(delta), Y: yAxis.Dot(delta)}
		d2 := e2.Sub(s1)
		b1 := math.Vec2{X: xAxis.Dot(d2), Y: yAxis.Dot(d2)}
		if segmentsCrossStrictly(a0, a1, b0, b1) {
			return true
		}
	}
	return false
}

// segmentsCrossStrictly reports a proper crossing of two 2D segments,
// away from both ends by ThreshPenSegments.
func segmentsCrossStrictly(a0, a1, b0, b1 math.Vec2) bool {
	d1 := a1.Sub(a0)
	d2 := b1.Sub(b0)
	det := d1.Cross(d2)
	if gomath.Abs(det) < math.KindaSmallNumber {
		return false
	}
	delta := b0.Sub(a0)
	t1 := delta.Cross(d2) / det
	t2 := delta.Cross(d1) / det
	eps := math.ThreshPenSegments
	return t1 > eps && t1 < 1-eps && t2 > eps && t2 < 1-eps
}
