package geommode

import "github.com/Faultbox/midgard-csg/pkg/math"

// Lines is an overlay as line segments, two [x, y, z] endpoints per
// segment.
type Lines []float32

// BoxWireVertexCount is the number of vertices in a box wireframe (12 edges
// × 2).
const BoxWireVertexCount = 24

// DefaultBoxPadding is the padding around selection boxes.
const DefaultBoxPadding = 1.0

// Segments returns the number of segments.
func (l Lines) Segments() int {
	return len(l) / 6
}

// Line appends the segment a-b.
func (l Lines) Line(a, b math.Vec3) Lines {
	return append(l,
		float32(a.X), float32(a.Y), float32(a.Z),
		float32(b.X), float32(b.Y), float32(b.Z))
}

// Dashed appends a-b broken into dashes of the given length.
func (l Lines) Dashed(a, b math.Vec3, dash float64) Lines {
	length := a.Distance(b)
	if dash <= 0 || length <= dash {
		return l.Line(a, b)
	}
	dir := b.Sub(a).Scale(1 / length)
	for d := 0.0; d < length; d += 2 * dash {
		end := min(d+dash, length)
		l = l.Line(a.Add(dir.Scale(d)), a.Add(dir.Scale(end)))
	}
	return l
}

// Box appends the 12 edges of box.
func (l Lines) Box(box math.Box) Lines {
	if !box.Valid {
		return l
	}
	minX, minY, minZ := box.Min.X, box.Min.Y, box.Min.Z
	maxX, maxY, maxZ := box.Max.X, box.Max.Y, box.Max.Z
	v := func(x, y, z float64) math.Vec3 { return math.Vec3{X: x, Y: y, Z: z} }
	// Bottom face (4 edges)
	l = l.Line(v(minX, minY, minZ), v(maxX, minY, minZ))
	l = l.Line(v(maxX, minY, minZ), v(maxX, minY, maxZ))
	l = l.Line(v(maxX, minY, maxZ), v(minX, minY, maxZ))
	l = l.Line(v(minX, minY, maxZ), v(minX, minY, minZ))
	// Top face (4 edges)
	l = l.Line(v(minX, maxY, minZ), v(maxX, maxY, minZ))
	l = l.Line(v(maxX, maxY, minZ), v(maxX, maxY, maxZ))
	l = l.Line(v(maxX, maxY, maxZ), v(minX, maxY, maxZ))
	l = l.Line(v(minX, maxY, maxZ), v(minX, maxY, minZ))
	// Vertical edges (4 edges)
	l = l.Line(v(minX, minY, minZ), v(minX, maxY, minZ))
	l = l.Line(v(maxX, minY, minZ), v(maxX, maxY, minZ))
	l = l.Line(v(maxX, minY, maxZ), v(maxX, maxY, maxZ))
	l = l.Line(v(minX, minY, maxZ), v(minX, maxY, maxZ))
	return l
}

// Marker appends a cube of half-size r around p.
func (l Lines) Marker(p math.Vec3, r float64) Lines {
	return l.Box(math.Box{Min: p.Sub(math.Vec3{X: r, Y: r, Z: r}), Max: p.Add(math.Vec3{X: r, Y: r, Z: r}), Valid: true})
}

// selectionBox returns the world-space bounds of every selected vertex in
// the context, padded.
func selectionBox(ctx *Context, padding float64) math.Box {
	var box math.Box
	for _, o := range ctx.Objects {
		for _, v := range o.uniqueSelectedVertices() {
			box = box.AddPoint(o.WorldVertex(v))
		}
	}
	if box.Valid {
		box = box.ExpandBy(padding)
	}
	return box
}
