package bsp

import (
	"github.com/Faultbox/midgard-csg/pkg/math"
)

// BuildBounds recomputes the bounding box of every reachable node's subtree
// and assigns each polygon node its offset in the flattened vertex buffer.
// The model box and sphere are refreshed from the root when the model has
// no editor polygons.
func (ctx *CsgContext) BuildBounds(m *Model) {
	m.Bounds = m.Bounds[:0]
	for i := range m.Nodes {
		m.Nodes[i].Bound = None
	}
	if len(m.Nodes) == 0 {
		if m.Polys == nil || m.Polys.Len() == 0 {
			m.Box, m.Sphere = math.Box{}, math.Sphere{}
		}
		return
	}

	offset := 0
	m.Walk(func(i int) {
		n := &m.Nodes[i]
		n.VertexIndex = offset
		offset += n.NumVertices
	})

	root := subtreeBound(m, 0)
	if m.Polys == nil || m.Polys.Len() == 0 {
		m.Box = root
		m.Sphere = root.Sphere()
	}
}

func subtreeBound(m *Model, i int) math.Box {
	n := &m.Nodes[i]
	var box math.Box
	for k := 0; k < n.NumVertices; k++ {
		box = box.AddPoint(m.Points[m.Verts[n.VertPool+k].PointIndex])
	}
	for _, c := range [...]int{n.Front, n.Back, n.Coplanar} {
		if c != None {
			box = box.AddBox(subtreeBound(m, c))
		}
	}
	m.Bounds = append(m.Bounds, box)
	m.Nodes[i].Bound = len(m.Bounds) - 1
	return box
}

// NodeBound returns the subtree box of node i, or an empty box when bounds
// are stale.
func (m *Model) NodeBound(i int) math.Box {
	b := m.Nodes[i].Bound
	if b < 0 || b >= len(m.Bounds) {
		return math.Box{}
	}
	return m.Bounds[b]
}
