package bsp

import (
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-csg/pkg/math"
)

// Refresh compacts the model: nodes no longer reachable from the root are
// dropped together with the vertex rings, surfaces, points and vectors
// nothing refers to any more. Node bounds are cleared; call BuildBounds
// afterwards.
func (ctx *CsgContext) Refresh(m *Model) {
	before := len(m.Nodes)

	order := make([]int, 0, len(m.Nodes))
	m.Walk(func(i int) { order = append(order, i) })
	nodeMap := make([]int, len(m.Nodes))
	for i := range nodeMap {
		nodeMap[i] = None
	}
	for k, i := range order {
		nodeMap[i] = k
	}

	surfMap := make([]int, len(m.Surfs))
	for i := range surfMap {
		surfMap[i] = None
	}
	var surfs []Surf
	for _, i := range order {
		s := m.Nodes[i].Surf
		if s >= 0 && s < len(m.Surfs) && surfMap[s] == None {
			surfMap[s] = len(surfs)
			surfs = append(surfs, m.Surfs[s])
		}
	}

	pointMap := make([]int, len(m.Points))
	vectorMap := make([]int, len(m.Vectors))
	for i := range pointMap {
		pointMap[i] = None
	}
	for i := range vectorMap {
		vectorMap[i] = None
	}
	var points, vectors []math.Vec3
	mapPoint := func(i int) int {
		if pointMap[i] == None {
			pointMap[i] = len(points)
			points = append(points, m.Points[i])
		}
		return pointMap[i]
	}
	mapVector := func(i int) int {
		if vectorMap[i] == None {
			vectorMap[i] = len(vectors)
			vectors = append(vectors, m.Vectors[i])
		}
		return vectorMap[i]
	}

	nodes := make([]Node, 0, len(order))
	verts := make([]Vert, 0, len(m.Verts))
	for _, i := range order {
		n := m.Nodes[i]
		pool := len(verts)
		for k := 0; k < n.NumVertices; k++ {
			v := m.Verts[n.VertPool+k]
			v.PointIndex = int32(mapPoint(int(v.PointIndex)))
			verts = append(verts, v)
		}
		n.VertPool = pool
		n.Surf = surfMap[n.Surf]
		for _, link := range []*int{&n.Front, &n.Back, &n.Coplanar} {
			if *link != None {
				*link = nodeMap[*link]
			}
		}
		n.Bound = None
		nodes = append(nodes, n)
	}
	for k := range surfs {
		s := &surfs[k]
		s.Base = mapPoint(s.Base)
		s.Normal = mapVector(s.Normal)
		s.TextureU = mapVector(s.TextureU)
		s.TextureV = mapVector(s.TextureV)
	}

	m.Nodes = nodes
	m.Verts = verts
	m.Surfs = surfs
	m.Points = points
	m.Vectors = vectors
	m.Bounds = m.Bounds[:0]
	m.ResetGrids()

	ctx.logger().Debug("bsp: refreshed model",
		zap.Int("nodesBefore", before),
		zap.Int("nodes", len(nodes)),
		zap.Int("surfs", len(surfs)),
		zap.Int("points", len(points)))
}
