package bsp

import (
	gomath "math"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-csg/pkg/math"
)

// pointVert is one use of a point: vertex slot k of node.
type pointVert struct {
	node int
	slot int
}

// pointVerts maps every point to its uses.
type pointVerts [][]pointVert

func buildPointVerts(m *Model) pointVerts {
	pv := make(pointVerts, len(m.Points))
	for i := range m.Nodes {
		n := &m.Nodes[i]
		for k := 0; k < n.NumVertices; k++ {
			p := m.Verts[n.VertPool+k].PointIndex
			pv[p] = append(pv[p], pointVert{i, k})
		}
	}
	return pv
}

// sharedBy reports whether a node other than self uses both points.
func (pv pointVerts) sharedBy(a, b int32, self int) bool {
	for _, u := range pv[a] {
		if u.node == self {
			continue
		}
		for _, w := range pv[b] {
			if w.node == u.node {
				return true
			}
		}
	}
	return false
}

// OptGeom removes T-junctions from m's node polygons and assigns shared side
// links. Every edge not shared by a second node has its endpoints pushed
// down the tree and inserted into each node edge they lie on. It returns the
// number of edges still without a partner.
func (ctx *CsgContext) OptGeom(m *Model) int {
	if len(m.Nodes) == 0 {
		return 0
	}

	pv := buildPointVerts(m)
	inserted := 0
	for i := 0; i < len(m.Nodes); i++ {
		for k := 0; k < m.Nodes[i].NumVertices; k++ {
			n := &m.Nodes[i]
			prev := k - 1
			if k == 0 {
				prev = n.NumVertices - 1
			}
			this := m.Verts[n.VertPool+k].PointIndex
			before := m.Verts[n.VertPool+prev].PointIndex
			if pv.sharedBy(this, before, i) {
				continue
			}
			inserted += ctx.distributePoint(m, 0, this)
			inserted += ctx.distributePoint(m, 0, before)
		}
	}

	// Side links: side k runs from vertex k-1 to vertex k.
	pv = buildPointVerts(m)
	for i := range m.Verts {
		m.Verts[i].SideLink = None
	}
	m.NumSharedSides = 0
	tees := 0
	for i := range m.Nodes {
		n := &m.Nodes[i]
		for k := 0; k < n.NumVertices; k++ {
			if m.Verts[n.VertPool+k].SideLink != None {
				continue
			}
			prev := k - 1
			if k == 0 {
				prev = n.NumVertices - 1
			}
			this := m.Verts[n.VertPool+k].PointIndex
			before := m.Verts[n.VertPool+prev].PointIndex
			if !ctx.linkSide(m, pv, i, k, this, before) {
				tees++
			}
		}
	}

	ctx.Stats.TeesFound += tees
	ctx.logger().Debug("bsp: optimized geometry",
		zap.Int("inserted", inserted),
		zap.Int("sharedSides", m.NumSharedSides),
		zap.Int("unlinked", tees))
	return tees
}

// linkSide finds a node whose ring has the same two points adjacent in the
// opposite order and gives both sides one shared id.
func (ctx *CsgContext) linkSide(m *Model, pv pointVerts, node, slot int, this, before int32) bool {
	for _, u := range pv[this] {
		if u.node == node {
			continue
		}
		for _, w := range pv[before] {
			if w.node != u.node {
				continue
			}
			other := &m.Nodes[u.node]
			// The other ring must run this -> before.
			if (other.NumVertices+w.slot-u.slot)%other.NumVertices != 1 {
				continue
			}
			ov := &m.Verts[other.VertPool+w.slot]
			side := ov.SideLink
			if side == None {
				side = int32(m.NumSharedSides)
				m.NumSharedSides++
			}
			m.Verts[m.Nodes[node].VertPool+slot].SideLink = side
			ov.SideLink = side
			return true
		}
	}
	return false
}

// distributePoint inserts point into every polygon edge it lies on in the
// subtree at node. It returns the number of insertions.
func (ctx *CsgContext) distributePoint(m *Model, node int, point int32) int {
	count := 0
	p := m.Points[point]
	for node != None {
		d := m.Nodes[node].Plane.Dot(p)
		if d < math.ThreshOptGeomCoplanar && m.Nodes[node].Back != None {
			count += ctx.distributePoint(m, m.Nodes[node].Back, point)
		}
		if d > -math.ThreshOptGeomCoplanar && m.Nodes[node].Front != None {
			count += ctx.distributePoint(m, m.Nodes[node].Front, point)
		}
		if d <= -math.ThreshOptGeomCoplanar || d >= math.ThreshOptGeomCoplanar {
			return count
		}

		for ; node != None; node = m.Nodes[node].Coplanar {
			if side, ok := ctx.findSide(m, node, point); ok && addPointToNode(m, node, side, point) {
				count++
			}
		}
	}
	return count
}

// findSide returns the vertex slot before which point should be inserted
// when it lies on one of node's edges and inside all others.
func (ctx *CsgContext) findSide(m *Model, node int, point int32) (int, bool) {
	n := &m.Nodes[node]
	pool := m.Verts[n.VertPool : n.VertPool+n.NumVertices]
	for _, v := range pool {
		if v.PointIndex == point {
			return 0, false
		}
	}

	p := m.Points[point]
	normal := n.Plane.Normal()
	found := -1
	for i := range pool {
		j := i - 1
		if i == 0 {
			j = len(pool) - 1
		}
		a := m.Points[pool[j].PointIndex]
		b := m.Points[pool[i].PointIndex]
		side := b.Sub(a)
		sideNormal := side.Cross(normal)
		size2 := sideNormal.SizeSquared()
		if size2 <= 0.001*0.001 {
			ctx.errorf("bsp: tiny side", zap.Int("node", node))
			continue
		}
		dist := p.Sub(b).Dot(sideNormal) / gomath.Sqrt(size2)
		switch {
		case dist >= math.ThreshOptGeomColinear:
			// Outside the polygon.
			return 0, false
		case dist > -math.ThreshOptGeomColinear:
			// On this side's line; make sure it is within the segment.
			mid := a.Add(b).Scale(0.5)
			if p.Sub(mid).SizeSquared() <= 0.501*0.501*side.SizeSquared() {
				found = i
			}
		}
	}
	return found, found >= 0
}

// addPointToNode inserts point before vertex slot of node, moving the ring
// to the end of the vertex pool. It refuses when the ring is full.
func addPointToNode(m *Model, node, slot int, point int32) bool {
	n := &m.Nodes[node]
	if n.NumVertices+1 >= MaxNodeVertices {
		return false
	}
	pool := len(m.Verts)
	for i := 0; i < n.NumVertices; i++ {
		if i == slot {
			m.Verts = append(m.Verts, Vert{PointIndex: point, SideLink: None})
		}
		m.Verts = append(m.Verts, m.Verts[n.VertPool+i])
	}
	n.VertPool = pool
	n.NumVertices++
	return true
}
