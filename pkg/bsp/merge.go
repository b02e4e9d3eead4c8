package bsp

import (
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-csg/pkg/math"
	"github.com/Faultbox/midgard-csg/pkg/poly"
)

// MergePolys repeatedly merges pairs of polygons until a full pass finds
// nothing to merge. Emptied polygons keep their slot with no vertices.
func MergePolys(polys []*poly.Poly) int {
	merged := 0
	for {
		changed := false
		for i := 0; i < len(polys); i++ {
			if len(polys[i].Vertices) == 0 {
				continue
			}
			for j := i + 1; j < len(polys); j++ {
				if len(polys[j].Vertices) == 0 {
					continue
				}
				if poly.TryToMerge(polys[i], polys[j], poly.VertexThreshold) {
					merged++
					changed = true
				}
			}
		}
		if !changed {
			return merged
		}
	}
}

// MergeCoplanars merges the editor polygons of m that share a link, lie on
// the same plane and, unless mergeDisparateTextures is set, share texture
// axes. Empty polygons are then dropped; remapLinks rewrites the surviving
// links to the compacted indices.
func MergeCoplanars(m *Model, remapLinks, mergeDisparateTextures bool) int {
	el := m.Polys.Element
	for i := range el {
		el[i].Flags &^= poly.FlagEdProcessed
	}

	merged := 0
	for i := range el {
		ed := &el[i]
		if len(ed.Vertices) == 0 || ed.Flags.Has(poly.FlagEdProcessed) {
			continue
		}
		ed.Flags |= poly.FlagEdProcessed
		group := []*poly.Poly{ed}
		for j := i + 1; j < len(el); j++ {
			other := &el[j]
			if other.Link != ed.Link || len(other.Vertices) == 0 {
				continue
			}
			dist := other.Vertices[0].Sub(ed.Vertices[0]).Dot(ed.Normal)
			if dist <= -0.001 || dist >= 0.001 || other.Normal.Dot(ed.Normal) <= 0.9999 {
				continue
			}
			if !mergeDisparateTextures &&
				(!math.PointsAreNear(other.TextureU, ed.TextureU, math.ThreshVectorsAreNear) ||
					!math.PointsAreNear(other.TextureV, ed.TextureV, math.ThreshVectorsAreNear)) {
				continue
			}
			other.Flags |= poly.FlagEdProcessed
			group = append(group, other)
		}
		if len(group) > 1 {
			merged += MergePolys(group)
		}
	}

	remap := make([]int, len(el))
	kept := 0
	for i := range el {
		remap[i] = None
		if len(el[i].Vertices) > 0 {
			remap[i] = kept
			el[kept] = el[i]
			kept++
		}
	}
	m.Polys.Element = el[:kept]
	if remapLinks {
		for i := range m.Polys.Element {
			p := &m.Polys.Element[i]
			if p.Link >= 0 && p.Link < len(remap) {
				p.Link = remap[p.Link]
			}
		}
	}
	for i := range m.Polys.Element {
		m.Polys.Element[i].Flags &^= poly.FlagEdProcessed
	}
	return merged
}

// MergeNearPoints remaps every point to the earliest point within dist and
// collapses node rings that fall below three distinct points. It returns the
// number of merged points.
func (ctx *CsgContext) MergeNearPoints(m *Model, dist float64) int {
	remap := make([]int32, len(m.Points))
	merged := 0
	d2 := dist * dist
	for i, p := range m.Points {
		remap[i] = int32(i)
		for j := 0; j < i; j++ {
			if m.Points[j].DistSquared(p) < d2 {
				remap[i] = int32(j)
				merged++
				break
			}
		}
	}

	for i := range m.Verts {
		if v := m.Verts[i].PointIndex; v >= 0 && int(v) < len(remap) {
			m.Verts[i].PointIndex = remap[v]
		}
	}
	for i := range m.Surfs {
		if b := m.Surfs[i].Base; b >= 0 && b < len(remap) {
			m.Surfs[i].Base = int(remap[b])
		}
	}

	collapsed := 0
	for i := range m.Nodes {
		n := &m.Nodes[i]
		if n.NumVertices == 0 {
			continue
		}
		pool := m.Verts[n.VertPool : n.VertPool+n.NumVertices]
		k := 0
		for j := range pool {
			prev := pool[len(pool)-1]
			if j > 0 {
				prev = pool[j-1]
			}
			if pool[j].PointIndex != prev.PointIndex {
				pool[k] = pool[j]
				k++
			}
		}
		if k < 3 {
			k = 0
			collapsed++
		}
		n.NumVertices = k
	}

	ctx.Stats.PointsMerged += merged
	ctx.Stats.NodesCollapsed += collapsed
	m.ResetGrids()
	ctx.logger().Debug("bsp: merged near points", zap.Int("merged", merged), zap.Int("collapsed", collapsed))
	return merged
}
