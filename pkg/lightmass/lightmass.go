// Package lightmass exports the level model to the static lighting system
// and places the lighting it returns into a lightmap atlas.
//
// Visible nodes are gathered into node groups: nodes that are coplanar,
// touch each other and share a lightmap scale. Each group is one mapping,
// exported as a triangle list with a lightmap UV per vertex and identified
// by a GUID derived from its index.
package lightmass

import (
	gomath "math"
	"sort"
	"strconv"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-csg/pkg/bsp"
	"github.com/Faultbox/midgard-csg/pkg/math"
	"github.com/Faultbox/midgard-csg/pkg/poly"
)

// Namespace seeds the mapping GUIDs when Options leave it unset.
var Namespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("midgard-csg/lightmass"))

// Options tunes the export.
type Options struct {
	// Namespace seeds the GUIDs; exports with the same namespace and the
	// same model get the same GUIDs.
	Namespace uuid.UUID
	// MinResolution and MaxResolution clamp each mapping's texel size.
	MinResolution int
	MaxResolution int
	// TexelScale divides the texture coordinates written to each vertex.
	TexelScale float64
}

// DefaultOptions returns the export defaults.
func DefaultOptions() Options {
	return Options{Namespace: Namespace, MinResolution: 4, MaxResolution: 1024, TexelScale: 100}
}

// Vertex is one exported vertex.
type Vertex struct {
	Position math.Vec3
	TangentX math.Vec3
	TangentY math.Vec3
	TangentZ math.Vec3
	// TexCoord is the texture coordinate; LightmapUV spans [0,1] over the
	// group's mapping.
	TexCoord   math.Vec2
	LightmapUV math.Vec2
}

// NodeGroup is one lighting mapping.
type NodeGroup struct {
	GUID  uuid.UUID
	Index int
	Nodes []int

	SizeX, SizeY  int
	LightmapScale float64
	WorldToMap    mgl64.Mat4
	MapToWorld    mgl64.Mat4
	TangentX      math.Vec3
	TangentY      math.Vec3
	TangentZ      math.Vec3

	Vertices []Vertex
	// Indices holds three vertex indices per triangle.
	Indices []int32
	// TriangleSurfs is the source surface of each triangle.
	TriangleSurfs []int
	Box           math.Box
}

// Triangles returns the triangle count.
func (g *NodeGroup) Triangles() int { return len(g.Indices) / 3 }

// GUIDFor returns the GUID of the mapping at index under namespace.
func GUIDFor(namespace uuid.UUID, index int) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte("nodegroup:"+strconv.Itoa(index)))
}

// Export groups the model's visible nodes and builds a mapping per group.
// Groups are ordered by their first node in tree order.
func Export(m *bsp.Model, opts Options, log *zap.Logger) []*NodeGroup {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Namespace == uuid.Nil {
		opts.Namespace = Namespace
	}
	if opts.TexelScale <= 0 {
		opts.TexelScale = 1
	}

	groups := GroupNodes(m)
	out := make([]*NodeGroup, 0, len(groups))
	for i, nodes := range groups {
		g := &NodeGroup{GUID: GUIDFor(opts.Namespace, i), Index: i, Nodes: nodes}
		buildMapping(m, g, opts)
		out = append(out, g)
	}
	log.Debug("lightmass: exported node groups", zap.Int("groups", len(out)))
	return out
}

// GroupNodes partitions the visible nodes into node groups. Two nodes join
// when they lie in the same plane, share a point and use the same
// lightmap scale.
func GroupNodes(m *bsp.Model) [][]int {
	visible := m.VisibleNodes()
	parent := make(map[int]int, len(visible))
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}
	for _, i := range visible {
		parent[i] = i
	}

	// Nodes touching each point.
	byPoint := map[int32][]int{}
	for _, i := range visible {
		n := &m.Nodes[i]
		for k := 0; k < n.NumVertices; k++ {
			p := m.Verts[n.VertPool+k].PointIndex
			byPoint[p] = append(byPoint[p], i)
		}
	}
	for _, nodes := range byPoint {
		for a := 0; a < len(nodes); a++ {
			for b := a + 1; b < len(nodes); b++ {
				if conodes(m, nodes[a], nodes[b]) {
					union(nodes[a], nodes[b])
				}
			}
		}
	}

	index := map[int]int{}
	var groups [][]int
	for _, i := range visible {
		r := find(i)
		gi, ok := index[r]
		if !ok {
			gi = len(groups)
			index[r] = gi
			groups = append(groups, nil)
		}
		groups[gi] = append(groups[gi], i)
	}
	return groups
}

func conodes(m *bsp.Model, a, b int) bool {
	na, nb := &m.Nodes[a], &m.Nodes[b]
	if !na.Plane.Equals(nb.Plane, math.ThreshPointOnPlane) {
		return false
	}
	return m.Surfs[na.Surf].LightmapScale == m.Surfs[nb.Surf].LightmapScale
}

// basis returns the lightmap axes of a surface: its texture axes when set,
// otherwise two axes perpendicular to the normal.
func basis(m *bsp.Model, s *bsp.Surf) (u, v, n math.Vec3) {
	n = m.Vectors[s.Normal].Normalize()
	u = m.Vectors[s.TextureU]
	v = m.Vectors[s.TextureV]
	if u.SizeSquared() < math.ThreshZeroNormSquared || v.SizeSquared() < math.ThreshZeroNormSquared {
		u, v = n.FindBestAxisVectors()
		return u, v, n
	}
	return u.Normalize(), v.Normalize(), n
}

func buildMapping(m *bsp.Model, g *NodeGroup, opts Options) {
	first := &m.Surfs[m.Nodes[g.Nodes[0]].Surf]
	u, v, n := basis(m, first)
	g.TangentX, g.TangentY, g.TangentZ = u, v, n
	scale := first.LightmapScale
	if scale <= 0 {
		scale = poly.DefaultLightmapScale
	}
	g.LightmapScale = scale
	base := m.Points[first.Base]

	// Texel-space extent of the group.
	minU, minV := gomath.Inf(1), gomath.Inf(1)
	maxU, maxV := gomath.Inf(-1), gomath.Inf(-1)
	for _, i := range g.Nodes {
		for _, p := range m.NodeVertices(i) {
			d := p.Sub(base)
			tu, tv := d.Dot(u)/scale, d.Dot(v)/scale
			minU, maxU = gomath.Min(minU, tu), gomath.Max(maxU, tu)
			minV, maxV = gomath.Min(minV, tv), gomath.Max(maxV, tv)
		}
	}
	spanU := gomath.Max(maxU-minU, math.KindaSmallNumber)
	spanV := gomath.Max(maxV-minV, math.KindaSmallNumber)
	g.SizeX = clampInt(int(gomath.Ceil(spanU)), opts.MinResolution, opts.MaxResolution)
	g.SizeY = clampInt(int(gomath.Ceil(spanV)), opts.MinResolution, opts.MaxResolution)

	// map = ((p - base)·axis/scale - min) / span, plane distance in z.
	ru := u.Scale(1 / (scale * spanU))
	rv := v.Scale(1 / (scale * spanV))
	g.WorldToMap = fromRows(
		[4]float64{ru.X, ru.Y, ru.Z, -base.Dot(ru) - minU/spanU},
		[4]float64{rv.X, rv.Y, rv.Z, -base.Dot(rv) - minV/spanV},
		[4]float64{n.X, n.Y, n.Z, -base.Dot(n)},
		[4]float64{0, 0, 0, 1},
	)
	g.MapToWorld = g.WorldToMap.Inv()

	for _, i := range g.Nodes {
		node := &m.Nodes[i]
		s := &m.Surfs[node.Surf]
		su, sv, sn := basis(m, s)
		sbase := m.Points[s.Base]
		start := int32(len(g.Vertices))
		for _, p := range m.NodeVertices(i) {
			lm := mgl64.TransformCoordinate(p.Mgl(), g.WorldToMap)
			d := p.Sub(sbase)
			g.Vertices = append(g.Vertices, Vertex{
				Position:   p,
				TangentX:   su,
				TangentY:   sv,
				TangentZ:   sn,
				TexCoord:   math.Vec2{X: d.Dot(m.Vectors[s.TextureU]) / opts.TexelScale, Y: d.Dot(m.Vectors[s.TextureV]) / opts.TexelScale},
				LightmapUV: math.Vec2{X: lm[0], Y: lm[1]},
			})
			g.Box = g.Box.AddPoint(p)
		}
		for k := int32(2); k < int32(node.NumVertices); k++ {
			g.Indices = append(g.Indices, start, start+k, start+k-1)
			g.TriangleSurfs = append(g.TriangleSurfs, node.Surf)
		}
	}
}

// fromRows builds a column-major matrix from its rows.
func fromRows(r0, r1, r2, r3 [4]float64) mgl64.Mat4 {
	var out mgl64.Mat4
	for c := 0; c < 4; c++ {
		out[c*4+0] = r0[c]
		out[c*4+1] = r1[c]
		out[c*4+2] = r2[c]
		out[c*4+3] = r3[c]
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if lo > 0 && v < lo {
		v = lo
	}
	if hi > 0 && v > hi {
		v = hi
	}
	return max(v, 1)
}

// SortForPacking orders groups tallest mapping first, then widest, then by
// index. The atlas packer places them in this order.
func SortForPacking(groups []*NodeGroup) {
	sort.SliceStable(groups, func(a, b int) bool {
		ga, gb := groups[a], groups[b]
		if ga.SizeY != gb.SizeY {
			return ga.SizeY > gb.SizeY
		}
		if ga.SizeX != gb.SizeX {
			return ga.SizeX > gb.SizeX
		}
		return ga.Index < gb.Index
	})
}
