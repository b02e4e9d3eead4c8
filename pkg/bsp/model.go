// Package bsp implements the editor BSP model: the node/surface/point arenas,
// tree construction, the polygon filter engine behind every CSG operation,
// and the repair passes that run after structural changes.
package bsp

import (
	"github.com/Faultbox/midgard-csg/pkg/arena"
	"github.com/Faultbox/midgard-csg/pkg/math"
	"github.com/Faultbox/midgard-csg/pkg/poly"
)

// None marks an absent index.
const None = -1

// MaxNodeVertices is the largest polygon stored in one node. Bigger polygons
// are added as two coplanar nodes.
const MaxNodeVertices = 16

// NodeFlags is the node flag bitset.
type NodeFlags uint8

// Node flags.
const (
	NodeIsNew NodeFlags = 1 << iota
	NodeIsFront
	NodeIsBack
	NodeNotCsg
	NodeNotVisBlocking
)

// Vert is one entry of a node's vertex ring.
type Vert struct {
	PointIndex int32
	SideLink   int32 // shared side id assigned by OptGeom, None if unlinked
}

// Node is one BSP tree node. A node with NumVertices == 0 only splits space.
type Node struct {
	Plane       math.Plane
	VertPool    int
	Surf        int
	VertexIndex int
	Front       int
	Back        int
	Coplanar    int
	NumVertices int
	Flags       NodeFlags
	LeafFront   int
	LeafBack    int
	Bound       int
}

// IsCsg reports whether the node bounds solid space, i.e. it carries a
// polygon that is neither freshly added nor non-solid.
func (n *Node) IsCsg() bool {
	return n.NumVertices > 0 && n.Flags&(NodeIsNew|NodeNotCsg) == 0
}

// Surf is a surface shared by every node cut from one original polygon.
type Surf struct {
	Material      string
	PolyFlags     poly.Flags
	Base          int
	Normal        int
	TextureU      int
	TextureV      int
	Brush         arena.Handle // zero when the source brush is unknown
	BrushPoly     int
	Plane         math.Plane
	LightmapScale float64
}

// Model is a BSP container. Brushes use Polys for their local faces; the
// level uses the tree arrays to hold the accumulated CSG result.
type Model struct {
	Points  []math.Vec3
	Vectors []math.Vec3
	Verts   []Vert
	Nodes   []Node
	Surfs   []Surf
	Bounds  []math.Box
	Polys   *poly.List

	RootOutside    bool
	Linked         bool
	NumSharedSides int

	Box    math.Box
	Sphere math.Sphere

	points  *PointsGrid
	vectors *PointsGrid
}

// NewModel returns an empty model whose root is outside.
func NewModel() *Model {
	return &Model{
		Polys:       &poly.List{},
		RootOutside: true,
	}
}

// EmptyModel clears the tree arrays. emptySurfInfo also drops surfaces,
// points and vectors; emptyPolys drops the editor polygon list.
func (m *Model) EmptyModel(emptySurfInfo, emptyPolys bool) {
	m.Nodes = m.Nodes[:0]
	m.Verts = m.Verts[:0]
	m.Bounds = m.Bounds[:0]
	m.NumSharedSides = 4
	if emptySurfInfo {
		m.Surfs = m.Surfs[:0]
		m.Points = m.Points[:0]
		m.Vectors = m.Vectors[:0]
		m.points = nil
		m.vectors = nil
	}
	if emptyPolys {
		if m.Polys == nil {
			m.Polys = &poly.List{}
		}
		m.Polys.Empty()
	}
	m.Linked = false
}

// Clone returns a deep copy of the model.
func (m *Model) Clone() *Model {
	c := &Model{
		Points:         append([]math.Vec3(nil), m.Points...),
		Vectors:        append([]math.Vec3(nil), m.Vectors...),
		Verts:          append([]Vert(nil), m.Verts...),
		Nodes:          append([]Node(nil), m.Nodes...),
		Surfs:          append([]Surf(nil), m.Surfs...),
		Bounds:         append([]math.Box(nil), m.Bounds...),
		RootOutside:    m.RootOutside,
		Linked:         m.Linked,
		NumSharedSides: m.NumSharedSides,
		Box:            m.Box,
		Sphere:         m.Sphere,
	}
	if m.Polys != nil {
		c.Polys = m.Polys.Clone()
	} else {
		c.Polys = &poly.List{}
	}
	return c
}

// BuildBound recomputes Box and Sphere from the editor polygons.
func (m *Model) BuildBound() {
	var box math.Box
	if m.Polys != nil {
		for i := range m.Polys.Element {
			for _, v := range m.Polys.Element[i].Vertices {
				box = box.AddPoint(v)
			}
		}
	}
	m.Box = box
	m.Sphere = box.Sphere()
}

// NodeVertices returns the vertex ring of node i as points.
func (m *Model) NodeVertices(i int) []math.Vec3 {
	n := &m.Nodes[i]
	out := make([]math.Vec3, n.NumVertices)
	for k := 0; k < n.NumVertices; k++ {
		out[k] = m.Points[m.Verts[n.VertPool+k].PointIndex]
	}
	return out
}

// NodeNormal returns the normal of node i's surface.
func (m *Model) NodeNormal(i int) math.Vec3 {
	return m.Vectors[m.Surfs[m.Nodes[i].Surf].Normal]
}

// NodeToPoly converts node i back to a polygon carrying its surface's
// attributes. The link refers to the node's surface. It returns the vertex
// count, which is 0 for splitter-only or degenerate nodes.
func (m *Model) NodeToPoly(i int, p *poly.Poly) int {
	n := &m.Nodes[i]
	s := &m.Surfs[n.Surf]

	p.Init()
	p.Base = m.Points[s.Base]
	p.Normal = m.Vectors[s.Normal]
	p.TextureU = m.Vectors[s.TextureU]
	p.TextureV = m.Vectors[s.TextureV]
	p.Flags = s.PolyFlags &^ (poly.EditorFlags | poly.FlagSelected)
	p.Link = n.Surf
	p.Material = s.Material
	p.Brush = s.Brush
	p.BrushPoly = s.BrushPoly
	p.LightmapScale = s.LightmapScale
	for k := 0; k < n.NumVertices; k++ {
		p.Vertices = append(p.Vertices, m.Points[m.Verts[n.VertPool+k].PointIndex])
	}
	if len(p.Vertices) < 3 {
		p.Vertices = p.Vertices[:0]
		return 0
	}
	// T-junction removal leaves colinear points behind.
	p.RemoveColinears()
	return len(p.Vertices)
}

// AddPoint returns the index of a point within threshold of v, adding v if
// there is none. exact selects ThreshPointsAreSame over ThreshPointsAreNear.
func (m *Model) AddPoint(v math.Vec3, exact bool) int {
	thresh := math.ThreshPointsAreNear
	if exact {
		thresh = math.ThreshPointsAreSame
	}
	if m.points == nil {
		m.points = NewPointsGrid(PointsCellSize, math.ThreshPointsAreNear)
		m.points.Reindex(m.Points)
	}
	if idx, ok := m.points.Find(v, thresh); ok {
		return idx
	}
	m.Points = append(m.Points, v)
	idx := len(m.Points) - 1
	m.points.Insert(v, idx)
	return idx
}

// AddVector is AddPoint for the normal and texture vector pool.
func (m *Model) AddVector(v math.Vec3, exact bool) int {
	thresh := math.ThreshVectorsAreNear
	if exact {
		thresh = math.ThreshNormalsAreSame
	}
	if m.vectors == nil {
		m.vectors = NewPointsGrid(VectorsCellSize, math.ThreshVectorsAreNear)
		m.vectors.Reindex(m.Vectors)
	}
	if idx, ok := m.vectors.Find(v, thresh); ok {
		return idx
	}
	m.Vectors = append(m.Vectors, v)
	idx := len(m.Vectors) - 1
	m.vectors.Insert(v, idx)
	return idx
}

// ResetGrids drops the point and vector lookup grids. They are rebuilt from
// the current arrays on the next insertion.
func (m *Model) ResetGrids() {
	m.points = nil
	m.vectors = nil
}

// CoplanarTail returns the last node of the coplanar chain starting at i.
func (m *Model) CoplanarTail(i int) int {
	for m.Nodes[i].Coplanar != None {
		i = m.Nodes[i].Coplanar
	}
	return i
}

// Area returns the total polygon area held by reachable nodes.
func (m *Model) Area() float64 {
	var total float64
	m.Walk(func(i int) {
		if m.Nodes[i].NumVertices < 3 {
			return
		}
		var p poly.Poly
		if m.NodeToPoly(i, &p) > 0 {
			total += p.Area()
		}
	})
	return total
}

// Walk visits every node reachable from the root: front, back and
// coplanar links alike.
func (m *Model) Walk(fn func(i int)) {
	if len(m.Nodes) == 0 {
		return
	}
	stack := []int{0}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fn(i)
		n := &m.Nodes[i]
		for _, c := range [...]int{n.Coplanar, n.Back, n.Front} {
			if c != None {
				stack = append(stack, c)
			}
		}
	}
}

// VisibleNodes returns the reachable nodes that carry a polygon.
func (m *Model) VisibleNodes() []int {
	var out []int
	m.Walk(func(i int) {
		if m.Nodes[i].NumVertices >= 3 {
			out = append(out, i)
		}
	})
	return out
}
