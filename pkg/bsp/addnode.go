package bsp

import (
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-csg/pkg/math"
	"github.com/Faultbox/midgard-csg/pkg/poly"
)

// NodePlace says where a new node hangs off its parent.
type NodePlace int

// Node placements.
const (
	PlaceBack NodePlace = iota
	PlaceFront
	PlaceCoplanar
	PlaceRoot
)

func (p NodePlace) String() string {
	switch p {
	case PlaceBack:
		return "back"
	case PlaceFront:
		return "front"
	case PlaceCoplanar:
		return "coplanar"
	case PlaceRoot:
		return "root"
	default:
		return "unknown"
	}
}

// AddNode adds p to the tree under parent at place and returns the new
// node's index. When p.Link equals the surface count a new surface is
// created from p's attributes; otherwise p.Link must name an existing
// surface. Coplanar nodes are appended to the end of parent's chain.
// Polygons above MaxNodeVertices are stored as two coplanar nodes and the
// first one is returned. A polygon that collapses below three distinct
// points yields a splitter-only node and counts as an error.
func (ctx *CsgContext) AddNode(m *Model, parent int, place NodePlace, flags NodeFlags, p *poly.Poly) int {
	if place == PlaceCoplanar {
		parent = m.CoplanarTail(parent)
	}

	if p.Link == len(m.Surfs) {
		m.Surfs = append(m.Surfs, Surf{
			Base:          m.AddPoint(p.Base, true),
			Normal:        m.AddVector(p.Normal, true),
			TextureU:      m.AddVector(p.TextureU, false),
			TextureV:      m.AddVector(p.TextureV, false),
			Material:      p.Material,
			PolyFlags:     p.Flags &^ (poly.FlagNoAddToBSP | poly.EditorFlags),
			LightmapScale: p.LightmapScale,
			Brush:         p.Brush,
			BrushPoly:     p.BrushPoly,
			Plane:         math.NewPlane(p.Vertices[0], p.Normal),
		})
	} else if p.Link < 0 || p.Link > len(m.Surfs) {
		panic("bsp: AddNode with a link outside the surface table")
	}
	surf := &m.Surfs[p.Link]
	if surf.PolyFlags.Has(poly.FlagNotSolid) {
		flags |= NodeNotCsg
	}
	if surf.PolyFlags.Any(poly.FlagInvisible | poly.FlagPortal) {
		flags |= NodeNotVisBlocking
	}

	if len(p.Vertices) > MaxNodeVertices {
		first := p.WithVertices(p.Vertices[:MaxNodeVertices])
		rest := p.WithVertices(nil)
		rest.Vertices = append(rest.Vertices, p.Vertices[0])
		rest.Vertices = append(rest.Vertices, p.Vertices[MaxNodeVertices-1:]...)
		i := ctx.AddNode(m, parent, place, flags, &first)
		ctx.AddNode(m, i, PlaceCoplanar, flags, &rest)
		return i
	}

	idx := len(m.Nodes)
	node := Node{
		Surf:     p.Link,
		Flags:    flags,
		Plane:    math.NewPlane(p.Vertices[0], p.Normal),
		VertPool: len(m.Verts),
		Front:    None,
		Back:     None,
		Coplanar: None,
		Bound:    None,
	}

	switch place {
	case PlaceRoot:
		node.LeafFront, node.LeafBack = None, None
	case PlaceFront, PlaceBack:
		par := &m.Nodes[parent]
		leaf := par.LeafBack
		if place == PlaceFront {
			leaf = par.LeafFront
		}
		node.LeafFront, node.LeafBack = leaf, leaf
	case PlaceCoplanar:
		par := &m.Nodes[parent]
		if node.Plane.NormalDot(par.Plane) < 0 {
			node.LeafFront, node.LeafBack = par.LeafBack, par.LeafFront
		} else {
			node.LeafFront, node.LeafBack = par.LeafFront, par.LeafBack
		}
	}

	for _, v := range p.Vertices {
		pt := int32(m.AddPoint(v, false))
		if node.NumVertices > 0 && m.Verts[len(m.Verts)-1].PointIndex == pt {
			continue
		}
		m.Verts = append(m.Verts, Vert{PointIndex: pt, SideLink: None})
		node.NumVertices++
	}
	if node.NumVertices >= 2 && m.Verts[node.VertPool].PointIndex == m.Verts[len(m.Verts)-1].PointIndex {
		m.Verts = m.Verts[:len(m.Verts)-1]
		node.NumVertices--
	}
	if node.NumVertices < 3 {
		ctx.errorf("bsp: degenerate node", zap.Int("node", idx), zap.Int("vertices", node.NumVertices))
		node.NumVertices = 0
	}

	m.Nodes = append(m.Nodes, node)
	switch place {
	case PlaceFront:
		m.Nodes[parent].Front = idx
	case PlaceBack:
		m.Nodes[parent].Back = idx
	case PlaceCoplanar:
		m.Nodes[parent].Coplanar = idx
	}
	ctx.Stats.NodesAdded++
	return idx
}
