package bsp

import "fmt"

// Cleanup clears the per-operation node flags and prunes splitter-only
// nodes left behind by CSG. An empty node is replaced by its coplanar
// partner when it has one, removed when it has no children and replaced by
// its only child otherwise. Empty nodes with both children stay as
// splitters.
func (ctx *CsgContext) Cleanup(m *Model) {
	if len(m.Nodes) == 0 {
		return
	}
	ctx.cleanupNode(m, 0, None)
	if len(m.Nodes) == 0 {
		m.Verts = m.Verts[:0]
		m.Bounds = m.Bounds[:0]
	}
}

func (ctx *CsgContext) cleanupNode(m *Model, i, parent int) {
	n := &m.Nodes[i]
	n.Flags &^= NodeIsNew | NodeIsFront | NodeIsBack

	if n.Front != None {
		ctx.cleanupNode(m, n.Front, i)
	}
	if n.Back != None {
		ctx.cleanupNode(m, n.Back, i)
	}
	if n.Coplanar != None {
		ctx.cleanupNode(m, n.Coplanar, i)
	}
	if n.NumVertices > 0 {
		return
	}

	if n.Coplanar != None {
		pi := n.Coplanar
		pn := &m.Nodes[pi]
		if n.Plane.NormalDot(pn.Plane) >= 0 {
			pn.Front, pn.Back = n.Front, n.Back
		} else {
			pn.Front, pn.Back = n.Back, n.Front
		}
		if parent == None {
			m.Nodes[i] = *pn
			pn.NumVertices = 0
			pn.Front, pn.Back, pn.Coplanar = None, None, None
			return
		}
		relink(m, parent, i, pi)
		ctx.Stats.NodesCollapsed++
		return
	}

	if n.Front != None && n.Back != None {
		return
	}
	replacement := n.Front
	if replacement == None {
		replacement = n.Back
	}

	ctx.Stats.NodesCollapsed++
	if parent == None {
		if replacement == None {
			m.Nodes = m.Nodes[:0]
			return
		}
		m.Nodes[i] = m.Nodes[replacement]
		m.Nodes[replacement].NumVertices = 0
		return
	}
	relink(m, parent, i, replacement)
}

func relink(m *Model, parent, from, to int) {
	p := &m.Nodes[parent]
	switch from {
	case p.Front:
		p.Front = to
	case p.Back:
		p.Back = to
	case p.Coplanar:
		p.Coplanar = to
	default:
		panic(fmt.Sprintf("bsp: node %d is not a child of %d", from, parent))
	}
}
