package bsp

import (
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-csg/pkg/poly"
)

// Classification is where a polygon fragment ended up after filtering.
type Classification int

// Filter outcomes.
const (
	Outside Classification = iota
	Inside
	CoplanarOutside
	CoplanarInside
	CospatialFacingIn
	CospatialFacingOut
)

func (c Classification) String() string {
	switch c {
	case Outside:
		return "outside"
	case Inside:
		return "inside"
	case CoplanarOutside:
		return "coplanar-outside"
	case CoplanarInside:
		return "coplanar-inside"
	case CospatialFacingIn:
		return "cospatial-facing-in"
	case CospatialFacingOut:
		return "cospatial-facing-out"
	}
	return "unknown"
}

// FilterFunc receives every fragment that reaches a leaf. node and place
// say where a node built from the fragment would be attached; coplanar
// outcomes are reported against the first coplanar node found.
type FilterFunc func(ctx *CsgContext, m *Model, node int, p *poly.Poly, class Classification, place NodePlace)

// CoplanarInfo tracks a fragment that met a coplanar node: its own front
// half-space is explored first, then its back, and only the second leaf
// reports.
type CoplanarInfo struct {
	OriginalNode     int
	BackNode         int
	ProcessingBack   bool
	FrontLeafOutside bool
	BackNodeOutside  bool
}

func noCoplanar() CoplanarInfo {
	return CoplanarInfo{OriginalNode: None, BackNode: None}
}

// CoplanarClassification combines the two leaf results of a coplanar
// fragment. Agreement means the fragment lies on a boundary the tree already
// has; disagreement means it coincides with a tree surface, facing the same
// way when its own front is outside.
func CoplanarClassification(frontLeafOutside, backLeafOutside bool) Classification {
	switch {
	case frontLeafOutside && backLeafOutside:
		return CoplanarOutside
	case !frontLeafOutside && !backLeafOutside:
		return CoplanarInside
	case frontLeafOutside:
		return CospatialFacingOut
	default:
		return CospatialFacingIn
	}
}

func leafClassification(outside bool) Classification {
	if outside {
		return Outside
	}
	return Inside
}

// Phase is the state of the filter loop.
type Phase int

// Filter phases.
const (
	PhaseDescend Phase = iota
	PhaseClassifyLeaf
	PhaseProcessCoplanarBack
)

// FilterPoly filters p through m's tree starting outside-ness at
// m.RootOutside. An empty tree reports p at the root.
func (ctx *CsgContext) FilterPoly(fn FilterFunc, m *Model, p *poly.Poly) {
	if len(m.Nodes) == 0 {
		fn(ctx, m, 0, p, leafClassification(m.RootOutside), PlaceRoot)
		return
	}
	ctx.FilterEdPoly(fn, m, 0, p, m.RootOutside)
}

// FilterEdPoly filters p through the subtree at node.
func (ctx *CsgContext) FilterEdPoly(fn FilterFunc, m *Model, node int, p *poly.Poly, outside bool) {
	ctx.filter(fn, m, node, p, noCoplanar(), outside, PhaseDescend, PlaceRoot)
}

// filter walks one fragment down the tree. Front and back descents loop in
// place; only true splits recurse.
func (ctx *CsgContext) filter(fn FilterFunc, m *Model, node int, p *poly.Poly, info CoplanarInfo, outside bool, phase Phase, place NodePlace) {
	for {
		switch phase {
		case PhaseDescend:
			if len(p.Vertices) >= poly.VertexThreshold {
				var half poly.Poly
				p.SplitInHalf(&half)
				ctx.filter(fn, m, node, &half, info, outside, PhaseDescend, place)
			}

			n := m.Nodes[node]
			var front, back poly.Poly
			res := p.SplitWithPlaneValue(n.Plane, &front, &back, false)
			if res == poly.SplitCoplanar && info.OriginalNode != None {
				// A fragment split just outside the coplanar threshold can
				// land just inside it further down.
				ctx.Stats.OutOfPlace++
				ctx.errorf("bsp: out-of-place coplanar", zap.Int("node", node))
				res = poly.SplitFront
			}

			switch res {
			case poly.SplitFront:
				outside = outside || n.IsCsg()
				if n.Front == None {
					phase, place = PhaseClassifyLeaf, PlaceFront
				} else {
					node = n.Front
				}

			case poly.SplitBack:
				outside = outside && !n.IsCsg()
				if n.Back == None {
					phase, place = PhaseClassifyLeaf, PlaceBack
				} else {
					node = n.Back
				}

			case poly.SplitCoplanar:
				ctx.Stats.Coplanars++
				info.OriginalNode = node
				info.BackNode = None
				info.ProcessingBack = false
				info.BackNodeOutside = outside
				newFrontOutside := outside

				// Work out which child lies on the fragment's own front.
				ourFront, ourBack := n.Front, n.Back
				if n.Plane.Normal().Dot(p.Normal) >= 0 {
					if n.IsCsg() {
						info.BackNodeOutside = false
						newFrontOutside = true
					}
				} else {
					ourFront, ourBack = n.Back, n.Front
					if n.IsCsg() {
						info.BackNodeOutside = true
						newFrontOutside = false
					}
				}

				switch {
				case ourFront != None:
					info.BackNode = ourBack
					node = ourFront
					outside = newFrontOutside
				case ourBack != None:
					info.FrontLeafOutside = newFrontOutside
					info.ProcessingBack = true
					node = ourBack
					outside = info.BackNodeOutside
				default:
					info.FrontLeafOutside = newFrontOutside
					outside = info.BackNodeOutside
					phase = PhaseProcessCoplanarBack
				}

			case poly.SplitSplit:
				ctx.Stats.PolysSplit++
				frontOutside, backOutside := outside, outside
				if n.IsCsg() {
					frontOutside, backOutside = true, false
				}
				if f := m.Nodes[node].Front; f == None {
					ctx.filter(fn, m, node, &front, info, frontOutside, PhaseClassifyLeaf, PlaceFront)
				} else {
					ctx.filter(fn, m, f, &front, info, frontOutside, PhaseDescend, place)
				}
				if b := m.Nodes[node].Back; b == None {
					ctx.filter(fn, m, node, &back, info, backOutside, PhaseClassifyLeaf, PlaceBack)
				} else {
					ctx.filter(fn, m, b, &back, info, backOutside, PhaseDescend, place)
				}
				return
			}

		case PhaseClassifyLeaf:
			switch {
			case info.OriginalNode == None:
				fn(ctx, m, node, p, leafClassification(outside), place)
				return
			case info.ProcessingBack:
				phase = PhaseProcessCoplanarBack
			default:
				// Front exploration done; now the fragment's back.
				info.FrontLeafOutside = outside
				outside = info.BackNodeOutside
				if info.BackNode == None {
					phase = PhaseProcessCoplanarBack
				} else {
					info.ProcessingBack = true
					node = info.BackNode
					phase = PhaseDescend
				}
			}

		case PhaseProcessCoplanarBack:
			fn(ctx, m, info.OriginalNode, p, CoplanarClassification(info.FrontLeafOutside, outside), PlaceCoplanar)
			return
		}
	}
}
