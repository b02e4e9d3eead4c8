package bsp

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-csg/pkg/arena"
	"github.com/Faultbox/midgard-csg/pkg/math"
	"github.com/Faultbox/midgard-csg/pkg/poly"
)

// BrushType says whether a brush adds or carves solid.
type BrushType int

// Brush types.
const (
	BrushAdd BrushType = iota
	BrushSubtract
)

func (t BrushType) String() string {
	if t == BrushSubtract {
		return "subtract"
	}
	return "add"
}

// CsgOper is a CSG operation.
type CsgOper int

// CSG operations.
const (
	CsgAdd CsgOper = iota
	CsgSubtract
	CsgIntersect
	CsgDeintersect
)

func (o CsgOper) String() string {
	switch o {
	case CsgAdd:
		return "add"
	case CsgSubtract:
		return "subtract"
	case CsgIntersect:
		return "intersect"
	case CsgDeintersect:
		return "deintersect"
	}
	return fmt.Sprintf("CsgOper(%d)", int(o))
}

// ParseCsgOper parses an operation name as written by String.
func ParseCsgOper(s string) (CsgOper, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "add", "":
		return CsgAdd, nil
	case "subtract":
		return CsgSubtract, nil
	case "intersect":
		return CsgIntersect, nil
	case "deintersect":
		return CsgDeintersect, nil
	}
	return CsgAdd, fmt.Errorf("unknown csg operation %q", s)
}

// BrushType returns the brush type an operation applies with.
func (o CsgOper) BrushType() BrushType {
	if o == CsgSubtract {
		return BrushSubtract
	}
	return BrushAdd
}

// Brush is the input of a CSG operation: a model holding local-space faces
// placed in the world by Transform.
type Brush struct {
	Handle    arena.Handle
	Model     *Model
	Transform math.Transform
}

// CsgOptions controls BrushCSG.
type CsgOptions struct {
	Oper      CsgOper
	PolyFlags poly.Flags
	// BuildBounds refreshes the world's node bounds afterwards.
	BuildBounds bool
	// MergePolys merges the coplanar fragments of an intersected brush.
	MergePolys bool
	// SphereReject skips world subtrees the brush's bounding sphere cannot
	// reach.
	SphereReject bool
}

// BrushCSG applies brush to world. Add and subtract mutate the world tree;
// intersect and deintersect replace the brush's faces with the part of
// them inside (or outside) the world. It returns 1 plus the number of
// non-fatal errors, or 0 when the brush has no model.
func (ctx *CsgContext) BrushCSG(brush *Brush, world *Model, opts CsgOptions) int {
	ctx.Errors = 0
	if brush == nil || brush.Model == nil || brush.Model.Polys == nil {
		return 0
	}

	var notFlags poly.Flags
	if opts.Oper != CsgAdd {
		notFlags = poly.FlagSemisolid | poly.FlagNotSolid
	}

	src := brush.Model.Polys.Element
	temp := NewModel()
	for i := range src {
		dst := src[i].Clone()
		dst.Brush = brush.Handle
		dst.BrushPoly = i
		dst.Flags = (dst.Flags | opts.PolyFlags) &^ notFlags
		if dst.Link == None {
			dst.Link = i
		}
		dst.Transform(brush.Transform)
		temp.Polys.Element = append(temp.Polys.Element, dst)
	}

	log := ctx.logger().With(zap.Stringer("oper", opts.Oper), zap.Int("polys", len(src)))

	switch opts.Oper {
	case CsgIntersect, CsgDeintersect:
		brush.Model.EmptyModel(true, true)
		fn := intersectBrushWithWorld
		if opts.Oper == CsgDeintersect {
			fn = deintersectBrushWithWorld
		}
		ctx.target = brush.Model
		for i := range temp.Polys.Element {
			ed := temp.Polys.Element[i].Clone()
			ctx.FilterPoly(fn, world, &ed)
		}
		ctx.target = nil

		// Back to the brush's own space.
		out := brush.Model.Polys.Element
		for i := range out {
			out[i].InverseTransform(brush.Transform)
			out[i].Fix()
			out[i].Brush = arena.Handle{}
			out[i].BrushPoly = i
		}
		if opts.MergePolys {
			MergeCoplanars(brush.Model, false, true)
		}
		log.Debug("bsp: brush clipped by world", zap.Int("kept", brush.Model.Polys.Len()))

	default:
		bt := opts.Oper.BrushType()

		ctx.Build(temp, BuildOptions{Optimization: OptLame, Balance: 0, PortalBias: 70, RebuildSimplePolys: true})
		temp.BuildBound()
		ctx.zero = ctx.zero[:0]
		if len(world.Nodes) > 0 {
			var sphere *math.Sphere
			if opts.SphereReject {
				sphere = &temp.Sphere
			}
			ctx.filterWorldThroughBrush(world, temp, bt, 0, sphere)
		}

		fn := addBrushToWorld
		if bt == BrushSubtract {
			fn = subtractBrushFromWorld
		}
		surfs := map[int]int{}
		for i := range temp.Polys.Element {
			ed := temp.Polys.Element[i].Clone()
			ed.Flags &^= poly.FlagEdCut
			family := ed.Link
			reserved, ok := surfs[family]
			if !ok {
				reserved = len(world.Surfs)
				surfs[family] = reserved
			}
			ed.Link = reserved
			ctx.FilterPoly(fn, world, &ed)
			if !ok && reserved == len(world.Surfs) {
				// Nothing of this face survived; release the reservation.
				delete(surfs, family)
			}
		}
		for _, n := range ctx.zero {
			world.Nodes[n].NumVertices = 0
		}
		ctx.zero = ctx.zero[:0]
		log.Debug("bsp: brush merged into world",
			zap.Int("nodes", len(world.Nodes)),
			zap.Int("discarded", ctx.Stats.Discarded))
	}

	ctx.Cleanup(world)
	if opts.BuildBounds {
		ctx.BuildBounds(world)
	}
	if ctx.Errors > 0 {
		log.Debug("bsp: csg finished with errors", zap.Int("errors", ctx.Errors))
	}
	return 1 + ctx.Errors
}

// filterWorldThroughBrush filters every original world polygon through the
// brush tree. Surviving fragments of a cut polygon are attached to the end
// of its coplanar chain; when any fragment was discarded the original node
// is queued for emptying, otherwise the fragments are dropped again. Queued
// nodes stay solid boundaries until the brush itself has been filtered.
func (ctx *CsgContext) filterWorldThroughBrush(world, brush *Model, bt BrushType, node int, sphere *math.Sphere) {
	fn := addWorldToBrush
	if bt == BrushSubtract {
		fn = subtractWorldToBrush
	}

	for node != None {
		if world.Nodes[node].Flags&NodeIsNew != 0 {
			// New nodes and everything below them came from this operation.
			return
		}

		doFront, doBack := true, true
		if sphere != nil {
			d := world.Nodes[node].Plane.Dot(sphere.Center)
			doFront = d >= -sphere.W
			doBack = d <= sphere.W
		}

		var p poly.Poly
		if doFront && doBack && world.NodeToPoly(node, &p) > 0 {
			ctx.target = world
			ctx.node = node
			ctx.lastCoplanar = world.CoplanarTail(node)
			ctx.numNodes = len(world.Nodes)
			ctx.numVerts = len(world.Verts)
			ctx.discarded = 0

			ctx.FilterPoly(fn, brush, &p)

			if ctx.discarded == 0 {
				world.Nodes[ctx.lastCoplanar].Coplanar = None
				world.Nodes = world.Nodes[:ctx.numNodes]
				world.Verts = world.Verts[:ctx.numVerts]
			} else {
				ctx.zero = append(ctx.zero, node)
				ctx.Stats.Discarded += ctx.discarded
			}
			ctx.target = nil
		}

		if f := world.Nodes[node].Front; doFront && f != None {
			ctx.filterWorldThroughBrush(world, brush, bt, f, sphere)
		}
		if b := world.Nodes[node].Back; doBack && b != None {
			ctx.filterWorldThroughBrush(world, brush, bt, b, sphere)
		}
		node = world.Nodes[node].Coplanar
	}
}

func addBrushToWorld(ctx *CsgContext, m *Model, node int, p *poly.Poly, class Classification, place NodePlace) {
	switch class {
	case Outside, CoplanarOutside:
		ctx.AddNode(m, node, place, NodeIsNew, p)
	case CospatialFacingOut:
		if !p.Flags.Has(poly.FlagSemisolid) {
			ctx.AddNode(m, node, place, NodeIsNew, p)
		}
	}
}

func addWorldToBrush(ctx *CsgContext, _ *Model, _ int, p *poly.Poly, class Classification, _ NodePlace) {
	switch class {
	case Outside, CoplanarOutside:
		if p.Flags.Has(poly.FlagEdCut) {
			ctx.AddNode(ctx.target, ctx.lastCoplanar, PlaceCoplanar, NodeIsNew, p)
		}
	default:
		ctx.discarded++
	}
}

func subtractBrushFromWorld(ctx *CsgContext, m *Model, node int, p *poly.Poly, class Classification, place NodePlace) {
	switch class {
	case Inside, CoplanarInside:
		p.Reverse()
		ctx.AddNode(m, node, place, NodeIsNew, p)
		p.Reverse()
	}
}

func subtractWorldToBrush(ctx *CsgContext, _ *Model, _ int, p *poly.Poly, class Classification, _ NodePlace) {
	switch class {
	case Outside, CoplanarOutside, CospatialFacingIn:
		if p.Flags.Has(poly.FlagEdCut) {
			ctx.AddNode(ctx.target, ctx.lastCoplanar, PlaceCoplanar, NodeIsNew, p)
		}
	default:
		ctx.discarded++
	}
}

func intersectBrushWithWorld(ctx *CsgContext, _ *Model, _ int, p *poly.Poly, class Classification, _ NodePlace) {
	switch class {
	case Inside, CoplanarInside, CospatialFacingOut:
		if p.Fix() >= 3 {
			ctx.target.Polys.Add(*p)
		}
	}
}

func deintersectBrushWithWorld(ctx *CsgContext, _ *Model, _ int, p *poly.Poly, class Classification, _ NodePlace) {
	switch class {
	case Outside, CoplanarOutside, CospatialFacingIn:
		if p.Fix() >= 3 {
			ctx.target.Polys.Add(*p)
		}
	}
}
