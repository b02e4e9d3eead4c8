package bsp

import (
	"fmt"
	gomath "math"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-csg/pkg/poly"
)

// Optimization selects how hard Build searches for splitters.
type Optimization int

// Optimization levels.
const (
	OptLame Optimization = iota
	OptGood
	OptOptimal
)

func (o Optimization) String() string {
	switch o {
	case OptLame:
		return "lame"
	case OptGood:
		return "good"
	case OptOptimal:
		return "optimal"
	default:
		return fmt.Sprintf("Optimization(%d)", int(o))
	}
}

// ParseOptimization parses a level name as written by String.
func ParseOptimization(s string) (Optimization, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lame":
		return OptLame, nil
	case "good", "":
		return OptGood, nil
	case "optimal":
		return OptOptimal, nil
	}
	return OptGood, fmt.Errorf("unknown optimization level %q", s)
}

// BuildOptions tunes Build.
type BuildOptions struct {
	Optimization Optimization
	// Balance trades split count (0) against front/back balance (100).
	Balance int
	// PortalBias from 0 (ignore portals) to 100 (portals split first).
	PortalBias int
	// RebuildSimplePolys creates fresh surfaces, one per distinct polygon
	// link, instead of reusing the surfaces the polygon links name.
	RebuildSimplePolys bool
}

// DefaultBuildOptions matches the rebuild dialog defaults.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		Optimization:       OptGood,
		Balance:            15,
		PortalBias:         70,
		RebuildSimplePolys: true,
	}
}

// Build partitions m.Polys into a fresh tree. Zero polygons give an empty
// tree; one polygon gives a single root node.
func (ctx *CsgContext) Build(m *Model, opts BuildOptions) {
	if opts.RebuildSimplePolys {
		m.EmptyModel(true, false)
	} else {
		m.EmptyModel(false, false)
	}

	var list []*poly.Poly
	for i := range m.Polys.Element {
		p := m.Polys.Element[i]
		if len(p.Vertices) < 3 {
			continue
		}
		c := p.Clone()
		if !opts.RebuildSimplePolys && (c.Link < 0 || c.Link >= len(m.Surfs)) {
			ctx.errorf("bsp: polygon links to a missing surface", zap.Int("poly", i), zap.Int("link", c.Link))
			continue
		}
		if c.Link < 0 {
			c.Link = i
		}
		list = append(list, &c)
	}

	b := builder{ctx: ctx, m: m, opts: opts, surfs: map[int]int{}}
	if len(list) > 0 {
		b.splitPolyList(None, PlaceRoot, list)
	}
	ctx.BuildBounds(m)
	ctx.logger().Debug("bsp: built tree",
		zap.Int("polys", len(list)),
		zap.Int("nodes", len(m.Nodes)),
		zap.Int("surfs", len(m.Surfs)),
		zap.Stringer("optimization", opts.Optimization))
}

type builder struct {
	ctx   *CsgContext
	m     *Model
	opts  BuildOptions
	surfs map[int]int // source link -> surface, for RebuildSimplePolys
}

// add inserts p and, when surfaces are being rebuilt, binds its link to the
// surface created for the first polygon of the same family.
func (b *builder) add(parent int, place NodePlace, p *poly.Poly) int {
	if !b.opts.RebuildSimplePolys {
		return b.ctx.AddNode(b.m, parent, place, 0, p)
	}
	src := p.Link
	if s, ok := b.surfs[src]; ok {
		p.Link = s
	} else {
		p.Link = len(b.m.Surfs)
		b.surfs[src] = p.Link
	}
	i := b.ctx.AddNode(b.m, parent, place, 0, p)
	p.Link = src
	return i
}

func (b *builder) splitPolyList(parent int, place NodePlace, list []*poly.Poly) {
	split := b.findBestSplit(list)
	ourNode := b.add(parent, place, split)
	planeNode := ourNode

	var front, back []*poly.Poly
	for _, p := range list {
		if p == split {
			continue
		}
		var f, k poly.Poly
		switch p.SplitWithPlane(split.Vertices[0], split.Normal, &f, &k, false) {
		case poly.SplitCoplanar:
			planeNode = b.add(planeNode, PlaceCoplanar, p)
		case poly.SplitFront:
			front = append(front, p)
		case poly.SplitBack:
			back = append(back, p)
		case poly.SplitSplit:
			b.ctx.Stats.PolysSplit++
			front = append(front, &f)
			back = append(back, &k)
		}
	}

	if len(front) > 0 {
		b.splitPolyList(ourNode, PlaceFront, front)
	}
	if len(back) > 0 {
		b.splitPolyList(ourNode, PlaceBack, back)
	}
}

// addLast marks polygons that should only split space when nothing solid is
// left.
const addLast = poly.FlagSemisolid | poly.FlagNotSolid

// findBestSplit scores a sample of candidates by the splits they cause and
// the front/back imbalance they leave, weighted by Balance. Portals are
// favored by PortalBias and splitting a portal is penalized.
func (b *builder) findBestSplit(list []*poly.Poly) *poly.Poly {
	n := len(list)
	if n == 1 {
		return list[0]
	}

	var inc int
	switch b.opts.Optimization {
	case OptOptimal:
		inc = 1
	case OptGood:
		inc = max(1, n/20)
	default:
		inc = max(1, n/4)
	}

	allSemiSolid := true
	for _, p := range list {
		if !p.Flags.Any(addLast) {
			allSemiSolid = false
			break
		}
	}

	balance := float64(b.opts.Balance&0xFF) / 100
	portalBias := float64(b.opts.PortalBias) / 100

	var best *poly.Poly
	bestScore := gomath.Inf(1)
	for i := 0; i < n; i += inc {
		// Within each sample window take the first polygon allowed to split.
		idx := -1
		for k := i; k < i+inc && k < n; k++ {
			p := list[k]
			if allSemiSolid || !p.Flags.Any(addLast) || p.Flags.Has(poly.FlagPortal) {
				idx = k
				break
			}
		}
		if idx < 0 {
			continue
		}
		cand := list[idx]
		plane := cand.Plane()

		var splits, front, back int
		portal := cand.Flags.Has(poly.FlagPortal)
		pruned := false
		for j := 0; j < n; j += inc {
			if j == idx {
				continue
			}
			other := list[j]
			switch other.SplitWithPlaneFast(plane, nil, nil) {
			case poly.SplitFront:
				front++
			case poly.SplitBack:
				back++
			case poly.SplitSplit:
				if other.Flags.Has(poly.FlagPortal) {
					splits += 16
				} else {
					splits++
				}
			}
			if !portal && best != nil && (1-balance)*float64(splits) > bestScore {
				pruned = true
				break
			}
		}
		if pruned {
			continue
		}

		score := (1-balance)*float64(splits) + balance*gomath.Abs(float64(front-back))
		if portal {
			score *= 1 - portalBias
		}
		if best == nil || score < bestScore {
			best, bestScore = cand, score
		}
	}
	if best == nil {
		return list[0]
	}
	return best
}
