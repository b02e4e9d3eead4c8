package world

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-csg/pkg/arena"
	"github.com/Faultbox/midgard-csg/pkg/bsp"
	"github.com/Faultbox/midgard-csg/pkg/geommode"
	"github.com/Faultbox/midgard-csg/pkg/math"
)

// ApplyCsgOperation applies op with brush h and returns the brush that
// carries the result.
//
// Add and subtract on the builder place a copy of it in the level; on a
// level brush they change how that brush is composed. Intersect and
// deintersect replace h's faces with the part of them inside (or outside)
// the level's solid.
func (w *World) ApplyCsgOperation(h arena.Handle, op bsp.CsgOper) (arena.Handle, error) {
	b, err := w.Brush(h)
	if err != nil {
		return arena.Handle{}, err
	}
	if b.Shape {
		return arena.Handle{}, ErrShape
	}
	log := w.Log.With(zap.Stringer("oper", op), zap.String("brush", b.Name))

	s := w.Trans.Begin(csgTitle(op))
	out := h
	switch op {
	case bsp.CsgAdd, bsp.CsgSubtract:
		if w.IsBuilder(h) {
			if err := w.Trans.Modify(brushList{w}); err != nil {
				_ = s.Cancel()
				return arena.Handle{}, err
			}
			nb := w.newBrush(BrushSpec{
				Polys:     b.Polys.Clone(),
				Transform: b.Transform,
				Oper:      op,
				PolyFlags: b.PolyFlags,
			})
			w.order = append(w.order, nb.handle)
			out = nb.handle
			break
		}
		if err := w.Trans.Modify(b); err != nil {
			_ = s.Cancel()
			return arena.Handle{}, err
		}
		b.Oper = op

	case bsp.CsgIntersect, bsp.CsgDeintersect:
		if err := w.Trans.Modify(b); err != nil {
			_ = s.Cancel()
			return arena.Handle{}, err
		}
		m := bsp.NewModel()
		m.Polys = b.Polys.Clone()
		br := &bsp.Brush{Handle: h, Model: m, Transform: b.Transform}
		w.csg.BrushCSG(br, w.Level, bsp.CsgOptions{Oper: op, MergePolys: true})
		b.Polys.Element = m.Polys.Element
		for i := range b.Polys.Element {
			b.Polys.Element[i].Link = i
		}
		if b.Polys.Len() == 0 {
			log.Warn("world: csg left the brush empty")
		}

	default:
		_ = s.Cancel()
		return arena.Handle{}, fmt.Errorf("unknown csg operation %d", int(op))
	}
	s.End()

	if !w.IsBuilder(out) {
		w.RebuildGeometry()
	}
	log.Info("world: csg applied", zap.Int("faces", b.Polys.Len()))
	return out, nil
}

func csgTitle(op bsp.CsgOper) string {
	switch op {
	case bsp.CsgSubtract:
		return "Brush Subtract"
	case bsp.CsgIntersect:
		return "Brush Intersect"
	case bsp.CsgDeintersect:
		return "Brush Deintersect"
	}
	return "Brush Add"
}

// GeomTarget names a brush and the elements selected on it.
type GeomTarget struct {
	Brush  arena.Handle
	Select []geommode.Selection
}

// GeomParams is the geometry-mode state a modifier runs in.
type GeomParams struct {
	Targets []GeomTarget
	View    geommode.View
	Pivot   math.Vec3
}

// SelectFacing targets every face of brush h whose normal is n.
func (w *World) SelectFacing(h arena.Handle, n math.Vec3) (GeomTarget, error) {
	b, err := w.Brush(h)
	if err != nil {
		return GeomTarget{}, err
	}
	t := GeomTarget{Brush: h}
	o := geommode.NewObject(h, b.Polys, b.Transform)
	for i := range o.Faces {
		if math.NormalsAreSame(o.FacePoly(i).Normal, n) {
			t.Select = append(t.Select, geommode.Selection{Type: geommode.ElemFace, Index: i})
		}
	}
	if len(t.Select) == 0 {
		return t, fmt.Errorf("%w: %s has no face facing %v", ErrNoFace, b.Name, n)
	}
	return t, nil
}

// geomContext builds the modifier context over the targeted brushes and
// the builder. The objects share the brushes' face lists.
func (w *World) geomContext(p GeomParams) (*geommode.Context, map[*geommode.Object]*Brush, error) {
	ctx := &geommode.Context{
		Log:   w.Log.Named("geommode"),
		View:  p.View,
		Pivot: p.Pivot,
		Grid:  w.Opts.Grid,
	}
	owners := make(map[*geommode.Object]*Brush)
	wrap := func(b *Brush) *geommode.Object {
		o := geommode.NewObject(b.handle, b.Polys, b.Transform)
		o.Shape = b.Shape
		owners[o] = b
		return o
	}
	for _, t := range p.Targets {
		b, err := w.Brush(t.Brush)
		if err != nil {
			return nil, nil, err
		}
		o := wrap(b)
		o.Restore(t.Select)
		ctx.Objects = append(ctx.Objects, o)
		if w.IsBuilder(t.Brush) {
			ctx.Builder = o
		}
	}
	if ctx.Builder == nil {
		ctx.Builder = wrap(w.Builder())
	}
	return ctx, owners, nil
}

// ApplyGeomModifier runs m over the targeted selection as one undoable
// step. Brushes the modifier creates are placed where the brush they
// replace was, or appended; the level is rebuilt when anything changed.
func (w *World) ApplyGeomModifier(m geommode.Modifier, p GeomParams) (geommode.Result, error) {
	ctx, owners, err := w.geomContext(p)
	if err != nil {
		return geommode.Result{}, err
	}

	s := w.Trans.Begin(m.Kind().String())
	for _, b := range owners {
		if err := w.Trans.Modify(b); err != nil {
			_ = s.Cancel()
			return geommode.Result{}, err
		}
	}
	res, err := geommode.Apply(ctx, m)
	if err != nil {
		if cerr := s.Cancel(); cerr != nil {
			w.Log.Error("world: rollback failed", zap.Error(cerr))
		}
		return res, err
	}

	for o, b := range owners {
		b.Polys = o.Polys
		b.Transform = o.Transform
	}
	if len(res.Created) > 0 || len(res.Removed) > 0 {
		if err := w.Trans.Modify(brushList{w}); err != nil {
			_ = s.Cancel()
			return res, err
		}
		w.place(res)
	}
	s.End()

	if w.touchesLevel(res, owners) {
		w.RebuildGeometry()
	}
	return res, nil
}

// place inserts created brushes and drops removed ones.
func (w *World) place(res geommode.Result) {
	byReplaced := map[arena.Handle][]arena.Handle{}
	var appended []arena.Handle
	for _, nb := range res.Created {
		spec := BrushSpec{Polys: nb.Polys, Transform: nb.Transform, Shape: nb.Shape}
		if src, ok := w.brushes.Get(nb.Replaces); ok {
			spec.Oper = src.Oper
			spec.PolyFlags = src.PolyFlags
		}
		b := w.newBrush(spec)
		if _, ok := w.brushes.Get(nb.Replaces); ok && !w.IsBuilder(nb.Replaces) {
			byReplaced[nb.Replaces] = append(byReplaced[nb.Replaces], b.handle)
		} else {
			appended = append(appended, b.handle)
		}
	}

	order := make([]arena.Handle, 0, len(w.order)+len(res.Created))
	for _, h := range w.order {
		order = append(order, byReplaced[h]...)
		order = append(order, h)
	}
	w.order = append(order, appended...)
	for _, h := range res.Removed {
		if !w.IsBuilder(h) {
			w.removeFromOrder(h)
		}
	}
}

// touchesLevel reports whether the result changed anything the level model
// is built from.
func (w *World) touchesLevel(res geommode.Result, owners map[*geommode.Object]*Brush) bool {
	if len(res.Removed) > 0 {
		return true
	}
	for _, nb := range res.Created {
		if !nb.Shape {
			return true
		}
	}
	for _, o := range res.Modified {
		if b, ok := owners[o]; ok && !w.IsBuilder(b.handle) {
			return true
		}
	}
	return false
}

// HandleGeomKey feeds ev to an interactive modifier. When the modifier asks
// to be applied, it is, and the result is returned.
func (w *World) HandleGeomKey(m geommode.Modifier, p GeomParams, ev geommode.KeyEvent) (geommode.KeyAction, geommode.Result, error) {
	ctx, _, err := w.geomContext(p)
	if err != nil {
		return geommode.KeyIgnored, geommode.Result{}, err
	}
	act := m.HandleKey(ctx, ev)
	if act != geommode.KeyApply {
		return act, geommode.Result{}, nil
	}
	res, err := w.ApplyGeomModifier(m, p)
	return act, res, err
}

// RenderGeom returns m's overlay for the given state.
func (w *World) RenderGeom(m geommode.Modifier, p GeomParams) (geommode.Lines, error) {
	ctx, _, err := w.geomContext(p)
	if err != nil {
		return nil, err
	}
	return m.Render(ctx), nil
}

// Undo reverts the newest transaction and rebuilds the level.
func (w *World) Undo() (string, error) {
	title, err := w.Trans.Undo()
	if title == "" {
		return title, err
	}
	w.RebuildGeometry()
	w.Log.Info("world: undo", zap.String("title", title))
	return title, err
}

// Redo reapplies the oldest undone transaction and rebuilds the level.
func (w *World) Redo() (string, error) {
	title, err := w.Trans.Redo()
	if title == "" {
		return title, err
	}
	w.RebuildGeometry()
	w.Log.Info("world: redo", zap.String("title", title))
	return title, err
}
