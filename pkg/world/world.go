// Package world owns the brushes of a level and the BSP model built from
// them, and exposes the editor command surface: rebuilding, CSG operations,
// geometry-mode modifiers and undo.
package world

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-csg/pkg/arena"
	"github.com/Faultbox/midgard-csg/pkg/bsp"
	"github.com/Faultbox/midgard-csg/pkg/builders"
	"github.com/Faultbox/midgard-csg/pkg/math"
	"github.com/Faultbox/midgard-csg/pkg/poly"
	"github.com/Faultbox/midgard-csg/pkg/trans"
)

// World errors.
var (
	ErrStaleHandle = errors.New("stale brush handle")
	ErrBuilder     = errors.New("not allowed on the builder brush")
	ErrShape       = errors.New("brush shapes take no part in CSG")
	ErrNoFace      = errors.New("no face matches")
)

// DefaultBuilderSize is the edge of the cube the builder starts as.
const DefaultBuilderSize = 256

// Options tunes rebuilds and the undo queue.
type Options struct {
	Build bsp.BuildOptions
	// Partition rebuilds the tree from the visible polygons after the
	// brushes are composed. MergeCoplanars merges the fragments of each
	// surface first and implies the rebuild.
	Partition      bool
	MergeCoplanars bool
	// TJunctions runs the T-junction pass after a rebuild.
	TJunctions   bool
	SphereReject bool
	// MergeDistance collapses points closer than this after composing.
	MergeDistance float64
	MaxUndo       int
	Grid          float64
}

// DefaultOptions returns the editor defaults.
func DefaultOptions() Options {
	return Options{
		Build:          bsp.DefaultBuildOptions(),
		MergeCoplanars: true,
		TJunctions:     true,
		SphereReject:   true,
		MergeDistance:  math.ThreshPointsAreSame,
		MaxUndo:        trans.DefaultMaxDepth,
		Grid:           16,
	}
}

// World is a level: an ordered set of brushes, the builder brush and the
// level model the brushes compose into.
type World struct {
	ID    uuid.UUID
	Log   *zap.Logger
	Opts  Options
	Level *bsp.Model
	Trans *trans.Transactor

	brushes arena.Arena[*Brush]
	order   []arena.Handle
	builder arena.Handle
	// removed parks brushes taken out of the level for undo.
	removed map[arena.Handle]*Brush
	named   int
	csg     *bsp.CsgContext
}

// New returns an empty world whose builder is a DefaultBuilderSize cube.
func New(opts Options, log *zap.Logger) *World {
	if log == nil {
		log = zap.NewNop()
	}
	w := &World{
		ID:      uuid.New(),
		Log:     log,
		Opts:    opts,
		Level:   bsp.NewModel(),
		Trans:   trans.NewTransactor(opts.MaxUndo, log.Named("trans")),
		removed: make(map[arena.Handle]*Brush),
		csg:     bsp.NewContext(log.Named("csg")),
	}
	polys, err := builders.Cube{X: DefaultBuilderSize, Y: DefaultBuilderSize, Z: DefaultBuilderSize}.Build()
	if err != nil {
		panic(fmt.Sprintf("world: default builder: %v", err))
	}
	b := &Brush{ID: uuid.New(), Name: "Builder", Polys: polys, Transform: math.IdentityTransform()}
	b.handle = w.brushes.Insert(b)
	w.builder = b.handle
	return w
}

// Brush returns the brush behind h.
func (w *World) Brush(h arena.Handle) (*Brush, error) {
	b, ok := w.brushes.Get(h)
	if !ok {
		return nil, fmt.Errorf("%w: %d/%d", ErrStaleHandle, h.Index, h.Generation)
	}
	return b, nil
}

// Builder returns the builder brush.
func (w *World) Builder() *Brush {
	b, _ := w.brushes.Get(w.builder)
	return b
}

// IsBuilder reports whether h is the builder brush.
func (w *World) IsBuilder(h arena.Handle) bool { return h == w.builder }

// Brushes returns the level's brushes in composition order. The builder is
// not included.
func (w *World) Brushes() []arena.Handle {
	return slices.Clone(w.order)
}

// BrushSpec describes a brush to add.
type BrushSpec struct {
	Name      string
	Polys     *poly.List
	Transform math.Transform
	Oper      bsp.CsgOper
	PolyFlags poly.Flags
	Shape     bool
}

func (w *World) newBrush(spec BrushSpec) *Brush {
	name := spec.Name
	if name == "" {
		name = fmt.Sprintf("Brush_%d", w.named)
		w.named++
	}
	polys := spec.Polys
	if polys == nil {
		polys = &poly.List{}
	}
	b := &Brush{
		ID:        uuid.New(),
		Name:      name,
		Polys:     polys,
		Transform: spec.Transform,
		Oper:      spec.Oper,
		PolyFlags: spec.PolyFlags,
		Shape:     spec.Shape,
	}
	b.handle = w.brushes.Insert(b)
	return b
}

// AddBrush appends a brush to the level and rebuilds.
func (w *World) AddBrush(spec BrushSpec) (arena.Handle, error) {
	s := w.Trans.Begin("Add Brush")
	if err := w.Trans.Modify(brushList{w}); err != nil {
		_ = s.Cancel()
		return arena.Handle{}, err
	}
	b := w.newBrush(spec)
	w.order = append(w.order, b.handle)
	s.End()
	w.RebuildGeometry()
	return b.handle, nil
}

// RemoveBrush takes a brush out of the level and rebuilds.
func (w *World) RemoveBrush(h arena.Handle) error {
	if w.IsBuilder(h) {
		return ErrBuilder
	}
	if _, err := w.Brush(h); err != nil {
		return err
	}
	s := w.Trans.Begin("Delete Brush")
	if err := w.Trans.Modify(brushList{w}); err != nil {
		_ = s.Cancel()
		return err
	}
	w.removeFromOrder(h)
	s.End()
	w.RebuildGeometry()
	return nil
}

// SetBuilder replaces the builder brush's faces, as a builder tool does.
func (w *World) SetBuilder(polys *poly.List) error {
	b := w.Builder()
	s := w.Trans.Begin("Brush Builder")
	if err := w.Trans.Modify(b); err != nil {
		_ = s.Cancel()
		return err
	}
	b.Polys.Element = polys.Clone().Element
	b.Shape = false
	s.End()
	return nil
}

// MoveBrush places a brush and rebuilds when it is part of the level.
func (w *World) MoveBrush(h arena.Handle, t math.Transform) error {
	b, err := w.Brush(h)
	if err != nil {
		return err
	}
	s := w.Trans.Begin("Move Brush")
	if err := w.Trans.Modify(b); err != nil {
		_ = s.Cancel()
		return err
	}
	b.Transform = t
	s.End()
	if !w.IsBuilder(h) {
		w.RebuildGeometry()
	}
	return nil
}

// SetBrushFlags replaces the polygon flags a brush applies to its faces.
func (w *World) SetBrushFlags(h arena.Handle, f poly.Flags) error {
	b, err := w.Brush(h)
	if err != nil {
		return err
	}
	s := w.Trans.Begin("Set Brush Flags")
	if err := w.Trans.Modify(b); err != nil {
		_ = s.Cancel()
		return err
	}
	b.PolyFlags = f
	s.End()
	if !w.IsBuilder(h) {
		w.RebuildGeometry()
	}
	return nil
}

func (w *World) removeFromOrder(h arena.Handle) {
	b, ok := w.brushes.Get(h)
	if !ok {
		return
	}
	w.order = slices.DeleteFunc(w.order, func(o arena.Handle) bool { return o == h })
	w.brushes.Remove(h)
	w.removed[h] = b
}

// restoreOrder makes order the level's brush list, parking brushes that
// left it and reviving parked brushes that came back.
func (w *World) restoreOrder(order []arena.Handle) error {
	keep := make(map[arena.Handle]bool, len(order))
	for _, h := range order {
		keep[h] = true
	}
	for _, h := range slices.Clone(w.order) {
		if !keep[h] {
			w.removeFromOrder(h)
		}
	}
	var errs error
	live := order[:0]
	for _, h := range order {
		if _, ok := w.brushes.Get(h); ok {
			live = append(live, h)
			continue
		}
		b, ok := w.removed[h]
		if !ok || !w.brushes.Revive(h, b) {
			errs = multierr.Append(errs, fmt.Errorf("%w: cannot restore brush %d/%d", ErrStaleHandle, h.Index, h.Generation))
			continue
		}
		delete(w.removed, h)
		live = append(live, h)
	}
	w.order = live
	return errs
}

// RebuildStats summarizes a rebuild.
type RebuildStats struct {
	Brushes int
	Errors  int
	Nodes   int
	Surfs   int
	Merged  int
	Tees    int
}

// RebuildGeometry composes every brush into a fresh level model. Structural
// brushes go first in level order, then additive detail brushes. The
// builder and brush shapes never take part.
func (w *World) RebuildGeometry() RebuildStats {
	m := w.Level
	m.EmptyModel(true, true)
	m.ResetGrids()
	w.csg.Reset()

	var st RebuildStats
	compose := func(b *Brush) {
		if b.Shape || b.Polys.Len() == 0 {
			return
		}
		br := &bsp.Brush{Handle: b.handle, Model: b.model(), Transform: b.Transform}
		n := w.csg.BrushCSG(br, m, bsp.CsgOptions{
			Oper:         b.Oper,
			PolyFlags:    b.csgFlags(),
			SphereReject: w.Opts.SphereReject,
		})
		st.Brushes++
		if n > 1 {
			st.Errors += n - 1
		}
	}
	var detail []*Brush
	for _, h := range w.order {
		b, ok := w.brushes.Get(h)
		if !ok {
			continue
		}
		if b.Structural() {
			compose(b)
		} else {
			detail = append(detail, b)
		}
	}
	for _, b := range detail {
		compose(b)
	}

	if w.Opts.MergeDistance > 0 {
		st.Merged = w.csg.MergeNearPoints(m, w.Opts.MergeDistance)
	}
	if w.Opts.Partition || w.Opts.MergeCoplanars {
		w.partition(m)
	}
	w.csg.Refresh(m)
	w.csg.BuildBounds(m)
	if w.Opts.TJunctions {
		st.Tees = w.csg.OptGeom(m)
	}
	var box math.Box
	for _, p := range m.Points {
		box = box.AddPoint(p)
	}
	m.Box, m.Sphere = box, box.Sphere()

	st.Nodes = len(m.Nodes)
	st.Surfs = len(m.Surfs)
	w.Log.Debug("world: rebuilt geometry",
		zap.Int("brushes", st.Brushes),
		zap.Int("nodes", st.Nodes),
		zap.Int("surfs", st.Surfs),
		zap.Int("errors", st.Errors))
	return st
}

// partition rebuilds the tree from the model's visible polygons.
func (w *World) partition(m *bsp.Model) {
	polys := &poly.List{}
	for _, i := range m.VisibleNodes() {
		var p poly.Poly
		if m.NodeToPoly(i, &p) > 0 {
			polys.Element = append(polys.Element, p)
		}
	}
	m.Polys = polys
	if w.Opts.MergeCoplanars {
		bsp.MergeCoplanars(m, false, false)
	}
	w.csg.Build(m, w.Opts.Build)
}

// Stats describes the world for status output.
type Stats struct {
	Brushes      int
	Nodes        int
	VisibleNodes int
	Surfs        int
	Points       int
	Area         float64
	UndoDepth    int
}

// Stats returns counts over the level model.
func (w *World) Stats() Stats {
	return Stats{
		Brushes:      len(w.order),
		Nodes:        len(w.Level.Nodes),
		VisibleNodes: len(w.Level.VisibleNodes()),
		Surfs:        len(w.Level.Surfs),
		Points:       len(w.Level.Points),
		Area:         w.Level.Area(),
		UndoDepth:    w.Trans.Len(),
	}
}
