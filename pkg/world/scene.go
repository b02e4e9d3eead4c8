package world

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-csg/pkg/formats"
)

// FromScene builds a world from a scene description and rebuilds its
// level. Brushes that fail to build are skipped and reported together.
func FromScene(s *formats.Scene, opts Options, log *zap.Logger) (*World, error) {
	w := New(opts, log)
	w.Level.RootOutside = s.Outside()

	var errs error
	if s.Builder != nil {
		polys, err := s.Builder.Build()
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("builder: %w", err))
		} else {
			b := w.Builder()
			b.Polys.Element = polys.Element
			b.Transform = s.Builder.Placement()
		}
	}
	for i := range s.Brushes {
		sb := &s.Brushes[i]
		spec, err := brushSpec(sb)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("brush %d: %w", i, err))
			continue
		}
		b := w.newBrush(spec)
		w.order = append(w.order, b.handle)
	}
	st := w.RebuildGeometry()
	w.Log.Info("world: loaded scene",
		zap.Int("brushes", len(w.order)),
		zap.Int("nodes", st.Nodes),
		zap.Int("errors", len(multierr.Errors(errs))))
	return w, errs
}

func brushSpec(sb *formats.SceneBrush) (BrushSpec, error) {
	polys, err := sb.Build()
	if err != nil {
		return BrushSpec{}, err
	}
	oper, err := sb.CsgOper()
	if err != nil {
		return BrushSpec{}, err
	}
	flags, err := sb.PolyFlags()
	if err != nil {
		return BrushSpec{}, err
	}
	return BrushSpec{
		Name:      sb.Name,
		Polys:     polys,
		Transform: sb.Placement(),
		Oper:      oper,
		PolyFlags: flags,
		Shape:     sb.Shape,
	}, nil
}

// Scene describes the world's brushes. Faces are written out explicitly,
// so a reloaded scene reproduces edits made after the brushes were built.
func (w *World) Scene() *formats.Scene {
	outside := w.Level.RootOutside
	s := &formats.Scene{RootOutside: &outside}
	toScene := func(b *Brush) formats.SceneBrush {
		t := b.Transform
		return formats.SceneBrush{
			Name:      b.Name,
			Polys:     formats.ScenePolys(b.Polys),
			Transform: &t,
			Oper:      b.Oper.String(),
			Flags:     formats.FlagNames(b.PolyFlags),
			Shape:     b.Shape,
		}
	}
	builder := toScene(w.Builder())
	builder.Name = ""
	s.Builder = &builder
	for _, h := range w.order {
		if b, ok := w.brushes.Get(h); ok {
			s.Brushes = append(s.Brushes, toScene(b))
		}
	}
	return s
}
