package script

import (
	"fmt"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-csg/pkg/arena"
	"github.com/Faultbox/midgard-csg/pkg/bsp"
	"github.com/Faultbox/midgard-csg/pkg/builders"
	"github.com/Faultbox/midgard-csg/pkg/formats"
	"github.com/Faultbox/midgard-csg/pkg/geommode"
	"github.com/Faultbox/midgard-csg/pkg/math"
	"github.com/Faultbox/midgard-csg/pkg/world"
)

// sexpBrush refers to a brush of the world.
type sexpBrush struct {
	h    arena.Handle
	name string
}

func (b *sexpBrush) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(brush %q)", b.name)
}

func (b *sexpBrush) Type() *zygo.RegisteredType { return nil }

type sexpVec3 struct {
	v math.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.v.X, v.v.Y, v.v.Z)
}

func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// kwArgs splits an argument list into keyword and positional arguments.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

func parseArgs(args []zygo.Sexp) kwArgs {
	res := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			res.positional = append(res.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			res.kw[name] = args[i+1]
			i++
		} else {
			res.kw[name] = zygo.SexpNull
		}
	}
	return res
}

// float reads keyword name, or def when absent.
func (a kwArgs) float(name string, def float64) (float64, error) {
	v, ok := a.kw[name]
	if !ok {
		return def, nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return f, nil
}

func (a kwArgs) int(name string, def int) (int, error) {
	f, err := a.float(name, float64(def))
	return int(f), err
}

func (a kwArgs) bool(name string) (bool, error) {
	v, ok := a.kw[name]
	if !ok {
		return false, nil
	}
	return toBool(v)
}

func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toBool(s zygo.Sexp) (bool, error) {
	if b, ok := s.(*zygo.SexpBool); ok {
		return b.Val, nil
	}
	if s == zygo.SexpNull {
		return true, nil
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString accepts a keyword or a plain string.
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

func toVec3(s zygo.Sexp) (math.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.v, nil
	}
	return math.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

func toBrush(s zygo.Sexp) (arena.Handle, error) {
	if b, ok := s.(*sexpBrush); ok {
		return b.h, nil
	}
	return arena.Handle{}, fmt.Errorf("expected brush, got %T (%s)", s, s.SexpString(nil))
}

// faceNormals maps face keywords to outward normals.
var faceNormals = map[string]math.Vec3{
	"top":    {Z: 1},
	"bottom": {Z: -1},
	"right":  {X: 1},
	"left":   {X: -1},
	"back":   {Y: 1},
	"front":  {Y: -1},
}

func toFaceNormal(s zygo.Sexp) (math.Vec3, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return math.Vec3{}, err
	}
	n, ok := faceNormals[name]
	if !ok {
		return math.Vec3{}, fmt.Errorf("invalid face %q, expected top/bottom/left/right/front/back", name)
	}
	return n, nil
}

func (e *Engine) brushRef(h arena.Handle) zygo.Sexp {
	b, err := e.world.Brush(h)
	if err != nil {
		return zygo.SexpNull
	}
	return &sexpBrush{h: h, name: b.Name}
}

// target resolves an optional leading brush argument; the builder is the
// default.
func (e *Engine) target(pa kwArgs) (arena.Handle, error) {
	if len(pa.positional) == 0 {
		return e.world.Builder().Handle(), nil
	}
	return toBrush(pa.positional[0])
}

// positional reads n numeric positional arguments.
func positional(fn string, pa kwArgs, n int) ([]float64, error) {
	if len(pa.positional) != n {
		return nil, fmt.Errorf("%s: expected %d numbers, got %d", fn, n, len(pa.positional))
	}
	out := make([]float64, n)
	for i, s := range pa.positional {
		f, err := toFloat64(s)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fn, err)
		}
		out[i] = f
	}
	return out, nil
}

// setBuilder builds b into the builder brush.
func (e *Engine) setBuilder(fn string, b builders.Builder) (zygo.Sexp, error) {
	list, err := b.Build()
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
	}
	if err := e.world.SetBuilder(list); err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
	}
	return e.brushRef(e.world.Builder().Handle()), nil
}

func (e *Engine) csg(op bsp.CsgOper) func(*zygo.Zlisp, string, []zygo.Sexp) (zygo.Sexp, error) {
	return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		h, err := e.target(parseArgs(args))
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
		}
		out, err := e.world.ApplyCsgOperation(h, op)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
		}
		return e.brushRef(out), nil
	}
}

// registerBuiltins installs the world commands into env. Source must be
// run through preprocessSource first so keywords are recognizable.
func (e *Engine) registerBuiltins(env *zygo.Zlisp) {
	w := e.world

	// (vec3 x y z)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		v, err := positional(name, parseArgs(args), 3)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpVec3{v: math.Vec3{X: v[0], Y: v[1], Z: v[2]}}, nil
	})

	// (cube x y z :hollow true :wall 16 :tessellated true)
	env.AddFunction("cube", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		v, err := positional(name, pa, 3)
		if err != nil {
			return zygo.SexpNull, err
		}
		c := builders.Cube{X: v[0], Y: v[1], Z: v[2]}
		if c.Hollow, err = pa.bool("hollow"); err != nil {
			return zygo.SexpNull, fmt.Errorf("cube: %w", err)
		}
		if c.WallThickness, err = pa.float("wall", 16); err != nil {
			return zygo.SexpNull, fmt.Errorf("cube: %w", err)
		}
		if c.Tessellated, err = pa.bool("tessellated"); err != nil {
			return zygo.SexpNull, fmt.Errorf("cube: %w", err)
		}
		return e.setBuilder(name, c)
	})

	// (cylinder :height 256 :radius 64 :inner 32 :sides 8 :hollow true)
	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var c builders.Cylinder
		var err error
		if c.Z, err = pa.float("height", 256); err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		if c.OuterRadius, err = pa.float("radius", 128); err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		if c.InnerRadius, err = pa.float("inner", 0); err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		if c.Sides, err = pa.int("sides", 8); err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		if c.Hollow, err = pa.bool("hollow"); err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		if c.AlignToSide, err = pa.bool("align-to-side"); err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		return e.setBuilder(name, c)
	})

	// (sheet x y :segments 2)
	env.AddFunction("sheet", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		v, err := positional(name, pa, 2)
		if err != nil {
			return zygo.SexpNull, err
		}
		segs, err := pa.int("segments", 1)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sheet: %w", err)
		}
		return e.setBuilder(name, builders.Sheet{X: v[0], Y: v[1], XSegments: segs, YSegments: segs})
	})

	// (place (vec3 0 0 64)) or (place brush (vec3 0 0 64))
	env.AddFunction("place", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) == 0 || len(args) > 2 {
			return zygo.SexpNull, fmt.Errorf("place: expected [brush] location")
		}
		h := w.Builder().Handle()
		if len(args) == 2 {
			var err error
			if h, err = toBrush(args[0]); err != nil {
				return zygo.SexpNull, fmt.Errorf("place: %w", err)
			}
		}
		at, err := toVec3(args[len(args)-1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("place: %w", err)
		}
		b, err := w.Brush(h)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("place: %w", err)
		}
		t := b.Transform
		t.Location = at
		if err := w.MoveBrush(h, t); err != nil {
			return zygo.SexpNull, fmt.Errorf("place: %w", err)
		}
		return e.brushRef(h), nil
	})

	env.AddFunction("add", e.csg(bsp.CsgAdd))
	env.AddFunction("subtract", e.csg(bsp.CsgSubtract))
	env.AddFunction("intersect", e.csg(bsp.CsgIntersect))
	env.AddFunction("deintersect", e.csg(bsp.CsgDeintersect))

	// (remove brush)
	env.AddFunction("remove", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("remove: expected a brush")
		}
		h, err := toBrush(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("remove: %w", err)
		}
		if err := w.RemoveBrush(h); err != nil {
			return zygo.SexpNull, fmt.Errorf("remove: %w", err)
		}
		return zygo.SexpNull, nil
	})

	// (flags brush "semisolid" "portal")
	env.AddFunction("flags", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) == 0 {
			return zygo.SexpNull, fmt.Errorf("flags: expected a brush")
		}
		h, err := toBrush(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("flags: %w", err)
		}
		var names []string
		for _, a := range args[1:] {
			s, err := toKeywordString(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("flags: %w", err)
			}
			names = append(names, s)
		}
		f, err := formats.ParseFlags(names)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("flags: %w", err)
		}
		if err := w.SetBrushFlags(h, f); err != nil {
			return zygo.SexpNull, fmt.Errorf("flags: %w", err)
		}
		return e.brushRef(h), nil
	})

	// (extrude brush :face :top :length 32 :segments 2)
	env.AddFunction("extrude", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		h, err := e.target(pa)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("extrude: %w", err)
		}
		face, ok := pa.kw["face"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("extrude: :face is required")
		}
		n, err := toFaceNormal(face)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("extrude: %w", err)
		}
		m := &geommode.Extrude{}
		if m.Length, err = pa.float("length", e.extrude.Length); err != nil {
			return zygo.SexpNull, fmt.Errorf("extrude: %w", err)
		}
		if m.Segments, err = pa.int("segments", e.extrude.Segments); err != nil {
			return zygo.SexpNull, fmt.Errorf("extrude: %w", err)
		}
		target, err := w.SelectFacing(h, n)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("extrude: %w", err)
		}
		res, err := w.ApplyGeomModifier(m, world.GeomParams{Targets: []world.GeomTarget{target}})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("extrude: %w", err)
		}
		if res.Warning != "" {
			e.log.Warn("script: extrude", zap.String("warning", res.Warning))
		}
		return e.brushRef(h), nil
	})

	// (rebuild) returns the number of visible nodes.
	env.AddFunction("rebuild", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		w.RebuildGeometry()
		return &zygo.SexpInt{Val: int64(w.Stats().VisibleNodes)}, nil
	})

	// (undo) and (redo) return the title of the step they moved over.
	env.AddFunction("undo", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		title, err := w.Undo()
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("undo: %w", err)
		}
		return &zygo.SexpStr{S: title}, nil
	})
	env.AddFunction("redo", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		title, err := w.Redo()
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("redo: %w", err)
		}
		return &zygo.SexpStr{S: title}, nil
	})

	// (brush-count)
	env.AddFunction("brush_count", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return &zygo.SexpInt{Val: int64(len(w.Brushes()))}, nil
	})

	// (area) returns the level's visible surface area.
	env.AddFunction("area", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return &zygo.SexpFloat{Val: w.Level.Area()}, nil
	})

	// (stats) returns a one-line summary of the level.
	env.AddFunction("stats", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		st := w.Stats()
		return &zygo.SexpStr{S: fmt.Sprintf("brushes=%d nodes=%d visible=%d surfs=%d points=%d area=%g undo=%d",
			st.Brushes, st.Nodes, st.VisibleNodes, st.Surfs, st.Points, st.Area, st.UndoDepth)}, nil
	})
}
