// Package geommode implements the geometry-mode brush modifiers: direct
// edits of a brush's vertices, edges and faces, and the tools that build
// new brushes from drawn or swept shapes.
//
// A modifier never touches the world tree. It mutates the source polygons
// of the objects in its Context and reports what it changed in a Result;
// the caller records the transaction and rebuilds the BSP.
package geommode

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-csg/pkg/arena"
	"github.com/Faultbox/midgard-csg/pkg/math"
	"github.com/Faultbox/midgard-csg/pkg/poly"
)

// Modifier errors.
var (
	ErrUnsupportedSelection = errors.New("modifier does not support the current selection")
	ErrEdgesOverlap         = errors.New("edges overlap")
	ErrNotEnoughMarkers     = errors.New("not enough clip markers placed")
	ErrNotOrtho             = errors.New("an orthographic view is required")
	ErrDegeneratePlane      = errors.New("unable to compute a plane normal")
	ErrNotTriangles         = errors.New("polygons on each side of the edge must be triangles")
	ErrNotInPolygon         = errors.New("selected elements must belong to the selected polygon")
)

// Kind names a modifier.
type Kind int

// Modifier kinds.
const (
	KindEdit Kind = iota
	KindExtrude
	KindLathe
	KindPen
	KindClip
	KindDelete
	KindCreate
	KindFlip
	KindSplit
	KindTriangulate
	KindOptimize
	KindTurn
	KindWeld
)

var kindNames = [...]string{
	KindEdit:        "edit",
	KindExtrude:     "extrude",
	KindLathe:       "lathe",
	KindPen:         "pen",
	KindClip:        "clip",
	KindDelete:      "delete",
	KindCreate:      "create",
	KindFlip:        "flip",
	KindSplit:       "split",
	KindTriangulate: "triangulate",
	KindOptimize:    "optimize",
	KindTurn:        "turn",
	KindWeld:        "weld",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Kinds returns every modifier kind in tool order.
func Kinds() []Kind {
	out := make([]Kind, len(kindNames))
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

// ParseKind parses a kind name as written by String.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return KindEdit, fmt.Errorf("unknown modifier %q", s)
}

// View is the viewport a modifier works in. Orthographic views supply the
// axis that tools drawing in a plane need.
type View int

// Viewports.
const (
	ViewPerspective View = iota
	ViewXY               // top, looking down Z
	ViewXZ               // front, looking down Y
	ViewYZ               // side, looking down X
)

func (v View) String() string {
	switch v {
	case ViewXY:
		return "xy"
	case ViewXZ:
		return "xz"
	case ViewYZ:
		return "yz"
	}
	return "perspective"
}

// IsOrtho reports whether v is an orthographic view.
func (v View) IsOrtho() bool { return v != ViewPerspective }

// Axis returns the index of the axis the view looks along, or -1.
func (v View) Axis() int {
	switch v {
	case ViewXY:
		return 2
	case ViewXZ:
		return 1
	case ViewYZ:
		return 0
	}
	return -1
}

// Context is the state a modifier works on.
type Context struct {
	Log *zap.Logger

	// Objects are the geometry objects of the selected brushes.
	Objects []*Object
	// Builder is the builder brush; tools that draw a new shape write it
	// here.
	Builder *Object

	View  View
	Pivot math.Vec3 // world space
	Grid  float64
}

func (c *Context) logger() *zap.Logger {
	if c == nil || c.Log == nil {
		return zap.NewNop()
	}
	return c.Log
}

func (c *Context) grid() float64 {
	if c.Grid <= 0 {
		return 16
	}
	return c.Grid
}

// NewBrush is a brush a modifier asks the caller to create.
type NewBrush struct {
	Polys     *poly.List
	Transform math.Transform
	// Shape marks a 2D brush shape that takes no part in CSG.
	Shape bool
	// Replaces names the brush this one takes the place of in brush order.
	Replaces arena.Handle
}

// Result reports what a modifier did.
type Result struct {
	Modified []*Object
	Created  []NewBrush
	Removed  []arena.Handle
	// Warning is a user-facing message for a step that was skipped or
	// rolled back.
	Warning string
}

// Changed reports whether the result carries any mutation.
func (r Result) Changed() bool {
	return len(r.Modified) > 0 || len(r.Created) > 0 || len(r.Removed) > 0
}

func (r *Result) modified(o *Object) {
	for _, m := range r.Modified {
		if m == o {
			return
		}
	}
	r.Modified = append(r.Modified, o)
}

func (r *Result) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if r.Warning == "" {
		r.Warning = msg
	} else {
		r.Warning += "; " + msg
	}
}

// Modifier is one geometry-mode tool.
type Modifier interface {
	Kind() Kind
	// Supports reports whether the current selection is one the modifier
	// can work on.
	Supports(ctx *Context) bool
	// Apply runs the modifier on the selection.
	Apply(ctx *Context) (Result, error)
	// HandleKey feeds an input event to an interactive modifier.
	HandleKey(ctx *Context, ev KeyEvent) KeyAction
	// Render returns the modifier's overlay as line segments.
	Render(ctx *Context) Lines
}

// New returns a modifier of the given kind with default parameters.
func New(kind Kind) (Modifier, error) {
	switch kind {
	case KindEdit:
		return &Edit{}, nil
	case KindExtrude:
		return &Extrude{Length: 16, Segments: 1}, nil
	case KindLathe:
		return NewLathe(), nil
	case KindPen:
		return NewPen(), nil
	case KindClip:
		return &Clip{}, nil
	case KindDelete:
		return Delete{}, nil
	case KindCreate:
		return Create{}, nil
	case KindFlip:
		return Flip{}, nil
	case KindSplit:
		return Split{}, nil
	case KindTriangulate:
		return Triangulate{}, nil
	case KindOptimize:
		return Optimize{}, nil
	case KindTurn:
		return Turn{}, nil
	case KindWeld:
		return Weld{}, nil
	}
	return nil, fmt.Errorf("unknown modifier kind %d", int(kind))
}

// Apply checks that m supports the selection and runs it. Every object the
// modifier reports as modified is finalized and re-read from its polygons,
// keeping its selection.
func Apply(ctx *Context, m Modifier) (Result, error) {
	if !m.Supports(ctx) {
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedSelection, m.Kind())
	}
	log := ctx.logger().With(zap.Stringer("modifier", m.Kind()))
	res, err := m.Apply(ctx)
	if err != nil {
		log.Warn("geommode: modifier failed", zap.Error(err))
		return res, err
	}
	for _, o := range res.Modified {
		sel := o.Selection()
		o.FinalizeSource()
		o.Refresh()
		o.Restore(sel)
	}
	if res.Warning != "" {
		log.Warn("geommode: " + res.Warning)
	}
	log.Debug("geommode: applied",
		zap.Int("modified", len(res.Modified)),
		zap.Int("created", len(res.Created)),
		zap.Int("removed", len(res.Removed)))
	return res, nil
}

// passive supplies the input and overlay methods of modifiers that have
// neither.
type passive struct{}

func (passive) HandleKey(*Context, KeyEvent) KeyAction { return KeyIgnored }
func (passive) Render(*Context) Lines                  { return nil }

// counts sums selected elements over every object.
func counts(ctx *Context) (faces, edges, verts int) {
	for _, o := range ctx.Objects {
		f, e, v := o.SelectedCounts()
		faces += f
		edges += e
		verts += v
	}
	return faces, edges, verts
}
