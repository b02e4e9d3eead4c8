// Package builders generates the local-space faces of parametric brushes.
// Every face winds counter-clockwise when seen from outside.
package builders

import (
	"errors"
	"fmt"
	gomath "math"

	"go.uber.org/multierr"

	"github.com/Faultbox/midgard-csg/pkg/math"
	"github.com/Faultbox/midgard-csg/pkg/poly"
)

// ErrInvalidParams reports builder parameters outside their bounds.
var ErrInvalidParams = errors.New("invalid builder parameters")

// Builder produces a brush's faces.
type Builder interface {
	Name() string
	Build() (*poly.List, error)
}

// Cube is an axis-aligned box centered on the origin.
type Cube struct {
	X, Y, Z       float64
	Hollow        bool
	WallThickness float64
	Tessellated   bool
}

// Name implements Builder.
func (Cube) Name() string { return "cube" }

// Build implements Builder.
func (c Cube) Build() (*poly.List, error) {
	if c.X <= 0 || c.Y <= 0 || c.Z <= 0 {
		return nil, fmt.Errorf("%w: cube extent %gx%gx%g", ErrInvalidParams, c.X, c.Y, c.Z)
	}
	list := &poly.List{}
	var errs error
	errs = multierr.Append(errs, addBox(list, c.X/2, c.Y/2, c.Z/2, false))
	if c.Hollow {
		t := c.WallThickness
		if t <= 0 || 2*t >= c.X || 2*t >= c.Y || 2*t >= c.Z {
			return nil, fmt.Errorf("%w: wall thickness %g", ErrInvalidParams, t)
		}
		errs = multierr.Append(errs, addBox(list, c.X/2-t, c.Y/2-t, c.Z/2-t, true))
	}
	if errs != nil {
		return nil, errs
	}
	if c.Tessellated {
		return tessellate(list)
	}
	return list, nil
}

// addBox appends the six faces of a box, facing inward when inverted.
func addBox(list *poly.List, hx, hy, hz float64, inverted bool) error {
	faces := []struct{ n, u, v math.Vec3 }{
		{math.Vec3{X: 1}, math.Vec3{Y: hy}, math.Vec3{Z: hz}},
		{math.Vec3{X: -1}, math.Vec3{Z: hz}, math.Vec3{Y: hy}},
		{math.Vec3{Y: 1}, math.Vec3{Z: hz}, math.Vec3{X: hx}},
		{math.Vec3{Y: -1}, math.Vec3{X: hx}, math.Vec3{Z: hz}},
		{math.Vec3{Z: 1}, math.Vec3{X: hx}, math.Vec3{Y: hy}},
		{math.Vec3{Z: -1}, math.Vec3{Y: hy}, math.Vec3{X: hx}},
	}
	var errs error
	for _, f := range faces {
		c := f.n.Mul(math.Vec3{X: hx, Y: hy, Z: hz})
		p := poly.New(
			c.Sub(f.u).Sub(f.v),
			c.Add(f.u).Sub(f.v),
			c.Add(f.u).Add(f.v),
			c.Sub(f.u).Add(f.v),
		)
		if inverted {
			p.Reverse()
		}
		errs = multierr.Append(errs, add(list, p))
	}
	return errs
}

// Cylinder is an upright prism approximating a cylinder.
type Cylinder struct {
	Z           float64
	OuterRadius float64
	InnerRadius float64
	Sides       int
	AlignToSide bool
	Hollow      bool
}

// Name implements Builder.
func (Cylinder) Name() string { return "cylinder" }

// Build implements Builder.
func (c Cylinder) Build() (*poly.List, error) {
	if c.Sides < 3 || c.Z <= 0 || c.OuterRadius <= 0 {
		return nil, fmt.Errorf("%w: cylinder sides=%d z=%g radius=%g", ErrInvalidParams, c.Sides, c.Z, c.OuterRadius)
	}
	if c.Hollow && (c.InnerRadius <= 0 || c.InnerRadius >= c.OuterRadius) {
		return nil, fmt.Errorf("%w: inner radius %g", ErrInvalidParams, c.InnerRadius)
	}

	step := 2 * gomath.Pi / float64(c.Sides)
	offset := 0.0
	scale := 1.0
	if c.AlignToSide {
		offset = step / 2
		scale = 1 / gomath.Cos(step/2)
	}
	ring := func(r, z float64) []math.Vec3 {
		out := make([]math.Vec3, c.Sides)
		for i := range out {
			a := offset + step*float64(i)
			out[i] = math.Vec3{X: r * scale * gomath.Cos(a), Y: r * scale * gomath.Sin(a), Z: z}
		}
		return out
	}
	hz := c.Z / 2
	ob, ot := ring(c.OuterRadius, -hz), ring(c.OuterRadius, hz)

	list := &poly.List{}
	var errs error
	n := c.Sides
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		errs = multierr.Append(errs, add(list, poly.New(ob[i], ob[j], ot[j], ot[i])))
	}

	if !c.Hollow {
		top := poly.New(ot...)
		bottom := poly.New(ob...)
		bottom.Reverse()
		errs = multierr.Append(errs, add(list, top))
		errs = multierr.Append(errs, add(list, bottom))
		return list, errs
	}

	ib, it := ring(c.InnerRadius, -hz), ring(c.InnerRadius, hz)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		errs = multierr.Append(errs, add(list, poly.New(ib[j], ib[i], it[i], it[j])))
		errs = multierr.Append(errs, add(list, poly.New(ot[i], ot[j], it[j], it[i])))
		errs = multierr.Append(errs, add(list, poly.New(ob[j], ob[i], ib[i], ib[j])))
	}
	return list, errs
}

// SheetAxis orients a sheet.
type SheetAxis int

// Sheet orientations.
const (
	SheetHorizontal SheetAxis = iota // facing +Z
	SheetXAxis                       // facing +X
	SheetYAxis                       // facing +Y
)

// Sheet is a flat, non-solid grid of quads centered on the origin.
type Sheet struct {
	X, Y      float64
	XSegments int
	YSegments int
	Axis      SheetAxis
}

// Name implements Builder.
func (Sheet) Name() string { return "sheet" }

// Build implements Builder.
func (s Sheet) Build() (*poly.List, error) {
	if s.X <= 0 || s.Y <= 0 {
		return nil, fmt.Errorf("%w: sheet %gx%g", ErrInvalidParams, s.X, s.Y)
	}
	xs, ys := max(1, s.XSegments), max(1, s.YSegments)

	// Grid in the sheet's own (a, b) plane, mapped by axis.
	point := func(a, b float64) math.Vec3 {
		switch s.Axis {
		case SheetXAxis:
			return math.Vec3{Y: a, Z: b}
		case SheetYAxis:
			return math.Vec3{Z: a, X: b}
		default:
			return math.Vec3{X: a, Y: b}
		}
	}

	list := &poly.List{}
	var errs error
	for i := 0; i < xs; i++ {
		for j := 0; j < ys; j++ {
			a0 := -s.X/2 + s.X*float64(i)/float64(xs)
			a1 := -s.X/2 + s.X*float64(i+1)/float64(xs)
			b0 := -s.Y/2 + s.Y*float64(j)/float64(ys)
			b1 := -s.Y/2 + s.Y*float64(j+1)/float64(ys)
			p := poly.New(point(a0, b0), point(a1, b0), point(a1, b1), point(a0, b1))
			p.Flags |= poly.FlagNotSolid
			errs = multierr.Append(errs, add(list, p))
		}
	}
	return list, errs
}

// add finalizes p and appends it, linking the face to itself.
func add(list *poly.List, p poly.Poly) error {
	if err := p.Finalize(nil, true); err != nil {
		return err
	}
	p.Link = list.Len()
	list.Add(p)
	return nil
}

func tessellate(list *poly.List) (*poly.List, error) {
	out := &poly.List{}
	var errs error
	for i := range list.Element {
		tris, err := list.Element[i].Triangulate()
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		for _, t := range tris {
			t.Link = out.Len()
			out.Add(t)
		}
	}
	return out, errs
}
