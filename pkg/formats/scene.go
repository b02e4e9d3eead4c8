package formats

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/midgard-csg/pkg/bsp"
	"github.com/Faultbox/midgard-csg/pkg/builders"
	"github.com/Faultbox/midgard-csg/pkg/math"
	"github.com/Faultbox/midgard-csg/pkg/poly"
)

// Scene errors.
var (
	ErrUnknownBuilder = errors.New("unknown brush builder")
	ErrUnknownFlag    = errors.New("unknown poly flag")
	ErrNoGeometry     = errors.New("brush has neither a builder nor polys")
)

// Scene describes a level as the brushes it is built from.
type Scene struct {
	// RootOutside is the classification of empty space; nil means outside.
	RootOutside *bool        `yaml:"rootOutside,omitempty"`
	Builder     *SceneBrush  `yaml:"builder,omitempty"`
	Brushes     []SceneBrush `yaml:"brushes"`
}

// SceneBrush is one brush: either a builder with its parameters or an
// explicit list of faces.
type SceneBrush struct {
	Name      string          `yaml:"name,omitempty"`
	Builder   string          `yaml:"builder,omitempty"`
	Params    BuilderParams   `yaml:"params,omitempty"`
	Polys     []ScenePoly     `yaml:"polys,omitempty"`
	Transform *math.Transform `yaml:"transform,omitempty"`
	Oper      string          `yaml:"oper,omitempty"`
	Flags     []string        `yaml:"flags,omitempty"`
	Shape     bool            `yaml:"shape,omitempty"`
}

// BuilderParams holds the parameters of every builder; each builder reads
// the ones it uses.
type BuilderParams struct {
	X             float64 `yaml:"x,omitempty"`
	Y             float64 `yaml:"y,omitempty"`
	Z             float64 `yaml:"z,omitempty"`
	Hollow        bool    `yaml:"hollow,omitempty"`
	WallThickness float64 `yaml:"wallThickness,omitempty"`
	Tessellated   bool    `yaml:"tessellated,omitempty"`
	OuterRadius   float64 `yaml:"outerRadius,omitempty"`
	InnerRadius   float64 `yaml:"innerRadius,omitempty"`
	Sides         int     `yaml:"sides,omitempty"`
	AlignToSide   bool    `yaml:"alignToSide,omitempty"`
	XSegments     int     `yaml:"xSegments,omitempty"`
	YSegments     int     `yaml:"ySegments,omitempty"`
	Axis          string  `yaml:"axis,omitempty"`
}

// ScenePoly is one explicit face, wound counter-clockwise seen from the
// side it faces.
type ScenePoly struct {
	Vertices      []math.Vec3 `yaml:"vertices"`
	Material      string      `yaml:"material,omitempty"`
	Flags         []string    `yaml:"flags,omitempty"`
	LightmapScale float64     `yaml:"lightmapScale,omitempty"`
}

var flagNames = map[string]poly.Flags{
	"invisible":   poly.FlagInvisible,
	"masked":      poly.FlagMasked,
	"translucent": poly.FlagTranslucent,
	"notsolid":    poly.FlagNotSolid,
	"semisolid":   poly.FlagSemisolid,
	"twosided":    poly.FlagTwoSided,
	"portal":      poly.FlagPortal,
	"noaddtobsp":  poly.FlagNoAddToBSP,
	"hint":        poly.FlagHint,
}

// ParseFlags converts flag names to a flag set.
func ParseFlags(names []string) (poly.Flags, error) {
	var f poly.Flags
	for _, n := range names {
		v, ok := flagNames[strings.ToLower(strings.ReplaceAll(n, "_", ""))]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnknownFlag, n)
		}
		f |= v
	}
	return f, nil
}

// FlagNames returns the names of the persistent flags set in f, sorted.
func FlagNames(f poly.Flags) []string {
	var out []string
	for n, v := range flagNames {
		if f.Has(v) {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// Outside reports the scene's root classification.
func (s *Scene) Outside() bool {
	return s.RootOutside == nil || *s.RootOutside
}

// Build returns the brush's local faces.
func (b *SceneBrush) Build() (*poly.List, error) {
	if b.Builder == "" {
		if len(b.Polys) == 0 {
			return nil, ErrNoGeometry
		}
		return b.explicitPolys()
	}
	bl, err := b.builder()
	if err != nil {
		return nil, err
	}
	return bl.Build()
}

func (b *SceneBrush) builder() (builders.Builder, error) {
	p := b.Params
	switch strings.ToLower(b.Builder) {
	case "cube":
		return builders.Cube{X: p.X, Y: p.Y, Z: p.Z, Hollow: p.Hollow, WallThickness: p.WallThickness, Tessellated: p.Tessellated}, nil
	case "cylinder":
		return builders.Cylinder{Z: p.Z, OuterRadius: p.OuterRadius, InnerRadius: p.InnerRadius, Sides: p.Sides, AlignToSide: p.AlignToSide, Hollow: p.Hollow}, nil
	case "sheet":
		axis, err := parseSheetAxis(p.Axis)
		if err != nil {
			return nil, err
		}
		return builders.Sheet{X: p.X, Y: p.Y, XSegments: p.XSegments, YSegments: p.YSegments, Axis: axis}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBuilder, b.Builder)
}

func parseSheetAxis(s string) (builders.SheetAxis, error) {
	switch strings.ToLower(s) {
	case "", "horizontal", "z":
		return builders.SheetHorizontal, nil
	case "x":
		return builders.SheetXAxis, nil
	case "y":
		return builders.SheetYAxis, nil
	}
	return 0, fmt.Errorf("%w: sheet axis %q", builders.ErrInvalidParams, s)
}

func (b *SceneBrush) explicitPolys() (*poly.List, error) {
	list := &poly.List{}
	var errs error
	for i, sp := range b.Polys {
		flags, err := ParseFlags(sp.Flags)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("poly %d: %w", i, err))
			continue
		}
		p := poly.New(sp.Vertices...)
		p.Material = sp.Material
		p.Flags = flags
		if sp.LightmapScale > 0 {
			p.LightmapScale = sp.LightmapScale
		}
		if err := p.Finalize(nil, true); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("poly %d: %w", i, err))
			continue
		}
		list.Add(p)
	}
	if errs != nil {
		return nil, errs
	}
	return list, nil
}

// CsgOper returns the brush's operation.
func (b *SceneBrush) CsgOper() (bsp.CsgOper, error) {
	return bsp.ParseCsgOper(b.Oper)
}

// PolyFlags returns the brush's flags.
func (b *SceneBrush) PolyFlags() (poly.Flags, error) {
	return ParseFlags(b.Flags)
}

// Placement returns the brush's transform, identity when unset.
func (b *SceneBrush) Placement() math.Transform {
	if b.Transform == nil {
		return math.IdentityTransform()
	}
	t := *b.Transform
	if t.Scale == (math.Vec3{}) {
		t.Scale = math.Vec3{X: 1, Y: 1, Z: 1}
	}
	return t
}

// Validate checks every brush and reports all problems found.
func (s *Scene) Validate() error {
	var errs error
	check := func(label string, b *SceneBrush) {
		if _, err := b.Build(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", label, err))
		}
		if _, err := b.CsgOper(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", label, err))
		}
		if _, err := b.PolyFlags(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", label, err))
		}
	}
	if s.Builder != nil {
		check("builder", s.Builder)
	}
	for i := range s.Brushes {
		label := fmt.Sprintf("brush %d", i)
		if s.Brushes[i].Name != "" {
			label = fmt.Sprintf("brush %q", s.Brushes[i].Name)
		}
		check(label, &s.Brushes[i])
	}
	return errs
}

// ParseScene parses a YAML scene.
func ParseScene(data []byte) (*Scene, error) {
	var s Scene
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing scene: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadScene reads a YAML scene from disk.
func LoadScene(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scene file: %w", err)
	}
	return ParseScene(data)
}

// SaveScene writes s to path as YAML.
func SaveScene(path string, s *Scene) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling scene: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing scene file: %w", err)
	}
	return nil
}

// ScenePolys converts faces to their scene form.
func ScenePolys(list *poly.List) []ScenePoly {
	out := make([]ScenePoly, 0, list.Len())
	for i := range list.Element {
		p := &list.Element[i]
		sp := ScenePoly{
			Vertices: append([]math.Vec3(nil), p.Vertices...),
			Material: p.Material,
			Flags:    FlagNames(p.Flags),
		}
		if p.LightmapScale != poly.DefaultLightmapScale {
			sp.LightmapScale = p.LightmapScale
		}
		out = append(out, sp)
	}
	return out
}
