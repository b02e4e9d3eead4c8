// Package config handles bsptool configuration loading and management.
package config

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/Faultbox/midgard-csg/pkg/bsp"
	"github.com/Faultbox/midgard-csg/pkg/geommode"
	"github.com/Faultbox/midgard-csg/pkg/lightmass"
	"github.com/Faultbox/midgard-csg/pkg/math"
	"github.com/Faultbox/midgard-csg/pkg/world"
)

// Config holds all editor settings.
type Config struct {
	Build        BuildConfig        `yaml:"build"`
	CSG          CSGConfig          `yaml:"csg"`
	Editor       EditorConfig       `yaml:"editor"`
	Transactions TransactionsConfig `yaml:"transactions"`
	Lightmass    LightmassConfig    `yaml:"lightmass"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// BuildConfig holds the BSP rebuild settings.
type BuildConfig struct {
	Optimization       string `yaml:"optimization"` // lame, good or optimal
	Balance            int    `yaml:"balance"`      // 0..100
	PortalBias         int    `yaml:"portal_bias"`  // 0..100
	RebuildSimplePolys bool   `yaml:"rebuild_simple_polys"`
	MergeCoplanars     bool   `yaml:"merge_coplanars"`
	TJunctions         bool   `yaml:"t_junctions"`
	Partition          bool   `yaml:"partition"`
}

// CSGConfig holds brush composition settings.
type CSGConfig struct {
	SphereReject  bool    `yaml:"sphere_reject"`
	MergeDistance float64 `yaml:"merge_distance"`
}

// EditorConfig holds geometry-mode defaults.
type EditorConfig struct {
	Grid    float64       `yaml:"grid"`
	Lathe   LatheConfig   `yaml:"lathe"`
	Extrude ExtrudeConfig `yaml:"extrude"`
	Pen     PenConfig     `yaml:"pen"`
}

// LatheConfig holds lathe defaults.
type LatheConfig struct {
	TotalSegments int  `yaml:"total_segments"`
	Segments      int  `yaml:"segments"`
	AlignToSide   bool `yaml:"align_to_side"`
}

// ExtrudeConfig holds extrude defaults.
type ExtrudeConfig struct {
	Length   float64 `yaml:"length"`
	Segments int     `yaml:"segments"`
}

// PenConfig holds pen defaults.
type PenConfig struct {
	CreateBrushShape bool    `yaml:"create_brush_shape"`
	AutoExtrude      bool    `yaml:"auto_extrude"`
	ExtrudeDepth     float64 `yaml:"extrude_depth"`
	CreateConvex     bool    `yaml:"create_convex"`
}

// TransactionsConfig holds undo settings.
type TransactionsConfig struct {
	MaxUndo int `yaml:"max_undo"`
}

// LightmassConfig holds lighting export settings.
type LightmassConfig struct {
	MinResolution int     `yaml:"min_resolution"`
	MaxResolution int     `yaml:"max_resolution"`
	TexelScale    float64 `yaml:"texel_scale"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	LogFile    string `yaml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Default returns a Config with the editor's default values.
func Default() *Config {
	lathe := geommode.NewLathe()
	pen := geommode.NewPen()
	lm := lightmass.DefaultOptions()
	return &Config{
		Build: BuildConfig{
			Optimization:       "good",
			Balance:            15,
			PortalBias:         70,
			RebuildSimplePolys: true,
			MergeCoplanars:     true,
			TJunctions:         true,
		},
		CSG: CSGConfig{
			SphereReject:  true,
			MergeDistance: math.ThreshPointsAreSame,
		},
		Editor: EditorConfig{
			Grid:    16,
			Lathe:   LatheConfig{TotalSegments: lathe.TotalSegments, Segments: lathe.Segments},
			Extrude: ExtrudeConfig{Length: 16, Segments: 1},
			Pen: PenConfig{
				AutoExtrude:  pen.AutoExtrude,
				ExtrudeDepth: pen.ExtrudeDepth,
				CreateConvex: pen.CreateConvex,
			},
		},
		Transactions: TransactionsConfig{MaxUndo: 16},
		Lightmass: LightmassConfig{
			MinResolution: lm.MinResolution,
			MaxResolution: lm.MaxResolution,
			TexelScale:    lm.TexelScale,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}
}

// Validate reports every setting outside its bounds.
func (c *Config) Validate() error {
	var errs error
	if _, err := bsp.ParseOptimization(c.Build.Optimization); err != nil {
		errs = multierr.Append(errs, err)
	}
	bounded := func(name string, v, lo, hi int) {
		if v < lo || v > hi {
			errs = multierr.Append(errs, fmt.Errorf("%s %d outside %d..%d", name, v, lo, hi))
		}
	}
	bounded("build.balance", c.Build.Balance, 0, 100)
	bounded("build.portal_bias", c.Build.PortalBias, 0, 100)
	if c.CSG.MergeDistance < 0 {
		errs = multierr.Append(errs, fmt.Errorf("csg.merge_distance %g is negative", c.CSG.MergeDistance))
	}
	if c.Editor.Grid <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("editor.grid %g must be positive", c.Editor.Grid))
	}
	if c.Editor.Lathe.TotalSegments < 3 {
		errs = multierr.Append(errs, fmt.Errorf("editor.lathe.total_segments %d below 3", c.Editor.Lathe.TotalSegments))
	}
	if c.Editor.Lathe.Segments < 1 {
		errs = multierr.Append(errs, fmt.Errorf("editor.lathe.segments %d below 1", c.Editor.Lathe.Segments))
	}
	if c.Editor.Extrude.Length < 1 {
		errs = multierr.Append(errs, fmt.Errorf("editor.extrude.length %g below 1", c.Editor.Extrude.Length))
	}
	if c.Editor.Extrude.Segments < 1 {
		errs = multierr.Append(errs, fmt.Errorf("editor.extrude.segments %d below 1", c.Editor.Extrude.Segments))
	}
	if c.Transactions.MaxUndo < 1 {
		errs = multierr.Append(errs, fmt.Errorf("transactions.max_undo %d below 1", c.Transactions.MaxUndo))
	}
	if c.Lightmass.MinResolution > c.Lightmass.MaxResolution {
		errs = multierr.Append(errs, fmt.Errorf("lightmass.min_resolution %d above max_resolution %d",
			c.Lightmass.MinResolution, c.Lightmass.MaxResolution))
	}
	return errs
}

// WorldOptions converts the build, csg, editor and transaction sections.
func (c *Config) WorldOptions() (world.Options, error) {
	opt, err := bsp.ParseOptimization(c.Build.Optimization)
	if err != nil {
		return world.Options{}, err
	}
	return world.Options{
		Build: bsp.BuildOptions{
			Optimization:       opt,
			Balance:            c.Build.Balance,
			PortalBias:         c.Build.PortalBias,
			RebuildSimplePolys: c.Build.RebuildSimplePolys,
		},
		Partition:      c.Build.Partition,
		MergeCoplanars: c.Build.MergeCoplanars,
		TJunctions:     c.Build.TJunctions,
		SphereReject:   c.CSG.SphereReject,
		MergeDistance:  c.CSG.MergeDistance,
		MaxUndo:        c.Transactions.MaxUndo,
		Grid:           c.Editor.Grid,
	}, nil
}

// Lathe returns a lathe set up with the configured defaults.
func (c *Config) Lathe() *geommode.Lathe {
	l := c.Editor.Lathe
	return &geommode.Lathe{TotalSegments: l.TotalSegments, Segments: l.Segments, AlignToSide: l.AlignToSide}
}

// Extrude returns an extrude set up with the configured defaults.
func (c *Config) Extrude() *geommode.Extrude {
	return &geommode.Extrude{Length: c.Editor.Extrude.Length, Segments: c.Editor.Extrude.Segments}
}

// Pen returns a pen set up with the configured defaults.
func (c *Config) Pen() *geommode.Pen {
	p := c.Editor.Pen
	return &geommode.Pen{
		CreateBrushShape: p.CreateBrushShape,
		AutoExtrude:      p.AutoExtrude,
		ExtrudeDepth:     p.ExtrudeDepth,
		CreateConvex:     p.CreateConvex,
	}
}

// LightmassOptions converts the lightmass section.
func (c *Config) LightmassOptions() lightmass.Options {
	o := lightmass.DefaultOptions()
	o.MinResolution = c.Lightmass.MinResolution
	o.MaxResolution = c.Lightmass.MaxResolution
	o.TexelScale = c.Lightmass.TexelScale
	return o
}
