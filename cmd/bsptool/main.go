// bsptool builds, inspects and exports BSP levels composed from brushes.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/image/bmp"

	"github.com/Faultbox/midgard-csg/internal/config"
	"github.com/Faultbox/midgard-csg/internal/logger"
	"github.com/Faultbox/midgard-csg/internal/script"
	"github.com/Faultbox/midgard-csg/pkg/bsp"
	"github.com/Faultbox/midgard-csg/pkg/export"
	"github.com/Faultbox/midgard-csg/pkg/formats"
	"github.com/Faultbox/midgard-csg/pkg/lightmass"
	"github.com/Faultbox/midgard-csg/pkg/world"
)

func main() {
	config.ParseFlags()
	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	args = args[1:]
	if command == "help" || command == "-h" || command == "--help" {
		printUsage()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := initLogger(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Sugar.Debugf("Config: %+v", cfg)

	switch command {
	case "build":
		err = cmdBuild(cfg, args)
	case "info":
		err = cmdInfo(cfg, args)
	case "stl":
		err = cmdSTL(cfg, args)
	case "lightmass", "lm":
		err = cmdLightmass(cfg, args)
	case "script", "run":
		err = cmdScript(cfg, args)
	case "config":
		err = cmdConfig(cfg, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		logger.Sync()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`bsptool - brush level compiler

Usage:
  bsptool [global options] <command> [options]

Commands:
  build <scene.yaml> [output.bspm]       Compose a scene and save the model
  info <level>                           Show model statistics
  stl <level> <output.stl>               Export visible faces as STL
  lightmass <level> [output.bmp]         Group lightmap nodes and pack an atlas
  script <file.lisp> [output.bspm]       Run an editing script
  config                                 Write the current settings to the config dir

A level is a .bspm model or a .yaml scene, which is built first.

Global options:
  -config <path>   Config file (default ./bsptool.yaml)
  -debug           Debug logging
  -opt <level>     BSP optimization: lame, good or optimal
  -balance <n>     BSP balance 0..100
  -partition       Rebuild the tree from merged polygons

Examples:
  bsptool build castle.yaml castle.bspm
  bsptool -opt optimal info castle.yaml
  bsptool stl castle.bspm castle.stl
  bsptool script -scene base.yaml carve.lisp carved.bspm`)
}

func initLogger(cfg *config.Config) error {
	l := cfg.Logging
	if l.LogFile == "" {
		return logger.Init(l.Level, "")
	}
	return logger.InitWithFileConfig(l.Level, logger.FileConfig{
		Path:       l.LogFile,
		MaxSizeMB:  l.MaxSizeMB,
		MaxBackups: l.MaxBackups,
		MaxAgeDays: l.MaxAgeDays,
		Compress:   l.Compress,
	}, true)
}

// buildScene composes a scene file into a world.
func buildScene(cfg *config.Config, path string) (*world.World, error) {
	opts, err := cfg.WorldOptions()
	if err != nil {
		return nil, err
	}
	s, err := formats.LoadScene(path)
	if err != nil {
		return nil, err
	}
	return world.FromScene(s, opts, logger.Named("world"))
}

// loadLevel reads a model file, or builds a scene file.
func loadLevel(cfg *config.Config, path string) (*bsp.Model, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		w, err := buildScene(cfg, path)
		if err != nil {
			return nil, err
		}
		return w.Level, nil
	}
	return formats.ParseModelFile(path)
}

func outputPath(in, ext string) string {
	return strings.TrimSuffix(in, filepath.Ext(in)) + ext
}

func cmdBuild(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	strict := fs.Bool("strict", false, "Fail when any brush is rejected")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: bsptool build <scene.yaml> [output.bspm]")
	}
	in := fs.Arg(0)
	out := outputPath(in, ".bspm")
	if fs.NArg() > 1 {
		out = fs.Arg(1)
	}

	w, err := buildScene(cfg, in)
	if err != nil {
		if w == nil || *strict {
			return err
		}
		logger.Warn("some brushes were skipped", zap.Error(err))
	}
	if err := formats.SaveModelFile(out, w.Level); err != nil {
		return err
	}

	st := w.Stats()
	fmt.Printf("Built:   %s\n", out)
	fmt.Printf("Brushes: %d\n", st.Brushes)
	fmt.Printf("Nodes:   %d (%d visible)\n", st.Nodes, st.VisibleNodes)
	fmt.Printf("Surfs:   %d\n", st.Surfs)
	return nil
}

func cmdInfo(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: bsptool info <level>")
	}
	m, err := loadLevel(cfg, args[0])
	if err != nil {
		return err
	}

	visible := m.VisibleNodes()
	fmt.Printf("Level:    %s\n", args[0])
	fmt.Printf("Nodes:    %d (%d visible)\n", len(m.Nodes), len(visible))
	fmt.Printf("Surfs:    %d\n", len(m.Surfs))
	fmt.Printf("Points:   %d\n", len(m.Points))
	fmt.Printf("Vectors:  %d\n", len(m.Vectors))
	fmt.Printf("Verts:    %d\n", len(m.Verts))
	fmt.Printf("Area:     %.2f\n", m.Area())
	if len(m.Nodes) > 0 {
		fmt.Printf("Box:      %v - %v\n", m.Box.Min, m.Box.Max)
		fmt.Printf("Radius:   %.2f\n", m.Sphere.W)
	}
	fmt.Printf("Outside:  %v\n", m.RootOutside)

	// Faces by material
	byMaterial := make(map[string]int)
	for _, n := range visible {
		mat := m.Surfs[m.Nodes[n].Surf].Material
		if mat == "" {
			mat = "(none)"
		}
		byMaterial[mat]++
	}
	type matStat struct {
		name  string
		count int
	}
	var stats []matStat
	for name, count := range byMaterial {
		stats = append(stats, matStat{name, count})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].count != stats[j].count {
			return stats[i].count > stats[j].count
		}
		return stats[i].name < stats[j].name
	})
	if len(stats) > 0 {
		fmt.Println()
		fmt.Println("Faces by material:")
		for _, s := range stats {
			fmt.Printf("  %-20s %d\n", s.name, s.count)
		}
	}
	return nil
}

func cmdSTL(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("stl", flag.ExitOnError)
	invisible := fs.Bool("invisible", false, "Include invisible and portal faces")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: bsptool stl <level> [output.stl]")
	}
	m, err := loadLevel(cfg, fs.Arg(0))
	if err != nil {
		return err
	}
	out := outputPath(fs.Arg(0), ".stl")
	if fs.NArg() > 1 {
		out = fs.Arg(1)
	}
	n, err := export.SaveSTL(out, m, export.Options{Invisible: *invisible}, logger.Named("export"))
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %d triangles to %s\n", n, out)
	return nil
}

func cmdLightmass(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("lightmass", flag.ExitOnError)
	verbose := fs.Bool("v", false, "List every node group")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: bsptool lightmass <level> [output.bmp]")
	}
	m, err := loadLevel(cfg, fs.Arg(0))
	if err != nil {
		return err
	}
	groups := lightmass.Export(m, cfg.LightmassOptions(), logger.Named("lightmass"))
	if len(groups) == 0 {
		return fmt.Errorf("%s has no lit surfaces", fs.Arg(0))
	}

	// Each group gets a flat color so the packing can be inspected.
	results := make(map[uuid.UUID]lightmass.Texels, len(groups))
	for _, g := range groups {
		r, gr, b := groupColor(g.GUID)
		results[g.GUID] = lightmass.Solid(g, r, gr, b, 255)
	}
	atlas, err := lightmass.BuildAtlas(groups, results)
	if err != nil {
		return err
	}

	out := outputPath(fs.Arg(0), ".bmp")
	if fs.NArg() > 1 {
		out = fs.Arg(1)
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := bmp.Encode(f, atlas.Image()); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	triangles := 0
	for _, g := range groups {
		triangles += g.Triangles()
	}
	fmt.Printf("Groups:    %d\n", len(groups))
	fmt.Printf("Triangles: %d\n", triangles)
	fmt.Printf("Atlas:     %dx%d -> %s\n", atlas.Size, atlas.Size, out)
	if *verbose {
		fmt.Println()
		for _, g := range groups {
			p := atlas.Placements[g.GUID]
			fmt.Printf("  %s  nodes=%-4d %4dx%-4d at %d,%d\n", g.GUID, len(g.Nodes), g.SizeX, g.SizeY, p.X, p.Y)
		}
	}
	return nil
}

// groupColor derives a stable, fairly bright color from a group GUID.
func groupColor(id uuid.UUID) (r, g, b uint8) {
	return 64 + id[0]%192, 64 + id[1]%192, 64 + id[2]%192
}

func cmdScript(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("script", flag.ExitOnError)
	scenePath := fs.String("scene", "", "Start from this scene instead of an empty level")
	saveScene := fs.String("save-scene", "", "Write the resulting brushes as a scene")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: bsptool script [-scene base.yaml] <file.lisp> [output.bspm]")
	}
	src, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	var w *world.World
	if *scenePath != "" {
		if w, err = buildScene(cfg, *scenePath); err != nil {
			return err
		}
	} else {
		opts, err := cfg.WorldOptions()
		if err != nil {
			return err
		}
		w = world.New(opts, logger.Named("world"))
	}

	eng := script.New(w, *cfg.Extrude(), logger.Named("script"))
	out, evalErrs, err := eng.Run(string(src))
	if err != nil {
		return err
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			fmt.Fprintf(os.Stderr, "%s: %v\n", fs.Arg(0), e)
		}
		return fmt.Errorf("%s failed", fs.Arg(0))
	}
	if out != "" {
		fmt.Println(out)
	}

	if fs.NArg() > 1 {
		if err := formats.SaveModelFile(fs.Arg(1), w.Level); err != nil {
			return err
		}
		fmt.Printf("Built %s\n", fs.Arg(1))
	}
	if *saveScene != "" {
		if err := formats.SaveScene(*saveScene, w.Scene()); err != nil {
			return err
		}
		fmt.Printf("Saved %s\n", *saveScene)
	}
	return nil
}

func cmdConfig(cfg *config.Config, args []string) error {
	if len(args) > 0 {
		if err := cfg.SaveTo(args[0]); err != nil {
			return err
		}
		fmt.Printf("Saved %s\n", args[0])
		return nil
	}
	if err := cfg.Save(); err != nil {
		return err
	}
	fmt.Printf("Saved %s\n", filepath.Join(config.ConfigDir(), config.FileName))
	return nil
}
