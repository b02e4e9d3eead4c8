// Package export writes the built level model to mesh formats.
package export

import (
	"errors"
	"fmt"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-csg/pkg/bsp"
	"github.com/Faultbox/midgard-csg/pkg/math"
	"github.com/Faultbox/midgard-csg/pkg/poly"
)

// ErrEmpty reports a model with nothing to export.
var ErrEmpty = errors.New("model has no visible surfaces")

// Options selects what is exported.
type Options struct {
	// Invisible includes surfaces flagged invisible or portal.
	Invisible bool
}

// Triangles fans every visible node of m into triangles.
func Triangles(m *bsp.Model, opts Options) []*sdf.Triangle3 {
	var out []*sdf.Triangle3
	for _, i := range m.VisibleNodes() {
		s := &m.Surfs[m.Nodes[i].Surf]
		if !opts.Invisible && s.PolyFlags.Any(poly.FlagInvisible|poly.FlagPortal) {
			continue
		}
		pts := m.NodeVertices(i)
		for k := 2; k < len(pts); k++ {
			out = append(out, &sdf.Triangle3{vec(pts[0]), vec(pts[k-1]), vec(pts[k])})
		}
	}
	return out
}

func vec(p math.Vec3) v3.Vec {
	return v3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

// SaveSTL writes m's visible surfaces to path and returns the triangle
// count.
func SaveSTL(path string, m *bsp.Model, opts Options, log *zap.Logger) (int, error) {
	if log == nil {
		log = zap.NewNop()
	}
	tris := Triangles(m, opts)
	if len(tris) == 0 {
		return 0, ErrEmpty
	}
	if err := render.SaveSTL(path, tris); err != nil {
		return 0, fmt.Errorf("writing stl: %w", err)
	}
	log.Info("export: wrote stl", zap.String("path", path), zap.Int("triangles", len(tris)))
	return len(tris), nil
}
