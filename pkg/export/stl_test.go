package export

import (
	"errors"
	gomath "math"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/midgard-csg/pkg/bsp"
	"github.com/Faultbox/midgard-csg/pkg/math"
	"github.com/Faultbox/midgard-csg/pkg/poly"
	"github.com/Faultbox/midgard-csg/pkg/world"
)

func cubeWorld(t *testing.T, flags poly.Flags) *world.World {
	t.Helper()
	w := world.New(world.DefaultOptions(), nil)
	b := w.Builder()
	if _, err := w.AddBrush(world.BrushSpec{Polys: b.Polys.Clone(), Transform: math.IdentityTransform(), PolyFlags: flags}); err != nil {
		t.Fatal(err)
	}
	return w
}

func TestTriangles(t *testing.T) {
	w := cubeWorld(t, 0)
	tris := Triangles(w.Level, Options{})
	if len(tris) != 12 {
		t.Fatalf("triangles = %d, want 12", len(tris))
	}
	area := 0.0
	for _, tri := range tris {
		a := tri[1].Sub(tri[0])
		b := tri[2].Sub(tri[0])
		area += a.Cross(b).Length() / 2
	}
	want := 6.0 * world.DefaultBuilderSize * world.DefaultBuilderSize
	if gomath.Abs(area-want) > 1e-3 {
		t.Errorf("area = %v, want %v", area, want)
	}
	// Faces wind outward: each normal points away from the center.
	for _, tri := range tris {
		c := tri[0].Add(tri[1]).Add(tri[2]).MulScalar(1.0 / 3)
		if tri.Normal().Dot(c) <= 0 {
			t.Errorf("triangle %v faces inward", *tri)
		}
	}
}

func TestTrianglesSkipInvisible(t *testing.T) {
	w := cubeWorld(t, poly.FlagInvisible)
	if got := len(Triangles(w.Level, Options{})); got != 0 {
		t.Errorf("triangles = %d, want 0", got)
	}
	if got := len(Triangles(w.Level, Options{Invisible: true})); got != 12 {
		t.Errorf("triangles with invisible = %d, want 12", got)
	}
}

func TestSaveSTL(t *testing.T) {
	w := cubeWorld(t, 0)
	path := filepath.Join(t.TempDir(), "level.stl")
	n, err := SaveSTL(path, w.Level, Options{}, nil)
	if err != nil {
		t.Fatalf("SaveSTL: %v", err)
	}
	if n != 12 {
		t.Errorf("triangles = %d, want 12", n)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	// Binary STL: 80-byte header, count, 50 bytes per triangle.
	if info.Size() < int64(84+50*n) {
		t.Errorf("file size = %d, want at least %d", info.Size(), 84+50*n)
	}

	if _, err := SaveSTL(path, bsp.NewModel(), Options{}, nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("SaveSTL(empty) error = %v, want ErrEmpty", err)
	}
}
