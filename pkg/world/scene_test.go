package world

import (
	"path/filepath"
	"testing"

	"github.com/Faultbox/midgard-csg/pkg/bsp"
	"github.com/Faultbox/midgard-csg/pkg/formats"
	"github.com/Faultbox/midgard-csg/pkg/math"
	"github.com/Faultbox/midgard-csg/pkg/poly"
)

func TestFromScene(t *testing.T) {
	s, err := formats.ParseScene([]byte(`
builder:
  builder: cube
  params: {x: 32, y: 32, z: 32}
brushes:
  - name: block
    builder: cube
    params: {x: 64, y: 64, z: 64}
  - name: hole
    builder: cube
    params: {x: 64, y: 64, z: 64}
    transform:
      location: {x: 32, y: 0, z: 0}
    oper: subtract
`))
	if err != nil {
		t.Fatal(err)
	}
	w, err := FromScene(s, DefaultOptions(), nil)
	if err != nil {
		t.Fatalf("FromScene: %v", err)
	}
	if got := len(w.Brushes()); got != 2 {
		t.Fatalf("brushes = %d, want 2", got)
	}
	if got := w.Builder().Polys.Area(); !approx(got, 6*32*32) {
		t.Errorf("builder area = %v, want %v", got, 6*32*32)
	}
	// The subtraction leaves the half with x < 0.
	want := 2*64*32 + 2*64*32 + 2*64*64
	if got := w.Level.Area(); !approx(got, float64(want)) {
		t.Errorf("level area = %v, want %v", got, want)
	}
	if !bsp.PointOutside(w.Level, math.Vec3{X: 16}) {
		t.Error("subtracted point is inside")
	}
	if bsp.PointOutside(w.Level, math.Vec3{X: -16}) {
		t.Error("kept point is outside")
	}
}

func TestSceneRoundTrip(t *testing.T) {
	w := New(DefaultOptions(), nil)
	addCube(t, w, 64, math.Vec3{}, bsp.CsgAdd, 0)
	addCube(t, w, 32, math.Vec3{Z: 64}, bsp.CsgAdd, poly.FlagSemisolid)
	want := w.Level.Area()

	path := filepath.Join(t.TempDir(), "level.yaml")
	if err := formats.SaveScene(path, w.Scene()); err != nil {
		t.Fatalf("SaveScene: %v", err)
	}
	s, err := formats.LoadScene(path)
	if err != nil {
		t.Fatalf("LoadScene: %v", err)
	}
	got, err := FromScene(s, DefaultOptions(), nil)
	if err != nil {
		t.Fatalf("FromScene: %v", err)
	}
	if a := got.Level.Area(); !approx(a, want) {
		t.Errorf("area = %v, want %v", a, want)
	}
	h := got.Brushes()[1]
	b, _ := got.Brush(h)
	if b.PolyFlags != poly.FlagSemisolid || b.Transform.Location.Z != 64 {
		t.Errorf("second brush = flags %#x at %v", b.PolyFlags, b.Transform.Location)
	}
	if b.Name != "Brush_1" {
		t.Errorf("name = %q, want Brush_1", b.Name)
	}
}

func TestFromSceneReportsBadBrushes(t *testing.T) {
	s := &formats.Scene{Brushes: []formats.SceneBrush{
		{Builder: "cube", Params: formats.BuilderParams{X: 64, Y: 64, Z: 64}},
		{Builder: "cube"},
	}}
	w, err := FromScene(s, DefaultOptions(), nil)
	if err == nil {
		t.Fatal("FromScene() error = nil, want the bad cube reported")
	}
	if got := len(w.Brushes()); got != 1 {
		t.Errorf("brushes = %d, want 1", got)
	}
	if w.Stats().VisibleNodes != 6 {
		t.Errorf("visible nodes = %d, want 6", w.Stats().VisibleNodes)
	}
}
