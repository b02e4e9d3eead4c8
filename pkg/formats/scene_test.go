package formats

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Faultbox/midgard-csg/pkg/bsp"
	"github.com/Faultbox/midgard-csg/pkg/builders"
	"github.com/Faultbox/midgard-csg/pkg/math"
	"github.com/Faultbox/midgard-csg/pkg/poly"
)

const testScene = `
rootOutside: true
builder:
  builder: cube
  params: {x: 64, y: 64, z: 64}
brushes:
  - name: room
    builder: cube
    params: {x: 512, y: 512, z: 256}
    oper: subtract
  - name: pillar
    builder: cylinder
    params: {z: 256, outerRadius: 32, sides: 8}
    transform:
      location: {x: 100, y: 0, z: 0}
    flags: [semisolid]
  - name: floor tile
    oper: add
    polys:
      - vertices:
          - {x: 0, y: 0, z: 0}
          - {x: 16, y: 0, z: 0}
          - {x: 16, y: 16, z: 0}
        material: tile
        flags: [two_sided]
`

func TestParseScene(t *testing.T) {
	s, err := ParseScene([]byte(testScene))
	if err != nil {
		t.Fatalf("ParseScene: %v", err)
	}
	if !s.Outside() {
		t.Error("Outside() = false, want true")
	}
	if len(s.Brushes) != 3 {
		t.Fatalf("brushes = %d, want 3", len(s.Brushes))
	}

	room := &s.Brushes[0]
	if op, _ := room.CsgOper(); op != bsp.CsgSubtract {
		t.Errorf("room oper = %s, want subtract", op)
	}
	if tr := room.Placement(); tr != math.IdentityTransform() {
		t.Errorf("room transform = %+v, want identity", tr)
	}

	pillar := &s.Brushes[1]
	if f, _ := pillar.PolyFlags(); f != poly.FlagSemisolid {
		t.Errorf("pillar flags = %#x, want semisolid", f)
	}
	if tr := pillar.Placement(); tr.Location.X != 100 || tr.Scale != (math.Vec3{X: 1, Y: 1, Z: 1}) {
		t.Errorf("pillar transform = %+v", tr)
	}
	polys, err := pillar.Build()
	if err != nil {
		t.Fatal(err)
	}
	// Eight sides and two caps.
	if polys.Len() < 10 {
		t.Errorf("pillar faces = %d, want at least 10", polys.Len())
	}

	tile, err := s.Brushes[2].Build()
	if err != nil {
		t.Fatal(err)
	}
	if tile.Len() != 1 || tile.Element[0].Material != "tile" || !tile.Element[0].Flags.Has(poly.FlagTwoSided) {
		t.Errorf("tile = %+v", tile.Element)
	}
	if n := tile.Element[0].Normal; n.Z < 0.99 {
		t.Errorf("tile normal = %v, want +Z", n)
	}
}

func TestParseSceneErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"builder", "brushes: [{builder: pyramid}]", ErrUnknownBuilder},
		{"flag", "brushes: [{builder: cube, params: {x: 1, y: 1, z: 1}, flags: [glowing]}]", ErrUnknownFlag},
		{"empty brush", "brushes: [{name: nothing}]", ErrNoGeometry},
		{"params", "brushes: [{builder: cube}]", builders.ErrInvalidParams},
		{"sheet axis", "brushes: [{builder: sheet, params: {x: 1, y: 1, axis: w}}]", builders.ErrInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScene([]byte(tt.yaml))
			if !errors.Is(err, tt.want) {
				t.Errorf("ParseScene() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSceneValidateCollectsAll(t *testing.T) {
	s := &Scene{Brushes: []SceneBrush{
		{Builder: "pyramid"},
		{Builder: "cube", Params: BuilderParams{X: 1, Y: 1, Z: 1}, Oper: "merge"},
	}}
	err := s.Validate()
	if !errors.Is(err, ErrUnknownBuilder) {
		t.Errorf("Validate() error = %v, want ErrUnknownBuilder", err)
	}
	if err == nil || !strings.Contains(err.Error(), "merge") {
		t.Errorf("Validate() error = %v, want the bad operation reported too", err)
	}
}

func TestSaveSceneRoundTrip(t *testing.T) {
	outside := false
	list, err := builders.Sheet{X: 32, Y: 32, XSegments: 1, YSegments: 1}.Build()
	if err != nil {
		t.Fatal(err)
	}
	s := &Scene{
		RootOutside: &outside,
		Brushes: []SceneBrush{{
			Name:  "sheet",
			Polys: ScenePolys(list),
			Oper:  bsp.CsgAdd.String(),
			Flags: FlagNames(poly.FlagSemisolid | poly.FlagPortal),
		}},
	}
	path := filepath.Join(t.TempDir(), "scene.yaml")
	if err := SaveScene(path, s); err != nil {
		t.Fatalf("SaveScene: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal(err)
	}
	got, err := LoadScene(path)
	if err != nil {
		t.Fatalf("LoadScene: %v", err)
	}
	if got.Outside() {
		t.Error("Outside() = true, want false")
	}
	f, err := got.Brushes[0].PolyFlags()
	if err != nil || f != poly.FlagSemisolid|poly.FlagPortal {
		t.Errorf("flags = %#x, %v", f, err)
	}
	polys, err := got.Brushes[0].Build()
	if err != nil {
		t.Fatal(err)
	}
	if !approx(polys.Area(), list.Area()) {
		t.Errorf("area = %v, want %v", polys.Area(), list.Area())
	}
}

func approx(a, b float64) bool {
	d := a - b
	return d < 1e-6 && d > -1e-6
}
