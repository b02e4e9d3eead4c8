package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Faultbox/midgard-csg/pkg/bsp"
	"github.com/Faultbox/midgard-csg/pkg/builders"
	"github.com/Faultbox/midgard-csg/pkg/math"
	"github.com/Faultbox/midgard-csg/pkg/poly"
)

// cubeLevel returns a level model holding one added cube.
func cubeLevel(t *testing.T) *bsp.Model {
	t.Helper()
	list, err := builders.Cube{X: 128, Y: 128, Z: 128}.Build()
	if err != nil {
		t.Fatalf("cube: %v", err)
	}
	bm := bsp.NewModel()
	bm.Polys = list
	level := bsp.NewModel()
	ctx := bsp.NewContext(nil)
	if got := ctx.BrushCSG(&bsp.Brush{Model: bm, Transform: math.IdentityTransform()}, level, bsp.CsgOptions{Oper: bsp.CsgAdd, BuildBounds: true}); got != 1 {
		t.Fatalf("BrushCSG = %d, want 1", got)
	}
	level.Polys = list.Clone()
	level.Polys.Element[0].Material = "stone"
	level.Polys.Element[0].ItemName = "floor"
	return level
}

func TestModelFileRoundTrip(t *testing.T) {
	m := cubeLevel(t)
	path := filepath.Join(t.TempDir(), "cube.bspm")
	if err := SaveModelFile(path, m); err != nil {
		t.Fatalf("SaveModelFile: %v", err)
	}
	got, err := ParseModelFile(path)
	if err != nil {
		t.Fatalf("ParseModelFile: %v", err)
	}

	if len(got.Nodes) != len(m.Nodes) || len(got.Surfs) != len(m.Surfs) || len(got.Points) != len(m.Points) {
		t.Fatalf("got %d nodes %d surfs %d points, want %d %d %d",
			len(got.Nodes), len(got.Surfs), len(got.Points), len(m.Nodes), len(m.Surfs), len(m.Points))
	}
	if got.RootOutside != m.RootOutside {
		t.Errorf("RootOutside = %v, want %v", got.RootOutside, m.RootOutside)
	}
	if a, b := got.Area(), m.Area(); a != b {
		t.Errorf("area = %v, want %v", a, b)
	}
	for _, p := range []math.Vec3{{}, {X: 100}, {Z: -200}} {
		if bsp.PointOutside(got, p) != bsp.PointOutside(m, p) {
			t.Errorf("PointOutside(%v) differs after reload", p)
		}
	}
	if got.Polys.Len() != m.Polys.Len() {
		t.Fatalf("polys = %d, want %d", got.Polys.Len(), m.Polys.Len())
	}
	p := got.Polys.Element[0]
	if p.Material != "stone" || p.ItemName != "floor" {
		t.Errorf("poly names = %q, %q", p.Material, p.ItemName)
	}
	if !p.Equal(&m.Polys.Element[0]) {
		t.Error("first poly changed after reload")
	}
}

func TestParseModelErrors(t *testing.T) {
	valid := MarshalModel(cubeLevel(t))
	badVersion := append([]byte(nil), valid...)
	badVersion[5] = 9

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrTruncated},
		{"magic", append([]byte("GRAT"), valid[4:]...), ErrInvalidMagic},
		{"version", badVersion, ErrUnsupportedVersion},
		{"truncated", valid[:len(valid)/2], ErrTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseModel(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("ParseModel() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseModelSkipsUnknownTags(t *testing.T) {
	m := bsp.NewModel()
	p := poly.New(math.Vec3{}, math.Vec3{X: 1}, math.Vec3{Y: 1})
	p.Material = "brick"
	m.Polys.Add(p)
	data := MarshalModel(m)

	// Splice an unknown field in front of the end tag of the only poly.
	var extra bytes.Buffer
	extra.WriteByte(200)
	_ = binary.Write(&extra, binary.LittleEndian, uint32(3))
	extra.Write([]byte{1, 2, 3})
	spliced := append(append(append([]byte(nil), data[:len(data)-1]...), extra.Bytes()...), tagEnd)

	got, err := ParseModel(spliced)
	if err != nil {
		t.Fatalf("ParseModel: %v", err)
	}
	if got.Polys.Len() != 1 || got.Polys.Element[0].Material != "brick" {
		t.Errorf("polys = %+v", got.Polys.Element)
	}
	if n := len(got.Polys.Element[0].Vertices); n != 3 {
		t.Errorf("vertices = %d, want 3", n)
	}
}

func TestParseModelBadIndex(t *testing.T) {
	m := cubeLevel(t)
	m.Verts[0].PointIndex = int32(len(m.Points) + 5)
	if _, err := ParseModel(MarshalModel(m)); !errors.Is(err, ErrInvalidCount) {
		t.Errorf("ParseModel() error = %v, want ErrInvalidCount", err)
	}
}
