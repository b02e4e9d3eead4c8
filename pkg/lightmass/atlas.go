package lightmass

import (
	"errors"
	"fmt"
	"image"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/Faultbox/midgard-csg/pkg/math"
)

// Atlas limits.
const (
	MinAtlasSize = 64
	MaxAtlasSize = 4096
)

// Atlas errors.
var (
	ErrTexelSize  = errors.New("texel data does not match mapping size")
	ErrAtlasFull  = errors.New("mapping does not fit in the atlas")
	ErrNoMapping  = errors.New("no mapping for guid")
	ErrNoTexelSet = errors.New("no texels for mapping")
)

// Texels is the lighting result for one mapping, RGBA, row-major.
type Texels struct {
	Width  int
	Height int
	Data   []byte
}

// Placement is where a mapping sits in the atlas, in pixels.
type Placement struct {
	X, Y          int
	Width, Height int
}

// Atlas holds the lighting of every mapping in one square RGBA texture.
type Atlas struct {
	Data       []byte
	Size       int
	Placements map[uuid.UUID]Placement
}

// BuildAtlas packs the texels of each group into an atlas. Groups are placed
// on shelves, tallest first; texels without a group and groups without
// texels are reported and left out.
func BuildAtlas(groups []*NodeGroup, results map[uuid.UUID]Texels) (*Atlas, error) {
	var errs error
	var placed []*NodeGroup
	for _, g := range groups {
		t, ok := results[g.GUID]
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("%w %s", ErrNoTexelSet, g.GUID))
			continue
		}
		if t.Width != g.SizeX || t.Height != g.SizeY || len(t.Data) < t.Width*t.Height*4 {
			errs = multierr.Append(errs, fmt.Errorf("%w: %s is %dx%d, want %dx%d",
				ErrTexelSize, g.GUID, t.Width, t.Height, g.SizeX, g.SizeY))
			continue
		}
		placed = append(placed, g)
	}
	known := make(map[uuid.UUID]bool, len(groups))
	for _, g := range groups {
		known[g.GUID] = true
	}
	for id := range results {
		if !known[id] {
			errs = multierr.Append(errs, fmt.Errorf("%w %s", ErrNoMapping, id))
		}
	}

	sorted := append([]*NodeGroup(nil), placed...)
	SortForPacking(sorted)

	size := MinAtlasSize
	var layout map[uuid.UUID]Placement
	var missed []*NodeGroup
	for {
		layout, missed = pack(sorted, size)
		if len(missed) == 0 || size >= MaxAtlasSize {
			break
		}
		size *= 2
	}
	for _, g := range missed {
		errs = multierr.Append(errs, fmt.Errorf("%w: %s is %dx%d", ErrAtlasFull, g.GUID, g.SizeX, g.SizeY))
	}

	a := &Atlas{Data: make([]byte, size*size*4), Size: size, Placements: layout}
	// Unlit texels read as full brightness.
	for i := range a.Data {
		a.Data[i] = 255
	}
	for id, p := range layout {
		t := results[id]
		for y := range p.Height {
			src := t.Data[y*t.Width*4 : (y*t.Width+p.Width)*4]
			dst := ((p.Y+y)*size + p.X) * 4
			copy(a.Data[dst:], src)
		}
	}
	return a, errs
}

// pack places groups left to right on shelves as tall as the first group
// on them.
func pack(groups []*NodeGroup, size int) (map[uuid.UUID]Placement, []*NodeGroup) {
	layout := make(map[uuid.UUID]Placement, len(groups))
	var missed []*NodeGroup
	x, y, shelf := 0, 0, 0
	for _, g := range groups {
		if g.SizeX > size || g.SizeY > size {
			missed = append(missed, g)
			continue
		}
		if x+g.SizeX > size {
			x, y, shelf = 0, y+shelf, 0
		}
		if y+g.SizeY > size {
			missed = append(missed, g)
			continue
		}
		layout[g.GUID] = Placement{X: x, Y: y, Width: g.SizeX, Height: g.SizeY}
		x += g.SizeX
		shelf = max(shelf, g.SizeY)
	}
	return layout, missed
}

// AtlasUV maps a lightmap UV of the mapping id into atlas space. The result
// is inset half a pixel on each edge so sampling stays inside the tile.
func (a *Atlas) AtlasUV(id uuid.UUID, uv math.Vec2) (math.Vec2, bool) {
	p, ok := a.Placements[id]
	if !ok || a.Size == 0 {
		return math.Vec2{X: 0.5, Y: 0.5}, false
	}
	size := float64(a.Size)
	half := 0.5 / size
	u0 := float64(p.X)/size + half
	u1 := float64(p.X+p.Width)/size - half
	v0 := float64(p.Y)/size + half
	v1 := float64(p.Y+p.Height)/size - half
	return math.Vec2{X: u0 + uv.X*(u1-u0), Y: v0 + uv.Y*(v1-v0)}, true
}

// Image returns the atlas as an image sharing its pixels.
func (a *Atlas) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    a.Data,
		Stride: a.Size * 4,
		Rect:   image.Rect(0, 0, a.Size, a.Size),
	}
}

// Solid returns texels of one color sized for g.
func Solid(g *NodeGroup, r, gr, b, alpha uint8) Texels {
	t := Texels{Width: g.SizeX, Height: g.SizeY, Data: make([]byte, g.SizeX*g.SizeY*4)}
	for i := 0; i < len(t.Data); i += 4 {
		t.Data[i], t.Data[i+1], t.Data[i+2], t.Data[i+3] = r, gr, b, alpha
	}
	return t
}
