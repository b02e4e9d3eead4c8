// Package formats reads and writes the files the editor persists: built
// BSP models (BSPM) and YAML scene descriptions.
package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	gomath "math"
	"os"

	"github.com/Faultbox/midgard-csg/pkg/arena"
	"github.com/Faultbox/midgard-csg/pkg/bsp"
	"github.com/Faultbox/midgard-csg/pkg/math"
	"github.com/Faultbox/midgard-csg/pkg/poly"
)

// Model format errors.
var (
	ErrInvalidMagic       = errors.New("invalid model magic: expected 'BSPM'")
	ErrUnsupportedVersion = errors.New("unsupported model version")
	ErrTruncated          = errors.New("truncated model data")
	ErrInvalidCount       = errors.New("invalid model array count")
)

// ModelMagic opens every BSPM file.
const ModelMagic = "BSPM"

// Version is a BSPM file version.
type Version struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// CurrentVersion is the version WriteModel produces.
var CurrentVersion = Version{Major: 1, Minor: 0}

// Header flags.
const (
	modelRootOutside uint32 = 1 << iota
	modelLinked
)

// maxCount bounds every array count read from a file.
const maxCount = 1 << 26

// Poly field tags. Each field is written as (tag, length, payload); readers
// skip tags they do not know. A zero tag ends the polygon.
const (
	tagEnd uint8 = iota
	tagBase
	tagNormal
	tagTextureU
	tagTextureV
	tagVertices
	tagFlags
	tagLink
	tagBrushPoly
	tagBrush
	tagMaterial
	tagItemName
	tagSmoothing
	tagLightmapScale
)

// MarshalModel encodes m as a BSPM file.
func MarshalModel(m *bsp.Model) []byte {
	w := &writer{}
	w.buf.WriteString(ModelMagic)
	// Version is stored as [minor, major].
	w.u8(CurrentVersion.Minor)
	w.u8(CurrentVersion.Major)

	var flags uint32
	if m.RootOutside {
		flags |= modelRootOutside
	}
	if m.Linked {
		flags |= modelLinked
	}
	w.u32(flags)
	w.i32(m.NumSharedSides)
	w.box(m.Box)
	w.vec(m.Sphere.Center)
	w.f64(m.Sphere.W)

	w.u32(uint32(len(m.Points)))
	for _, p := range m.Points {
		w.vec(p)
	}
	w.u32(uint32(len(m.Vectors)))
	for _, v := range m.Vectors {
		w.vec(v)
	}
	w.u32(uint32(len(m.Verts)))
	for _, v := range m.Verts {
		w.u32(uint32(v.PointIndex))
		w.u32(uint32(v.SideLink))
	}
	w.u32(uint32(len(m.Nodes)))
	for i := range m.Nodes {
		n := &m.Nodes[i]
		w.plane(n.Plane)
		for _, v := range [...]int{n.VertPool, n.Surf, n.VertexIndex, n.Front, n.Back, n.Coplanar, n.NumVertices} {
			w.i32(v)
		}
		w.u8(uint8(n.Flags))
		w.i32(n.LeafFront)
		w.i32(n.LeafBack)
		w.i32(n.Bound)
	}
	w.u32(uint32(len(m.Surfs)))
	for i := range m.Surfs {
		s := &m.Surfs[i]
		w.str(s.Material)
		w.u32(uint32(s.PolyFlags))
		for _, v := range [...]int{s.Base, s.Normal, s.TextureU, s.TextureV, s.BrushPoly} {
			w.i32(v)
		}
		w.u32(s.Brush.Index)
		w.u32(s.Brush.Generation)
		w.plane(s.Plane)
		w.f64(s.LightmapScale)
	}
	w.u32(uint32(len(m.Bounds)))
	for _, b := range m.Bounds {
		w.box(b)
	}

	var polys []poly.Poly
	if m.Polys != nil {
		polys = m.Polys.Element
	}
	w.u32(uint32(len(polys)))
	for i := range polys {
		writePoly(w, &polys[i])
	}
	return w.buf.Bytes()
}

func writePoly(w *writer, p *poly.Poly) {
	field := func(tag uint8, fill func(f *writer)) {
		f := &writer{}
		fill(f)
		w.u8(tag)
		w.u32(uint32(f.buf.Len()))
		w.buf.Write(f.buf.Bytes())
	}
	field(tagBase, func(f *writer) { f.vec(p.Base) })
	field(tagNormal, func(f *writer) { f.vec(p.Normal) })
	field(tagTextureU, func(f *writer) { f.vec(p.TextureU) })
	field(tagTextureV, func(f *writer) { f.vec(p.TextureV) })
	field(tagVertices, func(f *writer) {
		f.u32(uint32(len(p.Vertices)))
		for _, v := range p.Vertices {
			f.vec(v)
		}
	})
	field(tagFlags, func(f *writer) { f.u32(uint32(p.Flags &^ poly.EditorFlags)) })
	field(tagLink, func(f *writer) { f.i32(p.Link) })
	field(tagBrushPoly, func(f *writer) { f.i32(p.BrushPoly) })
	field(tagBrush, func(f *writer) {
		f.u32(p.Brush.Index)
		f.u32(p.Brush.Generation)
	})
	if p.Material != "" {
		field(tagMaterial, func(f *writer) { f.buf.WriteString(p.Material) })
	}
	if p.ItemName != "" {
		field(tagItemName, func(f *writer) { f.buf.WriteString(p.ItemName) })
	}
	field(tagSmoothing, func(f *writer) { f.u32(p.SmoothingMask) })
	field(tagLightmapScale, func(f *writer) { f.f64(p.LightmapScale) })
	w.u8(tagEnd)
}

// ParseModel parses a BSPM file from raw bytes.
func ParseModel(data []byte) (*bsp.Model, error) {
	if len(data) < 6 {
		return nil, ErrTruncated
	}
	if string(data[0:4]) != ModelMagic {
		return nil, ErrInvalidMagic
	}
	version := Version{Major: data[5], Minor: data[4]}
	if version.Major != CurrentVersion.Major {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVersion, version)
	}

	r := &reader{r: bytes.NewReader(data[6:])}
	m := bsp.NewModel()
	flags := r.u32("header flags")
	m.RootOutside = flags&modelRootOutside != 0
	m.Linked = flags&modelLinked != 0
	m.NumSharedSides = r.i32("shared sides")
	m.Box = r.box("model box")
	m.Sphere.Center = r.vec("sphere center")
	m.Sphere.W = r.f64("sphere radius")

	if n := r.count("points"); n > 0 {
		m.Points = make([]math.Vec3, n)
		for i := range m.Points {
			m.Points[i] = r.vec("point")
		}
	}
	if n := r.count("vectors"); n > 0 {
		m.Vectors = make([]math.Vec3, n)
		for i := range m.Vectors {
			m.Vectors[i] = r.vec("vector")
		}
	}
	if n := r.count("verts"); n > 0 {
		m.Verts = make([]bsp.Vert, n)
		for i := range m.Verts {
			m.Verts[i].PointIndex = int32(r.u32("vert point"))
			m.Verts[i].SideLink = int32(r.u32("vert side link"))
		}
	}
	if n := r.count("nodes"); n > 0 {
		m.Nodes = make([]bsp.Node, n)
		for i := range m.Nodes {
			nd := &m.Nodes[i]
			nd.Plane = r.plane("node plane")
			for _, f := range [...]*int{&nd.VertPool, &nd.Surf, &nd.VertexIndex, &nd.Front, &nd.Back, &nd.Coplanar, &nd.NumVertices} {
				*f = r.i32("node")
			}
			nd.Flags = bsp.NodeFlags(r.u8("node flags"))
			nd.LeafFront = r.i32("node leaf")
			nd.LeafBack = r.i32("node leaf")
			nd.Bound = r.i32("node bound")
		}
	}
	if n := r.count("surfs"); n > 0 {
		m.Surfs = make([]bsp.Surf, n)
		for i := range m.Surfs {
			s := &m.Surfs[i]
			s.Material = r.str("surf material")
			s.PolyFlags = poly.Flags(r.u32("surf flags"))
			for _, f := range [...]*int{&s.Base, &s.Normal, &s.TextureU, &s.TextureV, &s.BrushPoly} {
				*f = r.i32("surf")
			}
			s.Brush = arena.Handle{Index: r.u32("surf brush"), Generation: r.u32("surf brush")}
			s.Plane = r.plane("surf plane")
			s.LightmapScale = r.f64("surf lightmap scale")
		}
	}
	if n := r.count("bounds"); n > 0 {
		m.Bounds = make([]math.Box, n)
		for i := range m.Bounds {
			m.Bounds[i] = r.box("bound")
		}
	}
	n := r.count("polys")
	for i := 0; i < n && r.err == nil; i++ {
		p := readPoly(r)
		if r.err == nil {
			m.Polys.Element = append(m.Polys.Element, p)
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	if err := validateModel(m); err != nil {
		return nil, err
	}
	return m, nil
}

func readPoly(r *reader) poly.Poly {
	var p poly.Poly
	p.Init()
	for r.err == nil {
		tag := r.u8("poly tag")
		if tag == tagEnd || r.err != nil {
			break
		}
		size := int(r.u32("poly field length"))
		payload := r.bytes(size, "poly field")
		if r.err != nil {
			break
		}
		f := &reader{r: bytes.NewReader(payload)}
		switch tag {
		case tagBase:
			p.Base = f.vec("poly base")
		case tagNormal:
			p.Normal = f.vec("poly normal")
		case tagTextureU:
			p.TextureU = f.vec("poly texture u")
		case tagTextureV:
			p.TextureV = f.vec("poly texture v")
		case tagVertices:
			nv := f.count("poly vertices")
			for k := 0; k < nv && f.err == nil; k++ {
				p.Vertices = append(p.Vertices, f.vec("poly vertex"))
			}
		case tagFlags:
			p.Flags = poly.Flags(f.u32("poly flags"))
		case tagLink:
			p.Link = f.i32("poly link")
		case tagBrushPoly:
			p.BrushPoly = f.i32("poly brush poly")
		case tagBrush:
			p.Brush = arena.Handle{Index: f.u32("poly brush"), Generation: f.u32("poly brush")}
		case tagMaterial:
			p.Material = string(payload)
		case tagItemName:
			p.ItemName = string(payload)
		case tagSmoothing:
			p.SmoothingMask = f.u32("poly smoothing")
		case tagLightmapScale:
			p.LightmapScale = f.f64("poly lightmap scale")
		}
		if f.err != nil {
			r.err = f.err
		}
	}
	return p
}

// validateModel checks that every index in m points into its array.
func validateModel(m *bsp.Model) error {
	inRange := func(i, n int, allowNone bool) bool {
		return (allowNone && i == bsp.None) || (i >= 0 && i < n)
	}
	for i, v := range m.Verts {
		if !inRange(int(v.PointIndex), len(m.Points), false) {
			return fmt.Errorf("%w: vert %d point %d", ErrInvalidCount, i, v.PointIndex)
		}
	}
	for i := range m.Nodes {
		n := &m.Nodes[i]
		if n.NumVertices > 0 && n.VertPool+n.NumVertices > len(m.Verts) {
			return fmt.Errorf("%w: node %d vertex pool %d+%d", ErrInvalidCount, i, n.VertPool, n.NumVertices)
		}
		if !inRange(n.Surf, len(m.Surfs), true) {
			return fmt.Errorf("%w: node %d surf %d", ErrInvalidCount, i, n.Surf)
		}
		for _, c := range [...]int{n.Front, n.Back, n.Coplanar} {
			if !inRange(c, len(m.Nodes), true) {
				return fmt.Errorf("%w: node %d child %d", ErrInvalidCount, i, c)
			}
		}
	}
	for i := range m.Surfs {
		s := &m.Surfs[i]
		if !inRange(s.Base, len(m.Points), false) {
			return fmt.Errorf("%w: surf %d base %d", ErrInvalidCount, i, s.Base)
		}
		for _, v := range [...]int{s.Normal, s.TextureU, s.TextureV} {
			if !inRange(v, len(m.Vectors), false) {
				return fmt.Errorf("%w: surf %d vector %d", ErrInvalidCount, i, v)
			}
		}
	}
	return nil
}

// ParseModelFile parses a BSPM file from disk.
func ParseModelFile(path string) (*bsp.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model file: %w", err)
	}
	return ParseModel(data)
}

// SaveModelFile writes m to path as a BSPM file.
func SaveModelFile(path string, m *bsp.Model) error {
	if err := os.WriteFile(path, MarshalModel(m), 0o644); err != nil {
		return fmt.Errorf("writing model file: %w", err)
	}
	return nil
}

type writer struct {
	buf bytes.Buffer
}

func (w *writer) u8(v uint8) { w.buf.WriteByte(v) }

func (w *writer) u32(v uint32) {
	w.buf.Write(binary.LittleEndian.AppendUint32(nil, v))
}

func (w *writer) i32(v int) { w.u32(uint32(int32(v))) }

func (w *writer) f64(v float64) {
	w.buf.Write(binary.LittleEndian.AppendUint64(nil, gomath.Float64bits(v)))
}

func (w *writer) vec(v math.Vec3) {
	w.f64(v.X)
	w.f64(v.Y)
	w.f64(v.Z)
}

func (w *writer) plane(p math.Plane) {
	w.f64(p.X)
	w.f64(p.Y)
	w.f64(p.Z)
	w.f64(p.W)
}

func (w *writer) box(b math.Box) {
	w.vec(b.Min)
	w.vec(b.Max)
	if b.Valid {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

func (w *writer) str(s string) {
	w.u32(uint32(len(s)))
	w.buf.WriteString(s)
}

// reader keeps the first error; every read after it returns zero.
type reader struct {
	r   *bytes.Reader
	err error
}

func (r *reader) read(v any, what string) {
	if r.err != nil {
		return
	}
	if err := binary.Read(r.r, binary.LittleEndian, v); err != nil {
		r.err = fmt.Errorf("%w: reading %s", ErrTruncated, what)
	}
}

func (r *reader) u8(what string) uint8 {
	var v uint8
	r.read(&v, what)
	return v
}

func (r *reader) u32(what string) uint32 {
	var v uint32
	r.read(&v, what)
	return v
}

func (r *reader) i32(what string) int {
	var v int32
	r.read(&v, what)
	return int(v)
}

func (r *reader) f64(what string) float64 {
	var v float64
	r.read(&v, what)
	return v
}

func (r *reader) vec(what string) math.Vec3 {
	return math.Vec3{X: r.f64(what), Y: r.f64(what), Z: r.f64(what)}
}

func (r *reader) plane(what string) math.Plane {
	return math.Plane{X: r.f64(what), Y: r.f64(what), Z: r.f64(what), W: r.f64(what)}
}

func (r *reader) box(what string) math.Box {
	return math.Box{Min: r.vec(what), Max: r.vec(what), Valid: r.u8(what) != 0}
}

func (r *reader) count(what string) int {
	n := r.u32(what + " count")
	if r.err == nil && n > maxCount {
		r.err = fmt.Errorf("%w: %d %s", ErrInvalidCount, n, what)
	}
	if r.err != nil {
		return 0
	}
	return int(n)
}

func (r *reader) bytes(n int, what string) []byte {
	if r.err != nil {
		return nil
	}
	if n > r.r.Len() {
		r.err = fmt.Errorf("%w: reading %s", ErrTruncated, what)
		return nil
	}
	b := make([]byte, n)
	_, _ = r.r.Read(b)
	return b
}

func (r *reader) str(what string) string {
	n := int(r.u32(what + " length"))
	return string(r.bytes(n, what))
}
