// Package poly implements the editable N-gon used throughout the geometry
// core: brush faces, BSP node polygons and every transient fragment created
// while clipping.
package poly

import (
	"errors"

	"github.com/Faultbox/midgard-csg/pkg/arena"
	"github.com/Faultbox/midgard-csg/pkg/math"
)

// Vertex limits.
const (
	// InlineVertices is the capacity reserved for a fresh polygon.
	InlineVertices = 16
	// VertexThreshold is the vertex count at which a polygon is halved
	// before it is filtered through a tree.
	VertexThreshold = InlineVertices - 2
	// MaxVertices is the hard limit on a polygon's vertex count.
	MaxVertices = 255
)

// DefaultLightmapScale is the texel density assigned by Init.
const DefaultLightmapScale = 32

// HalfWorldMax bounds the extent of an "infinite" polygon.
const HalfWorldMax = 262144

// Polygon errors.
var (
	ErrZeroArea       = errors.New("zero-area polygon")
	ErrTooFewVertices = errors.New("polygon has fewer than 3 vertices")
	ErrTriangulate    = errors.New("polygon cannot be triangulated")
)

// Flags is the polygon flag bitset.
type Flags uint32

// Surface flags.
const (
	FlagInvisible Flags = 1 << iota
	FlagMasked
	FlagTranslucent
	FlagNotSolid
	FlagSemisolid
	FlagTwoSided
	FlagPortal
	FlagSelected
	FlagNoAddToBSP
	FlagHint

	// Editor-only flags, never persisted on surfaces.
	FlagEdProcessed Flags = 1 << 29
	FlagEdCut       Flags = 1 << 30
	FlagMemorized   Flags = 1 << 31
)

// EditorFlags is the set of transient flags cleared before surfaces are
// created.
const EditorFlags = FlagEdProcessed | FlagEdCut | FlagMemorized

// Has reports whether all bits of mask are set.
func (f Flags) Has(mask Flags) bool {
	return f&mask == mask
}

// Any reports whether any bit of mask is set.
func (f Flags) Any(mask Flags) bool {
	return f&mask != 0
}

// Poly is an arbitrary planar polygon.
type Poly struct {
	Base     math.Vec3
	Normal   math.Vec3
	TextureU math.Vec3
	TextureV math.Vec3
	Vertices []math.Vec3

	Flags         Flags
	Link          int // groups polygons sharing one surface; -1 for none
	BrushPoly     int // index of the source polygon in its brush; -1 for none
	Brush         arena.Handle
	Material      string
	ItemName      string
	SmoothingMask uint32
	LightmapScale float64
}

// New returns an initialized polygon with the given vertices. The normal is
// not computed.
func New(vertices ...math.Vec3) Poly {
	var p Poly
	p.Init()
	p.Vertices = append(p.Vertices, vertices...)
	if len(vertices) > 0 {
		p.Base = vertices[0]
	}
	return p
}

// Init resets the polygon to its canonical empty state, keeping the vertex
// storage for reuse.
func (p *Poly) Init() {
	verts := p.Vertices[:0]
	if verts == nil {
		verts = make([]math.Vec3, 0, InlineVertices)
	}
	*p = Poly{
		Vertices:      verts,
		Link:          -1,
		BrushPoly:     -1,
		LightmapScale: DefaultLightmapScale,
	}
}

// NumVertices returns the vertex count.
func (p *Poly) NumVertices() int {
	return len(p.Vertices)
}

// Clone returns a deep copy.
func (p *Poly) Clone() Poly {
	c := *p
	c.Vertices = make([]math.Vec3, len(p.Vertices), max(len(p.Vertices), InlineVertices))
	copy(c.Vertices, p.Vertices)
	return c
}

// WithVertices returns a copy carrying p's attributes and the given
// vertices.
func (p *Poly) WithVertices(vertices []math.Vec3) Poly {
	c := *p
	c.Vertices = make([]math.Vec3, len(vertices), max(len(vertices), InlineVertices))
	copy(c.Vertices, vertices)
	return c
}

// Plane returns the polygon's plane.
func (p *Poly) Plane() math.Plane {
	if len(p.Vertices) > 0 {
		return math.NewPlane(p.Vertices[0], p.Normal)
	}
	return math.NewPlane(p.Base, p.Normal)
}

// Reverse flips the winding and the normal.
func (p *Poly) Reverse() {
	p.Normal = p.Normal.Neg()
	for i, j := 0, len(p.Vertices)-1; i < j; i, j = i+1, j-1 {
		p.Vertices[i], p.Vertices[j] = p.Vertices[j], p.Vertices[i]
	}
}

// Area returns the polygon area.
func (p *Poly) Area() float64 {
	if len(p.Vertices) < 3 {
		return 0
	}
	var sum math.Vec3
	v0 := p.Vertices[0]
	for i := 2; i < len(p.Vertices); i++ {
		sum = sum.Add(p.Vertices[i-1].Sub(v0).Cross(p.Vertices[i].Sub(v0)))
	}
	return sum.Length() / 2
}

// MidPoint returns the average of the vertices.
func (p *Poly) MidPoint() math.Vec3 {
	var sum math.Vec3
	if len(p.Vertices) == 0 {
		return sum
	}
	for _, v := range p.Vertices {
		sum = sum.Add(v)
	}
	return sum.Scale(1 / float64(len(p.Vertices)))
}

// Box returns the bounding box of the vertices.
func (p *Poly) Box() math.Box {
	return math.BoxFromPoints(p.Vertices)
}

// VertexIndex returns the index of the first vertex equal to v, or -1.
func (p *Poly) VertexIndex(v math.Vec3) int {
	for i, w := range p.Vertices {
		if math.PointsAreSame(v, w) {
			return i
		}
	}
	return -1
}

// InsertVertex inserts v before index i.
func (p *Poly) InsertVertex(i int, v math.Vec3) {
	p.Vertices = append(p.Vertices, math.Vec3{})
	copy(p.Vertices[i+1:], p.Vertices[i:])
	p.Vertices[i] = v
}

// RemoveVertex removes every vertex equal to v and reports how many went.
func (p *Poly) RemoveVertex(v math.Vec3) int {
	kept := p.Vertices[:0]
	removed := 0
	for _, w := range p.Vertices {
		if math.PointsAreSame(v, w) {
			removed++
			continue
		}
		kept = append(kept, w)
	}
	p.Vertices = kept
	return removed
}

// Equal reports whether both polygons have the same vertex ring.
func (p *Poly) Equal(other *Poly) bool {
	if len(p.Vertices) != len(other.Vertices) {
		return false
	}
	for i := range p.Vertices {
		if p.Vertices[i] != other.Vertices[i] {
			return false
		}
	}
	return true
}

// IsCoplanar reports whether every vertex lies on the polygon's plane.
func (p *Poly) IsCoplanar() bool {
	if len(p.Vertices) < 3 {
		return true
	}
	for _, v := range p.Vertices {
		if !p.OnPlane(v) {
			return false
		}
	}
	return true
}

// IsConvex reports whether every corner turns the same way around the
// normal.
func (p *Poly) IsConvex() bool {
	n := len(p.Vertices)
	if n < 3 {
		return false
	}
	for i := 0; i < n; i++ {
		a := p.Vertices[i]
		b := p.Vertices[(i+1)%n]
		c := p.Vertices[(i+2)%n]
		side := b.Sub(a).Cross(p.Normal).Normalize()
		if side.IsNearlyZero(math.SmallNumber) {
			continue
		}
		if c.Sub(a).Dot(side) > math.ThreshPointOnPlane {
			return false
		}
	}
	return true
}

// Transform maps the polygon from local to world space. Mirroring
// transforms reverse the winding so the polygon keeps facing outward.
func (p *Poly) Transform(t math.Transform) {
	for i, v := range p.Vertices {
		p.Vertices[i] = t.TransformPosition(v)
	}
	p.Base = t.TransformPosition(p.Base)
	p.TextureU = t.TransformTextureVector(p.TextureU)
	p.TextureV = t.TransformTextureVector(p.TextureV)
	if t.IsMirrored() {
		p.Reverse()
	}
	if err := p.CalcNormal(true); err != nil {
		p.Normal = t.TransformVector(p.Normal).Normalize()
	}
}

// InverseTransform maps the polygon from world to local space.
func (p *Poly) InverseTransform(t math.Transform) {
	for i, v := range p.Vertices {
		p.Vertices[i] = t.InverseTransformPosition(v)
	}
	p.Base = t.InverseTransformPosition(p.Base)
	p.TextureU = t.InverseTransformTextureVector(p.TextureU)
	p.TextureV = t.InverseTransformTextureVector(p.TextureV)
	if t.IsMirrored() {
		p.Reverse()
	}
	if err := p.CalcNormal(true); err != nil {
		p.Normal = math.FromMgl(t.InverseMatrix().Mul4x1(p.Normal.Mgl().Vec4(0)).Vec3()).Normalize()
	}
}

// SplitInHalf moves the second half of the vertex ring into other. Both
// halves share the dividing diagonal and are marked as cut.
func (p *Poly) SplitInHalf(other *Poly) {
	n := len(p.Vertices)
	m := n / 2
	*other = p.WithVertices(nil)
	other.Vertices = append(other.Vertices, p.Vertices[m:]...)
	other.Vertices = append(other.Vertices, p.Vertices[0])
	p.Vertices = p.Vertices[:m+1]
	p.Flags |= FlagEdCut
	other.Flags |= FlagEdCut
}

// BuildInfinite returns a huge square polygon lying on plane and facing
// along its normal.
func BuildInfinite(plane math.Plane) Poly {
	n := plane.Normal()
	a1, a2 := n.FindBestAxisVectors()
	base := n.Scale(plane.W)
	u := a1.Scale(HalfWorldMax)
	v := a2.Scale(HalfWorldMax)

	p := New(
		base.Add(u).Add(v),
		base.Sub(u).Add(v),
		base.Sub(u).Sub(v),
		base.Add(u).Sub(v),
	)
	p.Base = base
	p.Normal = n
	if sumNormal(p.Vertices).Dot(n) < 0 {
		p.Reverse()
		p.Normal = n
	}
	return p
}

// List is an owned, ordered polygon list such as a brush's local faces.
type List struct {
	Element []Poly
}

// Len returns the number of polygons.
func (l *List) Len() int {
	return len(l.Element)
}

// Add appends copies of polys.
func (l *List) Add(polys ...Poly) {
	for i := range polys {
		l.Element = append(l.Element, polys[i].Clone())
	}
}

// Clone returns a deep copy of the list.
func (l *List) Clone() *List {
	out := &List{Element: make([]Poly, len(l.Element))}
	for i := range l.Element {
		out.Element[i] = l.Element[i].Clone()
	}
	return out
}

// RemoveAt removes the polygon at index i, keeping order.
func (l *List) RemoveAt(i int) {
	l.Element = append(l.Element[:i], l.Element[i+1:]...)
}

// IndexOf returns the index of p in the list, matching the pointer first
// and the vertex ring second, or -1.
func (l *List) IndexOf(p *Poly) int {
	for i := range l.Element {
		if &l.Element[i] == p {
			return i
		}
	}
	for i := range l.Element {
		if l.Element[i].Equal(p) {
			return i
		}
	}
	return -1
}

// Retain keeps only the polygons for which keep returns true, in a single
// stable pass.
func (l *List) Retain(keep func(p *Poly) bool) int {
	kept := l.Element[:0]
	removed := 0
	for i := range l.Element {
		if keep(&l.Element[i]) {
			kept = append(kept, l.Element[i])
		} else {
			removed++
		}
	}
	clear(l.Element[len(kept):])
	l.Element = kept
	return removed
}

// Empty removes every polygon.
func (l *List) Empty() {
	l.Element = l.Element[:0]
}

// Area returns the summed area of every polygon.
func (l *List) Area() float64 {
	var total float64
	for i := range l.Element {
		total += l.Element[i].Area()
	}
	return total
}
