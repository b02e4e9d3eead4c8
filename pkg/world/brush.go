package world

import (
	"github.com/google/uuid"

	"github.com/Faultbox/midgard-csg/pkg/arena"
	"github.com/Faultbox/midgard-csg/pkg/bsp"
	"github.com/Faultbox/midgard-csg/pkg/math"
	"github.com/Faultbox/midgard-csg/pkg/poly"
	"github.com/Faultbox/midgard-csg/pkg/trans"
)

// Brush is one brush actor: local-space faces placed in the level by
// Transform and combined with it by Oper.
type Brush struct {
	ID        uuid.UUID
	Name      string
	Polys     *poly.List
	Transform math.Transform
	Oper      bsp.CsgOper
	PolyFlags poly.Flags
	// Shape marks a 2D brush shape. Shapes feed the lathe and take no part
	// in CSG.
	Shape bool

	handle arena.Handle
}

// Handle returns the brush's slot in its world.
func (b *Brush) Handle() arena.Handle { return b.handle }

// Structural reports whether the brush is composed in the first rebuild
// pass: solids, subtractions and portals. Additive semisolid brushes are
// detail and go last.
func (b *Brush) Structural() bool {
	return !b.PolyFlags.Has(poly.FlagSemisolid) || b.Oper != bsp.CsgAdd || b.PolyFlags.Has(poly.FlagPortal)
}

// csgFlags returns the flags the brush is composed with. Portals cut like
// solids but leave no solid behind.
func (b *Brush) csgFlags() poly.Flags {
	if b.PolyFlags.Has(poly.FlagPortal) {
		return (b.PolyFlags &^ poly.FlagSemisolid) | poly.FlagNotSolid
	}
	return b.PolyFlags
}

// model wraps the brush's faces for CSG. The faces are shared, not copied.
func (b *Brush) model() *bsp.Model {
	m := bsp.NewModel()
	m.Polys = b.Polys
	return m
}

// TransactionKey implements trans.Object.
func (b *Brush) TransactionKey() string { return "brush:" + b.ID.String() }

// SaveState implements trans.Object.
func (b *Brush) SaveState(ar *trans.Archive) {
	ar.WriteString(b.Name)
	writeTransform(ar, b.Transform)
	ar.WriteInt(int(b.Oper))
	ar.WriteUint32(uint32(b.PolyFlags))
	ar.WriteBool(b.Shape)
	ar.WriteInt(b.Polys.Len())
	for i := range b.Polys.Element {
		writePoly(ar, &b.Polys.Element[i])
	}
}

// LoadState implements trans.Object. The polygon list is refilled in place
// so that holders of b.Polys see the restored faces.
func (b *Brush) LoadState(ar *trans.Archive) error {
	b.Name = ar.ReadString()
	b.Transform = readTransform(ar)
	b.Oper = bsp.CsgOper(ar.ReadInt())
	b.PolyFlags = poly.Flags(ar.ReadUint32())
	b.Shape = ar.ReadBool()
	n := ar.ReadInt()
	if err := ar.Err(); err != nil {
		return err
	}
	if b.Polys == nil {
		b.Polys = &poly.List{}
	}
	b.Polys.Element = b.Polys.Element[:0]
	for i := 0; i < n && ar.Err() == nil; i++ {
		b.Polys.Element = append(b.Polys.Element, readPoly(ar))
	}
	return ar.Err()
}

func writeTransform(ar *trans.Archive, t math.Transform) {
	ar.WriteVec3(t.Location)
	ar.WriteFloat64(t.Rotation.Pitch)
	ar.WriteFloat64(t.Rotation.Yaw)
	ar.WriteFloat64(t.Rotation.Roll)
	ar.WriteVec3(t.Scale)
}

func readTransform(ar *trans.Archive) math.Transform {
	var t math.Transform
	t.Location = ar.ReadVec3()
	t.Rotation.Pitch = ar.ReadFloat64()
	t.Rotation.Yaw = ar.ReadFloat64()
	t.Rotation.Roll = ar.ReadFloat64()
	t.Scale = ar.ReadVec3()
	return t
}

func writePoly(ar *trans.Archive, p *poly.Poly) {
	ar.WriteVec3(p.Base)
	ar.WriteVec3(p.Normal)
	ar.WriteVec3(p.TextureU)
	ar.WriteVec3(p.TextureV)
	ar.WriteInt(len(p.Vertices))
	for _, v := range p.Vertices {
		ar.WriteVec3(v)
	}
	ar.WriteUint32(uint32(p.Flags))
	ar.WriteInt(p.Link)
	ar.WriteInt(p.BrushPoly)
	ar.WriteUint32(p.Brush.Index)
	ar.WriteUint32(p.Brush.Generation)
	ar.WriteRef(p.Material)
	ar.WriteString(p.ItemName)
	ar.WriteUint32(p.SmoothingMask)
	ar.WriteFloat64(p.LightmapScale)
}

func readPoly(ar *trans.Archive) poly.Poly {
	var p poly.Poly
	p.Init()
	p.Base = ar.ReadVec3()
	p.Normal = ar.ReadVec3()
	p.TextureU = ar.ReadVec3()
	p.TextureV = ar.ReadVec3()
	n := ar.ReadInt()
	for i := 0; i < n && ar.Err() == nil; i++ {
		p.Vertices = append(p.Vertices, ar.ReadVec3())
	}
	p.Flags = poly.Flags(ar.ReadUint32())
	p.Link = ar.ReadInt()
	p.BrushPoly = ar.ReadInt()
	p.Brush.Index = ar.ReadUint32()
	p.Brush.Generation = ar.ReadUint32()
	p.Material = ar.ReadRef()
	p.ItemName = ar.ReadString()
	p.SmoothingMask = ar.ReadUint32()
	p.LightmapScale = ar.ReadFloat64()
	return p
}

// brushList is the world's brush order as an undoable object. Its snapshot
// holds handles only; the brushes themselves are recorded separately, and
// removed brushes are parked so that undo can bring them back under the
// same handle.
type brushList struct{ w *World }

func (l brushList) TransactionKey() string { return "world:" + l.w.ID.String() + ":brushes" }

func (l brushList) SaveState(ar *trans.Archive) {
	ar.WriteInt(len(l.w.order))
	for _, h := range l.w.order {
		ar.WriteUint32(h.Index)
		ar.WriteUint32(h.Generation)
	}
}

func (l brushList) LoadState(ar *trans.Archive) error {
	n := ar.ReadInt()
	order := make([]arena.Handle, 0, max(n, 0))
	for i := 0; i < n && ar.Err() == nil; i++ {
		order = append(order, arena.Handle{Index: ar.ReadUint32(), Generation: ar.ReadUint32()})
	}
	if err := ar.Err(); err != nil {
		return err
	}
	return l.w.restoreOrder(order)
}
