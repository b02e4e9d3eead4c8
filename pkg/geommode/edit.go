package geommode

import "github.com/Faultbox/midgard-csg/pkg/math"

// Edit moves, rotates and scales the selected elements. Drag is in world
// space; rotation and scale happen about the context pivot.
type Edit struct {
	Drag     math.Vec3
	Rotation math.Rotator
	// Scale is applied in the basis of the selected face and only when
	// exactly one face is selected. Zero means no scaling.
	Scale math.Vec3
}

// Kind implements Modifier.
func (*Edit) Kind() Kind { return KindEdit }

// Supports implements Modifier. Edit works on any selection.
func (*Edit) Supports(*Context) bool { return true }

// Apply implements Modifier. When the move makes edges cross, every object
// is put back and ErrEdgesOverlap is returned.
func (m *Edit) Apply(ctx *Context) (Result, error) {
	var res Result
	faces, _, _ := counts(ctx)
	scale := !m.Scale.IsNearlyZero(0) && m.Scale != (math.Vec3{X: 1, Y: 1, Z: 1}) && faces == 1

	var moved []*Object
	for _, o := range ctx.Objects {
		verts := o.uniqueSelectedVertices()
		if len(verts) == 0 {
			continue
		}
		var u, v, n math.Vec3
		if scale {
			if sel := o.SelectedFaces(); len(sel) == 1 {
				n = o.Transform.TransformVector(o.FacePoly(sel[0]).Normal).Normalize()
				u, v = n.FindBestAxisVectors()
			}
		}
		o.CacheState()
		for _, i := range verts {
			w := o.WorldVertex(i)
			if !n.IsNearlyZero(0) {
				d := w.Sub(ctx.Pivot)
				w = ctx.Pivot.
					Add(u.Scale(d.Dot(u) * m.Scale.X)).
					Add(v.Scale(d.Dot(v) * m.Scale.Y)).
					Add(n.Scale(d.Dot(n) * m.Scale.Z))
			}
			if !m.Rotation.IsZero() {
				w = ctx.Pivot.Add(m.Rotation.RotateVector(w.Sub(ctx.Pivot)))
			}
			w = w.Add(m.Drag)
			o.Vertices[i].Pos = o.Transform.InverseTransformPosition(w)
		}
		o.SendToSource()
		moved = append(moved, o)
		res.modified(o)
	}

	if doEdgesOverlap(ctx) {
		for _, o := range moved {
			sel := o.Selection()
			o.RestoreState()
			o.Restore(sel)
		}
		return Result{}, ErrEdgesOverlap
	}
	return res, nil
}

// HandleKey implements Modifier.
func (*Edit) HandleKey(*Context, KeyEvent) KeyAction { return KeyIgnored }

// Render implements Modifier: a box around the selection.
func (*Edit) Render(ctx *Context) Lines {
	return Lines(nil).Box(selectionBox(ctx, DefaultBoxPadding))
}
