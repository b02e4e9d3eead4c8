package geommode

import (
	"github.com/Faultbox/midgard-csg/pkg/math"
	"github.com/Faultbox/midgard-csg/pkg/poly"
)

// Extrude pushes the selected faces out along their normal, building a
// wall of side quads for every segment.
type Extrude struct {
	passive
	Length   float64
	Segments int
}

// Kind implements Modifier.
func (*Extrude) Kind() Kind { return KindExtrude }

// Supports implements Modifier. Only faces can be extruded.
func (*Extrude) Supports(ctx *Context) bool {
	faces, edges, verts := counts(ctx)
	return faces > 0 && edges == 0 && verts == 0
}

// Apply implements Modifier.
func (m *Extrude) Apply(ctx *Context) (Result, error) {
	var res Result
	segments := max(m.Segments, 1)
	if m.Length == 0 {
		res.warn("extrude length is zero")
		return res, nil
	}
	for _, o := range ctx.Objects {
		selected := o.SelectedFaces()
		if len(selected) == 0 {
			continue
		}
		for _, group := range groupByNormal(o, selected) {
			normal := o.FacePoly(group[0]).Normal
			polys := make([]poly.Poly, len(group))
			for i, f := range group {
				polys[i] = o.FacePoly(f).Clone()
			}
			step := normal.Scale(m.Length)
			for _, winding := range poly.GetOutsideWindings(polys, false) {
				for s := 0; s < segments; s++ {
					near := step.Scale(float64(s))
					far := step.Scale(float64(s + 1))
					for v := range winding {
						a, b := winding[v], winding[(v+1)%len(winding)]
						side := poly.New(a.Add(near), b.Add(near), b.Add(far), a.Add(far))
						if err := side.Finalize(nil, true); err != nil {
							continue
						}
						o.Polys.Add(side)
					}
				}
			}
			offset := step.Scale(float64(segments))
			for _, f := range group {
				p := o.FacePoly(f)
				for i := range p.Vertices {
					p.Vertices[i] = p.Vertices[i].Add(offset)
				}
				p.Base = p.Base.Add(offset)
			}
		}
		res.modified(o)
	}
	return res, nil
}

// groupByNormal partitions faces into sets sharing the same normal.
func groupByNormal(o *Object, faces []int) [][]int {
	var groups [][]int
	var normals []math.Vec3
	for _, f := range faces {
		n := o.FacePoly(f).Normal
		found := false
		for g := range groups {
			if math.NormalsAreSame(normals[g], n) {
				groups[g] = append(groups[g], f)
				found = true
				break
			}
		}
		if !found {
			groups = append(groups, []int{f})
			normals = append(normals, n)
		}
	}
	return groups
}
