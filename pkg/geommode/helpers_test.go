package geommode

import (
	gomath "math"
	"testing"

	"github.com/Faultbox/midgard-csg/pkg/arena"
	"github.com/Faultbox/midgard-csg/pkg/builders"
	"github.com/Faultbox/midgard-csg/pkg/math"
	"github.com/Faultbox/midgard-csg/pkg/poly"
)

func approx(a, b float64) bool {
	return gomath.Abs(a-b) < 1e-3
}

// cubeObject returns an object over a cube of edge size centered on the
// origin.
func cubeObject(t *testing.T, size float64) *Object {
	t.Helper()
	list, err := builders.Cube{X: size, Y: size, Z: size}.Build()
	if err != nil {
		t.Fatalf("cube: %v", err)
	}
	return NewObject(arena.Handle{Index: 1, Generation: 1}, list, math.IdentityTransform())
}

// polyObject returns an object over the given polygons, each finalized.
func polyObject(t *testing.T, rings ...[]math.Vec3) *Object {
	t.Helper()
	list := &poly.List{}
	for _, r := range rings {
		p := poly.New(r...)
		if err := p.Finalize(nil, true); err != nil {
			t.Fatalf("poly %v: %v", r, err)
		}
		list.Add(p)
	}
	return NewObject(arena.Handle{Index: 2, Generation: 1}, list, math.IdentityTransform())
}

func square(size float64) []math.Vec3 {
	return []math.Vec3{{}, {X: size}, {X: size, Y: size}, {Y: size}}
}

// faceFacing returns the first face whose normal matches n.
func faceFacing(t *testing.T, o *Object, n math.Vec3) int {
	t.Helper()
	for i := range o.Faces {
		if math.NormalsAreSame(o.FacePoly(i).Normal, n) {
			return i
		}
	}
	t.Fatalf("no face facing %v", n)
	return -1
}

func vertexAt(t *testing.T, o *Object, p math.Vec3) int {
	t.Helper()
	if i := o.findVertex(p); i >= 0 {
		return i
	}
	t.Fatalf("no vertex at %v", p)
	return -1
}

func edgeBetween(t *testing.T, o *Object, a, b math.Vec3) int {
	t.Helper()
	va, vb := vertexAt(t, o, a), vertexAt(t, o, b)
	for i, e := range o.Edges {
		if (e.V[0] == va && e.V[1] == vb) || (e.V[0] == vb && e.V[1] == va) {
			return i
		}
	}
	t.Fatalf("no edge %v-%v", a, b)
	return -1
}

// signedVolume integrates p·n over every face; it is positive for a closed
// surface whose faces point outward.
func signedVolume(list *poly.List) float64 {
	var v float64
	for i := range list.Element {
		p := &list.Element[i]
		if len(p.Vertices) < 3 {
			continue
		}
		v += p.Vertices[0].Dot(p.Normal) * p.Area() / 3
	}
	return v
}

func ctxFor(objects ...*Object) *Context {
	return &Context{Objects: objects, View: ViewXY}
}

func mustApply(t *testing.T, ctx *Context, m Modifier) Result {
	t.Helper()
	res, err := Apply(ctx, m)
	if err != nil {
		t.Fatalf("Apply(%s) error = %v", m.Kind(), err)
	}
	return res
}
