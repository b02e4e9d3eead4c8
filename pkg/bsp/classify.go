package bsp

import (
	"github.com/Faultbox/midgard-csg/pkg/math"
)

// PointOutside reports whether p lies outside the solid described by m's
// tree. Points on a plane count as in front of it.
func PointOutside(m *Model, p math.Vec3) bool {
	outside := m.RootOutside
	node := 0
	if len(m.Nodes) == 0 {
		return outside
	}
	for node != None {
		n := &m.Nodes[node]
		front := n.Plane.Dot(p) >= 0

		// Coplanar nodes facing the other way bound solid on the
		// opposite side.
		var sameCsg, flippedCsg bool
		for c := node; c != None; c = m.Nodes[c].Coplanar {
			cn := &m.Nodes[c]
			if !cn.IsCsg() {
				continue
			}
			if cn.Plane.NormalDot(n.Plane) >= 0 {
				sameCsg = true
			} else {
				flippedCsg = true
			}
		}

		if front {
			outside = outside || sameCsg
			outside = outside && !flippedCsg
			node = n.Front
		} else {
			outside = outside && !sameCsg
			outside = outside || flippedCsg
			node = n.Back
		}
	}
	return outside
}
