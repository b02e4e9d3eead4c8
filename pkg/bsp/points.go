package bsp

import (
	gomath "math"

	"github.com/Faultbox/midgard-csg/pkg/math"
)

// Grid cell sizes for the point and vector pools.
const (
	PointsCellSize  = 50.0
	VectorsCellSize = 1.0 / 16
)

type cellKey struct {
	x, y, z int64
}

type gridEntry struct {
	point math.Vec3
	index int
}

// PointsGrid is a bucketed spatial hash used to deduplicate points. A query
// visits every cell overlapped by the box of half-size threshold around the
// point, so threshold must not exceed the cell size.
type PointsGrid struct {
	cellSize float64
	maxThres float64
	cells    map[cellKey][]gridEntry
}

// NewPointsGrid returns an empty grid. maxThreshold is the largest
// threshold Find will be asked for.
func NewPointsGrid(cellSize, maxThreshold float64) *PointsGrid {
	return &PointsGrid{
		cellSize: cellSize,
		maxThres: maxThreshold,
		cells:    make(map[cellKey][]gridEntry),
	}
}

func (g *PointsGrid) cell(v float64) int64 {
	return int64(gomath.Floor(v / g.cellSize))
}

// Find returns the lowest index stored within threshold of p on every axis.
func (g *PointsGrid) Find(p math.Vec3, threshold float64) (int, bool) {
	if threshold > g.maxThres {
		threshold = g.maxThres
	}
	x0, x1 := g.cell(p.X-threshold), g.cell(p.X+threshold)
	y0, y1 := g.cell(p.Y-threshold), g.cell(p.Y+threshold)
	z0, z1 := g.cell(p.Z-threshold), g.cell(p.Z+threshold)

	best := -1
	for x := x0; x <= x1; x++ {
		for y := y0; y <= y1; y++ {
			for z := z0; z <= z1; z++ {
				for _, e := range g.cells[cellKey{x, y, z}] {
					if (best < 0 || e.index < best) && math.PointsAreNear(e.point, p, threshold) {
						best = e.index
					}
				}
			}
		}
	}
	return best, best >= 0
}

// Insert records p under index.
func (g *PointsGrid) Insert(p math.Vec3, index int) {
	k := cellKey{g.cell(p.X), g.cell(p.Y), g.cell(p.Z)}
	g.cells[k] = append(g.cells[k], gridEntry{p, index})
}

// Reindex clears the grid and inserts every point.
func (g *PointsGrid) Reindex(points []math.Vec3) {
	g.cells = make(map[cellKey][]gridEntry, len(points))
	for i, p := range points {
		g.Insert(p, i)
	}
}

// Len returns the number of stored points.
func (g *PointsGrid) Len() int {
	n := 0
	for _, c := range g.cells {
		n += len(c)
	}
	return n
}
