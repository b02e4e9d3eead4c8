package bsp

import (
	"go.uber.org/zap"
)

// Stats counts what one operation did to a model.
type Stats struct {
	NodesAdded     int
	PolysSplit     int
	Discarded      int
	Coplanars      int
	OutOfPlace     int
	TeesFound      int
	PointsMerged   int
	NodesCollapsed int
}

// CsgContext carries the state shared by one build or CSG operation: the
// non-fatal error counter, statistics and the logger. A context must not be
// used by two operations at once.
type CsgContext struct {
	Log    *zap.Logger
	Errors int
	Stats  Stats

	// Scratch state for the world-through-brush pass.
	target       *Model
	node         int
	lastCoplanar int
	numNodes     int
	numVerts     int
	discarded    int
	// World nodes whose polygon was cut away; emptied once the brush has
	// been filtered through the world.
	zero []int
}

// NewContext returns a context logging to log, or silently when log is nil.
func NewContext(log *zap.Logger) *CsgContext {
	if log == nil {
		log = zap.NewNop()
	}
	return &CsgContext{Log: log}
}

// Reset clears the counters for the next operation.
func (c *CsgContext) Reset() {
	c.Errors = 0
	c.Stats = Stats{}
}

func (c *CsgContext) logger() *zap.Logger {
	if c == nil || c.Log == nil {
		return zap.NewNop()
	}
	return c.Log
}

func (c *CsgContext) errorf(msg string, fields ...zap.Field) {
	c.Errors++
	c.logger().Debug(msg, fields...)
}
