package math

// Geometric tolerances. Every comparison in the geometry core goes through
// one of these; none of them is re-derived locally.
const (
	SmallNumber      = 1e-8
	KindaSmallNumber = 1e-4

	ThreshPointOnPlane         = 0.10    // point is on a plane
	ThreshPointOnSide          = 0.20    // point is on the side of a polygon
	ThreshPointsAreSame        = 0.00002 // two points are the same
	ThreshPointsAreNear        = 0.015   // two points are near
	ThreshNormalsAreSame       = 0.00002 // two normals are the same
	ThreshVectorsAreNear       = 0.0004  // two vectors are near
	ThreshSplitPolyWithPlane   = 0.25    // coarse split epsilon
	ThreshSplitPolyPrecisely   = 0.01    // precise split epsilon
	ThreshZeroNormSquared      = 0.0001  // squared length below which a normal is degenerate
	ThreshNormalsAreParallel   = 0.999845
	ThreshNormalsAreOrthogonal = 0.017455
	ThreshOptGeomCoplanar      = 0.25 // point lies on an edge during T-junction repair
	ThreshOptGeomColinear      = 0.125
	ThreshPenSegments          = 1.0 / 128
)
