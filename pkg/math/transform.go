package math

import "github.com/go-gl/mathgl/mgl64"

// Rotator is an Euler rotation in degrees.
type Rotator struct {
	Pitch float64 `yaml:"pitch"` // about Y
	Yaw   float64 `yaml:"yaw"`   // about Z
	Roll  float64 `yaml:"roll"`  // about X
}

// IsZero reports whether the rotation is the identity.
func (r Rotator) IsZero() bool {
	return r.Pitch == 0 && r.Yaw == 0 && r.Roll == 0
}

// Matrix returns the rotation as a homogeneous matrix (roll, then pitch,
// then yaw).
func (r Rotator) Matrix() mgl64.Mat4 {
	yaw := mgl64.HomogRotate3DZ(mgl64.DegToRad(r.Yaw))
	pitch := mgl64.HomogRotate3DY(mgl64.DegToRad(r.Pitch))
	roll := mgl64.HomogRotate3DX(mgl64.DegToRad(r.Roll))
	return yaw.Mul4(pitch).Mul4(roll)
}

// RotateVector rotates v.
func (r Rotator) RotateVector(v Vec3) Vec3 {
	return FromMgl(mgl64.TransformNormal(v.Mgl(), r.Matrix()))
}

// Transform places a brush in the world: scale, then rotate, then translate.
type Transform struct {
	Location Vec3    `yaml:"location"`
	Rotation Rotator `yaml:"rotation"`
	Scale    Vec3    `yaml:"scale"`
}

// IdentityTransform returns a transform that leaves points unchanged.
func IdentityTransform() Transform {
	return Transform{Scale: Vec3{1, 1, 1}}
}

// Translation returns an identity transform moved to location.
func Translation(location Vec3) Transform {
	return Transform{Location: location, Scale: Vec3{1, 1, 1}}
}

func (t Transform) scale() Vec3 {
	if t.Scale == (Vec3{}) {
		return Vec3{1, 1, 1}
	}
	return t.Scale
}

// Matrix returns the local-to-world matrix.
func (t Transform) Matrix() mgl64.Mat4 {
	s := t.scale()
	m := mgl64.Translate3D(t.Location.X, t.Location.Y, t.Location.Z)
	m = m.Mul4(t.Rotation.Matrix())
	return m.Mul4(mgl64.Scale3D(s.X, s.Y, s.Z))
}

// InverseMatrix returns the world-to-local matrix.
func (t Transform) InverseMatrix() mgl64.Mat4 {
	return t.Matrix().Inv()
}

// IsMirrored reports whether the transform flips handedness, in which case
// polygon winding must be reversed after transforming.
func (t Transform) IsMirrored() bool {
	s := t.scale()
	return s.X*s.Y*s.Z < 0
}

// TransformPosition maps a local point to world space.
func (t Transform) TransformPosition(p Vec3) Vec3 {
	return FromMgl(mgl64.TransformCoordinate(p.Mgl(), t.Matrix()))
}

// InverseTransformPosition maps a world point to local space.
func (t Transform) InverseTransformPosition(p Vec3) Vec3 {
	return FromMgl(mgl64.TransformCoordinate(p.Mgl(), t.InverseMatrix()))
}

// TransformVector maps a local direction to world space, ignoring
// translation.
func (t Transform) TransformVector(v Vec3) Vec3 {
	return FromMgl(mgl64.TransformNormal(v.Mgl(), t.Matrix()))
}

// TransformTextureVector maps a texture axis: rotated, and divided by the
// scale so the texel density stays put on the scaled surface.
func (t Transform) TransformTextureVector(v Vec3) Vec3 {
	s := t.scale()
	v = Vec3{v.X / s.X, v.Y / s.Y, v.Z / s.Z}
	return t.Rotation.RotateVector(v)
}

// InverseTransformTextureVector undoes TransformTextureVector.
func (t Transform) InverseTransformTextureVector(v Vec3) Vec3 {
	inv := t.Rotation.Matrix().Transpose()
	v = FromMgl(mgl64.TransformNormal(v.Mgl(), inv))
	return v.Mul(t.scale())
}
