package math

import "testing"

func TestIdentityTransform(t *testing.T) {
	tr := IdentityTransform()
	p := Vec3{1, 2, 3}
	if got := tr.TransformPosition(p); !got.Equals(p, 1e-12) {
		t.Errorf("identity moved point: %v", got)
	}
	if tr.IsMirrored() {
		t.Error("identity should not be mirrored")
	}
}

func TestTransformTranslateRotateScale(t *testing.T) {
	tr := Transform{
		Location: Vec3{10, 0, 0},
		Rotation: Rotator{Yaw: 90},
		Scale:    Vec3{2, 2, 2},
	}
	got := tr.TransformPosition(Vec3{1, 0, 0})
	want := Vec3{10, 2, 0}
	if !got.Equals(want, 1e-9) {
		t.Errorf("TransformPosition = %v, want %v", got, want)
	}
	back := tr.InverseTransformPosition(got)
	if !back.Equals(Vec3{1, 0, 0}, 1e-9) {
		t.Errorf("InverseTransformPosition = %v, want (1, 0, 0)", back)
	}
}

func TestTransformMirrored(t *testing.T) {
	tests := []struct {
		scale Vec3
		want  bool
	}{
		{Vec3{1, 1, 1}, false},
		{Vec3{-1, 1, 1}, true},
		{Vec3{-1, -1, 1}, false},
		{Vec3{-1, -1, -1}, true},
	}
	for _, tt := range tests {
		tr := Transform{Scale: tt.scale}
		if got := tr.IsMirrored(); got != tt.want {
			t.Errorf("IsMirrored(%v) = %v, want %v", tt.scale, got, tt.want)
		}
	}
}

func TestTextureVectorRoundTrip(t *testing.T) {
	tr := Transform{Rotation: Rotator{Pitch: 30, Yaw: 45}, Scale: Vec3{2, 1, 0.5}}
	v := Vec3{1, 0, 0}
	got := tr.InverseTransformTextureVector(tr.TransformTextureVector(v))
	if !got.Equals(v, 1e-9) {
		t.Errorf("texture vector round trip = %v, want %v", got, v)
	}
}
