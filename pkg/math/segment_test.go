package math

import "testing"

func TestSegmentDistToSegment(t *testing.T) {
	a, b := SegmentDistToSegment(Vec3{0, 0, 0}, Vec3{10, 0, 0}, Vec3{5, -5, 3}, Vec3{5, 5, 3})
	if !a.Equals(Vec3{5, 0, 0}, 1e-9) || !b.Equals(Vec3{5, 0, 3}, 1e-9) {
		t.Errorf("closest points = %v %v", a, b)
	}
	if d := a.Distance(b); !approx(d, 3) {
		t.Errorf("distance = %v, want 3", d)
	}
}

func TestSegmentsIntersect2D(t *testing.T) {
	tests := []struct {
		name           string
		a0, a1, b0, b1 Vec2
		want           bool
	}{
		{"cross", Vec2{0, 0}, Vec2{2, 2}, Vec2{0, 2}, Vec2{2, 0}, true},
		{"parallel", Vec2{0, 0}, Vec2{2, 0}, Vec2{0, 1}, Vec2{2, 1}, false},
		{"apart", Vec2{0, 0}, Vec2{1, 0}, Vec2{2, -1}, Vec2{2, 1}, false},
		{"touch", Vec2{0, 0}, Vec2{2, 0}, Vec2{2, 0}, Vec2{2, 5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SegmentsIntersect2D(tt.a0, tt.a1, tt.b0, tt.b1, ThreshPenSegments); got != tt.want {
				t.Errorf("SegmentsIntersect2D = %v, want %v", got, tt.want)
			}
		})
	}
}
