package physics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestAABBOverlaps(t *testing.T) {
	a := MakeAABB(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{2, 2, 2})
	tests := []struct {
		name string
		b    AABB
		want bool
	}{
		{"identical", a, true},
		{"touching face", MakeAABB(mgl64.Vec3{2, 0, 0}, mgl64.Vec3{3, 2, 2}), true},
		{"separated x", MakeAABB(mgl64.Vec3{2.1, 0, 0}, mgl64.Vec3{3, 2, 2}), false},
		{"separated y", MakeAABB(mgl64.Vec3{0, -3, 0}, mgl64.Vec3{2, -0.1, 2}), false},
		{"contained", MakeAABB(mgl64.Vec3{0.5, 0.5, 0.5}, mgl64.Vec3{1, 1, 1}), true},
		{"infinite", MakeInfiniteAABB(), true},
	}
	for _, tt := range tests {
		if got := a.Overlaps(tt.b); got != tt.want {
			t.Errorf("%s: Overlaps = %v, want %v", tt.name, got, tt.want)
		}
		if got := tt.b.Overlaps(a); got != tt.want {
			t.Errorf("%s: Overlaps not symmetric", tt.name)
		}
	}
}

func TestAABBCombine(t *testing.T) {
	a := MakeAABB(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	b := MakeAABB(mgl64.Vec3{-2, 0.5, 0}, mgl64.Vec3{0, 3, 0.5})
	c := a.Combine(b)
	if c.Min != (mgl64.Vec3{-2, 0, 0}) || c.Max != (mgl64.Vec3{1, 3, 1}) {
		t.Errorf("Combine = %+v", c)
	}
	if c.LargestDimension() != 3.0 {
		t.Errorf("LargestDimension = %v, want 3", c.LargestDimension())
	}
}

func TestAABBFiniteness(t *testing.T) {
	if MakeInfiniteAABB().IsFinite() {
		t.Error("infinite AABB reported finite")
	}
	if !MakeAABB(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}).IsFinite() {
		t.Error("finite AABB reported infinite")
	}
}
