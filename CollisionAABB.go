package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

/// An axis-aligned bounding box stored as min/max corners.
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

func MakeAABB(min, max mgl64.Vec3) AABB {
	return AABB{Min: min, Max: max}
}

/// MakeInfiniteAABB covers all of space. Geometries carrying one are
/// excluded from hash and sweep structures and brute-force tested instead.
func MakeInfiniteAABB() AABB {
	return AABB{
		Min: mgl64.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)},
		Max: mgl64.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)},
	}
}

/// Overlaps reports whether the two boxes intersect, boundaries included.
func (bb AABB) Overlaps(other AABB) bool {
	if bb.Min.X() > other.Max.X() || other.Min.X() > bb.Max.X() {
		return false
	}
	if bb.Min.Y() > other.Max.Y() || other.Min.Y() > bb.Max.Y() {
		return false
	}
	if bb.Min.Z() > other.Max.Z() || other.Min.Z() > bb.Max.Z() {
		return false
	}
	return true
}

/// Combine returns the union of the two boxes.
func (bb AABB) Combine(other AABB) AABB {
	return AABB{
		Min: mgl64.Vec3{
			minFloat(bb.Min.X(), other.Min.X()),
			minFloat(bb.Min.Y(), other.Min.Y()),
			minFloat(bb.Min.Z(), other.Min.Z()),
		},
		Max: mgl64.Vec3{
			maxFloat64(bb.Max.X(), other.Max.X()),
			maxFloat64(bb.Max.Y(), other.Max.Y()),
			maxFloat64(bb.Max.Z(), other.Max.Z()),
		},
	}
}

/// IsFinite reports whether every extent is bounded. Unbounded boxes may
/// not enter the sorted or hashed broad-phase structures.
func (bb AABB) IsFinite() bool {
	return IsValidVec(bb.Min) && IsValidVec(bb.Max)
}

/// LargestDimension returns the box's longest edge length.
func (bb AABB) LargestDimension() float64 {
	d := bb.Max.Sub(bb.Min)
	m := d.X()
	if d.Y() > m {
		m = d.Y()
	}
	if d.Z() > m {
		m = d.Z()
	}
	return m
}

/// Center returns the box midpoint.
func (bb AABB) Center() mgl64.Vec3 {
	return bb.Min.Add(bb.Max).Mul(0.5)
}
