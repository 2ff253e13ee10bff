package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

/// Sphere vs sphere. A single contact on the line between the centers.
func collideSphereSphere(g1, g2 *Geom, maxContacts int) []Contact {
	s1 := g1.shape.(SphereShape)
	s2 := g2.shape.(SphereShape)

	d := g1.position.Sub(g2.position)
	dist := d.Len()
	rsum := s1.Radius + s2.Radius
	if dist > rsum {
		return nil
	}

	var n mgl64.Vec3
	if dist > 1e-12 {
		n = d.Mul(1.0 / dist)
	} else {
		// Coincident centers; any direction resolves them.
		n = mgl64.Vec3{0.0, 1.0, 0.0}
	}

	depth := rsum - dist
	pos := g1.position.Sub(n.Mul(s1.Radius - 0.5*depth))
	return []Contact{{Position: pos, Normal: n, Depth: depth, G1: g1, G2: g2}}
}

/// Sphere vs box. The sphere center is clamped to the box to find the
/// closest feature; a center inside the box exits through the face of
/// least penetration.
func collideSphereBox(sphereGeom, boxGeom *Geom, maxContacts int) []Contact {
	sphere := sphereGeom.shape.(SphereShape)
	box := boxGeom.shape.(BoxShape)

	rot := boxGeom.rotation
	// Sphere center in box frame.
	local := rot.Transpose().Mul3x1(sphereGeom.position.Sub(boxGeom.position))
	h := box.HalfExtents

	clamped := mgl64.Vec3{
		Clamp(local.X(), -h.X(), h.X()),
		Clamp(local.Y(), -h.Y(), h.Y()),
		Clamp(local.Z(), -h.Z(), h.Z()),
	}

	if clamped != local {
		// Center outside the box: closest-point test.
		delta := local.Sub(clamped)
		dist := delta.Len()
		if dist > sphere.Radius {
			return nil
		}
		n := rot.Mul3x1(delta.Mul(1.0 / dist))
		pos := boxGeom.position.Add(rot.Mul3x1(clamped))
		return []Contact{{
			Position: pos,
			Normal:   n,
			Depth:    sphere.Radius - dist,
			G1:       sphereGeom,
			G2:       boxGeom,
		}}
	}

	// Center inside the box: push out through the shallowest face.
	best := 0
	bestDist := h.X() - math.Abs(local.X())
	for i := 1; i < 3; i++ {
		d := h[i] - math.Abs(local[i])
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	var ln mgl64.Vec3
	if local[best] >= 0.0 {
		ln[best] = 1.0
	} else {
		ln[best] = -1.0
	}
	n := rot.Mul3x1(ln)

	surf := local
	surf[best] = ln[best] * h[best]
	pos := boxGeom.position.Add(rot.Mul3x1(surf))
	return []Contact{{
		Position: pos,
		Normal:   n,
		Depth:    sphere.Radius + bestDist,
		G1:       sphereGeom,
		G2:       boxGeom,
	}}
}
