package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

/// Cylinder vs sphere. The sphere center is classified against the
/// cylinder's axial extent: inside it the side wall applies, unless the
/// sphere has also slipped laterally inside the cylinder radius, which
/// means it came in through a cap; past the extent the nearer cap disk and
/// finally the cap rim are tested. Normals point from the sphere toward
/// the cylinder.
func collideCylinderSphere(cylGeom, sphereGeom *Geom, maxContacts int) []Contact {
	cyl := cylGeom.shape.(CylinderShape)
	sphere := sphereGeom.shape.(SphereShape)

	axis := cyl.Axis(cylGeom.rotation)
	halfLen := 0.5 * cyl.Length

	delta := sphereGeom.position.Sub(cylGeom.position)
	axial := delta.Dot(axis)
	radial := delta.Sub(axis.Mul(axial))
	radialDist := radial.Len()

	if math.Abs(axial) <= halfLen {
		// The cap-penetration exception only applies once the sphere is
		// entirely inside the cylinder's lateral radius; a sphere still
		// straddling the wall resolves against the side.
		if radialDist+sphere.Radius >= cyl.Radius && radialDist > 1e-9 {
			// Side wall.
			if radialDist > cyl.Radius+sphere.Radius {
				return nil
			}
			n := radial.Mul(-1.0 / radialDist)
			depth := cyl.Radius + sphere.Radius - radialDist
			axisPoint := cylGeom.position.Add(axis.Mul(axial))
			pos := axisPoint.Add(radial.Mul((cyl.Radius - 0.5*depth) / radialDist))
			return []Contact{{Position: pos, Normal: n, Depth: depth, G1: cylGeom, G2: sphereGeom}}
		}

		// The sphere center is laterally inside the cylinder: it came in
		// through a cap. Resolve against whichever cap it is approaching,
		// judged by the relative velocity along the axis, with an
		// amplified depth so deep interpenetration is pushed out firmly.
		relVel := geomVelocity(sphereGeom).Sub(geomVelocity(cylGeom)).Dot(axis)
		capSign := 1.0
		if relVel > 0.0 {
			capSign = 1.0 // moving toward the +axis cap
		} else if relVel < 0.0 {
			capSign = -1.0
		} else if axial < 0.0 {
			capSign = -1.0 // at rest: nearer cap
		}

		// Axial coordinate measured toward the chosen cap.
		s := axial * capSign
		depth := sphere.Radius + (halfLen - s)
		n := axis.Mul(-capSign)
		pos := cylGeom.position.Add(axis.Mul(capSign * halfLen)).Add(radial)
		return []Contact{{Position: pos, Normal: n, Depth: depth, G1: cylGeom, G2: sphereGeom}}
	}

	// Beyond the axial extent: nearer cap.
	capSign := 1.0
	if axial < 0.0 {
		capSign = -1.0
	}
	capDir := axis.Mul(capSign)
	axialDist := math.Abs(axial) - halfLen

	if radialDist <= cyl.Radius {
		// Facing the cap disk.
		if axialDist > sphere.Radius {
			return nil
		}
		n := capDir.Mul(-1.0)
		pos := sphereGeom.position.Sub(capDir.Mul(axialDist))
		return []Contact{{
			Position: pos,
			Normal:   n,
			Depth:    sphere.Radius - axialDist,
			G1:       cylGeom,
			G2:       sphereGeom,
		}}
	}

	// Off the disk: test against the cap's circular edge.
	capCenter := cylGeom.position.Add(capDir.Mul(halfLen))
	ringPoint := capCenter.Add(radial.Mul(cyl.Radius / radialDist))
	toSphere := sphereGeom.position.Sub(ringPoint)
	dist := toSphere.Len()
	if dist > sphere.Radius || dist < 1e-12 {
		if dist >= 1e-12 {
			return nil
		}
		// Center exactly on the ring; push along the cap direction.
		toSphere = capDir
		dist = 1.0
	}

	n := toSphere.Mul(-1.0 / dist)
	return []Contact{{
		Position: ringPoint,
		Normal:   n,
		Depth:    sphere.Radius - dist,
		G1:       cylGeom,
		G2:       sphereGeom,
	}}
}

/// geomVelocity returns the linear velocity of the geom's body, or zero
/// for static geometry.
func geomVelocity(g *Geom) mgl64.Vec3 {
	if g.body == nil {
		return mgl64.Vec3{}
	}
	return g.body.linVel
}
