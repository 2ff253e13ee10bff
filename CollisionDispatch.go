package physics

import (
	"github.com/go-gl/mathgl/mgl64"
)

/// A contact point produced by narrow phase. Contacts are transient: they
/// are generated fresh each step and never persisted.
type Contact struct {
	/// World-space contact position.
	Position mgl64.Vec3

	/// Unit contact normal. Points from G2 toward G1 by convention.
	Normal mgl64.Vec3

	/// Penetration depth, always >= 0.
	Depth float64

	G1 *Geom
	G2 *Geom
}

/// CollidePair runs the exact intersection routine for the pair of shape
/// kinds and returns up to maxContacts contact points, or nil when the
/// shapes are separated or the pair has no registered routine. Dispatch is
/// symmetric: when the routine expects the opposite order, the arguments
/// are swapped and the resulting normals flipped.
func CollidePair(a, b *Geom, maxContacts int) []Contact {
	t := DefaultTunables()
	return CollidePairWith(a, b, maxContacts, &t)
}

/// CollidePairWith is CollidePair with explicit tunables (epsilons, cap
/// segment count). The world step uses its own tunables through this.
func CollidePairWith(a, b *Geom, maxContacts int, tun *Tunables) []Contact {
	if maxContacts <= 0 {
		return nil
	}
	if maxContacts > MaxContactPoints {
		maxContacts = MaxContactPoints
	}

	ta := a.shape.GetType()
	tb := b.shape.GetType()

	switch {
	case ta == ShapeType.E_sphere && tb == ShapeType.E_sphere:
		return collideSphereSphere(a, b, maxContacts)

	case ta == ShapeType.E_sphere && tb == ShapeType.E_box:
		return collideSphereBox(a, b, maxContacts)
	case ta == ShapeType.E_box && tb == ShapeType.E_sphere:
		return flipContacts(collideSphereBox(b, a, maxContacts))

	case ta == ShapeType.E_cylinder && tb == ShapeType.E_sphere:
		return collideCylinderSphere(a, b, maxContacts)
	case ta == ShapeType.E_sphere && tb == ShapeType.E_cylinder:
		return flipContacts(collideCylinderSphere(b, a, maxContacts))

	case ta == ShapeType.E_cylinder && tb == ShapeType.E_box:
		return collideCylinderBox(a, b, maxContacts, tun)
	case ta == ShapeType.E_box && tb == ShapeType.E_cylinder:
		return flipContacts(collideCylinderBox(b, a, maxContacts, tun))

	case ta == ShapeType.E_cylinder && tb == ShapeType.E_mesh:
		return collideCylinderMesh(a, b, maxContacts, tun, nil)
	case ta == ShapeType.E_mesh && tb == ShapeType.E_cylinder:
		return flipContacts(collideCylinderMesh(b, a, maxContacts, tun, nil))
	}

	// No routine registered for this pair.
	return nil
}

/// CollideCylinderMeshCached is the cylinder-vs-mesh path with a caller
/// owned temporal-coherence cache; small relative motion between calls
/// skips the BVH walk.
func CollideCylinderMeshCached(cyl, mesh *Geom, maxContacts int, tun *Tunables, cache *MeshQueryCache) []Contact {
	Assert(cyl.shape.GetType() == ShapeType.E_cylinder)
	Assert(mesh.shape.GetType() == ShapeType.E_mesh)
	return collideCylinderMesh(cyl, mesh, maxContacts, tun, cache)
}

/// flipContacts restores the caller's argument order on swapped results.
func flipContacts(cs []Contact) []Contact {
	for i := range cs {
		cs[i].G1, cs[i].G2 = cs[i].G2, cs[i].G1
		cs[i].Normal = cs[i].Normal.Mul(-1.0)
	}
	return cs
}
