package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

///////////////////////////////////////////////////////////////////////////////
// Cylinder vs triangle mesh. The mesh's triangle BVH plays broad phase at
// a finer grain: the cylinder's bounding box is taken into mesh-local
// space, candidate triangles come back from the tree, and each one runs
// the same separating-axis structure as the box case against a single
// triangle's vertices, edges and face normal.
///////////////////////////////////////////////////////////////////////////////

func collideCylinderMesh(cylGeom, meshGeom *Geom, maxContacts int, tun *Tunables, cache *MeshQueryCache) []Contact {
	mesh := meshGeom.shape.(*MeshShape)

	// Cylinder bounds in mesh-local space: transform the world box's
	// corners; conservative but cheap.
	worldBB := cylGeom.shape.ComputeAABB(cylGeom.position, cylGeom.rotation)
	rotT := meshGeom.rotation.Transpose()

	var localBB AABB
	first := true
	for i := 0; i < 8; i++ {
		c := mgl64.Vec3{worldBB.Min.X(), worldBB.Min.Y(), worldBB.Min.Z()}
		if i&1 != 0 {
			c[0] = worldBB.Max.X()
		}
		if i&2 != 0 {
			c[1] = worldBB.Max.Y()
		}
		if i&4 != 0 {
			c[2] = worldBB.Max.Z()
		}
		local := rotT.Mul3x1(c.Sub(meshGeom.position))
		if first {
			localBB = MakeAABB(local, local)
			first = false
		} else {
			localBB = localBB.Combine(MakeAABB(local, local))
		}
	}

	var candidates []int32
	if cache != nil {
		candidates = cache.query(mesh.bvh, localBB)
	} else {
		mesh.bvh.Query(localBB, func(tri int32) bool {
			candidates = append(candidates, tri)
			return true
		})
	}

	var out []Contact
	for _, tri := range candidates {
		lv0, lv1, lv2 := mesh.Triangle(int(tri))
		v0 := meshGeom.position.Add(meshGeom.rotation.Mul3x1(lv0))
		v1 := meshGeom.position.Add(meshGeom.rotation.Mul3x1(lv1))
		v2 := meshGeom.position.Add(meshGeom.rotation.Mul3x1(lv2))

		cs := collideCylinderTriangle(cylGeom, meshGeom, v0, v1, v2, maxContacts-len(out), tun)
		out = append(out, cs...)
		if len(out) >= maxContacts {
			out = out[:maxContacts]
			break
		}
	}
	return out
}

// Interval of the triangle's projection on axis u.
func triangleProjection(u, v0, v1, v2 mgl64.Vec3) (float64, float64) {
	d0 := u.Dot(v0)
	d1 := u.Dot(v1)
	d2 := u.Dot(v2)
	lo := minFloat(d0, minFloat(d1, d2))
	hi := maxFloat64(d0, maxFloat64(d1, d2))
	return lo, hi
}

func testCylTriAxis(sat *satState, axisIndex int, u mgl64.Vec3,
	cylPos, cylAxis mgl64.Vec3, radius, halfLen float64,
	v0, v1, v2, triCenter mgl64.Vec3, epsAxis float64) bool {

	un, l := SafeNormalize(u, epsAxis)
	if l == 0.0 {
		return true
	}

	cylProj := cylinderHalfProjection(un, cylAxis, radius, halfLen)
	cylCenter := cylPos.Dot(un)
	triLo, triHi := triangleProjection(un, v0, v1, v2)

	if cylCenter+cylProj < triLo || cylCenter-cylProj > triHi {
		return false
	}

	depth := minFloat(cylCenter+cylProj-triLo, triHi-(cylCenter-cylProj))
	if !sat.found || depth < sat.depth {
		if un.Dot(cylPos.Sub(triCenter)) < 0.0 {
			un = un.Mul(-1.0)
		}
		sat.normal = un
		sat.depth = depth
		sat.index = axisIndex
		sat.found = true
	}
	return true
}

func collideCylinderTriangle(cylGeom, meshGeom *Geom, v0, v1, v2 mgl64.Vec3,
	maxContacts int, tun *Tunables) []Contact {

	if maxContacts <= 0 {
		return nil
	}

	cyl := cylGeom.shape.(CylinderShape)
	cylPos := cylGeom.position
	cylAxis := cyl.Axis(cylGeom.rotation)
	radius := cyl.Radius
	halfLen := 0.5 * cyl.Length

	edges := [3]mgl64.Vec3{v1.Sub(v0), v2.Sub(v1), v0.Sub(v2)}
	triNormal := edges[0].Cross(edges[1])
	triCenter := v0.Add(v1).Add(v2).Mul(1.0 / 3.0)
	verts := [3]mgl64.Vec3{v0, v1, v2}

	sat := satState{}
	eps := tun.EpsAxis
	test := func(idx int, u mgl64.Vec3) bool {
		return testCylTriAxis(&sat, idx, u, cylPos, cylAxis, radius, halfLen,
			v0, v1, v2, triCenter, eps)
	}

	axisIndex := 0

	// Triangle face normal.
	if !test(axisIndex, triNormal) {
		return nil
	}
	axisIndex++

	// The cylinder axis.
	if !test(axisIndex, cylAxis) {
		return nil
	}
	axisIndex++

	// Cylinder axis crossed with each triangle edge.
	for i := 0; i < 3; i++ {
		if !test(axisIndex, cylAxis.Cross(edges[i])) {
			return nil
		}
		axisIndex++
	}

	// Cylinder axis crossed with each vertex offset.
	for i := 0; i < 3; i++ {
		if !test(axisIndex, cylAxis.Cross(verts[i].Sub(cylPos))) {
			return nil
		}
		axisIndex++
	}

	// Cap circle edges against the three triangle edges.
	for side := 0; side < 2; side++ {
		capSign := 1.0
		if side == 1 {
			capSign = -1.0
		}
		capCenter := cylPos.Add(cylAxis.Mul(capSign * halfLen))
		for i := 0; i < 3; i++ {
			a := verts[i]
			b := verts[(i+1)%3]
			q := closestPointOnSegment(capCenter, a, b)

			toEdge := q.Sub(capCenter)
			inPlane := toEdge.Sub(cylAxis.Mul(toEdge.Dot(cylAxis)))
			dir, l := SafeNormalize(inPlane, eps)
			if l == 0.0 {
				continue
			}
			tangent := capCenter.Add(dir.Mul(radius))
			if !test(axisIndex, q.Sub(tangent)) {
				return nil
			}
			axisIndex++
		}
	}

	if !sat.found {
		return nil
	}

	n := sat.normal
	cosTheta := n.Dot(cylAxis)

	var out []Contact
	if math.Abs(cosTheta) < cylinderSideClipCos {
		out = clipCylinderEdgeAgainstTriangle(cylGeom, meshGeom, n, cylAxis,
			radius, halfLen, verts, triNormal, eps)
	} else {
		out = clipTriangleAgainstCap(cylGeom, meshGeom, n, cylAxis, radius,
			halfLen, sat.depth, verts, tun)
	}

	if len(out) > maxContacts {
		out = out[:maxContacts]
	}
	return out
}

/// The side-edge strategy against a triangle: the cylinder's offset
/// centerline segment is clipped by the prism of the triangle's edges and
/// each surviving endpoint gets its own depth along the normal.
func clipCylinderEdgeAgainstTriangle(cylGeom, meshGeom *Geom, n, cylAxis mgl64.Vec3,
	radius, halfLen float64, verts [3]mgl64.Vec3, triNormal mgl64.Vec3,
	epsAxis float64) []Contact {

	toTri := n.Mul(-1.0)
	inPlane := toTri.Sub(cylAxis.Mul(toTri.Dot(cylAxis)))
	dir, l := SafeNormalize(inPlane, epsAxis)
	if l == 0.0 {
		return nil
	}

	offset := dir.Mul(radius)
	p0 := cylGeom.position.Sub(cylAxis.Mul(halfLen)).Add(offset)
	p1 := cylGeom.position.Add(cylAxis.Mul(halfLen)).Add(offset)

	tn, tl := SafeNormalize(triNormal, epsAxis)
	if tl == 0.0 {
		return nil
	}

	// Clip the segment parameter range by the three inward edge planes.
	t0, t1 := 0.0, 1.0
	seg := p1.Sub(p0)
	for i := 0; i < 3; i++ {
		a := verts[i]
		b := verts[(i+1)%3]
		inward := tn.Cross(b.Sub(a))
		inw, il := SafeNormalize(inward, epsAxis)
		if il == 0.0 {
			continue
		}
		// Keep inw·x >= inw·a.
		d0 := inw.Dot(p0.Sub(a))
		dd := inw.Dot(seg)
		if math.Abs(dd) < 1e-12 {
			if d0 < 0.0 {
				return nil
			}
			continue
		}
		t := -d0 / dd
		if dd > 0.0 {
			t0 = maxFloat64(t0, t)
		} else {
			t1 = minFloat(t1, t)
		}
		if t0 > t1 {
			return nil
		}
	}

	_, triHi := triangleProjection(n, verts[0], verts[1], verts[2])

	out := make([]Contact, 0, 2)
	for _, t := range []float64{t0, t1} {
		p := p0.Add(seg.Mul(t))
		depth := triHi - p.Dot(n)
		if depth < 0.0 {
			depth = 0.0
		}
		out = append(out, Contact{
			Position: p,
			Normal:   n,
			Depth:    depth,
			G1:       cylGeom,
			G2:       meshGeom,
		})
		if t1-t0 < 1e-12 {
			break
		}
	}
	return out
}

/// The cap strategy against a triangle: the triangle polygon is clipped by
/// the cap circle's halfplanes, like the box face in the box case.
func clipTriangleAgainstCap(cylGeom, meshGeom *Geom, n, cylAxis mgl64.Vec3,
	radius, halfLen, satDepth float64, verts [3]mgl64.Vec3, tun *Tunables) []Contact {

	poly := []mgl64.Vec3{verts[0], verts[1], verts[2]}

	p, q := PlaneSpace(cylAxis)
	segments := tun.CapSegments
	for k := 0; k < segments && len(poly) > 0; k++ {
		theta := 2.0 * math.Pi * float64(k) / float64(segments)
		dir := p.Mul(math.Cos(theta)).Add(q.Mul(math.Sin(theta)))
		offset := cylGeom.position.Dot(dir) + radius
		poly = clipPolygonHalfplane(poly, dir, offset, tun.EpsClip)
	}

	out := make([]Contact, 0, len(poly))
	for _, vert := range poly {
		// Axial overlap with the cylinder slab, as in the box cap case.
		rel := vert.Sub(cylGeom.position)
		depth := halfLen - math.Abs(rel.Dot(cylAxis))
		if depth > satDepth {
			depth = satDepth
		}
		if depth < 0.0 {
			depth = 0.0
		}
		out = append(out, Contact{
			Position: vert,
			Normal:   n,
			Depth:    depth,
			G1:       cylGeom,
			G2:       meshGeom,
		})
	}
	return out
}
