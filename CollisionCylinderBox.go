package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

///////////////////////////////////////////////////////////////////////////////
// Cylinder vs box: separating-axis test followed by one of two clipping
// strategies, selected by the angle between the contact normal and the
// cylinder axis.
///////////////////////////////////////////////////////////////////////////////

// Tracks the minimum-depth axis across the candidate walk.
type satState struct {
	normal mgl64.Vec3
	depth  float64
	index  int
	found  bool
}

/// cylinderHalfProjection is the cylinder's projected half extent on the
/// unit axis u: an axial slab term plus the radius scaled by the sine of
/// the angle between u and the cylinder axis.
func cylinderHalfProjection(u, axis mgl64.Vec3, radius, halfLen float64) float64 {
	c := u.Dot(axis)
	s2 := 1.0 - c*c
	if s2 < 0.0 {
		s2 = 0.0
	}
	return halfLen*math.Abs(c) + radius*math.Sqrt(s2)
}

/// testCylBoxAxis projects both shapes onto the candidate axis and either
/// rules out contact (true return with found=false in sat) or folds the
/// axis into the running minimum. Degenerate axes are skipped. The axis is
/// oriented from the box toward the cylinder before bookkeeping so the
/// final normal obeys the dispatch convention.
func testCylBoxAxis(sat *satState, axisIndex int, u mgl64.Vec3,
	cylPos, cylAxis mgl64.Vec3, radius, halfLen float64,
	boxPos mgl64.Vec3, boxRot mgl64.Mat3, boxHalf mgl64.Vec3, epsAxis float64) bool {

	un, l := SafeNormalize(u, epsAxis)
	if l == 0.0 {
		return true // degenerate axis cannot separate
	}

	cylProj := cylinderHalfProjection(un, cylAxis, radius, halfLen)
	boxProj := 0.0
	for i := 0; i < 3; i++ {
		col := mgl64.Vec3{boxRot.At(0, i), boxRot.At(1, i), boxRot.At(2, i)}
		boxProj += math.Abs(un.Dot(col)) * boxHalf[i]
	}

	sep := cylPos.Sub(boxPos)
	dist := sep.Dot(un)
	depth := cylProj + boxProj - math.Abs(dist)
	if depth < 0.0 {
		return false // separated; early exit
	}

	if !sat.found || depth < sat.depth {
		if dist < 0.0 {
			un = un.Mul(-1.0)
		}
		sat.normal = un
		sat.depth = depth
		sat.index = axisIndex
		sat.found = true
	}
	return true
}

func collideCylinderBox(cylGeom, boxGeom *Geom, maxContacts int, tun *Tunables) []Contact {
	cyl := cylGeom.shape.(CylinderShape)
	box := boxGeom.shape.(BoxShape)

	cylPos := cylGeom.position
	cylAxis := cyl.Axis(cylGeom.rotation)
	radius := cyl.Radius
	halfLen := 0.5 * cyl.Length

	boxPos := boxGeom.position
	boxRot := boxGeom.rotation
	boxHalf := box.HalfExtents

	var boxAxes [3]mgl64.Vec3
	for i := 0; i < 3; i++ {
		boxAxes[i] = mgl64.Vec3{boxRot.At(0, i), boxRot.At(1, i), boxRot.At(2, i)}
	}

	// The 8 box corners in world space.
	var corners [8]mgl64.Vec3
	for i := 0; i < 8; i++ {
		v := boxPos
		for j := 0; j < 3; j++ {
			s := boxHalf[j]
			if i&(1<<uint(j)) != 0 {
				s = -s
			}
			v = v.Add(boxAxes[j].Mul(s))
		}
		corners[i] = v
	}

	sat := satState{}
	eps := tun.EpsAxis
	test := func(idx int, u mgl64.Vec3) bool {
		return testCylBoxAxis(&sat, idx, u, cylPos, cylAxis, radius, halfLen,
			boxPos, boxRot, boxHalf, eps)
	}

	// Fixed candidate order: box face normals first.
	axisIndex := 0
	for i := 0; i < 3; i++ {
		if !test(axisIndex, boxAxes[i]) {
			return nil
		}
		axisIndex++
	}

	// The cylinder axis.
	if !test(axisIndex, cylAxis) {
		return nil
	}
	axisIndex++

	// Cylinder axis crossed with each box axis.
	for i := 0; i < 3; i++ {
		if !test(axisIndex, cylAxis.Cross(boxAxes[i])) {
			return nil
		}
		axisIndex++
	}

	// Cylinder axis crossed with each corner offset.
	for i := 0; i < 8; i++ {
		if !test(axisIndex, cylAxis.Cross(corners[i].Sub(cylPos))) {
			return nil
		}
		axisIndex++
	}

	// Cap circle edges against the 12 box edges: for each edge, aim from
	// the cap center at the closest edge point and take the axis from the
	// circle's tangent point to that edge point.
	for side := 0; side < 2; side++ {
		capSign := 1.0
		if side == 1 {
			capSign = -1.0
		}
		capCenter := cylPos.Add(cylAxis.Mul(capSign * halfLen))

		for e := 0; e < 12; e++ {
			p1, p2 := boxEdge(&corners, e)
			q := closestPointOnSegment(capCenter, p1, p2)

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
		// Every candidate axis was degenerate; refuse to fabricate a
		// contact.
		return nil
	}

	n := sat.normal
	cosTheta := n.Dot(cylAxis)

	var out []Contact
	if math.Abs(cosTheta) < cylinderSideClipCos {
		out = clipCylinderEdgeAgainstBox(cylGeom, boxGeom, n, cylAxis, radius, halfLen, eps)
	} else {
		out = clipBoxFaceAgainstCap(cylGeom, boxGeom, n, cylAxis, radius, halfLen, sat.depth, tun)
	}

	if len(out) > maxContacts {
		out = out[:maxContacts]
	}
	return out
}

// Corner-pair table for the 12 box edges. Corners index bit j selects the
// sign of half extent j.
var boxEdgeCorners = [12][2]int{
	{0, 1}, {2, 3}, {4, 5}, {6, 7}, // edges along axis 0
	{0, 2}, {1, 3}, {4, 6}, {5, 7}, // edges along axis 1
	{0, 4}, {1, 5}, {2, 6}, {3, 7}, // edges along axis 2
}

func boxEdge(corners *[8]mgl64.Vec3, e int) (mgl64.Vec3, mgl64.Vec3) {
	return corners[boxEdgeCorners[e][0]], corners[boxEdgeCorners[e][1]]
}

func closestPointOnSegment(p, a, b mgl64.Vec3) mgl64.Vec3 {
	ab := b.Sub(a)
	denom := ab.Dot(ab)
	if denom < 1e-18 {
		return a
	}
	t := Clamp(p.Sub(a).Dot(ab)/denom, 0.0, 1.0)
	return a.Add(ab.Mul(t))
}

///////////////////////////////////////////////////////////////////////////////
// Strategy 1: contact normal roughly perpendicular to the cylinder axis.
// The cylinder presents its side edge: the centerline segment offset by
// the radius along the in-plane component of the normal, clipped against
// the box's six face slabs.
///////////////////////////////////////////////////////////////////////////////

func clipCylinderEdgeAgainstBox(cylGeom, boxGeom *Geom, n, cylAxis mgl64.Vec3,
	radius, halfLen, epsAxis float64) []Contact {

	// In-plane direction from the cylinder toward the box.
	toBox := n.Mul(-1.0)
	inPlane := toBox.Sub(cylAxis.Mul(toBox.Dot(cylAxis)))
	dir, l := SafeNormalize(inPlane, epsAxis)
	if l == 0.0 {
		return nil
	}

	offset := dir.Mul(radius)
	p0 := cylGeom.position.Sub(cylAxis.Mul(halfLen)).Add(offset)
	p1 := cylGeom.position.Add(cylAxis.Mul(halfLen)).Add(offset)

	// Clip the segment by the box slabs in box-local coordinates.
	rotT := boxGeom.rotation.Transpose()
	l0 := rotT.Mul3x1(p0.Sub(boxGeom.position))
	l1 := rotT.Mul3x1(p1.Sub(boxGeom.position))
	h := boxGeom.shape.(BoxShape).HalfExtents

	t0, t1 := 0.0, 1.0
	d := l1.Sub(l0)
	for i := 0; i < 3; i++ {
		if math.Abs(d[i]) < 1e-12 {
			if l0[i] < -h[i] || l0[i] > h[i] {
				return nil
			}
			continue
		}
		ta := (-h[i] - l0[i]) / d[i]
		tb := (h[i] - l0[i]) / d[i]
		if ta > tb {
			ta, tb = tb, ta
		}
		t0 = maxFloat64(t0, ta)
		t1 = minFloat(t1, tb)
		if t0 > t1 {
			return nil
		}
	}

	boxProj := 0.0
	for i := 0; i < 3; i++ {
		col := mgl64.Vec3{boxGeom.rotation.At(0, i), boxGeom.rotation.At(1, i), boxGeom.rotation.At(2, i)}
		boxProj += math.Abs(n.Dot(col)) * h[i]
	}

	seg := p1.Sub(p0)
	out := make([]Contact, 0, 2)
	for _, t := range []float64{t0, t1} {
		p := p0.Add(seg.Mul(t))
		// Independent penetration of this point along the normal.
		depth := boxProj - p.Sub(boxGeom.position).Dot(n)
		if depth < 0.0 {
			depth = 0.0
		}
		out = append(out, Contact{
			Position: p,
			Normal:   n,
			Depth:    depth,
			G1:       cylGeom,
			G2:       boxGeom,
		})
		if t1-t0 < 1e-12 {
			break // degenerate segment, one point suffices
		}
	}
	return out
}

///////////////////////////////////////////////////////////////////////////////
// Strategy 2: contact normal roughly parallel to the cylinder axis. The
// box face most opposed to the normal is clipped against the cylinder's
// cap circle, approximated by a fixed polygon of halfplanes.
///////////////////////////////////////////////////////////////////////////////

func clipBoxFaceAgainstCap(cylGeom, boxGeom *Geom, n, cylAxis mgl64.Vec3,
	radius, halfLen, satDepth float64, tun *Tunables) []Contact {

	boxRot := boxGeom.rotation
	h := boxGeom.shape.(BoxShape).HalfExtents

	// Pick the box face pointing most along the normal (toward the
	// cylinder).
	bestFace := 0
	bestDot := math.Inf(-1)
	var faceNormal mgl64.Vec3
	for i := 0; i < 3; i++ {
		col := mgl64.Vec3{boxRot.At(0, i), boxRot.At(1, i), boxRot.At(2, i)}
		for _, s := range []float64{1.0, -1.0} {
			d := col.Mul(s).Dot(n)
			if d > bestDot {
				bestDot = d
				bestFace = i
				faceNormal = col.Mul(s)
			}
		}
	}

	// The face's four vertices.
	u := (bestFace + 1) % 3
	v := (bestFace + 2) % 3
	colU := mgl64.Vec3{boxRot.At(0, u), boxRot.At(1, u), boxRot.At(2, u)}
	colV := mgl64.Vec3{boxRot.At(0, v), boxRot.At(1, v), boxRot.At(2, v)}
	center := boxGeom.position.Add(faceNormal.Mul(h[bestFace]))

	poly := []mgl64.Vec3{
		center.Add(colU.Mul(h[u])).Add(colV.Mul(h[v])),
		center.Add(colU.Mul(h[u])).Sub(colV.Mul(h[v])),
		center.Sub(colU.Mul(h[u])).Sub(colV.Mul(h[v])),
		center.Sub(colU.Mul(h[u])).Add(colV.Mul(h[v])),
	}

	// Clip against the cap circle's polygon of halfplanes.
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
		// Per-point axial overlap with the cylinder slab. The lateral
		// offset cannot serve here: every clip vertex of a face covering
		// the whole cap sits on the rim, which would zero all depths for
		// a flat resting contact.
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
			G2:       boxGeom,
		})
	}
	return out
}

/// clipPolygonHalfplane is one Sutherland-Hodgman pass: it keeps the part
/// of poly satisfying x·n <= offset, inserting intersection points where
/// edges cross the plane.
func clipPolygonHalfplane(poly []mgl64.Vec3, n mgl64.Vec3, offset, eps float64) []mgl64.Vec3 {
	if len(poly) == 0 {
		return poly
	}

	out := make([]mgl64.Vec3, 0, len(poly)+2)
	prev := poly[len(poly)-1]
	prevDist := prev.Dot(n) - offset

	for _, cur := range poly {
		curDist := cur.Dot(n) - offset

		prevIn := prevDist <= eps
		curIn := curDist <= eps

		if prevIn && curIn {
			out = append(out, cur)
		} else if prevIn != curIn {
			denom := prevDist - curDist
			if math.Abs(denom) > 1e-15 {
				t := prevDist / denom
				out = append(out, prev.Add(cur.Sub(prev).Mul(t)))
			}
			if curIn {
				out = append(out, cur)
			}
		}

		prev = cur
		prevDist = curDist
	}
	return out
}
