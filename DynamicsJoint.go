package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

/// One scalar constraint equation. Joints and contacts fill these in
/// during assembly; bounds, CFM and the friction coupling index feed the
/// SOR-LCP solve.
type ConstraintRow struct {
	/// 1x12 Jacobian block: linear and angular parts for each body.
	/// Zero-padded when only one body participates.
	J1Lin mgl64.Vec3
	J1Ang mgl64.Vec3
	J2Lin mgl64.Vec3
	J2Ang mgl64.Vec3

	/// Desired constraint-space velocity, typically the ERP-scaled
	/// position error times 1/h. The solver subtracts the current J·v.
	RHS float64

	/// Per-row constraint force mixing, added to the global value.
	CFM float64

	/// Impulse bounds. For a friction row these are recomputed every
	/// sweep as ±Mu·lambda[FIndex].
	Lo float64
	Hi float64

	/// Friction coupling: global index of the normal row whose current
	/// solved value bounds this row, or -1.
	FIndex int

	/// Friction coefficient, used only when FIndex >= 0.
	Mu float64

	/// Solver body indices, -1 for the static world.
	Body1 int
	Body2 int
}

/// A joint connects two bodies (the second may be nil, meaning the static
/// world) and contributes constraint rows each step. A joint referencing
/// a destroyed body becomes invalid and is skipped, then removed.
type Joint interface {
	Bodies() (*Body, *Body)

	/// NumRows returns how many rows the joint contributes this step.
	NumRows() int

	/// BuildRows fills rows[0:NumRows]. fps is 1/h; erp the world error
	/// reduction parameter. Body indices and FIndex translation are the
	/// assembler's job.
	BuildRows(rows []ConstraintRow, fps, erp float64)

	/// IsValid reports whether both body references are alive.
	IsValid() bool
}

func jointBodiesValid(b1, b2 *Body) bool {
	if b1 == nil || b1.destroyed {
		return false
	}
	if b2 != nil && b2.destroyed {
		return false
	}
	return true
}

///////////////////////////////////////////////////////////////////////////////
// Ball and socket
///////////////////////////////////////////////////////////////////////////////

/// BallJoint pins an anchor point on each body together: three rows, one
/// per world axis.
type BallJoint struct {
	body1 *Body
	body2 *Body

	/// Anchors in each body's local frame.
	anchor1 mgl64.Vec3
	anchor2 mgl64.Vec3
}

func (j *BallJoint) Bodies() (*Body, *Body) {
	return j.body1, j.body2
}

func (j *BallJoint) NumRows() int {
	return 3
}

func (j *BallJoint) IsValid() bool {
	return jointBodiesValid(j.body1, j.body2)
}

/// anchorArms returns the world-space anchor offsets from each body's
/// center and the positional error between the anchor points.
func (j *BallJoint) anchorArms() (mgl64.Vec3, mgl64.Vec3, mgl64.Vec3) {
	r1 := j.body1.rotation.Mul3x1(j.anchor1)
	p1 := j.body1.position.Add(r1)

	var r2, p2 mgl64.Vec3
	if j.body2 != nil {
		r2 = j.body2.rotation.Mul3x1(j.anchor2)
		p2 = j.body2.position.Add(r2)
	} else {
		p2 = j.anchor2 // world-frame anchor
	}
	return r1, r2, p1.Sub(p2)
}

func (j *BallJoint) BuildRows(rows []ConstraintRow, fps, erp float64) {
	r1, r2, cerr := j.anchorArms()

	for i := 0; i < 3; i++ {
		var axis mgl64.Vec3
		axis[i] = 1.0

		row := &rows[i]
		row.J1Lin = axis
		row.J1Ang = r1.Cross(axis)
		row.J2Lin = axis.Mul(-1.0)
		row.J2Ang = r2.Cross(axis).Mul(-1.0)
		row.RHS = -erp * fps * cerr[i]
		row.Lo = math.Inf(-1)
		row.Hi = math.Inf(1)
		row.FIndex = -1
	}
}

///////////////////////////////////////////////////////////////////////////////
// Hinge
///////////////////////////////////////////////////////////////////////////////

/// HingeJoint behaves as a ball joint plus two angular rows that keep the
/// bodies' hinge axes aligned, leaving one rotational degree of freedom.
/// Optional stops add a sixth, one-sided row when violated.
type HingeJoint struct {
	body1 *Body
	body2 *Body

	anchor1 mgl64.Vec3
	anchor2 mgl64.Vec3

	/// Hinge axis in each body's local frame.
	axis1 mgl64.Vec3
	axis2 mgl64.Vec3

	/// Initial relative orientation, captured at creation, from which the
	/// hinge angle is measured.
	qInitInv mgl64.Quat

	/// Stop angles; LoStop > HiStop disables limits.
	LoStop float64
	HiStop float64

	/// Extra softness on the limit row.
	StopCFM float64
}

func (j *HingeJoint) Bodies() (*Body, *Body) {
	return j.body1, j.body2
}

func (j *HingeJoint) IsValid() bool {
	return jointBodiesValid(j.body1, j.body2)
}

/// worldAxes returns each body's hinge axis in world space.
func (j *HingeJoint) worldAxes() (mgl64.Vec3, mgl64.Vec3) {
	a1 := j.body1.rotation.Mul3x1(j.axis1)
	a2 := j.axis2
	if j.body2 != nil {
		a2 = j.body2.rotation.Mul3x1(j.axis2)
	}
	return a1, a2
}

/// Angle returns the current hinge angle in radians, measured from the
/// configuration at creation.
func (j *HingeJoint) Angle() float64 {
	q2 := mgl64.QuatIdent()
	if j.body2 != nil {
		q2 = j.body2.quat
	}
	// Relative rotation since creation, expressed about the local axis.
	// Negated so that body1 rotating positively about the axis gives a
	// positive angle, matching the stop row's Jacobian (J1Ang = +axis).
	rel := j.body1.quat.Inverse().Mul(q2).Mul(j.qInitInv)
	s := rel.V.Dot(j.axis1)
	return -2.0 * math.Atan2(s, rel.W)
}

func (j *HingeJoint) limitActive() (bool, float64, float64) {
	if j.LoStop > j.HiStop {
		return false, 0.0, 0.0
	}
	angle := j.Angle()
	if angle < j.LoStop {
		return true, j.LoStop - angle, 1.0
	}
	if angle > j.HiStop {
		return true, j.HiStop - angle, -1.0
	}
	return false, 0.0, 0.0
}

func (j *HingeJoint) NumRows() int {
	if active, _, _ := j.limitActive(); active {
		return 6
	}
	return 5
}

func (j *HingeJoint) BuildRows(rows []ConstraintRow, fps, erp float64) {
	// Rows 0-2: the ball part.
	ball := BallJoint{body1: j.body1, body2: j.body2, anchor1: j.anchor1, anchor2: j.anchor2}
	ball.BuildRows(rows[:3], fps, erp)

	// Rows 3-4: keep the axes aligned. With p,q spanning the plane
	// perpendicular to axis1, the alignment error is axis1 x axis2
	// projected on p and q.
	a1, a2 := j.worldAxes()
	p, q := PlaneSpace(a1)
	errVec := a1.Cross(a2)

	for i, t := range []mgl64.Vec3{p, q} {
		row := &rows[3+i]
		row.J1Ang = t
		row.J2Ang = t.Mul(-1.0)
		row.RHS = erp * fps * t.Dot(errVec)
		row.Lo = math.Inf(-1)
		row.Hi = math.Inf(1)
		row.FIndex = -1
	}

	// Row 5: a one-sided stop when a limit is violated.
	if active, violation, sign := j.limitActive(); active {
		row := &rows[5]
		row.J1Ang = a1
		row.J2Ang = a1.Mul(-1.0)
		row.RHS = erp * fps * violation
		row.CFM = j.StopCFM
		row.FIndex = -1
		if sign > 0.0 {
			row.Lo = 0.0
			row.Hi = math.Inf(1)
		} else {
			row.Lo = math.Inf(-1)
			row.Hi = 0.0
		}
	}
}
