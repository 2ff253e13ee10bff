package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

///////////////////////////////////////////////////////////////////////////////
// Quickstep: constraint assembly, SOR-LCP iterative solve, integration.
//
// Per step: COLLECT has already produced the contact list. ASSEMBLE turns
// joints and contacts into constraint rows. SOLVE runs projected
// Gauss-Seidel with over-relaxation on the rows, accumulating each body's
// velocity-space impulse. INTEGRATE applies it and advances positions.
///////////////////////////////////////////////////////////////////////////////

/// Smallest diagonal the solver will divide by. Degenerate rows (duplicate
/// joints, zero-length axes) are clamped here instead of dividing by zero.
const minDiagonal = 1e-12

// Identifies a row across steps for warm starting: the joint (or geom
// pair) that produced it plus the row slot within it.
type rowKey struct {
	src1 interface{}
	src2 interface{}
	slot int
}

// Precomputed invM * Jᵀ for one row.
type rowIMJ struct {
	lin1 mgl64.Vec3
	ang1 mgl64.Vec3
	lin2 mgl64.Vec3
	ang2 mgl64.Vec3
}

// A solver group: the rows of one joint or one contact. Shuffling permutes
// groups, never rows within a group, so a friction row can never be solved
// before the normal row it is coupled to.
type rowGroup struct {
	start int
	count int
}

func (w *World) quickStep(h float64) {
	tun := &w.tunables
	fps := 1.0 / h
	gravity := mgl64.Vec3{tun.Gravity[0], tun.Gravity[1], tun.Gravity[2]}

	bodies := w.bodies
	nb := len(bodies)
	w.bodyIndices = make(map[*Body]int, nb)
	for i, b := range bodies {
		w.bodyIndices[b] = i
	}

	// Velocity snapshot for per-body rollback on numerical failure.
	prevLin := make([]mgl64.Vec3, nb)
	prevAng := make([]mgl64.Vec3, nb)
	for i, b := range bodies {
		prevLin[i] = b.linVel
		prevAng[i] = b.angVel
		b.flags &= ^BodyFlags.E_updateRejected
	}

	// Integrate external forces and gravity into velocity first; the
	// constraint right-hand sides then see the unconstrained velocities.
	for _, b := range bodies {
		f := b.force
		if !b.GravityIgnored() {
			f = f.Add(gravity.Mul(b.mass))
		}
		b.linVel = b.linVel.Add(f.Mul(h * b.invMass))
		b.angVel = b.angVel.Add(b.InvInertiaWorld().Mul3x1(b.torque).Mul(h))
	}

	// ASSEMBLE.
	rows, groups, keys := w.assembleRows(fps)
	if len(rows) > 0 {
		w.solveLCP(rows, groups, keys, nb)
	}

	// INTEGRATE positions, rejecting non-finite bodies.
	for i, b := range bodies {
		if !IsValidVec(b.linVel) || !IsValidVec(b.angVel) {
			b.linVel = prevLin[i]
			b.angVel = prevAng[i]
			b.flags |= BodyFlags.E_updateRejected
			continue
		}
		b.position = b.position.Add(b.linVel.Mul(h))
		b.quat = QuatFromAngularVelocity(b.quat, b.angVel, h)
		b.rotation = b.quat.Mat4().Mat3()
		b.syncGeoms()
	}
}

/// assembleRows builds the step's constraint rows: first every valid
/// joint, then one normal row plus up to two friction rows per contact.
func (w *World) assembleRows(fps float64) ([]ConstraintRow, []rowGroup, []rowKey) {
	tun := &w.tunables
	erp := tun.ERP
	withFriction := tun.Friction >= 0.0

	total := 0
	for _, j := range w.joints {
		if j.IsValid() {
			total += j.NumRows()
		}
	}
	perContact := 1
	if withFriction {
		perContact = 3
	}
	total += perContact * len(w.contacts)

	rows := make([]ConstraintRow, 0, total)
	groups := make([]rowGroup, 0, len(w.joints)+len(w.contacts))
	keys := make([]rowKey, 0, total)

	for _, j := range w.joints {
		if !j.IsValid() {
			continue
		}
		n := j.NumRows()
		base := len(rows)
		rows = rows[:base+n]
		for i := range rows[base:] {
			rows[base+i] = ConstraintRow{FIndex: -1, Body1: -1, Body2: -1}
		}
		j.BuildRows(rows[base:base+n], fps, erp)

		b1, b2 := j.Bodies()
		for i := base; i < base+n; i++ {
			rows[i].Body1 = w.solverBodyIndex(b1)
			rows[i].Body2 = w.solverBodyIndex(b2)
			keys = append(keys, rowKey{src1: j, slot: i - base})
		}
		groups = append(groups, rowGroup{start: base, count: n})
	}

	// Multiple contacts between one geom pair get distinct warm-start
	// slots via a per-pair ordinal.
	pairOrdinal := make(map[[2]*Geom]int)

	for _, c := range w.contacts {
		b1 := c.G1.body
		b2 := c.G2.body
		if b1 == nil && b2 == nil {
			continue
		}

		pair := [2]*Geom{c.G1, c.G2}
		ord := pairOrdinal[pair]
		pairOrdinal[pair] = ord + 1

		base := len(rows)
		n := c.Normal

		var r1, r2 mgl64.Vec3
		if b1 != nil {
			r1 = c.Position.Sub(b1.position)
		}
		if b2 != nil {
			r2 = c.Position.Sub(b2.position)
		}

		normal := ConstraintRow{
			J1Lin:  n,
			J1Ang:  r1.Cross(n),
			J2Lin:  n.Mul(-1.0),
			J2Ang:  r2.Cross(n).Mul(-1.0),
			RHS:    erp * fps * c.Depth,
			Lo:     0.0,
			Hi:     math.Inf(1),
			FIndex: -1,
			Body1:  w.solverBodyIndex(b1),
			Body2:  w.solverBodyIndex(b2),
		}
		rows = append(rows, normal)
		keys = append(keys, rowKey{src1: c.G1, src2: c.G2, slot: 3 * ord})

		count := 1
		if withFriction {
			p, q := PlaneSpace(n)
			for fi, t := range []mgl64.Vec3{p, q} {
				rows = append(rows, ConstraintRow{
					J1Lin:  t,
					J1Ang:  r1.Cross(t),
					J2Lin:  t.Mul(-1.0),
					J2Ang:  r2.Cross(t).Mul(-1.0),
					RHS:    0.0,
					FIndex: base, // coupled to the normal row
					Mu:     tun.Friction,
					Body1:  normal.Body1,
					Body2:  normal.Body2,
				})
				keys = append(keys, rowKey{src1: c.G1, src2: c.G2, slot: 3*ord + 1 + fi})
				count++
			}
		}
		groups = append(groups, rowGroup{start: base, count: count})
	}

	return rows, groups, keys
}

func (w *World) solverBodyIndex(b *Body) int {
	if b == nil {
		return -1
	}
	return w.bodyIndices[b]
}

func (w *World) solveLCP(rows []ConstraintRow, groups []rowGroup,
	keys []rowKey, nb int) {

	tun := &w.tunables
	nr := len(rows)
	arena := w.arena

	lambda := arena.Floats(nr)
	b0 := arena.Floats(nr)
	ad := arena.Floats(nr)
	cfm := arena.Floats(nr)

	iMJ := make([]rowIMJ, nr)

	// fc accumulates each body's velocity-space impulse: 6 scalars per
	// body, linear then angular.
	fc := arena.Floats(6 * nb)
	fcLin := func(i int) mgl64.Vec3 { return mgl64.Vec3{fc[6*i], fc[6*i+1], fc[6*i+2]} }
	fcAng := func(i int) mgl64.Vec3 { return mgl64.Vec3{fc[6*i+3], fc[6*i+4], fc[6*i+5]} }
	addFc := func(i int, lin, ang mgl64.Vec3) {
		fc[6*i] += lin.X()
		fc[6*i+1] += lin.Y()
		fc[6*i+2] += lin.Z()
		fc[6*i+3] += ang.X()
		fc[6*i+4] += ang.Y()
		fc[6*i+5] += ang.Z()
	}

	// Precompute invM·Jᵀ, the scaled diagonal, and the right-hand side
	// b0 = rhs − J·v against the unconstrained velocities.
	for i := range rows {
		r := &rows[i]
		cfm[i] = tun.CFM + r.CFM

		var jv float64
		if r.Body1 >= 0 {
			body := w.bodies[r.Body1]
			iMJ[i].lin1 = r.J1Lin.Mul(body.invMass)
			iMJ[i].ang1 = body.InvInertiaWorld().Mul3x1(r.J1Ang)
			jv += r.J1Lin.Dot(body.linVel) + r.J1Ang.Dot(body.angVel)
		}
		if r.Body2 >= 0 {
			body := w.bodies[r.Body2]
			iMJ[i].lin2 = r.J2Lin.Mul(body.invMass)
			iMJ[i].ang2 = body.InvInertiaWorld().Mul3x1(r.J2Ang)
			jv += r.J2Lin.Dot(body.linVel) + r.J2Ang.Dot(body.angVel)
		}
		b0[i] = r.RHS - jv

		diag := cfm[i]
		if r.Body1 >= 0 {
			diag += r.J1Lin.Dot(iMJ[i].lin1) + r.J1Ang.Dot(iMJ[i].ang1)
		}
		if r.Body2 >= 0 {
			diag += r.J2Lin.Dot(iMJ[i].lin2) + r.J2Ang.Dot(iMJ[i].ang2)
		}
		if diag < minDiagonal {
			diag = minDiagonal
		}
		ad[i] = tun.SOROmega / diag
	}

	// Warm start from the previous step's impulses, keyed by source and
	// row slot.
	if tun.WarmStart && w.warm != nil {
		for i := range rows {
			if prev, ok := w.warm[keys[i]]; ok {
				lambda[i] = prev
				r := &rows[i]
				if r.Body1 >= 0 {
					addFc(r.Body1, iMJ[i].lin1.Mul(prev), iMJ[i].ang1.Mul(prev))
				}
				if r.Body2 >= 0 {
					addFc(r.Body2, iMJ[i].lin2.Mul(prev), iMJ[i].ang2.Mul(prev))
				}
			}
		}
	}

	order := make([]int, len(groups))
	for i := range order {
		order[i] = i
	}

	for iter := 0; iter < tun.Iterations; iter++ {
		if tun.Shuffle {
			w.rng.Shuffle(len(order), func(i, j int) {
				order[i], order[j] = order[j], order[i]
			})
		}

		for _, gi := range order {
			g := groups[gi]
			for i := g.start; i < g.start+g.count; i++ {
				r := &rows[i]

				// Friction bounds follow the coupled normal row's
				// current iterate.
				if r.FIndex >= 0 {
					f := r.Mu * math.Abs(lambda[r.FIndex])
					r.Lo = -f
					r.Hi = f
				}

				residual := b0[i] - cfm[i]*lambda[i]
				if r.Body1 >= 0 {
					residual -= r.J1Lin.Dot(fcLin(r.Body1)) + r.J1Ang.Dot(fcAng(r.Body1))
				}
				if r.Body2 >= 0 {
					residual -= r.J2Lin.Dot(fcLin(r.Body2)) + r.J2Ang.Dot(fcAng(r.Body2))
				}

				newLambda := Clamp(lambda[i]+ad[i]*residual, r.Lo, r.Hi)
				delta := newLambda - lambda[i]
				lambda[i] = newLambda

				if delta != 0.0 {
					if r.Body1 >= 0 {
						addFc(r.Body1, iMJ[i].lin1.Mul(delta), iMJ[i].ang1.Mul(delta))
					}
					if r.Body2 >= 0 {
						addFc(r.Body2, iMJ[i].lin2.Mul(delta), iMJ[i].ang2.Mul(delta))
					}
				}
			}
		}
	}

	// The accumulated fc is already invM·Jᵀ·λ in velocity space; apply it
	// once.
	for i, b := range w.bodies {
		b.linVel = b.linVel.Add(fcLin(i))
		b.angVel = b.angVel.Add(fcAng(i))
	}

	if tun.WarmStart {
		if w.warm == nil {
			w.warm = make(map[rowKey]float64, nr)
		} else {
			for k := range w.warm {
				delete(w.warm, k)
			}
		}
		for i := range rows {
			w.warm[keys[i]] = lambda[i]
		}
	}

	// Expose the step's solved impulses for inspection and tests.
	w.lastLambda = append(w.lastLambda[:0], lambda...)
	w.lastRows = rows
}
