package physics

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

/// The simulation world: owns bodies and joints, drives one broad-phase
/// space, and runs the fixed COLLECT, ASSEMBLE, SOLVE, INTEGRATE, RESET
/// sequence every Step. Everything is strictly single-threaded; the world
/// is locked for the duration of a step and rejects structural mutation
/// until it completes.
type World struct {
	tunables Tunables
	space    Space

	bodies []*Body
	joints []Joint

	arena    *ScratchArena
	contacts []Contact

	warm        map[rowKey]float64
	rng         *rand.Rand
	bodyIndices map[*Body]int

	// Last solve, kept for inspection.
	lastLambda []float64
	lastRows   []ConstraintRow

	locked    bool
	stepCount int
}

/// NewWorld creates a world stepping the given space with the given
/// tunables. Invalid tunables are a configuration error.
func NewWorld(space Space, tunables Tunables) (*World, error) {
	if err := tunables.Validate(); err != nil {
		return nil, err
	}
	return &World{
		tunables: tunables,
		space:    space,
		arena:    NewScratchArena(),
		rng:      rand.New(rand.NewSource(0)),
	}, nil
}

func (w *World) Space() Space {
	return w.space
}

func (w *World) Tunables() Tunables {
	return w.tunables
}

/// SetGravity replaces the world gravity vector.
func (w *World) SetGravity(g mgl64.Vec3) {
	w.tunables.Gravity = [3]float64{g.X(), g.Y(), g.Z()}
}

/// Locked reports whether a step is in progress.
func (w *World) Locked() bool {
	return w.locked
}

/// CreateBody adds a dynamic body with unit mass and identity inertia.
func (w *World) CreateBody() (*Body, error) {
	if w.locked {
		return nil, errors.New("physics: world is locked mid-step; cannot create body")
	}
	b := newBody(w)
	w.bodies = append(w.bodies, b)
	return b, nil
}

/// DestroyBody removes a body, detaching its geoms and invalidating any
/// joint that references it. The joints are removed on the next step.
func (w *World) DestroyBody(b *Body) error {
	if w.locked {
		return errors.New("physics: world is locked mid-step; cannot destroy body")
	}
	if b.destroyed || b.world != w {
		return errors.New("physics: body does not belong to this world")
	}
	for i, ob := range w.bodies {
		if ob == b {
			w.bodies = append(w.bodies[:i], w.bodies[i+1:]...)
			break
		}
	}
	b.invalidate()
	return nil
}

/// CreateBallJoint pins worldAnchor on both bodies. body2 may be nil to
/// anchor against the static world.
func (w *World) CreateBallJoint(body1, body2 *Body, worldAnchor mgl64.Vec3) (*BallJoint, error) {
	if err := w.checkJointBodies(body1, body2); err != nil {
		return nil, err
	}
	j := &BallJoint{
		body1:   body1,
		body2:   body2,
		anchor1: body1.rotation.Transpose().Mul3x1(worldAnchor.Sub(body1.position)),
	}
	if body2 != nil {
		j.anchor2 = body2.rotation.Transpose().Mul3x1(worldAnchor.Sub(body2.position))
	} else {
		j.anchor2 = worldAnchor
	}
	w.joints = append(w.joints, j)
	return j, nil
}

/// CreateHingeJoint pins worldAnchor and aligns worldAxis on both bodies,
/// leaving rotation about the axis free. Stops default to disabled.
func (w *World) CreateHingeJoint(body1, body2 *Body, worldAnchor, worldAxis mgl64.Vec3) (*HingeJoint, error) {
	if err := w.checkJointBodies(body1, body2); err != nil {
		return nil, err
	}
	axis, l := SafeNormalize(worldAxis, 1e-9)
	if l == 0.0 {
		return nil, errors.New("physics: hinge axis is degenerate")
	}

	j := &HingeJoint{
		body1:   body1,
		body2:   body2,
		anchor1: body1.rotation.Transpose().Mul3x1(worldAnchor.Sub(body1.position)),
		axis1:   body1.rotation.Transpose().Mul3x1(axis),
		LoStop:  1.0,
		HiStop:  -1.0, // disabled
	}
	q2 := mgl64.QuatIdent()
	if body2 != nil {
		j.anchor2 = body2.rotation.Transpose().Mul3x1(worldAnchor.Sub(body2.position))
		j.axis2 = body2.rotation.Transpose().Mul3x1(axis)
		q2 = body2.quat
	} else {
		j.anchor2 = worldAnchor
		j.axis2 = axis
	}
	j.qInitInv = body1.quat.Inverse().Mul(q2).Inverse()

	w.joints = append(w.joints, j)
	return j, nil
}

/// DestroyJoint removes a joint from the world.
func (w *World) DestroyJoint(j Joint) error {
	if w.locked {
		return errors.New("physics: world is locked mid-step; cannot destroy joint")
	}
	for i, oj := range w.joints {
		if oj == j {
			w.joints = append(w.joints[:i], w.joints[i+1:]...)
			return nil
		}
	}
	return errors.New("physics: joint does not belong to this world")
}

func (w *World) checkJointBodies(body1, body2 *Body) error {
	if w.locked {
		return errors.New("physics: world is locked mid-step; cannot create joint")
	}
	if body1 == nil || body1.destroyed {
		return errors.New("physics: joint references a nil or destroyed body")
	}
	if body2 != nil && body2.destroyed {
		return errors.New("physics: joint references a destroyed body")
	}
	return nil
}

/// Contacts returns the contact list produced by the last step's COLLECT
/// phase. Valid until the next Step call.
func (w *World) Contacts() []Contact {
	return w.contacts
}

/// StepCount returns the number of completed steps.
func (w *World) StepCount() int {
	return w.stepCount
}

/// Step advances the simulation by h seconds. The five phases always run
/// in order and to completion; scratch memory is returned to the arena on
/// every exit path.
func (w *World) Step(h float64) error {
	if w.locked {
		return errors.New("physics: world is already stepping")
	}
	if h <= 0.0 || !IsValid(h) {
		return errors.Errorf("physics: timestep %g must be positive and finite", h)
	}

	w.locked = true
	defer func() {
		// RESET: accumulators and scratch go regardless of how the step
		// ended.
		for _, b := range w.bodies {
			b.force = mgl64.Vec3{}
			b.torque = mgl64.Vec3{}
		}
		w.arena.Release()
		w.locked = false
	}()

	// Drop joints invalidated by body destruction.
	valid := w.joints[:0]
	for _, j := range w.joints {
		if j.IsValid() {
			valid = append(valid, j)
		}
	}
	w.joints = valid

	// COLLECT: broad phase feeds narrow phase; contacts reflect geometry
	// exactly as of the start of this step.
	w.contacts = w.contacts[:0]
	if w.space != nil {
		if err := w.space.Collide(w, worldNearCallback); err != nil {
			return err
		}
	}

	// ASSEMBLE, SOLVE, INTEGRATE.
	w.quickStep(h)

	w.stepCount++
	return nil
}

func worldNearCallback(userData interface{}, g1, g2 *Geom) {
	w := userData.(*World)
	cs := CollidePairWith(g1, g2, w.tunables.MaxContacts, &w.tunables)
	w.contacts = append(w.contacts, cs...)
}
