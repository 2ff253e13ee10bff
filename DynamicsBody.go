package physics

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

var BodyFlags = struct {
	E_gravityIgnored uint32
	E_updateRejected uint32
}{
	E_gravityIgnored: 0x0001,
	E_updateRejected: 0x0002,
}

/// A rigid body. Created and destroyed by its owning world; geoms and
/// joints hold non-owning references and are invalidated when the body is
/// destroyed. The orientation quaternion is authoritative; the rotation
/// matrix is derived from it after every change.
type Body struct {
	world *World

	mass       float64
	invMass    float64
	inertia    mgl64.Mat3 // body frame
	invInertia mgl64.Mat3

	position mgl64.Vec3
	quat     mgl64.Quat
	rotation mgl64.Mat3 // derived

	linVel mgl64.Vec3
	angVel mgl64.Vec3

	force  mgl64.Vec3
	torque mgl64.Vec3

	flags uint32

	geoms     []*Geom
	destroyed bool

	/// Use this to store application specific body data.
	UserData interface{}
}

func newBody(w *World) *Body {
	b := &Body{
		world:      w,
		mass:       1.0,
		invMass:    1.0,
		inertia:    mgl64.Ident3(),
		invInertia: mgl64.Ident3(),
		quat:       mgl64.QuatIdent(),
		rotation:   mgl64.Ident3(),
	}
	return b
}

/// SetMass sets the mass and body-frame inertia tensor. A non-positive
/// mass is a configuration error.
func (b *Body) SetMass(mass float64, inertia mgl64.Mat3) error {
	if mass <= 0.0 {
		return errors.Errorf("physics: body mass %g must be positive", mass)
	}
	b.mass = mass
	b.invMass = 1.0 / mass
	b.inertia = inertia
	b.invInertia = inertia.Inv()
	return nil
}

/// SetMassFromShape computes mass and inertia from a shape at the given
/// density.
func (b *Body) SetMassFromShape(shape Shape, density float64) error {
	if density <= 0.0 {
		return errors.Errorf("physics: density %g must be positive", density)
	}
	m, i := shape.ComputeMass(density)
	return b.SetMass(m, i)
}

func (b *Body) Mass() float64 {
	return b.mass
}

func (b *Body) Position() mgl64.Vec3 {
	return b.position
}

func (b *Body) SetPosition(p mgl64.Vec3) {
	b.position = p
	b.syncGeoms()
}

/// Quaternion returns the authoritative orientation.
func (b *Body) Quaternion() mgl64.Quat {
	return b.quat
}

func (b *Body) SetQuaternion(q mgl64.Quat) {
	b.quat = q.Normalize()
	b.rotation = b.quat.Mat4().Mat3()
	b.syncGeoms()
}

/// Rotation returns the orientation as a matrix, derived from the
/// quaternion.
func (b *Body) Rotation() mgl64.Mat3 {
	return b.rotation
}

func (b *Body) LinearVelocity() mgl64.Vec3 {
	return b.linVel
}

func (b *Body) SetLinearVelocity(v mgl64.Vec3) {
	b.linVel = v
}

func (b *Body) AngularVelocity() mgl64.Vec3 {
	return b.angVel
}

func (b *Body) SetAngularVelocity(w mgl64.Vec3) {
	b.angVel = w
}

/// AddForce accumulates a world-frame force through the center of mass.
/// Accumulators are zeroed at the end of every step.
func (b *Body) AddForce(f mgl64.Vec3) {
	b.force = b.force.Add(f)
}

/// AddTorque accumulates a world-frame torque.
func (b *Body) AddTorque(t mgl64.Vec3) {
	b.torque = b.torque.Add(t)
}

/// AddForceAtPoint accumulates a force applied at a world-space point,
/// contributing the matching torque.
func (b *Body) AddForceAtPoint(f, point mgl64.Vec3) {
	b.force = b.force.Add(f)
	b.torque = b.torque.Add(point.Sub(b.position).Cross(f))
}

/// GravityIgnored bodies skip the world gravity term.
func (b *Body) GravityIgnored() bool {
	return b.flags&BodyFlags.E_gravityIgnored != 0
}

func (b *Body) SetGravityIgnored(ignored bool) {
	if ignored {
		b.flags |= BodyFlags.E_gravityIgnored
	} else {
		b.flags &= ^BodyFlags.E_gravityIgnored
	}
}

/// UpdateRejected reports whether the last step discarded this body's
/// update because it would have produced a non-finite velocity. The flag
/// is cleared at the start of the next step.
func (b *Body) UpdateRejected() bool {
	return b.flags&BodyFlags.E_updateRejected != 0
}

/// Destroyed bodies may no longer be referenced by geoms or joints.
func (b *Body) Destroyed() bool {
	return b.destroyed
}

/// InvInertiaWorld returns the world-frame inverse inertia tensor.
func (b *Body) InvInertiaWorld() mgl64.Mat3 {
	return WorldInertia(b.rotation, b.invInertia)
}

func (b *Body) attachGeom(g *Geom) {
	b.geoms = append(b.geoms, g)
}

func (b *Body) detachGeom(g *Geom) {
	for i, og := range b.geoms {
		if og == g {
			b.geoms = append(b.geoms[:i], b.geoms[i+1:]...)
			return
		}
	}
}

func (b *Body) syncGeoms() {
	for _, g := range b.geoms {
		g.syncFromBody()
	}
}

/// invalidate severs every non-owning reference when the world destroys
/// the body.
func (b *Body) invalidate() {
	for _, g := range b.geoms {
		g.body = nil
	}
	b.geoms = nil
	b.destroyed = true
	b.world = nil
}
