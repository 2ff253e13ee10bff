package physics

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

/// A stable slot handle assigned to a geom by its space. Handles index the
/// space's slot table and never alias the geom's position in the dirty or
/// clean sets.
type GeomHandle int32

const NullGeomHandle GeomHandle = -1

/// A geom places a collision shape in the world. It either follows a body
/// or, with a nil body, stands as static geometry with its own transform.
type Geom struct {
	shape Shape
	body  *Body

	position mgl64.Vec3
	rotation mgl64.Mat3

	aabb      AABB
	aabbDirty bool

	/// The collision category bits of this geom. Normally you would just
	/// set one bit.
	CategoryBits uint32

	/// The collision mask bits. This states the categories this geom
	/// accepts for collision.
	CollideBits uint32

	enabled bool

	space  Space
	handle GeomHandle

	/// Use this to store application specific geom data.
	UserData interface{}
}

/// NewGeom creates a detached static geom with an identity transform.
func NewGeom(shape Shape) *Geom {
	return &Geom{
		shape:        shape,
		rotation:     mgl64.Ident3(),
		aabbDirty:    true,
		CategoryBits: 0x0001,
		CollideBits:  0xFFFFFFFF,
		enabled:      true,
		handle:       NullGeomHandle,
	}
}

func (g *Geom) Shape() Shape {
	return g.shape
}

/// Body returns the attached body, or nil for static geometry.
func (g *Geom) Body() *Body {
	return g.body
}

/// SetBody attaches the geom to a body. The geom's transform follows the
/// body from then on. Passing nil detaches, freezing the geom at the
/// body's last transform.
func (g *Geom) SetBody(b *Body) {
	if g.body != nil {
		g.body.detachGeom(g)
	}
	g.body = b
	if b != nil {
		b.attachGeom(g)
		g.position = b.Position()
		g.rotation = b.Rotation()
	}
	g.MarkDirty()
}

func (g *Geom) Position() mgl64.Vec3 {
	return g.position
}

func (g *Geom) Rotation() mgl64.Mat3 {
	return g.rotation
}

/// SetPosition moves a static geom. Attached geoms follow their body and
/// reject direct placement.
func (g *Geom) SetPosition(p mgl64.Vec3) error {
	if g.body != nil {
		return errors.New("physics: geom is attached to a body; move the body instead")
	}
	g.position = p
	g.MarkDirty()
	return nil
}

/// SetRotation rotates a static geom. Attached geoms follow their body.
func (g *Geom) SetRotation(r mgl64.Mat3) error {
	if g.body != nil {
		return errors.New("physics: geom is attached to a body; rotate the body instead")
	}
	g.rotation = r
	g.MarkDirty()
	return nil
}

/// Enabled geoms take part in broad phase; disabled ones are skipped.
func (g *Geom) Enabled() bool {
	return g.enabled
}

func (g *Geom) SetEnabled(enabled bool) {
	g.enabled = enabled
}

/// MarkDirty tags the AABB stale and tells the owning space, if any, to
/// move the geom to its dirty set.
func (g *Geom) MarkDirty() {
	g.aabbDirty = true
	if g.space != nil {
		g.space.markDirty(g.handle)
	}
}

/// syncFromBody refreshes the transform from the attached body. Called by
/// the world at the end of integration.
func (g *Geom) syncFromBody() {
	if g.body == nil {
		return
	}
	g.position = g.body.Position()
	g.rotation = g.body.Rotation()
	g.MarkDirty()
}

/// AABB returns the current world bounding box, recomputing it first if
/// stale. Broad phases must call this (or UpdateAABB) before querying.
func (g *Geom) AABB() AABB {
	g.UpdateAABB()
	return g.aabb
}

/// UpdateAABB recomputes the bounding box if the dirty tag is set.
func (g *Geom) UpdateAABB() {
	if !g.aabbDirty {
		return
	}
	g.aabb = g.shape.ComputeAABB(g.position, g.rotation)
	g.aabbDirty = false
}

/// ShouldCollide applies the cheap rejections shared by every broad-phase
/// strategy: both enabled, bitmasks intersecting, and not the same body.
func ShouldCollide(a, b *Geom) bool {
	if !a.enabled || !b.enabled {
		return false
	}
	if a.CategoryBits&b.CollideBits == 0 && b.CategoryBits&a.CollideBits == 0 {
		return false
	}
	if a.body != nil && a.body == b.body {
		return false
	}
	return true
}
