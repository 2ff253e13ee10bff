package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

/// The shape type. Narrow-phase dispatch matches on pairs of these.
var ShapeType = struct {
	E_sphere   uint8
	E_box      uint8
	E_cylinder uint8
	E_mesh     uint8
}{
	E_sphere:   0,
	E_box:      1,
	E_cylinder: 2,
	E_mesh:     3,
}

/// A collision shape: pure parameters, no world state. The owning Geom
/// supplies position and rotation.
type Shape interface {
	GetType() uint8

	/// ComputeAABB returns the world bounding box of the shape placed at
	/// pos with rotation rot.
	ComputeAABB(pos mgl64.Vec3, rot mgl64.Mat3) AABB

	/// ComputeMass returns the mass and body-frame inertia tensor of the
	/// shape at the given density.
	ComputeMass(density float64) (float64, mgl64.Mat3)
}

///////////////////////////////////////////////////////////////////////////////
// Sphere
///////////////////////////////////////////////////////////////////////////////

type SphereShape struct {
	Radius float64
}

func MakeSphereShape(radius float64) SphereShape {
	return SphereShape{Radius: radius}
}

func (s SphereShape) GetType() uint8 {
	return ShapeType.E_sphere
}

func (s SphereShape) ComputeAABB(pos mgl64.Vec3, rot mgl64.Mat3) AABB {
	r := mgl64.Vec3{s.Radius, s.Radius, s.Radius}
	return MakeAABB(pos.Sub(r), pos.Add(r))
}

func (s SphereShape) ComputeMass(density float64) (float64, mgl64.Mat3) {
	m := density * (4.0 / 3.0) * math.Pi * s.Radius * s.Radius * s.Radius
	i := 0.4 * m * s.Radius * s.Radius
	return m, mgl64.Diag3(mgl64.Vec3{i, i, i})
}

///////////////////////////////////////////////////////////////////////////////
// Box
///////////////////////////////////////////////////////////////////////////////

type BoxShape struct {
	/// Half extent along each local axis.
	HalfExtents mgl64.Vec3
}

func MakeBoxShape(hx, hy, hz float64) BoxShape {
	return BoxShape{HalfExtents: mgl64.Vec3{hx, hy, hz}}
}

func (s BoxShape) GetType() uint8 {
	return ShapeType.E_box
}

func (s BoxShape) ComputeAABB(pos mgl64.Vec3, rot mgl64.Mat3) AABB {
	// World half extent along axis i is sum_j |R[i][j]| * h[j].
	var ext mgl64.Vec3
	for i := 0; i < 3; i++ {
		e := 0.0
		for j := 0; j < 3; j++ {
			e += math.Abs(rot.At(i, j)) * s.HalfExtents[j]
		}
		ext[i] = e
	}
	return MakeAABB(pos.Sub(ext), pos.Add(ext))
}

func (s BoxShape) ComputeMass(density float64) (float64, mgl64.Mat3) {
	h := s.HalfExtents
	m := density * 8.0 * h.X() * h.Y() * h.Z()
	x2 := 4.0 * h.X() * h.X()
	y2 := 4.0 * h.Y() * h.Y()
	z2 := 4.0 * h.Z() * h.Z()
	return m, mgl64.Diag3(mgl64.Vec3{
		m / 12.0 * (y2 + z2),
		m / 12.0 * (x2 + z2),
		m / 12.0 * (x2 + y2),
	})
}

///////////////////////////////////////////////////////////////////////////////
// Cylinder
///////////////////////////////////////////////////////////////////////////////

/// A cylinder aligned with its local Z axis, centered on the origin.
type CylinderShape struct {
	Radius float64
	Length float64
}

func MakeCylinderShape(radius, length float64) CylinderShape {
	return CylinderShape{Radius: radius, Length: length}
}

func (s CylinderShape) GetType() uint8 {
	return ShapeType.E_cylinder
}

/// Axis returns the cylinder's world axis for rotation rot.
func (s CylinderShape) Axis(rot mgl64.Mat3) mgl64.Vec3 {
	return mgl64.Vec3{rot.At(0, 2), rot.At(1, 2), rot.At(2, 2)}
}

func (s CylinderShape) ComputeAABB(pos mgl64.Vec3, rot mgl64.Mat3) AABB {
	a := s.Axis(rot)
	half := 0.5 * s.Length
	var ext mgl64.Vec3
	for i := 0; i < 3; i++ {
		// Axial slab plus the radius of the perpendicular disc projection.
		c := a[i]
		perp := 1.0 - c*c
		if perp < 0.0 {
			perp = 0.0
		}
		ext[i] = half*math.Abs(c) + s.Radius*math.Sqrt(perp)
	}
	return MakeAABB(pos.Sub(ext), pos.Add(ext))
}

func (s CylinderShape) ComputeMass(density float64) (float64, mgl64.Mat3) {
	m := density * math.Pi * s.Radius * s.Radius * s.Length
	ixx := m * (3.0*s.Radius*s.Radius + s.Length*s.Length) / 12.0
	izz := 0.5 * m * s.Radius * s.Radius
	return m, mgl64.Diag3(mgl64.Vec3{ixx, ixx, izz})
}

///////////////////////////////////////////////////////////////////////////////
// Triangle mesh
///////////////////////////////////////////////////////////////////////////////

/// A triangle mesh in local space. Meshes are immutable after construction;
/// the bounding-volume tree over the triangles is built once.
type MeshShape struct {
	Vertices []mgl64.Vec3
	Indices  []int32

	bvh      *MeshBVH
	localAABB AABB
}

/// NewMeshShape builds a mesh shape and its triangle BVH. Indices come in
/// groups of three; len(indices) must be a multiple of 3.
func NewMeshShape(vertices []mgl64.Vec3, indices []int32) *MeshShape {
	Assert(len(vertices) > 0)
	Assert(len(indices)%3 == 0)

	s := &MeshShape{
		Vertices: vertices,
		Indices:  indices,
	}

	local := MakeAABB(vertices[0], vertices[0])
	for _, v := range vertices[1:] {
		local = local.Combine(MakeAABB(v, v))
	}
	s.localAABB = local
	s.bvh = BuildMeshBVH(s)
	return s
}

func (s *MeshShape) GetType() uint8 {
	return ShapeType.E_mesh
}

/// TriangleCount returns the number of triangles.
func (s *MeshShape) TriangleCount() int {
	return len(s.Indices) / 3
}

/// Triangle returns triangle t's vertices in local space.
func (s *MeshShape) Triangle(t int) (mgl64.Vec3, mgl64.Vec3, mgl64.Vec3) {
	return s.Vertices[s.Indices[3*t+0]],
		s.Vertices[s.Indices[3*t+1]],
		s.Vertices[s.Indices[3*t+2]]
}

func (s *MeshShape) ComputeAABB(pos mgl64.Vec3, rot mgl64.Mat3) AABB {
	// Rotate the local box's extents the way a box shape does.
	center := s.localAABB.Center()
	halfLocal := s.localAABB.Max.Sub(center)
	var ext mgl64.Vec3
	for i := 0; i < 3; i++ {
		e := 0.0
		for j := 0; j < 3; j++ {
			e += math.Abs(rot.At(i, j)) * halfLocal[j]
		}
		ext[i] = e
	}
	worldCenter := pos.Add(rot.Mul3x1(center))
	return MakeAABB(worldCenter.Sub(ext), worldCenter.Add(ext))
}

/// Meshes are intended as static geometry; the mass is approximated from
/// the local bounding box for the rare dynamic use.
func (s *MeshShape) ComputeMass(density float64) (float64, mgl64.Mat3) {
	center := s.localAABB.Center()
	half := s.localAABB.Max.Sub(center)
	box := BoxShape{HalfExtents: half}
	return box.ComputeMass(density)
}
