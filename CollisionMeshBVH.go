package physics

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

const nullBVHNode = -1

/// Leaves hold at most this many triangles.
const bvhLeafSize = 4

type meshBVHNode struct {
	Aabb AABB

	Child1 int32
	Child2 int32

	/// Range into MeshBVH.tris for leaves.
	TriStart int32
	TriCount int32
}

func (node meshBVHNode) IsLeaf() bool {
	return node.Child1 == nullBVHNode
}

/// A static bounding-volume tree over a mesh's triangles. Nodes are pooled
/// and index-linked; the tree is built once per mesh with a median split
/// over triangle centroids and never rebalanced.
type MeshBVH struct {
	nodes []meshBVHNode
	root  int32

	/// Triangle indices permuted so each leaf owns a contiguous range.
	tris []int32
}

func BuildMeshBVH(mesh *MeshShape) *MeshBVH {
	n := mesh.TriangleCount()
	bvh := &MeshBVH{
		nodes: make([]meshBVHNode, 0, 2*n),
		tris:  make([]int32, n),
		root:  nullBVHNode,
	}

	boxes := make([]AABB, n)
	centroids := make([]mgl64.Vec3, n)
	for t := 0; t < n; t++ {
		v0, v1, v2 := mesh.Triangle(t)
		bb := MakeAABB(v0, v0)
		bb = bb.Combine(MakeAABB(v1, v1))
		bb = bb.Combine(MakeAABB(v2, v2))
		boxes[t] = bb
		centroids[t] = v0.Add(v1).Add(v2).Mul(1.0 / 3.0)
		bvh.tris[t] = int32(t)
	}

	if n > 0 {
		bvh.root = bvh.build(boxes, centroids, 0, n)
	}
	return bvh
}

func (bvh *MeshBVH) build(boxes []AABB, centroids []mgl64.Vec3, start, count int) int32 {
	slice := bvh.tris[start : start+count]

	bb := boxes[slice[0]]
	for _, t := range slice[1:] {
		bb = bb.Combine(boxes[t])
	}

	id := int32(len(bvh.nodes))
	bvh.nodes = append(bvh.nodes, meshBVHNode{
		Aabb:   bb,
		Child1: nullBVHNode,
		Child2: nullBVHNode,
	})

	if count <= bvhLeafSize {
		bvh.nodes[id].TriStart = int32(start)
		bvh.nodes[id].TriCount = int32(count)
		return id
	}

	// Median split along the widest centroid axis.
	axis := 0
	lo := centroids[slice[0]]
	hi := lo
	for _, t := range slice[1:] {
		c := centroids[t]
		for i := 0; i < 3; i++ {
			lo[i] = minFloat(lo[i], c[i])
			hi[i] = maxFloat64(hi[i], c[i])
		}
	}
	ext := hi.Sub(lo)
	if ext.Y() > ext[axis] {
		axis = 1
	}
	if ext.Z() > ext[axis] {
		axis = 2
	}

	sort.Slice(slice, func(i, j int) bool {
		return centroids[slice[i]][axis] < centroids[slice[j]][axis]
	})

	mid := count / 2
	c1 := bvh.build(boxes, centroids, start, mid)
	c2 := bvh.build(boxes, centroids, start+mid, count-mid)
	bvh.nodes[id].Child1 = c1
	bvh.nodes[id].Child2 = c2
	return id
}

/// Query invokes fn for every triangle whose leaf AABB overlaps aabb.
/// Returning false from fn stops the walk.
func (bvh *MeshBVH) Query(aabb AABB, fn func(tri int32) bool) {
	if bvh.root == nullBVHNode {
		return
	}

	stack := make([]int32, 0, 64)
	stack = append(stack, bvh.root)

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := &bvh.nodes[id]
		if !node.Aabb.Overlaps(aabb) {
			continue
		}

		if node.IsLeaf() {
			for i := int32(0); i < node.TriCount; i++ {
				if !fn(bvh.tris[node.TriStart+i]) {
					return
				}
			}
			continue
		}

		stack = append(stack, node.Child1, node.Child2)
	}
}

///////////////////////////////////////////////////////////////////////////////
// Temporal coherence
///////////////////////////////////////////////////////////////////////////////

/// How far the query volume may drift before a cached triangle set goes
/// stale. The cached query is inflated by the same margin so reuse stays
/// conservative.
const meshCacheMargin = 0.2

/// MeshQueryCache remembers the triangle set returned by the last BVH query
/// for one moving geom against one mesh. When the relative motion since the
/// last step stays inside the margin the tree walk is skipped entirely.
/// Callers own the cache; the collision routines themselves stay pure.
type MeshQueryCache struct {
	valid bool
	aabb  AABB
	tris  []int32
}

func (c *MeshQueryCache) query(bvh *MeshBVH, aabb AABB) []int32 {
	if c.valid && contains(c.aabb, aabb) {
		return c.tris
	}

	margin := mgl64.Vec3{meshCacheMargin, meshCacheMargin, meshCacheMargin}
	fat := MakeAABB(aabb.Min.Sub(margin), aabb.Max.Add(margin))

	c.tris = c.tris[:0]
	bvh.Query(fat, func(tri int32) bool {
		c.tris = append(c.tris, tri)
		return true
	})
	c.aabb = fat
	c.valid = true
	return c.tris
}

/// Invalidate drops the cached triangle set, forcing a fresh tree walk.
func (c *MeshQueryCache) Invalidate() {
	c.valid = false
	c.tris = c.tris[:0]
}

func contains(outer, inner AABB) bool {
	return outer.Min.X() <= inner.Min.X() && outer.Min.Y() <= inner.Min.Y() &&
		outer.Min.Z() <= inner.Min.Z() && outer.Max.X() >= inner.Max.X() &&
		outer.Max.Y() >= inner.Max.Y() && outer.Max.Z() >= inner.Max.Z()
}
