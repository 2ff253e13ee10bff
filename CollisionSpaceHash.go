package physics

import (
	"math"

	"github.com/pkg/errors"
)

///////////////////////////////////////////////////////////////////////////////
// Multi-level spatial hash
///////////////////////////////////////////////////////////////////////////////

/// HashSpace buckets geoms into a hierarchy of power-of-two grids. Each
/// geom picks the finest level whose cell size exceeds half its AABB's
/// largest dimension, so its box covers only a handful of cells. Geoms too
/// large for the top level, and geoms with unbounded AABBs, go to a big
/// list tested against everything.
type HashSpace struct {
	baseSpace

	minLevel int
	maxLevel int
}

/// NewHashSpace creates a hash space with the given level range; cell size
/// at level l is 2^l.
func NewHashSpace(minLevel, maxLevel int) *HashSpace {
	Assert(minLevel <= maxLevel)
	return &HashSpace{
		baseSpace: makeBaseSpace(),
		minLevel:  minLevel,
		maxLevel:  maxLevel,
	}
}

func (s *HashSpace) Add(g *Geom) error {
	return s.add(s, g)
}

func (s *HashSpace) Remove(g *Geom) error {
	return s.remove(s, g)
}

func (s *HashSpace) Count() int {
	return s.count
}

// One geom-in-cell record.
type hashEntry struct {
	level int
	x     int32
	y     int32
	z     int32
	geom  int // index into the per-pass bounded list
}

// Primes used to size the table; picked to stay a few times larger than
// the entry count.
var hashSpacePrimes = []int{53, 97, 193, 389, 769, 1543, 3079, 6151, 12289,
	24593, 49157, 98317, 196613, 393241, 786433, 1572869}

func hashCell(level int, x, y, z int32) uint32 {
	h := uint32(x)*73856093 ^ uint32(y)*19349663 ^ uint32(z)*83492791 ^ uint32(level)*15485863
	return h
}

/// levelFor returns the finest level whose cell size exceeds half of dim,
/// or maxLevel+1 when the geom is too large for the configured range.
func (s *HashSpace) levelFor(dim float64) int {
	level := s.minLevel
	for level <= s.maxLevel {
		if math.Exp2(float64(level)) > 0.5*dim {
			return level
		}
		level++
	}
	return s.maxLevel + 1
}

func cellRange(lo, hi float64, level int) (int32, int32) {
	inv := math.Exp2(float64(-level))
	return int32(math.Floor(lo * inv)), int32(math.Floor(hi * inv))
}

func (s *HashSpace) Collide(userData interface{}, callback NearCallback) error {
	if s.locked {
		return errors.New("physics: space is already locked")
	}
	s.locked = true
	defer func() { s.locked = false }()

	s.flushDirty()

	// Partition into hashable geoms and the big list.
	type boundedGeom struct {
		g     *Geom
		level int
	}
	bounded := make([]boundedGeom, 0, s.count)
	big := make([]*Geom, 0)
	maxUsedLevel := s.minLevel

	for _, g := range s.slots {
		if g == nil || !g.Enabled() {
			continue
		}
		bb := g.AABB()
		if !bb.IsFinite() {
			big = append(big, g)
			continue
		}
		level := s.levelFor(bb.LargestDimension())
		if level > s.maxLevel {
			big = append(big, g)
			continue
		}
		if level > maxUsedLevel {
			maxUsedLevel = level
		}
		bounded = append(bounded, boundedGeom{g: g, level: level})
	}

	n := len(bounded)

	// Size the table against the worst case of every geom in 8 cells.
	sz := hashSpacePrimes[len(hashSpacePrimes)-1]
	for _, p := range hashSpacePrimes {
		if p >= 8*n {
			sz = p
			break
		}
	}
	table := make([][]hashEntry, sz)

	// Insert every geom's cells at its own level.
	for i := 0; i < n; i++ {
		bb := bounded[i].g.AABB()
		level := bounded[i].level
		x0, x1 := cellRange(bb.Min.X(), bb.Max.X(), level)
		y0, y1 := cellRange(bb.Min.Y(), bb.Max.Y(), level)
		z0, z1 := cellRange(bb.Min.Z(), bb.Max.Z(), level)
		for x := x0; x <= x1; x++ {
			for y := y0; y <= y1; y++ {
				for z := z0; z <= z1; z++ {
					h := hashCell(level, x, y, z) % uint32(sz)
					table[h] = append(table[h], hashEntry{level: level, x: x, y: y, z: z, geom: i})
				}
			}
		}
	}

	// Symmetric already-tested bitset over unordered bounded pairs.
	tested := make([]uint32, (n*n+31)/32)
	pairTested := func(i, j int) bool {
		if i > j {
			i, j = j, i
		}
		bit := i*n + j
		if tested[bit>>5]&(1<<uint(bit&31)) != 0 {
			return true
		}
		tested[bit>>5] |= 1 << uint(bit&31)
		return false
	}

	// For each geom, probe its own level and every coarser level in use.
	for i := 0; i < n; i++ {
		bb := bounded[i].g.AABB()
		for level := bounded[i].level; level <= maxUsedLevel; level++ {
			x0, x1 := cellRange(bb.Min.X(), bb.Max.X(), level)
			y0, y1 := cellRange(bb.Min.Y(), bb.Max.Y(), level)
			z0, z1 := cellRange(bb.Min.Z(), bb.Max.Z(), level)
			for x := x0; x <= x1; x++ {
				for y := y0; y <= y1; y++ {
					for z := z0; z <= z1; z++ {
						h := hashCell(level, x, y, z) % uint32(sz)
						for _, e := range table[h] {
							if e.level != level || e.x != x || e.y != y || e.z != z {
								continue // hash bucket collision
							}
							if e.geom == i {
								continue
							}
							if pairTested(i, e.geom) {
								continue
							}
							testPair(userData, callback, bounded[i].g, bounded[e.geom].g)
						}
					}
				}
			}
		}
	}

	// Big geoms collide with everything.
	for bi, bg := range big {
		for _, o := range bounded {
			testPair(userData, callback, bg, o.g)
		}
		for bj := bi + 1; bj < len(big); bj++ {
			testPair(userData, callback, bg, big[bj])
		}
	}

	return nil
}
