package physics

import (
	"github.com/pkg/errors"
)

/// NearCallback receives each candidate pair the broad phase emits. The
/// callback may run narrow phase on the pair but must not add or remove
/// geoms from the space being collided; the space is locked for the
/// duration of Collide and rejects structural mutation.
type NearCallback func(userData interface{}, g1, g2 *Geom)

/// A broad-phase space. Three interchangeable strategies implement it:
/// NewSimpleSpace (brute force), NewHashSpace (multi-level spatial hash)
/// and NewSweepSpace (sweep-and-prune).
type Space interface {
	/// Add inserts a geom. A geom may belong to at most one space.
	Add(g *Geom) error

	/// Remove takes a geom out of the space.
	Remove(g *Geom) error

	/// Collide invokes callback once per unordered candidate pair whose
	/// AABBs overlap and which survives ShouldCollide.
	Collide(userData interface{}, callback NearCallback) error

	/// Count returns the number of geoms in the space.
	Count() int

	markDirty(h GeomHandle)
}

///////////////////////////////////////////////////////////////////////////////
// Shared slot table and dirty/clean bookkeeping
///////////////////////////////////////////////////////////////////////////////

/// baseSpace owns the slot arena every strategy shares: a handle-indexed
/// geom table plus explicit dirty and clean handle sets. Geoms never store
/// their position inside those sets, only their stable slot handle.
type baseSpace struct {
	slots    []*Geom
	freeList []GeomHandle

	dirty map[GeomHandle]struct{}
	clean map[GeomHandle]struct{}

	locked bool
	count  int
}

func makeBaseSpace() baseSpace {
	return baseSpace{
		slots:    make([]*Geom, 0, 16),
		freeList: make([]GeomHandle, 0, 16),
		dirty:    make(map[GeomHandle]struct{}),
		clean:    make(map[GeomHandle]struct{}),
	}
}

func (s *baseSpace) add(space Space, g *Geom) error {
	if s.locked {
		return errors.New("physics: space is locked during Collide; cannot add")
	}
	if g.space != nil {
		return errors.New("physics: geom already belongs to a space")
	}

	var h GeomHandle
	if n := len(s.freeList); n > 0 {
		h = s.freeList[n-1]
		s.freeList = s.freeList[:n-1]
		s.slots[h] = g
	} else {
		h = GeomHandle(len(s.slots))
		s.slots = append(s.slots, g)
	}

	g.space = space
	g.handle = h
	s.dirty[h] = struct{}{}
	s.count++
	return nil
}

func (s *baseSpace) remove(space Space, g *Geom) error {
	if s.locked {
		return errors.New("physics: space is locked during Collide; cannot remove")
	}
	if g.space != space {
		return errors.New("physics: geom does not belong to this space")
	}

	h := g.handle
	s.slots[h] = nil
	s.freeList = append(s.freeList, h)
	delete(s.dirty, h)
	delete(s.clean, h)
	g.space = nil
	g.handle = NullGeomHandle
	s.count--
	return nil
}

func (s *baseSpace) markDirty(h GeomHandle) {
	if h == NullGeomHandle {
		return
	}
	if _, ok := s.clean[h]; ok {
		delete(s.clean, h)
	}
	s.dirty[h] = struct{}{}
}

/// flushDirty recomputes every stale AABB and moves the handles to the
/// clean set. Every strategy calls this before enumerating pairs.
func (s *baseSpace) flushDirty() {
	for h := range s.dirty {
		g := s.slots[h]
		if g != nil {
			g.UpdateAABB()
		}
		s.clean[h] = struct{}{}
		delete(s.dirty, h)
	}
}

/// geomAt returns the geom in slot h, or nil for a freed slot.
func (s *baseSpace) geomAt(h GeomHandle) *Geom {
	return s.slots[h]
}

/// testPair applies the shared filters and fires the callback.
func testPair(userData interface{}, callback NearCallback, a, b *Geom) {
	if !ShouldCollide(a, b) {
		return
	}
	if !a.AABB().Overlaps(b.AABB()) {
		return
	}
	callback(userData, a, b)
}

///////////////////////////////////////////////////////////////////////////////
// Brute force
///////////////////////////////////////////////////////////////////////////////

/// SimpleSpace tests every unordered pair: O(n²), always correct, and the
/// oracle the other strategies are validated against.
type SimpleSpace struct {
	baseSpace
}

func NewSimpleSpace() *SimpleSpace {
	return &SimpleSpace{baseSpace: makeBaseSpace()}
}

func (s *SimpleSpace) Add(g *Geom) error {
	return s.add(s, g)
}

func (s *SimpleSpace) Remove(g *Geom) error {
	return s.remove(s, g)
}

func (s *SimpleSpace) Count() int {
	return s.count
}

func (s *SimpleSpace) Collide(userData interface{}, callback NearCallback) error {
	if s.locked {
		return errors.New("physics: space is already locked")
	}
	s.locked = true
	defer func() { s.locked = false }()

	s.flushDirty()

	for i := 0; i < len(s.slots); i++ {
		a := s.slots[i]
		if a == nil {
			continue
		}
		for j := i + 1; j < len(s.slots); j++ {
			b := s.slots[j]
			if b == nil {
				continue
			}
			testPair(userData, callback, a, b)
		}
	}
	return nil
}
