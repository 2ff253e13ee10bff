package physics

import (
	"sort"

	"github.com/pkg/errors"
)

///////////////////////////////////////////////////////////////////////////////
// Sweep and prune
///////////////////////////////////////////////////////////////////////////////

type sweepEntry struct {
	g   *Geom
	min float64
	max float64
}

/// SweepSorter holds the reusable sort scratch shared by sweep spaces. The
/// component that creates spaces owns one and hands it to each space at
/// construction; it holds no per-space state and dies when no space
/// references it.
type SweepSorter struct {
	entries []sweepEntry
}

func NewSweepSorter() *SweepSorter {
	return &SweepSorter{entries: make([]sweepEntry, 0, 64)}
}

/// SweepSpace sorts geoms by their AABB minimum on a primary axis and only
/// compares intervals that overlap on it, confirming the two remaining
/// axes directly. Unbounded AABBs cannot be sorted and fall back to
/// pairwise testing against everything.
type SweepSpace struct {
	baseSpace

	sorter *SweepSorter
	axis   int
}

/// NewSweepSpace creates a sweep-and-prune space sorting along axis
/// (0=x, 1=y, 2=z). A nil sorter gets a private one.
func NewSweepSpace(sorter *SweepSorter, axis int) *SweepSpace {
	Assert(axis >= 0 && axis < 3)
	if sorter == nil {
		sorter = NewSweepSorter()
	}
	return &SweepSpace{
		baseSpace: makeBaseSpace(),
		sorter:    sorter,
		axis:      axis,
	}
}

func (s *SweepSpace) Add(g *Geom) error {
	return s.add(s, g)
}

func (s *SweepSpace) Remove(g *Geom) error {
	return s.remove(s, g)
}

func (s *SweepSpace) Count() int {
	return s.count
}

func (s *SweepSpace) Collide(userData interface{}, callback NearCallback) error {
	if s.locked {
		return errors.New("physics: space is already locked")
	}
	s.locked = true
	defer func() { s.locked = false }()

	s.flushDirty()

	entries := s.sorter.entries[:0]
	unbounded := make([]*Geom, 0)

	for _, g := range s.slots {
		if g == nil || !g.Enabled() {
			continue
		}
		bb := g.AABB()
		if !bb.IsFinite() {
			unbounded = append(unbounded, g)
			continue
		}
		entries = append(entries, sweepEntry{
			g:   g,
			min: bb.Min[s.axis],
			max: bb.Max[s.axis],
		})
	}
	s.sorter.entries = entries // keep the grown buffer

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].min < entries[j].min
	})

	a1 := (s.axis + 1) % 3
	a2 := (s.axis + 2) % 3

	for i := 0; i < len(entries); i++ {
		bbA := entries[i].g.AABB()
		for j := i + 1; j < len(entries); j++ {
			if entries[j].min > entries[i].max {
				break
			}
			bbB := entries[j].g.AABB()
			if bbA.Min[a1] > bbB.Max[a1] || bbB.Min[a1] > bbA.Max[a1] {
				continue
			}
			if bbA.Min[a2] > bbB.Max[a2] || bbB.Min[a2] > bbA.Max[a2] {
				continue
			}
			testPair(userData, callback, entries[i].g, entries[j].g)
		}
	}

	// The sort is undefined for unbounded intervals; brute force them.
	for ui, ug := range unbounded {
		for _, e := range entries {
			testPair(userData, callback, ug, e.g)
		}
		for uj := ui + 1; uj < len(unbounded); uj++ {
			testPair(userData, callback, ug, unbounded[uj])
		}
	}

	return nil
}
