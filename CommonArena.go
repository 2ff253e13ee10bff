package physics

/// A step-scoped scratch arena. The solver and the broad phases borrow
/// float and int slices from it during a step and the whole arena is
/// released in one call when the step ends, on every exit path including
/// the numerical-failure one. A fixed preallocated block serves small
/// steps; requests that outgrow it fall back to plain heap allocation
/// instead of overflowing a bounded buffer.
type ScratchArena struct {
	floats   []float64
	floatTop int
	ints     []int
	intTop   int

	// Allocations that did not fit the blocks. Dropped wholesale on Release.
	overflow int
}

const arenaFloatBlock = 16384
const arenaIntBlock = 4096

func NewScratchArena() *ScratchArena {
	return &ScratchArena{
		floats: make([]float64, arenaFloatBlock),
		ints:   make([]int, arenaIntBlock),
	}
}

/// Floats borrows a zeroed float slice of length n.
func (a *ScratchArena) Floats(n int) []float64 {
	if a.floatTop+n <= len(a.floats) {
		s := a.floats[a.floatTop : a.floatTop+n]
		a.floatTop += n
		for i := range s {
			s[i] = 0.0
		}
		return s
	}
	a.overflow++
	return make([]float64, n)
}

/// Ints borrows a zeroed int slice of length n.
func (a *ScratchArena) Ints(n int) []int {
	if a.intTop+n <= len(a.ints) {
		s := a.ints[a.intTop : a.intTop+n]
		a.intTop += n
		for i := range s {
			s[i] = 0
		}
		return s
	}
	a.overflow++
	return make([]int, n)
}

/// Release returns every borrowed slice to the arena. Callers must not
/// hold arena slices across Release.
func (a *ScratchArena) Release() {
	a.floatTop = 0
	a.intTop = 0
	a.overflow = 0
}

/// OverflowCount reports how many requests fell back to the heap since the
/// last Release. Useful for sizing the blocks against a scene.
func (a *ScratchArena) OverflowCount() int {
	return a.overflow
}
