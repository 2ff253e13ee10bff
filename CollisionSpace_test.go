package physics

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

// A shape with an unbounded extent, for exercising the infinite-AABB
// fallback paths. Never reaches narrow phase in these tests.
type unboundedShape struct{}

func (unboundedShape) GetType() uint8 {
	return ShapeType.E_box
}

func (unboundedShape) ComputeAABB(pos mgl64.Vec3, rot mgl64.Mat3) AABB {
	return MakeInfiniteAABB()
}

func (unboundedShape) ComputeMass(density float64) (float64, mgl64.Mat3) {
	return 1.0, mgl64.Ident3()
}

// Builds the same pseudo-random scene into a fresh geom slice. Each geom's
// UserData carries its scene index so pair sets can be compared across
// spaces regardless of pointer identity.
func makeTestScene(seed int64, n int) []*Geom {
	rng := rand.New(rand.NewSource(seed))
	geoms := make([]*Geom, 0, n)
	for i := 0; i < n; i++ {
		var shape Shape
		switch i % 3 {
		case 0:
			shape = MakeSphereShape(0.5 + rng.Float64())
		case 1:
			shape = MakeBoxShape(0.5+rng.Float64(), 0.5+rng.Float64(), 0.5+rng.Float64())
		default:
			shape = MakeCylinderShape(0.5+rng.Float64(), 1.0+rng.Float64())
		}
		g := NewGeom(shape)
		g.SetPosition(mgl64.Vec3{
			(rng.Float64() - 0.5) * 40.0,
			(rng.Float64() - 0.5) * 40.0,
			(rng.Float64() - 0.5) * 40.0,
		})
		g.UserData = i
		geoms = append(geoms, g)
	}
	// One oversized geom to push the hash space onto its big-object path.
	big := NewGeom(MakeBoxShape(2000.0, 1.0, 2000.0))
	big.SetPosition(mgl64.Vec3{0.0, -5.0, 0.0})
	big.UserData = n
	return append(geoms, big)
}

func collectPairs(t *testing.T, s Space, geoms []*Geom) map[[2]int]bool {
	t.Helper()
	for _, g := range geoms {
		if err := s.Add(g); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	pairs := make(map[[2]int]bool)
	err := s.Collide(nil, func(userData interface{}, g1, g2 *Geom) {
		i := g1.UserData.(int)
		j := g2.UserData.(int)
		if i > j {
			i, j = j, i
		}
		key := [2]int{i, j}
		if pairs[key] {
			t.Errorf("pair (%d, %d) reported twice in one pass", i, j)
		}
		pairs[key] = true
	})
	if err != nil {
		t.Fatalf("Collide: %v", err)
	}
	return pairs
}

func TestSpacesAgreeWithBruteForce(t *testing.T) {
	const seed = 7
	const n = 60

	want := collectPairs(t, NewSimpleSpace(), makeTestScene(seed, n))

	spaces := []struct {
		name string
		s    Space
	}{
		{"hash", NewHashSpace(DefaultHashMinLevel, DefaultHashMaxLevel)},
		{"sweep x", NewSweepSpace(nil, 0)},
		{"sweep shared sorter", NewSweepSpace(NewSweepSorter(), 2)},
	}
	for _, tt := range spaces {
		got := collectPairs(t, tt.s, makeTestScene(seed, n))
		if len(got) != len(want) {
			t.Errorf("%s: %d pairs, brute force found %d", tt.name, len(got), len(want))
		}
		for key := range want {
			if !got[key] {
				t.Errorf("%s: missing pair %v", tt.name, key)
			}
		}
		for key := range got {
			if !want[key] {
				t.Errorf("%s: extra pair %v", tt.name, key)
			}
		}
	}
}

func TestSpaceSoundness(t *testing.T) {
	// Pairs with disjoint AABBs must never reach the callback.
	spaces := []struct {
		name string
		s    Space
	}{
		{"simple", NewSimpleSpace()},
		{"hash", NewHashSpace(DefaultHashMinLevel, DefaultHashMaxLevel)},
		{"sweep", NewSweepSpace(nil, 0)},
	}
	for _, tt := range spaces {
		a := NewGeom(MakeSphereShape(1.0))
		b := NewGeom(MakeSphereShape(1.0))
		if err := b.SetPosition(mgl64.Vec3{100.0, 0.0, 0.0}); err != nil {
			t.Fatalf("SetPosition: %v", err)
		}
		tt.s.Add(a)
		tt.s.Add(b)
		err := tt.s.Collide(nil, func(userData interface{}, g1, g2 *Geom) {
			t.Errorf("%s: callback fired for separated geoms", tt.name)
		})
		if err != nil {
			t.Fatalf("%s: Collide: %v", tt.name, err)
		}
	}
}

func TestSpaceIdempotentWithoutMoves(t *testing.T) {
	s := NewHashSpace(DefaultHashMinLevel, DefaultHashMaxLevel)
	geoms := makeTestScene(3, 40)
	first := collectPairs(t, s, geoms)

	second := make(map[[2]int]bool)
	err := s.Collide(nil, func(userData interface{}, g1, g2 *Geom) {
		i, j := g1.UserData.(int), g2.UserData.(int)
		if i > j {
			i, j = j, i
		}
		second[[2]int{i, j}] = true
	})
	if err != nil {
		t.Fatalf("Collide: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("repeat pass found %d pairs, first found %d", len(second), len(first))
	}
	for key := range first {
		if !second[key] {
			t.Errorf("repeat pass lost pair %v", key)
		}
	}
}

func TestSpaceRejectsMutationDuringCollide(t *testing.T) {
	s := NewSimpleSpace()
	a := NewGeom(MakeSphereShape(1.0))
	b := NewGeom(MakeSphereShape(1.0))
	s.Add(a)
	s.Add(b)

	var addErr, removeErr error
	fired := false
	err := s.Collide(nil, func(userData interface{}, g1, g2 *Geom) {
		if fired {
			return
		}
		fired = true
		addErr = s.Add(NewGeom(MakeSphereShape(1.0)))
		removeErr = s.Remove(g1)
	})
	if err != nil {
		t.Fatalf("Collide: %v", err)
	}
	if !fired {
		t.Fatal("overlapping geoms produced no callback")
	}
	if addErr == nil {
		t.Error("Add during Collide should fail")
	}
	if removeErr == nil {
		t.Error("Remove during Collide should fail")
	}
	if s.Count() != 2 {
		t.Errorf("Count = %d after rejected mutation, want 2", s.Count())
	}
}

func TestSpaceUnboundedGeoms(t *testing.T) {
	spaces := []struct {
		name string
		s    Space
	}{
		{"simple", NewSimpleSpace()},
		{"hash", NewHashSpace(DefaultHashMinLevel, DefaultHashMaxLevel)},
		{"sweep", NewSweepSpace(nil, 1)},
	}
	for _, tt := range spaces {
		inf := NewGeom(unboundedShape{})
		inf.UserData = -1
		far := NewGeom(MakeSphereShape(1.0))
		far.SetPosition(mgl64.Vec3{500.0, 500.0, 500.0})
		far.UserData = 0
		tt.s.Add(inf)
		tt.s.Add(far)

		found := false
		err := tt.s.Collide(nil, func(userData interface{}, g1, g2 *Geom) {
			found = true
		})
		if err != nil {
			t.Fatalf("%s: Collide: %v", tt.name, err)
		}
		if !found {
			t.Errorf("%s: unbounded geom did not pair with a distant geom", tt.name)
		}
	}
}

func TestSpaceRemove(t *testing.T) {
	s := NewSweepSpace(nil, 0)
	geoms := makeTestScene(11, 10)
	for _, g := range geoms {
		s.Add(g)
	}
	if err := s.Remove(geoms[0]); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if s.Count() != len(geoms)-1 {
		t.Fatalf("Count = %d, want %d", s.Count(), len(geoms)-1)
	}
	err := s.Collide(nil, func(userData interface{}, g1, g2 *Geom) {
		if g1 == geoms[0] || g2 == geoms[0] {
			t.Error("removed geom still reported")
		}
	})
	if err != nil {
		t.Fatalf("Collide: %v", err)
	}

	// Removing twice is an error.
	if err := s.Remove(geoms[0]); err == nil {
		t.Error("second Remove should fail")
	}
}

func TestShouldCollideFilters(t *testing.T) {
	a := NewGeom(MakeSphereShape(1.0))
	b := NewGeom(MakeSphereShape(1.0))

	if !ShouldCollide(a, b) {
		t.Fatal("default geoms should collide")
	}

	a.CategoryBits = 0x1
	a.CollideBits = 0x2
	b.CategoryBits = 0x4
	b.CollideBits = 0x4
	if ShouldCollide(a, b) {
		t.Error("bitmask mismatch should filter the pair")
	}

	a.CollideBits = 0x4
	b.CollideBits = 0x1
	if !ShouldCollide(a, b) {
		t.Error("matching bitmasks should pass")
	}

	b.SetEnabled(false)
	if ShouldCollide(a, b) {
		t.Error("disabled geom should filter the pair")
	}
	b.SetEnabled(true)

	w, err := NewWorld(nil, DefaultTunables())
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	body, _ := w.CreateBody()
	a.SetBody(body)
	b.SetBody(body)
	if ShouldCollide(a, b) {
		t.Error("geoms on the same body should filter the pair")
	}
}
