package physics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func sphereInertia(mass, radius float64) mgl64.Mat3 {
	i := 0.4 * mass * radius * radius
	return mgl64.Diag3(mgl64.Vec3{i, i, i})
}

// A unit-mass sphere hovering just above a static ground box.
func makeDropScene(t *testing.T, tun Tunables) (*World, *Body) {
	t.Helper()
	space := NewSimpleSpace()
	w, err := NewWorld(space, tun)
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}

	ground := NewGeom(MakeBoxShape(5.0, 0.5, 5.0))
	ground.SetPosition(mgl64.Vec3{0.0, -0.5, 0.0})
	if err := space.Add(ground); err != nil {
		t.Fatalf("Add ground: %v", err)
	}

	b, err := w.CreateBody()
	if err != nil {
		t.Fatalf("CreateBody: %v", err)
	}
	if err := b.SetMass(1.0, sphereInertia(1.0, 1.0)); err != nil {
		t.Fatalf("SetMass: %v", err)
	}
	b.SetPosition(mgl64.Vec3{0.0, 1.01, 0.0})

	g := NewGeom(MakeSphereShape(1.0))
	g.SetBody(b)
	if err := space.Add(g); err != nil {
		t.Fatalf("Add sphere: %v", err)
	}
	return w, b
}

func TestSolverRespectsBounds(t *testing.T) {
	w, _ := makeDropScene(t, DefaultTunables())
	mu := w.tunables.Friction

	for step := 0; step < 30; step++ {
		if err := w.Step(1.0 / 60.0); err != nil {
			t.Fatalf("Step %d: %v", step, err)
		}
		for i, r := range w.lastRows {
			l := w.lastLambda[i]
			if !IsValid(l) {
				t.Fatalf("step %d row %d: lambda not finite", step, i)
			}
			if r.FIndex >= 0 {
				bound := mu*math.Abs(w.lastLambda[r.FIndex]) + 1e-9
				if math.Abs(l) > bound {
					t.Errorf("step %d row %d: friction impulse %v exceeds mu bound %v",
						step, i, l, bound)
				}
			} else if l < -1e-12 {
				t.Errorf("step %d row %d: contact impulse %v is attractive", step, i, l)
			}
		}
	}
}

func TestFrictionDeceleratesSliding(t *testing.T) {
	w, b := makeDropScene(t, DefaultTunables())
	b.SetLinearVelocity(mgl64.Vec3{2.0, 0.0, 0.0})

	for step := 0; step < 60; step++ {
		if err := w.Step(1.0 / 60.0); err != nil {
			t.Fatalf("Step %d: %v", step, err)
		}
	}
	vx := b.LinearVelocity().X()
	if vx >= 2.0 {
		t.Errorf("sliding velocity did not decrease: %v", vx)
	}
	if vx < -1e-6 {
		t.Errorf("friction reversed the slide: %v", vx)
	}
}

func TestFrictionDisabled(t *testing.T) {
	tun := DefaultTunables()
	tun.Friction = -1.0
	w, _ := makeDropScene(t, tun)

	for step := 0; step < 10; step++ {
		if err := w.Step(1.0 / 60.0); err != nil {
			t.Fatalf("Step %d: %v", step, err)
		}
	}
	for i, r := range w.lastRows {
		if r.FIndex >= 0 {
			t.Fatalf("row %d is a friction row with friction disabled", i)
		}
	}
	if len(w.lastRows) == 0 {
		t.Fatal("no contact rows assembled")
	}
}

func TestSettlesWithShuffle(t *testing.T) {
	tun := DefaultTunables()
	tun.Shuffle = true
	w, b := makeDropScene(t, tun)

	for step := 0; step < 60; step++ {
		if err := w.Step(1.0 / 60.0); err != nil {
			t.Fatalf("Step %d: %v", step, err)
		}
	}
	if v := b.LinearVelocity().Len(); v > restVelocityThreshold {
		t.Errorf("sphere still moving at %v with shuffle enabled", v)
	}
	if pen := 0.0 - (b.Position().Y() - 1.0); pen > 1e-2 {
		t.Errorf("sphere sank %v into the ground", pen)
	}
}

func TestWarmStartSeedsImpulses(t *testing.T) {
	tun := DefaultTunables()
	tun.WarmStart = true
	w, b := makeDropScene(t, tun)

	for step := 0; step < 30; step++ {
		if err := w.Step(1.0 / 60.0); err != nil {
			t.Fatalf("Step %d: %v", step, err)
		}
	}
	if len(w.warm) == 0 {
		t.Fatal("warm-start map empty after contact steps")
	}
	if v := b.LinearVelocity().Len(); v > restVelocityThreshold {
		t.Errorf("sphere still moving at %v with warm starting", v)
	}
}

func TestNonFiniteBodyRejected(t *testing.T) {
	space := NewSimpleSpace()
	w, err := NewWorld(space, DefaultTunables())
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}

	bad, _ := w.CreateBody()
	bad.SetPosition(mgl64.Vec3{0.0, 10.0, 0.0})
	bad.SetLinearVelocity(mgl64.Vec3{1.0, 0.0, 0.0})
	bad.AddForce(mgl64.Vec3{math.NaN(), 0.0, 0.0})

	good, _ := w.CreateBody()
	good.SetPosition(mgl64.Vec3{5.0, 10.0, 0.0})

	if err := w.Step(1.0 / 60.0); err != nil {
		t.Fatalf("Step: %v", err)
	}

	if !bad.UpdateRejected() {
		t.Error("body fed a NaN force was not flagged rejected")
	}
	if v := bad.LinearVelocity(); v != (mgl64.Vec3{1.0, 0.0, 0.0}) {
		t.Errorf("rejected body velocity = %v, want the pre-step value", v)
	}
	if p := bad.Position(); p != (mgl64.Vec3{0.0, 10.0, 0.0}) {
		t.Errorf("rejected body moved to %v", p)
	}

	if good.UpdateRejected() {
		t.Error("healthy body flagged rejected")
	}
	if good.Position().Y() >= 10.0 {
		t.Error("healthy body did not fall while its neighbor was rejected")
	}

	// The flag clears once the body behaves again.
	if err := w.Step(1.0 / 60.0); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if bad.UpdateRejected() {
		t.Error("rejection flag stuck after a clean step")
	}
}

func TestGravityIgnored(t *testing.T) {
	w, err := NewWorld(nil, DefaultTunables())
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	b, _ := w.CreateBody()
	b.SetGravityIgnored(true)

	for step := 0; step < 10; step++ {
		if err := w.Step(1.0 / 60.0); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}
	if v := b.LinearVelocity().Len(); v != 0.0 {
		t.Errorf("gravity-ignoring body accelerated to %v", v)
	}
}

func TestBallJointPinsAnchor(t *testing.T) {
	w, err := NewWorld(nil, DefaultTunables())
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	b, _ := w.CreateBody()

	// Pin a point one unit above the body to the world; gravity makes it
	// swing like a pendulum, never letting the anchor drift.
	anchor := mgl64.Vec3{0.0, 1.0, 0.0}
	if _, err := w.CreateBallJoint(b, nil, anchor); err != nil {
		t.Fatalf("CreateBallJoint: %v", err)
	}
	b.SetLinearVelocity(mgl64.Vec3{0.5, 0.0, 0.0})

	for step := 0; step < 120; step++ {
		if err := w.Step(1.0 / 60.0); err != nil {
			t.Fatalf("Step %d: %v", step, err)
		}
		world := b.Position().Add(b.Rotation().Mul3x1(mgl64.Vec3{0.0, 1.0, 0.0}))
		if drift := world.Sub(anchor).Len(); drift > 0.05 {
			t.Fatalf("step %d: anchor drifted %v", step, drift)
		}
	}
}

func TestHingeConstrainsOffAxisRotation(t *testing.T) {
	w, err := NewWorld(nil, DefaultTunables())
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	b, _ := w.CreateBody()
	b.SetGravityIgnored(true)

	axis := mgl64.Vec3{1.0, 0.0, 0.0}
	j, err := w.CreateHingeJoint(b, nil, mgl64.Vec3{}, axis)
	if err != nil {
		t.Fatalf("CreateHingeJoint: %v", err)
	}

	// Torque about the hinge axis spins the body freely.
	for step := 0; step < 30; step++ {
		b.AddTorque(mgl64.Vec3{2.0, 0.0, 0.0})
		if err := w.Step(1.0 / 60.0); err != nil {
			t.Fatalf("Step %d: %v", step, err)
		}
	}
	if b.AngularVelocity().X() <= 0.0 {
		t.Error("torque about the hinge axis did not spin the body")
	}
	if math.Abs(j.Angle()) < 1e-3 {
		t.Error("hinge angle did not advance under axial torque")
	}

	// Torque off the axis is resisted; the axis stays aligned.
	b.SetAngularVelocity(mgl64.Vec3{})
	for step := 0; step < 30; step++ {
		b.AddTorque(mgl64.Vec3{0.0, 2.0, 0.0})
		if err := w.Step(1.0 / 60.0); err != nil {
			t.Fatalf("Step %d: %v", step, err)
		}
	}
	worldAxis := b.Rotation().Mul3x1(axis)
	if worldAxis.Sub(axis).Len() > 0.05 {
		t.Errorf("hinge axis drifted to %v", worldAxis)
	}
}

func TestHingeStops(t *testing.T) {
	w, err := NewWorld(nil, DefaultTunables())
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	b, _ := w.CreateBody()
	b.SetGravityIgnored(true)

	j, err := w.CreateHingeJoint(b, nil, mgl64.Vec3{}, mgl64.Vec3{1.0, 0.0, 0.0})
	if err != nil {
		t.Fatalf("CreateHingeJoint: %v", err)
	}
	j.LoStop = -0.5
	j.HiStop = 0.5

	// Drive into the high stop and hold.
	for step := 0; step < 180; step++ {
		b.AddTorque(mgl64.Vec3{1.0, 0.0, 0.0})
		if err := w.Step(1.0 / 60.0); err != nil {
			t.Fatalf("Step %d: %v", step, err)
		}
	}
	if a := math.Abs(j.Angle()); a > 0.6 {
		t.Errorf("hinge blew past its stop: angle %v", j.Angle())
	}
	if a := math.Abs(j.Angle()); a < 0.3 {
		t.Errorf("hinge never reached a stop: angle %v", j.Angle())
	}
}

func TestScratchArenaReleasedEachStep(t *testing.T) {
	w, _ := makeDropScene(t, DefaultTunables())
	for step := 0; step < 5; step++ {
		if err := w.Step(1.0 / 60.0); err != nil {
			t.Fatalf("Step %d: %v", step, err)
		}
		if n := w.arena.OverflowCount(); n != 0 {
			t.Fatalf("step %d: arena overflowed %d times on a tiny scene", step, n)
		}
	}
}
