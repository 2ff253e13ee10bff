package physics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestWorldRejectsBadTunables(t *testing.T) {
	tun := DefaultTunables()
	tun.SOROmega = 2.5
	if _, err := NewWorld(nil, tun); err == nil {
		t.Error("omega outside (0, 2) should fail validation")
	}

	tun = DefaultTunables()
	tun.Iterations = 0
	if _, err := NewWorld(nil, tun); err == nil {
		t.Error("zero iterations should fail validation")
	}
}

func TestWorldRejectsBadTimestep(t *testing.T) {
	w, err := NewWorld(nil, DefaultTunables())
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	for _, h := range []float64{0.0, -1.0, math.NaN(), math.Inf(1)} {
		if err := w.Step(h); err == nil {
			t.Errorf("Step(%v) should fail", h)
		}
	}
	if w.Locked() {
		t.Error("world left locked after rejected steps")
	}
}

func TestDestroyBodyInvalidatesJoints(t *testing.T) {
	w, err := NewWorld(nil, DefaultTunables())
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	b1, _ := w.CreateBody()
	b2, _ := w.CreateBody()

	j, err := w.CreateBallJoint(b1, b2, mgl64.Vec3{0.0, 1.0, 0.0})
	if err != nil {
		t.Fatalf("CreateBallJoint: %v", err)
	}

	g := NewGeom(MakeSphereShape(1.0))
	g.SetBody(b2)

	if err := w.DestroyBody(b2); err != nil {
		t.Fatalf("DestroyBody: %v", err)
	}
	if j.IsValid() {
		t.Error("joint still valid after its body was destroyed")
	}
	if g.Body() != nil {
		t.Error("geom still attached to a destroyed body")
	}

	// The invalid joint is pruned on the next step.
	if err := w.Step(1.0 / 60.0); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if len(w.joints) != 0 {
		t.Errorf("%d joints survived pruning", len(w.joints))
	}

	// And a destroyed body cannot anchor a new joint.
	if _, err := w.CreateBallJoint(b1, b2, mgl64.Vec3{}); err == nil {
		t.Error("joint creation with a destroyed body should fail")
	}
}

func TestDestroyJoint(t *testing.T) {
	w, _ := NewWorld(nil, DefaultTunables())
	b, _ := w.CreateBody()
	j, err := w.CreateBallJoint(b, nil, mgl64.Vec3{})
	if err != nil {
		t.Fatalf("CreateBallJoint: %v", err)
	}
	if err := w.DestroyJoint(j); err != nil {
		t.Fatalf("DestroyJoint: %v", err)
	}
	if err := w.DestroyJoint(j); err == nil {
		t.Error("destroying a joint twice should fail")
	}
}

func TestHingeRejectsDegenerateAxis(t *testing.T) {
	w, _ := NewWorld(nil, DefaultTunables())
	b, _ := w.CreateBody()
	if _, err := w.CreateHingeJoint(b, nil, mgl64.Vec3{}, mgl64.Vec3{}); err == nil {
		t.Error("zero hinge axis should fail")
	}
}

func TestContactsClearedEachStep(t *testing.T) {
	w, b := makeDropScene(t, DefaultTunables())

	// Fall until contact.
	for step := 0; step < 10 && len(w.Contacts()) == 0; step++ {
		if err := w.Step(1.0 / 60.0); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}
	if len(w.Contacts()) == 0 {
		t.Fatal("sphere never touched the ground")
	}

	// Teleport away; the stale contacts must not survive the next step.
	b.SetPosition(mgl64.Vec3{0.0, 50.0, 0.0})
	if err := w.Step(1.0 / 60.0); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if len(w.Contacts()) != 0 {
		t.Errorf("%d stale contacts after teleport", len(w.Contacts()))
	}
}

func TestForcesResetAfterStep(t *testing.T) {
	w, _ := NewWorld(nil, DefaultTunables())
	b, _ := w.CreateBody()
	b.SetGravityIgnored(true)
	b.AddForce(mgl64.Vec3{6.0, 0.0, 0.0})
	b.AddTorque(mgl64.Vec3{0.0, 6.0, 0.0})

	if err := w.Step(0.5); err != nil {
		t.Fatalf("Step: %v", err)
	}
	v1 := b.LinearVelocity()

	// Accumulators were cleared; a second step adds nothing.
	if err := w.Step(0.5); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if v2 := b.LinearVelocity(); v2 != v1 {
		t.Errorf("velocity changed from %v to %v without new forces", v1, v2)
	}
}

func TestAddForceAtPointTorques(t *testing.T) {
	w, _ := NewWorld(nil, DefaultTunables())
	b, _ := w.CreateBody()
	b.SetGravityIgnored(true)

	// An off-center push spins as well as translates.
	b.AddForceAtPoint(mgl64.Vec3{0.0, 0.0, 6.0}, b.Position().Add(mgl64.Vec3{1.0, 0.0, 0.0}))
	if err := w.Step(1.0 / 60.0); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if b.LinearVelocity().Z() <= 0.0 {
		t.Error("force did not translate the body")
	}
	if b.AngularVelocity().Y() >= 0.0 {
		t.Error("off-center force did not produce the expected torque")
	}
}

func TestSetMassRejectsBadValues(t *testing.T) {
	w, _ := NewWorld(nil, DefaultTunables())
	b, _ := w.CreateBody()
	if err := b.SetMass(0.0, mgl64.Ident3()); err == nil {
		t.Error("zero mass should fail")
	}
	if err := b.SetMass(-1.0, mgl64.Ident3()); err == nil {
		t.Error("negative mass should fail")
	}
	if err := b.SetMassFromShape(MakeBoxShape(1.0, 1.0, 1.0), 2.0); err != nil {
		t.Errorf("SetMassFromShape: %v", err)
	}
	if got := b.Mass(); math.Abs(got-16.0) > 1e-12 {
		t.Errorf("box mass = %v, want 16 (2x2x2 at density 2)", got)
	}
}

func TestGeomFollowsBody(t *testing.T) {
	w, _ := NewWorld(nil, DefaultTunables())
	b, _ := w.CreateBody()
	g := NewGeom(MakeSphereShape(0.5))
	g.SetBody(b)

	// Direct geom placement is the body's job now.
	if err := g.SetPosition(mgl64.Vec3{1.0, 0.0, 0.0}); err == nil {
		t.Error("placing an attached geom directly should fail")
	}

	b.SetPosition(mgl64.Vec3{3.0, 4.0, 5.0})
	if g.Position() != (mgl64.Vec3{3.0, 4.0, 5.0}) {
		t.Errorf("geom at %v after body move", g.Position())
	}

	q := mgl64.QuatRotate(math.Pi/2.0, mgl64.Vec3{0.0, 0.0, 1.0})
	b.SetQuaternion(q)
	want := b.Rotation()
	got := g.Rotation()
	for i := 0; i < 9; i++ {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Fatalf("geom rotation diverged from body rotation")
		}
	}
}
