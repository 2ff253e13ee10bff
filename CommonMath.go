package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

///////////////////////////////////////////////////////////////////////////////
// Math helpers layered over mgl64. Everything here is a pure function; all
// simulation state lives on bodies, geoms and worlds.
///////////////////////////////////////////////////////////////////////////////

/// This function is used to ensure that a floating point number is not a NaN
/// or infinity.
func IsValid(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

/// IsValidVec reports whether every component of v is finite.
func IsValidVec(v mgl64.Vec3) bool {
	return IsValid(v.X()) && IsValid(v.Y()) && IsValid(v.Z())
}

/// SafeNormalize returns the unit vector along v and its original length.
/// Vectors shorter than eps come back as the zero vector with length 0,
/// signalling a degenerate axis to the caller.
func SafeNormalize(v mgl64.Vec3, eps float64) (mgl64.Vec3, float64) {
	l := v.Len()
	if l < eps {
		return mgl64.Vec3{}, 0.0
	}
	return v.Mul(1.0 / l), l
}

/// PlaneSpace builds an orthonormal basis (p, q) perpendicular to the unit
/// vector n. The larger of n's x/z components decides which axis p avoids,
/// keeping the construction well conditioned.
func PlaneSpace(n mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	if math.Abs(n.Z()) > math.Sqrt2/2.0 {
		// p in the y-z plane
		a := n.Y()*n.Y() + n.Z()*n.Z()
		k := 1.0 / math.Sqrt(a)
		p := mgl64.Vec3{0.0, -n.Z() * k, n.Y() * k}
		q := mgl64.Vec3{a * k, -n.X() * p.Z(), n.X() * p.Y()}
		return p, q
	}
	// p in the x-y plane
	a := n.X()*n.X() + n.Y()*n.Y()
	k := 1.0 / math.Sqrt(a)
	p := mgl64.Vec3{-n.Y() * k, n.X() * k, 0.0}
	q := mgl64.Vec3{-n.Z() * p.Y(), n.Z() * p.X(), a * k}
	return p, q
}

/// WorldInertia transforms a body-frame inertia tensor into world frame:
/// R * I * Rᵀ.
func WorldInertia(r mgl64.Mat3, i mgl64.Mat3) mgl64.Mat3 {
	return r.Mul3(i).Mul3(r.Transpose())
}

/// QuatFromAngularVelocity advances orientation q by angular velocity w over
/// timestep h using the first-order quaternion derivative q' = 0.5 * (0,w) * q,
/// renormalizing to counter drift.
func QuatFromAngularVelocity(q mgl64.Quat, w mgl64.Vec3, h float64) mgl64.Quat {
	wq := mgl64.Quat{W: 0.0, V: w}
	dq := wq.Mul(q)
	out := mgl64.Quat{
		W: q.W + 0.5*h*dq.W,
		V: q.V.Add(dq.V.Mul(0.5 * h)),
	}
	return out.Normalize()
}

/// MulMat3Vec applies m to v. mgl64 spells this Mul3x1; the alias keeps the
/// solver's Jacobian code closer to the math.
func MulMat3Vec(m mgl64.Mat3, v mgl64.Vec3) mgl64.Vec3 {
	return m.Mul3x1(v)
}

/// Clamp returns x limited to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
