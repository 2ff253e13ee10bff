package physics

import "math"

const PhysDEBUG = false

func Assert(a bool) {
	if !a {
		panic("physics.Assert")
	}
}

const maxFloat = math.MaxFloat64

/// @file
/// Global tuning constants based on meters-kilograms-seconds (MKS) units.
/// Values that are legitimately scene-dependent live in Tunables instead.

// Collision

/// The maximum number of contact points a single narrow-phase call may
/// return. Cap clipping against the default 8-segment circle can produce
/// up to 8 points.
const MaxContactPoints = 8

/// Length below which a candidate separating axis is considered degenerate
/// and skipped. Tunable via Tunables.EpsAxis.
const DefaultEpsAxis = 1e-5

/// Tolerance used by the polygon clipper when classifying a vertex against
/// a halfplane. Tunable via Tunables.EpsClip.
const DefaultEpsClip = 1e-6

/// Number of segments used to approximate a cylinder cap circle when
/// clipping a box face against it. Tunable via Tunables.CapSegments.
const DefaultCapSegments = 8

/// Normal-vs-cylinder-axis cosine threshold selecting the side-edge clip
/// strategy over the cap-face clip strategy.
const cylinderSideClipCos = 0.9

// Broad phase

/// Default smallest spatial-hash cell level (cell size 2^level).
const DefaultHashMinLevel = -3

/// Default largest spatial-hash cell level. Geometries whose AABB needs a
/// coarser cell go to the big-objects list.
const DefaultHashMaxLevel = 10

// Dynamics

/// Default global constraint force mixing.
const DefaultCFM = 1e-10

/// Default global error reduction parameter.
const DefaultERP = 0.2

/// Default SOR-LCP iteration count.
const DefaultIterations = 20

/// Default SOR over-relaxation factor. Must stay in (0, 2) for stability.
const DefaultSOROmega = 1.3

/// A velocity magnitude below which the end-to-end rest check in the test
/// suite considers a body settled. Not used by the solver itself.
const restVelocityThreshold = 1e-2

/// Tunables collects every scene-tunable constant consumed by the spaces
/// and the solver. The zero value is not usable; start from
/// DefaultTunables or load one from YAML.
type Tunables struct {
	/// World gravity vector.
	Gravity [3]float64 `yaml:"gravity"`

	/// Global constraint force mixing added to every row's diagonal.
	CFM float64 `yaml:"cfm"`

	/// Global error reduction parameter scaling positional error into the
	/// constraint right-hand side.
	ERP float64 `yaml:"erp"`

	/// SOR-LCP sweep count per step.
	Iterations int `yaml:"iterations"`

	/// SOR over-relaxation factor omega.
	SOROmega float64 `yaml:"sor_omega"`

	/// Shuffle constraint-group order every sweep. Friction rows always
	/// stay after their coupled normal row regardless.
	Shuffle bool `yaml:"shuffle"`

	/// Seed previous-step impulses into the solve, keyed by joint and row
	/// slot. Off by default; contacts are transient.
	WarmStart bool `yaml:"warm_start"`

	/// Maximum contacts requested from narrow phase per geometry pair.
	MaxContacts int `yaml:"max_contacts"`

	/// Contact surface friction coefficient mu. A negative value disables
	/// friction rows entirely.
	Friction float64 `yaml:"friction"`

	/// Candidate-axis degeneracy threshold.
	EpsAxis float64 `yaml:"eps_axis"`

	/// Polygon clipper classification tolerance.
	EpsClip float64 `yaml:"eps_clip"`

	/// Cylinder cap circle approximation segment count.
	CapSegments int `yaml:"cap_segments"`

	/// Spatial hash level range (cell size 2^level).
	HashMinLevel int `yaml:"hash_min_level"`
	HashMaxLevel int `yaml:"hash_max_level"`
}

/// DefaultTunables returns the constants the original scenes shipped with.
func DefaultTunables() Tunables {
	return Tunables{
		Gravity:      [3]float64{0.0, -9.8, 0.0},
		CFM:          DefaultCFM,
		ERP:          DefaultERP,
		Iterations:   DefaultIterations,
		SOROmega:     DefaultSOROmega,
		Shuffle:      false,
		WarmStart:    false,
		MaxContacts:  MaxContactPoints,
		Friction:     0.5,
		EpsAxis:      DefaultEpsAxis,
		EpsClip:      DefaultEpsClip,
		CapSegments:  DefaultCapSegments,
		HashMinLevel: DefaultHashMinLevel,
		HashMaxLevel: DefaultHashMaxLevel,
	}
}
