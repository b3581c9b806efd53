// Package statespace defines the continuous spaces planners search through: states, the
// operations a space provides over them, samplers and validity checking.
package statespace

import (
	"math/rand"
)

// State is a point in a Space. Its meaning (bounds, distance, interpolation) belongs entirely to
// the Space it was allocated from.
type State []float64

// Space describes the geometry of a configuration space.
type Space interface {
	Dimension() int
	Distance(a, b State) float64
	// Interpolate writes the state at fraction t along the segment from `from` to `to` into dst.
	Interpolate(from, to State, t float64, dst State)
	EqualStates(a, b State) bool
	CopyState(dst, src State)
	CloneState(s State) State
	AllocState() State
	SatisfiesBounds(s State) bool
	EnforceBounds(s State)
	// MaximumExtent is the largest distance between any two states of the space.
	MaximumExtent() float64
	AllocStateSampler(rng *rand.Rand) Sampler
}

// Euclidean is implemented by spaces whose Distance is the L2 norm over the raw coordinates. Indexes
// may use this to pick a spatial data structure.
type Euclidean interface {
	Euclidean() bool
}

// IsEuclidean returns whether the space declares its distance to be the L2 norm of its coordinates.
func IsEuclidean(space Space) bool {
	e, ok := space.(Euclidean)
	return ok && e.Euclidean()
}

// Sampler draws states from a Space.
type Sampler interface {
	SampleUniform(dst State)
	SampleUniformNear(dst, near State, distance float64)
}

// ValidityChecker decides whether a single state is admissible, e.g. collision free.
type ValidityChecker interface {
	IsValid(s State) bool
}

// ValidityCheckerFunc adapts a function to a ValidityChecker.
type ValidityCheckerFunc func(s State) bool

// IsValid calls f(s).
func (f ValidityCheckerFunc) IsValid(s State) bool {
	return f(s)
}

// AllValid accepts every state.
var AllValid = ValidityCheckerFunc(func(State) bool { return true })

// MotionValidator decides whether the straight motion between two states is admissible. The check
// is asymmetric: `a` is assumed to already be valid and only `b` and the states between them are
// checked.
type MotionValidator interface {
	CheckMotion(a, b State) bool
}
