package statespace

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Two coordinates closer than this are considered the same.
const defaultStateEpsilon = 2 * 2.220446049250313e-16

// RealVectorSpace is an axis aligned box in R^n with the euclidean metric.
type RealVectorSpace struct {
	low, high []float64
}

// NewRealVectorSpace returns the space bounded by `low` and `high`. Both must have the same,
// non-zero, length and every upper bound must be strictly greater than its lower bound.
func NewRealVectorSpace(low, high []float64) (*RealVectorSpace, error) {
	if len(low) == 0 || len(low) != len(high) {
		return nil, errors.Errorf("bounds must have matching non-zero dimension, got %d and %d", len(low), len(high))
	}
	for i := range low {
		if !(high[i] > low[i]) {
			return nil, errors.Errorf("upper bound %f of dimension %d is not greater than lower bound %f", high[i], i, low[i])
		}
	}
	return &RealVectorSpace{
		low:  append([]float64{}, low...),
		high: append([]float64{}, high...),
	}, nil
}

// Dimension returns the number of coordinates of a state.
func (rv *RealVectorSpace) Dimension() int {
	return len(rv.low)
}

// Bounds returns copies of the lower and upper bounds.
func (rv *RealVectorSpace) Bounds() (low, high []float64) {
	return append([]float64{}, rv.low...), append([]float64{}, rv.high...)
}

// Distance is the L2 norm of a - b.
func (rv *RealVectorSpace) Distance(a, b State) float64 {
	return floats.Distance(a, b, 2)
}

// Interpolate writes from + t*(to-from) into dst.
func (rv *RealVectorSpace) Interpolate(from, to State, t float64, dst State) {
	for i := range dst {
		dst[i] = from[i] + (to[i]-from[i])*t
	}
}

// EqualStates reports whether every coordinate matches up to floating point noise.
func (rv *RealVectorSpace) EqualStates(a, b State) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > defaultStateEpsilon {
			return false
		}
	}
	return true
}

// CopyState copies src into dst.
func (rv *RealVectorSpace) CopyState(dst, src State) {
	copy(dst, src)
}

// CloneState returns a newly allocated copy of s.
func (rv *RealVectorSpace) CloneState(s State) State {
	return append(State{}, s...)
}

// AllocState returns a zeroed state.
func (rv *RealVectorSpace) AllocState() State {
	return make(State, len(rv.low))
}

// SatisfiesBounds reports whether s lies inside the box.
func (rv *RealVectorSpace) SatisfiesBounds(s State) bool {
	if len(s) != len(rv.low) {
		return false
	}
	for i, v := range s {
		if v < rv.low[i]-defaultStateEpsilon || v > rv.high[i]+defaultStateEpsilon {
			return false
		}
	}
	return true
}

// EnforceBounds clamps every coordinate of s into the box.
func (rv *RealVectorSpace) EnforceBounds(s State) {
	for i := range s {
		s[i] = math.Max(rv.low[i], math.Min(rv.high[i], s[i]))
	}
}

// MaximumExtent is the length of the box diagonal.
func (rv *RealVectorSpace) MaximumExtent() float64 {
	return floats.Distance(rv.low, rv.high, 2)
}

// Euclidean marks the space as using the L2 metric on raw coordinates.
func (rv *RealVectorSpace) Euclidean() bool {
	return true
}

// AllocStateSampler returns a sampler drawing from rng.
func (rv *RealVectorSpace) AllocStateSampler(rng *rand.Rand) Sampler {
	return &realVectorSampler{space: rv, rng: rng}
}

type realVectorSampler struct {
	space *RealVectorSpace
	rng   *rand.Rand
}

func (s *realVectorSampler) SampleUniform(dst State) {
	for i := range dst {
		dst[i] = s.space.low[i] + s.rng.Float64()*(s.space.high[i]-s.space.low[i])
	}
}

// SampleUniformNear samples each coordinate uniformly within `distance` of `near`, restricted to
// the bounds of the space.
func (s *realVectorSampler) SampleUniformNear(dst, near State, distance float64) {
	for i := range dst {
		lo := math.Max(s.space.low[i], near[i]-distance)
		hi := math.Min(s.space.high[i], near[i]+distance)
		dst[i] = lo + s.rng.Float64()*(hi-lo)
	}
}
