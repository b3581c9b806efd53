package statespace

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
)

// Motions are checked every this fraction of the space's maximum extent.
const defaultLongestValidSegmentFraction = 0.01

var errNoValidityChecker = errors.New("no state validity checker set")

// Info bundles a Space with the collaborators needed to check states and motions in it.
type Info struct {
	space           Space
	checker         ValidityChecker
	motionValidator MotionValidator

	segmentFraction float64
	segmentLength   float64
	setup           bool
}

// NewInfo returns an Info over space. A validity checker must be set before Setup.
func NewInfo(space Space) *Info {
	return &Info{
		space:           space,
		segmentFraction: defaultLongestValidSegmentFraction,
	}
}

// Space returns the underlying space.
func (si *Info) Space() Space {
	return si.space
}

// SetValidityChecker sets the state validity checker. The Info must be set up again afterwards.
func (si *Info) SetValidityChecker(checker ValidityChecker) {
	si.checker = checker
	si.setup = false
}

// SetMotionValidator replaces the default discretized motion validator.
func (si *Info) SetMotionValidator(mv MotionValidator) {
	si.motionValidator = mv
	si.setup = false
}

// SetLongestValidSegmentFraction sets the resolution of the default motion validator as a fraction
// of the space's maximum extent.
func (si *Info) SetLongestValidSegmentFraction(fraction float64) {
	if fraction > 0 && fraction <= 1 {
		si.segmentFraction = fraction
		si.setup = false
	}
}

// Setup computes the motion checking resolution and installs the default motion validator if none
// was given.
func (si *Info) Setup() error {
	if si.checker == nil {
		return errNoValidityChecker
	}
	si.segmentLength = si.segmentFraction * si.space.MaximumExtent()
	if si.motionValidator == nil {
		si.motionValidator = &discreteMotionValidator{si: si}
	}
	si.setup = true
	return nil
}

// IsSetup returns whether Setup has run since the last change.
func (si *Info) IsSetup() bool {
	return si.setup
}

// IsValid reports whether s is inside the space bounds and accepted by the validity checker.
func (si *Info) IsValid(s State) bool {
	return si.space.SatisfiesBounds(s) && si.checker.IsValid(s)
}

// CheckMotion checks the motion from a to b. `a` is assumed valid.
func (si *Info) CheckMotion(a, b State) bool {
	return si.motionValidator.CheckMotion(a, b)
}

// AllocStateSampler returns a sampler of the underlying space.
func (si *Info) AllocStateSampler(rng *rand.Rand) Sampler {
	return si.space.AllocStateSampler(rng)
}

// discreteMotionValidator checks the end state and then evenly spaced states in between, no
// further apart than the Info's segment length.
type discreteMotionValidator struct {
	si *Info
}

func (dmv *discreteMotionValidator) CheckMotion(a, b State) bool {
	if !dmv.si.IsValid(b) {
		return false
	}
	space := dmv.si.space
	steps := int(math.Ceil(space.Distance(a, b) / dmv.si.segmentLength))
	if steps < 2 {
		return true
	}
	scratch := space.AllocState()
	for j := 1; j < steps; j++ {
		space.Interpolate(a, b, float64(j)/float64(steps), scratch)
		if !dmv.si.IsValid(scratch) {
			return false
		}
	}
	return true
}
