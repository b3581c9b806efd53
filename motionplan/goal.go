package motionplan

import (
	"math"
	"math/rand"

	"go.viam.com/bolt/statespace"
)

// Maximum rejection sampling attempts of GoalBall before falling back to its center.
const maxBallSampleAttempts = 100

// Goal decides whether a state solves a problem.
type Goal interface {
	IsSatisfied(s statespace.State) bool
}

// GoalSampleableRegion is a goal that can produce states inside itself. Bidirectional planners
// need one to seed their goal tree.
type GoalSampleableRegion interface {
	Goal
	// SampleGoal writes a goal state into dst. The state may be invalid.
	SampleGoal(dst statespace.State)
	// MaxSampleCount is the number of distinct samples the region can produce.
	MaxSampleCount() int
	// CouldSample returns whether the region may ever produce a sample.
	CouldSample() bool
	// IsStartGoalPairValid decides whether a path may connect the given start and goal roots.
	IsStartGoalPairValid(start, goal statespace.State) bool
}

// StartGoalPairFunc restricts which start and goal states may be joined by a solution.
type StartGoalPairFunc func(start, goal statespace.State) bool

type pairValidator struct {
	pairValid StartGoalPairFunc
}

// SetStartGoalPairValidator installs f. A nil f accepts every pair.
func (pv *pairValidator) SetStartGoalPairValidator(f StartGoalPairFunc) {
	pv.pairValid = f
}

func (pv *pairValidator) IsStartGoalPairValid(start, goal statespace.State) bool {
	return pv.pairValid == nil || pv.pairValid(start, goal)
}

// GoalFunc is a goal that can only be tested, not sampled.
type GoalFunc func(s statespace.State) bool

// IsSatisfied calls f(s).
func (f GoalFunc) IsSatisfied(s statespace.State) bool {
	return f(s)
}

// GoalState is a single goal state, satisfied by any state within a threshold of it.
type GoalState struct {
	pairValidator
	space     statespace.Space
	state     statespace.State
	threshold float64
}

// NewGoalState returns a goal around a copy of state.
func NewGoalState(space statespace.Space, state statespace.State, threshold float64) *GoalState {
	return &GoalState{space: space, state: space.CloneState(state), threshold: threshold}
}

// State returns the goal state.
func (g *GoalState) State() statespace.State {
	return g.state
}

// IsSatisfied reports whether s is within the threshold of the goal state.
func (g *GoalState) IsSatisfied(s statespace.State) bool {
	return g.space.Distance(s, g.state) <= g.threshold
}

// SampleGoal copies the goal state into dst.
func (g *GoalState) SampleGoal(dst statespace.State) {
	g.space.CopyState(dst, g.state)
}

// MaxSampleCount is 1.
func (g *GoalState) MaxSampleCount() int {
	return 1
}

// CouldSample is always true.
func (g *GoalState) CouldSample() bool {
	return true
}

// GoalStates is a finite set of goal states, sampled round robin.
type GoalStates struct {
	pairValidator
	space     statespace.Space
	states    []statespace.State
	threshold float64
	next      int
}

// NewGoalStates returns an empty set of goal states.
func NewGoalStates(space statespace.Space, threshold float64) *GoalStates {
	return &GoalStates{space: space, threshold: threshold}
}

// AddState adds a copy of s to the set.
func (g *GoalStates) AddState(s statespace.State) {
	g.states = append(g.states, g.space.CloneState(s))
}

// IsSatisfied reports whether s is within the threshold of any goal state.
func (g *GoalStates) IsSatisfied(s statespace.State) bool {
	for _, goal := range g.states {
		if g.space.Distance(s, goal) <= g.threshold {
			return true
		}
	}
	return false
}

// SampleGoal copies the next goal state into dst.
func (g *GoalStates) SampleGoal(dst statespace.State) {
	if len(g.states) == 0 {
		return
	}
	g.space.CopyState(dst, g.states[g.next%len(g.states)])
	g.next++
}

// MaxSampleCount is the number of goal states.
func (g *GoalStates) MaxSampleCount() int {
	return len(g.states)
}

// CouldSample is true when the set is non-empty.
func (g *GoalStates) CouldSample() bool {
	return len(g.states) > 0
}

// GoalBall is the set of states within a radius of a center.
type GoalBall struct {
	pairValidator
	space   statespace.Space
	center  statespace.State
	radius  float64
	sampler statespace.Sampler
}

// NewGoalBall returns the ball of the given radius around a copy of center, sampled using rng.
func NewGoalBall(space statespace.Space, center statespace.State, radius float64, rng *rand.Rand) *GoalBall {
	return &GoalBall{
		space:   space,
		center:  space.CloneState(center),
		radius:  radius,
		sampler: space.AllocStateSampler(rng),
	}
}

// Center returns the center of the ball.
func (g *GoalBall) Center() statespace.State {
	return g.center
}

// Radius returns the radius of the ball.
func (g *GoalBall) Radius() float64 {
	return g.radius
}

// IsSatisfied reports whether s lies in the ball.
func (g *GoalBall) IsSatisfied(s statespace.State) bool {
	return g.space.Distance(s, g.center) <= g.radius
}

// SampleGoal rejection samples the ball. If no sample lands inside it the center is used.
func (g *GoalBall) SampleGoal(dst statespace.State) {
	for i := 0; i < maxBallSampleAttempts; i++ {
		g.sampler.SampleUniformNear(dst, g.center, g.radius)
		if g.IsSatisfied(dst) {
			return
		}
	}
	g.space.CopyState(dst, g.center)
}

// MaxSampleCount is unbounded.
func (g *GoalBall) MaxSampleCount() int {
	return math.MaxInt
}

// CouldSample is true for any non-negative radius.
func (g *GoalBall) CouldSample() bool {
	return g.radius >= 0
}
