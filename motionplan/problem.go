package motionplan

import (
	"sort"
	"sync"

	"go.viam.com/bolt/logging"
	"go.viam.com/bolt/statespace"
)

// Solution is a path recorded in a ProblemDefinition.
type Solution struct {
	Path        *Path
	Approximate bool
	// Distance to the goal of the path's last state, zero for exact solutions.
	Difference  float64
	PlannerName string
}

// ProblemDefinition holds the start states and goal of a planning problem, and the solutions found
// for it. Solutions may be read while a planner adds to them.
type ProblemDefinition struct {
	si     *statespace.Info
	starts []statespace.State
	goal   Goal

	mu        sync.Mutex
	solutions []Solution
}

// NewProblemDefinition returns an empty problem over si.
func NewProblemDefinition(si *statespace.Info) *ProblemDefinition {
	return &ProblemDefinition{si: si}
}

// SpaceInformation returns the space information the problem is defined over.
func (pdef *ProblemDefinition) SpaceInformation() *statespace.Info {
	return pdef.si
}

// AddStartState adds a copy of s to the start states.
func (pdef *ProblemDefinition) AddStartState(s statespace.State) {
	pdef.starts = append(pdef.starts, pdef.si.Space().CloneState(s))
}

// ClearStartStates removes every start state.
func (pdef *ProblemDefinition) ClearStartStates() {
	pdef.starts = nil
}

// StartStateCount returns the number of start states.
func (pdef *ProblemDefinition) StartStateCount() int {
	return len(pdef.starts)
}

// StartState returns the i-th start state.
func (pdef *ProblemDefinition) StartState(i int) statespace.State {
	return pdef.starts[i]
}

// SetGoal sets the goal.
func (pdef *ProblemDefinition) SetGoal(goal Goal) {
	pdef.goal = goal
}

// Goal returns the goal.
func (pdef *ProblemDefinition) Goal() Goal {
	return pdef.goal
}

// SetStartAndGoalStates replaces the problem with a single start and a single goal state.
func (pdef *ProblemDefinition) SetStartAndGoalStates(start, goal statespace.State, threshold float64) {
	pdef.ClearStartStates()
	pdef.AddStartState(start)
	pdef.SetGoal(NewGoalState(pdef.si.Space(), goal, threshold))
}

// AddSolutionPath records a solution. Exact solutions are kept ahead of approximate ones, and
// shorter paths ahead of longer ones.
func (pdef *ProblemDefinition) AddSolutionPath(path *Path, approximate bool, difference float64, plannerName string) {
	pdef.mu.Lock()
	defer pdef.mu.Unlock()
	pdef.solutions = append(pdef.solutions, Solution{
		Path:        path,
		Approximate: approximate,
		Difference:  difference,
		PlannerName: plannerName,
	})
	sort.SliceStable(pdef.solutions, func(i, j int) bool {
		a, b := pdef.solutions[i], pdef.solutions[j]
		if a.Approximate != b.Approximate {
			return !a.Approximate
		}
		if a.Approximate && a.Difference != b.Difference {
			return a.Difference < b.Difference
		}
		return a.Path.Length() < b.Path.Length()
	})
}

// HasSolution returns whether any solution was recorded.
func (pdef *ProblemDefinition) HasSolution() bool {
	return pdef.SolutionCount() > 0
}

// HasExactSolution returns whether an exact solution was recorded.
func (pdef *ProblemDefinition) HasExactSolution() bool {
	pdef.mu.Lock()
	defer pdef.mu.Unlock()
	return len(pdef.solutions) > 0 && !pdef.solutions[0].Approximate
}

// SolutionCount returns the number of recorded solutions.
func (pdef *ProblemDefinition) SolutionCount() int {
	pdef.mu.Lock()
	defer pdef.mu.Unlock()
	return len(pdef.solutions)
}

// Solutions returns a copy of the recorded solutions, best first.
func (pdef *ProblemDefinition) Solutions() []Solution {
	pdef.mu.Lock()
	defer pdef.mu.Unlock()
	return append([]Solution{}, pdef.solutions...)
}

// SolutionPath returns the best solution path.
func (pdef *ProblemDefinition) SolutionPath() (*Path, bool) {
	pdef.mu.Lock()
	defer pdef.mu.Unlock()
	if len(pdef.solutions) == 0 {
		return nil, false
	}
	return pdef.solutions[0].Path, true
}

// ClearSolutionPaths forgets every recorded solution.
func (pdef *ProblemDefinition) ClearSolutionPaths() {
	pdef.mu.Lock()
	defer pdef.mu.Unlock()
	pdef.solutions = nil
}

// plannerInputStates walks the start states and goal samples of a problem, yielding only the valid
// ones.
type plannerInputStates struct {
	pdef   *ProblemDefinition
	logger logging.Logger

	addedStarts  int
	sampledGoals int
	tempState    statespace.State
}

func newPlannerInputStates(pdef *ProblemDefinition, logger logging.Logger) *plannerInputStates {
	return &plannerInputStates{pdef: pdef, logger: logger}
}

// restart rewinds the start states and the goal sample count.
func (pis *plannerInputStates) restart() {
	pis.addedStarts = 0
	pis.sampledGoals = 0
}

// clear additionally drops the goal sample scratch state.
func (pis *plannerInputStates) clear() {
	pis.restart()
	pis.tempState = nil
}

func (pis *plannerInputStates) sampledGoalsCount() int {
	return pis.sampledGoals
}

// nextStart returns the next valid start state, or nil once every start was visited.
func (pis *plannerInputStates) nextStart() statespace.State {
	si := pis.pdef.si
	for pis.addedStarts < pis.pdef.StartStateCount() {
		st := pis.pdef.StartState(pis.addedStarts)
		pis.addedStarts++
		if si.IsValid(st) {
			return st
		}
		pis.logger.Warnf("skipping invalid start state %v", st)
	}
	return nil
}

// nextGoal draws goal samples until one is valid, the goal's sample budget runs out or ptc fires.
// The returned state is reused by the next call. At least one sample is drawn if the budget allows.
func (pis *plannerInputStates) nextGoal(ptc TerminationCondition) statespace.State {
	goal, ok := pis.pdef.Goal().(GoalSampleableRegion)
	if !ok {
		return nil
	}
	si := pis.pdef.si
	if pis.tempState == nil {
		pis.tempState = si.Space().AllocState()
	}
	for pis.sampledGoals < goal.MaxSampleCount() && goal.CouldSample() {
		goal.SampleGoal(pis.tempState)
		pis.sampledGoals++
		if si.IsValid(pis.tempState) {
			return pis.tempState
		}
		pis.logger.Debugf("skipping invalid goal sample %v", pis.tempState)
		if ptc() {
			break
		}
	}
	return nil
}

// nextGoalOnce makes a single sampling attempt.
func (pis *plannerInputStates) nextGoalOnce() statespace.State {
	return pis.nextGoal(alwaysTerminate)
}

func alwaysTerminate() bool {
	return true
}
