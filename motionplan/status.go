package motionplan

// PlannerStatus is the outcome of a call to Solve.
type PlannerStatus int

// The possible planner outcomes.
const (
	StatusUnknown PlannerStatus = iota
	InvalidStart
	InvalidGoal
	UnrecognizedGoalType
	Timeout
	ApproximateSolution
	ExactSolution
	Crash
	Abort
)

func (s PlannerStatus) String() string {
	switch s {
	case InvalidStart:
		return "Invalid start"
	case InvalidGoal:
		return "Invalid goal"
	case UnrecognizedGoalType:
		return "Unrecognized goal type"
	case Timeout:
		return "Timeout"
	case ApproximateSolution:
		return "Approximate solution"
	case ExactSolution:
		return "Exact solution"
	case Crash:
		return "Crash"
	case Abort:
		return "Abort"
	case StatusUnknown:
	}
	return "Unknown status"
}

// Solved returns whether the status carries a solution path.
func (s PlannerStatus) Solved() bool {
	return s == ExactSolution || s == ApproximateSolution
}
