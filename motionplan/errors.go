package motionplan

import "github.com/pkg/errors"

var (
	errNoProblemDefinition = errors.New("no problem definition set")
	errPlannerNotSetup     = errors.New("planner must be set up before solving")
	errSpaceMismatch       = errors.New("problem definition belongs to a different space information")
)
