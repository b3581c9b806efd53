package bolt

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrOptimalityRegression is reported when a raw path is longer than the roadmap's quality
// parameters allow. It signals a poor roadmap, not a planner bug.
var ErrOptimalityRegression = errors.New("asymptotic optimality guarantee violated")

var errNoSolution = errors.New("no solution path available")

// IntegrityViolationError is returned when a solution path holds two equal consecutive states.
// Such a path is never handed out.
type IntegrityViolationError struct {
	// Index of the second state of the duplicate pair.
	Index int
	// Number of states of the path.
	Count int
}

func (e *IntegrityViolationError) Error() string {
	return fmt.Sprintf("duplicate state found between %d and %d on path, out of %d", e.Index-1, e.Index, e.Count)
}
