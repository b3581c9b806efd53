package motionplan

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// TerminationCondition is polled by planners; once it returns true the planner stops.
type TerminationCondition func() bool

// NeverTerminate never asks a planner to stop.
func NeverTerminate() bool {
	return false
}

// TimedTermination fires once d has elapsed on c, measured from the call.
func TimedTermination(c clock.Clock, d time.Duration) TerminationCondition {
	deadline := c.Now().Add(d)
	return func() bool {
		return !c.Now().Before(deadline)
	}
}

// ContextTermination fires once ctx is done.
func ContextTermination(ctx context.Context) TerminationCondition {
	return func() bool {
		return ctx.Err() != nil
	}
}

// IterationTermination answers false to the first n polls and true afterwards.
func IterationTermination(n int) TerminationCondition {
	polls := 0
	return func() bool {
		polls++
		return polls > n
	}
}

// AnyTermination fires as soon as one of conds fires. Nil conditions are ignored.
func AnyTermination(conds ...TerminationCondition) TerminationCondition {
	return func() bool {
		for _, cond := range conds {
			if cond != nil && cond() {
				return true
			}
		}
		return false
	}
}
