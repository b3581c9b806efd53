package bolt

import (
	"time"

	"go.uber.org/atomic"
)

// Stats are the running totals of an orchestrator. They accumulate across problems and are only
// reset by Clear.
type Stats struct {
	NumProblems              int64
	NumSolutionsFromRecall   int64
	NumSolutionsFailed       int64
	NumSolutionsTimedOut     int64
	NumSolutionsApproximate  int64
	NumSolutionsTooShort     int64
	NumIntegrityViolations   int64
	NumOptimalityRegressions int64
	NumInsertions            int64
	TotalPlanningTime        time.Duration
	TotalInsertionTime       time.Duration
}

// AveragePlanningTime is the mean time spent in Solve per problem.
func (s Stats) AveragePlanningTime() time.Duration {
	if s.NumProblems == 0 {
		return 0
	}
	return s.TotalPlanningTime / time.Duration(s.NumProblems)
}

// AverageInsertionTime is the mean time spent handing one path to the inserter.
func (s Stats) AverageInsertionTime() time.Duration {
	if s.NumInsertions == 0 {
		return 0
	}
	return s.TotalInsertionTime / time.Duration(s.NumInsertions)
}

// SolvedPercent is the share of problems solved exactly, in percent.
func (s Stats) SolvedPercent() float64 {
	if s.NumProblems == 0 {
		return 0
	}
	return float64(s.NumSolutionsFromRecall) / float64(s.NumProblems) * 100
}

// counters are the live values behind Stats. They may be read while a solve is running.
type counters struct {
	problems              atomic.Int64
	recall                atomic.Int64
	failed                atomic.Int64
	timedOut              atomic.Int64
	approximate           atomic.Int64
	tooShort              atomic.Int64
	integrityViolations   atomic.Int64
	optimalityRegressions atomic.Int64
	insertions            atomic.Int64
	planningTime          atomic.Duration
	insertionTime         atomic.Duration
}

func (c *counters) snapshot() Stats {
	return Stats{
		NumProblems:              c.problems.Load(),
		NumSolutionsFromRecall:   c.recall.Load(),
		NumSolutionsFailed:       c.failed.Load(),
		NumSolutionsTimedOut:     c.timedOut.Load(),
		NumSolutionsApproximate:  c.approximate.Load(),
		NumSolutionsTooShort:     c.tooShort.Load(),
		NumIntegrityViolations:   c.integrityViolations.Load(),
		NumOptimalityRegressions: c.optimalityRegressions.Load(),
		NumInsertions:            c.insertions.Load(),
		TotalPlanningTime:        c.planningTime.Load(),
		TotalInsertionTime:       c.insertionTime.Load(),
	}
}

func (c *counters) reset() {
	for _, v := range []*atomic.Int64{
		&c.problems, &c.recall, &c.failed, &c.timedOut, &c.approximate, &c.tooShort,
		&c.integrityViolations, &c.optimalityRegressions, &c.insertions,
	} {
		v.Store(0)
	}
	c.planningTime.Store(0)
	c.insertionTime.Store(0)
}
