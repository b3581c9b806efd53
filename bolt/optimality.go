package bolt

import (
	"go.viam.com/bolt/motionplan"
)

// OptimalityReport compares a raw solution with a shortcut copy of it. A roadmap built with
// stretch factor t and sparse delta d guarantees raw paths no longer than t times the smoothed
// length plus 4d.
type OptimalityReport struct {
	RawLength         float64
	SmoothedLength    float64
	TheoreticalLength float64
	StretchFactor     float64
	SparseDelta       float64
	// RawLength as a percentage of TheoreticalLength.
	PercentOfMax float64
	// ErrOptimalityRegression when the guarantee does not hold.
	Err error
}

// CheckOptimality checks the current solution path against the roadmap's quality guarantee. The
// returned error is only set when there is no solution; a violated guarantee is reported in the
// report.
func (b *Bolt) CheckOptimality() (OptimalityReport, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	path, ok := b.pdef.SolutionPath()
	if !ok {
		return OptimalityReport{}, errNoSolution
	}
	return b.checkOptimality(path), nil
}

func (b *Bolt) checkOptimality(path *motionplan.Path) OptimalityReport {
	criteria := b.graph.Criteria()
	smoothed := motionplan.ShortcutPath(b.si, path)

	r := OptimalityReport{
		RawLength:      path.Length(),
		SmoothedLength: smoothed.Length(),
		StretchFactor:  criteria.StretchFactor,
		SparseDelta:    criteria.SparseDelta(b.si.Space()),
	}
	r.TheoreticalLength = r.StretchFactor*r.SmoothedLength + 4*r.SparseDelta
	if r.TheoreticalLength > 0 {
		r.PercentOfMax = r.RawLength / r.TheoreticalLength * 100
	}

	b.logger.Debug("checking asymptotic optimality guarantees")
	b.logger.Debugw("path lengths",
		"raw", r.RawLength,
		"smoothed", r.SmoothedLength,
		"theoretical", r.TheoreticalLength,
		"stretch_factor", r.StretchFactor,
		"sparse_delta", r.SparseDelta,
	)
	if r.RawLength >= r.TheoreticalLength {
		r.Err = ErrOptimalityRegression
		b.logger.Error(ErrOptimalityRegression)
		return r
	}
	b.logger.Debugf("asymptotic optimality guarantee maintained, %.2f%% of max allowed", r.PercentOfMax)
	return r
}
