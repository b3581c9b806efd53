package roadmap

import "go.viam.com/bolt/statespace"

const (
	defaultStretchFactor       = 3.0
	defaultSparseDeltaFraction = 0.25
)

// Criteria are the quality parameters a roadmap was built with. Planners only read them to check
// the optimality of the paths they return.
type Criteria struct {
	// Bound on the ratio between roadmap path length and optimal path length.
	StretchFactor float64 `json:"stretch_factor"`
	// Visibility radius of roadmap vertices, as a fraction of the space's maximum extent.
	SparseDeltaFraction float64 `json:"sparse_delta_fraction"`
}

// NewDefaultCriteria returns the default roadmap criteria.
func NewDefaultCriteria() Criteria {
	return Criteria{
		StretchFactor:       defaultStretchFactor,
		SparseDeltaFraction: defaultSparseDeltaFraction,
	}
}

// SparseDelta scales the fraction by the maximum extent of space.
func (c Criteria) SparseDelta(space statespace.Space) float64 {
	return c.SparseDeltaFraction * space.MaximumExtent()
}
