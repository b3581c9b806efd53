package motionplan

import (
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
)

// default values for planner options.
const (
	// Number of roadmap neighbors of the start and goal used to bias sampling.
	defaultNeighborCap = 10000

	// Every this many biased samples is drawn uniformly instead of from the roadmap.
	defaultUniformSampleEvery = 2

	// Fraction of the space's maximum extent used as range when none is set.
	defaultRangeFraction = 0.2

	// random seed.
	defaultRandomSeed = 0
)

// PlannerOptions are the settings of an ERRTConnect planner.
type PlannerOptions struct {
	// Maximum length of a single growth step. Zero derives it from the space.
	Range float64 `json:"range"`

	// Maximum number of roadmap neighbors collected around the start and the goal.
	NeighborCap int `json:"neighbor_cap"`

	// Every n-th sample is uniform; the others come from the roadmap neighborhoods while they last.
	UniformSampleEvery int `json:"uniform_sample_every"`

	// The random seed used by the planner. A fixed seed with a fixed roadmap reproduces the same search.
	RandomSeed int `json:"rseed"`
}

// NewBasicPlannerOptions returns the default options.
func NewBasicPlannerOptions() *PlannerOptions {
	return &PlannerOptions{
		NeighborCap:        defaultNeighborCap,
		UniformSampleEvery: defaultUniformSampleEvery,
		RandomSeed:         defaultRandomSeed,
	}
}

// NewPlannerOptionsFromExtra returns the default options overridden by the values found in extra,
// which uses the json names of the options as keys. Values are weakly typed, so "2.5" and 2.5 both
// set the range. Unknown keys are ignored.
func NewPlannerOptionsFromExtra(extra map[string]interface{}) (*PlannerOptions, error) {
	opt := NewBasicPlannerOptions()

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           opt,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(extra); err != nil {
		return nil, errors.Wrap(err, "decoding planner options")
	}
	if err := opt.Validate(); err != nil {
		return nil, err
	}
	return opt, nil
}

// Validate checks that the options are usable.
func (p *PlannerOptions) Validate() error {
	if p.Range < 0 {
		return errors.New("range can't be negative")
	}
	if p.NeighborCap < 0 {
		return errors.New("neighbor_cap can't be negative")
	}
	if p.UniformSampleEvery < 1 {
		return errors.Errorf("uniform_sample_every must be at least 1, got %d", p.UniformSampleEvery)
	}
	return nil
}
