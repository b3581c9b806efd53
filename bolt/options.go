package bolt

import (
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"

	"go.viam.com/bolt/motionplan"
	"go.viam.com/bolt/roadmap"
)

// Roadmap storage backends.
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
)

// default values for orchestrator options.
const (
	// Seconds allowed to a single SolveFor call when no duration is given.
	defaultTimeout = 10.

	defaultStorage = StorageFile
)

// Options configure a Bolt orchestrator. Planner holds the options of the underlying ERRTConnect.
type Options struct {
	// Default planning time, in seconds.
	Timeout float64 `json:"timeout"`

	// Run the optimality diagnostic on every exact solution.
	CheckOptimality bool `json:"check_optimality"`

	// Roadmap quality parameters, consumed by the optimality diagnostic.
	StretchFactor       float64 `json:"stretch_factor"`
	SparseDeltaFraction float64 `json:"sparse_delta_fraction"`

	// Storage backend of the roadmap, "file" or "sqlite".
	Storage string `json:"storage"`

	Planner *motionplan.PlannerOptions `json:"-"`
}

// NewDefaultOptions returns the default options.
func NewDefaultOptions() *Options {
	criteria := roadmap.NewDefaultCriteria()
	return &Options{
		Timeout:             defaultTimeout,
		StretchFactor:       criteria.StretchFactor,
		SparseDeltaFraction: criteria.SparseDeltaFraction,
		Storage:             defaultStorage,
		Planner:             motionplan.NewBasicPlannerOptions(),
	}
}

// NewOptionsFromExtra returns the default options overridden by extra. Planner options are read
// from the same map. Values are weakly typed, so "2.5" and 2.5 both set a float.
func NewOptionsFromExtra(extra map[string]interface{}) (*Options, error) {
	opts := NewDefaultOptions()

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           opts,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(extra); err != nil {
		return nil, errors.Wrap(err, "decoding bolt options")
	}
	if opts.Planner, err = motionplan.NewPlannerOptionsFromExtra(extra); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// Criteria returns the roadmap criteria described by the options.
func (o *Options) Criteria() roadmap.Criteria {
	return roadmap.Criteria{StretchFactor: o.StretchFactor, SparseDeltaFraction: o.SparseDeltaFraction}
}

// Validate checks that the options are usable.
func (o *Options) Validate() error {
	if o.Timeout <= 0 {
		return errors.Errorf("timeout must be positive, got %f", o.Timeout)
	}
	if o.StretchFactor <= 1 {
		return errors.Errorf("stretch_factor must be greater than 1, got %f", o.StretchFactor)
	}
	if o.SparseDeltaFraction <= 0 {
		return errors.Errorf("sparse_delta_fraction must be positive, got %f", o.SparseDeltaFraction)
	}
	switch o.Storage {
	case StorageFile, StorageSQLite:
	default:
		return errors.Errorf("unknown storage %q", o.Storage)
	}
	if o.Planner == nil {
		return errors.New("missing planner options")
	}
	return o.Planner.Validate()
}
