package motionplan

import (
	"math"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"go.uber.org/multierr"
)

// default values for planning options.
const (
	// Constant in front of the shrinking near-neighbor radius.
	defaultGamma = 1.5

	// Number of iterations Run performs when not told otherwise.
	defaultPlanIter = 10000

	// Samples are uniform over the operating region unless goal biasing is asked for.
	defaultGoalBias = 0.

	defaultRandomSeed = 1

	// Run logs progress every this fraction of its iterations.
	defaultLoggingInterval = 0.1
)

// PlannerOptions are a set of options to be passed to a planner which will specify how it grows its tree.
type PlannerOptions struct {
	// Scales the near-neighbor radius. Larger values rewire more at the cost of more collision checks.
	Gamma float64 `json:"gamma"`

	// Number of iterations to run.
	PlanIter int `json:"plan_iter"`

	// Probability in [0, 1] of sampling inside the goal region. Zero keeps sampling uniform.
	GoalBias float64 `json:"goal_bias"`

	RandomSeed int64 `json:"random_seed"`

	// Fraction of PlanIter after which progress is logged. Zero disables progress logs.
	LoggingInterval float64 `json:"logging_interval"`

	// Either "linear" or "rtree".
	NeighborIndex string `json:"neighbor_index"`

	// Stop Run as soon as a path to the goal exists.
	StopOnSolution bool `json:"stop_on_solution"`
}

// NewBasicPlannerOptions specifies a set of basic options for the planner.
func NewBasicPlannerOptions() *PlannerOptions {
	return &PlannerOptions{
		Gamma:           defaultGamma,
		PlanIter:        defaultPlanIter,
		GoalBias:        defaultGoalBias,
		RandomSeed:      defaultRandomSeed,
		LoggingInterval: defaultLoggingInterval,
		NeighborIndex:   RtreeNeighborIndex,
	}
}

// NewPlannerOptionsFromExtra returns the basic options overridden by any matching keys in extra. Unknown
// keys are an error.
func NewPlannerOptionsFromExtra(extra map[string]interface{}) (*PlannerOptions, error) {
	opts := NewBasicPlannerOptions()
	if err := opts.ApplyExtra(extra); err != nil {
		return nil, err
	}
	return opts, nil
}

// ApplyExtra overrides the options named by the json keys of extra and validates the result. Values may be
// strings, as they are when they come from the command line. Unknown keys are an error.
func (opts *PlannerOptions) ApplyExtra(extra map[string]interface{}) error {
	if len(extra) == 0 {
		return nil
	}

	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           opts,
		Metadata:         &md,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(extra); err != nil {
		return newInvalidConfigurationError("cannot decode planner options: %v", err)
	}
	if len(md.Unused) > 0 {
		sort.Strings(md.Unused)
		return newInvalidConfigurationError("unknown planner options: %s", strings.Join(md.Unused, ", "))
	}
	return opts.Validate()
}

// Validate returns every problem with the options combined into one error.
func (opts *PlannerOptions) Validate() error {
	var errs error
	if err := validateGamma(opts.Gamma); err != nil {
		errs = multierr.Append(errs, err)
	}
	if opts.PlanIter < 0 {
		errs = multierr.Append(errs, newInvalidConfigurationError("plan_iter must not be negative, got %d", opts.PlanIter))
	}
	if !(opts.GoalBias >= 0 && opts.GoalBias <= 1) {
		errs = multierr.Append(errs, newInvalidConfigurationError("goal_bias must be in [0, 1], got %v", opts.GoalBias))
	}
	if !(opts.LoggingInterval >= 0 && opts.LoggingInterval <= 1) {
		errs = multierr.Append(errs,
			newInvalidConfigurationError("logging_interval must be in [0, 1], got %v", opts.LoggingInterval))
	}
	switch opts.NeighborIndex {
	case LinearNeighborIndex, RtreeNeighborIndex:
	default:
		errs = multierr.Append(errs, newInvalidConfigurationError("neighbor_index must be %q or %q, got %q",
			LinearNeighborIndex, RtreeNeighborIndex, opts.NeighborIndex))
	}
	return errs
}

func validateGamma(gamma float64) error {
	if !(gamma > 0) || math.IsInf(gamma, 0) {
		return newInvalidConfigurationError("gamma must be a positive finite number, got %v", gamma)
	}
	return nil
}
