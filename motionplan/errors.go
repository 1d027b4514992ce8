package motionplan

import "github.com/pkg/errors"

var (
	// ErrInvalidConfiguration is returned when the system or planner is set up with inconsistent dimensions or values.
	ErrInvalidConfiguration = errors.New("invalid planner configuration")

	// ErrNotInitialized is returned when an iteration is requested from a planner that has no tree.
	ErrNotInitialized = errors.New("planner has not been initialized")

	// ErrRejected is returned by the sampling functions when the drawn state is in collision.
	ErrRejected = errors.New("sampled state is in collision")

	// ErrBlocked is returned by Extend when the straight-line segment hits an obstacle.
	ErrBlocked = errors.New("extension is blocked by an obstacle")
)

func newInvalidConfigurationError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidConfiguration, format, args...)
}

func newDimensionMismatchError(what string, got, want int) error {
	return newInvalidConfigurationError("%s has %d dimensions, system has %d", what, got, want)
}
