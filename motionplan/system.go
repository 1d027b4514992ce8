package motionplan

import (
	"math/rand"

	"go.viam.com/rrtstar/spatialmath"
)

// System is the motion and cost model a Planner grows its tree over. It owns the configuration space,
// the obstacles, the goal test and the steering function.
type System interface {
	Dimensions() int
	RootState() spatialmath.State
	OperatingRegion() spatialmath.Region

	// Validate checks that the system is fully and consistently configured.
	Validate() error

	// SampleState draws a state from the operating region. It returns ErrRejected if the sample collides.
	SampleState(rng *rand.Rand) (spatialmath.State, error)
	// SampleGoalState draws a state from the goal region. It returns ErrRejected if the sample collides.
	SampleGoalState(rng *rand.Rand) (spatialmath.State, error)

	IsGoal(s spatialmath.State) bool
	IsColliding(s spatialmath.State) bool

	// Extend checks the straight segment between two states and returns the trajectory reaching towards,
	// or ErrBlocked.
	Extend(from, towards spatialmath.State) (Trajectory, error)
	SegmentCost(from, towards spatialmath.State) float64
	CostToGo(s spatialmath.State) float64
}

// Trajectory is a collision-checked segment. Its source is implicit: the state of the vertex it hangs from.
type Trajectory struct {
	EndState spatialmath.State
	Cost     float64
	// Exact is true when EndState is the state that was asked for rather than a partial step towards it.
	Exact bool
}
