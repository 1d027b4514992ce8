package motionplan

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"go.viam.com/rrtstar/spatialmath"
)

// Path is a sequence of states from the root of a tree to one of its vertices.
type Path []spatialmath.State

// Cost returns the summed Euclidean length of the consecutive segments of the path.
func (path Path) Cost() float64 {
	cost := 0.
	for i := 1; i < len(path); i++ {
		cost += path[i-1].Distance(path[i])
	}
	return cost
}

// Validate re-checks every segment of the path against the system's collision checker, and that each segment
// ends where the next one starts.
func (path Path) Validate(system System) error {
	if len(path) == 0 {
		return errors.New("path is empty")
	}
	if len(path) == 1 {
		if system.IsColliding(path[0]) {
			return errors.Wrapf(ErrBlocked, "state %v is in collision", path[0])
		}
		return nil
	}
	for i := 1; i < len(path); i++ {
		traj, err := system.Extend(path[i-1], path[i])
		if err != nil {
			return errors.Wrapf(err, "segment %d from %v to %v", i-1, path[i-1], path[i])
		}
		if !traj.EndState.AlmostEqual(path[i]) {
			return errors.Errorf("segment %d from %v ends at %v instead of %v", i-1, path[i-1], traj.EndState, path[i])
		}
	}
	return nil
}

func (path Path) String() string {
	var str strings.Builder
	for i, s := range path {
		if i > 0 {
			str.WriteString(" -> ")
		}
		str.WriteString(s.String())
	}
	return fmt.Sprintf("%d states, cost %.4f: %s", len(path), path.Cost(), str.String())
}
