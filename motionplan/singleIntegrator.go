package motionplan

import (
	"math"
	"math/rand"
	"sort"

	"github.com/dhconnelly/rtreego"
	"go.uber.org/multierr"

	"go.viam.com/rrtstar/spatialmath"
)

const (
	// Distance between two consecutive collision checks along an extension.
	discretizationStep = 0.01

	// Padding added around boxes put into an R-tree. R-tree rectangles must have positive side lengths,
	// and touching rectangles do not count as intersecting.
	rtreeSlack = 1e-6

	rtreeMinChildren = 25
	rtreeMaxChildren = 50
)

// SingleIntegrator is a holonomic point robot moving in straight lines through an axis-aligned box world.
type SingleIntegrator struct {
	dims      int
	operating spatialmath.Region
	goal      spatialmath.Region
	root      spatialmath.State
	obstacles []spatialmath.Region

	obstacleIndex *rtreego.Rtree
}

type obstacleEntry struct {
	index int
	rect  rtreego.Rect
}

func (o *obstacleEntry) Bounds() rtreego.Rect {
	return o.rect
}

// NewSingleIntegrator returns a system of the given dimensionality with every region zero-sized at the origin
// and the root at the origin.
func NewSingleIntegrator(dims int) (*SingleIntegrator, error) {
	if dims <= 0 {
		return nil, newInvalidConfigurationError("dimensions must be positive, got %d", dims)
	}
	zero := make([]float64, dims)
	return &SingleIntegrator{
		dims:          dims,
		operating:     spatialmath.Region{Center: append([]float64{}, zero...), Size: append([]float64{}, zero...)},
		goal:          spatialmath.Region{Center: append([]float64{}, zero...), Size: append([]float64{}, zero...)},
		root:          spatialmath.NewState(dims),
		obstacleIndex: rtreego.NewTree(dims, rtreeMinChildren, rtreeMaxChildren),
	}, nil
}

func (si *SingleIntegrator) checkRegion(what string, r spatialmath.Region) error {
	if r.Dimensions() != si.dims || len(r.Size) != si.dims {
		return newDimensionMismatchError(what, r.Dimensions(), si.dims)
	}
	if err := r.Validate(); err != nil {
		return newInvalidConfigurationError("%s: %v", what, err)
	}
	return nil
}

// SetOperatingRegion sets the region states are sampled from.
func (si *SingleIntegrator) SetOperatingRegion(r spatialmath.Region) error {
	if err := si.checkRegion("operating region", r); err != nil {
		return err
	}
	si.operating = r.Clone()
	return nil
}

// SetGoalRegion sets the region a state must lie in to satisfy the goal test.
func (si *SingleIntegrator) SetGoalRegion(r spatialmath.Region) error {
	if err := si.checkRegion("goal region", r); err != nil {
		return err
	}
	si.goal = r.Clone()
	return nil
}

// AddObstacle appends an obstacle. Obstacles are checked in the order they were added.
func (si *SingleIntegrator) AddObstacle(r spatialmath.Region) error {
	if err := si.checkRegion("obstacle", r); err != nil {
		return err
	}
	r = r.Clone()
	rect, err := paddedRect(r.Min(), r.Max())
	if err != nil {
		return newInvalidConfigurationError("obstacle: %v", err)
	}
	si.obstacleIndex.Insert(&obstacleEntry{index: len(si.obstacles), rect: rect})
	si.obstacles = append(si.obstacles, r)
	return nil
}

// SetRootState sets the state the tree is grown from.
func (si *SingleIntegrator) SetRootState(s spatialmath.State) error {
	if s.Dimensions() != si.dims {
		return newDimensionMismatchError("root state", s.Dimensions(), si.dims)
	}
	si.root = s.Clone()
	return nil
}

// Dimensions returns the dimensionality of the configuration space.
func (si *SingleIntegrator) Dimensions() int {
	return si.dims
}

// RootState returns a copy of the root state.
func (si *SingleIntegrator) RootState() spatialmath.State {
	return si.root.Clone()
}

// OperatingRegion returns a copy of the operating region.
func (si *SingleIntegrator) OperatingRegion() spatialmath.Region {
	return si.operating.Clone()
}

// GoalRegion returns a copy of the goal region.
func (si *SingleIntegrator) GoalRegion() spatialmath.Region {
	return si.goal.Clone()
}

// Obstacles returns copies of the obstacles in insertion order.
func (si *SingleIntegrator) Obstacles() []spatialmath.Region {
	out := make([]spatialmath.Region, 0, len(si.obstacles))
	for _, o := range si.obstacles {
		out = append(out, o.Clone())
	}
	return out
}

// Validate checks that the operating region has a positive extent on every axis, which the planner's
// neighbor radius is measured against.
func (si *SingleIntegrator) Validate() error {
	var errs error
	for i, s := range si.operating.Size {
		if !(s > 0) {
			errs = multierr.Append(errs, newInvalidConfigurationError("operating region size[%d] must be positive, got %v", i, s))
		}
	}
	for i, v := range si.root {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			errs = multierr.Append(errs, newInvalidConfigurationError("root state[%d] must be finite, got %v", i, v))
		}
	}
	return errs
}

// SampleState draws a state uniformly from the operating region.
func (si *SingleIntegrator) SampleState(rng *rand.Rand) (spatialmath.State, error) {
	s := si.operating.Sample(rng)
	if si.IsColliding(s) {
		return nil, ErrRejected
	}
	return s, nil
}

// SampleGoalState draws a state uniformly from the goal region.
func (si *SingleIntegrator) SampleGoalState(rng *rand.Rand) (spatialmath.State, error) {
	s := si.goal.Sample(rng)
	if si.IsColliding(s) {
		return nil, ErrRejected
	}
	return s, nil
}

// IsGoal reports whether s is inside the goal region, boundary included.
func (si *SingleIntegrator) IsGoal(s spatialmath.State) bool {
	return si.goal.Contains(s)
}

// IsColliding reports whether s is inside any obstacle, boundary included.
func (si *SingleIntegrator) IsColliding(s spatialmath.State) bool {
	return collides(si.obstacles, s)
}

func collides(obstacles []spatialmath.Region, s spatialmath.State) bool {
	for _, o := range obstacles {
		if o.Contains(s) {
			return true
		}
	}
	return false
}

// Extend walks the straight segment from `from` to `towards` in discretizationStep increments, then checks
// `towards` itself. The walk covers floor(dist/step) points starting at `from`, so the last partial step
// before the endpoint is not checked.
func (si *SingleIntegrator) Extend(from, towards spatialmath.State) (Trajectory, error) {
	if from.Dimensions() != si.dims {
		return Trajectory{}, newDimensionMismatchError("extension start", from.Dimensions(), si.dims)
	}
	if towards.Dimensions() != si.dims {
		return Trajectory{}, newDimensionMismatchError("extension target", towards.Dimensions(), si.dims)
	}
	dist := from.Distance(towards)
	obstacles := si.obstaclesNear(from, towards)
	if len(obstacles) == 0 {
		return Trajectory{EndState: towards.Clone(), Cost: dist, Exact: true}, nil
	}

	if dist > 0 {
		increments := dist / discretizationStep
		step := make([]float64, si.dims)
		for i := range step {
			step[i] = (towards[i] - from[i]) / increments
		}
		numSegments := int(math.Floor(increments))
		curr := from.Clone()
		for i := 0; i < numSegments; i++ {
			if collides(obstacles, curr) {
				return Trajectory{}, ErrBlocked
			}
			for j := range curr {
				curr[j] += step[j]
			}
		}
	}
	if collides(obstacles, towards) {
		return Trajectory{}, ErrBlocked
	}

	return Trajectory{EndState: towards.Clone(), Cost: dist, Exact: true}, nil
}

// obstaclesNear returns, in insertion order, the obstacles whose boxes overlap the padded bounding box of
// the segment. Every point the extension walk can visit lies in that box.
func (si *SingleIntegrator) obstaclesNear(from, towards spatialmath.State) []spatialmath.Region {
	if len(si.obstacles) == 0 {
		return nil
	}
	lo := make(spatialmath.State, si.dims)
	hi := make(spatialmath.State, si.dims)
	for i := range lo {
		lo[i] = math.Min(from[i], towards[i])
		hi[i] = math.Max(from[i], towards[i])
	}
	rect, err := paddedRect(lo, hi)
	if err != nil {
		return si.obstacles
	}
	hits := si.obstacleIndex.SearchIntersect(rect)
	idx := make([]int, 0, len(hits))
	for _, h := range hits {
		idx = append(idx, h.(*obstacleEntry).index)
	}
	sort.Ints(idx)
	out := make([]spatialmath.Region, 0, len(idx))
	for _, i := range idx {
		// the R-tree boxes are padded, so drop obstacles that only touch the padding
		if si.obstacles[i].Intersects(lo, hi) {
			out = append(out, si.obstacles[i])
		}
	}
	return out
}

// SegmentCost is the Euclidean distance between the two states. It does not check collisions.
func (si *SingleIntegrator) SegmentCost(from, towards spatialmath.State) float64 {
	return from.Distance(towards)
}

// CostToGo is the distance from s to the goal center minus the goal's Radius. It is negative near the goal
// center.
func (si *SingleIntegrator) CostToGo(s spatialmath.State) float64 {
	return s.Distance(si.goal.Center) - si.goal.Radius()
}

// paddedRect returns the R-tree rectangle covering [lo, hi] grown by rtreeSlack on every side.
func paddedRect(lo, hi spatialmath.State) (rtreego.Rect, error) {
	p := make(rtreego.Point, len(lo))
	lengths := make([]float64, len(lo))
	for i := range lo {
		p[i] = lo[i] - rtreeSlack
		lengths[i] = hi[i] - lo[i] + 2*rtreeSlack
	}
	return rtreego.NewRect(p, lengths)
}
