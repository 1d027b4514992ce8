package motionplan

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/rrtstar/logging"
	"go.viam.com/rrtstar/spatialmath"
)

// newTwoDSystem builds the 400x400 scene with two three-sided cups, one around the root and one around
// the goal, both open away from each other.
func newTwoDSystem(t *testing.T) *SingleIntegrator {
	t.Helper()
	si, err := NewSingleIntegrator(2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, si.SetOperatingRegion(mustRegion(t, []float64{0, 0}, []float64{400, 400})), test.ShouldBeNil)
	test.That(t, si.SetGoalRegion(mustRegion(t, []float64{-25, -120}, []float64{2, 2})), test.ShouldBeNil)
	for _, o := range []struct{ center, size []float64 }{
		{[]float64{-15, -120}, []float64{5, 40}},
		{[]float64{-35, -120}, []float64{5, 40}},
		{[]float64{-25, -100}, []float64{20, 5}},
		{[]float64{15, 120}, []float64{5, 40}},
		{[]float64{35, 120}, []float64{5, 40}},
		{[]float64{25, 100}, []float64{20, 5}},
	} {
		test.That(t, si.AddObstacle(mustRegion(t, o.center, o.size)), test.ShouldBeNil)
	}
	test.That(t, si.SetRootState(spatialmath.State{25, 120}), test.ShouldBeNil)
	return si
}

// newThreeDSystem builds the 20x20x20 scene with a single block above the root.
func newThreeDSystem(t *testing.T) *SingleIntegrator {
	t.Helper()
	si, err := NewSingleIntegrator(3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, si.SetOperatingRegion(mustRegion(t, []float64{0, 0, 0}, []float64{20, 20, 20})), test.ShouldBeNil)
	test.That(t, si.SetGoalRegion(mustRegion(t, []float64{2, 2, 2}, []float64{2, 2, 2})), test.ShouldBeNil)
	test.That(t, si.AddObstacle(mustRegion(t, []float64{0, 0, 6}, []float64{10, 10, 8})), test.ShouldBeNil)
	return si
}

func checkBestTrajectory(t *testing.T, p *Planner) {
	t.Helper()
	best, ok := p.BestVertex()
	test.That(t, ok, test.ShouldBeTrue)
	path, ok := p.BestTrajectory()
	test.That(t, ok, test.ShouldBeTrue)

	root, ok := p.Root()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, path[0], test.ShouldResemble, root.State())
	test.That(t, path[len(path)-1], test.ShouldResemble, best.State())
	test.That(t, path.Cost(), test.ShouldAlmostEqual, best.Cost(), 1e-9*math.Max(1, best.Cost()))
	test.That(t, p.System().IsGoal(path[len(path)-1]), test.ShouldBeTrue)
	test.That(t, path.Validate(p.System()), test.ShouldBeNil)
}

func TestPlannerNotInitialized(t *testing.T) {
	var p Planner
	test.That(t, p.Iteration(), test.ShouldBeError, ErrNotInitialized)
	test.That(t, p.Initialize(), test.ShouldBeError, ErrNotInitialized)
	test.That(t, p.VertexCount(), test.ShouldEqual, 0)
	_, ok := p.Root()
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = p.BestTrajectory()
	test.That(t, ok, test.ShouldBeFalse)
}

func TestNewPlannerErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)

	_, err := NewPlanner(nil, nil, logger)
	test.That(t, errors.Is(err, ErrInvalidConfiguration), test.ShouldBeTrue)

	si, err := NewSingleIntegrator(2)
	test.That(t, err, test.ShouldBeNil)
	_, err = NewPlanner(si, nil, logger)
	test.That(t, errors.Is(err, ErrInvalidConfiguration), test.ShouldBeTrue)

	opts := NewBasicPlannerOptions()
	opts.Gamma = math.NaN()
	_, err = NewPlanner(newThreeDSystem(t), opts, logger)
	test.That(t, errors.Is(err, ErrInvalidConfiguration), test.ShouldBeTrue)

	p, err := NewPlanner(newThreeDSystem(t), nil, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.VertexCount(), test.ShouldEqual, 1)
	test.That(t, p.SetGamma(0), test.ShouldNotBeNil)
	test.That(t, p.SetGamma(math.Inf(1)), test.ShouldNotBeNil)
	test.That(t, p.SetGamma(3), test.ShouldBeNil)
	test.That(t, p.Gamma(), test.ShouldEqual, 3.)
}

func TestPlannerInvariantsEveryIteration(t *testing.T) {
	logger := logging.NewTestLogger(t)
	p, err := NewPlanner(newThreeDSystem(t), nil, logger)
	test.That(t, err, test.ShouldBeNil)

	root, ok := p.Root()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, root.State(), test.ShouldResemble, spatialmath.State{0, 0, 0})

	iterations := 2000
	if testing.Short() {
		iterations = 300
	}
	bestCost := math.Inf(1)
	for i := 0; i < iterations; i++ {
		test.That(t, p.Iteration(), test.ShouldBeNil)
		test.That(t, p.tree.checkInvariants(), test.ShouldBeNil)

		if best, ok := p.BestVertex(); ok {
			test.That(t, best.Cost(), test.ShouldBeLessThanOrEqualTo, bestCost)
			bestCost = best.Cost()
		} else {
			test.That(t, math.IsInf(bestCost, 1), test.ShouldBeTrue)
		}
	}

	stats := p.Stats()
	test.That(t, stats.Iterations, test.ShouldEqual, iterations)
	test.That(t, stats.Added+stats.Rejected+stats.Blocked, test.ShouldEqual, iterations)
	test.That(t, p.VertexCount(), test.ShouldEqual, stats.Added+1)
	test.That(t, p.VertexCount(), test.ShouldBeLessThanOrEqualTo, iterations+1)
	test.That(t, stats.Rewires, test.ShouldBeGreaterThan, 0)

	// every vertex is collision free
	for _, v := range p.Vertices() {
		test.That(t, p.System().IsColliding(v.State()), test.ShouldBeFalse)
	}
	if _, ok := p.BestVertex(); ok {
		checkBestTrajectory(t, p)
	}
}

func TestPlannerTwoDScenario(t *testing.T) {
	if testing.Short() {
		t.Skip("long running planning scenario")
	}
	logger := logging.NewTestLogger(t)
	opts := NewBasicPlannerOptions()
	opts.StopOnSolution = true
	// the 2x2 goal is a 1/40000 sliver of the world, so bias towards it to keep the test short
	opts.GoalBias = 0.05
	p, err := NewPlanner(newTwoDSystem(t), opts, logger)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, p.Run(context.Background(), 10000), test.ShouldBeNil)
	test.That(t, p.tree.checkInvariants(), test.ShouldBeNil)
	checkBestTrajectory(t, p)
	test.That(t, p.Stats().Iterations, test.ShouldBeLessThanOrEqualTo, 10000)
}

// goalSampleCounter records how often the planner asks for goal samples.
type goalSampleCounter struct {
	*SingleIntegrator
	goalSamples int
}

func (c *goalSampleCounter) SampleGoalState(rng *rand.Rand) (spatialmath.State, error) {
	c.goalSamples++
	return c.SingleIntegrator.SampleGoalState(rng)
}

func TestDefaultSamplingIsUniform(t *testing.T) {
	counter := &goalSampleCounter{SingleIntegrator: newThreeDSystem(t)}
	p, err := NewPlanner(counter, nil, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Options().GoalBias, test.ShouldEqual, 0.)
	test.That(t, p.Run(context.Background(), 500), test.ShouldBeNil)
	test.That(t, counter.goalSamples, test.ShouldEqual, 0)

	// the same seed with goal biasing draws goal samples
	opts := NewBasicPlannerOptions()
	opts.GoalBias = 0.5
	biased := &goalSampleCounter{SingleIntegrator: newThreeDSystem(t)}
	p, err = NewPlanner(biased, opts, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Run(context.Background(), 500), test.ShouldBeNil)
	test.That(t, biased.goalSamples, test.ShouldBeGreaterThan, 0)
}

func TestPlannerDeterminism(t *testing.T) {
	run := func(index string) []vertexSummary {
		opts := NewBasicPlannerOptions()
		opts.NeighborIndex = index
		p, err := NewPlanner(newThreeDSystem(t), opts, logging.NewTestLogger(t))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, p.Run(context.Background(), 400), test.ShouldBeNil)
		return summarize(p)
	}

	first := run(RtreeNeighborIndex)
	test.That(t, cmp.Diff(first, run(RtreeNeighborIndex)), test.ShouldBeEmpty)
	test.That(t, cmp.Diff(first, run(LinearNeighborIndex)), test.ShouldBeEmpty)
}

type vertexSummary struct {
	State  []float64
	Parent int
	Cost   float64
}

func summarize(p *Planner) []vertexSummary {
	out := make([]vertexSummary, 0, p.VertexCount())
	for _, v := range p.Vertices() {
		parent := noVertex
		if pv, ok := v.Parent(); ok {
			parent = pv.ID()
		}
		out = append(out, vertexSummary{State: v.State(), Parent: parent, Cost: v.Cost()})
	}
	return out
}

func TestPlannerInitializeResets(t *testing.T) {
	p, err := NewPlanner(newThreeDSystem(t), nil, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Run(context.Background(), 200), test.ShouldBeNil)
	before := summarize(p)
	test.That(t, len(before), test.ShouldBeGreaterThan, 1)

	test.That(t, p.Initialize(), test.ShouldBeNil)
	test.That(t, p.VertexCount(), test.ShouldEqual, 1)
	test.That(t, p.Stats(), test.ShouldResemble, Stats{})
	_, ok := p.BestVertex()
	test.That(t, ok, test.ShouldBeFalse)

	// re-seeding replays the same tree
	test.That(t, p.Run(context.Background(), 200), test.ShouldBeNil)
	test.That(t, cmp.Diff(before, summarize(p)), test.ShouldBeEmpty)
}

func TestPlannerRootInGoal(t *testing.T) {
	si := newThreeDSystem(t)
	test.That(t, si.SetRootState(spatialmath.State{2, 2, 1.5}), test.ShouldBeNil)
	p, err := NewPlanner(si, nil, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	best, ok := p.BestVertex()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, best.IsRoot(), test.ShouldBeTrue)
	path, ok := p.BestTrajectory()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, path, test.ShouldHaveLength, 1)
}

func TestRun(t *testing.T) {
	logger, observed := logging.NewObservedTestLogger(t)
	opts := NewBasicPlannerOptions()
	opts.StopOnSolution = true
	opts.GoalBias = 0.5
	p, err := NewPlanner(newThreeDSystem(t), opts, logger)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, p.Run(context.Background(), 2000), test.ShouldBeNil)
	_, ok := p.BestVertex()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, p.Stats().Iterations, test.ShouldBeLessThan, 2000)
	test.That(t, observed.FilterMessage("path to goal found, stopping").Len(), test.ShouldEqual, 1)
	test.That(t, observed.FilterMessage("planner configured").Len(), test.ShouldEqual, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	test.That(t, p.Run(ctx, 10), test.ShouldBeError, context.Canceled)
}

func TestNearRadius(t *testing.T) {
	p, err := NewPlanner(newThreeDSystem(t), nil, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	// a single vertex gives ln(1) = 0
	test.That(t, p.nearRadius(), test.ShouldEqual, 0.)

	test.That(t, p.Run(context.Background(), 500), test.ShouldBeNil)
	n := float64(p.VertexCount())
	test.That(t, p.nearRadius(), test.ShouldAlmostEqual, 1.5*math.Pow(math.Log(n)/n, 1./3))

	test.That(t, p.SetGamma(100), test.ShouldBeNil)
	test.That(t, p.nearRadius(), test.ShouldEqual, maxNearRadius)
}

// newHandBuiltPlanner returns a planner over a 100x100 world rooted at the origin. Tests grow its tree with
// grow instead of Iteration.
func newHandBuiltPlanner(t *testing.T, obstacles ...spatialmath.Region) *Planner {
	t.Helper()
	si, err := NewSingleIntegrator(2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, si.SetOperatingRegion(mustRegion(t, []float64{0, 0}, []float64{100, 100})), test.ShouldBeNil)
	test.That(t, si.SetGoalRegion(mustRegion(t, []float64{40, 40}, []float64{2, 2})), test.ShouldBeNil)
	for _, o := range obstacles {
		test.That(t, si.AddObstacle(o), test.ShouldBeNil)
	}
	test.That(t, si.SetRootState(spatialmath.State{0, 0}), test.ShouldBeNil)
	p, err := NewPlanner(si, nil, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return p
}

func grow(t *testing.T, p *Planner, parent *Vertex, s spatialmath.State) *Vertex {
	t.Helper()
	traj, err := p.system.Extend(parent.state, s)
	test.That(t, err, test.ShouldBeNil)
	v := p.tree.addVertex(s, parent, traj)
	test.That(t, p.index.insert(v), test.ShouldBeNil)
	return v
}

func TestChooseParent(t *testing.T) {
	t.Run("cheapest near vertex beats the nearest", func(t *testing.T) {
		p := newHandBuiltPlanner(t)
		root, _ := p.Root()
		xNearest := grow(t, p, root, spatialmath.State{10, 5})
		xRand := spatialmath.State{10, 10}
		nearestTraj, err := p.system.Extend(xNearest.state, xRand)
		test.That(t, err, test.ShouldBeNil)

		parent, traj, err := p.chooseParent(xRand, xNearest, nearestTraj, []*Vertex{root, xNearest})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, parent.ID(), test.ShouldEqual, root.ID())
		test.That(t, traj.Cost, test.ShouldAlmostEqual, math.Sqrt(200))
		test.That(t, traj.EndState, test.ShouldResemble, xRand)
	})

	t.Run("blocked candidate falls through to the next cheapest", func(t *testing.T) {
		// blocks the straight segment from the root to xRand only
		p := newHandBuiltPlanner(t, mustRegion(t, []float64{5, 5}, []float64{2, 2}))
		root, _ := p.Root()
		xNearest := grow(t, p, root, spatialmath.State{10, 5})
		side := grow(t, p, root, spatialmath.State{6, 10})
		xRand := spatialmath.State{10, 10}
		nearestTraj, err := p.system.Extend(xNearest.state, xRand)
		test.That(t, err, test.ShouldBeNil)

		// costs through root, side and xNearest are 14.14 (blocked), 15.66 and 16.18
		parent, traj, err := p.chooseParent(xRand, xNearest, nearestTraj, []*Vertex{root, xNearest, side})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, parent.ID(), test.ShouldEqual, side.ID())
		test.That(t, traj.Cost, test.ShouldAlmostEqual, 4.)
	})

	t.Run("equal costs go to the lowest id", func(t *testing.T) {
		p := newHandBuiltPlanner(t)
		root, _ := p.Root()
		above := grow(t, p, root, spatialmath.State{5, 5})
		below := grow(t, p, root, spatialmath.State{5, -5})
		xNearest := grow(t, p, below, spatialmath.State{10, 3})
		xRand := spatialmath.State{10, 0}
		nearestTraj, err := p.system.Extend(xNearest.state, xRand)
		test.That(t, err, test.ShouldBeNil)

		parent, _, err := p.chooseParent(xRand, xNearest, nearestTraj, []*Vertex{below, above, xNearest})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, above.ID(), test.ShouldBeLessThan, below.ID())
		test.That(t, parent.ID(), test.ShouldEqual, above.ID())
	})

	t.Run("empty near set keeps the nearest", func(t *testing.T) {
		p := newHandBuiltPlanner(t)
		root, _ := p.Root()
		xRand := spatialmath.State{3, 4}
		nearestTraj, err := p.system.Extend(root.state, xRand)
		test.That(t, err, test.ShouldBeNil)

		parent, traj, err := p.chooseParent(xRand, root, nearestTraj, nil)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, parent.ID(), test.ShouldEqual, root.ID())
		test.That(t, traj.Cost, test.ShouldAlmostEqual, 5.)
	})
}

func TestRewireNear(t *testing.T) {
	t.Run("only strict decreases rewire", func(t *testing.T) {
		p := newHandBuiltPlanner(t)
		root, _ := p.Root()
		tie := grow(t, p, root, spatialmath.State{10, 0})
		detour := grow(t, p, tie, spatialmath.State{10, 1})
		xNew := grow(t, p, root, spatialmath.State{5, 0})

		// through xNew, tie costs exactly 10 again and detour drops from 11 to 5+sqrt(26)
		test.That(t, p.rewireNear(xNew, root, []*Vertex{root, tie, detour, xNew}), test.ShouldBeNil)

		parent, ok := tie.Parent()
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, parent.ID(), test.ShouldEqual, root.ID())
		test.That(t, tie.Cost(), test.ShouldEqual, 10.)

		parent, ok = detour.Parent()
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, parent.ID(), test.ShouldEqual, xNew.ID())
		test.That(t, detour.Cost(), test.ShouldAlmostEqual, 5+math.Sqrt(26))
		test.That(t, vertexIDs(tie.Children()), test.ShouldBeEmpty)

		// the chosen parent and xNew itself stay where they were
		test.That(t, root.IsRoot(), test.ShouldBeTrue)
		parent, ok = xNew.Parent()
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, parent.ID(), test.ShouldEqual, root.ID())

		test.That(t, p.Stats().Rewires, test.ShouldEqual, 1)
		test.That(t, p.tree.checkInvariants(), test.ShouldBeNil)
	})

	t.Run("blocked segment leaves the vertex alone", func(t *testing.T) {
		// blocks x=10 between y=5 and y=7, which is only on the segment from xNew to far
		p := newHandBuiltPlanner(t, mustRegion(t, []float64{10, 6}, []float64{2, 2}))
		root, _ := p.Root()
		corner := grow(t, p, root, spatialmath.State{0, 10})
		far := grow(t, p, corner, spatialmath.State{10, 10})
		xNew := grow(t, p, root, spatialmath.State{10, 2})
		test.That(t, xNew.Cost()+8, test.ShouldBeLessThan, far.Cost())

		test.That(t, p.rewireNear(xNew, root, []*Vertex{corner, far}), test.ShouldBeNil)

		parent, ok := far.Parent()
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, parent.ID(), test.ShouldEqual, corner.ID())
		test.That(t, far.Cost(), test.ShouldAlmostEqual, 20.)
		test.That(t, p.Stats().Rewires, test.ShouldEqual, 0)
		test.That(t, p.tree.checkInvariants(), test.ShouldBeNil)
	})
}
