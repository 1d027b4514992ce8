package motionplan

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"github.com/pkg/errors"

	"go.viam.com/rrtstar/logging"
	"go.viam.com/rrtstar/spatialmath"
	"go.viam.com/rrtstar/utils"
)

// Upper bound on the near-neighbor radius, in units of the operating region's size along each axis.
const maxNearRadius = 1.

// Stats counts the outcomes of the iterations run since the last Initialize.
type Stats struct {
	Iterations       int `json:"iterations"`
	Rejected         int `json:"rejected"`
	Blocked          int `json:"blocked"`
	Added            int `json:"added"`
	Rewires          int `json:"rewires"`
	IncumbentUpdates int `json:"incumbent_updates"`
}

// Planner grows an RRT* tree over a System. It is not safe for concurrent use.
type Planner struct {
	system System
	opts   PlannerOptions
	logger logging.Logger

	randseed *rand.Rand
	// per-axis size of the operating region. Near-neighbor distances are measured in these units.
	scale []float64

	tree  *searchTree
	index neighborIndex
	best  *Vertex
	stats Stats
}

// NewPlanner validates the system and options and returns a planner with its tree initialized to the
// system's root state. A nil opts uses NewBasicPlannerOptions and a nil logger logs through a
// sublogger of logging.Global().
func NewPlanner(system System, opts *PlannerOptions, logger logging.Logger) (*Planner, error) {
	if system == nil {
		return nil, newInvalidConfigurationError("planner needs a system")
	}
	if opts == nil {
		opts = NewBasicPlannerOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := system.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Global().Sublogger("planner")
	}
	p := &Planner{
		system: system,
		opts:   *opts,
		logger: logger,
	}
	if err := p.Initialize(); err != nil {
		return nil, err
	}
	p.logger.Infow("planner configured",
		"dimensions", system.Dimensions(),
		"gamma", p.opts.Gamma,
		"goal_bias", p.opts.GoalBias,
		"neighbor_index", p.opts.NeighborIndex,
		"random_seed", p.opts.RandomSeed,
	)
	return p, nil
}

// Initialize discards the tree, the incumbent and the stats, re-seeds the random source and creates a new
// root from the system's root state.
func (p *Planner) Initialize() error {
	if p.system == nil {
		return ErrNotInitialized
	}
	dims := p.system.Dimensions()
	rootState := p.system.RootState()
	if rootState.Dimensions() != dims {
		return newDimensionMismatchError("root state", rootState.Dimensions(), dims)
	}
	operating := p.system.OperatingRegion()
	if operating.Dimensions() != dims {
		return newDimensionMismatchError("operating region", operating.Dimensions(), dims)
	}
	index, err := newNeighborIndex(p.opts.NeighborIndex, dims)
	if err != nil {
		return newInvalidConfigurationError("%v", err)
	}

	//nolint:gosec
	p.randseed = rand.New(rand.NewSource(p.opts.RandomSeed))
	p.scale = operating.Size
	p.tree = newSearchTree()
	p.index = index
	p.best = nil
	p.stats = Stats{}

	root := p.tree.createRoot(rootState)
	if err := p.index.insert(root); err != nil {
		return err
	}
	p.updateIncumbent(root)
	return nil
}

// SetGamma changes the constant in front of the near-neighbor radius.
func (p *Planner) SetGamma(gamma float64) error {
	if err := validateGamma(gamma); err != nil {
		return err
	}
	p.opts.Gamma = gamma
	return nil
}

// Gamma returns the constant in front of the near-neighbor radius.
func (p *Planner) Gamma() float64 {
	return p.opts.Gamma
}

// Options returns a copy of the options the planner runs with.
func (p *Planner) Options() PlannerOptions {
	return p.opts
}

// System returns the model the planner was built with.
func (p *Planner) System() System {
	return p.system
}

// Iteration runs one sample, extend, choose-parent, insert and rewire step. Collided samples and blocked
// extensions end the iteration without changing the tree and are not errors.
func (p *Planner) Iteration() error {
	if p.tree == nil || p.tree.size() == 0 {
		return ErrNotInitialized
	}
	p.stats.Iterations++

	xRand, err := p.sample()
	if err != nil {
		if errors.Is(err, ErrRejected) {
			p.stats.Rejected++
			return nil
		}
		return err
	}

	xNearest, ok := p.index.nearest(xRand)
	if !ok {
		return ErrNotInitialized
	}
	nearestTraj, err := p.system.Extend(xNearest.state, xRand)
	if err != nil {
		if errors.Is(err, ErrBlocked) {
			p.stats.Blocked++
			return nil
		}
		return err
	}

	near := p.index.withinRadius(xRand, p.nearRadius(), p.scale)
	parent, traj, err := p.chooseParent(xRand, xNearest, nearestTraj, near)
	if err != nil {
		return err
	}
	xNew := p.tree.addVertex(xRand, parent, traj)
	if err := p.index.insert(xNew); err != nil {
		return err
	}
	p.stats.Added++

	if err := p.rewireNear(xNew, parent, near); err != nil {
		return err
	}
	p.updateIncumbent(xNew)
	return nil
}

// Run calls Iteration the given number of times, or PlanIter times if iterations is not positive. The context
// is only checked between iterations.
func (p *Planner) Run(ctx context.Context, iterations int) error {
	if iterations <= 0 {
		iterations = p.opts.PlanIter
	}

	// Number of iterations after which a log will be printed
	logIteration := utils.ScaleByPct(iterations, p.opts.LoggingInterval)

	for i := 1; i <= iterations; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := p.Iteration(); err != nil {
			return err
		}

		// log status of planner to periodically inform user
		if logIteration > 0 && i%logIteration == 0 {
			cost := math.Inf(1)
			if p.best != nil {
				cost = p.best.cost
			}
			p.logger.Infof("RRT* progress: %d%%\tvertices: %d\tpath cost: %.3f", 100*i/iterations, p.tree.size(), cost)
		}

		if p.opts.StopOnSolution && p.best != nil {
			p.logger.Infow("path to goal found, stopping", "iteration", i, "cost", p.best.cost)
			return nil
		}
	}
	return nil
}

func (p *Planner) sample() (spatialmath.State, error) {
	if p.opts.GoalBias > 0 && p.randseed.Float64() < p.opts.GoalBias {
		return p.system.SampleGoalState(p.randseed)
	}
	return p.system.SampleState(p.randseed)
}

// nearRadius is gamma * (ln|V| / |V|)^(1/d) capped at maxNearRadius.
func (p *Planner) nearRadius() float64 {
	n := float64(p.tree.size())
	d := float64(p.system.Dimensions())
	r := p.opts.Gamma * math.Pow(math.Log(n)/n, 1/d)
	return math.Min(r, maxNearRadius)
}

// chooseParent returns the candidate giving xRand the lowest cost through a collision-free segment. The
// candidates are the near set plus xNearest, whose segment is already known to be free. Equal costs go to
// the lowest id.
func (p *Planner) chooseParent(
	xRand spatialmath.State,
	xNearest *Vertex,
	nearestTraj Trajectory,
	near []*Vertex,
) (*Vertex, Trajectory, error) {
	type candidate struct {
		v    *Vertex
		cost float64
	}
	candidates := make([]candidate, 0, len(near)+1)
	seenNearest := false
	for _, v := range near {
		if v == xNearest {
			seenNearest = true
			candidates = append(candidates, candidate{v, v.cost + nearestTraj.Cost})
			continue
		}
		candidates = append(candidates, candidate{v, v.cost + p.system.SegmentCost(v.state, xRand)})
	}
	if !seenNearest {
		candidates = append(candidates, candidate{xNearest, xNearest.cost + nearestTraj.Cost})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].cost != candidates[j].cost {
			return candidates[i].cost < candidates[j].cost
		}
		return candidates[i].v.id < candidates[j].v.id
	})

	for _, c := range candidates {
		if c.v == xNearest {
			return xNearest, nearestTraj, nil
		}
		traj, err := p.system.Extend(c.v.state, xRand)
		if err == nil {
			return c.v, traj, nil
		}
		if !errors.Is(err, ErrBlocked) {
			return nil, Trajectory{}, err
		}
	}
	// xNearest is always a candidate and always reachable
	return xNearest, nearestTraj, nil
}

// rewireNear re-parents every near vertex that becomes strictly cheaper when reached through xNew.
func (p *Planner) rewireNear(xNew, parent *Vertex, near []*Vertex) error {
	for _, v := range near {
		if v == parent || v == xNew {
			continue
		}
		cost := xNew.cost + p.system.SegmentCost(xNew.state, v.state)
		if !(cost < v.cost) || p.tree.isAncestor(v, xNew) {
			continue
		}
		traj, err := p.system.Extend(xNew.state, v.state)
		if err != nil {
			if errors.Is(err, ErrBlocked) {
				continue
			}
			return err
		}
		p.tree.rewire(v, xNew, traj, p.updateIncumbent)
		p.stats.Rewires++
	}
	return nil
}

// updateIncumbent makes v the best vertex if it is in the goal and strictly cheaper than the current best.
func (p *Planner) updateIncumbent(v *Vertex) {
	if !p.system.IsGoal(v.state) {
		return
	}
	if p.best != nil && !(v.cost < p.best.cost) {
		return
	}
	p.best = v
	p.stats.IncumbentUpdates++
	p.logger.Debugw("new best vertex", "id", v.id, "cost", v.cost, "vertices", p.tree.size())
}

// VertexCount returns the number of vertices in the tree.
func (p *Planner) VertexCount() int {
	if p.tree == nil {
		return 0
	}
	return p.tree.size()
}

// Vertices returns the vertices of the tree in insertion order.
func (p *Planner) Vertices() []*Vertex {
	if p.tree == nil {
		return nil
	}
	out := make([]*Vertex, len(p.tree.vertices))
	copy(out, p.tree.vertices)
	return out
}

// Root returns the root vertex, and false before initialization.
func (p *Planner) Root() (*Vertex, bool) {
	if p.tree == nil {
		return nil, false
	}
	return p.tree.root()
}

// BestVertex returns the cheapest vertex found in the goal region, and false if none was found yet.
func (p *Planner) BestVertex() (*Vertex, bool) {
	return p.best, p.best != nil
}

// BestTrajectory returns the states from the root to the best vertex.
func (p *Planner) BestTrajectory() (Path, bool) {
	if p.best == nil {
		return nil, false
	}
	path := make(Path, 0)
	for v, ok := p.best, true; ok; v, ok = v.Parent() {
		path = append(path, v.State())
	}
	// reverse the slice
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, true
}

// Stats returns the outcome counters since the last Initialize.
func (p *Planner) Stats() Stats {
	return p.stats
}
