// Package config reads, validates and describes planning scenarios.
package config

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/rrtstar/motionplan"
	"go.viam.com/rrtstar/spatialmath"
)

// Scenario describes a planning problem: the world the robot moves in, where it starts, where it should go and
// how the planner should search.
type Scenario struct {
	Name       string                     `json:"name,omitempty"`
	Dimensions int                        `json:"dimensions"`
	Operating  spatialmath.Region         `json:"operating"`
	Goal       spatialmath.Region         `json:"goal"`
	Obstacles  []spatialmath.Region       `json:"obstacles,omitempty"`
	Root       []float64                  `json:"root"`
	Planner    *motionplan.PlannerOptions `json:"planner,omitempty"`
}

func checkRegion(what string, r spatialmath.Region, dims int) error {
	if err := r.Validate(); err != nil {
		return errors.Wrap(err, what)
	}
	if r.Dimensions() != dims {
		return errors.Errorf("%s has %d dimensions, scenario has %d", what, r.Dimensions(), dims)
	}
	return nil
}

// Validate returns every problem with the scenario combined into one error.
func (s *Scenario) Validate() error {
	if s.Dimensions <= 0 {
		return errors.Errorf("scenario %q: dimensions must be positive, got %d", s.Name, s.Dimensions)
	}

	var errs error
	errs = multierr.Append(errs, checkRegion("operating region", s.Operating, s.Dimensions))
	for i, size := range s.Operating.Size {
		if !(size > 0) {
			errs = multierr.Append(errs, errors.Errorf("operating region size[%d] must be positive, got %v", i, size))
		}
	}
	errs = multierr.Append(errs, checkRegion("goal region", s.Goal, s.Dimensions))
	for i, o := range s.Obstacles {
		errs = multierr.Append(errs, checkRegion(fmt.Sprintf("obstacle %d", i), o, s.Dimensions))
	}
	if len(s.Root) != s.Dimensions {
		errs = multierr.Append(errs, errors.Errorf("root has %d dimensions, scenario has %d", len(s.Root), s.Dimensions))
	}
	if s.Planner != nil {
		errs = multierr.Append(errs, s.Planner.Validate())
	}
	if errs != nil {
		return errors.Wrapf(errs, "scenario %q", s.Name)
	}
	return nil
}

// PlannerOptions returns a copy of the scenario's planner options, or the basic options if it has none.
func (s *Scenario) PlannerOptions() *motionplan.PlannerOptions {
	if s.Planner == nil {
		return motionplan.NewBasicPlannerOptions()
	}
	opts := *s.Planner
	return &opts
}

// BuildSystem validates the scenario and returns the single integrator it describes.
func (s *Scenario) BuildSystem() (*motionplan.SingleIntegrator, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	si, err := motionplan.NewSingleIntegrator(s.Dimensions)
	if err != nil {
		return nil, err
	}
	if err := si.SetOperatingRegion(s.Operating); err != nil {
		return nil, err
	}
	if err := si.SetGoalRegion(s.Goal); err != nil {
		return nil, err
	}
	for _, o := range s.Obstacles {
		if err := si.AddObstacle(o); err != nil {
			return nil, err
		}
	}
	if err := si.SetRootState(spatialmath.State(s.Root)); err != nil {
		return nil, err
	}
	return si, nil
}

// String prints out a table of the scenario's regions followed by its planner options.
func (s *Scenario) String() string {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("scenario %q (%d-D)", s.Name, s.Dimensions))
	t.AppendHeader(table.Row{"#", "Kind", "Center", "Size"})
	t.AppendRow(table.Row{"", "root", spatialmath.State(s.Root).String(), ""})
	t.AppendRow(table.Row{"", "operating", spatialmath.State(s.Operating.Center).String(), spatialmath.State(s.Operating.Size).String()})
	t.AppendRow(table.Row{"", "goal", spatialmath.State(s.Goal.Center).String(), spatialmath.State(s.Goal.Size).String()})
	for i, o := range s.Obstacles {
		t.AppendRow(table.Row{
			fmt.Sprintf("%d", i),
			"obstacle",
			spatialmath.State(o.Center).String(),
			spatialmath.State(o.Size).String(),
		})
	}

	opts := s.PlannerOptions()
	t.AppendSeparator()
	t.AppendRow(table.Row{"", "gamma", fmt.Sprintf("%v", opts.Gamma), ""})
	t.AppendRow(table.Row{"", "plan_iter", fmt.Sprintf("%d", opts.PlanIter), ""})
	t.AppendRow(table.Row{"", "goal_bias", fmt.Sprintf("%v", opts.GoalBias), ""})
	t.AppendRow(table.Row{"", "random_seed", fmt.Sprintf("%d", opts.RandomSeed), ""})
	t.AppendRow(table.Row{"", "neighbor_index", opts.NeighborIndex, ""})
	t.AppendRow(table.Row{"", "stop_on_solution", fmt.Sprintf("%t", opts.StopOnSolution), ""})
	return t.Render()
}
