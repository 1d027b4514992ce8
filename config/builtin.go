package config

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/rrtstar/motionplan"
	"go.viam.com/rrtstar/spatialmath"
)

// Names of the scenarios that ship with the planner.
const (
	// TwoDScenario is a 400x400 world where root and goal each sit in a three-sided cup.
	TwoDScenario = "rrtstar"
	// ThreeDScenario is a 20x20x20 world with one block above the root.
	ThreeDScenario = "standalone"
)

var builtins = map[string]func() *Scenario{
	TwoDScenario:   twoDScenario,
	ThreeDScenario: threeDScenario,
}

// BuiltinNames returns the names accepted by Builtin, sorted.
func BuiltinNames() []string {
	names := lo.Keys(builtins)
	sort.Strings(names)
	return names
}

// Builtin returns a fresh copy of the named built-in scenario.
func Builtin(name string) (*Scenario, error) {
	build, ok := builtins[name]
	if !ok {
		return nil, errors.Errorf("unknown scenario %q, expected one of %v", name, BuiltinNames())
	}
	return build(), nil
}

func region(center, size []float64) spatialmath.Region {
	return spatialmath.Region{Center: center, Size: size}
}

func twoDScenario() *Scenario {
	opts := motionplan.NewBasicPlannerOptions()
	// The goal covers 1/40000 of the world and samples are uniform, so run until the first path instead of
	// a fixed budget.
	opts.PlanIter = 200000
	opts.StopOnSolution = true
	return &Scenario{
		Name:       TwoDScenario,
		Dimensions: 2,
		Operating:  region([]float64{0, 0}, []float64{400, 400}),
		Goal:       region([]float64{-25, -120}, []float64{2, 2}),
		// The goal cup comes first, then the root cup, each listed base last.
		Obstacles: []spatialmath.Region{
			region([]float64{-15, -120}, []float64{5, 40}),
			region([]float64{-35, -120}, []float64{5, 40}),
			region([]float64{-25, -100}, []float64{20, 5}),
			region([]float64{15, 120}, []float64{5, 40}),
			region([]float64{35, 120}, []float64{5, 40}),
			region([]float64{25, 100}, []float64{20, 5}),
		},
		Root:    []float64{25, 120},
		Planner: opts,
	}
}

func threeDScenario() *Scenario {
	opts := motionplan.NewBasicPlannerOptions()
	opts.PlanIter = 2000
	return &Scenario{
		Name:       ThreeDScenario,
		Dimensions: 3,
		Operating:  region([]float64{0, 0, 0}, []float64{20, 20, 20}),
		Goal:       region([]float64{2, 2, 2}, []float64{2, 2, 2}),
		Obstacles: []spatialmath.Region{
			region([]float64{0, 0, 6}, []float64{10, 10, 8}),
		},
		Root:    []float64{0, 0, 0},
		Planner: opts,
	}
}
