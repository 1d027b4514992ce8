// Package publish turns a planner's tree and the world it was grown in into messages for viewers.
package publish

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/rrtstar/motionplan"
	"go.viam.com/rrtstar/spatialmath"
)

// World is a System whose regions can be listed.
type World interface {
	motionplan.System
	GoalRegion() spatialmath.Region
	Obstacles() []spatialmath.Region
}

// Box is an axis-aligned region. Worlds with fewer than three dimensions are padded with zeros.
type Box struct {
	Center r3.Vector `json:"center"`
	Size   r3.Vector `json:"size"`
}

// Environment is the static part of a scene.
type Environment struct {
	Operating Box   `json:"operating"`
	Goal      Box   `json:"goal"`
	Obstacles []Box `json:"obstacles"`
}

// Vertex is one tree vertex.
type Vertex struct {
	ID    int       `json:"id"`
	State r3.Vector `json:"state"`
	Cost  float64   `json:"cost"`
}

// Edge joins a parent vertex to a child vertex.
type Edge struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Graph is the full search tree.
type Graph struct {
	Vertices []Vertex `json:"vertices"`
	Edges    []Edge   `json:"edges"`
}

// Trajectory is the best path found so far. Found is false and States empty when no vertex reached the goal.
type Trajectory struct {
	Found  bool        `json:"found"`
	Cost   float64     `json:"cost"`
	States []r3.Vector `json:"states"`
}

func checkDimensions(dims int) error {
	if dims < 1 || dims > 3 {
		return errors.Errorf("can only publish 1 to 3 dimensional worlds, got %d", dims)
	}
	return nil
}

func toVector(s []float64) r3.Vector {
	var v r3.Vector
	if len(s) > 0 {
		v.X = s[0]
	}
	if len(s) > 1 {
		v.Y = s[1]
	}
	if len(s) > 2 {
		v.Z = s[2]
	}
	return v
}

func toBox(r spatialmath.Region) Box {
	return Box{Center: toVector(r.Center), Size: toVector(r.Size)}
}

// NewEnvironment describes the operating region, goal and obstacles of the world.
func NewEnvironment(world World) (*Environment, error) {
	if err := checkDimensions(world.Dimensions()); err != nil {
		return nil, err
	}
	return &Environment{
		Operating: toBox(world.OperatingRegion()),
		Goal:      toBox(world.GoalRegion()),
		Obstacles: lo.Map(world.Obstacles(), func(o spatialmath.Region, _ int) Box {
			return toBox(o)
		}),
	}, nil
}

// NewGraph describes every vertex and edge of the planner's tree in insertion order.
func NewGraph(p *motionplan.Planner) (*Graph, error) {
	if err := checkDimensions(p.System().Dimensions()); err != nil {
		return nil, err
	}
	vertices := p.Vertices()
	graph := &Graph{
		Vertices: lo.Map(vertices, func(v *motionplan.Vertex, _ int) Vertex {
			return Vertex{ID: v.ID(), State: toVector(v.State()), Cost: v.Cost()}
		}),
		Edges: make([]Edge, 0, len(vertices)),
	}
	for _, v := range vertices {
		if parent, ok := v.Parent(); ok {
			graph.Edges = append(graph.Edges, Edge{From: parent.ID(), To: v.ID()})
		}
	}
	return graph, nil
}

// NewTrajectory describes the planner's best path.
func NewTrajectory(p *motionplan.Planner) (*Trajectory, error) {
	if err := checkDimensions(p.System().Dimensions()); err != nil {
		return nil, err
	}
	path, ok := p.BestTrajectory()
	if !ok {
		return &Trajectory{States: []r3.Vector{}}, nil
	}
	return &Trajectory{
		Found: true,
		Cost:  path.Cost(),
		States: lo.Map(path, func(s spatialmath.State, _ int) r3.Vector {
			return toVector(s)
		}),
	}, nil
}
