package publish

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/rrtstar/motionplan"
	"go.viam.com/rrtstar/spatialmath"
)

// Values of the "kind" property of exported features.
const (
	kindOperating  = "operating"
	kindGoal       = "goal"
	kindObstacle   = "obstacle"
	kindEdge       = "edge"
	kindTrajectory = "trajectory"
)

func toPoint(s []float64) orb.Point {
	return orb.Point{s[0], s[1]}
}

func toPolygon(r spatialmath.Region) orb.Polygon {
	return orb.Bound{Min: toPoint(r.Min()), Max: toPoint(r.Max())}.ToPolygon()
}

func newFeature(g orb.Geometry, kind string) *geojson.Feature {
	f := geojson.NewFeature(g)
	f.Properties["kind"] = kind
	return f
}

// GeoJSON exports a planar world and the planner's tree as a feature collection: regions as polygons, tree
// edges as two point line strings and the best path as one line string. Coordinates are used as is.
func GeoJSON(world World, p *motionplan.Planner) (*geojson.FeatureCollection, error) {
	if world.Dimensions() != 2 {
		return nil, errors.Errorf("geojson export needs a 2 dimensional world, got %d", world.Dimensions())
	}

	fc := geojson.NewFeatureCollection()
	fc.Append(newFeature(toPolygon(world.OperatingRegion()), kindOperating))
	fc.Append(newFeature(toPolygon(world.GoalRegion()), kindGoal))
	for i, o := range world.Obstacles() {
		f := newFeature(toPolygon(o), kindObstacle)
		f.Properties["index"] = i
		fc.Append(f)
	}

	for _, v := range p.Vertices() {
		parent, ok := v.Parent()
		if !ok {
			continue
		}
		f := newFeature(orb.LineString{toPoint(parent.State()), toPoint(v.State())}, kindEdge)
		f.Properties["to"] = v.ID()
		f.Properties["cost"] = v.Cost()
		fc.Append(f)
	}

	if path, ok := p.BestTrajectory(); ok {
		line := orb.LineString(lo.Map(path, func(s spatialmath.State, _ int) orb.Point {
			return toPoint(s)
		}))
		f := newFeature(line, kindTrajectory)
		f.Properties["cost"] = path.Cost()
		fc.Append(f)
	}
	return fc, nil
}
