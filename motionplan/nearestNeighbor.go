package motionplan

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/pkg/errors"

	"go.viam.com/rrtstar/spatialmath"
)

// Names of the supported neighbor indexes.
const (
	LinearNeighborIndex = "linear"
	RtreeNeighborIndex  = "rtree"
)

// neighborIndex answers the nearest and near-set queries of the planner. Implementations must agree exactly:
// nearest minimizes Euclidean distance with ties going to the lowest id, and withinRadius returns every
// vertex whose scaled distance is at most r, ordered by id.
type neighborIndex interface {
	insert(v *Vertex) error
	nearest(q spatialmath.State) (*Vertex, bool)
	withinRadius(q spatialmath.State, r float64, scale []float64) []*Vertex
	size() int
}

func newNeighborIndex(kind string, dims int) (neighborIndex, error) {
	switch kind {
	case LinearNeighborIndex:
		return &linearNeighbors{dims: dims}, nil
	case RtreeNeighborIndex, "":
		return &rtreeNeighbors{dims: dims, tree: rtreego.NewTree(dims, rtreeMinChildren, rtreeMaxChildren)}, nil
	default:
		return nil, errors.Errorf("unknown neighbor index %q", kind)
	}
}

// checkIndexable rejects vertices that could not be placed in an index of the given dimension.
func checkIndexable(v *Vertex, dims int) error {
	if v.state.Dimensions() != dims {
		return errors.Errorf("cannot index vertex %d: state has %d dimensions, index has %d",
			v.id, v.state.Dimensions(), dims)
	}
	for _, x := range v.state {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return errors.Errorf("cannot index vertex %d: non-finite state %v", v.id, v.state)
		}
	}
	return nil
}

// linearNeighbors scans every vertex on each query.
type linearNeighbors struct {
	dims     int
	vertices []*Vertex
}

func (nm *linearNeighbors) insert(v *Vertex) error {
	if err := checkIndexable(v, nm.dims); err != nil {
		return err
	}
	nm.vertices = append(nm.vertices, v)
	return nil
}

func (nm *linearNeighbors) size() int {
	return len(nm.vertices)
}

func (nm *linearNeighbors) nearest(q spatialmath.State) (*Vertex, bool) {
	bestDist := math.Inf(1)
	var best *Vertex
	for _, v := range nm.vertices {
		dist := q.Distance(v.state)
		if dist < bestDist {
			bestDist = dist
			best = v
		}
	}
	return best, best != nil
}

func (nm *linearNeighbors) withinRadius(q spatialmath.State, r float64, scale []float64) []*Vertex {
	near := make([]*Vertex, 0)
	for _, v := range nm.vertices {
		if q.ScaledDistance(v.state, scale) <= r {
			near = append(near, v)
		}
	}
	return near
}

// rtreeNeighbors keeps every vertex as a tiny box in an R-tree. Queries use the R-tree to collect
// candidates and then apply the same exact distance test as linearNeighbors.
type rtreeNeighbors struct {
	dims  int
	tree  *rtreego.Rtree
	count int
}

type vertexEntry struct {
	v    *Vertex
	rect rtreego.Rect
}

func (e *vertexEntry) Bounds() rtreego.Rect {
	return e.rect
}

func (nm *rtreeNeighbors) insert(v *Vertex) error {
	if err := checkIndexable(v, nm.dims); err != nil {
		return err
	}
	rect, err := paddedRect(v.state, v.state)
	if err != nil {
		return errors.Wrapf(err, "cannot index vertex %d", v.id)
	}
	nm.tree.Insert(&vertexEntry{v: v, rect: rect})
	nm.count++
	return nil
}

func (nm *rtreeNeighbors) size() int {
	return nm.count
}

func (nm *rtreeNeighbors) nearest(q spatialmath.State) (*Vertex, bool) {
	if nm.count == 0 {
		return nil, false
	}
	hit := nm.tree.NearestNeighbor(rtreego.Point(q))
	if hit == nil {
		return nil, false
	}
	// The R-tree result is close but only approximately nearest, since vertices are stored as padded boxes.
	// Every vertex at least as close lies inside the box of half-width d around q.
	d := q.Distance(hit.(*vertexEntry).v.state)
	halfWidths := make([]float64, len(q))
	for i := range halfWidths {
		halfWidths[i] = d
	}

	var best *Vertex
	bestDist := math.Inf(1)
	for _, v := range nm.searchBox(q, halfWidths) {
		dist := q.Distance(v.state)
		if dist < bestDist || (dist == bestDist && v.id < best.id) {
			bestDist = dist
			best = v
		}
	}
	return best, best != nil
}

func (nm *rtreeNeighbors) withinRadius(q spatialmath.State, r float64, scale []float64) []*Vertex {
	halfWidths := make([]float64, len(q))
	for i := range halfWidths {
		halfWidths[i] = r * scale[i]
	}
	candidates := nm.searchBox(q, halfWidths)
	near := make([]*Vertex, 0, len(candidates))
	for _, v := range candidates {
		if q.ScaledDistance(v.state, scale) <= r {
			near = append(near, v)
		}
	}
	sort.Slice(near, func(i, j int) bool {
		return near[i].id < near[j].id
	})
	return near
}

// searchBox returns the vertices whose boxes intersect the box centered at q with the given half widths.
func (nm *rtreeNeighbors) searchBox(q spatialmath.State, halfWidths []float64) []*Vertex {
	lo := make(spatialmath.State, len(q))
	hi := make(spatialmath.State, len(q))
	for i := range q {
		lo[i] = q[i] - halfWidths[i]
		hi[i] = q[i] + halfWidths[i]
	}
	rect, err := paddedRect(lo, hi)
	if err != nil {
		return nil
	}
	hits := nm.tree.SearchIntersect(rect)
	out := make([]*Vertex, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.(*vertexEntry).v)
	}
	return out
}
