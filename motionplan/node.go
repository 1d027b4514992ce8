package motionplan

import (
	"github.com/emirpasic/gods/trees/redblacktree"

	"go.viam.com/rrtstar/spatialmath"
)

// noVertex is the parent id of the root.
const noVertex = -1

// Vertex is a state in the search tree together with the cheapest known way of reaching it from the root.
// Vertices are owned by the tree that created them; parent and children are ids into that tree.
type Vertex struct {
	id    int
	state spatialmath.State
	cost  float64

	// trajectory from the parent to this vertex. Zero for the root.
	traj   Trajectory
	parent int
	// ordered by id so that traversal order only depends on insertion order.
	children *redblacktree.Tree

	tree *searchTree
}

func newVertex(t *searchTree, state spatialmath.State) *Vertex {
	return &Vertex{
		id:       len(t.vertices),
		state:    state.Clone(),
		parent:   noVertex,
		children: redblacktree.NewWithIntComparator(),
		tree:     t,
	}
}

// ID returns the insertion index of the vertex. The root has id 0.
func (v *Vertex) ID() int {
	return v.id
}

// State returns a copy of the vertex state.
func (v *Vertex) State() spatialmath.State {
	return v.state.Clone()
}

// Cost returns the cost of the path from the root to this vertex.
func (v *Vertex) Cost() float64 {
	return v.cost
}

// Trajectory returns the segment from the parent to this vertex, and false for the root.
func (v *Vertex) Trajectory() (Trajectory, bool) {
	if v.IsRoot() {
		return Trajectory{}, false
	}
	traj := v.traj
	traj.EndState = traj.EndState.Clone()
	return traj, true
}

// Parent returns the parent vertex, and false for the root.
func (v *Vertex) Parent() (*Vertex, bool) {
	if v.IsRoot() {
		return nil, false
	}
	return v.tree.vertices[v.parent], true
}

// Children returns the children of the vertex ordered by id.
func (v *Vertex) Children() []*Vertex {
	out := make([]*Vertex, 0, v.children.Size())
	it := v.children.Iterator()
	for it.Next() {
		out = append(out, it.Value().(*Vertex))
	}
	return out
}

// IsRoot reports whether the vertex has no parent.
func (v *Vertex) IsRoot() bool {
	return v.parent == noVertex
}
