package motionplan

import (
	"github.com/pkg/errors"

	"go.viam.com/rrtstar/spatialmath"
	"go.viam.com/rrtstar/utils"
)

// Relative tolerance used when checking that every vertex cost equals its parent's cost plus the edge cost.
const costTolerance = 1e-9

// searchTree is the vertex arena of a planner. A vertex's id is its index in vertices, and vertices are
// never removed.
type searchTree struct {
	vertices []*Vertex
}

func newSearchTree() *searchTree {
	return &searchTree{}
}

// createRoot resets the tree to a single parentless vertex with zero cost.
func (t *searchTree) createRoot(state spatialmath.State) *Vertex {
	t.vertices = nil
	root := newVertex(t, state)
	t.vertices = append(t.vertices, root)
	return root
}

func (t *searchTree) root() (*Vertex, bool) {
	if len(t.vertices) == 0 {
		return nil, false
	}
	return t.vertices[0], true
}

func (t *searchTree) size() int {
	return len(t.vertices)
}

// addVertex appends a vertex reached from parent by traj.
func (t *searchTree) addVertex(state spatialmath.State, parent *Vertex, traj Trajectory) *Vertex {
	v := newVertex(t, state)
	v.parent = parent.id
	v.traj = traj
	v.cost = parent.cost + traj.Cost
	parent.children.Put(v.id, v)
	t.vertices = append(t.vertices, v)
	return v
}

// rewire moves v under newParent, reached by traj, and recomputes the cost of v and its whole subtree.
// visit is called once for every vertex whose cost was recomputed, v included.
func (t *searchTree) rewire(v, newParent *Vertex, traj Trajectory, visit func(*Vertex)) {
	if oldParent, ok := v.Parent(); ok {
		oldParent.children.Remove(v.id)
	}
	v.parent = newParent.id
	newParent.children.Put(v.id, v)
	v.traj = traj
	v.cost = newParent.cost + traj.Cost
	if visit != nil {
		visit(v)
	}
	t.propagateCost(v, visit)
}

// propagateCost recomputes the cost of every descendant of v from v's cost.
func (t *searchTree) propagateCost(v *Vertex, visit func(*Vertex)) {
	it := v.children.Iterator()
	for it.Next() {
		child := it.Value().(*Vertex)
		child.cost = v.cost + child.traj.Cost
		if visit != nil {
			visit(child)
		}
		t.propagateCost(child, visit)
	}
}

// isAncestor reports whether a lies on the parent chain of v, v itself included.
func (t *searchTree) isAncestor(a, v *Vertex) bool {
	for cur := v; ; {
		if cur.id == a.id {
			return true
		}
		p, ok := cur.Parent()
		if !ok {
			return false
		}
		cur = p
	}
}

// checkInvariants verifies that the vertices form a single tree rooted at id 0 and that every cost is
// consistent with its parent's.
func (t *searchTree) checkInvariants() error {
	if len(t.vertices) == 0 {
		return errors.New("tree has no root")
	}
	for i, v := range t.vertices {
		if v.id != i {
			return errors.Errorf("vertex at index %d has id %d", i, v.id)
		}
		if i == 0 {
			if !v.IsRoot() {
				return errors.New("vertex 0 has a parent")
			}
			if v.cost != 0 {
				return errors.Errorf("root cost is %v", v.cost)
			}
			continue
		}
		if v.IsRoot() {
			return errors.Errorf("vertex %d has no parent", i)
		}
		if v.parent < 0 || v.parent >= len(t.vertices) {
			return errors.Errorf("vertex %d has out of range parent %d", i, v.parent)
		}
		parent := t.vertices[v.parent]
		if _, ok := parent.children.Get(v.id); !ok {
			return errors.Errorf("vertex %d is missing from the children of its parent %d", i, parent.id)
		}
		if v.traj.Cost < 0 {
			return errors.Errorf("vertex %d has negative edge cost %v", i, v.traj.Cost)
		}
		if !utils.Float64RelativelyEqual(v.cost, parent.cost+v.traj.Cost, costTolerance) {
			return errors.Errorf("vertex %d cost %v does not match parent cost %v plus edge cost %v",
				i, v.cost, parent.cost, v.traj.Cost)
		}
		// The root must be reachable within len(vertices) steps, otherwise the chain loops.
		cur, steps := v, 0
		for !cur.IsRoot() {
			cur = t.vertices[cur.parent]
			steps++
			if steps > len(t.vertices) {
				return errors.Errorf("vertex %d does not reach the root", i)
			}
		}
		if cur.id != 0 {
			return errors.Errorf("vertex %d reaches parentless vertex %d", i, cur.id)
		}
	}
	for _, v := range t.vertices {
		it := v.children.Iterator()
		for it.Next() {
			child := it.Value().(*Vertex)
			if child.parent != v.id {
				return errors.Errorf("vertex %d lists %d as a child but its parent is %d", v.id, child.id, child.parent)
			}
		}
	}
	return nil
}
