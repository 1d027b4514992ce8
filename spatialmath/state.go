// Package spatialmath defines the points and axis-aligned regions the planner works with.
package spatialmath

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"

	"go.viam.com/rrtstar/utils"
)

// State is a point in an n-dimensional configuration space.
type State []float64

// NewState returns the origin of an n-dimensional space.
func NewState(n int) State {
	if n < 0 {
		n = 0
	}
	return make(State, n)
}

// Dimensions returns the number of coordinates in the state.
func (s State) Dimensions() int {
	return len(s)
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	if s == nil {
		return nil
	}
	c := make(State, len(s))
	copy(c, s)
	return c
}

// Distance returns the Euclidean distance between two states of equal dimension.
func (s State) Distance(other State) float64 {
	return floats.Distance(s, other, 2)
}

// ScaledDistance returns the Euclidean distance after dividing each axis by the matching entry of scale.
func (s State) ScaledDistance(other State, scale []float64) float64 {
	var sum float64
	for i := range s {
		sum += utils.Square((s[i] - other[i]) / scale[i])
	}
	return math.Sqrt(sum)
}

// AlmostEqual reports whether every coordinate of the two states is within floating point tolerance.
func (s State) AlmostEqual(other State) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if !utils.Float64AlmostEqual(s[i], other[i], 1e-9) {
			return false
		}
	}
	return true
}

func (s State) String() string {
	parts := make([]string, 0, len(s))
	for _, v := range s {
		parts = append(parts, fmt.Sprintf("%.4f", v))
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
