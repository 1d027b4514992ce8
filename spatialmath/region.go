package spatialmath

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Region is an axis-aligned box described by its center and full side lengths.
type Region struct {
	Center []float64 `json:"center"`
	Size   []float64 `json:"size"`
}

func newBadRegionDimensionsError(r Region) error {
	return errors.Errorf("region center has %d dimensions but size has %d", len(r.Center), len(r.Size))
}

// NewRegion instantiates a new Region, checking that center and size agree.
func NewRegion(center, size []float64) (Region, error) {
	r := Region{Center: append([]float64{}, center...), Size: append([]float64{}, size...)}
	if err := r.Validate(); err != nil {
		return Region{}, err
	}
	return r, nil
}

// Validate checks that the region is non-empty, has matching center and size lengths and no negative or
// non-finite extent.
func (r Region) Validate() error {
	if len(r.Center) == 0 {
		return errors.New("region must have at least one dimension")
	}
	if len(r.Center) != len(r.Size) {
		return newBadRegionDimensionsError(r)
	}
	for i, s := range r.Size {
		if s < 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			return errors.Errorf("region size[%d] must be a finite non-negative number, got %v", i, s)
		}
		if math.IsNaN(r.Center[i]) || math.IsInf(r.Center[i], 0) {
			return errors.Errorf("region center[%d] must be finite, got %v", i, r.Center[i])
		}
	}
	return nil
}

// Dimensions returns the dimensionality of the region.
func (r Region) Dimensions() int {
	return len(r.Center)
}

// Contains reports whether p lies inside the region. Points on the boundary are inside.
func (r Region) Contains(p State) bool {
	if len(p) != len(r.Center) {
		return false
	}
	for i := range p {
		if math.Abs(p[i]-r.Center[i]) > r.Size[i]/2 {
			return false
		}
	}
	return true
}

// Sample draws a point uniformly from the box spanning Size[i] around Center[i] on each axis.
func (r Region) Sample(rng *rand.Rand) State {
	s := NewState(len(r.Center))
	for i := range s {
		s[i] = rng.Float64()*r.Size[i] - r.Size[i]/2 + r.Center[i]
	}
	return s
}

// Radius returns the Euclidean norm of the size vector.
func (r Region) Radius() float64 {
	return floats.Norm(r.Size, 2)
}

// Min returns the lowest corner of the region.
func (r Region) Min() State {
	m := NewState(len(r.Center))
	for i := range m {
		m[i] = r.Center[i] - r.Size[i]/2
	}
	return m
}

// Max returns the highest corner of the region.
func (r Region) Max() State {
	m := NewState(len(r.Center))
	for i := range m {
		m[i] = r.Center[i] + r.Size[i]/2
	}
	return m
}

// Intersects reports whether the region overlaps the axis-aligned box [lo, hi]. Touching faces count as overlap.
func (r Region) Intersects(lo, hi State) bool {
	if len(lo) != len(r.Center) || len(hi) != len(r.Center) {
		return false
	}
	for i := range lo {
		if r.Center[i]+r.Size[i]/2 < lo[i] || r.Center[i]-r.Size[i]/2 > hi[i] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the region.
func (r Region) Clone() Region {
	return Region{Center: append([]float64{}, r.Center...), Size: append([]float64{}, r.Size...)}
}

func (r Region) String() string {
	return fmt.Sprintf("center %v size %v", State(r.Center), State(r.Size))
}
