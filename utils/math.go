// Package utils contains small numeric helpers shared across the planner packages.
package utils

import "math"

// Float64AlmostEqual compares two float64s and returns if the difference between them is less than epsilon.
func Float64AlmostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}

// Float64RelativelyEqual returns whether a and b agree to within tol relative to the larger of their magnitudes.
// Magnitudes below one are compared absolutely so that values near zero do not demand impossible precision.
func Float64RelativelyEqual(a, b, tol float64) bool {
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= tol*scale
}

// Square returns n*n. Math.pow( x, 2 ) is slow, this is faster.
func Square(n float64) float64 {
	return n * n
}

// ScaleByPct scales a max number by a floating point percentage between two bounds [0, n].
func ScaleByPct(n int, pct float64) int {
	scaled := int(float64(n) * pct)
	if scaled < 0 {
		scaled = 0
	} else if scaled > n {
		scaled = n
	}
	return scaled
}
