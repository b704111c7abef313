package common

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Numeric helpers shared by the similarity and alignment packages, backed by gonum.

// MatrixMean returns the mean of every entry of m.
func MatrixMean(m mat.Matrix) float64 {
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return 0.0
	}
	row := make([]float64, c)
	sum := 0.0
	for i := 0; i < r; i++ {
		mat.Row(row, i, m)
		sum += floats.Sum(row)
	}
	return sum / float64(r*c)
}

// AllFinite reports whether m holds no NaN and no infinity.
func AllFinite(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// Clamp clamps a value between min and max
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// NextPowerOfTwo finds the next power of two >= n
func NextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << int(math.Ceil(math.Log2(float64(n))))
}
