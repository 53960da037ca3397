package common

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Basic numeric helpers shared by the feature and key-estimation code, using
// gonum where it covers the operation.

// MinMaxNormalize rescales data in place to [0, 1]. It reports false, leaving
// data untouched, when data is empty, contains NaN or has no range.
func MinMaxNormalize(data []float64) bool {
	if len(data) == 0 || floats.HasNaN(data) {
		return false
	}

	lo := floats.Min(data)
	hi := floats.Max(data)
	span := hi - lo
	if span == 0 || math.IsInf(span, 0) || math.IsNaN(span) {
		return false
	}

	floats.AddConst(-lo, data)
	floats.Scale(1/span, data)
	return true
}

// ArgMax returns the index of the largest value. Ties resolve to the lowest
// index. It returns -1 for an empty slice.
func ArgMax(data []float64) int {
	if len(data) == 0 {
		return -1
	}
	return floats.MaxIdx(data)
}

// Sum returns the sum of data
func Sum(data []float64) float64 {
	return floats.Sum(data)
}

// Clamp constrains value to the range [min, max]
func Clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Mod returns a modulo n in the range [0, n)
func Mod(a, n int) int {
	return ((a % n) + n) % n
}
