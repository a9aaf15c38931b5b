package utils

import "math"

// NormalizeL2 scales x in place to unit Euclidean length. A zero vector is left unchanged.
// The norm is accumulated in float64.
func NormalizeL2(x []float32) {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range x {
		x[i] = float32(float64(x[i]) * inv)
	}
}
