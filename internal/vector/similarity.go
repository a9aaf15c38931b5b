package vector

import "math"

// SquaredDistance returns the squared Euclidean distance between a and b, accumulated in float64.
// Both slices must have the same length.
func SquaredDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b []float32) float64 {
	return math.Sqrt(SquaredDistance(a, b))
}
