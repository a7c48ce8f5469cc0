package utils

import "math"

// NormalizeL2 normalizes the slice in place to unit L2 norm.
// If the norm is zero, the slice is unchanged.
func NormalizeL2(x []float32) {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := 1.0 / math.Sqrt(sum)
	for i := range x {
		x[i] = float32(float64(x[i]) * norm)
	}
}

// Round rounds x to the given number of decimal places, half away from zero.
func Round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
