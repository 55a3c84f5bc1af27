package vectorindex

import "math"

// Relevance maps a distance to [0, 1] as 1 - min(distance, 1). Distances
// above 1 are clamped, not rescaled.
func Relevance(distance float64) float64 {
	if math.IsNaN(distance) {
		return 0
	}
	r := 1 - math.Min(distance, 1)
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}
