package estimate

import "math"

// RoundToNearest snaps value to the nearest multiple of factor, rounding
// halves away from zero (12350 with factor 100 gives 12400).
func RoundToNearest(value float64, factor int) float64 {
	f := float64(factor)
	return math.Round(value/f) * f
}
