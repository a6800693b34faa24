package util

import (
	"math"
	"sort"
	"time"
)

// Returns the current unix time in seconds
func EpochSeconds() float64 {
	return float64(time.Now().UnixNano()) / float64(1e9)
}

// Computes a percentile (0-100) from an array. The input is not modified.
func Percentile(a []float64, p int) float64 {
	if len(a) == 0 {
		return math.NaN()
	}
	if len(a) == 1 {
		return a[0]
	}

	sorted := make([]float64, len(a))
	copy(sorted, a)
	sort.Float64s(sorted)

	r := (float64(p)/100)*float64(len(sorted)) - 1
	if r <= 0 {
		return sorted[0]
	}

	if r == float64(int(r)) {
		return sorted[int(r)]
	} else {
		ri := int(r)
		rf := r - float64(ri)
		return sorted[ri] + rf*(sorted[ri+1]-sorted[ri])
	}
}
