// Package stats provides the elementary statistics used by the robust mean
// calibrator: location and order statistics over float64 samples.
package stats

import (
	"cmp"
	"math"
	"slices"
)

// Mean returns the arithmetic mean of values.
// Returns 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64

	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// PercentileMedian is the percentile rank of the median.
const PercentileMedian = 0.5

// Percentile returns the p-th percentile of values using linear interpolation.
// p must be in [0, 1]. The input slice is not modified (a copy is sorted internally).
// Returns 0 for an empty slice.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	return PercentileSorted(sorted, p)
}

// PercentileSorted is Percentile for a slice already in ascending order.
func PercentileSorted(sorted []float64, p float64) float64 {
	count := len(sorted)
	if count == 0 {
		return 0
	}

	idx := Clamp(p, 0, 1) * float64(count-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))

	if lower == upper || upper >= count {
		return sorted[lower]
	}

	frac := idx - float64(lower)

	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// Median returns the 50th percentile of values.
// Returns 0 for an empty slice.
func Median(values []float64) float64 {
	return Percentile(values, PercentileMedian)
}

// MedianSorted returns the median of an ascending slice without copying it.
// For an even count it is the midpoint of the two central values.
func MedianSorted(sorted []float64) float64 {
	count := len(sorted)
	if count == 0 {
		return 0
	}

	mid := count / 2
	if count%2 == 1 {
		return sorted[mid]
	}

	lo, hi := sorted[mid-1], sorted[mid]
	if lo == hi {
		return lo
	}

	return lo + (hi-lo)/2
}

// Clamp restricts val to the range [lo, hi].
func Clamp[T cmp.Ordered](val, lo, hi T) T {
	return max(lo, min(val, hi))
}
