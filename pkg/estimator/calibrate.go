package estimator

import (
	"math"

	"github.com/Sumatoshi-tech/submean/pkg/alg/stats"
)

// Calibration is the per-batch output of Calibrate.
type Calibration struct {
	// Scale is the truncation threshold s ≥ 0. Zero means the batch is
	// degenerate and the coarse location is returned unrefined.
	Scale float64

	// Dispersion is σ̂, the square root of the median block variance.
	Dispersion float64

	// Blocks is the number of blocks k the batch was split into.
	Blocks int
}

// BlockCount returns k = ⌈c·ln(1/δ)⌉ clamped so every block holds at least two
// values whenever n ≥ 2.
func BlockCount(n int, delta float64) int {
	k := int(math.Ceil(BlockConstant * LogInvDelta(delta)))

	return stats.Clamp(k, 1, max(1, n/2))
}

// Calibrate derives the truncation scale of an ascending batch.
//
// Ranks are dealt into k blocks with rank i and its mirror n−1−i sharing block
// min(i, n−1−i) mod k, so the partition depends only on the multiset of values
// and is unchanged when the batch is reflected. Every block then spans both
// tails. The dispersion is the median of the within-block unbiased variances,
// which a minority of contaminated blocks cannot move. The scale is
// s = σ̂·√(n/(2·ln(1/δ))).
func Calibrate[W Working](f Field[W], sorted []W, delta float64) (Calibration, error) {
	err := ValidateDelta(delta)
	if err != nil {
		return Calibration{}, err
	}

	n := len(sorted)

	err = CheckSampleSize(n, delta)
	if err != nil {
		return Calibration{}, err
	}

	blocks := BlockCount(n, delta)
	cal := Calibration{Blocks: blocks}

	if f.Compare(sorted[0], sorted[n-1]) == 0 {
		return cal, nil
	}

	dispersion := math.Sqrt(stats.Median(blockVariances(f, sorted, blocks)))
	cal.Dispersion = dispersion
	cal.Scale = dispersion * math.Sqrt(float64(n)/(2*LogInvDelta(delta)))

	return cal, nil
}

// blockOf returns the block holding rank i of n.
func blockOf(i, n, blocks int) int {
	return min(i, n-1-i) % blocks
}

// blockVariances returns Σ|x−m|²/(c−1) for every block; blocks with fewer
// than two members report 0.
func blockVariances[W Working](f Field[W], sorted []W, blocks int) []float64 {
	n := len(sorted)
	sums := make([]W, blocks)
	counts := make([]int, blocks)

	for i, v := range sorted {
		b := blockOf(i, n, blocks)
		sums[b] += v
		counts[b]++
	}

	means := make([]W, blocks)

	for b, count := range counts {
		if count > 0 {
			means[b] = sums[b] / f.FromReal(float64(count))
		}
	}

	variances := make([]float64, blocks)

	for i, v := range sorted {
		b := blockOf(i, n, blocks)
		d := f.Abs(v - means[b])
		variances[b] += d * d
	}

	for b, count := range counts {
		if count < 2 {
			variances[b] = 0

			continue
		}

		variances[b] /= float64(count - 1)
	}

	return variances
}
