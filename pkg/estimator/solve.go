package estimator

import (
	"math"
	"slices"
)

// Result is the outcome of one estimation.
type Result[W Working] struct {
	// Value is the final candidate mean.
	Value W

	// Iterations is the number of refinement steps taken.
	Iterations int

	// Converged is false when the iteration budget ran out first. The value is
	// then the last candidate (best effort), not an error.
	Converged bool

	// Calibration is the scale calibration the refinement ran with.
	Calibration Calibration
}

// Solve refines a location estimate of an ascending batch under cal.
//
// It starts from the batch median and iterates μ ← μ + mean(ψ(x−μ)), where
// ψ(d) = d·s·tanh(|d|/s)/|d| shrinks every residual smoothly into the disc of
// radius s. Residuals well inside the disc pass almost unchanged; far ones are
// pulled toward the boundary instead of being dropped. For complex batches the
// shrinkage acts on the modulus and keeps the residual's direction.
func Solve[W Working](f Field[W], sorted []W, cal Calibration, p Params) Result[W] {
	mu := f.Median(sorted)
	res := Result[W]{Value: mu, Converged: true, Calibration: cal}

	if cal.Scale == 0 || len(sorted) == 0 {
		return res
	}

	scale := cal.Scale
	count := f.FromReal(float64(len(sorted)))

	for iter := 1; iter <= p.MaxIterations; iter++ {
		var sum W

		for _, x := range sorted {
			sum += shrink(f, x-mu, scale)
		}

		step := sum / count
		res.Iterations = iter

		if f.Abs(step) <= p.Tolerance*(1+f.Abs(mu)) {
			res.Value = mu + step

			return res
		}

		mu += step
	}

	res.Value = mu
	res.Converged = false

	return res
}

// shrink is the soft-truncation transform ψ with threshold scale.
func shrink[W Working](f Field[W], d W, scale float64) W {
	r := f.Abs(d)
	if r == 0 || math.IsInf(scale, 1) {
		return d
	}

	return d * f.FromReal(scale*math.Tanh(r/scale)/r)
}

// Estimate computes the robust mean of batch. The batch is copied and never
// modified or retained.
func Estimate[W Working](f Field[W], batch []W, p Params) (Result[W], error) {
	return EstimateInPlace(f, slices.Clone(batch), p)
}

// EstimateInPlace is Estimate on a caller-owned scratch buffer, which is left
// sorted on return.
func EstimateInPlace[W Working](f Field[W], scratch []W, p Params) (Result[W], error) {
	err := p.Validate()
	if err != nil {
		return Result[W]{}, err
	}

	err = CheckSampleSize(len(scratch), p.Delta)
	if err != nil {
		return Result[W]{}, err
	}

	slices.SortFunc(scratch, f.Compare)

	for _, v := range scratch {
		if !f.Finite(v) {
			return Result[W]{Value: f.Mean(scratch), Converged: true}, nil
		}
	}

	cal, err := Calibrate(f, scratch, p.Delta)
	if err != nil {
		return Result[W]{}, err
	}

	return Solve(f, scratch, cal, p), nil
}
