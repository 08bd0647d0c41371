// Package estimator implements a sub-Gaussian robust estimator of the mean of a
// single sample batch.
//
// The estimator runs in two stages. Calibrate derives a truncation scale from a
// median-of-block-variances dispersion, sized so that a Catoni-type deviation
// bound holds at the requested failure probability δ. Solve then refines a
// location candidate by repeatedly averaging soft-truncated residuals until the
// step falls below a tolerance or the iteration budget runs out.
//
// Both stages are generic over the working scalar (float64 or complex128)
// through the Field trait.
package estimator

import (
	"errors"
	"fmt"
	"math"
)

// Sentinel errors.
var (
	// ErrInvalidParameter reports a parameter outside its domain.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInsufficientSampleSize reports a batch with n ≤ ln(1/δ) elements.
	ErrInsufficientSampleSize = errors.New("insufficient sample size")

	// ErrNonConvergence reports that refinement exhausted its iteration budget.
	// It is never returned by Estimate; callers surface it as a diagnostic.
	ErrNonConvergence = errors.New("refinement did not converge")
)

// Protocol constants.
const (
	// BlockConstant is c in k = ⌈c·ln(1/δ)⌉ blocks for the dispersion estimate.
	BlockConstant = 8.0

	// DefaultMaxIterations bounds the refinement loop independent of n.
	DefaultMaxIterations = 200

	// DefaultTolerance is the relative step size at which refinement stops.
	DefaultTolerance = 1e-12
)

// Params configures one estimation.
type Params struct {
	// Delta is the failure probability δ in (0, 1).
	Delta float64

	// MaxIterations bounds the refinement loop.
	MaxIterations int

	// Tolerance stops refinement once |step| ≤ Tolerance·(1+|μ̂|).
	Tolerance float64
}

// NewParams returns Params for delta with default iteration budget and tolerance.
func NewParams(delta float64) Params {
	return Params{
		Delta:         delta,
		MaxIterations: DefaultMaxIterations,
		Tolerance:     DefaultTolerance,
	}
}

// Validate checks every field of p.
func (p Params) Validate() error {
	err := ValidateDelta(p.Delta)
	if err != nil {
		return err
	}

	if p.MaxIterations <= 0 {
		return fmt.Errorf("%w: max iterations must be positive, got %d", ErrInvalidParameter, p.MaxIterations)
	}

	if !(p.Tolerance > 0) || math.IsInf(p.Tolerance, 0) {
		return fmt.Errorf("%w: tolerance must be positive and finite, got %g", ErrInvalidParameter, p.Tolerance)
	}

	return nil
}

// ValidateDelta checks that delta lies in the open interval (0, 1).
func ValidateDelta(delta float64) error {
	if !(delta > 0 && delta < 1) {
		return fmt.Errorf("%w: delta must be in (0, 1), got %g", ErrInvalidParameter, delta)
	}

	return nil
}

// LogInvDelta returns ln(1/δ).
func LogInvDelta(delta float64) float64 {
	return -math.Log(delta)
}

// MinSampleSize returns the smallest n satisfying n > ln(1/δ).
func MinSampleSize(delta float64) int {
	return int(math.Floor(LogInvDelta(delta))) + 1
}

// CheckSampleSize returns ErrInsufficientSampleSize unless n > ln(1/δ).
func CheckSampleSize(n int, delta float64) error {
	minimum := MinSampleSize(delta)
	if n < minimum {
		return fmt.Errorf("%w: %d samples, need at least %d for ln(1/δ)=%.4g",
			ErrInsufficientSampleSize, n, minimum, LogInvDelta(delta))
	}

	return nil
}
