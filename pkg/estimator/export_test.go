package estimator

// ShrinkReal exposes the soft-truncation transform over reals for testing.
func ShrinkReal(d, scale float64) float64 {
	return shrink[float64](Real{}, d, scale)
}

// ShrinkComplex exposes the soft-truncation transform over complex values for testing.
func ShrinkComplex(d complex128, scale float64) complex128 {
	return shrink[complex128](Complex128{}, d, scale)
}
