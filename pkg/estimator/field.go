package estimator

import (
	"cmp"
	"math"
	"math/cmplx"
	"slices"

	"github.com/Sumatoshi-tech/submean/pkg/alg/stats"
)

// Working is the set of working-precision scalars the kernel runs in.
// Every input element type is widened to one of these before estimation.
type Working interface {
	float64 | complex128
}

// Field supplies the scalar operations the kernel needs beyond the built-in
// arithmetic operators shared by all Working types.
type Field[W Working] interface {
	// FromReal embeds a real number into W.
	FromReal(v float64) W

	// Abs returns the modulus of v.
	Abs(v W) float64

	// Compare is a total order used to sort batches. Equal values compare as 0,
	// so the sorted form of a batch depends only on its multiset of values.
	Compare(a, b W) int

	// Median returns a coarse robust location of an ascending batch.
	Median(sorted []W) W

	// Finite reports whether v has no NaN or infinite component.
	Finite(v W) bool

	// Mean is the arithmetic mean. NaN and ±Inf propagate the usual way.
	Mean(values []W) W

	// Complex widens v to complex128.
	Complex(v W) complex128
}

// Real is the Field over float64.
type Real struct{}

// FromReal returns v.
func (Real) FromReal(v float64) float64 { return v }

// Abs returns |v|.
func (Real) Abs(v float64) float64 { return math.Abs(v) }

// Compare orders reals ascending.
func (Real) Compare(a, b float64) int { return cmp.Compare(a, b) }

// Median returns the sample median.
func (Real) Median(sorted []float64) float64 { return stats.MedianSorted(sorted) }

// Finite reports whether v is neither NaN nor infinite.
func (Real) Finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Mean returns the arithmetic mean.
func (Real) Mean(values []float64) float64 { return stats.Mean(values) }

// Complex returns complex(v, 0).
func (Real) Complex(v float64) complex128 { return complex(v, 0) }

// Complex128 is the Field over complex128.
type Complex128 struct{}

// FromReal returns complex(v, 0).
func (Complex128) FromReal(v float64) complex128 { return complex(v, 0) }

// Abs returns the modulus of v.
func (Complex128) Abs(v complex128) float64 { return cmplx.Abs(v) }

// Compare orders by real part, then imaginary part.
func (Complex128) Compare(a, b complex128) int {
	if c := cmp.Compare(real(a), real(b)); c != 0 {
		return c
	}

	return cmp.Compare(imag(a), imag(b))
}

// Median returns the componentwise median. Real parts of a lexicographically
// sorted batch are already ascending; imaginary parts are sorted separately.
func (Complex128) Median(sorted []complex128) complex128 {
	re := make([]float64, len(sorted))
	im := make([]float64, len(sorted))

	for i, v := range sorted {
		re[i] = real(v)
		im[i] = imag(v)
	}

	slices.Sort(im)

	return complex(stats.MedianSorted(re), stats.MedianSorted(im))
}

// Finite reports whether neither part is NaN or infinite.
func (Complex128) Finite(v complex128) bool { return !cmplx.IsNaN(v) && !cmplx.IsInf(v) }

// Mean returns the componentwise arithmetic mean.
func (Complex128) Mean(values []complex128) complex128 {
	if len(values) == 0 {
		return 0
	}

	var sum complex128

	for _, v := range values {
		sum += v
	}

	n := float64(len(values))

	return complex(real(sum)/n, imag(sum)/n)
}

// Complex returns v.
func (Complex128) Complex(v complex128) complex128 { return v }
