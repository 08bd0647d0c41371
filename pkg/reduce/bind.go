package reduce

import (
	"fmt"
	"slices"

	"github.com/Sumatoshi-tech/submean/pkg/dtype"
	"github.com/Sumatoshi-tech/submean/pkg/ndarray"
)

// Bind returns the array a result of the given shape and dtype is written to.
// A nil out allocates a fresh zeroed array. A caller-supplied out must match
// shape exactly (rank 0 for a scalar result) and accept result by same-kind
// casting; on failure out is left untouched.
func Bind(out *ndarray.Array, shape []int, result dtype.DType) (*ndarray.Array, error) {
	if out == nil {
		return ndarray.Zeros(result, shape...)
	}

	if !slices.Equal(out.Shape(), shape) {
		return nil, fmt.Errorf("%w: out has shape %v, result has shape %v", ndarray.ErrShapeMismatch, out.Shape(), shape)
	}

	if !dtype.CanCast(result, out.DType()) {
		return nil, fmt.Errorf("%w: cannot store %s result in %s out", dtype.ErrTypeMismatch, result, out.DType())
	}

	return out, nil
}
