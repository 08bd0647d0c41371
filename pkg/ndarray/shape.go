package ndarray

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/submean/pkg/safeconv"
)

// ErrShapeMismatch reports incompatible array shapes.
var ErrShapeMismatch = errors.New("shape mismatch")

// ShapeSize returns the number of elements of shape, 1 for rank 0.
func ShapeSize(shape []int) (int, error) {
	size, err := safeconv.Product(shape)
	if err != nil {
		return 0, fmt.Errorf("%w: %v: %w", ErrShapeMismatch, shape, err)
	}

	return size, nil
}

// Strides returns row-major element strides of shape.
func Strides(shape []int) []int {
	strides := make([]int, len(shape))
	step := 1

	for ax := len(shape) - 1; ax >= 0; ax-- {
		strides[ax] = step
		step *= shape[ax]
	}

	return strides
}

// Unravel writes the coordinates of row-major index flat into coord.
func Unravel(flat int, shape, coord []int) {
	for ax := len(shape) - 1; ax >= 0; ax-- {
		if shape[ax] == 0 {
			coord[ax] = 0

			continue
		}

		coord[ax] = flat % shape[ax]
		flat /= shape[ax]
	}
}
