// Package safeconv provides overflow-checked integer arithmetic for shape
// and index computations.
package safeconv

import (
	"errors"
	"fmt"
)

// MaxInt is the maximum value for int type (platform-dependent).
const MaxInt = int(^uint(0) >> 1)

// ErrOverflow reports an integer computation that does not fit in int.
var ErrOverflow = errors.New("integer overflow")

// ErrNegative reports a negative operand where only sizes are allowed.
var ErrNegative = errors.New("negative size")

// MulInt returns a*b for non-negative operands, failing on overflow.
func MulInt(a, b int) (int, error) {
	if a < 0 || b < 0 {
		return 0, fmt.Errorf("%w: %d*%d", ErrNegative, a, b)
	}

	if a != 0 && b > MaxInt/a {
		return 0, fmt.Errorf("%w: %d*%d", ErrOverflow, a, b)
	}

	return a * b, nil
}

// Product returns the product of dims, 1 for an empty list.
func Product(dims []int) (int, error) {
	p := 1

	for _, d := range dims {
		var err error

		p, err = MulInt(p, d)
		if err != nil {
			return 0, err
		}
	}

	return p, nil
}
