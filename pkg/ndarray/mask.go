package ndarray

import (
	"fmt"
	"slices"
)

// Mask is a boolean selection array. It may have a smaller shape than the
// array it selects from and is broadcast against it.
type Mask struct {
	shape []int
	bits  []bool
}

// NewMask wraps bits in a mask of the given shape. Without a shape the mask
// is one-dimensional.
func NewMask(bits []bool, shape ...int) (*Mask, error) {
	if shape == nil {
		shape = []int{len(bits)}
	}

	size, err := ShapeSize(shape)
	if err != nil {
		return nil, err
	}

	if size != len(bits) {
		return nil, fmt.Errorf("%w: %d mask bits do not fill shape %v", ErrShapeMismatch, len(bits), shape)
	}

	return &Mask{shape: slices.Clone(shape), bits: bits}, nil
}

// Shape returns a copy of the mask's dimension lengths.
func (m *Mask) Shape() []int { return slices.Clone(m.shape) }

// Broadcast expands the mask to shape under right-aligned broadcasting: the
// mask may not have more dimensions than shape, and each of its dimensions
// must equal the matching one or be 1.
func (m *Mask) Broadcast(shape []int) ([]bool, error) {
	offset := len(shape) - len(m.shape)
	if offset < 0 {
		return nil, fmt.Errorf("%w: mask %v has more dimensions than %v", ErrShapeMismatch, m.shape, shape)
	}

	own := Strides(m.shape)
	strides := make([]int, len(shape))

	for i, d := range m.shape {
		switch target := shape[offset+i]; {
		case d == target:
			strides[offset+i] = own[i]
		case d == 1:
			strides[offset+i] = 0
		default:
			return nil, fmt.Errorf("%w: mask %v does not broadcast to %v", ErrShapeMismatch, m.shape, shape)
		}
	}

	size, err := ShapeSize(shape)
	if err != nil {
		return nil, err
	}

	out := make([]bool, size)
	coord := make([]int, len(shape))
	src := 0

	for i := range out {
		out[i] = m.bits[src]

		for ax := len(shape) - 1; ax >= 0; ax-- {
			coord[ax]++
			src += strides[ax]

			if coord[ax] < shape[ax] {
				break
			}

			src -= strides[ax] * shape[ax]
			coord[ax] = 0
		}
	}

	return out, nil
}
