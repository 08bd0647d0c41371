// Package ndarray provides a minimal dense N-dimensional array with typed
// row-major storage, boolean masks and broadcasting.
package ndarray

import (
	"fmt"
	"slices"

	"github.com/Sumatoshi-tech/submean/pkg/dtype"
)

// Element is the set of Go types an Array can store.
type Element interface {
	bool | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 |
		float32 | float64 | complex64 | complex128
}

type realElement interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64
}

type complexElement interface {
	complex64 | complex128
}

// Array is a dense row-major N-dimensional array. The backing slice has one
// concrete element type, reported by DType.
type Array struct {
	dt    dtype.DType
	shape []int
	size  int
	data  any
}

// New wraps data in an array of the given shape. Without a shape the array is
// one-dimensional. The array takes ownership of data.
func New[T Element](data []T, shape ...int) (*Array, error) {
	if shape == nil {
		shape = []int{len(data)}
	}

	size, err := ShapeSize(shape)
	if err != nil {
		return nil, err
	}

	if size != len(data) {
		return nil, fmt.Errorf("%w: %d values do not fill shape %v", ErrShapeMismatch, len(data), shape)
	}

	return &Array{dt: dtypeOf(data), shape: slices.Clone(shape), size: size, data: data}, nil
}

// MustNew is New that panics on error. Use it for literals known to be valid.
func MustNew[T Element](data []T, shape ...int) *Array {
	a, err := New(data, shape...)
	if err != nil {
		panic(err)
	}

	return a
}

// Scalar returns a rank-0 array holding v.
func Scalar[T Element](v T) *Array {
	return &Array{dt: dtypeOf([]T{}), shape: []int{}, size: 1, data: []T{v}}
}

// Arange returns the int64 vector 0, 1, ..., n-1.
func Arange(n int) *Array {
	data := make([]int64, max(n, 0))

	for i := range data {
		data[i] = int64(i)
	}

	return MustNew(data)
}

// Zeros returns a zero-filled array of element type dt.
func Zeros(dt dtype.DType, shape ...int) (*Array, error) {
	if shape == nil {
		shape = []int{}
	}

	size, err := ShapeSize(shape)
	if err != nil {
		return nil, err
	}

	data, err := makeData(dt, size)
	if err != nil {
		return nil, err
	}

	return &Array{dt: dt, shape: slices.Clone(shape), size: size, data: data}, nil
}

// DType returns the element type.
func (a *Array) DType() dtype.DType { return a.dt }

// Shape returns a copy of the dimension lengths.
func (a *Array) Shape() []int { return slices.Clone(a.shape) }

// Rank returns the number of dimensions.
func (a *Array) Rank() int { return len(a.shape) }

// Size returns the number of elements.
func (a *Array) Size() int { return a.size }

// Data returns the backing slice, e.g. []float64. Writes through it are
// visible in the array.
func (a *Array) Data() any { return a.data }

// Values returns the typed backing slice when the array stores T.
func Values[T Element](a *Array) ([]T, bool) {
	v, ok := a.data.([]T)

	return v, ok
}

// Reshape returns a view of a with a new shape of the same size.
func (a *Array) Reshape(shape ...int) (*Array, error) {
	if shape == nil {
		shape = []int{}
	}

	size, err := ShapeSize(shape)
	if err != nil {
		return nil, err
	}

	if size != a.size {
		return nil, fmt.Errorf("%w: cannot reshape %v into %v", ErrShapeMismatch, a.shape, shape)
	}

	return &Array{dt: a.dt, shape: slices.Clone(shape), size: size, data: a.data}, nil
}

// Flatten returns a one-dimensional copy of a.
func (a *Array) Flatten() *Array {
	c := a.Clone()
	c.shape = []int{a.size}

	return c
}

// Clone returns a deep copy of a.
func (a *Array) Clone() *Array {
	return &Array{dt: a.dt, shape: slices.Clone(a.shape), size: a.size, data: cloneData(a.data)}
}

// Float64s returns the elements widened to float64. Booleans map to 0 and 1.
// Complex arrays fail with dtype.ErrTypeMismatch.
func (a *Array) Float64s() ([]float64, error) {
	switch d := a.data.(type) {
	case []bool:
		out := make([]float64, len(d))

		for i, v := range d {
			if v {
				out[i] = 1
			}
		}

		return out, nil
	case []int8:
		return widenReal(d), nil
	case []int16:
		return widenReal(d), nil
	case []int32:
		return widenReal(d), nil
	case []int64:
		return widenReal(d), nil
	case []uint8:
		return widenReal(d), nil
	case []uint16:
		return widenReal(d), nil
	case []uint32:
		return widenReal(d), nil
	case []uint64:
		return widenReal(d), nil
	case []float32:
		return widenReal(d), nil
	case []float64:
		return slices.Clone(d), nil
	default:
		return nil, fmt.Errorf("%w: %s has no real view", dtype.ErrTypeMismatch, a.dt)
	}
}

// Complex128s returns the elements widened to complex128.
func (a *Array) Complex128s() []complex128 {
	switch d := a.data.(type) {
	case []complex64:
		return widenComplex(d)
	case []complex128:
		return slices.Clone(d)
	default:
		re, _ := a.Float64s()
		out := make([]complex128, len(re))

		for i, v := range re {
			out[i] = complex(v, 0)
		}

		return out
	}
}

// SetFloat64 stores v at flat index i, cast to the array's element type.
// Integers truncate toward zero and saturate; NaN stores 0.
func (a *Array) SetFloat64(i int, v float64) {
	switch d := a.data.(type) {
	case []bool:
		d[i] = v != 0
	case []int8:
		d[i] = int8(dtype.TruncInt(v, 8))
	case []int16:
		d[i] = int16(dtype.TruncInt(v, 16))
	case []int32:
		d[i] = int32(dtype.TruncInt(v, 32))
	case []int64:
		d[i] = dtype.TruncInt(v, 64)
	case []uint8:
		d[i] = uint8(dtype.TruncUint(v, 8))
	case []uint16:
		d[i] = uint16(dtype.TruncUint(v, 16))
	case []uint32:
		d[i] = uint32(dtype.TruncUint(v, 32))
	case []uint64:
		d[i] = dtype.TruncUint(v, 64)
	case []float32:
		d[i] = float32(v)
	case []float64:
		d[i] = v
	case []complex64:
		d[i] = complex64(complex(v, 0))
	case []complex128:
		d[i] = complex(v, 0)
	}
}

// SetComplex128 stores v at flat index i. Non-complex arrays keep the real
// part only.
func (a *Array) SetComplex128(i int, v complex128) {
	switch d := a.data.(type) {
	case []complex64:
		d[i] = complex64(v)
	case []complex128:
		d[i] = v
	default:
		a.SetFloat64(i, real(v))
	}
}

// String renders element type and shape, e.g. "float64[2 3]".
func (a *Array) String() string {
	return fmt.Sprintf("%s%v", a.dt, a.shape)
}

func widenReal[T realElement](src []T) []float64 {
	out := make([]float64, len(src))

	for i, v := range src {
		out[i] = float64(v)
	}

	return out
}

func widenComplex[T complexElement](src []T) []complex128 {
	out := make([]complex128, len(src))

	for i, v := range src {
		out[i] = complex128(v)
	}

	return out
}

func dtypeOf(data any) dtype.DType {
	switch data.(type) {
	case []bool:
		return dtype.Bool
	case []int8:
		return dtype.Int8
	case []int16:
		return dtype.Int16
	case []int32:
		return dtype.Int32
	case []int64:
		return dtype.Int64
	case []uint8:
		return dtype.Uint8
	case []uint16:
		return dtype.Uint16
	case []uint32:
		return dtype.Uint32
	case []uint64:
		return dtype.Uint64
	case []float32:
		return dtype.Float32
	case []float64:
		return dtype.Float64
	case []complex64:
		return dtype.Complex64
	case []complex128:
		return dtype.Complex128
	default:
		return dtype.Invalid
	}
}

func makeData(dt dtype.DType, size int) (any, error) {
	switch dt {
	case dtype.Bool:
		return make([]bool, size), nil
	case dtype.Int8:
		return make([]int8, size), nil
	case dtype.Int16:
		return make([]int16, size), nil
	case dtype.Int32:
		return make([]int32, size), nil
	case dtype.Int64:
		return make([]int64, size), nil
	case dtype.Uint8:
		return make([]uint8, size), nil
	case dtype.Uint16:
		return make([]uint16, size), nil
	case dtype.Uint32:
		return make([]uint32, size), nil
	case dtype.Uint64:
		return make([]uint64, size), nil
	case dtype.Float32:
		return make([]float32, size), nil
	case dtype.Float64:
		return make([]float64, size), nil
	case dtype.Complex64:
		return make([]complex64, size), nil
	case dtype.Complex128:
		return make([]complex128, size), nil
	default:
		return nil, fmt.Errorf("%w: %s", dtype.ErrUnknownDType, dt)
	}
}

func cloneData(data any) any {
	switch d := data.(type) {
	case []bool:
		return slices.Clone(d)
	case []int8:
		return slices.Clone(d)
	case []int16:
		return slices.Clone(d)
	case []int32:
		return slices.Clone(d)
	case []int64:
		return slices.Clone(d)
	case []uint8:
		return slices.Clone(d)
	case []uint16:
		return slices.Clone(d)
	case []uint32:
		return slices.Clone(d)
	case []uint64:
		return slices.Clone(d)
	case []float32:
		return slices.Clone(d)
	case []float64:
		return slices.Clone(d)
	case []complex64:
		return slices.Clone(d)
	case []complex128:
		return slices.Clone(d)
	default:
		return nil
	}
}
