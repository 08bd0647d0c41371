package ndarray_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/submean/pkg/dtype"
	"github.com/Sumatoshi-tech/submean/pkg/ndarray"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("default_shape_is_vector", func(t *testing.T) {
		t.Parallel()

		a, err := ndarray.New([]float32{1, 2, 3})
		require.NoError(t, err)
		assert.Equal(t, []int{3}, a.Shape())
		assert.Equal(t, dtype.Float32, a.DType())
		assert.Equal(t, 3, a.Size())
		assert.Equal(t, 1, a.Rank())
	})

	t.Run("explicit_shape", func(t *testing.T) {
		t.Parallel()

		a, err := ndarray.New([]int16{1, 2, 3, 4, 5, 6}, 2, 3)
		require.NoError(t, err)
		assert.Equal(t, []int{2, 3}, a.Shape())
		assert.Equal(t, "int16[2 3]", a.String())
	})

	t.Run("size_mismatch", func(t *testing.T) {
		t.Parallel()

		_, err := ndarray.New([]float64{1, 2, 3}, 2, 2)
		require.ErrorIs(t, err, ndarray.ErrShapeMismatch)
	})

	t.Run("negative_dimension", func(t *testing.T) {
		t.Parallel()

		_, err := ndarray.New([]float64{}, -1)
		require.ErrorIs(t, err, ndarray.ErrShapeMismatch)
	})

	t.Run("must_new_panics", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() { ndarray.MustNew([]bool{true}, 2) })
	})
}

func TestScalarAndZeros(t *testing.T) {
	t.Parallel()

	s := ndarray.Scalar(complex64(2 + 1i))
	assert.Zero(t, s.Rank())
	assert.Equal(t, 1, s.Size())
	assert.Equal(t, dtype.Complex64, s.DType())

	z, err := ndarray.Zeros(dtype.Uint16, 2, 0, 3)
	require.NoError(t, err)
	assert.Zero(t, z.Size())

	_, err = ndarray.Zeros(dtype.Invalid, 2)
	require.ErrorIs(t, err, dtype.ErrUnknownDType)
}

func TestReshapeSharesStorage(t *testing.T) {
	t.Parallel()

	a := ndarray.Arange(24)
	b, err := a.Reshape(1, 2, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, b.Shape())

	data, ok := ndarray.Values[int64](b)
	require.True(t, ok)

	data[5] = 100

	src, _ := ndarray.Values[int64](a)
	assert.Equal(t, int64(100), src[5])

	_, err = a.Reshape(5, 5)
	require.ErrorIs(t, err, ndarray.ErrShapeMismatch)
}

func TestFlattenCopies(t *testing.T) {
	t.Parallel()

	a := ndarray.MustNew([]float64{1, 2, 3, 4}, 2, 2)
	flat := a.Flatten()
	assert.Equal(t, []int{4}, flat.Shape())

	flat.SetFloat64(0, 9)

	src, _ := ndarray.Values[float64](a)
	assert.InDelta(t, 1.0, src[0], 0)
}

func TestFloat64s(t *testing.T) {
	t.Parallel()

	got, err := ndarray.MustNew([]bool{true, false}).Float64s()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, got)

	got, err = ndarray.MustNew([]uint8{255, 3}).Float64s()
	require.NoError(t, err)
	assert.Equal(t, []float64{255, 3}, got)

	_, err = ndarray.MustNew([]complex128{1}).Float64s()
	require.ErrorIs(t, err, dtype.ErrTypeMismatch)
}

func TestComplex128s(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []complex128{1, 2}, ndarray.MustNew([]int32{1, 2}).Complex128s())
	assert.Equal(t, []complex128{1 + 2i}, ndarray.MustNew([]complex64{1 + 2i}).Complex128s())
}

func TestSetCasts(t *testing.T) {
	t.Parallel()

	ints := ndarray.MustNew([]int8{0, 0, 0})
	ints.SetFloat64(0, -2.7)
	ints.SetFloat64(1, math.NaN())
	ints.SetFloat64(2, 1e9)

	data, _ := ndarray.Values[int8](ints)
	assert.Equal(t, []int8{-2, 0, 127}, data)

	cx := ndarray.MustNew([]complex64{0, 0})
	cx.SetComplex128(0, 1+2i)
	cx.SetFloat64(1, 3)

	cdata, _ := ndarray.Values[complex64](cx)
	assert.Equal(t, []complex64{1 + 2i, 3}, cdata)

	re := ndarray.MustNew([]float32{0})
	re.SetComplex128(0, 4+5i)

	rdata, _ := ndarray.Values[float32](re)
	assert.InDelta(t, 4.0, float64(rdata[0]), 0)
}

func TestMaskBroadcast(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		bits    []bool
		shape   []int
		target  []int
		want    []bool
		wantErr bool
	}{
		{
			name: "same_shape", bits: []bool{true, false, true, false},
			shape: []int{2, 2}, target: []int{2, 2},
			want: []bool{true, false, true, false},
		},
		{
			name: "row_vector_repeats", bits: []bool{true, false, true},
			shape: []int{3}, target: []int{2, 3},
			want: []bool{true, false, true, true, false, true},
		},
		{
			name: "column_repeats", bits: []bool{true, false},
			shape: []int{2, 1}, target: []int{2, 3},
			want: []bool{true, true, true, false, false, false},
		},
		{
			name: "scalar_mask", bits: []bool{false},
			shape: []int{}, target: []int{2},
			want: []bool{false, false},
		},
		{
			name: "incompatible", bits: []bool{true, false},
			shape: []int{2}, target: []int{2, 3}, wantErr: true,
		},
		{
			name: "too_many_dims", bits: []bool{true},
			shape: []int{1, 1}, target: []int{1}, wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, err := ndarray.NewMask(tt.bits, tt.shape...)
			require.NoError(t, err)

			got, err := m.Broadcast(tt.target)
			if tt.wantErr {
				require.ErrorIs(t, err, ndarray.ErrShapeMismatch)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnravelAndStrides(t *testing.T) {
	t.Parallel()

	shape := []int{2, 3, 4}
	assert.Equal(t, []int{12, 4, 1}, ndarray.Strides(shape))

	coord := make([]int, 3)
	ndarray.Unravel(23, shape, coord)
	assert.Equal(t, []int{1, 2, 3}, coord)

	ndarray.Unravel(5, shape, coord)
	assert.Equal(t, []int{0, 1, 1}, coord)
}
