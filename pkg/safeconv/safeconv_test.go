package safeconv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMulInt(t *testing.T) {
	t.Parallel()

	t.Run("normal_value", func(t *testing.T) {
		t.Parallel()

		got, err := MulInt(6, 7)
		require.NoError(t, err)
		assert.Equal(t, 42, got)
	})

	t.Run("zero_operand", func(t *testing.T) {
		t.Parallel()

		got, err := MulInt(0, MaxInt)
		require.NoError(t, err)
		assert.Zero(t, got)
	})

	t.Run("overflow", func(t *testing.T) {
		t.Parallel()

		_, err := MulInt(MaxInt/2+1, 2)
		require.ErrorIs(t, err, ErrOverflow)
	})

	t.Run("negative", func(t *testing.T) {
		t.Parallel()

		_, err := MulInt(-1, 3)
		require.ErrorIs(t, err, ErrNegative)
	})
}

func TestProduct(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dims    []int
		want    int
		wantErr error
	}{
		{name: "empty_is_one", dims: nil, want: 1},
		{name: "four_dims", dims: []int{1, 2, 3, 4}, want: 24},
		{name: "zero_dim", dims: []int{3, 0, 5}, want: 0},
		{name: "negative_dim", dims: []int{3, -1}, wantErr: ErrNegative},
		{name: "overflow", dims: []int{MaxInt, 2}, wantErr: ErrOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Product(tt.dims)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
