package estimator_test

import (
	"math/rand/v2"
	"testing"

	"github.com/Sumatoshi-tech/submean/pkg/estimator"
)

const (
	benchBatchN = 10_000
	benchDelta  = 0.01
)

func benchBatch(n int) []float64 {
	rng := rand.New(rand.NewPCG(1, 2))
	out := make([]float64, n)

	for i := range out {
		out[i] = rng.NormFloat64() / (rng.Float64() + 1e-3)
	}

	return out
}

// BenchmarkEstimateReal measures a heavy-tailed real batch including the copy.
func BenchmarkEstimateReal(b *testing.B) {
	batch := benchBatch(benchBatchN)
	params := estimator.NewParams(benchDelta)

	b.ResetTimer()

	for range b.N {
		_, err := estimator.Estimate(estimator.Real{}, batch, params)
		if err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkEstimateComplex measures the complex kernel on the same magnitudes.
func BenchmarkEstimateComplex(b *testing.B) {
	re := benchBatch(benchBatchN)
	batch := make([]complex128, len(re))

	for i, v := range re {
		batch[i] = complex(v, -v/2)
	}

	params := estimator.NewParams(benchDelta)

	b.ResetTimer()

	for range b.N {
		_, err := estimator.Estimate(estimator.Complex128{}, batch, params)
		if err != nil {
			b.Fatal(err)
		}
	}
}
