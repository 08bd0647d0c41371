package reduce

import (
	"context"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/submean/pkg/estimator"
)

// chunksPerWorker controls how finely groups are split across workers so a
// few expensive groups do not leave the rest of the pool idle.
const chunksPerWorker = 4

// Stats summarises one evaluation.
type Stats struct {
	// Groups is the number of result cells computed.
	Groups int

	// Elements is the number of selected input elements.
	Elements int

	// Iterations is the total number of refinement steps over all groups.
	Iterations int

	// NonConverged counts groups that exhausted the iteration budget.
	NonConverged int
}

// Store receives the estimate of group g. Each g is delivered exactly once;
// calls for distinct groups may run concurrently.
type Store[W estimator.Working] func(g int, value W)

// Evaluate estimates every group of plan over values (the input widened to
// working precision, in row-major order) using a pool of at most workers
// goroutines. workers ≤ 0 means GOMAXPROCS.
//
// Callers are expected to have run plan.CheckCounts; a group that still fails
// estimation aborts the run with that error.
func Evaluate[W estimator.Working](
	ctx context.Context,
	plan *Plan,
	f estimator.Field[W],
	values []W,
	params estimator.Params,
	workers int,
	store Store[W],
) (Stats, error) {
	groups := plan.Groups()
	stats := Stats{Groups: groups, Elements: plan.Elements()}

	if groups == 0 {
		return stats, nil
	}

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	chunk := max(1, groups/(workers*chunksPerWorker))

	var iterations, nonConverged atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for lo := 0; lo < groups; lo += chunk {
		hi := min(lo+chunk, groups)

		g.Go(func() error {
			scratch := make([]W, 0, plan.Count(lo))

			for gi := lo; gi < hi; gi++ {
				err := gctx.Err()
				if err != nil {
					return err
				}

				scratch = scratch[:0]

				for _, idx := range plan.Indices(gi) {
					scratch = append(scratch, values[idx])
				}

				res, err := estimator.EstimateInPlace(f, scratch, params)
				if err != nil {
					return err
				}

				iterations.Add(int64(res.Iterations))

				if !res.Converged {
					nonConverged.Add(1)
				}

				store(gi, res.Value)
			}

			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		return stats, err
	}

	stats.Iterations = int(iterations.Load())
	stats.NonConverged = int(nonConverged.Load())

	return stats, nil
}
