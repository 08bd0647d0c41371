// Package robustmean computes sub-Gaussian robust means over N-dimensional
// arrays.
//
// Mean is a drop-in replacement for an arithmetic mean reduction: it accepts
// an axis selection, a broadcastable where mask, keepdims, an explicit result
// dtype and an output buffer. Each reduction group is estimated independently
// so that, for the chosen failure probability δ, the estimate deviates from
// the true mean by more than ε = O(σ·√(ln(1/δ)/n)) with probability at most δ,
// even for heavy-tailed data.
package robustmean

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/submean/pkg/dtype"
	"github.com/Sumatoshi-tech/submean/pkg/estimator"
	"github.com/Sumatoshi-tech/submean/pkg/ndarray"
	"github.com/Sumatoshi-tech/submean/pkg/observability"
	"github.com/Sumatoshi-tech/submean/pkg/reduce"
)

// Errors returned by this package. They alias the sentinels of the packages
// that detect them, so errors.Is works with either name.
var (
	ErrInvalidParameter       = estimator.ErrInvalidParameter
	ErrInsufficientSampleSize = estimator.ErrInsufficientSampleSize
	ErrNonConvergence         = estimator.ErrNonConvergence
	ErrShapeMismatch          = ndarray.ErrShapeMismatch
	ErrTypeMismatch           = dtype.ErrTypeMismatch
)

const (
	opMean          = "mean"
	opMeanFlattened = "mean_flattened"
)

// Mean returns the robust mean of x over the configured axes (all axes by
// default) with δ = DefaultDelta unless WithDelta is given.
//
// Every group must hold more than ln(1/δ) selected elements; otherwise the
// whole call fails with ErrInsufficientSampleSize before anything is computed.
// With WithOut the result is written into that array, which is returned.
func Mean(x *ndarray.Array, opts ...Option) (*ndarray.Array, error) {
	return run(opMean, x, NewConfig(DefaultDelta, opts...))
}

// MeanFlattened returns the robust mean of all elements of x as a rank-0
// array, with δ = DefaultFlattenedDelta unless WithDelta is given. It is
// equivalent to Mean(x.Flatten()). WithAxis, WithOut and WithKeepDims are
// rejected with ErrInvalidParameter.
func MeanFlattened(x *ndarray.Array, opts ...Option) (*ndarray.Array, error) {
	cfg := NewConfig(DefaultFlattenedDelta, opts...)

	if cfg.axisSet || cfg.outSet || cfg.keepDimsSet {
		return nil, fmt.Errorf("%w: flattened mean takes no axis, out or keepdims", ErrInvalidParameter)
	}

	return run(opMeanFlattened, x, cfg)
}

// MeanOf returns the robust mean of a real slice. Complex element types fail
// with ErrTypeMismatch.
func MeanOf[T ndarray.Element](values []T, delta float64) (float64, error) {
	arr, err := ndarray.New(values)
	if err != nil {
		return 0, err
	}

	batch, err := arr.Float64s()
	if err != nil {
		return 0, err
	}

	res, err := estimator.EstimateInPlace(estimator.Real{}, batch, estimator.NewParams(delta))
	if err != nil {
		return 0, err
	}

	return res.Value, nil
}

func run(op string, x *ndarray.Array, cfg Config) (*ndarray.Array, error) {
	start := time.Now()

	ctx, span := cfg.Tracer.Start(cfg.Context, "robustmean."+op,
		trace.WithAttributes(
			attribute.Float64("submean.delta", cfg.Delta),
			attribute.Bool("submean.keepdims", cfg.KeepDims),
		),
	)
	defer span.End()

	out, stats, err := compute(ctx, x, cfg)
	elapsed := time.Since(start)

	status := observability.StatusOK
	if err != nil {
		status = observability.StatusError
	}

	cfg.Metrics.RecordCall(ctx, observability.CallStats{
		Op:           op,
		Status:       status,
		Duration:     elapsed,
		Groups:       stats.Groups,
		Elements:     stats.Elements,
		Iterations:   stats.Iterations,
		NonConverged: stats.NonConverged,
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		cfg.Logger.DebugContext(ctx, "robust mean failed", "op", op, "error", err)

		return nil, err
	}

	span.SetAttributes(
		attribute.Int("submean.groups", stats.Groups),
		attribute.Int("submean.elements", stats.Elements),
		attribute.Int("submean.nonconverged", stats.NonConverged),
	)

	if cfg.Diagnostics != nil {
		*cfg.Diagnostics = Diagnostics{
			Groups:       stats.Groups,
			Elements:     stats.Elements,
			Iterations:   stats.Iterations,
			NonConverged: stats.NonConverged,
			Duration:     elapsed,
		}
	}

	cfg.Logger.DebugContext(ctx, "robust mean computed",
		"op", op,
		"input", x.String(),
		"result", out.String(),
		"groups", stats.Groups,
		"elements", stats.Elements,
		"iterations", stats.Iterations,
		"duration", elapsed,
	)

	if stats.NonConverged > 0 {
		cfg.Logger.WarnContext(ctx, "robust mean refinement hit the iteration budget",
			"op", op,
			"nonconverged", stats.NonConverged,
			"groups", stats.Groups,
			"max_iterations", cfg.MaxIterations,
		)
	}

	return out, nil
}

// compute plans, validates and binds everything before evaluating any group,
// so every failure leaves a caller-supplied out untouched. Values are rounded
// to the result type before they are stored, whatever out's own type is.
func compute(ctx context.Context, x *ndarray.Array, cfg Config) (*ndarray.Array, reduce.Stats, error) {
	if x == nil {
		return nil, reduce.Stats{}, fmt.Errorf("%w: nil input array", ErrInvalidParameter)
	}

	err := cfg.Validate()
	if err != nil {
		return nil, reduce.Stats{}, err
	}

	resultType, err := dtype.Result(x.DType(), cfg.DType)
	if err != nil {
		return nil, reduce.Stats{}, err
	}

	plan, err := reduce.NewPlan(x.Shape(), cfg.axes(), cfg.KeepDims, cfg.Where)
	if err != nil {
		return nil, reduce.Stats{}, err
	}

	err = plan.CheckCounts(cfg.Delta)
	if err != nil {
		return nil, reduce.Stats{}, err
	}

	target, err := reduce.Bind(cfg.Out, plan.OutShape, resultType)
	if err != nil {
		return nil, reduce.Stats{}, err
	}

	if x.DType().IsComplex() {
		results, stats, err := evaluate(ctx, plan, estimator.Complex128{}, x.Complex128s(), cfg)
		if err != nil {
			return nil, stats, err
		}

		for g, v := range results {
			target.SetComplex128(g, dtype.CastComplex(resultType, v))
		}

		return target, stats, nil
	}

	values, err := x.Float64s()
	if err != nil {
		return nil, reduce.Stats{}, err
	}

	results, stats, err := evaluate(ctx, plan, estimator.Real{}, values, cfg)
	if err != nil {
		return nil, stats, err
	}

	for g, v := range results {
		target.SetFloat64(g, dtype.CastReal(resultType, v))
	}

	return target, stats, nil
}

// evaluate collects every group estimate before anything is written to the
// target.
func evaluate[W estimator.Working](
	ctx context.Context, plan *reduce.Plan, f estimator.Field[W], values []W, cfg Config,
) ([]W, reduce.Stats, error) {
	results := make([]W, plan.Groups())

	stats, err := reduce.Evaluate(ctx, plan, f, values, cfg.params(), cfg.Workers,
		func(g int, v W) { results[g] = v })
	if err != nil {
		return nil, stats, fmt.Errorf("evaluate groups: %w", err)
	}

	return results, stats, nil
}
