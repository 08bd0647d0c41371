package robustmean

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/submean/pkg/dtype"
	"github.com/Sumatoshi-tech/submean/pkg/estimator"
	"github.com/Sumatoshi-tech/submean/pkg/ndarray"
	"github.com/Sumatoshi-tech/submean/pkg/observability"
)

// Default confidence parameters.
const (
	// DefaultDelta is δ for Mean.
	DefaultDelta = 0.01

	// DefaultFlattenedDelta is δ for MeanFlattened.
	DefaultFlattenedDelta = 0.05
)

// Config is the complete configuration of one call, built from options and
// validated once before any computation.
type Config struct {
	// Delta is the failure probability δ in (0, 1).
	Delta float64

	// Axes are the axes to collapse. Nil collapses all axes.
	Axes []int

	// DType is the explicit result type; dtype.Invalid lets the input decide.
	DType dtype.DType

	// Out receives the result when non-nil.
	Out *ndarray.Array

	// KeepDims keeps collapsed axes with length 1.
	KeepDims bool

	// Where selects the participating elements when non-nil.
	Where *ndarray.Mask

	// Workers bounds parallel group evaluation; 0 means GOMAXPROCS.
	Workers int

	// MaxIterations bounds refinement per group.
	MaxIterations int

	// Logger receives per-call debug records and non-convergence warnings.
	Logger *slog.Logger

	// Metrics records per-call instruments when non-nil.
	Metrics *observability.EstimatorMetrics

	// Tracer starts one span per call.
	Tracer trace.Tracer

	// Context carries trace and log context into the call.
	Context context.Context //nolint:containedctx // propagation only, the call is not cancellable.

	// Diagnostics, when non-nil, is filled after every call.
	Diagnostics *Diagnostics

	axisSet     bool
	outSet      bool
	keepDimsSet bool
}

// Option configures a call.
type Option func(*Config)

// WithDelta sets the failure probability δ.
func WithDelta(delta float64) Option {
	return func(c *Config) { c.Delta = delta }
}

// WithAxis collapses the given axes. Negative axes count from the end.
// WithAxis() with no arguments collapses nothing.
func WithAxis(axes ...int) Option {
	return func(c *Config) {
		c.Axes = append([]int{}, axes...)
		c.axisSet = true
	}
}

// WithDType sets the result element type.
func WithDType(dt dtype.DType) Option {
	return func(c *Config) { c.DType = dt }
}

// WithOut writes the result into out, which must have exactly the result
// shape and accept the result type by same-kind casting.
func WithOut(out *ndarray.Array) Option {
	return func(c *Config) {
		c.Out = out
		c.outSet = true
	}
}

// WithKeepDims keeps collapsed axes in the result with length 1.
func WithKeepDims(keep bool) Option {
	return func(c *Config) {
		c.KeepDims = keep
		c.keepDimsSet = true
	}
}

// WithWhere restricts every group to the elements selected by mask, which is
// broadcast against the input.
func WithWhere(mask *ndarray.Mask) Option {
	return func(c *Config) { c.Where = mask }
}

// WithWorkers bounds the number of goroutines evaluating groups.
func WithWorkers(n int) Option {
	return func(c *Config) { c.Workers = n }
}

// WithMaxIterations bounds the refinement loop of every group.
func WithMaxIterations(n int) Option {
	return func(c *Config) { c.MaxIterations = n }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// WithMetrics records every call on m.
func WithMetrics(m *observability.EstimatorMetrics) Option {
	return func(c *Config) { c.Metrics = m }
}

// WithTracer sets the tracer. The default comes from the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Config) { c.Tracer = tracer }
}

// WithContext attaches ctx for trace and log propagation.
func WithContext(ctx context.Context) Option {
	return func(c *Config) { c.Context = ctx }
}

// WithDiagnostics fills d with per-call statistics.
func WithDiagnostics(d *Diagnostics) Option {
	return func(c *Config) { c.Diagnostics = d }
}

// NewConfig applies opts over the defaults for delta.
func NewConfig(delta float64, opts ...Option) Config {
	cfg := Config{
		Delta:         delta,
		MaxIterations: estimator.DefaultMaxIterations,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(observability.InstrumentationName)
	}

	if cfg.Context == nil {
		cfg.Context = context.Background()
	}

	return cfg
}

// Validate checks the scalar parameters. Shape-dependent checks (axes, mask,
// out) are made against the input when the call is planned.
func (c Config) Validate() error {
	err := c.params().Validate()
	if err != nil {
		return err
	}

	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be non-negative, got %d", ErrInvalidParameter, c.Workers)
	}

	if c.DType != dtype.Invalid && !c.DType.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidParameter, c.DType)
	}

	return nil
}

func (c Config) params() estimator.Params {
	return estimator.Params{
		Delta:         c.Delta,
		MaxIterations: c.MaxIterations,
		Tolerance:     estimator.DefaultTolerance,
	}
}

// axes returns a copy of the configured axes, preserving nil.
func (c Config) axes() []int {
	if !c.axisSet {
		return nil
	}

	return slices.Clone(c.Axes)
}
