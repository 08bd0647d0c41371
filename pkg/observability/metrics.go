package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricCallsTotal        = "submean.calls.total"
	metricCallDuration      = "submean.call.duration.seconds"
	metricGroupsTotal       = "submean.groups.total"
	metricElementsTotal     = "submean.elements.total"
	metricNonConvergedTotal = "submean.groups.nonconverged.total"
	metricCallIterations    = "submean.call.iterations"

	attrOp     = "op"
	attrStatus = "status"
)

// Call statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// durationBucketBoundaries covers 100µs to 60s: single small batches up to
// large arrays reduced over many groups.
var durationBucketBoundaries = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 60}

// iterationBucketBoundaries covers per-call refinement step totals.
var iterationBucketBoundaries = []float64{1, 5, 10, 25, 50, 100, 200, 500, 1000, 10000, 100000}

// EstimatorMetrics holds the OTel instruments recorded per estimator call.
type EstimatorMetrics struct {
	callsTotal   metric.Int64Counter
	callDuration metric.Float64Histogram
	groups       metric.Int64Counter
	elements     metric.Int64Counter
	nonConverged metric.Int64Counter
	iterations   metric.Float64Histogram
}

// CallStats describes one completed estimator call.
type CallStats struct {
	// Op names the entry point, e.g. "mean" or "mean_flattened".
	Op string

	// Status is StatusOK or StatusError.
	Status string

	// Duration is the wall time of the call.
	Duration time.Duration

	// Groups is the number of result cells computed.
	Groups int

	// Elements is the number of selected input elements.
	Elements int

	// Iterations is the total number of refinement steps.
	Iterations int

	// NonConverged counts groups that exhausted the iteration budget.
	NonConverged int
}

// NewEstimatorMetrics creates estimator instruments from the given meter.
func NewEstimatorMetrics(mt metric.Meter) (*EstimatorMetrics, error) {
	b := newMetricBuilder(mt)

	em := &EstimatorMetrics{
		callsTotal:   b.counter(metricCallsTotal, "Total estimator calls", "{call}"),
		callDuration: b.histogram(metricCallDuration, "Estimator call duration in seconds", "s", durationBucketBoundaries...),
		groups:       b.counter(metricGroupsTotal, "Total reduction groups estimated", "{group}"),
		elements:     b.counter(metricElementsTotal, "Total input elements consumed", "{element}"),
		nonConverged: b.counter(metricNonConvergedTotal, "Groups that exhausted the iteration budget", "{group}"),
		iterations:   b.histogram(metricCallIterations, "Refinement steps per call", "{iteration}", iterationBucketBoundaries...),
	}

	if b.err != nil {
		return nil, b.err
	}

	return em, nil
}

// RecordCall records a completed estimator call.
// Safe to call on a nil receiver (no-op).
func (em *EstimatorMetrics) RecordCall(ctx context.Context, stats CallStats) {
	if em == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrOp, stats.Op),
		attribute.String(attrStatus, stats.Status),
	)

	em.callsTotal.Add(ctx, 1, attrs)
	em.callDuration.Record(ctx, stats.Duration.Seconds(), attrs)

	if stats.Status != StatusOK {
		return
	}

	opAttr := metric.WithAttributes(attribute.String(attrOp, stats.Op))

	em.groups.Add(ctx, int64(stats.Groups), opAttr)
	em.elements.Add(ctx, int64(stats.Elements), opAttr)
	em.nonConverged.Add(ctx, int64(stats.NonConverged), opAttr)
	em.iterations.Record(ctx, float64(stats.Iterations), opAttr)
}
