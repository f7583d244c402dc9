// Package telemetry provides OpenTelemetry metrics for visibility evaluation.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/hupe1980/descvis/internal/visibility"
)

const (
	// VisibilityMetricsMeterName is the name used for the visibility metrics meter
	VisibilityMetricsMeterName = "github.com/hupe1980/descvis/visibility"
)

// Metric names.
const (
	MetricVetoes   = "descvis_filter_vetoes_total"
	MetricFailures = "descvis_filter_failures_total"
	MetricDuration = "descvis_evaluation_duration_seconds"
)

// VisibilityMetrics holds the OpenTelemetry instruments for filter
// evaluation. It implements visibility.Observer; a nil *VisibilityMetrics
// records nothing.
type VisibilityMetrics struct {
	vetoes   metric.Int64Counter
	failures metric.Int64Counter
	duration metric.Float64Histogram
}

// compile-time interface conformance check.
var _ visibility.Observer = (*VisibilityMetrics)(nil)

// NewVisibilityMetrics creates a new VisibilityMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewVisibilityMetrics(provider metric.MeterProvider) (*VisibilityMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(VisibilityMetricsMeterName)

	vetoes, err := meter.Int64Counter(
		MetricVetoes,
		metric.WithDescription("Number of descriptors hidden by each filter"),
		metric.WithUnit("{descriptor}"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter(
		MetricFailures,
		metric.WithDescription("Number of recoverable failures raised by each filter"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		MetricDuration,
		metric.WithDescription("Duration of visibility evaluations in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1),
	)
	if err != nil {
		return nil, err
	}

	return &VisibilityMetrics{
		vetoes:   vetoes,
		failures: failures,
		duration: duration,
	}, nil
}

// Vetoed counts a descriptor hidden by f.
func (m *VisibilityMetrics) Vetoed(ctx context.Context, f visibility.Filter, _ visibility.Item, stage string) {
	if m == nil || m.vetoes == nil {
		return
	}

	m.vetoes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("filter", f.Name()),
		attribute.String("stage", stage),
	))
}

// Failed counts a recoverable failure of f.
func (m *VisibilityMetrics) Failed(ctx context.Context, f visibility.Filter, _ visibility.Item, _ error) {
	if m == nil || m.failures == nil {
		return
	}

	m.failures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("filter", f.Name()),
	))
}

// RecordEvaluation records the duration of one evaluation in a scope type.
func (m *VisibilityMetrics) RecordEvaluation(ctx context.Context, scopeType string, duration time.Duration, success bool) {
	if m == nil || m.duration == nil {
		return
	}

	m.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("scope_type", scopeType),
		attribute.Bool("success", success),
	))
}
