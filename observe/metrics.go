package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CounterMetrics records the activity of an event counter health aggregator.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly; calls sit on the event delivery path.
// - Errors: implementations must not panic.
type CounterMetrics interface {
	// RecordDispatch records one snapshot delivered to the given number of filters.
	RecordDispatch(ctx context.Context, source string, filters int)

	// RecordIgnored records an event from a subscribed source that was not a counter report.
	RecordIgnored(ctx context.Context, source string)

	// RecordCycle records one completed aggregation cycle and its verdict.
	RecordCycle(ctx context.Context, status string, duration time.Duration)

	// RecordSourceEnabled adjusts the number of enabled sources by delta.
	RecordSourceEnabled(ctx context.Context, source string, delta int64)

	// RecordFilterFailure records a filter call that failed under isolation.
	RecordFilterFailure(ctx context.Context, filter, operation string)
}

type counterMetrics struct {
	dispatched     metric.Int64Counter
	ignored        metric.Int64Counter
	cycles         metric.Int64Counter
	cycleDuration  metric.Float64Histogram
	sourcesEnabled metric.Int64UpDownCounter
	filterFailures metric.Int64Counter
}

// NewCounterMetrics creates CounterMetrics backed by the given meter.
func NewCounterMetrics(meter metric.Meter) (CounterMetrics, error) {
	dispatched, err := meter.Int64Counter(
		"eventcounter.snapshots.dispatched",
		metric.WithDescription("Counter snapshots delivered to filters"),
		metric.WithUnit("{snapshot}"),
	)
	if err != nil {
		return nil, err
	}

	ignored, err := meter.Int64Counter(
		"eventcounter.events.ignored",
		metric.WithDescription("Events from subscribed sources that were not counter reports"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	cycles, err := meter.Int64Counter(
		"eventcounter.cycles",
		metric.WithDescription("Completed health aggregation cycles"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return nil, err
	}

	cycleDuration, err := meter.Float64Histogram(
		"eventcounter.cycle.duration_ms",
		metric.WithDescription("Health aggregation cycle duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	sourcesEnabled, err := meter.Int64UpDownCounter(
		"eventcounter.sources.enabled",
		metric.WithDescription("Instrumentation sources currently enabled"),
		metric.WithUnit("{source}"),
	)
	if err != nil {
		return nil, err
	}

	filterFailures, err := meter.Int64Counter(
		"eventcounter.filter.failures",
		metric.WithDescription("Filter calls that failed or were rejected by an open circuit"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	return &counterMetrics{
		dispatched:     dispatched,
		ignored:        ignored,
		cycles:         cycles,
		cycleDuration:  cycleDuration,
		sourcesEnabled: sourcesEnabled,
		filterFailures: filterFailures,
	}, nil
}

func (m *counterMetrics) RecordDispatch(ctx context.Context, source string, filters int) {
	m.dispatched.Add(ctx, int64(filters), metric.WithAttributes(attribute.String("source", source)))
}

func (m *counterMetrics) RecordIgnored(ctx context.Context, source string) {
	m.ignored.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

func (m *counterMetrics) RecordCycle(ctx context.Context, status string, duration time.Duration) {
	opt := metric.WithAttributes(attribute.String("status", status))
	m.cycles.Add(ctx, 1, opt)
	m.cycleDuration.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

func (m *counterMetrics) RecordSourceEnabled(ctx context.Context, source string, delta int64) {
	m.sourcesEnabled.Add(ctx, delta, metric.WithAttributes(attribute.String("source", source)))
}

func (m *counterMetrics) RecordFilterFailure(ctx context.Context, filter, operation string) {
	m.filterFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("filter", filter),
		attribute.String("operation", operation),
	))
}

// NopCounterMetrics returns CounterMetrics that record nothing.
func NopCounterMetrics() CounterMetrics {
	return nopCounterMetrics{}
}

type nopCounterMetrics struct{}

func (nopCounterMetrics) RecordDispatch(context.Context, string, int)         {}
func (nopCounterMetrics) RecordIgnored(context.Context, string)               {}
func (nopCounterMetrics) RecordCycle(context.Context, string, time.Duration)  {}
func (nopCounterMetrics) RecordSourceEnabled(context.Context, string, int64)  {}
func (nopCounterMetrics) RecordFilterFailure(context.Context, string, string) {}
