package throttle

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// instruments are the otel measurements of one Throttle.
type instruments struct {
	invocations metric.Int64Counter
	cacheHits   metric.Int64Counter
	failures    metric.Int64Counter
	anomalies   metric.Int64Counter
	waits       metric.Float64Histogram
	attrs       metric.MeasurementOption
}

func newInstruments(meter metric.Meter, name string) (*instruments, error) {
	invocations, err := meter.Int64Counter(
		"throttle.invocations",
		metric.WithDescription("Real invocations of the throttled operation"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating invocations counter: %w", err)
	}

	cacheHits, err := meter.Int64Counter(
		"throttle.cache_hits",
		metric.WithDescription("Calls answered from the cached result"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating cache hits counter: %w", err)
	}

	failures, err := meter.Int64Counter(
		"throttle.failures",
		metric.WithDescription("Invocations that returned an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failures counter: %w", err)
	}

	anomalies, err := meter.Int64Counter(
		"throttle.timing_anomalies",
		metric.WithDescription("Decisions made with a clock earlier than the last invocation"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating anomalies counter: %w", err)
	}

	waits, err := meter.Float64Histogram(
		"throttle.wait_duration",
		metric.WithDescription("Time requested from the wait primitive before invoking"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating wait histogram: %w", err)
	}

	return &instruments{
		invocations: invocations,
		cacheHits:   cacheHits,
		failures:    failures,
		anomalies:   anomalies,
		waits:       waits,
		attrs:       metric.WithAttributeSet(attribute.NewSet(attribute.String("throttle", name))),
	}, nil
}

func (in *instruments) decided(ctx context.Context, d Decision) {
	if d.Anomaly {
		in.anomalies.Add(ctx, 1, in.attrs)
	}

	switch d.Action {
	case ActionReturnCached:
		in.cacheHits.Add(ctx, 1, in.attrs)
	case ActionWait:
		in.waits.Record(ctx, d.Wait.Seconds(), in.attrs)
	}
}

func (in *instruments) invoked(ctx context.Context, err error) {
	in.invocations.Add(ctx, 1, in.attrs)
	if err != nil {
		in.failures.Add(ctx, 1, in.attrs)
	}
}
