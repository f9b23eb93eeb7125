package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/adamwoolhether/pacer/web/errs"
	"github.com/adamwoolhether/pacer/web/mux"
)

// Metrics counts requests and records their latency per route.
func Metrics(meter metric.Meter) (mux.Ranked, error) {
	requests, err := meter.Int64Counter(
		"http.server.requests",
		metric.WithDescription("Requests handled, by route and status"),
	)
	if err != nil {
		return mux.Ranked{}, fmt.Errorf("creating requests counter: %w", err)
	}

	latency, err := meter.Float64Histogram(
		"http.server.duration",
		metric.WithDescription("Handler latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return mux.Ranked{}, fmt.Errorf("creating duration histogram: %w", err)
	}

	m := func(handler mux.Handler) mux.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			start := time.Now()
			err := handler(ctx, w, r)

			status := mux.GetValues(ctx).StatusCode
			if err != nil {
				status = errs.Code(err)
			}
			if status == 0 {
				status = http.StatusOK
			}

			attrs := metric.WithAttributes(
				attribute.String("route", mux.GetValues(ctx).Route),
				attribute.Int("status", status),
			)
			requests.Add(ctx, 1, attrs)
			latency.Record(ctx, time.Since(start).Seconds(), attrs)

			return err
		}

		return h
	}

	return mux.Ranked{Order: mux.RankMetrics, Fn: m}, nil
}
