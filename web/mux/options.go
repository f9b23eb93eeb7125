package mux

import (
	"cmp"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel/trace"
)

type Option func(*options)

// options represents optional parameters.
type options struct {
	tracer trace.Tracer
	logger *slog.Logger
	mw     []Middleware
}

// WithMiddleware sorts mw by rank so that Logger wraps Errors, Errors wraps
// Metrics and custom middleware, and Panics sits closest to the handler.
// Layers sharing a rank keep the order given.
func WithMiddleware(mw ...Layer) Option {
	layers := slices.Clone(mw)
	slices.SortStableFunc(layers, func(a, b Layer) int {
		return cmp.Compare(a.Rank(), b.Rank())
	})

	mwSorted := make([]Middleware, len(layers))
	for i, l := range layers {
		mwSorted[i] = l.Wrap
	}

	return Option(func(opts *options) {
		opts.mw = mwSorted
	})
}

// WithTracer injects the given tracer into the App.
func WithTracer(tracer trace.Tracer) Option {
	return Option(func(opts *options) {
		opts.tracer = tracer
	})
}

// WithLogger sets the logger used by the App for internal errors.
func WithLogger(log *slog.Logger) Option {
	return Option(func(opts *options) {
		opts.logger = log
	})
}
