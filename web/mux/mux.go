// Package mux routes requests to error-returning handlers, starting a span
// and seeding per-request values for every route.
package mux

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// App is the core web application, managing routing and middleware.
type App struct {
	mux    *http.ServeMux
	mw     []Middleware
	logger *slog.Logger
	tracer trace.Tracer
}

// Handler is a http.Handler that returns an error.
type Handler func(ctx context.Context, w http.ResponseWriter, r *http.Request) error

// Middleware defines a signature to chain Handler together.
type Middleware func(handler Handler) Handler

// Rank places plain middleware between Metrics and Panics.
func (m Middleware) Rank() int { return RankDefault }

// Wrap applies m to handler.
func (m Middleware) Wrap(handler Handler) Handler { return m(handler) }

// Stack ranks used by WithMiddleware. Lower ranks wrap further out.
const (
	RankLogger  = 1
	RankErrors  = 2
	RankMetrics = 3
	RankDefault = 5
	RankPanics  = 100
)

// Layer is a middleware that knows where it belongs in the App stack.
type Layer interface {
	Rank() int
	Wrap(handler Handler) Handler
}

// Ranked pins a Middleware to an explicit rank.
type Ranked struct {
	Order int
	Fn    Middleware
}

// Rank implements Layer.
func (r Ranked) Rank() int { return r.Order }

// Wrap implements Layer.
func (r Ranked) Wrap(handler Handler) Handler { return r.Fn(handler) }

// New creates an App with the given options. A no-op tracer and the
// default slog logger are used unless overridden via options.
func New(optFns ...Option) *App {
	var opts options
	for _, opt := range optFns {
		opt(&opts)
	}
	if opts.logger == nil {
		opts.logger = slog.Default()
	}
	if opts.tracer == nil {
		opts.tracer = noop.NewTracerProvider().Tracer("no-op tracer")
	}

	return &App{
		mux:    http.NewServeMux(),
		mw:     opts.mw,
		logger: opts.logger,
		tracer: opts.tracer,
	}
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

// Use appends the given middleware to the route-level stack. Only routes
// registered afterwards see it.
func (a *App) Use(mw ...Middleware) {
	a.mw = append(a.mw, mw...)
}

// Get registers a handler for GET requests at the given path.
func (a *App) Get(path string, fn Handler, mw ...Middleware) {
	a.Handle(http.MethodGet, path, fn, mw...)
}

// Handle registers handler for method and path, wrapped in the route
// middleware first and the App's stack outermost.
func (a *App) Handle(method, path string, handler Handler, mw ...Middleware) {
	handler = wrap(mw, handler)
	handler = wrap(a.mw, handler)

	h := func(w http.ResponseWriter, r *http.Request) {
		ctx, span := a.startSpan(w, r)
		defer span.End()

		traceID := span.SpanContext().TraceID().String()
		if !span.SpanContext().TraceID().IsValid() {
			traceID = uuid.New().String()
		}

		v := BaseValues{
			TraceID: traceID,
			Now:     time.Now().UTC(),
			Tracer:  a.tracer,
			Route:   path,
		}

		r = r.WithContext(setValues(ctx, &v))

		if err := handler(r.Context(), w, r); err != nil {
			a.logger.Error("mux: handle", "route", path, "trace_id", traceID, "error", err)
		}
	}

	a.mux.HandleFunc(method+" "+path, h)
}

// HandleRaw registers a standard http.Handler, such as a metrics
// exporter, behind the same middleware as Handle.
func (a *App) HandleRaw(method, path string, handler http.Handler, mw ...Middleware) {
	a.Handle(method, path, Adapt(handler), mw...)
}

// startSpan initializes the request by adding a span and writing
// otel-related info into the response writer for the response.
func (a *App) startSpan(w http.ResponseWriter, r *http.Request) (context.Context, trace.Span) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	ctx, span := a.tracer.Start(ctx, "mux.handler")
	span.SetAttributes(
		attribute.String("http.method", r.Method),
		attribute.String("path", r.RequestURI),
	)

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(w.Header()))

	return ctx, span
}

// Adapt converts a standard http.Handler into a Handler.
func Adapt(h http.Handler) Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		h.ServeHTTP(w, r)
		return nil
	}
}

// wrap middleware around the handler and execute in order given.
func wrap(mw []Middleware, handler Handler) Handler {
	for _, mwFn := range slices.Backward(mw) {
		if mwFn != nil {
			handler = mwFn(handler)
		}
	}

	return handler
}
