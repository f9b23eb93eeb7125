// Package relay serves upstream JSON endpoints through per-route throttles,
// so any number of downstream callers share one rate-limited upstream.
//
// A skippable route answers early callers from the last fetched body. A
// non-skippable route makes each caller wait its turn and fetches fresh.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/adamwoolhether/pacer/client"
	"github.com/adamwoolhether/pacer/throttle"
	"github.com/adamwoolhether/pacer/web"
	"github.com/adamwoolhether/pacer/web/errs"
	"github.com/adamwoolhether/pacer/web/mux"
)

// Response headers set on every relayed body.
const (
	HeaderFetchedAt  = "X-Relay-Fetched-At"
	HeaderGeneration = "X-Relay-Generation"
	HeaderSkippable  = "X-Relay-Skippable"
)

// Relay owns one Fetcher per configured route.
type Relay struct {
	routes []*route
	logger *slog.Logger
}

type route struct {
	Route
	upstream *url.URL
	fetcher  *client.Fetcher[snapshot]
}

// snapshot is an upstream body tagged with the id and time of the fetch
// that produced it. Cached answers repeat both.
type snapshot struct {
	Body       json.RawMessage
	Generation string
	FetchedAt  time.Time
}

func (s *snapshot) Stamp(at time.Time) {
	s.FetchedAt = at
}

func (s *snapshot) UnmarshalJSON(b []byte) error {
	s.Body = append(json.RawMessage(nil), b...)
	s.Generation = uuid.NewString()
	return nil
}

// Option configures a Relay.
type Option func(*options)

type options struct {
	throttleOpts []throttle.Option
	logger       *slog.Logger
}

// WithLogger sets the logger used for warm-up and route failures.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMeter records per-route throttle instruments.
func WithMeter(meter metric.Meter) Option {
	return func(o *options) {
		o.throttleOpts = append(o.throttleOpts, throttle.WithMeter(meter))
	}
}

// WithTracer records a span for every upstream fetch.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.throttleOpts = append(o.throttleOpts, throttle.WithTracer(tracer))
	}
}

// WithClock drives every route throttle from c.
func WithClock(c throttle.Clock) Option {
	return func(o *options) {
		o.throttleOpts = append(o.throttleOpts, throttle.WithClock(c))
	}
}

// New validates cfg and builds a throttled Fetcher per route on c.
func New(c *client.Client, cfg Config, optFns ...Option) (*Relay, error) {
	if c == nil {
		return nil, errors.New("client must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := options{logger: c.Logger()}
	for _, opt := range optFns {
		opt(&opts)
	}
	if opts.logger == nil {
		opts.logger = slog.Default()
	}

	r := Relay{
		routes: make([]*route, 0, len(cfg.Routes)),
		logger: opts.logger,
	}

	for _, rt := range cfg.Routes {
		u, err := url.Parse(rt.Upstream)
		if err != nil {
			return nil, fmt.Errorf("%w: route %s upstream: %w", throttle.ErrConfiguration, rt.Name, err)
		}

		thOpts := append([]throttle.Option{throttle.WithName(rt.Name)}, opts.throttleOpts...)
		fetchOpts := []client.FetchOption{client.WithFetchThrottleOptions(thOpts...)}
		if rt.Skippable {
			fetchOpts = append(fetchOpts, client.WithFetchSkippable())
		}

		f, err := client.NewFetcher[snapshot](c, u, rt.Period, fetchOpts...)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", rt.Name, err)
		}

		r.routes = append(r.routes, &route{Route: rt, upstream: u, fetcher: f})
	}

	return &r, nil
}

// Register mounts every route plus GET /routes on app.
func (r *Relay) Register(app *mux.App) {
	app.Get("/routes", r.list)

	for _, rt := range r.routes {
		app.Get(rt.Path, r.handler(rt))
	}
}

// Warm fetches every skippable route concurrently so that the first
// downstream caller is answered from cache. Non-skippable routes have
// nothing to seed and are left alone.
func (r *Relay) Warm(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, rt := range r.routes {
		if !rt.Skippable {
			continue
		}

		g.Go(func() error {
			if _, err := r.fetch(ctx, rt); err != nil {
				return fmt.Errorf("warming route %s: %w", rt.Name, err)
			}

			r.logger.Info("relay: route warmed", "route", rt.Name)

			return nil
		})
	}

	return g.Wait()
}

func (r *Relay) fetch(ctx context.Context, rt *route) (snapshot, error) {
	if rt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rt.Timeout)
		defer cancel()
	}

	return rt.fetcher.Fetch(ctx)
}

func (r *Relay) handler(rt *route) mux.Handler {
	return func(ctx context.Context, w http.ResponseWriter, req *http.Request) error {
		snap, err := r.fetch(ctx, rt)
		if err != nil {
			return errs.New(statusFor(err), fmt.Errorf("route %s: %w", rt.Name, err))
		}

		w.Header().Set(HeaderFetchedAt, snap.FetchedAt.UTC().Format(time.RFC3339Nano))
		w.Header().Set(HeaderGeneration, snap.Generation)
		w.Header().Set(HeaderSkippable, strconv.FormatBool(rt.Skippable))

		return web.RespondJSON(ctx, w, http.StatusOK, snap.Body)
	}
}

// statusFor maps a fetch failure to the status reported downstream.
func statusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, throttle.ErrContextEnded), errors.Is(err, throttle.ErrWaitingFailed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// RouteInfo describes a configured route in the GET /routes listing.
type RouteInfo struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Upstream  string `json:"upstream"`
	Period    string `json:"period"`
	Skippable bool   `json:"skippable"`
	Seeded    bool   `json:"seeded"`
}

// Routes lists the configured routes in configuration order.
func (r *Relay) Routes() []RouteInfo {
	infos := make([]RouteInfo, len(r.routes))
	for i, rt := range r.routes {
		_, seeded := rt.fetcher.Throttle().Cached()
		infos[i] = RouteInfo{
			Name:      rt.Name,
			Path:      rt.Path,
			Upstream:  rt.upstream.Redacted(),
			Period:    rt.Period.String(),
			Skippable: rt.Skippable,
			Seeded:    seeded,
		}
	}

	return infos
}

func (r *Relay) list(ctx context.Context, w http.ResponseWriter, _ *http.Request) error {
	return web.RespondJSON(ctx, w, http.StatusOK, r.Routes())
}
