package throttle

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// BucketConfig defines a token bucket's requests per second and burst.
type BucketConfig struct {
	RPS   int
	Burst int
}

// gate holds an outbound request until it may be sent.
type gate interface {
	enter(ctx context.Context, logger *slog.Logger, r *http.Request) error
}

// transport is an http.RoundTripper that passes every request through a gate.
type transport struct {
	gate  gate
	next  http.RoundTripper
	logFn func() *slog.Logger
}

// NewRoundTripper returns an http.RoundTripper that throttles outbound requests
// using a token bucket rate limiter. logFn lazily resolves the logger at request
// time, making option ordering irrelevant. A nil-returning logFn disables logging.
func NewRoundTripper(rps, burst int, logFn func() *slog.Logger, next http.RoundTripper) (http.RoundTripper, error) {
	if rps <= 0 || burst <= 0 {
		return nil, fmt.Errorf("%w: rps[%d] and burst[%d] %w", ErrConfiguration, rps, burst, ErrMustNotBeZero)
	}

	g := &bucketGate{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		cfg:     BucketConfig{RPS: rps, Burst: burst},
	}

	return newTransport(g, logFn, next), nil
}

// NewIntervalRoundTripper returns an http.RoundTripper that starts at most one
// request per period, waiting as a non-skippable Throttle does. Skippable mode
// is rejected since a response body cannot be handed to a second caller.
func NewIntervalRoundTripper(period time.Duration, logFn func() *slog.Logger, next http.RoundTripper, opts ...Option) (http.RoundTripper, error) {
	t, err := New[struct{}](period, opts...)
	if err != nil {
		return nil, err
	}

	if t.Skippable() {
		return nil, fmt.Errorf("%w: interval transport cannot skip requests", ErrConfiguration)
	}

	return newTransport(&intervalGate{throttle: t}, logFn, next), nil
}

func newTransport(g gate, logFn func() *slog.Logger, next http.RoundTripper) *transport {
	if next == nil {
		next = http.DefaultTransport
	}
	if logFn == nil {
		logFn = func() *slog.Logger { return nil }
	}

	return &transport{gate: g, next: next, logFn: logFn}
}

func (t *transport) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w early: %w", ErrContextEnded, err)
	}

	if err := t.gate.enter(ctx, t.logFn(), r); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil { // Check context hasn't expired again.
		return nil, fmt.Errorf("%w post-wait: %w", ErrContextEnded, err)
	}

	return t.next.RoundTrip(r)
}

// /////////////////////////////////////////////////////////////////

type bucketGate struct {
	limiter *rate.Limiter
	cfg     BucketConfig
}

func (g *bucketGate) enter(ctx context.Context, logger *slog.Logger, r *http.Request) error {
	var waited time.Duration
	if logger != nil && g.limiter.Tokens() < 1 {
		logger.Info("throttle tokens exhausted", "rate", g.cfg.RPS, "burst", g.cfg.Burst, "path", r.URL.Path)

		defer func() {
			logger.Info("throttle wait complete", "waited", waited.String(), "rate", g.cfg.RPS, "burst", g.cfg.Burst)
		}()
	}

	start := time.Now()

	err := g.limiter.Wait(ctx)
	waited = time.Since(start)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWaitingFailed, err)
	}

	return nil
}

type intervalGate struct {
	throttle *Throttle[struct{}]
}

// enter records the request start as the throttled invocation, so a failed
// request still counts against the period.
func (g *intervalGate) enter(ctx context.Context, logger *slog.Logger, r *http.Request) error {
	start := time.Now()

	_, err := g.throttle.Do(ctx, func(context.Context) (struct{}, error) {
		return struct{}{}, nil
	})
	if err != nil {
		return err
	}

	if waited := time.Since(start); logger != nil && waited > g.throttle.epsilon {
		logger.Info("throttle interval wait complete", "waited", waited.String(), "period", g.throttle.Period().String(), "path", r.URL.Path)
	}

	return nil
}
