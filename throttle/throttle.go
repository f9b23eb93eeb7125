package throttle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/time/rate"
)

// Throttle enforces a minimum period between real invocations of an
// operation and hands every caller the result of the latest one.
//
// The decide, wait, invoke and cache sequence runs one caller at a time,
// so a Throttle is safe for concurrent use.
type Throttle[T any] struct {
	period    time.Duration
	epsilon   time.Duration
	skippable bool
	name      string

	clock   Clock
	sleeper Sleeper
	waiter  Waiter
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *instruments

	anomalyLog rate.Sometimes

	// sem is a one-slot semaphore; holding it is the critical section.
	sem chan struct{}

	mu       sync.Mutex
	lastCall time.Time
	cached   T
	seeded   bool
}

// New returns a Throttle which lets the operation run at most once per period.
// A non-positive period fails with ErrConfiguration.
func New[T any](period time.Duration, optFns ...Option) (*Throttle[T], error) {
	return NewFromConfig[T](Config{Period: period}, optFns...)
}

// NewFromConfig is New driven by a Config. A zero Epsilon selects
// DefaultEpsilon; options take precedence over cfg.
func NewFromConfig[T any](cfg Config, optFns ...Option) (*Throttle[T], error) {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("%w: applying option: %w", ErrConfiguration, err)
		}
	}

	if cfg.Epsilon == 0 {
		cfg.Epsilon = DefaultEpsilon
	}
	if opts.epsilon != nil {
		cfg.Epsilon = *opts.epsilon
	}
	cfg.Skippable = cfg.Skippable || opts.skippable

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	t := Throttle[T]{
		period:     cfg.Period,
		epsilon:    cfg.Epsilon,
		skippable:  cfg.Skippable,
		name:       "throttle",
		clock:      realClock{},
		logger:     slog.Default(),
		tracer:     tracenoop.NewTracerProvider().Tracer("throttle"),
		anomalyLog: rate.Sometimes{First: 1, Interval: time.Minute},
		sem:        make(chan struct{}, 1),
	}

	if opts.name != "" {
		t.name = opts.name
	}
	if opts.clock != nil {
		t.clock = opts.clock
	}
	if opts.logger != nil {
		t.logger = opts.logger
	}
	if opts.tracer != nil {
		t.tracer = opts.tracer
	}

	t.sleeper = sleeperFor(t.clock)
	if opts.sleeper != nil {
		t.sleeper = opts.sleeper
	}
	t.waiter = waiterFor(t.clock)
	if opts.waiter != nil {
		t.waiter = opts.waiter
	}

	meter := opts.meter
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("throttle")
	}
	metrics, err := newInstruments(meter, t.name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	t.metrics = metrics

	t.lastCall = t.clock.Now()

	return &t, nil
}

// Call runs fn under the throttling policy, blocking the calling goroutine
// with the Sleeper when it has to wait. Errors from fn are returned as is
// and leave the cached result and last call time untouched.
func (t *Throttle[T]) Call(fn func() (T, error)) (T, error) {
	t.sem <- struct{}{}
	defer func() { <-t.sem }()

	return t.run(context.Background(), t.sleep, func(context.Context) (T, error) {
		return fn()
	})
}

// Do is the context-aware form of Call. Waiting for another caller or for the
// period to elapse is aborted when ctx ends, in which case fn is not invoked.
func (t *Throttle[T]) Do(ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if err := ctx.Err(); err != nil {
		return zero, fmt.Errorf("%w early: %w", ErrContextEnded, err)
	}

	select {
	case t.sem <- struct{}{}:
		defer func() { <-t.sem }()
	case <-ctx.Done():
		return zero, fmt.Errorf("%w in queue: %w", ErrWaitingFailed, ctx.Err())
	}

	if err := ctx.Err(); err != nil {
		return zero, fmt.Errorf("%w in queue: %w", ErrContextEnded, err)
	}

	return t.run(ctx, t.waiter, fn)
}

// run is shared by both shells; only the wait primitive differs.
// The caller must hold sem.
func (t *Throttle[T]) run(ctx context.Context, wait Waiter, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	now := t.clock.Now()

	t.mu.Lock()
	check := PeriodCheck{Last: t.lastCall, Now: now, Period: t.period}
	cached, seeded := t.cached, t.seeded
	t.mu.Unlock()

	d := Decide(check, t.epsilon, t.skippable, seeded)
	t.metrics.decided(ctx, d)

	if d.Anomaly {
		t.anomalyLog.Do(func() {
			t.logger.Warn("throttle timing anomaly, invoking immediately", "throttle", t.name, "error", ErrTimingAnomaly, "last", check.Last, "now", check.Now)
		})
	}

	switch d.Action {
	case ActionReturnCached:
		t.logger.Debug("throttle skipped", "throttle", t.name, "elapsed", check.Elapsed().String(), "period", t.period.String())
		return cached, nil

	case ActionWait:
		t.logger.Debug("throttle waiting", "throttle", t.name, "wait", d.Wait.String(), "period", t.period.String())

		if err := wait(ctx, d.Wait); err != nil {
			return zero, fmt.Errorf("%w: %w", ErrWaitingFailed, err)
		}

		if err := ctx.Err(); err != nil { // Check context hasn't expired during the wait.
			return zero, fmt.Errorf("%w post-wait: %w", ErrContextEnded, err)
		}
	}

	return t.invoke(ctx, fn)
}

func (t *Throttle[T]) invoke(ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := t.tracer.Start(ctx, "throttle.invoke", trace.WithAttributes(
		attribute.String("throttle", t.name),
		attribute.Bool("skippable", t.skippable),
	))
	defer span.End()

	v, err := fn(ctx)
	t.metrics.invoked(ctx, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		var zero T
		return zero, err
	}

	now := t.clock.Now()

	t.mu.Lock()
	t.cached = v
	t.seeded = true
	t.lastCall = now
	t.mu.Unlock()

	return v, nil
}

func (t *Throttle[T]) sleep(_ context.Context, d time.Duration) error {
	t.sleeper(d)
	return nil
}

// Now reads the Throttle's clock.
func (t *Throttle[T]) Now() time.Time { return t.clock.Now() }

// Period returns the minimum interval between real invocations.
func (t *Throttle[T]) Period() time.Duration { return t.period }

// Skippable reports whether early calls return the cached result.
func (t *Throttle[T]) Skippable() bool { return t.skippable }

// Name returns the label used in logs, spans and metrics.
func (t *Throttle[T]) Name() string { return t.name }

// LastCall returns the time of the last successful invocation, or the
// construction time before the first one.
func (t *Throttle[T]) LastCall() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.lastCall
}

// Cached returns the last successful result. ok is false until the
// first invocation succeeds.
func (t *Throttle[T]) Cached() (v T, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.cached, t.seeded
}
