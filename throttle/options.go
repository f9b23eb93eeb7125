package throttle

import (
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Option is a functional option for configuring a Throttle via [New].
type Option func(*options) error

type options struct {
	skippable bool
	epsilon   *time.Duration
	clock     Clock
	sleeper   Sleeper
	waiter    Waiter
	logger    *slog.Logger
	tracer    trace.Tracer
	meter     metric.Meter
	name      string
}

// WithSkippable makes calls arriving before the period has elapsed return
// the cached result instead of waiting. Until a result is cached, calls wait
// as in the non-skippable mode.
func WithSkippable() Option {
	return func(o *options) error {
		o.skippable = true
		return nil
	}
}

// WithEpsilon overrides [DefaultEpsilon].
func WithEpsilon(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return errors.New("epsilon must not be negative")
		}
		o.epsilon = &d
		return nil
	}
}

// WithClock replaces the wall clock. Unless WithSleeper or WithWaiter are
// also given, waits are driven by the clock's After channel.
func WithClock(c Clock) Option {
	return func(o *options) error {
		if c == nil {
			return errors.New("clock must not be nil")
		}
		o.clock = c
		return nil
	}
}

// WithSleeper sets the wait primitive used by [Throttle.Call].
func WithSleeper(fn Sleeper) Option {
	return func(o *options) error {
		if fn == nil {
			return errors.New("sleeper must not be nil")
		}
		o.sleeper = fn
		return nil
	}
}

// WithWaiter sets the wait primitive used by [Throttle.Do].
func WithWaiter(fn Waiter) Option {
	return func(o *options) error {
		if fn == nil {
			return errors.New("waiter must not be nil")
		}
		o.waiter = fn
		return nil
	}
}

// WithLogger injects a custom [slog.Logger].
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithTracer records a span around every real invocation.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) error {
		o.tracer = tracer
		return nil
	}
}

// WithMeter records invocation, cache-hit and wait instruments.
func WithMeter(meter metric.Meter) Option {
	return func(o *options) error {
		o.meter = meter
		return nil
	}
}

// WithName labels logs, spans and metrics of the Throttle.
func WithName(name string) Option {
	return func(o *options) error {
		if name == "" {
			return errors.New("name must not be empty")
		}
		o.name = name
		return nil
	}
}
