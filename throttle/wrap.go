package throttle

import (
	"context"
	"time"
)

// Wrap returns a function with fn's signature whose calls are throttled.
// Every Wrap owns its own Throttle, so two wrappers of the same fn do not
// share timing or cached results.
func Wrap[T any](fn func() (T, error), period time.Duration, opts ...Option) (func() (T, error), error) {
	t, err := New[T](period, opts...)
	if err != nil {
		return nil, err
	}

	wrapped := func() (T, error) {
		return t.Call(fn)
	}

	return wrapped, nil
}

// WrapContext is Wrap for context-aware operations, using [Throttle.Do].
func WrapContext[T any](fn func(context.Context) (T, error), period time.Duration, opts ...Option) (func(context.Context) (T, error), error) {
	t, err := New[T](period, opts...)
	if err != nil {
		return nil, err
	}

	wrapped := func(ctx context.Context) (T, error) {
		return t.Do(ctx, fn)
	}

	return wrapped, nil
}
