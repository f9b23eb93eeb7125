// Package pacer bounds how often an operation really runs.
//
// The throttle package holds the core: a Throttle decides per call whether
// to invoke the operation now, wait out the rest of the period first, or
// (in skippable mode) answer from the last successful result. The client
// package applies the same policy to outbound HTTP, and relay serves
// rate-limited upstreams to many callers.
//
// This package re-exports the common entry points.
package pacer

import (
	"context"
	"time"

	"github.com/adamwoolhether/pacer/client"
	"github.com/adamwoolhether/pacer/throttle"
)

// NewThrottle instantiates a Throttle that invokes at most once per period.
func NewThrottle[T any](period time.Duration, opts ...throttle.Option) (*throttle.Throttle[T], error) {
	return throttle.New[T](period, opts...)
}

// Wrap returns fn throttled by its own Throttle, keeping fn's signature.
func Wrap[T any](fn func() (T, error), period time.Duration, opts ...throttle.Option) (func() (T, error), error) {
	return throttle.Wrap(fn, period, opts...)
}

// WrapContext is Wrap for context-aware operations. The returned function
// honours cancellation while queued or waiting.
func WrapContext[T any](fn func(context.Context) (T, error), period time.Duration, opts ...throttle.Option) (func(context.Context) (T, error), error) {
	return throttle.WrapContext(fn, period, opts...)
}

// NewClient instantiates a new *Client with the provided options.
// If not specified, a fresh http.Client over http.DefaultTransport is used.
func NewClient(opts ...client.Option) (*client.Client, error) {
	return client.Build(opts...)
}
