// Package throttle guarantees a minimum elapsed time between invocations of
// an operation, typically a call to a rate-limited remote API, while handing
// every caller a consistent result.
//
// # Policy
//
// [Decide] is the whole policy and is free of side effects. Given the time of
// the last real invocation, the current time and the period it chooses to
// invoke now, to wait and then invoke, or (in skippable mode, once a result is
// cached) to return the cached result without waiting.
//
// # Throttles
//
// A [Throttle] owns the timing state of one operation:
//
//	t, err := throttle.New[Ticker](2*time.Second, throttle.WithSkippable())
//	tick, err := t.Do(ctx, fetchTicker)
//
// [Throttle.Call] waits by blocking the goroutine with a [Sleeper];
// [Throttle.Do] waits with a [Waiter] and gives up when the context ends.
// Both take the same decisions for the same clock readings.
//
// [Wrap] and [WrapContext] return a throttled function with the original
// signature.
//
// # Transports
//
// [NewRoundTripper] limits outbound HTTP requests with a token bucket from
// [golang.org/x/time/rate]; [NewIntervalRoundTripper] spaces request starts by
// a fixed period.
package throttle
