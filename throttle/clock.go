package throttle

import (
	"context"
	"time"
)

// Clock is the time source of a Throttle. It must be monotonic for elapsed
// time to be meaningful. Any github.com/jonboulle/clockwork clock satisfies it.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// Sleeper blocks the calling goroutine for d.
type Sleeper func(d time.Duration)

// Waiter suspends the caller for d, or until ctx ends.
type Waiter func(ctx context.Context, d time.Duration) error

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func sleeperFor(c Clock) Sleeper {
	return func(d time.Duration) {
		<-c.After(d)
	}
}

func waiterFor(c Clock) Waiter {
	return func(ctx context.Context, d time.Duration) error {
		select {
		case <-c.After(d):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
