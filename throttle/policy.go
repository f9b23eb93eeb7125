package throttle

import (
	"fmt"
	"math"
	"time"
)

// DefaultEpsilon is added to every computed wait so that sleep
// implementations which wake slightly early still land past the period.
const DefaultEpsilon = time.Millisecond

// PeriodCheck is the immutable input to a single throttling decision.
type PeriodCheck struct {
	Last   time.Time
	Now    time.Time
	Period time.Duration
}

// Elapsed reports the time between the last real invocation and now.
// A negative value means the clock moved backwards.
func (pc PeriodCheck) Elapsed() time.Duration {
	return pc.Now.Sub(pc.Last)
}

// Passed reports whether strictly more than Period has elapsed.
func (pc PeriodCheck) Passed() bool {
	return pc.Elapsed() > pc.Period
}

// Action is what a Throttle does with an incoming call.
type Action int

const (
	// ActionInvoke runs the operation immediately.
	ActionInvoke Action = iota + 1
	// ActionWait sleeps for Decision.Wait and then runs the operation.
	ActionWait
	// ActionReturnCached returns the last successful result untouched.
	ActionReturnCached
)

func (a Action) String() string {
	switch a {
	case ActionInvoke:
		return "invoke"
	case ActionWait:
		return "wait"
	case ActionReturnCached:
		return "cached"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Decision is the outcome of Decide.
type Decision struct {
	Action Action
	Wait   time.Duration
	// Anomaly is set when the clock reported a time before the last
	// invocation. The decision then falls back to ActionInvoke.
	Anomaly bool
}

// Decide is the throttling policy. It has no side effects and reads no clock,
// so the blocking and the context-aware shells share it verbatim.
//
// seeded reports whether a successful result has been cached already; an
// unseeded throttle never skips, even in skippable mode.
func Decide(check PeriodCheck, epsilon time.Duration, skippable, seeded bool) Decision {
	elapsed := check.Elapsed()

	switch {
	case elapsed < 0:
		return Decision{Action: ActionInvoke, Anomaly: true}
	case check.Passed():
		return Decision{Action: ActionInvoke}
	case skippable && seeded:
		return Decision{Action: ActionReturnCached}
	}

	return Decision{
		Action: ActionWait,
		Wait:   addSaturating(check.Period-elapsed, epsilon),
	}
}

// addSaturating adds two non-negative durations, clamping at the largest
// representable duration instead of wrapping negative.
func addSaturating(a, b time.Duration) time.Duration {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}
