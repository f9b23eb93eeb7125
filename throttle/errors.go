package throttle

import (
	"errors"
)

var (
	// ErrConfiguration wraps every construction-time validation failure.
	ErrConfiguration = errors.New("invalid throttle configuration")
	ErrMustNotBeZero = errors.New("must be greater than zero")
	ErrWaitingFailed = errors.New("throttle waiting failed")
	ErrContextEnded  = errors.New("throttle context ended")
	// ErrTimingAnomaly is logged when the clock reports a time before the
	// last invocation. It is never returned to callers.
	ErrTimingAnomaly = errors.New("clock moved backwards")
)
