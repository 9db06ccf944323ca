package clock

import (
	"context"
	"time"
)

// Clock is an interface around the parts of the standard library that
// deal with time, so that unit tests can control it.
type Clock interface {
	// Now returns the current time of day, like time.Now().
	Now() time.Time

	// NewContextWithTimeout creates a Context that is canceled
	// after the provided amount of time, like context.WithTimeout().
	NewContextWithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc)

	// NewTimer creates a Timer, returning its channel separately so
	// that Timer can be an interface.
	NewTimer(d time.Duration) (Timer, <-chan time.Time)

	// NewTicker creates a Ticker, returning its channel separately
	// so that Ticker can be an interface.
	NewTicker(d time.Duration) (Ticker, <-chan time.Time)
}

// Timer is an interface around time.Timer.
type Timer interface {
	Stop() bool
}

// Ticker is an interface around time.Ticker.
type Ticker interface {
	Stop()
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) NewContextWithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, timeout)
}

func (systemClock) NewTimer(d time.Duration) (Timer, <-chan time.Time) {
	t := time.NewTimer(d)
	return t, t.C
}

func (systemClock) NewTicker(d time.Duration) (Ticker, <-chan time.Time) {
	t := time.NewTicker(d)
	return t, t.C
}

// SystemClock is a Clock that corresponds to the time of day as
// reported by the operating system.
var SystemClock Clock = systemClock{}
