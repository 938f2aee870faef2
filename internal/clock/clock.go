// Package clock abstracts wall time and periodic tickers so the watchdog and
// the bridge timers can be driven by simulated time in tests.
package clock

import "time"

// Clock is the subset of the time package the bridge depends on.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// Since returns the time elapsed since t.
	Since(t time.Time) time.Duration
	// NewTicker returns a ticker firing every d.
	NewTicker(d time.Duration) Ticker
}

// Ticker delivers ticks at a fixed interval.
type Ticker interface {
	// C returns the channel on which ticks are delivered.
	C() <-chan time.Time
	// Stop turns the ticker off.
	Stop()
}

// Real implements Clock with the standard time package.
type Real struct{}

// Now returns time.Now().
func (Real) Now() time.Time {
	return time.Now()
}

// Since returns time.Since(t).
func (Real) Since(t time.Time) time.Duration {
	return time.Since(t)
}

// NewTicker wraps time.NewTicker.
//
//nolint:ireturn // Callers only need the Ticker behaviour.
func (Real) NewTicker(d time.Duration) Ticker {
	return realTicker{ticker: time.NewTicker(d)}
}

type realTicker struct {
	ticker *time.Ticker
}

func (t realTicker) C() <-chan time.Time { return t.ticker.C }
func (t realTicker) Stop()               { t.ticker.Stop() }

// OrReal returns c, or the real clock when c is nil.
//
//nolint:ireturn // Returning the interface is the point.
func OrReal(c Clock) Clock {
	if c == nil {
		return Real{}
	}

	return c
}
