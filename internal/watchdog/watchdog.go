package watchdog

import (
	"context"
	"sync"
	"time"

	"github.com/oshokin/xrp-sim/internal/clock"
	"github.com/oshokin/xrp-sim/internal/logger"
)

// DefaultTimeout is how long the watchdog stays satisfied after the last feed.
const DefaultTimeout = 500 * time.Millisecond

// TransitionHandler is called on every Lost/Satisfied edge.
// It runs on the goroutine that caused the edge and must not call back into the Watchdog.
type TransitionHandler func(ctx context.Context, satisfied bool)

// Watchdog is a two-state liveness tracker. It is safe for concurrent use.
type Watchdog struct {
	mu          sync.Mutex
	clock       clock.Clock
	timeout     time.Duration
	onChange    TransitionHandler
	lastFeed    time.Time
	fed         bool
	satisfied   bool
	transitions int
}

// Option configures a Watchdog.
type Option func(*Watchdog)

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(timeout time.Duration) Option {
	return func(w *Watchdog) {
		if timeout > 0 {
			w.timeout = timeout
		}
	}
}

// WithClock sets the time source.
func WithClock(c clock.Clock) Option {
	return func(w *Watchdog) {
		w.clock = clock.OrReal(c)
	}
}

// WithTransitionHandler registers fn to be notified of every edge.
func WithTransitionHandler(fn TransitionHandler) Option {
	return func(w *Watchdog) {
		w.onChange = fn
	}
}

// New creates a Lost watchdog.
func New(opts ...Option) *Watchdog {
	w := &Watchdog{
		clock:   clock.Real{},
		timeout: DefaultTimeout,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Feed records a frame arrival and satisfies the watchdog.
func (w *Watchdog) Feed(ctx context.Context) {
	w.mu.Lock()
	w.lastFeed = w.clock.Now()
	w.fed = true
	changed := w.setLocked(true)
	w.mu.Unlock()

	if changed {
		w.notify(ctx, true)
	}
}

// Poll re-evaluates liveness and reports whether the watchdog is satisfied.
func (w *Watchdog) Poll(ctx context.Context) bool {
	w.mu.Lock()
	alive := w.fed && w.clock.Since(w.lastFeed) < w.timeout
	changed := w.setLocked(alive)
	w.mu.Unlock()

	if changed {
		w.notify(ctx, alive)
	}

	return alive
}

// Satisfied returns the state decided by the last Feed or Poll.
func (w *Watchdog) Satisfied() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.satisfied
}

// Transitions returns how many edges have happened so far.
func (w *Watchdog) Transitions() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.transitions
}

// Timeout returns the configured timeout.
func (w *Watchdog) Timeout() time.Duration {
	return w.timeout
}

func (w *Watchdog) setLocked(satisfied bool) bool {
	if w.satisfied == satisfied {
		return false
	}

	w.satisfied = satisfied
	w.transitions++

	return true
}

func (w *Watchdog) notify(ctx context.Context, satisfied bool) {
	if satisfied {
		logger.Info(ctx, "Watchdog satisfied")
	} else {
		logger.WarnKV(ctx, "Watchdog lost", "timeout", w.timeout)
	}

	if w.onChange != nil {
		w.onChange(ctx, satisfied)
	}
}
