package clock

import (
	"sync"
	"time"
)

// Mock is a manually advanced clock for tests.
type Mock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*MockTicker
}

// NewMock creates a Mock set to t.
func NewMock(t time.Time) *Mock {
	return &Mock{now: t}
}

// Now returns the mocked current time.
func (c *Mock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

// Since returns the mocked time elapsed since t.
func (c *Mock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// Advance moves the clock forward by d and fires every ticker that came due.
// A ticker fires at most once per Advance; its channel holds one pending tick.
func (c *Mock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	tickers := append([]*MockTicker(nil), c.tickers...)
	c.mu.Unlock()

	for _, t := range tickers {
		t.fireIfDue(now)
	}
}

// NewTicker creates a MockTicker driven by Advance.
//
//nolint:ireturn // Satisfies Clock.
func (c *Mock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &MockTicker{
		ch:       make(chan time.Time, 1),
		interval: d,
		next:     c.now.Add(d),
	}
	c.tickers = append(c.tickers, t)

	return t
}

// Tickers returns how many tickers were created, stopped or not.
func (c *Mock) Tickers() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.tickers)
}

// MockTicker is a ticker fired by Mock.Advance.
type MockTicker struct {
	mu       sync.Mutex
	ch       chan time.Time
	interval time.Duration
	next     time.Time
	stopped  bool
}

// C returns the tick channel.
func (t *MockTicker) C() <-chan time.Time {
	return t.ch
}

// Stop prevents further ticks.
func (t *MockTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopped = true
}

func (t *MockTicker) fireIfDue(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped || now.Before(t.next) {
		return
	}

	select {
	case t.ch <- now:
	default:
	}

	t.next = now.Add(t.interval)
}
