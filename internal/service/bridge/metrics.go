package bridge

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/oshokin/xrp-sim/internal/service/bridge"

// Stats are cumulative session counters.
type Stats struct {
	Received   uint64
	Malformed  uint64
	Stale      uint64
	Sent       uint64
	SendErrors uint64
}

type counters struct {
	received   atomic.Uint64
	malformed  atomic.Uint64
	stale      atomic.Uint64
	sent       atomic.Uint64
	sendErrors atomic.Uint64

	frames      metric.Int64Counter
	sends       metric.Int64Counter
	transitions metric.Int64Counter
}

var (
	resultAccepted  = metric.WithAttributes(attribute.String("result", "accepted"))
	resultMalformed = metric.WithAttributes(attribute.String("result", "malformed"))
	resultStale     = metric.WithAttributes(attribute.String("result", "stale"))
	resultSent      = metric.WithAttributes(attribute.String("result", "sent"))
	resultFailed    = metric.WithAttributes(attribute.String("result", "failed"))
)

func newCounters() (*counters, error) {
	// Global provider; a no-op unless the process installs one.
	m := otel.Meter(instrumentationName)
	c := &counters{}

	var err error

	c.frames, err = m.Int64Counter(
		"xrp_sim.bridge.frames.received",
		metric.WithDescription("Inbound HAL datagrams by decode result"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating frames counter: %w", err)
	}

	c.sends, err = m.Int64Counter(
		"xrp_sim.bridge.frames.sent",
		metric.WithDescription("Outbound telemetry datagrams by send result"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sends counter: %w", err)
	}

	c.transitions, err = m.Int64Counter(
		"xrp_sim.bridge.watchdog.transitions",
		metric.WithDescription("Watchdog edges by new state"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transitions counter: %w", err)
	}

	return c, nil
}

func (c *counters) accepted(ctx context.Context) {
	c.received.Add(1)
	c.frames.Add(ctx, 1, resultAccepted)
}

func (c *counters) malformedFrame(ctx context.Context) {
	c.received.Add(1)
	c.malformed.Add(1)
	c.frames.Add(ctx, 1, resultMalformed)
}

func (c *counters) staleFrame(ctx context.Context) {
	c.received.Add(1)
	c.stale.Add(1)
	c.frames.Add(ctx, 1, resultStale)
}

func (c *counters) sentFrame(ctx context.Context) {
	c.sent.Add(1)
	c.sends.Add(ctx, 1, resultSent)
}

func (c *counters) sendFailed(ctx context.Context) {
	c.sendErrors.Add(1)
	c.sends.Add(ctx, 1, resultFailed)
}

func (c *counters) transition(ctx context.Context, satisfied bool) {
	c.transitions.Add(ctx, 1, metric.WithAttributes(attribute.Bool("satisfied", satisfied)))
}

func (c *counters) snapshot() Stats {
	return Stats{
		Received:   c.received.Load(),
		Malformed:  c.malformed.Load(),
		Stale:      c.stale.Load(),
		Sent:       c.sent.Load(),
		SendErrors: c.sendErrors.Load(),
	}
}
