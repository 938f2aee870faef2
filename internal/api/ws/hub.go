package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/oshokin/xrp-sim/internal/logger"
)

const (
	// DefaultPath is where observers connect.
	DefaultPath = "/xrp-sim"

	defaultSendQueueSize = 64
	writeWait            = 5 * time.Second
	maxMessageSize       = 64 << 10

	instrumentationName = "github.com/oshokin/xrp-sim/internal/api/ws"
)

// ErrHubClosed is returned by ServeHTTP after Close.
var ErrHubClosed = errors.New("observer hub closed")

// Options configure a Hub.
type Options struct {
	// OnSensorData receives SensorData messages. Nil ignores them.
	OnSensorData func(ctx context.Context, data SensorData)
	// OnResetRobot receives ResetRobot messages. Nil ignores them.
	OnResetRobot func(ctx context.Context)
	// CheckOrigin overrides the upgrader origin check. Nil accepts any origin.
	CheckOrigin func(r *http.Request) bool
	// SendQueueSize bounds the per-observer queue. Messages beyond it are dropped.
	SendQueueSize int
}

// Hub tracks live observers and fans messages out to them.
// Each observer has its own queue drained by one writer goroutine, so every
// observer receives messages in the order they were broadcast.
type Hub struct {
	upgrader     websocket.Upgrader
	onSensorData func(ctx context.Context, data SensorData)
	onResetRobot func(ctx context.Context)
	queueSize    int
	registration metric.Registration

	greetingMu sync.RWMutex
	greeting   func() ([]byte, error)

	mu      sync.RWMutex
	clients map[uuid.UUID]*client
	closed  bool
	wg      sync.WaitGroup
}

type client struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates an empty hub and registers the observer gauge on the global meter.
func NewHub(opts Options) (*Hub, error) {
	h := &Hub{
		onSensorData: opts.OnSensorData,
		onResetRobot: opts.OnResetRobot,
		queueSize:    opts.SendQueueSize,
		clients:      make(map[uuid.UUID]*client),
	}

	if h.queueSize <= 0 {
		h.queueSize = defaultSendQueueSize
	}

	h.upgrader = websocket.Upgrader{
		CheckOrigin: opts.CheckOrigin,
	}
	if h.upgrader.CheckOrigin == nil {
		h.upgrader.CheckOrigin = func(*http.Request) bool { return true }
	}

	m := otel.Meter(instrumentationName)

	gauge, err := m.Int64ObservableGauge(
		"xrp_sim.observers",
		metric.WithDescription("Live observer connections"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating observers gauge: %w", err)
	}

	h.registration, err = m.RegisterCallback(
		func(_ context.Context, o metric.Observer) error {
			o.ObserveInt64(gauge, int64(h.Count()))

			return nil
		},
		gauge,
	)
	if err != nil {
		return nil, fmt.Errorf("registering observers callback: %w", err)
	}

	return h, nil
}

// SetGreeting sets the message queued to every observer right after it connects.
func (h *Hub) SetGreeting(fn func() ([]byte, error)) {
	h.greetingMu.Lock()
	defer h.greetingMu.Unlock()

	h.greeting = fn
}

// Count returns the number of live observers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// Broadcast queues msg for every live observer and returns how many accepted it.
func (h *Hub) Broadcast(ctx context.Context, msg []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0

	for _, c := range h.clients {
		if c.enqueue(msg) {
			delivered++

			continue
		}

		logger.DebugKV(ctx, "Observer queue full, message dropped", "observer", c.id.String())
	}

	return delivered
}

// ServeHTTP upgrades the request and serves the observer until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithName(r.Context(), "observers")

	// The greeting is built before any hub lock is taken: it reads session state,
	// and session watchdog edges broadcast through the hub.
	greeting := h.greetingMessage(ctx)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WarnKV(ctx, "WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)

		return
	}

	c := &client{
		id:   uuid.New(),
		conn: conn,
		send: make(chan []byte, h.queueSize),
	}

	ctx = logger.WithKV(ctx, "observer", c.id.String())

	if err = h.register(ctx, c, greeting); err != nil {
		logger.WarnKV(ctx, "Observer rejected", "error", err)

		_ = conn.Close()

		return
	}
	defer h.wg.Done()

	written := make(chan struct{})

	go func() {
		defer close(written)

		c.writeLoop(ctx)
	}()

	h.readLoop(ctx, c)
	h.unregister(ctx, c)

	<-written

	_ = conn.Close()
}

// Close disconnects every observer and waits for their handlers to finish.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true

	for _, c := range h.clients {
		_ = c.conn.Close()
	}
	h.mu.Unlock()

	h.wg.Wait()

	if h.registration != nil {
		if err := h.registration.Unregister(); err != nil {
			return fmt.Errorf("unregister observers gauge: %w", err)
		}
	}

	return nil
}

func (h *Hub) greetingMessage(ctx context.Context) []byte {
	h.greetingMu.RLock()
	fn := h.greeting
	h.greetingMu.RUnlock()

	if fn == nil {
		return nil
	}

	msg, err := fn()
	if err != nil {
		logger.WarnKV(ctx, "Cannot build observer greeting", "error", err)

		return nil
	}

	return msg
}

func (h *Hub) register(ctx context.Context, c *client, greeting []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}

	h.clients[c.id] = c
	h.wg.Add(1)

	if greeting != nil {
		c.enqueue(greeting)
	}

	if len(h.clients) == 1 {
		c.enqueue(activeSimMessage)
	}

	logger.InfoKV(ctx, "Observer connected", "observers", len(h.clients))

	return nil
}

func (h *Hub) unregister(ctx context.Context, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.clients, c.id)
	close(c.send)

	if len(h.clients) == 1 {
		for _, other := range h.clients {
			other.enqueue(activeSimMessage)
		}
	}

	logger.InfoKV(ctx, "Observer disconnected", "observers", len(h.clients))
}

func (h *Hub) readLoop(ctx context.Context, c *client) {
	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.DebugKV(ctx, "Observer read failed", "error", err)
			}

			return
		}

		msg, err := Unmarshal(data)
		if err != nil {
			logger.DebugKV(ctx, "Ignoring observer message", "error", err)

			continue
		}

		switch m := msg.(type) {
		case SensorData:
			if h.onSensorData != nil {
				h.onSensorData(ctx, m)
			}
		case ResetRobot:
			if h.onResetRobot != nil {
				h.onResetRobot(ctx)
			}
		}
	}
}

// enqueue must be called with the hub lock held so it never races close(c.send).
func (c *client) enqueue(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *client) writeLoop(ctx context.Context) {
	for msg := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			logger.DebugKV(ctx, "Observer write deadline failed", "error", err)
			_ = c.conn.Close()

			break
		}

		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			logger.DebugKV(ctx, "Observer write failed", "error", err)
			_ = c.conn.Close()

			break
		}
	}

	// Wait for unregister to close the queue.
	for range c.send {
	}
}

var activeSimMessage = mustMarshal(TypeActiveSim, ActiveSim{})

func mustMarshal(msgType string, payload any) []byte {
	data, err := Marshal(msgType, payload)
	if err != nil {
		panic(err)
	}

	return data
}
