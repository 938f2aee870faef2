package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/oshokin/xrp-sim/internal/clock"
	"github.com/oshokin/xrp-sim/internal/domain/robot"
	"github.com/oshokin/xrp-sim/internal/logger"
	"github.com/oshokin/xrp-sim/internal/protocol"
	"github.com/oshokin/xrp-sim/internal/watchdog"
)

const (
	// DefaultSendInterval is the telemetry period.
	DefaultSendInterval = 50 * time.Millisecond
	// DefaultWatchdogInterval is how often the watchdog is polled.
	DefaultWatchdogInterval = 100 * time.Millisecond

	// readTimeout bounds each blocking read so Run notices cancellation.
	readTimeout = 100 * time.Millisecond
	// maxDatagramSize is the largest UDP payload.
	maxDatagramSize = 65535
)

// ErrStaleSequence is returned for frames older than the last accepted one.
var ErrStaleSequence = errors.New("stale sequence")

// ConnectionHandler is notified when the control runtime connects or is lost.
// It runs with the session locked and must not call back into the Session.
type ConnectionHandler func(ctx context.Context, connected bool)

// Options tune a Session. Zero values select the defaults.
type Options struct {
	// Clock drives the watchdog and both periodic timers.
	Clock clock.Clock
	// SendInterval is the telemetry period.
	SendInterval time.Duration
	// WatchdogInterval is the liveness polling period.
	WatchdogInterval time.Duration
	// WatchdogTimeout is the silence tolerated before the peer is forgotten.
	WatchdogTimeout time.Duration
	// Recorder, when set, receives every inbound and outbound datagram.
	Recorder FrameRecorder
	// TracePackets logs every datagram at debug level.
	TracePackets bool
}

// Session is one UDP endpoint with its peer, sequencing, watchdog and robot state.
type Session struct {
	conn             PacketConn
	local            *net.UDPAddr
	clock            clock.Clock
	sendInterval     time.Duration
	watchdogInterval time.Duration
	recorder         FrameRecorder
	trace            bool
	counters         *counters
	watchdog         *watchdog.Watchdog

	// sendMu serialises outbound frames so sequence numbers go out in order.
	sendMu   sync.Mutex
	outbound protocol.SequenceCounter

	mu        sync.RWMutex
	peer      *net.UDPAddr
	inbound   protocol.SequenceTracker
	command   robot.WheelCommand
	enabled   bool
	telemetry robot.Telemetry
	handlers  []ConnectionHandler
}

// New creates a session serving on conn. The session does not own conn until Run.
func New(conn PacketConn, opts Options) (*Session, error) {
	c, err := newCounters()
	if err != nil {
		return nil, fmt.Errorf("initialise metrics: %w", err)
	}

	s := &Session{
		conn:             conn,
		local:            udpAddr(conn.LocalAddr()),
		clock:            clock.OrReal(opts.Clock),
		sendInterval:     opts.SendInterval,
		watchdogInterval: opts.WatchdogInterval,
		recorder:         opts.Recorder,
		trace:            opts.TracePackets,
		counters:         c,
	}

	if s.sendInterval <= 0 {
		s.sendInterval = DefaultSendInterval
	}

	if s.watchdogInterval <= 0 {
		s.watchdogInterval = DefaultWatchdogInterval
	}

	s.watchdog = watchdog.New(
		watchdog.WithClock(s.clock),
		watchdog.WithTimeout(opts.WatchdogTimeout),
		watchdog.WithTransitionHandler(s.onTransition),
	)

	return s, nil
}

// AddConnectionHandler registers fn for watchdog edges.
func (s *Session) AddConnectionHandler(fn ConnectionHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handlers = append(s.handlers, fn)
}

// HandleDatagram processes one inbound datagram from the given address.
// The sender becomes the peer even if the frame is then dropped.
// Dropped frames return an error wrapping protocol.ErrMalformedFrame or ErrStaleSequence
// and leave robot state untouched.
func (s *Session) HandleDatagram(ctx context.Context, payload []byte, from *net.UDPAddr) error {
	s.record(ctx, from, s.local, payload)

	frame, decodeErr := protocol.Decode(payload)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.peer = from

	if decodeErr != nil {
		s.counters.malformedFrame(ctx)

		return fmt.Errorf("decode datagram: %w", decodeErr)
	}

	if !s.inbound.Accept(frame.Sequence) {
		s.counters.staleFrame(ctx)

		return fmt.Errorf("%w: got %d, last %d", ErrStaleSequence, frame.Sequence, s.inbound.Last())
	}

	s.counters.accepted(ctx)
	s.setEnabledLocked(ctx, frame.Enabled)
	s.watchdog.Feed(ctx)
	s.command = frame.Apply(s.command)

	return nil
}

// SendTelemetry sends one telemetry frame to the peer. Without a peer it does nothing.
func (s *Session) SendTelemetry(ctx context.Context) error {
	s.mu.RLock()
	peer := s.peer
	telemetry := s.telemetry
	s.mu.RUnlock()

	if peer == nil {
		return nil
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	datagram := protocol.Encode(s.outbound.Next(), telemetry)

	if _, err := s.conn.WriteToUDP(datagram, peer); err != nil {
		s.counters.sendFailed(ctx)

		return fmt.Errorf("send telemetry to %s: %w", peer, err)
	}

	s.counters.sentFrame(ctx)
	s.record(ctx, s.local, peer, datagram)

	return nil
}

// PollWatchdog evaluates liveness. When the peer is lost it is forgotten and
// the inbound sequence starts over.
func (s *Session) PollWatchdog(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watchdog.Poll(ctx) {
		return true
	}

	if s.peer != nil {
		logger.InfoKV(ctx, "Forgetting HAL peer", "peer", s.peer.String())
	}

	s.peer = nil
	s.inbound.Reset()

	return false
}

// Run serves the session until ctx is cancelled, then closes the connection.
func (s *Session) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "bridge")
	if s.trace {
		ctx = logger.WithMinLevel(ctx, zapcore.DebugLevel)
	}

	logger.InfoKV(ctx, "HAL bridge listening", "address", s.conn.LocalAddr().String())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		s.runTimers(ctx)
	}()

	err := s.receive(ctx)

	// Timers stop with the receive loop, whatever ended it.
	cancel()

	_ = s.conn.Close()

	wg.Wait()

	return err
}

func (s *Session) receive(ctx context.Context) error {
	buf := make([]byte, maxDatagramSize)

	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := s.conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}

		n, from, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if isTimeout(err) {
				continue
			}

			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}

			if isTransient(err) {
				logger.DebugKV(ctx, "Transient read error", "error", err)

				continue
			}

			return fmt.Errorf("read udp: %w", err)
		}

		if err = s.HandleDatagram(ctx, buf[:n], from); err != nil {
			logger.DebugKV(ctx, "Dropped datagram", "from", from.String(), "error", err)
		}
	}
}

func (s *Session) runTimers(ctx context.Context) {
	send := s.clock.NewTicker(s.sendInterval)
	defer send.Stop()

	poll := s.clock.NewTicker(s.watchdogInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-send.C():
			if err := s.SendTelemetry(ctx); err != nil {
				logger.WarnKV(ctx, "Telemetry send failed", "error", err)
			}
		case <-poll.C():
			s.PollWatchdog(ctx)
		}
	}
}

// RobotState returns the state published to observers.
func (s *Session) RobotState() robot.State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return robot.State{
		Enabled:    s.enabled,
		LeftMotor:  s.command.Left,
		RightMotor: s.command.Right,
	}
}

// WheelCommand returns the last applied motor commands.
func (s *Session) WheelCommand() robot.WheelCommand {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.command
}

// Enabled reports the control byte of the last accepted frame.
func (s *Session) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.enabled
}

// Telemetry returns the snapshot the next outbound frame will carry.
func (s *Session) Telemetry() robot.Telemetry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.telemetry
}

// SetTelemetry replaces the whole telemetry snapshot.
func (s *Session) SetTelemetry(telemetry robot.Telemetry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.telemetry = telemetry
}

// UpdateTelemetry applies fn to the telemetry snapshot under the session lock.
func (s *Session) UpdateTelemetry(fn func(telemetry *robot.Telemetry)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.telemetry)
}

// SetHeading updates the gyro heading in degrees.
func (s *Session) SetHeading(heading float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.telemetry.Heading = heading
}

// SetEncoders updates both encoder tick counts.
func (s *Session) SetEncoders(encoders robot.Encoders) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.telemetry.Encoders = encoders
}

// Peer returns a copy of the learned peer address, or nil.
func (s *Session) Peer() *net.UDPAddr {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.peer == nil {
		return nil
	}

	peer := *s.peer

	return &peer
}

// Connected reports whether the watchdog is satisfied.
func (s *Session) Connected() bool {
	return s.watchdog.Satisfied()
}

// InboundSequence returns the last accepted inbound sequence.
func (s *Session) InboundSequence() uint16 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.inbound.Last()
}

// Stats returns the cumulative frame counters.
func (s *Session) Stats() Stats {
	return s.counters.snapshot()
}

// LocalAddr returns the address the session serves on.
func (s *Session) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

func (s *Session) setEnabledLocked(ctx context.Context, enabled bool) {
	switch {
	case enabled && !s.enabled:
		logger.Info(ctx, "Robot enabled")
	case !enabled && s.enabled:
		logger.Info(ctx, "Robot disabled")
	}

	s.enabled = enabled
}

// onTransition runs from Feed or Poll, both called with s.mu held.
func (s *Session) onTransition(ctx context.Context, satisfied bool) {
	s.counters.transition(ctx, satisfied)

	for _, fn := range s.handlers {
		fn(ctx, satisfied)
	}
}

func (s *Session) record(ctx context.Context, src, dst *net.UDPAddr, payload []byte) {
	if s.trace {
		logger.DebugKV(ctx, "HAL datagram", "src", src.String(), "dst", dst.String(), "bytes", len(payload))
	}

	if s.recorder == nil {
		return
	}

	if err := s.recorder.Record(src, dst, payload); err != nil {
		logger.WarnKV(ctx, "Capture failed", "error", err)
	}
}
