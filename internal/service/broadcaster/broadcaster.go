package broadcaster

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/xrp-sim/internal/api/ws"
	"github.com/oshokin/xrp-sim/internal/clock"
	"github.com/oshokin/xrp-sim/internal/domain/robot"
	"github.com/oshokin/xrp-sim/internal/kinematics"
	"github.com/oshokin/xrp-sim/internal/logger"
)

// DefaultInterval is the observer push period.
const DefaultInterval = 20 * time.Millisecond

// StateSource provides the robot state to publish.
type StateSource interface {
	RobotState() robot.State
}

// PoseSource provides the simulated pose, when one exists.
type PoseSource interface {
	Pose() kinematics.Pose
}

// Publisher fans a message out to every observer.
type Publisher interface {
	Broadcast(ctx context.Context, msg []byte) int
}

// Options tune a Broadcaster.
type Options struct {
	// Clock drives the push ticker.
	Clock clock.Clock
	// Interval is the push period.
	Interval time.Duration
	// Poses adds the simulated pose to every state message when set.
	Poses PoseSource
}

// Broadcaster turns robot state into observer messages.
type Broadcaster struct {
	state    StateSource
	out      Publisher
	poses    PoseSource
	clock    clock.Clock
	interval time.Duration
}

// New creates a broadcaster publishing state to out.
func New(state StateSource, out Publisher, opts Options) *Broadcaster {
	b := &Broadcaster{
		state:    state,
		out:      out,
		poses:    opts.Poses,
		clock:    clock.OrReal(opts.Clock),
		interval: opts.Interval,
	}

	if b.interval <= 0 {
		b.interval = DefaultInterval
	}

	return b
}

// Snapshot returns the current state message payload.
// JSON has no NaN or infinity, so such values are published as 0.
func (b *Broadcaster) Snapshot() ws.RobotState {
	state := b.state.RobotState()

	snapshot := ws.RobotState{
		Enabled:    state.Enabled,
		LeftMotor:  robot.Finite(state.LeftMotor),
		RightMotor: robot.Finite(state.RightMotor),
	}

	if b.poses != nil {
		pose := b.poses.Pose()
		snapshot.Pose = &ws.Pose{
			X:       robot.Finite(pose.Position.X),
			Y:       robot.Finite(pose.Position.Y),
			Bearing: robot.Finite(pose.Bearing),
		}
	}

	return snapshot
}

// StateMessage encodes Snapshot as a RobotState envelope.
func (b *Broadcaster) StateMessage() ([]byte, error) {
	return ws.Marshal(ws.TypeRobotState, b.Snapshot())
}

// PublishState sends one RobotState message to every observer.
func (b *Broadcaster) PublishState(ctx context.Context) error {
	msg, err := b.StateMessage()
	if err != nil {
		return fmt.Errorf("build state message: %w", err)
	}

	b.out.Broadcast(ctx, msg)

	return nil
}

// AnnounceConnection tells observers whether a control runtime is connected.
func (b *Broadcaster) AnnounceConnection(ctx context.Context, connected bool) {
	msg, err := ws.Marshal(ws.TypeHALSimConnection, ws.HALSimConnection{Connected: connected})
	if err != nil {
		logger.WarnKV(ctx, "Cannot build connection message", "error", err)

		return
	}

	b.out.Broadcast(ctx, msg)
}

// Run publishes state every interval until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "broadcaster")

	ticker := b.clock.NewTicker(b.interval)
	defer ticker.Stop()

	logger.DebugKV(ctx, "Broadcasting robot state", "interval", b.interval)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			if err := b.PublishState(ctx); err != nil {
				logger.WarnKV(ctx, "State broadcast failed", "error", err)
			}
		}
	}
}
