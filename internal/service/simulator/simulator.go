package simulator

import (
	"context"
	"time"

	"github.com/oshokin/xrp-sim/internal/clock"
	"github.com/oshokin/xrp-sim/internal/domain/robot"
	"github.com/oshokin/xrp-sim/internal/kinematics"
	"github.com/oshokin/xrp-sim/internal/logger"
)

const (
	// DefaultTickInterval is the physics step period.
	DefaultTickInterval = 10 * time.Millisecond
	// DefaultTicksPerUnit converts wheel travel into encoder ticks.
	DefaultTicksPerUnit = 1.0
)

// Session is the bridge state the simulator reads commands from and writes telemetry to.
type Session interface {
	RobotState() robot.State
	SetTelemetry(telemetry robot.Telemetry)
}

// Options tune a Simulator.
type Options struct {
	// Clock drives the physics ticker.
	Clock clock.Clock
	// TickInterval is the physics step period.
	TickInterval time.Duration
	// TicksPerUnit scales wheel travel into encoder ticks.
	TicksPerUnit float64
}

// Simulator integrates a kinematics.Robot from the session's wheel commands.
type Simulator struct {
	session      Session
	robot        *kinematics.Robot
	clock        clock.Clock
	interval     time.Duration
	ticksPerUnit float64
}

// New creates a simulator for robot driven by session.
func New(session Session, r *kinematics.Robot, opts Options) *Simulator {
	s := &Simulator{
		session:      session,
		robot:        r,
		clock:        clock.OrReal(opts.Clock),
		interval:     opts.TickInterval,
		ticksPerUnit: opts.TicksPerUnit,
	}

	if s.interval <= 0 {
		s.interval = DefaultTickInterval
	}

	if s.ticksPerUnit <= 0 {
		s.ticksPerUnit = DefaultTicksPerUnit
	}

	return s
}

// Step applies the current wheel commands for dt, then publishes heading and
// encoder telemetry to the session.
func (s *Simulator) Step(ctx context.Context, dt time.Duration) kinematics.Pose {
	left, right := s.session.RobotState().WheelSpeeds()
	s.robot.SetSpeeds(left, right)

	pose, clamped := s.robot.Tick(dt)
	if clamped {
		logger.DebugKV(ctx, "Robot stopped at the arena wall", "x", pose.Position.X, "y", pose.Position.Y)
	}

	s.publish(pose)

	return pose
}

// Pose returns the current simulated pose.
func (s *Simulator) Pose() kinematics.Pose {
	return s.robot.Pose()
}

// Reset returns the robot to the arena centre and zeroes the encoders.
func (s *Simulator) Reset(ctx context.Context) {
	s.robot.Reset()
	s.publish(s.robot.Pose())

	logger.Info(ctx, "Robot position reset")
}

// Run steps the physics every tick interval until ctx is cancelled.
// Each step uses the measured time since the previous one.
func (s *Simulator) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "simulator")

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	logger.InfoKV(ctx, "Simulator running", "tick_interval", s.interval, "ticks_per_unit", s.ticksPerUnit)

	last := s.clock.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			now := s.clock.Now()
			s.Step(ctx, now.Sub(last))
			last = now
		}
	}
}

func (s *Simulator) publish(pose kinematics.Pose) {
	left, right := s.robot.Odometry()

	s.session.SetTelemetry(robot.Telemetry{
		Heading: pose.Bearing,
		Encoders: robot.Encoders{
			Left:  robot.EncoderTicks(left * s.ticksPerUnit),
			Right: robot.EncoderTicks(right * s.ticksPerUnit),
		},
	})
}
