package kinematics

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

// TestIntegrate_StraightLineSymmetry keeps the bearing and moves along the heading for equal speeds.
func TestIntegrate_StraightLineSymmetry(t *testing.T) {
	t.Parallel()

	start := r2.Vec{X: 400, Y: 250}

	for _, bearing := range []float64{0, 45, 90, 135, 180, 270, 359.5} {
		for _, speed := range []float64{-30, 0, 0.5, 12, 100} {
			for _, dt := range []float64{0.01, 0.1, 2} {
				next := Integrate(Pose{Position: start, Bearing: bearing}, speed, speed, dt, DefaultRobotSize)

				require.InDelta(t, bearing, next.Bearing, 1e-12)

				theta := (bearing - 90) * math.Pi / 180
				heading := r2.Vec{X: math.Cos(theta), Y: math.Sin(theta)}
				moved := r2.Sub(next.Position, start)

				require.InDelta(t, 0, r2.Cross(heading, moved), 1e-9)
				require.InDelta(t, speed*dt, r2.Dot(heading, moved), 1e-9)
			}
		}
	}
}

// TestIntegrate_Directions checks the screen orientation of a few bearings.
func TestIntegrate_Directions(t *testing.T) {
	t.Parallel()

	start := Pose{Position: r2.Vec{X: 100, Y: 100}}

	tests := map[float64]r2.Vec{
		0:   {X: 100, Y: 90},
		90:  {X: 110, Y: 100},
		180: {X: 100, Y: 110},
		270: {X: 90, Y: 100},
	}
	for bearing, want := range tests {
		start.Bearing = bearing
		got := Integrate(start, 10, 10, 1, DefaultRobotSize)

		if diff := cmp.Diff(want, got.Position, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
			t.Errorf("bearing %v: position mismatch (-want +got):\n%s", bearing, diff)
		}
	}
}

// TestIntegrate_ZeroSpeeds takes the straight branch without dividing by zero.
func TestIntegrate_ZeroSpeeds(t *testing.T) {
	t.Parallel()

	pose := Pose{Position: r2.Vec{X: 12.5, Y: 480}, Bearing: 33}
	next := Integrate(pose, 0, 0, 1, DefaultRobotSize)

	require.Empty(t, cmp.Diff(pose, next))
	require.False(t, math.IsNaN(next.Position.X))
}

// TestIntegrate_Turn follows an arc of the expected radius and turning angle.
func TestIntegrate_Turn(t *testing.T) {
	t.Parallel()

	start := Pose{Position: r2.Vec{X: 400, Y: 250}}
	next := Integrate(start, 0, 10, 1, DefaultRobotSize)

	// Right wheel faster turns counter-clockwise on screen.
	turned := 10.0 / DefaultRobotSize * 180 / math.Pi
	require.InDelta(t, 360-turned, next.Bearing, 1e-9)

	// The left wheel is the pivot: it sits half a wheel base to the left of the centre.
	pivot := r2.Vec{X: 400 - DefaultRobotSize/2, Y: 250}
	require.InDelta(t, DefaultRobotSize/2, r2.Norm(r2.Sub(next.Position, pivot)), 1e-9)
}

// TestIntegrate_SpinInPlace keeps the position for opposite speeds.
func TestIntegrate_SpinInPlace(t *testing.T) {
	t.Parallel()

	start := Pose{Position: r2.Vec{X: 200, Y: 200}, Bearing: 10}
	next := Integrate(start, 5, -5, 0.5, DefaultRobotSize)

	if diff := cmp.Diff(start.Position, next.Position, approx); diff != "" {
		t.Errorf("position moved (-want +got):\n%s", diff)
	}

	require.InDelta(t, 10+10*0.5/DefaultRobotSize*180/math.Pi, next.Bearing, 1e-9)
}

// TestNormalizeBearing wraps once and never returns 360.
func TestNormalizeBearing(t *testing.T) {
	t.Parallel()

	require.InDelta(t, 10.0, normalizeBearing(370), 0)
	require.InDelta(t, 350.0, normalizeBearing(-10), 0)
	require.InDelta(t, 0.0, normalizeBearing(360), 0)
	require.InDelta(t, 0.0, normalizeBearing(-1e-15), 0)
	require.InDelta(t, 123.0, normalizeBearing(123), 0)
}

// TestArena_Clamp keeps the footprint inside the walls.
func TestArena_Clamp(t *testing.T) {
	t.Parallel()

	arena := DefaultArena()

	got, clamped := arena.Clamp(r2.Vec{X: 5, Y: 600})
	require.True(t, clamped)
	require.Equal(t, r2.Vec{X: 20, Y: 480}, got)

	got, clamped = arena.Clamp(r2.Vec{X: 790, Y: -3})
	require.True(t, clamped)
	require.Equal(t, r2.Vec{X: 780, Y: 20}, got)

	got, clamped = arena.Clamp(r2.Vec{X: 20, Y: 480})
	require.False(t, clamped)
	require.Equal(t, r2.Vec{X: 20, Y: 480}, got)
}

// TestRobot_ClampStopsWheels drives into the left wall and expects an exact clamp and a hard stop.
func TestRobot_ClampStopsWheels(t *testing.T) {
	t.Parallel()

	robot := NewRobot(DefaultArena())
	robot.SetPose(Pose{Position: r2.Vec{X: 25, Y: 250}, Bearing: 270})
	robot.SetSpeeds(10, 10)

	pose, clamped := robot.Tick(time.Second)
	require.True(t, clamped)
	require.InDelta(t, DefaultRobotSize/2, pose.Position.X, 0)
	require.InDelta(t, 250, pose.Position.Y, 1e-9)

	left, right := robot.Speeds()
	require.Zero(t, left)
	require.Zero(t, right)

	// Stopped, the next tick goes nowhere.
	again, clamped := robot.Tick(time.Second)
	require.False(t, clamped)
	require.Empty(t, cmp.Diff(pose, again, approx))
}

// TestRobot_SetSpeedsNonFinite stops a wheel given a NaN or infinite speed.
func TestRobot_SetSpeedsNonFinite(t *testing.T) {
	t.Parallel()

	robot := NewRobot(DefaultArena())
	robot.SetSpeeds(math.NaN(), math.Inf(1))

	left, right := robot.Speeds()
	require.Zero(t, left)
	require.Zero(t, right)

	pose, clamped := robot.Tick(time.Second)
	require.False(t, clamped)
	require.Equal(t, Pose{Position: r2.Vec{X: 400, Y: 250}}, pose)
}

// TestRobot_OdometryAndReset accumulates wheel travel and resets to the centre.
func TestRobot_OdometryAndReset(t *testing.T) {
	t.Parallel()

	robot := NewRobot(DefaultArena())
	require.Equal(t, Pose{Position: r2.Vec{X: 400, Y: 250}}, robot.Pose())

	robot.SetSpeeds(20, -20)

	for range 10 {
		robot.Tick(10 * time.Millisecond)
	}

	left, right := robot.Odometry()
	require.InDelta(t, 2.0, left, 1e-9)
	require.InDelta(t, -2.0, right, 1e-9)
	require.NotZero(t, robot.Pose().Bearing)

	robot.Reset()
	require.Equal(t, Pose{Position: r2.Vec{X: 400, Y: 250}}, robot.Pose())

	left, right = robot.Odometry()
	require.Zero(t, left)
	require.Zero(t, right)

	left, right = robot.Speeds()
	require.InDelta(t, 20.0, left, 0)
	require.InDelta(t, -20.0, right, 0)
}
