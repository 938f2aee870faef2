package robot

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestState_WheelSpeeds verifies percentage scaling and the enabled gate.
func TestState_WheelSpeeds(t *testing.T) {
	t.Parallel()

	s := State{Enabled: true, LeftMotor: 0.5, RightMotor: -0.25}

	left, right := s.WheelSpeeds()
	require.InDelta(t, 50.0, left, 1e-9)
	require.InDelta(t, -25.0, right, 1e-9)

	s.Enabled = false

	left, right = s.WheelSpeeds()
	require.Zero(t, left)
	require.Zero(t, right)
}

// TestEncoderTicks covers truncation, saturation and NaN handling.
func TestEncoderTicks(t *testing.T) {
	t.Parallel()

	cases := map[float64]int32{
		0:                 0,
		123.9:             123,
		-45.7:             -45,
		math.MaxInt32 + 1: math.MaxInt32,
		math.Inf(-1):      math.MinInt32,
		math.NaN():        0,
	}
	for in, want := range cases {
		require.Equal(t, want, EncoderTicks(in), "input %v", in)
	}
}

// TestState_WheelSpeedsNonFinite stops a wheel whose command is NaN or infinite.
func TestState_WheelSpeedsNonFinite(t *testing.T) {
	t.Parallel()

	left, right := State{Enabled: true, LeftMotor: math.NaN(), RightMotor: 0.5}.WheelSpeeds()
	require.Zero(t, left)
	require.InDelta(t, 50.0, right, 1e-9)

	left, right = State{Enabled: true, LeftMotor: -0.5, RightMotor: math.Inf(1)}.WheelSpeeds()
	require.InDelta(t, -50.0, left, 1e-9)
	require.Zero(t, right)
}

// TestFinite passes finite values through and zeroes the rest.
func TestFinite(t *testing.T) {
	t.Parallel()

	require.InDelta(t, -1.5, Finite(-1.5), 0)
	require.Zero(t, Finite(math.NaN()))
	require.Zero(t, Finite(math.Inf(1)))
	require.Zero(t, Finite(math.Inf(-1)))
}
