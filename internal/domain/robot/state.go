package robot

import "math"

// MotorPercentScale converts a motor command in [-1, 1] into a wheel speed percentage.
const MotorPercentScale = 100.0

// WheelCommand is the latest actuator command per wheel, as decoded from the wire.
type WheelCommand struct {
	// Left is the left wheel command.
	Left float64
	// Right is the right wheel command, already sign-corrected.
	Right float64
}

// Encoders holds the encoder tick counts reported to the control runtime.
// The wire order is Left (channel 0) then Right (channel 1).
type Encoders struct {
	Left  int32
	Right int32
}

// Telemetry is the sensor snapshot encoded into every outbound frame.
type Telemetry struct {
	// Heading is the gyro heading in degrees.
	Heading float64
	// Encoders are the wheel encoder ticks.
	Encoders Encoders
}

// State is the robot state published to observers.
type State struct {
	// Enabled reports whether the control runtime enabled the robot.
	Enabled bool
	// LeftMotor is the raw left wheel command.
	LeftMotor float64
	// RightMotor is the raw right wheel command.
	RightMotor float64
}

// WheelSpeeds returns the wheel speeds in percent. A disabled robot does not move,
// and a non-finite command stops its wheel.
func (s State) WheelSpeeds() (left, right float64) {
	if !s.Enabled {
		return 0, 0
	}

	return Finite(s.LeftMotor) * MotorPercentScale, Finite(s.RightMotor) * MotorPercentScale
}

// Finite returns value, or 0 when it is NaN or infinite.
func Finite(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}

	return value
}

// EncoderTicks converts an observer-supplied encoder value to an int32 tick count.
// Fractions are truncated toward zero, out-of-range values saturate and NaN maps to 0.
func EncoderTicks(value float64) int32 {
	switch {
	case math.IsNaN(value):
		return 0
	case value >= math.MaxInt32:
		return math.MaxInt32
	case value <= math.MinInt32:
		return math.MinInt32
	default:
		return int32(value)
	}
}
