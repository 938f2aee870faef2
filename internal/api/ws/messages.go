package ws

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Message types exchanged with observers.
const (
	TypeRobotState       = "RobotState"
	TypeActiveSim        = "ActiveSim"
	TypeHALSimConnection = "HALSimConnection"
	TypeSensorData       = "SensorData"
	TypeResetRobot       = "ResetRobot"
)

// ErrUnknownMessage is returned for envelopes with an unsupported type.
var ErrUnknownMessage = errors.New("unknown message type")

// Envelope wraps every message on the channel.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// RobotState is pushed to observers on every broadcast period.
// Motor values are the raw commands; observers scale them for display.
type RobotState struct {
	Enabled    bool    `json:"enabled"`
	LeftMotor  float64 `json:"leftMotor"`
	RightMotor float64 `json:"rightMotor"`
	// Pose is present only while the server-side simulator runs.
	Pose *Pose `json:"pose,omitempty"`
}

// Pose is the simulated robot pose in arena units and degrees.
type Pose struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Bearing float64 `json:"bearing"`
}

// ActiveSim tells an observer it is the only one connected and should drive the sensors.
type ActiveSim struct{}

// HALSimConnection reports whether a control runtime is talking to the bridge.
type HALSimConnection struct {
	Connected bool `json:"connected"`
}

// SensorData carries sensor readings from an observer. Absent fields are left unchanged.
type SensorData struct {
	Heading      *float64 `json:"heading"`
	LeftEncoder  *float64 `json:"leftEncoder"`
	RightEncoder *float64 `json:"rightEncoder"`
}

// ResetRobot asks the server-side simulator to return the robot to the arena centre.
type ResetRobot struct{}

// Marshal wraps payload in an envelope of the given type.
func Marshal(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}

	data, err := json.Marshal(Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}

	return data, nil
}

// Unmarshal decodes an inbound observer message into SensorData or ResetRobot.
func Unmarshal(data []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	switch env.Type {
	case TypeSensorData:
		var payload SensorData
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}

		return payload, nil
	case TypeResetRobot:
		return ResetRobot{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, env.Type)
	}
}
