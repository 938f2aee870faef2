package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/oshokin/xrp-sim/internal/domain/robot"
)

const (
	// HeaderLength is the sequence number plus the control byte.
	HeaderLength = 3

	// TagMotor marks a motor command record.
	TagMotor byte = 0x12
	// TagGyro marks a gyro telemetry record.
	TagGyro byte = 0x16
	// TagEncoder marks an encoder telemetry record.
	TagEncoder byte = 0x18

	// ControlEnabled is the only control byte value meaning "enabled".
	ControlEnabled byte = 1

	// ChannelLeft addresses the left wheel.
	ChannelLeft byte = 0
	// ChannelRight addresses the right wheel, mounted mirrored.
	ChannelRight byte = 1

	// motorPayloadLength is the channel byte plus a float32.
	motorPayloadLength = 5
)

// ErrMalformedFrame is returned when a datagram is too short or a record
// overruns the buffer.
var ErrMalformedFrame = errors.New("malformed frame")

// MotorCommand is one decoded motor record.
type MotorCommand struct {
	// Channel is the motor channel id.
	Channel byte
	// Value is the command exactly as sent, before any sign correction.
	Value float32
}

// Frame is a decoded inbound datagram.
type Frame struct {
	// Sequence is the sender's sequence number.
	Sequence uint16
	// Enabled reports whether the control byte equals ControlEnabled.
	Enabled bool
	// Motors lists motor records in wire order.
	Motors []MotorCommand
}

// Decode parses an inbound datagram. Records with unknown tags are skipped.
// Any error wraps ErrMalformedFrame and means nothing in the datagram may be applied.
func Decode(datagram []byte) (Frame, error) {
	if len(datagram) < HeaderLength {
		return Frame{}, fmt.Errorf("%w: %d bytes, need at least %d", ErrMalformedFrame, len(datagram), HeaderLength)
	}

	frame := Frame{
		Sequence: binary.BigEndian.Uint16(datagram[0:2]),
		Enabled:  datagram[2] == ControlEnabled,
	}

	records := datagram[HeaderLength:]

	for cursor := 0; cursor < len(records); {
		size := int(records[cursor])
		if size == 0 {
			// An empty record has no tag and no payload: skip its length byte.
			cursor++

			continue
		}

		// The length byte is not counted in size.
		end := cursor + 1 + size
		if end > len(records) {
			return Frame{}, fmt.Errorf("%w: record at offset %d declares %d bytes, %d left",
				ErrMalformedFrame, HeaderLength+cursor, size, len(records)-cursor-1)
		}

		tag := records[cursor+1]
		payload := records[cursor+2 : end]

		if tag == TagMotor {
			motor, err := decodeMotor(payload)
			if err != nil {
				return Frame{}, fmt.Errorf("record at offset %d: %w", HeaderLength+cursor, err)
			}

			frame.Motors = append(frame.Motors, motor)
		}

		cursor = end
	}

	return frame, nil
}

func decodeMotor(payload []byte) (MotorCommand, error) {
	if len(payload) < motorPayloadLength {
		return MotorCommand{}, fmt.Errorf("%w: motor payload has %d bytes, need %d",
			ErrMalformedFrame, len(payload), motorPayloadLength)
	}

	return MotorCommand{
		Channel: payload[0],
		Value:   math.Float32frombits(binary.BigEndian.Uint32(payload[1:motorPayloadLength])),
	}, nil
}

// Apply returns cmd updated with the frame's motor records, in wire order.
// The right channel is inverted; unknown channels are ignored.
func (f Frame) Apply(cmd robot.WheelCommand) robot.WheelCommand {
	for _, motor := range f.Motors {
		switch motor.Channel {
		case ChannelLeft:
			cmd.Left = float64(motor.Value)
		case ChannelRight:
			cmd.Right = -float64(motor.Value)
		}
	}

	return cmd
}
