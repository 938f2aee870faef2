package protocol

import (
	"encoding/binary"
	"math"

	"github.com/oshokin/xrp-sim/internal/domain/robot"
)

const (
	// encoderRecordLength is the length byte, tag, channel and int32 value.
	encoderRecordLength = 7
	// gyroRecordLength is the length byte, tag and six float32 slots.
	gyroRecordLength = 26
	// gyroReservedSlots precede the heading in the gyro record.
	gyroReservedSlots = 5

	// TelemetryFrameLength is the size of every outbound datagram.
	TelemetryFrameLength = HeaderLength + 2*encoderRecordLength + gyroRecordLength
)

// Encode builds an outbound telemetry datagram: header with a zero control
// byte, the left then right encoder records and the gyro record carrying the
// heading in its last slot.
func Encode(seq uint16, telemetry robot.Telemetry) []byte {
	buf := make([]byte, 0, TelemetryFrameLength)

	buf = binary.BigEndian.AppendUint16(buf, seq)
	buf = append(buf, 0)
	buf = appendEncoder(buf, ChannelLeft, telemetry.Encoders.Left)
	buf = appendEncoder(buf, ChannelRight, telemetry.Encoders.Right)

	buf = append(buf, gyroRecordLength-1, TagGyro)
	for range gyroReservedSlots {
		buf = binary.BigEndian.AppendUint32(buf, 0)
	}

	return binary.BigEndian.AppendUint32(buf, math.Float32bits(float32(telemetry.Heading)))
}

func appendEncoder(buf []byte, channel byte, ticks int32) []byte {
	buf = append(buf, encoderRecordLength-1, TagEncoder, channel)

	return binary.BigEndian.AppendUint32(buf, uint32(ticks)) //nolint:gosec // Two's complement on the wire.
}
