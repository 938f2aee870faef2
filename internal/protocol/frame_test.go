package protocol

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/xrp-sim/internal/domain/robot"
)

// motorRecord builds a 7-byte motor record.
func motorRecord(channel byte, value float32) []byte {
	rec := []byte{6, TagMotor, channel}

	return binary.BigEndian.AppendUint32(rec, math.Float32bits(value))
}

// datagram assembles a header and records.
func datagram(seq uint16, ctrl byte, records ...[]byte) []byte {
	buf := binary.BigEndian.AppendUint16(nil, seq)
	buf = append(buf, ctrl)

	for _, rec := range records {
		buf = append(buf, rec...)
	}

	return buf
}

// TestDecode_HeaderOnly accepts a bare header and reads sequence and control byte.
func TestDecode_HeaderOnly(t *testing.T) {
	t.Parallel()

	frame, err := Decode([]byte{0x12, 0x34, ControlEnabled})
	require.NoError(t, err)
	require.Equal(t, uint16(0x1234), frame.Sequence)
	require.True(t, frame.Enabled)
	require.Empty(t, frame.Motors)

	// Only the exact value 1 enables.
	frame, err = Decode([]byte{0, 1, 0x03})
	require.NoError(t, err)
	require.False(t, frame.Enabled)
}

// TestDecode_TooShort rejects datagrams shorter than the header.
func TestDecode_TooShort(t *testing.T) {
	t.Parallel()

	for _, in := range [][]byte{nil, {0}, {0, 1}} {
		_, err := Decode(in)
		require.ErrorIs(t, err, ErrMalformedFrame)
	}
}

// TestDecode_MotorRecords decodes motor values in wire order.
func TestDecode_MotorRecords(t *testing.T) {
	t.Parallel()

	frame, err := Decode(datagram(1, ControlEnabled, motorRecord(0, 50), motorRecord(1, 30)))
	require.NoError(t, err)
	require.Equal(t, []MotorCommand{
		{Channel: ChannelLeft, Value: 50},
		{Channel: ChannelRight, Value: 30},
	}, frame.Motors)
}

// TestDecode_SkipsUnknownTags advances over unknown records without error.
func TestDecode_SkipsUnknownTags(t *testing.T) {
	t.Parallel()

	unknown := []byte{4, 0x7f, 0xaa, 0xbb, 0xcc}
	frame, err := Decode(datagram(9, 0, unknown, motorRecord(0, -12.5)))
	require.NoError(t, err)
	require.Len(t, frame.Motors, 1)
	require.InDelta(t, -12.5, frame.Motors[0].Value, 0)
}

// TestDecode_Overrun rejects records that run past the end of the datagram.
func TestDecode_Overrun(t *testing.T) {
	t.Parallel()

	cases := map[string][]byte{
		"declared length past end":  datagram(1, 1, []byte{10, TagMotor, 0, 0}),
		"dangling length byte":      datagram(1, 1, motorRecord(0, 1), []byte{6}),
		"motor payload too short":   datagram(1, 1, []byte{3, TagMotor, 0, 0}),
		"truncated trailing record": datagram(1, 1, motorRecord(0, 1)[:5]),
	}
	for name, in := range cases {
		_, err := Decode(in)
		require.ErrorIs(t, err, ErrMalformedFrame, name)
	}
}

// TestDecode_ZeroLengthRecordSkipped steps over empty records and keeps decoding.
func TestDecode_ZeroLengthRecordSkipped(t *testing.T) {
	t.Parallel()

	frame, err := Decode(datagram(1, 1, []byte{0, 0}, motorRecord(0, 0.5), []byte{0}))
	require.NoError(t, err)
	require.Equal(t, []MotorCommand{{Channel: 0, Value: 0.5}}, frame.Motors)
}

// TestFrame_Apply_ChannelInversion checks that channel 1 is sign-inverted and channel 0 is not.
func TestFrame_Apply_ChannelInversion(t *testing.T) {
	t.Parallel()

	frame, err := Decode(datagram(1, 1, motorRecord(1, 30)))
	require.NoError(t, err)

	cmd := frame.Apply(robot.WheelCommand{Left: 7})
	require.InDelta(t, -30.0, cmd.Right, 0)
	require.InDelta(t, 7.0, cmd.Left, 0)

	frame, err = Decode(datagram(2, 1, motorRecord(0, 30), motorRecord(5, 99)))
	require.NoError(t, err)

	cmd = frame.Apply(cmd)
	require.InDelta(t, 30.0, cmd.Left, 0)
	require.InDelta(t, -30.0, cmd.Right, 0)
}

// TestFrame_Apply_LastRecordWins keeps the latest value when a channel repeats.
func TestFrame_Apply_LastRecordWins(t *testing.T) {
	t.Parallel()

	frame, err := Decode(datagram(1, 1, motorRecord(0, 10), motorRecord(0, 20)))
	require.NoError(t, err)
	require.InDelta(t, 20.0, frame.Apply(robot.WheelCommand{}).Left, 0)
}
