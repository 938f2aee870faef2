// Package protocol implements the HAL simulation extension UDP wire format.
//
// Every datagram starts with a big-endian 16-bit sequence number and a control
// byte, followed by tagged records. A record is a length byte (counting the tag
// and payload), a tag byte and length-1 payload bytes. Inbound frames carry
// motor records (tag 0x12); outbound frames carry two encoder records (tag 0x18)
// and one gyro record (tag 0x16).
//
// Sequence numbers are tracked per direction: SequenceTracker filters stale
// inbound frames while tolerating 16-bit wraparound, SequenceCounter numbers
// outbound frames.
package protocol
