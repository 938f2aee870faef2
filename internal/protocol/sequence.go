package protocol

import "math"

// wrapTolerance is how close to the top of the 16-bit range the last accepted
// sequence must be for a smaller sequence to count as wraparound. A burst of
// more than this many drops right at the boundary is misread as wraparound.
const wrapTolerance = 5

// SequenceTracker filters stale inbound frames. It is not safe for concurrent use.
type SequenceTracker struct {
	last uint16
}

// Accept reports whether seq is fresh and, if so, records it.
// A sequence lower than the last accepted one is rejected unless the last one
// was within wrapTolerance of 65535.
func (t *SequenceTracker) Accept(seq uint16) bool {
	if seq < t.last && math.MaxUint16-t.last > wrapTolerance {
		return false
	}

	t.last = seq

	return true
}

// Last returns the last accepted sequence.
func (t *SequenceTracker) Last() uint16 {
	return t.last
}

// Reset forgets the last accepted sequence.
func (t *SequenceTracker) Reset() {
	t.last = 0
}

// SequenceCounter numbers outbound frames, wrapping modulo 65536.
// It is not safe for concurrent use.
type SequenceCounter struct {
	next uint16
}

// Next returns the sequence for the frame about to be sent and advances the counter.
func (c *SequenceCounter) Next() uint16 {
	seq := c.next
	c.next++

	return seq
}
