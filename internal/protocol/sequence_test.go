package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSequenceTracker_Wraparound accepts 65534, 65535 and then 0.
func TestSequenceTracker_Wraparound(t *testing.T) {
	t.Parallel()

	var tracker SequenceTracker

	require.True(t, tracker.Accept(65534))
	require.True(t, tracker.Accept(65535))
	require.True(t, tracker.Accept(0))
	require.Equal(t, uint16(0), tracker.Last())
	require.True(t, tracker.Accept(1))
}

// TestSequenceTracker_NearTopTolerance accepts a wrap only within five of the top.
func TestSequenceTracker_NearTopTolerance(t *testing.T) {
	t.Parallel()

	var tracker SequenceTracker

	require.True(t, tracker.Accept(65530))
	require.True(t, tracker.Accept(3))

	tracker.Reset()
	require.True(t, tracker.Accept(65529))
	require.False(t, tracker.Accept(3))
	require.Equal(t, uint16(65529), tracker.Last())
}

// TestSequenceTracker_RejectsStale rejects an older sequence without changing state.
func TestSequenceTracker_RejectsStale(t *testing.T) {
	t.Parallel()

	var tracker SequenceTracker

	require.True(t, tracker.Accept(100))
	require.False(t, tracker.Accept(50))
	require.Equal(t, uint16(100), tracker.Last())

	// Duplicates and forward jumps are accepted.
	require.True(t, tracker.Accept(100))
	require.True(t, tracker.Accept(4000))

	tracker.Reset()
	require.Zero(t, tracker.Last())
	require.True(t, tracker.Accept(50))
}

// TestSequenceCounter_Wraps numbers frames from zero and wraps after 65535.
func TestSequenceCounter_Wraps(t *testing.T) {
	t.Parallel()

	var counter SequenceCounter

	require.Equal(t, uint16(0), counter.Next())
	require.Equal(t, uint16(1), counter.Next())

	counter.next = 65535
	require.Equal(t, uint16(65535), counter.Next())
	require.Equal(t, uint16(0), counter.Next())
}
