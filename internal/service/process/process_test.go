package process

import (
	"context"
	"errors"
	"testing"

	"github.com/mitchellh/go-ps"
	"github.com/stretchr/testify/require"
)

type fakeProcess struct {
	pid  int
	name string
}

func (p fakeProcess) Pid() int           { return p.pid }
func (p fakeProcess) PPid() int          { return 1 }
func (p fakeProcess) Executable() string { return p.name }

// TestFindOther skips the current process and unrelated ones.
func TestFindOther(t *testing.T) {
	t.Parallel()

	list := []ps.Process{
		fakeProcess{pid: 10, name: "xrp-sim"},
		fakeProcess{pid: 11, name: "bash"},
	}

	_, found := findOther(list, 10, "xrp-sim")
	require.False(t, found)

	list = append(list, fakeProcess{pid: 12, name: "xrp-sim"})

	other, found := findOther(list, 10, "xrp-sim")
	require.True(t, found)
	require.Equal(t, 12, other.Pid())
}

// TestSameExecutable matches names truncated by the kernel.
func TestSameExecutable(t *testing.T) {
	t.Parallel()

	require.True(t, sameExecutable("xrp-sim", "xrp-sim"))
	require.True(t, sameExecutable("xrp-sim-bridge-", "xrp-sim-bridge-linux-amd64"))
	require.False(t, sameExecutable("xrp-sim-bridge", "xrp-sim-bridge-linux-amd64"))
	require.False(t, sameExecutable("xrp", "xrp-sim"))
}

// TestExplain_AnnotatesBindFailure names the other process only when one exists.
func TestExplain_AnnotatesBindFailure(t *testing.T) {
	t.Parallel()

	bindErr := errors.New("listen udp :3540: address already in use")

	err := explain(bindErr, []ps.Process{fakeProcess{pid: 10, name: "xrp-sim"}}, 10, "xrp-sim")
	require.Equal(t, bindErr, err)

	// A health poller started from the same binary looks like any other instance.
	list := []ps.Process{
		fakeProcess{pid: 10, name: "xrp-sim"},
		fakeProcess{pid: 42, name: "xrp-sim"},
	}

	err = explain(bindErr, list, 10, "xrp-sim")
	require.ErrorIs(t, err, bindErr)
	require.ErrorIs(t, err, ErrAlreadyRunning)
	require.ErrorContains(t, err, "pid 42")
}

// TestExplainBindFailure_UnknownName returns the bind error untouched.
func TestExplainBindFailure_UnknownName(t *testing.T) {
	t.Parallel()

	bindErr := errors.New("bind failed")

	require.Equal(t, bindErr, ExplainBindFailure(context.Background(), bindErr, "no-such-binary-7f3a"))
}

// TestExecutableName returns a non-empty base name.
func TestExecutableName(t *testing.T) {
	t.Parallel()

	name := ExecutableName("xrp-sim")
	require.NotEmpty(t, name)
	require.NotContains(t, name, "/")
}
