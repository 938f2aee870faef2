package checker

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/xrp-sim/internal/api/grpc/health"
)

func startHealth(t *testing.T) (*health.Server, string) {
	t.Helper()

	lc := net.ListenConfig{}

	lis, err := lc.Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := health.NewServer()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go func() { _ = srv.Serve(ctx, lis) }()

	return srv, lis.Addr().String()
}

// TestRun_NoAddress fails fast without a health endpoint.
func TestRun_NoAddress(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), &Options{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml"), Once: true})
	require.ErrorIs(t, err, ErrNoHealthAddress)
}

// TestRun_Once reports the HAL connection state as the exit status.
func TestRun_Once(t *testing.T) {
	t.Parallel()

	srv, addr := startHealth(t)
	opts := &Options{
		ConfigPath: filepath.Join(t.TempDir(), "missing.yaml"),
		Address:    addr,
		Timeout:    2 * time.Second,
		Once:       true,
	}

	require.ErrorIs(t, Run(context.Background(), opts), ErrNotConnected)

	srv.SetConnected(context.Background(), true)
	require.NoError(t, Run(context.Background(), opts))
}

// TestRun_PollsUntilCanceled keeps polling and returns cleanly on cancellation.
func TestRun_PollsUntilCanceled(t *testing.T) {
	t.Parallel()

	_, addr := startHealth(t)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	err := Run(ctx, &Options{
		ConfigPath:   filepath.Join(t.TempDir(), "missing.yaml"),
		Address:      addr,
		PollInterval: 20 * time.Millisecond,
	})
	require.NoError(t, err)
}
