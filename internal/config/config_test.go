package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks address and arena validation and default filling.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Empty settings get defaults.
	settings := new(Config)
	require.NoError(t, Validate(settings))
	require.Equal(t, DefaultUDPAddress, settings.UDPAddress)
	require.Equal(t, DefaultWatchdogTimeout, settings.WatchdogTimeout)
	require.InDelta(t, DefaultRobotSize, settings.Arena.RobotSize, 0)

	// Bad socket.
	settings = &Config{UDPAddress: "bad:address"}
	require.Error(t, Validate(settings))

	// Unknown log level.
	settings = &Config{LogLevel: "chatty"}
	require.ErrorIs(t, Validate(settings), errInvalidLogLevel)

	// Robot larger than the arena.
	settings = &Config{Arena: ArenaConfig{RobotSize: 600, Width: 800, Height: 500}}
	require.ErrorIs(t, Validate(settings), errInvalidArena)

	// PORT replaces only the port of the HTTP address.
	settings = &Config{HTTPAddress: "127.0.0.1:8000", HTTPPort: "9100"}
	require.NoError(t, Validate(settings))
	require.Equal(t, "127.0.0.1:9100", settings.HTTPAddress)

	require.ErrorIs(t, Validate(nil), errConfigIsNotSet)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")

	settings := Default()
	settings.UDPAddress = "127.0.0.1:3541"
	settings.SendInterval = 25 * time.Millisecond
	settings.Simulator.Enabled = true

	require.NoError(t, Save(path, settings))

	_, err := os.Stat(path)
	require.NoError(t, err)

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, settings.UDPAddress, loaded.UDPAddress)
	require.Equal(t, settings.SendInterval, loaded.SendInterval)
	require.True(t, loaded.Simulator.Enabled)
	require.Equal(t, settings.Arena, loaded.Arena)
}

// TestLoad_MissingFileUsesDefaults verifies that an absent settings file is not fatal.
func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	loaded, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default().HTTPAddress, loaded.HTTPAddress)
}

// TestLoad_EnvironmentOverrides checks that environment variables win over the file.
func TestLoad_EnvironmentOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, Save(path, Default()))

	t.Setenv("XRP_SIM_UDP_ADDRESS", "127.0.0.1:4000")
	t.Setenv("XRP_SIM_WATCHDOG_TIMEOUT", "750ms")
	t.Setenv("XRP_SIM_SIMULATOR_ENABLED", "true")
	t.Setenv("PORT", "8081")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:4000", loaded.UDPAddress)
	require.Equal(t, 750*time.Millisecond, loaded.WatchdogTimeout)
	require.True(t, loaded.Simulator.Enabled)
	require.Equal(t, ":8081", loaded.HTTPAddress)
}
