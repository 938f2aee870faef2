package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/xrp-sim/internal/logger"
)

// Config holds every tunable of the bridge process.
type Config struct {
	// UDPAddress is where the HAL simulation extension protocol is served.
	UDPAddress string `yaml:"udp_address" env:"XRP_SIM_UDP_ADDRESS"`
	// HTTPAddress is where observers connect over WebSocket.
	HTTPAddress string `yaml:"http_address" env:"XRP_SIM_HTTP_ADDRESS"`
	// HTTPPort overrides the port of HTTPAddress. Hosting platforms set PORT.
	HTTPPort string `yaml:"-" env:"PORT"`
	// HealthAddress enables the gRPC health endpoint when not empty.
	HealthAddress string `yaml:"health_address" env:"XRP_SIM_HEALTH_ADDRESS"`
	// StaticDir is an optional directory served at "/" for the browser UI.
	StaticDir string `yaml:"static_dir" env:"XRP_SIM_STATIC_DIR"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" env:"XRP_SIM_LOG_LEVEL"`
	// TracePackets logs every datagram at debug level regardless of LogLevel.
	TracePackets bool `yaml:"trace_packets" env:"XRP_SIM_TRACE_PACKETS"`
	// CaptureFile records all HAL datagrams to a pcap file when not empty.
	CaptureFile string `yaml:"capture_file" env:"XRP_SIM_CAPTURE_FILE"`
	// SendInterval is the telemetry period towards the control runtime.
	SendInterval time.Duration `yaml:"send_interval" env:"XRP_SIM_SEND_INTERVAL"`
	// WatchdogInterval is how often liveness is evaluated.
	WatchdogInterval time.Duration `yaml:"watchdog_interval" env:"XRP_SIM_WATCHDOG_INTERVAL"`
	// WatchdogTimeout is how long the remote may stay silent before it is considered lost.
	WatchdogTimeout time.Duration `yaml:"watchdog_timeout" env:"XRP_SIM_WATCHDOG_TIMEOUT"`
	// BroadcastInterval is the state push period towards observers.
	BroadcastInterval time.Duration `yaml:"broadcast_interval" env:"XRP_SIM_BROADCAST_INTERVAL"`
	// Simulator configures the optional server-side physics loop.
	Simulator SimulatorConfig `yaml:"simulator" envPrefix:"XRP_SIM_SIMULATOR_"`
	// Arena holds the dimensions shared by the integrator and any renderer.
	Arena ArenaConfig `yaml:"arena" envPrefix:"XRP_SIM_ARENA_"`
}

// SimulatorConfig configures the server-side kinematics loop.
type SimulatorConfig struct {
	Enabled      bool          `yaml:"enabled" env:"ENABLED"`
	TickInterval time.Duration `yaml:"tick_interval" env:"TICK_INTERVAL"`
	// TicksPerUnit converts wheel travel in arena units into encoder ticks.
	TicksPerUnit float64 `yaml:"ticks_per_unit" env:"TICKS_PER_UNIT"`
}

// ArenaConfig describes the rectangular arena and robot footprint.
type ArenaConfig struct {
	RobotSize float64 `yaml:"robot_size" env:"ROBOT_SIZE"`
	Width     float64 `yaml:"width" env:"WIDTH"`
	Height    float64 `yaml:"height" env:"HEIGHT"`
}

const (
	// DefaultConfigFilename is the default settings file name.
	DefaultConfigFilename = "xrp-sim-settings.yaml"
	// DefaultUDPAddress is the port the HAL simulation extension talks to.
	DefaultUDPAddress = ":3540"
	// DefaultHTTPAddress serves observers.
	DefaultHTTPAddress = ":8000"
	// DefaultSendInterval is the telemetry period.
	DefaultSendInterval = 50 * time.Millisecond
	// DefaultWatchdogInterval is the liveness poll period.
	DefaultWatchdogInterval = 100 * time.Millisecond
	// DefaultWatchdogTimeout is the silence tolerated before the remote is lost.
	DefaultWatchdogTimeout = 500 * time.Millisecond
	// DefaultBroadcastInterval is the observer push period.
	DefaultBroadcastInterval = 20 * time.Millisecond
	// DefaultSimulatorTick is the physics step period.
	DefaultSimulatorTick = 10 * time.Millisecond
	// DefaultTicksPerUnit maps one arena unit of wheel travel to one encoder tick.
	DefaultTicksPerUnit = 1.0
	// DefaultRobotSize is the robot footprint in arena units.
	DefaultRobotSize = 40.0
	// DefaultArenaWidth is the arena width in arena units.
	DefaultArenaWidth = 800.0
	// DefaultArenaHeight is the arena height in arena units.
	DefaultArenaHeight = 500.0
	// DefaultFilePermissions is used when writing settings.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errInvalidLogLevel is returned for unknown log level names.
	errInvalidLogLevel = errors.New("invalid log level")
	// errInvalidArena is returned when the robot does not fit the arena.
	errInvalidArena = errors.New("robot does not fit the arena")
)

// Default returns settings matching the reference deployment.
func Default() *Config {
	return &Config{
		UDPAddress:        DefaultUDPAddress,
		HTTPAddress:       DefaultHTTPAddress,
		LogLevel:          "info",
		SendInterval:      DefaultSendInterval,
		WatchdogInterval:  DefaultWatchdogInterval,
		WatchdogTimeout:   DefaultWatchdogTimeout,
		BroadcastInterval: DefaultBroadcastInterval,
		Simulator: SimulatorConfig{
			TickInterval: DefaultSimulatorTick,
			TicksPerUnit: DefaultTicksPerUnit,
		},
		Arena: ArenaConfig{
			RobotSize: DefaultRobotSize,
			Width:     DefaultArenaWidth,
			Height:    DefaultArenaHeight,
		},
	}
}

// Load reads settings from path, applies environment overrides and validates them.
// A missing file is not an error: defaults are used instead.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	cfg := Default()

	contents, err := os.ReadFile(filepath.Clean(path))
	switch {
	case err == nil:
		if err = yaml.Unmarshal(contents, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// Keep defaults.
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err = env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks addresses and dimensions and fills zero values with defaults.
//
//nolint:cyclop // A flat list of field checks reads better than helpers.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	defaults := Default()

	if cfg.UDPAddress == "" {
		cfg.UDPAddress = defaults.UDPAddress
	}

	if cfg.HTTPAddress == "" {
		cfg.HTTPAddress = defaults.HTTPAddress
	}

	if cfg.HTTPPort != "" {
		host, _, err := net.SplitHostPort(cfg.HTTPAddress)
		if err != nil {
			return fmt.Errorf("invalid http address: %w", err)
		}

		cfg.HTTPAddress = net.JoinHostPort(host, cfg.HTTPPort)
		cfg.HTTPPort = ""
	}

	if _, err := net.ResolveUDPAddr("udp", cfg.UDPAddress); err != nil {
		return fmt.Errorf("invalid udp address: %w", err)
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.HTTPAddress); err != nil {
		return fmt.Errorf("invalid http address: %w", err)
	}

	if cfg.HealthAddress != "" {
		if _, err := net.ResolveTCPAddr("tcp", cfg.HealthAddress); err != nil {
			return fmt.Errorf("invalid health address: %w", err)
		}
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errInvalidLogLevel, cfg.LogLevel)
	}

	fillDuration(&cfg.SendInterval, defaults.SendInterval)
	fillDuration(&cfg.WatchdogInterval, defaults.WatchdogInterval)
	fillDuration(&cfg.WatchdogTimeout, defaults.WatchdogTimeout)
	fillDuration(&cfg.BroadcastInterval, defaults.BroadcastInterval)
	fillDuration(&cfg.Simulator.TickInterval, defaults.Simulator.TickInterval)

	if cfg.Simulator.TicksPerUnit <= 0 {
		cfg.Simulator.TicksPerUnit = defaults.Simulator.TicksPerUnit
	}

	if cfg.Arena == (ArenaConfig{}) {
		cfg.Arena = defaults.Arena
	}

	if cfg.Arena.RobotSize <= 0 || cfg.Arena.RobotSize > cfg.Arena.Width || cfg.Arena.RobotSize > cfg.Arena.Height {
		return fmt.Errorf("%w: robot %.1f, arena %.1fx%.1f",
			errInvalidArena, cfg.Arena.RobotSize, cfg.Arena.Width, cfg.Arena.Height)
	}

	return nil
}

// fillDuration replaces non-positive durations with the default.
func fillDuration(d *time.Duration, def time.Duration) {
	if *d <= 0 {
		*d = def
	}
}
