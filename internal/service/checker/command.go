package checker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/xrp-sim/internal/api/grpc/health"
	"github.com/oshokin/xrp-sim/internal/config"
	"github.com/oshokin/xrp-sim/internal/logger"
)

// Options controls the checker polling behavior and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// Address provides an optional health endpoint override.
	Address string
	// PollInterval defines the interval between checks.
	PollInterval time.Duration
	// Timeout specifies the per-call timeout duration.
	Timeout time.Duration
	// Once checks a single time and fails unless a control runtime is connected.
	Once bool
}

// DefaultPollInterval defines the polling interval for connection checks.
const DefaultPollInterval = time.Second

var (
	// ErrNoHealthAddress indicates that neither settings nor flags name a health endpoint.
	ErrNoHealthAddress = errors.New("no health address configured")
	// ErrNotConnected is returned in Once mode when no control runtime is connected.
	ErrNotConnected = errors.New("control runtime not connected")
)

// Run polls the bridge health endpoint and logs every change of the HAL connection.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "xrp-sim-check")

	// Load settings from configuration file.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// Determine health address: command line argument overrides config.
	address := cfg.HealthAddress
	if opts.Address != "" {
		address = opts.Address
	}

	if address == "" {
		return ErrNoHealthAddress
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	client, err := health.Dial(ctx, address, health.WithCallTimeout(opts.Timeout))
	if err != nil {
		return fmt.Errorf("dial health endpoint: %w", err)
	}

	// Ensure connection cleanup on function exit.
	defer func() {
		_ = client.Close()
	}()

	if opts.Once {
		return checkOnce(ctx, client)
	}

	logger.InfoKV(ctx, "Polling bridge health", "address", address, "interval", opts.PollInterval.String())

	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	var last *bool

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")

			return nil
		case <-ticker.C:
			connected, checkErr := client.Connected(ctx)
			if checkErr != nil {
				logger.ErrorKV(ctx, "Health check failed", "error", checkErr)

				continue
			}

			if last == nil || *last != connected {
				logger.InfoKV(ctx, "HAL connection", "connected", connected)
				last = &connected
			}
		}
	}
}

// checkOnce returns nil only when a control runtime is connected.
func checkOnce(ctx context.Context, client *health.Client) error {
	connected, err := client.Connected(ctx)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "HAL connection", "connected", connected)

	if !connected {
		return ErrNotConnected
	}

	return nil
}
