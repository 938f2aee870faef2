package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/xrp-sim/internal/config"
	"github.com/oshokin/xrp-sim/internal/logger"
	"github.com/oshokin/xrp-sim/internal/service/server"
	"github.com/oshokin/xrp-sim/internal/version"
)

var (
	// options collects flag values for the bridge.
	options = server.Options{}

	// rootCmd represents the base command for running the bridge.
	rootCmd = &cobra.Command{
		Use:   "xrp-sim",
		Short: "Bridge a simulated XRP robot to the HAL simulation extension.",
		Long: `Runs the UDP endpoint spoken by the HAL simulation extension of a robot
control runtime, and relays robot state to browser observers over WebSocket.

Observers connect to ws://<http-address>/xrp-sim. The first observer is asked to
drive the sensors unless the built-in simulator is enabled with --simulate.
Settings are read from the configuration file; flags override them.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return server.Run(ctx, &options)
		},
	}
)

// Execute runs the xrp-sim CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Error(context.Background(), err)
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.Flags()

	rootCmd.PersistentFlags().
		StringVarP(&options.ConfigPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")

	flags.StringVar(&options.UDPAddress, "udp", "", "HAL UDP listen address (default from settings, :3540)")
	flags.StringVar(&options.HTTPAddress, "http", "", "observer HTTP listen address (default from settings, :8000)")
	flags.StringVar(&options.HealthAddress, "health", "", "gRPC health listen address, disabled when empty")
	flags.StringVar(&options.StaticDir, "static", "", "directory served at / for the browser UI")
	flags.StringVar(&options.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&options.CaptureFile, "capture", "", "record HAL datagrams to this pcap file")
	flags.BoolVar(&options.Simulate, "simulate", false, "run the robot physics on the server")
	flags.BoolVar(&options.TracePackets, "trace", false, "log every HAL datagram")

	rootCmd.AddCommand(configCmd)
}
