package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/xrp-sim/internal/api/grpc/health"
	"github.com/oshokin/xrp-sim/internal/service/checker"
)

var (
	// checkOptions collects flag values for the health probe.
	checkOptions = checker.Options{}

	// checkCmd probes a running bridge through its health endpoint.
	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Report whether a running bridge has a control runtime connected.",
		Long: `Queries the gRPC health endpoint of a running bridge.

With --once the command exits with a non-zero status unless a control runtime
is connected, which makes it usable as a container health probe. Without it,
the command keeps polling and logs every connection change.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			checkOptions.ConfigPath = options.ConfigPath

			return checker.Run(ctx, &checkOptions)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := checkCmd.Flags()

	flags.StringVar(&checkOptions.Address, "address", "", "health endpoint address (default from settings)")
	flags.DurationVar(&checkOptions.PollInterval, "interval", checker.DefaultPollInterval, "polling interval")
	flags.DurationVar(&checkOptions.Timeout, "timeout", health.DefaultCallTimeout, "per-check timeout")
	flags.BoolVar(&checkOptions.Once, "once", false, "check once and exit non-zero when not connected")

	rootCmd.AddCommand(checkCmd)
}
