package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oshokin/xrp-sim/internal/config"
	"github.com/oshokin/xrp-sim/internal/logger"
)

var (
	// errConfigExists is returned when init would overwrite settings without --force.
	errConfigExists = errors.New("configuration file already exists")

	// forceOverwrite replaces an existing settings file.
	forceOverwrite bool

	// configCmd groups settings file helpers.
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage the settings file.",
	}

	// configInitCmd writes a settings file with every default spelled out.
	configInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Write a settings file with default values.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := options.ConfigPath

			if _, err := os.Stat(path); err == nil && !forceOverwrite {
				return fmt.Errorf("%w: %s (use --force to overwrite)", errConfigExists, path)
			}

			if err := config.Save(path, config.Default()); err != nil {
				return err
			}

			logger.InfoKV(context.Background(), "Settings written", "path", path)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	configInitCmd.Flags().BoolVarP(&forceOverwrite, "force", "f", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
}
