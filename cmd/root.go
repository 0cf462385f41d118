// Package cmd defines the kalmas-net command line: serve runs the site and
// snapshot pre-renders it for crawlers.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kalmas/kalmas-net/internal/config"
)

type configKeyType struct{}

var configKey configKeyType

// newRootCmd builds the command tree. Configuration is loaded once before any
// subcommand runs and handed down through the command context.
func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "kalmas-net",
		Short: "Serves kalmas.net and builds its crawler snapshots.",
		Long: `kalmas-net serves the personal site (profile page and blog) from a
content store and answers _escaped_fragment_ requests from pre-rendered
snapshots. The snapshot command renders every page into those snapshots.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, TOML or JSON)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSnapshotCmd())
	return cmd
}

func configFrom(ctx context.Context) (config.Config, error) {
	cfg, ok := ctx.Value(configKey).(config.Config)
	if !ok {
		return config.Config{}, errors.New("configuration not loaded")
	}
	return cfg, nil
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
