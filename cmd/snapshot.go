package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kalmas/kalmas-net/internal/app"
	"github.com/kalmas/kalmas-net/internal/content"
	"github.com/kalmas/kalmas-net/internal/logging"
	"github.com/kalmas/kalmas-net/internal/snapshot"
)

func newSnapshotCmd() *cobra.Command {
	var (
		host     string
		renderer string
		summary  bool
	)
	cmd := &cobra.Command{
		Use:   "snapshot OUTDIR",
		Short: "Pre-render every page for crawlers",
		Long: `Renders the home page and one page per post listed in the table of
contents, writing OUTDIR/index.html and OUTDIR/blog/<slug>.html. The site
must already be running at snapshot.host. Exits non-zero if any page could
not be rendered.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd.Context())
			if err != nil {
				return err
			}
			if host != "" {
				cfg.Snapshot.Host = host
			}
			if renderer != "" {
				cfg.Snapshot.Renderer = renderer
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := logging.New(logging.Options{
				Development: cfg.Logging.Development,
				Level:       cfg.Logging.Level,
			})
			if err != nil {
				return fmt.Errorf("logger init failed: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			ctx := cmd.Context()
			fetcher, err := app.NewContentFetcher(cfg)
			if err != nil {
				return err
			}
			toc, err := content.LoadTOC(ctx, fetcher)
			if err != nil {
				return fmt.Errorf("load table of contents: %w", err)
			}
			tasks := snapshot.Plan(cfg.Snapshot.Host, toc)
			logger.Info("snapshot plan ready",
				zap.Int("posts", len(toc)),
				zap.Int("tasks", len(tasks)),
				zap.String("host", cfg.Snapshot.Host),
			)

			snap, err := app.BuildSnapshot(ctx, cfg, args[0], logger)
			if err != nil {
				return err
			}
			defer snap.Close()

			report, err := snap.Run(ctx, tasks)
			if err != nil {
				return err
			}
			if summary {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return fmt.Errorf("write summary: %w", err)
				}
			}
			if report.Failed > 0 {
				return fmt.Errorf("%d of %d snapshots failed: %w", report.Failed, report.Total, report.Err())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "base URL of the running site (overrides snapshot.host)")
	cmd.Flags().StringVar(&renderer, "renderer", "", "headless, static or auto (overrides snapshot.renderer)")
	cmd.Flags().BoolVar(&summary, "summary", false, "print the run report as JSON")
	return cmd
}
