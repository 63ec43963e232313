package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/northcloud/hivecrawl/internal/logger"
	"github.com/northcloud/hivecrawl/internal/metrics"
	"github.com/northcloud/hivecrawl/internal/orchestrator"
)

// newRunCommand builds the "run" subcommand: the orchestrator process that
// spawns fetcher/parser pods and supervises the crawl until a stop
// condition fires or it's interrupted.
func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start a crawl: spawn fetcher and parser pods and supervise them",
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			d, err := buildDeps(ctx, cfg, "orchestrator")
			if err != nil {
				return err
			}
			defer d.log.Sync()
			defer d.store.Close()

			if err := seedFrontier(ctx, d); err != nil {
				return fmt.Errorf("seed frontier: %w", err)
			}

			binary, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve binary path: %w", err)
			}

			reg := metrics.NewRegistry()
			serveMetrics(ctx, cfg.Crawler.MetricsAddr, reg, d.log)

			orch := orchestrator.New(orchestrator.Config{
				Binary:               binary,
				ConfigPath:           cfgFile,
				FetcherPods:          cfg.Crawler.FetcherPods,
				ParserPods:           cfg.Crawler.ParserPods,
				ClaimSweepInterval:   cfg.Crawler.ClaimSweepInterval,
				StatusInterval:       cfg.Crawler.StatusInterval,
				ShutdownDrainTimeout: cfg.Crawler.ShutdownDrainTimeout,
				DrainedStreak:        cfg.Crawler.DrainedStreak,
				Stop: orchestrator.StopConditions{
					MaxPages:    cfg.Crawler.MaxPages,
					MaxDuration: cfg.Crawler.MaxDuration,
				},
			}, d.store, d.log, reg)

			d.log.Info("starting crawl",
				logger.Int("fetcher_pods", cfg.Crawler.FetcherPods),
				logger.Int("parser_pods", cfg.Crawler.ParserPods))

			return orch.Run(ctx)
		},
	}
}
