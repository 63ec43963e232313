package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/northcloud/hivecrawl/internal/logger"
	"github.com/northcloud/hivecrawl/internal/metrics"
	"github.com/northcloud/hivecrawl/internal/parsepool"
	"github.com/northcloud/hivecrawl/internal/worker"
)

// newParserPodCommand builds the "parserpod" subcommand: one OS process
// running a pool of parse worker goroutines, spawned and supervised by the
// orchestrator's "run" command.
func newParserPodCommand() *cobra.Command {
	var podID string

	c := &cobra.Command{
		Use:    "parserpod",
		Short:  "Run a parser pod (internal: spawned by the orchestrator)",
		Hidden: true,
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if podID == "" {
				podID = "parser-0"
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			d, err := buildDeps(ctx, cfg, "parserpod")
			if err != nil {
				return err
			}
			defer d.log.Sync()
			defer d.store.Close()

			reg := metrics.NewRegistry()
			serveMetrics(ctx, cfg.Crawler.MetricsAddr, reg, d.log)

			pool := parsepool.New(parsepool.Config{
				PodID:       podID,
				DequeueWait: cfg.Crawler.FetchTimeout,
			}, d.consumer, d.frontier, d.content, d.log, reg)

			wp, err := worker.NewPool(cfg.Crawler.ParserWorkersPerPod, pool.Loop, d.log, cfg.Crawler.ShutdownDrainTimeout)
			if err != nil {
				return err
			}

			d.log.Info("parser pod starting", logger.String("pod_id", podID))
			if err := wp.Start(ctx); err != nil {
				return err
			}
			reportWorkerUtilization(ctx, reg, podID, "parser", wp)

			<-ctx.Done()
			d.log.Info("parser pod draining", logger.String("pod_id", podID))
			return wp.Stop()
		},
	}

	c.Flags().StringVar(&podID, "pod-id", "", "pod identifier assigned by the orchestrator")
	return c
}
