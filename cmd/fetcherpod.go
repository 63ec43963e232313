package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/northcloud/hivecrawl/internal/fetchpool"
	"github.com/northcloud/hivecrawl/internal/logger"
	"github.com/northcloud/hivecrawl/internal/metrics"
	"github.com/northcloud/hivecrawl/internal/worker"
)

// newFetcherPodCommand builds the "fetcherpod" subcommand: one OS process
// running a pool of fetch worker goroutines, spawned and supervised by the
// orchestrator's "run" command.
func newFetcherPodCommand() *cobra.Command {
	var podID string

	c := &cobra.Command{
		Use:    "fetcherpod",
		Short:  "Run a fetcher pod (internal: spawned by the orchestrator)",
		Hidden: true,
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if podID == "" {
				podID = "fetcher-0"
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			d, err := buildDeps(ctx, cfg, "fetcherpod")
			if err != nil {
				return err
			}
			defer d.log.Sync()
			defer d.store.Close()

			reg := metrics.NewRegistry()
			serveMetrics(ctx, cfg.Crawler.MetricsAddr, reg, d.log)
			httpClient := &http.Client{Timeout: cfg.Crawler.FetchTimeout}

			pool := fetchpool.New(fetchpool.Config{
				PodID:             podID,
				UserAgent:         cfg.Crawler.UserAgent,
				FetchTimeout:      cfg.Crawler.FetchTimeout,
				ClaimTTL:          cfg.Crawler.ClaimTTL,
				MaxCandidates:     int64(cfg.Crawler.CandidatesPerScan),
				IdleBackoff:       idleBackoff,
				ParseQueueSoftCap: cfg.Crawler.ParseQueueSoftCap,
			}, d.frontier, d.enforcer, d.producer, httpClient, d.content, d.log, reg)

			wp, err := worker.NewPool(cfg.Crawler.FetcherWorkersPerPod, pool.Loop, d.log, cfg.Crawler.ShutdownDrainTimeout)
			if err != nil {
				return err
			}

			d.log.Info("fetcher pod starting", logger.String("pod_id", podID))
			if err := wp.Start(ctx); err != nil {
				return err
			}
			reportWorkerUtilization(ctx, reg, podID, "fetcher", wp)

			<-ctx.Done()
			d.log.Info("fetcher pod draining", logger.String("pod_id", podID))
			return wp.Stop()
		},
	}

	c.Flags().StringVar(&podID, "pod-id", "", "pod identifier assigned by the orchestrator")
	return c
}
