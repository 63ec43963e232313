package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/northcloud/hivecrawl/internal/coordination"
	"github.com/northcloud/hivecrawl/internal/logger"
)

// newStatusCommand builds the "status" subcommand: a read-only snapshot of
// crawl progress for an operator to run alongside a live "run" process,
// reading the same coordination store without claiming or mutating
// anything.
func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print a snapshot of the current crawl's coordination state",
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := context.Background()
			log := logger.Must(logger.Config{Level: cfg.LogLevel})
			defer log.Sync()

			store, err := coordination.NewClient(coordination.Config{
				Address:  cfg.Redis.Address,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			}, log)
			if err != nil {
				return fmt.Errorf("status: connect coordination store: %w", err)
			}
			defer store.Close()

			ready, err := store.SortedSetCard(ctx, coordination.ReadyIndexKey)
			if err != nil {
				return fmt.Errorf("status: read ready index: %w", err)
			}
			active, err := store.SetMembers(ctx, coordination.ActiveDomainsSetKey)
			if err != nil {
				return fmt.Errorf("status: read active domains: %w", err)
			}
			depth, err := store.ListLength(ctx, coordination.ParseQueueKey)
			if err != nil {
				return fmt.Errorf("status: read parse queue: %w", err)
			}
			stats, err := store.HashGetAll(ctx, coordination.StatsKey)
			if err != nil {
				return fmt.Errorf("status: read crawl stats: %w", err)
			}

			fmt.Printf("ready domains:      %d\n", ready)
			fmt.Printf("active domains:     %d\n", len(active))
			fmt.Printf("parse queue depth:  %d\n", depth)
			fmt.Printf("pages fetched:      %s\n", statsOrDash(stats, "pages_fetched"))
			return nil
		},
	}
}

func statsOrDash(stats map[string]string, key string) string {
	if v, ok := stats[key]; ok && v != "" {
		return v
	}
	return "0"
}
