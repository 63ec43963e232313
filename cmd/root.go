// Package cmd implements hivecrawl's command-line interface: the root
// command plus the run/fetcherpod/parserpod/status subcommands. Modeled on
// the teacher's cmd/root.go (cobra root command, persistent --config/--debug
// flags, .env loading via godotenv before config init).
package cmd

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/northcloud/hivecrawl/internal/config"
)

var (
	cfgFile string
	debug   bool

	rootCmd = &cobra.Command{
		Use:   "hivecrawl",
		Short: "A polite, high-throughput single-machine web crawler",
		Long:  "hivecrawl crawls from a seed list with a hybrid on-disk/Redis frontier, per-domain politeness, and a pod-based concurrency runtime.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	_ = godotenv.Load()
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("hivecrawl version 0.1.0")
		},
	})

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newFetcherPodCommand())
	rootCmd.AddCommand(newParserPodCommand())
	rootCmd.AddCommand(newStatusCommand())
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if debug {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}
