package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/craftwatch/statuspoll/config"
	"github.com/spf13/cobra"
)

// serveCmd runs the recurring scheduler until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the recurring status poller",
	Long: `Run the recurring status poller.

The poller will:
  - Load configuration from the specified YAML file
  - Register all configured servers
  - Sweep all stale servers immediately, then at the poll interval

It runs until interrupted (Ctrl+C) or receives SIGTERM; an in-flight
sweep is allowed to finish before shutdown completes.

Example:
  statuspoll serve -c config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Info("config loaded",
		"servers", len(cfg.Servers),
		"poll_interval", cfg.PollInterval.Duration().String(),
		"freshness_window", cfg.FreshnessWindow.Duration().String(),
	)

	if len(cfg.Servers) == 0 {
		return fmt.Errorf("no servers configured")
	}

	svc, _, err := buildService(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc.StartScheduler(cfg.PollInterval.Duration())
	<-ctx.Done()

	logger.Info("shutting down, waiting for in-flight sweep")
	svc.StopScheduler()
	logger.Info("shutdown complete")
	return nil
}
