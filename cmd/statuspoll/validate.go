package main

import (
	"fmt"

	"github.com/craftwatch/statuspoll/config"
	"github.com/spf13/cobra"
)

// validateCmd validates a config file without starting the poller.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a statuspoll configuration file without starting the poller.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  statuspoll validate -c config.yaml
  statuspoll validate --config /etc/statuspoll/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	srvWithPort := 0
	for _, sv := range cfg.Servers {
		if sv.Port != 0 {
			srvWithPort++
		}
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Poll interval:    %s\n", cfg.PollInterval.Duration())
	fmt.Printf("  Freshness window: %s\n", cfg.FreshnessWindow.Duration())
	fmt.Printf("  Batch size:       %d (pause %s)\n", cfg.BatchSize, cfg.InterBatchDelay.Duration())
	fmt.Printf("  Servers:          %d total, %d with explicit port, %d via SRV/default\n",
		len(cfg.Servers), srvWithPort, len(cfg.Servers)-srvWithPort)

	return nil
}
