package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/craftwatch/statuspoll"
	"github.com/craftwatch/statuspoll/config"
	"github.com/spf13/cobra"
)

// checkCmd polls a single configured server once and prints the result.
var checkCmd = &cobra.Command{
	Use:   "check <server-id>",
	Short: "Poll one server now",
	Long: `Poll one configured server immediately and print the result as JSON.

By default the poll may be satisfied by a fresh cached snapshot; pass
--force to always hit the status API.

Example:
  statuspoll check -c config.yaml hypixel
  statuspoll check -c config.yaml --force hypixel`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	checkCmd.Flags().BoolP("force", "f", false, "skip the cache and always fetch")
	_ = checkCmd.MarkFlagRequired("config")
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	serverID := args[0]

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	svc, _, err := buildService(cfg, logger)
	if err != nil {
		return err
	}

	force, _ := cmd.Flags().GetBool("force")
	var opts []statuspoll.PollOption
	if force {
		opts = append(opts, statuspoll.ForceRefresh())
	}

	result, err := svc.Poll(context.Background(), serverID, opts...)
	if err != nil {
		return fmt.Errorf("poll failed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
