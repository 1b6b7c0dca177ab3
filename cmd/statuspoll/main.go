// Package main is the entry point for the statuspoll CLI.
//
// The poller can be embedded as a library or run standalone with YAML
// configuration. This CLI provides the standalone approach.
//
// Usage:
//
//	statuspoll serve -c config.yaml      # Run the recurring scheduler
//	statuspoll check -c config.yaml ID   # Poll one server now
//	statuspoll validate -c config.yaml   # Validate configuration
//	statuspoll version                   # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "statuspoll",
	Short: "Keep game server statuses fresh",
	Long: `statuspoll keeps the live status of listed game servers fresh.

It polls an external status API for each configured server, normalizes
the response into a canonical snapshot, and stores one append-only
record per check. Stale servers are re-polled on a schedule, in batches,
under a bounded concurrency cap.

Quick start:
  1. Create a config file (statuspoll.yaml)
  2. Run: statuspoll serve -c statuspoll.yaml

Example config:
  poll_interval: 10m
  freshness_window: 10m
  servers:
    - id: hypixel
      name: Hypixel
      host: mc.hypixel.net`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this statuspoll binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("statuspoll %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
