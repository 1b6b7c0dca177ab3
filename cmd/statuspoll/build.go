package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/craftwatch/statuspoll"
	"github.com/craftwatch/statuspoll/config"
	"github.com/craftwatch/statuspoll/mcstatus"
	"github.com/craftwatch/statuspoll/memstore"
)

// newLogger creates a JSON logger for CLI use.
func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// buildService wires a Service from a config file: an in-memory store
// seeded with the configured servers and the default status API client.
func buildService(cfg *config.Config, logger *slog.Logger) (*statuspoll.Service, *memstore.MemoryStore, error) {
	store := memstore.New()
	for _, sv := range cfg.Servers {
		ref := statuspoll.ServerRef{
			ID:   sv.ID,
			Name: sv.Name,
			Host: sv.Host,
			Port: sv.Port,
		}
		if err := store.AddServer(ref); err != nil {
			return nil, nil, fmt.Errorf("failed to register server %q: %w", sv.ID, err)
		}
	}

	clientOpts := []mcstatus.ClientOption{
		mcstatus.WithRateLimit(cfg.StatusAPI.RequestsPerSecond, cfg.StatusAPI.Burst),
	}
	if cfg.StatusAPI.BaseURL != "" {
		clientOpts = append(clientOpts, mcstatus.WithBaseURL(cfg.StatusAPI.BaseURL))
	}
	if cfg.StatusAPI.DNSServer != "" {
		clientOpts = append(clientOpts,
			mcstatus.WithResolver(mcstatus.NewResolver(mcstatus.WithDNSServer(cfg.StatusAPI.DNSServer))))
	}
	client := mcstatus.NewClient(clientOpts...)

	svc, err := statuspoll.New(
		statuspoll.WithStore(store),
		statuspoll.WithFetcher(client),
		statuspoll.WithLogger(logger),
		statuspoll.WithFreshnessWindow(cfg.FreshnessWindow.Duration()),
		statuspoll.WithFetchTimeout(cfg.FetchTimeout.Duration()),
		statuspoll.WithRetries(cfg.RetryAttempts, cfg.RetryDelay.Duration()),
		statuspoll.WithMaxInFlight(cfg.MaxInFlight),
		statuspoll.WithBatchSize(cfg.BatchSize),
		statuspoll.WithInterBatchDelay(cfg.InterBatchDelay.Duration()),
		statuspoll.WithSweepLimit(cfg.SweepLimit),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create poller: %w", err)
	}
	return svc, store, nil
}
