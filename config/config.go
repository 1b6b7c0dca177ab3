// Package config provides YAML configuration parsing for the statuspoll
// CLI.
//
// This enables running the poller as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK
// approach.
//
// Example configuration:
//
//	poll_interval: 10m
//	freshness_window: 10m
//	batch_size: 10
//
//	status_api:
//	  base_url: https://api.mcsrvstat.us/3
//	  requests_per_second: 5
//
//	servers:
//	  - id: hypixel
//	    name: Hypixel
//	    host: mc.hypixel.net
//	  - id: local
//	    host: 127.0.0.1
//	    port: 25565
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// minPollInterval is the minimum allowed sweep interval. This prevents
// accidental DoS of the upstream status API.
const minPollInterval = 10 * time.Second

// Config is the root configuration structure.
//
// It maps directly to the YAML configuration file. Use [Load] or
// [Parse] to create one.
type Config struct {
	// PollInterval is the time between scheduler sweeps. Defaults to
	// the freshness window so the sweep cadence matches staleness.
	PollInterval Duration `yaml:"poll_interval"`

	// FreshnessWindow is the maximum snapshot age before a server is
	// re-polled. Defaults to 10m.
	FreshnessWindow Duration `yaml:"freshness_window"`

	// FetchTimeout bounds each status API request. Defaults to 5s.
	FetchTimeout Duration `yaml:"fetch_timeout"`

	// RetryAttempts is the number of retries after the initial fetch.
	// Defaults to 2.
	RetryAttempts int `yaml:"retry_attempts"`

	// RetryDelay is the base delay of the linear retry backoff.
	// Defaults to 2s.
	RetryDelay Duration `yaml:"retry_delay"`

	// MaxInFlight caps concurrent polls. Defaults to 20.
	MaxInFlight int `yaml:"max_in_flight"`

	// BatchSize is how many servers a sweep polls at once. Defaults to 10.
	BatchSize int `yaml:"batch_size"`

	// InterBatchDelay is the pause between sweep batches. Defaults to 1s.
	InterBatchDelay Duration `yaml:"inter_batch_delay"`

	// SweepLimit caps how many stale servers one sweep selects.
	// Defaults to 100.
	SweepLimit int `yaml:"sweep_limit"`

	// StatusAPI configures the upstream status API client.
	StatusAPI StatusAPIConfig `yaml:"status_api"`

	// Servers is the registry of servers to keep fresh.
	Servers []ServerConfig `yaml:"servers"`
}

// StatusAPIConfig configures the upstream status API client.
type StatusAPIConfig struct {
	// BaseURL is the status API endpoint. Supports environment variable
	// substitution: ${VAR} or ${VAR:-default}.
	BaseURL string `yaml:"base_url"`

	// RequestsPerSecond paces requests to the upstream. Defaults to 5.
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst is the pacing token bucket size. Defaults to 10.
	Burst int `yaml:"burst"`

	// DNSServer is the host:port answering SRV lookups for servers
	// without an explicit port. Empty uses the built-in default.
	DNSServer string `yaml:"dns_server"`
}

// ServerConfig defines one registered server.
type ServerConfig struct {
	// ID uniquely identifies the server.
	ID string `yaml:"id"`

	// Name is a human-readable label. Defaults to the id.
	Name string `yaml:"name"`

	// Host is the server address. Supports environment variable
	// substitution.
	Host string `yaml:"host"`

	// Port is the game port. Zero means resolve via SRV or use the
	// game's default port.
	Port int `yaml:"port"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with
// environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data, applies defaults, expands
// environment variables, and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.FreshnessWindow == 0 {
		c.FreshnessWindow = Duration(10 * time.Minute)
	}
	if c.PollInterval == 0 {
		c.PollInterval = c.FreshnessWindow
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = Duration(5 * time.Second)
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = 2
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = Duration(2 * time.Second)
	}
	if c.MaxInFlight == 0 {
		c.MaxInFlight = 20
	}
	if c.BatchSize == 0 {
		c.BatchSize = 10
	}
	if c.InterBatchDelay == 0 {
		c.InterBatchDelay = Duration(1 * time.Second)
	}
	if c.SweepLimit == 0 {
		c.SweepLimit = 100
	}
	if c.StatusAPI.RequestsPerSecond == 0 {
		c.StatusAPI.RequestsPerSecond = 5
	}
	if c.StatusAPI.Burst == 0 {
		c.StatusAPI.Burst = 10
	}
}

// expandAndValidate expands environment variables and validates the
// config.
func (c *Config) expandAndValidate() error {
	if c.PollInterval.Duration() < minPollInterval {
		return fmt.Errorf("poll_interval must be at least %s, got %s", minPollInterval, c.PollInterval.Duration())
	}
	if c.FreshnessWindow.Duration() <= 0 {
		return fmt.Errorf("freshness_window must be positive, got %s", c.FreshnessWindow.Duration())
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("retry_attempts cannot be negative, got %d", c.RetryAttempts)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be at least 1, got %d", c.BatchSize)
	}
	if c.MaxInFlight < 1 {
		return fmt.Errorf("max_in_flight must be at least 1, got %d", c.MaxInFlight)
	}

	if c.StatusAPI.BaseURL != "" {
		expanded, err := expandEnvVars(c.StatusAPI.BaseURL)
		if err != nil {
			return fmt.Errorf("status_api.base_url: %w", err)
		}
		c.StatusAPI.BaseURL = expanded
	}

	seen := make(map[string]bool, len(c.Servers))
	for i := range c.Servers {
		sv := &c.Servers[i]

		if sv.ID == "" {
			return fmt.Errorf("servers[%d]: id is required", i)
		}
		if seen[sv.ID] {
			return fmt.Errorf("servers[%d]: duplicate server id %q", i, sv.ID)
		}
		seen[sv.ID] = true

		if sv.Host == "" {
			return fmt.Errorf("servers[%d] (%s): host is required", i, sv.ID)
		}
		expanded, err := expandEnvVars(sv.Host)
		if err != nil {
			return fmt.Errorf("servers[%d] (%s): host: %w", i, sv.ID, err)
		}
		sv.Host = expanded

		if sv.Port < 0 || sv.Port > 65535 {
			return fmt.Errorf("servers[%d] (%s): port must be between 0 and 65535, got %d", i, sv.ID, sv.Port)
		}
		if sv.Name == "" {
			sv.Name = sv.ID
		}
	}

	return nil
}
