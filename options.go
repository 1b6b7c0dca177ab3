package statuspoll

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// svcConfig holds the configuration being built by Option functions.
type svcConfig struct {
	store           Store
	fetcher         Fetcher
	logger          *slog.Logger
	clock           func() time.Time
	freshnessWindow time.Duration
	fetchTimeout    time.Duration
	retryAttempts   int
	retryDelay      time.Duration
	maxInFlight     int
	batchSize       int
	interBatchDelay time.Duration
	sweepLimit      int
	resultCallbacks []func(PollResult)
}

// Option configures a [Service] during [New].
type Option func(*svcConfig) error

// WithStore injects the snapshot store. Required.
func WithStore(store Store) Option {
	return func(c *svcConfig) error {
		if store == nil {
			return errors.New("store cannot be nil")
		}
		c.store = store
		return nil
	}
}

// WithFetcher injects the status fetcher. Required.
func WithFetcher(fetcher Fetcher) Option {
	return func(c *svcConfig) error {
		if fetcher == nil {
			return errors.New("fetcher cannot be nil")
		}
		c.fetcher = fetcher
		return nil
	}
}

// WithLogger sets the logger for poll and scheduler events.
// Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *svcConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithClock overrides the time source used for cache-freshness checks
// and result timestamps. Intended for tests.
func WithClock(clock func() time.Time) Option {
	return func(c *svcConfig) error {
		if clock == nil {
			return errors.New("clock cannot be nil")
		}
		c.clock = clock
		return nil
	}
}

// WithFreshnessWindow sets the maximum snapshot age before a server is
// considered stale. Defaults to 10 minutes.
func WithFreshnessWindow(d time.Duration) Option {
	return func(c *svcConfig) error {
		if d <= 0 {
			return fmt.Errorf("freshness window must be positive, got %v", d)
		}
		c.freshnessWindow = d
		return nil
	}
}

// WithFetchTimeout sets the per-request timeout for status fetches.
// Defaults to 5 seconds.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *svcConfig) error {
		if d <= 0 {
			return fmt.Errorf("fetch timeout must be positive, got %v", d)
		}
		c.fetchTimeout = d
		return nil
	}
}

// WithRetries sets the number of retry attempts after the initial fetch
// and the base delay of the linear backoff between attempts.
// Defaults to 2 retries with a 2 second base delay.
func WithRetries(attempts int, delay time.Duration) Option {
	return func(c *svcConfig) error {
		if attempts < 0 {
			return fmt.Errorf("retry attempts cannot be negative, got %d", attempts)
		}
		if delay < 0 {
			return fmt.Errorf("retry delay cannot be negative, got %v", delay)
		}
		c.retryAttempts = attempts
		c.retryDelay = delay
		return nil
	}
}

// WithMaxInFlight caps the number of simultaneous polls. Defaults to 20.
func WithMaxInFlight(n int) Option {
	return func(c *svcConfig) error {
		if n < 1 {
			return fmt.Errorf("max in-flight must be at least 1, got %d", n)
		}
		c.maxInFlight = n
		return nil
	}
}

// WithBatchSize sets how many servers a bulk sweep polls concurrently
// before pausing. Defaults to 10.
func WithBatchSize(n int) Option {
	return func(c *svcConfig) error {
		if n < 1 {
			return fmt.Errorf("batch size must be at least 1, got %d", n)
		}
		c.batchSize = n
		return nil
	}
}

// WithInterBatchDelay sets the pause between consecutive batches of a
// bulk sweep. Zero disables the pause. Defaults to 1 second.
func WithInterBatchDelay(d time.Duration) Option {
	return func(c *svcConfig) error {
		if d < 0 {
			return fmt.Errorf("inter-batch delay cannot be negative, got %v", d)
		}
		c.interBatchDelay = d
		return nil
	}
}

// WithSweepLimit caps how many stale servers a single sweep selects.
// Defaults to 100.
func WithSweepLimit(n int) Option {
	return func(c *svcConfig) error {
		if n < 1 {
			return fmt.Errorf("sweep limit must be at least 1, got %d", n)
		}
		c.sweepLimit = n
		return nil
	}
}

// WithResultCallback registers a function invoked after every completed
// poll, once the snapshot has been persisted. Callbacks run on the
// polling goroutine; panics are recovered and logged with a correlation
// id rather than propagated. May be used multiple times.
func WithResultCallback(fn func(PollResult)) Option {
	return func(c *svcConfig) error {
		if fn == nil {
			return errors.New("result callback cannot be nil")
		}
		c.resultCallbacks = append(c.resultCallbacks, fn)
		return nil
	}
}

// PollOption configures a single [Service.Poll] call.
type PollOption func(*pollOptions)

type pollOptions struct {
	forceRefresh bool
}

// ForceRefresh skips the cache check so the poll always hits the
// status API, even when a fresh snapshot exists.
func ForceRefresh() PollOption {
	return func(o *pollOptions) {
		o.forceRefresh = true
	}
}
