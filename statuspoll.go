package statuspoll

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultFreshnessWindow = 10 * time.Minute
	defaultFetchTimeout    = 5 * time.Second
	defaultRetryAttempts   = 2
	defaultRetryDelay      = 2 * time.Second
	defaultMaxInFlight     = 20
	defaultBatchSize       = 10
	defaultInterBatchDelay = 1 * time.Second
	defaultSweepLimit      = 100
)

// Service is the status-polling subsystem. It decides which servers
// need a fresh check, fetches their live status, normalizes it, and
// feeds the resulting snapshots back into the injected [Store].
//
// A Service is created with [New] and injected dependencies, so
// multiple independent instances can coexist (and be tested) in one
// process. All methods are safe for concurrent use.
type Service struct {
	store           Store
	fetcher         Fetcher
	logger          *slog.Logger
	clock           func() time.Time
	freshnessWindow time.Duration
	fetchTimeout    time.Duration
	retryAttempts   int
	retryDelay      time.Duration
	batchSize       int
	interBatchDelay time.Duration
	sweepLimit      int
	limiter         *limiter
	resultCallbacks []func(PollResult)

	schedMu      sync.Mutex
	schedRunning bool
	schedDone    chan struct{}
	schedWG      sync.WaitGroup
}

// New creates a [Service] with the given options.
//
// A [Store] and a [Fetcher] are required; everything else has defaults:
// 10 minute freshness window, 2 retries with 2s linear backoff, 5s
// fetch timeout, 20 in-flight polls, batches of 10 with a 1s pause.
//
// Example:
//
//	svc, err := statuspoll.New(
//	    statuspoll.WithStore(store),
//	    statuspoll.WithFetcher(mcstatus.NewClient()),
//	    statuspoll.WithFreshnessWindow(5 * time.Minute),
//	)
func New(opts ...Option) (*Service, error) {
	cfg := &svcConfig{
		freshnessWindow: defaultFreshnessWindow,
		fetchTimeout:    defaultFetchTimeout,
		retryAttempts:   defaultRetryAttempts,
		retryDelay:      defaultRetryDelay,
		maxInFlight:     defaultMaxInFlight,
		batchSize:       defaultBatchSize,
		interBatchDelay: defaultInterBatchDelay,
		sweepLimit:      defaultSweepLimit,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.store == nil {
		return nil, errors.New("a store is required (use WithStore)")
	}
	if cfg.fetcher == nil {
		return nil, errors.New("a fetcher is required (use WithFetcher)")
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.clock
	if clock == nil {
		clock = time.Now
	}

	return &Service{
		store:           cfg.store,
		fetcher:         cfg.fetcher,
		logger:          logger,
		clock:           clock,
		freshnessWindow: cfg.freshnessWindow,
		fetchTimeout:    cfg.fetchTimeout,
		retryAttempts:   cfg.retryAttempts,
		retryDelay:      cfg.retryDelay,
		batchSize:       cfg.batchSize,
		interBatchDelay: cfg.interBatchDelay,
		sweepLimit:      cfg.sweepLimit,
		limiter:         newLimiter(cfg.maxInFlight),
		resultCallbacks: cfg.resultCallbacks,
	}, nil
}

// FreshnessWindow returns the configured maximum snapshot age before a
// server is considered stale.
func (s *Service) FreshnessWindow() time.Duration {
	return s.freshnessWindow
}

// notify invokes the registered result callbacks for a completed poll.
// Callbacks fire after the snapshot has been persisted. A panicking
// callback is recovered and logged with a correlation id so it cannot
// take down the polling goroutine.
func (s *Service) notify(result PollResult) {
	for _, cb := range s.resultCallbacks {
		s.invokeCallbackSafe(cb, result)
	}
}

func (s *Service) invokeCallbackSafe(cb func(PollResult), result PollResult) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			s.logger.Error("result callback panicked",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"server_id", result.ServerID,
			)
		}
	}()
	cb(result)
}
