package statuspoll

import (
	"context"
	"time"
)

// Poll checks one server's status and returns the result.
//
// Unless [ForceRefresh] is given, a non-placeholder snapshot newer than
// the freshness window satisfies the poll without a network call.
// Otherwise the status API is queried with bounded retries; when every
// attempt fails the failure is recovered into a persisted offline
// snapshot and reported in the result, not as an error.
//
// Poll returns an error only for structurally invalid calls: an unknown
// server id (*NotFoundError) or no free limiter slot
// (*RateLimitedError). Neither is retried here.
func (s *Service) Poll(ctx context.Context, serverID string, opts ...PollOption) (PollResult, error) {
	var po pollOptions
	for _, opt := range opts {
		opt(&po)
	}

	ref, err := s.store.GetServer(ctx, serverID)
	if err != nil {
		return PollResult{}, err
	}
	return s.pollRef(ctx, ref, po.forceRefresh)
}

// pollRef runs the full single-server algorithm for an already resolved
// server: acquire a slot, cache check, fetch with retries, persist.
func (s *Service) pollRef(ctx context.Context, ref ServerRef, forceRefresh bool) (PollResult, error) {
	if err := s.limiter.acquire(ref.ID); err != nil {
		return PollResult{}, err
	}
	defer s.limiter.release(ref.ID)

	if !forceRefresh {
		if result, ok := s.cachedResult(ctx, ref.ID); ok {
			s.logger.Debug("poll served from cache",
				"server_id", ref.ID,
				"snapshot_age", s.clock().Sub(result.Data.CreatedAt).String(),
			)
			return result, nil
		}
	}

	raw, latency, err := s.fetchWithRetries(ctx, ref)
	if err != nil {
		return s.recoverFailure(ctx, ref, err), nil
	}

	snap := Normalize(raw)
	snap.ServerID = ref.ID
	ms := latency.Milliseconds()
	snap.PingTimeMs = &ms
	snap.CreatedAt = s.clock()

	if id, err := s.store.InsertSnapshot(ctx, ref.ID, snap); err != nil {
		s.logger.Warn("failed to persist snapshot",
			"server_id", ref.ID,
			"error", err.Error(),
		)
	} else {
		snap.ID = id
	}

	result := PollResult{
		ServerID:   ref.ID,
		Online:     snap.Online,
		Data:       &snap,
		PingTimeMs: snap.PingTimeMs,
		Timestamp:  snap.CreatedAt,
	}
	s.logger.Debug("poll completed",
		"server_id", ref.ID,
		"online", snap.Online,
		"ping_ms", ms,
	)
	s.notify(result)
	return result, nil
}

// cachedResult returns a cache-hit result when a fresh, non-placeholder
// snapshot exists. Placeholders are skipped so a just-registered server
// is polled promptly instead of reusing its synthetic offline record.
func (s *Service) cachedResult(ctx context.Context, serverID string) (PollResult, bool) {
	latest, err := s.store.LatestSnapshot(ctx, serverID)
	if err != nil {
		s.logger.Warn("cache lookup failed, polling anyway",
			"server_id", serverID,
			"error", err.Error(),
		)
		return PollResult{}, false
	}
	if latest == nil || latest.Placeholder {
		return PollResult{}, false
	}
	now := s.clock()
	if now.Sub(latest.CreatedAt) >= s.freshnessWindow {
		return PollResult{}, false
	}
	return PollResult{
		ServerID:   serverID,
		Online:     latest.Online,
		Data:       latest,
		PingTimeMs: latest.PingTimeMs,
		CacheHit:   true,
		Timestamp:  now,
	}, true
}

// fetchWithRetries attempts the status fetch up to retryAttempts+1
// times with linear backoff between attempts.
func (s *Service) fetchWithRetries(ctx context.Context, ref ServerRef) ([]byte, time.Duration, error) {
	var raw []byte
	var latency time.Duration
	err := withRetries(ctx, s.retryAttempts, s.retryDelay, func(attempt int) error {
		b, lat, ferr := s.fetcher.Fetch(ctx, ref.Host, ref.Port, s.fetchTimeout)
		if ferr != nil {
			s.logger.Debug("status fetch failed",
				"server_id", ref.ID,
				"attempt", attempt+1,
				"error", ferr.Error(),
			)
			return ferr
		}
		raw, latency = b, lat
		return nil
	})
	return raw, latency, err
}

// recoverFailure persists a synthetic offline snapshot after retry
// exhaustion and turns the error into a regular result, so batch
// callers never need per-item error handling.
func (s *Service) recoverFailure(ctx context.Context, ref ServerRef, fetchErr error) PollResult {
	msg := fetchErr.Error()
	now := s.clock()

	offline := Snapshot{
		ServerID:  ref.ID,
		Online:    false,
		Error:     msg,
		CreatedAt: now,
	}
	if _, err := s.store.InsertSnapshot(ctx, ref.ID, offline); err != nil {
		s.logger.Warn("failed to persist offline snapshot",
			"server_id", ref.ID,
			"error", err.Error(),
		)
	}

	s.logger.Warn("poll exhausted all attempts",
		"server_id", ref.ID,
		"attempts", s.retryAttempts+1,
		"error", msg,
	)

	result := PollResult{
		ServerID:  ref.ID,
		Online:    false,
		Error:     msg,
		Timestamp: now,
	}
	s.notify(result)
	return result
}
