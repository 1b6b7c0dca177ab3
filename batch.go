package statuspoll

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// PollAllDue selects every server whose status is stale (or that has
// never been checked) and polls them in batches, returning a summary.
//
// Selection is capped at the configured sweep limit and ordered
// oldest-checked first. Selected servers are polled with a forced
// refresh, since the store has already judged them stale. Individual
// failures never abort the sweep; they appear as failed entries in the
// summary.
func (s *Service) PollAllDue(ctx context.Context) (BatchSummary, error) {
	start := time.Now()

	refs, err := s.store.StaleServers(ctx, s.sweepLimit, s.freshnessWindow)
	if err != nil {
		return BatchSummary{}, fmt.Errorf("failed to select stale servers: %w", err)
	}
	if len(refs) == 0 {
		return BatchSummary{Results: []PollResult{}}, nil
	}

	results := s.pollMany(ctx, refs, true)
	summary := summarize(results, time.Since(start))

	s.logger.Info("sweep completed",
		"attempted", summary.Attempted,
		"successful", summary.Successful,
		"failed", summary.Failed,
		"duration_ms", summary.DurationMs,
	)
	return summary, nil
}

// pollMany polls the given servers in consecutive batches of batchSize,
// pausing interBatchDelay between batches (never after the last one).
// Within a batch all polls run concurrently and all settle before the
// next batch starts; results are returned in input order regardless of
// completion order.
func (s *Service) pollMany(ctx context.Context, refs []ServerRef, forceRefresh bool) []PollResult {
	results := make([]PollResult, len(refs))

	for start := 0; start < len(refs); start += s.batchSize {
		end := start + s.batchSize
		if end > len(refs) {
			end = len(refs)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int, ref ServerRef) {
				defer wg.Done()
				results[i] = s.pollSettled(ctx, ref, forceRefresh)
			}(i, refs[i])
		}
		wg.Wait()

		if end < len(refs) && s.interBatchDelay > 0 {
			select {
			case <-time.After(s.interBatchDelay):
			case <-ctx.Done():
				return results
			}
		}
	}
	return results
}

// pollSettled runs one poll and folds any structural error (rejected
// acquire, vanished server) into a failed result, so a batch never
// carries an unhandled error.
func (s *Service) pollSettled(ctx context.Context, ref ServerRef, forceRefresh bool) PollResult {
	result, err := s.pollRef(ctx, ref, forceRefresh)
	if err != nil {
		return PollResult{
			ServerID:  ref.ID,
			Online:    false,
			Error:     err.Error(),
			Timestamp: s.clock(),
		}
	}
	return result
}
