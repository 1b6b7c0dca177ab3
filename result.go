package statuspoll

import "time"

// PollResult is the ephemeral outcome of one poll attempt, returned
// synchronously to callers. It is never persisted; the durable record
// is the Snapshot the poller appends to the store.
type PollResult struct {
	// ServerID is the polled server.
	ServerID string `json:"server_id"`

	// Online reports the server's reachability as of this poll.
	Online bool `json:"online"`

	// Data is the snapshot backing this result: a fresh cached one on
	// cache hits, the newly persisted one otherwise. Nil only when all
	// fetch attempts failed.
	Data *Snapshot `json:"data"`

	// PingTimeMs is the status request round-trip in milliseconds, or
	// nil when no request was made.
	PingTimeMs *int64 `json:"ping_time_ms"`

	// Error is the failure message for recovered failures. Empty on
	// success and on cache hits.
	Error string `json:"error,omitempty"`

	// CacheHit reports that a fresh snapshot satisfied the poll without
	// a network call.
	CacheHit bool `json:"cache_hit,omitempty"`

	// Timestamp is when the poll completed.
	Timestamp time.Time `json:"timestamp"`
}

// Failed reports whether this result represents a recovered failure
// (all fetch attempts exhausted).
func (r PollResult) Failed() bool {
	return r.Error != ""
}

// BatchSummary is the ephemeral outcome of one bulk sweep.
type BatchSummary struct {
	// Attempted is the number of servers polled.
	Attempted int `json:"attempted"`

	// Successful counts polls that produced a real status, online or
	// offline. Cache hits count as successful.
	Successful int `json:"successful"`

	// Failed counts recovered failures (retry exhaustion, rejected
	// acquires).
	Failed int `json:"failed"`

	// DurationMs is the wall-clock duration of the whole sweep.
	DurationMs int64 `json:"duration_ms"`

	// Results holds one entry per attempted server, in input order.
	Results []PollResult `json:"results"`
}

func summarize(results []PollResult, elapsed time.Duration) BatchSummary {
	sum := BatchSummary{
		Attempted:  len(results),
		DurationMs: elapsed.Milliseconds(),
		Results:    results,
	}
	for _, r := range results {
		if r.Failed() {
			sum.Failed++
		} else {
			sum.Successful++
		}
	}
	return sum
}
