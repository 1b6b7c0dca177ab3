package statuspoll

import "fmt"

// NotFoundError reports a poll of a server id that is not in the
// registry. It is propagated to the direct caller and never retried.
type NotFoundError struct {
	ServerID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("server %q not found", e.ServerID)
}

// FetchReason classifies why a status fetch failed.
type FetchReason string

const (
	// FetchTimeout means the request exceeded its deadline.
	FetchTimeout FetchReason = "timeout"

	// FetchHTTPError means the status API answered with a non-success
	// HTTP status.
	FetchHTTPError FetchReason = "http_error"

	// FetchNetworkError covers transport failures: DNS, connection
	// refused, resets, malformed responses.
	FetchNetworkError FetchReason = "network_error"
)

// FetchError reports a single failed call to the status API. The poller
// retries these up to its configured attempt count before recovering
// the failure into an offline snapshot.
type FetchError struct {
	Reason FetchReason
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch failed: %s", e.Reason)
	}
	return fmt.Sprintf("fetch failed (%s): %v", e.Reason, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// RateLimitedError reports that a poll was rejected because the
// in-flight limiter is at capacity (or the same server is already being
// polled). The poller fails fast instead of queueing; bulk sweeps rely
// on batching, not on individual calls waiting for a slot.
type RateLimitedError struct {
	ServerID string
	Capacity int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("poll of server %q rejected: %d polls already in flight", e.ServerID, e.Capacity)
}
