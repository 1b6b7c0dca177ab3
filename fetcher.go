package statuspoll

import (
	"context"
	"time"
)

// Fetcher issues one status request for a server against the external
// status API.
//
// A Fetcher makes exactly one attempt per call; retry logic belongs to
// the poller so that cache short-circuiting and retry counting stay
// independently testable. On failure the returned error should be a
// *FetchError so callers can classify it.
//
// The default implementation lives in the mcstatus package.
type Fetcher interface {
	// Fetch returns the raw status payload for host:port together with
	// the request round-trip time. The request must respect both ctx
	// and the given timeout.
	Fetch(ctx context.Context, host string, port int, timeout time.Duration) (raw []byte, latency time.Duration, err error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, host string, port int, timeout time.Duration) ([]byte, time.Duration, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, host string, port int, timeout time.Duration) ([]byte, time.Duration, error) {
	return f(ctx, host, port, timeout)
}
