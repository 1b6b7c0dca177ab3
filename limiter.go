package statuspoll

import "sync"

// limiter caps the number of polls simultaneously in flight. It is a
// counted semaphore over the set of in-flight server ids: acquire fails
// fast at capacity instead of queueing, and a server already in flight
// cannot be acquired a second time.
type limiter struct {
	mu       sync.Mutex
	capacity int
	inflight map[string]struct{}
}

func newLimiter(capacity int) *limiter {
	return &limiter{
		capacity: capacity,
		inflight: make(map[string]struct{}, capacity),
	}
}

// acquire claims a slot for the server. Returns a *RateLimitedError
// when the limiter is at capacity or the server is already in flight.
func (l *limiter) acquire(serverID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.inflight[serverID]; busy {
		return &RateLimitedError{ServerID: serverID, Capacity: l.capacity}
	}
	if len(l.inflight) >= l.capacity {
		return &RateLimitedError{ServerID: serverID, Capacity: l.capacity}
	}
	l.inflight[serverID] = struct{}{}
	return nil
}

// release frees the server's slot. Callers pair every successful
// acquire with exactly one deferred release so slots cannot leak on any
// exit path.
func (l *limiter) release(serverID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inflight, serverID)
}

// inFlight returns the number of currently held slots.
func (l *limiter) inFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.inflight)
}
