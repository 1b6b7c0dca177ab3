package statuspoll

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestLimiter_AcquireUpToCapacity(t *testing.T) {
	l := newLimiter(3)

	for i := 0; i < 3; i++ {
		if err := l.acquire(fmt.Sprintf("srv-%d", i)); err != nil {
			t.Fatalf("acquire(srv-%d) = %v, want nil", i, err)
		}
	}
	if got := l.inFlight(); got != 3 {
		t.Errorf("inFlight() = %d, want 3", got)
	}

	err := l.acquire("srv-overflow")
	var rle *RateLimitedError
	if !errors.As(err, &rle) {
		t.Fatalf("acquire at capacity = %v, want *RateLimitedError", err)
	}
	if rle.Capacity != 3 {
		t.Errorf("Capacity = %d, want 3", rle.Capacity)
	}
}

func TestLimiter_ReleaseFreesSlot(t *testing.T) {
	l := newLimiter(1)

	if err := l.acquire("a"); err != nil {
		t.Fatalf("acquire(a) = %v, want nil", err)
	}
	if err := l.acquire("b"); err == nil {
		t.Fatal("acquire(b) = nil, want rate limited")
	}

	l.release("a")
	if err := l.acquire("b"); err != nil {
		t.Errorf("acquire(b) after release = %v, want nil", err)
	}
}

func TestLimiter_RejectsDuplicateServer(t *testing.T) {
	l := newLimiter(10)

	if err := l.acquire("same"); err != nil {
		t.Fatalf("acquire = %v, want nil", err)
	}

	err := l.acquire("same")
	var rle *RateLimitedError
	if !errors.As(err, &rle) {
		t.Fatalf("duplicate acquire = %v, want *RateLimitedError", err)
	}
	if rle.ServerID != "same" {
		t.Errorf("ServerID = %q, want %q", rle.ServerID, "same")
	}
}

func TestLimiter_ReleaseUnknownIsNoop(t *testing.T) {
	l := newLimiter(1)
	l.release("never-acquired")
	if got := l.inFlight(); got != 0 {
		t.Errorf("inFlight() = %d, want 0", got)
	}
}

// TestLimiter_ConcurrentAcquireRelease hammers the limiter from many
// goroutines and checks the capacity invariant is never violated.
// Run with: go test -race .
func TestLimiter_ConcurrentAcquireRelease(t *testing.T) {
	const capacity = 5
	l := newLimiter(capacity)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("srv-%d", i)
			for j := 0; j < 100; j++ {
				if err := l.acquire(id); err != nil {
					continue
				}
				if got := l.inFlight(); got > capacity {
					t.Errorf("inFlight() = %d, want <= %d", got, capacity)
				}
				l.release(id)
			}
		}(i)
	}
	wg.Wait()

	if got := l.inFlight(); got != 0 {
		t.Errorf("inFlight() after all releases = %d, want 0", got)
	}
}
