package statuspoll_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/craftwatch/statuspoll"
	"github.com/craftwatch/statuspoll/memstore"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const onlinePayload = `{"online":true,"players":{"online":3,"max":20},"version":"1.21.8","software":"Paper"}`

// fakeFetcher is an instrumented Fetcher: it counts calls, tracks how
// many are simultaneously in flight, and can fail per host or block
// until released.
type fakeFetcher struct {
	mu          sync.Mutex
	calls       int
	inFlight    int
	maxInFlight int

	payload   []byte
	err       error
	failHosts map[string]error
	delay     time.Duration
	block     chan struct{} // when non-nil, Fetch waits for it to close

	started     chan struct{} // closed when the first Fetch begins
	startedOnce sync.Once
}

func (f *fakeFetcher) Fetch(_ context.Context, host string, _ int, _ time.Duration) ([]byte, time.Duration, error) {
	f.mu.Lock()
	f.calls++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	payload, err, delay, block := f.payload, f.err, f.delay, f.block
	if hostErr, ok := f.failHosts[host]; ok {
		err = hostErr
	}
	started := f.started
	f.mu.Unlock()

	if started != nil {
		f.startedOnce.Do(func() { close(started) })
	}

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if block != nil {
		<-block
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, 0, err
	}
	if payload == nil {
		payload = []byte(onlinePayload)
	}
	return payload, 12 * time.Millisecond, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeFetcher) maxConcurrent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

// newTestService builds a Service over the given store and fetcher with
// fast retry and batch timings. Extra options override the defaults.
func newTestService(t *testing.T, store statuspoll.Store, fetcher statuspoll.Fetcher, opts ...statuspoll.Option) *statuspoll.Service {
	t.Helper()

	base := []statuspoll.Option{
		statuspoll.WithStore(store),
		statuspoll.WithFetcher(fetcher),
		statuspoll.WithLogger(testLogger()),
		statuspoll.WithRetries(2, time.Millisecond),
		statuspoll.WithInterBatchDelay(0),
	}
	svc, err := statuspoll.New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	return svc
}

// addServers registers n servers with zero-padded ids so stale-server
// ordering of never-checked servers is deterministic.
func addServers(t *testing.T, store *memstore.MemoryStore, n int) []string {
	t.Helper()

	ids := make([]string, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("srv-%02d", i)
		ids[i] = id
		err := store.AddServer(statuspoll.ServerRef{
			ID:   id,
			Name: id,
			Host: id + ".example.com",
			Port: 25565,
		})
		if err != nil {
			t.Fatalf("AddServer(%s) = %v", id, err)
		}
	}
	return ids
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestPoll_FreshServerFetchesAndPersists(t *testing.T) {
	store := memstore.New()
	ids := addServers(t, store, 1)
	fetcher := &fakeFetcher{}
	svc := newTestService(t, store, fetcher)

	result, err := svc.Poll(context.Background(), ids[0])
	if err != nil {
		t.Fatalf("Poll() = %v", err)
	}

	if !result.Online {
		t.Error("result.Online = false, want true")
	}
	if result.Data == nil {
		t.Fatal("result.Data = nil, want snapshot")
	}
	if result.Data.ServerID != ids[0] {
		t.Errorf("Data.ServerID = %q, want %q", result.Data.ServerID, ids[0])
	}
	if result.PingTimeMs == nil || *result.PingTimeMs != 12 {
		t.Errorf("PingTimeMs = %v, want 12", result.PingTimeMs)
	}
	if result.CacheHit {
		t.Error("CacheHit = true, want false for first real poll")
	}

	// placeholder from registration plus the real snapshot
	if got := store.SnapshotCount(ids[0]); got != 2 {
		t.Errorf("SnapshotCount = %d, want 2", got)
	}
	latest, err := store.LatestSnapshot(context.Background(), ids[0])
	if err != nil || latest == nil {
		t.Fatalf("LatestSnapshot() = %v, %v", latest, err)
	}
	if latest.Placeholder {
		t.Error("latest snapshot is still the placeholder")
	}
	if latest.Version == nil || *latest.Version != "1.21.8" {
		t.Errorf("latest.Version = %v, want 1.21.8", latest.Version)
	}
}

func TestPoll_CacheIdempotence(t *testing.T) {
	store := memstore.New()
	ids := addServers(t, store, 1)
	fetcher := &fakeFetcher{}
	svc := newTestService(t, store, fetcher)

	first, err := svc.Poll(context.Background(), ids[0])
	if err != nil {
		t.Fatalf("first Poll() = %v", err)
	}
	second, err := svc.Poll(context.Background(), ids[0])
	if err != nil {
		t.Fatalf("second Poll() = %v", err)
	}

	if got := fetcher.callCount(); got != 1 {
		t.Errorf("fetcher calls = %d, want 1 (second poll served from cache)", got)
	}
	if !second.CacheHit {
		t.Error("second.CacheHit = false, want true")
	}
	if second.Data == nil || first.Data == nil {
		t.Fatal("expected snapshot data on both results")
	}
	if second.Data.ID != first.Data.ID {
		t.Errorf("second.Data.ID = %q, want %q (same snapshot)", second.Data.ID, first.Data.ID)
	}
}

func TestPoll_PlaceholderNeverSatisfiesCache(t *testing.T) {
	store := memstore.New()
	ids := addServers(t, store, 1)
	fetcher := &fakeFetcher{}
	svc := newTestService(t, store, fetcher)

	// the just-seeded placeholder is brand new, yet the poll must fetch
	result, err := svc.Poll(context.Background(), ids[0])
	if err != nil {
		t.Fatalf("Poll() = %v", err)
	}
	if result.CacheHit {
		t.Error("CacheHit = true, want false: placeholder must not act as cache")
	}
	if got := fetcher.callCount(); got != 1 {
		t.Errorf("fetcher calls = %d, want 1", got)
	}
}

func TestPoll_ForceRefreshBypassesCache(t *testing.T) {
	store := memstore.New()
	ids := addServers(t, store, 1)
	fetcher := &fakeFetcher{}
	svc := newTestService(t, store, fetcher)

	for i := 0; i < 2; i++ {
		if _, err := svc.Poll(context.Background(), ids[0], statuspoll.ForceRefresh()); err != nil {
			t.Fatalf("Poll() #%d = %v", i+1, err)
		}
	}
	if got := fetcher.callCount(); got != 2 {
		t.Errorf("fetcher calls = %d, want 2", got)
	}
}

func TestPoll_UnknownServer(t *testing.T) {
	store := memstore.New()
	svc := newTestService(t, store, &fakeFetcher{})

	_, err := svc.Poll(context.Background(), "nope")
	var nfe *statuspoll.NotFoundError
	if !errors.As(err, &nfe) {
		t.Fatalf("Poll(unknown) = %v, want *NotFoundError", err)
	}
	if nfe.ServerID != "nope" {
		t.Errorf("ServerID = %q, want %q", nfe.ServerID, "nope")
	}
}

func TestPoll_RecoversFetchFailure(t *testing.T) {
	store := memstore.New()
	ids := addServers(t, store, 1)
	fetcher := &fakeFetcher{
		err: &statuspoll.FetchError{Reason: statuspoll.FetchTimeout, Err: errors.New("deadline exceeded")},
	}
	svc := newTestService(t, store, fetcher)

	result, err := svc.Poll(context.Background(), ids[0])
	if err != nil {
		t.Fatalf("Poll() = %v, want recovered failure, not error", err)
	}

	if got := fetcher.callCount(); got != 3 {
		t.Errorf("fetcher calls = %d, want retryAttempts+1 = 3", got)
	}
	if result.Online {
		t.Error("result.Online = true, want false")
	}
	if result.Error == "" {
		t.Error("result.Error is empty, want failure message")
	}
	if result.Data != nil {
		t.Errorf("result.Data = %+v, want nil on exhausted retries", result.Data)
	}

	// a synthetic offline snapshot must still have been persisted
	latest, err := store.LatestSnapshot(context.Background(), ids[0])
	if err != nil || latest == nil {
		t.Fatalf("LatestSnapshot() = %v, %v", latest, err)
	}
	if latest.Online {
		t.Error("persisted snapshot.Online = true, want false")
	}
	if latest.Error == "" {
		t.Error("persisted snapshot.Error is empty, want failure message")
	}
	if latest.Placeholder {
		t.Error("persisted snapshot is a placeholder, want a real offline record")
	}
}

func TestPoll_RateLimitedFailsFast(t *testing.T) {
	store := memstore.New()
	ids := addServers(t, store, 2)
	block := make(chan struct{})
	fetcher := &fakeFetcher{block: block, started: make(chan struct{})}
	svc := newTestService(t, store, fetcher, statuspoll.WithMaxInFlight(1))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.Poll(context.Background(), ids[0])
	}()
	<-fetcher.started

	// the single slot is held by the blocked poll; this must fail
	// immediately instead of queueing
	start := time.Now()
	_, err := svc.Poll(context.Background(), ids[1])
	var rle *statuspoll.RateLimitedError
	if !errors.As(err, &rle) {
		t.Fatalf("Poll() = %v, want *RateLimitedError", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("rejected poll took %v, want fail-fast", elapsed)
	}

	close(block)
	<-done

	// slot released, polling works again
	if _, err := svc.Poll(context.Background(), ids[1]); err != nil {
		t.Errorf("Poll() after release = %v, want nil", err)
	}
}

func TestPoll_ResultCallbacks(t *testing.T) {
	store := memstore.New()
	ids := addServers(t, store, 1)
	fetcher := &fakeFetcher{}

	var mu sync.Mutex
	var seen []statuspoll.PollResult

	svc := newTestService(t, store, fetcher,
		statuspoll.WithResultCallback(func(statuspoll.PollResult) {
			panic("misbehaving subscriber")
		}),
		statuspoll.WithResultCallback(func(r statuspoll.PollResult) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, r)
		}),
	)

	// the panicking callback must not prevent the poll from completing
	// or the second callback from running
	result, err := svc.Poll(context.Background(), ids[0])
	if err != nil {
		t.Fatalf("Poll() = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 {
		t.Fatalf("callback invocations = %d, want 1", len(seen))
	}
	if seen[0].ServerID != result.ServerID {
		t.Errorf("callback ServerID = %q, want %q", seen[0].ServerID, result.ServerID)
	}
}

func TestNew_RequiresStoreAndFetcher(t *testing.T) {
	if _, err := statuspoll.New(statuspoll.WithFetcher(&fakeFetcher{})); err == nil {
		t.Error("New() without store = nil error, want error")
	}
	if _, err := statuspoll.New(statuspoll.WithStore(memstore.New())); err == nil {
		t.Error("New() without fetcher = nil error, want error")
	}
}
