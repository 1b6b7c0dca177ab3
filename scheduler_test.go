package statuspoll_test

import (
	"testing"
	"time"

	"github.com/craftwatch/statuspoll"
	"github.com/craftwatch/statuspoll/memstore"
)

func TestScheduler_ImmediateSweepOnStart(t *testing.T) {
	store := memstore.New()
	addServers(t, store, 3)
	fetcher := &fakeFetcher{}
	svc := newTestService(t, store, fetcher)

	svc.StartScheduler(time.Hour)
	defer svc.StopScheduler()

	// the cold-start sweep runs before the first tick, which with a 1h
	// interval is the only way these fetches can happen now
	waitFor(t, 2*time.Second, func() bool { return fetcher.callCount() == 3 })
}

func TestScheduler_StopPreventsFurtherSweeps(t *testing.T) {
	store := memstore.New()
	addServers(t, store, 1)
	fetcher := &fakeFetcher{}
	// a tiny freshness window keeps the server permanently stale so
	// every tick polls it again
	svc := newTestService(t, store, fetcher,
		statuspoll.WithFreshnessWindow(time.Millisecond),
	)

	svc.StartScheduler(20 * time.Millisecond)
	waitFor(t, 2*time.Second, func() bool { return fetcher.callCount() >= 2 })

	svc.StopScheduler()
	after := fetcher.callCount()

	time.Sleep(100 * time.Millisecond)
	if got := fetcher.callCount(); got != after {
		t.Errorf("fetcher calls grew from %d to %d after StopScheduler returned", after, got)
	}
}

func TestScheduler_StartTwiceIsNoop(t *testing.T) {
	store := memstore.New()
	addServers(t, store, 2)
	fetcher := &fakeFetcher{}
	svc := newTestService(t, store, fetcher)

	svc.StartScheduler(time.Hour)
	svc.StartScheduler(time.Hour)
	defer svc.StopScheduler()

	if !svc.SchedulerRunning() {
		t.Error("SchedulerRunning() = false, want true")
	}

	// only the first start's immediate sweep runs
	waitFor(t, 2*time.Second, func() bool { return fetcher.callCount() == 2 })
	time.Sleep(50 * time.Millisecond)
	if got := fetcher.callCount(); got != 2 {
		t.Errorf("fetcher calls = %d, want 2 (second start must not sweep again)", got)
	}
}

func TestScheduler_StopBeforeStart(t *testing.T) {
	store := memstore.New()
	svc := newTestService(t, store, &fakeFetcher{})

	// must not panic or deadlock
	svc.StopScheduler()
	svc.StopScheduler()

	if svc.SchedulerRunning() {
		t.Error("SchedulerRunning() = true, want false")
	}
}

func TestScheduler_RestartAfterStop(t *testing.T) {
	store := memstore.New()
	addServers(t, store, 1)
	fetcher := &fakeFetcher{}
	svc := newTestService(t, store, fetcher,
		statuspoll.WithFreshnessWindow(time.Millisecond),
	)

	svc.StartScheduler(time.Hour)
	waitFor(t, 2*time.Second, func() bool { return fetcher.callCount() >= 1 })
	svc.StopScheduler()

	if svc.SchedulerRunning() {
		t.Fatal("SchedulerRunning() = true after stop, want false")
	}

	before := fetcher.callCount()
	svc.StartScheduler(time.Hour)
	defer svc.StopScheduler()

	waitFor(t, 2*time.Second, func() bool { return fetcher.callCount() > before })
}

func TestScheduler_RecurringSweeps(t *testing.T) {
	store := memstore.New()
	addServers(t, store, 1)
	fetcher := &fakeFetcher{}
	svc := newTestService(t, store, fetcher,
		statuspoll.WithFreshnessWindow(time.Millisecond),
	)

	svc.StartScheduler(25 * time.Millisecond)
	defer svc.StopScheduler()

	// immediate sweep plus at least two ticks
	waitFor(t, 3*time.Second, func() bool { return fetcher.callCount() >= 3 })
}
