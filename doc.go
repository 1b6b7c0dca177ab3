// Package statuspoll keeps the live status of listed game servers fresh.
//
// It polls an external status API for each registered server, normalizes
// the loosely-typed upstream payload into a canonical [Snapshot], and
// appends the result to an injected [Store]. Polling is bounded by an
// in-flight limiter, batched to respect upstream rate limits, and driven
// either manually ([Service.Poll], [Service.PollAllDue]) or by a
// recurring scheduler ([Service.StartScheduler]).
//
// The package has no network-facing API of its own; it is a library
// invoked in-process. The typical lifecycle is:
//
//	svc, err := statuspoll.New(
//	    statuspoll.WithStore(store),
//	    statuspoll.WithFetcher(mcstatus.NewClient()),
//	)
//	if err != nil {
//	    slog.Error("failed to create poller", "error", err)
//	    os.Exit(1)
//	}
//
//	svc.StartScheduler(10 * time.Minute)
//	defer svc.StopScheduler()
//
// Failed checks are recovered, never thrown: a server that cannot be
// reached after all retry attempts still gets an offline snapshot
// persisted, so it shows up as down instead of disappearing from
// listings.
package statuspoll
