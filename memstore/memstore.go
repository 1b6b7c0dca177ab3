// Package memstore provides an in-memory [statuspoll.Store].
//
// It is the reference implementation used by the CLI and by tests.
// Production deployments typically embed their relational store behind
// the same interface; the semantics to preserve are the ones encoded
// here: append-only snapshots, latest-by-created-at, and the
// oldest-checked-first stale query evaluated against the store's own
// clock.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/craftwatch/statuspoll"
)

// MemoryStore is a thread-safe in-memory snapshot store.
type MemoryStore struct {
	mu        sync.RWMutex
	servers   map[string]statuspoll.ServerRef
	snapshots map[string][]statuspoll.Snapshot
	clock     func() time.Time
}

// Option configures a [MemoryStore].
type Option func(*MemoryStore)

// WithClock overrides the store's time source. Staleness cutoffs and
// write-time timestamps use this clock, never the caller's.
func WithClock(clock func() time.Time) Option {
	return func(m *MemoryStore) {
		m.clock = clock
	}
}

// New creates an empty [MemoryStore].
func New(opts ...Option) *MemoryStore {
	m := &MemoryStore{
		servers:   make(map[string]statuspoll.ServerRef),
		snapshots: make(map[string][]statuspoll.Snapshot),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddServer registers a server and seeds its placeholder snapshot so
// listings can render it before the first real check. Returns an error
// on a duplicate or empty id.
func (m *MemoryStore) AddServer(ref statuspoll.ServerRef) error {
	if ref.ID == "" {
		return fmt.Errorf("server id cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.servers[ref.ID]; exists {
		return fmt.Errorf("duplicate server id %q", ref.ID)
	}
	m.servers[ref.ID] = ref

	placeholder := statuspoll.NewPlaceholderSnapshot(ref.ID)
	placeholder.ID = uuid.NewString()
	placeholder.CreatedAt = m.clock()
	m.snapshots[ref.ID] = append(m.snapshots[ref.ID], placeholder)
	return nil
}

// GetServer implements [statuspoll.Store].
func (m *MemoryStore) GetServer(_ context.Context, serverID string) (statuspoll.ServerRef, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ref, exists := m.servers[serverID]
	if !exists {
		return statuspoll.ServerRef{}, &statuspoll.NotFoundError{ServerID: serverID}
	}
	return ref, nil
}

// InsertSnapshot implements [statuspoll.Store]. The snapshot is
// appended, never merged; CreatedAt is assigned from the store clock
// when the caller left it zero.
func (m *MemoryStore) InsertSnapshot(_ context.Context, serverID string, snap statuspoll.Snapshot) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.servers[serverID]; !exists {
		return "", &statuspoll.NotFoundError{ServerID: serverID}
	}

	stored := snap.Clone()
	stored.ID = uuid.NewString()
	stored.ServerID = serverID
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = m.clock()
	}
	m.snapshots[serverID] = append(m.snapshots[serverID], stored)
	return stored.ID, nil
}

// LatestSnapshot implements [statuspoll.Store]. Returns nil when the
// server has no snapshots at all.
func (m *MemoryStore) LatestSnapshot(_ context.Context, serverID string) (*statuspoll.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	latest, ok := latestOf(m.snapshots[serverID], false)
	if !ok {
		return nil, nil
	}
	cp := latest.Clone()
	return &cp, nil
}

// StaleServers implements [statuspoll.Store]. A server is due when its
// latest real (non-placeholder) snapshot predates now-freshnessWindow
// on the store clock, or when it has no real snapshot at all.
// Never-checked servers sort first, then oldest-checked ascending.
func (m *MemoryStore) StaleServers(_ context.Context, maxCount int, freshnessWindow time.Duration) ([]statuspoll.ServerRef, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := m.clock().Add(-freshnessWindow)

	type candidate struct {
		ref       statuspoll.ServerRef
		lastCheck time.Time // zero for never checked
	}
	var due []candidate
	for id, ref := range m.servers {
		latest, ok := latestOf(m.snapshots[id], true)
		if !ok {
			due = append(due, candidate{ref: ref})
			continue
		}
		if latest.CreatedAt.Before(cutoff) {
			due = append(due, candidate{ref: ref, lastCheck: latest.CreatedAt})
		}
	}

	sort.Slice(due, func(i, j int) bool {
		if due[i].lastCheck.Equal(due[j].lastCheck) {
			return due[i].ref.ID < due[j].ref.ID
		}
		return due[i].lastCheck.Before(due[j].lastCheck)
	})

	if maxCount > 0 && len(due) > maxCount {
		due = due[:maxCount]
	}
	refs := make([]statuspoll.ServerRef, len(due))
	for i, c := range due {
		refs[i] = c.ref
	}
	return refs, nil
}

// Servers returns all registered servers. Order is not guaranteed.
func (m *MemoryStore) Servers() []statuspoll.ServerRef {
	m.mu.RLock()
	defer m.mu.RUnlock()

	refs := make([]statuspoll.ServerRef, 0, len(m.servers))
	for _, ref := range m.servers {
		refs = append(refs, ref)
	}
	return refs
}

// SnapshotCount returns how many snapshots a server has accumulated,
// placeholders included.
func (m *MemoryStore) SnapshotCount(serverID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.snapshots[serverID])
}

// latestOf finds the snapshot with the maximum CreatedAt, optionally
// skipping placeholders. Inserts may carry caller-assigned timestamps,
// so append order alone is not trusted.
func latestOf(snaps []statuspoll.Snapshot, skipPlaceholders bool) (statuspoll.Snapshot, bool) {
	var latest statuspoll.Snapshot
	found := false
	for _, s := range snaps {
		if skipPlaceholders && s.Placeholder {
			continue
		}
		if !found || s.CreatedAt.After(latest.CreatedAt) {
			latest = s
			found = true
		}
	}
	return latest, found
}
