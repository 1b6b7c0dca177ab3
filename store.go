package statuspoll

import (
	"context"
	"time"
)

// ServerRef identifies a pollable server in the registry.
//
// The registry itself belongs to the embedding application; this
// subsystem only reads it through [Store].
type ServerRef struct {
	// ID is the server's unique identifier.
	ID string `json:"id"`

	// Name is a human-readable label used in logs.
	Name string `json:"name,omitempty"`

	// Host is the address handed to the status API.
	Host string `json:"host"`

	// Port is the game port. Zero means "unknown": the fetcher may
	// resolve it via SRV or fall back to the game's default port.
	Port int `json:"port"`
}

// Store is the append-only snapshot persistence this subsystem depends
// on. Implementations must be safe for concurrent use.
//
// The reference implementation lives in the memstore package;
// production deployments embed their own relational store behind this
// interface.
type Store interface {
	// GetServer looks up a server by id. Returns a *NotFoundError when
	// the id is unknown.
	GetServer(ctx context.Context, serverID string) (ServerRef, error)

	// InsertSnapshot appends one snapshot for the given server and
	// returns the storage-assigned record id. Implementations assign
	// CreatedAt at write time when the snapshot carries none.
	InsertSnapshot(ctx context.Context, serverID string, snap Snapshot) (string, error)

	// LatestSnapshot returns the snapshot with the maximum CreatedAt
	// for the server, or nil (and no error) when the server has never
	// been checked.
	LatestSnapshot(ctx context.Context, serverID string) (*Snapshot, error)

	// StaleServers returns up to maxCount servers whose latest real
	// (non-placeholder) snapshot is older than the freshness window, or
	// which have none at all, ordered oldest-checked first with
	// never-checked servers sorting before everything else.
	//
	// The cutoff is computed against the store's own clock, not the
	// caller's, so processes with skewed clocks agree on staleness.
	// An empty result is not an error.
	StaleServers(ctx context.Context, maxCount int, freshnessWindow time.Duration) ([]ServerRef, error)
}
