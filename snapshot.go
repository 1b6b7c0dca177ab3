package statuspoll

import "time"

// Snapshot is one immutable point-in-time status record for a server.
//
// Snapshots are append-only: they are created by the poller (or seeded
// as placeholders at registration time) and never updated or deleted by
// this subsystem. For a given server, the snapshot with the maximum
// CreatedAt is the latest status.
//
// The schema is closed. The normalizer drops unknown upstream fields;
// missing fields default to zero values or nil rather than failing.
type Snapshot struct {
	// ID is the storage-assigned record id, set on insert.
	ID string `json:"id,omitempty"`

	// ServerID references the polled server. The server itself is not
	// owned by this subsystem.
	ServerID string `json:"server_id"`

	// Online reports whether the server answered the status check.
	Online bool `json:"online"`

	// Players holds the player counts and, when the upstream exposes
	// it, the list of online players.
	Players Players `json:"players"`

	// Version is the normalized server version, or nil if the upstream
	// reported none. Vendor decorations (proxy chains, player-count
	// suffixes) are stripped down to a dotted version where possible.
	Version *string `json:"version"`

	// MOTD is the server's message of the day, or nil if absent.
	MOTD *MOTD `json:"motd"`

	// Software is the reported server software, or nil if absent.
	Software *string `json:"software"`

	// Icon is the server icon as an opaque encoded string, or nil.
	Icon *string `json:"icon"`

	// PingTimeMs is the round-trip time of the status request in
	// milliseconds, or nil when no request was made (placeholders,
	// failed checks).
	PingTimeMs *int64 `json:"ping_time_ms"`

	// Error holds the failure message for failed checks. Empty on
	// successful checks.
	Error string `json:"error,omitempty"`

	// Placeholder marks a synthetic record seeded at registration time
	// before any real check has run. Placeholders are ignored by the
	// freshness cache and by stale-server selection, so a just-created
	// server is polled promptly.
	Placeholder bool `json:"placeholder,omitempty"`

	// CreatedAt is assigned at write time.
	CreatedAt time.Time `json:"created_at"`
}

// Players holds player counts for a snapshot.
type Players struct {
	// Online is the current player count. Zero when unknown.
	Online int `json:"online"`

	// Max is the server's player capacity, or nil when unknown.
	Max *int `json:"max"`

	// List names the online players, when the upstream exposes them.
	List []PlayerInfo `json:"list,omitempty"`
}

// PlayerInfo identifies one online player.
type PlayerInfo struct {
	Name string `json:"name"`
	UUID string `json:"uuid"`
}

// MOTD is the server's message of the day in the three renderings the
// upstream provides.
type MOTD struct {
	Raw   []string `json:"raw"`
	Clean []string `json:"clean"`
	HTML  []string `json:"html"`
}

// NewPlaceholderSnapshot builds the synthetic initial record seeded when
// a server is registered, before any real check has run.
func NewPlaceholderSnapshot(serverID string) Snapshot {
	return Snapshot{
		ServerID:    serverID,
		Online:      false,
		Placeholder: true,
	}
}

// Clone returns a deep copy of the snapshot so callers can hold it
// without sharing mutable state with the store.
func (s Snapshot) Clone() Snapshot {
	cp := s
	if s.Players.Max != nil {
		v := *s.Players.Max
		cp.Players.Max = &v
	}
	if s.Players.List != nil {
		cp.Players.List = append([]PlayerInfo(nil), s.Players.List...)
	}
	cp.Version = cloneStringPtr(s.Version)
	cp.Software = cloneStringPtr(s.Software)
	cp.Icon = cloneStringPtr(s.Icon)
	if s.PingTimeMs != nil {
		v := *s.PingTimeMs
		cp.PingTimeMs = &v
	}
	if s.MOTD != nil {
		m := MOTD{
			Raw:   append([]string(nil), s.MOTD.Raw...),
			Clean: append([]string(nil), s.MOTD.Clean...),
			HTML:  append([]string(nil), s.MOTD.HTML...),
		}
		cp.MOTD = &m
	}
	return cp
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
