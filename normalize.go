package statuspoll

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// versionToken matches a plain dotted version anywhere in a decorated
// version string, e.g. "1.21" or "1.21.8".
var versionToken = regexp.MustCompile(`\d+\.\d+(\.\d+)?`)

// proxySeparators are the arrow-like delimiters proxies use to report a
// frontend-behind-backend version chain. The segment after the last
// separator is the backend's real version.
var proxySeparators = []string{"⇒", "→", "->", "»"}

// Normalize maps a raw status API payload into the canonical snapshot
// schema. It never fails: malformed or missing fields degrade to zero
// values and nils, and unknown fields are dropped. Upstream payloads
// are inconsistent enough that this is the single place loose input is
// trusted into typed data.
//
// The caller fills ServerID, PingTimeMs, and CreatedAt; Normalize only
// covers the fields the upstream reports.
func Normalize(raw []byte) Snapshot {
	var doc map[string]any
	if len(raw) > 0 {
		// a decode failure just leaves doc nil and every field at its default
		_ = json.Unmarshal(raw, &doc)
	}

	var snap Snapshot
	snap.Online = truthy(doc["online"])

	if players, ok := doc["players"].(map[string]any); ok {
		snap.Players.Online = intValue(players["online"])
		if max, ok := intField(players["max"]); ok {
			snap.Players.Max = &max
		}
		snap.Players.List = playerList(players["list"])
	}

	if v := stringValue(doc["version"]); v != "" {
		cleaned := cleanVersion(v)
		snap.Version = &cleaned
	}
	if m := motdValue(doc["motd"]); m != nil {
		snap.MOTD = m
	}
	if s := stringValue(doc["software"]); s != "" {
		snap.Software = &s
	}
	if icon := stringValue(doc["icon"]); icon != "" {
		snap.Icon = &icon
	}

	return snap
}

// cleanVersion strips vendor decorations from a reported version:
// proxy chains ("Velocity ⇒ 1.21.8"), pipe-delimited suffixes
// ("1.21.8 | 6/820"), and surrounding branding, keeping the dotted
// numeric version when one is present.
func cleanVersion(s string) string {
	for _, sep := range proxySeparators {
		if i := strings.LastIndex(s, sep); i >= 0 {
			s = s[i+len(sep):]
		}
	}
	if i := strings.Index(s, "|"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if tok := versionToken.FindString(s); tok != "" {
		return tok
	}
	return s
}

// truthy coerces a loosely-typed field to its boolean truthiness.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

// intValue parses an integer field, defaulting to 0.
func intValue(v any) int {
	n, _ := intField(v)
	return n
}

// intField parses an integer field, reporting whether one was present.
func intField(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n, true
		}
	}
	return 0, false
}

// stringValue returns the field as a string, or "" when it is absent or
// not a string.
func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func playerList(v any) []PlayerInfo {
	entries, ok := v.([]any)
	if !ok || len(entries) == 0 {
		return nil
	}
	list := make([]PlayerInfo, 0, len(entries))
	for _, entry := range entries {
		switch t := entry.(type) {
		case map[string]any:
			name := stringValue(t["name"])
			if name == "" {
				continue
			}
			list = append(list, PlayerInfo{Name: name, UUID: stringValue(t["uuid"])})
		case string:
			// some backends report bare name lists
			if t != "" {
				list = append(list, PlayerInfo{Name: t})
			}
		}
	}
	if len(list) == 0 {
		return nil
	}
	return list
}

func motdValue(v any) *MOTD {
	doc, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	m := MOTD{
		Raw:   stringList(doc["raw"]),
		Clean: stringList(doc["clean"]),
		HTML:  stringList(doc["html"]),
	}
	if m.Raw == nil && m.Clean == nil && m.HTML == nil {
		return nil
	}
	return &m
}

func stringList(v any) []string {
	entries, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		if s, ok := entry.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
