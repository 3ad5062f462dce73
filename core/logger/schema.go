package logger

import (
	"slices"
	"strings"
)

// levelName maps a level label to the upper-case name written on every line.
func levelName(label string) string {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "", "info":
		return "INFO"
	case "debug":
		return "DEBUG"
	case "warn", "warning":
		return "WARN"
	case "error":
		return "ERROR"
	}
	return strings.ToUpper(label)
}

// closedSet lists the values an enumerated key may carry. Open sets also
// keep values they do not list.
type closedSet struct {
	open   bool
	values []string
}

var enumerated = map[string]closedSet{
	"status":   {open: true, values: []string{"ok", "fail", "skip", "retry", "rate_limited", "cancelled", "expired"}},
	"outcome":  {values: []string{"ok", "fail", "cancelled", "rate_limited"}},
	"err_kind": {values: []string{"not_found", "conflict", "invalid_input", "storage", "unknown"}},
}

// enumValue lowercases v and reports whether key may be logged with it.
func enumValue(key, v string) (string, bool) {
	set, ok := enumerated[key]
	if !ok {
		return v, true
	}
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "", false
	}
	return v, set.open || slices.Contains(set.values, v)
}

var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "status",
	// correlation
	"rid", "rid_full", "ts_unix_nano", "update_id", "user_id", "chat_id", "chat_type", "handler",
	// update handling
	"op", "cb_key", "outcome", "duration_ms", "messages", "kb", "count",
	// process
	"username", "mode", "listen", "addr", "db", "backend",
	// playlists and conversations
	"state", "playlist", "playlist_id", "position", "tracks", "session_id",
	// failures
	"err", "err_kind", "err_code", "cause", "attempts", "backoff_ms", "swept",
}
