package logger

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON   logFormat = "json"
	formatKV     logFormat = "kv"
	formatPretty logFormat = "pretty"

	timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"
)

type handlerConfig struct {
	level    slog.Leveler
	writer   *asyncWriter
	format   logFormat
	keyOrder []string
}

// structuredHandler renders records as one kv or JSON line with a stable key
// order, so bot logs stay greppable by event and user.
type structuredHandler struct {
	cfg    handlerConfig
	attrs  []slog.Attr
	groups []string
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	if cfg.keyOrder == nil {
		cfg.keyOrder = defaultKeyOrder
	}
	return &structuredHandler{cfg: cfg}
}

func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg.writer == nil {
		return errors.New("logger: writer not initialized")
	}
	asJSON := h.cfg.format == formatJSON

	ts := r.Time.UTC()
	l := line{
		"ts":    ts.Truncate(time.Millisecond).Format(timeFormatMillis),
		"level": r.Level.String(),
	}
	if asJSON {
		l["ts_unix_nano"] = ts.UnixNano()
	}
	prefix := strings.Join(h.groups, ".")
	for _, a := range h.attrs {
		l.add(prefix, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		l.add(prefix, a)
		return true
	})
	l.fromContext(ctx)
	l.compactRID(asJSON)
	l.fallback("event", cmp.Or(r.Message, "unknown"))
	l.fallback("component", "app")
	l.normalize()

	keys := l.keys(h.cfg.keyOrder)
	var out []byte
	if asJSON {
		var err error
		if out, err = l.json(keys); err != nil {
			return err
		}
	} else {
		out = l.kv(keys)
	}
	return h.cfg.writer.Write(append(out, '\n'))
}

func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = slices.Concat(h.attrs, attrs)
	return &clone
}

func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(slices.Clip(h.groups), name)
	return &clone
}

// line is one record being assembled, keyed by output field.
type line map[string]any

func (l line) str(key string) string {
	switch v := l[key].(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	return ""
}

// fallback sets key unless it already holds a non-empty value.
func (l line) fallback(key, value string) {
	if l.str(key) == "" {
		l[key] = value
	}
}

// add stores a under its dotted group path. Groups are flattened.
func (l line) add(prefix string, a slog.Attr) {
	key := joinKey(prefix, a.Key)
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			l.add(key, child)
		}
		return
	}
	if key == "" {
		return
	}
	if k, val, ok := fieldValue(key, v); ok {
		l[k] = val
	}
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "." + key
}

// fieldValue converts v into a value json.Marshal renders as expected.
// Durations become whole milliseconds under a key ending in _ms.
func fieldValue(key string, v slog.Value) (string, any, bool) {
	switch v.Kind() {
	case slog.KindString:
		return key, strings.TrimSpace(v.String()), true
	case slog.KindUint64:
		if u := v.Uint64(); u > math.MaxInt64 {
			return key, u, true
		}
		return key, int64(v.Uint64()), true
	case slog.KindDuration:
		return msKey(key), RoundMS(v.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano), true
	case slog.KindAny:
	default:
		return key, v.Any(), true
	}

	switch x := v.Any().(type) {
	case nil:
		return key, nil, false
	case error:
		return key, x.Error(), true
	case string:
		return key, strings.TrimSpace(x), true
	case time.Duration:
		return msKey(key), RoundMS(x).Milliseconds(), true
	case fmt.Stringer:
		return key, x.String(), true
	default:
		return key, fmt.Sprint(x), true
	}
}

func msKey(key string) string {
	switch {
	case key == "duration":
		return "duration_ms"
	case strings.HasSuffix(key, "_ms"):
		return key
	}
	return key + "_ms"
}

// fromContext fills correlation fields the record did not set itself.
func (l line) fromContext(ctx context.Context) {
	if ctx == nil {
		return
	}
	for key, v := range map[string]any{
		"rid":       RIDFrom(ctx),
		"user_id":   UserIDFrom(ctx),
		"update_id": UpdateIDFrom(ctx),
		"chat_id":   ChatIDFrom(ctx),
		"handler":   HandlerFrom(ctx),
	} {
		if _, set := l[key]; set || isZero(v) {
			continue
		}
		l[key] = v
	}
}

// compactRID shortens a BuildRID value; JSON lines keep the full value in
// rid_full.
func (l line) compactRID(keepFull bool) {
	rid := l.str("rid")
	compact := CompactRID(rid)
	if rid == "" || compact == rid {
		return
	}
	if _, set := l["rid_full"]; keepFull && !set {
		l["rid_full"] = rid
	}
	l["rid"] = compact
}

// normalize canonicalizes level and enumerated keys and drops blank fields.
func (l line) normalize() {
	l["level"] = levelName(l.str("level"))
	for key := range enumerated {
		v := l.str(key)
		if v == "" {
			continue
		}
		if canon, keep := enumValue(key, v); keep {
			l[key] = canon
		} else {
			delete(l, key)
		}
	}
	maps.DeleteFunc(l, func(_ string, v any) bool { return isBlank(v) })
}

func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case fmt.Stringer:
		return x.String() == ""
	}
	return false
}

func isZero(v any) bool {
	switch x := v.(type) {
	case string:
		return x == ""
	case int64:
		return x == 0
	case int:
		return x == 0
	}
	return v == nil
}

// keys lists the fields of l in order first, then the rest sorted.
func (l line) keys(order []string) []string {
	out := make([]string, 0, len(l))
	seen := make(map[string]bool, len(l))
	for _, k := range append(slices.Clip(order), slices.Sorted(maps.Keys(l))...) {
		if _, ok := l[k]; ok && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

func (l line) json(keys []string) ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, k := range keys {
		v, err := json.Marshal(l[k])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", k, err)
		}
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(k))
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func (l line) kv(keys []string) []byte {
	var b bytes.Buffer
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(kvValue(l[k]))
	}
	return b.Bytes()
}

func kvValue(v any) string {
	s := fmt.Sprint(v)
	if strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}
