package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// render logs one event through a fresh structured handler and returns the line.
func render(t *testing.T, format logFormat, ctx context.Context, level slog.Level, event string, attrs ...slog.Attr) string {
	t.Helper()
	buf := &bytes.Buffer{}
	w := newAsyncWriter([]io.Writer{buf}, 1024)
	h := newStructuredHandler(handlerConfig{level: slog.LevelDebug, writer: w, format: format})
	LogEvent(ctx, slog.New(h).With("component", "app"), level, event, attrs...)
	require.NoError(t, w.Flush())
	require.NoError(t, w.Close())
	return strings.TrimSpace(buf.String())
}

// assertOrdered checks that parts occur in line in the given order.
func assertOrdered(t *testing.T, line string, parts ...string) {
	t.Helper()
	pos := -1
	for _, p := range parts {
		idx := strings.Index(line, p)
		require.Greater(t, idx, pos, "%q out of order in %s", p, line)
		pos = idx
	}
}

func TestStructuredHandlerKeyOrder(t *testing.T) {
	ctx := WithUpdateMeta(WithRID(Background(), "rid-123"), 42, 7, 9)

	kv := render(t, formatKV, ctx, slog.LevelInfo, "playlist.created",
		slog.String("playlist", "road trip"),
		slog.String("status", "ok"),
	)
	assert.True(t, strings.HasPrefix(kv, "ts="), kv)
	assertOrdered(t, kv, "level=INFO", "component=app", "event=playlist.created", "status=ok", "rid=rid-123", "update_id=42")
	assert.Contains(t, kv, `playlist="road trip"`)

	js := render(t, formatJSON, ctx, slog.LevelError, "playlist.failed",
		slog.String("status", "fail"),
		slog.String("err", "boom"),
	)
	assertOrdered(t, js, `{"ts":`, `"level":"ERROR"`, `"component":"app"`, `"event":"playlist.failed"`, `"status":"fail"`, `"rid":"rid-123"`)
	assert.Contains(t, js, `"ts_unix_nano"`)
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	raw := "123:456:789"
	ctx := WithRID(Background(), raw)

	kv := render(t, formatKV, ctx, slog.LevelInfo, "rid.test")
	assert.Contains(t, kv, "rid="+CompactRID(raw))
	assert.NotContains(t, kv, "rid_full=")

	js := render(t, formatJSON, ctx, slog.LevelInfo, "rid.test")
	assert.Contains(t, js, `"rid":"`+CompactRID(raw)+`"`)
	assert.Contains(t, js, `"rid_full":"`+raw+`"`)
}

func TestStructuredHandlerNormalizesValues(t *testing.T) {
	line := render(t, formatKV, Background(), slog.LevelWarn, "session.expired",
		slog.String("status", "EXPIRED"),
		slog.String("outcome", "exploded"),
		slog.String("err_kind", "not_found"),
		slog.Duration("took", 1500*time.Microsecond),
		slog.Group("session", slog.String("mode", "add"), slog.Int("tracks", 3)),
		slog.String("empty", "  "),
	)
	assert.Contains(t, line, "status=expired")
	assert.NotContains(t, line, "outcome=")
	assert.Contains(t, line, "err_kind=not_found")
	assert.Contains(t, line, "took_ms=2")
	assert.Contains(t, line, "session.mode=add")
	assert.Contains(t, line, "session.tracks=3")
	assert.NotContains(t, line, "empty=")
}

func TestStructuredHandlerFallsBackToMessage(t *testing.T) {
	buf := &bytes.Buffer{}
	w := newAsyncWriter([]io.Writer{buf}, 1024)
	h := newStructuredHandler(handlerConfig{writer: w, format: formatKV})
	slog.New(h).Info("plain message")
	slog.New(h).Debug("filtered")
	require.NoError(t, w.Close())

	line := strings.TrimSpace(buf.String())
	assert.Contains(t, line, `event="plain message"`)
	assert.Contains(t, line, "component=app")
	assert.NotContains(t, line, "filtered")
}

func TestContextHandler(t *testing.T) {
	buf := &bytes.Buffer{}
	log := slog.New(contextHandler{next: slog.NewTextHandler(buf, nil)})

	ctx := WithHandler(WithRID(Background(), "1:2:3"), "callback.show")
	log.InfoContext(ctx, "playlist.shown", slog.String("playlist", "road-trip"))
	line := buf.String()
	for _, want := range []string{"rid=" + CompactRID("1:2:3"), "handler=callback.show", "playlist=road-trip"} {
		assert.Contains(t, line, want)
	}

	buf.Reset()
	log.InfoContext(WithHandler(Background(), "from-ctx"), "x", slog.String("handler", "explicit"))
	line = buf.String()
	assert.Equal(t, 1, strings.Count(line, "handler="), line)
	assert.Contains(t, line, "handler=explicit")
}

func TestPrettyHandlerWrites(t *testing.T) {
	buf := &bytes.Buffer{}
	w := newAsyncWriter([]io.Writer{buf}, 1024)
	log := slog.New(newPrettyHandler(w, slog.LevelInfo))
	log.Debug("hidden")
	log.InfoContext(WithHandler(WithRID(Background(), "1:2:3"), "cmd.show"), "visible", slog.Int("tracks", 12))
	require.NoError(t, w.Close())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
	assert.Contains(t, out, "tracks=12")
	assert.Contains(t, out, CompactRID("1:2:3"))
	assert.Contains(t, out, "cmd.show")
}

func TestResolveSettings(t *testing.T) {
	s := resolve(nil)
	assert.Equal(t, formatJSON, s.format)
	assert.Equal(t, slog.LevelInfo, s.level)
	assert.Equal(t, defaultDebugEvery, s.every)

	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelInfo, parseLevel("loud"))
	assert.Equal(t, []string{"ts", "event"}, splitKeys(" ts, ,event "))
	assert.Nil(t, splitKeys("default"))
}

func TestStatusAndSummaries(t *testing.T) {
	assert.Equal(t, "ok", Status(nil))
	assert.Equal(t, "fail", Status(io.EOF))
	assert.Equal(t, time.Duration(0), RoundMS(-time.Second))

	joined, truncated := SummarizeStrings([]string{"a", "b", "c"}, 2)
	assert.Equal(t, "a, b", joined)
	assert.True(t, truncated)
	joined, truncated = SummarizeStrings([]string{"a"}, 5)
	assert.Equal(t, "a", joined)
	assert.False(t, truncated)
}
