package logger

import (
	"context"
	"log/slog"

	charmlog "github.com/charmbracelet/log"
)

// asyncIO exposes asyncWriter as an io.Writer for third-party handlers.
type asyncIO struct{ w *asyncWriter }

func (a asyncIO) Write(p []byte) (int, error) {
	if err := a.w.Write(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// contextKeys are copied from ctx into records for handlers that do not read ctx.
var contextKeys = []string{"rid", "update_id", "user_id", "chat_id", "handler"}

// contextHandler adds the correlation fields carried by ctx to every record
// before passing it on.
type contextHandler struct {
	next slog.Handler
}

func (h contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	fields := make(map[string]any, len(contextKeys))
	line(fields).fromContext(ctx)
	if len(fields) == 0 {
		return h.next.Handle(ctx, r)
	}
	r.Attrs(func(a slog.Attr) bool {
		delete(fields, a.Key)
		return true
	})
	r = r.Clone()
	for _, key := range contextKeys {
		v, ok := fields[key]
		if !ok {
			continue
		}
		if key == "rid" {
			if s, ok := v.(string); ok {
				v = CompactRID(s)
			}
		}
		r.AddAttrs(slog.Any(key, v))
	}
	return h.next.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{next: h.next.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{next: h.next.WithGroup(name)}
}

// newPrettyHandler builds the colored console handler used by the "pretty" format.
func newPrettyHandler(w *asyncWriter, level slog.Level) slog.Handler {
	l := charmlog.NewWithOptions(asyncIO{w: w}, charmlog.Options{
		Level:           charmLevel(level),
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.000",
	})
	return contextHandler{next: l}
}

func charmLevel(level slog.Level) charmlog.Level {
	switch {
	case level <= slog.LevelDebug:
		return charmlog.DebugLevel
	case level <= slog.LevelInfo:
		return charmlog.InfoLevel
	case level <= slog.LevelWarn:
		return charmlog.WarnLevel
	default:
		return charmlog.ErrorLevel
	}
}
