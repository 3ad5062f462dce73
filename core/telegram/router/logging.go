package router

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/playlistbot/core/logger"
	tghelpers "github.com/m3rciful/playlistbot/core/telegram/helpers"
	"github.com/m3rciful/playlistbot/core/telegram/middleware"
)

// handled runs h under name and writes the handler.handled summary line.
func handled(c tele.Context, name string, h tele.HandlerFunc, extras ...slog.Attr) error {
	start := time.Now()
	ctx := tghelpers.WithHandler(c, name)
	err := h(c)

	attrs := summaryAttrs(c, logger.Status(err), start)
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", deriveErrorCode(err)),
		)
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "handler.handled", append(attrs, extras...)...)
	return err
}

// skipped records an update no handler wanted.
func skipped(c tele.Context, name string) {
	ctx := tghelpers.WithHandler(c, name)
	logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "handler.handled", summaryAttrs(c, "skip", time.Now())...)
}

func summaryAttrs(c tele.Context, status string, start time.Time) []slog.Attr {
	stats := middleware.Stats(c)
	outcome := status
	if status == "skip" {
		outcome = "ok"
	}
	return []slog.Attr{
		slog.String("status", status),
		slog.String("outcome", outcome),
		slog.Int("messages", stats.Messages),
		slog.Bool("kb", stats.Keyboard),
		slog.Duration("duration", logger.Took(start)),
	}
}

func normalizeHandlerName(name string) string {
	name = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "/"))
	if name == "" {
		return "unknown"
	}
	return strings.ReplaceAll(name, " ", "_")
}

// deriveErrorCode prefers an error's own Code() and falls back to its type name.
func deriveErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		if code := strings.TrimSpace(coded.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	typ := strings.TrimLeft(fmt.Sprintf("%T", err), "*")
	if i := strings.LastIndex(typ, "."); i >= 0 {
		typ = typ[i+1:]
	}
	return strings.ToUpper(typ)
}
