package router

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/playlistbot/core/telegram"
	"github.com/m3rciful/playlistbot/core/telegram/callbacks"
	"github.com/m3rciful/playlistbot/core/telegram/middleware"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	// NotFound answers unknown buttons; the registry fallback is used when nil.
	NotFound tele.HandlerFunc
}

// CallbackRoute dispatches button presses through the registry. Every press
// is acknowledged first so the client stops its spinner.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}
		key, _ := callbacks.ParseCallbackData(c.Callback())
		name := "callback." + normalizeHandlerName(key)
		_ = c.Respond()

		if h, ok := reg.GetCallback(key); ok && h != nil {
			return handled(c, name, h, slog.String("cb_key", key))
		}
		fallback := opts.NotFound
		if fallback == nil {
			fallback = reg.CallbackNotFound()
		}
		return handled(c, name, fallback,
			slog.String("cb_key", key),
			slog.String("reason", "not_found"),
		)
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
