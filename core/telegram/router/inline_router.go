package router

import (
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/playlistbot/core/telegram"
	"github.com/m3rciful/playlistbot/core/telegram/middleware"
)

// InlineRoute binds inline queries to h.
func InlineRoute(h tele.HandlerFunc) tg.Route {
	handler := func(c tele.Context) error {
		if c.Query() == nil || h == nil {
			return nil
		}
		return handled(c, "inline_query", h)
	}
	return tg.Route{
		Endpoint: tele.OnQuery,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
