package router

import (
	"strings"

	tg "github.com/m3rciful/playlistbot/core/telegram"
	"github.com/m3rciful/playlistbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// FSM defines the minimal interface for an FSM manager.
type FSM interface {
	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}

// TextOptions controls routing of text, document and media updates.
type TextOptions struct {
	// Buttons maps reply keyboard labels to handlers; a press wins over a pending flow.
	Buttons map[string]tele.HandlerFunc
	// Audio receives every audio message; nil sends audio to the FSM like other replies.
	Audio tele.HandlerFunc

	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
	UnknownPhoto    tele.HandlerFunc
}

// TextRoutes builds handlers for text, document, photo and audio routing.
// Reply keyboard buttons win over a pending flow, the flow wins over slash
// commands typed as text, and whatever is left goes to the Unknown handlers.
func TextRoutes(fsmMgr FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	inProgress := func(c tele.Context) bool {
		return fsmMgr != nil && c.Sender() != nil && fsmMgr.InProgress(c.Sender().ID)
	}
	orSkip := func(c tele.Context, name string, h tele.HandlerFunc) error {
		if h == nil {
			skipped(c, name)
			return nil
		}
		return handled(c, name, h)
	}

	text := func(c tele.Context) error {
		msg := strings.TrimSpace(c.Text())
		if h, ok := opts.Buttons[msg]; ok && h != nil {
			return handled(c, "button."+normalizeHandlerName(msg), h)
		}
		if inProgress(c) {
			return handled(c, "fsm", fsmMgr.ManagerHandler)
		}
		if reg != nil && strings.HasPrefix(msg, "/") {
			// admin commands only run through their command route
			if key, cmd, ok := reg.LookupCommand(commandName(msg)); ok && cmd.Handler != nil && !cmd.AdminOnly {
				return handled(c, normalizeHandlerName(key), cmd.Handler)
			}
		}
		return orSkip(c, "unknown_text", opts.UnknownText)
	}

	media := func(kind string, fallback tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if inProgress(c) {
				return handled(c, "fsm_"+kind, fsmMgr.ManagerHandler)
			}
			return orSkip(c, "unexpected_"+kind, fallback)
		}
	}

	audio := media("audio", nil)
	if opts.Audio != nil {
		audio = func(c tele.Context) error {
			return handled(c, "audio", opts.Audio)
		}
	}

	wrap := func(h tele.HandlerFunc) tele.HandlerFunc {
		return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
	}
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(text)},
		{Endpoint: tele.OnDocument, Handler: wrap(media("document", opts.UnknownDocument))},
		{Endpoint: tele.OnPhoto, Handler: wrap(media("photo", opts.UnknownPhoto))},
		{Endpoint: tele.OnAudio, Handler: wrap(audio)},
	}
}

// commandName strips arguments and a trailing @botname from a command message.
func commandName(text string) string {
	name, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	name, _, _ = strings.Cut(name, "@")
	return name
}
