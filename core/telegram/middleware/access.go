package middleware

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/playlistbot/core/logger"
	"github.com/m3rciful/playlistbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/playlistbot/core/telegram/helpers"
)

// AdminOptions names the single admin account. A zero AdminID locks admin
// commands for everyone.
type AdminOptions struct {
	AdminID  int64
	OnReject tele.HandlerFunc
}

func (o AdminOptions) isAdmin(u *tele.User) bool {
	return u != nil && o.AdminID != 0 && u.ID == o.AdminID
}

// WithAdminCheck returns cmd's handler, guarded when cmd is AdminOnly.
func WithAdminCheck(opts AdminOptions, cmd commands.Command) tele.HandlerFunc {
	if !cmd.AdminOnly {
		return cmd.Handler
	}
	return func(c tele.Context) error {
		if opts.isAdmin(c.Sender()) {
			return cmd.Handler(c)
		}
		logger.LogEvent(tghelpers.BuildContext(c), logger.TG, slog.LevelWarn, "tg.access",
			slog.String("status", "fail"),
			slog.String("reason", "not_admin"),
		)
		if opts.OnReject == nil {
			return nil
		}
		return opts.OnReject(c)
	}
}
