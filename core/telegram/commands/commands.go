package commands

import tele "gopkg.in/telebot.v4"

// Command is one slash command of the bot.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// Aliases are extra names routed to Handler. They never show in the menu.
	Aliases []string
	// AdminOnly commands run only for the configured admin.
	AdminOnly bool
	// Hidden commands work but stay out of the Telegram command menu.
	Hidden bool
}

// Listed reports whether the command belongs in the public command menu.
func (c Command) Listed() bool {
	return !c.Hidden && !c.AdminOnly && c.Description != ""
}
