package helpers

import (
	"errors"

	tele "gopkg.in/telebot.v4"
)

// ErrNoSender is returned for updates without an author (channel posts).
var ErrNoSender = errors.New("telegram: update has no sender")

// SenderID returns the Telegram id of the update author.
func SenderID(c tele.Context) (int64, error) {
	if c == nil || c.Sender() == nil {
		return 0, ErrNoSender
	}
	return c.Sender().ID, nil
}
