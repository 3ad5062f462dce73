package keyboard

import (
	"github.com/samber/lo"
	tele "gopkg.in/telebot.v4"
)

// Button is an inline callback button. Unique selects the callback handler
// and Data is its payload.
type Button struct {
	Text   string
	Unique string
	Data   string
}

// CancelText labels Cancel buttons.
const CancelText = "❌ Cancel"

// Reply builds a resized reply keyboard, one slice of labels per row.
func Reply(rows ...[]string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true}
	markup.Reply(lo.Map(rows, func(labels []string, _ int) tele.Row {
		return markup.Row(lo.Map(labels, func(label string, _ int) tele.Btn {
			return markup.Text(label)
		})...)
	})...)
	return markup
}

// Inline builds an inline keyboard, one slice of buttons per row.
func Inline(rows ...[]Button) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.InlineKeyboard = lo.Map(rows, func(row []Button, _ int) []tele.InlineButton {
		return lo.Map(row, func(b Button, _ int) tele.InlineButton {
			return *markup.Data(b.Text, b.Unique, b.Data).Inline()
		})
	})
	return markup
}

// Grid lays buttons out perRow to a row; perRow below 1 means one per row.
func Grid(buttons []Button, perRow int) *tele.ReplyMarkup {
	if len(buttons) == 0 {
		return Inline()
	}
	return Inline(lo.Chunk(buttons, max(perRow, 1))...)
}

// Cancel is a single CancelText button firing unique.
func Cancel(unique string) *tele.ReplyMarkup {
	return Inline([]Button{{Text: CancelText, Unique: unique}})
}
