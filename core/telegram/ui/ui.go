// Package ui holds Telegram presentation pieces shared by bots.
package ui

import tele "gopkg.in/telebot.v4"

// FallbackProvider answers updates that match no command, callback or
// pending conversation step.
type FallbackProvider interface {
	UnknownText() tele.HandlerFunc
	UnknownDocument() tele.HandlerFunc
	UnknownPhoto() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}

// LinkArticle is an inline query result that posts Text with a single URL
// button underneath.
type LinkArticle struct {
	ID          string
	Title       string
	Description string
	Text        string
	ButtonText  string
	URL         string
}

// Result converts a into the telebot result type.
func (a LinkArticle) Result() *tele.ArticleResult {
	r := &tele.ArticleResult{
		Title:       a.Title,
		Description: a.Description,
		Text:        a.Text,
	}
	r.SetResultID(a.ID)
	if a.URL != "" {
		r.ReplyMarkup = &tele.ReplyMarkup{
			InlineKeyboard: [][]tele.InlineButton{{{Text: a.ButtonText, URL: a.URL}}},
		}
	}
	return r
}
