package bot

import (
	"fmt"

	"github.com/samber/lo"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/playlistbot/core/telegram/helpers"
	"github.com/m3rciful/playlistbot/internal/domain"
)

// albumSize is Telegram's media group limit.
const albumSize = 10

// AlbumItem is one audio in a media group.
type AlbumItem struct {
	FileID  string
	Caption string
}

// Reply is one outgoing message. Photo wins over Album and Album over plain
// text; with Photo, Text is the caption.
type Reply struct {
	Text     string
	Markdown bool
	Markup   *tele.ReplyMarkup
	Photo    string
	Album    []AlbumItem
}

func text(s string) Reply { return Reply{Text: s} }

func withMarkup(s string, m *tele.ReplyMarkup) Reply { return Reply{Text: s, Markup: m} }

func one(r Reply) []Reply { return []Reply{r} }

// albums splits tracks into media groups captioned with their global index.
func albums(tracks []domain.Track) []Reply {
	return lo.Map(lo.Chunk(tracks, albumSize), func(chunk []domain.Track, _ int) Reply {
		return Reply{Album: lo.Map(chunk, func(t domain.Track, _ int) AlbumItem {
			return AlbumItem{FileID: t.FileID, Caption: fmt.Sprintf("Index: %d", t.Position)}
		})}
	})
}

// deliver sends replies in order as one job. When edit is set the first
// text reply replaces the message that carried the pressed button.
func deliver(c tele.Context, action string, replies []Reply, edit bool) error {
	if len(replies) == 0 {
		return nil
	}
	parts := make([]func() error, 0, len(replies))
	for i, r := range replies {
		r := r
		editThis := edit && i == 0
		parts = append(parts, func() error { return send(c, r, editThis) })
	}
	return helpers.SendSequence(c, action, parts...)
}

func send(c tele.Context, r Reply, edit bool) error {
	opts := &tele.SendOptions{ReplyMarkup: r.Markup}
	if r.Markdown {
		opts.ParseMode = tele.ModeMarkdown
	}
	switch {
	case r.Photo != "":
		return c.Send(&tele.Photo{File: tele.File{FileID: r.Photo}, Caption: r.Text}, opts)
	case len(r.Album) == 1:
		return c.Send(audio(r.Album[0]), opts)
	case len(r.Album) > 1:
		album := make(tele.Album, 0, len(r.Album))
		for _, it := range r.Album {
			album = append(album, audio(it))
		}
		return c.SendAlbum(album)
	case edit && c.Callback() != nil:
		return c.EditOrSend(r.Text, opts)
	default:
		return c.Send(r.Text, opts)
	}
}

func audio(it AlbumItem) *tele.Audio {
	return &tele.Audio{File: tele.File{FileID: it.FileID}, Caption: it.Caption}
}
