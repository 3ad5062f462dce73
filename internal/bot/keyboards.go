package bot

import (
	"strconv"

	"github.com/samber/lo"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/playlistbot/core/telegram/keyboard"
)

// Callback uniques. The payload of playlist actions is the playlist name,
// which ValidateName keeps short enough for Telegram's 64-byte limit.
const (
	cbUsePlaylist    = "use_playlist"
	cbAddMusic       = "add_music"
	cbShow           = "show"
	cbDeleteTrack    = "delete_track"
	cbDeletePlaylist = "delete_playlist"
	cbRename         = "rename"
	cbSetCover       = "set_cover"
	cbShare          = "share"
	cbTrackToRemove  = "track_to_remove"
	cbConfirmDelete  = "confirm_delete"
	cbCancelDelete   = "cancel_delete"
	cbFinishAdd      = "finish_add"
	cbCancelFlow     = "cancel_flow"
)

const indexButtonsPerRow = 6

// MainMenu is the persistent reply keyboard.
func MainMenu() *tele.ReplyMarkup {
	return keyboard.Reply([]string{BtnMyPlaylists, BtnNewPlaylist})
}

// ActionsKeyboard lists what can be done with one playlist.
func ActionsKeyboard(name string) *tele.ReplyMarkup {
	return keyboard.Inline(
		[]keyboard.Button{
			{Text: "➕ Add Music", Unique: cbAddMusic, Data: name},
			{Text: "📋 Show Musics", Unique: cbShow, Data: name},
		},
		[]keyboard.Button{
			{Text: "☠️ Delete Track", Unique: cbDeleteTrack, Data: name},
			{Text: "☠️ Delete Playlist", Unique: cbDeletePlaylist, Data: name},
			{Text: "⌨ Rename Playlist", Unique: cbRename, Data: name},
		},
		[]keyboard.Button{
			{Text: "🖼️ Set Cover", Unique: cbSetCover, Data: name},
			{Text: "🔗 Share Playlist", Unique: cbShare, Data: name},
		},
	)
}

// ListKeyboard shows one button per playlist; pressing it fires action with
// the playlist name.
func ListKeyboard(names []string, action string) *tele.ReplyMarkup {
	return keyboard.Grid(lo.Map(names, func(name string, _ int) keyboard.Button {
		return keyboard.Button{Text: name, Unique: action, Data: name}
	}), 1)
}

// IndexKeyboard offers track positions 0..n-1.
func IndexKeyboard(n int) *tele.ReplyMarkup {
	buttons := lo.Times(n, func(i int) keyboard.Button {
		s := strconv.Itoa(i)
		return keyboard.Button{Text: s, Unique: cbTrackToRemove, Data: s}
	})
	return keyboard.Grid(buttons, indexButtonsPerRow)
}

// ConfirmKeyboard asks to confirm deletion of name.
func ConfirmKeyboard(name string) *tele.ReplyMarkup {
	return keyboard.Inline([]keyboard.Button{
		{Text: "✅ Confirm Delete", Unique: cbConfirmDelete, Data: name},
		{Text: keyboard.CancelText, Unique: cbCancelDelete},
	})
}

// FinishAddKeyboard closes an add session.
func FinishAddKeyboard() *tele.ReplyMarkup {
	return keyboard.Inline([]keyboard.Button{
		{Text: "✅ Finish", Unique: cbFinishAdd},
	})
}

// CancelKeyboard aborts the pending step.
func CancelKeyboard() *tele.ReplyMarkup {
	return keyboard.Cancel(cbCancelFlow)
}
