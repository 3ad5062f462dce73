package bot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/playlistbot/core/telegram/callbacks"
	"github.com/m3rciful/playlistbot/internal/domain"
)

func TestLongestNameFitsCallbackData(t *testing.T) {
	name := strings.Repeat("n", domain.MaxNameLen)
	for _, unique := range []string{
		cbUsePlaylist, cbAddMusic, cbShow, cbDeleteTrack, cbDeletePlaylist,
		cbRename, cbSetCover, cbShare, cbConfirmDelete,
	} {
		assert.True(t, callbacks.Fits(unique, name), unique)
	}
}

func TestActionsKeyboardLayout(t *testing.T) {
	kb := ActionsKeyboard("mix")
	require.Len(t, kb.InlineKeyboard, 3)
	assert.Len(t, kb.InlineKeyboard[0], 2)
	assert.Len(t, kb.InlineKeyboard[1], 3)
	assert.Len(t, kb.InlineKeyboard[2], 2)
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			assert.Equal(t, "mix", btn.Data)
		}
	}
}

func TestIndexKeyboardRows(t *testing.T) {
	kb := IndexKeyboard(14)
	require.Len(t, kb.InlineKeyboard, 3)
	assert.Len(t, kb.InlineKeyboard[0], 6)
	assert.Len(t, kb.InlineKeyboard[2], 2)
	assert.Equal(t, "13", kb.InlineKeyboard[2][1].Text)
	assert.Equal(t, cbTrackToRemove, kb.InlineKeyboard[2][1].Unique)
}

func TestMainMenu(t *testing.T) {
	kb := MainMenu()
	require.Len(t, kb.ReplyKeyboard, 1)
	assert.Equal(t, BtnMyPlaylists, kb.ReplyKeyboard[0][0].Text)
	assert.Equal(t, BtnNewPlaylist, kb.ReplyKeyboard[0][1].Text)
}
