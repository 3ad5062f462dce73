package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrid(t *testing.T) {
	buttons := make([]Button, 13)
	for i := range buttons {
		buttons[i] = Button{Text: "x", Unique: "track_to_remove", Data: "x"}
	}
	markup := Grid(buttons, 6)
	require.Len(t, markup.InlineKeyboard, 3)
	assert.Len(t, markup.InlineKeyboard[0], 6)
	assert.Len(t, markup.InlineKeyboard[2], 1)
	assert.Equal(t, "track_to_remove", markup.InlineKeyboard[0][0].Unique)
	assert.Equal(t, "x", markup.InlineKeyboard[0][0].Data)

	assert.Len(t, Grid(buttons[:3], 0).InlineKeyboard, 3)
	assert.Empty(t, Grid(nil, 6).InlineKeyboard)
}

func TestReply(t *testing.T) {
	markup := Reply([]string{"🎧 My Playlists", "➕ New Playlist"})
	require.Len(t, markup.ReplyKeyboard, 1)
	assert.Equal(t, "➕ New Playlist", markup.ReplyKeyboard[0][1].Text)
	assert.True(t, markup.ResizeKeyboard)
}

func TestCancel(t *testing.T) {
	markup := Cancel("cancel_flow")
	require.Len(t, markup.InlineKeyboard, 1)
	assert.Equal(t, CancelText, markup.InlineKeyboard[0][0].Text)
	assert.Equal(t, "cancel_flow", markup.InlineKeyboard[0][0].Unique)
}
