package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/playlistbot/core/telegram/commands"
)

func noop(tele.Context) error { return nil }

func TestRegistryCommands(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCommand("newplaylist", commands.Command{Handler: noop, Description: "Create", Aliases: []string{"new"}}))
	require.NoError(t, reg.RegisterCommand("/stats", commands.Command{Handler: noop, Description: "Stats", AdminOnly: true}))
	require.NoError(t, reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "Start", Hidden: true}))

	key, _, ok := reg.LookupCommand("new")
	require.True(t, ok)
	assert.Equal(t, "/newplaylist", key)

	_, _, ok = reg.LookupCommand("/missing")
	assert.False(t, ok)

	assert.Equal(t, []tele.Command{{Text: "newplaylist", Description: "Create"}}, reg.ListCommands(true))
	assert.Len(t, reg.ListCommands(false), 3)
	assert.Len(t, reg.Commands(), 3)

	assert.Error(t, reg.RegisterCommand("/new", commands.Command{Handler: noop, Description: "clash"}), "alias is taken")
	assert.Error(t, reg.RegisterCommand("/x", commands.Command{Handler: noop}), "description required")
}

func TestRegistryCallbacks(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCallback("show", noop))
	assert.Error(t, reg.RegisterCallback("show", noop))
	assert.Error(t, reg.RegisterCallback("", noop))

	_, ok := reg.GetCallback("show")
	assert.True(t, ok)
	assert.Equal(t, []string{"show"}, reg.ListCallbacks())

	assert.NotNil(t, reg.CallbackNotFound())
	reg.SetCallbackNotFound(nil)
	assert.NotNil(t, reg.CallbackNotFound(), "nil keeps the default")
}
