package bot

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coredatabase "github.com/m3rciful/playlistbot/core/database"
	"github.com/m3rciful/playlistbot/core/telegram/state"
	"github.com/m3rciful/playlistbot/internal/convo"
	"github.com/m3rciful/playlistbot/internal/playlist"
	"github.com/m3rciful/playlistbot/internal/store"
)

type fixture struct {
	f   *Flows
	svc *playlist.Service
	m   *convo.Machine
	now time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := coredatabase.Config{Driver: coredatabase.DriverSQLite, Path: filepath.Join(t.TempDir(), "bot.db")}
	db, err := coredatabase.Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, coredatabase.RunMigrations(db, cfg, store.Migrations()))

	fx := &fixture{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	fx.svc = playlist.NewService(store.New(db))
	fx.m = convo.New(state.NewManager(nil), convo.Config{AddWindow: time.Minute}, convo.WithClock(func() time.Time { return fx.now }))
	fx.f = NewFlows(fx.svc, fx.m)
	fx.f.SetBotUsername("@playlist_bot")
	return fx
}

func texts(replies []Reply) []string {
	out := make([]string, 0, len(replies))
	for _, r := range replies {
		out = append(out, r.Text)
	}
	return out
}

func only(t *testing.T, replies []Reply) Reply {
	t.Helper()
	require.Len(t, replies, 1, "replies: %q", texts(replies))
	return replies[0]
}

const alice, bob = int64(1001), int64(2002)

var ctx = context.Background()

func TestCreateByPrompt(t *testing.T) {
	fx := newFixture(t)

	r := only(t, fx.f.NewPlaylist(ctx, alice, ""))
	assert.Equal(t, msgAskNewName, r.Text)
	assert.Equal(t, convo.AwaitingPlaylistName, fx.m.State(alice))

	r = only(t, fx.f.Reply(ctx, alice, Input{Text: "Chill"}))
	assert.Equal(t, textCreated("Chill"), r.Text)
	require.NotNil(t, r.Markup)
	assert.Equal(t, convo.StateIdle, fx.m.State(alice))

	r = only(t, fx.f.NewPlaylist(ctx, alice, "Chill"))
	assert.Equal(t, textExists("Chill"), r.Text)
}

func TestFailedStepReturnsToIdle(t *testing.T) {
	fx := newFixture(t)

	fx.f.NewPlaylist(ctx, alice, "")
	r := only(t, fx.f.Reply(ctx, alice, Input{Text: "/bad"}))
	assert.Equal(t, msgBadName, r.Text)
	assert.Equal(t, convo.StateIdle, fx.m.State(alice), "no retry in place")

	r = only(t, fx.f.Reply(ctx, alice, Input{Text: "hello"}))
	assert.Equal(t, msgNoActive, r.Text)
}

func TestCommandResetsPendingStep(t *testing.T) {
	fx := newFixture(t)
	fx.f.NewPlaylist(ctx, alice, "")
	fx.f.Playlists(ctx, alice)
	assert.Equal(t, convo.StateIdle, fx.m.State(alice))
}

func TestAddSessionFlow(t *testing.T) {
	fx := newFixture(t)
	fx.f.NewPlaylist(ctx, alice, "mix")

	r := only(t, fx.f.Audio(ctx, alice, "f1", "Song"))
	assert.Equal(t, msgNoSession, r.Text)

	r = only(t, fx.f.Add(ctx, alice, "mix"))
	assert.Equal(t, textAddReady("mix", time.Minute), r.Text)

	r = only(t, fx.f.Audio(ctx, alice, "f1", "One"))
	assert.Equal(t, textAdded("One", "mix", 1), r.Text)
	r = only(t, fx.f.Audio(ctx, alice, "f2", "Two"))
	assert.Equal(t, textAdded("Two", "mix", 2), r.Text)
	r = only(t, fx.f.Audio(ctx, alice, "f1", "One"))
	assert.Equal(t, textTrackExists("One", "mix"), r.Text)

	// commands in between keep the window open
	fx.f.Playlists(ctx, alice)
	r = only(t, fx.f.Audio(ctx, alice, "f3", ""))
	assert.Equal(t, textAdded("track", "mix", 3), r.Text)

	fx.now = fx.now.Add(2 * time.Minute)
	r = only(t, fx.f.Audio(ctx, alice, "f4", "Late"))
	assert.Equal(t, textAddExpired(time.Minute), r.Text)

	_, tracks, err := fx.svc.Tracks(ctx, alice, "mix")
	require.NoError(t, err)
	assert.Len(t, tracks, 3)
}

func TestAddByPromptAndFinish(t *testing.T) {
	fx := newFixture(t)
	fx.f.NewPlaylist(ctx, alice, "mix")

	fx.f.Add(ctx, alice, "")
	assert.Equal(t, convo.AwaitingAddTarget, fx.m.State(alice))
	r := only(t, fx.f.Reply(ctx, alice, Input{Text: "nope"}))
	assert.Equal(t, textNotFound("nope"), r.Text)

	fx.f.Add(ctx, alice, "")
	fx.f.Reply(ctx, alice, Input{Text: "mix"})
	fx.f.Audio(ctx, alice, "f1", "One")
	r = only(t, fx.f.Finish(ctx, alice))
	assert.Equal(t, textFinished("mix", 1), r.Text)
	r = only(t, fx.f.Finish(ctx, alice))
	assert.Equal(t, msgNoAddToFinish, r.Text)
}

func TestFailedAddClosesPreviousSession(t *testing.T) {
	fx := newFixture(t)
	fx.f.NewPlaylist(ctx, alice, "mix")
	fx.f.Add(ctx, alice, "mix")

	fx.now = fx.now.Add(10 * time.Second)
	r := only(t, fx.f.Add(ctx, alice, "nope"))
	assert.Equal(t, textNotFound("nope"), r.Text)

	r = only(t, fx.f.Audio(ctx, alice, "f9", "Meant for nope"))
	assert.Equal(t, msgNoSession, r.Text)
	_, tracks, err := fx.svc.Tracks(ctx, alice, "mix")
	require.NoError(t, err)
	assert.Empty(t, tracks)

	// the prompt path closes it too
	fx.f.Add(ctx, alice, "mix")
	fx.f.Add(ctx, alice, "")
	fx.f.Reply(ctx, alice, Input{Text: "nope"})
	r = only(t, fx.f.Audio(ctx, alice, "f9", "Meant for nope"))
	assert.Equal(t, msgNoSession, r.Text)
}

func TestAudioClearsPendingPrompt(t *testing.T) {
	fx := newFixture(t)
	fx.f.NewPlaylist(ctx, alice, "mix")
	fx.f.Add(ctx, alice, "mix")

	fx.f.NewPlaylist(ctx, alice, "")
	require.Equal(t, convo.AwaitingPlaylistName, fx.m.State(alice))

	r := only(t, fx.f.Audio(ctx, alice, "f1", "One"))
	assert.Equal(t, textAdded("One", "mix", 1), r.Text)
	assert.Equal(t, convo.StateIdle, fx.m.State(alice))
}

func seed(t *testing.T, fx *fixture, user int64, name string, n int) {
	t.Helper()
	p, err := fx.svc.CreatePlaylist(ctx, user, name)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		_, err := fx.svc.AddTrack(ctx, p.ID, fmt.Sprintf("%s-%02d", name, i))
		require.NoError(t, err)
	}
}

func TestShowAlbums(t *testing.T) {
	fx := newFixture(t)
	seed(t, fx, alice, "big", 23)

	replies := fx.f.Show(ctx, alice, "big")
	require.Len(t, replies, 4)
	assert.Equal(t, textShowHeader("big", 23), replies[0].Text)
	assert.Empty(t, replies[0].Photo)
	assert.Len(t, replies[1].Album, 10)
	assert.Len(t, replies[3].Album, 3)
	assert.Equal(t, "Index: 10", replies[2].Album[0].Caption, "captions carry the global position")
	assert.Equal(t, "Index: 22", replies[3].Album[2].Caption)

	require.NoError(t, fx.svc.SetCover(ctx, alice, "big", "cover-id"))
	replies = fx.f.Show(ctx, alice, "big")
	assert.Equal(t, "cover-id", replies[0].Photo)

	seed(t, fx, alice, "empty", 0)
	r := only(t, fx.f.Show(ctx, alice, "empty"))
	assert.Equal(t, textEmpty("empty"), r.Text)
}

func TestShareRoundTrip(t *testing.T) {
	fx := newFixture(t)
	seed(t, fx, alice, "road_trip", 12)
	require.NoError(t, fx.svc.SetCover(ctx, alice, "road_trip", "cover-id"))

	r := only(t, fx.f.Share(ctx, alice, "road_trip"))
	p, err := fx.svc.Resolve(ctx, alice, "road_trip")
	require.NoError(t, err)
	link := playlist.ShareLink("playlist_bot", p.ID)
	assert.Contains(t, r.Text, link)

	payload := strings.TrimPrefix(link, "https://t.me/playlist_bot?start=")
	replies := fx.f.Start(ctx, bob, payload)
	require.Len(t, replies, 4)
	assert.Equal(t, textShareHeader(`road\_trip`), replies[0].Text)
	assert.True(t, replies[0].Markdown)
	assert.Equal(t, "cover-id", replies[1].Photo)
	assert.Equal(t, msgCoverCaption, replies[1].Text)
	assert.Len(t, replies[2].Album, 10)
	assert.Len(t, replies[3].Album, 2)

	assert.Equal(t, msgShareMissing, only(t, fx.f.Start(ctx, bob, "share__999")).Text)
	assert.Equal(t, msgBadShareLink, only(t, fx.f.Start(ctx, bob, "share__x")).Text)
	assert.Equal(t, msgUnknownStartLink, only(t, fx.f.Start(ctx, bob, "ref_42")).Text)
	assert.Equal(t, msgWelcome, only(t, fx.f.Start(ctx, bob, "")).Text)
}

func TestRemoveFlows(t *testing.T) {
	fx := newFixture(t)
	seed(t, fx, alice, "mix", 3)

	assert.Equal(t, msgUsageRemove, only(t, fx.f.Remove(ctx, alice, "mix")).Text)
	assert.Equal(t, msgUsageRemove, only(t, fx.f.Remove(ctx, alice, "mix x")).Text)
	assert.Equal(t, textCantRemove(7, "mix"), only(t, fx.f.Remove(ctx, alice, "mix 7")).Text)
	assert.Equal(t, textRemoved(0, "mix"), only(t, fx.f.Remove(ctx, alice, "mix 0")).Text)

	r := only(t, fx.f.ChooseTrack(ctx, alice, "mix"))
	require.NotNil(t, r.Markup)
	assert.Len(t, r.Markup.InlineKeyboard[0], 2)
	assert.Equal(t, convo.AwaitingRemoveTrack, fx.m.State(alice))

	r = only(t, fx.f.PickTrack(ctx, alice, "1"))
	assert.Equal(t, textRemoved(1, "mix"), r.Text)
	assert.Equal(t, msgNoActive, only(t, fx.f.PickTrack(ctx, alice, "0")).Text, "second press after the step ended")

	fx.f.ChooseTrack(ctx, alice, "mix")
	r = only(t, fx.f.Reply(ctx, alice, Input{Text: "zero"}))
	assert.Equal(t, msgBadIndex, r.Text)

	_, tracks, err := fx.svc.Tracks(ctx, alice, "mix")
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, "mix-01", tracks[0].FileID)
}

func TestDeleteConfirmFlow(t *testing.T) {
	fx := newFixture(t)
	seed(t, fx, alice, "old", 2)

	assert.Equal(t, msgNoPending, only(t, fx.f.ConfirmDelete(ctx, alice, "old")).Text)

	r := only(t, fx.f.Delete(ctx, alice, "old"))
	assert.Equal(t, textConfirmDelete("old"), r.Text)
	assert.Equal(t, msgDeleteCancel, only(t, fx.f.CancelDelete(ctx, alice)).Text)
	assert.Equal(t, msgNoPending, only(t, fx.f.ConfirmDelete(ctx, alice, "old")).Text, "confirm after cancel")

	fx.f.Delete(ctx, alice, "old")
	assert.Equal(t, textDeleted("old"), only(t, fx.f.ConfirmDelete(ctx, alice, "old")).Text)
	assert.Equal(t, msgNoPending, only(t, fx.f.CancelDelete(ctx, alice)).Text, "cancel after confirm")

	_, err := fx.svc.Resolve(ctx, alice, "old")
	assert.Error(t, err)
}

func TestDeleteIsResetByOtherCommands(t *testing.T) {
	fx := newFixture(t)
	seed(t, fx, alice, "keep", 0)

	fx.f.Delete(ctx, alice, "keep")
	fx.f.Playlists(ctx, alice)
	assert.Equal(t, msgNoPending, only(t, fx.f.ConfirmDelete(ctx, alice, "keep")).Text)
}

func TestRenameFlows(t *testing.T) {
	fx := newFixture(t)
	seed(t, fx, alice, "a", 0)
	seed(t, fx, alice, "b", 0)

	assert.Equal(t, msgUsageRename, only(t, fx.f.Rename(ctx, alice, "a")).Text)
	assert.Equal(t, textNameTaken("b"), only(t, fx.f.Rename(ctx, alice, "a b")).Text)
	assert.Equal(t, textRenamed("a", "c"), only(t, fx.f.Rename(ctx, alice, "a c")).Text)

	fx.f.Rename(ctx, alice, "")
	r := only(t, fx.f.Reply(ctx, alice, Input{Text: "c"}))
	assert.Equal(t, textAskRenameTo("c"), r.Text)
	assert.Equal(t, convo.AwaitingRenameTarget, fx.m.State(alice))
	r = only(t, fx.f.Reply(ctx, alice, Input{Text: "d"}))
	assert.Equal(t, textRenamed("c", "d"), r.Text)

	fx.f.AskRename(ctx, alice, "d")
	r = only(t, fx.f.Reply(ctx, alice, Input{Text: "b"}))
	assert.Equal(t, textNameTaken("b"), r.Text)
	assert.Equal(t, convo.StateIdle, fx.m.State(alice))
}

func TestCoverFlow(t *testing.T) {
	fx := newFixture(t)
	seed(t, fx, alice, "mix", 1)

	fx.f.Cover(ctx, alice, "")
	assert.Equal(t, convo.AwaitingCoverTarget, fx.m.State(alice))
	fx.f.Reply(ctx, alice, Input{Text: "mix"})
	assert.Equal(t, convo.AwaitingCoverImage, fx.m.State(alice))

	r := only(t, fx.f.Reply(ctx, alice, Input{Text: "not a photo"}))
	assert.Equal(t, msgPhotoExpected, r.Text)
	assert.Equal(t, convo.StateIdle, fx.m.State(alice))

	fx.f.Cover(ctx, alice, "mix")
	r = only(t, fx.f.Reply(ctx, alice, Input{PhotoID: "photo-big"}))
	assert.Equal(t, textCoverSet("mix"), r.Text)

	p, err := fx.svc.Resolve(ctx, alice, "mix")
	require.NoError(t, err)
	cover, err := fx.svc.Cover(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "photo-big", cover)
}

func TestCancel(t *testing.T) {
	fx := newFixture(t)
	seed(t, fx, alice, "mix", 0)

	assert.Equal(t, msgNothingCancel, only(t, fx.f.Cancel(ctx, alice)).Text)

	fx.f.Add(ctx, alice, "mix")
	assert.Equal(t, msgCancelled, only(t, fx.f.Cancel(ctx, alice)).Text)
	assert.Equal(t, msgNoSession, only(t, fx.f.Audio(ctx, alice, "f", "t")).Text)
}

func TestPlaylistsAreScopedToUser(t *testing.T) {
	fx := newFixture(t)
	seed(t, fx, alice, "mine", 1)

	assert.Equal(t, msgNoPlaylists, only(t, fx.f.Playlists(ctx, bob)).Text)
	assert.Equal(t, textNotFound("mine"), only(t, fx.f.Show(ctx, bob, "mine")).Text)

	r := only(t, fx.f.Playlists(ctx, alice))
	require.NotNil(t, r.Markup)
	assert.Equal(t, "mine", r.Markup.InlineKeyboard[0][0].Text)
}

func TestStats(t *testing.T) {
	fx := newFixture(t)
	seed(t, fx, alice, "a", 2)
	seed(t, fx, bob, "b", 1)
	assert.Equal(t, textStats(2, 2, 3), only(t, fx.f.Stats(ctx)).Text)

	fx.f.SetSendFailures(func() uint64 { return 4 })
	assert.Equal(t, textStats(2, 2, 3)+"\n⚠️ Failed sends: 4", only(t, fx.f.Stats(ctx)).Text)
}
