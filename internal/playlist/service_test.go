package playlist

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coredatabase "github.com/m3rciful/playlistbot/core/database"
	"github.com/m3rciful/playlistbot/internal/domain"
	"github.com/m3rciful/playlistbot/internal/store"
)

func newService(t *testing.T) *Service {
	t.Helper()
	cfg := coredatabase.Config{Driver: coredatabase.DriverSQLite, Path: filepath.Join(t.TempDir(), "svc.db")}
	db, err := coredatabase.Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, coredatabase.RunMigrations(db, cfg, store.Migrations()))
	return NewService(store.New(db))
}

func TestShareRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	const alice, bob = int64(100), int64(200)

	p, err := svc.CreatePlaylist(ctx, alice, "road-trip")
	require.NoError(t, err)
	for i := 0; i < 12; i++ {
		_, err := svc.AddTrack(ctx, p.ID, fmt.Sprintf("audio-%02d", i))
		require.NoError(t, err)
	}

	link := ShareLink("@playlist_bot", p.ID)
	assert.Equal(t, fmt.Sprintf("https://t.me/playlist_bot?start=share__%d", p.ID), link)

	id, err := ParseSharePayload(SharePayload(p.ID))
	require.NoError(t, err)

	_, err = svc.EnsureUser(ctx, bob)
	require.NoError(t, err)
	shared, err := svc.Shared(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "road-trip", shared.Playlist.Name)
	assert.Empty(t, shared.Cover)
	require.Len(t, shared.Tracks, 12)
	for i, tr := range shared.Tracks {
		assert.Equal(t, i, tr.Position)
		assert.Equal(t, fmt.Sprintf("audio-%02d", i), tr.FileID)
	}

	require.NoError(t, svc.SetCover(ctx, alice, "road-trip", "cover-1"))
	shared, err = svc.Shared(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "cover-1", shared.Cover)

	_, err = svc.Shared(ctx, id+1)
	assert.ErrorIs(t, err, domain.ErrPlaylistNotFound)
}

func TestNameAddressingIsPerUser(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	_, err := svc.CreatePlaylist(ctx, 1, "mine")
	require.NoError(t, err)
	_, err = svc.Resolve(ctx, 2, "mine")
	assert.ErrorIs(t, err, domain.ErrPlaylistNotFound)
	assert.ErrorIs(t, svc.DeletePlaylist(ctx, 2, "mine"), domain.ErrPlaylistNotFound)

	names, err := svc.PlaylistNames(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"mine"}, names)
}

func TestRemoveTrackShifts(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	p, _ := svc.CreatePlaylist(ctx, 1, "mix")
	for _, f := range []string{"a", "b", "c"} {
		_, err := svc.AddTrack(ctx, p.ID, f)
		require.NoError(t, err)
	}

	removed, err := svc.RemoveTrack(ctx, 1, "mix", 0)
	require.NoError(t, err)
	assert.Equal(t, "a", removed.FileID)

	_, tracks, err := svc.Tracks(ctx, 1, "mix")
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "b", tracks[0].FileID)

	_, err = svc.RemoveTrack(ctx, 1, "mix", 5)
	assert.ErrorIs(t, err, domain.ErrPositionOutOfRange)
	_, err = svc.RemoveTrack(ctx, 1, "mix", -1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestValidation(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	cases := []struct {
		name string
		want error
	}{
		{"", domain.ErrEmptyName},
		{"   ", domain.ErrEmptyName},
		{"/start", domain.ErrBadName},
		{strings.Repeat("x", domain.MaxNameLen+1), domain.ErrNameTooLong},
	}
	for _, tc := range cases {
		_, err := svc.CreatePlaylist(ctx, 1, tc.name)
		assert.ErrorIs(t, err, tc.want)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
	_, err := svc.CreatePlaylist(ctx, 1, strings.Repeat("x", domain.MaxNameLen))
	assert.NoError(t, err)

	_, _ = svc.CreatePlaylist(ctx, 1, "a")
	assert.ErrorIs(t, svc.RenamePlaylist(ctx, 1, "a", "/b"), domain.ErrBadName)
	p, _ := svc.Resolve(ctx, 1, "a")
	_, err = svc.AddTrack(ctx, p.ID, " ")
	assert.ErrorIs(t, err, domain.ErrEmptyFileID)
}

func TestRenameRegression(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	_, _ = svc.CreatePlaylist(ctx, 1, "old")
	_, _ = svc.CreatePlaylist(ctx, 1, "taken")

	assert.ErrorIs(t, svc.RenamePlaylist(ctx, 1, "old", "taken"), domain.ErrNameTaken)
	_, err := svc.Resolve(ctx, 1, "old")
	assert.NoError(t, err, "failed rename must keep the old name")

	require.NoError(t, svc.RenamePlaylist(ctx, 1, "old", "fresh"))
	_, err = svc.Resolve(ctx, 1, "old")
	assert.ErrorIs(t, err, domain.ErrPlaylistNotFound)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	for _, n := range []string{"Rock", "rap", "jazz", "Rave"} {
		_, err := svc.CreatePlaylist(ctx, 1, n)
		require.NoError(t, err)
	}
	got, err := svc.Search(ctx, 1, "r", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Rock", got[0].Name)
	assert.Equal(t, "rap", got[1].Name)

	all, err := svc.Search(ctx, 1, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestParsers(t *testing.T) {
	for _, bad := range []string{"", "share__", "share__x", "share__-1", "playlist__3"} {
		_, err := ParseSharePayload(bad)
		assert.ErrorIs(t, err, domain.ErrBadShareLink, bad)
	}
	assert.True(t, IsSharePayload("share__12"))
	assert.False(t, IsSharePayload("hello"))

	n, err := ParsePosition(" 3 ")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	_, err = ParsePosition("x")
	assert.ErrorIs(t, err, domain.ErrInvalidPosition)
}

type brokenRepo struct{ Repository }

var errDisk = errors.New("disk I/O error")

func (brokenRepo) UpsertUser(context.Context, int64) error { return domain.NewStorageError("upsert user", errDisk) }
func (brokenRepo) FindUserID(context.Context, int64) (int64, error) {
	return 0, domain.NewStorageError("find user", errDisk)
}

func TestStorageFailureIsDistinctOutcome(t *testing.T) {
	svc := NewService(brokenRepo{})
	_, err := svc.CreatePlaylist(context.Background(), 1, "x")
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.ErrorIs(t, err, errDisk)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}
