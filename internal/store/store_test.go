package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coredatabase "github.com/m3rciful/playlistbot/core/database"
	"github.com/m3rciful/playlistbot/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := coredatabase.Config{Driver: coredatabase.DriverSQLite, Path: filepath.Join(t.TempDir(), "playlists.db")}
	db, err := coredatabase.Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, coredatabase.RunMigrations(db, cfg, Migrations()))
	return New(db)
}

func newUser(t *testing.T, s *Store, tgID int64) int64 {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.UpsertUser(ctx, tgID))
	id, err := s.FindUserID(ctx, tgID)
	require.NoError(t, err)
	return id
}

func fileIDs(tracks []domain.Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.FileID
	}
	return out
}

func TestUpsertUserIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first := newUser(t, s, 1001)
	require.NoError(t, s.UpsertUser(ctx, 1001))
	again, err := s.FindUserID(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	_, err = s.FindUserID(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreatePlaylistTwiceConflicts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	uid := newUser(t, s, 1)

	p, err := s.CreatePlaylist(ctx, uid, "road-trip")
	require.NoError(t, err)
	assert.NotZero(t, p.ID)

	_, err = s.CreatePlaylist(ctx, uid, "road-trip")
	assert.ErrorIs(t, err, domain.ErrPlaylistExists)
	assert.ErrorIs(t, err, domain.ErrConflict)

	// names are taken verbatim
	_, err = s.CreatePlaylist(ctx, uid, "Road-Trip ")
	assert.NoError(t, err)

	// another user may reuse the name
	other := newUser(t, s, 2)
	_, err = s.CreatePlaylist(ctx, other, "road-trip")
	assert.NoError(t, err)

	names, err := s.PlaylistNames(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, []string{"road-trip", "Road-Trip "}, names)
}

func TestCreatePlaylistForUnknownUser(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreatePlaylist(context.Background(), 999, "x")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestTracksKeepInsertionOrderAndShiftOnRemove(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	uid := newUser(t, s, 1)
	p, err := s.CreatePlaylist(ctx, uid, "mix")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		tr, err := s.AddTrack(ctx, p.ID, fmt.Sprintf("t%d", i))
		require.NoError(t, err)
		assert.Equal(t, i, tr.Position)
	}

	tracks, err := s.Tracks(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"t0", "t1", "t2", "t3", "t4"}, fileIDs(tracks))
	for i, tr := range tracks {
		assert.Equal(t, i, tr.Position)
	}

	removed, err := s.RemoveTrackAt(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, "t2", removed.FileID)
	assert.Equal(t, 2, removed.Position)

	tracks, err = s.Tracks(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"t0", "t1", "t3", "t4"}, fileIDs(tracks))
	assert.Equal(t, "t3", tracks[2].FileID, "position 2 now holds the old position 3")

	// a re-added file goes to the end, never back into its old slot
	tr, err := s.AddTrack(ctx, p.ID, "t2")
	require.NoError(t, err)
	assert.Equal(t, 4, tr.Position)
}

func TestRemoveTrackOutOfRange(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	uid := newUser(t, s, 1)
	p, _ := s.CreatePlaylist(ctx, uid, "mix")
	_, _ = s.AddTrack(ctx, p.ID, "a")

	_, err := s.RemoveTrackAt(ctx, p.ID, 1)
	assert.ErrorIs(t, err, domain.ErrPositionOutOfRange)
	_, err = s.RemoveTrackAt(ctx, p.ID, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	tracks, _ := s.Tracks(ctx, p.ID)
	assert.Len(t, tracks, 1)
}

func TestAddDuplicateTrack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	uid := newUser(t, s, 1)
	p, _ := s.CreatePlaylist(ctx, uid, "mix")

	_, err := s.AddTrack(ctx, p.ID, "same")
	require.NoError(t, err)
	_, err = s.AddTrack(ctx, p.ID, "same")
	assert.ErrorIs(t, err, domain.ErrTrackExists)

	tracks, _ := s.Tracks(ctx, p.ID)
	assert.Len(t, tracks, 1)

	_, err = s.AddTrack(ctx, p.ID+100, "x")
	assert.ErrorIs(t, err, domain.ErrPlaylistNotFound)
}

func TestDeletePlaylistRemovesTracks(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	uid := newUser(t, s, 1)
	p, _ := s.CreatePlaylist(ctx, uid, "gone")
	keep, _ := s.CreatePlaylist(ctx, uid, "kept")
	for i := 0; i < 3; i++ {
		_, err := s.AddTrack(ctx, p.ID, fmt.Sprintf("f%d", i))
		require.NoError(t, err)
	}
	_, _ = s.AddTrack(ctx, keep.ID, "k")

	require.NoError(t, s.DeletePlaylist(ctx, uid, "gone"))

	_, err := s.ResolvePlaylist(ctx, uid, "gone")
	assert.ErrorIs(t, err, domain.ErrPlaylistNotFound)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{Users: 1, Playlists: 1, Tracks: 1}, st)

	assert.ErrorIs(t, s.DeletePlaylist(ctx, uid, "gone"), domain.ErrPlaylistNotFound)
}

func TestRenameRejectsTakenTarget(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	uid := newUser(t, s, 1)
	a, _ := s.CreatePlaylist(ctx, uid, "a")
	b, _ := s.CreatePlaylist(ctx, uid, "b")

	err := s.RenamePlaylist(ctx, uid, "a", "b")
	assert.ErrorIs(t, err, domain.ErrNameTaken)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.ErrorIs(t, s.RenamePlaylist(ctx, uid, "a", "a"), domain.ErrNameTaken)

	gotA, err := s.ResolvePlaylist(ctx, uid, "a")
	require.NoError(t, err)
	assert.Equal(t, a.ID, gotA.ID)
	gotB, err := s.ResolvePlaylist(ctx, uid, "b")
	require.NoError(t, err)
	assert.Equal(t, b.ID, gotB.ID)

	require.NoError(t, s.RenamePlaylist(ctx, uid, "a", "c"))
	gotC, err := s.ResolvePlaylist(ctx, uid, "c")
	require.NoError(t, err)
	assert.Equal(t, a.ID, gotC.ID)

	assert.ErrorIs(t, s.RenamePlaylist(ctx, uid, "missing", "d"), domain.ErrPlaylistNotFound)
}

func TestCover(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	uid := newUser(t, s, 1)
	p, _ := s.CreatePlaylist(ctx, uid, "mix")

	_, err := s.Cover(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrCoverNotSet)

	require.NoError(t, s.SetCover(ctx, uid, "mix", "photo-1"))
	cover, err := s.Cover(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "photo-1", cover)

	byID, err := s.PlaylistByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, byID.HasCover())

	assert.ErrorIs(t, s.SetCover(ctx, uid, "nope", "x"), domain.ErrPlaylistNotFound)
	_, err = s.Cover(ctx, p.ID+5)
	assert.ErrorIs(t, err, domain.ErrPlaylistNotFound)
}

func TestStorageErrorsAreDistinct(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.db.Close())

	_, err := s.ResolvePlaylist(ctx, 1, "x")
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.NotErrorIs(t, err, domain.ErrNotFound)

	_, err = s.FindUserID(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrStorage)
}
