// Package store persists users, playlists and tracks in SQLite or Postgres.
//
// Track order is insertion order: a track's position is its zero-based rank
// by id within the playlist. Ids are monotonic on both drivers, so removing
// position k shifts every later track down by one.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/jmoiron/sqlx"

	coredatabase "github.com/m3rciful/playlistbot/core/database"
	"github.com/m3rciful/playlistbot/internal/domain"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrations returns the embedded schema, one directory per driver.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Store is the entity store over an open connection pool.
type Store struct {
	db *sqlx.DB
}

// New wraps db; the schema must already be migrated.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Ping checks the connection for readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) q(query string) string {
	return s.db.Rebind(query)
}

func (s *Store) inTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.NewStorageError(op+": begin", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return domain.NewStorageError(op+": commit", err)
	}
	return nil
}

// UpsertUser registers telegramID; an existing user is left untouched.
func (s *Store) UpsertUser(ctx context.Context, telegramID int64) error {
	_, err := s.db.ExecContext(ctx,
		s.q(`INSERT INTO users (telegram_id) VALUES (?) ON CONFLICT (telegram_id) DO NOTHING`),
		telegramID)
	return domain.NewStorageError("upsert user", err)
}

// FindUserID maps a Telegram id to the internal user id.
func (s *Store) FindUserID(ctx context.Context, telegramID int64) (int64, error) {
	var id int64
	err := s.db.GetContext(ctx, &id, s.q(`SELECT id FROM users WHERE telegram_id = ?`), telegramID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrUserNotFound
	}
	if err != nil {
		return 0, domain.NewStorageError("find user", err)
	}
	return id, nil
}

// CreatePlaylist stores name verbatim for userID.
func (s *Store) CreatePlaylist(ctx context.Context, userID int64, name string) (domain.Playlist, error) {
	p := domain.Playlist{UserID: userID, Name: name}
	err := s.db.GetContext(ctx, &p.ID,
		s.q(`INSERT INTO playlists (user_id, name) VALUES (?, ?) RETURNING id`),
		userID, name)
	switch {
	case coredatabase.IsUniqueViolation(err):
		return domain.Playlist{}, domain.ErrPlaylistExists
	case coredatabase.IsForeignKeyViolation(err):
		return domain.Playlist{}, domain.ErrUserNotFound
	case err != nil:
		return domain.Playlist{}, domain.NewStorageError("create playlist", err)
	}
	return p, nil
}

// RenamePlaylist renames oldName to newName. The target must be free for
// that user; the check and the update share one transaction.
func (s *Store) RenamePlaylist(ctx context.Context, userID int64, oldName, newName string) error {
	return s.inTx(ctx, "rename playlist", func(tx *sqlx.Tx) error {
		id, err := s.playlistID(ctx, tx, userID, oldName)
		if err != nil {
			return err
		}

		var taken int
		err = tx.GetContext(ctx, &taken,
			s.q(`SELECT COUNT(*) FROM playlists WHERE user_id = ? AND name = ?`), userID, newName)
		if err != nil {
			return domain.NewStorageError("rename playlist: check target", err)
		}
		if taken > 0 {
			return domain.ErrNameTaken
		}

		_, err = tx.ExecContext(ctx, s.q(`UPDATE playlists SET name = ? WHERE id = ?`), newName, id)
		if coredatabase.IsUniqueViolation(err) {
			return domain.ErrNameTaken
		}
		return domain.NewStorageError("rename playlist: update", err)
	})
}

// DeletePlaylist removes the playlist and all of its tracks atomically.
func (s *Store) DeletePlaylist(ctx context.Context, userID int64, name string) error {
	return s.inTx(ctx, "delete playlist", func(tx *sqlx.Tx) error {
		id, err := s.playlistID(ctx, tx, userID, name)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM tracks WHERE playlist_id = ?`), id); err != nil {
			return domain.NewStorageError("delete playlist: tracks", err)
		}
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM playlists WHERE id = ?`), id); err != nil {
			return domain.NewStorageError("delete playlist: row", err)
		}
		return nil
	})
}

// AddTrack appends fileID to the playlist and reports its position.
func (s *Store) AddTrack(ctx context.Context, playlistID int64, fileID string) (domain.Track, error) {
	t := domain.Track{PlaylistID: playlistID, FileID: fileID}
	err := s.inTx(ctx, "add track", func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &t.ID,
			s.q(`INSERT INTO tracks (playlist_id, file_id) VALUES (?, ?) RETURNING id`),
			playlistID, fileID)
		switch {
		case coredatabase.IsUniqueViolation(err):
			return domain.ErrTrackExists
		case coredatabase.IsForeignKeyViolation(err):
			return domain.ErrPlaylistNotFound
		case err != nil:
			return domain.NewStorageError("add track: insert", err)
		}
		err = tx.GetContext(ctx, &t.Position,
			s.q(`SELECT COUNT(*) FROM tracks WHERE playlist_id = ? AND id < ?`), playlistID, t.ID)
		return domain.NewStorageError("add track: position", err)
	})
	if err != nil {
		return domain.Track{}, err
	}
	return t, nil
}

// RemoveTrackAt deletes the track at the zero-based position.
// Resolving the position and deleting happen in one transaction.
func (s *Store) RemoveTrackAt(ctx context.Context, playlistID int64, position int) (domain.Track, error) {
	if position < 0 {
		return domain.Track{}, domain.ErrInvalidPosition
	}
	var t domain.Track
	err := s.inTx(ctx, "remove track", func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &t, s.q(`
			SELECT id, playlist_id, file_id FROM tracks
			WHERE playlist_id = ?
			ORDER BY id
			LIMIT 1 OFFSET ?`), playlistID, position)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrPositionOutOfRange
		}
		if err != nil {
			return domain.NewStorageError("remove track: resolve", err)
		}
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM tracks WHERE id = ?`), t.ID); err != nil {
			return domain.NewStorageError("remove track: delete", err)
		}
		return nil
	})
	if err != nil {
		return domain.Track{}, err
	}
	t.Position = position
	return t, nil
}

// PlaylistNames lists the user's playlists in creation order.
func (s *Store) PlaylistNames(ctx context.Context, userID int64) ([]string, error) {
	var names []string
	err := s.db.SelectContext(ctx, &names,
		s.q(`SELECT name FROM playlists WHERE user_id = ? ORDER BY id`), userID)
	if err != nil {
		return nil, domain.NewStorageError("list playlists", err)
	}
	return names, nil
}

// Playlists lists the user's playlists with covers in creation order.
func (s *Store) Playlists(ctx context.Context, userID int64) ([]domain.Playlist, error) {
	var out []domain.Playlist
	err := s.db.SelectContext(ctx, &out,
		s.q(`SELECT id, user_id, name, cover_file_id FROM playlists WHERE user_id = ? ORDER BY id`), userID)
	if err != nil {
		return nil, domain.NewStorageError("list playlists", err)
	}
	return out, nil
}

// Tracks lists the playlist's tracks in insertion order with positions filled.
func (s *Store) Tracks(ctx context.Context, playlistID int64) ([]domain.Track, error) {
	var out []domain.Track
	err := s.db.SelectContext(ctx, &out,
		s.q(`SELECT id, playlist_id, file_id FROM tracks WHERE playlist_id = ? ORDER BY id`), playlistID)
	if err != nil {
		return nil, domain.NewStorageError("list tracks", err)
	}
	for i := range out {
		out[i].Position = i
	}
	return out, nil
}

// SetCover stores the cover reference of the user's playlist.
func (s *Store) SetCover(ctx context.Context, userID int64, name, fileID string) error {
	res, err := s.db.ExecContext(ctx,
		s.q(`UPDATE playlists SET cover_file_id = ? WHERE user_id = ? AND name = ?`), fileID, userID, name)
	if err != nil {
		return domain.NewStorageError("set cover", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.NewStorageError("set cover", err)
	}
	if n == 0 {
		return domain.ErrPlaylistNotFound
	}
	return nil
}

// Cover returns the playlist's cover reference.
func (s *Store) Cover(ctx context.Context, playlistID int64) (string, error) {
	var cover sql.NullString
	err := s.db.GetContext(ctx, &cover, s.q(`SELECT cover_file_id FROM playlists WHERE id = ?`), playlistID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrPlaylistNotFound
	}
	if err != nil {
		return "", domain.NewStorageError("get cover", err)
	}
	if !cover.Valid || cover.String == "" {
		return "", domain.ErrCoverNotSet
	}
	return cover.String, nil
}

// ResolvePlaylist finds the user's playlist by exact name.
func (s *Store) ResolvePlaylist(ctx context.Context, userID int64, name string) (domain.Playlist, error) {
	var p domain.Playlist
	err := s.db.GetContext(ctx, &p,
		s.q(`SELECT id, user_id, name, cover_file_id FROM playlists WHERE user_id = ? AND name = ?`), userID, name)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Playlist{}, domain.ErrPlaylistNotFound
	}
	if err != nil {
		return domain.Playlist{}, domain.NewStorageError("resolve playlist", err)
	}
	return p, nil
}

// PlaylistByID loads a playlist regardless of owner.
func (s *Store) PlaylistByID(ctx context.Context, id int64) (domain.Playlist, error) {
	var p domain.Playlist
	err := s.db.GetContext(ctx, &p,
		s.q(`SELECT id, user_id, name, cover_file_id FROM playlists WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Playlist{}, domain.ErrPlaylistNotFound
	}
	if err != nil {
		return domain.Playlist{}, domain.NewStorageError("playlist by id", err)
	}
	return p, nil
}

// Stats counts rows in every table.
func (s *Store) Stats(ctx context.Context) (domain.Stats, error) {
	var st domain.Stats
	err := s.db.GetContext(ctx, &st, `
		SELECT
			(SELECT COUNT(*) FROM users)     AS users,
			(SELECT COUNT(*) FROM playlists) AS playlists,
			(SELECT COUNT(*) FROM tracks)    AS tracks`)
	if err != nil {
		return domain.Stats{}, domain.NewStorageError("stats", err)
	}
	return st, nil
}

func (s *Store) playlistID(ctx context.Context, tx *sqlx.Tx, userID int64, name string) (int64, error) {
	var id int64
	err := tx.GetContext(ctx, &id, s.q(`SELECT id FROM playlists WHERE user_id = ? AND name = ?`), userID, name)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrPlaylistNotFound
	}
	if err != nil {
		return 0, domain.NewStorageError("resolve playlist", fmt.Errorf("%q: %w", name, err))
	}
	return id, nil
}
