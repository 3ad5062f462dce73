// Package playlist addresses playlists by name on behalf of a Telegram user
// and resolves share links.
//
// Share links carry the raw playlist id. Anyone holding a link can read the
// playlist's cover and tracks: knowing the id is the authorization.
package playlist

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/m3rciful/playlistbot/core/logger"
	"github.com/m3rciful/playlistbot/internal/domain"
)

// Repository is the entity store the service needs.
type Repository interface {
	UpsertUser(ctx context.Context, telegramID int64) error
	FindUserID(ctx context.Context, telegramID int64) (int64, error)
	CreatePlaylist(ctx context.Context, userID int64, name string) (domain.Playlist, error)
	RenamePlaylist(ctx context.Context, userID int64, oldName, newName string) error
	DeletePlaylist(ctx context.Context, userID int64, name string) error
	AddTrack(ctx context.Context, playlistID int64, fileID string) (domain.Track, error)
	RemoveTrackAt(ctx context.Context, playlistID int64, position int) (domain.Track, error)
	PlaylistNames(ctx context.Context, userID int64) ([]string, error)
	Playlists(ctx context.Context, userID int64) ([]domain.Playlist, error)
	Tracks(ctx context.Context, playlistID int64) ([]domain.Track, error)
	SetCover(ctx context.Context, userID int64, name, fileID string) error
	Cover(ctx context.Context, playlistID int64) (string, error)
	ResolvePlaylist(ctx context.Context, userID int64, name string) (domain.Playlist, error)
	PlaylistByID(ctx context.Context, id int64) (domain.Playlist, error)
	Stats(ctx context.Context) (domain.Stats, error)
}

// Service implements playlist use cases.
type Service struct {
	repo Repository
}

// NewService builds a Service over repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// SharedPlaylist is what a share link recipient gets.
type SharedPlaylist struct {
	Playlist domain.Playlist
	// Cover is empty when none is set.
	Cover  string
	Tracks []domain.Track
}

// ValidateName checks a playlist name typed by a user.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return domain.ErrEmptyName
	case strings.HasPrefix(name, "/"):
		return domain.ErrBadName
	case len(name) > domain.MaxNameLen:
		return domain.ErrNameTooLong
	}
	return nil
}

// observe logs the outcome of op; storage failures go out at error level.
func observe(ctx context.Context, op string, err error, attrs ...slog.Attr) {
	level := slog.LevelDebug
	status := "ok"
	if err != nil {
		status = "fail"
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_kind", domain.KindOf(err)),
		)
		if errors.Is(err, domain.ErrStorage) {
			level = slog.LevelError
		}
	}
	attrs = append([]slog.Attr{slog.String("status", status)}, attrs...)
	logger.LogEvent(ctx, logger.SVCPlaylists, level, op, attrs...)
}

// EnsureUser registers telegramID if needed and returns the internal id.
// A failed upsert is only logged; the lookup decides the outcome.
func (s *Service) EnsureUser(ctx context.Context, telegramID int64) (int64, error) {
	if err := s.repo.UpsertUser(ctx, telegramID); err != nil {
		observe(ctx, "user.upsert", err, slog.Int64("user_id", telegramID))
	}
	id, err := s.repo.FindUserID(ctx, telegramID)
	if err != nil {
		observe(ctx, "user.find", err, slog.Int64("user_id", telegramID))
		return 0, err
	}
	return id, nil
}

// CreatePlaylist creates name for the user.
func (s *Service) CreatePlaylist(ctx context.Context, telegramID int64, name string) (domain.Playlist, error) {
	if err := ValidateName(name); err != nil {
		return domain.Playlist{}, err
	}
	uid, err := s.EnsureUser(ctx, telegramID)
	if err != nil {
		return domain.Playlist{}, err
	}
	p, err := s.repo.CreatePlaylist(ctx, uid, name)
	observe(ctx, "playlist.create", err, slog.String("playlist", name), slog.Int64("playlist_id", p.ID))
	return p, err
}

// RenamePlaylist renames oldName to newName; a taken target is a conflict.
func (s *Service) RenamePlaylist(ctx context.Context, telegramID int64, oldName, newName string) error {
	if strings.TrimSpace(oldName) == "" {
		return domain.ErrEmptyName
	}
	if err := ValidateName(newName); err != nil {
		return err
	}
	uid, err := s.EnsureUser(ctx, telegramID)
	if err != nil {
		return err
	}
	err = s.repo.RenamePlaylist(ctx, uid, oldName, newName)
	observe(ctx, "playlist.rename", err, slog.String("playlist", oldName), slog.String("new_name", newName))
	return err
}

// DeletePlaylist removes the playlist with all its tracks.
func (s *Service) DeletePlaylist(ctx context.Context, telegramID int64, name string) error {
	uid, err := s.EnsureUser(ctx, telegramID)
	if err != nil {
		return err
	}
	err = s.repo.DeletePlaylist(ctx, uid, name)
	observe(ctx, "playlist.delete", err, slog.String("playlist", name))
	return err
}

// Resolve finds the user's playlist by name.
func (s *Service) Resolve(ctx context.Context, telegramID int64, name string) (domain.Playlist, error) {
	if strings.TrimSpace(name) == "" {
		return domain.Playlist{}, domain.ErrEmptyName
	}
	uid, err := s.EnsureUser(ctx, telegramID)
	if err != nil {
		return domain.Playlist{}, err
	}
	p, err := s.repo.ResolvePlaylist(ctx, uid, name)
	if err != nil {
		observe(ctx, "playlist.resolve", err, slog.String("playlist", name))
	}
	return p, err
}

// PlaylistNames lists the user's playlists in creation order.
func (s *Service) PlaylistNames(ctx context.Context, telegramID int64) ([]string, error) {
	uid, err := s.EnsureUser(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	names, err := s.repo.PlaylistNames(ctx, uid)
	observe(ctx, "playlist.list", err, slog.Int("count", len(names)))
	return names, err
}

// Search returns up to limit playlists whose name starts with prefix,
// ignoring case. An empty prefix matches everything.
func (s *Service) Search(ctx context.Context, telegramID int64, prefix string, limit int) ([]domain.Playlist, error) {
	uid, err := s.EnsureUser(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	all, err := s.repo.Playlists(ctx, uid)
	if err != nil {
		observe(ctx, "playlist.search", err)
		return nil, err
	}
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	var out []domain.Playlist
	for _, p := range all {
		if limit > 0 && len(out) == limit {
			break
		}
		if strings.HasPrefix(strings.ToLower(p.Name), prefix) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Tracks returns the named playlist and its tracks in position order.
func (s *Service) Tracks(ctx context.Context, telegramID int64, name string) (domain.Playlist, []domain.Track, error) {
	p, err := s.Resolve(ctx, telegramID, name)
	if err != nil {
		return domain.Playlist{}, nil, err
	}
	tracks, err := s.repo.Tracks(ctx, p.ID)
	observe(ctx, "track.list", err, slog.String("playlist", name), slog.Int("tracks", len(tracks)))
	if err != nil {
		return domain.Playlist{}, nil, err
	}
	return p, tracks, nil
}

// AddTrack appends fileID to the playlist.
func (s *Service) AddTrack(ctx context.Context, playlistID int64, fileID string) (domain.Track, error) {
	if strings.TrimSpace(fileID) == "" {
		return domain.Track{}, domain.ErrEmptyFileID
	}
	t, err := s.repo.AddTrack(ctx, playlistID, fileID)
	observe(ctx, "track.add", err, slog.Int64("playlist_id", playlistID), slog.Int("position", t.Position))
	return t, err
}

// RemoveTrack deletes the track at position from the named playlist.
func (s *Service) RemoveTrack(ctx context.Context, telegramID int64, name string, position int) (domain.Track, error) {
	if position < 0 {
		return domain.Track{}, domain.ErrInvalidPosition
	}
	p, err := s.Resolve(ctx, telegramID, name)
	if err != nil {
		return domain.Track{}, err
	}
	t, err := s.repo.RemoveTrackAt(ctx, p.ID, position)
	observe(ctx, "track.remove", err, slog.String("playlist", name), slog.Int("position", position))
	return t, err
}

// SetCover stores fileID as the playlist cover.
func (s *Service) SetCover(ctx context.Context, telegramID int64, name, fileID string) error {
	if strings.TrimSpace(fileID) == "" {
		return domain.ErrEmptyFileID
	}
	uid, err := s.EnsureUser(ctx, telegramID)
	if err != nil {
		return err
	}
	err = s.repo.SetCover(ctx, uid, name, fileID)
	observe(ctx, "playlist.cover", err, slog.String("playlist", name))
	return err
}

// Cover returns the cover reference of the playlist.
func (s *Service) Cover(ctx context.Context, playlistID int64) (string, error) {
	cover, err := s.repo.Cover(ctx, playlistID)
	if err != nil && !errors.Is(err, domain.ErrCoverNotSet) {
		observe(ctx, "playlist.cover_get", err, slog.Int64("playlist_id", playlistID))
	}
	return cover, err
}

// Shared resolves a playlist for any requester holding its share link.
func (s *Service) Shared(ctx context.Context, playlistID int64) (SharedPlaylist, error) {
	p, err := s.repo.PlaylistByID(ctx, playlistID)
	if err != nil {
		observe(ctx, "share.resolve", err, slog.Int64("playlist_id", playlistID))
		return SharedPlaylist{}, err
	}
	cover, err := s.Cover(ctx, playlistID)
	if err != nil && !errors.Is(err, domain.ErrCoverNotSet) {
		return SharedPlaylist{}, err
	}
	tracks, err := s.repo.Tracks(ctx, playlistID)
	observe(ctx, "share.resolve", err, slog.Int64("playlist_id", playlistID), slog.Int("tracks", len(tracks)))
	if err != nil {
		return SharedPlaylist{}, err
	}
	return SharedPlaylist{Playlist: p, Cover: cover, Tracks: tracks}, nil
}

// Stats returns store-wide counters.
func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	st, err := s.repo.Stats(ctx)
	observe(ctx, "stats", err)
	return st, err
}
