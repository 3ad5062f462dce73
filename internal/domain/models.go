// Package domain holds the playlist bot's entities and error taxonomy.
package domain

// User is a Telegram account known to the bot.
type User struct {
	ID         int64 `db:"id"`
	TelegramID int64 `db:"telegram_id"`
}

// Playlist is a named, user-owned ordered collection of tracks.
type Playlist struct {
	ID          int64   `db:"id"`
	UserID      int64   `db:"user_id"`
	Name        string  `db:"name"`
	CoverFileID *string `db:"cover_file_id"`
}

// HasCover reports whether a cover image is set.
func (p Playlist) HasCover() bool {
	return p.CoverFileID != nil && *p.CoverFileID != ""
}

// Track references an audio file hosted by Telegram.
// Position is derived from insertion order and never stored.
type Track struct {
	ID         int64  `db:"id"`
	PlaylistID int64  `db:"playlist_id"`
	FileID     string `db:"file_id"`
	Position   int    `db:"-"`
}

// Stats are whole-store counters for the admin.
type Stats struct {
	Users     int64 `db:"users"`
	Playlists int64 `db:"playlists"`
	Tracks    int64 `db:"tracks"`
}
