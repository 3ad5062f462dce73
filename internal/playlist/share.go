package playlist

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/m3rciful/playlistbot/internal/domain"
)

// SharePrefix starts every /start payload produced by ShareLink.
const SharePrefix = "share__"

// SharePayload renders the deep-link payload for a playlist id.
func SharePayload(playlistID int64) string {
	return SharePrefix + strconv.FormatInt(playlistID, 10)
}

// ShareLink builds the t.me deep link opening the bot with the share payload.
func ShareLink(botUsername string, playlistID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", strings.TrimPrefix(botUsername, "@"), SharePayload(playlistID))
}

// IsSharePayload reports whether a /start payload looks like a share link.
func IsSharePayload(payload string) bool {
	return strings.HasPrefix(strings.TrimSpace(payload), SharePrefix)
}

// ParseSharePayload extracts the playlist id from "share__<id>".
func ParseSharePayload(payload string) (int64, error) {
	payload = strings.TrimSpace(payload)
	raw, ok := strings.CutPrefix(payload, SharePrefix)
	if !ok {
		return 0, domain.ErrBadShareLink
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrBadShareLink
	}
	return id, nil
}

// ParsePosition parses a user supplied zero-based track index.
func ParsePosition(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0, domain.ErrInvalidPosition
	}
	return n, nil
}
