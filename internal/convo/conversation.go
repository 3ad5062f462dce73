package convo

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/playlistbot/core/telegram/state"
)

// session data keys
const (
	keyTarget = "target"

	addPrefix     = "add."
	keyAddID      = "add.id"
	keyAddPID     = "add.playlist_id"
	keyAddName    = "add.playlist"
	keyAddStarted = "add.started_at"
	keyAddExpires = "add.expires_at"
	keyAddCount   = "add.count"

	confirmPrefix     = "confirm."
	keyConfirmName    = "confirm.playlist"
	keyConfirmExpires = "confirm.expires_at"
)

// AddSession is an open window during which forwarded audio is appended to
// one playlist. It lives next to the conversation step, so commands issued
// while it is open do not close it.
type AddSession struct {
	ID          string
	PlaylistID  int64
	Playlist    string
	StartedAt   time.Time
	ExpiresAt   time.Time
	TracksAdded int
}

// Expired reports whether the window has closed at now.
func (a AddSession) Expired(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}

// Conversation is a user's session viewed through the bot's rules.
// It is only valid inside Machine.Do.
type Conversation struct {
	s   *state.Session
	cfg Config
	now time.Time
}

// State returns the current step.
func (c *Conversation) State() state.State {
	if c.s.State.IsIdle() {
		return StateIdle
	}
	return c.s.State
}

// Idle reports whether no reply is expected.
func (c *Conversation) Idle() bool { return c.s.State.IsIdle() }

// Target returns the playlist the current step operates on, if any.
func (c *Conversation) Target() string { return c.s.Get(keyTarget) }

// Await moves to st and remembers target for the next reply.
func (c *Conversation) Await(st state.State, target string) {
	c.s.State = st
	if target == "" {
		c.s.Del(keyTarget)
		return
	}
	c.s.Put(keyTarget, target)
}

// Reset returns to idle and drops a pending deletion. An open add session
// is kept.
func (c *Conversation) Reset() {
	c.s.State = ""
	c.s.Del(keyTarget)
	c.s.DelPrefix(confirmPrefix)
}

// StartAdd opens a new add session for the playlist, replacing any previous one.
func (c *Conversation) StartAdd(playlistID int64, name string) AddSession {
	a := AddSession{
		ID:         uuid.NewString(),
		PlaylistID: playlistID,
		Playlist:   name,
		StartedAt:  c.now,
		ExpiresAt:  c.now.Add(c.cfg.AddWindow),
	}
	c.putAdd(a)
	return a
}

// ActiveAdd returns the open add session. An expired session is removed and
// reported as ErrAddSessionExpired together with its last contents.
func (c *Conversation) ActiveAdd() (AddSession, error) {
	a, ok := c.loadAdd()
	if !ok {
		return AddSession{}, ErrNoAddSession
	}
	if a.Expired(c.now) {
		c.s.DelPrefix(addPrefix)
		return a, ErrAddSessionExpired
	}
	return a, nil
}

// RecordTrack counts a stored track against the open session.
func (c *Conversation) RecordTrack() (AddSession, error) {
	a, err := c.ActiveAdd()
	if err != nil {
		return a, err
	}
	a.TracksAdded++
	if c.cfg.RefreshOnEachTrack {
		a.ExpiresAt = c.now.Add(c.cfg.AddWindow)
	}
	c.putAdd(a)
	return a, nil
}

// FinishAdd closes the add session and returns it for a summary. A session
// whose window already passed is still returned.
func (c *Conversation) FinishAdd() (AddSession, error) {
	a, ok := c.loadAdd()
	if !ok {
		return AddSession{}, ErrNoAddSession
	}
	c.s.DelPrefix(addPrefix)
	return a, nil
}

// RequestDelete records that deletion of name awaits confirmation.
func (c *Conversation) RequestDelete(name string) {
	c.s.DelPrefix(confirmPrefix)
	c.s.Put(keyConfirmName, name)
	if c.cfg.ConfirmTTL > 0 {
		c.s.Put(keyConfirmExpires, formatTime(c.now.Add(c.cfg.ConfirmTTL)))
	}
}

// PendingDelete returns the playlist awaiting deletion.
func (c *Conversation) PendingDelete() (string, bool) {
	return c.s.Lookup(keyConfirmName)
}

// ConfirmDelete consumes the pending deletion of name. The confirmation is
// gone afterwards whatever the outcome, so a second press fails.
func (c *Conversation) ConfirmDelete(name string) error {
	pending, ok := c.PendingDelete()
	if !ok || pending != name {
		return ErrNoPendingDelete
	}
	expired := c.confirmExpired()
	c.s.DelPrefix(confirmPrefix)
	if expired {
		return ErrDeleteExpired
	}
	return nil
}

// CancelDelete drops the pending deletion and returns its playlist.
func (c *Conversation) CancelDelete() (string, error) {
	pending, ok := c.PendingDelete()
	if !ok {
		return "", ErrNoPendingDelete
	}
	c.s.DelPrefix(confirmPrefix)
	return pending, nil
}

// Expire drops an add session or deletion confirmation whose time is up and
// reports whether anything was removed.
func (c *Conversation) Expire() bool {
	changed := false
	if a, ok := c.loadAdd(); ok && a.Expired(c.now) {
		c.s.DelPrefix(addPrefix)
		changed = true
	}
	if _, ok := c.PendingDelete(); ok && c.confirmExpired() {
		c.s.DelPrefix(confirmPrefix)
		changed = true
	}
	return changed
}

func (c *Conversation) confirmExpired() bool {
	raw, ok := c.s.Lookup(keyConfirmExpires)
	if !ok {
		return false
	}
	exp, err := parseTime(raw)
	if err != nil {
		return true
	}
	return !c.now.Before(exp)
}

func (c *Conversation) putAdd(a AddSession) {
	c.s.Put(keyAddID, a.ID)
	c.s.Put(keyAddPID, strconv.FormatInt(a.PlaylistID, 10))
	c.s.Put(keyAddName, a.Playlist)
	c.s.Put(keyAddStarted, formatTime(a.StartedAt))
	c.s.Put(keyAddExpires, formatTime(a.ExpiresAt))
	c.s.Put(keyAddCount, strconv.Itoa(a.TracksAdded))
}

// loadAdd decodes the add session; a corrupt one is discarded.
func (c *Conversation) loadAdd() (AddSession, bool) {
	id, ok := c.s.Lookup(keyAddID)
	if !ok {
		return AddSession{}, false
	}
	pid, err1 := strconv.ParseInt(c.s.Get(keyAddPID), 10, 64)
	started, err2 := parseTime(c.s.Get(keyAddStarted))
	expires, err3 := parseTime(c.s.Get(keyAddExpires))
	count, err4 := strconv.Atoi(c.s.Get(keyAddCount))
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		c.s.DelPrefix(addPrefix)
		return AddSession{}, false
	}
	return AddSession{
		ID:          id,
		PlaylistID:  pid,
		Playlist:    c.s.Get(keyAddName),
		StartedAt:   started,
		ExpiresAt:   expires,
		TracksAdded: count,
	}, true
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) }
