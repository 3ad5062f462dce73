// Package convo holds the per-user conversation state of the playlist bot:
// which reply the bot is waiting for, the open add-tracks window and a
// pending playlist deletion.
//
// Every read-modify-write goes through Machine.Do, which runs under the
// user's session lock. Handlers perform their domain call inside Do and only
// then move the conversation, so the stored state always reflects a known
// outcome.
package convo

import (
	"context"
	"errors"
	"time"

	"github.com/m3rciful/playlistbot/core/telegram/state"
)

// StateIdle means no reply is expected.
const StateIdle = state.StateIdle

// Conversation steps. Each awaiting step consumes exactly one reply.
const (
	AwaitingPlaylistName state.State = "awaiting_playlist_name"
	AwaitingAddTarget    state.State = "awaiting_add_target_playlist"
	AwaitingCoverTarget  state.State = "awaiting_cover_target_playlist"
	AwaitingCoverImage   state.State = "awaiting_cover_image"
	AwaitingRemoveTrack  state.State = "awaiting_remove_track_selection"
	AwaitingRenameTarget state.State = "awaiting_rename_target"
	AwaitingShowTarget   state.State = "awaiting_show_target"
	AwaitingShareTarget  state.State = "awaiting_share_target"
)

// States lists every non-idle step.
var States = []state.State{
	AwaitingPlaylistName,
	AwaitingAddTarget,
	AwaitingCoverTarget,
	AwaitingCoverImage,
	AwaitingRemoveTrack,
	AwaitingRenameTarget,
	AwaitingShowTarget,
	AwaitingShareTarget,
}

var (
	ErrNoAddSession      = errors.New("no active add session")
	ErrAddSessionExpired = errors.New("add session expired")
	ErrNoPendingDelete   = errors.New("no pending deletion")
	ErrDeleteExpired     = errors.New("deletion confirmation expired")
)

// DefaultAddWindow is how long an add session accepts audio.
const DefaultAddWindow = 60 * time.Second

// Config tunes session lifetimes.
type Config struct {
	// AddWindow bounds an add session; 0 means DefaultAddWindow.
	AddWindow time.Duration
	// RefreshOnEachTrack pushes the add window forward after every stored track.
	RefreshOnEachTrack bool
	// ConfirmTTL bounds a pending deletion; 0 keeps it until confirmed or cancelled.
	ConfirmTTL time.Duration
}

// Machine drives conversations on top of a state.Manager.
type Machine struct {
	mgr *state.Manager
	cfg Config
	now func() time.Time
}

// Option customises a Machine.
type Option func(*Machine)

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

// New builds a Machine. A nil manager gets an in-memory one.
func New(mgr *state.Manager, cfg Config, opts ...Option) *Machine {
	if mgr == nil {
		mgr = state.NewManager(nil)
	}
	if cfg.AddWindow <= 0 {
		cfg.AddWindow = DefaultAddWindow
	}
	if cfg.ConfirmTTL < 0 {
		cfg.ConfirmTTL = 0
	}
	m := &Machine{mgr: mgr, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Config returns the effective settings.
func (m *Machine) Config() Config { return m.cfg }

// Manager exposes the underlying session manager.
func (m *Machine) Manager() *state.Manager { return m.mgr }

// Do runs fn against the user's conversation while holding the user's lock.
// Changes made by fn are persisted even when fn returns an error.
func (m *Machine) Do(ctx context.Context, userID int64, fn func(*Conversation) error) error {
	return m.mgr.Transact(ctx, userID, func(s *state.Session) error {
		return fn(m.wrap(s))
	})
}

// State returns the user's current step without locking.
func (m *Machine) State(userID int64) state.State {
	return m.mgr.GetState(userID)
}

// InProgress reports whether a reply is expected from the user.
func (m *Machine) InProgress(userID int64) bool {
	return m.mgr.InProgress(userID)
}

func (m *Machine) wrap(s *state.Session) *Conversation {
	return &Conversation{s: s, cfg: m.cfg, now: m.now()}
}
