package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/playlistbot/core/logger"
)

const snapshotTimeout = 2 * time.Second

// Manager serializes session access per user on top of a Store.
type Manager struct {
	store Store
	locks *keyedMutex
	now   func() time.Time
}

// Option customises a Manager.
type Option func(*Manager)

// WithClock overrides time.Now for UpdatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager builds a Manager over store; a nil store means NewMemoryStore.
func NewManager(store Store, opts ...Option) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	m := &Manager{store: store, locks: newKeyedMutex(), now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store exposes the backing store.
func (m *Manager) Store() Store { return m.store }

// Transact loads the user's session, runs fn and persists the result while
// holding the user's lock. The session is saved even when fn fails, since a
// failing step still moves the conversation (usually back to idle). An empty
// session is deleted instead of saved.
func (m *Manager) Transact(ctx context.Context, userID int64, fn func(*Session) error) error {
	unlock := m.locks.Lock(userID)
	defer unlock()

	sess, _, err := m.store.Load(ctx, userID)
	if err != nil {
		return fmt.Errorf("state: load session %d: %w", userID, err)
	}
	before := sess.State

	fnErr := fn(&sess)

	// the step already ran; finish writing even if the update was abandoned
	pctx := context.WithoutCancel(ctx)
	var saveErr error
	if sess.Empty() {
		saveErr = m.store.Delete(pctx, userID)
	} else {
		sess.UpdatedAt = m.now()
		saveErr = m.store.Save(pctx, userID, sess)
	}
	if saveErr != nil {
		saveErr = fmt.Errorf("state: persist session %d: %w", userID, saveErr)
	}

	if before != sess.State {
		logger.Debug(ctx, "tg", "fsm.transition",
			slog.Int64("user_id", userID),
			slog.String("from", stateLabel(before)),
			slog.String("state", stateLabel(sess.State)),
		)
	}
	return errors.Join(fnErr, saveErr)
}

// Snapshot returns a copy of the current session without taking the lock.
func (m *Manager) Snapshot(ctx context.Context, userID int64) (Session, error) {
	sess, _, err := m.store.Load(ctx, userID)
	if err != nil {
		return Session{}, fmt.Errorf("state: load session %d: %w", userID, err)
	}
	return sess, nil
}

// GetState returns the current step, StateIdle when none or on read failure.
func (m *Manager) GetState(userID int64) State {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()
	sess, err := m.Snapshot(ctx, userID)
	if err != nil {
		logger.Warn(ctx, "tg", "fsm.snapshot",
			slog.String("status", "fail"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return StateIdle
	}
	if sess.State.IsIdle() {
		return StateIdle
	}
	return sess.State
}

// InProgress reports whether the user currently has an active step.
func (m *Manager) InProgress(userID int64) bool {
	return !m.GetState(userID).IsIdle()
}

// Reset drops the user's session entirely.
func (m *Manager) Reset(ctx context.Context, userID int64) error {
	return m.Transact(ctx, userID, func(s *Session) error {
		*s = Session{}
		return nil
	})
}

// Sweep runs fn inside a transaction for every stored session and returns
// how many sessions fn reported as changed.
func (m *Manager) Sweep(ctx context.Context, fn func(userID int64, s *Session) bool) (int, error) {
	ids, err := m.store.Users(ctx)
	if err != nil {
		return 0, fmt.Errorf("state: list sessions: %w", err)
	}
	changed := 0
	var errs []error
	for _, id := range ids {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		err := m.Transact(ctx, id, func(s *Session) error {
			if fn(id, s) {
				changed++
			}
			return nil
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return changed, errors.Join(errs...)
}

func stateLabel(st State) string {
	if st.IsIdle() {
		return string(StateIdle)
	}
	return string(st)
}
