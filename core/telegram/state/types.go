package state

import (
	"context"
	"strings"
	"time"
)

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = "idle"
)

// IsIdle reports whether st means "no pending step".
func (st State) IsIdle() bool {
	return st == "" || st == StateIdle
}

// Session stores conversation state and temporary data for a user.
type Session struct {
	State     State             `json:"state,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Get returns the value under key or "".
func (s *Session) Get(key string) string {
	return s.Data[key]
}

// Lookup returns the value under key and whether it was set.
func (s *Session) Lookup(key string) (string, bool) {
	v, ok := s.Data[key]
	return v, ok
}

// Put stores value under key.
func (s *Session) Put(key, value string) {
	if s.Data == nil {
		s.Data = make(map[string]string)
	}
	s.Data[key] = value
}

// Del removes key.
func (s *Session) Del(key string) {
	delete(s.Data, key)
}

// DelPrefix removes every key starting with prefix.
func (s *Session) DelPrefix(prefix string) {
	for k := range s.Data {
		if strings.HasPrefix(k, prefix) {
			delete(s.Data, k)
		}
	}
}

// Empty reports whether the session carries neither a step nor data.
func (s *Session) Empty() bool {
	return s.State.IsIdle() && len(s.Data) == 0
}

// Clone returns a deep copy.
func (s Session) Clone() Session {
	out := s
	if s.Data != nil {
		out.Data = make(map[string]string, len(s.Data))
		for k, v := range s.Data {
			out.Data[k] = v
		}
	}
	return out
}

// Store persists sessions keyed by Telegram user id.
type Store interface {
	// Load returns the stored session and whether one existed.
	Load(ctx context.Context, userID int64) (Session, bool, error)
	Save(ctx context.Context, userID int64, s Session) error
	Delete(ctx context.Context, userID int64) error
	// Users lists ids that currently have a stored session.
	Users(ctx context.Context) ([]int64, error)
}
