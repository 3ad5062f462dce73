package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the store and the service wraps
// exactly one of them.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrStorage      = errors.New("storage failure")
	ErrInvalidInput = errors.New("invalid input")
)

var (
	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)
	ErrPlaylistNotFound   = fmt.Errorf("playlist %w", ErrNotFound)
	ErrPositionOutOfRange = fmt.Errorf("track position out of range: %w", ErrNotFound)
	ErrCoverNotSet        = fmt.Errorf("cover %w", ErrNotFound)

	ErrPlaylistExists = fmt.Errorf("playlist already exists: %w", ErrConflict)
	ErrNameTaken      = fmt.Errorf("playlist name already taken: %w", ErrConflict)
	ErrTrackExists    = fmt.Errorf("track already in playlist: %w", ErrConflict)

	ErrEmptyName       = fmt.Errorf("playlist name is empty: %w", ErrInvalidInput)
	ErrNameTooLong     = fmt.Errorf("playlist name is too long: %w", ErrInvalidInput)
	ErrBadName         = fmt.Errorf("playlist name must not start with '/': %w", ErrInvalidInput)
	ErrInvalidPosition = fmt.Errorf("track index must be a non-negative number: %w", ErrInvalidInput)
	ErrMalformedArgs   = fmt.Errorf("malformed command arguments: %w", ErrInvalidInput)
	ErrBadShareLink    = fmt.Errorf("malformed share link: %w", ErrInvalidInput)
	ErrEmptyFileID     = fmt.Errorf("file id is empty: %w", ErrInvalidInput)
)

// MaxNameLen bounds playlist names in bytes so they fit in callback data.
const MaxNameLen = 40

// StorageError wraps a driver failure with the operation that hit it.
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError wraps err; nil stays nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

// Unwrap exposes both the kind and the driver error to errors.Is/As.
func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

// Code is picked up by handler summary logs.
func (e *StorageError) Code() string { return "STORAGE" }

// Kind labels used in logs.
const (
	KindNotFound     = "not_found"
	KindConflict     = "conflict"
	KindStorage      = "storage"
	KindInvalidInput = "invalid_input"
	KindUnknown      = "unknown"
)

// KindOf classifies err into one of the taxonomy labels.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrStorage):
		return KindStorage
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	}
	return KindUnknown
}
