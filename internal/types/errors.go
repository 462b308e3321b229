package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrStartupTimeout = errors.New("browser startup timed out")
	ErrNoBrowser      = errors.New("no browser could be started")
	ErrClosed         = errors.New("store is closed")
)

// SessionStartupError wraps a failed browser launch attempt.
type SessionStartupError struct {
	Attempt string
	Err     error
}

func (e *SessionStartupError) Error() string {
	return fmt.Sprintf("browser startup (%s): %v", e.Attempt, e.Err)
}

func (e *SessionStartupError) Unwrap() error { return e.Err }

// IsTimeout reports whether the attempt exceeded its deadline.
func (e *SessionStartupError) IsTimeout() bool { return errors.Is(e.Err, ErrStartupTimeout) }

// LoginError is returned when the portal login cannot be completed.
type LoginError struct {
	Stage      string
	URL        string
	Title      string
	Screenshot string
	Err        error
}

func (e *LoginError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("login failed at %s (url=%s title=%q): %v", e.Stage, e.URL, e.Title, e.Err)
	}
	return fmt.Sprintf("login failed at %s: %v", e.Stage, e.Err)
}

func (e *LoginError) Unwrap() error { return e.Err }

// PostError wraps a failure while processing a single candidate block.
type PostError struct {
	Index int
	Stage string
	Err   error
}

func (e *PostError) Error() string {
	return fmt.Sprintf("post #%d failed at %s: %v", e.Index, e.Stage, e.Err)
}

func (e *PostError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur in a storage backend.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
