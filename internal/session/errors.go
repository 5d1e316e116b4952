package session

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by operations on a manager that has shut down.
	ErrClosed = errors.New("session: manager closed")
	// ErrNameRequired rejects a signup whose display name is blank after sanitizing.
	ErrNameRequired = errors.New("session: name required")
)

// AuthError reports a rejected signup, login or logout.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("session: %s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// FetchError reports a failed document store read.
type FetchError struct {
	Collection string
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("session: fetch %s: %v", e.Collection, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
