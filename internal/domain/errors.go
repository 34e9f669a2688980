package domain

import (
	"errors"
	"fmt"
)

// Common domain errors surfaced by registry and scoring operations.
var (
	// ErrSessionNotFound indicates that a referenced session does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrGroupNotFound indicates that a referenced group does not exist
	// within an existing session.
	ErrGroupNotFound = errors.New("group not found")

	// ErrNoSamples indicates that an aggregation was attempted over an
	// empty score series.
	ErrNoSamples = errors.New("no samples recorded")

	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// NotFoundError wraps ErrSessionNotFound or ErrGroupNotFound with the
// identifiers that failed resolution. Handlers convert it into an `error`
// event back to the originating caller; it never mutates registry state.
type NotFoundError struct {
	// SessionID is the session identifier from the inbound event.
	SessionID string

	// GroupID is the group identifier, empty when the session itself
	// was the missing entity.
	GroupID string

	// Err is the underlying sentinel (ErrSessionNotFound or ErrGroupNotFound).
	Err error
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	if e.GroupID == "" {
		return fmt.Sprintf("%v: session=%s", e.Err, e.SessionID)
	}
	return fmt.Sprintf("%v: session=%s, group=%s", e.Err, e.SessionID, e.GroupID)
}

// Unwrap returns the underlying sentinel, supporting errors.Is checks.
func (e *NotFoundError) Unwrap() error { return e.Err }

// NewSessionNotFound creates a NotFoundError for a missing session.
func NewSessionNotFound(sessionID string) *NotFoundError {
	return &NotFoundError{SessionID: sessionID, Err: ErrSessionNotFound}
}

// NewGroupNotFound creates a NotFoundError for a missing group.
func NewGroupNotFound(sessionID, groupID string) *NotFoundError {
	return &NotFoundError{SessionID: sessionID, GroupID: groupID, Err: ErrGroupNotFound}
}
