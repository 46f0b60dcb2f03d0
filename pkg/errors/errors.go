package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNothingToSync     = errors.New("nothing to sync")
	ErrSubjectNotFound   = errors.New("subject not found")
	ErrSheetConfigAbsent = errors.New("no sheet configuration for owner")
	ErrUnknownCategory   = errors.New("unknown evaluation category")
	ErrNoSession         = errors.New("no active session")
	ErrLinkNotFound      = errors.New("guardian link not found")
)

// AuthError marks a remote call rejected for credential reasons (401/403).
// The retry wrapper refreshes the credential and retries on this class only.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e AuthError) Error() string {
	return fmt.Sprintf("authorization failed (HTTP %d): %s", e.StatusCode, e.Message)
}

func NewAuthError(statusCode int, message string) error {
	return AuthError{StatusCode: statusCode, Message: message}
}

// IsAuthFailure reports whether err looks like a credential rejection,
// either a typed AuthError or a message carrying the usual provider wording.
func IsAuthFailure(err error) bool {
	if err == nil {
		return false
	}
	var authErr AuthError
	if errors.As(err, &authErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unauthorized") || strings.Contains(msg, "invalid credentials")
}

// SessionExpiredError is terminal for the current operation: the credential
// could not be refreshed and the user must re-authenticate.
type SessionExpiredError struct {
	Reason string
}

func (e SessionExpiredError) Error() string {
	if e.Reason == "" {
		return "session expired, please sign in again"
	}
	return fmt.Sprintf("session expired, please sign in again: %s", e.Reason)
}

func NewSessionExpiredError(reason string) error {
	return SessionExpiredError{Reason: reason}
}

func IsSessionExpired(err error) bool {
	var sessionErr SessionExpiredError
	return errors.As(err, &sessionErr)
}

// SyncError reports a batch sync where no sheet group could be written.
type SyncError struct {
	Err     error
	Message string
}

func (e SyncError) Error() string {
	return fmt.Sprintf("sync failed: %s - %s", e.Message, e.Err.Error())
}

func (e SyncError) Unwrap() error {
	return e.Err
}

func NewSyncError(err error, message string) error {
	return SyncError{Err: err, Message: message}
}
