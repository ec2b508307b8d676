package admission

import "errors"

var (
	// ErrInvalidInput indicates missing or malformed arguments.
	ErrInvalidInput = errors.New("invalid input")
	// ErrCodeNotFound indicates an unknown or expired join code.
	ErrCodeNotFound = errors.New("join code not found")
	// ErrSessionFull indicates the session has no free seats.
	ErrSessionFull = errors.New("session full")
	// ErrSessionEnded indicates the session no longer accepts joins.
	ErrSessionEnded = errors.New("session ended")
	// ErrRemoteUnavailable indicates the session engine could not be reached.
	ErrRemoteUnavailable = errors.New("session engine unavailable")
)
