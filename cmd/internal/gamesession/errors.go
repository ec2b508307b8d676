package gamesession

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput indicates missing or malformed arguments.
	ErrInvalidInput = errors.New("invalid input")
	// ErrRemoteUnavailable indicates the engine could not be reached or kept
	// failing after bounded retries.
	ErrRemoteUnavailable = errors.New("session engine unavailable")
	// ErrSessionNotFound indicates the engine does not know the session.
	ErrSessionNotFound = errors.New("session not found")
)

// APIError is a non-retryable business rejection from the engine.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("session engine rejected request: %d - %s", e.StatusCode, e.Body)
}
