package vault

import "errors"

var (
	// ErrInvalidInput indicates missing or malformed arguments.
	ErrInvalidInput = errors.New("invalid input")
	// ErrCodeTaken indicates a claim lost the race for a candidate code.
	ErrCodeTaken = errors.New("join code already taken")
	// ErrCodeNotFound indicates a code that is unknown or not bound to a session.
	ErrCodeNotFound = errors.New("join code not found")
	// ErrVaultExhausted indicates reservation retries ran out without a free code.
	ErrVaultExhausted = errors.New("vault exhausted")
)
