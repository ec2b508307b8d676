package vault

import (
	"context"
	"time"
)

// JoinKey is one row of the code pool. An empty SessionID means the code is
// available; codes are recycled, never deleted.
type JoinKey struct {
	Code            string
	SessionID       string
	GameType        string
	IssuedAt        time.Time
	LastValidatedAt time.Time
}

// ClaimRecord is a normalized claim payload.
type ClaimRecord struct {
	Code      string
	SessionID string
	GameType  string
	Now       time.Time
}

// Store is the persistence boundary for join codes. Its Claim operation is
// the sole arbiter of reservation races: exactly one concurrent claim on a
// given code may succeed.
type Store interface {
	// Claim binds a code to a session if and only if the code is currently
	// unbound or unknown. Returns ErrCodeTaken when another session holds it.
	Claim(ctx context.Context, in ClaimRecord) error

	// Resolve returns the key bound to code, or ErrCodeNotFound when the
	// code is unknown or available.
	Resolve(ctx context.Context, code string) (JoinKey, error)

	// Release marks a code available again. Releasing an unknown or
	// already-available code is a no-op, not an error.
	Release(ctx context.Context, code string, now time.Time) error

	// Touch refreshes last_validated_at on a bound code.
	Touch(ctx context.Context, code string, now time.Time) error

	// ListStale returns bound codes whose last_validated_at is before
	// cutoff, oldest first, up to limit.
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]JoinKey, error)
}
