// Package vault owns the pool of short join codes: reservation, lookup,
// release, and reclamation of codes bound to dead sessions.
package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tero/cmd/internal/cache"
	"tero/cmd/internal/codeword"
)

const (
	defaultMaxAttempts = 10
	defaultResolveTTL  = 5 * time.Second
	defaultStaleBatch  = 100
)

// SessionRef points at a session owned by the remote engine. The vault
// holds only this reference, never session business state.
type SessionRef struct {
	SessionID string
	GameType  string
}

// Manager allocates, resolves, and reclaims join codes. Reservation
// correctness rests entirely on the Store's atomic claim; the in-process
// cache accelerates reads only.
type Manager struct {
	store Store
	gen   *codeword.Generator

	resolveCache *cache.Cache[SessionRef]
	maxAttempts  int
	staleBatch   int
	now          func() time.Time
	log          *slog.Logger
}

// ManagerOption configures the Manager.
type ManagerOption func(*Manager) error

// WithMaxAttempts bounds claim retries per reservation.
func WithMaxAttempts(n int) ManagerOption {
	return func(m *Manager) error {
		if n <= 0 {
			return ErrInvalidInput
		}
		m.maxAttempts = n
		return nil
	}
}

// WithResolveTTL sets how long resolved codes may be served from memory.
// Keep it short: a released-and-reissued code must not serve a stale
// session reference beyond one TTL window.
func WithResolveTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) error {
		if ttl <= 0 {
			return ErrInvalidInput
		}
		m.resolveCache = cache.New[SessionRef]("vault_resolve", ttl)
		return nil
	}
}

// WithStaleBatch bounds how many stale codes one reclamation pass examines.
func WithStaleBatch(n int) ManagerOption {
	return func(m *Manager) error {
		if n <= 0 {
			return ErrInvalidInput
		}
		m.staleBatch = n
		return nil
	}
}

// WithNow replaces the time source. Intended for tests.
func WithNow(now func() time.Time) ManagerOption {
	return func(m *Manager) error {
		if now == nil {
			return ErrInvalidInput
		}
		m.now = now
		return nil
	}
}

// WithLogger sets the manager logger.
func WithLogger(log *slog.Logger) ManagerOption {
	return func(m *Manager) error {
		if log != nil {
			m.log = log
		}
		return nil
	}
}

// NewManager constructs a Manager with safe defaults.
func NewManager(store Store, gen *codeword.Generator, opts ...ManagerOption) (*Manager, error) {
	if store == nil || gen == nil {
		return nil, ErrInvalidInput
	}
	m := &Manager{
		store:        store,
		gen:          gen,
		resolveCache: cache.New[SessionRef]("vault_resolve", defaultResolveTTL),
		maxAttempts:  defaultMaxAttempts,
		staleBatch:   defaultStaleBatch,
		now:          time.Now,
		log:          slog.Default(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Reserve atomically binds a fresh code to sessionID. Claim conflicts are
// retried with new candidates up to the attempt bound; store failures
// surface immediately because the store is the single source of truth for
// code ownership.
func (m *Manager) Reserve(ctx context.Context, sessionID, gameType string) (string, error) {
	if m == nil || m.store == nil {
		return "", ErrInvalidInput
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	now := m.now().UTC()
	for attempt := 0; attempt < m.maxAttempts; attempt++ {
		code, err := m.gen.Candidate()
		if err != nil {
			reserveTotal.WithLabelValues("exhausted").Inc()
			return "", fmt.Errorf("generate candidate: %w", err)
		}

		err = m.store.Claim(ctx, ClaimRecord{
			Code:      code,
			SessionID: sessionID,
			GameType:  gameType,
			Now:       now,
		})
		switch {
		case err == nil:
			reserveTotal.WithLabelValues("ok").Inc()
			return code, nil
		case errors.Is(err, ErrCodeTaken):
			reserveTotal.WithLabelValues("conflict").Inc()
			continue
		default:
			reserveTotal.WithLabelValues("error").Inc()
			return "", fmt.Errorf("claim code: %w", err)
		}
	}

	reserveTotal.WithLabelValues("exhausted").Inc()
	m.log.Error("vault.reserve.exhausted", "attempts", m.maxAttempts, "space", m.gen.Space())
	return "", ErrVaultExhausted
}

// Resolve returns the session bound to a code. The read is served through
// a short-TTL cache; the store stays authoritative for writes.
func (m *Manager) Resolve(ctx context.Context, code string) (SessionRef, error) {
	if m == nil || m.store == nil {
		return SessionRef{}, ErrInvalidInput
	}
	code = codeword.Normalize(code)
	if code == "" {
		return SessionRef{}, ErrInvalidInput
	}

	return m.resolveCache.GetOrLoad(ctx, code, func(ctx context.Context) (SessionRef, error) {
		k, err := m.store.Resolve(ctx, code)
		if err != nil {
			return SessionRef{}, err
		}
		return SessionRef{SessionID: k.SessionID, GameType: k.GameType}, nil
	})
}

// Release idempotently marks a code available again and drops it from the
// resolve cache.
func (m *Manager) Release(ctx context.Context, code string) error {
	if m == nil || m.store == nil {
		return ErrInvalidInput
	}
	code = codeword.Normalize(code)
	if code == "" {
		return ErrInvalidInput
	}

	if err := m.store.Release(ctx, code, m.now().UTC()); err != nil {
		return fmt.Errorf("release code: %w", err)
	}
	m.resolveCache.Invalidate(code)
	return nil
}

// Touch refreshes the last-validated timestamp of a bound code, keeping it
// out of the sweeper's stale window.
func (m *Manager) Touch(ctx context.Context, code string) error {
	if m == nil || m.store == nil {
		return ErrInvalidInput
	}
	code = codeword.Normalize(code)
	if code == "" {
		return ErrInvalidInput
	}
	return m.store.Touch(ctx, code, m.now().UTC())
}

// ReclaimStale releases codes whose last validation is older than maxAge
// and whose session the gone callback confirms dead. A failing callback
// skips that code and continues with the rest of the batch; sessions still
// alive are touched so they leave the stale window. Returns the number of
// codes released.
func (m *Manager) ReclaimStale(ctx context.Context, maxAge time.Duration, gone func(ctx context.Context, sessionID string) (bool, error)) (int, error) {
	if m == nil || m.store == nil || gone == nil {
		return 0, ErrInvalidInput
	}
	if maxAge <= 0 {
		return 0, ErrInvalidInput
	}

	now := m.now().UTC()
	stale, err := m.store.ListStale(ctx, now.Add(-maxAge), m.staleBatch)
	if err != nil {
		return 0, fmt.Errorf("list stale codes: %w", err)
	}

	reclaimed := 0
	for _, k := range stale {
		dead, err := gone(ctx, k.SessionID)
		if err != nil {
			reclaimSkippedTotal.Inc()
			m.log.Warn("vault.reclaim.skip", "code", k.Code, "session_id", k.SessionID, "err", err)
			continue
		}
		if !dead {
			if err := m.store.Touch(ctx, k.Code, now); err != nil {
				m.log.Warn("vault.reclaim.touch.fail", "code", k.Code, "err", err)
			}
			continue
		}

		if err := m.store.Release(ctx, k.Code, now); err != nil {
			reclaimSkippedTotal.Inc()
			m.log.Warn("vault.reclaim.release.fail", "code", k.Code, "err", err)
			continue
		}
		m.resolveCache.Invalidate(k.Code)
		reclaimedTotal.Inc()
		reclaimed++
	}
	return reclaimed, nil
}

// StartCacheSweep periodically evicts expired resolve-cache entries until
// ctx is cancelled.
func (m *Manager) StartCacheSweep(ctx context.Context, interval time.Duration) {
	if m == nil || interval <= 0 {
		return
	}
	m.resolveCache.StartSweep(ctx, interval)
}
