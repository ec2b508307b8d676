// Package sweeper periodically reclaims join codes whose sessions have
// ended without an explicit release.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tero/cmd/internal/gamesession"
	"tero/cmd/internal/vault"
)

var ErrInvalidInput = errors.New("sweeper: invalid input")

const (
	defaultInterval = time.Minute
	defaultMaxAge   = 10 * time.Minute
)

// Reclaimer is the vault surface the sweeper drives.
type Reclaimer interface {
	ReclaimStale(ctx context.Context, maxAge time.Duration, gone func(ctx context.Context, sessionID string) (bool, error)) (int, error)
}

// Engine is the session-engine surface used for liveness probes.
type Engine interface {
	GetSessionStatus(ctx context.Context, sessionID string) (gamesession.Status, error)
}

// Sweeper walks stale join codes and releases the ones whose sessions the
// engine no longer recognizes or reports ended.
type Sweeper struct {
	vault  Reclaimer
	engine Engine

	interval time.Duration
	maxAge   time.Duration
	log      *slog.Logger
}

// Option configures the Sweeper.
type Option func(*Sweeper) error

// WithInterval sets the time between sweep passes.
func WithInterval(d time.Duration) Option {
	return func(s *Sweeper) error {
		if d <= 0 {
			return ErrInvalidInput
		}
		s.interval = d
		return nil
	}
}

// WithMaxAge sets how long a code may go unvalidated before it is
// considered stale.
func WithMaxAge(d time.Duration) Option {
	return func(s *Sweeper) error {
		if d <= 0 {
			return ErrInvalidInput
		}
		s.maxAge = d
		return nil
	}
}

// WithLogger sets the sweeper logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Sweeper) error {
		if log != nil {
			s.log = log
		}
		return nil
	}
}

// New constructs a Sweeper.
func New(v Reclaimer, e Engine, opts ...Option) (*Sweeper, error) {
	if v == nil || e == nil {
		return nil, ErrInvalidInput
	}
	s := &Sweeper{
		vault:    v,
		engine:   e,
		interval: defaultInterval,
		maxAge:   defaultMaxAge,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Run sweeps on a fixed interval until ctx is cancelled. It never returns
// a non-nil error other than ctx.Err(); individual sweep failures are
// logged and the loop continues.
func (s *Sweeper) Run(ctx context.Context) error {
	if s == nil || s.vault == nil {
		return ErrInvalidInput
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				s.log.Error("sweeper.pass.fail", "err", err)
			}
		}
	}
}

// SweepOnce performs a single reclamation pass and returns how many codes
// were released.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	if s == nil || s.vault == nil || s.engine == nil {
		return 0, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	start := time.Now()
	reclaimed, err := s.vault.ReclaimStale(ctx, s.maxAge, s.sessionGone)
	if err != nil {
		return reclaimed, fmt.Errorf("reclaim stale: %w", err)
	}
	if reclaimed > 0 {
		s.log.Info("sweeper.pass.done", "reclaimed", reclaimed, "elapsed", time.Since(start))
	}
	return reclaimed, nil
}

// sessionGone reports whether the engine considers a session dead. A
// transient engine failure is returned as an error so the caller skips the
// code instead of releasing a possibly live session.
func (s *Sweeper) sessionGone(ctx context.Context, sessionID string) (bool, error) {
	st, err := s.engine.GetSessionStatus(ctx, sessionID)
	switch {
	case errors.Is(err, gamesession.ErrSessionNotFound):
		return true, nil
	case err != nil:
		return false, err
	case st.State == gamesession.StateEnded:
		return true, nil
	default:
		return false, nil
	}
}

var _ Reclaimer = (*vault.Manager)(nil)
