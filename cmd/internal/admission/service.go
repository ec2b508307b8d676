// Package admission validates join requests: it resolves the join code,
// confirms session liveness with the remote engine, and hands back a
// connection descriptor for the realtime hub.
package admission

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"tero/cmd/internal/cache"
	"tero/cmd/internal/codeword"
	"tero/cmd/internal/gamesession"
	"tero/cmd/internal/vault"
	"tero/cmd/security/token"
)

const (
	// defaultStatusTTL keeps liveness hints very short-lived; capacity and
	// end state change rapidly and every admission re-validates within this
	// window at most.
	defaultStatusTTL = 2 * time.Second
	defaultTokenTTL  = 30 * time.Second
)

// Identity is a validated caller identity supplied by the platform's auth
// layer. The admission service trusts it and never parses tokens itself.
type Identity struct {
	UserID       string
	Capabilities []string
}

// ConnectionDescriptor tells an admitted client where and how to connect.
type ConnectionDescriptor struct {
	Endpoint  string
	SessionID string
	GameType  string
	Token     string
	ExpiresAt time.Time
}

// Resolver is the vault surface the admission path needs.
type Resolver interface {
	Resolve(ctx context.Context, code string) (vault.SessionRef, error)
	Touch(ctx context.Context, code string) error
}

// Engine is the session-engine surface the admission path needs.
type Engine interface {
	GetSessionStatus(ctx context.Context, sessionID string) (gamesession.Status, error)
}

// Service admits join requests.
type Service struct {
	vault  Resolver
	engine Engine

	status   *cache.Cache[gamesession.Status]
	endpoint string
	tokenTTL time.Duration
	now      func() time.Time
	log      *slog.Logger
}

// Option configures the Service.
type Option func(*Service) error

// WithStatusTTL bounds how long an engine liveness snapshot may be reused.
func WithStatusTTL(ttl time.Duration) Option {
	return func(s *Service) error {
		if ttl <= 0 {
			return ErrInvalidInput
		}
		s.status = cache.New[gamesession.Status]("admission_status", ttl)
		return nil
	}
}

// WithTokenTTL sets the connection-token lifetime.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) error {
		if ttl <= 0 {
			return ErrInvalidInput
		}
		s.tokenTTL = ttl
		return nil
	}
}

// WithNow replaces the time source. Intended for tests.
func WithNow(now func() time.Time) Option {
	return func(s *Service) error {
		if now == nil {
			return ErrInvalidInput
		}
		s.now = now
		return nil
	}
}

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) error {
		if log != nil {
			s.log = log
		}
		return nil
	}
}

// NewService constructs a Service. endpoint is the realtime hub address
// returned in connection descriptors.
func NewService(v Resolver, e Engine, endpoint string, opts ...Option) (*Service, error) {
	endpoint = strings.TrimSpace(endpoint)
	if v == nil || e == nil || endpoint == "" {
		return nil, ErrInvalidInput
	}
	s := &Service{
		vault:    v,
		engine:   e,
		status:   cache.New[gamesession.Status]("admission_status", defaultStatusTTL),
		endpoint: endpoint,
		tokenTTL: defaultTokenTTL,
		now:      time.Now,
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

// AdmitJoin resolves a join code, re-validates session liveness with the
// engine, and returns a connection descriptor. Errors distinguish bad
// codes, full sessions, ended sessions, and backend unavailability so the
// caller can decide whether to retry.
func (s *Service) AdmitJoin(ctx context.Context, code string, user Identity) (ConnectionDescriptor, error) {
	if s == nil || s.vault == nil || s.engine == nil {
		return ConnectionDescriptor{}, ErrInvalidInput
	}
	code = codeword.Normalize(code)
	if code == "" || strings.TrimSpace(user.UserID) == "" {
		return ConnectionDescriptor{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return ConnectionDescriptor{}, err
	}

	ref, err := s.vault.Resolve(ctx, code)
	if err != nil {
		if errors.Is(err, vault.ErrCodeNotFound) {
			admitTotal.WithLabelValues("code_not_found").Inc()
			return ConnectionDescriptor{}, ErrCodeNotFound
		}
		admitTotal.WithLabelValues("error").Inc()
		return ConnectionDescriptor{}, fmt.Errorf("resolve code: %w", err)
	}

	st, err := s.status.GetOrLoad(ctx, ref.SessionID, func(ctx context.Context) (gamesession.Status, error) {
		return s.engine.GetSessionStatus(ctx, ref.SessionID)
	})
	if err != nil {
		switch {
		case errors.Is(err, gamesession.ErrSessionNotFound):
			admitTotal.WithLabelValues("session_ended").Inc()
			return ConnectionDescriptor{}, ErrSessionEnded
		case errors.Is(err, gamesession.ErrRemoteUnavailable):
			admitTotal.WithLabelValues("remote_unavailable").Inc()
			return ConnectionDescriptor{}, ErrRemoteUnavailable
		default:
			admitTotal.WithLabelValues("error").Inc()
			return ConnectionDescriptor{}, fmt.Errorf("session status: %w", err)
		}
	}

	switch {
	case st.State == gamesession.StateEnded:
		admitTotal.WithLabelValues("session_ended").Inc()
		return ConnectionDescriptor{}, ErrSessionEnded
	case st.State == gamesession.StateFull:
		admitTotal.WithLabelValues("session_full").Inc()
		return ConnectionDescriptor{}, ErrSessionFull
	case st.State == gamesession.StateActive && st.Capacity > 0 && st.Players >= st.Capacity:
		admitTotal.WithLabelValues("session_full").Inc()
		return ConnectionDescriptor{}, ErrSessionFull
	case st.State != gamesession.StateActive:
		admitTotal.WithLabelValues("error").Inc()
		return ConnectionDescriptor{}, fmt.Errorf("unexpected session state %q", st.State)
	}

	// Successful admissions count as validation; this keeps busy sessions
	// out of the sweeper's stale window.
	if err := s.vault.Touch(ctx, code); err != nil {
		s.log.Warn("admission.touch.fail", "code", code, "err", err)
	}

	now := s.now().UTC()
	exp := now.Add(s.tokenTTL)
	admitTotal.WithLabelValues("ok").Inc()
	return ConnectionDescriptor{
		Endpoint:  s.endpoint,
		SessionID: ref.SessionID,
		GameType:  ref.GameType,
		Token:     mintConnectionToken(ref.SessionID, user.UserID, code, exp),
		ExpiresAt: exp,
	}, nil
}

// StartCacheSweep periodically evicts expired status-cache entries until
// ctx is cancelled.
func (s *Service) StartCacheSweep(ctx context.Context, interval time.Duration) {
	if s == nil || interval <= 0 {
		return
	}
	s.status.StartSweep(ctx, interval)
}

// mintConnectionToken produces a signed, short-lived token the realtime hub
// can verify with the shared HMAC key.
func mintConnectionToken(sessionID, userID, code string, exp time.Time) string {
	payload := strings.Join([]string{sessionID, userID, code, strconv.FormatInt(exp.Unix(), 10)}, "|")
	sig := token.SignPayloadHex(payload)
	return base64.RawURLEncoding.EncodeToString([]byte(payload)) + "." + sig
}
