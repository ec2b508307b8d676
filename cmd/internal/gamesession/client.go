// Package gamesession is the HTTP client for the remote real-time session
// engine. The engine owns all session business state; this client only
// creates sessions, reads liveness, and ends sessions on behalf of the
// platform backend.
package gamesession

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Session states reported by the engine.
const (
	StateActive = "active"
	StateFull   = "full"
	StateEnded  = "ended"
)

const (
	defaultTimeout    = 5 * time.Second
	defaultMaxRetries = 2
	initialBackoff    = 100 * time.Millisecond
)

// Status is a point-in-time liveness snapshot of a session. It changes
// rapidly; treat it as a hint, not authoritative local state.
type Status struct {
	State    string `json:"state"`
	Players  int    `json:"players"`
	Capacity int    `json:"capacity"`
}

// Client talks to the session engine with per-attempt timeouts and bounded
// exponential retry on transient failures. Business rejections (4xx) are
// never retried.
type Client struct {
	base       string
	hc         *http.Client
	log        *slog.Logger
	timeout    time.Duration
	maxRetries uint64
}

// ClientOption configures the Client.
type ClientOption func(*Client) error

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) error {
		if hc == nil {
			return ErrInvalidInput
		}
		c.hc = hc
		return nil
	}
}

// WithTimeout sets the per-attempt request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) error {
		if d <= 0 {
			return ErrInvalidInput
		}
		c.timeout = d
		return nil
	}
}

// WithMaxRetries bounds retries after the first attempt.
func WithMaxRetries(n uint64) ClientOption {
	return func(c *Client) error {
		c.maxRetries = n
		return nil
	}
}

// WithLogger sets the client logger.
func WithLogger(log *slog.Logger) ClientOption {
	return func(c *Client) error {
		if log != nil {
			c.log = log
		}
		return nil
	}
}

// NewClient constructs a Client for the engine at base URL.
func NewClient(base string, opts ...ClientOption) (*Client, error) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return nil, ErrInvalidInput
	}
	c := &Client{
		base:       base,
		hc:         &http.Client{},
		log:        slog.Default(),
		timeout:    defaultTimeout,
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

type createSessionRequest struct {
	GameType string         `json:"game_type"`
	Params   map[string]any `json:"params,omitempty"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

// CreateSession asks the engine to start a session and returns its ID.
func (c *Client) CreateSession(ctx context.Context, gameType string, params map[string]any) (string, error) {
	gameType = strings.TrimSpace(gameType)
	if gameType == "" {
		return "", ErrInvalidInput
	}

	var out createSessionResponse
	err := c.do(ctx, http.MethodPost, "/sessions", createSessionRequest{GameType: gameType, Params: params}, &out)
	if err != nil {
		return "", err
	}
	if out.SessionID == "" {
		return "", fmt.Errorf("%w: engine returned empty session id", ErrRemoteUnavailable)
	}
	return out.SessionID, nil
}

// GetSessionStatus reads the liveness snapshot of a session.
func (c *Client) GetSessionStatus(ctx context.Context, sessionID string) (Status, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Status{}, ErrInvalidInput
	}

	var out Status
	if err := c.do(ctx, http.MethodGet, "/sessions/"+sessionID, nil, &out); err != nil {
		return Status{}, err
	}
	return out, nil
}

// EndSession tells the engine to terminate a session. Ending a session the
// engine no longer knows is a no-op.
func (c *Client) EndSession(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return ErrInvalidInput
	}

	err := c.do(ctx, http.MethodDelete, "/sessions/"+sessionID, nil, nil)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	return err
}

// HealthCheck verifies the engine is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// do performs one engine call with bounded exponential retry. Transport
// failures and 5xx responses are retried; 4xx responses are permanent.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = b
	}

	op := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(attemptCtx, method, c.base+path, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.hc.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
		}
		defer func() { _ = resp.Body.Close() }()

		switch {
		case resp.StatusCode >= 500:
			return fmt.Errorf("%w: engine returned %d", ErrRemoteUnavailable, resp.StatusCode)
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(ErrSessionNotFound)
		case resp.StatusCode >= 400:
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
			return backoff.Permanent(&APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))})
		}

		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return backoff.Permanent(fmt.Errorf("decode response: %w", err))
			}
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialBackoff
	bo.MaxElapsedTime = 0

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, c.maxRetries), ctx))
	if err != nil {
		c.log.Warn("gamesession.request.fail", "method", method, "path", path, "err", err)
	}
	return err
}
