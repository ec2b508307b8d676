package vault

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is a dev/test fallback when DB is not configured. It applies
// the same claim-if-available discipline as PostgresStore under a single
// mutex.
type MemoryStore struct {
	mu   sync.Mutex
	keys map[string]JoinKey
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[string]JoinKey)}
}

// Claim binds a code if it is unknown or available.
func (s *MemoryStore) Claim(ctx context.Context, in ClaimRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(in.Code) == "" || strings.TrimSpace(in.SessionID) == "" {
		return ErrInvalidInput
	}
	if in.Now.IsZero() {
		in.Now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.keys[in.Code]; ok && cur.SessionID != "" {
		return ErrCodeTaken
	}
	s.keys[in.Code] = JoinKey{
		Code:            in.Code,
		SessionID:       in.SessionID,
		GameType:        in.GameType,
		IssuedAt:        in.Now,
		LastValidatedAt: in.Now,
	}
	return nil
}

// Resolve returns the bound key for a code.
func (s *MemoryStore) Resolve(ctx context.Context, code string) (JoinKey, error) {
	if err := ctx.Err(); err != nil {
		return JoinKey{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.keys[code]
	if !ok || k.SessionID == "" {
		return JoinKey{}, ErrCodeNotFound
	}
	return k, nil
}

// Release unbinds a code; unknown or available codes are a no-op.
func (s *MemoryStore) Release(ctx context.Context, code string, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.keys[code]
	if !ok || k.SessionID == "" {
		return nil
	}
	k.SessionID = ""
	k.LastValidatedAt = now
	s.keys[code] = k
	return nil
}

// Touch refreshes last_validated_at on a bound code.
func (s *MemoryStore) Touch(ctx context.Context, code string, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.keys[code]
	if !ok || k.SessionID == "" {
		return nil
	}
	k.LastValidatedAt = now
	s.keys[code] = k
	return nil
}

// ListStale returns bound codes not validated since cutoff, oldest first.
func (s *MemoryStore) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]JoinKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []JoinKey
	for _, k := range s.keys {
		if k.SessionID != "" && k.LastValidatedAt.Before(cutoff) {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastValidatedAt.Before(out[j].LastValidatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
