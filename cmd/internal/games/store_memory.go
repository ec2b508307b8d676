package games

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps the catalog in process memory. It backs tests and the
// database-less development mode.
type MemoryStore struct {
	mu    sync.Mutex
	games map[string]Game
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{games: make(map[string]Game)}
}

func (s *MemoryStore) Create(ctx context.Context, g Game) error {
	if s == nil {
		return ErrInvalidInput
	}
	if g.ID == "" || g.Name == "" || !g.Type.Valid() {
		return ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.games[g.ID] = g
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Game, error) {
	if s == nil || id == "" {
		return Game{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return Game{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[id]
	if !ok {
		return Game{}, ErrNotFound
	}
	return g, nil
}

func (s *MemoryStore) Search(ctx context.Context, typ Type, category Category, offset, limit int) ([]Game, error) {
	if s == nil || !typ.Valid() || offset < 0 || limit <= 0 {
		return nil, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	matched := make([]Game, 0, len(s.games))
	for _, g := range s.games {
		if g.Type != typ {
			continue
		}
		if category != "" && g.Category != category {
			continue
		}
		matched = append(matched, g)
	}
	s.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.TimesPlayed != b.TimesPlayed {
			return a.TimesPlayed > b.TimesPlayed
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *MemoryStore) RecordPlayed(ctx context.Context, id string, playedAt time.Time) error {
	if s == nil || id == "" {
		return ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[id]
	if !ok {
		return ErrNotFound
	}
	g.TimesPlayed++
	g.LastPlayed = playedAt
	s.games[id] = g
	return nil
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
