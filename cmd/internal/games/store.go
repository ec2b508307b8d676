package games

import (
	"context"
	"time"
)

// Store persists catalog entries.
type Store interface {
	// Create inserts a new game.
	Create(ctx context.Context, g Game) error
	// Get returns one game by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (Game, error)
	// Search returns up to limit games of the given type, ordered by
	// popularity then recency, skipping offset rows. An empty category
	// matches all categories.
	Search(ctx context.Context, typ Type, category Category, offset, limit int) ([]Game, error)
	// RecordPlayed bumps the play counter and stamps last_played, or
	// returns ErrNotFound.
	RecordPlayed(ctx context.Context, id string, playedAt time.Time) error
}
