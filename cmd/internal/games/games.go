// Package games holds the casual-game catalog: the records behind the
// public game-search pages and their play counters.
package games

import (
	"errors"
	"time"
)

var (
	ErrInvalidInput = errors.New("games: invalid input")
	ErrNotFound     = errors.New("games: game not found")
)

// Type identifies a game family.
type Type string

const (
	TypeQuiz Type = "quiz"
	TypeSpin Type = "spin"
)

// Valid reports whether t names a known game type.
func (t Type) Valid() bool {
	return t == TypeQuiz || t == TypeSpin
}

// Category buckets games inside a type for filtered search.
type Category string

const (
	CategoryCasual  Category = "casual"
	CategoryRandom  Category = "random"
	CategoryLadies  Category = "ladies"
	CategoryBoys    Category = "boys"
	CategoryDefault Category = "default"
)

// Game is one catalog entry.
type Game struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Type        Type      `json:"type"`
	Category    Category  `json:"category"`
	Iterations  int       `json:"iterations"`
	TimesPlayed int64     `json:"times_played"`
	LastPlayed  time.Time `json:"last_played,omitzero"`
	CreatedAt   time.Time `json:"created_at"`
}

// PageRequest selects one catalog page. Page is zero-based; an empty
// Category means no category filter.
type PageRequest struct {
	Type     Type
	Category Category
	Page     int
}

// Page is one slice of search results. HasNext reports whether another
// page exists after this one.
type Page struct {
	Games   []Game `json:"games"`
	HasNext bool   `json:"has_next"`
}
