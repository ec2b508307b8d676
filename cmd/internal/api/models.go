package api

import (
	"time"

	"tero/cmd/internal/games"
)

type createSessionRequest struct {
	GameType string         `json:"game_type"`
	Params   map[string]any `json:"params,omitempty"`
}

type createSessionResponse struct {
	Code      string `json:"code"`
	SessionID string `json:"session_id"`
}

type joinRequest struct {
	Code   string `json:"code"`
	UserID string `json:"user_id"`
}

type joinResponse struct {
	Endpoint  string    `json:"endpoint"`
	SessionID string    `json:"session_id"`
	GameType  string    `json:"game_type"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type createGameRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	Category    string `json:"category,omitempty"`
	Iterations  int    `json:"iterations,omitempty"`
}

type gamesPageResponse struct {
	Games   []games.Game `json:"games"`
	HasNext bool         `json:"has_next"`
	Page    int          `json:"page"`
}
