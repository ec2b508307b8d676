// Package api exposes the join-code and catalog HTTP surface.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"tero/cmd/internal/admission"
	"tero/cmd/internal/games"
	"tero/cmd/internal/vault"
)

const defaultMaxBodyBytes = 16 << 10

// SessionCreator is the engine surface the create-session endpoint needs.
type SessionCreator interface {
	CreateSession(ctx context.Context, gameType string, params map[string]any) (string, error)
	EndSession(ctx context.Context, sessionID string) error
}

// Vault is the join-code surface the HTTP layer needs.
type Vault interface {
	Reserve(ctx context.Context, sessionID, gameType string) (string, error)
	Release(ctx context.Context, code string) error
}

// Admitter validates join requests.
type Admitter interface {
	AdmitJoin(ctx context.Context, code string, user admission.Identity) (admission.ConnectionDescriptor, error)
}

// Catalog answers game-search queries.
type Catalog interface {
	SearchPage(ctx context.Context, req games.PageRequest) (games.Page, error)
	Create(ctx context.Context, g games.Game) (games.Game, error)
	RecordPlayed(ctx context.Context, id string) error
}

// Handler wires the public endpoints to the vault, engine, admission and
// catalog services.
type Handler struct {
	log *slog.Logger

	engine    SessionCreator
	vault     Vault
	admission Admitter
	catalog   Catalog

	maxBodyBytes int64
}

// NewHandler constructs a Handler. All four collaborators are required.
func NewHandler(log *slog.Logger, engine SessionCreator, v Vault, adm Admitter, catalog Catalog) (*Handler, error) {
	if engine == nil || v == nil || adm == nil || catalog == nil {
		return nil, errors.New("api: nil collaborator")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		log:          log,
		engine:       engine,
		vault:        v,
		admission:    adm,
		catalog:      catalog,
		maxBodyBytes: defaultMaxBodyBytes,
	}, nil
}

// Register wires the public routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("POST /api/sessions", h.handleCreateSession)
	mux.HandleFunc("POST /api/join", h.handleJoin)
	mux.HandleFunc("DELETE /api/codes/{code}", h.handleReleaseCode)
	mux.HandleFunc("GET /api/games/{type}", h.handleSearchGames)
	mux.HandleFunc("POST /api/games", h.handleCreateGame)
	mux.HandleFunc("POST /api/games/{id}/played", h.handleGamePlayed)
}

// ---- handlers ----

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	gameType := strings.TrimSpace(req.GameType)
	if gameType == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "game_type is required")
		return
	}

	ctx := r.Context()

	// The engine owns session IDs, so it goes first; a failed reservation
	// tears the session back down instead of leaking it.
	sessionID, err := h.engine.CreateSession(ctx, gameType, req.Params)
	if err != nil {
		h.log.Error("api.session.create.engine.fail", "game_type", gameType, "err", err)
		writeError(w, http.StatusServiceUnavailable, "engine_unavailable", "session engine unavailable")
		return
	}

	code, err := h.vault.Reserve(ctx, sessionID, gameType)
	if err != nil {
		if endErr := h.engine.EndSession(context.WithoutCancel(ctx), sessionID); endErr != nil {
			h.log.Error("api.session.create.rollback.fail", "session_id", sessionID, "err", endErr)
		}
		if errors.Is(err, vault.ErrVaultExhausted) {
			h.log.Error("api.session.create.reserve.exhausted", "session_id", sessionID)
			writeError(w, http.StatusServiceUnavailable, "codes_exhausted", "no join codes available, retry later")
			return
		}
		h.log.Error("api.session.create.reserve.fail", "session_id", sessionID, "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.log.Info("api.session.create", "session_id", sessionID, "game_type", gameType, "code", code)
	writeJSON(w, http.StatusCreated, createSessionResponse{Code: code, SessionID: sessionID})
}

func (h *Handler) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	desc, err := h.admission.AdmitJoin(r.Context(), req.Code, admission.Identity{UserID: req.UserID})
	if err != nil {
		switch {
		case errors.Is(err, admission.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "invalid_request", "code and user_id are required")
		case errors.Is(err, admission.ErrCodeNotFound):
			writeError(w, http.StatusNotFound, "code_not_found", "unknown join code")
		case errors.Is(err, admission.ErrSessionFull):
			writeError(w, http.StatusConflict, "session_full", "session is full")
		case errors.Is(err, admission.ErrSessionEnded):
			writeError(w, http.StatusConflict, "session_ended", "session has ended")
		case errors.Is(err, admission.ErrRemoteUnavailable):
			writeError(w, http.StatusServiceUnavailable, "engine_unavailable", "session engine unavailable")
		default:
			h.log.Error("api.join.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, joinResponse{
		Endpoint:  desc.Endpoint,
		SessionID: desc.SessionID,
		GameType:  desc.GameType,
		Token:     desc.Token,
		ExpiresAt: desc.ExpiresAt,
	})
}

func (h *Handler) handleReleaseCode(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.PathValue("code"))
	if code == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "code is required")
		return
	}

	// Release is idempotent; unknown and already-released codes succeed.
	if err := h.vault.Release(r.Context(), code); err != nil {
		h.log.Error("api.code.release.fail", "code", code, "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSearchGames(w http.ResponseWriter, r *http.Request) {
	typ := games.Type(strings.TrimSpace(r.PathValue("type")))
	if !typ.Valid() {
		writeError(w, http.StatusNotFound, "unknown_game_type", "unknown game type")
		return
	}

	page := 0
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "page must be a non-negative integer")
			return
		}
		page = n
	}

	req := games.PageRequest{
		Type:     typ,
		Category: games.Category(strings.TrimSpace(r.URL.Query().Get("category"))),
		Page:     page,
	}
	result, err := h.catalog.SearchPage(r.Context(), req)
	if err != nil {
		if errors.Is(err, games.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid search parameters")
			return
		}
		h.log.Error("api.games.search.fail", "type", typ, "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	if result.Games == nil {
		result.Games = []games.Game{}
	}
	writeJSON(w, http.StatusOK, gamesPageResponse{Games: result.Games, HasNext: result.HasNext, Page: page})
}

func (h *Handler) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	created, err := h.catalog.Create(r.Context(), games.Game{
		Name:        req.Name,
		Description: req.Description,
		Type:        games.Type(req.Type),
		Category:    games.Category(req.Category),
		Iterations:  req.Iterations,
	})
	if err != nil {
		if errors.Is(err, games.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "invalid_request", "name and a valid type are required")
			return
		}
		h.log.Error("api.games.create.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleGamePlayed(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "game id is required")
		return
	}

	if err := h.catalog.RecordPlayed(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, games.ErrNotFound):
			writeError(w, http.StatusNotFound, "game_not_found", "unknown game")
		case errors.Is(err, games.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid game id")
		default:
			h.log.Error("api.games.played.fail", "id", id, "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
