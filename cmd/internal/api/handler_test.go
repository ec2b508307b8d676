package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"tero/cmd/internal/admission"
	"tero/cmd/internal/games"
	"tero/cmd/internal/vault"
)

type fakeEngine struct {
	mu        sync.Mutex
	nextID    string
	createErr error
	created   []string
	ended     []string
}

func (f *fakeEngine) CreateSession(_ context.Context, gameType string, _ map[string]any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return "", f.createErr
	}
	id := f.nextID
	if id == "" {
		id = "sess-" + gameType
	}
	f.created = append(f.created, id)
	return id, nil
}

func (f *fakeEngine) EndSession(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ended = append(f.ended, sessionID)
	return nil
}

type fakeVault struct {
	reserveErr error
	released   []string
}

func (f *fakeVault) Reserve(_ context.Context, sessionID, _ string) (string, error) {
	if f.reserveErr != nil {
		return "", f.reserveErr
	}
	return "PIXFOX07", nil
}

func (f *fakeVault) Release(_ context.Context, code string) error {
	f.released = append(f.released, code)
	return nil
}

type fakeAdmitter struct {
	desc admission.ConnectionDescriptor
	err  error
}

func (f *fakeAdmitter) AdmitJoin(_ context.Context, code string, user admission.Identity) (admission.ConnectionDescriptor, error) {
	if code == "" || user.UserID == "" {
		return admission.ConnectionDescriptor{}, admission.ErrInvalidInput
	}
	return f.desc, f.err
}

func newTestServer(t *testing.T, engine *fakeEngine, v *fakeVault, adm *fakeAdmitter, catalog Catalog) *httptest.Server {
	t.Helper()

	if catalog == nil {
		svc, err := games.NewService(games.NewMemoryStore())
		if err != nil {
			t.Fatalf("games.NewService: %v", err)
		}
		catalog = svc
	}
	h, err := NewHandler(nil, engine, v, adm, catalog)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	mux := http.NewServeMux()
	h.Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()

	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	return decodeBody[errorResponse](t, resp).Error.Code
}

func TestCreateSession(t *testing.T) {
	engine := &fakeEngine{nextID: "sess-42"}
	srv := newTestServer(t, engine, &fakeVault{}, &fakeAdmitter{}, nil)

	resp := postJSON(t, srv.URL+"/api/sessions", `{"game_type":"quiz"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	body := decodeBody[createSessionResponse](t, resp)
	if body.SessionID != "sess-42" || body.Code != "PIXFOX07" {
		t.Fatalf("body = %+v", body)
	}
	if len(engine.ended) != 0 {
		t.Fatalf("engine.ended = %v on success", engine.ended)
	}
}

func TestCreateSession_ReserveFailureRollsBackEngine(t *testing.T) {
	engine := &fakeEngine{nextID: "sess-42"}
	v := &fakeVault{reserveErr: vault.ErrVaultExhausted}
	srv := newTestServer(t, engine, v, &fakeAdmitter{}, nil)

	resp := postJSON(t, srv.URL+"/api/sessions", `{"game_type":"quiz"}`)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	if code := errorCode(t, resp); code != "codes_exhausted" {
		t.Fatalf("error code = %q", code)
	}
	if len(engine.ended) != 1 || engine.ended[0] != "sess-42" {
		t.Fatalf("engine.ended = %v, want rollback of sess-42", engine.ended)
	}
}

func TestCreateSession_EngineFailureLeavesNoCode(t *testing.T) {
	engine := &fakeEngine{createErr: errors.New("engine down")}
	srv := newTestServer(t, engine, &fakeVault{}, &fakeAdmitter{}, nil)

	resp := postJSON(t, srv.URL+"/api/sessions", `{"game_type":"quiz"}`)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}

func TestCreateSession_MissingGameType(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{}, &fakeVault{}, &fakeAdmitter{}, nil)

	resp := postJSON(t, srv.URL+"/api/sessions", `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestJoin(t *testing.T) {
	exp := time.Date(2026, 3, 1, 12, 0, 30, 0, time.UTC)
	adm := &fakeAdmitter{desc: admission.ConnectionDescriptor{
		Endpoint:  "wss://play.example.com/ws",
		SessionID: "sess-1",
		GameType:  "quiz",
		Token:     "payload.sig",
		ExpiresAt: exp,
	}}
	srv := newTestServer(t, &fakeEngine{}, &fakeVault{}, adm, nil)

	resp := postJSON(t, srv.URL+"/api/join", `{"code":"PIXFOX07","user_id":"user-1"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody[joinResponse](t, resp)
	if body.SessionID != "sess-1" || body.Token != "payload.sig" || !body.ExpiresAt.Equal(exp) {
		t.Fatalf("body = %+v", body)
	}
}

func TestJoin_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"unknown code", admission.ErrCodeNotFound, http.StatusNotFound, "code_not_found"},
		{"full", admission.ErrSessionFull, http.StatusConflict, "session_full"},
		{"ended", admission.ErrSessionEnded, http.StatusConflict, "session_ended"},
		{"engine down", admission.ErrRemoteUnavailable, http.StatusServiceUnavailable, "engine_unavailable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t, &fakeEngine{}, &fakeVault{}, &fakeAdmitter{err: tc.err}, nil)

			resp := postJSON(t, srv.URL+"/api/join", `{"code":"PIXFOX07","user_id":"user-1"}`)
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.wantStatus)
			}
			if code := errorCode(t, resp); code != tc.wantCode {
				t.Fatalf("error code = %q, want %q", code, tc.wantCode)
			}
		})
	}
}

func TestJoin_MissingFields(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{}, &fakeVault{}, &fakeAdmitter{}, nil)

	resp := postJSON(t, srv.URL+"/api/join", `{"code":"PIXFOX07"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestReleaseCode(t *testing.T) {
	v := &fakeVault{}
	srv := newTestServer(t, &fakeEngine{}, v, &fakeAdmitter{}, nil)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/codes/PIXFOX07", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if len(v.released) != 1 || v.released[0] != "PIXFOX07" {
		t.Fatalf("released = %v", v.released)
	}
}

func TestSearchGames(t *testing.T) {
	store := games.NewMemoryStore()
	svc, err := games.NewService(store)
	if err != nil {
		t.Fatalf("games.NewService: %v", err)
	}
	for _, name := range []string{"Trivia Blitz", "History Buff"} {
		if _, err := svc.Create(context.Background(), games.Game{Name: name, Type: games.TypeQuiz}); err != nil {
			t.Fatalf("seed %q: %v", name, err)
		}
	}
	srv := newTestServer(t, &fakeEngine{}, &fakeVault{}, &fakeAdmitter{}, svc)

	resp, err := http.Get(srv.URL + "/api/games/quiz?page=0")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody[gamesPageResponse](t, resp)
	if len(body.Games) != 2 || body.HasNext {
		t.Fatalf("body = %+v", body)
	}
}

func TestSearchGames_UnknownType(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{}, &fakeVault{}, &fakeAdmitter{}, nil)

	resp, err := http.Get(srv.URL + "/api/games/poker")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestSearchGames_BadPage(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{}, &fakeVault{}, &fakeAdmitter{}, nil)

	resp, err := http.Get(srv.URL + "/api/games/quiz?page=-1")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCreateGameAndRecordPlayed(t *testing.T) {
	svc, err := games.NewService(games.NewMemoryStore())
	if err != nil {
		t.Fatalf("games.NewService: %v", err)
	}
	srv := newTestServer(t, &fakeEngine{}, &fakeVault{}, &fakeAdmitter{}, svc)

	resp := postJSON(t, srv.URL+"/api/games", `{"name":"Trivia Blitz","type":"quiz"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	created := decodeBody[games.Game](t, resp)
	if created.ID == "" {
		t.Fatal("created game has empty ID")
	}

	played := postJSON(t, srv.URL+"/api/games/"+created.ID+"/played", "")
	if played.StatusCode != http.StatusNoContent {
		t.Fatalf("played status = %d, want 204", played.StatusCode)
	}

	missing := postJSON(t, srv.URL+"/api/games/does-not-exist/played", "")
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("missing status = %d, want 404", missing.StatusCode)
	}
}
