// Package main provides a CI-friendly HTTP smoke test for a running Tero
// server.
//
// It validates:
//   - /healthz and /readyz
//   - game catalog create -> paginated search -> played counter
//   - session create -> join -> code release (requires a reachable
//     session engine; skip with -skip-sessions)
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

func main() {
	var (
		baseURL      = flag.String("url", "http://127.0.0.1:8080", "Tero server base URL")
		gameType     = flag.String("type", "quiz", "Game type used for catalog and session steps")
		userID       = flag.String("user", "smoke-user", "User ID used for the join step")
		timeout      = flag.Duration("timeout", 7*time.Second, "Per-step timeout")
		skipSessions = flag.Bool("skip-sessions", false, "Skip session create/join steps (no engine available)")
		verbose      = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	if err := validateBaseURL(*baseURL); err != nil {
		fatalf("invalid -url: %v", err)
	}

	c := &smokeClient{
		base:    strings.TrimRight(*baseURL, "/"),
		hc:      &http.Client{Timeout: *timeout},
		timeout: *timeout,
		verbose: *verbose,
	}

	step("healthz", func() error { return c.expectText(http.MethodGet, "/healthz", http.StatusOK) })
	step("readyz", func() error { return c.expectText(http.MethodGet, "/readyz", http.StatusOK) })

	var gameID string
	step("games.create", func() error {
		var created struct {
			ID string `json:"id"`
		}
		err := c.doJSON(http.MethodPost, "/api/games",
			map[string]any{"name": "Smoke " + time.Now().Format("150405"), "type": *gameType},
			http.StatusCreated, &created)
		if err != nil {
			return err
		}
		if created.ID == "" {
			return fmt.Errorf("created game has empty id")
		}
		gameID = created.ID
		return nil
	})

	step("games.search", func() error {
		var page struct {
			Games []struct {
				ID string `json:"id"`
			} `json:"games"`
		}
		if err := c.doJSON(http.MethodGet, "/api/games/"+*gameType+"?page=0", nil, http.StatusOK, &page); err != nil {
			return err
		}
		for _, g := range page.Games {
			if g.ID == gameID {
				return nil
			}
		}
		return fmt.Errorf("created game %s not on first page", gameID)
	})

	step("games.played", func() error {
		return c.doJSON(http.MethodPost, "/api/games/"+gameID+"/played", nil, http.StatusNoContent, nil)
	})

	if *skipSessions {
		fmt.Println("SKIP session steps (-skip-sessions)")
		fmt.Println("SMOKE OK")
		return
	}

	var code string
	step("sessions.create", func() error {
		var created struct {
			Code      string `json:"code"`
			SessionID string `json:"session_id"`
		}
		err := c.doJSON(http.MethodPost, "/api/sessions",
			map[string]any{"game_type": *gameType}, http.StatusCreated, &created)
		if err != nil {
			return err
		}
		if created.Code == "" || created.SessionID == "" {
			return fmt.Errorf("incomplete create response: %+v", created)
		}
		code = created.Code
		return nil
	})

	step("join", func() error {
		var joined struct {
			Endpoint string `json:"endpoint"`
			Token    string `json:"token"`
		}
		err := c.doJSON(http.MethodPost, "/api/join",
			map[string]any{"code": code, "user_id": *userID}, http.StatusOK, &joined)
		if err != nil {
			return err
		}
		if joined.Endpoint == "" || joined.Token == "" {
			return fmt.Errorf("incomplete join response: %+v", joined)
		}
		return nil
	})

	step("codes.release", func() error {
		return c.doJSON(http.MethodDelete, "/api/codes/"+code, nil, http.StatusNoContent, nil)
	})

	step("join.after_release", func() error {
		err := c.doJSON(http.MethodPost, "/api/join",
			map[string]any{"code": code, "user_id": *userID}, http.StatusNotFound, nil)
		return err
	})

	fmt.Println("SMOKE OK")
}

type smokeClient struct {
	base    string
	hc      *http.Client
	timeout time.Duration
	verbose bool
}

func (c *smokeClient) doJSON(method, path string, body any, wantStatus int, out any) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if c.verbose {
		fmt.Printf("  %s %s -> %d %s\n", method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if resp.StatusCode != wantStatus {
		return fmt.Errorf("%s %s: status %d (want %d): %s", method, path, resp.StatusCode, wantStatus, strings.TrimSpace(string(raw)))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%s %s: decode: %w", method, path, err)
		}
	}
	return nil
}

func (c *smokeClient) expectText(method, path string, wantStatus int) error {
	return c.doJSON(method, path, nil, wantStatus, nil)
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

func step(name string, fn func() error) {
	if err := fn(); err != nil {
		fatalf("%s: %v", name, err)
	}
	fmt.Printf("OK %s\n", name)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "SMOKE FAIL: "+format+"\n", args...)
	os.Exit(1)
}
