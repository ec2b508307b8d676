package vault

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tero/cmd/internal/codeword"
)

func testGenerator(t *testing.T, prefixes, suffixes []string) *codeword.Generator {
	t.Helper()
	g, err := codeword.NewGenerator(codeword.WithFragments(prefixes, suffixes))
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	return g
}

func testManager(t *testing.T, store Store, gen *codeword.Generator, opts ...ManagerOption) *Manager {
	t.Helper()
	m, err := NewManager(store, gen, opts...)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestReserve_ConcurrentReservationsAreDistinct(t *testing.T) {
	t.Parallel()

	// Constrained space: 2 x 2 fragments x 100 disambiguators = 400 codes.
	gen := testGenerator(t, []string{"AAA", "BBB"}, []string{"CCC", "DDD"})
	m := testManager(t, NewMemoryStore(), gen, WithMaxAttempts(50))

	const n = 50
	codes := make([]string, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes[i], errs[i] = m.Reserve(context.Background(), fmt.Sprintf("session-%d", i), "spin")
		}()
	}
	wg.Wait()

	seen := make(map[string]int, n)
	for i := range n {
		if errs[i] != nil {
			t.Fatalf("reservation %d: %v", i, errs[i])
		}
		if prev, ok := seen[codes[i]]; ok {
			t.Fatalf("code %q assigned to both reservation %d and %d", codes[i], prev, i)
		}
		seen[codes[i]] = i
	}
}

func TestReserve_ExhaustsAfterBoundedAttempts(t *testing.T) {
	t.Parallel()

	// One fragment pair and a pinned random source: every candidate is the
	// same code, so the second reservation can never win.
	gen, err := codeword.NewGenerator(
		codeword.WithFragments([]string{"AAA"}, []string{"BBB"}),
		codeword.WithRand(func(int) int { return 0 }),
	)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	m := testManager(t, NewMemoryStore(), gen, WithMaxAttempts(5))

	if _, err := m.Reserve(context.Background(), "s1", "quiz"); err != nil {
		t.Fatalf("first reserve: %v", err)
	}
	if _, err := m.Reserve(context.Background(), "s2", "quiz"); !errors.Is(err, ErrVaultExhausted) {
		t.Fatalf("expected ErrVaultExhausted, got %v", err)
	}
}

func TestResolve_AfterReleaseFailsNotFound(t *testing.T) {
	t.Parallel()

	gen := testGenerator(t, []string{"AAA"}, []string{"BBB"})
	m := testManager(t, NewMemoryStore(), gen)

	code, err := m.Reserve(context.Background(), "s1", "spin")
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	ref, err := m.Resolve(context.Background(), code)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ref.SessionID != "s1" || ref.GameType != "spin" {
		t.Fatalf("unexpected ref %+v", ref)
	}

	if err := m.Release(context.Background(), code); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := m.Resolve(context.Background(), code); !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("expected ErrCodeNotFound after release, got %v", err)
	}
}

func TestRelease_Idempotent(t *testing.T) {
	t.Parallel()

	gen := testGenerator(t, []string{"AAA"}, []string{"BBB"})
	m := testManager(t, NewMemoryStore(), gen)

	code, err := m.Reserve(context.Background(), "s1", "spin")
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	if err := m.Release(context.Background(), code); err != nil {
		t.Fatalf("first release: %v", err)
	}
	if err := m.Release(context.Background(), code); err != nil {
		t.Fatalf("second release: %v", err)
	}
	if err := m.Release(context.Background(), "ZZZZZZZZ"); err != nil {
		t.Fatalf("release of unknown code: %v", err)
	}
}

func TestResolve_CacheAcceleratesReads(t *testing.T) {
	t.Parallel()

	store := &countingStore{Store: NewMemoryStore()}
	gen := testGenerator(t, []string{"AAA"}, []string{"BBB"})
	m := testManager(t, store, gen, WithResolveTTL(time.Minute))

	code, err := m.Reserve(context.Background(), "s1", "spin")
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	for range 5 {
		if _, err := m.Resolve(context.Background(), code); err != nil {
			t.Fatalf("Resolve: %v", err)
		}
	}
	if got := store.resolves.Load(); got != 1 {
		t.Fatalf("expected 1 store resolve, got %d", got)
	}
}

func TestReclaimStale_ReleasesDeadSkipsFailed(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	gen := testGenerator(t, []string{"AAA", "BBB", "CCC"}, []string{"DDD", "EEE", "FFF"})
	store := NewMemoryStore()
	m := testManager(t, store, gen, WithNow(func() time.Time { return now }))

	reserve := func(session string) string {
		t.Helper()
		code, err := m.Reserve(context.Background(), session, "quiz")
		if err != nil {
			t.Fatalf("Reserve %s: %v", session, err)
		}
		return code
	}
	deadCode := reserve("dead")
	flakyCode := reserve("flaky")
	aliveCode := reserve("alive")

	now = now.Add(2 * time.Hour)

	count, err := m.ReclaimStale(context.Background(), time.Hour, func(_ context.Context, sessionID string) (bool, error) {
		switch sessionID {
		case "dead":
			return true, nil
		case "flaky":
			return false, errors.New("engine unreachable")
		default:
			return false, nil
		}
	})
	if err != nil {
		t.Fatalf("ReclaimStale: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 reclaimed code, got %d", count)
	}

	if _, err := m.Resolve(context.Background(), deadCode); !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("dead code should be released, got %v", err)
	}
	if _, err := m.Resolve(context.Background(), flakyCode); err != nil {
		t.Fatalf("flaky code must stay bound: %v", err)
	}
	if _, err := m.Resolve(context.Background(), aliveCode); err != nil {
		t.Fatalf("alive code must stay bound: %v", err)
	}

	// The alive session was touched, so an immediate second pass sees no
	// stale candidates for it.
	stale, err := store.ListStale(context.Background(), now.Add(-time.Hour), 10)
	if err != nil {
		t.Fatalf("ListStale: %v", err)
	}
	for _, k := range stale {
		if k.SessionID == "alive" {
			t.Fatalf("alive session still listed as stale")
		}
	}
}

// countingStore counts Resolve calls that reach the underlying store.
type countingStore struct {
	Store
	resolves atomic.Int64
}

func (s *countingStore) Resolve(ctx context.Context, code string) (JoinKey, error) {
	s.resolves.Add(1)
	return s.Store.Resolve(ctx, code)
}
