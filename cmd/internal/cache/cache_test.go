package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestPutThenGet_NoLoaderCall(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	c := New[string]("test", time.Minute, WithNow[string](clk.Now))
	c.Put("k", "v", time.Minute)

	got, err := c.GetOrLoad(context.Background(), "k", func(context.Context) (string, error) {
		t.Fatal("loader must not run before expiry")
		return "", nil
	})
	if err != nil {
		t.Fatalf("GetOrLoad: %v", err)
	}
	if got != "v" {
		t.Fatalf("expected v, got %q", got)
	}
}

func TestExpiry_LoaderRunsOnceUnderConcurrency(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	c := New[string]("test", time.Minute, WithNow[string](clk.Now))
	c.Put("k", "old", time.Minute)
	clk.Advance(2 * time.Minute)

	var loads atomic.Int64
	release := make(chan struct{})

	const n = 16
	var wg sync.WaitGroup
	results := make([]string, n)
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = c.GetOrLoad(context.Background(), "k", func(context.Context) (string, error) {
				loads.Add(1)
				<-release
				return "fresh", nil
			})
		}()
	}

	// Give all goroutines a chance to join the flight before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := loads.Load(); got != 1 {
		t.Fatalf("expected exactly one loader call, got %d", got)
	}
	for i := range n {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if results[i] != "fresh" {
			t.Fatalf("caller %d: expected fresh, got %q", i, results[i])
		}
	}
}

func TestLoaderError_NotCached(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	c := New[int]("test", time.Minute, WithNow[int](clk.Now))

	boom := errors.New("boom")
	if _, err := c.GetOrLoad(context.Background(), "k", func(context.Context) (int, error) {
		return 0, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, err := c.GetOrLoad(context.Background(), "k", func(context.Context) (int, error) {
		return 7, nil
	})
	if err != nil || got != 7 {
		t.Fatalf("expected fresh load after failure, got %d, %v", got, err)
	}
}

func TestInvalidate_RemovesBeforeExpiry(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	c := New[string]("test", time.Minute, WithNow[string](clk.Now))
	c.Put("k", "v", time.Hour)
	c.Invalidate("k")

	loaded := false
	got, err := c.GetOrLoad(context.Background(), "k", func(context.Context) (string, error) {
		loaded = true
		return "fresh", nil
	})
	if err != nil {
		t.Fatalf("GetOrLoad: %v", err)
	}
	if !loaded || got != "fresh" {
		t.Fatalf("expected loader after invalidate, got %q (loaded=%v)", got, loaded)
	}
}

func TestInvalidate_WinsOverInFlightLoad(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	c := New[string]("test", time.Minute, WithNow[string](clk.Now))

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_, _ = c.GetOrLoad(context.Background(), "k", func(context.Context) (string, error) {
			close(started)
			<-release
			return "stale", nil
		})
	}()

	<-started
	c.Invalidate("k")
	close(release)
	<-done

	// The stale load result must not have been stored.
	loaded := false
	got, err := c.GetOrLoad(context.Background(), "k", func(context.Context) (string, error) {
		loaded = true
		return "fresh", nil
	})
	if err != nil {
		t.Fatalf("GetOrLoad: %v", err)
	}
	if !loaded || got != "fresh" {
		t.Fatalf("invalidated key served stale value %q (loaded=%v)", got, loaded)
	}
}

func TestSweep_DropsExpiredOnly(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	c := New[string]("test", time.Minute, WithNow[string](clk.Now))
	c.Put("short", "a", time.Minute)
	c.Put("long", "b", time.Hour)

	clk.Advance(5 * time.Minute)
	if removed := c.Sweep(); removed != 1 {
		t.Fatalf("expected 1 swept entry, got %d", removed)
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 remaining entry, got %d", c.Len())
	}
}
