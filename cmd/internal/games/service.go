package games

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"tero/cmd/internal/cache"
)

const (
	// PageSize is the number of games on one search page.
	PageSize = 20

	defaultPageTTL = 2 * time.Minute
)

// Service answers catalog queries through a TTL cache and keeps the cache
// coherent across mutations.
type Service struct {
	store Store
	pages *cache.Cache[Page]
	now   func() time.Time
	log   *slog.Logger

	// Per-type generation counters feed the cache fingerprint. Bumping a
	// generation orphans every cached page of that type at once, so
	// mutations never need to enumerate page keys.
	quizGen atomic.Uint64
	spinGen atomic.Uint64
}

// ServiceOption configures the Service.
type ServiceOption func(*Service) error

// WithPageTTL sets how long a search page may be served from cache.
func WithPageTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl <= 0 {
			return ErrInvalidInput
		}
		s.pages = cache.New[Page]("games_pages", ttl)
		return nil
	}
}

// WithNow replaces the time source. Intended for tests.
func WithNow(now func() time.Time) ServiceOption {
	return func(s *Service) error {
		if now == nil {
			return ErrInvalidInput
		}
		s.now = now
		return nil
	}
}

// WithServiceLogger sets the service logger.
func WithServiceLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) error {
		if log != nil {
			s.log = log
		}
		return nil
	}
}

// NewService constructs a Service over the given store.
func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, ErrInvalidInput
	}
	s := &Service{
		store: store,
		pages: cache.New[Page]("games_pages", defaultPageTTL),
		now:   time.Now,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// SearchPage returns one catalog page, served from cache when a fresh copy
// exists. Concurrent identical queries collapse into a single store read.
func (s *Service) SearchPage(ctx context.Context, req PageRequest) (Page, error) {
	if s == nil || s.store == nil {
		return Page{}, ErrInvalidInput
	}
	if !req.Type.Valid() || req.Page < 0 {
		return Page{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}

	key := s.pageKey(req)
	return s.pages.GetOrLoad(ctx, key, func(ctx context.Context) (Page, error) {
		// One extra row decides HasNext without a count query.
		rows, err := s.store.Search(ctx, req.Type, req.Category, req.Page*PageSize, PageSize+1)
		if err != nil {
			return Page{}, err
		}
		page := Page{Games: rows, HasNext: len(rows) > PageSize}
		if page.HasNext {
			page.Games = rows[:PageSize]
		}
		return page, nil
	})
}

// Create adds a game to the catalog and returns it with a fresh ID.
func (s *Service) Create(ctx context.Context, g Game) (Game, error) {
	if s == nil || s.store == nil {
		return Game{}, ErrInvalidInput
	}
	g.Name = strings.TrimSpace(g.Name)
	if g.Name == "" || !g.Type.Valid() {
		return Game{}, ErrInvalidInput
	}
	if g.Category == "" {
		g.Category = CategoryDefault
	}
	g.ID = ulid.Make().String()
	g.TimesPlayed = 0
	g.LastPlayed = time.Time{}
	g.CreatedAt = s.now().UTC()

	if err := s.store.Create(ctx, g); err != nil {
		return Game{}, err
	}
	s.bumpGen(g.Type)
	s.log.Info("games.create", "id", g.ID, "type", g.Type, "name", g.Name)
	return g, nil
}

// RecordPlayed bumps a game's play counter.
func (s *Service) RecordPlayed(ctx context.Context, id string) error {
	if s == nil || s.store == nil || id == "" {
		return ErrInvalidInput
	}

	g, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.RecordPlayed(ctx, id, s.now().UTC()); err != nil {
		return err
	}
	s.bumpGen(g.Type)
	return nil
}

// StartCacheSweep periodically evicts expired page-cache entries until ctx
// is cancelled.
func (s *Service) StartCacheSweep(ctx context.Context, interval time.Duration) {
	if s == nil || interval <= 0 {
		return
	}
	s.pages.StartSweep(ctx, interval)
}

// pageKey fingerprints a page request. The generation component makes keys
// from before a mutation unreachable, which is how invalidation works here.
func (s *Service) pageKey(req PageRequest) string {
	return fmt.Sprintf("%s:%d:%s:%d", req.Type, s.gen(req.Type), req.Category, req.Page)
}

func (s *Service) gen(t Type) uint64 {
	if t == TypeSpin {
		return s.spinGen.Load()
	}
	return s.quizGen.Load()
}

func (s *Service) bumpGen(t Type) {
	if t == TypeSpin {
		s.spinGen.Add(1)
		return
	}
	s.quizGen.Add(1)
}
