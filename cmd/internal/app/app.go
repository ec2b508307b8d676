// Package app wires the Tero server runtime: config, logging, HTTP routes,
// the join-key vault, and the reclamation sweeper.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"tero/cmd/internal/admission"
	"tero/cmd/internal/api"
	"tero/cmd/internal/codeword"
	"tero/cmd/internal/games"
	"tero/cmd/internal/gamesession"
	"tero/cmd/internal/sweeper"
	"tero/cmd/internal/vault"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is a small app-level lifecycle abstraction.
// It exists to allow DB-backed resources to be closed gracefully.
type Store interface {
	Close(ctx context.Context) error
}

// nopStore is used for in-memory store mode.
type nopStore struct{}

func (nopStore) Close(_ context.Context) error { return nil }

// App is the Tero server runtime: it owns HTTP wiring and the background
// sweeper lifecycle.
type App struct {
	cfg Config
	log Logger

	store Store

	dbPool    *pgxpool.Pool
	dbEnabled bool

	manager   *vault.Manager
	admission *admission.Service
	catalog   *games.Service
	sweeper   *sweeper.Sweeper
	handler   *api.Handler
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	if err := ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}

	st, dbPool, dbEnabled, keyStore, gameStore, err := newStore(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}

	closeOnErr := func(err error) (*App, error) {
		_ = st.Close(context.Background())
		return nil, err
	}

	engine, err := gamesession.NewClient(cfg.EngineBaseURL,
		gamesession.WithTimeout(cfg.EngineTimeout),
		gamesession.WithMaxRetries(uint64(cfg.EngineMaxRetries)),
		gamesession.WithLogger(log),
	)
	if err != nil {
		return closeOnErr(err)
	}

	gen, err := codeword.NewGenerator()
	if err != nil {
		return closeOnErr(err)
	}

	manager, err := vault.NewManager(keyStore, gen,
		vault.WithMaxAttempts(cfg.ReserveMaxAttempts),
		vault.WithResolveTTL(cfg.ResolveTTL),
		vault.WithLogger(log),
	)
	if err != nil {
		return closeOnErr(err)
	}

	adm, err := admission.NewService(manager, engine, cfg.RealtimeEndpoint,
		admission.WithStatusTTL(cfg.StatusTTL),
		admission.WithTokenTTL(cfg.ConnTokenTTL),
		admission.WithLogger(log),
	)
	if err != nil {
		return closeOnErr(err)
	}

	catalog, err := games.NewService(gameStore,
		games.WithPageTTL(cfg.GamePageTTL),
		games.WithServiceLogger(log),
	)
	if err != nil {
		return closeOnErr(err)
	}

	handler, err := api.NewHandler(log, engine, manager, adm, catalog)
	if err != nil {
		return closeOnErr(err)
	}

	sw, err := sweeper.New(manager, engine,
		sweeper.WithInterval(cfg.SweepInterval),
		sweeper.WithMaxAge(cfg.SweepMaxAge),
		sweeper.WithLogger(log),
	)
	if err != nil {
		return closeOnErr(err)
	}

	return &App{
		cfg:       cfg,
		log:       log,
		store:     st,
		dbPool:    dbPool,
		dbEnabled: dbEnabled,
		manager:   manager,
		admission: adm,
		catalog:   catalog,
		sweeper:   sw,
		handler:   handler,
	}, nil
}

// Run starts the HTTP server and the sweeper and blocks until context
// cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.handler)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           WithRequestLogging(mux, a.log),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	bgCtx, bgCancel := context.WithCancel(ctx)
	defer bgCancel()

	a.manager.StartCacheSweep(bgCtx, time.Minute)
	a.admission.StartCacheSweep(bgCtx, time.Minute)
	a.catalog.StartCacheSweep(bgCtx, time.Minute)

	go func() {
		if err := a.sweeper.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Error("sweeper.stop.fail", "err", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	// Close store resources (pool etc).
	if err := a.store.Close(shutdownCtx); err != nil {
		a.log.Error("store.close.fail", "err", err)
	}

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// newStore decides between Postgres-backed persistence and the in-memory
// development stores.
func newStore(ctx context.Context, cfg Config, log Logger) (Store, *pgxpool.Pool, bool, vault.Store, games.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		return nopStore{}, nil, false, vault.NewMemoryStore(), games.NewMemoryStore(), nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, false, nil, nil, err
	}

	log.Info("db.enabled.postgres_store")

	// app owns the pool lifecycle; the stores only borrow it.
	keyStore, err := vault.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, nil, false, nil, nil, err
	}
	gameStore, err := games.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, nil, false, nil, nil, err
	}

	return dbStore{pool: pool}, pool, true, keyStore, gameStore, nil
}

type dbStore struct {
	pool *pgxpool.Pool
}

func (s dbStore) Close(_ context.Context) error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
