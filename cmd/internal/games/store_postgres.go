package games

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists the game catalog in PostgreSQL.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// StoreOption configures PostgresStore.
type StoreOption func(*PostgresStore) error

// WithSchema sets the DB schema used by the store (default: "tero").
func WithSchema(schema string) StoreOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return ErrInvalidInput
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...StoreOption) (*PostgresStore, error) {
	st := &PostgresStore{pool: pool, schema: "tero"}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, ErrInvalidInput
	}
	return st, nil
}

func (s *PostgresStore) Create(ctx context.Context, g Game) error {
	if s == nil || s.pool == nil {
		return ErrInvalidInput
	}
	if g.ID == "" || g.Name == "" || !g.Type.Valid() {
		return ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+pgIdent(s.schema, "games")+`
		        (id, name, description, game_type, category, iterations,
		         times_played, last_played, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		g.ID,
		g.Name,
		g.Description,
		string(g.Type),
		string(g.Category),
		g.Iterations,
		g.TimesPlayed,
		nullTime(g.LastPlayed),
		g.CreatedAt,
	)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Game, error) {
	if s == nil || s.pool == nil || id == "" {
		return Game{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return Game{}, err
	}

	row := s.pool.QueryRow(ctx,
		`SELECT id, name, description, game_type, category, iterations,
		        times_played, last_played, created_at
		   FROM `+pgIdent(s.schema, "games")+`
		  WHERE id = $1`,
		id,
	)
	g, err := scanGame(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Game{}, ErrNotFound
	}
	return g, err
}

func (s *PostgresStore) Search(ctx context.Context, typ Type, category Category, offset, limit int) ([]Game, error) {
	if s == nil || s.pool == nil || !typ.Valid() || offset < 0 || limit <= 0 {
		return nil, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The category filter collapses when no category is requested;
	// offset/limit paging keeps the query parameterized end to end.
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, description, game_type, category, iterations,
		        times_played, last_played, created_at
		   FROM `+pgIdent(s.schema, "games")+`
		  WHERE game_type = $1
		    AND ($2 = '' OR category = $2)
		  ORDER BY times_played DESC, created_at DESC, id
		 OFFSET $3
		  LIMIT $4`,
		string(typ),
		string(category),
		offset,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *PostgresStore) RecordPlayed(ctx context.Context, id string, playedAt time.Time) error {
	if s == nil || s.pool == nil || id == "" {
		return ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE `+pgIdent(s.schema, "games")+`
		    SET times_played = times_played + 1,
		        last_played = $2
		  WHERE id = $1`,
		id,
		playedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (Game, error) {
	var (
		g          Game
		typ, cat   string
		lastPlayed *time.Time
	)
	err := row.Scan(&g.ID, &g.Name, &g.Description, &typ, &cat,
		&g.Iterations, &g.TimesPlayed, &lastPlayed, &g.CreatedAt)
	if err != nil {
		return Game{}, err
	}
	g.Type = Type(typ)
	g.Category = Category(cat)
	if lastPlayed != nil {
		g.LastPlayed = *lastPlayed
	}
	return g, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func pgIdent(schema, table string) string {
	return pgx.Identifier{schema, table}.Sanitize()
}
