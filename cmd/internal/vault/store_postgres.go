package vault

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists join codes in PostgreSQL.
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

// Claim binds a code to a session with a single conditional upsert. The
// statement inserts a fresh row or rebinds a released one; a row held by a
// live session matches neither arm and yields no row, which is the conflict
// signal.
func (s *PostgresStore) Claim(ctx context.Context, in ClaimRecord) error {
	if s == nil || s.pool == nil {
		return ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(in.Code) == "" || strings.TrimSpace(in.SessionID) == "" {
		return ErrInvalidInput
	}
	if in.Now.IsZero() {
		in.Now = time.Now().UTC()
	}

	keys := pgIdent(s.schema, "join_keys")
	var claimed string
	err := s.pool.QueryRow(ctx,
		`INSERT INTO `+keys+` AS jk (code, session_id, game_type, issued_at, last_validated_at)
		 VALUES ($1, $2, $3, $4, $4)
		 ON CONFLICT (code) DO UPDATE
		    SET session_id = $2,
		        game_type = $3,
		        issued_at = $4,
		        last_validated_at = $4
		  WHERE jk.session_id IS NULL
		 RETURNING code`,
		in.Code,
		in.SessionID,
		in.GameType,
		in.Now,
	).Scan(&claimed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCodeTaken
		}
		return err
	}
	return nil
}

// Resolve fetches the bound key for a code.
func (s *PostgresStore) Resolve(ctx context.Context, code string) (JoinKey, error) {
	if s == nil || s.pool == nil {
		return JoinKey{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return JoinKey{}, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return JoinKey{}, ErrInvalidInput
	}

	keys := pgIdent(s.schema, "join_keys")
	var out JoinKey
	err := s.pool.QueryRow(ctx,
		`SELECT code, session_id, game_type, issued_at, last_validated_at
		   FROM `+keys+`
		  WHERE code = $1
		    AND session_id IS NOT NULL`,
		code,
	).Scan(
		&out.Code,
		&out.SessionID,
		&out.GameType,
		&out.IssuedAt,
		&out.LastValidatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JoinKey{}, ErrCodeNotFound
		}
		return JoinKey{}, err
	}
	return out, nil
}

// Release unbinds a code. Rows that are unknown or already available are
// left untouched without error.
func (s *PostgresStore) Release(ctx context.Context, code string, now time.Time) error {
	if s == nil || s.pool == nil {
		return ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrInvalidInput
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	keys := pgIdent(s.schema, "join_keys")
	_, err := s.pool.Exec(ctx,
		`UPDATE `+keys+`
		    SET session_id = NULL,
		        last_validated_at = $2
		  WHERE code = $1
		    AND session_id IS NOT NULL`,
		code,
		now,
	)
	return err
}

// Touch refreshes last_validated_at on a bound code.
func (s *PostgresStore) Touch(ctx context.Context, code string, now time.Time) error {
	if s == nil || s.pool == nil {
		return ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrInvalidInput
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	keys := pgIdent(s.schema, "join_keys")
	_, err := s.pool.Exec(ctx,
		`UPDATE `+keys+`
		    SET last_validated_at = $2
		  WHERE code = $1
		    AND session_id IS NOT NULL`,
		code,
		now,
	)
	return err
}

// ListStale returns bound codes not validated since cutoff, oldest first.
func (s *PostgresStore) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]JoinKey, error) {
	if s == nil || s.pool == nil {
		return nil, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	keys := pgIdent(s.schema, "join_keys")
	rows, err := s.pool.Query(ctx,
		`SELECT code, session_id, game_type, issued_at, last_validated_at
		   FROM `+keys+`
		  WHERE session_id IS NOT NULL
		    AND last_validated_at < $1
		  ORDER BY last_validated_at
		  LIMIT $2`,
		cutoff,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []JoinKey
	for rows.Next() {
		var k JoinKey
		if err := rows.Scan(&k.Code, &k.SessionID, &k.GameType, &k.IssuedAt, &k.LastValidatedAt); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func pgIdent(schema, table string) string {
	return pgx.Identifier{schema, table}.Sanitize()
}
