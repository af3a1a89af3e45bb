package credential

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists token records in PostgreSQL.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// StoreOption configures PostgresStore.
type StoreOption func(*PostgresStore) error

// WithSchema sets the DB schema used by the store (default: "coupond").
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
	st := &PostgresStore{pool: pool, schema: "coupond"}
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

// Get fetches the token record for one credential identity.
func (s *PostgresStore) Get(ctx context.Context, id string) (Record, error) {
	if s == nil || s.pool == nil {
		return Record{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Record{}, ErrInvalidInput
	}

	tokens := pgIdent(s.schema, "vendor_tokens")
	var out Record
	err := s.pool.QueryRow(ctx,
		`SELECT id, access_token, refresh_token, expires_at
		   FROM `+tokens+`
		  WHERE id = $1`,
		id,
	).Scan(&out.ID, &out.AccessToken, &out.RefreshToken, &out.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return out, nil
}

// Update replaces all token fields for an identity in one statement.
func (s *PostgresStore) Update(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) (Record, error) {
	if s == nil || s.pool == nil {
		return Record{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	if strings.TrimSpace(id) == "" || accessToken == "" || refreshToken == "" {
		return Record{}, ErrInvalidInput
	}

	tokens := pgIdent(s.schema, "vendor_tokens")
	var out Record
	err := s.pool.QueryRow(ctx,
		`UPDATE `+tokens+`
		    SET access_token = $2,
		        refresh_token = $3,
		        expires_at = $4
		  WHERE id = $1
		RETURNING id, access_token, refresh_token, expires_at`,
		id, accessToken, refreshToken, expiresAt,
	).Scan(&out.ID, &out.AccessToken, &out.RefreshToken, &out.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return out, nil
}

func pgIdent(schema, table string) string {
	return pgx.Identifier{schema, table}.Sanitize()
}
