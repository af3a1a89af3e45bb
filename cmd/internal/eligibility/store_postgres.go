package eligibility

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists users and subscriptions in PostgreSQL.
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

const userColumns = `id, email_address, first_name, last_name, generated_coupon_code, issued_event_keys, created_at`

// GetByEmail fetches a user record by email.
func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (User, error) {
	if s == nil || s.pool == nil {
		return User{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return User{}, ErrInvalidInput
	}

	users := pgIdent(s.schema, "users")
	var out User
	err := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+`
		   FROM `+users+`
		  WHERE email_address = $1`,
		email,
	).Scan(
		&out.ID,
		&out.Email,
		&out.FirstName,
		&out.LastName,
		&out.GeneratedCouponCode,
		&out.IssuedEventKeys,
		&out.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return out, nil
}

// Create inserts a new user row. A concurrent insert of the same email
// resolves to the existing row, keeping provisioning idempotent.
func (s *PostgresStore) Create(ctx context.Context, u User) (User, error) {
	if s == nil || s.pool == nil {
		return User{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if strings.TrimSpace(u.ID) == "" || strings.TrimSpace(u.Email) == "" {
		return User{}, ErrInvalidInput
	}

	users := pgIdent(s.schema, "users")
	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+users+` (`+userColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (email_address) DO NOTHING`,
		u.ID,
		u.Email,
		u.FirstName,
		u.LastName,
		u.GeneratedCouponCode,
		u.IssuedEventKeys,
		u.CreatedAt,
	)
	if err != nil {
		return User{}, err
	}
	return s.GetByEmail(ctx, u.Email)
}

// RecordIssued appends eventKey to the user's issued set in a single
// conditioned statement; the WHERE clause makes duplicates impossible.
func (s *PostgresStore) RecordIssued(ctx context.Context, email, eventKey string) (User, error) {
	if s == nil || s.pool == nil {
		return User{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if strings.TrimSpace(email) == "" || strings.TrimSpace(eventKey) == "" {
		return User{}, ErrInvalidInput
	}

	users := pgIdent(s.schema, "users")
	var out User
	err := s.pool.QueryRow(ctx,
		`UPDATE `+users+`
		    SET issued_event_keys = array_append(issued_event_keys, $2),
		        generated_coupon_code = TRUE
		  WHERE email_address = $1
		    AND NOT ($2 = ANY(issued_event_keys))
		RETURNING `+userColumns,
		email, eventKey,
	).Scan(
		&out.ID,
		&out.Email,
		&out.FirstName,
		&out.LastName,
		&out.GeneratedCouponCode,
		&out.IssuedEventKeys,
		&out.CreatedAt,
	)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return User{}, err
	}

	// Distinguish missing user from already-recorded event.
	if _, selErr := s.GetByEmail(ctx, email); selErr != nil {
		return User{}, selErr
	}
	return User{}, ErrAlreadyRecorded
}

// GetSubscription resolves a subscription by name, case-insensitively.
func (s *PostgresStore) GetSubscription(ctx context.Context, name string) (Subscription, error) {
	if s == nil || s.pool == nil {
		return Subscription{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return Subscription{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Subscription{}, ErrInvalidInput
	}

	subs := pgIdent(s.schema, "subscriptions")
	var out Subscription
	err := s.pool.QueryRow(ctx,
		`SELECT id, subscription_name
		   FROM `+subs+`
		  WHERE LOWER(subscription_name) = LOWER($1)`,
		name,
	).Scan(&out.ID, &out.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Subscription{}, ErrSubscriptionNotFound
		}
		return Subscription{}, err
	}
	return out, nil
}

func pgIdent(schema, table string) string {
	return pgx.Identifier{schema, table}.Sanitize()
}
