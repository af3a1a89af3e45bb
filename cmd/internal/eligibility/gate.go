package eligibility

import (
	"context"
	"crypto/rand"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Gate answers "may this user still get a code for this event" and
// records issuance afterwards.
type Gate struct {
	store Store
}

// CheckInput identifies the requesting user.
type CheckInput struct {
	Email     string
	FirstName string
	LastName  string
	Now       time.Time
}

// NewGate constructs a Gate.
func NewGate(store Store) (*Gate, error) {
	if store == nil {
		return nil, ErrInvalidInput
	}
	return &Gate{store: store}, nil
}

// CheckEligible reports whether the user may request a code for
// eventKey. A user seen for the first time is provisioned as a side
// effect (idempotent) and is eligible by default: a fresh record has
// nothing issued yet, so there is nothing to block on.
func (g *Gate) CheckEligible(ctx context.Context, in CheckInput, eventKey string) (bool, error) {
	if g == nil || g.store == nil {
		return false, ErrInvalidInput
	}
	email := normalizeEmail(in.Email)
	eventKey = strings.TrimSpace(eventKey)
	if email == "" || eventKey == "" {
		return false, ErrInvalidInput
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	u, err := g.store.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return false, err
		}
		id, err := newULID(now)
		if err != nil {
			return false, err
		}
		created, err := g.store.Create(ctx, User{
			ID:        id,
			Email:     email,
			FirstName: strings.TrimSpace(in.FirstName),
			LastName:  strings.TrimSpace(in.LastName),
			CreatedAt: now,
		})
		if err != nil {
			// A racing request may have provisioned the same user first;
			// provisioning is idempotent, so fall back to the winner's row.
			existing, getErr := g.store.GetByEmail(ctx, email)
			if getErr != nil {
				return false, err
			}
			u = existing
		} else {
			u = created
		}
	}

	for _, k := range u.IssuedEventKeys {
		if k == eventKey {
			return false, nil
		}
	}
	return true, nil
}

// RecordIssued marks eventKey as issued for the user. Callers invoke it
// only after a code has actually gone out; it is not transactional with
// the inventory commit.
func (g *Gate) RecordIssued(ctx context.Context, email, eventKey string) error {
	if g == nil || g.store == nil {
		return ErrInvalidInput
	}
	email = normalizeEmail(email)
	eventKey = strings.TrimSpace(eventKey)
	if email == "" || eventKey == "" {
		return ErrInvalidInput
	}
	_, err := g.store.RecordIssued(ctx, email, eventKey)
	return err
}

// Subscription resolves the user's subscription by name. The returned ID
// doubles as the vendor coupon ID for vendor-managed events, and the
// name doubles as the inventory tier for document-managed ones.
func (g *Gate) Subscription(ctx context.Context, name string) (Subscription, error) {
	if g == nil || g.store == nil {
		return Subscription{}, ErrInvalidInput
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Subscription{}, ErrSubscriptionNotFound
	}
	return g.store.GetSubscription(ctx, name)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func newULID(now time.Time) (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(now), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
