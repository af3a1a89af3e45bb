// Package eligibility tracks who may still receive a code for which
// event. The issued-event set on the user record is the system's only
// defense against a user obtaining two codes for the same event; it is
// deliberately independent of inventory state.
package eligibility

import (
	"context"
	"time"
)

// User is a persisted user record.
type User struct {
	ID                  string
	Email               string
	FirstName           string
	LastName            string
	GeneratedCouponCode bool
	IssuedEventKeys     []string
	CreatedAt           time.Time
}

// Subscription maps a subscription name to the vendor coupon ID it is
// sold under.
type Subscription struct {
	ID   string
	Name string
}

// Store is the persistence boundary for users and subscriptions.
type Store interface {
	// GetByEmail fetches a user record; ErrNotFound when absent.
	GetByEmail(ctx context.Context, email string) (User, error)

	// Create inserts a new user record.
	Create(ctx context.Context, u User) (User, error)

	// RecordIssued appends eventKey to the user's issued set and flags
	// the record, atomically and without duplicates. ErrAlreadyRecorded
	// when the key was already present.
	RecordIssued(ctx context.Context, email, eventKey string) (User, error)

	// GetSubscription resolves a subscription by name;
	// ErrSubscriptionNotFound when absent.
	GetSubscription(ctx context.Context, name string) (Subscription, error)
}
