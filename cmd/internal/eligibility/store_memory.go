package eligibility

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is a dev/test Store implementation.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]User         // keyed by email
	subs  map[string]Subscription // keyed by lower-cased name
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]User),
		subs:  make(map[string]Subscription),
	}
}

// SeedSubscription installs a subscription, typically at dev bootstrap.
func (s *MemoryStore) SeedSubscription(sub Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[strings.ToLower(sub.Name)] = sub
}

// GetByEmail fetches a user record by email.
func (s *MemoryStore) GetByEmail(ctx context.Context, email string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[email]
	if !ok {
		return User{}, ErrNotFound
	}
	return copyUser(u), nil
}

// Create inserts a new user record. Creating an email that already
// exists returns the existing row untouched, keeping provisioning
// idempotent.
func (s *MemoryStore) Create(ctx context.Context, u User) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if u.ID == "" || u.Email == "" {
		return User{}, ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.users[u.Email]; ok {
		return copyUser(existing), nil
	}
	s.users[u.Email] = copyUser(u)
	return copyUser(u), nil
}

// RecordIssued appends eventKey to the user's issued set atomically.
func (s *MemoryStore) RecordIssued(ctx context.Context, email, eventKey string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if email == "" || eventKey == "" {
		return User{}, ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[email]
	if !ok {
		return User{}, ErrNotFound
	}
	for _, k := range u.IssuedEventKeys {
		if k == eventKey {
			return User{}, ErrAlreadyRecorded
		}
	}
	u.IssuedEventKeys = append(u.IssuedEventKeys, eventKey)
	u.GeneratedCouponCode = true
	s.users[email] = u
	return copyUser(u), nil
}

// GetSubscription resolves a subscription by name, case-insensitively.
func (s *MemoryStore) GetSubscription(ctx context.Context, name string) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return Subscription{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[strings.ToLower(name)]
	if !ok {
		return Subscription{}, ErrSubscriptionNotFound
	}
	return sub, nil
}

func copyUser(u User) User {
	u.IssuedEventKeys = append([]string(nil), u.IssuedEventKeys...)
	return u
}
