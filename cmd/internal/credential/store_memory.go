package credential

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is a dev/test Store implementation.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

// Seed installs a record, typically during dev bootstrap or tests.
func (s *MemoryStore) Seed(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
}

// Get fetches the token record for one credential identity.
func (s *MemoryStore) Get(ctx context.Context, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Record{}, ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Update replaces all token fields atomically. Last write wins, matching
// the remote store's semantics for racing refreshers.
func (s *MemoryStore) Update(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	if strings.TrimSpace(id) == "" || accessToken == "" || refreshToken == "" {
		return Record{}, ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return Record{}, ErrNotFound
	}
	rec := Record{ID: id, AccessToken: accessToken, RefreshToken: refreshToken, ExpiresAt: expiresAt}
	s.records[id] = rec
	return rec, nil
}
