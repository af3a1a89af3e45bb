// Package credential manages the lifecycle of OAuth-style vendor
// credentials: one persisted record per identity, refreshed when
// expired, never used past expiry.
package credential

import (
	"context"
	"time"
)

// Record is the persisted token state for one credential identity.
type Record struct {
	ID           string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Valid reports whether the access token is still usable at now.
func (r Record) Valid(now time.Time) bool {
	return now.Before(r.ExpiresAt)
}

// Store is the persistence boundary for token records. Update replaces
// all token fields atomically in a single call.
type Store interface {
	Get(ctx context.Context, id string) (Record, error)
	Update(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) (Record, error)
}
