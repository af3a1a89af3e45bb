// Package allocation claims single-use discount codes from the shared
// inventory document under concurrent access.
//
// The document store offers no transactions, only whole-document reads
// tagged with a revision and writes conditioned on that revision. The
// engine therefore runs an optimistic loop: read, pick the first
// matching available entry, mark it used, write back conditioned on the
// revision it read. The conditioned write is the sole serialization
// point; the loser of a race re-reads, sees the entry now used, and
// picks the next one. Attempts are bounded, so nothing retries forever.
package allocation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"coupond/cmd/internal/document"
	"coupond/cmd/internal/inventory"
)

const defaultMaxAttempts = 5

// Engine allocates codes from one inventory document path.
type Engine struct {
	store       document.Store
	path        string
	maxAttempts int
	log         *slog.Logger
}

// Option configures the Engine.
type Option func(*Engine) error

// WithMaxAttempts bounds the optimistic retry loop.
func WithMaxAttempts(n int) Option {
	return func(e *Engine) error {
		if n <= 0 {
			return ErrInvalidInput
		}
		e.maxAttempts = n
		return nil
	}
}

// WithLogger overrides the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) error {
		if log == nil {
			return ErrInvalidInput
		}
		e.log = log
		return nil
	}
}

// NewEngine constructs an Engine over the given store and document path.
func NewEngine(store document.Store, path string, opts ...Option) (*Engine, error) {
	if store == nil || path == "" {
		return nil, ErrInvalidInput
	}
	e := &Engine{
		store:       store,
		path:        path,
		maxAttempts: defaultMaxAttempts,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Claim atomically claims one unused code for (eventKey, tier) and
// returns it. Outcomes:
//
//   - a code string on success (the conditioned write is the commit
//     point; the code counts as issued from that moment);
//   - ErrNoCodeAvailable when no matching entry exists (terminal);
//   - ErrContended when every attempt lost to concurrent claimants;
//   - ErrInventoryCorrupt when the document does not parse;
//   - ErrStoreUnavailable for transport failures, including timeouts,
//     which are never treated as conflicts because the write may or may
//     not have landed;
//   - the context's own error when the caller cancels, kept distinct
//     from store outages.
func (e *Engine) Claim(ctx context.Context, eventKey, tier string) (string, error) {
	if e == nil || e.store == nil {
		return "", ErrInvalidInput
	}
	if eventKey == "" || tier == "" {
		return "", ErrInvalidInput
	}

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			// The caller gave up; this is not a store outage.
			recordOutcome("canceled")
			return "", err
		}
		claimAttempts.Inc()

		content, rev, err := e.store.Get(ctx, e.path)
		if err != nil {
			recordOutcome("store_unavailable")
			return "", fmt.Errorf("%w: get: %v", ErrStoreUnavailable, err)
		}

		doc, err := inventory.Parse(content)
		if err != nil {
			recordOutcome("corrupt")
			return "", fmt.Errorf("%w: %v", ErrInventoryCorrupt, err)
		}

		entry := doc.FindAvailable(eventKey, tier)
		if entry == nil {
			// Empty inventory is a terminal outcome, not a conflict.
			recordOutcome("no_code")
			return "", ErrNoCodeAvailable
		}

		entry.MarkUsed()
		updated, err := doc.Serialize()
		if err != nil {
			recordOutcome("corrupt")
			return "", fmt.Errorf("%w: serialize: %v", ErrInventoryCorrupt, err)
		}

		_, err = e.store.Put(ctx, e.path, updated, document.UpdateIfRev(rev))
		if err == nil {
			recordOutcome("claimed")
			return entry.Code, nil
		}
		if errors.Is(err, document.ErrConflict) {
			// Another claimant committed first. Discard everything from
			// this attempt and re-derive from a fresh read.
			claimConflicts.Inc()
			e.log.Debug("claim.conflict",
				"event", eventKey,
				"tier", tier,
				"attempt", attempt,
			)
			continue
		}

		recordOutcome("store_unavailable")
		return "", fmt.Errorf("%w: put: %v", ErrStoreUnavailable, err)
	}

	recordOutcome("contended")
	e.log.Warn("claim.contended", "event", eventKey, "tier", tier, "attempts", e.maxAttempts)
	return "", ErrContended
}
