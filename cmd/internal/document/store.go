// Package document provides read-modify-write access to single versioned
// documents in a remote store.
//
// The store exposes exactly one concurrency primitive: a write may be
// conditioned on the revision token returned by an earlier read, and
// fails with ErrConflict when the live document has moved on. Everything
// above this package (the allocation engine in particular) builds on
// that primitive alone.
package document

import "context"

type modeKind int

const (
	modeCreate modeKind = iota
	modeOverwrite
	modeUpdateIfRev
)

// WriteMode selects the precondition for a Put.
type WriteMode struct {
	kind modeKind
	rev  string
}

// Create requires that no document exists at the path yet.
func Create() WriteMode { return WriteMode{kind: modeCreate} }

// Overwrite replaces the document unconditionally. The allocation path
// never uses it; it exists for out-of-band seeding only.
func Overwrite() WriteMode { return WriteMode{kind: modeOverwrite} }

// UpdateIfRev succeeds only if the live document still carries rev.
func UpdateIfRev(rev string) WriteMode { return WriteMode{kind: modeUpdateIfRev, rev: rev} }

// Store is the versioned-document boundary.
type Store interface {
	// Get returns the full document content and its current revision token.
	Get(ctx context.Context, path string) (content []byte, rev string, err error)

	// Put writes the full document under the given mode and returns the
	// new revision token. A failed precondition returns ErrConflict.
	Put(ctx context.Context, path string, content []byte, mode WriteMode) (rev string, err error)
}
