package document

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// MemoryStore is a dev/test fallback when no remote document store is
// configured. It implements the full precondition semantics so the
// allocation engine behaves identically against it.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]memDoc
}

type memDoc struct {
	content []byte
	rev     string
}

// NewMemoryStore constructs an empty in-memory Store implementation.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]memDoc)}
}

// Get returns a copy of the document content and its revision token.
func (s *MemoryStore) Get(ctx context.Context, path string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	if path == "" {
		return nil, "", ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[path]
	if !ok {
		return nil, "", ErrNotFound
	}
	out := append([]byte(nil), doc.content...)
	return out, doc.rev, nil
}

// Put writes the document under the given mode and allocates a fresh
// revision token on success.
func (s *MemoryStore) Put(ctx context.Context, path string, content []byte, mode WriteMode) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if path == "" {
		return "", ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, exists := s.docs[path]
	switch mode.kind {
	case modeCreate:
		if exists {
			return "", ErrConflict
		}
	case modeOverwrite:
		// Unconditional by definition.
	case modeUpdateIfRev:
		if !exists {
			return "", ErrNotFound
		}
		if doc.rev != mode.rev {
			return "", ErrConflict
		}
	default:
		return "", ErrInvalidInput
	}

	rev, err := newRev(time.Now().UTC())
	if err != nil {
		return "", err
	}
	s.docs[path] = memDoc{content: append([]byte(nil), content...), rev: rev}
	return rev, nil
}

func newRev(now time.Time) (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(now), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
