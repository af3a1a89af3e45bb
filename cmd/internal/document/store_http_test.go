package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// fakeContentAPI emulates the remote store: one document, rev-guarded
// uploads, Dropbox-style request/response framing.
type fakeContentAPI struct {
	mu      sync.Mutex
	content []byte
	rev     int
}

type uploadArg struct {
	Path string          `json:"path"`
	Mode json.RawMessage `json:"mode"`
}

func (f *fakeContentAPI) handler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/2/files/download", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.content == nil {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error_summary": "path/not_found/"}`))
			return
		}
		result, _ := json.Marshal(map[string]any{"rev": f.revString()})
		w.Header().Set("Dropbox-API-Result", string(result))
		_, _ = w.Write(f.content)
	})

	mux.HandleFunc("/2/files/upload", func(w http.ResponseWriter, r *http.Request) {
		var arg uploadArg
		if err := json.Unmarshal([]byte(r.Header.Get("Dropbox-API-Arg")), &arg); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		body, _ := io.ReadAll(r.Body)

		f.mu.Lock()
		defer f.mu.Unlock()

		var tagged struct {
			Tag    string `json:".tag"`
			Update string `json:"update"`
		}
		if err := json.Unmarshal(arg.Mode, &tagged); err == nil && tagged.Tag == "update" {
			if tagged.Update != f.revString() {
				w.WriteHeader(http.StatusConflict)
				_, _ = w.Write([]byte(`{"error_summary": "path/conflict/file/"}`))
				return
			}
		}
		f.content = body
		f.rev++
		_ = json.NewEncoder(w).Encode(map[string]any{"rev": f.revString()})
	})

	return mux
}

func (f *fakeContentAPI) revString() string {
	return fmt.Sprintf("rev-%d", f.rev)
}

func newHTTPStoreForTest(t *testing.T, f *fakeContentAPI) (*HTTPStore, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	store, err := NewHTTPStore(srv.URL, StaticToken("test-token"), WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewHTTPStore: %v", err)
	}
	return store, srv
}

func TestHTTPStore_GetPutRoundTrip(t *testing.T) {
	f := &fakeContentAPI{content: []byte(`{"codes": []}`)}
	store, _ := newHTTPStoreForTest(t, f)
	ctx := context.Background()

	content, rev, err := store.Get(ctx, "/discount_codes.json")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(content) != `{"codes": []}` || rev == "" {
		t.Fatalf("unexpected download: %s rev=%q", content, rev)
	}

	newRev, err := store.Put(ctx, "/discount_codes.json", []byte(`{"codes": [1]}`), UpdateIfRev(rev))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if newRev == rev {
		t.Fatalf("revision must advance after upload")
	}
}

func TestHTTPStore_StaleRevIsConflict(t *testing.T) {
	f := &fakeContentAPI{content: []byte(`{}`)}
	store, _ := newHTTPStoreForTest(t, f)
	ctx := context.Background()

	_, rev, err := store.Get(ctx, "/doc.json")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	// A competing writer moves the document forward.
	if _, err := store.Put(ctx, "/doc.json", []byte(`{"winner": true}`), UpdateIfRev(rev)); err != nil {
		t.Fatalf("winning Put: %v", err)
	}

	// The loser's conditioned write must surface ErrConflict.
	if _, err := store.Put(ctx, "/doc.json", []byte(`{"loser": true}`), UpdateIfRev(rev)); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestHTTPStore_MissingDocIsNotFound(t *testing.T) {
	store, _ := newHTTPStoreForTest(t, &fakeContentAPI{})
	if _, _, err := store.Get(context.Background(), "/nope.json"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
