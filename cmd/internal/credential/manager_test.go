package credential

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

type tokenEndpoint struct {
	calls        atomic.Int64
	status       int
	accessToken  string
	refreshToken string
	expiresIn    int64
}

func (e *tokenEndpoint) serve(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e.calls.Add(1)

		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %q", ct)
		}
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode refresh request: %v", err)
		}
		if req.GrantType != "refresh_token" || req.RefreshToken == "" {
			t.Errorf("malformed refresh grant: %+v", req)
		}

		if e.status != 0 && e.status != http.StatusOK {
			w.WriteHeader(e.status)
			return
		}
		_ = json.NewEncoder(w).Encode(refreshResponse{
			AccessToken:  e.accessToken,
			RefreshToken: e.refreshToken,
			ExpiresIn:    e.expiresIn,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newManagerForTest(t *testing.T, srv *httptest.Server, store Store) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		TokenURL:     srv.URL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	}, store, "eventix", WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestEnsureValid_CachedTokenNoNetworkCall(t *testing.T) {
	endpoint := &tokenEndpoint{accessToken: "new", refreshToken: "new-r", expiresIn: 3600}
	srv := endpoint.serve(t)

	now := time.Now().UTC()
	store := NewMemoryStore()
	store.Seed(Record{ID: "eventix", AccessToken: "cached", RefreshToken: "r", ExpiresAt: now.Add(time.Hour)})

	m := newManagerForTest(t, srv, store)

	for i := 0; i < 3; i++ {
		rec, err := m.EnsureValid(context.Background(), now)
		if err != nil {
			t.Fatalf("EnsureValid: %v", err)
		}
		if rec.AccessToken != "cached" {
			t.Fatalf("expected cached token, got %q", rec.AccessToken)
		}
	}
	if n := endpoint.calls.Load(); n != 0 {
		t.Fatalf("unexpired token must not trigger refresh calls, got %d", n)
	}
}

func TestEnsureValid_ExpiredTriggersSingleRefresh(t *testing.T) {
	endpoint := &tokenEndpoint{accessToken: "fresh", refreshToken: "fresh-r", expiresIn: 3600}
	srv := endpoint.serve(t)

	now := time.Now().UTC()
	staleExpiry := now.Add(-time.Minute)
	store := NewMemoryStore()
	store.Seed(Record{ID: "eventix", AccessToken: "stale", RefreshToken: "old-r", ExpiresAt: staleExpiry})

	m := newManagerForTest(t, srv, store)

	rec, err := m.EnsureValid(context.Background(), now)
	if err != nil {
		t.Fatalf("EnsureValid: %v", err)
	}
	if rec.AccessToken != "fresh" || rec.RefreshToken != "fresh-r" {
		t.Fatalf("expected refreshed record, got %+v", rec)
	}
	if !rec.ExpiresAt.After(staleExpiry) {
		t.Fatalf("new expiry must be strictly later than the old one")
	}
	if n := endpoint.calls.Load(); n != 1 {
		t.Fatalf("expected exactly one refresh call, got %d", n)
	}

	// The refreshed record is persisted, so the next call is cache-only.
	if _, err := m.EnsureValid(context.Background(), now.Add(time.Second)); err != nil {
		t.Fatalf("EnsureValid after refresh: %v", err)
	}
	if n := endpoint.calls.Load(); n != 1 {
		t.Fatalf("refreshed token must be served from the store, got %d calls", n)
	}
}

func TestEnsureValid_KeepsRefreshTokenWhenOmitted(t *testing.T) {
	endpoint := &tokenEndpoint{accessToken: "fresh", refreshToken: "", expiresIn: 3600}
	srv := endpoint.serve(t)

	now := time.Now().UTC()
	store := NewMemoryStore()
	store.Seed(Record{ID: "eventix", AccessToken: "stale", RefreshToken: "keep-me", ExpiresAt: now.Add(-time.Hour)})

	m := newManagerForTest(t, srv, store)
	rec, err := m.EnsureValid(context.Background(), now)
	if err != nil {
		t.Fatalf("EnsureValid: %v", err)
	}
	if rec.RefreshToken != "keep-me" {
		t.Fatalf("refresh token must survive an exchange that omits it, got %q", rec.RefreshToken)
	}
}

func TestEnsureValid_FormEncodedExchange(t *testing.T) {
	// OAuth endpoints like Dropbox's /oauth2/token reject JSON bodies;
	// the form encoding must produce a urlencoded grant.
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("unexpected content type: %q", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.PostFormValue("grant_type"); got != "refresh_token" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.PostFormValue("refresh_token"); got != "old-r" {
			t.Errorf("refresh_token = %q", got)
		}
		if r.PostFormValue("client_id") != "client-id" || r.PostFormValue("client_secret") != "client-secret" {
			t.Errorf("client credentials missing from form: %v", r.PostForm)
		}

		_ = json.NewEncoder(w).Encode(refreshResponse{AccessToken: "fresh", ExpiresIn: 3600})
	}))
	t.Cleanup(srv.Close)

	now := time.Now().UTC()
	store := NewMemoryStore()
	store.Seed(Record{ID: "docstore", AccessToken: "stale", RefreshToken: "old-r", ExpiresAt: now.Add(-time.Hour)})

	m, err := NewManager(Config{
		TokenURL:     srv.URL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Encoding:     EncodingForm,
	}, store, "docstore", WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	rec, err := m.EnsureValid(context.Background(), now)
	if err != nil {
		t.Fatalf("EnsureValid: %v", err)
	}
	if rec.AccessToken != "fresh" {
		t.Fatalf("expected refreshed record, got %+v", rec)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("expected exactly one exchange, got %d", n)
	}
}

func TestEnsureValid_MissingRecordIsNotConfigured(t *testing.T) {
	endpoint := &tokenEndpoint{accessToken: "x", expiresIn: 3600}
	srv := endpoint.serve(t)

	m := newManagerForTest(t, srv, NewMemoryStore())
	if _, err := m.EnsureValid(context.Background(), time.Now().UTC()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if n := endpoint.calls.Load(); n != 0 {
		t.Fatalf("missing record must not hit the vendor, got %d calls", n)
	}
}

func TestEnsureValid_RefreshFailureNeverReturnsStaleToken(t *testing.T) {
	endpoint := &tokenEndpoint{status: http.StatusInternalServerError}
	srv := endpoint.serve(t)

	now := time.Now().UTC()
	store := NewMemoryStore()
	store.Seed(Record{ID: "eventix", AccessToken: "stale", RefreshToken: "r", ExpiresAt: now.Add(-time.Hour)})

	m := newManagerForTest(t, srv, store)
	rec, err := m.EnsureValid(context.Background(), now)
	if !errors.Is(err, ErrRefreshFailed) {
		t.Fatalf("expected ErrRefreshFailed, got %v", err)
	}
	if rec.AccessToken != "" {
		t.Fatalf("stale token leaked on refresh failure: %+v", rec)
	}

	// The stored record is untouched.
	stored, err := store.Get(context.Background(), "eventix")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.AccessToken != "stale" {
		t.Fatalf("failed refresh must not mutate the store")
	}
}

func TestEnsureValid_ExpiryNeverMovesBackwards(t *testing.T) {
	endpoint := &tokenEndpoint{accessToken: "fresh", refreshToken: "r2", expiresIn: 1}
	srv := endpoint.serve(t)

	now := time.Now().UTC()
	storedExpiry := now.Add(-time.Hour)
	store := NewMemoryStore()
	store.Seed(Record{ID: "eventix", AccessToken: "stale", RefreshToken: "r", ExpiresAt: storedExpiry})

	m := newManagerForTest(t, srv, store)

	rec, err := m.EnsureValid(context.Background(), now)
	if err != nil {
		t.Fatalf("EnsureValid: %v", err)
	}
	if rec.ExpiresAt.Before(storedExpiry) {
		t.Fatalf("expiry moved backwards: %v < %v", rec.ExpiresAt, storedExpiry)
	}
	if !rec.ExpiresAt.After(now) {
		t.Fatalf("refreshed expiry must be in the future")
	}
}
