package credential

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultHTTPTimeout = 10 * time.Second

// Encoding selects the request body format for the refresh exchange.
// Token endpoints disagree here: the ticketing vendor takes a JSON
// grant, while RFC 6749-style endpoints (Dropbox's /oauth2/token among
// them) accept only form-encoded bodies.
type Encoding int

const (
	EncodingJSON Encoding = iota
	EncodingForm
)

// Config carries the refresh-exchange parameters for one vendor.
type Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Encoding     Encoding
}

// Manager decides whether the cached access token for one credential
// identity is usable and refreshes it when it is not.
//
// Two concurrent callers observing an expired token may both refresh;
// the store's last write wins. That race is accepted: refresh exchanges
// are idempotent from the vendor's perspective (each yields a usable
// token), so a double refresh costs a wasted round trip, not
// correctness. No distributed lock is taken.
type Manager struct {
	cfg    Config
	store  Store
	id     string
	client *http.Client
	log    *slog.Logger
}

// ManagerOption configures the Manager.
type ManagerOption func(*Manager) error

// WithHTTPClient overrides the default refresh HTTP client.
func WithHTTPClient(c *http.Client) ManagerOption {
	return func(m *Manager) error {
		if c == nil {
			return ErrInvalidInput
		}
		m.client = c
		return nil
	}
}

// WithLogger overrides the default logger.
func WithLogger(log *slog.Logger) ManagerOption {
	return func(m *Manager) error {
		if log == nil {
			return ErrInvalidInput
		}
		m.log = log
		return nil
	}
}

// NewManager constructs a Manager for the credential identity id.
func NewManager(cfg Config, store Store, id string, opts ...ManagerOption) (*Manager, error) {
	if store == nil || strings.TrimSpace(id) == "" {
		return nil, ErrInvalidInput
	}
	if strings.TrimSpace(cfg.TokenURL) == "" {
		return nil, ErrInvalidInput
	}
	m := &Manager{
		cfg:    cfg,
		store:  store,
		id:     id,
		client: &http.Client{Timeout: defaultHTTPTimeout},
		log:    slog.Default(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

type refreshRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RefreshToken string `json:"refresh_token"`
	GrantType    string `json:"grant_type"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// EnsureValid returns a usable token record for the identity.
//
// An unexpired cached token is returned without any network call. An
// expired one triggers exactly one refresh exchange; the new record is
// persisted atomically before being returned. A missing record is
// ErrNotConfigured; any refresh failure is ErrRefreshFailed, and the
// stale token is never handed out.
func (m *Manager) EnsureValid(ctx context.Context, now time.Time) (Record, error) {
	if m == nil || m.store == nil {
		return Record{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	rec, err := m.store.Get(ctx, m.id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Record{}, ErrNotConfigured
		}
		return Record{}, err
	}

	if rec.Valid(now) {
		return rec, nil
	}

	fresh, err := m.refresh(ctx, rec.RefreshToken)
	if err != nil {
		m.log.Error("credential.refresh.fail", "identity", m.id, "err", err)
		return Record{}, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	newRefresh := fresh.RefreshToken
	if newRefresh == "" {
		// Some vendors keep the refresh token stable across exchanges.
		newRefresh = rec.RefreshToken
	}
	expiresAt := now.Add(time.Duration(fresh.ExpiresIn) * time.Second)
	if expiresAt.Before(rec.ExpiresAt) {
		// Expiry never moves backwards for an identity.
		expiresAt = rec.ExpiresAt
	}

	updated, err := m.store.Update(ctx, m.id, fresh.AccessToken, newRefresh, expiresAt)
	if err != nil {
		return Record{}, fmt.Errorf("%w: persist: %v", ErrRefreshFailed, err)
	}

	m.log.Info("credential.refresh.ok", "identity", m.id, "expires_at", updated.ExpiresAt)
	return updated, nil
}

// AccessToken returns a valid bearer token. It satisfies the document
// store's TokenProvider interface.
func (m *Manager) AccessToken(ctx context.Context, now time.Time) (string, error) {
	rec, err := m.EnsureValid(ctx, now)
	if err != nil {
		return "", err
	}
	return rec.AccessToken, nil
}

func (m *Manager) refresh(ctx context.Context, refreshToken string) (refreshResponse, error) {
	if refreshToken == "" {
		return refreshResponse{}, fmt.Errorf("no refresh token on record")
	}

	var (
		body        []byte
		contentType string
	)
	switch m.cfg.Encoding {
	case EncodingForm:
		form := url.Values{}
		form.Set("grant_type", "refresh_token")
		form.Set("refresh_token", refreshToken)
		form.Set("client_id", m.cfg.ClientID)
		form.Set("client_secret", m.cfg.ClientSecret)
		body = []byte(form.Encode())
		contentType = "application/x-www-form-urlencoded"
	default:
		b, err := json.Marshal(refreshRequest{
			ClientID:     m.cfg.ClientID,
			ClientSecret: m.cfg.ClientSecret,
			RefreshToken: refreshToken,
			GrantType:    "refresh_token",
		})
		if err != nil {
			return refreshResponse{}, err
		}
		body = b
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.TokenURL, bytes.NewReader(body))
	if err != nil {
		return refreshResponse{}, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := m.client.Do(req)
	if err != nil {
		return refreshResponse{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return refreshResponse{}, fmt.Errorf("token endpoint returned %d", resp.StatusCode)
	}

	var out refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return refreshResponse{}, err
	}
	if out.AccessToken == "" || out.ExpiresIn <= 0 {
		return refreshResponse{}, fmt.Errorf("token endpoint returned incomplete grant")
	}
	return out, nil
}
