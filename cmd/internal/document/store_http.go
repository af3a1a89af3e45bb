package document

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultHTTPTimeout = 10 * time.Second

// TokenProvider supplies the bearer credential for the remote store.
// credential.Manager satisfies this; StaticToken covers dev setups.
type TokenProvider interface {
	AccessToken(ctx context.Context, now time.Time) (string, error)
}

// StaticToken is a fixed bearer token, typically from an env var.
type StaticToken string

// AccessToken returns the fixed token.
func (t StaticToken) AccessToken(_ context.Context, _ time.Time) (string, error) {
	if t == "" {
		return "", ErrInvalidInput
	}
	return string(t), nil
}

// HTTPStore talks to a Dropbox-style content API: whole-document
// download/upload with an opaque per-file revision, where uploads may be
// conditioned on the revision observed at download time.
type HTTPStore struct {
	base   string
	tokens TokenProvider
	client *http.Client
}

// HTTPStoreOption configures HTTPStore.
type HTTPStoreOption func(*HTTPStore) error

// WithHTTPClient overrides the default client (and its timeout).
func WithHTTPClient(c *http.Client) HTTPStoreOption {
	return func(s *HTTPStore) error {
		if c == nil {
			return ErrInvalidInput
		}
		s.client = c
		return nil
	}
}

// NewHTTPStore constructs an HTTPStore against the given content API base
// URL (e.g. "https://content.dropboxapi.com").
func NewHTTPStore(base string, tokens TokenProvider, opts ...HTTPStoreOption) (*HTTPStore, error) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" || tokens == nil {
		return nil, ErrInvalidInput
	}
	s := &HTTPStore{
		base:   base,
		tokens: tokens,
		client: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

type apiResult struct {
	Rev string `json:"rev"`
}

type apiError struct {
	ErrorSummary string `json:"error_summary"`
}

// Get downloads the document. The revision token rides in the
// Dropbox-API-Result response header.
func (s *HTTPStore) Get(ctx context.Context, path string) ([]byte, string, error) {
	if path == "" {
		return nil, "", ErrInvalidInput
	}

	arg, err := json.Marshal(struct {
		Path string `json:"path"`
	}{Path: path})
	if err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.base+"/2/files/download", nil)
	if err != nil {
		return nil, "", err
	}
	if err := s.authorize(ctx, req); err != nil {
		return nil, "", err
	}
	req.Header.Set("Dropbox-API-Arg", string(arg))

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", classifyAPIError(resp)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}

	var res apiResult
	if err := json.Unmarshal([]byte(resp.Header.Get("Dropbox-API-Result")), &res); err != nil || res.Rev == "" {
		return nil, "", fmt.Errorf("document: missing revision in download result")
	}
	return content, res.Rev, nil
}

// Put uploads the full document under the requested write mode and
// returns the new revision token.
func (s *HTTPStore) Put(ctx context.Context, path string, content []byte, mode WriteMode) (string, error) {
	if path == "" {
		return "", ErrInvalidInput
	}

	arg, err := json.Marshal(struct {
		Path       string `json:"path"`
		Mode       any    `json:"mode"`
		Autorename bool   `json:"autorename"`
		Mute       bool   `json:"mute"`
	}{Path: path, Mode: wireMode(mode), Autorename: false, Mute: true})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.base+"/2/files/upload", bytes.NewReader(content))
	if err != nil {
		return "", err
	}
	if err := s.authorize(ctx, req); err != nil {
		return "", err
	}
	req.Header.Set("Dropbox-API-Arg", string(arg))
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", classifyAPIError(resp)
	}

	var res apiResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil || res.Rev == "" {
		return "", fmt.Errorf("document: missing revision in upload result")
	}
	return res.Rev, nil
}

func (s *HTTPStore) authorize(ctx context.Context, req *http.Request) error {
	token, err := s.tokens.AccessToken(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("document: acquire token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// wireMode translates WriteMode to the content API's tagged union.
func wireMode(mode WriteMode) any {
	switch mode.kind {
	case modeCreate:
		return "add"
	case modeOverwrite:
		return "overwrite"
	case modeUpdateIfRev:
		return map[string]string{".tag": "update", "update": mode.rev}
	default:
		return "add"
	}
}

// classifyAPIError maps the store's 409 taxonomy onto package sentinels.
// Anything unrecognized stays a plain transport error so callers never
// mistake it for a losable race.
func classifyAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode == http.StatusConflict {
		var ae apiError
		_ = json.Unmarshal(body, &ae)
		switch {
		case strings.Contains(ae.ErrorSummary, "not_found"):
			return ErrNotFound
		case strings.Contains(ae.ErrorSummary, "conflict"):
			return ErrConflict
		}
	}
	return fmt.Errorf("document: store returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
