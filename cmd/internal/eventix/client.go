// Package eventix wraps the two ticketing-vendor calls this service
// depends on. Everything else about the vendor API is out of scope.
package eventix

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultHTTPTimeout = 10 * time.Second

var ErrInvalidInput = errors.New("invalid input")

// Config identifies the vendor account.
type Config struct {
	BaseURL   string
	CompanyID string
}

// Client issues coupon codes against the vendor REST API.
type Client struct {
	cfg    Config
	client *http.Client
}

// ClientOption configures the Client.
type ClientOption func(*Client) error

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) error {
		if c == nil {
			return ErrInvalidInput
		}
		cl.client = c
		return nil
	}
}

// NewClient constructs a vendor client.
func NewClient(cfg Config, opts ...ClientOption) (*Client, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, ErrInvalidInput
	}
	c := &Client{cfg: cfg, client: &http.Client{Timeout: defaultHTTPTimeout}}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

type codeSpec struct {
	Code           string `json:"code"`
	AppliesToCount int    `json:"applies_to_count"`
}

type registerRequest struct {
	Codes          []codeSpec `json:"codes"`
	AppliesToCount int        `json:"applies_to_count"`
}

// RegisterCode registers a locally generated single-use code under the
// vendor coupon identified by couponID.
func (c *Client) RegisterCode(ctx context.Context, couponID, code, accessToken string) error {
	if c == nil || c.client == nil {
		return ErrInvalidInput
	}
	if couponID == "" || code == "" || accessToken == "" {
		return ErrInvalidInput
	}

	body, err := json.Marshal(registerRequest{
		Codes:          []codeSpec{{Code: code, AppliesToCount: 1}},
		AppliesToCount: 1,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/coupon/%s/codes", c.cfg.BaseURL, couponID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Company", c.cfg.CompanyID)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("eventix: register code returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
