// Package coupon is the HTTP dispatch surface: it validates requests,
// consults the eligibility gate, routes to the vendor-managed or
// document-managed issuance path, and maps typed outcomes to responses.
package coupon

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"coupond/cmd/internal/allocation"
	"coupond/cmd/internal/credential"
	"coupond/cmd/internal/eligibility"
)

// Allocator claims one code from the document-managed inventory.
type Allocator interface {
	Claim(ctx context.Context, eventKey, tier string) (string, error)
}

// TokenSource yields a valid vendor credential.
type TokenSource interface {
	EnsureValid(ctx context.Context, now time.Time) (credential.Record, error)
}

// CodeRegistrar registers a generated code with the ticketing vendor.
type CodeRegistrar interface {
	RegisterCode(ctx context.Context, couponID, code, accessToken string) error
}

// Config carries handler-level settings.
type Config struct {
	MaxBodyBytes  int64
	AllowedOrigin string
}

// Handler wires the coupon-generation endpoint to its collaborators.
type Handler struct {
	log       *slog.Logger
	cfg       Config
	gate      *eligibility.Gate
	allocator Allocator
	tokens    TokenSource
	vendor    CodeRegistrar
}

// NewHandler constructs a Handler. All collaborators are required.
func NewHandler(log *slog.Logger, cfg Config, gate *eligibility.Gate, allocator Allocator, tokens TokenSource, vendor CodeRegistrar) (*Handler, error) {
	if gate == nil || allocator == nil || tokens == nil || vendor == nil {
		return nil, errors.New("coupon: nil collaborator")
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 64 << 10
	}
	return &Handler{
		log:       log,
		cfg:       cfg,
		gate:      gate,
		allocator: allocator,
		tokens:    tokens,
		vendor:    vendor,
	}, nil
}

// Register wires coupon routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/coupon/generate", h.handleGenerate)
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	setCORS(w, r.Header.Get("Origin"), h.cfg.AllowedOrigin)

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req generateRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p := req.Payload
	email := strings.TrimSpace(p.EmailAddress)
	if email == "" || strings.TrimSpace(p.SubscriptionName) == "" || strings.TrimSpace(p.ItemID) == "" {
		writeError(w, http.StatusBadRequest, "emailAddress, subscriptionName and itemId are required")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()
	eventKey := strings.ToLower(strings.TrimSpace(p.ItemID))
	mode := ParseEventMode(p.IsEventixEvent).Effective()

	sub, err := h.gate.Subscription(ctx, p.SubscriptionName)
	if err != nil {
		if errors.Is(err, eligibility.ErrSubscriptionNotFound) {
			requestOutcomes.WithLabelValues(mode.String(), "no_subscription").Inc()
			writeError(w, http.StatusNotFound, msgNoSubscription)
			return
		}
		h.internal(w, mode, "coupon.subscription.fail", err)
		return
	}

	eligible, err := h.gate.CheckEligible(ctx, eligibility.CheckInput{
		Email:     email,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Now:       now,
	}, eventKey)
	if err != nil {
		h.internal(w, mode, "coupon.eligibility.fail", err)
		return
	}
	if !eligible {
		// Already issued for this event: a friendly 200, and neither
		// issuance path is touched.
		requestOutcomes.WithLabelValues(mode.String(), "already_issued").Inc()
		writeJSON(w, http.StatusOK, generateResponse{CouponCode: "", Message: msgAlreadyIssued})
		return
	}

	var code string
	switch mode {
	case EventModeDocumentManaged:
		code, err = h.allocator.Claim(ctx, eventKey, sub.Name)
		if err != nil {
			switch {
			case errors.Is(err, allocation.ErrNoCodeAvailable):
				requestOutcomes.WithLabelValues(mode.String(), "no_code").Inc()
				writeError(w, http.StatusNotFound, msgNoCodesLeft)
			case errors.Is(err, allocation.ErrContended):
				requestOutcomes.WithLabelValues(mode.String(), "contended").Inc()
				writeError(w, http.StatusConflict, msgTryAgain)
			default:
				// Corrupt inventory and store outages are operator
				// problems; the caller only sees an opaque failure.
				h.internal(w, mode, "coupon.claim.fail", err)
			}
			return
		}
	case EventModeVendorManaged:
		rec, err := h.tokens.EnsureValid(ctx, now)
		if err != nil {
			h.internal(w, mode, "coupon.token.fail", err)
			return
		}
		code, err = GenerateCode(sub.Name)
		if err != nil {
			h.internal(w, mode, "coupon.code_gen.fail", err)
			return
		}
		if err := h.vendor.RegisterCode(ctx, sub.ID, code, rec.AccessToken); err != nil {
			h.internal(w, mode, "coupon.vendor.fail", err)
			return
		}
	}

	// The code is committed from here on. Recording issuance is a second,
	// non-transactional write: if it fails, the user keeps the code and
	// may be able to ask again. That window is accepted; the reverse
	// order could record an issuance that never delivered a code.
	if err := h.gate.RecordIssued(ctx, email, eventKey); err != nil && !errors.Is(err, eligibility.ErrAlreadyRecorded) {
		h.log.Error("coupon.record_issued.fail", "email", email, "event", eventKey, "err", err)
	}

	requestOutcomes.WithLabelValues(mode.String(), "issued").Inc()
	h.log.Info("coupon.issued", "event", eventKey, "mode", mode.String(), "tier", sub.Name)
	writeJSON(w, http.StatusOK, generateResponse{CouponCode: code, Message: msgCodeIssued})
}

func (h *Handler) internal(w http.ResponseWriter, mode EventMode, event string, err error) {
	requestOutcomes.WithLabelValues(mode.String(), "internal_error").Inc()
	h.log.Error(event, "err", err)
	writeError(w, http.StatusInternalServerError, msgInternal)
}
