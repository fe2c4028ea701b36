package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"server/internal/access"
	"server/internal/apikey"
	"server/internal/domain"
	"server/internal/generation"
	"server/internal/infra"
	"server/internal/infra/metrics"
	"server/internal/middleware"
	"server/internal/providers/skybox"
)

// StyleSource lists the skybox provider's style roster.
type StyleSource interface {
	Styles(ctx context.Context) ([]skybox.Style, error)
}

// App carries the wired dependencies for all HTTP handlers.
type App struct {
	Config     *infra.Config
	Logger     infra.Logger
	Validator  *apikey.Validator
	Ledger     domain.CreditLedger
	Submitter  *generation.Submitter
	Tracker    *generation.Tracker
	Aggregator *generation.Aggregator
	StyleList  StyleSource
	Metrics    metrics.Metrics
}

type envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"requestId,omitempty"`
	Timestamp string `json:"timestamp"`
}

func (a *App) json(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Success:   true,
		Data:      data,
		RequestID: middleware.RequestIDFromContext(r.Context()),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *App) error(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Success:   false,
		Error:     message,
		Code:      code,
		Message:   message,
		RequestID: middleware.RequestIDFromContext(r.Context()),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// failure maps the domain error taxonomy onto the HTTP contract. Validation
// and policy failures surface immediately and are never retried here;
// transient provider failures are reported as retryable.
func (a *App) failure(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrMissingCredential):
		a.error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing API credential")
	case errors.Is(err, domain.ErrInvalidCredential):
		a.error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or revoked API credential")
	case errors.Is(err, domain.ErrInsufficientScope):
		a.error(w, r, http.StatusForbidden, "FORBIDDEN", "credential scope does not permit this operation")
	case errors.Is(err, domain.ErrInsufficientTier):
		a.error(w, r, http.StatusForbidden, "FORBIDDEN", "subscription tier does not permit this operation")
	case errors.Is(err, domain.ErrCreditsExhausted):
		a.error(w, r, http.StatusTooManyRequests, "QUOTA_EXCEEDED", "no generation credits remaining")
	case errors.Is(err, domain.ErrInvalidRequest):
		a.error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error())
	case errors.Is(err, domain.ErrQuotaExceeded):
		a.error(w, r, http.StatusTooManyRequests, "QUOTA_EXCEEDED", "generation provider quota exhausted")
	case errors.Is(err, domain.ErrProviderAuth):
		a.error(w, r, http.StatusInternalServerError, "PROVIDER_AUTH", "generation provider rejected service credentials")
	case errors.Is(err, domain.ErrTransport):
		a.error(w, r, http.StatusInternalServerError, "PROVIDER_UNREACHABLE", "provider unreachable, retry the request")
	case errors.Is(err, domain.ErrProvider):
		a.error(w, r, http.StatusInternalServerError, "PROVIDER_ERROR", "generation provider failure")
	default:
		a.Logger.Error().Err(err).Msg("unhandled failure")
		a.error(w, r, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

// AuthedHandler is an endpoint handler that runs behind the policy gate.
type AuthedHandler func(w http.ResponseWriter, r *http.Request, p domain.Principal)

// Secured validates the caller's credential and evaluates the endpoint
// policy before invoking the handler. Check order is fixed: presence,
// validity, scope, tier, credits.
func (a *App) Secured(policy access.Policy, next AuthedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		credential, err := apikey.CredentialFromRequest(r)
		if err != nil {
			a.failure(w, r, err)
			return
		}
		principal, err := a.Validator.Validate(r.Context(), credential)
		if err != nil {
			a.failure(w, r, err)
			return
		}
		if err := access.Authorize(principal, policy); err != nil {
			a.failure(w, r, err)
			return
		}
		next(w, r, principal)
	}
}
