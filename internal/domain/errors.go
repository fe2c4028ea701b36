package domain

import "errors"

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrInsufficientScope = errors.New("insufficient scope")
	ErrInsufficientTier  = errors.New("insufficient tier")
	ErrCreditsExhausted  = errors.New("credits exhausted")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrQuotaExceeded     = errors.New("provider quota exceeded")
	ErrProviderAuth      = errors.New("provider auth error")
	ErrProvider          = errors.New("provider error")
	ErrTransport         = errors.New("transport error")
)
