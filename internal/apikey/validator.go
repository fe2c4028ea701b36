package apikey

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"server/internal/domain"
)

// KeyPrefix is the fixed literal prefix every issued API key carries.
const KeyPrefix = "vrk_"

// HeaderAPIKey is the dedicated key header accepted alongside Authorization.
const HeaderAPIKey = "X-API-Key"

// CredentialFromRequest extracts the raw credential from either accepted auth
// header. An absent credential is a distinct failure from a malformed one.
func CredentialFromRequest(r *http.Request) (string, error) {
	if auth := strings.TrimSpace(r.Header.Get("Authorization")); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", domain.ErrInvalidCredential
		}
		return strings.TrimSpace(parts[1]), nil
	}
	if key := strings.TrimSpace(r.Header.Get(HeaderAPIKey)); key != "" {
		return key, nil
	}
	return "", domain.ErrMissingCredential
}

// Validator resolves raw credentials to principals through the injected key
// store. It performs no side effects beyond the lookup; credit balances are
// only ever read here.
type Validator struct {
	keys domain.KeyRepository
}

func NewValidator(keys domain.KeyRepository) *Validator {
	return &Validator{keys: keys}
}

// Validate resolves a credential to a Principal. Keys lacking the issued
// prefix never reach the store.
func (v *Validator) Validate(ctx context.Context, credential string) (domain.Principal, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return domain.Principal{}, domain.ErrMissingCredential
	}
	if !strings.HasPrefix(credential, KeyPrefix) {
		return domain.Principal{}, domain.ErrInvalidCredential
	}
	key, err := v.keys.LookupKey(ctx, credential)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("lookup key: %w", domain.ErrInvalidCredential)
	}
	if key == nil || key.Disabled {
		return domain.Principal{}, domain.ErrInvalidCredential
	}
	return domain.Principal{
		KeyID:            key.ID,
		Label:            key.Label,
		Scope:            key.Scope,
		Tier:             key.Tier,
		CreditsRemaining: key.Credits,
	}, nil
}
