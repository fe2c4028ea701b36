package domain

import (
	"context"
	"time"
)

// APIKey is the stored shape of a credential in the key store. The raw key is
// held only by the caller; the store keeps it alongside its policy attributes.
type APIKey struct {
	ID        string
	Key       string
	Label     string
	Scope     Scope
	Tier      Tier
	Credits   int
	Disabled  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// KeyRepository resolves raw API keys against the external credential store.
type KeyRepository interface {
	LookupKey(ctx context.Context, key string) (*APIKey, error)
}

// CreditLedger mutates credit balances. Decrements happen only after a
// successful generation submission and must be atomic in the implementation;
// validation and policy checks only ever read the balance.
type CreditLedger interface {
	Debit(ctx context.Context, keyID string, amount int) (remaining int, err error)
}
