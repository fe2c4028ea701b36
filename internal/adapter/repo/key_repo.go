package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
	"server/internal/infra"
)

// KeyRepositoryPG implements domain.KeyRepository and domain.CreditLedger
// backed by PostgreSQL.
type KeyRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewKeyRepository creates a new KeyRepositoryPG.
func NewKeyRepository(pool *pgxpool.Pool) *KeyRepositoryPG {
	return &KeyRepositoryPG{pool: pool}
}

// LookupKey resolves a raw API key to its stored record. A missing key
// returns (nil, nil) so the validator can map it to an invalid-credential
// failure without inspecting storage errors.
func (r *KeyRepositoryPG) LookupKey(ctx context.Context, key string) (*domain.APIKey, error) {
	query := `
SELECT id, key, label, scope, tier, credits, disabled, created_at, updated_at
FROM api_keys
WHERE key = $1;
`
	row := r.pool.QueryRow(ctx, query, key)
	var record domain.APIKey
	var scope, tier string
	err := row.Scan(
		&record.ID,
		&record.Key,
		&record.Label,
		&scope,
		&tier,
		&record.Credits,
		&record.Disabled,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if infra.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup api key: %w", err)
	}
	record.Scope = domain.Scope(scope)
	record.Tier = domain.Tier(tier)
	return &record, nil
}

// Debit atomically decrements the credit balance and returns the remainder.
// The guard in the WHERE clause makes concurrent debits safe without a
// separate transaction.
func (r *KeyRepositoryPG) Debit(ctx context.Context, keyID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("debit amount must be positive, got %d", amount)
	}
	query := `
UPDATE api_keys
SET credits = credits - $2,
    updated_at = NOW()
WHERE id = $1 AND credits >= $2
RETURNING credits;
`
	var remaining int
	err := r.pool.QueryRow(ctx, query, keyID, amount).Scan(&remaining)
	if infra.IsNoRows(err) {
		return 0, domain.ErrCreditsExhausted
	}
	if err != nil {
		return 0, fmt.Errorf("debit credits: %w", err)
	}
	return remaining, nil
}

var (
	_ domain.KeyRepository = (*KeyRepositoryPG)(nil)
	_ domain.CreditLedger  = (*KeyRepositoryPG)(nil)
)
