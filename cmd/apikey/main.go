package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"server/internal/apikey"
	"server/internal/domain"
)

func main() {
	var (
		actionFlag  string
		labelFlag   string
		scopeFlag   string
		tierFlag    string
		creditsFlag int
		keyFlag     string
	)

	flag.StringVar(&actionFlag, "action", "mint", "action to perform (mint, revoke, inspect)")
	flag.StringVar(&labelFlag, "label", "", "human-readable label for a minted key")
	flag.StringVar(&scopeFlag, "scope", "read", "scope for a minted key (read, full)")
	flag.StringVar(&tierFlag, "tier", "free", "tier for a minted key (free, pro, team, enterprise)")
	flag.IntVar(&creditsFlag, "credits", 25, "initial credit balance for a minted key")
	flag.StringVar(&keyFlag, "key", "", "raw key for revoke/inspect")
	flag.Parse()

	_ = godotenv.Load()

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	switch strings.ToLower(strings.TrimSpace(actionFlag)) {
	case "mint":
		mint(ctx, pool, labelFlag, scopeFlag, tierFlag, creditsFlag)
	case "revoke":
		revoke(ctx, pool, keyFlag)
	case "inspect":
		inspect(ctx, pool, keyFlag)
	default:
		exitWithError(fmt.Errorf("unsupported action %q", actionFlag))
	}
}

func mint(ctx context.Context, pool *pgxpool.Pool, label, scope, tier string, credits int) {
	scope = strings.ToLower(strings.TrimSpace(scope))
	switch domain.Scope(scope) {
	case domain.ScopeRead, domain.ScopeFull:
	default:
		exitWithError(fmt.Errorf("unsupported scope %q", scope))
	}
	tier = strings.ToLower(strings.TrimSpace(tier))
	switch domain.Tier(tier) {
	case domain.TierFree, domain.TierPro, domain.TierTeam, domain.TierEnterprise:
	default:
		exitWithError(fmt.Errorf("unsupported tier %q", tier))
	}
	if credits < 0 {
		exitWithError(errors.New("-credits must not be negative"))
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		exitWithError(fmt.Errorf("failed to generate key material: %w", err))
	}
	key := apikey.KeyPrefix + hex.EncodeToString(raw)
	id := uuid.NewString()

	query := `
INSERT INTO api_keys (id, key, label, scope, tier, credits, disabled, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, false, NOW(), NOW());
`
	if _, err := pool.Exec(ctx, query, id, key, strings.TrimSpace(label), scope, tier, credits); err != nil {
		exitWithError(fmt.Errorf("failed to mint key: %w", err))
	}

	fmt.Printf("Minted key %s\n", id)
	fmt.Printf("key=%s\n", key)
	fmt.Printf("scope=%s tier=%s credits=%d\n", scope, tier, credits)
}

func revoke(ctx context.Context, pool *pgxpool.Pool, key string) {
	key = strings.TrimSpace(key)
	if key == "" {
		exitWithError(errors.New("-key is required for revoke"))
	}
	tag, err := pool.Exec(ctx, `UPDATE api_keys SET disabled = true, updated_at = NOW() WHERE key = $1;`, key)
	if err != nil {
		exitWithError(fmt.Errorf("failed to revoke key: %w", err))
	}
	if tag.RowsAffected() == 0 {
		exitWithError(errors.New("key not found"))
	}
	fmt.Println("Key revoked")
}

func inspect(ctx context.Context, pool *pgxpool.Pool, key string) {
	key = strings.TrimSpace(key)
	if key == "" {
		exitWithError(errors.New("-key is required for inspect"))
	}
	query := `
SELECT id, label, scope, tier, credits, disabled, created_at, updated_at
FROM api_keys
WHERE key = $1;
`
	var (
		id, label, scope, tier string
		credits                int
		disabled               bool
		createdAt, updatedAt   time.Time
	)
	if err := pool.QueryRow(ctx, query, key).Scan(&id, &label, &scope, &tier, &credits, &disabled, &createdAt, &updatedAt); err != nil {
		exitWithError(fmt.Errorf("failed to load key: %w", err))
	}
	fmt.Printf("id=%s label=%q\n", id, label)
	fmt.Printf("scope=%s tier=%s credits=%d disabled=%t\n", scope, tier, credits, disabled)
	fmt.Printf("created_at=%s updated_at=%s\n", createdAt.Format(time.RFC3339), updatedAt.Format(time.RFC3339))
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
