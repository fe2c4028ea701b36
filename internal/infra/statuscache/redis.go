package statuscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"server/internal/domain"
)

const defaultTTL = 24 * time.Hour

// Redis stores terminal statuses in Redis so idempotent reads survive process
// restarts and are shared between API replicas.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedis connects to the given Redis URL. TTL <= 0 falls back to 24h.
func NewRedis(url string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("statuscache: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("statuscache: connect redis: %w", err)
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Redis{client: client, ttl: ttl}, nil
}

// NewRedisWithClient wraps an existing client; used by tests.
func NewRedisWithClient(client redis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, kind domain.GenerationKind, jobID string) (*domain.JobStatus, error) {
	raw, err := r.client.Get(ctx, redisKey(kind, jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("statuscache: get: %w", err)
	}
	var status domain.JobStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, fmt.Errorf("statuscache: decode: %w", err)
	}
	return &status, nil
}

func (r *Redis) Set(ctx context.Context, status domain.JobStatus) error {
	payload, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("statuscache: encode: %w", err)
	}
	if err := r.client.Set(ctx, redisKey(status.Kind, status.ID), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("statuscache: set: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}

func redisKey(kind domain.GenerationKind, jobID string) string {
	return "genstatus:" + string(kind) + ":" + jobID
}

var _ Cache = (*Redis)(nil)
