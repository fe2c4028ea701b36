package generation

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/infra/statuscache"
)

// Tracker resolves the current status of a job handle. It holds no job table
// of its own; the provider is the source of truth and each poll re-resolves
// from the job id. Terminal statuses are pinned in the cache so repeated
// polls of a finished job are idempotent and skip the provider entirely.
type Tracker struct {
	providers Registry
	cache     statuscache.Cache
	logger    zerolog.Logger
}

func NewTracker(providers Registry, cache statuscache.Cache, logger zerolog.Logger) *Tracker {
	if cache == nil {
		cache = statuscache.NewMemory()
	}
	return &Tracker{providers: providers, cache: cache, logger: logger}
}

// Poll returns the normalized status for the handle. A transport or provider
// failure during the poll surfaces as an error, never as a failed JobStatus:
// callers must be able to tell "poll again" apart from "this job is dead".
func (t *Tracker) Poll(ctx context.Context, handle domain.JobHandle) (domain.JobStatus, error) {
	if handle.ID == "" {
		return domain.JobStatus{}, fmt.Errorf("empty job id: %w", domain.ErrInvalidRequest)
	}
	provider, ok := t.providers[handle.Kind]
	if !ok {
		return domain.JobStatus{}, fmt.Errorf("unsupported generation kind %q: %w", handle.Kind, domain.ErrInvalidRequest)
	}

	if cached, err := t.cache.Get(ctx, handle.Kind, handle.ID); err != nil {
		t.logger.Warn().Err(err).Str("job_id", handle.ID).Msg("status cache read failed")
	} else if cached != nil && cached.State.Terminal() {
		return *cached, nil
	}

	status, err := provider.Poll(ctx, handle.ID)
	if err != nil {
		return domain.JobStatus{}, err
	}
	status.Kind = handle.Kind
	status.ID = handle.ID
	status.Progress = domain.ClampProgress(status.Progress)
	if status.State == domain.StateCompleted {
		status.Progress = 100
	}

	if status.State.Terminal() {
		if err := t.cache.Set(ctx, status); err != nil {
			t.logger.Warn().Err(err).Str("job_id", handle.ID).Msg("status cache write failed")
		}
	}
	return status, nil
}
