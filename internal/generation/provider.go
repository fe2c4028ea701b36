package generation

import (
	"context"

	"server/internal/domain"
)

// SubmitRequest carries the provider-agnostic inputs for one generation task.
type SubmitRequest struct {
	Prompt     string
	StyleID    string
	WebhookURL string
}

// Provider is the capability every generation backend adapter implements.
// Adapters own the translation between their wire vocabulary and the
// normalized domain types; new providers plug in without touching the
// submitter or tracker.
type Provider interface {
	Submit(ctx context.Context, req SubmitRequest) (domain.JobHandle, error)
	Poll(ctx context.Context, jobID string) (domain.JobStatus, error)
}

// Registry maps generation kinds to their provider adapters.
type Registry map[domain.GenerationKind]Provider
