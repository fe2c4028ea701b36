package generation

import (
	"context"
	"fmt"
	"strings"

	"server/internal/domain"
)

// DefaultMaxPromptLength bounds prompt size when no limit is configured.
const DefaultMaxPromptLength = 600

// Request is a normalized generation request as accepted from callers.
type Request struct {
	Kind       domain.GenerationKind
	Prompt     string
	StyleID    string
	WebhookURL string
}

// Submitter validates requests and routes them to the provider registered for
// the requested kind. Provider adapters return errors already normalized to
// the domain taxonomy, so the submitter passes them through untouched.
type Submitter struct {
	providers       Registry
	maxPromptLength int
}

func NewSubmitter(providers Registry, maxPromptLength int) *Submitter {
	if maxPromptLength <= 0 {
		maxPromptLength = DefaultMaxPromptLength
	}
	return &Submitter{providers: providers, maxPromptLength: maxPromptLength}
}

// Submit forwards the request to the matching provider and returns a queued
// job handle. Invalid requests never reach a provider.
func (s *Submitter) Submit(ctx context.Context, req Request) (domain.JobHandle, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return domain.JobHandle{}, fmt.Errorf("empty prompt: %w", domain.ErrInvalidRequest)
	}
	if len(prompt) > s.maxPromptLength {
		return domain.JobHandle{}, fmt.Errorf("prompt exceeds %d characters: %w", s.maxPromptLength, domain.ErrInvalidRequest)
	}
	provider, ok := s.providers[req.Kind]
	if !ok {
		return domain.JobHandle{}, fmt.Errorf("unsupported generation kind %q: %w", req.Kind, domain.ErrInvalidRequest)
	}
	handle, err := provider.Submit(ctx, SubmitRequest{
		Prompt:     prompt,
		StyleID:    strings.TrimSpace(req.StyleID),
		WebhookURL: strings.TrimSpace(req.WebhookURL),
	})
	if err != nil {
		return domain.JobHandle{}, err
	}
	handle.Kind = req.Kind
	return handle, nil
}
