// Package statuscache remembers terminal job statuses so repeated polls of a
// finished job return the same result without another provider round-trip.
package statuscache

import (
	"context"
	"sync"

	"server/internal/domain"
)

// Cache stores terminal job statuses keyed by generation kind and job id.
type Cache interface {
	Get(ctx context.Context, kind domain.GenerationKind, jobID string) (*domain.JobStatus, error)
	Set(ctx context.Context, status domain.JobStatus) error
}

// Memory is the in-process default used when no Redis URL is configured.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]domain.JobStatus
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]domain.JobStatus)}
}

func (m *Memory) Get(_ context.Context, kind domain.GenerationKind, jobID string) (*domain.JobStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status, ok := m.entries[entryKey(kind, jobID)]
	if !ok {
		return nil, nil
	}
	return &status, nil
}

func (m *Memory) Set(_ context.Context, status domain.JobStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entryKey(status.Kind, status.ID)] = status
	return nil
}

func entryKey(kind domain.GenerationKind, jobID string) string {
	return string(kind) + ":" + jobID
}

var _ Cache = (*Memory)(nil)
