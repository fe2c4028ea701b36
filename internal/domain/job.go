package domain

import "time"

// GenerationKind enumerates the supported generation pipelines.
type GenerationKind string

const (
	KindSkybox GenerationKind = "skybox"
	KindMesh   GenerationKind = "mesh"
)

// JobState enumerates the normalized job lifecycle states. Every provider
// vocabulary collapses into these four.
type JobState string

const (
	StateQueued     JobState = "queued"
	StateProcessing JobState = "processing"
	StateCompleted  JobState = "completed"
	StateFailed     JobState = "failed"
)

// Terminal reports whether the state will never change on further polling.
func (s JobState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// JobHandle is an opaque reference to an in-flight generation task. The
// provider remains the source of truth; the handle only carries what the
// caller needs to poll.
type JobHandle struct {
	Kind      GenerationKind `json:"kind"`
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
}

// JobStatus is the normalized result of polling a job.
type JobStatus struct {
	Kind      GenerationKind `json:"kind"`
	ID        string         `json:"id"`
	State     JobState       `json:"state"`
	Progress  int            `json:"progress"`
	ResultURL string         `json:"result_url,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// ClampProgress normalizes a provider progress signal into [0,100].
func ClampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
