package generation

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/infra/statuscache"
)

func newTestTracker(provider Provider) (*Tracker, statuscache.Cache) {
	cache := statuscache.NewMemory()
	tracker := NewTracker(Registry{domain.KindSkybox: provider}, cache, zerolog.Nop())
	return tracker, cache
}

func TestPollNormalizes(t *testing.T) {
	tests := []struct {
		name         string
		status       domain.JobStatus
		wantState    domain.JobState
		wantProgress int
	}{
		{
			name:         "processing clamped from below",
			status:       domain.JobStatus{State: domain.StateProcessing, Progress: -4},
			wantState:    domain.StateProcessing,
			wantProgress: 0,
		},
		{
			name:         "processing clamped from above",
			status:       domain.JobStatus{State: domain.StateProcessing, Progress: 140},
			wantState:    domain.StateProcessing,
			wantProgress: 100,
		},
		{
			name:         "completed forced to 100",
			status:       domain.JobStatus{State: domain.StateCompleted, Progress: 87, ResultURL: "https://cdn.example/sb-1.png"},
			wantState:    domain.StateCompleted,
			wantProgress: 100,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tracker, _ := newTestTracker(&fakeProvider{status: tc.status})
			got, err := tracker.Poll(context.Background(), domain.JobHandle{Kind: domain.KindSkybox, ID: "sb-1"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.State != tc.wantState || got.Progress != tc.wantProgress {
				t.Fatalf("status = %+v, want state=%s progress=%d", got, tc.wantState, tc.wantProgress)
			}
			if got.Kind != domain.KindSkybox || got.ID != "sb-1" {
				t.Fatalf("handle fields not stamped: %+v", got)
			}
		})
	}
}

func TestPollTerminalIdempotence(t *testing.T) {
	provider := &fakeProvider{status: domain.JobStatus{
		State:     domain.StateCompleted,
		Progress:  100,
		ResultURL: "https://cdn.example/sb-1.png",
	}}
	tracker, _ := newTestTracker(provider)
	handle := domain.JobHandle{Kind: domain.KindSkybox, ID: "sb-1"}

	first, err := tracker.Poll(context.Background(), handle)
	if err != nil {
		t.Fatalf("first poll: %v", err)
	}
	second, err := tracker.Poll(context.Background(), handle)
	if err != nil {
		t.Fatalf("second poll: %v", err)
	}
	if first != second {
		t.Fatalf("terminal polls diverged: %+v vs %+v", first, second)
	}
	if second.ResultURL != "https://cdn.example/sb-1.png" {
		t.Fatalf("result url = %q", second.ResultURL)
	}
	if provider.pollCalls != 1 {
		t.Fatalf("provider polled %d times, want 1", provider.pollCalls)
	}
}

func TestPollFailedStateAlsoPinned(t *testing.T) {
	provider := &fakeProvider{status: domain.JobStatus{
		State: domain.StateFailed,
		Error: "content policy violation",
	}}
	tracker, _ := newTestTracker(provider)
	handle := domain.JobHandle{Kind: domain.KindSkybox, ID: "sb-2"}

	for i := 0; i < 3; i++ {
		status, err := tracker.Poll(context.Background(), handle)
		if err != nil {
			t.Fatalf("poll %d: %v", i, err)
		}
		if status.State != domain.StateFailed || status.Error != "content policy violation" {
			t.Fatalf("poll %d status = %+v", i, status)
		}
	}
	if provider.pollCalls != 1 {
		t.Fatalf("provider polled %d times, want 1", provider.pollCalls)
	}
}

func TestPollNonTerminalNotCached(t *testing.T) {
	provider := &fakeProvider{statuses: []domain.JobStatus{
		{State: domain.StateProcessing, Progress: 30},
		{State: domain.StateProcessing, Progress: 70},
	}}
	tracker, _ := newTestTracker(provider)
	handle := domain.JobHandle{Kind: domain.KindSkybox, ID: "sb-3"}

	first, _ := tracker.Poll(context.Background(), handle)
	second, _ := tracker.Poll(context.Background(), handle)
	if first.Progress != 30 || second.Progress != 70 {
		t.Fatalf("progress = %d then %d, want 30 then 70", first.Progress, second.Progress)
	}
	if provider.pollCalls != 2 {
		t.Fatalf("provider polled %d times, want 2", provider.pollCalls)
	}
}

func TestPollErrorsSurfaceAsErrors(t *testing.T) {
	provider := &fakeProvider{err: domain.ErrTransport}
	tracker, _ := newTestTracker(provider)

	_, err := tracker.Poll(context.Background(), domain.JobHandle{Kind: domain.KindSkybox, ID: "sb-4"})
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("err = %v, want %v", err, domain.ErrTransport)
	}
}

func TestPollValidation(t *testing.T) {
	tracker, _ := newTestTracker(&fakeProvider{})

	_, err := tracker.Poll(context.Background(), domain.JobHandle{Kind: domain.KindSkybox})
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("empty id err = %v", err)
	}
	_, err = tracker.Poll(context.Background(), domain.JobHandle{Kind: domain.KindMesh, ID: "m-1"})
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("unknown kind err = %v", err)
	}
}
