package generation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"server/internal/domain"
)

type fakeProvider struct {
	submitCalls int
	pollCalls   int
	submitReq   SubmitRequest
	handle      domain.JobHandle
	status      domain.JobStatus
	statuses    []domain.JobStatus
	err         error
}

func (f *fakeProvider) Submit(_ context.Context, req SubmitRequest) (domain.JobHandle, error) {
	f.submitCalls++
	f.submitReq = req
	if f.err != nil {
		return domain.JobHandle{}, f.err
	}
	return f.handle, nil
}

func (f *fakeProvider) Poll(_ context.Context, _ string) (domain.JobStatus, error) {
	f.pollCalls++
	if f.err != nil {
		return domain.JobStatus{}, f.err
	}
	if len(f.statuses) > 0 {
		status := f.statuses[0]
		if len(f.statuses) > 1 {
			f.statuses = f.statuses[1:]
		}
		return status, nil
	}
	return f.status, nil
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name   string
		req    Request
		wantErr error
	}{
		{
			name:    "empty prompt",
			req:     Request{Kind: domain.KindSkybox, Prompt: ""},
			wantErr: domain.ErrInvalidRequest,
		},
		{
			name:    "whitespace only prompt",
			req:     Request{Kind: domain.KindSkybox, Prompt: "   \t\n"},
			wantErr: domain.ErrInvalidRequest,
		},
		{
			name:    "oversized prompt",
			req:     Request{Kind: domain.KindSkybox, Prompt: strings.Repeat("a", DefaultMaxPromptLength+1)},
			wantErr: domain.ErrInvalidRequest,
		},
		{
			name:    "unknown kind",
			req:     Request{Kind: domain.GenerationKind("voxel"), Prompt: "a castle"},
			wantErr: domain.ErrInvalidRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			provider := &fakeProvider{}
			s := NewSubmitter(Registry{domain.KindSkybox: provider}, 0)
			_, err := s.Submit(context.Background(), tc.req)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if provider.submitCalls != 0 {
				t.Fatalf("provider called %d times for invalid request", provider.submitCalls)
			}
		})
	}
}

func TestSubmitRouting(t *testing.T) {
	skybox := &fakeProvider{handle: domain.JobHandle{ID: "sb-1"}}
	mesh := &fakeProvider{handle: domain.JobHandle{ID: "m-1"}}
	s := NewSubmitter(Registry{
		domain.KindSkybox: skybox,
		domain.KindMesh:   mesh,
	}, 0)

	handle, err := s.Submit(context.Background(), Request{
		Kind:    domain.KindMesh,
		Prompt:  "  a ruined temple  ",
		StyleID: "12",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handle.ID != "m-1" || handle.Kind != domain.KindMesh {
		t.Fatalf("handle = %+v", handle)
	}
	if skybox.submitCalls != 0 || mesh.submitCalls != 1 {
		t.Fatalf("routing off: skybox=%d mesh=%d", skybox.submitCalls, mesh.submitCalls)
	}
	if mesh.submitReq.Prompt != "a ruined temple" {
		t.Fatalf("prompt not trimmed: %q", mesh.submitReq.Prompt)
	}
}

func TestSubmitProviderErrorPassthrough(t *testing.T) {
	wrapped := errors.New("provider said no")
	provider := &fakeProvider{err: wrapped}
	s := NewSubmitter(Registry{domain.KindSkybox: provider}, 0)

	_, err := s.Submit(context.Background(), Request{Kind: domain.KindSkybox, Prompt: "a castle"})
	if !errors.Is(err, wrapped) {
		t.Fatalf("err = %v, want passthrough of %v", err, wrapped)
	}
}
