package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"server/internal/apikey"
	"server/internal/domain"
	"server/internal/generation"
	"server/internal/http/handlers"
	"server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/infra/metrics"
	"server/internal/infra/statuscache"
	"server/internal/providers/skybox"
)

type fakeStore struct {
	mu   sync.Mutex
	keys map[string]*domain.APIKey
}

func (s *fakeStore) LookupKey(_ context.Context, key string) (*domain.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.keys[key]; ok {
		copied := *record
		return &copied, nil
	}
	return nil, nil
}

func (s *fakeStore) Debit(_ context.Context, keyID string, amount int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range s.keys {
		if record.ID != keyID {
			continue
		}
		if record.Credits < amount {
			return 0, domain.ErrCreditsExhausted
		}
		record.Credits -= amount
		return record.Credits, nil
	}
	return 0, domain.ErrInvalidCredential
}

type sequenceProvider struct {
	mu       sync.Mutex
	nextID   int
	statuses []domain.JobStatus
	polls    int
}

func (p *sequenceProvider) Submit(_ context.Context, _ generation.SubmitRequest) (domain.JobHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	return domain.JobHandle{ID: fmt.Sprintf("job-%d", p.nextID)}, nil
}

func (p *sequenceProvider) Poll(_ context.Context, _ string) (domain.JobStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := p.polls
	if idx >= len(p.statuses) {
		idx = len(p.statuses) - 1
	}
	p.polls++
	return p.statuses[idx], nil
}

type fixedStyles struct{}

func (fixedStyles) Styles(context.Context) ([]skybox.Style, error) {
	return []skybox.Style{{ID: 9, Name: "fantasy"}}, nil
}

func newTestServer(store *fakeStore, skyboxProvider, meshProvider generation.Provider) http.Handler {
	registry := generation.Registry{
		domain.KindSkybox: skyboxProvider,
		domain.KindMesh:   meshProvider,
	}
	logger := zerolog.Nop()
	app := &handlers.App{
		Config:     &infra.Config{},
		Logger:     logger,
		Validator:  apikey.NewValidator(store),
		Ledger:     store,
		Submitter:  generation.NewSubmitter(registry, 0),
		Tracker:    generation.NewTracker(registry, statuscache.NewMemory(), logger),
		Aggregator: generation.NewAggregator(generation.DefaultBands()),
		StyleList:  fixedStyles{},
		Metrics:    metrics.Noop{},
	}
	return httpapi.NewRouter(app, httpapi.Options{})
}

func doJSON(t *testing.T, router http.Handler, method, target, credential string, payload any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, body)
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var decoded map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec, decoded
}

func TestGenerationLifecycle(t *testing.T) {
	store := &fakeStore{keys: map[string]*domain.APIKey{
		"vrk_class": {ID: "key-1", Key: "vrk_class", Scope: domain.ScopeFull, Tier: domain.TierPro, Credits: 5},
	}}
	skyboxProvider := &sequenceProvider{statuses: []domain.JobStatus{
		{State: domain.StateProcessing, Progress: 30},
		{State: domain.StateCompleted, Progress: 100, ResultURL: "https://cdn.example/sb.png"},
	}}
	meshProvider := &sequenceProvider{statuses: []domain.JobStatus{
		{State: domain.StateProcessing, Progress: 10},
	}}
	router := newTestServer(store, skyboxProvider, meshProvider)

	rec, body := doJSON(t, router, http.MethodPost, "/v1/skybox/generate", "vrk_class", map[string]any{
		"prompt": "a coral reef at sunrise",
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("generate status = %d: %s", rec.Code, rec.Body.String())
	}
	data := body["data"].(map[string]any)
	if data["status"] != "queued" {
		t.Fatalf("submission status = %v, want queued", data["status"])
	}
	if data["credits_remaining"].(float64) != 4 {
		t.Fatalf("credits_remaining = %v, want 4", data["credits_remaining"])
	}
	job := data["job"].(map[string]any)
	jobID := job["id"].(string)
	if jobID == "" || job["kind"] != "skybox" {
		t.Fatalf("job = %v", job)
	}

	rec, body = doJSON(t, router, http.MethodGet, "/v1/skybox/status/"+jobID, "vrk_class", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("first poll status = %d", rec.Code)
	}
	data = body["data"].(map[string]any)
	if data["state"] != "processing" || data["progress"].(float64) != 30 {
		t.Fatalf("first poll = %v", data)
	}

	rec, body = doJSON(t, router, http.MethodGet, "/v1/skybox/status/"+jobID, "vrk_class", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("second poll status = %d", rec.Code)
	}
	data = body["data"].(map[string]any)
	if data["state"] != "completed" || data["progress"].(float64) != 100 {
		t.Fatalf("second poll = %v", data)
	}
	if data["result_url"] != "https://cdn.example/sb.png" {
		t.Fatalf("result_url = %v", data["result_url"])
	}

	// A finished job polls the same forever and the provider is not hit again.
	pollsBefore := skyboxProvider.polls
	rec, body = doJSON(t, router, http.MethodGet, "/v1/skybox/status/"+jobID, "vrk_class", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("third poll status = %d", rec.Code)
	}
	repeat := body["data"].(map[string]any)
	if repeat["state"] != "completed" || repeat["result_url"] != "https://cdn.example/sb.png" {
		t.Fatalf("terminal poll diverged: %v", repeat)
	}
	if skyboxProvider.polls != pollsBefore {
		t.Fatalf("provider polled again after terminal state")
	}
}

func TestGenerationRejections(t *testing.T) {
	store := &fakeStore{keys: map[string]*domain.APIKey{
		"vrk_full":  {ID: "key-1", Key: "vrk_full", Scope: domain.ScopeFull, Tier: domain.TierPro, Credits: 5},
		"vrk_read":  {ID: "key-2", Key: "vrk_read", Scope: domain.ScopeRead, Tier: domain.TierPro, Credits: 5},
		"vrk_empty": {ID: "key-3", Key: "vrk_empty", Scope: domain.ScopeFull, Tier: domain.TierPro, Credits: 0},
		"vrk_free":  {ID: "key-4", Key: "vrk_free", Scope: domain.ScopeFull, Tier: domain.TierFree, Credits: 5},
	}}
	provider := &sequenceProvider{statuses: []domain.JobStatus{{State: domain.StateQueued}}}
	router := newTestServer(store, provider, provider)

	tests := []struct {
		name       string
		method     string
		target     string
		credential string
		payload    any
		wantStatus int
		wantCode   string
	}{
		{
			name:       "no credential",
			method:     http.MethodPost,
			target:     "/v1/skybox/generate",
			payload:    map[string]any{"prompt": "a reef"},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "UNAUTHORIZED",
		},
		{
			name:       "revoked credential",
			method:     http.MethodPost,
			target:     "/v1/skybox/generate",
			credential: "vrk_ghost",
			payload:    map[string]any{"prompt": "a reef"},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "UNAUTHORIZED",
		},
		{
			name:       "read scope cannot generate",
			method:     http.MethodPost,
			target:     "/v1/skybox/generate",
			credential: "vrk_read",
			payload:    map[string]any{"prompt": "a reef"},
			wantStatus: http.StatusForbidden,
			wantCode:   "FORBIDDEN",
		},
		{
			name:       "zero credits",
			method:     http.MethodPost,
			target:     "/v1/skybox/generate",
			credential: "vrk_empty",
			payload:    map[string]any{"prompt": "a reef"},
			wantStatus: http.StatusTooManyRequests,
			wantCode:   "QUOTA_EXCEEDED",
		},
		{
			name:       "empty prompt",
			method:     http.MethodPost,
			target:     "/v1/skybox/generate",
			credential: "vrk_full",
			payload:    map[string]any{"prompt": "   "},
			wantStatus: http.StatusBadRequest,
			wantCode:   "BAD_REQUEST",
		},
		{
			name:       "free tier cannot generate meshes",
			method:     http.MethodPost,
			target:     "/v1/meshy/generate",
			credential: "vrk_free",
			payload:    map[string]any{"prompt": "a golem"},
			wantStatus: http.StatusForbidden,
			wantCode:   "FORBIDDEN",
		},
		{
			name:       "read scope can check status",
			method:     http.MethodGet,
			target:     "/v1/skybox/status/job-1",
			credential: "vrk_read",
			wantStatus: http.StatusOK,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, body := doJSON(t, router, tc.method, tc.target, tc.credential, tc.payload)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tc.wantStatus, rec.Body.String())
			}
			if tc.wantCode == "" {
				return
			}
			if body["success"] != false {
				t.Fatalf("success = %v, want false", body["success"])
			}
			if body["code"] != tc.wantCode {
				t.Fatalf("code = %v, want %s", body["code"], tc.wantCode)
			}
		})
	}
}

func TestHealthEndpointIsOpen(t *testing.T) {
	store := &fakeStore{keys: map[string]*domain.APIKey{}}
	provider := &sequenceProvider{statuses: []domain.JobStatus{{State: domain.StateQueued}}}
	router := newTestServer(store, provider, provider)

	rec, body := doJSON(t, router, http.MethodGet, "/v1/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	if body["success"] != true {
		t.Fatalf("success = %v", body["success"])
	}
}
