// Package mesh adapts the text-to-3D mesh generation provider to the common
// generation.Provider capability.
package mesh

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/generation"
)

// ErrMissingAPIKey indicates the client was configured without credentials.
var ErrMissingAPIKey = errors.New("mesh: api key is required")

const defaultMode = "preview"

// Options configures the mesh provider client.
type Options struct {
	APIKey         string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *zerolog.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls against the text-to-3D API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

type submitPayload struct {
	Mode     string `json:"mode"`
	Prompt   string `json:"prompt"`
	ArtStyle string `json:"art_style,omitempty"`
}

type submitResponse struct {
	Result string `json:"result"`
}

type taskResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Progress  int    `json:"progress"`
	ModelURLs struct {
		GLB string `json:"glb"`
	} `json:"model_urls"`
	TaskError struct {
		Message string `json:"message"`
	} `json:"task_error"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.meshy.ai/openapi/v2"
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// Submit queues a text-to-3D task and returns a queued job handle.
func (c *Client) Submit(ctx context.Context, req generation.SubmitRequest) (domain.JobHandle, error) {
	if !c.HasCredentials() {
		return domain.JobHandle{}, fmt.Errorf("%w: %v", domain.ErrProviderAuth, ErrMissingAPIKey)
	}
	payload := submitPayload{Mode: defaultMode, Prompt: req.Prompt, ArtStyle: req.StyleID}
	var decoded submitResponse
	if err := c.do(ctx, http.MethodPost, "/text-to-3d", payload, &decoded); err != nil {
		return domain.JobHandle{}, err
	}
	jobID := strings.TrimSpace(decoded.Result)
	if jobID == "" {
		return domain.JobHandle{}, fmt.Errorf("mesh: response missing task id: %w", domain.ErrProvider)
	}
	c.logger.Debug().Str("job_id", jobID).Msg("mesh: generation queued")
	return domain.JobHandle{Kind: domain.KindMesh, ID: jobID, CreatedAt: time.Now().UTC()}, nil
}

// Poll fetches and normalizes the current task status.
func (c *Client) Poll(ctx context.Context, jobID string) (domain.JobStatus, error) {
	if !c.HasCredentials() {
		return domain.JobStatus{}, fmt.Errorf("%w: %v", domain.ErrProviderAuth, ErrMissingAPIKey)
	}
	var decoded taskResponse
	if err := c.do(ctx, http.MethodGet, "/text-to-3d/"+jobID, nil, &decoded); err != nil {
		return domain.JobStatus{}, err
	}
	status := domain.JobStatus{
		Kind:     domain.KindMesh,
		ID:       jobID,
		State:    normalizeState(decoded.Status),
		Progress: domain.ClampProgress(decoded.Progress),
	}
	switch status.State {
	case domain.StateCompleted:
		status.Progress = 100
		status.ResultURL = strings.TrimSpace(decoded.ModelURLs.GLB)
	case domain.StateFailed:
		status.Error = strings.TrimSpace(decoded.TaskError.Message)
		if status.Error == "" {
			status.Error = "generation failed"
		}
	}
	return status, nil
}

func normalizeState(raw string) domain.JobState {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "PENDING":
		return domain.StateQueued
	case "IN_PROGRESS":
		return domain.StateProcessing
	case "SUCCEEDED":
		return domain.StateCompleted
	case "FAILED", "CANCELED", "EXPIRED":
		return domain.StateFailed
	default:
		return domain.StateProcessing
	}
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("mesh: encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("mesh: build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("mesh: http request: %v: %w", err, domain.ErrTransport)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("mesh: read response: %v: %w", err, domain.ErrTransport)
	}
	if resp.StatusCode >= 300 {
		return c.mapHTTPError(resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("mesh: decode response: %v: %w", err, domain.ErrProvider)
	}
	return nil
}

func (c *Client) mapHTTPError(status int, raw []byte) error {
	detail := strings.TrimSpace(string(raw))
	var decoded errorResponse
	if err := json.Unmarshal(raw, &decoded); err == nil && decoded.Message != "" {
		detail = decoded.Message
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("mesh: %s: %w", detail, domain.ErrProviderAuth)
	case status == http.StatusTooManyRequests || status == http.StatusPaymentRequired:
		return fmt.Errorf("mesh: %s: %w", detail, domain.ErrQuotaExceeded)
	default:
		return fmt.Errorf("mesh: status %d: %s: %w", status, detail, domain.ErrProvider)
	}
}

var _ generation.Provider = (*Client)(nil)
