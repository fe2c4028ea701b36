// Package skybox adapts the 360° skybox generation provider to the common
// generation.Provider capability.
package skybox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/generation"
)

// ErrMissingAPIKey indicates the client was configured without credentials.
var ErrMissingAPIKey = errors.New("skybox: api key is required")

// Options configures the skybox provider client.
type Options struct {
	APIKey         string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *zerolog.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls against the skybox generation API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Style is one entry of the provider's style roster.
type Style struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type submitPayload struct {
	Prompt     string `json:"prompt"`
	StyleID    *int   `json:"skybox_style_id,omitempty"`
	WebhookURL string `json:"webhook_url,omitempty"`
}

type submitResponse struct {
	ID           json.Number `json:"id"`
	ObfuscatedID string      `json:"obfuscated_id"`
	Status       string      `json:"status"`
	Error        string      `json:"error"`
	Message      string      `json:"message"`
}

type statusResponse struct {
	Request struct {
		ID           json.Number `json:"id"`
		Status       string      `json:"status"`
		Progress     *int        `json:"progress"`
		FileURL      string      `json:"file_url"`
		ErrorMessage string      `json:"error_message"`
	} `json:"request"`
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
		baseURL = "https://backend.blockadelabs.com/api/v1"
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

// Submit queues a skybox generation and returns a queued job handle.
func (c *Client) Submit(ctx context.Context, req generation.SubmitRequest) (domain.JobHandle, error) {
	if !c.HasCredentials() {
		return domain.JobHandle{}, fmt.Errorf("%w: %v", domain.ErrProviderAuth, ErrMissingAPIKey)
	}
	payload := submitPayload{Prompt: req.Prompt, WebhookURL: req.WebhookURL}
	if styleID, err := strconv.Atoi(req.StyleID); err == nil && req.StyleID != "" {
		payload.StyleID = &styleID
	}
	var decoded submitResponse
	if err := c.do(ctx, http.MethodPost, "/skybox", payload, &decoded); err != nil {
		return domain.JobHandle{}, err
	}
	jobID := strings.TrimSpace(decoded.ObfuscatedID)
	if jobID == "" {
		jobID = decoded.ID.String()
	}
	if jobID == "" {
		return domain.JobHandle{}, fmt.Errorf("skybox: response missing job id: %w", domain.ErrProvider)
	}
	c.logger.Debug().Str("job_id", jobID).Msg("skybox: generation queued")
	return domain.JobHandle{Kind: domain.KindSkybox, ID: jobID, CreatedAt: time.Now().UTC()}, nil
}

// Poll fetches and normalizes the current job status.
func (c *Client) Poll(ctx context.Context, jobID string) (domain.JobStatus, error) {
	if !c.HasCredentials() {
		return domain.JobStatus{}, fmt.Errorf("%w: %v", domain.ErrProviderAuth, ErrMissingAPIKey)
	}
	var decoded statusResponse
	if err := c.do(ctx, http.MethodGet, "/imagine/requests/"+jobID, nil, &decoded); err != nil {
		return domain.JobStatus{}, err
	}
	state, estimate := normalizeState(decoded.Request.Status)
	progress := estimate
	if decoded.Request.Progress != nil {
		progress = domain.ClampProgress(*decoded.Request.Progress)
	}
	status := domain.JobStatus{
		Kind:     domain.KindSkybox,
		ID:       jobID,
		State:    state,
		Progress: progress,
	}
	switch state {
	case domain.StateCompleted:
		status.Progress = 100
		status.ResultURL = strings.TrimSpace(decoded.Request.FileURL)
	case domain.StateFailed:
		status.Error = strings.TrimSpace(decoded.Request.ErrorMessage)
		if status.Error == "" {
			status.Error = "generation aborted"
		}
	}
	return status, nil
}

// Styles returns the provider's style roster.
func (c *Client) Styles(ctx context.Context) ([]Style, error) {
	if !c.HasCredentials() {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderAuth, ErrMissingAPIKey)
	}
	var styles []Style
	if err := c.do(ctx, http.MethodGet, "/skybox/styles", nil, &styles); err != nil {
		return nil, err
	}
	return styles, nil
}

// normalizeState maps the provider vocabulary to the four-state model and
// returns a progress estimate for states that carry no numeric signal.
func normalizeState(raw string) (domain.JobState, int) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending":
		return domain.StateQueued, 5
	case "dispatched":
		return domain.StateQueued, 10
	case "processing":
		return domain.StateProcessing, 50
	case "complete", "completed":
		return domain.StateCompleted, 100
	case "abort", "error", "failed":
		return domain.StateFailed, 0
	default:
		return domain.StateProcessing, 25
	}
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("skybox: encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("skybox: build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("skybox: http request: %v: %w", err, domain.ErrTransport)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("skybox: read response: %v: %w", err, domain.ErrTransport)
	}
	if resp.StatusCode >= 300 {
		return c.mapHTTPError(resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("skybox: decode response: %v: %w", err, domain.ErrProvider)
	}
	return nil
}

// mapHTTPError converges the provider's error shapes onto the shared
// taxonomy so unrelated providers present one vocabulary to callers.
func (c *Client) mapHTTPError(status int, raw []byte) error {
	detail := strings.TrimSpace(string(raw))
	var decoded struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &decoded); err == nil {
		if decoded.Error != "" {
			detail = decoded.Error
		} else if decoded.Message != "" {
			detail = decoded.Message
		}
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("skybox: %s: %w", detail, domain.ErrProviderAuth)
	case status == http.StatusTooManyRequests || status == http.StatusPaymentRequired:
		return fmt.Errorf("skybox: %s: %w", detail, domain.ErrQuotaExceeded)
	default:
		return fmt.Errorf("skybox: status %d: %s: %w", status, detail, domain.ErrProvider)
	}
}

var _ generation.Provider = (*Client)(nil)
