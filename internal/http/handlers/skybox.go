package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"server/internal/domain"
	"server/internal/generation"
)

type generateRequest struct {
	Prompt     string `json:"prompt"`
	StyleID    string `json:"style_id"`
	WebhookURL string `json:"webhook_url"`
}

type generateResponse struct {
	Job              domain.JobHandle `json:"job"`
	Status           domain.JobState  `json:"status"`
	CreditsRemaining int              `json:"credits_remaining"`
}

type styleDTO struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

func (a *App) SkyboxStyles(w http.ResponseWriter, r *http.Request, _ domain.Principal) {
	styles, err := a.StyleList.Styles(r.Context())
	if err != nil {
		a.failure(w, r, err)
		return
	}
	caser := cases.Title(language.English)
	items := make([]styleDTO, 0, len(styles))
	for _, style := range styles {
		items = append(items, styleDTO{
			ID:          style.ID,
			Name:        style.Name,
			DisplayName: caser.String(style.Name),
		})
	}
	a.json(w, r, http.StatusOK, map[string]any{"styles": items})
}

func (a *App) SkyboxGenerate(w http.ResponseWriter, r *http.Request, p domain.Principal) {
	a.generate(w, r, p, domain.KindSkybox)
}

func (a *App) SkyboxStatus(w http.ResponseWriter, r *http.Request, _ domain.Principal) {
	a.status(w, r, domain.KindSkybox)
}

func (a *App) generate(w http.ResponseWriter, r *http.Request, p domain.Principal, kind domain.GenerationKind) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload")
		return
	}
	start := time.Now()
	handle, err := a.Submitter.Submit(r.Context(), generation.Request{
		Kind:       kind,
		Prompt:     req.Prompt,
		StyleID:    req.StyleID,
		WebhookURL: req.WebhookURL,
	})
	a.Metrics.ObserveProviderCall(string(kind), "submit", time.Since(start).Seconds())
	if err != nil {
		a.Metrics.IncSubmission(string(kind), "rejected")
		a.failure(w, r, err)
		return
	}
	a.Metrics.IncSubmission(string(kind), "accepted")

	// The job is already queued upstream; a failed debit is logged and
	// reconciled out of band rather than orphaning the submission.
	remaining := p.CreditsRemaining - 1
	if debited, err := a.Ledger.Debit(r.Context(), p.KeyID, 1); err != nil {
		a.Logger.Error().Err(err).Str("key_id", p.KeyID).Str("job_id", handle.ID).Msg("credit debit failed")
	} else {
		remaining = debited
	}

	a.json(w, r, http.StatusAccepted, generateResponse{
		Job:              handle,
		Status:           domain.StateQueued,
		CreditsRemaining: remaining,
	})
}

func (a *App) status(w http.ResponseWriter, r *http.Request, kind domain.GenerationKind) {
	jobID := chi.URLParam(r, "id")
	if jobID == "" {
		a.error(w, r, http.StatusBadRequest, "BAD_REQUEST", "job id required")
		return
	}
	start := time.Now()
	status, err := a.Tracker.Poll(r.Context(), domain.JobHandle{Kind: kind, ID: jobID})
	a.Metrics.ObserveProviderCall(string(kind), "poll", time.Since(start).Seconds())
	if err != nil {
		a.failure(w, r, err)
		return
	}
	a.Metrics.IncPoll(string(kind), string(status.State))
	a.json(w, r, http.StatusOK, status)
}
