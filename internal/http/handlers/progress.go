package handlers

import (
	"net/http"
	"sync"

	"server/internal/domain"
	"server/internal/middleware"
)

// GenerationProgress polls the requested tracks and reduces them to one
// aggregated completion signal. The two tracks are independent pipelines:
// they are polled concurrently and either may be absent.
func (a *App) GenerationProgress(w http.ResponseWriter, r *http.Request, _ domain.Principal) {
	skyboxID := r.URL.Query().Get("skybox_id")
	meshID := r.URL.Query().Get("mesh_id")
	if skyboxID == "" && meshID == "" {
		a.error(w, r, http.StatusBadRequest, "BAD_REQUEST", "at least one of skybox_id or mesh_id is required")
		return
	}

	var (
		wg         sync.WaitGroup
		skybox     *domain.JobStatus
		mesh       *domain.JobStatus
		skyboxErr  error
		meshErr    error
	)
	if skyboxID != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, err := a.Tracker.Poll(r.Context(), domain.JobHandle{Kind: domain.KindSkybox, ID: skyboxID})
			if err != nil {
				skyboxErr = err
				return
			}
			skybox = &status
		}()
	}
	if meshID != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, err := a.Tracker.Poll(r.Context(), domain.JobHandle{Kind: domain.KindMesh, ID: meshID})
			if err != nil {
				meshErr = err
				return
			}
			mesh = &status
		}()
	}
	wg.Wait()

	if skyboxErr != nil {
		a.failure(w, r, skyboxErr)
		return
	}
	if meshErr != nil {
		a.failure(w, r, meshErr)
		return
	}

	locale := middleware.LocaleFromContext(r.Context())
	progress := a.Aggregator.Aggregate(skybox, mesh, locale)
	a.json(w, r, http.StatusOK, map[string]any{
		"progress": progress,
		"skybox":   skybox,
		"mesh":     mesh,
	})
}
