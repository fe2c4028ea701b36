package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"server/internal/access"
	"server/internal/domain"
	"server/internal/http/handlers"
	"server/internal/infra/metrics"
	"server/internal/middleware"
)

// Options carries the router's cross-cutting configuration.
type Options struct {
	AllowedOrigins  []string
	RateLimitPerMin int
	CountryLookup   middleware.CountryLookup
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimiddleware.RealIP,
		chimiddleware.Recoverer,
		middleware.Locale("en", opts.CountryLookup),
		middleware.Logger(app.Logger),
	)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(opts.AllowedOrigins))
	}
	if opts.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
	}

	r.Get("/v1/healthz", app.Health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	readOnly := access.Policy{RequiredScope: access.RequireScope(domain.ScopeRead), SkipCredits: true}
	generate := access.Policy{RequiredScope: access.RequireScope(domain.ScopeFull)}
	meshGenerate := access.Policy{
		RequiredScope: access.RequireScope(domain.ScopeFull),
		RequiredTiers: []domain.Tier{domain.TierPro, domain.TierTeam, domain.TierEnterprise},
	}

	r.Route("/v1/skybox", func(r chi.Router) {
		r.Get("/styles", app.Secured(readOnly, app.SkyboxStyles))
		r.Post("/generate", app.Secured(generate, app.SkyboxGenerate))
		r.Get("/status/{id}", app.Secured(readOnly, app.SkyboxStatus))
	})

	r.Route("/v1/meshy", func(r chi.Router) {
		r.Post("/generate", app.Secured(meshGenerate, app.MeshGenerate))
		r.Get("/status/{id}", app.Secured(readOnly, app.MeshStatus))
	})

	r.Get("/v1/generation/progress", app.Secured(readOnly, app.GenerationProgress))

	return r
}
