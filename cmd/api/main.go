package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/apikey"
	"server/internal/domain"
	"server/internal/generation"
	"server/internal/http/handlers"
	"server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/infra/geoip"
	"server/internal/infra/metrics"
	"server/internal/infra/statuscache"
	"server/internal/middleware"
	"server/internal/providers/mesh"
	"server/internal/providers/skybox"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	keys := repo.NewKeyRepository(dbpool)

	var cache statuscache.Cache = statuscache.NewMemory()
	if cfg.RedisURL != "" {
		redisCache, err := statuscache.NewRedis(cfg.RedisURL, cfg.StatusCacheTTL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
		defer redisCache.Close()
		cache = redisCache
	}

	var countryLookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip database unavailable, country annotation disabled")
	} else if resolver != nil {
		countryLookup = resolver.CountryCode
	}

	skyboxClient := skybox.NewClient(skybox.Options{
		APIKey:  cfg.SkyboxAPIKey,
		BaseURL: cfg.SkyboxBaseURL,
		Logger:  &logger,
	})
	meshClient := mesh.NewClient(mesh.Options{
		APIKey:  cfg.MeshAPIKey,
		BaseURL: cfg.MeshBaseURL,
		Logger:  &logger,
	})
	providers := generation.Registry{
		domain.KindSkybox: skyboxClient,
		domain.KindMesh:   meshClient,
	}

	app := &handlers.App{
		Config:     cfg,
		Logger:     logger,
		Validator:  apikey.NewValidator(keys),
		Ledger:     keys,
		Submitter:  generation.NewSubmitter(providers, cfg.MaxPromptLength),
		Tracker:    generation.NewTracker(providers, cache, logger),
		Aggregator: generation.NewAggregator(generation.Bands{Start: cfg.ProgressBandLow, Wrapup: cfg.ProgressBandHigh}),
		StyleList:  skyboxClient,
		Metrics:    metrics.NewProm("genapi"),
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		AllowedOrigins:  []string{"http://localhost:3000"},
		RateLimitPerMin: cfg.RateLimitPerMin,
		CountryLookup:   countryLookup,
	})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
