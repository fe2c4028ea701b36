package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	DatabaseURL      string
	RedisURL         string
	GeoIPDBPath      string
	SkyboxAPIKey     string
	SkyboxBaseURL    string
	MeshAPIKey       string
	MeshBaseURL      string
	MaxPromptLength  int
	ProgressBandLow  int
	ProgressBandHigh int
	StatusCacheTTL   time.Duration
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		GeoIPDBPath:      os.Getenv("GEOIP_DB_PATH"),
		SkyboxAPIKey:     os.Getenv("SKYBOX_API_KEY"),
		SkyboxBaseURL:    getEnv("SKYBOX_BASE_URL", "https://backend.blockadelabs.com/api/v1"),
		MeshAPIKey:       os.Getenv("MESHY_API_KEY"),
		MeshBaseURL:      getEnv("MESHY_BASE_URL", "https://api.meshy.ai/openapi/v2"),
		MaxPromptLength:  getEnvInt("MAX_PROMPT_LENGTH", 600),
		ProgressBandLow:  getEnvInt("PROGRESS_BAND_LOW", 15),
		ProgressBandHigh: getEnvInt("PROGRESS_BAND_HIGH", 85),
		StatusCacheTTL:   time.Hour * time.Duration(getEnvInt("STATUS_CACHE_TTL_HOURS", 24)),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.ProgressBandLow < 0 || cfg.ProgressBandHigh > 100 || cfg.ProgressBandLow >= cfg.ProgressBandHigh {
		return nil, fmt.Errorf("invalid progress bands: low=%d high=%d", cfg.ProgressBandLow, cfg.ProgressBandHigh)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
