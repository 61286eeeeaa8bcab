package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/weather-widget/internal/common"
)

const (
	GeocoderOpenMeteo = "openmeteo"
	GeocoderGoogle    = "google"

	SessionBackendMemory = "memory"
	SessionBackendSQLite = "sqlite"
)

type AppConfig struct {
	Port     string
	LogLevel string

	// HTTPTimeout bounds each outbound call; RequestTimeout bounds a whole
	// widget operation, which may chain geocoding and weather calls.
	HTTPTimeout    time.Duration
	RequestTimeout time.Duration

	ForecastURL   string
	GeocodingURL  string
	WindSpeedUnit string

	Geocoder            string
	GoogleGeocoderKey   string
	GeocoderResultCount int

	// Upstream resilience. Zero retries keeps failures terminal.
	MaxRetries     int
	RetryInterval  time.Duration
	BreakerTimeout time.Duration

	SessionBackend       string
	SessionDBPath        string
	SessionTTL           time.Duration
	SessionSweepInterval time.Duration
}

// Load reads configuration from the environment (and an optional .env file)
// with sensible defaults.
func Load() (*AppConfig, error) {
	// A missing .env file is fine; the environment still applies.
	_ = godotenv.Load()

	cfg := &AppConfig{
		Port:                getenvDefault("PORT", "8080"),
		LogLevel:            getenvDefault("LOG_LEVEL", "info"),
		ForecastURL:         getenvDefault("OPEN_METEO_FORECAST_URL", "https://api.open-meteo.com/v1/forecast"),
		GeocodingURL:        getenvDefault("OPEN_METEO_GEOCODING_URL", "https://geocoding-api.open-meteo.com/v1/search"),
		WindSpeedUnit:       getenvDefault("WIND_SPEED_UNIT", "ms"),
		Geocoder:            strings.ToLower(getenvDefault("GEOCODER", GeocoderOpenMeteo)),
		GoogleGeocoderKey:   os.Getenv("GOOGLE_GEOCODER_API_KEY"),
		SessionBackend:      strings.ToLower(getenvDefault("SESSION_BACKEND", SessionBackendMemory)),
		SessionDBPath:       getenvDefault("SESSION_DB_PATH", "widget_sessions.db"),
	}

	var err error
	if cfg.GeocoderResultCount, err = getenvInt("GEOCODER_RESULT_COUNT", 1); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = getenvInt("HTTP_MAX_RETRIES", 0); err != nil {
		return nil, err
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"HTTP_TIMEOUT", "10s", &cfg.HTTPTimeout},
		{"REQUEST_TIMEOUT", "15s", &cfg.RequestTimeout},
		{"HTTP_RETRY_INTERVAL", "500ms", &cfg.RetryInterval},
		{"BREAKER_TIMEOUT", "30s", &cfg.BreakerTimeout},
		{"SESSION_TTL", "30m", &cfg.SessionTTL},
		{"SESSION_SWEEP_INTERVAL", "5m", &cfg.SessionSweepInterval},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getenvDefault(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	switch c.Geocoder {
	case GeocoderOpenMeteo:
	case GeocoderGoogle:
		if c.GoogleGeocoderKey == "" {
			return fmt.Errorf("GEOCODER=google requires GOOGLE_GEOCODER_API_KEY")
		}
	default:
		return fmt.Errorf("invalid GEOCODER %q", c.Geocoder)
	}

	switch c.SessionBackend {
	case SessionBackendMemory, SessionBackendSQLite:
	default:
		return fmt.Errorf("invalid SESSION_BACKEND %q", c.SessionBackend)
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("HTTP_MAX_RETRIES must not be negative")
	}
	if c.HTTPTimeout <= 0 || c.RequestTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT and REQUEST_TIMEOUT must be positive")
	}
	return nil
}

func getenvDefault(key, def string) string {
	return common.FirstNonEmpty(os.Getenv(key), def)
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
