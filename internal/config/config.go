// Package config resolves provider credentials and server settings once, at process
// start, so handlers never read the environment themselves.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/urbanize/urbanize-backend/internal/apperr"
)

// GeocoderProvider identifies which forward-geocoding backend to use.
type GeocoderProvider string

const (
	GeocoderMapbox GeocoderProvider = "mapbox"
	GeocoderGoogle GeocoderProvider = "google"
)

// Default upstream endpoints.
const (
	DefaultOpenWeatherEndpoint = "http://api.openweathermap.org"
	DefaultTomTomEndpoint      = "https://api.tomtom.com"
	DefaultOverpassEndpoint    = "https://overpass-api.de/api/interpreter"
	DefaultMapboxEndpoint      = "https://api.mapbox.com"
	DefaultAIBaseURL           = "https://generativelanguage.googleapis.com/v1beta/openai"
	DefaultAIModel             = "gemini-2.5-flash"
)

// WatchPoint is a coordinate whose readings are kept warm in the cache.
type WatchPoint struct {
	Name string  `yaml:"name"`
	Lat  float64 `yaml:"lat"`
	Lon  float64 `yaml:"lon"`
}

// RedisConfig configures the optional reading cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Config holds everything main needs to wire the server.
type Config struct {
	Port           string
	AllowedOrigins []string
	DatabaseURL    string
	Redis          RedisConfig

	OpenWeatherKey      string
	OpenWeatherEndpoint string

	TomTomKey      string
	TomTomEndpoint string

	OverpassEndpoint string

	Geocoder       GeocoderProvider
	MapboxToken    string
	MapboxEndpoint string
	GoogleMapsKey  string

	AIKey     string
	AIBaseURL string
	AIModel   string

	RateLimitRPS   float64
	RateLimitBurst int

	WatchPoints  []WatchPoint
	WarmInterval time.Duration
}

// fileOverlay mirrors the subset of Config that may come from a YAML file.
type fileOverlay struct {
	Port           string       `yaml:"port"`
	AllowedOrigins []string     `yaml:"cors_origins"`
	Geocoder       string       `yaml:"geocoder"`
	AIModel        string       `yaml:"ai_model"`
	CacheTTL       string       `yaml:"cache_ttl"`
	RateLimitRPS   float64      `yaml:"ai_rate_limit_rps"`
	RateLimitBurst int          `yaml:"ai_rate_limit_burst"`
	WatchPoints    []WatchPoint `yaml:"watch_points"`
	WarmInterval   string       `yaml:"warm_interval"`
}

var defaultOrigins = []string{
	"http://localhost:5000",
	"http://localhost:5173",
}

// LoadFromEnv reads the configuration from environment variables and, when
// URBANIZE_CONFIG names a YAML file, overlays the values it sets.
//
// Environment variables:
//   - PORT (default 5000), CORS_ORIGINS (comma separated)
//   - DATABASE_URL (optional; enables the Postgres report store)
//   - REDIS_HOST, REDIS_PORT, REDIS_PASS, REDIS_DB, CACHE_TTL (optional cache)
//   - OPENWEATHER_API_KEY, OPENWEATHER_ENDPOINT
//   - TOMTOM_API_KEY, TOMTOM_ENDPOINT
//   - OVERPASS_ENDPOINT
//   - GEOCODER_PROVIDER ("mapbox" or "google"), MAPBOX_TOKEN, MAPBOX_ENDPOINT, GOOGLE_MAPS_API_KEY
//   - GEMINI_API_KEY, AI_BASE_URL, AI_MODEL
//   - AI_RATE_LIMIT_RPS, AI_RATE_LIMIT_BURST
//   - WARM_INTERVAL
func LoadFromEnv() (Config, error) {
	cfg := Config{
		Port:                envOr("PORT", "5000"),
		AllowedOrigins:      splitList(os.Getenv("CORS_ORIGINS")),
		DatabaseURL:         strings.TrimSpace(os.Getenv("DATABASE_URL")),
		OpenWeatherKey:      strings.TrimSpace(os.Getenv("OPENWEATHER_API_KEY")),
		OpenWeatherEndpoint: envOr("OPENWEATHER_ENDPOINT", DefaultOpenWeatherEndpoint),
		TomTomKey:           strings.TrimSpace(os.Getenv("TOMTOM_API_KEY")),
		TomTomEndpoint:      envOr("TOMTOM_ENDPOINT", DefaultTomTomEndpoint),
		OverpassEndpoint:    envOr("OVERPASS_ENDPOINT", DefaultOverpassEndpoint),
		Geocoder:            parseGeocoder(os.Getenv("GEOCODER_PROVIDER")),
		MapboxToken:         strings.TrimSpace(os.Getenv("MAPBOX_TOKEN")),
		MapboxEndpoint:      envOr("MAPBOX_ENDPOINT", DefaultMapboxEndpoint),
		GoogleMapsKey:       strings.TrimSpace(os.Getenv("GOOGLE_MAPS_API_KEY")),
		AIKey:               strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		AIBaseURL:           envOr("AI_BASE_URL", DefaultAIBaseURL),
		AIModel:             envOr("AI_MODEL", DefaultAIModel),
		RateLimitRPS:        2,
		RateLimitBurst:      5,
		WarmInterval:        10 * time.Minute,
		Redis:               RedisConfig{TTL: 5 * time.Minute},
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = defaultOrigins
	}

	if host := strings.TrimSpace(os.Getenv("REDIS_HOST")); host != "" {
		cfg.Redis.Addr = host + ":" + envOr("REDIS_PORT", "6379")
		cfg.Redis.Password = os.Getenv("REDIS_PASS")
		if v := os.Getenv("REDIS_DB"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return cfg, fmt.Errorf("REDIS_DB: invalid value %q", v)
			}
			cfg.Redis.DB = n
		}
	}

	var err error
	if cfg.Redis.TTL, err = durationOr("CACHE_TTL", os.Getenv("CACHE_TTL"), cfg.Redis.TTL); err != nil {
		return cfg, err
	}
	if cfg.WarmInterval, err = durationOr("WARM_INTERVAL", os.Getenv("WARM_INTERVAL"), cfg.WarmInterval); err != nil {
		return cfg, err
	}
	if v := os.Getenv("AI_RATE_LIMIT_RPS"); v != "" {
		if cfg.RateLimitRPS, err = strconv.ParseFloat(v, 64); err != nil {
			return cfg, fmt.Errorf("AI_RATE_LIMIT_RPS: %w", err)
		}
	}
	if v := os.Getenv("AI_RATE_LIMIT_BURST"); v != "" {
		if cfg.RateLimitBurst, err = strconv.Atoi(v); err != nil {
			return cfg, fmt.Errorf("AI_RATE_LIMIT_BURST: %w", err)
		}
	}

	if path := strings.TrimSpace(os.Getenv("URBANIZE_CONFIG")); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var o fileOverlay
	if err := yaml.Unmarshal(raw, &o); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if o.Port != "" {
		c.Port = o.Port
	}
	if len(o.AllowedOrigins) > 0 {
		c.AllowedOrigins = o.AllowedOrigins
	}
	if o.Geocoder != "" {
		c.Geocoder = parseGeocoder(o.Geocoder)
	}
	if o.AIModel != "" {
		c.AIModel = o.AIModel
	}
	if o.RateLimitRPS > 0 {
		c.RateLimitRPS = o.RateLimitRPS
	}
	if o.RateLimitBurst > 0 {
		c.RateLimitBurst = o.RateLimitBurst
	}
	if len(o.WatchPoints) > 0 {
		c.WatchPoints = o.WatchPoints
	}
	if c.Redis.TTL, err = durationOr("cache_ttl", o.CacheTTL, c.Redis.TTL); err != nil {
		return err
	}
	if c.WarmInterval, err = durationOr("warm_interval", o.WarmInterval, c.WarmInterval); err != nil {
		return err
	}
	return nil
}

// Validate reports every credential that is missing for an enabled provider. The
// returned error joins one *apperr.ConfigurationError per key; callers may log it and
// keep serving, since each gateway reports the same error when it is used.
func (c Config) Validate() error {
	var errs []error
	if c.TomTomKey == "" {
		errs = append(errs, &apperr.ConfigurationError{Key: "TOMTOM_API_KEY"})
	}
	if c.AIKey == "" {
		errs = append(errs, &apperr.ConfigurationError{Key: "GEMINI_API_KEY"})
	}
	switch c.Geocoder {
	case GeocoderGoogle:
		if c.GoogleMapsKey == "" {
			errs = append(errs, &apperr.ConfigurationError{Key: "GOOGLE_MAPS_API_KEY"})
		}
	default:
		if c.MapboxToken == "" {
			errs = append(errs, &apperr.ConfigurationError{Key: "MAPBOX_TOKEN"})
		}
	}
	return errors.Join(errs...)
}

func parseGeocoder(s string) GeocoderProvider {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "google":
		return GeocoderGoogle
	default:
		return GeocoderMapbox
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func durationOr(name, raw string, def time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
