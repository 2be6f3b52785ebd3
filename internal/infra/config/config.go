package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	OpenWeather  OpenWeatherConfig  `yaml:"openWeather"`
	GeocodeCache GeocodeCacheConfig `yaml:"geocodeCache"`
	Advisory     AdvisoryConfig     `yaml:"advisory"`
	Auth         AuthConfig         `yaml:"auth"`
	Janitor      JanitorConfig      `yaml:"janitor"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address      string          `yaml:"address"`
	ReadTimeout  time.Duration   `yaml:"readTimeout"`
	WriteTimeout time.Duration   `yaml:"writeTimeout"`
	RateLimit    RateLimitConfig `yaml:"rateLimit"`
	CORS         CORSConfig      `yaml:"cors"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// CORSConfig lists the origins allowed to call the API. "*" allows any.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// OpenWeatherConfig points at the geocoding, weather and air quality APIs.
type OpenWeatherConfig struct {
	APIKey      string        `yaml:"apiKey"`
	GeoBaseURL  string        `yaml:"geoBaseUrl"`
	DataBaseURL string        `yaml:"dataBaseUrl"`
	Timeout     time.Duration `yaml:"timeout"`
	Breaker     BreakerConfig `yaml:"breaker"`
}

// BreakerConfig tunes the per-endpoint circuit breakers.
type BreakerConfig struct {
	MaxRequests         uint32        `yaml:"maxRequests"`
	Interval            time.Duration `yaml:"interval"`
	OpenTimeout         time.Duration `yaml:"openTimeout"`
	ConsecutiveFailures uint32        `yaml:"consecutiveFailures"`
}

// GeocodeCacheConfig controls the location lookup cache.
type GeocodeCacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
	Valkey  ValkeyConfig  `yaml:"valkey"`
}

// AdvisoryConfig controls the advisory endpoint.
type AdvisoryConfig struct {
	RequireAuth bool `yaml:"requireAuth"`
}

// AuthConfig holds sign-in settings.
type AuthConfig struct {
	Secret          string         `yaml:"secret"`
	TokenTTL        time.Duration  `yaml:"tokenTtl"`
	RefreshTokenTTL time.Duration  `yaml:"refreshTokenTtl"`
	Google          GoogleConfig   `yaml:"google"`
	Postgres        PostgresConfig `yaml:"postgres"`
	Sessions        ValkeyConfig   `yaml:"sessions"`
}

// GoogleConfig holds the Google OAuth client.
type GoogleConfig struct {
	ClientID             string `yaml:"clientId"`
	ClientSecret         string `yaml:"clientSecret"`
	RedirectURL          string `yaml:"redirectUrl"`
	PostLoginRedirectURL string `yaml:"postLoginRedirectUrl"`
}

// ValkeyConfig contains connection information for a Valkey-backed store.
type ValkeyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// JanitorConfig controls the background pruning of in-process stores.
type JanitorConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// Load reads configuration from .env, a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	setString("HTTP_ADDRESS", &cfg.HTTP.Address)
	setDuration("HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout)
	setDuration("HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout)
	setBool("HTTP_RATE_LIMIT_ENABLED", &cfg.HTTP.RateLimit.Enabled)
	setInt("HTTP_RATE_LIMIT_RPM", &cfg.HTTP.RateLimit.RequestsPerMinute)
	setInt("HTTP_RATE_LIMIT_BURST", &cfg.HTTP.RateLimit.Burst)
	if v := os.Getenv("HTTP_CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.CORS.AllowedOrigins = splitList(v)
	}

	setString("OPENWEATHER_API_KEY", &cfg.OpenWeather.APIKey)
	setString("OPENWEATHER_GEO_BASE_URL", &cfg.OpenWeather.GeoBaseURL)
	setString("OPENWEATHER_DATA_BASE_URL", &cfg.OpenWeather.DataBaseURL)
	setDuration("OPENWEATHER_TIMEOUT", &cfg.OpenWeather.Timeout)
	if v := os.Getenv("OPENWEATHER_BREAKER_FAILURES"); v != "" {
		if parsed, err := strconv.ParseUint(v, 10, 32); err == nil {
			cfg.OpenWeather.Breaker.ConsecutiveFailures = uint32(parsed)
		}
	}
	setDuration("OPENWEATHER_BREAKER_OPEN_TIMEOUT", &cfg.OpenWeather.Breaker.OpenTimeout)

	setBool("GEOCODE_CACHE_ENABLED", &cfg.GeocodeCache.Enabled)
	setDuration("GEOCODE_CACHE_TTL", &cfg.GeocodeCache.TTL)
	setBool("GEOCODE_CACHE_VALKEY_ENABLED", &cfg.GeocodeCache.Valkey.Enabled)
	setString("GEOCODE_CACHE_VALKEY_ADDR", &cfg.GeocodeCache.Valkey.Addr)

	setBool("ADVISORY_REQUIRE_AUTH", &cfg.Advisory.RequireAuth)

	setString("AUTH_SECRET", &cfg.Auth.Secret)
	setDuration("AUTH_TOKEN_TTL", &cfg.Auth.TokenTTL)
	setDuration("AUTH_REFRESH_TOKEN_TTL", &cfg.Auth.RefreshTokenTTL)
	setString("AUTH_GOOGLE_CLIENT_ID", &cfg.Auth.Google.ClientID)
	setString("AUTH_GOOGLE_CLIENT_SECRET", &cfg.Auth.Google.ClientSecret)
	setString("AUTH_GOOGLE_REDIRECT_URL", &cfg.Auth.Google.RedirectURL)
	setString("AUTH_GOOGLE_POST_LOGIN_REDIRECT_URL", &cfg.Auth.Google.PostLoginRedirectURL)
	setString("AUTH_POSTGRES_DSN", &cfg.Auth.Postgres.DSN)
	setInt32("AUTH_POSTGRES_MAX_CONNS", &cfg.Auth.Postgres.MaxConns)
	setInt32("AUTH_POSTGRES_MIN_CONNS", &cfg.Auth.Postgres.MinConns)
	setBool("AUTH_SESSIONS_VALKEY_ENABLED", &cfg.Auth.Sessions.Enabled)
	setString("AUTH_SESSIONS_VALKEY_ADDR", &cfg.Auth.Sessions.Addr)

	setDuration("JANITOR_INTERVAL", &cfg.Janitor.Interval)
}

func setString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "1" || strings.EqualFold(v, "true")
	}
}

func setInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setInt32(key string, dst *int32) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(parsed)
		}
	}
}

func setDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = parsed
		}
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 35 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
			CORS: CORSConfig{
				AllowedOrigins: []string{"*"},
			},
		},
		OpenWeather: OpenWeatherConfig{
			GeoBaseURL:  "https://api.openweathermap.org/geo/1.0",
			DataBaseURL: "https://api.openweathermap.org/data/2.5",
			Timeout:     10 * time.Second,
			Breaker: BreakerConfig{
				MaxRequests:         1,
				Interval:            time.Minute,
				OpenTimeout:         30 * time.Second,
				ConsecutiveFailures: 5,
			},
		},
		GeocodeCache: GeocodeCacheConfig{
			Enabled: true,
			TTL:     24 * time.Hour,
		},
		Auth: AuthConfig{
			TokenTTL:        time.Hour,
			RefreshTokenTTL: 7 * 24 * time.Hour,
			Postgres: PostgresConfig{
				MaxConns: 4,
			},
		},
		Janitor: JanitorConfig{
			Interval: 10 * time.Minute,
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if strings.TrimSpace(c.OpenWeather.APIKey) == "" {
		return errors.New("openWeather.apiKey cannot be empty")
	}
	if c.OpenWeather.GeoBaseURL == "" || c.OpenWeather.DataBaseURL == "" {
		return errors.New("openWeather base urls cannot be empty")
	}
	if c.OpenWeather.Timeout <= 0 {
		return errors.New("openWeather.timeout must be positive")
	}
	if c.GeocodeCache.TTL < 0 {
		return errors.New("geocodeCache.ttl cannot be negative")
	}
	if c.GeocodeCache.Valkey.Enabled && strings.TrimSpace(c.GeocodeCache.Valkey.Addr) == "" {
		return errors.New("geocodeCache.valkey.addr cannot be empty when valkey is enabled")
	}
	if strings.TrimSpace(c.Auth.Secret) == "" {
		return errors.New("auth.secret cannot be empty")
	}
	if c.Auth.TokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		return errors.New("auth token ttls must be positive")
	}
	if c.Auth.RefreshTokenTTL < c.Auth.TokenTTL {
		return errors.New("auth.refreshTokenTtl cannot be shorter than auth.tokenTtl")
	}
	if c.Auth.Sessions.Enabled && strings.TrimSpace(c.Auth.Sessions.Addr) == "" {
		return errors.New("auth.sessions.addr cannot be empty when valkey is enabled")
	}
	if c.Janitor.Interval < 0 {
		return errors.New("janitor.interval cannot be negative")
	}
	return nil
}
