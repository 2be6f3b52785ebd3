package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/weather-fortune/internal/domain/auth"
	"github.com/yanqian/weather-fortune/internal/domain/geo"
	"github.com/yanqian/weather-fortune/internal/infra/config"
	"github.com/yanqian/weather-fortune/internal/infra/geocache"
	"github.com/yanqian/weather-fortune/internal/infra/janitor"
	"github.com/yanqian/weather-fortune/internal/infra/openweather"
	"github.com/yanqian/weather-fortune/internal/infra/sessionstore"
	"github.com/yanqian/weather-fortune/internal/infra/userrepo"
	"github.com/yanqian/weather-fortune/pkg/metrics"
)

func provideOpenWeatherConfig(cfg *config.Config) openweather.Config {
	ow := cfg.OpenWeather
	return openweather.Config{
		APIKey:      ow.APIKey,
		GeoBaseURL:  ow.GeoBaseURL,
		DataBaseURL: ow.DataBaseURL,
		Timeout:     ow.Timeout,
		CacheTTL:    cfg.GeocodeCache.TTL,
		Breaker: openweather.BreakerConfig{
			MaxRequests:         ow.Breaker.MaxRequests,
			Interval:            ow.Breaker.Interval,
			OpenTimeout:         ow.Breaker.OpenTimeout,
			ConsecutiveFailures: ow.Breaker.ConsecutiveFailures,
		},
	}
}

func provideOpenWeatherClient(cfg openweather.Config, cache geo.Cache, recorder *metrics.Recorder, logger *slog.Logger) *openweather.Client {
	return openweather.NewClient(cfg, cache, recorder, logger)
}

func provideGeocodeCache(cfg *config.Config, logger *slog.Logger) geo.Cache {
	if !cfg.GeocodeCache.Enabled {
		logger.Info("geocode cache disabled")
		return nil
	}
	if cfg.GeocodeCache.Valkey.Enabled {
		if client, ok := connectValkey(cfg.GeocodeCache.Valkey, logger); ok {
			logger.Info("geocode valkey cache enabled", "addr", cfg.GeocodeCache.Valkey.Addr)
			return geocache.NewValkeyStore(client, "geocode")
		}
		logger.Warn("geocode cache falling back to memory store")
	}
	return geocache.NewMemoryStore()
}

func provideAuthConfig(cfg *config.Config) auth.Config {
	return auth.Config{
		Secret:          cfg.Auth.Secret,
		TokenTTL:        cfg.Auth.TokenTTL,
		RefreshTokenTTL: cfg.Auth.RefreshTokenTTL,
		Google: auth.GoogleConfig{
			ClientID:             cfg.Auth.Google.ClientID,
			ClientSecret:         cfg.Auth.Google.ClientSecret,
			RedirectURL:          cfg.Auth.Google.RedirectURL,
			PostLoginRedirectURL: cfg.Auth.Google.PostLoginRedirectURL,
		},
	}
}

func provideAuthRepository(cfg *config.Config, logger *slog.Logger) auth.Repository {
	fallback := userrepo.NewMemoryRepository()
	dsn := strings.TrimSpace(cfg.Auth.Postgres.DSN)
	if dsn == "" {
		logger.Info("auth postgres dsn not set, using memory repository")
		return fallback
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory repository", "error", err)
		return fallback
	}
	if cfg.Auth.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Auth.Postgres.MaxConns
	}
	if cfg.Auth.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Auth.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory repository", "error", err)
		return fallback
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory repository", "error", err)
		pool.Close()
		return fallback
	}
	repo := userrepo.NewPostgresRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Error("postgres schema setup failed, using memory repository", "error", err)
		pool.Close()
		return fallback
	}
	logger.Info("auth postgres repository enabled")
	return repo
}

func provideSessionStore(cfg *config.Config, logger *slog.Logger) auth.SessionStore {
	if cfg.Auth.Sessions.Enabled {
		if client, ok := connectValkey(cfg.Auth.Sessions, logger); ok {
			logger.Info("session valkey store enabled", "addr", cfg.Auth.Sessions.Addr)
			return sessionstore.NewValkeyStore(client, "session")
		}
		logger.Warn("session store falling back to memory store")
	}
	return sessionstore.NewMemoryStore()
}

func provideJanitor(cfg *config.Config, cache geo.Cache, sessions auth.SessionStore, logger *slog.Logger) *janitor.Janitor {
	var targets []janitor.Target
	if pruner, ok := cache.(janitor.Pruner); ok {
		targets = append(targets, janitor.Target{Name: "geocode_cache", Pruner: pruner})
	}
	if pruner, ok := sessions.(janitor.Pruner); ok {
		targets = append(targets, janitor.Target{Name: "sessions", Pruner: pruner})
	}
	return janitor.New(cfg.Janitor.Interval, logger, targets...)
}

func connectValkey(cfg config.ValkeyConfig, logger *slog.Logger) (valkey.Client, bool) {
	opt, err := buildValkeyOptions(cfg.Addr)
	if err != nil {
		logger.Error("invalid valkey configuration", "error", err)
		return nil, false
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client", "error", err)
		return nil, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed", "addr", cfg.Addr, "error", err)
		client.Close()
		return nil, false
	}
	return client, true
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.TrimSpace(addr) == "" {
		return valkey.ClientOption{}, fmt.Errorf("valkey address is empty")
	}
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}
