package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/yanqian/weather-fortune/internal/domain/advisory"
	"github.com/yanqian/weather-fortune/internal/domain/geo"
	apperrors "github.com/yanqian/weather-fortune/pkg/errors"
)

const (
	defaultGeoBaseURL  = "https://api.openweathermap.org/geo/1.0"
	defaultDataBaseURL = "https://api.openweathermap.org/data/2.5"

	callGeocode    = "geocode"
	callWeather    = "weather"
	callAirQuality = "air_quality"

	maxBodyBytes = 1 << 20
)

// Error codes surfaced to the advisory service.
const (
	CodeGeocodeFailed    = "geocode_failed"
	CodeWeatherFailed    = "weather_fetch_failed"
	CodeAirQualityFailed = "air_quality_fetch_failed"
)

var errNotConfigured = errors.New("openweather api key is not configured")

// Config holds provider endpoints, credentials and resilience settings.
type Config struct {
	APIKey      string
	GeoBaseURL  string
	DataBaseURL string
	Timeout     time.Duration
	CacheTTL    time.Duration
	Breaker     BreakerConfig
}

// BreakerConfig tunes the per-endpoint circuit breakers.
type BreakerConfig struct {
	MaxRequests         uint32
	Interval            time.Duration
	OpenTimeout         time.Duration
	ConsecutiveFailures uint32
}

// Recorder receives provider call telemetry.
type Recorder interface {
	ObserveUpstream(call string, err error, rtt time.Duration)
	IncCacheLookup(hit bool)
}

// Client resolves locations and fetches current weather and air pollution
// from OpenWeather. The three calls run sequentially and are never retried.
type Client struct {
	cfg        Config
	httpClient *http.Client
	cache      geo.Cache
	recorder   Recorder
	breakers   map[string]*gobreaker.CircuitBreaker
	logger     *slog.Logger
}

// NewClient builds an API client. cache and recorder may be nil.
func NewClient(cfg Config, cache geo.Cache, recorder Recorder, logger *slog.Logger) *Client {
	cfg.GeoBaseURL = normalizeBaseURL(cfg.GeoBaseURL, defaultGeoBaseURL)
	cfg.DataBaseURL = normalizeBaseURL(cfg.DataBaseURL, defaultDataBaseURL)
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      cache,
		recorder:   recorder,
		breakers: map[string]*gobreaker.CircuitBreaker{
			callGeocode:    newBreaker(callGeocode, cfg.Breaker),
			callWeather:    newBreaker(callWeather, cfg.Breaker),
			callAirQuality: newBreaker(callAirQuality, cfg.Breaker),
		},
		logger: logger.With("component", "openweather.client"),
	}
}

func normalizeBaseURL(raw, fallback string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = fallback
	}
	return strings.TrimRight(trimmed, "/")
}

func newBreaker(call string, cfg BreakerConfig) *gobreaker.CircuitBreaker {
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather-" + call,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	})
}

// Current implements advisory.WeatherProvider.
func (c *Client) Current(ctx context.Context, location string) (advisory.WeatherReading, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return advisory.WeatherReading{}, apperrors.Wrap(CodeGeocodeFailed, "Failed to geocode location", errNotConfigured)
	}

	place, err := c.resolve(ctx, location)
	if err != nil {
		return advisory.WeatherReading{}, err
	}

	current, err := c.fetchWeather(ctx, place)
	if err != nil {
		return advisory.WeatherReading{}, apperrors.Wrap(CodeWeatherFailed, "Weather fetch failed", err)
	}

	air, err := c.fetchAirPollution(ctx, place)
	if err != nil {
		return advisory.WeatherReading{}, apperrors.Wrap(CodeAirQualityFailed, "Air quality fetch failed", err)
	}

	aqi := air.aqi()
	return advisory.WeatherReading{
		TempC:        current.tempC(),
		AQI:          aqi,
		AQILabel:     advisory.AQILabel(aqi),
		Humidity:     current.humidity(),
		Condition:    current.condition(),
		ResolvedName: place.DisplayName(),
	}, nil
}

func (c *Client) resolve(ctx context.Context, location string) (geo.Place, error) {
	key := geo.CacheKey(location)
	if c.cache != nil {
		place, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			c.logger.Warn("geocode cache read failed", "key", key, "error", err)
		}
		if c.recorder != nil {
			c.recorder.IncCacheLookup(ok)
		}
		if ok {
			return place, nil
		}
	}

	place, err := c.geocode(ctx, location)
	if err != nil {
		return geo.Place{}, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, place, c.cfg.CacheTTL); err != nil {
			c.logger.Warn("geocode cache write failed", "key", key, "error", err)
		}
	}
	return place, nil
}

func (c *Client) geocode(ctx context.Context, location string) (geo.Place, error) {
	params := url.Values{}
	params.Set("q", location)
	params.Set("limit", "1")
	params.Set("appid", c.cfg.APIKey)

	var body json.RawMessage
	if err := c.getJSON(ctx, callGeocode, c.cfg.GeoBaseURL+"/direct", params, &body); err != nil {
		return geo.Place{}, apperrors.Wrap(CodeGeocodeFailed, "Failed to geocode location", err)
	}
	first, ok := firstGeocodeResult(body)
	if !ok {
		return geo.Place{}, apperrors.Wrap(CodeGeocodeFailed, "Location not found", nil)
	}
	return geo.Place{
		Lat:     first.Lat,
		Lon:     first.Lon,
		Name:    first.Name,
		State:   first.State,
		Country: first.Country,
	}, nil
}

func (c *Client) fetchWeather(ctx context.Context, place geo.Place) (weatherPayload, error) {
	params := coordinateParams(place, c.cfg.APIKey)
	params.Set("units", "metric")

	var payload weatherPayload
	if err := c.getJSON(ctx, callWeather, c.cfg.DataBaseURL+"/weather", params, &payload); err != nil {
		return weatherPayload{}, err
	}
	return payload, nil
}

func (c *Client) fetchAirPollution(ctx context.Context, place geo.Place) (airPayload, error) {
	var payload airPayload
	if err := c.getJSON(ctx, callAirQuality, c.cfg.DataBaseURL+"/air_pollution", coordinateParams(place, c.cfg.APIKey), &payload); err != nil {
		return airPayload{}, err
	}
	return payload, nil
}

func coordinateParams(place geo.Place, apiKey string) url.Values {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(place.Lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(place.Lon, 'f', -1, 64))
	params.Set("appid", apiKey)
	return params
}

func (c *Client) getJSON(ctx context.Context, call, endpoint string, params url.Values, out any) error {
	start := time.Now()
	body, err := c.breakers[call].Execute(func() (interface{}, error) {
		return c.do(ctx, endpoint+"?"+params.Encode())
	})
	if err == nil {
		if decodeErr := json.Unmarshal(body.([]byte), out); decodeErr != nil {
			err = fmt.Errorf("decode %s response: %w", call, decodeErr)
		}
	}
	if c.recorder != nil {
		c.recorder.ObserveUpstream(call, err, time.Since(start))
	}
	if err != nil {
		c.logger.Error("openweather call failed", "call", call, "error", err)
	}
	return err
}

func (c *Client) do(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error repeats the endpoint, which carries the api key.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("request error: status=%d body=%s", resp.StatusCode, string(payload))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("response exceeds %d bytes", maxBodyBytes)
	}
	return body, nil
}

var _ advisory.WeatherProvider = (*Client)(nil)
