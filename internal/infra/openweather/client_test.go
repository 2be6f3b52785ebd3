package openweather

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/weather-fortune/internal/domain/geo"
	apperrors "github.com/yanqian/weather-fortune/pkg/errors"
)

func TestClientCurrentSuccess(t *testing.T) {
	upstream := newFakeUpstream(t)
	upstream.geocode = `[{"name":"Phoenix","lat":33.45,"lon":-112.07,"country":"US","state":"Arizona"}]`
	upstream.weather = `{"main":{"temp":36.5,"humidity":12.4},"weather":[{"main":"Clear","description":"clear sky"}]}`
	upstream.air = `{"list":[{"main":{"aqi":4}}]}`
	srv := upstream.start()
	defer srv.Close()

	client := newTestClient(srv.URL, nil, nil)
	reading, err := client.Current(context.Background(), "Phoenix")
	require.NoError(t, err)

	require.Equal(t, 37, reading.TempC)
	require.Equal(t, 12, reading.Humidity)
	require.Equal(t, 4, reading.AQI)
	require.Equal(t, "Poor", reading.AQILabel)
	require.Equal(t, "clear sky", reading.Condition)
	require.Equal(t, "Phoenix, Arizona, US", reading.ResolvedName)

	require.Equal(t, []string{"/geo/direct", "/data/weather", "/data/air_pollution"}, upstream.paths())
	geoQuery := upstream.queries[0]
	require.Equal(t, "Phoenix", geoQuery.Get("q"))
	require.Equal(t, "1", geoQuery.Get("limit"))
	require.Equal(t, "test-key", geoQuery.Get("appid"))
	weatherQuery := upstream.queries[1]
	require.Equal(t, "33.45", weatherQuery.Get("lat"))
	require.Equal(t, "-112.07", weatherQuery.Get("lon"))
	require.Equal(t, "metric", weatherQuery.Get("units"))
	require.Equal(t, "", upstream.queries[2].Get("units"))
}

func TestClientCurrentLenientDefaults(t *testing.T) {
	cases := []struct {
		name    string
		weather string
		air     string
	}{
		{name: "null and text leaves", weather: `{"main":{"temp":null,"humidity":"n/a"},"weather":[]}`, air: `{"list":[]}`},
		{name: "weather object instead of array", weather: `{"main":{},"weather":{}}`, air: `{"list":{}}`},
		{name: "main as string", weather: `{"main":"oops","weather":"sunny"}`, air: `{"list":[{"main":"oops"}]}`},
		{name: "wrong element types", weather: `{"main":[1,2],"weather":[{"main":5,"description":false}]}`, air: `{"list":[7]}`},
		{name: "non-object bodies", weather: `[]`, air: `"none"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			upstream := newFakeUpstream(t)
			upstream.geocode = `[{"name":"Nowhere","lat":0,"lon":0}]`
			upstream.weather = tc.weather
			upstream.air = tc.air
			srv := upstream.start()
			defer srv.Close()

			reading, err := newTestClient(srv.URL, nil, nil).Current(context.Background(), "Nowhere")
			require.NoError(t, err)
			require.Equal(t, 0, reading.TempC)
			require.Equal(t, 0, reading.Humidity)
			require.Equal(t, 1, reading.AQI)
			require.Equal(t, "Good", reading.AQILabel)
			require.Equal(t, "Clear", reading.Condition)
			require.Equal(t, "Nowhere", reading.ResolvedName)
		})
	}
}

func TestClientCurrentFractionalAQIDefaultsToGood(t *testing.T) {
	upstream := newFakeUpstream(t)
	upstream.geocode = `[{"name":"Delhi","lat":28.6,"lon":77.2,"country":"IN"}]`
	upstream.weather = `{"main":{"temp":30,"humidity":40}}`
	upstream.air = `{"list":[{"main":{"aqi":4.5}}]}`
	srv := upstream.start()
	defer srv.Close()

	reading, err := newTestClient(srv.URL, nil, nil).Current(context.Background(), "Delhi")
	require.NoError(t, err)
	require.Equal(t, 1, reading.AQI)
	require.Equal(t, "Good", reading.AQILabel)
}

func TestClientCurrentConditionFallsBackToMain(t *testing.T) {
	upstream := newFakeUpstream(t)
	upstream.geocode = `[{"name":"Oslo","lat":59.9,"lon":10.7,"country":"NO"}]`
	upstream.weather = `{"main":{"temp":"-2.5"},"weather":[{"main":"Snow"}]}`
	upstream.air = `{"list":[{"main":{"aqi":2}}]}`
	srv := upstream.start()
	defer srv.Close()

	reading, err := newTestClient(srv.URL, nil, nil).Current(context.Background(), "Oslo")
	require.NoError(t, err)
	require.Equal(t, -2, reading.TempC)
	require.Equal(t, "Snow", reading.Condition)
	require.Equal(t, "Fair", reading.AQILabel)
}

func TestClientCurrentFailures(t *testing.T) {
	cases := []struct {
		name    string
		setup   func(u *fakeUpstream)
		code    string
		message string
		calls   int
	}{
		{
			name:    "geocode status",
			setup:   func(u *fakeUpstream) { u.geocodeStatus = http.StatusUnauthorized },
			code:    CodeGeocodeFailed,
			message: "Failed to geocode location",
			calls:   1,
		},
		{
			name:    "geocode empty",
			setup:   func(u *fakeUpstream) { u.geocode = `[]` },
			code:    CodeGeocodeFailed,
			message: "Location not found",
			calls:   1,
		},
		{
			name:    "geocode error object",
			setup:   func(u *fakeUpstream) { u.geocode = `{"cod":"400","message":"Nothing to geocode"}` },
			code:    CodeGeocodeFailed,
			message: "Location not found",
			calls:   1,
		},
		{
			name:    "geocode non-object entry",
			setup:   func(u *fakeUpstream) { u.geocode = `["Rome"]` },
			code:    CodeGeocodeFailed,
			message: "Location not found",
			calls:   1,
		},
		{
			name:    "weather status",
			setup:   func(u *fakeUpstream) { u.weatherStatus = http.StatusInternalServerError },
			code:    CodeWeatherFailed,
			message: "Weather fetch failed",
			calls:   2,
		},
		{
			name:    "weather body too large",
			setup:   func(u *fakeUpstream) { u.weather = `{"pad":"` + strings.Repeat("x", maxBodyBytes) + `"}` },
			code:    CodeWeatherFailed,
			message: "Weather fetch failed",
			calls:   2,
		},
		{
			name:    "air status",
			setup:   func(u *fakeUpstream) { u.airStatus = http.StatusBadGateway },
			code:    CodeAirQualityFailed,
			message: "Air quality fetch failed",
			calls:   3,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			upstream := newFakeUpstream(t)
			upstream.geocode = `[{"name":"Rome","lat":41.9,"lon":12.5,"country":"IT"}]`
			upstream.weather = `{"main":{"temp":20,"humidity":50}}`
			upstream.air = `{"list":[{"main":{"aqi":1}}]}`
			tc.setup(upstream)
			srv := upstream.start()
			defer srv.Close()

			_, err := newTestClient(srv.URL, nil, nil).Current(context.Background(), "Rome")
			require.Error(t, err)
			require.True(t, apperrors.IsCode(err, tc.code), "got %v", err)
			require.Equal(t, tc.message, apperrors.MessageOf(err))
			require.Len(t, upstream.paths(), tc.calls, "failures must not be retried")
		})
	}
}

func TestClientCurrentWithoutAPIKey(t *testing.T) {
	client := NewClient(Config{}, nil, nil, newTestLogger())
	_, err := client.Current(context.Background(), "Rome")
	require.True(t, apperrors.IsCode(err, CodeGeocodeFailed))
}

func TestClientGeocodeCache(t *testing.T) {
	upstream := newFakeUpstream(t)
	upstream.geocode = `[{"name":"Lima","lat":-12.04,"lon":-77.03,"country":"PE"}]`
	upstream.weather = `{"main":{"temp":18,"humidity":80}}`
	upstream.air = `{"list":[{"main":{"aqi":2}}]}`
	srv := upstream.start()
	defer srv.Close()

	cache := &mapCache{entries: map[string]geo.Place{}}
	recorder := &stubRecorder{}
	client := newTestClient(srv.URL, cache, recorder)

	_, err := client.Current(context.Background(), "Lima")
	require.NoError(t, err)
	reading, err := client.Current(context.Background(), "  lima ")
	require.NoError(t, err)
	require.Equal(t, "Lima, PE", reading.ResolvedName)

	require.Equal(t, []string{"/geo/direct", "/data/weather", "/data/air_pollution", "/data/weather", "/data/air_pollution"}, upstream.paths())
	require.Equal(t, time.Hour, cache.lastTTL)
	require.Equal(t, []bool{false, true}, recorder.lookups)
	require.Len(t, recorder.calls, 5)
}

func TestClientBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	upstream := newFakeUpstream(t)
	upstream.geocodeStatus = http.StatusServiceUnavailable
	srv := upstream.start()
	defer srv.Close()

	client := NewClient(Config{
		APIKey:      "test-key",
		GeoBaseURL:  srv.URL + "/geo",
		DataBaseURL: srv.URL + "/data",
		Breaker:     BreakerConfig{ConsecutiveFailures: 2, OpenTimeout: time.Minute},
	}, nil, nil, newTestLogger())

	for i := 0; i < 3; i++ {
		_, err := client.Current(context.Background(), "Rome")
		require.True(t, apperrors.IsCode(err, CodeGeocodeFailed))
	}
	require.Len(t, upstream.paths(), 2)
}

func TestLenientNumber(t *testing.T) {
	cases := []struct {
		raw   string
		valid bool
		value float64
	}{
		{raw: `12.5`, valid: true, value: 12.5},
		{raw: `"7"`, valid: true, value: 7},
		{raw: `null`},
		{raw: `"abc"`},
		{raw: `{"x":1}`},
		{raw: `true`},
	}
	for _, tc := range cases {
		var n lenientNumber
		require.NoError(t, json.Unmarshal([]byte(tc.raw), &n), tc.raw)
		require.Equal(t, tc.valid, n.valid, tc.raw)
		require.Equal(t, tc.value, n.value, tc.raw)
	}
}

func TestAirPayloadAQI(t *testing.T) {
	cases := map[string]int{
		`{"list":[{"main":{"aqi":3}}]}`:     3,
		`{"list":[{"main":{"aqi":"5"}}]}`:   5,
		`{"list":[{"main":{"aqi":2.0}}]}`:   2,
		`{"list":[{"main":{"aqi":4.5}}]}`:   1,
		`{"list":[{"main":{"aqi":1e300}}]}`: 1,
		`{"list":[{"main":{}}]}`:            1,
	}
	for raw, want := range cases {
		var p airPayload
		require.NoError(t, json.Unmarshal([]byte(raw), &p), raw)
		require.Equal(t, want, p.aqi(), raw)
	}
}

func TestRoundHalfUp(t *testing.T) {
	require.Equal(t, 3, roundHalfUp(2.5))
	require.Equal(t, -2, roundHalfUp(-2.5))
	require.Equal(t, -3, roundHalfUp(-2.6))
	require.Equal(t, 0, roundHalfUp(0.49))
}

type fakeUpstream struct {
	t             *testing.T
	mu            sync.Mutex
	requests      []string
	queries       []url.Values
	geocode       string
	weather       string
	air           string
	geocodeStatus int
	weatherStatus int
	airStatus     int
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	return &fakeUpstream{t: t}
}

func (u *fakeUpstream) start() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		u.requests = append(u.requests, r.URL.Path)
		u.queries = append(u.queries, r.URL.Query())
		u.mu.Unlock()

		var (
			status int
			body   string
		)
		switch r.URL.Path {
		case "/geo/direct":
			status, body = u.geocodeStatus, u.geocode
		case "/data/weather":
			status, body = u.weatherStatus, u.weather
		case "/data/air_pollution":
			status, body = u.airStatus, u.air
		default:
			status = http.StatusNotFound
		}
		if status == 0 {
			status = http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
}

func (u *fakeUpstream) paths() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]string, len(u.requests))
	copy(out, u.requests)
	return out
}

func newTestClient(baseURL string, cache geo.Cache, recorder Recorder) *Client {
	return NewClient(Config{
		APIKey:      "test-key",
		GeoBaseURL:  baseURL + "/geo/",
		DataBaseURL: baseURL + "/data",
		Timeout:     2 * time.Second,
		CacheTTL:    time.Hour,
	}, cache, recorder, newTestLogger())
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mapCache struct {
	entries map[string]geo.Place
	lastTTL time.Duration
}

func (c *mapCache) Get(_ context.Context, key string) (geo.Place, bool, error) {
	place, ok := c.entries[key]
	return place, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, place geo.Place, ttl time.Duration) error {
	c.entries[key] = place
	c.lastTTL = ttl
	return nil
}

type stubRecorder struct {
	calls   []string
	lookups []bool
}

func (s *stubRecorder) ObserveUpstream(call string, err error, rtt time.Duration) {
	s.calls = append(s.calls, call)
}

func (s *stubRecorder) IncCacheLookup(hit bool) {
	s.lookups = append(s.lookups, hit)
}
