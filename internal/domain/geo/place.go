package geo

import (
	"context"
	"strings"
	"time"
)

// Place is a geocoded location.
type Place struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Name    string  `json:"name"`
	State   string  `json:"state,omitempty"`
	Country string  `json:"country,omitempty"`
}

// DisplayName joins name, state and country, skipping blank parts.
func (p Place) DisplayName() string {
	parts := make([]string, 0, 3)
	for _, part := range []string{p.Name, p.State, p.Country} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ", ")
}

// Cache stores geocoding results keyed by the normalized query.
type Cache interface {
	Get(ctx context.Context, key string) (Place, bool, error)
	Set(ctx context.Context, key string, place Place, ttl time.Duration) error
}

// CacheKey normalizes a free-text location so that spacing and case
// differences share one cache entry.
func CacheKey(location string) string {
	return strings.ToLower(strings.Join(strings.Fields(location), " "))
}
