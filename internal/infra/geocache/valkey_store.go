package geocache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/weather-fortune/internal/domain/geo"
)

// ValkeyStore caches geocoding results in a Valkey-compatible database.
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyStore constructs a new cache backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "geocode"
	}
	return &ValkeyStore{client: client, prefix: prefix}
}

// Get implements geo.Cache.
func (s *ValkeyStore) Get(ctx context.Context, key string) (geo.Place, bool, error) {
	payload, err := s.client.Do(ctx, s.client.B().Get().Key(s.entryKey(key)).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return geo.Place{}, false, nil
		}
		return geo.Place{}, false, err
	}
	var place geo.Place
	if err := json.Unmarshal([]byte(payload), &place); err != nil {
		return geo.Place{}, false, err
	}
	return place, true, nil
}

// Set implements geo.Cache. Valkey expires entries on its own.
func (s *ValkeyStore) Set(ctx context.Context, key string, place geo.Place, ttl time.Duration) error {
	payload, err := json.Marshal(place)
	if err != nil {
		return err
	}
	builder := s.client.B().Set().Key(s.entryKey(key)).Value(string(payload))
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) entryKey(key string) string {
	return fmt.Sprintf("%s:%s", s.prefix, key)
}

var _ geo.Cache = (*ValkeyStore)(nil)
