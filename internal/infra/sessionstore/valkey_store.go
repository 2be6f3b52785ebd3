package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/weather-fortune/internal/domain/auth"
)

// ValkeyStore keeps sessions in Valkey, which expires them at ExpiresAt.
type ValkeyStore struct {
	client valkey.Client
	prefix string
	now    func() time.Time
}

// NewValkeyStore constructs a session store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "session"
	}
	return &ValkeyStore{client: client, prefix: prefix, now: time.Now}
}

// Save implements auth.SessionStore.
func (s *ValkeyStore) Save(ctx context.Context, session auth.Session) error {
	ttl := session.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	cmd := s.client.B().Set().Key(s.key(session.ID)).Value(string(payload)).Ex(ttl).Build()
	return s.client.Do(ctx, cmd).Error()
}

// Get implements auth.SessionStore.
func (s *ValkeyStore) Get(ctx context.Context, id string) (auth.Session, bool, error) {
	payload, err := s.client.Do(ctx, s.client.B().Get().Key(s.key(id)).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return auth.Session{}, false, nil
		}
		return auth.Session{}, false, err
	}
	var session auth.Session
	if err := json.Unmarshal([]byte(payload), &session); err != nil {
		return auth.Session{}, false, err
	}
	return session, true, nil
}

// Delete implements auth.SessionStore.
func (s *ValkeyStore) Delete(ctx context.Context, id string) error {
	return s.client.Do(ctx, s.client.B().Del().Key(s.key(id)).Build()).Error()
}

func (s *ValkeyStore) key(id string) string {
	return fmt.Sprintf("%s:%s", s.prefix, id)
}

var _ auth.SessionStore = (*ValkeyStore)(nil)
