package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/arbdeck/internal/domain"
)

// keyPrefix namespaces every mirror key in a shared Redis instance.
const keyPrefix = "arbdeck:"

// StateMirror implements domain.StateMirror over Redis string keys with
// JSON-encoded values. It is best-effort storage: callers treat every error
// as "no cached value" and fall back to live data.
type StateMirror struct {
	rdb *redis.Client
}

// NewStateMirror creates a StateMirror backed by the given Client.
func NewStateMirror(c *Client) *StateMirror {
	return &StateMirror{rdb: c.Underlying()}
}

// Load unmarshals the stored value for key into out. It returns
// domain.ErrNotFound when the key does not exist.
func (sm *StateMirror) Load(ctx context.Context, key string, out any) error {
	raw, err := sm.rdb.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("redis: load %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("redis: decode %s: %w", key, err)
	}
	return nil
}

// Save stores v under key as JSON, replacing any previous value.
func (sm *StateMirror) Save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("redis: encode %s: %w", key, err)
	}
	if err := sm.rdb.Set(ctx, keyPrefix+key, raw, 0).Err(); err != nil {
		return fmt.Errorf("redis: save %s: %w", key, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.StateMirror = (*StateMirror)(nil)
