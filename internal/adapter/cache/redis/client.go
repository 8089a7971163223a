// Package redis holds the Redis client and the cross-instance presence
// mirror used when the notifier runs horizontally sharded.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewClient builds a Redis client for the given address.
func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: addr,
	})
}

const presenceKeyPrefix = "notify:presence:"

// PresenceMirror publishes local online/offline transitions to Redis so
// other instances (and presence indicators served elsewhere) can see them.
// Keys carry a TTL as a safety net against crashed instances leaking
// phantom online users.
type PresenceMirror struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPresenceMirror builds a mirror with the given key TTL.
func NewPresenceMirror(client *redis.Client, ttl time.Duration) *PresenceMirror {
	if ttl <= 0 {
		ttl = 90 * time.Second
	}
	return &PresenceMirror{client: client, ttl: ttl}
}

func (m *PresenceMirror) SetOnline(ctx context.Context, userID string, at time.Time) error {
	return m.client.Set(ctx, presenceKeyPrefix+userID, at.UTC().Format(time.RFC3339), m.ttl).Err()
}

func (m *PresenceMirror) SetOffline(ctx context.Context, userID string) error {
	return m.client.Del(ctx, presenceKeyPrefix+userID).Err()
}

// IsOnline checks the mirror for a user connected to any instance.
func (m *PresenceMirror) IsOnline(ctx context.Context, userID string) (bool, error) {
	n, err := m.client.Exists(ctx, presenceKeyPrefix+userID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
