package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/servicedeskhq/notify/internal/domain"
	"github.com/servicedeskhq/notify/internal/pkg/logger"
	"github.com/servicedeskhq/notify/internal/port"
)

// UserStoreCached is a read-through Redis cache over a UserStore. Preference
// and locale reads sit on the dispatch hot path and change rarely, so short
// TTLs keep the backing store out of most dispatches. Cache failures fall
// back to the base store.
type UserStoreCached struct {
	base  port.UserStore
	redis *redis.Client
	ttl   time.Duration
}

type cachedPreference struct {
	Found bool                   `json:"found"`
	Pref  port.ChannelPreference `json:"pref"`
}

// NewUserStoreCached wraps base with a Redis cache.
func NewUserStoreCached(base port.UserStore, client *redis.Client, ttl time.Duration) *UserStoreCached {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &UserStoreCached{base: base, redis: client, ttl: ttl}
}

func (c *UserStoreCached) GetNotificationPreference(ctx context.Context, userID string, kind domain.Kind) (port.ChannelPreference, bool, error) {
	key := fmt.Sprintf("notify:pref:%s:%s", userID, kind)
	if raw, err := c.redis.Get(ctx, key).Result(); err == nil {
		var cached cachedPreference
		if json.Unmarshal([]byte(raw), &cached) == nil {
			return cached.Pref, cached.Found, nil
		}
	}

	pref, found, err := c.base.GetNotificationPreference(ctx, userID, kind)
	if err != nil {
		return pref, found, err
	}
	if raw, err := json.Marshal(cachedPreference{Found: found, Pref: pref}); err == nil {
		if err := c.redis.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			logger.From(ctx).Warn("preference cache write failed", slog.Any("error", err))
		}
	}
	return pref, found, nil
}

func (c *UserStoreCached) GetLocale(ctx context.Context, userID string) (string, error) {
	key := "notify:locale:" + userID
	if val, err := c.redis.Get(ctx, key).Result(); err == nil {
		return val, nil
	}

	locale, err := c.base.GetLocale(ctx, userID)
	if err != nil {
		return "", err
	}
	if err := c.redis.Set(ctx, key, locale, c.ttl).Err(); err != nil {
		logger.From(ctx).Warn("locale cache write failed", slog.Any("error", err))
	}
	return locale, nil
}

// GetEmail is not cached: addresses are only read by the email channel after
// the gate already allowed the send.
func (c *UserStoreCached) GetEmail(ctx context.Context, userID string) (string, error) {
	return c.base.GetEmail(ctx, userID)
}
