package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"salon-booking/internal/pkg/config"
	"salon-booking/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// absentMarker caches "no such setting" so missing keys do not hit the database on every request.
const absentMarker = "\x00absent"

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// SettingsCache is a read-through cache in front of a SettingsStore.
// Redis failures fall through to the underlying store.
type SettingsCache struct {
	next   shared.SettingsStore
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewSettingsCache(next shared.SettingsStore, client *redis.Client, ttl time.Duration, logger *slog.Logger) *SettingsCache {
	return &SettingsCache{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func settingsKey(tenantID uuid.UUID, key string) string {
	return fmt.Sprintf("settings:%s:%s", tenantID, key)
}

func (c *SettingsCache) Get(ctx context.Context, tenantID uuid.UUID, key string) ([]byte, bool, error) {
	cacheKey := settingsKey(tenantID, key)

	val, err := c.client.Get(ctx, cacheKey).Bytes()
	switch {
	case err == nil:
		if string(val) == absentMarker {
			return nil, false, nil
		}
		return val, true, nil
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("settings cache read failed", "key", cacheKey, "error", err.Error())
	}

	value, found, err := c.next.Get(ctx, tenantID, key)
	if err != nil {
		return nil, false, err
	}

	stored := value
	if !found {
		stored = []byte(absentMarker)
	}
	if err := c.client.Set(ctx, cacheKey, stored, c.ttl).Err(); err != nil {
		c.logger.Warn("settings cache write failed", "key", cacheKey, "error", err.Error())
	}
	return value, found, nil
}

// Invalidate drops a cached setting after it is changed.
func (c *SettingsCache) Invalidate(ctx context.Context, tenantID uuid.UUID, key string) error {
	if err := c.client.Del(ctx, settingsKey(tenantID, key)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate setting: %w", err)
	}
	return nil
}
