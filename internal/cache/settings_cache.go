// Package cache holds the Redis-backed read-through cache for the economy settings.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vuthy55/studio-sub006/internal/config"
	"github.com/vuthy55/studio-sub006/internal/models"
)

const settingsKey = "settings:app"

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// SettingsCache caches the singleton AppSettings row
type SettingsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSettingsCache creates a settings cache; a non-positive ttl keeps entries until invalidated
func NewSettingsCache(client *redis.Client, ttl time.Duration) *SettingsCache {
	if ttl < 0 {
		ttl = 0
	}
	return &SettingsCache{client: client, ttl: ttl}
}

// Get returns the cached settings, or nil on a miss
func (c *SettingsCache) Get(ctx context.Context) (*models.AppSettings, error) {
	raw, err := c.client.Get(ctx, settingsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached settings: %w", err)
	}

	var settings models.AppSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		// A corrupt entry is treated as a miss and dropped
		_ = c.client.Del(ctx, settingsKey).Err()
		return nil, nil
	}
	return &settings, nil
}

// Set stores settings under the cache key
func (c *SettingsCache) Set(ctx context.Context, settings *models.AppSettings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := c.client.Set(ctx, settingsKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache settings: %w", err)
	}
	return nil
}

// Invalidate drops the cached settings
func (c *SettingsCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, settingsKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate settings: %w", err)
	}
	return nil
}
