package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vuthy55/studio-sub006/internal/config"
	"github.com/vuthy55/studio-sub006/internal/models"
)

func setupTestCache(t *testing.T, ttl time.Duration) (*SettingsCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return NewSettingsCache(client, ttl), mr
}

func TestSettingsCache_MissThenHit(t *testing.T) {
	c, _ := setupTestCache(t, time.Minute)
	ctx := context.Background()

	got, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	settings := &models.AppSettings{SignupBonus: 100, ReferralBonus: 20, PracticeThreshold: 80}
	require.NoError(t, c.Set(ctx, settings))

	got, err = c.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(100), got.SignupBonus)
	assert.Equal(t, int64(20), got.ReferralBonus)
	assert.Equal(t, 80.0, got.PracticeThreshold)
}

func TestSettingsCache_Expires(t *testing.T) {
	c, mr := setupTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, &models.AppSettings{SignupBonus: 5}))
	mr.FastForward(2 * time.Minute)

	got, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSettingsCache_Invalidate(t *testing.T) {
	c, mr := setupTestCache(t, 0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, &models.AppSettings{SignupBonus: 5}))
	assert.True(t, mr.Exists(settingsKey))

	require.NoError(t, c.Invalidate(ctx))
	assert.False(t, mr.Exists(settingsKey))
}

func TestSettingsCache_CorruptEntryIsMiss(t *testing.T) {
	c, mr := setupTestCache(t, time.Minute)

	require.NoError(t, mr.Set(settingsKey, "not-json"))

	got, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, mr.Exists(settingsKey))
}

func TestSettingsCache_UnreachableServer(t *testing.T) {
	c, mr := setupTestCache(t, time.Minute)
	mr.Close()

	_, err := c.Get(context.Background())
	assert.Error(t, err)
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Server().Addr()
	mr.Close()

	_, err = NewRedisClient(&config.RedisConfig{Host: addr.IP.String(), Port: addr.Port})
	assert.Error(t, err)
}

func TestNewRedisClient_Connects(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	addr := mr.Server().Addr()
	client, err := NewRedisClient(&config.RedisConfig{Host: addr.IP.String(), Port: addr.Port})
	require.NoError(t, err)
	client.Close()
}
