package settings

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Cache holds the decoded settings between writes. Set must ignore a value
// whose Revision is lower than the one held, so a slow reader can't put back
// settings an update has replaced. Implementations must be safe for
// concurrent use.
type Cache interface {
	Get(ctx context.Context) (NotificationSettings, bool)
	Set(ctx context.Context, v NotificationSettings)
}

type MemoryCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	value   *NotificationSettings
	expires time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, now: time.Now}
}

func (c *MemoryCache) Get(ctx context.Context) (NotificationSettings, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.value == nil || !c.now().Before(c.expires) {
		return NotificationSettings{}, false
	}
	return *c.value, true
}

// Set keeps the held value past expiry so its revision still guards
// against older writes.
func (c *MemoryCache) Set(ctx context.Context, v NotificationSettings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.value != nil && v.Revision < c.value.Revision {
		return
	}
	c.value = &v
	c.expires = c.now().Add(c.ttl)
}

const SettingsCacheKey = "settings:notifications"

// RedisCache shares settings across gateway replicas. Redis errors are
// treated as cache misses.
type RedisCache struct {
	redis *redis.Client
	ttl   time.Duration
	log   *zap.Logger
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration, log *zap.Logger) *RedisCache {
	return &RedisCache{redis: rdb, ttl: ttl, log: log}
}

func (c *RedisCache) Get(ctx context.Context) (NotificationSettings, bool) {
	raw, err := c.redis.Get(ctx, SettingsCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("settings cache read failed", zap.Error(err))
		}
		return NotificationSettings{}, false
	}

	var v NotificationSettings
	if err := json.Unmarshal(raw, &v); err != nil {
		return NotificationSettings{}, false
	}
	return v, true
}

func (c *RedisCache) Set(ctx context.Context, v NotificationSettings) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}

	err = c.redis.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, SettingsCacheKey).Bytes()
		if err != nil && err != redis.Nil {
			return err
		}
		if err == nil {
			var held NotificationSettings
			if json.Unmarshal(raw, &held) == nil && held.Revision > v.Revision {
				return nil
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, SettingsCacheKey, payload, c.ttl)
			return nil
		})
		return err
	}, SettingsCacheKey)

	// TxFailedErr means another writer got there first; its value wins.
	if err != nil && err != redis.TxFailedErr {
		c.log.Warn("settings cache write failed", zap.Error(err))
	}
}
