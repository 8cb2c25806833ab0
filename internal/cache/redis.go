package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/studysync/tutormatch/internal/config"
)

// AdmirerCountTTL bounds how long a cached "swipes on me" count lives
// without being touched.
const AdmirerCountTTL = time.Hour

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, keys ...string) error {
	return c.Client.Del(ctx, keys...).Err()
}

func (c *RedisCache) Incr(ctx context.Context, key string) (int64, error) {
	return c.Client.Incr(ctx, key).Result()
}

// KeyForAdmirerCount generates the Redis key for the number of pending
// swipes targeting a user.
func (c *RedisCache) KeyForAdmirerCount(userID uint64) string {
	return fmt.Sprintf("admirers:count:%d", userID)
}

// GetAdmirerCount reads the cached count, refreshing the TTL on
// access. A cache miss returns ok=false rather than an error.
func (c *RedisCache) GetAdmirerCount(ctx context.Context, userID uint64) (int64, bool, error) {
	key := c.KeyForAdmirerCount(userID)
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	_ = c.Client.Expire(ctx, key, AdmirerCountTTL).Err()
	return n, true, nil
}

// SetAdmirerCount writes the count with a fresh TTL.
func (c *RedisCache) SetAdmirerCount(ctx context.Context, userID uint64, count int64) error {
	return c.Client.Set(ctx, c.KeyForAdmirerCount(userID), count, AdmirerCountTTL).Err()
}

// InvalidateAdmirerCounts drops the cached counts for the given users,
// e.g. after a swipe is consumed into a match or an account is
// deleted.
func (c *RedisCache) InvalidateAdmirerCounts(ctx context.Context, userIDs ...uint64) error {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, c.KeyForAdmirerCount(id))
	}
	return c.Client.Del(ctx, keys...).Err()
}
