package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connect initializes a Redis client from URL or host:port input.
// Supporting both formats keeps local/dev and container config paths simple.
func Connect(_ context.Context, redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") {
		opt, parseErr := redis.ParseURL(redisURL)
		if parseErr != nil {
			return nil, fmt.Errorf("parse redis url: %w", parseErr)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// RedisRecentEventsCache fronts the recent-events query with a short TTL.
// The consumer worker invalidates it whenever a new event lands, so readers
// see fresh data without hammering postgres on every poll.
type RedisRecentEventsCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRecentEventsCache(client *redis.Client, ttl time.Duration) *RedisRecentEventsCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisRecentEventsCache{client: client, ttl: ttl}
}

const recentEventsKeyPrefix = "cdc:recent_events:"

func (c *RedisRecentEventsCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := c.client.Get(ctx, recentEventsKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (c *RedisRecentEventsCache) Set(ctx context.Context, key string, payload []byte) error {
	return c.client.Set(ctx, recentEventsKeyPrefix+key, payload, c.ttl).Err()
}

func (c *RedisRecentEventsCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, recentEventsKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
