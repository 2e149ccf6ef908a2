package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// PageTTL bounds how long a fetched page body is reused before the
// source site is hit again.
const PageTTL = 10 * time.Minute

// RedisCache handles caching of fetched schedule pages
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache connection
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisCache{
		client: client,
	}, nil
}

// Close closes the Redis connection
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}

// Client returns the underlying Redis client
func (rc *RedisCache) Client() *redis.Client {
	return rc.client
}

// HealthCheck pings Redis to verify connection
func (rc *RedisCache) HealthCheck(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// GetPage returns a cached page body, or "" when absent
func (rc *RedisCache) GetPage(ctx context.Context, url string) (string, error) {
	body, err := rc.client.Get(ctx, pageKey(url)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return body, err
}

// SetPage stores a page body under the page TTL
func (rc *RedisCache) SetPage(ctx context.Context, url, body string) error {
	return rc.client.Set(ctx, pageKey(url), body, PageTTL).Err()
}

func pageKey(url string) string {
	return "page:usclublax:" + url
}
