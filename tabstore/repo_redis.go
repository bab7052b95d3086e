package tabstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRepo is a Redis-backed implementation of Repo. Each tab maps to one
// hash whose TTL bounds the tab session, so an abandoned tab's state expires
// on its own even when the gateway never sees an explicit teardown.
type RedisRepo struct {
	client *redis.Client
	tabID  string
	ttl    time.Duration
}

// NewRedisRepo creates a tab-scoped view over a shared Redis client.
func NewRedisRepo(client *redis.Client, tabID string, ttl time.Duration) (*RedisRepo, error) {
	if client == nil {
		return nil, fmt.Errorf("[NewRedisRepo] redis client is required")
	}
	if tabID == "" {
		return nil, fmt.Errorf("[NewRedisRepo] tabID is required")
	}

	return &RedisRepo{
		client: client,
		tabID:  tabID,
		ttl:    ttl,
	}, nil
}

func (r *RedisRepo) hashKey() string {
	return "tab:" + r.tabID
}

// Get returns the value for key and whether it was present.
func (r *RedisRepo) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.HGet(ctx, r.hashKey(), key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("[RedisRepo Get] %w", err)
	}
	return v, true, nil
}

// Set stores value under key and refreshes the tab session TTL.
func (r *RedisRepo) Set(ctx context.Context, key, value string) error {
	if err := r.client.HSet(ctx, r.hashKey(), key, value).Err(); err != nil {
		return fmt.Errorf("[RedisRepo Set] %w", err)
	}
	if r.ttl > 0 {
		if err := r.client.Expire(ctx, r.hashKey(), r.ttl).Err(); err != nil {
			return fmt.Errorf("[RedisRepo Set] expire: %w", err)
		}
	}
	return nil
}

// Delete removes key. Removing an absent key is not an error.
func (r *RedisRepo) Delete(ctx context.Context, key string) error {
	if err := r.client.HDel(ctx, r.hashKey(), key).Err(); err != nil {
		return fmt.Errorf("[RedisRepo Delete] %w", err)
	}
	return nil
}

// Clear removes the whole tab hash.
func (r *RedisRepo) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.hashKey()).Err(); err != nil {
		return fmt.Errorf("[RedisRepo Clear] %w", err)
	}
	return nil
}
