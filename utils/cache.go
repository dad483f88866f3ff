package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss is returned by Get when no entry exists.
var ErrCacheMiss = errors.New("cache miss")

// NewRedisClient connects to Redis and pings it once.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis (db %d): %w", db, err)
	}
	return client, nil
}

// RedisAvailabilityCache stores computed availability per lawyer. Each lawyer
// has a generation counter; invalidation bumps it so older entries are never
// read again and simply expire.
type RedisAvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAvailabilityCache(client *redis.Client, ttl time.Duration) *RedisAvailabilityCache {
	if ttl <= 0 {
		ttl = DefaultAvailabilityCacheTTL
	}
	return &RedisAvailabilityCache{client: client, ttl: ttl}
}

func generationKey(lawyerID string) string {
	return AvailabilityCachePrefix + lawyerID + ":gen"
}

func entryKey(lawyerID string, gen int64, query string) string {
	return fmt.Sprintf("%s%s:%d:%s", AvailabilityCachePrefix, lawyerID, gen, query)
}

// Generation returns the lawyer's current cache generation. Callers read it
// before loading from the store and pass it to Get and Set, so a view
// computed before an invalidation is never saved under the newer generation.
func (c *RedisAvailabilityCache) Generation(ctx context.Context, lawyerID string) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(lawyerID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("failed to read cache generation: %w", err)
	}
	return gen, nil
}

// Get decodes the cached value for (lawyerID, gen, query) into out.
func (c *RedisAvailabilityCache) Get(ctx context.Context, lawyerID string, gen int64, query string, out interface{}) error {
	data, err := c.client.Get(ctx, entryKey(lawyerID, gen, query)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("failed to read availability cache: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal availability cache: %w", err)
	}
	return nil
}

// Set stores value for (lawyerID, query) under generation gen.
func (c *RedisAvailabilityCache) Set(ctx context.Context, lawyerID string, gen int64, query string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal availability: %w", err)
	}
	if err := c.client.Set(ctx, entryKey(lawyerID, gen, query), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save availability cache: %w", err)
	}
	return nil
}

// Invalidate drops every cached availability view of the lawyer.
func (c *RedisAvailabilityCache) Invalidate(ctx context.Context, lawyerID string) error {
	if err := c.client.Incr(ctx, generationKey(lawyerID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate availability cache: %w", err)
	}
	return nil
}
