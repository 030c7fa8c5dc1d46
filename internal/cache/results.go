package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smukkama/weather-index-server/internal/index"
)

// ResultCache keeps the most recent composite index result per region in
// Redis so the read API can serve between scheduled cycles without
// recomputing.
type ResultCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewResultCache creates a result cache with the given entry TTL.
func NewResultCache(redisClient *redis.Client, ttl time.Duration) *ResultCache {
	return &ResultCache{redis: redisClient, ttl: ttl}
}

func resultKey(region string) string {
	return fmt.Sprintf("weather_index:latest:%s", region)
}

// Get returns the cached result for a region, or nil when none is cached.
func (c *ResultCache) Get(ctx context.Context, region string) (*index.Result, error) {
	data, err := c.redis.Get(ctx, resultKey(region)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached result: %w", err)
	}

	var result index.Result
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached result: %w", err)
	}

	return &result, nil
}

// Set stores the latest result for its region.
func (c *ResultCache) Set(ctx context.Context, result index.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := c.redis.Set(ctx, resultKey(result.Region), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache result: %w", err)
	}

	return nil
}
