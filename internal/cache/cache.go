// Package cache memoises model results in Redis, keyed by model, the
// classifier variant that produced them and a digest of the text.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/sentiment/internal/domain"
)

const (
	keyPrefix  = "sentiment"
	DefaultTTL = 24 * time.Hour
)

// RedisCache stores ModelResults as JSON with a TTL.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisCache wraps client. A non-positive ttl uses DefaultTTL.
func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

// Key returns the cache key for a model variant and text. variant is the
// classifier fingerprint; changing aggregation, budget or label map
// moves results to a new key space.
func Key(modelID, variant, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%s:%s:%s:%s", keyPrefix, modelID, variant, hex.EncodeToString(sum[:]))
}

// Get returns the cached result, reporting false on a miss.
func (c *RedisCache) Get(ctx context.Context, modelID, variant, text string) (domain.ModelResult, bool, error) {
	raw, err := c.client.Get(ctx, Key(modelID, variant, text)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.ModelResult{}, false, nil
	}
	if err != nil {
		return domain.ModelResult{}, false, fmt.Errorf("cache get: %w", err)
	}

	var res domain.ModelResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return domain.ModelResult{}, false, fmt.Errorf("cache decode: %w", err)
	}
	if !res.Label.IsCanonical() {
		return domain.ModelResult{}, false, fmt.Errorf("cache decode: %w: %q", domain.ErrUnknownLabel, res.Label)
	}
	return res, true, nil
}

// Set stores res under the model variant and text.
func (c *RedisCache) Set(ctx context.Context, modelID, variant, text string, res domain.ModelResult) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, Key(modelID, variant, text), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
