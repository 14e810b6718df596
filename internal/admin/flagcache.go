package admin

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ekkle/ekkle-admin/internal/db/models"
)

// FlagCache is a read-through cache in front of the flag store.
type FlagCache interface {
	Get(ctx context.Context, name string) (*models.FeatureFlag, bool, error)
	Set(ctx context.Context, flag *models.FeatureFlag) error
	Invalidate(ctx context.Context, name string) error
}

const flagKeyPrefix = "ekkle:flag:"

// RedisFlagCache stores flags as JSON under ekkle:flag:<name>.
type RedisFlagCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisFlagCache creates a cache; ttl <= 0 defaults to one minute.
func NewRedisFlagCache(client redis.UniversalClient, ttl time.Duration) *RedisFlagCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisFlagCache{client: client, ttl: ttl}
}

func flagKey(name string) string { return flagKeyPrefix + name }

// Get returns the cached flag; found is false on a miss.
func (c *RedisFlagCache) Get(ctx context.Context, name string) (*models.FeatureFlag, bool, error) {
	data, err := c.client.Get(ctx, flagKey(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var flag models.FeatureFlag
	if err := json.Unmarshal(data, &flag); err != nil {
		return nil, false, err
	}
	return &flag, true, nil
}

// Set caches flag for the configured TTL.
func (c *RedisFlagCache) Set(ctx context.Context, flag *models.FeatureFlag) error {
	data, err := json.Marshal(flag)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, flagKey(flag.Name), data, c.ttl).Err()
}

// Invalidate drops the cached copy of name.
func (c *RedisFlagCache) Invalidate(ctx context.Context, name string) error {
	return c.client.Del(ctx, flagKey(name)).Err()
}
