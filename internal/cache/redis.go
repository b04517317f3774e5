package cache

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jafarshop/bundleapp/internal/domain"
)

const keyPrefix = "bundleapp:variant:"

// RedisProductCache stores product variant summaries as JSON strings.
type RedisProductCache struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewRedisProductCache connects to url (redis://...) and pings it.
func NewRedisProductCache(ctx context.Context, url string, logger *zap.Logger) (*RedisProductCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}
	logger.Info("Connected to Redis", zap.String("addr", opts.Addr))

	return &RedisProductCache{rdb: rdb, logger: logger}, nil
}

func variantKey(shop, id string) string {
	return keyPrefix + shop + ":" + id
}

// GetVariant returns the cached summary; ok is false on a miss.
func (c *RedisProductCache) GetVariant(ctx context.Context, shop, id string) (*domain.ProductVariantSummary, bool, error) {
	raw, err := c.rdb.Get(ctx, variantKey(shop, id)).Result()
	if stderrors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var v domain.ProductVariantSummary
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		c.logger.Warn("Dropping undecodable cached variant", zap.String("shop", shop), zap.String("id", id), zap.Error(err))
		_ = c.rdb.Del(ctx, variantKey(shop, id)).Err()
		return nil, false, nil
	}
	return &v, true, nil
}

// SetVariant stores v with ttl.
func (c *RedisProductCache) SetVariant(ctx context.Context, shop string, v *domain.ProductVariantSummary, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, variantKey(shop, v.ID), data, ttl).Err()
}

// PurgeShop removes every cached variant for shop.
func (c *RedisProductCache) PurgeShop(ctx context.Context, shop string) error {
	iter := c.rdb.Scan(ctx, 0, keyPrefix+shop+":*", 100).Iterator()
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
	return c.rdb.Del(ctx, keys...).Err()
}

// Close closes the Redis connection
func (c *RedisProductCache) Close() error {
	return c.rdb.Close()
}
