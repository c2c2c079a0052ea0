package cache

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/HighTechnologyAI/ironbrain-sub001/internal/model"
	"github.com/HighTechnologyAI/ironbrain-sub001/pkg/metrics"
)

// RedisCache stores the aggregate under a single key. No TTL: the value
// is only ever replaced, never expired.
type RedisCache struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewRedisCache(rdb *redis.Client, logger *zap.Logger) *RedisCache {
	return &RedisCache{rdb: rdb, logger: logger}
}

func (c *RedisCache) Put(ctx context.Context, agg *model.Aggregate) {
	body, err := json.Marshal(agg)
	if err != nil {
		c.logger.Warn("Failed to encode aggregate for cache", zap.Error(err))
		metrics.CountCacheError("put")
		return
	}

	if err := c.rdb.Set(ctx, Key, body, 0).Err(); err != nil {
		c.logger.Warn("Cache put failed", zap.Error(err))
		metrics.CountCacheError("put")
	}
}

func (c *RedisCache) Get(ctx context.Context) (*model.Aggregate, bool) {
	body, err := c.rdb.Get(ctx, Key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("Cache get failed, treating as miss", zap.Error(err))
		metrics.CountCacheError("get")
		return nil, false
	}

	var agg model.Aggregate
	if err := json.Unmarshal(body, &agg); err != nil {
		c.logger.Warn("Cache held undecodable aggregate, treating as miss", zap.Error(err))
		metrics.CountCacheError("get")
		return nil, false
	}
	if agg.Objective == nil {
		return nil, false
	}
	return &agg, true
}
