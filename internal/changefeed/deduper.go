package changefeed

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deduper drops redelivered feed events. The broker is at-least-once, so
// a reconnect can replay deliveries the engine already applied. Applying
// them twice is harmless (remote wins either way) but noisy.
type Deduper struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewDeduper(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Deduper {
	return &Deduper{rdb: rdb, ttl: ttl, logger: logger}
}

// AcquireOnce returns true the first time eventID is seen. When Redis is
// unavailable or unconfigured it allows processing; duplicates are safer
// than dropped events.
func (d *Deduper) AcquireOnce(ctx context.Context, eventID uuid.UUID) bool {
	if d == nil || d.rdb == nil {
		return true
	}

	key := fmt.Sprintf("dedup:feed:%s", eventID)
	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		if d.logger != nil {
			d.logger.Warn("Redis dedup check failed, allowing processing",
				zap.String("event_id", eventID.String()),
				zap.Error(err),
			)
		}
		return true
	}

	if !ok && d.logger != nil {
		d.logger.Info("Skipped duplicated feed event",
			zap.String("event_id", eventID.String()),
			zap.String("dedup_key", key),
		)
	}
	return ok
}
