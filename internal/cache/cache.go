// Package cache provides the durable local cache: non-authoritative
// persistence used only to paint state before the remote store answers.
//
// Cache failures are never fatal. Implementations log and count them,
// then behave as a miss; the engine must not branch on cache errors.
package cache

import (
	"context"

	"github.com/HighTechnologyAI/ironbrain-sub001/internal/model"
)

// Key is the single fixed key holding the latest known aggregate.
const Key = "objective:latest"

// Cache persists the latest known aggregate across restarts.
type Cache interface {
	// Put stores the aggregate. Failures are swallowed.
	Put(ctx context.Context, agg *model.Aggregate)

	// Get returns the cached aggregate, or (nil, false) on miss or error.
	Get(ctx context.Context) (*model.Aggregate, bool)
}
