package cache

import (
	"context"
	"sync"

	"github.com/HighTechnologyAI/ironbrain-sub001/internal/model"
)

// MemoryCache is the fallback when Redis is not configured. It survives
// engine restarts within one process, which is all the tests and the
// single-binary deployment need.
type MemoryCache struct {
	mu  sync.RWMutex
	agg *model.Aggregate
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (c *MemoryCache) Put(_ context.Context, agg *model.Aggregate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.agg = agg.Clone()
}

func (c *MemoryCache) Get(_ context.Context) (*model.Aggregate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.agg == nil || c.agg.Objective == nil {
		return nil, false
	}
	return c.agg.Clone(), true
}
