package cache

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/HighTechnologyAI/ironbrain-sub001/internal/model"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	if _, ok := c.Get(ctx); ok {
		t.Fatal("empty cache reported a hit")
	}

	agg := &model.Aggregate{
		Objective: &model.Objective{
			ID:    uuid.New(),
			Title: "Rollout",
			Tags:  []string{"strategy"},
		},
		KeyResults: []model.KeyResult{{Title: "KR1"}},
	}
	c.Put(ctx, agg)

	got, ok := c.Get(ctx)
	if !ok {
		t.Fatal("cache miss after Put")
	}
	if got.Objective.Title != "Rollout" || len(got.KeyResults) != 1 {
		t.Errorf("cache returned wrong aggregate: %+v", got)
	}
}

func TestMemoryCacheIsolatesCallers(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	agg := &model.Aggregate{
		Objective: &model.Objective{Title: "original", Tags: []string{"a"}},
	}
	c.Put(ctx, agg)

	// Mutating what we handed in must not leak into the cache.
	agg.Objective.Title = "mutated"
	agg.Objective.Tags[0] = "mutated"

	got, _ := c.Get(ctx)
	if got.Objective.Title != "original" || got.Objective.Tags[0] != "a" {
		t.Error("cache shares memory with the caller's aggregate")
	}

	// And mutating what we got back must not change the next read.
	got.Objective.Title = "mutated again"
	again, _ := c.Get(ctx)
	if again.Objective.Title != "original" {
		t.Error("cache shares memory across Get calls")
	}
}
