package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/HighTechnologyAI/ironbrain-sub001/internal/model"
	"github.com/HighTechnologyAI/ironbrain-sub001/internal/remotestore"
	"github.com/HighTechnologyAI/ironbrain-sub001/pkg/syncerr"
)

// SeedSpec describes the aggregate created on first boot when the
// remote store holds no objective.
type SeedSpec struct {
	Objective  remotestore.ObjectiveDraft
	KeyResults []remotestore.KeyResultDraft
}

// seedAggregate creates the objective plus its initial key results as
// one logical unit. An objective landing without its children leaves
// the aggregate inconsistent, so that partial state is surfaced as a
// seed error rather than swallowed.
func (e *Engine) seedAggregate(ctx context.Context, log *zap.Logger) (*model.Aggregate, error) {
	if e.seed == nil || !e.session.CanSeed() {
		return nil, syncerr.NotFound("seed", ErrObjectiveMissing)
	}

	draft := e.seed.Objective
	if normalized, err := model.NormalizeDate(draft.TargetDate); err == nil {
		draft.TargetDate = normalized
	}

	log.Info("Seeding objective", zap.String("title", draft.Title))

	obj, err := e.store.InsertObjective(ctx, draft)
	if err != nil {
		return nil, err
	}

	krs, err := e.store.InsertKeyResultsBatch(ctx, obj.ID, e.seed.KeyResults)
	if err != nil {
		return nil, syncerr.Seed("seed",
			fmt.Errorf("objective %s created but key results failed: %w", obj.ID, err))
	}

	log.Info("Seeded objective aggregate",
		zap.String("objective_id", obj.ID.String()),
		zap.Int("key_results", len(krs)),
	)
	return &model.Aggregate{Objective: obj, KeyResults: krs}, nil
}
