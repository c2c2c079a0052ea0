package engine

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HighTechnologyAI/ironbrain-sub001/internal/model"
	"github.com/HighTechnologyAI/ironbrain-sub001/pkg/logger"
	"github.com/HighTechnologyAI/ironbrain-sub001/pkg/metrics"
	"github.com/HighTechnologyAI/ironbrain-sub001/pkg/syncerr"
	"github.com/HighTechnologyAI/ironbrain-sub001/pkg/trace"
)

// UpdateObjective is the optimistic write path. The edit is applied to
// memory and cache before the network is touched, then pushed to the
// remote store with bounded retries. Whatever happens, the optimistic
// value stays visible; only a server-confirmed value replaces it.
//
// Overlapping calls each run their own retry loop; callers needing
// ordering must serialize.
func (e *Engine) UpdateObjective(ctx context.Context, patch *model.ObjectivePatch) error {
	if trace.FromContext(ctx) == "" {
		ctx = trace.WithContext(ctx, trace.New())
	}
	log := logger.WithTrace(ctx, e.log)

	if patch == nil || patch.IsEmpty() {
		return syncerr.Validation("update_objective", errEmptyPatch)
	}
	if err := patch.Normalize(); err != nil {
		return syncerr.Validation("update_objective", err)
	}

	e.mu.Lock()
	if e.state.Objective == nil {
		e.mu.Unlock()
		return ErrNotBooted
	}
	id := e.state.Objective.ID
	e.mu.Unlock()

	// Optimistic: publish and cache before any network round-trip.
	e.publish(func(st *State) {
		st.Objective = st.Objective.Apply(patch)
		st.SaveStatus = SaveLocalOnly
	})
	e.markLocalEdit()
	e.putCacheFromState(ctx)

	e.publish(func(st *State) {
		st.SaveStatus = SaveSaving
	})

	obj, err := e.writeWithRetry(ctx, log, id, patch)
	if err != nil {
		e.publish(func(st *State) {
			st.SaveStatus = SaveError
			st.Err = err
		})
		if syncerr.IsRetryable(err) {
			// Retries are spent; park the unsaved edit in the
			// emergency snapshot in case this process dies too.
			e.snapshotCurrent()
		}
		return err
	}

	// Adopt the server's record as the new truth; it may carry
	// server-computed fields the optimistic copy lacks.
	e.publish(func(st *State) {
		st.Objective = obj
		st.SaveStatus = SaveSaved
		st.Err = nil
	})
	e.putCacheFromState(ctx)
	return nil
}

// writeWithRetry pushes the patch remotely. Transient failures retry
// with linearly growing backoff (base, 2x base) up to maxWriteAttempts
// total attempts; rejected payloads surface immediately.
func (e *Engine) writeWithRetry(ctx context.Context, log *zap.Logger, objectiveID uuid.UUID, patch *model.ObjectivePatch) (*model.Objective, error) {
	var lastErr error
	for attempt := 1; attempt <= e.maxWriteAttempts; attempt++ {
		obj, err := e.updateRemote(ctx, objectiveID, patch)
		if err == nil {
			if attempt > 1 {
				log.Info("Write succeeded after retry", zap.Int("attempt", attempt))
			}
			return obj, nil
		}

		if !syncerr.IsRetryable(err) {
			log.Warn("Write rejected, not retrying", zap.Error(err))
			return nil, err
		}

		lastErr = err
		log.Warn("Write failed, will retry",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", e.maxWriteAttempts),
			zap.Error(err),
		)

		if attempt < e.maxWriteAttempts {
			metrics.WriteRetries.WithLabelValues(strconv.Itoa(attempt)).Inc()
			delay := time.Duration(attempt) * e.retryBaseDelay
			if sleepErr := e.sleep(ctx, delay); sleepErr != nil {
				return nil, lastErr
			}
		}
	}

	log.Error("Write failed after all attempts",
		zap.Int("attempts", e.maxWriteAttempts),
		zap.Error(lastErr),
	)
	return nil, lastErr
}

// putCacheFromState persists the current aggregate to the cache.
func (e *Engine) putCacheFromState(ctx context.Context) {
	e.mu.Lock()
	agg := e.state.aggregate().Clone()
	e.mu.Unlock()
	e.cache.Put(ctx, agg)
}

// snapshotCurrent writes the current aggregate to the emergency
// snapshot.
func (e *Engine) snapshotCurrent() {
	e.mu.Lock()
	agg := e.state.aggregate().Clone()
	e.mu.Unlock()
	if err := e.snaps.Save(agg); err != nil {
		e.log.Error("Failed to write emergency snapshot", zap.Error(err))
	}
}

func (e *Engine) markLocalEdit() {
	e.mu.Lock()
	e.lastLocalEdit = time.Now()
	e.mu.Unlock()
}
