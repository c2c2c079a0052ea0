package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/HighTechnologyAI/ironbrain-sub001/internal/model"
	"github.com/HighTechnologyAI/ironbrain-sub001/pkg/syncerr"
)

// autoSaveDebounce suppresses a periodic flush that would land right on
// top of an explicit save still in flight from a rapid edit.
const autoSaveDebounce = 2 * time.Second

// autoSaveLoop periodically re-persists the in-memory aggregate to the
// cache and the remote store. It is a safety net for edits that never
// went through the explicit write path; a clean state is left alone.
func (e *Engine) autoSaveLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.autoSaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			e.log.Debug("Auto-save loop stopped")
			return
		case <-ticker.C:
			e.autoSaveOnce(e.ctx)
		}
	}
}

// autoSaveOnce flushes unsaved state. Split out for tests.
func (e *Engine) autoSaveOnce(ctx context.Context) {
	e.mu.Lock()
	status := e.state.SaveStatus
	obj := e.state.Objective
	sinceEdit := time.Since(e.lastLocalEdit)
	e.mu.Unlock()

	if obj == nil {
		return
	}
	if status != SaveLocalOnly && status != SaveError {
		return
	}
	if sinceEdit < autoSaveDebounce {
		// An explicit write is likely mid-retry; let it finish.
		return
	}

	e.log.Info("Auto-saving unsaved state", zap.String("save_status", string(status)))
	e.putCacheFromState(ctx)

	patch := fullPatch(obj)
	saved, err := e.updateRemote(ctx, obj.ID, patch)
	if err != nil {
		if !syncerr.IsRetryable(err) {
			e.log.Warn("Auto-save rejected", zap.Error(err))
		} else {
			e.log.Warn("Auto-save failed, will retry next interval", zap.Error(err))
		}
		return
	}

	e.publish(func(st *State) {
		st.Objective = saved
		st.SaveStatus = SaveSaved
		st.Err = nil
	})
	e.putCacheFromState(ctx)
}

// fullPatch turns the whole objective into a patch so the periodic
// flush re-asserts every field, not just the last edit.
func fullPatch(obj *model.Objective) *model.ObjectivePatch {
	o := obj.Clone()
	return &model.ObjectivePatch{
		Title:               &o.Title,
		Description:         &o.Description,
		TargetDate:          &o.TargetDate,
		Location:            &o.Location,
		BudgetPlanned:       &o.BudgetPlanned,
		StrategicImportance: &o.StrategicImportance,
		Status:              &o.Status,
		Tags:                &o.Tags,
		Currency:            &o.Currency,
	}
}
