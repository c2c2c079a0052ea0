package engine

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/HighTechnologyAI/ironbrain-sub001/internal/model"
	"github.com/HighTechnologyAI/ironbrain-sub001/pkg/circuitbreaker"
	"github.com/HighTechnologyAI/ironbrain-sub001/pkg/syncerr"
)

// guard runs fn under the circuit breaker when one is configured. A
// rejected call is reported as a network failure: the backend is as
// unreachable as if the dial had timed out. Only network failures count
// against the breaker; a not-found or rejected payload says nothing
// about backend health.
func (e *Engine) guard(op string, fn func() error) error {
	if e.breaker == nil {
		return fn()
	}

	var callErr error
	err := e.breaker.Execute(func() error {
		callErr = fn()
		if syncerr.IsRetryable(callErr) {
			return callErr
		}
		return nil
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return syncerr.Network(op, err)
	}
	return callErr
}

func (e *Engine) fetchObjective(ctx context.Context, ref model.ObjectiveRef) (*model.Objective, error) {
	var obj *model.Objective
	err := e.guard("fetch_active_objective", func() error {
		var err error
		obj, err = e.store.FetchActiveObjective(ctx, ref)
		return err
	})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func (e *Engine) fetchKeyResults(ctx context.Context, objectiveID uuid.UUID) ([]model.KeyResult, error) {
	var krs []model.KeyResult
	err := e.guard("fetch_key_results", func() error {
		var err error
		krs, err = e.store.FetchKeyResults(ctx, objectiveID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return krs, nil
}

func (e *Engine) updateRemote(ctx context.Context, id uuid.UUID, patch *model.ObjectivePatch) (*model.Objective, error) {
	var obj *model.Objective
	err := e.guard("update_objective", func() error {
		var err error
		obj, err = e.store.UpdateObjective(ctx, id, patch)
		return err
	})
	if err != nil {
		return nil, err
	}
	return obj, nil
}
