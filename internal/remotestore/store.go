// Package remotestore is the client for the authoritative backend. It is
// the only owner of the aggregate; everything local is a copy of what it
// returns.
package remotestore

import (
	"context"

	"github.com/google/uuid"

	"github.com/HighTechnologyAI/ironbrain-sub001/internal/model"
)

// ObjectiveDraft is the payload for seeding the objective.
type ObjectiveDraft struct {
	Title               string
	Description         string
	TargetDate          string
	Location            string
	BudgetPlanned       float64
	StrategicImportance string
	Tags                []string
	Currency            string
}

// KeyResultDraft is the payload for seeding one key result.
type KeyResultDraft struct {
	Title        string
	Description  string
	TargetValue  float64
	CurrentValue float64
	Unit         string
	OwnerID      uuid.UUID
}

// Store is the remote CRUD surface the engine consumes. All methods
// return taxonomy errors (pkg/syncerr): network failures are retryable,
// validation failures are not, and a missing record is KindNotFound.
type Store interface {
	// FetchActiveObjective returns the newest active objective matching
	// ref, or a not-found error when none exists.
	FetchActiveObjective(ctx context.Context, ref model.ObjectiveRef) (*model.Objective, error)

	// InsertObjective creates the objective and returns the stored row
	// with its server-assigned id and updated_at.
	InsertObjective(ctx context.Context, draft ObjectiveDraft) (*model.Objective, error)

	// UpdateObjective applies the set fields of patch to the row and
	// returns the full post-write record.
	UpdateObjective(ctx context.Context, id uuid.UUID, patch *model.ObjectivePatch) (*model.Objective, error)

	// FetchKeyResults returns all key results owned by the objective.
	FetchKeyResults(ctx context.Context, objectiveID uuid.UUID) ([]model.KeyResult, error)

	// InsertKeyResultsBatch creates the initial key results in one call.
	InsertKeyResultsBatch(ctx context.Context, objectiveID uuid.UUID, drafts []KeyResultDraft) ([]model.KeyResult, error)
}
