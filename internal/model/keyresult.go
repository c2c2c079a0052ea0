package model

import "github.com/google/uuid"

type KeyResultStatus string

const (
	KeyResultStatusOnTrack KeyResultStatus = "on_track"
	KeyResultStatusAtRisk  KeyResultStatus = "at_risk"
	KeyResultStatusBlocked KeyResultStatus = "blocked"
	KeyResultStatusDone    KeyResultStatus = "done"
)

// KeyResult is a child metric owned exclusively by one Objective. Its
// ObjectiveID never changes after creation.
type KeyResult struct {
	ID           uuid.UUID       `json:"id"`
	ObjectiveID  uuid.UUID       `json:"objective_id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Progress     int             `json:"progress"` // 0-100
	TargetValue  float64         `json:"target_value"`
	CurrentValue float64         `json:"current_value"`
	Unit         string          `json:"unit"`
	OwnerID      uuid.UUID       `json:"owner_id"`
	Status       KeyResultStatus `json:"status"`
}

// ComputeProgress derives a 0-100 progress value from current vs target.
func ComputeProgress(current, target float64) int {
	if target <= 0 {
		return 0
	}
	p := int(current / target * 100)
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// CloneKeyResults deep-copies a key result slice.
func CloneKeyResults(krs []KeyResult) []KeyResult {
	if krs == nil {
		return nil
	}
	out := make([]KeyResult, len(krs))
	copy(out, krs)
	return out
}
