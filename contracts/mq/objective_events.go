package mq

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Routing keys on the objective.events exchange.
const (
	RoutingKeyObjectiveInserted = "objective.inserted"
	RoutingKeyObjectiveUpdated  = "objective.updated"

	// RoutingKeyObjectiveAll is the binding pattern subscribers use.
	RoutingKeyObjectiveAll = "objective.*"
)

// Event types carried in ObjectiveChangedPayload.
const (
	EventTypeInsert = "INSERT"
	EventTypeUpdate = "UPDATE"
)

// ObjectiveChangedPayload is published for every committed row change on
// the objectives table. New carries the full post-write record; the
// subscriber filters by identity before acting on it.
type ObjectiveChangedPayload struct {
	EventID   uuid.UUID       `json:"event_id"`
	EventType string          `json:"event_type"` // INSERT / UPDATE
	Table     string          `json:"table"`
	New       json.RawMessage `json:"new"`
	EmittedAt time.Time       `json:"emitted_at"`
}
