// Package changefeed receives push notifications of committed objective
// writes. Events arrive on an explicit channel rather than through
// nested callbacks so the engine's transitions stay testable.
package changefeed

import (
	"context"

	"github.com/google/uuid"

	"github.com/HighTechnologyAI/ironbrain-sub001/internal/model"
)

// Status of the feed connection.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

// Event is one decoded change notification. New carries the full
// post-write record; consumers filter by identity before acting, since
// the feed delivers every row change on the objectives table.
type Event struct {
	ID    uuid.UUID
	Type  string // INSERT / UPDATE
	Table string
	New   *model.Objective
}

// Subscription exposes the feed as two receive channels. Both close when
// the subscription ends.
type Subscription struct {
	Events <-chan Event
	Status <-chan Status
}

// Subscriber opens the push channel from the backend.
type Subscriber interface {
	// Subscribe starts delivery. Events flow until ctx is canceled, the
	// transport drops, or Unsubscribe is called.
	Subscribe(ctx context.Context) (*Subscription, error)

	// Unsubscribe tears the feed down. Idempotent; must be called
	// exactly once per engine lifetime, on teardown.
	Unsubscribe()
}
