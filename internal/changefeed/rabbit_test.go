package changefeed

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	mqcontracts "github.com/HighTechnologyAI/ironbrain-sub001/contracts/mq"
	"github.com/HighTechnologyAI/ironbrain-sub001/internal/model"
)

func newTestSubscriber() *RabbitSubscriber {
	return &RabbitSubscriber{
		logger: zap.NewNop(),
		events: make(chan Event, 16),
		status: make(chan Status, 4),
		done:   make(chan struct{}),
	}
}

func feedPayload(t *testing.T, obj model.Objective) json.RawMessage {
	t.Helper()
	record, err := json.Marshal(obj)
	if err != nil {
		t.Fatal(err)
	}
	payload, err := json.Marshal(mqcontracts.ObjectiveChangedPayload{
		EventID:   uuid.New(),
		EventType: mqcontracts.EventTypeUpdate,
		Table:     "objectives",
		New:       record,
	})
	if err != nil {
		t.Fatal(err)
	}
	return payload
}

func TestHandleDeliveryDecodesEvent(t *testing.T) {
	s := newTestSubscriber()

	obj := model.Objective{
		ID:     uuid.New(),
		Title:  "pushed from server",
		Status: model.ObjectiveStatusActive,
	}
	if err := s.handleDelivery(context.Background(), feedPayload(t, obj)); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-s.events:
		if ev.Type != mqcontracts.EventTypeUpdate || ev.Table != "objectives" {
			t.Errorf("event envelope wrong: %+v", ev)
		}
		if ev.New == nil || ev.New.ID != obj.ID || ev.New.Title != obj.Title {
			t.Errorf("decoded record wrong: %+v", ev.New)
		}
	default:
		t.Fatal("no event emitted")
	}
}

func TestHandleDeliveryAcksPoisonPayload(t *testing.T) {
	s := newTestSubscriber()

	// Returning nil acks the message so the broker stops redelivering it.
	if err := s.handleDelivery(context.Background(), json.RawMessage(`{broken`)); err != nil {
		t.Errorf("poison payload should be acked, got %v", err)
	}

	select {
	case ev := <-s.events:
		t.Errorf("poison payload produced an event: %+v", ev)
	default:
	}
}

func TestHandleDeliveryAcksUndecodableRecord(t *testing.T) {
	s := newTestSubscriber()

	payload, err := json.Marshal(mqcontracts.ObjectiveChangedPayload{
		EventID:   uuid.New(),
		EventType: mqcontracts.EventTypeUpdate,
		Table:     "objectives",
		New:       json.RawMessage(`"not an object"`),
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.handleDelivery(context.Background(), payload); err != nil {
		t.Errorf("undecodable record should be acked, got %v", err)
	}
	select {
	case <-s.events:
		t.Error("undecodable record produced an event")
	default:
	}
}

func TestHandleDeliveryUnblocksOnDone(t *testing.T) {
	s := newTestSubscriber()
	s.events = make(chan Event) // unbuffered: the send will block
	close(s.done)

	obj := model.Objective{ID: uuid.New(), Status: model.ObjectiveStatusActive}
	finished := make(chan struct{})
	go func() {
		_ = s.handleDelivery(context.Background(), feedPayload(t, obj))
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("handler stayed blocked after done closed")
	}
}

func TestPushStatusNeverBlocks(t *testing.T) {
	s := newTestSubscriber()

	// Overflow the buffer; extra pushes must be dropped, not block.
	for i := 0; i < 10; i++ {
		s.pushStatus(StatusConnecting)
	}
}

func TestNilDeduperAllowsEverything(t *testing.T) {
	var d *Deduper
	if !d.AcquireOnce(context.Background(), uuid.New()) {
		t.Error("nil deduper must allow processing")
	}

	unconfigured := NewDeduper(nil, 0, zap.NewNop())
	id := uuid.New()
	if !unconfigured.AcquireOnce(context.Background(), id) || !unconfigured.AcquireOnce(context.Background(), id) {
		t.Error("deduper without redis must allow repeated processing")
	}
}
