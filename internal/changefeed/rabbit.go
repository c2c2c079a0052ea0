package changefeed

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	mqcontracts "github.com/HighTechnologyAI/ironbrain-sub001/contracts/mq"
	"github.com/HighTechnologyAI/ironbrain-sub001/internal/model"
	"github.com/HighTechnologyAI/ironbrain-sub001/pkg/metrics"
	"github.com/HighTechnologyAI/ironbrain-sub001/pkg/mq"
)

// RabbitSubscriber delivers objective change events from the topic
// exchange. Each subscriber gets its own broadcast queue, so every
// connected client observes every committed write.
type RabbitSubscriber struct {
	url     string
	deduper *Deduper
	dlq     *mq.Publisher // optional: poison payloads go here
	logger  *zap.Logger

	consumer *mq.Consumer
	events   chan Event
	status   chan Status

	// done unblocks an in-flight delivery stuck on a full events channel
	// during teardown. Closed by Unsubscribe, before the consumer stops.
	done      chan struct{}
	unsubOnce sync.Once
	closeOnce sync.Once
}

func NewRabbitSubscriber(url string, deduper *Deduper, dlq *mq.Publisher, logger *zap.Logger) *RabbitSubscriber {
	return &RabbitSubscriber{
		url:     url,
		deduper: deduper,
		dlq:     dlq,
		logger:  logger,
	}
}

func (s *RabbitSubscriber) Subscribe(ctx context.Context) (*Subscription, error) {
	s.events = make(chan Event, 16)
	s.status = make(chan Status, 4)
	s.done = make(chan struct{})

	s.pushStatus(StatusConnecting)

	consumer, err := mq.NewConsumer(s.url, mqcontracts.RoutingKeyObjectiveAll, s.logger)
	if err != nil {
		s.pushStatus(StatusDisconnected)
		s.closeChannels()
		return nil, err
	}
	s.consumer = consumer
	consumer.SetHandler(s.handleDelivery)

	go func() {
		s.pushStatus(StatusConnected)
		if err := consumer.StartConsuming(); err != nil {
			s.logger.Error("Feed consumer failed", zap.Error(err))
		}
		// Delivery loop ended: either Unsubscribe or a dropped broker
		// connection. Reconnection is the transport's concern; we only
		// report the state.
		s.pushStatus(StatusDisconnected)
		s.closeChannels()
	}()

	go func() {
		select {
		case <-ctx.Done():
			s.Unsubscribe()
		case <-s.done:
		}
	}()

	return &Subscription{Events: s.events, Status: s.status}, nil
}

// Unsubscribe stops delivery. Safe to call more than once.
func (s *RabbitSubscriber) Unsubscribe() {
	s.unsubOnce.Do(func() {
		close(s.done)
		if s.consumer != nil {
			s.consumer.Stop()
		}
	})
}

func (s *RabbitSubscriber) handleDelivery(ctx context.Context, raw json.RawMessage) error {
	var payload mqcontracts.ObjectiveChangedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		s.logger.Error("Undecodable feed payload", zap.Error(err))
		metrics.CountFeedEvent("unknown", "malformed")
		if s.dlq != nil {
			if dlqErr := s.dlq.PublishToDLQ(mqcontracts.RoutingKeyObjectiveUpdated, raw, err.Error()); dlqErr != nil {
				s.logger.Error("Failed to publish to DLQ", zap.Error(dlqErr))
			}
		}
		// Ack the poison message; requeueing it would loop forever.
		return nil
	}

	if !s.deduper.AcquireOnce(ctx, payload.EventID) {
		metrics.CountFeedEvent(payload.EventType, "duplicate")
		return nil
	}

	var record model.Objective
	if err := json.Unmarshal(payload.New, &record); err != nil {
		s.logger.Error("Undecodable record in feed payload",
			zap.String("event_id", payload.EventID.String()),
			zap.Error(err),
		)
		metrics.CountFeedEvent(payload.EventType, "malformed")
		return nil
	}

	event := Event{
		ID:    payload.EventID,
		Type:  payload.EventType,
		Table: payload.Table,
		New:   &record,
	}

	select {
	case s.events <- event:
	case <-s.done:
	}
	return nil
}

func (s *RabbitSubscriber) pushStatus(st Status) {
	select {
	case s.status <- st:
	default:
		// Consumer fell behind on status updates; the ones already
		// queued still lead to the same terminal state.
	}
}

// closeChannels runs after the delivery loop has fully stopped, so no
// handler can be mid-send when the channels close.
func (s *RabbitSubscriber) closeChannels() {
	s.closeOnce.Do(func() {
		close(s.events)
		close(s.status)
	})
}
