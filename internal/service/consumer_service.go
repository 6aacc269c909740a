package service

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"wa-group-gateway/internal/dto"
	"wa-group-gateway/internal/pairing"
	"wa-group-gateway/internal/pkg/logger"
	"wa-group-gateway/internal/session"
	"wa-group-gateway/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

// SessionBroadcaster pushes session events to live /ws subscribers.
type SessionBroadcaster interface {
	Broadcast(ctx context.Context, msg dto.SessionEventMessage)
}

type IConsumerService interface {
	// Consume blocks until ctx is cancelled.
	Consume(ctx context.Context) error
}

// consumerService fans lifecycle events from the in-process bus out to the
// websocket hub, the external event stream and the terminal.
type consumerService struct {
	subscriber  message.Subscriber
	broadcaster SessionBroadcaster
	publisher   EventPublisher
	terminal    io.Writer
	logger      logger.ILogger
}

// NewConsumerService wires the lifecycle fan-out. broadcaster, publisher and
// terminal may each be nil.
func NewConsumerService(
	subscriber message.Subscriber,
	broadcaster SessionBroadcaster,
	publisher EventPublisher,
	terminal io.Writer,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber:  subscriber,
		broadcaster: broadcaster,
		publisher:   publisher,
		terminal:    terminal,
		logger:      log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, session.LifecycleTopic)
	if err != nil {
		return err
	}

	for msg := range messages {
		cs.processMessage(ctx, msg)
	}
	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	// Ack first: a bad payload must not be redelivered forever.
	defer msg.Ack()

	var ev session.Event
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		cs.logger.Error("RELAY", "Failed to decode lifecycle event", map[string]interface{}{"error": err.Error()})
		return
	}

	if ev.Kind == session.EventPairingIssued && cs.terminal != nil {
		if err := pairing.PrintTerminal(cs.terminal, ev.Payload); err != nil {
			cs.logger.Warn("RELAY", "Failed to print pairing code", map[string]interface{}{"error": err.Error()})
		}
	}

	evt := events.NewSessionEvent(string(ev.Kind), ev.Reason, ev.At)

	if cs.broadcaster != nil {
		cs.broadcaster.Broadcast(ctx, dto.SessionEventMessage{
			Type:       evt.EventType(),
			Data:       evt.Payload(),
			OccurredAt: evt.Timestamp().Format(time.RFC3339),
		})
	}

	if cs.publisher != nil {
		pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := cs.publisher.Publish(pubCtx, evt); err != nil {
			cs.logger.Warn("RELAY", "Failed to publish lifecycle event", map[string]interface{}{
				"kind":  ev.Kind,
				"error": err.Error(),
			})
		}
	}
}
