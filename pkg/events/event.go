package events

import "time"

// Event defines the contract for all gateway events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "SESSION_READY").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the only Event implementation the gateway needs.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

const (
	TypeMessageDispatched = "MESSAGE_DISPATCHED"
)

// NewMessageDispatched describes the outcome of one /send call.
func NewMessageDispatched(requestID, groupName, outcome string, retried bool, attempts int) BaseEvent {
	now := time.Now()
	return BaseEvent{
		Type: TypeMessageDispatched,
		Data: map[string]interface{}{
			"request_id":  requestID,
			"group_name":  groupName,
			"outcome":     outcome,
			"retried":     retried,
			"attempts":    attempts,
			"occurred_at": now,
		},
		OccurredAt: now,
	}
}

// NewSessionEvent mirrors a session lifecycle transition. The pairing
// payload is never included: it would let any subscriber link a device.
func NewSessionEvent(kind, reason string, at time.Time) BaseEvent {
	data := map[string]interface{}{
		"occurred_at": at,
	}
	if reason != "" {
		data["reason"] = reason
	}
	return BaseEvent{Type: kind, Data: data, OccurredAt: at}
}
