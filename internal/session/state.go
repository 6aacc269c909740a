// Package session tracks the chat session's readiness and pairing payload.
package session

import "time"

// State is the readiness of the chat session as seen by this process.
type State int32

const (
	StateNotReady State = iota
	StatePairingPending
	StateReady
)

func (s State) String() string {
	switch s {
	case StatePairingPending:
		return "pairing_pending"
	case StateReady:
		return "ready"
	default:
		return "not_ready"
	}
}

// EventKind is the closed set of lifecycle callbacks a session client emits.
type EventKind string

const (
	EventPairingIssued EventKind = "SESSION_PAIRING_ISSUED"
	EventReady         EventKind = "SESSION_READY"
	EventDisconnected  EventKind = "SESSION_DISCONNECTED"
)

// Event is one lifecycle notification. Payload is set for EventPairingIssued,
// Reason (optionally) for EventDisconnected.
type Event struct {
	Kind    EventKind `json:"kind"`
	Payload string    `json:"payload,omitempty"`
	Reason  string    `json:"reason,omitempty"`
	At      time.Time `json:"at"`
}

func PairingIssued(payload string) Event {
	return Event{Kind: EventPairingIssued, Payload: payload, At: time.Now()}
}

func Ready() Event {
	return Event{Kind: EventReady, At: time.Now()}
}

func Disconnected(reason string) Event {
	return Event{Kind: EventDisconnected, Reason: reason, At: time.Now()}
}

// Transition returns the state after ev. Unknown kinds leave the state untouched.
func Transition(current State, ev Event) State {
	switch ev.Kind {
	case EventPairingIssued:
		return StatePairingPending
	case EventReady:
		return StateReady
	case EventDisconnected:
		return StateNotReady
	default:
		return current
	}
}
