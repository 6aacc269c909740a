package session

import (
	"encoding/json"

	"wa-group-gateway/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// LifecycleTopic is the in-process bus topic carrying JSON-encoded Events.
const LifecycleTopic = "session.lifecycle"

// StateObserver is notified after every transition (metrics gauge).
type StateObserver interface {
	ObserveState(s State)
}

// Lifecycle is the single entry point for session client callbacks. It owns
// the writes to the Tracker and the PairingStore.
type Lifecycle struct {
	tracker  *Tracker
	pairing  *PairingStore
	bus      message.Publisher
	observer StateObserver
	logger   logger.ILogger
}

// NewLifecycle wires the tracker and pairing store. bus and observer may be nil.
func NewLifecycle(tracker *Tracker, pairing *PairingStore, bus message.Publisher, observer StateObserver, log logger.ILogger) *Lifecycle {
	return &Lifecycle{
		tracker:  tracker,
		pairing:  pairing,
		bus:      bus,
		observer: observer,
		logger:   log,
	}
}

func (l *Lifecycle) Handle(ev Event) {
	if ev.Kind == EventPairingIssued {
		l.pairing.Set(ev.Payload)
	}

	prev := l.tracker.State()
	next := l.tracker.Apply(ev)

	switch ev.Kind {
	case EventPairingIssued:
		l.logger.Info("SESSION", "Pairing QR issued, open /qr to scan it", map[string]interface{}{
			"payload_len": len(ev.Payload),
			"from":        prev.String(),
			"to":          next.String(),
		})
	case EventReady:
		l.logger.Info("SESSION", "WhatsApp session ready", map[string]interface{}{"from": prev.String()})
	case EventDisconnected:
		l.logger.Warn("SESSION", "WhatsApp session disconnected", map[string]interface{}{
			"from":   prev.String(),
			"reason": ev.Reason,
		})
	}

	if l.observer != nil {
		l.observer.ObserveState(next)
	}

	l.publish(ev)
}

func (l *Lifecycle) publish(ev Event) {
	if l.bus == nil {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		l.logger.Error("SESSION", "Failed to encode lifecycle event", map[string]interface{}{"error": err.Error()})
		return
	}

	if err := l.bus.Publish(LifecycleTopic, message.NewMessage(watermill.NewUUID(), data)); err != nil {
		l.logger.Warn("SESSION", "Failed to publish lifecycle event", map[string]interface{}{
			"kind":  ev.Kind,
			"error": err.Error(),
		})
	}
}

// Tracker exposes the readiness state for readers.
func (l *Lifecycle) Tracker() *Tracker {
	return l.tracker
}
