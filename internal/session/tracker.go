package session

import "sync/atomic"

// Tracker holds the process-wide readiness state. Writers are the lifecycle
// callbacks; every concurrent dispatch reads it.
type Tracker struct {
	state atomic.Int32
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// NewTrackerWithState starts the tracker in s.
func NewTrackerWithState(s State) *Tracker {
	t := &Tracker{}
	t.state.Store(int32(s))
	return t
}

func (t *Tracker) MarkPairingIssued() {
	t.Apply(Event{Kind: EventPairingIssued})
}

func (t *Tracker) MarkReady() {
	t.Apply(Event{Kind: EventReady})
}

func (t *Tracker) MarkDisconnected() {
	t.Apply(Event{Kind: EventDisconnected})
}

// Apply runs Transition against the current state and stores the result.
func (t *Tracker) Apply(ev Event) State {
	for {
		cur := t.state.Load()
		next := Transition(State(cur), ev)
		if t.state.CompareAndSwap(cur, int32(next)) {
			return next
		}
	}
}

func (t *Tracker) State() State {
	return State(t.state.Load())
}

func (t *Tracker) IsReady() bool {
	return t.State() == StateReady
}
