package session

import "context"

// Conversation is a chat as reported by the session client. It is never cached.
type Conversation struct {
	Name    string
	IsGroup bool
	ID      string
}

// ChatClient is the part of the session client the dispatch path needs.
type ChatClient interface {
	ListConversations(ctx context.Context) ([]Conversation, error)
	SendText(ctx context.Context, conversationID, text string) error
}

// ReadinessReader is satisfied by *Tracker.
type ReadinessReader interface {
	IsReady() bool
}

// EventHandler receives lifecycle events from a session client.
type EventHandler interface {
	Handle(ev Event)
}
