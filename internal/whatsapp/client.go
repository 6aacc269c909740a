// Package whatsapp adapts a whatsmeow multi-device session to the gateway's
// session interfaces.
package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"wa-group-gateway/internal/pkg/logger"
	"wa-group-gateway/internal/session"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"
)

const clientModule = "WHATSAPP"

// ErrNotConnected is returned by list and send calls while the socket is down.
var ErrNotConnected = errors.New("whatsapp client not connected")

// maxPairingBackoff caps the wait between QR channels.
const maxPairingBackoff = time.Minute

// Client owns one whatsmeow connection and reports its lifecycle to a
// session.EventHandler.
type Client struct {
	wa             *whatsmeow.Client
	handler        session.EventHandler
	logger         logger.ILogger
	pairingBackoff time.Duration

	openQR  func(ctx context.Context) (<-chan whatsmeow.QRChannelItem, error)
	connect func() error
	paired  func() bool

	mu       sync.Mutex
	stopQR   context.CancelFunc
	qrDone   chan struct{}
	handlers uint32
}

var _ session.ChatClient = (*Client)(nil)

// NewClient loads the first device from the container (a fresh one when the
// store is empty) and builds an unconnected client. pairingBackoff is the
// first wait before pairing is reopened after a QR channel expires.
func NewClient(ctx context.Context, container *sqlstore.Container, handler session.EventHandler, pairingBackoff time.Duration, log logger.ILogger, waLogger waLog.Logger) (*Client, error) {
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load device: %w", err)
	}

	wa := whatsmeow.NewClient(device, waLogger)
	return &Client{
		wa:             wa,
		handler:        handler,
		logger:         log,
		pairingBackoff: pairingBackoff,
		openQR:         wa.GetQRChannel,
		connect:        wa.Connect,
		paired:         func() bool { return wa.Store.ID != nil },
	}, nil
}

// Paired reports whether the device store already holds credentials.
func (c *Client) Paired() bool {
	return c.paired()
}

// Start registers the event handler and connects. An unpaired device gets a
// QR channel whose codes are reported as pairing events. When a channel runs
// out of codes without a scan, a new one is opened until ctx ends.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handlers == 0 {
		c.handlers = c.wa.AddEventHandler(c.onEvent)
	}

	if !c.Paired() {
		qrCtx, cancel := context.WithCancel(ctx)
		qrChan, err := c.openQR(qrCtx)
		if err != nil {
			cancel()
			return fmt.Errorf("failed to open qr channel: %w", err)
		}
		c.stopQR = cancel
		c.qrDone = make(chan struct{})
		go c.pairLoop(qrCtx, qrChan, c.qrDone)
	}

	c.logger.Info(clientModule, "Connecting to WhatsApp", map[string]interface{}{
		"paired": c.Paired(),
	})

	if err := c.connect(); err != nil {
		c.cancelQR()
		return fmt.Errorf("failed to connect: %w", err)
	}
	return nil
}

// Stop closes the socket and the QR channel.
func (c *Client) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelQR()
	c.wa.Disconnect()
	c.logger.Info(clientModule, "WhatsApp client stopped", nil)
}

func (c *Client) cancelQR() {
	if c.stopQR == nil {
		return
	}
	c.stopQR()
	<-c.qrDone
	c.stopQR = nil
}

// pairLoop drains QR channels until a scan succeeds or ctx ends. whatsmeow
// disconnects when a channel times out, so every new channel is followed by
// a fresh connect.
func (c *Client) pairLoop(ctx context.Context, ch <-chan whatsmeow.QRChannelItem, done chan struct{}) {
	defer close(done)

	backoff := c.pairingBackoff
	release := func() {}
	for {
		linked := ch != nil && c.consumeQR(ch)
		release()
		if linked || ctx.Err() != nil || c.Paired() {
			return
		}

		c.logger.Warn(clientModule, "Pairing QR expired without a scan, reopening pairing", map[string]interface{}{
			"retry_in": backoff.String(),
		})
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxPairingBackoff)

		ch, release = c.reopenPairing(ctx)
	}
}

// reopenPairing opens a QR channel and reconnects. The channel is nil when
// either step fails, leaving the retry to the caller. release ends the
// channel's context once it has been drained.
func (c *Client) reopenPairing(ctx context.Context) (<-chan whatsmeow.QRChannelItem, func()) {
	attemptCtx, cancel := context.WithCancel(ctx)
	ch, err := c.openQR(attemptCtx)
	if err != nil {
		c.logger.Warn(clientModule, "Failed to reopen qr channel", map[string]interface{}{"error": err.Error()})
		return nil, cancel
	}
	if err := c.connect(); err != nil {
		c.logger.Warn(clientModule, "Failed to reconnect for pairing", map[string]interface{}{"error": err.Error()})
		return nil, cancel
	}
	return ch, cancel
}

// consumeQR reports every item of ch and returns true when the device was
// linked.
func (c *Client) consumeQR(ch <-chan whatsmeow.QRChannelItem) bool {
	linked := false
	for item := range ch {
		if item.Event == whatsmeow.QRChannelSuccess.Event {
			linked = true
		}
		if ev, ok := translateQR(item); ok {
			c.handler.Handle(ev)
			continue
		}
		c.logger.Debug(clientModule, "QR channel event", map[string]interface{}{"event": item.Event})
	}
	return linked
}

func (c *Client) onEvent(evt interface{}) {
	if ev, ok := translateEvent(evt); ok {
		c.handler.Handle(ev)
	}
}

// ListConversations returns every joined group. Direct chats are not listed:
// only groups can be dispatch targets.
func (c *Client) ListConversations(ctx context.Context) ([]session.Conversation, error) {
	if !c.wa.IsConnected() {
		return nil, ErrNotConnected
	}

	groups, err := c.wa.GetJoinedGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return toConversations(groups), nil
}

// SendText sends a plain text message to a conversation JID.
func (c *Client) SendText(ctx context.Context, conversationID, text string) error {
	if !c.wa.IsConnected() {
		return ErrNotConnected
	}

	jid, err := types.ParseJID(conversationID)
	if err != nil {
		return fmt.Errorf("invalid conversation id %q: %w", conversationID, err)
	}

	resp, err := c.wa.SendMessage(ctx, jid, &waE2E.Message{
		Conversation: proto.String(text),
	})
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	c.logger.Debug(clientModule, "Message sent", map[string]interface{}{
		"to":         jid.String(),
		"message_id": resp.ID,
	})
	return nil
}

func translateEvent(evt interface{}) (session.Event, bool) {
	switch e := evt.(type) {
	case *events.Connected:
		return session.Ready(), true
	case *events.Disconnected:
		return session.Disconnected("connection closed"), true
	case *events.LoggedOut:
		return session.Disconnected("logged out: " + e.Reason.String()), true
	case *events.StreamReplaced:
		return session.Disconnected("stream replaced by another client"), true
	case *events.ConnectFailure:
		return session.Disconnected("connect failure: " + e.Reason.String()), true
	case *events.TemporaryBan:
		return session.Disconnected("temporary ban: " + e.String()), true
	}
	return session.Event{}, false
}

func translateQR(item whatsmeow.QRChannelItem) (session.Event, bool) {
	switch {
	case item.Event == whatsmeow.QRChannelEventCode:
		return session.PairingIssued(item.Code), true
	case item.Event == whatsmeow.QRChannelTimeout.Event:
		return session.Disconnected("pairing timed out"), true
	case item.Error != nil:
		return session.Disconnected("pairing failed: " + item.Error.Error()), true
	}
	return session.Event{}, false
}

func toConversations(groups []*types.GroupInfo) []session.Conversation {
	conversations := make([]session.Conversation, 0, len(groups))
	for _, g := range groups {
		if g == nil {
			continue
		}
		conversations = append(conversations, session.Conversation{
			Name:    g.Name,
			IsGroup: true,
			ID:      g.JID.String(),
		})
	}
	return conversations
}
