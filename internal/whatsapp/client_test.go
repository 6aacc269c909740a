package whatsapp

import (
	"errors"
	"testing"

	"wa-group-gateway/internal/session"

	"github.com/stretchr/testify/assert"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

func TestTranslateEvent(t *testing.T) {
	tests := []struct {
		name     string
		evt      interface{}
		wantKind session.EventKind
		wantOK   bool
	}{
		{name: "connected", evt: &events.Connected{}, wantKind: session.EventReady, wantOK: true},
		{name: "disconnected", evt: &events.Disconnected{}, wantKind: session.EventDisconnected, wantOK: true},
		{name: "logged out", evt: &events.LoggedOut{}, wantKind: session.EventDisconnected, wantOK: true},
		{name: "stream replaced", evt: &events.StreamReplaced{}, wantKind: session.EventDisconnected, wantOK: true},
		{name: "connect failure", evt: &events.ConnectFailure{}, wantKind: session.EventDisconnected, wantOK: true},
		{name: "unrelated message", evt: &events.Message{}, wantOK: false},
		{name: "nil", evt: nil, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := translateEvent(tt.evt)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantKind, ev.Kind)
			}
		})
	}
}

func TestTranslateEventReasons(t *testing.T) {
	ev, _ := translateEvent(&events.StreamReplaced{})
	assert.Contains(t, ev.Reason, "stream replaced")

	ev, _ = translateEvent(&events.LoggedOut{})
	assert.Contains(t, ev.Reason, "logged out")
}

func TestTranslateQR(t *testing.T) {
	t.Run("code", func(t *testing.T) {
		ev, ok := translateQR(whatsmeow.QRChannelItem{Event: whatsmeow.QRChannelEventCode, Code: "2@abc,def"})
		assert.True(t, ok)
		assert.Equal(t, session.EventPairingIssued, ev.Kind)
		assert.Equal(t, "2@abc,def", ev.Payload)
	})

	t.Run("timeout", func(t *testing.T) {
		ev, ok := translateQR(whatsmeow.QRChannelTimeout)
		assert.True(t, ok)
		assert.Equal(t, session.EventDisconnected, ev.Kind)
	})

	t.Run("error", func(t *testing.T) {
		ev, ok := translateQR(whatsmeow.QRChannelItem{Event: whatsmeow.QRChannelEventError, Error: errors.New("boom")})
		assert.True(t, ok)
		assert.Equal(t, session.EventDisconnected, ev.Kind)
		assert.Contains(t, ev.Reason, "boom")
	})

	t.Run("success is not a lifecycle event", func(t *testing.T) {
		_, ok := translateQR(whatsmeow.QRChannelSuccess)
		assert.False(t, ok)
	})
}

func TestToConversations(t *testing.T) {
	groups := []*types.GroupInfo{
		{JID: types.NewJID("120363000000000001", types.GroupServer), GroupName: types.GroupName{Name: "Ops"}},
		nil,
		{JID: types.NewJID("120363000000000002", types.GroupServer), GroupName: types.GroupName{Name: " Family "}},
	}

	got := toConversations(groups)

	assert.Equal(t, []session.Conversation{
		{Name: "Ops", IsGroup: true, ID: "120363000000000001@g.us"},
		{Name: " Family ", IsGroup: true, ID: "120363000000000002@g.us"},
	}, got)
	assert.NotNil(t, toConversations(nil))
}

func TestDriverFor(t *testing.T) {
	tests := []struct {
		dialect     string
		wantDriver  string
		wantDialect string
		wantErr     bool
	}{
		{dialect: "sqlite3", wantDriver: "sqlite3", wantDialect: "sqlite3"},
		{dialect: "sqlite", wantDriver: "sqlite3", wantDialect: "sqlite3"},
		{dialect: "postgres", wantDriver: "pgx", wantDialect: "postgres"},
		{dialect: "mysql", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			driver, dialect, err := driverFor(tt.dialect)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantDriver, driver)
			assert.Equal(t, tt.wantDialect, dialect)
		})
	}
}
