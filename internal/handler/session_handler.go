package handler

import (
	"wa-group-gateway/internal/config"
	"wa-group-gateway/internal/pkg/logger"
	"wa-group-gateway/internal/pkg/serverutils"
	internalWS "wa-group-gateway/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// SessionHandler streams session lifecycle events over a websocket.
type SessionHandler struct {
	hub    *internalWS.Hub
	auth   config.AuthConfig
	logger logger.ILogger
}

func NewSessionHandler(hub *internalWS.Hub, auth config.AuthConfig, log logger.ILogger) *SessionHandler {
	return &SessionHandler{
		hub:    hub,
		auth:   auth,
		logger: log,
	}
}

// ServeWs upgrades an authenticated request and attaches it to the hub.
func (h *SessionHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("SessionHandler", "Starting WebSocket session", map[string]interface{}{"remote": conn.RemoteAddr().String()})
		internalWS.ServeWs(h.hub, conn)
		h.logger.Info("SessionHandler", "WebSocket session ended", map[string]interface{}{"remote": conn.RemoteAddr().String()})
	})(c)
}

// RegisterRoutes registers GET /ws behind the shared secret.
func (h *SessionHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws", serverutils.QuerySecretMiddleware(h.auth.BotSecret, h.auth.BotSecretHash), h.ServeWs)
}
