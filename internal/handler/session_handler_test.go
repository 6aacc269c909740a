package handler

import (
	"net/http/httptest"
	"testing"

	"wa-group-gateway/internal/config"
	"wa-group-gateway/internal/pkg/logger"
	internalWS "wa-group-gateway/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeWsGuards(t *testing.T) {
	hub := internalWS.NewHub(nil, "test", logger.NewNopLogger())
	app := fiber.New()
	NewSessionHandler(hub, config.AuthConfig{BotSecret: "abc"}, logger.NewNopLogger()).RegisterRoutes(app)

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{name: "missing secret", target: "/ws", want: fiber.StatusUnauthorized},
		{name: "wrong secret", target: "/ws?secret=nope", want: fiber.StatusUnauthorized},
		{name: "plain http with secret", target: "/ws?secret=abc", want: fiber.StatusUpgradeRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tt.target, nil), -1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
