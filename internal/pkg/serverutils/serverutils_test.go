package serverutils

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"wa-group-gateway/internal/dto"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSecretMatches(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	tests := []struct {
		name     string
		provided string
		plain    string
		hash     string
		want     bool
	}{
		{name: "plain match", provided: "CAMBIA_ESTO", plain: "CAMBIA_ESTO", want: true},
		{name: "plain mismatch", provided: "nope", plain: "CAMBIA_ESTO", want: false},
		{name: "empty provided", provided: "", plain: "", want: false},
		{name: "no secret configured", provided: "x", plain: "", want: false},
		{name: "hash match", provided: "s3cret", hash: string(hash), want: true},
		{name: "hash wins over plain", provided: "CAMBIA_ESTO", plain: "CAMBIA_ESTO", hash: string(hash), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SecretMatches(tt.provided, tt.plain, tt.hash))
		})
	}
}

func TestQuerySecretMiddleware(t *testing.T) {
	app := fiber.New()
	app.Get("/guarded", QuerySecretMiddleware("abc", ""), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	tests := []struct {
		name   string
		target string
		header string
		want   int
	}{
		{name: "query secret", target: "/guarded?secret=abc", want: fiber.StatusOK},
		{name: "bearer header", target: "/guarded", header: "Bearer abc", want: fiber.StatusOK},
		{name: "wrong secret", target: "/guarded?secret=zzz", want: fiber.StatusUnauthorized},
		{name: "missing secret", target: "/guarded", want: fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestErrorHandlerMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/bad", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusBadRequest, "broken body")
	})
	app.Get("/crash", func(c *fiber.Ctx) error {
		return errors.New("pq: connection refused at 10.0.0.4")
	})

	t.Run("fiber error", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/bad", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		var body dto.ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "validation_error", body.Kind)
		assert.Equal(t, "broken body", body.Error)
	})

	t.Run("plain error hides its text", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/crash", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

		var body dto.ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "internal_error", body.Kind)
		assert.Equal(t, "internal server error", body.Error)
	})

	t.Run("unknown route", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/nowhere", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

		var body dto.ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "not_found", body.Kind)
	})
}
