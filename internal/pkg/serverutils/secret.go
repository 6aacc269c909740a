package serverutils

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

// SecretMatches checks provided against the configured shared secret. A
// bcrypt hash takes precedence over the plain value.
func SecretMatches(provided, plain, hash string) bool {
	if provided == "" {
		return false
	}
	if hash != "" {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(provided)) == nil
	}
	if plain == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(plain)) == 1
}

// QuerySecretMiddleware guards routes that cannot carry a JSON body, such as
// websocket upgrades. The secret comes from ?secret= or a Bearer header.
func QuerySecretMiddleware(plain, hash string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		provided := ctx.Query("secret")
		if provided == "" {
			if auth := ctx.Get(fiber.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
				provided = strings.TrimPrefix(auth, "Bearer ")
			}
		}
		if !SecretMatches(provided, plain, hash) {
			return ctx.Status(fiber.StatusUnauthorized).JSON(Unauthorized())
		}
		return ctx.Next()
	}
}
