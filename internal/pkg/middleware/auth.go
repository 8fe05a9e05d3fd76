package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	icuser "github.com/ManuelReschke/BookForge/internal/pkg/usercontext"
)

// BearerAuth resolves the bearer token into the user context. Requests
// without a valid token continue anonymously.
func BearerAuth(v *TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractBearerToken(c)
		if token == "" {
			icuser.Set(c, icuser.UserContext{})
			return c.Next()
		}
		claims, err := v.Verify(token)
		if err != nil {
			log.Debugf("[Auth] Rejected token: %v", err)
			icuser.Set(c, icuser.UserContext{})
			return c.Next()
		}
		icuser.Set(c, icuser.UserContext{
			UserID:     claims.Subject,
			Email:      claims.Email,
			IsLoggedIn: true,
		})
		return c.Next()
	}
}

// RequireAPIAuth returns JSON 401 unless BearerAuth resolved a user.
func RequireAPIAuth(c *fiber.Ctx) error {
	if !icuser.IsLoggedIn(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	return c.Next()
}

func extractBearerToken(c *fiber.Ctx) string {
	auth := strings.TrimSpace(c.Get("Authorization"))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
