package controllers

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/BookForge/internal/pkg/usercontext"
)

var validate = validator.New()

// jsonError writes the error body shared by all API endpoints.
func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

// requireUser returns the authenticated user id or writes a 401.
func requireUser(c *fiber.Ctx) (string, bool) {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn || userCtx.UserID == "" {
		_ = jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
		return "", false
	}
	return userCtx.UserID, true
}

// GetClientIP determines the client IP considering Cloudflare and proxy headers.
func GetClientIP(c *fiber.Ctx) string {
	if cfIP := strings.TrimSpace(c.Get("CF-Connecting-IP")); cfIP != "" {
		return cfIP
	}
	// X-Forwarded-For can contain a list of IPs - the first one is the original client IP
	if xff := c.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	ipAddr := c.IP()
	// IPv4-mapped IPv6 address (::ffff:192.168.1.1)
	if strings.HasPrefix(ipAddr, "::ffff:") && strings.Contains(ipAddr, ".") {
		return strings.TrimPrefix(ipAddr, "::ffff:")
	}
	return ipAddr
}
