package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/BookForge/internal/pkg/embed"
)

// HandleEmbed converts a shared link into an embeddable URL.
func HandleEmbed(c *fiber.Ctx) error {
	raw := c.Query("url")
	if raw == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "url is required")
	}
	embedURL, err := embed.ToEmbedURL(raw)
	if err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "unsupported_link", err.Error())
	}
	return c.JSON(fiber.Map{"url": raw, "embed_url": embedURL})
}
