package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/BookForge/internal/pkg/generation"
	"github.com/ManuelReschke/BookForge/internal/pkg/metrics/counter"
)

// GenerationController proxies generation requests to the text provider.
type GenerationController struct {
	service *generation.Service
	// count records generations per day; nil disables counting
	count func(kind string)
}

func NewGenerationController(service *generation.Service, count func(kind string)) *GenerationController {
	return &GenerationController{service: service, count: count}
}

func (gc *GenerationController) record(kind string) {
	if gc.count != nil {
		gc.count(kind)
	}
}

// HandleGenerate generates outlines or a chapter. Charging is done by the
// client through the deduction endpoint.
func (gc *GenerationController) HandleGenerate(c *fiber.Ctx) error {
	if _, ok := requireUser(c); !ok {
		return nil
	}
	var req generation.GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(generation.GenerateResponse{Success: false, Error: "Invalid request body"})
	}

	content, err := gc.service.Generate(c.UserContext(), req)
	if err != nil {
		gc.record(counter.KindFailed)
		switch {
		case errors.Is(err, generation.ErrInvalidRequest):
			return c.Status(fiber.StatusBadRequest).JSON(generation.GenerateResponse{Success: false, Error: err.Error()})
		case errors.Is(err, generation.ErrProviderNotConfigured):
			return c.Status(fiber.StatusServiceUnavailable).JSON(generation.GenerateResponse{Success: false, Error: "Text generation is not configured"})
		default:
			log.Errorf("[Generate] %s generation failed: %v", req.Type, err)
			return c.Status(fiber.StatusBadGateway).JSON(generation.GenerateResponse{Success: false, Error: "Text generation failed, please try again"})
		}
	}

	if req.Type == generation.TypeOutlines {
		gc.record(counter.KindOutlines)
	} else {
		gc.record(counter.KindChapter)
	}
	return c.JSON(generation.GenerateResponse{Success: true, Content: content})
}
