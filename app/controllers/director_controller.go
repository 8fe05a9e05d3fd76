package controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/BookForge/internal/pkg/director"
	"github.com/ManuelReschke/BookForge/internal/pkg/metrics/counter"
)

// DirectorController serves director mode projects.
type DirectorController struct {
	service *director.Service
	count   func(kind string)
}

func NewDirectorController(service *director.Service, count func(kind string)) *DirectorController {
	return &DirectorController{service: service, count: count}
}

func (dc *DirectorController) HandleCreateProject(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}
	var in director.CreateProjectInput
	if err := c.BodyParser(&in); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	project, err := dc.service.CreateProject(c.UserContext(), userID, in)
	if err != nil {
		return directorError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(project)
}

func (dc *DirectorController) HandleGetProject(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}
	project, err := dc.service.GetProject(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return directorError(c, err)
	}
	return c.JSON(project)
}

type directorMessage struct {
	Message string `json:"message" validate:"required,max=4000"`
}

// HandleSendMessage charges the director cost and writes or revises a chapter.
func (dc *DirectorController) HandleSendMessage(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}
	var in directorMessage
	if err := c.BodyParser(&in); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	if err := validate.Struct(in); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}

	project, err := dc.service.SendMessage(c.UserContext(), userID, c.Params("id"), in.Message)
	if err != nil {
		if dc.count != nil && !errors.Is(err, director.ErrInsufficientCredits) {
			dc.count(counter.KindFailed)
		}
		return directorError(c, err)
	}
	if dc.count != nil {
		dc.count(counter.KindDirector)
	}
	c.Set("X-Credits-Charged", strconv.Itoa(dc.service.Cost()))
	return c.JSON(project)
}

func directorError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return jsonError(c, fiber.StatusNotFound, "not_found", "Project not found")
	case errors.Is(err, director.ErrChapterNotFound):
		return jsonError(c, fiber.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, director.ErrInsufficientCredits):
		return jsonError(c, fiber.StatusPaymentRequired, "insufficient_credits", "Not enough credits for this message")
	case errors.Is(err, director.ErrEmptyMessage), errors.Is(err, director.ErrInvalidProject):
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	default:
		log.Errorf("[Director] Request failed: %v", err)
		return jsonError(c, fiber.StatusBadGateway, "generation_failed", "Chapter generation failed, your credits were refunded")
	}
}
