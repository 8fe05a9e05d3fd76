package controllers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ManuelReschke/BookForge/app/models"
	"github.com/ManuelReschke/BookForge/app/repository"
	"github.com/ManuelReschke/BookForge/internal/pkg/director"
	"github.com/ManuelReschke/BookForge/internal/pkg/export"
)

// ExportEnqueuer hands an export record to the background queue.
type ExportEnqueuer func(ctx context.Context, record *models.ExportJobRecord, book export.Book) error

// ExportController queues book exports and reports their state.
type ExportController struct {
	repo     repository.ExportRepository
	director *director.Service
	enqueue  ExportEnqueuer
}

func NewExportController(repo repository.ExportRepository, directorService *director.Service, enqueue ExportEnqueuer) *ExportController {
	return &ExportController{repo: repo, director: directorService, enqueue: enqueue}
}

type exportRequest struct {
	Format    string       `json:"format" validate:"required"`
	ProjectID string       `json:"project_id" validate:"omitempty,max=36"`
	Book      *export.Book `json:"book" validate:"omitempty"`
}

// HandleCreateExport queues an export of a director project or of a book
// sent in the request.
func (ec *ExportController) HandleCreateExport(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}
	var req exportRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	req.Format = strings.ToLower(strings.TrimSpace(req.Format))
	if err := validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}
	if !models.IsValidExportFormat(req.Format) {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", export.ErrUnsupportedFormat.Error())
	}

	var book export.Book
	switch {
	case req.ProjectID != "":
		if ec.director == nil {
			return jsonError(c, fiber.StatusBadRequest, "validation_failed", "project exports are not available")
		}
		project, err := ec.director.GetProject(c.UserContext(), userID, req.ProjectID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Project not found")
		}
		if err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load project")
		}
		book = export.BookFromProject(project)
	case req.Book != nil:
		book = *req.Book
	default:
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", "project_id or book is required")
	}
	if len(book.Chapters) == 0 {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", export.ErrEmptyBook.Error())
	}

	record := &models.ExportJobRecord{
		ID:     uuid.NewString(),
		UserID: userID,
		Title:  book.Title,
		Format: req.Format,
		Status: models.ExportStatusQueued,
	}
	if err := ec.repo.Create(record); err != nil {
		log.Errorf("[Exports] Failed to create export record: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create export")
	}
	if err := ec.enqueue(c.UserContext(), record, book); err != nil {
		log.Errorf("[Exports] Failed to enqueue export %s: %v", record.ID, err)
		_ = ec.repo.UpdateStatus(record.ID, models.ExportStatusFailed, "", "", "queue unavailable")
		return jsonError(c, fiber.StatusServiceUnavailable, "unavailable", "Export queue unavailable")
	}
	return c.Status(fiber.StatusAccepted).JSON(record)
}

// HandleGetExport returns an export of the caller.
func (ec *ExportController) HandleGetExport(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}
	record, err := ec.repo.GetForUser(userID, c.Params("id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return jsonError(c, fiber.StatusNotFound, "not_found", "Export not found")
	}
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load export")
	}
	return c.JSON(record)
}
