package jobqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/BookForge/app/models"
	"github.com/ManuelReschke/BookForge/app/repository"
	"github.com/ManuelReschke/BookForge/internal/pkg/export"
	"github.com/ManuelReschke/BookForge/internal/pkg/storage"
)

// Renderer renders a book into one export format.
type Renderer interface {
	Export(ctx context.Context, book export.Book, format string) (*export.Document, error)
}

// ExportProcessor renders queued book exports and stores the result.
type ExportProcessor struct {
	repo     repository.ExportRepository
	renderer Renderer
	store    storage.ObjectStore
	now      func() time.Time
}

// NewExportProcessor creates the export job handler
func NewExportProcessor(repo repository.ExportRepository, renderer Renderer, store storage.ObjectStore) *ExportProcessor {
	return &ExportProcessor{repo: repo, renderer: renderer, store: store, now: time.Now}
}

// Register installs the processor on q for export jobs
func (p *ExportProcessor) Register(q *Queue) {
	q.Handle(JobTypeExportBook, p.Handle)
}

// Handle processes one export job. The export record only moves to failed
// when the queue will not retry the job again.
func (p *ExportProcessor) Handle(ctx context.Context, job *Job) error {
	var payload ExportBookPayload
	if err := job.Decode(&payload); err != nil {
		return fmt.Errorf("invalid export payload: %w", err)
	}
	if payload.ExportID == "" {
		return fmt.Errorf("export payload without export id")
	}

	if err := p.repo.UpdateStatus(payload.ExportID, models.ExportStatusRunning, "", "", ""); err != nil {
		return fmt.Errorf("failed to mark export %s running: %w", payload.ExportID, err)
	}

	result, err := p.render(ctx, &payload)
	if err != nil {
		status := models.ExportStatusQueued
		if job.LastAttempt() {
			status = models.ExportStatusFailed
		}
		if uerr := p.repo.UpdateStatus(payload.ExportID, status, "", "", truncateError(err.Error())); uerr != nil {
			log.Errorf("[ExportProcessor] Failed to record error for export %s: %v", payload.ExportID, uerr)
		}
		return err
	}

	if err := p.repo.UpdateStatus(payload.ExportID, models.ExportStatusCompleted, result.ObjectKey, result.URL, ""); err != nil {
		return fmt.Errorf("failed to mark export %s completed: %w", payload.ExportID, err)
	}
	log.Infof("[ExportProcessor] Export %s (%s) stored at %s", payload.ExportID, payload.Format, result.ObjectKey)
	return nil
}

func (p *ExportProcessor) render(ctx context.Context, payload *ExportBookPayload) (*storage.UploadResult, error) {
	doc, err := p.renderer.Export(ctx, payload.Book, payload.Format)
	if err != nil {
		return nil, fmt.Errorf("render failed: %w", err)
	}
	key := storage.ExportObjectKey(payload.UserID, payload.ExportID, doc.Extension, p.now())
	result, err := p.store.Put(ctx, key, doc.Data, doc.ContentType)
	if err != nil {
		return nil, fmt.Errorf("store failed: %w", err)
	}
	return result, nil
}

// EnqueueExportBook queues an export for an existing export record and links
// the job to it.
func EnqueueExportBook(ctx context.Context, q *Queue, repo repository.ExportRepository, record *models.ExportJobRecord, book export.Book) (*Job, error) {
	job, err := q.Enqueue(ctx, JobTypeExportBook, ExportBookPayload{
		ExportID: record.ID,
		UserID:   record.UserID,
		Format:   record.Format,
		Book:     book,
	})
	if err != nil {
		return nil, err
	}
	if err := repo.SetJobID(record.ID, job.ID); err != nil {
		log.Warnf("[ExportProcessor] Failed to link job %s to export %s: %v", job.ID, record.ID, err)
	}
	record.JobID = job.ID
	return job, nil
}

func truncateError(s string) string {
	if len(s) > 250 {
		return s[:250]
	}
	return s
}
