package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/BookForge/app/models"
	"github.com/ManuelReschke/BookForge/app/repository"
	"github.com/ManuelReschke/BookForge/internal/pkg/database"
	"github.com/ManuelReschke/BookForge/internal/pkg/export"
	"github.com/ManuelReschke/BookForge/internal/pkg/storage"
)

type stubRenderer struct {
	err error
}

func (s stubRenderer) Export(ctx context.Context, book export.Book, format string) (*export.Document, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &export.Document{Data: []byte("# " + book.Title), ContentType: "text/markdown", Extension: ".md"}, nil
}

func newExportFixture(t *testing.T, renderer Renderer) (*ExportProcessor, repository.ExportRepository, string) {
	t.Helper()
	db, err := database.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	repo := repository.NewExportRepository(db)
	require.NoError(t, repo.Create(&models.ExportJobRecord{
		ID:     "e1",
		UserID: "user-1",
		Title:  "Tides",
		Format: models.ExportFormatMarkdown,
		Status: models.ExportStatusQueued,
	}))

	dir := t.TempDir()
	p := NewExportProcessor(repo, renderer, storage.NewLocalStore(dir, "/exports"))
	p.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }
	return p, repo, dir
}

func exportJob(t *testing.T, exportID string, attempt int) *Job {
	t.Helper()
	job, err := newJob(JobTypeExportBook, ExportBookPayload{
		ExportID: exportID,
		UserID:   "user-1",
		Format:   models.ExportFormatMarkdown,
		Book:     export.Book{Title: "Tides", Chapters: []export.Chapter{{Number: 1, Title: "Ebb", Content: "x"}}},
	}, DefaultMaxAttempts, time.Now())
	require.NoError(t, err)
	job.Attempts = attempt
	return job
}

func TestExportProcessor_StoresDocument(t *testing.T) {
	p, repo, dir := newExportFixture(t, stubRenderer{})

	require.NoError(t, p.Handle(context.Background(), exportJob(t, "e1", 1)))

	record, err := repo.GetByID("e1")
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusCompleted, record.Status)
	assert.Equal(t, "exports/2026/05/user-1/e1.md", record.ObjectKey)
	assert.Equal(t, "/exports/exports/2026/05/user-1/e1.md", record.URL)
	assert.Empty(t, record.Error)

	data, err := os.ReadFile(filepath.Join(dir, "exports", "2026", "05", "user-1", "e1.md"))
	require.NoError(t, err)
	assert.Equal(t, "# Tides", string(data))
}

func TestExportProcessor_RetryableFailureStaysQueued(t *testing.T) {
	p, repo, _ := newExportFixture(t, stubRenderer{err: errors.New("chrome gone")})

	err := p.Handle(context.Background(), exportJob(t, "e1", 1))
	require.Error(t, err)

	record, err := repo.GetByID("e1")
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, record.Status)
	assert.Contains(t, record.Error, "chrome gone")
}

func TestExportProcessor_LastAttemptMarksFailed(t *testing.T) {
	p, repo, _ := newExportFixture(t, stubRenderer{err: errors.New("chrome gone")})

	require.Error(t, p.Handle(context.Background(), exportJob(t, "e1", DefaultMaxAttempts)))

	record, err := repo.GetByID("e1")
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFailed, record.Status)
}

func TestExportProcessor_UnknownExport(t *testing.T) {
	p, _, _ := newExportFixture(t, stubRenderer{})
	assert.Error(t, p.Handle(context.Background(), exportJob(t, "missing", 1)))

	job := &Job{ID: "j2", Type: JobTypeExportBook, Payload: []byte(`{"format":"markdown"}`), Attempts: 1, MaxAttempts: 1}
	assert.Error(t, p.Handle(context.Background(), job))
}
