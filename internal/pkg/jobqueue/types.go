package jobqueue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ManuelReschke/BookForge/internal/pkg/export"
)

// JobType selects the handler of a job.
type JobType string

const (
	JobTypeExportBook JobType = "export_book"
)

// JobStatus is the lifecycle state of a job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusScheduled JobStatus = "scheduled" // waiting for its retry
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job is one unit of background work as stored in Redis.
type Job struct {
	ID          string          `json:"id"`
	Type        JobType         `json:"type"`
	Status      JobStatus       `json:"status"`
	Payload     json.RawMessage `json:"payload"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	LastError   string          `json:"last_error,omitempty"`
	EnqueuedAt  time.Time       `json:"enqueued_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	FinishedAt  *time.Time      `json:"finished_at,omitempty"`
}

func newJob(jobType JobType, payload any, maxAttempts int, now time.Time) (*Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", jobType, err)
	}
	return &Job{
		ID:          uuid.NewString(),
		Type:        jobType,
		Status:      JobStatusQueued,
		Payload:     raw,
		MaxAttempts: maxAttempts,
		EnqueuedAt:  now,
	}, nil
}

// Decode unmarshals the payload into v.
func (j *Job) Decode(v any) error {
	if len(j.Payload) == 0 {
		return fmt.Errorf("job %s has no payload", j.ID)
	}
	return json.Unmarshal(j.Payload, v)
}

// LastAttempt reports whether a failure of the running attempt is final.
func (j *Job) LastAttempt() bool {
	return j.Attempts >= j.MaxAttempts
}

func (j *Job) begin(now time.Time) {
	j.Status = JobStatusRunning
	j.Attempts++
	j.StartedAt = &now
}

func (j *Job) fail(err error, now time.Time) {
	j.LastError = err.Error()
	if j.LastAttempt() {
		j.Status = JobStatusFailed
		j.FinishedAt = &now
		return
	}
	j.Status = JobStatusScheduled
}

// ExportBookPayload is the payload of a JobTypeExportBook job.
type ExportBookPayload struct {
	ExportID string      `json:"export_id"`
	UserID   string      `json:"user_id"`
	Format   string      `json:"format"`
	Book     export.Book `json:"book"`
}
