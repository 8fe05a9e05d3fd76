package jobqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualClock struct{ t time.Time }

func (c *manualClock) Now() time.Time          { return c.t }
func (c *manualClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestQueue(t *testing.T, opts Options) (*Queue, *manualClock) {
	t.Helper()
	clock := &manualClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	if opts.PollInterval == 0 {
		opts.PollInterval = 100 * time.Millisecond
	}
	q := NewQueue(testRedis(t), opts)
	q.now = clock.Now
	return q, clock
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{Workers: -2}.withDefaults()
	assert.Equal(t, 3, o.Workers)
	assert.Equal(t, DefaultMaxAttempts, o.MaxAttempts)
	assert.Equal(t, 30*time.Second, o.RetryBackoff)
	assert.Equal(t, 10*time.Minute, o.StaleAfter)
	assert.Equal(t, time.Second, o.PollInterval)

	o = Options{Workers: 5, MaxAttempts: 1}.withDefaults()
	assert.Equal(t, 5, o.Workers)
	assert.Equal(t, 1, o.MaxAttempts)
}

func TestQueue_CompletedJobIsRemoved(t *testing.T) {
	q, _ := newTestQueue(t, Options{})
	ctx := context.Background()

	var got []string
	q.Handle(JobTypeExportBook, func(ctx context.Context, job *Job) error {
		var p ExportBookPayload
		require.NoError(t, job.Decode(&p))
		got = append(got, p.ExportID)
		return nil
	})

	first, err := q.Enqueue(ctx, JobTypeExportBook, ExportBookPayload{ExportID: "e1"})
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, JobTypeExportBook, ExportBookPayload{ExportID: "e2"})
	require.NoError(t, err)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Pending)

	job, err := q.next(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, job.ID, "jobs run in enqueue order")
	q.run(ctx, job)

	_, err = q.Get(ctx, first.ID)
	assert.ErrorIs(t, err, redis.Nil)

	job, err = q.next(ctx)
	require.NoError(t, err)
	q.run(ctx, job)
	assert.Equal(t, []string{"e1", "e2"}, got)

	stats, err = q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Completed: 2}, stats)
}

func TestQueue_FailureIsRetriedWithBackoff(t *testing.T) {
	q, clock := newTestQueue(t, Options{RetryBackoff: time.Minute})
	ctx := context.Background()
	q.Handle(JobTypeExportBook, func(ctx context.Context, job *Job) error {
		return errors.New("renderer down")
	})

	enqueued, err := q.Enqueue(ctx, JobTypeExportBook, ExportBookPayload{ExportID: "e1"})
	require.NoError(t, err)

	for attempt := 1; attempt <= DefaultMaxAttempts; attempt++ {
		job, err := q.next(ctx)
		require.NoError(t, err, "attempt %d", attempt)
		q.run(ctx, job)

		stored, err := q.Get(ctx, enqueued.ID)
		require.NoError(t, err)
		assert.Equal(t, attempt, stored.Attempts)
		assert.Equal(t, "renderer down", stored.LastError)
		if attempt == DefaultMaxAttempts {
			assert.Equal(t, JobStatusFailed, stored.Status)
			assert.NotNil(t, stored.FinishedAt)
			break
		}
		assert.Equal(t, JobStatusScheduled, stored.Status)

		// not due yet
		clock.Advance(time.Duration(attempt)*time.Minute - time.Second)
		moved, err := q.promoteDue(ctx)
		require.NoError(t, err)
		assert.Zero(t, moved)

		clock.Advance(time.Second)
		moved, err = q.promoteDue(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, moved)
	}

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Failed: 1}, stats)
}

func TestQueue_UnknownJobTypeFails(t *testing.T) {
	q, _ := newTestQueue(t, Options{MaxAttempts: 1})
	ctx := context.Background()

	enqueued, err := q.Enqueue(ctx, "mystery", map[string]string{})
	require.NoError(t, err)
	job, err := q.next(ctx)
	require.NoError(t, err)
	q.run(ctx, job)

	stored, err := q.Get(ctx, enqueued.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, stored.Status)
	assert.Contains(t, stored.LastError, "unknown job type")
}

func TestQueue_NextDropsVanishedJob(t *testing.T) {
	q, _ := newTestQueue(t, Options{})
	ctx := context.Background()

	require.NoError(t, q.rdb.LPush(ctx, pendingKey, "ghost").Err())
	_, err := q.next(ctx)
	assert.ErrorIs(t, err, errJobVanished)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Active)
}

func TestQueue_RequeueStale(t *testing.T) {
	q, clock := newTestQueue(t, Options{StaleAfter: 10 * time.Minute})
	ctx := context.Background()

	enqueued, err := q.Enqueue(ctx, JobTypeExportBook, ExportBookPayload{ExportID: "e1"})
	require.NoError(t, err)
	job, err := q.next(ctx)
	require.NoError(t, err)
	// simulate a worker that died after marking the job running
	job.begin(clock.Now())
	q.save(ctx, job)

	n, err := q.requeueStale(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	clock.Advance(11 * time.Minute)
	n, err = q.requeueStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := q.Get(ctx, enqueued.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusQueued, stored.Status)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Zero(t, stats.Active)
}

func TestQueue_WorkersProcessJobs(t *testing.T) {
	q, _ := newTestQueue(t, Options{Workers: 2})
	ctx := context.Background()

	done := make(chan string, 3)
	q.Handle(JobTypeExportBook, func(ctx context.Context, job *Job) error {
		done <- job.ID
		return nil
	})
	q.Start()
	q.Start()
	assert.True(t, q.Running())

	for i := 0; i < 3; i++ {
		_, err := q.Enqueue(ctx, JobTypeExportBook, ExportBookPayload{})
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("job was not processed")
		}
	}

	q.Stop()
	assert.False(t, q.Running())
	q.Stop()
}
