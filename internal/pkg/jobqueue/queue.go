package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

// Redis layout. Pending and active are lists of job ids, delayed is a sorted
// set scored by the unix millisecond a retry becomes due.
const (
	keyPrefix  = "bookforge:jobs:"
	pendingKey = keyPrefix + "pending"
	activeKey  = keyPrefix + "active"
	delayedKey = keyPrefix + "delayed"
	statsKey   = keyPrefix + "stats"

	DefaultMaxAttempts = 3
	jobTTL             = 24 * time.Hour
)

func jobKey(id string) string {
	return keyPrefix + "job:" + id
}

var errJobVanished = errors.New("job data expired or was removed")

// Handler runs one attempt of a job. A returned error schedules a retry
// until the job runs out of attempts.
type Handler func(ctx context.Context, job *Job) error

// Options tune a Queue. Zero values pick the defaults.
type Options struct {
	Workers      int
	MaxAttempts  int
	RetryBackoff time.Duration // multiplied by the attempt number
	StaleAfter   time.Duration // running jobs older than this are requeued
	PollInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 3
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 30 * time.Second
	}
	if o.StaleAfter <= 0 {
		o.StaleAfter = 10 * time.Minute
	}
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	return o
}

// Stats is a snapshot of the queue.
type Stats struct {
	Pending   int64 `json:"pending"`
	Active    int64 `json:"active"`
	Delayed   int64 `json:"delayed"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// Queue is a Redis backed job queue with a fixed number of workers. Several
// processes may share one queue.
type Queue struct {
	rdb  *redis.Client
	opts Options
	now  func() time.Time

	handlersMu sync.RWMutex
	handlers   map[JobType]Handler

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewQueue(rdb *redis.Client, opts Options) *Queue {
	return &Queue{
		rdb:      rdb,
		opts:     opts.withDefaults(),
		now:      time.Now,
		handlers: make(map[JobType]Handler),
	}
}

// Handle installs h for jobs of type t.
func (q *Queue) Handle(t JobType, h Handler) {
	q.handlersMu.Lock()
	q.handlers[t] = h
	q.handlersMu.Unlock()
}

// Enqueue stores a new job and appends it to the pending list.
func (q *Queue) Enqueue(ctx context.Context, t JobType, payload any) (*Job, error) {
	job, err := newJob(t, payload, q.opts.MaxAttempts, q.now())
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(job)
	if err != nil {
		return nil, err
	}

	_, err = q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, jobKey(job.ID), data, jobTTL)
		pipe.LPush(ctx, pendingKey, job.ID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue %s job: %w", t, err)
	}
	log.Infof("[JobQueue] Enqueued %s job %s", t, job.ID)
	return job, nil
}

// Start launches the workers and the maintenance loop.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel

	log.Infof("[JobQueue] Starting %d workers", q.opts.Workers)
	for n := 1; n <= q.opts.Workers; n++ {
		q.wg.Add(1)
		go q.work(ctx, n)
	}
	q.wg.Add(1)
	go q.maintain(ctx)
}

// Stop signals the workers and waits for running jobs to finish.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cancel == nil {
		return
	}
	q.cancel()
	q.wg.Wait()
	q.cancel = nil
	log.Info("[JobQueue] Workers stopped")
}

// Running reports whether Start was called without a matching Stop.
func (q *Queue) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.cancel != nil
}

func (q *Queue) work(ctx context.Context, n int) {
	defer q.wg.Done()
	for ctx.Err() == nil {
		job, err := q.next(ctx)
		switch {
		case err == nil:
			q.run(ctx, job)
		case errors.Is(err, redis.Nil), ctx.Err() != nil:
		default:
			log.Errorf("[JobQueue] Worker %d: %v", n, err)
			select {
			case <-ctx.Done():
			case <-time.After(q.opts.PollInterval):
			}
		}
	}
}

// next blocks up to one poll interval for a pending job and moves it to the
// active list.
func (q *Queue) next(ctx context.Context) (*Job, error) {
	id, err := q.rdb.BLMove(ctx, pendingKey, activeKey, "RIGHT", "LEFT", q.opts.PollInterval).Result()
	if err != nil {
		return nil, err
	}
	job, err := q.Get(ctx, id)
	if err != nil {
		q.rdb.LRem(ctx, activeKey, 1, id)
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("job %s: %w", id, errJobVanished)
		}
		return nil, err
	}
	return job, nil
}

// run executes one attempt. Stop does not cancel the handler context.
func (q *Queue) run(ctx context.Context, job *Job) {
	ctx = context.WithoutCancel(ctx)
	job.begin(q.now())
	q.save(ctx, job)

	q.handlersMu.RLock()
	h, ok := q.handlers[job.Type]
	q.handlersMu.RUnlock()

	var err error
	if ok {
		err = h(ctx, job)
	} else {
		err = fmt.Errorf("unknown job type %q", job.Type)
	}
	q.finish(ctx, job, err)
}

func (q *Queue) finish(ctx context.Context, job *Job, runErr error) {
	now := q.now()
	if runErr == nil {
		_, err := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.LRem(ctx, activeKey, 1, job.ID)
			pipe.Del(ctx, jobKey(job.ID))
			pipe.HIncrBy(ctx, statsKey, string(JobStatusCompleted), 1)
			return nil
		})
		if err != nil {
			log.Errorf("[JobQueue] Failed to complete job %s: %v", job.ID, err)
			return
		}
		log.Infof("[JobQueue] Job %s completed after %d attempt(s)", job.ID, job.Attempts)
		return
	}

	job.fail(runErr, now)
	data, err := json.Marshal(job)
	if err != nil {
		log.Errorf("[JobQueue] Failed to encode job %s: %v", job.ID, err)
		return
	}
	_, err = q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, activeKey, 1, job.ID)
		pipe.Set(ctx, jobKey(job.ID), data, jobTTL)
		if job.Status == JobStatusScheduled {
			due := now.Add(q.opts.RetryBackoff * time.Duration(job.Attempts))
			pipe.ZAdd(ctx, delayedKey, redis.Z{Score: float64(due.UnixMilli()), Member: job.ID})
		} else {
			pipe.HIncrBy(ctx, statsKey, string(JobStatusFailed), 1)
		}
		return nil
	})
	if err != nil {
		log.Errorf("[JobQueue] Failed to record failure of job %s: %v", job.ID, err)
		return
	}
	if job.Status == JobStatusScheduled {
		log.Warnf("[JobQueue] Job %s attempt %d/%d failed, retry scheduled: %v", job.ID, job.Attempts, job.MaxAttempts, runErr)
	} else {
		log.Errorf("[JobQueue] Job %s failed permanently: %v", job.ID, runErr)
	}
}

func (q *Queue) save(ctx context.Context, job *Job) {
	data, err := json.Marshal(job)
	if err != nil {
		log.Errorf("[JobQueue] Failed to encode job %s: %v", job.ID, err)
		return
	}
	if err := q.rdb.Set(ctx, jobKey(job.ID), data, jobTTL).Err(); err != nil {
		log.Errorf("[JobQueue] Failed to save job %s: %v", job.ID, err)
	}
}

func (q *Queue) maintain(ctx context.Context) {
	defer q.wg.Done()
	ticker := time.NewTicker(q.opts.PollInterval)
	defer ticker.Stop()
	sweeps := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := q.promoteDue(ctx); err != nil && ctx.Err() == nil {
				log.Errorf("[JobQueue] Failed to promote delayed jobs: %v", err)
			}
			if sweeps++; sweeps%60 == 0 {
				if _, err := q.requeueStale(ctx); err != nil && ctx.Err() == nil {
					log.Errorf("[JobQueue] Failed to requeue stale jobs: %v", err)
				}
			}
		}
	}
}

// promoteDue moves delayed jobs whose retry is due back to pending. ZRem
// decides which process wins a job when several share the queue.
func (q *Queue) promoteDue(ctx context.Context) (int, error) {
	ids, err := q.rdb.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(q.now().UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, err
	}
	moved := 0
	for _, id := range ids {
		removed, err := q.rdb.ZRem(ctx, delayedKey, id).Result()
		if err != nil {
			return moved, err
		}
		if removed == 0 {
			continue
		}
		if err := q.rdb.LPush(ctx, pendingKey, id).Err(); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

// requeueStale returns running jobs whose worker died back to the front of
// the pending list and drops active entries without job data.
func (q *Queue) requeueStale(ctx context.Context) (int, error) {
	ids, err := q.rdb.LRange(ctx, activeKey, 0, -1).Result()
	if err != nil {
		return 0, err
	}
	now := q.now()
	requeued := 0
	for _, id := range ids {
		job, err := q.Get(ctx, id)
		if err != nil {
			q.rdb.LRem(ctx, activeKey, 1, id)
			continue
		}
		// a queued job in the active list was just picked up by a worker
		since := job.EnqueuedAt
		switch job.Status {
		case JobStatusRunning:
			if job.StartedAt != nil {
				since = *job.StartedAt
			}
		case JobStatusQueued:
		default:
			q.rdb.LRem(ctx, activeKey, 1, id)
			continue
		}
		if now.Sub(since) < q.opts.StaleAfter {
			continue
		}
		log.Warnf("[JobQueue] Requeueing job %s, active since %s", id, since.Format(time.RFC3339))
		job.Status = JobStatusQueued
		job.LastError = "worker stopped responding"
		q.save(ctx, job)
		if err := q.rdb.LRem(ctx, activeKey, 1, id).Err(); err != nil {
			return requeued, err
		}
		if err := q.rdb.RPush(ctx, pendingKey, id).Err(); err != nil {
			return requeued, err
		}
		requeued++
	}
	return requeued, nil
}

// Get loads a stored job. Completed jobs are deleted and return redis.Nil.
func (q *Queue) Get(ctx context.Context, id string) (*Job, error) {
	data, err := q.rdb.Get(ctx, jobKey(id)).Bytes()
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("corrupt job %s: %w", id, err)
	}
	return &job, nil
}

// Stats reads the list sizes and the outcome counters.
func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	pipe := q.rdb.Pipeline()
	pending := pipe.LLen(ctx, pendingKey)
	active := pipe.LLen(ctx, activeKey)
	delayed := pipe.ZCard(ctx, delayedKey)
	counters := pipe.HGetAll(ctx, statsKey)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Stats{}, err
	}

	s := Stats{Pending: pending.Val(), Active: active.Val(), Delayed: delayed.Val()}
	for k, v := range counters.Val() {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		switch JobStatus(k) {
		case JobStatusCompleted:
			s.Completed = n
		case JobStatusFailed:
			s.Failed = n
		}
	}
	return s, nil
}
