package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/BookForge/internal/pkg/cache"
	"github.com/ManuelReschke/BookForge/internal/pkg/env"
)

// Manager owns the process-wide queue and reports its depth periodically.
type Manager struct {
	queue          *Queue
	reportInterval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the process-wide manager on the shared cache client.
func GetManager() *Manager {
	managerOnce.Do(func() {
		globalManager = NewManager(NewQueue(cache.GetClient(), OptionsFromEnv()))
	})
	return globalManager
}

// OptionsFromEnv reads JOB_WORKERS, JOB_MAX_ATTEMPTS and
// JOB_RETRY_BACKOFF_SECONDS. Missing or invalid values use the defaults.
func OptionsFromEnv() Options {
	return Options{
		Workers:      env.GetEnvInt("JOB_WORKERS", 3),
		MaxAttempts:  env.GetEnvInt("JOB_MAX_ATTEMPTS", DefaultMaxAttempts),
		RetryBackoff: time.Duration(env.GetEnvInt("JOB_RETRY_BACKOFF_SECONDS", 30)) * time.Second,
	}.withDefaults()
}

func NewManager(queue *Queue) *Manager {
	return &Manager{queue: queue, reportInterval: 5 * time.Minute}
}

func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start runs the queue and the stats reporter. Calling it twice is a no-op.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})

	m.queue.Start()
	go m.report(ctx, m.done)
	log.Info("[JobQueue Manager] Started")
}

// Stop halts the reporter, then drains the queue workers.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
	m.cancel = nil
	m.queue.Stop()
	log.Info("[JobQueue Manager] Stopped")
}

func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}

func (m *Manager) report(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(m.reportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s, err := m.queue.Stats(ctx)
			if err != nil {
				log.Errorf("[JobQueue Manager] Failed to read queue stats: %v", err)
				continue
			}
			log.Infof("[JobQueue Manager] pending=%d active=%d delayed=%d completed=%d failed=%d",
				s.Pending, s.Active, s.Delayed, s.Completed, s.Failed)
		}
	}
}
