package workers

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/Raman369AI/fileProcessor/config"
	"github.com/Raman369AI/fileProcessor/interfaces"
	"github.com/Raman369AI/fileProcessor/internal/logger"
	"github.com/Raman369AI/fileProcessor/internal/repository"
	"github.com/Raman369AI/fileProcessor/services/results"
)

const (
	restartBackoffInitial = time.Second
	restartBackoffMax     = time.Minute
	// a heartbeat older than this many poll intervals marks the worker stalled
	stalledAfterPolls = 3
)

// Dependencies is everything a worker needs to run the pipeline.
type Dependencies struct {
	Queue     interfaces.AttachmentQueue
	Extractor interfaces.ContentExtractor
	Store     *results.Store
	Repos     *repository.Repositories
	Publisher interfaces.EventPublisher
	Sink      ResultSink
}

// WorkerStatus is one worker's entry in the pool snapshot.
type WorkerStatus struct {
	WorkerID      string    `json:"worker_id"`
	Alive         bool      `json:"alive"`
	Stalled       bool      `json:"stalled"`
	Processed     int64     `json:"processed"`
	Failed        int64     `json:"failed"`
	Restarts      int       `json:"restarts"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
}

// PoolStats is the aggregate view served by the control API.
type PoolStats struct {
	Running        bool           `json:"running"`
	WorkerCount    int            `json:"worker_count"`
	TotalProcessed int64          `json:"total_processed"`
	TotalFailed    int64          `json:"total_failed"`
	Workers        []WorkerStatus `json:"workers"`
}

type supervised struct {
	mu       sync.Mutex
	worker   *Worker
	alive    bool
	restarts int
}

// Manager runs a fixed pool of workers as supervised goroutines. A
// worker that panics is replaced, with a restart delay that doubles up
// to a cap so a crash loop cannot spin hot.
type Manager struct {
	cfg  *config.WorkerConfig
	deps *Dependencies
	log  logger.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	pool    []*supervised
	gen     int
}

func NewManager(cfg *config.WorkerConfig, deps *Dependencies, log logger.Logger) *Manager {
	return &Manager{cfg: cfg, deps: deps, log: log}
}

// Start launches the pool. Safe to call once per stopped manager.
func (m *Manager) Start(ctx context.Context) error {
	if m.deps.Queue == nil {
		return errors.New("worker pool requires a queue")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("worker pool already running")
	}

	count := m.cfg.Count
	if count <= 0 {
		count = 2
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.gen++
	m.pool = make([]*supervised, 0, count)

	for i := 0; i < count; i++ {
		id := fmt.Sprintf("worker-%d-%d", m.gen, i+1)
		s := &supervised{worker: newWorker(id, m.deps, m.cfg, m.log), alive: true}
		m.pool = append(m.pool, s)

		m.wg.Add(1)
		go m.supervise(runCtx, s)
	}

	m.log.Infof("worker pool started with %d workers", count)
	return nil
}

// supervise keeps one worker slot occupied: run, and if the run ends in
// a panic while the pool is still live, start a replacement after a
// doubling backoff.
func (m *Manager) supervise(ctx context.Context, s *supervised) {
	defer m.wg.Done()

	backoff := restartBackoffInitial
	for {
		started := time.Now()
		panicked := m.runGuarded(ctx, s)

		if ctx.Err() != nil {
			s.mu.Lock()
			s.alive = false
			s.mu.Unlock()
			return
		}
		if !panicked {
			// clean return without cancellation should not happen,
			// treat it like a crash
			m.log.Errorf("worker %s exited unexpectedly", s.worker.ID())
		}

		if time.Since(started) > restartBackoffMax {
			backoff = restartBackoffInitial
		}

		m.log.Warnf("restarting worker %s in %s", s.worker.ID(), backoff)
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.alive = false
			s.mu.Unlock()
			return
		case <-time.After(backoff):
		}
		if backoff < restartBackoffMax {
			backoff *= 2
			if backoff > restartBackoffMax {
				backoff = restartBackoffMax
			}
		}

		s.mu.Lock()
		s.restarts++
		replacement := newWorker(s.worker.ID(), m.deps, m.cfg, m.log)
		s.worker = replacement
		s.alive = true
		s.mu.Unlock()
	}
}

func (m *Manager) runGuarded(ctx context.Context, s *supervised) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			m.log.Errorf("worker %s panicked: %v\n%s", s.worker.ID(), r, debug.Stack())
		}
	}()

	s.mu.Lock()
	w := s.worker
	s.mu.Unlock()

	w.Run(ctx)
	return false
}

// Stop cancels the pool and waits up to grace for the workers to drain.
// Workers still running after the grace period are abandoned; an
// in-flight task they held is lost from the queue.
func (m *Manager) Stop(grace time.Duration) {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	m.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.log.Info("worker pool stopped")
	case <-time.After(grace):
		m.log.Warnf("worker pool shutdown timed out after %s, abandoning workers", grace)
	}
}

// Restart tears the pool down and starts a fresh generation.
func (m *Manager) Restart(ctx context.Context, grace time.Duration) error {
	m.Stop(grace)
	return m.Start(ctx)
}

func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Stats snapshots every worker slot. A worker whose heartbeat is older
// than a few poll intervals is reported stalled but left running; only
// a panic actually replaces it.
func (m *Manager) Stats() PoolStats {
	m.mu.Lock()
	running := m.running
	pool := make([]*supervised, len(m.pool))
	copy(pool, m.pool)
	m.mu.Unlock()

	stats := PoolStats{Running: running, WorkerCount: len(pool)}
	staleAfter := time.Duration(stalledAfterPolls) * m.pollInterval()

	for _, s := range pool {
		s.mu.Lock()
		w := s.worker
		status := WorkerStatus{
			WorkerID:      w.ID(),
			Alive:         s.alive,
			Processed:     w.processed.Load(),
			Failed:        w.failed.Load(),
			Restarts:      s.restarts,
			LastHeartbeat: w.lastBeat(),
		}
		s.mu.Unlock()

		status.Stalled = status.Alive && time.Since(status.LastHeartbeat) > staleAfter
		stats.TotalProcessed += status.Processed
		stats.TotalFailed += status.Failed
		stats.Workers = append(stats.Workers, status)
	}

	return stats
}

// Healthy reports whether every slot is alive and beating.
func (m *Manager) Healthy() bool {
	stats := m.Stats()
	if !stats.Running {
		return false
	}
	for _, w := range stats.Workers {
		if !w.Alive || w.Stalled {
			return false
		}
	}
	return true
}

func (m *Manager) pollInterval() time.Duration {
	poll := time.Duration(m.cfg.LivenessPoll) * time.Second
	if poll <= 0 {
		poll = 10 * time.Second
	}
	return poll
}
