package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/oracare/fulfillment/internal/domain/syncstate"
)

// Job is one unit of background work
type Job func(ctx context.Context) error

// EnabledFunc reports whether a workflow is currently switched on
type EnabledFunc func(ctx context.Context, workflow syncstate.Workflow) (bool, error)

// RunResult records one completed run of a worker
type RunResult struct {
	Workflow   syncstate.Workflow
	StartedAt  time.Time
	FinishedAt time.Time
	Skipped    bool
	Err        error
}

// IntervalWorker runs one job on a fixed interval. Runs never overlap: the
// next tick waits for the previous run to finish. A disabled workflow skips
// the run but keeps ticking.
type IntervalWorker struct {
	workflow   syncstate.Workflow
	interval   time.Duration
	runOnStart bool
	job        Job
	enabled    EnabledFunc
	logger     *zap.Logger

	mu      sync.RWMutex
	lastRun *RunResult
}

// NewIntervalWorker creates a new IntervalWorker
func NewIntervalWorker(workflow syncstate.Workflow, interval time.Duration, runOnStart bool, job Job, enabled EnabledFunc, logger *zap.Logger) *IntervalWorker {
	return &IntervalWorker{
		workflow:   workflow,
		interval:   interval,
		runOnStart: runOnStart,
		job:        job,
		enabled:    enabled,
		logger:     logger.Named(workflow.String()),
	}
}

// Run blocks until the context is cancelled, executing the job each interval
func (w *IntervalWorker) Run(ctx context.Context) {
	w.logger.Info("Worker started", zap.Duration("interval", w.interval))

	if w.runOnStart {
		w.runOnce(ctx)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Worker stopped")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// LastRun returns the most recent run result, or nil before the first run
func (w *IntervalWorker) LastRun() *RunResult {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastRun
}

func (w *IntervalWorker) runOnce(ctx context.Context) {
	result := RunResult{Workflow: w.workflow, StartedAt: time.Now()}

	on, err := w.enabled(ctx, w.workflow)
	if err != nil {
		// Control lookup failure fails open: a broken switch must not
		// silently halt synchronization.
		w.logger.Warn("Workflow control lookup failed, running anyway", zap.Error(err))
		on = true
	}

	if !on {
		w.logger.Debug("Workflow disabled, skipping run")
		result.Skipped = true
		result.FinishedAt = time.Now()
		w.record(result)
		return
	}

	err = w.job(ctx)
	result.FinishedAt = time.Now()
	result.Err = err
	w.record(result)

	elapsed := result.FinishedAt.Sub(result.StartedAt)
	if err != nil {
		w.logger.Error("Run failed", zap.Duration("elapsed", elapsed), zap.Error(err))
		return
	}
	w.logger.Info("Run completed", zap.Duration("elapsed", elapsed))
}

func (w *IntervalWorker) record(result RunResult) {
	w.mu.Lock()
	w.lastRun = &result
	w.mu.Unlock()
}

// Manager owns a set of interval workers and handles their lifecycle
type Manager struct {
	workers []*IntervalWorker
	logger  *zap.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
}

// NewManager creates a new Manager
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{logger: logger.Named("scheduler")}
}

// Register adds a worker. Must be called before Start.
func (m *Manager) Register(w *IntervalWorker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workers = append(m.workers, w)
}

// Start launches all registered workers
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.isRunning {
		return
	}
	m.isRunning = true

	ctx, m.cancel = context.WithCancel(ctx)
	for _, w := range m.workers {
		m.wg.Add(1)
		go func(w *IntervalWorker) {
			defer m.wg.Done()
			w.Run(ctx)
		}(w)
	}
	m.logger.Info("Scheduler started", zap.Int("workers", len(m.workers)))
}

// Stop cancels all workers and waits for in-flight runs to finish
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.isRunning {
		m.mu.Unlock()
		return
	}
	m.isRunning = false
	cancel := m.cancel
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.logger.Info("Scheduler stopped")
}

// Workers returns the registered workers for status reporting
func (m *Manager) Workers() []*IntervalWorker {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*IntervalWorker(nil), m.workers...)
}
