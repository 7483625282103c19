package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/nao1215/wdcrawl/internal/model"
	"github.com/nao1215/wdcrawl/internal/storage"
)

// Runner executes one crawl job. The orchestrator in internal/crawler is
// the production implementation; tests substitute fakes.
//
// Run mutates rec in place as the crawl progresses and calls publish
// after each meaningful unit of work. A nil error means the crawl
// completed; a context cancellation surfaces as the context's error.
type Runner interface {
	Run(ctx context.Context, rec *model.JobRecord, publish func(model.Progress)) error
}

// Manager owns the lifecycle of crawl jobs: identifier allocation,
// artifact directory creation, concurrency limiting, execution, and
// terminal-state bookkeeping.
type Manager struct {
	runner Runner
	store  *storage.Store
	sem    *semaphore.Weighted
	logger *slog.Logger

	// now is the clock, overridable in tests.
	now func() time.Time

	mu     sync.Mutex
	jobs   map[string]*Job
	order  []string
	closed bool
	wg     sync.WaitGroup
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets a custom logger for the manager.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager running at most concurrency jobs at once.
func NewManager(runner Runner, store *storage.Store, concurrency int, opts ...ManagerOption) *Manager {
	if concurrency < 1 {
		concurrency = 1
	}
	m := &Manager{
		runner: runner,
		store:  store,
		sem:    semaphore.NewWeighted(int64(concurrency)),
		now:    time.Now,
		jobs:   make(map[string]*Job),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// Start validates the configuration, allocates a job, and begins
// executing it in the background. The returned Job can be observed via
// Subscribe and Done. When the concurrency limit is reached the job
// waits for a slot before its first phase runs.
func (m *Manager) Start(ctx context.Context, cfg model.CrawlConfig) (*Job, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid crawl configuration: %w", err)
	}

	id := uuid.NewString()
	dir, err := m.store.CreateJobDir(id)
	if err != nil {
		return nil, err
	}

	rec := model.JobRecord{
		ID:        id,
		Config:    cfg,
		Status:    model.StatusRunning,
		StartedAt: m.now(),
		OutputDir: dir.Path(),
	}
	if err := dir.WriteMetadata(&rec); err != nil {
		return nil, err
	}

	jobCtx, cancel := context.WithCancelCause(ctx)
	j := newJob(rec, cancel)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		cancel(ErrManagerClosed)
		return nil, ErrManagerClosed
	}
	m.jobs[id] = j
	m.order = append(m.order, id)
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(jobCtx, j, dir)

	return j, nil
}

// run executes one job to its terminal state.
func (m *Manager) run(ctx context.Context, j *Job, dir *storage.JobDir) {
	defer m.wg.Done()

	rec := j.Record()

	err := m.sem.Acquire(ctx, 1)
	if err == nil {
		j.publish(model.Progress{Phase: model.PhaseInitializing})
		err = m.runner.Run(ctx, &rec, func(p model.Progress) {
			j.publish(p)
			j.updateRecord(rec)
		})
		m.sem.Release(1)
	}

	rec.FinishedAt = m.now()
	phase := model.PhaseCompleted
	switch {
	case err == nil:
		rec.Status = model.StatusCompleted
	case errors.Is(context.Cause(ctx), ErrAborted):
		rec.Status = model.StatusAborted
		rec.Error = ErrAborted.Error()
		phase = model.PhaseAborted
	default:
		rec.Status = model.StatusFailed
		rec.Error = err.Error()
		phase = model.PhaseFailed
	}

	if werr := dir.WriteMetadata(&rec); werr != nil {
		m.logger.Warn("failed to persist final job metadata", "jobID", rec.ID, "error", werr)
	}

	m.logger.Info("job finished",
		"jobID", rec.ID,
		"status", rec.Status.String(),
		"triples", rec.TripleCount,
		"elapsed", rec.Elapsed().Round(time.Millisecond).String(),
	)

	final := j.Progress()
	final.Phase = phase
	if rec.Error != "" {
		final.Message = rec.Error
	}
	j.publish(final)
	j.finish(rec)
}

// Get returns the job with the given identifier.
func (m *Manager) Get(id string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return j, nil
}

// Jobs returns all known jobs in start order.
func (m *Manager) Jobs() []*Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Job, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.jobs[id])
	}
	return out
}

// Close stops accepting new jobs and waits for running jobs to finish.
// Running jobs are not aborted; callers wanting a fast shutdown should
// cancel the context passed to Start.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.wg.Wait()
}
