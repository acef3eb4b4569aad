package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrPoolStopped is returned when submitting to a stopped pool
	ErrPoolStopped = errors.New("worker pool stopped")
	// ErrQueueFull is returned to jobs that submit while the queue is full.
	// Only callers outside the pool wait for a free slot.
	ErrQueueFull = errors.New("worker pool queue full")
)

// poolKey marks contexts handed to running jobs
type poolKey struct{}

// Job is one unit of background work
type Job struct {
	ID   string
	Name string
	// Ref identifies the subject of the job (article id, url) for logging
	Ref string
	Run func(ctx context.Context) error
}

// Pool runs jobs on a fixed number of goroutines. Jobs are not retried; a
// failure is logged with the job name and reference.
type Pool struct {
	workers int
	jobs    chan Job
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// quit is closed by Stop to release blocked submitters
	quit       chan struct{}
	submitting sync.WaitGroup

	mu      sync.RWMutex
	started bool
	stopped bool
}

// NewPool creates a pool with the given concurrency and queue size
func NewPool(workers, queueSize int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = workers * 16
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		workers: workers,
		jobs:    make(chan Job, queueSize),
		logger:  logger.With("component", "worker_pool"),
		quit:    make(chan struct{}),
	}
	p.ctx, p.cancel = context.WithCancel(context.WithValue(context.Background(), poolKey{}, p))
	return p
}

// Start launches the workers
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(i)
	}
	p.logger.Info("worker pool started", slog.Int("workers", p.workers))
}

// Stop stops accepting jobs, drains the queue and waits for workers
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.quit)
	p.mu.Unlock()

	p.submitting.Wait()
	close(p.jobs)
	p.wg.Wait()
	p.cancel()
	p.logger.Info("worker pool stopped")
}

// Submit queues fn and returns the job id. Callers outside the pool wait
// for a free slot until ctx is done or the pool stops. A running job that
// submits gets ErrQueueFull instead of waiting.
func (p *Pool) Submit(ctx context.Context, name, ref string, fn func(ctx context.Context) error) (string, error) {
	job := Job{ID: uuid.New().String(), Name: name, Ref: ref, Run: fn}

	p.mu.RLock()
	if p.stopped {
		p.mu.RUnlock()
		return "", ErrPoolStopped
	}
	p.submitting.Add(1)
	p.mu.RUnlock()
	defer p.submitting.Done()

	if ctx.Value(poolKey{}) == p {
		select {
		case p.jobs <- job:
			return p.queued(job), nil
		default:
			return "", ErrQueueFull
		}
	}

	select {
	case p.jobs <- job:
		return p.queued(job), nil
	case <-p.quit:
		return "", ErrPoolStopped
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (p *Pool) queued(job Job) string {
	p.logger.Debug("job queued", slog.String("job_id", job.ID), slog.String("job", job.Name), slog.String("ref", job.Ref))
	return job.ID
}

// Pending returns the number of queued jobs waiting for a worker
func (p *Pool) Pending() int {
	return len(p.jobs)
}

func (p *Pool) run(worker int) {
	defer p.wg.Done()
	for job := range p.jobs {
		p.execute(worker, job)
	}
}

func (p *Pool) execute(worker int, job Job) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("job panicked",
				slog.String("job_id", job.ID),
				slog.String("job", job.Name),
				slog.String("ref", job.Ref),
				slog.Any("panic", r))
		}
	}()

	if err := job.Run(p.ctx); err != nil {
		p.logger.Error("job failed",
			slog.Int("worker", worker),
			slog.String("job_id", job.ID),
			slog.String("job", job.Name),
			slog.String("ref", job.Ref),
			slog.Duration("elapsed", time.Since(start)),
			slog.Any("error", err))
		return
	}
	p.logger.Debug("job done",
		slog.String("job_id", job.ID),
		slog.String("job", job.Name),
		slog.Duration("elapsed", time.Since(start)))
}
