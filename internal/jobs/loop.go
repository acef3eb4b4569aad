package jobs

import (
	"log/slog"
	"sync"
	"time"
)

// loop runs a task on start, on every tick and whenever it is triggered
type loop struct {
	name     string
	interval time.Duration
	task     func()
	logger   *slog.Logger

	stopCh  chan struct{}
	trigger chan struct{}
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

func newLoop(name string, interval time.Duration, task func(), logger *slog.Logger) *loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &loop{
		name:     name,
		interval: interval,
		task:     task,
		logger:   logger.With("component", name),
		stopCh:   make(chan struct{}),
		trigger:  make(chan struct{}, 1),
	}
}

// Start begins the background job
func (l *loop) Start() {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return
	}
	l.running = true
	l.stopCh = make(chan struct{})
	l.mu.Unlock()

	l.wg.Add(1)
	go l.run()

	l.logger.Info("job started", slog.Duration("interval", l.interval))
}

// Stop waits for the current run to finish and ends the job
func (l *loop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	close(l.stopCh)
	l.mu.Unlock()

	l.wg.Wait()
	l.logger.Info("job stopped")
}

// IsRunning returns whether the job is currently running
func (l *loop) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Trigger requests an extra run without waiting for the next tick.
// Requests made while one is pending are coalesced.
func (l *loop) Trigger() {
	select {
	case l.trigger <- struct{}{}:
	default:
	}
}

func (l *loop) run() {
	defer l.wg.Done()

	// Run immediately on start
	l.task()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.task()
		case <-l.trigger:
			l.task()
		}
	}
}
