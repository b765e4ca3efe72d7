package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Task is a unit of background work. ctx is cancelled when the task's
// write timeout elapses or the scheduler gives up during shutdown.
type Task func(ctx context.Context)

// Scheduler runs tasks off the response path.
type Scheduler interface {
	// Schedule submits a task. It never blocks and reports whether the
	// task was accepted.
	Schedule(name string, task Task) bool

	// Close stops accepting tasks and waits for pending ones until ctx is
	// done or the scheduler's own grace period elapses.
	Close(ctx context.Context) error
}

type job struct {
	name string
	task Task
}

// DetachedScheduler runs tasks on a fixed pool of workers fed by a bounded
// queue. Tasks submitted to a full queue are dropped.
type DetachedScheduler struct {
	queue        chan job
	writeTimeout time.Duration
	gracePeriod  time.Duration

	baseCtx context.Context
	cancel  context.CancelFunc

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewDetachedScheduler starts workers goroutines.
func NewDetachedScheduler(workers, queueSize int, writeTimeout, gracePeriod time.Duration) *DetachedScheduler {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &DetachedScheduler{
		queue:        make(chan job, queueSize),
		writeTimeout: writeTimeout,
		gracePeriod:  gracePeriod,
		baseCtx:      ctx,
		cancel:       cancel,
		logger:       slog.Default().With("component", "requestlog.scheduler"),
	}

	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s
}

// Schedule implements Scheduler.
func (s *DetachedScheduler) Schedule(name string, task Task) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.logger.Warn("scheduler closed, dropping task", "task", name)
		return false
	}

	select {
	case s.queue <- job{name: name, task: task}:
		return true
	default:
		s.logger.Error("task queue full, dropping task",
			"task", name,
			"queue_capacity", cap(s.queue),
		)
		return false
	}
}

// Pending returns the number of queued tasks.
func (s *DetachedScheduler) Pending() int {
	return len(s.queue)
}

// Close implements Scheduler. Tasks still running when the grace period
// ends have their contexts cancelled.
func (s *DetachedScheduler) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	s.logger.Info("draining background tasks", "pending_count", len(s.queue))

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	var grace <-chan time.Time
	if s.gracePeriod > 0 {
		timer := time.NewTimer(s.gracePeriod)
		defer timer.Stop()
		grace = timer.C
	}

	select {
	case <-done:
		s.cancel()
		s.logger.Info("background tasks drained")
		return nil
	case <-grace:
		s.cancel()
		<-done
		s.logger.Warn("grace period elapsed, abandoned pending tasks", "grace_period", s.gracePeriod)
		return context.DeadlineExceeded
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}

func (s *DetachedScheduler) worker() {
	defer s.wg.Done()
	for j := range s.queue {
		s.run(j)
	}
}

func (s *DetachedScheduler) run(j job) {
	if s.baseCtx.Err() != nil {
		return
	}

	ctx := s.baseCtx
	if s.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.writeTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("background task panicked", "task", j.name, "panic", r)
		}
	}()

	j.task(ctx)
}

// SyncScheduler runs each task before Schedule returns. Tests use it to
// assert on delivered logs deterministically.
type SyncScheduler struct{}

// Schedule implements Scheduler.
func (SyncScheduler) Schedule(_ string, task Task) bool {
	task(context.Background())
	return true
}

// Close implements Scheduler.
func (SyncScheduler) Close(context.Context) error {
	return nil
}
