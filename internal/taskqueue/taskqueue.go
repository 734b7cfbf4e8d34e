// Package taskqueue is a small in-process worker pool with named task
// dispatch. Task functions are registered once at startup; callers enqueue
// by name, immediately or after a delay.
package taskqueue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// TaskFunc is one registered executable unit.
type TaskFunc func(ctx context.Context, args ...string) error

// Registry maps task names onto functions. Registration happens at startup;
// there is no runtime dynamic loading.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]TaskFunc
}

// NewRegistry creates an empty task registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]TaskFunc)}
}

// Register binds a name to a function. Re-registering a name replaces the
// previous binding.
func (r *Registry) Register(name string, fn TaskFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[name] = fn
}

// Resolve returns the function bound to name.
func (r *Registry) Resolve(name string) (TaskFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.tasks[name]
	return fn, ok
}

// task is one queued invocation.
type task struct {
	name string
	args []string
}

// Queue runs registered tasks on a fixed worker pool.
type Queue struct {
	registry *Registry
	tasks    chan task
	workers  int
	wg       sync.WaitGroup
	timerWG  sync.WaitGroup
	logger   *slog.Logger
	shutdown chan struct{}
	stopOnce sync.Once
}

// NewQueue creates a queue over the given registry.
func NewQueue(registry *Registry, workers, depth int, logger *slog.Logger) *Queue {
	if workers <= 0 {
		workers = 4
	}
	if depth <= 0 {
		depth = workers * 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		registry: registry,
		tasks:    make(chan task, depth),
		workers:  workers,
		logger:   logger.With(slog.String("component", "taskqueue")),
		shutdown: make(chan struct{}),
	}
}

// Start begins processing tasks.
func (q *Queue) Start(ctx context.Context) {
	q.logger.Info("starting task queue", slog.Int("workers", q.workers))
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
}

// Stop drains in-flight work and shuts the pool down. Pending delayed
// enqueues are abandoned.
func (q *Queue) Stop(timeout time.Duration) error {
	q.logger.Info("stopping task queue")
	q.stopOnce.Do(func() { close(q.shutdown) })

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("task queue did not stop within %s", timeout)
	}
}

// Enqueue submits a task for immediate execution.
func (q *Queue) Enqueue(name string, args ...string) error {
	if _, ok := q.registry.Resolve(name); !ok {
		return fmt.Errorf("no task registered for %q", name)
	}
	select {
	case <-q.shutdown:
		return fmt.Errorf("task queue is stopped")
	default:
	}
	select {
	case q.tasks <- task{name: name, args: args}:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

// EnqueueIn submits a task after a delay. The delay is best-effort: a
// stopped queue drops the pending submission.
func (q *Queue) EnqueueIn(delay time.Duration, name string, args ...string) error {
	if _, ok := q.registry.Resolve(name); !ok {
		return fmt.Errorf("no task registered for %q", name)
	}
	if delay <= 0 {
		return q.Enqueue(name, args...)
	}

	q.timerWG.Add(1)
	go func() {
		defer q.timerWG.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-q.shutdown:
		case <-timer.C:
			if err := q.Enqueue(name, args...); err != nil {
				q.logger.Warn("delayed enqueue dropped",
					slog.String("task", name),
					slog.String("error", err.Error()))
			}
		}
	}()
	return nil
}

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()
	logger := q.logger.With(slog.Int("worker", id))

	for {
		select {
		case <-q.shutdown:
			return
		case <-ctx.Done():
			return
		case t := <-q.tasks:
			fn, ok := q.registry.Resolve(t.name)
			if !ok {
				logger.Error("task vanished from registry", slog.String("task", t.name))
				continue
			}
			started := time.Now()
			if err := fn(ctx, t.args...); err != nil {
				logger.Error("task failed",
					slog.String("task", t.name),
					slog.Duration("duration", time.Since(started)),
					slog.String("error", err.Error()))
				continue
			}
			logger.Debug("task completed",
				slog.String("task", t.name),
				slog.Duration("duration", time.Since(started)))
		}
	}
}
