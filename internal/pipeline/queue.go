// internal/pipeline/queue.go
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"pitch-scorer/internal/common/logger"
	"pitch-scorer/internal/common/metrics"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
)

var ErrQueueClosed = errors.New("task queue closed")

// Task is one unit of background work.
type Task struct {
	Name      string
	RequestID string
	Run       func(ctx context.Context) error
}

type QueueConfig struct {
	Workers  int
	Capacity int
	// Timeout bounds each task. Zero means no deadline.
	Timeout time.Duration
}

// TaskQueue runs tasks on a fixed set of workers. When the buffer is full new
// tasks are dropped, never blocking the caller. Task errors and panics are
// logged and go nowhere else.
type TaskQueue struct {
	config QueueConfig
	tasks  chan Task
	pool   *pool.Pool
	logger logger.Logger

	mu     sync.RWMutex
	closed bool
}

func NewTaskQueue(config QueueConfig, log logger.Logger) *TaskQueue {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.Capacity <= 0 {
		config.Capacity = 100
	}

	q := &TaskQueue{
		config: config,
		tasks:  make(chan Task, config.Capacity),
		pool:   pool.New().WithMaxGoroutines(config.Workers),
		logger: log.WithFields(map[string]interface{}{"component": "task-queue"}),
	}
	for i := 0; i < config.Workers; i++ {
		q.pool.Go(q.work)
	}
	return q
}

// Enqueue hands t to a worker. It reports false when t was dropped.
func (q *TaskQueue) Enqueue(t Task) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.logger.Warn("task dropped, queue closed", map[string]interface{}{
			"task":      t.Name,
			"requestId": t.RequestID,
		})
		return false
	}

	select {
	case q.tasks <- t:
		metrics.QueueDepth.Inc()
		return true
	default:
		q.logger.Warn("task dropped, queue full", map[string]interface{}{
			"task":      t.Name,
			"requestId": t.RequestID,
			"capacity":  q.config.Capacity,
		})
		return false
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish or for
// ctx to expire.
func (q *TaskQueue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.pool.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *TaskQueue) work() {
	for t := range q.tasks {
		metrics.QueueDepth.Dec()
		q.run(t)
	}
}

func (q *TaskQueue) run(t Task) {
	ctx := context.Background()
	if q.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.config.Timeout)
		defer cancel()
	}

	var err error
	var catcher panics.Catcher
	catcher.Try(func() { err = t.Run(ctx) })

	fields := map[string]interface{}{
		"task":      t.Name,
		"requestId": t.RequestID,
	}
	if r := catcher.Recovered(); r != nil {
		fields["panic"] = r.Value
		fields["stack"] = string(r.Stack)
		q.logger.Error("background task panicked", fields)
		return
	}
	if err != nil {
		fields["error"] = err
		q.logger.Error("background task failed", fields)
		return
	}
	q.logger.Debug("background task done", fields)
}
