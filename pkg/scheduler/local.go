package scheduler

import (
	"context"
	"log/slog"
)

// Handler processes one task.
type Handler func(ctx context.Context, task *Task) error

// LocalQueue runs tasks on a background goroutine in the same process. It
// stands in for SQS in mock mode.
type LocalQueue struct {
	tasks   chan *Task
	handler Handler
	logger  *slog.Logger
}

// NewLocalQueue creates a LocalQueue holding up to size pending tasks.
func NewLocalQueue(size int, handler Handler, logger *slog.Logger) *LocalQueue {
	return &LocalQueue{tasks: make(chan *Task, size), handler: handler, logger: logger}
}

var _ Queue = (*LocalQueue)(nil)

// Enqueue blocks while the queue is full.
func (q *LocalQueue) Enqueue(ctx context.Context, task *Task) error {
	select {
	case q.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes tasks until ctx is done. Failed tasks are logged and dropped.
func (q *LocalQueue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case task := <-q.tasks:
			if err := q.handler(ctx, task); err != nil {
				q.logger.ErrorContext(ctx, "local task failed", "task_id", task.ID, "kind", task.Kind, "error", err)
			}
		}
	}
}
