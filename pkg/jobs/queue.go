package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrNotRunning is returned when submitting to a queue that is not started or already stopped.
	ErrNotRunning = errors.New("queue is not running")
	// ErrQueueFull is returned when the buffer has no free slot.
	ErrQueueFull = errors.New("queue is full")
)

// Task wraps a payload with delivery bookkeeping.
type Task[T any] struct {
	ID       string
	Payload  T
	Attempt  int
	Enqueued time.Time
}

// HandlerFunc processes one task. A returned error schedules a retry until the attempt budget is spent.
type HandlerFunc[T any] func(ctx context.Context, task Task[T]) error

// Config tunes the worker pool.
type Config struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.BufferSize <= 0 {
		c.BufferSize = c.Workers * 16
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Queue is an in-memory worker pool. Submit never blocks the caller.
type Queue[T any] struct {
	name    string
	handler HandlerFunc[T]
	cfg     Config

	tasks   chan Task[T]
	ctx     context.Context
	cancel  context.CancelFunc
	workers sync.WaitGroup
	retries sync.WaitGroup

	mu      sync.RWMutex
	running bool
	stopped bool
}

// New builds a stopped queue.
func New[T any](name string, handler HandlerFunc[T], cfg Config) *Queue[T] {
	cfg = cfg.withDefaults()
	return &Queue[T]{
		name:    name,
		handler: handler,
		cfg:     cfg,
		tasks:   make(chan Task[T], cfg.BufferSize),
	}
}

// Start launches the workers. Calling it twice, or after Stop, is a no-op.
func (q *Queue[T]) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running || q.stopped {
		return
	}
	q.ctx, q.cancel = context.WithCancel(context.WithoutCancel(ctx))
	for i := 0; i < q.cfg.Workers; i++ {
		q.workers.Add(1)
		go q.work()
	}
	q.running = true
	q.cfg.Logger.Info("queue started", zap.String("queue", q.name), zap.Int("workers", q.cfg.Workers))
}

// Stop refuses new tasks, lets the workers drain what is buffered and waits for them.
// When ctx expires first, in-flight handlers are cancelled. Retries still waiting on their delay are abandoned.
func (q *Queue[T]) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = false
	q.stopped = true
	close(q.tasks)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.workers.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
		// handlers now see a cancelled context and fail fast
		q.cancel()
		<-done
	}
	q.cancel()
	q.retries.Wait()
	q.cfg.Logger.Info("queue stopped", zap.String("queue", q.name), zap.Bool("drained", err == nil))
	return err
}

// Submit buffers a payload for processing and returns the task id.
func (q *Queue[T]) Submit(payload T) (string, error) {
	task := Task[T]{ID: uuid.NewString(), Payload: payload, Enqueued: time.Now().UTC()}
	if err := q.push(task); err != nil {
		return "", err
	}
	return task.ID, nil
}

// Pending reports how many tasks wait in the buffer.
func (q *Queue[T]) Pending() int {
	return len(q.tasks)
}

func (q *Queue[T]) push(task Task[T]) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.running {
		return ErrNotRunning
	}
	select {
	case q.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *Queue[T]) work() {
	defer q.workers.Done()
	for task := range q.tasks {
		if err := q.handler(q.ctx, task); err != nil {
			q.retry(task, err)
		}
	}
}

func (q *Queue[T]) retry(task Task[T], cause error) {
	task.Attempt++
	fields := []zap.Field{
		zap.String("queue", q.name),
		zap.String("task_id", task.ID),
		zap.Int("attempt", task.Attempt),
		zap.Error(cause),
	}
	if task.Attempt > q.cfg.MaxRetries {
		q.cfg.Logger.Error("task exhausted retries", fields...)
		return
	}
	q.cfg.Logger.Warn("task failed, retrying", fields...)

	q.retries.Add(1)
	go func() {
		defer q.retries.Done()
		timer := time.NewTimer(q.cfg.RetryDelay * time.Duration(task.Attempt))
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			q.cfg.Logger.Warn("retry abandoned", zap.String("queue", q.name), zap.String("task_id", task.ID))
		case <-timer.C:
			if err := q.push(task); err != nil {
				q.cfg.Logger.Error("requeue failed", zap.String("queue", q.name), zap.String("task_id", task.ID), zap.Error(err))
			}
		}
	}()
}
