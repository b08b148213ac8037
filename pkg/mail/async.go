package mail

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-management-api/pkg/jobs"
)

const deliveryTimeout = 15 * time.Second

// AsyncMailer hands messages to a worker pool so callers never wait on the provider.
type AsyncMailer struct {
	queue  *jobs.Queue[Message]
	logger *zap.Logger
}

// NewAsyncMailer wraps next with a background delivery queue. Call Start before use.
func NewAsyncMailer(next Mailer, cfg jobs.Config) *AsyncMailer {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	deliver := func(ctx context.Context, task jobs.Task[Message]) error {
		ctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
		defer cancel()
		return next.Send(ctx, task.Payload)
	}
	return &AsyncMailer{
		queue:  jobs.New[Message]("mail", deliver, cfg),
		logger: cfg.Logger,
	}
}

// Start launches the delivery workers.
func (m *AsyncMailer) Start(ctx context.Context) {
	m.queue.Start(ctx)
}

// Stop drains buffered messages until ctx expires.
func (m *AsyncMailer) Stop(ctx context.Context) error {
	return m.queue.Stop(ctx)
}

// Send validates and enqueues msg. Provider errors surface only in the logs.
func (m *AsyncMailer) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	id, err := m.queue.Submit(msg)
	if err != nil {
		return fmt.Errorf("enqueue email: %w", err)
	}
	m.logger.Debug("email queued", zap.String("task_id", id), zap.String("subject", msg.Subject))
	return nil
}
