package mail

import (
	"context"

	"go.uber.org/zap"
)

// LogMailer writes messages to the logger instead of sending them.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	to := make([]string, 0, len(msg.To))
	for _, addr := range msg.To {
		to = append(to, addr.Address)
	}
	m.logger.Info("email", zap.Strings("to", to), zap.String("subject", msg.Subject))
	return nil
}
