package mail

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/course-management-api/pkg/config"
)

// Message is a single outbound email.
type Message struct {
	To       []mail.Address
	Subject  string
	TextBody string
	HTMLBody string
}

// Validate reports whether the message can be delivered.
func (m Message) Validate() error {
	if len(m.To) == 0 {
		return fmt.Errorf("message has no recipients")
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("message has no subject")
	}
	if m.TextBody == "" && m.HTMLBody == "" {
		return fmt.Errorf("message has no content")
	}
	return nil
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New selects a mailer implementation from configuration.
func New(cfg config.MailConfig, logger *zap.Logger) (Mailer, error) {
	switch cfg.Provider {
	case config.MailProviderSendGrid:
		return NewSendGridMailer(cfg.SendGridAPIKey, cfg.FromName, cfg.FromAddress)
	case "", config.MailProviderLog:
		return NewLogMailer(logger), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}
