package mail

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridMailer delivers messages through the SendGrid v3 API.
type SendGridMailer struct {
	client     *sendgrid.Client
	from       *sgmail.Email
	subjPrefix string
}

func NewSendGridMailer(apiKey, fromName, fromAddress string) (*SendGridMailer, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("missing SENDGRID_API_KEY")
	}
	if strings.TrimSpace(fromAddress) == "" {
		return nil, fmt.Errorf("missing MAIL_FROM_ADDRESS")
	}
	prefix := ""
	if fromName != "" {
		prefix = "[" + fromName + "] "
	}
	return &SendGridMailer{
		client:     sendgrid.NewSendClient(apiKey),
		from:       sgmail.NewEmail(fromName, fromAddress),
		subjPrefix: prefix,
	}, nil
}

func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	v3, err := m.prepare(msg)
	if err != nil {
		return err
	}
	res, err := m.client.SendWithContext(ctx, v3)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid send: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

func (m *SendGridMailer) prepare(msg Message) (*sgmail.SGMailV3, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	p := sgmail.NewPersonalization()
	p.Subject = m.subjPrefix + msg.Subject
	for _, to := range msg.To {
		p.AddTos(sgmail.NewEmail(to.Name, to.Address))
	}

	v3 := sgmail.NewV3Mail()
	v3.SetFrom(m.from)
	v3.AddPersonalizations(p)
	if msg.TextBody != "" {
		v3.AddContent(sgmail.NewContent("text/plain", msg.TextBody))
	}
	if msg.HTMLBody != "" {
		v3.AddContent(sgmail.NewContent("text/html", msg.HTMLBody))
	}
	return v3, nil
}
