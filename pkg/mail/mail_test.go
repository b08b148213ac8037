package mail

import (
	"context"
	"errors"
	"net/mail"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/course-management-api/pkg/config"
	"github.com/noah-isme/course-management-api/pkg/jobs"
)

func sampleMessage() Message {
	return Message{
		To:       []mail.Address{{Name: "Ada", Address: "ada@example.com"}},
		Subject:  "Enrollment confirmed",
		TextBody: "Welcome to Go 101",
	}
}

func TestLogMailerSend(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewLogMailer(zap.New(core))

	require.NoError(t, m.Send(context.Background(), sampleMessage()))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Enrollment confirmed", logs.All()[0].ContextMap()["subject"])

	assert.Error(t, m.Send(context.Background(), Message{Subject: "x", TextBody: "y"}))
}

func TestSendGridPrepare(t *testing.T) {
	m, err := NewSendGridMailer("key", "Courses", "no-reply@example.com")
	require.NoError(t, err)

	v3, err := m.prepare(sampleMessage())
	require.NoError(t, err)
	require.Len(t, v3.Personalizations, 1)
	assert.Equal(t, "[Courses] Enrollment confirmed", v3.Personalizations[0].Subject)
	assert.Equal(t, "ada@example.com", v3.Personalizations[0].To[0].Address)
	require.Len(t, v3.Content, 1)
	assert.Equal(t, "text/plain", v3.Content[0].Type)

	_, err = m.prepare(Message{To: sampleMessage().To, Subject: "x"})
	assert.Error(t, err)
}

func TestNewSelectsProvider(t *testing.T) {
	m, err := New(config.MailConfig{Provider: config.MailProviderLog}, nil)
	require.NoError(t, err)
	assert.IsType(t, &LogMailer{}, m)

	_, err = New(config.MailConfig{Provider: config.MailProviderSendGrid}, nil)
	assert.Error(t, err)

	_, err = New(config.MailConfig{Provider: "smtp"}, nil)
	assert.Error(t, err)
}

type recordingMailer struct {
	mu    sync.Mutex
	fails int
	sent  []Message
}

func (r *recordingMailer) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fails > 0 {
		r.fails--
		return errors.New("provider unavailable")
	}
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingMailer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func TestAsyncMailerDeliversInBackground(t *testing.T) {
	next := &recordingMailer{fails: 1}
	m := NewAsyncMailer(next, jobs.Config{MaxRetries: 2, RetryDelay: time.Millisecond})
	m.Start(context.Background())

	require.NoError(t, m.Send(context.Background(), sampleMessage()))
	assert.Error(t, m.Send(context.Background(), Message{Subject: "no recipients", TextBody: "x"}))

	assert.Eventually(t, func() bool { return next.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, m.Stop(context.Background()))

	assert.Error(t, m.Send(context.Background(), sampleMessage()))
}
