package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/course-management-api/internal/models"
	"github.com/noah-isme/course-management-api/pkg/mail"
)

type captureMailer struct {
	sent []mail.Message
	err  error
}

func (m *captureMailer) Send(ctx context.Context, msg mail.Message) error {
	m.sent = append(m.sent, msg)
	return m.err
}

func TestNotificationServiceEnrollmentConfirmed(t *testing.T) {
	mailer := &captureMailer{}
	svc := NewNotificationService(mailer, zap.NewNop())
	student := models.User{ID: "s1", Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"}

	svc.EnrollmentConfirmed(context.Background(), student, models.Course{ID: "c1", Title: "Go"})
	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, "ada@example.com", msg.To[0].Address)
	assert.Equal(t, "Ada Lovelace", msg.To[0].Name)
	assert.Equal(t, "You are enrolled in Go", msg.Subject)
	assert.NoError(t, msg.Validate())
}

func TestNotificationServiceSubmissionGraded(t *testing.T) {
	mailer := &captureMailer{err: errors.New("smtp down")}
	svc := NewNotificationService(mailer, zap.NewNop())
	points, feedback := 8, "Solid work"

	assert.NotPanics(t, func() {
		svc.SubmissionGraded(context.Background(),
			models.User{ID: "s1", Email: "ada@example.com", FirstName: "Ada"},
			models.Assignment{Title: "Essay", MaxPoints: 10},
			models.Submission{ID: "sub-1", Points: &points, Feedback: &feedback})
	})
	require.Len(t, mailer.sent, 1)
	assert.Contains(t, mailer.sent[0].TextBody, "8/10 points")
	assert.Contains(t, mailer.sent[0].TextBody, "Feedback: Solid work")

	var nilSvc *NotificationService
	assert.NotPanics(t, func() {
		nilSvc.EnrollmentConfirmed(context.Background(), models.User{}, models.Course{})
	})
}
