package service

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-management-api/internal/models"
	pkgmail "github.com/noah-isme/course-management-api/pkg/mail"
)

const notificationTimeout = 10 * time.Second

// NotificationService emails students about enrollment and grading. Delivery failures are logged only.
type NotificationService struct {
	mailer pkgmail.Mailer
	logger *zap.Logger
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(mailer pkgmail.Mailer, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{mailer: mailer, logger: logger}
}

// EnrollmentConfirmed tells a student their enrollment went through.
func (s *NotificationService) EnrollmentConfirmed(ctx context.Context, student models.User, course models.Course) {
	subject := fmt.Sprintf("You are enrolled in %s", course.Title)
	body := fmt.Sprintf("Hi %s,\n\nYour enrollment in \"%s\" is confirmed. Happy learning!\n", student.FirstName, course.Title)
	s.send(ctx, student, subject, body)
}

// SubmissionGraded tells a student their submission has a grade.
func (s *NotificationService) SubmissionGraded(ctx context.Context, student models.User, assignment models.Assignment, submission models.Submission) {
	subject := fmt.Sprintf("Your submission for %s was graded", assignment.Title)
	body := fmt.Sprintf("Hi %s,\n\nYour submission for \"%s\" received %s/%d points.\n", student.FirstName, assignment.Title, formatPoints(submission.Points), assignment.MaxPoints)
	if feedback := derefString(submission.Feedback); feedback != "" {
		body += fmt.Sprintf("\nFeedback: %s\n", feedback)
	}
	s.send(ctx, student, subject, body)
}

func (s *NotificationService) send(ctx context.Context, to models.User, subject, body string) {
	if s == nil || s.mailer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notificationTimeout)
	defer cancel()

	msg := pkgmail.Message{
		To:       []mail.Address{{Name: to.FullName(), Address: to.Email}},
		Subject:  subject,
		TextBody: body,
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Warn("notification delivery failed", zap.String("user_id", to.ID), zap.String("subject", subject), zap.Error(err))
	}
}
