package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-management-api/internal/models"
	appErrors "github.com/noah-isme/course-management-api/pkg/errors"
	"github.com/noah-isme/course-management-api/pkg/export"
)

type rosterRepository interface {
	ListRoster(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error)
}

type gradebookRepository interface {
	ListByAssignment(ctx context.Context, assignmentID string) ([]models.SubmissionDetail, error)
}

// ReportFile is a rendered export ready to be served.
type ReportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ReportService renders course rosters and gradebooks as CSV or PDF.
type ReportService struct {
	courses     courseLookup
	assignments assignmentLookup
	roster      rosterRepository
	submissions gradebookRepository
	logger      *zap.Logger
	now         func() time.Time
}

// NewReportService constructs a ReportService.
func NewReportService(courses courseLookup, assignments assignmentLookup, roster rosterRepository, submissions gradebookRepository, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		courses:     courses,
		assignments: assignments,
		roster:      roster,
		submissions: submissions,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CourseRoster exports the students enrolled in a course.
func (s *ReportService) CourseRoster(ctx context.Context, actor *models.JWTClaims, courseID, rawFormat string) (*ReportFile, error) {
	if err := authorize(actor, staffRoles...); err != nil {
		return nil, err
	}
	format, err := parseReportFormat(rawFormat)
	if err != nil {
		return nil, err
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, lookupError(err, "Course not found", "failed to load course")
	}
	if err := ownsCourse(actor, course); err != nil {
		return nil, err
	}
	entries, err := s.roster.ListRoster(ctx, courseID)
	if err != nil {
		return nil, internalError(err, "failed to load roster")
	}

	headers := []string{"Student", "Email", "Progress", "Status", "Enrolled At"}
	rows := make([]map[string]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, map[string]string{
			"Student":     entry.StudentName(),
			"Email":       entry.StudentEmail,
			"Progress":    strconv.Itoa(entry.Progress),
			"Status":      string(entry.Status),
			"Enrolled At": entry.EnrolledAt.UTC().Format(time.RFC3339),
		})
	}
	data := export.Dataset{Title: fmt.Sprintf("Roster: %s", course.Title), Headers: headers, Rows: rows}
	return s.render(format, "roster", course.Title, data)
}

// Gradebook exports every submission of an assignment.
func (s *ReportService) Gradebook(ctx context.Context, actor *models.JWTClaims, assignmentID, rawFormat string) (*ReportFile, error) {
	if err := authorize(actor, staffRoles...); err != nil {
		return nil, err
	}
	format, err := parseReportFormat(rawFormat)
	if err != nil {
		return nil, err
	}
	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, lookupError(err, "Assignment not found", "failed to load assignment")
	}
	course, err := s.courses.FindByID(ctx, assignment.CourseID)
	if err != nil {
		return nil, lookupError(err, "Course not found", "failed to load course")
	}
	if err := ownsCourse(actor, course); err != nil {
		return nil, err
	}
	submissions, err := s.submissions.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, internalError(err, "failed to load submissions")
	}

	headers := []string{"Student", "Email", "Submitted At", "Status", "Points", "Max Points", "Feedback"}
	rows := make([]map[string]string, 0, len(submissions))
	for _, sub := range submissions {
		rows = append(rows, map[string]string{
			"Student":      models.User{FirstName: sub.StudentFirstName, LastName: sub.StudentLastName}.FullName(),
			"Email":        sub.StudentEmail,
			"Submitted At": sub.SubmittedAt.UTC().Format(time.RFC3339),
			"Status":       string(sub.Status),
			"Points":       formatPoints(sub.Points),
			"Max Points":   strconv.Itoa(sub.MaxPoints),
			"Feedback":     derefString(sub.Feedback),
		})
	}
	data := export.Dataset{Title: fmt.Sprintf("Gradebook: %s", assignment.Title), Headers: headers, Rows: rows}
	return s.render(format, "gradebook", assignment.Title, data)
}

func (s *ReportService) render(format export.Format, kind, subject string, data export.Dataset) (*ReportFile, error) {
	payload, err := export.Render(format, data)
	if err != nil {
		return nil, internalError(err, "failed to render report")
	}
	name := fmt.Sprintf("%s_%s_%s.%s", kind, sanitizeFilename(subject), s.now().Format("20060102_150405"), format.Extension())
	return &ReportFile{Filename: name, ContentType: format.ContentType(), Data: payload}, nil
}

func parseReportFormat(raw string) (export.Format, error) {
	format, err := export.ParseFormat(raw)
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	return format, nil
}

func sanitizeFilename(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "\"", "")
	result := strings.ToLower(replacer.Replace(strings.TrimSpace(raw)))
	if len(result) > 60 {
		return result[:60]
	}
	return result
}

func formatPoints(points *int) string {
	if points == nil {
		return ""
	}
	return strconv.Itoa(*points)
}

func derefString(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
