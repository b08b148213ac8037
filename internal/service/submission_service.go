package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-management-api/internal/dto"
	"github.com/noah-isme/course-management-api/internal/models"
	appErrors "github.com/noah-isme/course-management-api/pkg/errors"
)

const (
	msgDeadlinePassed   = "Assignment deadline has passed"
	msgAlreadySubmitted = "Assignment already submitted"
)

type submissionRepository interface {
	FindByID(ctx context.Context, id string) (*models.Submission, error)
	FindDetail(ctx context.Context, id string) (*models.SubmissionDetail, error)
	FindByAssignmentAndStudent(ctx context.Context, assignmentID, studentID string) (*models.SubmissionDetail, error)
	Exists(ctx context.Context, assignmentID, studentID string) (bool, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.SubmissionDetail, error)
	ListByAssignment(ctx context.Context, assignmentID string) ([]models.SubmissionDetail, error)
	Create(ctx context.Context, submission *models.Submission) error
	Grade(ctx context.Context, submission *models.Submission) error
}

type assignmentLookup interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
}

type enrollmentChecker interface {
	Exists(ctx context.Context, studentID, courseID string) (bool, error)
}

type submissionNotifier interface {
	SubmissionGraded(ctx context.Context, student models.User, assignment models.Assignment, submission models.Submission)
}

type submissionRecorder interface {
	RecordSubmission()
	RecordGrade()
}

// SubmissionDeps groups the collaborators of SubmissionService.
type SubmissionDeps struct {
	Submissions submissionRepository
	Assignments assignmentLookup
	Courses     courseLookup
	Users       userLookup
	Enrollments enrollmentChecker
	Audit       auditRepository
	Notifier    submissionNotifier
	Metrics     submissionRecorder
}

// SubmissionService records and grades student work.
type SubmissionService struct {
	deps      SubmissionDeps
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewSubmissionService constructs a SubmissionService. Notifier and Metrics may be nil.
func NewSubmissionService(deps SubmissionDeps, validate *validator.Validate, logger *zap.Logger) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &SubmissionService{deps: deps, validator: validate, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Submit records the calling student's single submission before the due date.
func (s *SubmissionService) Submit(ctx context.Context, actor *models.JWTClaims, assignmentID string, req dto.SubmissionRequest) (*dto.SubmissionResponse, error) {
	if err := authorize(actor, models.RoleStudent); err != nil {
		return nil, err
	}
	req.SubmissionText = strings.TrimSpace(req.SubmissionText)
	req.FileURL = strings.TrimSpace(req.FileURL)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidator(err, "invalid submission payload")
	}

	assignment, err := s.deps.Assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, lookupError(err, "Assignment not found", "failed to load assignment")
	}
	student, err := s.deps.Users.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, lookupError(err, "Student not found", "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return nil, invalidOperation("Only students can submit assignments")
	}
	enrolled, err := s.deps.Enrollments.Exists(ctx, student.ID, assignment.CourseID)
	if err != nil {
		return nil, internalError(err, "failed to check enrollment")
	}
	if !enrolled {
		return nil, invalidOperation("Student is not enrolled in this course")
	}
	now := s.now()
	if assignment.PastDue(now) {
		return nil, invalidOperation(msgDeadlinePassed)
	}
	submitted, err := s.deps.Submissions.Exists(ctx, assignment.ID, student.ID)
	if err != nil {
		return nil, internalError(err, "failed to check submission")
	}
	if submitted {
		return nil, invalidOperation(msgAlreadySubmitted)
	}

	submission := req.ToModel(assignment.ID, student.ID)
	submission.SubmittedAt = now
	submission.Status = models.SubmissionStatusSubmitted
	if err := s.deps.Submissions.Create(ctx, &submission); err != nil {
		if isDuplicate(err) {
			return nil, invalidOperation(msgAlreadySubmitted)
		}
		return nil, internalError(err, "failed to create submission")
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordSubmission()
	}
	return s.detail(ctx, submission.ID)
}

// Grade scores a submission within [0, maxPoints]. Grading again overwrites the previous grade.
func (s *SubmissionService) Grade(ctx context.Context, actor *models.JWTClaims, id string, req dto.GradeRequest) (*dto.SubmissionResponse, error) {
	if err := authorize(actor, staffRoles...); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidator(err, "invalid grade payload")
	}

	submission, err := s.deps.Submissions.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "Submission not found", "failed to load submission")
	}
	grader, err := s.deps.Users.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, lookupError(err, "Grader not found", "failed to load grader")
	}
	if grader.Role != models.RoleInstructor && grader.Role != models.RoleAdmin {
		return nil, invalidOperation("Only instructors or admins can grade submissions")
	}
	assignment, err := s.deps.Assignments.FindByID(ctx, submission.AssignmentID)
	if err != nil {
		return nil, lookupError(err, "Assignment not found", "failed to load assignment")
	}
	if err := s.managedCourse(ctx, actor, assignment.CourseID); err != nil {
		return nil, err
	}
	points := *req.Points
	if points < 0 || points > assignment.MaxPoints {
		return nil, invalidOperation(fmt.Sprintf("Points must be between 0 and %d", assignment.MaxPoints))
	}

	previous := submission.Points
	now := s.now()
	feedback := strings.TrimSpace(req.Feedback)
	submission.Points = &points
	submission.Feedback = &feedback
	submission.Status = models.SubmissionStatusGraded
	submission.GradedAt = &now
	submission.GradedBy = &grader.ID
	if err := s.deps.Submissions.Grade(ctx, submission); err != nil {
		return nil, lookupError(err, "Submission not found", "failed to grade submission")
	}

	recordAudit(ctx, s.deps.Audit, s.logger, auditEntry{
		actorID: actor.UserID, action: models.AuditActionGrade, resource: "submissions", resourceID: id,
		oldValues: map[string]*int{"points": previous}, newValues: map[string]int{"points": points},
	})
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordGrade()
	}
	if s.deps.Notifier != nil {
		if student, err := s.deps.Users.FindByID(ctx, submission.StudentID); err == nil {
			s.deps.Notifier.SubmissionGraded(ctx, *student, *assignment, *submission)
		} else {
			s.logger.Warn("skip grade notification", zap.String("submission_id", id), zap.Error(err))
		}
	}
	return s.detail(ctx, id)
}

// Get returns a submission to its student or to staff.
func (s *SubmissionService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*dto.SubmissionResponse, error) {
	if err := authorize(actor, anyRole...); err != nil {
		return nil, err
	}
	detail, err := s.deps.Submissions.FindDetail(ctx, id)
	if err != nil {
		return nil, lookupError(err, "Submission not found", "failed to load submission")
	}
	if actor.Role == models.RoleStudent && detail.StudentID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "submission belongs to another student")
	}
	resp := dto.NewSubmissionDetailResponse(*detail)
	return &resp, nil
}

// GetByAssignmentAndStudent returns the pair's submission. Students may only read their own.
func (s *SubmissionService) GetByAssignmentAndStudent(ctx context.Context, actor *models.JWTClaims, assignmentID, studentID string) (*dto.SubmissionResponse, error) {
	if err := authorize(actor, anyRole...); err != nil {
		return nil, err
	}
	if studentID == "" {
		studentID = actor.UserID
	}
	if actor.Role == models.RoleStudent && studentID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "submission belongs to another student")
	}
	detail, err := s.deps.Submissions.FindByAssignmentAndStudent(ctx, assignmentID, studentID)
	if err != nil {
		return nil, lookupError(err, "Submission not found", "failed to load submission")
	}
	resp := dto.NewSubmissionDetailResponse(*detail)
	return &resp, nil
}

// ListMine returns the calling student's submissions.
func (s *SubmissionService) ListMine(ctx context.Context, actor *models.JWTClaims) ([]dto.SubmissionResponse, error) {
	if err := authorize(actor, models.RoleStudent); err != nil {
		return nil, err
	}
	items, err := s.deps.Submissions.ListByStudent(ctx, actor.UserID)
	if err != nil {
		return nil, internalError(err, "failed to list submissions")
	}
	return dto.NewSubmissionDetailResponses(items), nil
}

// ListByAssignment returns every submission for an assignment the caller manages.
func (s *SubmissionService) ListByAssignment(ctx context.Context, actor *models.JWTClaims, assignmentID string) ([]dto.SubmissionResponse, error) {
	if err := authorize(actor, staffRoles...); err != nil {
		return nil, err
	}
	assignment, err := s.deps.Assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, lookupError(err, "Assignment not found", "failed to load assignment")
	}
	if err := s.managedCourse(ctx, actor, assignment.CourseID); err != nil {
		return nil, err
	}
	items, err := s.deps.Submissions.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, internalError(err, "failed to list submissions")
	}
	return dto.NewSubmissionDetailResponses(items), nil
}

func (s *SubmissionService) detail(ctx context.Context, id string) (*dto.SubmissionResponse, error) {
	detail, err := s.deps.Submissions.FindDetail(ctx, id)
	if err != nil {
		return nil, lookupError(err, "Submission not found", "failed to load submission")
	}
	resp := dto.NewSubmissionDetailResponse(*detail)
	return &resp, nil
}

func (s *SubmissionService) managedCourse(ctx context.Context, actor *models.JWTClaims, courseID string) error {
	course, err := s.deps.Courses.FindByID(ctx, courseID)
	if err != nil {
		return lookupError(err, "Course not found", "failed to load course")
	}
	return ownsCourse(actor, course)
}
