package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-management-api/internal/dto"
	"github.com/noah-isme/course-management-api/internal/models"
	appErrors "github.com/noah-isme/course-management-api/pkg/errors"
)

const (
	msgAlreadyEnrolled    = "Student is already enrolled in this course"
	msgUnpublishedCourse  = "Cannot enroll in unpublished course"
	msgProgressOutOfRange = "Progress must be between 0 and 100"
)

type enrollmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	Exists(ctx context.Context, studentID, courseID string) (bool, error)
	List(ctx context.Context) ([]models.Enrollment, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.Enrollment, error)
	CountByCourse(ctx context.Context, courseID string) (int, error)
	CountByStudent(ctx context.Context, studentID string) (int, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	UpdateProgress(ctx context.Context, enrollment *models.Enrollment) error
	Delete(ctx context.Context, id string) error
}

type courseDetailLookup interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindDetail(ctx context.Context, id string) (*models.CourseDetail, error)
}

type enrollmentNotifier interface {
	EnrollmentConfirmed(ctx context.Context, student models.User, course models.Course)
}

type enrollmentRecorder interface {
	RecordEnrollment(status models.EnrollmentStatus)
}

// EnrollmentService maintains the student to course ledger.
type EnrollmentService struct {
	enrollments enrollmentRepository
	users       userLookup
	courses     courseDetailLookup
	audit       auditRepository
	notifier    enrollmentNotifier
	metrics     enrollmentRecorder
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewEnrollmentService constructs an EnrollmentService. notifier and metrics may be nil.
func NewEnrollmentService(enrollments enrollmentRepository, users userLookup, courses courseDetailLookup, audit auditRepository, notifier enrollmentNotifier, metrics enrollmentRecorder, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &EnrollmentService{
		enrollments: enrollments,
		users:       users,
		courses:     courses,
		audit:       audit,
		notifier:    notifier,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Enroll registers the calling student in a published course.
func (s *EnrollmentService) Enroll(ctx context.Context, actor *models.JWTClaims, req dto.EnrollmentRequest) (*dto.EnrollmentResponse, error) {
	if err := authorize(actor, models.RoleStudent); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidator(err, "invalid enrollment payload")
	}
	if req.StudentID != "" && req.StudentID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students can only enroll themselves")
	}

	student, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, lookupError(err, "Student not found", "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return nil, invalidOperation("Only students can enroll in courses")
	}
	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		return nil, lookupError(err, "Course not found", "failed to load course")
	}
	if !course.Published {
		return nil, invalidOperation(msgUnpublishedCourse)
	}
	enrolled, err := s.enrollments.Exists(ctx, student.ID, course.ID)
	if err != nil {
		return nil, internalError(err, "failed to check enrollment")
	}
	if enrolled {
		return nil, invalidOperation(msgAlreadyEnrolled)
	}

	enrollment := &models.Enrollment{
		StudentID:  student.ID,
		CourseID:   course.ID,
		EnrolledAt: s.now(),
		Progress:   models.ProgressMin,
		Status:     models.EnrollmentStatusActive,
	}
	if err := s.enrollments.Create(ctx, enrollment); err != nil {
		if isDuplicate(err) {
			return nil, invalidOperation(msgAlreadyEnrolled)
		}
		return nil, internalError(err, "failed to create enrollment")
	}

	recordAudit(ctx, s.audit, s.logger, auditEntry{
		actorID: actor.UserID, action: models.AuditActionEnroll, resource: "enrollments", resourceID: enrollment.ID,
		newValues: map[string]string{"courseId": course.ID},
	})
	s.record(enrollment.Status)
	if s.notifier != nil {
		s.notifier.EnrollmentConfirmed(ctx, *student, *course)
	}

	return s.respond(ctx, newProjection(), *enrollment)
}

// Unenroll deletes an enrollment. Students may only remove their own.
func (s *EnrollmentService) Unenroll(ctx context.Context, actor *models.JWTClaims, id string) error {
	if err := authorize(actor, models.RoleStudent, models.RoleAdmin); err != nil {
		return err
	}
	enrollment, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if actor.Role == models.RoleStudent && enrollment.StudentID != actor.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "enrollment belongs to another student")
	}
	if err := s.enrollments.Delete(ctx, id); err != nil {
		return lookupError(err, "Enrollment not found", "failed to delete enrollment")
	}
	recordAudit(ctx, s.audit, s.logger, auditEntry{
		actorID: actor.UserID, action: models.AuditActionUnenroll, resource: "enrollments", resourceID: id,
		oldValues: enrollment,
	})
	return nil
}

// UpdateProgress sets progress. Reaching 100 completes the enrollment; completion is never reverted.
func (s *EnrollmentService) UpdateProgress(ctx context.Context, actor *models.JWTClaims, id string, progress int) (*dto.EnrollmentResponse, error) {
	if err := authorize(actor, models.RoleStudent); err != nil {
		return nil, err
	}
	enrollment, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if progress < models.ProgressMin || progress > models.ProgressComplete {
		return nil, invalidOperation(msgProgressOutOfRange)
	}

	wasCompleted := enrollment.Status == models.EnrollmentStatusCompleted
	enrollment.Progress = progress
	if progress == models.ProgressComplete {
		enrollment.Status = models.EnrollmentStatusCompleted
	}
	return s.saveProgress(ctx, enrollment, wasCompleted)
}

// Complete forces progress to 100 and status to COMPLETED.
func (s *EnrollmentService) Complete(ctx context.Context, actor *models.JWTClaims, id string) (*dto.EnrollmentResponse, error) {
	if err := authorize(actor, models.RoleStudent); err != nil {
		return nil, err
	}
	enrollment, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	wasCompleted := enrollment.Status == models.EnrollmentStatusCompleted
	enrollment.Progress = models.ProgressComplete
	enrollment.Status = models.EnrollmentStatusCompleted
	return s.saveProgress(ctx, enrollment, wasCompleted)
}

func (s *EnrollmentService) saveProgress(ctx context.Context, enrollment *models.Enrollment, wasCompleted bool) (*dto.EnrollmentResponse, error) {
	if err := s.enrollments.UpdateProgress(ctx, enrollment); err != nil {
		return nil, lookupError(err, "Enrollment not found", "failed to update enrollment")
	}
	if enrollment.Status == models.EnrollmentStatusCompleted && !wasCompleted {
		s.record(models.EnrollmentStatusCompleted)
	}
	return s.respond(ctx, newProjection(), *enrollment)
}

// Get returns an enrollment to its student or to staff.
func (s *EnrollmentService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*dto.EnrollmentResponse, error) {
	if err := authorize(actor, anyRole...); err != nil {
		return nil, err
	}
	enrollment, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleStudent && enrollment.StudentID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "enrollment belongs to another student")
	}
	return s.respond(ctx, newProjection(), *enrollment)
}

// List returns every enrollment. Admin only.
func (s *EnrollmentService) List(ctx context.Context, actor *models.JWTClaims) ([]dto.EnrollmentResponse, error) {
	if err := authorize(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	items, err := s.enrollments.List(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list enrollments")
	}
	return s.respondAll(ctx, items)
}

// ListMine returns the calling student's enrollments.
func (s *EnrollmentService) ListMine(ctx context.Context, actor *models.JWTClaims) ([]dto.EnrollmentResponse, error) {
	if err := authorize(actor, models.RoleStudent); err != nil {
		return nil, err
	}
	items, err := s.enrollments.ListByStudent(ctx, actor.UserID)
	if err != nil {
		return nil, internalError(err, "failed to list enrollments")
	}
	return s.respondAll(ctx, items)
}

// ListByStudent returns a student's enrollments. Staff only.
func (s *EnrollmentService) ListByStudent(ctx context.Context, actor *models.JWTClaims, studentID string) ([]dto.EnrollmentResponse, error) {
	if err := authorize(actor, staffRoles...); err != nil {
		return nil, err
	}
	if _, err := s.users.FindByID(ctx, studentID); err != nil {
		return nil, lookupError(err, "Student not found", "failed to load student")
	}
	items, err := s.enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, internalError(err, "failed to list enrollments")
	}
	return s.respondAll(ctx, items)
}

// ListByCourse returns a course's enrollments. Staff only.
func (s *EnrollmentService) ListByCourse(ctx context.Context, actor *models.JWTClaims, courseID string) ([]dto.EnrollmentResponse, error) {
	if err := authorize(actor, staffRoles...); err != nil {
		return nil, err
	}
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		return nil, lookupError(err, "Course not found", "failed to load course")
	}
	items, err := s.enrollments.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, internalError(err, "failed to list enrollments")
	}
	return s.respondAll(ctx, items)
}

// IsEnrolled checks the (student, course) pair. Students may only ask about themselves.
func (s *EnrollmentService) IsEnrolled(ctx context.Context, actor *models.JWTClaims, studentID, courseID string) (*dto.EnrollmentCheck, error) {
	if err := authorize(actor, anyRole...); err != nil {
		return nil, err
	}
	if studentID == "" {
		studentID = actor.UserID
	}
	if actor.Role == models.RoleStudent && studentID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot inspect another student")
	}
	enrolled, err := s.enrollments.Exists(ctx, studentID, courseID)
	if err != nil {
		return nil, internalError(err, "failed to check enrollment")
	}
	return &dto.EnrollmentCheck{StudentID: studentID, CourseID: courseID, Enrolled: enrolled}, nil
}

// CountByCourse returns the number of students in a course.
func (s *EnrollmentService) CountByCourse(ctx context.Context, actor *models.JWTClaims, courseID string) (int, error) {
	if err := authorize(actor, anyRole...); err != nil {
		return 0, err
	}
	total, err := s.enrollments.CountByCourse(ctx, courseID)
	if err != nil {
		return 0, internalError(err, "failed to count enrollments")
	}
	return total, nil
}

// CountByStudent returns the number of courses a student takes.
func (s *EnrollmentService) CountByStudent(ctx context.Context, actor *models.JWTClaims, studentID string) (int, error) {
	if err := authorize(actor, anyRole...); err != nil {
		return 0, err
	}
	if actor.Role == models.RoleStudent && studentID != actor.UserID {
		return 0, appErrors.Clone(appErrors.ErrForbidden, "cannot inspect another student")
	}
	total, err := s.enrollments.CountByStudent(ctx, studentID)
	if err != nil {
		return 0, internalError(err, "failed to count enrollments")
	}
	return total, nil
}

func (s *EnrollmentService) find(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, err := s.enrollments.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "Enrollment not found", "failed to load enrollment")
	}
	return enrollment, nil
}

func (s *EnrollmentService) owned(ctx context.Context, actor *models.JWTClaims, id string) (*models.Enrollment, error) {
	enrollment, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if enrollment.StudentID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "enrollment belongs to another student")
	}
	return enrollment, nil
}

func (s *EnrollmentService) record(status models.EnrollmentStatus) {
	if s.metrics != nil {
		s.metrics.RecordEnrollment(status)
	}
}

// projection memoizes student and course lookups across one response.
type projection struct {
	students map[string]*models.User
	courses  map[string]*models.CourseDetail
}

func newProjection() *projection {
	return &projection{students: map[string]*models.User{}, courses: map[string]*models.CourseDetail{}}
}

func (s *EnrollmentService) respond(ctx context.Context, p *projection, e models.Enrollment) (*dto.EnrollmentResponse, error) {
	student, ok := p.students[e.StudentID]
	if !ok {
		found, err := s.users.FindByID(ctx, e.StudentID)
		if err != nil {
			return nil, lookupError(err, "Student not found", "failed to load student")
		}
		student = found
		p.students[e.StudentID] = found
	}
	course, ok := p.courses[e.CourseID]
	if !ok {
		found, err := s.courses.FindDetail(ctx, e.CourseID)
		if err != nil {
			return nil, lookupError(err, "Course not found", "failed to load course")
		}
		course = found
		p.courses[e.CourseID] = found
	}
	resp := dto.NewEnrollmentResponse(e, student, course)
	return &resp, nil
}

func (s *EnrollmentService) respondAll(ctx context.Context, items []models.Enrollment) ([]dto.EnrollmentResponse, error) {
	p := newProjection()
	out := make([]dto.EnrollmentResponse, 0, len(items))
	for _, e := range items {
		resp, err := s.respond(ctx, p, e)
		if err != nil {
			return nil, err
		}
		out = append(out, *resp)
	}
	return out, nil
}
