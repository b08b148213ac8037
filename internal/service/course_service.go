package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-management-api/internal/dto"
	"github.com/noah-isme/course-management-api/internal/models"
	appErrors "github.com/noah-isme/course-management-api/pkg/errors"
)

const msgCourseTitleTaken = "Course with this title already exists for this instructor"

type courseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindDetail(ctx context.Context, id string) (*models.CourseDetail, error)
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
	ExistsByTitleAndInstructor(ctx context.Context, title, instructorID, excludeID string) (bool, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	SetPublished(ctx context.Context, id string, published bool, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

type userLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// CourseService manages the course catalog.
type CourseService struct {
	courses   courseRepository
	users     userLookup
	audit     auditRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewCourseService constructs a CourseService.
func NewCourseService(courses courseRepository, users userLookup, audit auditRepository, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &CourseService{courses: courses, users: users, audit: audit, validator: validate, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Create adds a course. Instructors may only create courses they own.
func (s *CourseService) Create(ctx context.Context, actor *models.JWTClaims, req dto.CourseRequest) (*dto.CourseResponse, error) {
	if err := authorize(actor, staffRoles...); err != nil {
		return nil, err
	}
	req = s.normalize(actor, req)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidator(err, "invalid course payload")
	}
	if actor.Role == models.RoleInstructor && req.InstructorID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "instructors can only create their own courses")
	}
	if err := s.checkInstructor(ctx, req.InstructorID); err != nil {
		return nil, err
	}
	if err := s.checkTitle(ctx, req.Title, req.InstructorID, ""); err != nil {
		return nil, err
	}

	course := req.ToModel()
	course.CreatedAt = s.now()
	if err := s.courses.Create(ctx, &course); err != nil {
		if isDuplicate(err) {
			return nil, invalidOperation(msgCourseTitleTaken)
		}
		return nil, internalError(err, "failed to create course")
	}

	recordAudit(ctx, s.audit, s.logger, auditEntry{
		actorID: actor.UserID, action: models.AuditActionCourseCreate, resource: "courses", resourceID: course.ID,
		newValues: req,
	})
	return s.detail(ctx, course.ID)
}

// Update replaces a course's fields.
func (s *CourseService) Update(ctx context.Context, actor *models.JWTClaims, id string, req dto.CourseRequest) (*dto.CourseResponse, error) {
	if err := authorize(actor, staffRoles...); err != nil {
		return nil, err
	}
	existing, err := s.courses.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "Course not found", "failed to load course")
	}
	if err := ownsCourse(actor, existing); err != nil {
		return nil, err
	}
	if req.InstructorID == "" {
		req.InstructorID = existing.InstructorID
	}
	req = s.normalize(actor, req)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidator(err, "invalid course payload")
	}
	if actor.Role == models.RoleInstructor && req.InstructorID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "instructors cannot reassign courses")
	}
	if req.InstructorID != existing.InstructorID {
		if err := s.checkInstructor(ctx, req.InstructorID); err != nil {
			return nil, err
		}
	}
	if err := s.checkTitle(ctx, req.Title, req.InstructorID, id); err != nil {
		return nil, err
	}

	updated := req.ToModel()
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = s.now()
	if err := s.courses.Update(ctx, &updated); err != nil {
		if isDuplicate(err) {
			return nil, invalidOperation(msgCourseTitleTaken)
		}
		return nil, lookupError(err, "Course not found", "failed to update course")
	}

	recordAudit(ctx, s.audit, s.logger, auditEntry{
		actorID: actor.UserID, action: models.AuditActionCourseUpdate, resource: "courses", resourceID: id,
		oldValues: existing, newValues: req,
	})
	return s.detail(ctx, id)
}

// Delete removes a course together with its lessons, assignments and enrollments.
func (s *CourseService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	if err := authorize(actor, staffRoles...); err != nil {
		return err
	}
	existing, err := s.courses.FindByID(ctx, id)
	if err != nil {
		return lookupError(err, "Course not found", "failed to load course")
	}
	if err := ownsCourse(actor, existing); err != nil {
		return err
	}
	if err := s.courses.Delete(ctx, id); err != nil {
		return lookupError(err, "Course not found", "failed to delete course")
	}
	recordAudit(ctx, s.audit, s.logger, auditEntry{
		actorID: actor.UserID, action: models.AuditActionCourseDelete, resource: "courses", resourceID: id,
		oldValues: existing,
	})
	return nil
}

// Publish makes a course open for enrollment.
func (s *CourseService) Publish(ctx context.Context, actor *models.JWTClaims, id string) (*dto.CourseResponse, error) {
	return s.setPublished(ctx, actor, id, true)
}

// Unpublish hides a course from enrollment. Existing enrollments remain.
func (s *CourseService) Unpublish(ctx context.Context, actor *models.JWTClaims, id string) (*dto.CourseResponse, error) {
	return s.setPublished(ctx, actor, id, false)
}

func (s *CourseService) setPublished(ctx context.Context, actor *models.JWTClaims, id string, published bool) (*dto.CourseResponse, error) {
	if err := authorize(actor, staffRoles...); err != nil {
		return nil, err
	}
	existing, err := s.courses.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "Course not found", "failed to load course")
	}
	if err := ownsCourse(actor, existing); err != nil {
		return nil, err
	}
	if err := s.courses.SetPublished(ctx, id, published, s.now()); err != nil {
		return nil, lookupError(err, "Course not found", "failed to update course")
	}
	recordAudit(ctx, s.audit, s.logger, auditEntry{
		actorID: actor.UserID, action: models.AuditActionCoursePublish, resource: "courses", resourceID: id,
		oldValues: map[string]bool{"published": existing.Published}, newValues: map[string]bool{"published": published},
	})
	return s.detail(ctx, id)
}

// Get returns one course.
func (s *CourseService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*dto.CourseResponse, error) {
	if err := authorize(actor, anyRole...); err != nil {
		return nil, err
	}
	return s.detail(ctx, id)
}

// List returns a page of courses. Students only see published ones.
func (s *CourseService) List(ctx context.Context, actor *models.JWTClaims, page, pageSize int) (*dto.CoursePage, error) {
	if err := authorize(actor, anyRole...); err != nil {
		return nil, err
	}
	page, pageSize = models.NormalizePage(page, pageSize)
	filter := models.CourseFilter{Page: page, PageSize: pageSize}
	restrictToPublished(actor, &filter)
	items, total, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, internalError(err, "failed to list courses")
	}
	return &dto.CoursePage{Items: dto.NewCourseResponses(items), Pagination: models.NewPagination(page, pageSize, total)}, nil
}

// ListPublished returns every published course.
func (s *CourseService) ListPublished(ctx context.Context, actor *models.JWTClaims) ([]dto.CourseResponse, error) {
	published := true
	return s.list(ctx, actor, models.CourseFilter{Published: &published})
}

// ListByInstructor returns the courses taught by instructorID.
func (s *CourseService) ListByInstructor(ctx context.Context, actor *models.JWTClaims, instructorID string) ([]dto.CourseResponse, error) {
	filter := models.CourseFilter{InstructorID: instructorID}
	restrictToPublished(actor, &filter)
	return s.list(ctx, actor, filter)
}

// ListMine returns the caller's own courses.
func (s *CourseService) ListMine(ctx context.Context, actor *models.JWTClaims) ([]dto.CourseResponse, error) {
	if err := authorize(actor, staffRoles...); err != nil {
		return nil, err
	}
	return s.list(ctx, actor, models.CourseFilter{InstructorID: actor.UserID})
}

// Search matches keyword case-insensitively against title or description.
func (s *CourseService) Search(ctx context.Context, actor *models.JWTClaims, keyword string) ([]dto.CourseResponse, error) {
	filter := models.CourseFilter{Keyword: strings.TrimSpace(keyword)}
	restrictToPublished(actor, &filter)
	return s.list(ctx, actor, filter)
}

// Count returns the number of courses.
func (s *CourseService) Count(ctx context.Context, actor *models.JWTClaims) (int, error) {
	if err := authorize(actor, anyRole...); err != nil {
		return 0, err
	}
	total, err := s.courses.Count(ctx)
	if err != nil {
		return 0, internalError(err, "failed to count courses")
	}
	return total, nil
}

func (s *CourseService) list(ctx context.Context, actor *models.JWTClaims, filter models.CourseFilter) ([]dto.CourseResponse, error) {
	if err := authorize(actor, anyRole...); err != nil {
		return nil, err
	}
	items, _, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, internalError(err, "failed to list courses")
	}
	return dto.NewCourseResponses(items), nil
}

func (s *CourseService) detail(ctx context.Context, id string) (*dto.CourseResponse, error) {
	detail, err := s.courses.FindDetail(ctx, id)
	if err != nil {
		return nil, lookupError(err, "Course not found", "failed to load course")
	}
	resp := dto.NewCourseResponse(*detail)
	return &resp, nil
}

func (s *CourseService) normalize(actor *models.JWTClaims, req dto.CourseRequest) dto.CourseRequest {
	req.Title = strings.TrimSpace(req.Title)
	if req.InstructorID == "" && actor.Role == models.RoleInstructor {
		req.InstructorID = actor.UserID
	}
	return req
}

func (s *CourseService) checkInstructor(ctx context.Context, instructorID string) error {
	instructor, err := s.users.FindByID(ctx, instructorID)
	if err != nil {
		return lookupError(err, "Instructor not found", "failed to load instructor")
	}
	if instructor.Role != models.RoleInstructor && instructor.Role != models.RoleAdmin {
		return invalidOperation("User is not an instructor")
	}
	return nil
}

func (s *CourseService) checkTitle(ctx context.Context, title, instructorID, excludeID string) error {
	taken, err := s.courses.ExistsByTitleAndInstructor(ctx, title, instructorID, excludeID)
	if err != nil {
		return internalError(err, "failed to check course title")
	}
	if taken {
		return invalidOperation(msgCourseTitleTaken)
	}
	return nil
}

func restrictToPublished(actor *models.JWTClaims, filter *models.CourseFilter) {
	if actor != nil && actor.Role == models.RoleStudent {
		published := true
		filter.Published = &published
	}
}
