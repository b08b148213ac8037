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

type lessonRepository interface {
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Lesson, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.Lesson, error)
	ExistsByOrder(ctx context.Context, courseID string, order int, excludeID string) (bool, error)
	Create(ctx context.Context, lesson *models.Lesson) error
	Update(ctx context.Context, lesson *models.Lesson) error
	Delete(ctx context.Context, id string) error
	Reorder(ctx context.Context, courseID string, ids []string, updatedAt time.Time) error
}

type courseLookup interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// LessonService manages ordered course content.
type LessonService struct {
	lessons   lessonRepository
	courses   courseLookup
	audit     auditRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewLessonService constructs a LessonService.
func NewLessonService(lessons lessonRepository, courses courseLookup, audit auditRepository, validate *validator.Validate, logger *zap.Logger) *LessonService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &LessonService{lessons: lessons, courses: courses, audit: audit, validator: validate, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Create adds a lesson at the requested position.
func (s *LessonService) Create(ctx context.Context, actor *models.JWTClaims, req dto.LessonRequest) (*dto.LessonResponse, error) {
	if err := authorize(actor, staffRoles...); err != nil {
		return nil, err
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidator(err, "invalid lesson payload")
	}
	if _, err := s.managedCourse(ctx, actor, req.CourseID); err != nil {
		return nil, err
	}
	if err := s.checkOrder(ctx, req.CourseID, req.OrderNumber, ""); err != nil {
		return nil, err
	}

	lesson := req.ToModel()
	lesson.CreatedAt = s.now()
	if err := s.lessons.Create(ctx, &lesson); err != nil {
		if isDuplicate(err) {
			return nil, orderTaken(req.OrderNumber)
		}
		return nil, internalError(err, "failed to create lesson")
	}
	resp := dto.NewLessonResponse(lesson)
	return &resp, nil
}

// Update replaces a lesson. Moving to another course checks the order number there.
func (s *LessonService) Update(ctx context.Context, actor *models.JWTClaims, id string, req dto.LessonRequest) (*dto.LessonResponse, error) {
	if err := authorize(actor, staffRoles...); err != nil {
		return nil, err
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidator(err, "invalid lesson payload")
	}
	existing, err := s.lessons.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "Lesson not found", "failed to load lesson")
	}
	if _, err := s.managedCourse(ctx, actor, existing.CourseID); err != nil {
		return nil, err
	}
	if req.CourseID != existing.CourseID {
		if _, err := s.managedCourse(ctx, actor, req.CourseID); err != nil {
			return nil, err
		}
	}
	if err := s.checkOrder(ctx, req.CourseID, req.OrderNumber, id); err != nil {
		return nil, err
	}

	updated := req.ToModel()
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = s.now()
	if err := s.lessons.Update(ctx, &updated); err != nil {
		if isDuplicate(err) {
			return nil, orderTaken(req.OrderNumber)
		}
		return nil, lookupError(err, "Lesson not found", "failed to update lesson")
	}
	resp := dto.NewLessonResponse(updated)
	return &resp, nil
}

// Delete removes a lesson. Remaining order numbers are left as they are.
func (s *LessonService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	if err := authorize(actor, staffRoles...); err != nil {
		return err
	}
	existing, err := s.lessons.FindByID(ctx, id)
	if err != nil {
		return lookupError(err, "Lesson not found", "failed to load lesson")
	}
	if _, err := s.managedCourse(ctx, actor, existing.CourseID); err != nil {
		return err
	}
	if err := s.lessons.Delete(ctx, id); err != nil {
		return lookupError(err, "Lesson not found", "failed to delete lesson")
	}
	return nil
}

// Get returns one lesson.
func (s *LessonService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*dto.LessonResponse, error) {
	if err := authorize(actor, anyRole...); err != nil {
		return nil, err
	}
	lesson, err := s.lessons.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "Lesson not found", "failed to load lesson")
	}
	resp := dto.NewLessonResponse(*lesson)
	return &resp, nil
}

// ListByCourse returns a course's lessons in order.
func (s *LessonService) ListByCourse(ctx context.Context, actor *models.JWTClaims, courseID string) ([]dto.LessonResponse, error) {
	if err := authorize(actor, anyRole...); err != nil {
		return nil, err
	}
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		return nil, lookupError(err, "Course not found", "failed to load course")
	}
	lessons, err := s.lessons.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, internalError(err, "failed to list lessons")
	}
	return dto.NewLessonResponses(lessons), nil
}

// Reorder rewrites the course's order numbers to 1..N following lessonIDs.
func (s *LessonService) Reorder(ctx context.Context, actor *models.JWTClaims, courseID string, lessonIDs []string) ([]dto.LessonResponse, error) {
	if err := authorize(actor, staffRoles...); err != nil {
		return nil, err
	}
	if _, err := s.managedCourse(ctx, actor, courseID); err != nil {
		return nil, err
	}
	if len(lessonIDs) == 0 {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, map[string]string{"lessonIds": "lessonIds is required"})
	}

	seen := make(map[string]struct{}, len(lessonIDs))
	for _, id := range lessonIDs {
		if _, dup := seen[id]; dup {
			return nil, invalidOperation(fmt.Sprintf("Lesson %s is listed more than once", id))
		}
		seen[id] = struct{}{}
	}

	found, err := s.lessons.FindByIDs(ctx, lessonIDs)
	if err != nil {
		return nil, internalError(err, "failed to load lessons")
	}
	byID := make(map[string]models.Lesson, len(found))
	for _, l := range found {
		byID[l.ID] = l
	}
	for _, id := range lessonIDs {
		lesson, ok := byID[id]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("Lesson %s not found", id))
		}
		if lesson.CourseID != courseID {
			return nil, invalidOperation(fmt.Sprintf("Lesson %s does not belong to course %s", id, courseID))
		}
	}

	if err := s.lessons.Reorder(ctx, courseID, lessonIDs, s.now()); err != nil {
		if isDuplicate(err) {
			return nil, invalidOperation("Reorder must include every lesson of the course")
		}
		return nil, internalError(err, "failed to reorder lessons")
	}

	recordAudit(ctx, s.audit, s.logger, auditEntry{
		actorID: actor.UserID, action: models.AuditActionLessonReorder, resource: "courses", resourceID: courseID,
		newValues: map[string][]string{"lessonIds": lessonIDs},
	})

	lessons, err := s.lessons.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, internalError(err, "failed to list lessons")
	}
	return dto.NewLessonResponses(lessons), nil
}

func (s *LessonService) managedCourse(ctx context.Context, actor *models.JWTClaims, courseID string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, lookupError(err, "Course not found", "failed to load course")
	}
	if err := ownsCourse(actor, course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *LessonService) checkOrder(ctx context.Context, courseID string, order int, excludeID string) error {
	taken, err := s.lessons.ExistsByOrder(ctx, courseID, order, excludeID)
	if err != nil {
		return internalError(err, "failed to check lesson order")
	}
	if taken {
		return orderTaken(order)
	}
	return nil
}

func orderTaken(order int) error {
	return invalidOperation(fmt.Sprintf("Lesson with order number %d already exists in this course", order))
}
