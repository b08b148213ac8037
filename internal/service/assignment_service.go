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

const msgDueDateNotFuture = "Due date must be in the future"

type assignmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	FindDetail(ctx context.Context, id string) (*models.AssignmentDetail, error)
	List(ctx context.Context) ([]models.AssignmentDetail, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.AssignmentDetail, error)
	ListForStudent(ctx context.Context, studentID string) ([]models.AssignmentDetail, error)
	ListOverdueForStudent(ctx context.Context, studentID string, now time.Time) ([]models.AssignmentDetail, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id string) error
}

// AssignmentService manages gradable course work.
type AssignmentService struct {
	assignments assignmentRepository
	courses     courseLookup
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewAssignmentService constructs an AssignmentService.
func NewAssignmentService(assignments assignmentRepository, courses courseLookup, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &AssignmentService{assignments: assignments, courses: courses, validator: validate, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Create adds an assignment to a course the caller manages.
func (s *AssignmentService) Create(ctx context.Context, actor *models.JWTClaims, req dto.AssignmentRequest) (*dto.AssignmentResponse, error) {
	if err := authorize(actor, staffRoles...); err != nil {
		return nil, err
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidator(err, "invalid assignment payload")
	}
	if err := s.managedCourse(ctx, actor, req.CourseID); err != nil {
		return nil, err
	}
	now := s.now()
	if err := checkDueDate(req.DueDate, now); err != nil {
		return nil, err
	}

	assignment := req.ToModel()
	assignment.CreatedAt = now
	if err := s.assignments.Create(ctx, &assignment); err != nil {
		return nil, internalError(err, "failed to create assignment")
	}
	return s.detail(ctx, assignment.ID)
}

// Update replaces an assignment's fields.
func (s *AssignmentService) Update(ctx context.Context, actor *models.JWTClaims, id string, req dto.AssignmentRequest) (*dto.AssignmentResponse, error) {
	if err := authorize(actor, staffRoles...); err != nil {
		return nil, err
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidator(err, "invalid assignment payload")
	}
	existing, err := s.assignments.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "Assignment not found", "failed to load assignment")
	}
	if err := s.managedCourse(ctx, actor, existing.CourseID); err != nil {
		return nil, err
	}
	if req.CourseID != existing.CourseID {
		if err := s.managedCourse(ctx, actor, req.CourseID); err != nil {
			return nil, err
		}
	}
	now := s.now()
	if err := checkDueDate(req.DueDate, now); err != nil {
		return nil, err
	}

	updated := req.ToModel()
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = now
	if err := s.assignments.Update(ctx, &updated); err != nil {
		return nil, lookupError(err, "Assignment not found", "failed to update assignment")
	}
	return s.detail(ctx, id)
}

// Delete removes an assignment and its submissions.
func (s *AssignmentService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	if err := authorize(actor, staffRoles...); err != nil {
		return err
	}
	existing, err := s.assignments.FindByID(ctx, id)
	if err != nil {
		return lookupError(err, "Assignment not found", "failed to load assignment")
	}
	if err := s.managedCourse(ctx, actor, existing.CourseID); err != nil {
		return err
	}
	if err := s.assignments.Delete(ctx, id); err != nil {
		return lookupError(err, "Assignment not found", "failed to delete assignment")
	}
	return nil
}

// Get returns one assignment.
func (s *AssignmentService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*dto.AssignmentResponse, error) {
	if err := authorize(actor, anyRole...); err != nil {
		return nil, err
	}
	return s.detail(ctx, id)
}

// List returns every assignment.
func (s *AssignmentService) List(ctx context.Context, actor *models.JWTClaims) ([]dto.AssignmentResponse, error) {
	if err := authorize(actor, anyRole...); err != nil {
		return nil, err
	}
	items, err := s.assignments.List(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list assignments")
	}
	return dto.NewAssignmentResponses(items), nil
}

// ListByCourse returns a course's assignments.
func (s *AssignmentService) ListByCourse(ctx context.Context, actor *models.JWTClaims, courseID string) ([]dto.AssignmentResponse, error) {
	if err := authorize(actor, anyRole...); err != nil {
		return nil, err
	}
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		return nil, lookupError(err, "Course not found", "failed to load course")
	}
	items, err := s.assignments.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, internalError(err, "failed to list assignments")
	}
	return dto.NewAssignmentResponses(items), nil
}

// ListMine returns the assignments of every course the student is enrolled in.
func (s *AssignmentService) ListMine(ctx context.Context, actor *models.JWTClaims) ([]dto.AssignmentResponse, error) {
	if err := authorize(actor, models.RoleStudent); err != nil {
		return nil, err
	}
	items, err := s.assignments.ListForStudent(ctx, actor.UserID)
	if err != nil {
		return nil, internalError(err, "failed to list assignments")
	}
	return dto.NewAssignmentResponses(items), nil
}

// ListOverdue returns past-due assignments in the student's courses that they have not submitted.
func (s *AssignmentService) ListOverdue(ctx context.Context, actor *models.JWTClaims) ([]dto.AssignmentResponse, error) {
	if err := authorize(actor, models.RoleStudent); err != nil {
		return nil, err
	}
	items, err := s.assignments.ListOverdueForStudent(ctx, actor.UserID, s.now())
	if err != nil {
		return nil, internalError(err, "failed to list overdue assignments")
	}
	return dto.NewAssignmentResponses(items), nil
}

func (s *AssignmentService) detail(ctx context.Context, id string) (*dto.AssignmentResponse, error) {
	detail, err := s.assignments.FindDetail(ctx, id)
	if err != nil {
		return nil, lookupError(err, "Assignment not found", "failed to load assignment")
	}
	resp := dto.NewAssignmentResponse(*detail)
	return &resp, nil
}

func (s *AssignmentService) managedCourse(ctx context.Context, actor *models.JWTClaims, courseID string) error {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return lookupError(err, "Course not found", "failed to load course")
	}
	return ownsCourse(actor, course)
}

// checkDueDate requires a present due date to be strictly after now.
func checkDueDate(due *time.Time, now time.Time) error {
	if due != nil && !due.After(now) {
		return invalidOperation(msgDueDateNotFuture)
	}
	return nil
}
