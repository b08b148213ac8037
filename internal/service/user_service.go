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

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateRole(ctx context.Context, id string, role models.UserRole, updatedAt time.Time) error
	SetActive(ctx context.Context, id string, active bool, updatedAt time.Time) error
	RevokeUserRefreshTokens(ctx context.Context, userID string, revokedAt time.Time) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// UserService exposes the identity store to administrators.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &UserService{repo: repo, validator: validate, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// List returns a page of users. Admin only.
func (s *UserService) List(ctx context.Context, actor *models.JWTClaims, filter models.UserFilter) (*dto.UserPage, error) {
	if err := authorize(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	filter.Page, filter.PageSize = models.NormalizePage(filter.Page, filter.PageSize)
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, internalError(err, "failed to list users")
	}
	return &dto.UserPage{
		Items:      dto.NewUserResponses(users),
		Pagination: models.NewPagination(filter.Page, filter.PageSize, total),
	}, nil
}

// ListByRole returns every user with the given role.
func (s *UserService) ListByRole(ctx context.Context, actor *models.JWTClaims, raw string) ([]dto.UserResponse, error) {
	if err := authorize(actor, staffRoles...); err != nil {
		return nil, err
	}
	role, ok := models.ParseUserRole(raw)
	if !ok {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, map[string]string{"role": "role must be one of [STUDENT, INSTRUCTOR, ADMIN]"})
	}
	users, err := s.repo.ListByRole(ctx, role)
	if err != nil {
		return nil, internalError(err, "failed to list users by role")
	}
	return dto.NewUserResponses(users), nil
}

// Get returns a user. Admins read anyone, everyone else only themselves.
func (s *UserService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*dto.UserResponse, error) {
	if err := authorize(actor, anyRole...); err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin && actor.UserID != id {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot view another user")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "User not found", "failed to load user")
	}
	resp := dto.NewUserResponse(*user)
	return &resp, nil
}

// UpdateRole changes a user's role. Admin only.
func (s *UserService) UpdateRole(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateRoleRequest) (*dto.UserResponse, error) {
	if err := authorize(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	if role, ok := models.ParseUserRole(string(req.Role)); ok {
		req.Role = role
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidator(err, "invalid role")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "User not found", "failed to load user")
	}

	previous := user.Role
	now := s.now()
	if err := s.repo.UpdateRole(ctx, id, req.Role, now); err != nil {
		return nil, lookupError(err, "User not found", "failed to update user role")
	}
	user.Role = req.Role
	user.UpdatedAt = now

	recordAudit(ctx, s.repo, s.logger, auditEntry{
		actorID: actor.UserID, action: models.AuditActionUserRole, resource: "users", resourceID: id,
		oldValues: map[string]models.UserRole{"role": previous}, newValues: map[string]models.UserRole{"role": req.Role},
	})

	resp := dto.NewUserResponse(*user)
	return &resp, nil
}

// SetActive activates or deactivates an account. Deactivation also ends the user's sessions.
func (s *UserService) SetActive(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateStatusRequest) (*dto.UserResponse, error) {
	if err := authorize(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidator(err, "invalid status")
	}
	if id == actor.UserID && !*req.Active {
		return nil, invalidOperation("Administrators cannot deactivate themselves")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "User not found", "failed to load user")
	}

	now := s.now()
	if err := s.repo.SetActive(ctx, id, *req.Active, now); err != nil {
		return nil, lookupError(err, "User not found", "failed to update user status")
	}
	if !*req.Active {
		if err := s.repo.RevokeUserRefreshTokens(ctx, id, now); err != nil {
			s.logger.Warn("failed to revoke refresh tokens of deactivated user", zap.Error(err))
		}
	}
	previous := user.Active
	user.Active = *req.Active
	user.UpdatedAt = now

	recordAudit(ctx, s.repo, s.logger, auditEntry{
		actorID: actor.UserID, action: models.AuditActionUserStatus, resource: "users", resourceID: id,
		oldValues: map[string]bool{"active": previous}, newValues: map[string]bool{"active": user.Active},
	})

	resp := dto.NewUserResponse(*user)
	return &resp, nil
}
