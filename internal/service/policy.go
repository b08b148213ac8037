package service

import (
	"database/sql"
	"errors"

	"github.com/noah-isme/course-management-api/internal/models"
	"github.com/noah-isme/course-management-api/internal/repository"
	appErrors "github.com/noah-isme/course-management-api/pkg/errors"
)

var (
	staffRoles = []models.UserRole{models.RoleInstructor, models.RoleAdmin}
	anyRole    = []models.UserRole{models.RoleStudent, models.RoleInstructor, models.RoleAdmin}
)

// authorize is the role gate run at the start of every guarded operation.
func authorize(actor *models.JWTClaims, roles ...models.UserRole) error {
	if actor == nil || actor.UserID == "" {
		return appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	if !actor.HasRole(roles...) {
		return appErrors.Clone(appErrors.ErrForbidden, "insufficient role")
	}
	return nil
}

// ownsCourse enforces that instructors only manage their own courses. Admins manage all.
func ownsCourse(actor *models.JWTClaims, course *models.Course) error {
	if actor.Role == models.RoleAdmin || course.InstructorID == actor.UserID {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "course belongs to another instructor")
}

func invalidOperation(message string) error {
	return appErrors.Clone(appErrors.ErrInvalidOperation, message)
}

func internalError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// lookupError maps a repository lookup failure to NotFound or Internal.
func lookupError(err error, notFound, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return internalError(err, message)
}

func isDuplicate(err error) bool {
	return errors.Is(err, repository.ErrDuplicate)
}
