package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-management-api/internal/dto"
	"github.com/noah-isme/course-management-api/internal/models"
	appErrors "github.com/noah-isme/course-management-api/pkg/errors"
	"github.com/noah-isme/course-management-api/pkg/response"
)

type userService interface {
	List(ctx context.Context, actor *models.JWTClaims, filter models.UserFilter) (*dto.UserPage, error)
	ListByRole(ctx context.Context, actor *models.JWTClaims, raw string) ([]dto.UserResponse, error)
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*dto.UserResponse, error)
	UpdateRole(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateRoleRequest) (*dto.UserResponse, error)
	SetActive(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateStatusRequest) (*dto.UserResponse, error)
}

// UserHandler exposes the identity store.
type UserHandler struct {
	service userService
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(svc userService) *UserHandler {
	return &UserHandler{service: svc}
}

// List godoc
// @Summary List users
// @Tags Users
// @Produce json
// @Param role query string false "Role filter"
// @Param active query bool false "Active filter"
// @Param search query string false "Email or name search"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	var query dto.UserListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	filter, ok := query.ToFilter()
	if !ok {
		response.Error(c, appErrors.WithDetails(appErrors.ErrValidation, map[string]string{"role": "role must be one of [STUDENT, INSTRUCTOR, ADMIN]"}))
		return
	}
	page, err := h.service.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Users retrieved", page)
}

// ListByRole godoc
// @Summary List users by role
// @Tags Users
// @Produce json
// @Param role path string true "STUDENT, INSTRUCTOR or ADMIN"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /users/role/{role} [get]
func (h *UserHandler) ListByRole(c *gin.Context) {
	users, err := h.service.ListByRole(c.Request.Context(), claimsFromContext(c), c.Param("role"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Users retrieved", users)
}

// Get godoc
// @Summary Get user
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.service.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "User retrieved", user)
}

// UpdateRole godoc
// @Summary Change a user's role
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param role query string false "New role"
// @Param payload body dto.UpdateRoleRequest false "New role"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /users/{id}/role [put]
func (h *UserHandler) UpdateRole(c *gin.Context) {
	var req dto.UpdateRoleRequest
	if role := c.Query("role"); role != "" {
		req.Role, _ = models.ParseUserRole(role)
	} else if !bindJSON(c, &req, "invalid role payload") {
		return
	}
	user, err := h.service.UpdateRole(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "User role updated", user)
}

// UpdateStatus godoc
// @Summary Activate or deactivate a user
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body dto.UpdateStatusRequest true "Status"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /users/{id}/status [put]
func (h *UserHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	if !bindJSON(c, &req, "invalid status payload") {
		return
	}
	user, err := h.service.SetActive(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "User status updated", user)
}
