package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-management-api/internal/dto"
	"github.com/noah-isme/course-management-api/internal/models"
	"github.com/noah-isme/course-management-api/pkg/response"
)

type assignmentService interface {
	Create(ctx context.Context, actor *models.JWTClaims, req dto.AssignmentRequest) (*dto.AssignmentResponse, error)
	Update(ctx context.Context, actor *models.JWTClaims, id string, req dto.AssignmentRequest) (*dto.AssignmentResponse, error)
	Delete(ctx context.Context, actor *models.JWTClaims, id string) error
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*dto.AssignmentResponse, error)
	List(ctx context.Context, actor *models.JWTClaims) ([]dto.AssignmentResponse, error)
	ListByCourse(ctx context.Context, actor *models.JWTClaims, courseID string) ([]dto.AssignmentResponse, error)
	ListMine(ctx context.Context, actor *models.JWTClaims) ([]dto.AssignmentResponse, error)
	ListOverdue(ctx context.Context, actor *models.JWTClaims) ([]dto.AssignmentResponse, error)
}

// AssignmentHandler exposes course assignments.
type AssignmentHandler struct {
	service assignmentService
}

// NewAssignmentHandler constructs an AssignmentHandler.
func NewAssignmentHandler(svc assignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: svc}
}

// Create godoc
// @Summary Create assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body dto.AssignmentRequest true "Assignment"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	var req dto.AssignmentRequest
	if !bindJSON(c, &req, "invalid assignment payload") {
		return
	}
	assignment, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Assignment created", assignment)
}

// Update godoc
// @Summary Update assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body dto.AssignmentRequest true "Assignment"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments/{id} [put]
func (h *AssignmentHandler) Update(c *gin.Context) {
	var req dto.AssignmentRequest
	if !bindJSON(c, &req, "invalid assignment payload") {
		return
	}
	assignment, err := h.service.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Assignment updated", assignment)
}

// Delete godoc
// @Summary Delete assignment
// @Tags Assignments
// @Param id path string true "Assignment ID"
// @Success 204
// @Security BearerAuth
// @Router /assignments/{id} [delete]
func (h *AssignmentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Get godoc
// @Summary Get assignment
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments/{id} [get]
func (h *AssignmentHandler) Get(c *gin.Context) {
	assignment, err := h.service.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Assignment retrieved", assignment)
}

// List godoc
// @Summary List assignments
// @Tags Assignments
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments [get]
func (h *AssignmentHandler) List(c *gin.Context) {
	h.respondList(c, h.service.List)
}

// ListByCourse godoc
// @Summary List a course's assignments
// @Tags Assignments
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments/course/{courseId} [get]
func (h *AssignmentHandler) ListByCourse(c *gin.Context) {
	courseID := c.Param("courseId")
	h.respondList(c, func(ctx context.Context, actor *models.JWTClaims) ([]dto.AssignmentResponse, error) {
		return h.service.ListByCourse(ctx, actor, courseID)
	})
}

// ListMine godoc
// @Summary List assignments of the caller's courses
// @Tags Assignments
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments/my-assignments [get]
func (h *AssignmentHandler) ListMine(c *gin.Context) {
	h.respondList(c, h.service.ListMine)
}

// ListOverdue godoc
// @Summary List past-due assignments the caller has not submitted
// @Tags Assignments
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments/overdue [get]
func (h *AssignmentHandler) ListOverdue(c *gin.Context) {
	h.respondList(c, h.service.ListOverdue)
}

func (h *AssignmentHandler) respondList(c *gin.Context, list func(context.Context, *models.JWTClaims) ([]dto.AssignmentResponse, error)) {
	assignments, err := list(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Assignments retrieved", assignments)
}
