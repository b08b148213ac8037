package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-management-api/internal/dto"
	"github.com/noah-isme/course-management-api/internal/models"
	"github.com/noah-isme/course-management-api/pkg/response"
)

type enrollmentService interface {
	Enroll(ctx context.Context, actor *models.JWTClaims, req dto.EnrollmentRequest) (*dto.EnrollmentResponse, error)
	Unenroll(ctx context.Context, actor *models.JWTClaims, id string) error
	UpdateProgress(ctx context.Context, actor *models.JWTClaims, id string, progress int) (*dto.EnrollmentResponse, error)
	Complete(ctx context.Context, actor *models.JWTClaims, id string) (*dto.EnrollmentResponse, error)
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*dto.EnrollmentResponse, error)
	List(ctx context.Context, actor *models.JWTClaims) ([]dto.EnrollmentResponse, error)
	ListMine(ctx context.Context, actor *models.JWTClaims) ([]dto.EnrollmentResponse, error)
	ListByStudent(ctx context.Context, actor *models.JWTClaims, studentID string) ([]dto.EnrollmentResponse, error)
	ListByCourse(ctx context.Context, actor *models.JWTClaims, courseID string) ([]dto.EnrollmentResponse, error)
	IsEnrolled(ctx context.Context, actor *models.JWTClaims, studentID, courseID string) (*dto.EnrollmentCheck, error)
	CountByCourse(ctx context.Context, actor *models.JWTClaims, courseID string) (int, error)
	CountByStudent(ctx context.Context, actor *models.JWTClaims, studentID string) (int, error)
}

// EnrollmentHandler exposes the enrollment ledger.
type EnrollmentHandler struct {
	service enrollmentService
}

// NewEnrollmentHandler constructs an EnrollmentHandler.
func NewEnrollmentHandler(svc enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc}
}

// Enroll godoc
// @Summary Enroll in a course
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body dto.EnrollmentRequest true "Course to join"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req dto.EnrollmentRequest
	if !bindJSON(c, &req, "invalid enrollment payload") {
		return
	}
	enrollment, err := h.service.Enroll(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Enrolled successfully", enrollment)
}

// Unenroll godoc
// @Summary Remove an enrollment
// @Tags Enrollments
// @Param id path string true "Enrollment ID"
// @Success 204
// @Security BearerAuth
// @Router /enrollments/{id} [delete]
func (h *EnrollmentHandler) Unenroll(c *gin.Context) {
	if err := h.service.Unenroll(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UpdateProgress godoc
// @Summary Record course progress
// @Description Progress of 100 completes the enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param progress query int true "Progress 0..100"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments/{id}/progress [put]
func (h *EnrollmentHandler) UpdateProgress(c *gin.Context) {
	progress, ok := intQuery(c, "progress")
	if !ok {
		return
	}
	enrollment, err := h.service.UpdateProgress(c.Request.Context(), claimsFromContext(c), c.Param("id"), progress)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Progress updated", enrollment)
}

// Complete godoc
// @Summary Mark an enrollment completed
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments/{id}/complete [post]
func (h *EnrollmentHandler) Complete(c *gin.Context) {
	enrollment, err := h.service.Complete(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Course completed", enrollment)
}

// Get godoc
// @Summary Get enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	enrollment, err := h.service.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Enrollment retrieved", enrollment)
}

// List godoc
// @Summary List every enrollment
// @Tags Enrollments
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	h.respondList(c, h.service.List)
}

// ListMine godoc
// @Summary List the caller's enrollments
// @Tags Enrollments
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments/my-enrollments [get]
func (h *EnrollmentHandler) ListMine(c *gin.Context) {
	h.respondList(c, h.service.ListMine)
}

// ListByStudent godoc
// @Summary List a student's enrollments
// @Tags Enrollments
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments/student/{studentId} [get]
func (h *EnrollmentHandler) ListByStudent(c *gin.Context) {
	studentID := c.Param("studentId")
	h.respondList(c, func(ctx context.Context, actor *models.JWTClaims) ([]dto.EnrollmentResponse, error) {
		return h.service.ListByStudent(ctx, actor, studentID)
	})
}

// ListByCourse godoc
// @Summary List a course's enrollments
// @Tags Enrollments
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments/course/{courseId} [get]
func (h *EnrollmentHandler) ListByCourse(c *gin.Context) {
	courseID := c.Param("courseId")
	h.respondList(c, func(ctx context.Context, actor *models.JWTClaims) ([]dto.EnrollmentResponse, error) {
		return h.service.ListByCourse(ctx, actor, courseID)
	})
}

// Check godoc
// @Summary Check whether a student is enrolled in a course
// @Tags Enrollments
// @Produce json
// @Param studentId query string true "Student ID"
// @Param courseId query string true "Course ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments/check [get]
func (h *EnrollmentHandler) Check(c *gin.Context) {
	check, err := h.service.IsEnrolled(c.Request.Context(), claimsFromContext(c), c.Query("studentId"), c.Query("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Enrollment checked", check)
}

// CountByCourse godoc
// @Summary Count a course's enrollments
// @Tags Enrollments
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments/course/{courseId}/count [get]
func (h *EnrollmentHandler) CountByCourse(c *gin.Context) {
	total, err := h.service.CountByCourse(c.Request.Context(), claimsFromContext(c), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Enrollments counted", dto.Count{Count: total})
}

// CountByStudent godoc
// @Summary Count a student's enrollments
// @Tags Enrollments
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments/student/{studentId}/count [get]
func (h *EnrollmentHandler) CountByStudent(c *gin.Context) {
	total, err := h.service.CountByStudent(c.Request.Context(), claimsFromContext(c), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Enrollments counted", dto.Count{Count: total})
}

func (h *EnrollmentHandler) respondList(c *gin.Context, list func(context.Context, *models.JWTClaims) ([]dto.EnrollmentResponse, error)) {
	enrollments, err := list(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Enrollments retrieved", enrollments)
}
