package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-management-api/internal/dto"
	"github.com/noah-isme/course-management-api/internal/models"
	"github.com/noah-isme/course-management-api/pkg/response"
)

type submissionService interface {
	Submit(ctx context.Context, actor *models.JWTClaims, assignmentID string, req dto.SubmissionRequest) (*dto.SubmissionResponse, error)
	Grade(ctx context.Context, actor *models.JWTClaims, id string, req dto.GradeRequest) (*dto.SubmissionResponse, error)
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*dto.SubmissionResponse, error)
	GetByAssignmentAndStudent(ctx context.Context, actor *models.JWTClaims, assignmentID, studentID string) (*dto.SubmissionResponse, error)
	ListMine(ctx context.Context, actor *models.JWTClaims) ([]dto.SubmissionResponse, error)
	ListByAssignment(ctx context.Context, actor *models.JWTClaims, assignmentID string) ([]dto.SubmissionResponse, error)
}

// SubmissionHandler exposes submissions and grading.
type SubmissionHandler struct {
	service submissionService
}

// NewSubmissionHandler constructs a SubmissionHandler.
func NewSubmissionHandler(svc submissionService) *SubmissionHandler {
	return &SubmissionHandler{service: svc}
}

// Submit godoc
// @Summary Submit an assignment
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body dto.SubmissionRequest true "Submission"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments/{id}/submissions [post]
func (h *SubmissionHandler) Submit(c *gin.Context) {
	var req dto.SubmissionRequest
	if !bindJSON(c, &req, "invalid submission payload") {
		return
	}
	submission, err := h.service.Submit(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Assignment submitted", submission)
}

// Grade godoc
// @Summary Grade a submission
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body dto.GradeRequest true "Grade"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /submissions/{id}/grade [put]
func (h *SubmissionHandler) Grade(c *gin.Context) {
	var req dto.GradeRequest
	if !bindJSON(c, &req, "invalid grade payload") {
		return
	}
	submission, err := h.service.Grade(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Submission graded", submission)
}

// Get godoc
// @Summary Get submission
// @Tags Submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /submissions/{id} [get]
func (h *SubmissionHandler) Get(c *gin.Context) {
	submission, err := h.service.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Submission retrieved", submission)
}

// GetMine godoc
// @Summary Get the caller's submission for an assignment
// @Tags Submissions
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments/{id}/submissions/me [get]
func (h *SubmissionHandler) GetMine(c *gin.Context) {
	h.getForStudent(c, "")
}

// GetForStudent godoc
// @Summary Get a student's submission for an assignment
// @Tags Submissions
// @Produce json
// @Param id path string true "Assignment ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments/{id}/submissions/student/{studentId} [get]
func (h *SubmissionHandler) GetForStudent(c *gin.Context) {
	h.getForStudent(c, c.Param("studentId"))
}

// ListByAssignment godoc
// @Summary List an assignment's submissions
// @Tags Submissions
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments/{id}/submissions [get]
func (h *SubmissionHandler) ListByAssignment(c *gin.Context) {
	submissions, err := h.service.ListByAssignment(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Submissions retrieved", submissions)
}

// ListMine godoc
// @Summary List the caller's submissions
// @Tags Submissions
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /submissions/my-submissions [get]
func (h *SubmissionHandler) ListMine(c *gin.Context) {
	submissions, err := h.service.ListMine(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Submissions retrieved", submissions)
}

func (h *SubmissionHandler) getForStudent(c *gin.Context, studentID string) {
	submission, err := h.service.GetByAssignmentAndStudent(c.Request.Context(), claimsFromContext(c), c.Param("id"), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Submission retrieved", submission)
}
