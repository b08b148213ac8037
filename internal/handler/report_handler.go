package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-management-api/internal/models"
	"github.com/noah-isme/course-management-api/internal/service"
	"github.com/noah-isme/course-management-api/pkg/response"
)

type reportService interface {
	CourseRoster(ctx context.Context, actor *models.JWTClaims, courseID, rawFormat string) (*service.ReportFile, error)
	Gradebook(ctx context.Context, actor *models.JWTClaims, assignmentID, rawFormat string) (*service.ReportFile, error)
}

// ReportHandler exposes roster and gradebook exports.
type ReportHandler struct {
	service reportService
}

// NewReportHandler constructs handler.
func NewReportHandler(svc reportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// CourseRoster godoc
// @Summary Export a course roster
// @Tags Reports
// @Produce text/csv,application/pdf
// @Param id path string true "Course ID"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/roster [get]
func (h *ReportHandler) CourseRoster(c *gin.Context) {
	file, err := h.service.CourseRoster(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Query("format"))
	h.send(c, file, err)
}

// Gradebook godoc
// @Summary Export an assignment gradebook
// @Tags Reports
// @Produce text/csv,application/pdf
// @Param id path string true "Assignment ID"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments/{id}/gradebook [get]
func (h *ReportHandler) Gradebook(c *gin.Context) {
	file, err := h.service.Gradebook(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Query("format"))
	h.send(c, file, err)
}

func (h *ReportHandler) send(c *gin.Context, file *service.ReportFile, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
