package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-management-api/internal/dto"
	"github.com/noah-isme/course-management-api/internal/models"
	"github.com/noah-isme/course-management-api/pkg/response"
)

type lessonService interface {
	Create(ctx context.Context, actor *models.JWTClaims, req dto.LessonRequest) (*dto.LessonResponse, error)
	Update(ctx context.Context, actor *models.JWTClaims, id string, req dto.LessonRequest) (*dto.LessonResponse, error)
	Delete(ctx context.Context, actor *models.JWTClaims, id string) error
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*dto.LessonResponse, error)
	ListByCourse(ctx context.Context, actor *models.JWTClaims, courseID string) ([]dto.LessonResponse, error)
	Reorder(ctx context.Context, actor *models.JWTClaims, courseID string, lessonIDs []string) ([]dto.LessonResponse, error)
}

// LessonHandler exposes lessons and their ordering.
type LessonHandler struct {
	service lessonService
}

// NewLessonHandler constructs a LessonHandler.
func NewLessonHandler(svc lessonService) *LessonHandler {
	return &LessonHandler{service: svc}
}

// Create godoc
// @Summary Create lesson
// @Tags Lessons
// @Accept json
// @Produce json
// @Param payload body dto.LessonRequest true "Lesson"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /lessons [post]
func (h *LessonHandler) Create(c *gin.Context) {
	var req dto.LessonRequest
	if !bindJSON(c, &req, "invalid lesson payload") {
		return
	}
	lesson, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Lesson created", lesson)
}

// Update godoc
// @Summary Update lesson
// @Tags Lessons
// @Accept json
// @Produce json
// @Param id path string true "Lesson ID"
// @Param payload body dto.LessonRequest true "Lesson"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /lessons/{id} [put]
func (h *LessonHandler) Update(c *gin.Context) {
	var req dto.LessonRequest
	if !bindJSON(c, &req, "invalid lesson payload") {
		return
	}
	lesson, err := h.service.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Lesson updated", lesson)
}

// Delete godoc
// @Summary Delete lesson
// @Tags Lessons
// @Param id path string true "Lesson ID"
// @Success 204
// @Security BearerAuth
// @Router /lessons/{id} [delete]
func (h *LessonHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Get godoc
// @Summary Get lesson
// @Tags Lessons
// @Produce json
// @Param id path string true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /lessons/{id} [get]
func (h *LessonHandler) Get(c *gin.Context) {
	lesson, err := h.service.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Lesson retrieved", lesson)
}

// ListByCourse godoc
// @Summary List a course's lessons in order
// @Tags Lessons
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /lessons/course/{courseId} [get]
func (h *LessonHandler) ListByCourse(c *gin.Context) {
	lessons, err := h.service.ListByCourse(c.Request.Context(), claimsFromContext(c), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Lessons retrieved", lessons)
}

// Reorder godoc
// @Summary Reorder a course's lessons
// @Description Lesson at index i receives order number i+1
// @Tags Lessons
// @Accept json
// @Produce json
// @Param courseId path string true "Course ID"
// @Param payload body []string true "Lesson IDs in their new order"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /lessons/course/{courseId}/reorder [put]
func (h *LessonHandler) Reorder(c *gin.Context) {
	var ids []string
	if !bindJSON(c, &ids, "lesson order must be a JSON array of lesson ids") {
		return
	}
	lessons, err := h.service.Reorder(c.Request.Context(), claimsFromContext(c), c.Param("courseId"), ids)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Lessons reordered", lessons)
}
