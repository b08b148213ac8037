package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-management-api/internal/dto"
	"github.com/noah-isme/course-management-api/internal/models"
	appErrors "github.com/noah-isme/course-management-api/pkg/errors"
	"github.com/noah-isme/course-management-api/pkg/response"
)

type courseService interface {
	Create(ctx context.Context, actor *models.JWTClaims, req dto.CourseRequest) (*dto.CourseResponse, error)
	Update(ctx context.Context, actor *models.JWTClaims, id string, req dto.CourseRequest) (*dto.CourseResponse, error)
	Delete(ctx context.Context, actor *models.JWTClaims, id string) error
	Publish(ctx context.Context, actor *models.JWTClaims, id string) (*dto.CourseResponse, error)
	Unpublish(ctx context.Context, actor *models.JWTClaims, id string) (*dto.CourseResponse, error)
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*dto.CourseResponse, error)
	List(ctx context.Context, actor *models.JWTClaims, page, pageSize int) (*dto.CoursePage, error)
	ListPublished(ctx context.Context, actor *models.JWTClaims) ([]dto.CourseResponse, error)
	ListByInstructor(ctx context.Context, actor *models.JWTClaims, instructorID string) ([]dto.CourseResponse, error)
	ListMine(ctx context.Context, actor *models.JWTClaims) ([]dto.CourseResponse, error)
	Search(ctx context.Context, actor *models.JWTClaims, keyword string) ([]dto.CourseResponse, error)
	Count(ctx context.Context, actor *models.JWTClaims) (int, error)
}

// CourseHandler exposes the course catalog.
type CourseHandler struct {
	service courseService
}

// NewCourseHandler constructs a CourseHandler.
func NewCourseHandler(svc courseService) *CourseHandler {
	return &CourseHandler{service: svc}
}

// Create godoc
// @Summary Create course
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body dto.CourseRequest true "Course"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req dto.CourseRequest
	if !bindJSON(c, &req, "invalid course payload") {
		return
	}
	course, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Course created", course)
}

// Update godoc
// @Summary Update course
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body dto.CourseRequest true "Course"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	var req dto.CourseRequest
	if !bindJSON(c, &req, "invalid course payload") {
		return
	}
	course, err := h.service.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Course updated", course)
}

// Delete godoc
// @Summary Delete course
// @Description Removes the course with its lessons, enrollments, assignments and submissions
// @Tags Courses
// @Param id path string true "Course ID"
// @Success 204
// @Security BearerAuth
// @Router /courses/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Publish godoc
// @Summary Publish course
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/publish [post]
func (h *CourseHandler) Publish(c *gin.Context) {
	course, err := h.service.Publish(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Course published", course)
}

// Unpublish godoc
// @Summary Unpublish course
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/unpublish [post]
func (h *CourseHandler) Unpublish(c *gin.Context) {
	course, err := h.service.Unpublish(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Course unpublished", course)
}

// Get godoc
// @Summary Get course
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.service.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Course retrieved", course)
}

// List godoc
// @Summary List courses
// @Description Staff see every course; students see published courses only
// @Tags Courses
// @Produce json
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	var query dto.CourseListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	page, err := h.service.List(c.Request.Context(), claimsFromContext(c), query.Page, query.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Courses retrieved", page)
}

// ListPublished godoc
// @Summary List published courses
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/published [get]
func (h *CourseHandler) ListPublished(c *gin.Context) {
	courses, err := h.service.ListPublished(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Courses retrieved", courses)
}

// ListByInstructor godoc
// @Summary List an instructor's courses
// @Tags Courses
// @Produce json
// @Param instructorId path string true "Instructor ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/instructor/{instructorId} [get]
func (h *CourseHandler) ListByInstructor(c *gin.Context) {
	courses, err := h.service.ListByInstructor(c.Request.Context(), claimsFromContext(c), c.Param("instructorId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Courses retrieved", courses)
}

// ListMine godoc
// @Summary List the caller's own courses
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/my-courses [get]
func (h *CourseHandler) ListMine(c *gin.Context) {
	courses, err := h.service.ListMine(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Courses retrieved", courses)
}

// Search godoc
// @Summary Search courses by title
// @Tags Courses
// @Produce json
// @Param keyword query string true "Case-insensitive title fragment"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/search [get]
func (h *CourseHandler) Search(c *gin.Context) {
	courses, err := h.service.Search(c.Request.Context(), claimsFromContext(c), c.Query("keyword"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Courses retrieved", courses)
}

// Count godoc
// @Summary Count courses
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/count [get]
func (h *CourseHandler) Count(c *gin.Context) {
	total, err := h.service.Count(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Courses counted", dto.Count{Count: total})
}
