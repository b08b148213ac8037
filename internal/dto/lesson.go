package dto

import (
	"time"

	"github.com/noah-isme/course-management-api/internal/models"
)

// LessonRequest creates or replaces a lesson.
type LessonRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	Content     string `json:"content"`
	VideoURL    string `json:"videoUrl" validate:"omitempty,url"`
	CourseID    string `json:"courseId" validate:"required"`
	OrderNumber int    `json:"orderNumber" validate:"gt=0"`
}

// LessonResponse is the public projection of a lesson.
type LessonResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	VideoURL    string    `json:"videoUrl"`
	CourseID    string    `json:"courseId"`
	OrderNumber int       `json:"orderNumber"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (r LessonRequest) ToModel() models.Lesson {
	return models.Lesson{
		Title:       r.Title,
		Content:     r.Content,
		VideoURL:    r.VideoURL,
		CourseID:    r.CourseID,
		OrderNumber: r.OrderNumber,
	}
}

func LessonRequestFromResponse(resp LessonResponse) LessonRequest {
	return LessonRequest{
		Title:       resp.Title,
		Content:     resp.Content,
		VideoURL:    resp.VideoURL,
		CourseID:    resp.CourseID,
		OrderNumber: resp.OrderNumber,
	}
}

func NewLessonResponse(l models.Lesson) LessonResponse {
	return LessonResponse{
		ID:          l.ID,
		Title:       l.Title,
		Content:     l.Content,
		VideoURL:    l.VideoURL,
		CourseID:    l.CourseID,
		OrderNumber: l.OrderNumber,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

func NewLessonResponses(lessons []models.Lesson) []LessonResponse {
	out := make([]LessonResponse, 0, len(lessons))
	for _, l := range lessons {
		out = append(out, NewLessonResponse(l))
	}
	return out
}
