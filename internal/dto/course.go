package dto

import (
	"time"

	"github.com/noah-isme/course-management-api/internal/models"
)

// CourseRequest creates or replaces a course.
type CourseRequest struct {
	Title        string  `json:"title" validate:"required,max=255"`
	Description  string  `json:"description"`
	InstructorID string  `json:"instructorId" validate:"required"`
	Price        float64 `json:"price" validate:"gte=0"`
	IsPublished  bool    `json:"isPublished"`
}

// CourseResponse is the public projection of a course.
type CourseResponse struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Instructor   *UserResponse `json:"instructor,omitempty"`
	Price        float64       `json:"price"`
	IsPublished  bool          `json:"isPublished"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
	StudentCount int           `json:"studentCount"`
	LessonCount  int           `json:"lessonCount"`
}

// ToModel builds the persisted shape. Generated fields are left zero.
func (r CourseRequest) ToModel() models.Course {
	return models.Course{
		Title:        r.Title,
		Description:  r.Description,
		InstructorID: r.InstructorID,
		Price:        r.Price,
		Published:    r.IsPublished,
	}
}

// CourseRequestFromResponse rebuilds the request that would reproduce resp.
func CourseRequestFromResponse(resp CourseResponse) CourseRequest {
	req := CourseRequest{
		Title:       resp.Title,
		Description: resp.Description,
		Price:       resp.Price,
		IsPublished: resp.IsPublished,
	}
	if resp.Instructor != nil {
		req.InstructorID = resp.Instructor.ID
	}
	return req
}

func NewCourseResponse(d models.CourseDetail) CourseResponse {
	instructor := NewUserResponse(d.Instructor())
	return CourseResponse{
		ID:           d.ID,
		Title:        d.Title,
		Description:  d.Description,
		Instructor:   &instructor,
		Price:        d.Price,
		IsPublished:  d.Published,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
		StudentCount: d.StudentCount,
		LessonCount:  d.LessonCount,
	}
}

func NewCourseResponses(details []models.CourseDetail) []CourseResponse {
	out := make([]CourseResponse, 0, len(details))
	for _, d := range details {
		out = append(out, NewCourseResponse(d))
	}
	return out
}

// CoursePage is a page of courses.
type CoursePage struct {
	Items      []CourseResponse   `json:"items"`
	Pagination *models.Pagination `json:"pagination"`
}

// CourseListQuery carries /courses query parameters.
type CourseListQuery struct {
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
	Keyword  string `form:"keyword"`
}
