package dto

import (
	"time"

	"github.com/noah-isme/course-management-api/internal/models"
)

// AssignmentRequest creates or replaces an assignment. MaxPoints defaults to 100.
type AssignmentRequest struct {
	Title       string     `json:"title" validate:"required,max=255"`
	Description string     `json:"description"`
	CourseID    string     `json:"courseId" validate:"required"`
	MaxPoints   *int       `json:"maxPoints" validate:"omitempty,gt=0"`
	DueDate     *time.Time `json:"dueDate"`
}

// AssignmentResponse is the public projection of an assignment.
type AssignmentResponse struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	CourseID        string     `json:"courseId"`
	MaxPoints       int        `json:"maxPoints"`
	DueDate         *time.Time `json:"dueDate"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	SubmissionCount int        `json:"submissionCount"`
}

func (r AssignmentRequest) ToModel() models.Assignment {
	maxPoints := models.DefaultMaxPoints
	if r.MaxPoints != nil {
		maxPoints = *r.MaxPoints
	}
	var due *time.Time
	if r.DueDate != nil {
		d := r.DueDate.UTC()
		due = &d
	}
	return models.Assignment{
		Title:       r.Title,
		Description: r.Description,
		CourseID:    r.CourseID,
		MaxPoints:   maxPoints,
		DueDate:     due,
	}
}

func AssignmentRequestFromResponse(resp AssignmentResponse) AssignmentRequest {
	maxPoints := resp.MaxPoints
	return AssignmentRequest{
		Title:       resp.Title,
		Description: resp.Description,
		CourseID:    resp.CourseID,
		MaxPoints:   &maxPoints,
		DueDate:     resp.DueDate,
	}
}

func NewAssignmentResponse(a models.AssignmentDetail) AssignmentResponse {
	return AssignmentResponse{
		ID:              a.ID,
		Title:           a.Title,
		Description:     a.Description,
		CourseID:        a.CourseID,
		MaxPoints:       a.MaxPoints,
		DueDate:         a.DueDate,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
		SubmissionCount: a.SubmissionCount,
	}
}

func NewAssignmentResponses(items []models.AssignmentDetail) []AssignmentResponse {
	out := make([]AssignmentResponse, 0, len(items))
	for _, a := range items {
		out = append(out, NewAssignmentResponse(a))
	}
	return out
}
