package dto

import (
	"time"

	"github.com/noah-isme/course-management-api/internal/models"
)

// EnrollmentRequest enrolls the calling student. StudentID, when sent, must match the caller.
type EnrollmentRequest struct {
	StudentID string `json:"studentId"`
	CourseID  string `json:"courseId" validate:"required"`
}

// EnrollmentResponse is the public projection of an enrollment.
type EnrollmentResponse struct {
	ID         string                  `json:"id"`
	Student    *UserResponse           `json:"student,omitempty"`
	Course     *CourseResponse         `json:"course,omitempty"`
	EnrolledAt time.Time               `json:"enrolledAt"`
	Progress   int                     `json:"progress"`
	Status     models.EnrollmentStatus `json:"status"`
}

// EnrollmentCheck answers an isEnrolled query.
type EnrollmentCheck struct {
	StudentID string `json:"studentId"`
	CourseID  string `json:"courseId"`
	Enrolled  bool   `json:"enrolled"`
}

// Count wraps a scalar count.
type Count struct {
	Count int `json:"count"`
}

// NewEnrollmentResponse projects e; student and course are optional.
func NewEnrollmentResponse(e models.Enrollment, student *models.User, course *models.CourseDetail) EnrollmentResponse {
	resp := EnrollmentResponse{
		ID:         e.ID,
		EnrolledAt: e.EnrolledAt,
		Progress:   e.Progress,
		Status:     e.Status,
	}
	if student != nil {
		s := NewUserResponse(*student)
		resp.Student = &s
	}
	if course != nil {
		c := NewCourseResponse(*course)
		resp.Course = &c
	}
	return resp
}
