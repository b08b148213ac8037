package dto

import (
	"time"

	"github.com/noah-isme/course-management-api/internal/models"
)

// SubmissionRequest carries a student's answer. At least one of text or file is required.
type SubmissionRequest struct {
	SubmissionText string `json:"submissionText" validate:"required_without=FileURL"`
	FileURL        string `json:"fileUrl" validate:"max=512"`
}

// GradeRequest scores a submission.
type GradeRequest struct {
	Points   *int   `json:"points" validate:"required"`
	Feedback string `json:"feedback"`
}

// SubmissionResponse is the public projection of a submission.
type SubmissionResponse struct {
	ID              string                  `json:"id"`
	AssignmentID    string                  `json:"assignmentId"`
	AssignmentTitle string                  `json:"assignmentTitle,omitempty"`
	StudentID       string                  `json:"studentId"`
	Student         *UserResponse           `json:"student,omitempty"`
	SubmissionText  string                  `json:"submissionText"`
	FileURL         string                  `json:"fileUrl"`
	SubmittedAt     time.Time               `json:"submittedAt"`
	Points          *int                    `json:"points"`
	MaxPoints       int                     `json:"maxPoints,omitempty"`
	Feedback        *string                 `json:"feedback"`
	Status          models.SubmissionStatus `json:"status"`
	GradedAt        *time.Time              `json:"gradedAt,omitempty"`
}

func (r SubmissionRequest) ToModel(assignmentID, studentID string) models.Submission {
	return models.Submission{
		AssignmentID:   assignmentID,
		StudentID:      studentID,
		SubmissionText: r.SubmissionText,
		FileURL:        r.FileURL,
	}
}

func SubmissionRequestFromResponse(resp SubmissionResponse) SubmissionRequest {
	return SubmissionRequest{SubmissionText: resp.SubmissionText, FileURL: resp.FileURL}
}

func NewSubmissionResponse(s models.Submission) SubmissionResponse {
	return SubmissionResponse{
		ID:             s.ID,
		AssignmentID:   s.AssignmentID,
		StudentID:      s.StudentID,
		SubmissionText: s.SubmissionText,
		FileURL:        s.FileURL,
		SubmittedAt:    s.SubmittedAt,
		Points:         s.Points,
		Feedback:       s.Feedback,
		Status:         s.Status,
		GradedAt:       s.GradedAt,
	}
}

func NewSubmissionDetailResponse(d models.SubmissionDetail) SubmissionResponse {
	resp := NewSubmissionResponse(d.Submission)
	resp.AssignmentTitle = d.AssignmentTitle
	resp.MaxPoints = d.MaxPoints
	resp.Student = &UserResponse{
		ID:        d.StudentID,
		Email:     d.StudentEmail,
		FirstName: d.StudentFirstName,
		LastName:  d.StudentLastName,
		Role:      d.StudentRole,
		IsActive:  d.StudentActive,
	}
	return resp
}

func NewSubmissionDetailResponses(items []models.SubmissionDetail) []SubmissionResponse {
	out := make([]SubmissionResponse, 0, len(items))
	for _, d := range items {
		out = append(out, NewSubmissionDetailResponse(d))
	}
	return out
}
