package models

import "time"

// SubmissionStatus tracks grading.
type SubmissionStatus string

const (
	SubmissionStatusSubmitted SubmissionStatus = "SUBMITTED"
	SubmissionStatusGraded    SubmissionStatus = "GRADED"
)

// Submission is a student's single attempt at an assignment.
type Submission struct {
	ID             string           `db:"id"`
	AssignmentID   string           `db:"assignment_id"`
	StudentID      string           `db:"student_id"`
	SubmissionText string           `db:"submission_text"`
	FileURL        string           `db:"file_url"`
	SubmittedAt    time.Time        `db:"submitted_at"`
	Points         *int             `db:"points"`
	Feedback       *string          `db:"feedback"`
	Status         SubmissionStatus `db:"status"`
	GradedAt       *time.Time       `db:"graded_at"`
	GradedBy       *string          `db:"graded_by"`
}

// SubmissionDetail joins the submitting student and assignment ceiling.
type SubmissionDetail struct {
	Submission
	StudentEmail     string   `db:"student_email"`
	StudentFirstName string   `db:"student_first_name"`
	StudentLastName  string   `db:"student_last_name"`
	StudentRole      UserRole `db:"student_role"`
	StudentActive    bool     `db:"student_active"`
	MaxPoints        int      `db:"max_points"`
	AssignmentTitle  string   `db:"assignment_title"`
}
