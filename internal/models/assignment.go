package models

import "time"

// DefaultMaxPoints applies when an assignment omits max points.
const DefaultMaxPoints = 100

// Assignment is gradable work attached to a course.
type Assignment struct {
	ID          string     `db:"id"`
	Title       string     `db:"title"`
	Description string     `db:"description"`
	CourseID    string     `db:"course_id"`
	MaxPoints   int        `db:"max_points"`
	DueDate     *time.Time `db:"due_date"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

// PastDue reports whether now is after the due date. Assignments without a due date never lapse.
func (a Assignment) PastDue(now time.Time) bool {
	return a.DueDate != nil && now.After(*a.DueDate)
}

// AssignmentDetail adds the number of submissions received.
type AssignmentDetail struct {
	Assignment
	SubmissionCount int `db:"submission_count"`
}
