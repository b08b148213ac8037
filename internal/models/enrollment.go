package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

const (
	EnrollmentStatusActive    EnrollmentStatus = "ACTIVE"
	EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
)

const (
	ProgressMin      = 0
	ProgressComplete = 100
)

// Enrollment associates a student with a course and tracks progress.
type Enrollment struct {
	ID         string           `db:"id"`
	StudentID  string           `db:"student_id"`
	CourseID   string           `db:"course_id"`
	EnrolledAt time.Time        `db:"enrolled_at"`
	Progress   int              `db:"progress"`
	Status     EnrollmentStatus `db:"status"`
}

// EnrollmentDetail joins the enrolled student's identity for rosters.
type EnrollmentDetail struct {
	Enrollment
	StudentEmail     string `db:"student_email"`
	StudentFirstName string `db:"student_first_name"`
	StudentLastName  string `db:"student_last_name"`
}

// StudentName joins the student's first and last name.
func (d EnrollmentDetail) StudentName() string {
	return User{FirstName: d.StudentFirstName, LastName: d.StudentLastName}.FullName()
}
