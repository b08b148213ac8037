package models

import "time"

// Course is a catalog entry owned by an instructor.
type Course struct {
	ID           string    `db:"id"`
	Title        string    `db:"title"`
	Description  string    `db:"description"`
	InstructorID string    `db:"instructor_id"`
	Price        float64   `db:"price"`
	Published    bool      `db:"published"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// CourseDetail enriches Course with its instructor and aggregate counts.
type CourseDetail struct {
	Course
	InstructorEmail     string    `db:"instructor_email"`
	InstructorFirstName string    `db:"instructor_first_name"`
	InstructorLastName  string    `db:"instructor_last_name"`
	InstructorRole      UserRole  `db:"instructor_role"`
	InstructorActive    bool      `db:"instructor_active"`
	InstructorCreatedAt time.Time `db:"instructor_created_at"`
	InstructorUpdatedAt time.Time `db:"instructor_updated_at"`
	StudentCount        int       `db:"student_count"`
	LessonCount         int       `db:"lesson_count"`
}

// Instructor projects the joined instructor columns as a User.
func (d CourseDetail) Instructor() User {
	return User{
		ID:        d.InstructorID,
		Email:     d.InstructorEmail,
		FirstName: d.InstructorFirstName,
		LastName:  d.InstructorLastName,
		Role:      d.InstructorRole,
		Active:    d.InstructorActive,
		CreatedAt: d.InstructorCreatedAt,
		UpdatedAt: d.InstructorUpdatedAt,
	}
}

// CourseFilter narrows course listings.
type CourseFilter struct {
	InstructorID string
	Published    *bool
	Keyword      string
	// PageSize of zero returns every match.
	Page     int
	PageSize int
}
