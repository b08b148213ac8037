package models

import "time"

// Lesson is an ordered unit of course content.
type Lesson struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Content     string    `db:"content"`
	VideoURL    string    `db:"video_url"`
	CourseID    string    `db:"course_id"`
	OrderNumber int       `db:"order_number"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}
