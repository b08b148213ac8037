package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-management-api/internal/models"
)

const courseColumns = `id, title, description, instructor_id, price, published, created_at, updated_at`

const courseDetailSelect = `SELECT c.id, c.title, c.description, c.instructor_id, c.price, c.published, c.created_at, c.updated_at,
	u.email AS instructor_email, u.first_name AS instructor_first_name, u.last_name AS instructor_last_name,
	u.role AS instructor_role, u.active AS instructor_active, u.created_at AS instructor_created_at, u.updated_at AS instructor_updated_at,
	(SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id) AS student_count,
	(SELECT COUNT(*) FROM lessons l WHERE l.course_id = c.id) AS lesson_count
FROM courses c JOIN users u ON u.id = c.instructor_id`

// CourseRepository persists courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns the bare course row.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isMalformedID(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &course, nil
}

// FindDetail returns a course with its instructor and counts.
func (r *CourseRepository) FindDetail(ctx context.Context, id string) (*models.CourseDetail, error) {
	query := courseDetailSelect + ` WHERE c.id = $1`
	var detail models.CourseDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isMalformedID(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find course detail: %w", err)
	}
	return &detail, nil
}

// List returns courses matching filter and the total match count.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	if filter.InstructorID != "" {
		args = append(args, filter.InstructorID)
		where += fmt.Sprintf(" AND c.instructor_id = $%d", len(args))
	}
	if filter.Published != nil {
		args = append(args, *filter.Published)
		where += fmt.Sprintf(" AND c.published = $%d", len(args))
	}
	if kw := strings.TrimSpace(filter.Keyword); kw != "" {
		args = append(args, "%"+kw+"%")
		where += fmt.Sprintf(" AND (c.title ILIKE $%[1]d OR c.description ILIKE $%[1]d)", len(args))
	}

	query := courseDetailSelect + where + ` ORDER BY c.created_at DESC, c.id`
	if filter.PageSize > 0 {
		page, size := models.NormalizePage(filter.Page, filter.PageSize)
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", size, (page-1)*size)
	}

	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		if isMalformedID(err) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM courses c`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// ExistsByTitleAndInstructor checks the (title, instructor) pair, ignoring excludeID.
func (r *CourseRepository) ExistsByTitleAndInstructor(ctx context.Context, title, instructorID, excludeID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM courses WHERE title = $1 AND instructor_id = $2 AND ($3 = '' OR id::text <> $3))`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, title, instructorID, excludeID); err != nil {
		if isMalformedID(err) {
			return false, nil
		}
		return false, fmt.Errorf("check course title: %w", err)
	}
	return exists, nil
}

// Count returns the number of courses.
func (r *CourseRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM courses`); err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	return total, nil
}

// Create inserts a course. A taken (title, instructor) pair yields ErrDuplicate.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = course.CreatedAt

	const query = `INSERT INTO courses (id, title, description, instructor_id, price, published, created_at, updated_at) VALUES (:id, :title, :description, :instructor_id, :price, :published, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update rewrites the mutable course fields.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	if course.UpdatedAt.IsZero() {
		course.UpdatedAt = time.Now().UTC()
	}
	const query = `UPDATE courses SET title = :title, description = :description, instructor_id = :instructor_id, price = :price, published = :published, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, course)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update course: %w", err)
	}
	return expectAffected(res, "update course")
}

// SetPublished flips the published flag.
func (r *CourseRepository) SetPublished(ctx context.Context, id string, published bool, updatedAt time.Time) error {
	const query = `UPDATE courses SET published = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, published, updatedAt)
	if err != nil {
		return fmt.Errorf("set course published: %w", err)
	}
	return expectAffected(res, "set course published")
}

// Delete removes a course; lessons, assignments and enrollments cascade.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return expectAffected(res, "delete course")
}
