package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-management-api/internal/models"
)

const enrollmentColumns = `id, student_id, course_id, enrolled_at, progress, status`

// EnrollmentRepository manages the student to course ledger.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository instantiates the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByID returns an enrollment.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isMalformedID(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return &enrollment, nil
}

// Exists reports whether the student is enrolled in the course.
func (r *EnrollmentRepository) Exists(ctx context.Context, studentID, courseID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, studentID, courseID); err != nil {
		if isMalformedID(err) {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return exists, nil
}

// List returns every enrollment, newest first.
func (r *EnrollmentRepository) List(ctx context.Context) ([]models.Enrollment, error) {
	return r.selectMany(ctx, "list enrollments", `SELECT `+enrollmentColumns+` FROM enrollments ORDER BY enrolled_at DESC`)
}

// ListByStudent returns a student's enrollments.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	return r.selectMany(ctx, "list enrollments by student", `SELECT `+enrollmentColumns+` FROM enrollments WHERE student_id = $1 ORDER BY enrolled_at DESC`, studentID)
}

// ListByCourse returns a course's enrollments.
func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Enrollment, error) {
	return r.selectMany(ctx, "list enrollments by course", `SELECT `+enrollmentColumns+` FROM enrollments WHERE course_id = $1 ORDER BY enrolled_at DESC`, courseID)
}

// ListRoster returns a course's enrollments joined with student identity, ordered by name.
func (r *EnrollmentRepository) ListRoster(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.course_id, e.enrolled_at, e.progress, e.status,
	u.email AS student_email, u.first_name AS student_first_name, u.last_name AS student_last_name
FROM enrollments e JOIN users u ON u.id = e.student_id
WHERE e.course_id = $1 ORDER BY u.last_name, u.first_name`
	var roster []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &roster, query, courseID); err != nil {
		if isMalformedID(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list roster: %w", err)
	}
	return roster, nil
}

func (r *EnrollmentRepository) selectMany(ctx context.Context, op, query string, args ...interface{}) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		if isMalformedID(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return enrollments, nil
}

// CountByCourse counts a course's enrollments.
func (r *EnrollmentRepository) CountByCourse(ctx context.Context, courseID string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM enrollments WHERE course_id = $1`, courseID); err != nil {
		if isMalformedID(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("count enrollments by course: %w", err)
	}
	return total, nil
}

// CountByStudent counts a student's enrollments.
func (r *EnrollmentRepository) CountByStudent(ctx context.Context, studentID string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM enrollments WHERE student_id = $1`, studentID); err != nil {
		if isMalformedID(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("count enrollments by student: %w", err)
	}
	return total, nil
}

// Create inserts an enrollment. A repeated (student, course) pair yields ErrDuplicate.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	const query = `INSERT INTO enrollments (id, student_id, course_id, enrolled_at, progress, status) VALUES (:id, :student_id, :course_id, :enrolled_at, :progress, :status)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// UpdateProgress stores progress and status.
func (r *EnrollmentRepository) UpdateProgress(ctx context.Context, enrollment *models.Enrollment) error {
	const query = `UPDATE enrollments SET progress = :progress, status = :status WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, enrollment)
	if err != nil {
		return fmt.Errorf("update enrollment progress: %w", err)
	}
	return expectAffected(res, "update enrollment progress")
}

// Delete removes an enrollment.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return expectAffected(res, "delete enrollment")
}
