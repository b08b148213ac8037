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

const assignmentColumns = `id, title, description, course_id, max_points, due_date, created_at, updated_at`

const assignmentDetailSelect = `SELECT a.id, a.title, a.description, a.course_id, a.max_points, a.due_date, a.created_at, a.updated_at,
	(SELECT COUNT(*) FROM submissions s WHERE s.assignment_id = a.id) AS submission_count
FROM assignments a`

// AssignmentRepository persists assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs an AssignmentRepository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// FindByID returns the bare assignment row.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isMalformedID(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find assignment: %w", err)
	}
	return &assignment, nil
}

// FindDetail returns an assignment with its submission count.
func (r *AssignmentRepository) FindDetail(ctx context.Context, id string) (*models.AssignmentDetail, error) {
	var detail models.AssignmentDetail
	if err := r.db.GetContext(ctx, &detail, assignmentDetailSelect+` WHERE a.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isMalformedID(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find assignment detail: %w", err)
	}
	return &detail, nil
}

// List returns every assignment.
func (r *AssignmentRepository) List(ctx context.Context) ([]models.AssignmentDetail, error) {
	return r.selectMany(ctx, "list assignments", assignmentDetailSelect+` ORDER BY a.created_at DESC`)
}

// ListByCourse returns a course's assignments by due date, undated last.
func (r *AssignmentRepository) ListByCourse(ctx context.Context, courseID string) ([]models.AssignmentDetail, error) {
	return r.selectMany(ctx, "list assignments by course", assignmentDetailSelect+` WHERE a.course_id = $1 ORDER BY a.due_date NULLS LAST, a.created_at`, courseID)
}

// ListForStudent returns assignments of every course the student is enrolled in.
func (r *AssignmentRepository) ListForStudent(ctx context.Context, studentID string) ([]models.AssignmentDetail, error) {
	query := assignmentDetailSelect + ` JOIN enrollments e ON e.course_id = a.course_id
WHERE e.student_id = $1 ORDER BY a.due_date NULLS LAST, a.created_at`
	return r.selectMany(ctx, "list assignments for student", query, studentID)
}

// ListOverdueForStudent returns assignments in the student's courses that are past due at now and unsubmitted by them.
func (r *AssignmentRepository) ListOverdueForStudent(ctx context.Context, studentID string, now time.Time) ([]models.AssignmentDetail, error) {
	query := assignmentDetailSelect + ` JOIN enrollments e ON e.course_id = a.course_id
WHERE e.student_id = $1 AND a.due_date IS NOT NULL AND a.due_date < $2
	AND NOT EXISTS (SELECT 1 FROM submissions s2 WHERE s2.assignment_id = a.id AND s2.student_id = $1)
ORDER BY a.due_date`
	return r.selectMany(ctx, "list overdue assignments", query, studentID, now)
}

func (r *AssignmentRepository) selectMany(ctx context.Context, op, query string, args ...interface{}) ([]models.AssignmentDetail, error) {
	var items []models.AssignmentDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		if isMalformedID(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return items, nil
}

// Create inserts an assignment.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = time.Now().UTC()
	}
	assignment.UpdatedAt = assignment.CreatedAt
	const query = `INSERT INTO assignments (id, title, description, course_id, max_points, due_date, created_at, updated_at) VALUES (:id, :title, :description, :course_id, :max_points, :due_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// Update rewrites an assignment's fields.
func (r *AssignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	if assignment.UpdatedAt.IsZero() {
		assignment.UpdatedAt = time.Now().UTC()
	}
	const query = `UPDATE assignments SET title = :title, description = :description, course_id = :course_id, max_points = :max_points, due_date = :due_date, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, assignment)
	if err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	return expectAffected(res, "update assignment")
}

// Delete removes an assignment; submissions cascade.
func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return expectAffected(res, "delete assignment")
}
