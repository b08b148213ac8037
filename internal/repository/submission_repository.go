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

const submissionColumns = `id, assignment_id, student_id, submission_text, file_url, submitted_at, points, feedback, status, graded_at, graded_by`

const submissionDetailSelect = `SELECT s.id, s.assignment_id, s.student_id, s.submission_text, s.file_url, s.submitted_at,
	s.points, s.feedback, s.status, s.graded_at, s.graded_by,
	u.email AS student_email, u.first_name AS student_first_name, u.last_name AS student_last_name,
	u.role AS student_role, u.active AS student_active,
	a.max_points, a.title AS assignment_title
FROM submissions s
JOIN users u ON u.id = s.student_id
JOIN assignments a ON a.id = s.assignment_id`

// SubmissionRepository persists assignment submissions.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs a SubmissionRepository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// FindByID returns the bare submission row.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isMalformedID(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find submission: %w", err)
	}
	return &submission, nil
}

// FindDetail returns a submission joined with its student and assignment.
func (r *SubmissionRepository) FindDetail(ctx context.Context, id string) (*models.SubmissionDetail, error) {
	var detail models.SubmissionDetail
	if err := r.db.GetContext(ctx, &detail, submissionDetailSelect+` WHERE s.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isMalformedID(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find submission detail: %w", err)
	}
	return &detail, nil
}

// FindByAssignmentAndStudent returns the single submission for the pair.
func (r *SubmissionRepository) FindByAssignmentAndStudent(ctx context.Context, assignmentID, studentID string) (*models.SubmissionDetail, error) {
	var detail models.SubmissionDetail
	query := submissionDetailSelect + ` WHERE s.assignment_id = $1 AND s.student_id = $2`
	if err := r.db.GetContext(ctx, &detail, query, assignmentID, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isMalformedID(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find submission by assignment and student: %w", err)
	}
	return &detail, nil
}

// Exists reports whether the student already submitted the assignment.
func (r *SubmissionRepository) Exists(ctx context.Context, assignmentID, studentID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM submissions WHERE assignment_id = $1 AND student_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, assignmentID, studentID); err != nil {
		if isMalformedID(err) {
			return false, nil
		}
		return false, fmt.Errorf("check submission: %w", err)
	}
	return exists, nil
}

// ListByStudent returns a student's submissions, newest first.
func (r *SubmissionRepository) ListByStudent(ctx context.Context, studentID string) ([]models.SubmissionDetail, error) {
	return r.selectMany(ctx, "list submissions by student", submissionDetailSelect+` WHERE s.student_id = $1 ORDER BY s.submitted_at DESC`, studentID)
}

// ListByAssignment returns an assignment's submissions ordered by student name.
func (r *SubmissionRepository) ListByAssignment(ctx context.Context, assignmentID string) ([]models.SubmissionDetail, error) {
	return r.selectMany(ctx, "list submissions by assignment", submissionDetailSelect+` WHERE s.assignment_id = $1 ORDER BY u.last_name, u.first_name`, assignmentID)
}

func (r *SubmissionRepository) selectMany(ctx context.Context, op, query string, args ...interface{}) ([]models.SubmissionDetail, error) {
	var items []models.SubmissionDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		if isMalformedID(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return items, nil
}

// Create inserts a submission. A repeated (assignment, student) pair yields ErrDuplicate.
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	if submission.SubmittedAt.IsZero() {
		submission.SubmittedAt = time.Now().UTC()
	}
	const query = `INSERT INTO submissions (id, assignment_id, student_id, submission_text, file_url, submitted_at, status) VALUES (:id, :assignment_id, :student_id, :submission_text, :file_url, :submitted_at, :status)`
	if _, err := r.db.NamedExecContext(ctx, query, submission); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// Grade stores points, feedback and grading metadata.
func (r *SubmissionRepository) Grade(ctx context.Context, submission *models.Submission) error {
	const query = `UPDATE submissions SET points = :points, feedback = :feedback, status = :status, graded_at = :graded_at, graded_by = :graded_by WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, submission)
	if err != nil {
		return fmt.Errorf("grade submission: %w", err)
	}
	return expectAffected(res, "grade submission")
}
