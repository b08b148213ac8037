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

const lessonColumns = `id, title, content, video_url, course_id, order_number, created_at, updated_at`

// LessonRepository persists lessons.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository constructs a LessonRepository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// FindByID returns a lesson.
func (r *LessonRepository) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE id = $1`
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isMalformedID(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find lesson: %w", err)
	}
	return &lesson, nil
}

// FindByIDs returns the lessons among ids that exist, in no particular order.
func (r *LessonRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Lesson, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT `+lessonColumns+` FROM lessons WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build lesson lookup: %w", err)
	}
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, r.db.Rebind(query), args...); err != nil {
		if isMalformedID(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find lessons: %w", err)
	}
	return lessons, nil
}

// ListByCourse returns a course's lessons by order number.
func (r *LessonRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE course_id = $1 ORDER BY order_number`
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, courseID); err != nil {
		if isMalformedID(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return lessons, nil
}

// ExistsByOrder reports whether order is taken in the course by a lesson other than excludeID.
func (r *LessonRepository) ExistsByOrder(ctx context.Context, courseID string, order int, excludeID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM lessons WHERE course_id = $1 AND order_number = $2 AND ($3 = '' OR id::text <> $3))`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, courseID, order, excludeID); err != nil {
		if isMalformedID(err) {
			return false, nil
		}
		return false, fmt.Errorf("check lesson order: %w", err)
	}
	return exists, nil
}

// Create inserts a lesson. A taken order number yields ErrDuplicate.
func (r *LessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = time.Now().UTC()
	}
	lesson.UpdatedAt = lesson.CreatedAt

	const query = `INSERT INTO lessons (id, title, content, video_url, course_id, order_number, created_at, updated_at) VALUES (:id, :title, :content, :video_url, :course_id, :order_number, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lesson); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create lesson: %w", err)
	}
	return nil
}

// Update rewrites a lesson's fields.
func (r *LessonRepository) Update(ctx context.Context, lesson *models.Lesson) error {
	if lesson.UpdatedAt.IsZero() {
		lesson.UpdatedAt = time.Now().UTC()
	}
	const query = `UPDATE lessons SET title = :title, content = :content, video_url = :video_url, course_id = :course_id, order_number = :order_number, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, lesson)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update lesson: %w", err)
	}
	return expectAffected(res, "update lesson")
}

// Delete removes a lesson.
func (r *LessonRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM lessons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	return expectAffected(res, "delete lesson")
}

// Reorder assigns order numbers 1..N following ids in one transaction.
// The (course_id, order_number) constraint is deferred, so intermediate collisions are fine.
func (r *LessonRepository) Reorder(ctx context.Context, courseID string, ids []string, updatedAt time.Time) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reorder tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `UPDATE lessons SET order_number = $1, updated_at = $2 WHERE id = $3 AND course_id = $4`
	for i, id := range ids {
		res, execErr := tx.ExecContext(ctx, query, i+1, updatedAt, id, courseID)
		if execErr != nil {
			return fmt.Errorf("reorder lesson %s: %w", id, execErr)
		}
		if err = expectAffected(res, "reorder lesson"); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("commit reorder: %w", err)
	}
	return nil
}
