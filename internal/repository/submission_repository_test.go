package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-management-api/internal/models"
)

var submissionDetailColumns = []string{
	"id", "assignment_id", "student_id", "submission_text", "file_url", "submitted_at",
	"points", "feedback", "status", "graded_at", "graded_by",
	"student_email", "student_first_name", "student_last_name", "student_role", "student_active", "max_points", "assignment_title",
}

func TestSubmissionRepositoryListByAssignment(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(submissionDetailColumns).
		AddRow("sub-1", "a-1", "s-1", "answer", "", now, 8, "good", "GRADED", now, "i-1", "s@example.com", "Grace", "Hopper", "STUDENT", true, 10, "HW").
		AddRow("sub-2", "a-1", "s-2", "answer", "", now, nil, nil, "SUBMITTED", nil, nil, "t@example.com", "Alan", "Turing", "STUDENT", false, 10, "HW")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.assignment_id = $1 ORDER BY u.last_name, u.first_name")).WithArgs("a-1").WillReturnRows(rows)

	items, err := repo.ListByAssignment(context.Background(), "a-1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.NotNil(t, items[0].Points)
	assert.Equal(t, 8, *items[0].Points)
	assert.Nil(t, items[1].Points)
	assert.Equal(t, models.SubmissionStatusSubmitted, items[1].Status)
	assert.True(t, items[0].StudentActive)
	assert.False(t, items[1].StudentActive)
	assert.Equal(t, models.RoleStudent, items[1].StudentRole)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectExec("INSERT INTO submissions").WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Submission{AssignmentID: "a-1", StudentID: "s-1", Status: models.SubmissionStatusSubmitted})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryGrade(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	points := 10
	feedback := "great"
	now := time.Now()
	grader := "i-1"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions SET points = ?, feedback = ?, status = ?, graded_at = ?, graded_by = ? WHERE id = ?")).
		WithArgs(points, feedback, models.SubmissionStatusGraded, now, grader, "sub-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Grade(context.Background(), &models.Submission{
		ID: "sub-1", Points: &points, Feedback: &feedback, Status: models.SubmissionStatusGraded, GradedAt: &now, GradedBy: &grader,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
