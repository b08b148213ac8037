package service

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/course-management-api/internal/dto"
	"github.com/noah-isme/course-management-api/internal/models"
	"github.com/noah-isme/course-management-api/internal/repository"
	appErrors "github.com/noah-isme/course-management-api/pkg/errors"
)

func newCourseFixture() (*CourseService, *memStore) {
	store := newMemStore()
	return NewCourseService(courseStore{store}, userStore{store}, userStore{store}, nil, zap.NewNop()), store
}

func TestCourseServiceCreate(t *testing.T) {
	svc, store := newCourseFixture()
	instructor := store.addUser(models.RoleInstructor, "i@example.com")
	ctx := context.Background()

	resp, err := svc.Create(ctx, claimsFor(instructor), dto.CourseRequest{Title: " Go 101 ", Price: 49.5})
	require.NoError(t, err)
	assert.Equal(t, "Go 101", resp.Title)
	require.NotNil(t, resp.Instructor)
	assert.Equal(t, instructor.ID, resp.Instructor.ID)
	assert.Equal(t, 0, resp.StudentCount)
	assert.Contains(t, store.auditActions(), models.AuditActionCourseCreate)

	_, err = svc.Create(ctx, claimsFor(instructor), dto.CourseRequest{Title: "Go 101"})
	requireAppError(t, err, appErrors.ErrInvalidOperation, "Course with this title already exists for this instructor")

	_, err = svc.Create(ctx, claimsFor(instructor), dto.CourseRequest{Title: "Bad price", Price: -1})
	requireAppError(t, err, appErrors.ErrValidation, "")
}

func TestCourseServiceCreateInstructorRules(t *testing.T) {
	svc, store := newCourseFixture()
	admin := store.addUser(models.RoleAdmin, "admin@example.com")
	instructor := store.addUser(models.RoleInstructor, "i@example.com")
	other := store.addUser(models.RoleInstructor, "other@example.com")
	student := store.addUser(models.RoleStudent, "s@example.com")
	ctx := context.Background()

	_, err := svc.Create(ctx, claimsFor(instructor), dto.CourseRequest{Title: "Stolen", InstructorID: other.ID})
	requireAppError(t, err, appErrors.ErrForbidden, "")

	_, err = svc.Create(ctx, claimsFor(admin), dto.CourseRequest{Title: "Nobody", InstructorID: "missing"})
	requireAppError(t, err, appErrors.ErrNotFound, "Instructor not found")

	_, err = svc.Create(ctx, claimsFor(admin), dto.CourseRequest{Title: "Student led", InstructorID: student.ID})
	requireAppError(t, err, appErrors.ErrInvalidOperation, "User is not an instructor")

	_, err = svc.Create(ctx, claimsFor(student), dto.CourseRequest{Title: "Nope", InstructorID: student.ID})
	requireAppError(t, err, appErrors.ErrForbidden, "")

	resp, err := svc.Create(ctx, claimsFor(admin), dto.CourseRequest{Title: "Assigned", InstructorID: other.ID})
	require.NoError(t, err)
	assert.Equal(t, other.ID, resp.Instructor.ID)
}

func TestCourseServiceUpdate(t *testing.T) {
	svc, store := newCourseFixture()
	instructor := store.addUser(models.RoleInstructor, "i@example.com")
	other := store.addUser(models.RoleInstructor, "other@example.com")
	first := store.addCourse(instructor.ID, "First", false)
	store.addCourse(instructor.ID, "Second", false)
	ctx := context.Background()

	resp, err := svc.Update(ctx, claimsFor(instructor), first.ID, dto.CourseRequest{Title: "First", Description: "same title is fine", Price: 10})
	require.NoError(t, err)
	assert.Equal(t, "same title is fine", resp.Description)

	_, err = svc.Update(ctx, claimsFor(instructor), first.ID, dto.CourseRequest{Title: "Second"})
	requireAppError(t, err, appErrors.ErrInvalidOperation, "Course with this title already exists for this instructor")

	_, err = svc.Update(ctx, claimsFor(other), first.ID, dto.CourseRequest{Title: "Mine now"})
	requireAppError(t, err, appErrors.ErrForbidden, "")

	_, err = svc.Update(ctx, claimsFor(instructor), "missing", dto.CourseRequest{Title: "x"})
	requireAppError(t, err, appErrors.ErrNotFound, "Course not found")
}

func TestCourseServicePublishAndVisibility(t *testing.T) {
	svc, store := newCourseFixture()
	instructor := store.addUser(models.RoleInstructor, "i@example.com")
	student := store.addUser(models.RoleStudent, "s@example.com")
	draft := store.addCourse(instructor.ID, "Draft Go", false)
	store.addCourse(instructor.ID, "Live Go", true)
	ctx := context.Background()

	found, err := svc.Search(ctx, claimsFor(student), "go")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Live Go", found[0].Title)

	found, err = svc.Search(ctx, claimsFor(instructor), "GO")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	resp, err := svc.Publish(ctx, claimsFor(instructor), draft.ID)
	require.NoError(t, err)
	assert.True(t, resp.IsPublished)

	published, err := svc.ListPublished(ctx, claimsFor(student))
	require.NoError(t, err)
	assert.Len(t, published, 2)

	resp, err = svc.Unpublish(ctx, claimsFor(instructor), draft.ID)
	require.NoError(t, err)
	assert.False(t, resp.IsPublished)

	page, err := svc.List(ctx, claimsFor(student), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.TotalCount)

	mine, err := svc.ListMine(ctx, claimsFor(instructor))
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	total, err := svc.Count(ctx, claimsFor(student))
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestCourseServiceDeleteCascades(t *testing.T) {
	svc, store := newCourseFixture()
	instructor := store.addUser(models.RoleInstructor, "i@example.com")
	student := store.addUser(models.RoleStudent, "s@example.com")
	course := store.addCourse(instructor.ID, "Doomed", true)
	store.addLesson(course.ID, 1)
	store.addEnrollment(student.ID, course.ID)
	ctx := context.Background()

	detail, err := svc.Get(ctx, claimsFor(student), course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, detail.StudentCount)
	assert.Equal(t, 1, detail.LessonCount)

	require.NoError(t, svc.Delete(ctx, claimsFor(instructor), course.ID))
	assert.Empty(t, store.lessons)
	assert.Empty(t, store.enrollments)

	_, err = svc.Get(ctx, claimsFor(student), course.ID)
	requireAppError(t, err, appErrors.ErrNotFound, "Course not found")
}

func TestCourseServiceGetMalformedIDIsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery("WHERE c.id = \\$1").WithArgs("not-a-uuid").
		WillReturnError(&pq.Error{Code: "22P02", Message: "invalid input syntax for type uuid"})

	store := newMemStore()
	courses := repository.NewCourseRepository(sqlx.NewDb(db, "sqlmock"))
	svc := NewCourseService(courses, userStore{store}, nil, nil, zap.NewNop())
	student := store.addUser(models.RoleStudent, "s@example.com")

	_, err = svc.Get(context.Background(), claimsFor(student), "not-a-uuid")
	requireAppError(t, err, appErrors.ErrNotFound, "Course not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}
