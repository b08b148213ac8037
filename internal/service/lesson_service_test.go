package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/course-management-api/internal/dto"
	"github.com/noah-isme/course-management-api/internal/models"
	appErrors "github.com/noah-isme/course-management-api/pkg/errors"
)

func newLessonFixture() (*LessonService, *memStore) {
	store := newMemStore()
	return NewLessonService(lessonStore{store}, courseStore{store}, userStore{store}, nil, zap.NewNop()), store
}

func TestLessonServiceCreateOrderCollision(t *testing.T) {
	svc, store := newLessonFixture()
	instructor := store.addUser(models.RoleInstructor, "i@example.com")
	course := store.addCourse(instructor.ID, "Go", false)
	ctx := context.Background()

	resp, err := svc.Create(ctx, claimsFor(instructor), dto.LessonRequest{Title: "Intro", CourseID: course.ID, OrderNumber: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.OrderNumber)

	_, err = svc.Create(ctx, claimsFor(instructor), dto.LessonRequest{Title: "Again", CourseID: course.ID, OrderNumber: 1})
	requireAppError(t, err, appErrors.ErrInvalidOperation, "Lesson with order number 1 already exists in this course")

	_, err = svc.Create(ctx, claimsFor(instructor), dto.LessonRequest{Title: "Zero", CourseID: course.ID, OrderNumber: 0})
	requireAppError(t, err, appErrors.ErrValidation, "")

	_, err = svc.Create(ctx, claimsFor(instructor), dto.LessonRequest{Title: "Lost", CourseID: "missing", OrderNumber: 2})
	requireAppError(t, err, appErrors.ErrNotFound, "Course not found")
}

func TestLessonServiceUpdateMovesBetweenCourses(t *testing.T) {
	svc, store := newLessonFixture()
	instructor := store.addUser(models.RoleInstructor, "i@example.com")
	source := store.addCourse(instructor.ID, "Source", false)
	target := store.addCourse(instructor.ID, "Target", false)
	lesson := store.addLesson(source.ID, 1)
	store.addLesson(target.ID, 1)
	ctx := context.Background()

	_, err := svc.Update(ctx, claimsFor(instructor), lesson.ID, dto.LessonRequest{Title: "Moved", CourseID: target.ID, OrderNumber: 1})
	requireAppError(t, err, appErrors.ErrInvalidOperation, "Lesson with order number 1 already exists in this course")

	resp, err := svc.Update(ctx, claimsFor(instructor), lesson.ID, dto.LessonRequest{Title: "Moved", CourseID: target.ID, OrderNumber: 2})
	require.NoError(t, err)
	assert.Equal(t, target.ID, resp.CourseID)

	resp, err = svc.Update(ctx, claimsFor(instructor), lesson.ID, dto.LessonRequest{Title: "Renamed", CourseID: target.ID, OrderNumber: 2})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", resp.Title)
}

func TestLessonServiceReorder(t *testing.T) {
	svc, store := newLessonFixture()
	instructor := store.addUser(models.RoleInstructor, "i@example.com")
	course := store.addCourse(instructor.ID, "Go", false)
	l1 := store.addLesson(course.ID, 1)
	l2 := store.addLesson(course.ID, 2)
	l3 := store.addLesson(course.ID, 3)
	ctx := context.Background()

	ordered, err := svc.Reorder(ctx, claimsFor(instructor), course.ID, []string{l3.ID, l1.ID, l2.ID})
	require.NoError(t, err)
	require.Len(t, ordered, 3)
	assert.Equal(t, []string{l3.ID, l1.ID, l2.ID}, []string{ordered[0].ID, ordered[1].ID, ordered[2].ID})
	assert.Equal(t, []int{1, 2, 3}, []int{ordered[0].OrderNumber, ordered[1].OrderNumber, ordered[2].OrderNumber})
	assert.Equal(t, 1, store.lessons[l3.ID].OrderNumber)
	assert.Contains(t, store.auditActions(), models.AuditActionLessonReorder)
}

func TestLessonServiceReorderFailures(t *testing.T) {
	svc, store := newLessonFixture()
	instructor := store.addUser(models.RoleInstructor, "i@example.com")
	other := store.addUser(models.RoleInstructor, "other@example.com")
	course := store.addCourse(instructor.ID, "Go", false)
	elsewhere := store.addCourse(instructor.ID, "Rust", false)
	l1 := store.addLesson(course.ID, 1)
	l2 := store.addLesson(course.ID, 2)
	foreign := store.addLesson(elsewhere.ID, 1)
	ctx := context.Background()
	actor := claimsFor(instructor)

	_, err := svc.Reorder(ctx, actor, course.ID, []string{l1.ID, foreign.ID})
	requireAppError(t, err, appErrors.ErrInvalidOperation, fmt.Sprintf("Lesson %s does not belong to course %s", foreign.ID, course.ID))

	_, err = svc.Reorder(ctx, actor, course.ID, []string{l1.ID, "missing"})
	requireAppError(t, err, appErrors.ErrNotFound, "Lesson missing not found")

	_, err = svc.Reorder(ctx, actor, course.ID, []string{l1.ID, "not-a-uuid"})
	requireAppError(t, err, appErrors.ErrNotFound, "Lesson not-a-uuid not found")

	_, err = svc.Reorder(ctx, actor, course.ID, []string{l1.ID, l1.ID})
	requireAppError(t, err, appErrors.ErrInvalidOperation, fmt.Sprintf("Lesson %s is listed more than once", l1.ID))

	_, err = svc.Reorder(ctx, actor, course.ID, []string{l2.ID})
	requireAppError(t, err, appErrors.ErrInvalidOperation, "Reorder must include every lesson of the course")
	assert.Equal(t, 1, store.lessons[l1.ID].OrderNumber)
	assert.Equal(t, 2, store.lessons[l2.ID].OrderNumber)

	_, err = svc.Reorder(ctx, actor, "missing", []string{l1.ID})
	requireAppError(t, err, appErrors.ErrNotFound, "Course not found")

	_, err = svc.Reorder(ctx, claimsFor(other), course.ID, []string{l2.ID, l1.ID})
	requireAppError(t, err, appErrors.ErrForbidden, "")

	_, err = svc.Reorder(ctx, actor, course.ID, nil)
	requireAppError(t, err, appErrors.ErrValidation, "")
}

func TestLessonServiceListByCourse(t *testing.T) {
	svc, store := newLessonFixture()
	instructor := store.addUser(models.RoleInstructor, "i@example.com")
	student := store.addUser(models.RoleStudent, "s@example.com")
	course := store.addCourse(instructor.ID, "Go", true)
	store.addLesson(course.ID, 2)
	store.addLesson(course.ID, 1)
	ctx := context.Background()

	lessons, err := svc.ListByCourse(ctx, claimsFor(student), course.ID)
	require.NoError(t, err)
	require.Len(t, lessons, 2)
	assert.Equal(t, 1, lessons[0].OrderNumber)

	_, err = svc.ListByCourse(ctx, claimsFor(student), "missing")
	requireAppError(t, err, appErrors.ErrNotFound, "Course not found")

	require.NoError(t, svc.Delete(ctx, claimsFor(instructor), lessons[0].ID))
	_, err = svc.Get(ctx, claimsFor(student), lessons[0].ID)
	requireAppError(t, err, appErrors.ErrNotFound, "Lesson not found")
}
