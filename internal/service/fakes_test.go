package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-management-api/internal/models"
	"github.com/noah-isme/course-management-api/internal/repository"
	appErrors "github.com/noah-isme/course-management-api/pkg/errors"
)

// memStore is a map backed stand-in for the postgres schema shared by the fakes below.
type memStore struct {
	seq           int
	users         map[string]*models.User
	refreshTokens map[string]*models.RefreshToken
	audits        []*models.AuditLog
	courses       map[string]*models.Course
	lessons       map[string]*models.Lesson
	enrollments   map[string]*models.Enrollment
	assignments   map[string]*models.Assignment
	submissions   map[string]*models.Submission
}

func newMemStore() *memStore {
	return &memStore{
		users:         map[string]*models.User{},
		refreshTokens: map[string]*models.RefreshToken{},
		courses:       map[string]*models.Course{},
		lessons:       map[string]*models.Lesson{},
		enrollments:   map[string]*models.Enrollment{},
		assignments:   map[string]*models.Assignment{},
		submissions:   map[string]*models.Submission{},
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%03d", prefix, m.seq)
}

func (m *memStore) addUser(role models.UserRole, email string) *models.User {
	u := &models.User{ID: m.nextID("user"), Email: email, FirstName: strings.Split(email, "@")[0], LastName: "Tester", Role: role, Active: true}
	m.users[u.ID] = u
	return u
}

func (m *memStore) addCourse(instructorID, title string, published bool) *models.Course {
	c := &models.Course{ID: m.nextID("course"), Title: title, InstructorID: instructorID, Published: published}
	m.courses[c.ID] = c
	return c
}

func (m *memStore) addLesson(courseID string, order int) *models.Lesson {
	l := &models.Lesson{ID: m.nextID("lesson"), Title: fmt.Sprintf("Lesson %d", order), CourseID: courseID, OrderNumber: order}
	m.lessons[l.ID] = l
	return l
}

func (m *memStore) addEnrollment(studentID, courseID string) *models.Enrollment {
	e := &models.Enrollment{ID: m.nextID("enrollment"), StudentID: studentID, CourseID: courseID, Status: models.EnrollmentStatusActive}
	m.enrollments[e.ID] = e
	return e
}

func (m *memStore) addAssignment(courseID string, maxPoints int, due *time.Time) *models.Assignment {
	a := &models.Assignment{ID: m.nextID("assignment"), Title: "Essay", CourseID: courseID, MaxPoints: maxPoints, DueDate: due}
	m.assignments[a.ID] = a
	return a
}

func (m *memStore) auditActions() []string {
	out := make([]string, 0, len(m.audits))
	for _, a := range m.audits {
		out = append(out, a.Action)
	}
	return out
}

func claimsFor(u *models.User) *models.JWTClaims {
	return &models.JWTClaims{UserID: u.ID, Role: u.Role, Email: u.Email}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func requireAppError(t *testing.T, err error, want *appErrors.Error, message string) {
	t.Helper()
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Equal(t, want.Code, appErr.Code, appErr.Message)
	if message != "" {
		require.Equal(t, message, appErr.Message)
	}
}

type userStore struct{ *memStore }

func (s userStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s userStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (s userStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := s.FindByEmail(ctx, email)
	return err == nil, nil
}

func (s userStore) Create(ctx context.Context, user *models.User) error {
	if ok, _ := s.ExistsByEmail(ctx, user.Email); ok {
		return repository.ErrDuplicate
	}
	if user.ID == "" {
		user.ID = s.nextID("user")
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s userStore) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	u, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.LastLogin = &ts
	return nil
}

func (s userStore) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	u, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = updatedAt
	return nil
}

func (s userStore) RevokeUserRefreshTokens(ctx context.Context, userID string, revokedAt time.Time) error {
	for _, t := range s.refreshTokens {
		if t.UserID == userID && !t.Revoked {
			t.Revoked = true
			at := revokedAt
			t.RevokedAt = &at
		}
	}
	return nil
}

func (s userStore) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	cp := *token
	s.refreshTokens[token.Token] = &cp
	return nil
}

func (s userStore) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	t, ok := s.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (s userStore) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, t := range s.refreshTokens {
		if t.ID == id {
			t.Revoked = true
			at := revokedAt
			t.RevokedAt = &at
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s userStore) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.audits = append(s.audits, log)
	return nil
}

func (s userStore) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var out []models.User
	for _, u := range s.sortedUsers() {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && u.Active != *filter.Active {
			continue
		}
		out = append(out, u)
	}
	total := len(out)
	start := (filter.Page - 1) * filter.PageSize
	if start > total {
		start = total
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}
	return out[start:end], total, nil
}

func (s userStore) ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error) {
	var out []models.User
	for _, u := range s.sortedUsers() {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s userStore) UpdateRole(ctx context.Context, id string, role models.UserRole, updatedAt time.Time) error {
	u, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Role = role
	u.UpdatedAt = updatedAt
	return nil
}

func (s userStore) SetActive(ctx context.Context, id string, active bool, updatedAt time.Time) error {
	u, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Active = active
	u.UpdatedAt = updatedAt
	return nil
}

func (s userStore) sortedUsers() []models.User {
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type courseStore struct{ *memStore }

func (s courseStore) FindByID(ctx context.Context, id string) (*models.Course, error) {
	c, ok := s.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (s courseStore) FindDetail(ctx context.Context, id string) (*models.CourseDetail, error) {
	c, ok := s.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	d := s.detail(*c)
	return &d, nil
}

func (s courseStore) detail(c models.Course) models.CourseDetail {
	d := models.CourseDetail{Course: c}
	if u, ok := s.users[c.InstructorID]; ok {
		d.InstructorEmail = u.Email
		d.InstructorFirstName = u.FirstName
		d.InstructorLastName = u.LastName
		d.InstructorRole = u.Role
		d.InstructorActive = u.Active
	}
	for _, e := range s.enrollments {
		if e.CourseID == c.ID {
			d.StudentCount++
		}
	}
	for _, l := range s.lessons {
		if l.CourseID == c.ID {
			d.LessonCount++
		}
	}
	return d
}

func (s courseStore) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	ids := make([]string, 0, len(s.courses))
	for id := range s.courses {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var out []models.CourseDetail
	for _, id := range ids {
		c := s.courses[id]
		if filter.InstructorID != "" && c.InstructorID != filter.InstructorID {
			continue
		}
		if filter.Published != nil && c.Published != *filter.Published {
			continue
		}
		if kw := strings.ToLower(filter.Keyword); kw != "" &&
			!strings.Contains(strings.ToLower(c.Title), kw) && !strings.Contains(strings.ToLower(c.Description), kw) {
			continue
		}
		out = append(out, s.detail(*c))
	}
	total := len(out)
	if filter.PageSize > 0 {
		start := (filter.Page - 1) * filter.PageSize
		if start > total {
			start = total
		}
		end := start + filter.PageSize
		if end > total {
			end = total
		}
		out = out[start:end]
	}
	return out, total, nil
}

func (s courseStore) ExistsByTitleAndInstructor(ctx context.Context, title, instructorID, excludeID string) (bool, error) {
	for _, c := range s.courses {
		if c.ID != excludeID && c.Title == title && c.InstructorID == instructorID {
			return true, nil
		}
	}
	return false, nil
}

func (s courseStore) Count(ctx context.Context) (int, error) {
	return len(s.courses), nil
}

func (s courseStore) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = s.nextID("course")
	}
	cp := *course
	s.courses[course.ID] = &cp
	return nil
}

func (s courseStore) Update(ctx context.Context, course *models.Course) error {
	if _, ok := s.courses[course.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *course
	s.courses[course.ID] = &cp
	return nil
}

func (s courseStore) SetPublished(ctx context.Context, id string, published bool, updatedAt time.Time) error {
	c, ok := s.courses[id]
	if !ok {
		return sql.ErrNoRows
	}
	c.Published = published
	c.UpdatedAt = updatedAt
	return nil
}

func (s courseStore) Delete(ctx context.Context, id string) error {
	if _, ok := s.courses[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.courses, id)
	for lid, l := range s.lessons {
		if l.CourseID == id {
			delete(s.lessons, lid)
		}
	}
	for eid, e := range s.enrollments {
		if e.CourseID == id {
			delete(s.enrollments, eid)
		}
	}
	return nil
}

type lessonStore struct{ *memStore }

func (s lessonStore) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	l, ok := s.lessons[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *l
	return &cp, nil
}

func (s lessonStore) FindByIDs(ctx context.Context, ids []string) ([]models.Lesson, error) {
	var out []models.Lesson
	for _, id := range ids {
		if l, ok := s.lessons[id]; ok {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (s lessonStore) ListByCourse(ctx context.Context, courseID string) ([]models.Lesson, error) {
	var out []models.Lesson
	for _, l := range s.lessons {
		if l.CourseID == courseID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNumber < out[j].OrderNumber })
	return out, nil
}

func (s lessonStore) ExistsByOrder(ctx context.Context, courseID string, order int, excludeID string) (bool, error) {
	for _, l := range s.lessons {
		if l.ID != excludeID && l.CourseID == courseID && l.OrderNumber == order {
			return true, nil
		}
	}
	return false, nil
}

func (s lessonStore) Create(ctx context.Context, lesson *models.Lesson) error {
	if lesson.ID == "" {
		lesson.ID = s.nextID("lesson")
	}
	cp := *lesson
	s.lessons[lesson.ID] = &cp
	return nil
}

func (s lessonStore) Update(ctx context.Context, lesson *models.Lesson) error {
	if _, ok := s.lessons[lesson.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *lesson
	s.lessons[lesson.ID] = &cp
	return nil
}

func (s lessonStore) Delete(ctx context.Context, id string) error {
	if _, ok := s.lessons[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.lessons, id)
	return nil
}

// Reorder mimics the deferred unique constraint: collisions left at commit abort the whole batch.
func (s lessonStore) Reorder(ctx context.Context, courseID string, ids []string, updatedAt time.Time) error {
	next := map[string]int{}
	for _, l := range s.lessons {
		if l.CourseID == courseID {
			next[l.ID] = l.OrderNumber
		}
	}
	for i, id := range ids {
		next[id] = i + 1
	}
	seen := map[int]bool{}
	for _, order := range next {
		if seen[order] {
			return repository.ErrDuplicate
		}
		seen[order] = true
	}
	for i, id := range ids {
		s.lessons[id].OrderNumber = i + 1
		s.lessons[id].UpdatedAt = updatedAt
	}
	return nil
}

type enrollmentStore struct{ *memStore }

func (s enrollmentStore) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	e, ok := s.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (s enrollmentStore) Exists(ctx context.Context, studentID, courseID string) (bool, error) {
	for _, e := range s.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (s enrollmentStore) filter(keep func(models.Enrollment) bool) []models.Enrollment {
	var out []models.Enrollment
	for _, e := range s.enrollments {
		if keep(*e) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s enrollmentStore) List(ctx context.Context) ([]models.Enrollment, error) {
	return s.filter(func(models.Enrollment) bool { return true }), nil
}

func (s enrollmentStore) ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	return s.filter(func(e models.Enrollment) bool { return e.StudentID == studentID }), nil
}

func (s enrollmentStore) ListByCourse(ctx context.Context, courseID string) ([]models.Enrollment, error) {
	return s.filter(func(e models.Enrollment) bool { return e.CourseID == courseID }), nil
}

func (s enrollmentStore) ListRoster(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error) {
	var out []models.EnrollmentDetail
	for _, e := range s.filter(func(e models.Enrollment) bool { return e.CourseID == courseID }) {
		u := s.users[e.StudentID]
		out = append(out, models.EnrollmentDetail{Enrollment: e, StudentEmail: u.Email, StudentFirstName: u.FirstName, StudentLastName: u.LastName})
	}
	return out, nil
}

func (s enrollmentStore) CountByCourse(ctx context.Context, courseID string) (int, error) {
	return len(s.filter(func(e models.Enrollment) bool { return e.CourseID == courseID })), nil
}

func (s enrollmentStore) CountByStudent(ctx context.Context, studentID string) (int, error) {
	return len(s.filter(func(e models.Enrollment) bool { return e.StudentID == studentID })), nil
}

func (s enrollmentStore) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if ok, _ := s.Exists(ctx, enrollment.StudentID, enrollment.CourseID); ok {
		return repository.ErrDuplicate
	}
	if enrollment.ID == "" {
		enrollment.ID = s.nextID("enrollment")
	}
	cp := *enrollment
	s.enrollments[enrollment.ID] = &cp
	return nil
}

func (s enrollmentStore) UpdateProgress(ctx context.Context, enrollment *models.Enrollment) error {
	e, ok := s.enrollments[enrollment.ID]
	if !ok {
		return sql.ErrNoRows
	}
	e.Progress = enrollment.Progress
	e.Status = enrollment.Status
	return nil
}

func (s enrollmentStore) Delete(ctx context.Context, id string) error {
	if _, ok := s.enrollments[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.enrollments, id)
	return nil
}

type assignmentStore struct{ *memStore }

func (s assignmentStore) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	a, ok := s.assignments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (s assignmentStore) FindDetail(ctx context.Context, id string) (*models.AssignmentDetail, error) {
	a, ok := s.assignments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	d := s.detail(*a)
	return &d, nil
}

func (s assignmentStore) detail(a models.Assignment) models.AssignmentDetail {
	d := models.AssignmentDetail{Assignment: a}
	for _, sub := range s.submissions {
		if sub.AssignmentID == a.ID {
			d.SubmissionCount++
		}
	}
	return d
}

func (s assignmentStore) filter(keep func(models.Assignment) bool) []models.AssignmentDetail {
	var out []models.AssignmentDetail
	for _, a := range s.assignments {
		if keep(*a) {
			out = append(out, s.detail(*a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s assignmentStore) enrolled(studentID, courseID string) bool {
	ok, _ := enrollmentStore(s).Exists(context.Background(), studentID, courseID)
	return ok
}

func (s assignmentStore) submitted(studentID, assignmentID string) bool {
	for _, sub := range s.submissions {
		if sub.StudentID == studentID && sub.AssignmentID == assignmentID {
			return true
		}
	}
	return false
}

func (s assignmentStore) List(ctx context.Context) ([]models.AssignmentDetail, error) {
	return s.filter(func(models.Assignment) bool { return true }), nil
}

func (s assignmentStore) ListByCourse(ctx context.Context, courseID string) ([]models.AssignmentDetail, error) {
	return s.filter(func(a models.Assignment) bool { return a.CourseID == courseID }), nil
}

func (s assignmentStore) ListForStudent(ctx context.Context, studentID string) ([]models.AssignmentDetail, error) {
	return s.filter(func(a models.Assignment) bool { return s.enrolled(studentID, a.CourseID) }), nil
}

func (s assignmentStore) ListOverdueForStudent(ctx context.Context, studentID string, now time.Time) ([]models.AssignmentDetail, error) {
	return s.filter(func(a models.Assignment) bool {
		return s.enrolled(studentID, a.CourseID) && a.PastDue(now) && !s.submitted(studentID, a.ID)
	}), nil
}

func (s assignmentStore) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = s.nextID("assignment")
	}
	cp := *assignment
	s.assignments[assignment.ID] = &cp
	return nil
}

func (s assignmentStore) Update(ctx context.Context, assignment *models.Assignment) error {
	if _, ok := s.assignments[assignment.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *assignment
	s.assignments[assignment.ID] = &cp
	return nil
}

func (s assignmentStore) Delete(ctx context.Context, id string) error {
	if _, ok := s.assignments[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.assignments, id)
	for sid, sub := range s.submissions {
		if sub.AssignmentID == id {
			delete(s.submissions, sid)
		}
	}
	return nil
}

type submissionStore struct{ *memStore }

func (s submissionStore) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	sub, ok := s.submissions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *sub
	return &cp, nil
}

func (s submissionStore) detail(sub models.Submission) models.SubmissionDetail {
	d := models.SubmissionDetail{Submission: sub}
	if u, ok := s.users[sub.StudentID]; ok {
		d.StudentEmail = u.Email
		d.StudentFirstName = u.FirstName
		d.StudentLastName = u.LastName
		d.StudentRole = u.Role
		d.StudentActive = u.Active
	}
	if a, ok := s.assignments[sub.AssignmentID]; ok {
		d.MaxPoints = a.MaxPoints
		d.AssignmentTitle = a.Title
	}
	return d
}

func (s submissionStore) FindDetail(ctx context.Context, id string) (*models.SubmissionDetail, error) {
	sub, ok := s.submissions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	d := s.detail(*sub)
	return &d, nil
}

func (s submissionStore) FindByAssignmentAndStudent(ctx context.Context, assignmentID, studentID string) (*models.SubmissionDetail, error) {
	for _, sub := range s.submissions {
		if sub.AssignmentID == assignmentID && sub.StudentID == studentID {
			d := s.detail(*sub)
			return &d, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s submissionStore) Exists(ctx context.Context, assignmentID, studentID string) (bool, error) {
	_, err := s.FindByAssignmentAndStudent(ctx, assignmentID, studentID)
	return err == nil, nil
}

func (s submissionStore) filter(keep func(models.Submission) bool) []models.SubmissionDetail {
	var out []models.SubmissionDetail
	for _, sub := range s.submissions {
		if keep(*sub) {
			out = append(out, s.detail(*sub))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s submissionStore) ListByStudent(ctx context.Context, studentID string) ([]models.SubmissionDetail, error) {
	return s.filter(func(sub models.Submission) bool { return sub.StudentID == studentID }), nil
}

func (s submissionStore) ListByAssignment(ctx context.Context, assignmentID string) ([]models.SubmissionDetail, error) {
	return s.filter(func(sub models.Submission) bool { return sub.AssignmentID == assignmentID }), nil
}

func (s submissionStore) Create(ctx context.Context, submission *models.Submission) error {
	if ok, _ := s.Exists(ctx, submission.AssignmentID, submission.StudentID); ok {
		return repository.ErrDuplicate
	}
	if submission.ID == "" {
		submission.ID = s.nextID("submission")
	}
	cp := *submission
	s.submissions[submission.ID] = &cp
	return nil
}

func (s submissionStore) Grade(ctx context.Context, submission *models.Submission) error {
	if _, ok := s.submissions[submission.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *submission
	s.submissions[submission.ID] = &cp
	return nil
}

type recordingNotifier struct {
	enrolled []string
	graded   []string
}

func (n *recordingNotifier) EnrollmentConfirmed(ctx context.Context, student models.User, course models.Course) {
	n.enrolled = append(n.enrolled, student.ID+":"+course.ID)
}

func (n *recordingNotifier) SubmissionGraded(ctx context.Context, student models.User, assignment models.Assignment, submission models.Submission) {
	n.graded = append(n.graded, submission.ID)
}

type countingRecorder struct {
	enrollments map[models.EnrollmentStatus]int
	submissions int
	grades      int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{enrollments: map[models.EnrollmentStatus]int{}}
}

func (r *countingRecorder) RecordEnrollment(status models.EnrollmentStatus) { r.enrollments[status]++ }
func (r *countingRecorder) RecordSubmission()                               { r.submissions++ }
func (r *countingRecorder) RecordGrade()                                    { r.grades++ }
