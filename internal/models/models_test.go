package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseUserRole(t *testing.T) {
	role, ok := ParseUserRole(" instructor ")
	assert.True(t, ok)
	assert.Equal(t, RoleInstructor, role)

	_, ok = ParseUserRole("SUPERADMIN")
	assert.False(t, ok)
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(0, 500, 45)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultPageSize, p.PageSize)
	assert.Equal(t, 3, p.TotalPages)

	assert.Equal(t, 0, NewPagination(1, 10, 0).TotalPages)
}

func TestAssignmentPastDue(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	due := now.Add(-time.Minute)

	assert.True(t, Assignment{DueDate: &due}.PastDue(now))
	assert.False(t, Assignment{DueDate: &due}.PastDue(due))
	assert.False(t, Assignment{}.PastDue(now))
}

func TestClaimsHasRole(t *testing.T) {
	var nilClaims *JWTClaims
	assert.False(t, nilClaims.HasRole(RoleAdmin))
	claims := &JWTClaims{Role: RoleInstructor}
	assert.True(t, claims.HasRole(RoleAdmin, RoleInstructor))
	assert.False(t, claims.HasRole(RoleStudent))
}

func TestRefreshTokenUsable(t *testing.T) {
	now := time.Now()
	assert.True(t, RefreshToken{ExpiresAt: now.Add(time.Hour)}.Usable(now))
	assert.False(t, RefreshToken{ExpiresAt: now.Add(time.Hour), Revoked: true}.Usable(now))
	assert.False(t, RefreshToken{ExpiresAt: now}.Usable(now))
}

func TestCourseDetailInstructor(t *testing.T) {
	d := CourseDetail{Course: Course{InstructorID: "u-1"}, InstructorEmail: "i@example.com", InstructorRole: RoleInstructor}
	u := d.Instructor()
	assert.Equal(t, "u-1", u.ID)
	assert.Equal(t, "i@example.com", u.Email)
	assert.Equal(t, RoleInstructor, u.Role)
}
