package dto

import (
	"time"

	"github.com/noah-isme/course-management-api/internal/models"
)

// UserResponse is the public projection of a user.
type UserResponse struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	FirstName string          `json:"firstName"`
	LastName  string          `json:"lastName"`
	Role      models.UserRole `json:"role"`
	IsActive  bool            `json:"isActive"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// UserPage is a page of users.
type UserPage struct {
	Items      []UserResponse     `json:"items"`
	Pagination *models.Pagination `json:"pagination"`
}

// UpdateRoleRequest changes a user's role.
type UpdateRoleRequest struct {
	Role models.UserRole `json:"role" form:"role" validate:"required,oneof=STUDENT INSTRUCTOR ADMIN"`
}

// UpdateStatusRequest activates or deactivates an account.
type UpdateStatusRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// UserListQuery carries /users query parameters.
type UserListQuery struct {
	Role      string `form:"role"`
	Active    *bool  `form:"active"`
	Search    string `form:"search"`
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder"`
}

func NewUserResponse(u models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		IsActive:  u.Active,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func NewUserResponses(users []models.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, NewUserResponse(u))
	}
	return out
}

// ToFilter converts the query to a repository filter. An unknown role is rejected.
func (q UserListQuery) ToFilter() (models.UserFilter, bool) {
	filter := models.UserFilter{
		Active:    q.Active,
		Search:    q.Search,
		Page:      q.Page,
		PageSize:  q.PageSize,
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
	}
	if q.Role != "" {
		role, ok := models.ParseUserRole(q.Role)
		if !ok {
			return filter, false
		}
		filter.Role = &role
	}
	return filter, true
}
