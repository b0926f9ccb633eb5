package models

import "time"

const (
	RoleStudent = "student"
	RoleTutor   = "tutor"
	RoleParent  = "parent"
	RoleAdmin   = "admin"
)

type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	Phone        *string    `json:"phone,omitempty"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Role         string     `json:"role"`
	Language     string     `json:"language_preference"`
	Country      *string    `json:"country,omitempty"`
	City         *string    `json:"city,omitempty"`
	Timezone     string     `json:"timezone"`
	IsVerified   bool       `json:"is_verified"`
	IsActive     bool       `json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type PaginationMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func ValidRole(role string) bool {
	switch role {
	case RoleStudent, RoleTutor, RoleParent, RoleAdmin:
		return true
	default:
		return false
	}
}
