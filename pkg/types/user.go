package types

import "time"

type UserRole string

const (
	UserRoleDoctor UserRole = "doctor"
	UserRoleLab    UserRole = "lab"
)

type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	FullName     string    `db:"full_name" json:"fullName"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         UserRole  `db:"role" json:"role"`
	IsAdmin      bool      `db:"is_admin" json:"isAdmin"`
	IsActive     bool      `db:"is_active" json:"isActive"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// Actor is the authenticated identity attached to a request context.
// It carries only what authorization decisions need.
type Actor struct {
	ID      string
	IsAdmin bool
}

type CreateUserInput struct {
	Email    string   `json:"email" validate:"required,email"`
	FullName string   `json:"fullName" validate:"required,min=2"`
	Role     UserRole `json:"role" validate:"omitempty,oneof=doctor lab"`
}

type UserListParams struct {
	Email    string `form:"email"`
	IsActive *bool  `form:"isActive"`
	Page     uint64 `form:"page"`
	Limit    uint64 `form:"limit"`
}
