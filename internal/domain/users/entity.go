package users

import "time"

// UserID identifier type
type UserID string

// Role enum
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User is an account able to upload content and ask questions.
type User struct {
	ID           UserID    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Principal is the authenticated identity carried on a request.
type Principal struct {
	UserID UserID
	Email  string
	Role   Role
}
