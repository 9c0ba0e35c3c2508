package models

import "time"

// Role represents a user role
type Role string

const (
	RoleAdmin Role = "admin"
)

// User is an API user. The service is effectively single-user: the only row
// is the admin bootstrapped from configuration at startup.
type User struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// LoginRequest is the payload for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
