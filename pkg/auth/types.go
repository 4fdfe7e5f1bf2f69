package auth

import "time"

// Role represents a user's access level
type Role string

const (
	RoleUser  Role = "user"  // Regular trainee account
	RoleAdmin Role = "admin" // Can manage users and export progress data
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents an identity record
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// userRecord is the stored form of a User. PasswordHash is json:"-" on the
// public type so it can never leak through an API response; the store needs
// it, so the record carries it explicitly.
type userRecord struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"password_hash"`
	Role         Role       `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

func (r *userRecord) user() *User {
	return &User{
		ID:           r.ID,
		Email:        r.Email,
		Name:         r.Name,
		PasswordHash: r.PasswordHash,
		Role:         r.Role,
		CreatedAt:    r.CreatedAt,
		LastLogin:    r.LastLogin,
	}
}

// Session is the stored form of an authentication grant
type Session struct {
	UserID     string    `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	RememberMe bool      `json:"remember_me"`
}

// SessionInfo is the merged session-plus-user view returned by Validate
type SessionInfo struct {
	Token     string    `json:"-"`
	UserID    string    `json:"user_id"`
	UserEmail string    `json:"user_email"`
	UserName  string    `json:"user_name"`
	UserRole  Role      `json:"user_role"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsAdmin reports whether the session belongs to an admin user.
func (si *SessionInfo) IsAdmin() bool {
	return si.UserRole == RoleAdmin
}
