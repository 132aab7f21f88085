// Package models - user.go defines the User model for travel-journal accounts with
// credentials, role, activity flag, and the login-lockout bookkeeping fields.
package models

import "time"

// Role values assignable to a user account.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a registered account
type User struct {
	ID                  string
	Username            string
	Email               string
	PasswordHash        string
	Role                string
	IsActive            bool
	FailedLoginAttempts int
	LockedUntil         *time.Time
	CreatedAt           time.Time
	LastLogin           *time.Time
}

// IsAdmin returns true if the user holds the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsLocked returns true if the account is currently inside a lockout window
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// UserProfile is the public view of a user with follow-graph aggregates
type UserProfile struct {
	ID             string     `json:"id"`
	Username       string     `json:"username"`
	CreatedAt      time.Time  `json:"created_at"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
	PostCount      int        `json:"post_count"`
	FollowerCount  int        `json:"follower_count"`
	FollowingCount int        `json:"following_count"`
}

// UserSummary is the compact user representation used in follow lists and suggestions
type UserSummary struct {
	ID       string `json:"id" db:"id"`
	Username string `json:"username" db:"username"`
}
