package domain

import "time"

type User struct {
	ID             int64
	Username       string
	PasswordHash   string
	UserType       string
	IsActive       bool
	FailedAttempts int
	LockedUntil    *time.Time
	LastLogin      *time.Time
}

// AccessToken is stored hashed; the plain token is returned once at login.
type AccessToken struct {
	ID        int64
	UserID    int64
	TokenHash string
	ExpiresAt *time.Time
	CreatedAt time.Time
}
