package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"course-ledger/internal/domain"
)

const (
	maxFailedAttempts = 5
	lockoutDuration   = 15 * time.Minute
)

type AuthUsers interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	RecordFailedAttempt(ctx context.Context, userID int64, attempts int, lockedUntil *time.Time) error
	MarkLoginSuccess(ctx context.Context, userID int64) error
	InsertToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) (int64, error)
}

type LoginResult struct {
	Token             string `json:"token"`
	UserID            int64  `json:"user_id"`
	Username          string `json:"username"`
	UserType          string `json:"user_type"`
	AttemptsRemaining int    `json:"-"`
}

type AuthService struct {
	users    AuthUsers
	tokenTTL time.Duration
	now      func() time.Time
}

func NewAuthService(users AuthUsers, tokenTTL time.Duration) *AuthService {
	return &AuthService{users: users, tokenTTL: tokenTTL, now: time.Now}
}

// Login verifies credentials and issues a bearer token. Five consecutive
// failures lock the account for fifteen minutes.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, classifyStoreError(err)
	}

	now := s.now()
	if user.LockedUntil != nil && now.Before(*user.LockedUntil) {
		return nil, fmt.Errorf("%w until %s", ErrAccountLocked, user.LockedUntil.Format("15:04:05"))
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		attempts := user.FailedAttempts + 1
		var lockedUntil *time.Time
		if attempts >= maxFailedAttempts {
			t := now.Add(lockoutDuration)
			lockedUntil = &t
		}
		if recErr := s.users.RecordFailedAttempt(ctx, user.ID, attempts, lockedUntil); recErr != nil {
			return nil, classifyStoreError(recErr)
		}
		remaining := maxFailedAttempts - attempts
		if remaining < 0 {
			remaining = 0
		}
		return &LoginResult{AttemptsRemaining: remaining}, ErrInvalidCredentials
	}

	if err := s.users.MarkLoginSuccess(ctx, user.ID); err != nil {
		return nil, classifyStoreError(err)
	}

	plain := uuid.NewString()
	if _, err := s.users.InsertToken(ctx, user.ID, HashToken(plain), now.Add(s.tokenTTL)); err != nil {
		return nil, classifyStoreError(err)
	}

	return &LoginResult{
		Token:    plain,
		UserID:   user.ID,
		Username: user.Username,
		UserType: user.UserType,
	}, nil
}

// HashToken is the at-rest form of a bearer token; the plain value is only
// ever returned once, at login.
func HashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return fmt.Sprintf("%x", sum)
}
