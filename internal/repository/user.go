package repository

import (
	"context"
	"database/sql"
	"time"

	"course-ledger/internal/domain"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	var lockedUntil, lastLogin sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, user_type, is_active, failed_attempts, locked_until, last_login
		FROM users
		WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.UserType, &u.IsActive, &u.FailedAttempts, &lockedUntil, &lastLogin)
	if err != nil {
		return nil, err
	}
	if lockedUntil.Valid {
		t := lockedUntil.Time
		u.LockedUntil = &t
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}

func (r *UserRepository) RecordFailedAttempt(ctx context.Context, userID int64, attempts int, lockedUntil *time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET failed_attempts = $1, locked_until = $2 WHERE id = $3`,
		attempts, lockedUntil, userID,
	)
	return err
}

func (r *UserRepository) MarkLoginSuccess(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET failed_attempts = 0, locked_until = NULL, last_login = CURRENT_TIMESTAMP WHERE id = $1`,
		userID,
	)
	return err
}

func (r *UserRepository) InsertToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO personal_access_tokens (user_id, token, expires_at) VALUES ($1, $2, $3) RETURNING id`,
		userID, tokenHash, expiresAt,
	).Scan(&id)
	return id, err
}

func (r *UserRepository) FindTokenByHash(ctx context.Context, tokenHash string) (*domain.AccessToken, error) {
	var tok domain.AccessToken
	var expiresAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, token, expires_at, created_at
		FROM personal_access_tokens
		WHERE token = $1
		ORDER BY created_at DESC
		LIMIT 1`,
		tokenHash,
	).Scan(&tok.ID, &tok.UserID, &tok.TokenHash, &expiresAt, &tok.CreatedAt)
	if err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		tok.ExpiresAt = &t
	}
	return &tok, nil
}
