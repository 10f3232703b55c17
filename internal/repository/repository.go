package repository

import (
	"context"
	"errors"

	"github.com/classpulse-systems/classpulse/internal/models"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUserExists      = errors.New("user already exists")
	ErrTokenNotFound   = errors.New("refresh token not found")
	ErrTokenNotUsable  = errors.New("refresh token already revoked or expired")
	ErrStudentNotFound = errors.New("student not found")
)

// Repository is the persistence surface for accounts, refresh tokens, and
// the student directory projection.
type Repository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)

	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)
	// RevokeRefreshToken marks a token revoked. Revoking an
	// already-revoked token is not an error; an unknown token returns
	// ErrTokenNotFound.
	RevokeRefreshToken(ctx context.Context, token string) error
	// RotateRefreshToken revokes oldToken and persists next as a single
	// atomic unit. The revoke is conditional on the token still being
	// usable; a concurrent rotation losing the race gets ErrTokenNotUsable
	// and no replacement row is written.
	RotateRefreshToken(ctx context.Context, oldToken string, next *models.RefreshToken) error
	// DeleteExpiredTokens removes rows that are expired or revoked and
	// returns the number deleted. Safe to run at any time.
	DeleteExpiredTokens(ctx context.Context) (int64, error)

	GetStudentUserID(ctx context.Context, studentID string) (string, error)
}
