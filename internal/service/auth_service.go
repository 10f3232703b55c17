package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/classpulse-systems/classpulse/internal/metrics"
	"github.com/classpulse-systems/classpulse/internal/models"
	"github.com/classpulse-systems/classpulse/internal/ratelimit"
	"github.com/classpulse-systems/classpulse/internal/repository"
	"github.com/classpulse-systems/classpulse/pkg/tokens"
)

var (
	// ErrInvalidCredentials covers unknown user, wrong password, and
	// disabled account alike, so responses never reveal which one it was.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrTokenNotFound         = errors.New("refresh token not found")
	ErrTokenExpiredOrRevoked = errors.New("refresh token expired or revoked")
	ErrTooManyAttempts       = errors.New("too many login attempts")
	ErrInvalidRole           = errors.New("unknown role")
)

type AuthService struct {
	repo       repository.Repository
	tokenGen   *tokens.TokenGenerator
	throttle   ratelimit.Limiter
	refreshTTL time.Duration
}

func NewAuthService(repo repository.Repository, tokenGen *tokens.TokenGenerator, throttle ratelimit.Limiter, refreshTTL time.Duration) *AuthService {
	return &AuthService{
		repo:       repo,
		tokenGen:   tokenGen,
		throttle:   throttle,
		refreshTTL: refreshTTL,
	}
}

// Login verifies credentials and issues a fresh access/refresh pair.
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest, ipAddress string) (*models.LoginResponse, error) {
	if s.throttle != nil {
		allowed, err := s.throttle.Allow(ctx, req.Username+":"+ipAddress)
		if err != nil {
			// A broken throttle must not lock everyone out.
			slog.WarnContext(ctx, "login throttle unavailable", slog.String("error", err.Error()))
		} else if !allowed {
			return nil, ErrTooManyAttempts
		}
	}

	user, err := s.repo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive() {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, ErrInvalidCredentials
	}

	resp, err := s.issuePair(ctx, user, nil)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	slog.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return resp, nil
}

// Rotate exchanges a usable refresh token for a new pair, revoking the
// presented token in the same transaction that stores its replacement.
// A rotated, revoked, or expired token always fails; the client must
// perform a full login.
func (s *AuthService) Rotate(ctx context.Context, refreshToken string) (*models.LoginResponse, error) {
	rt, err := s.repo.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			metrics.RotationsTotal.WithLabelValues("not_found").Inc()
			return nil, ErrTokenNotFound
		}
		return nil, err
	}

	if !rt.IsUsable(time.Now()) {
		metrics.RotationsTotal.WithLabelValues("unusable").Inc()
		return nil, ErrTokenExpiredOrRevoked
	}

	user, err := s.repo.GetUserByID(ctx, rt.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load token owner: %w", err)
	}

	resp, err := s.issuePair(ctx, user, &refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotUsable) {
			// Lost a race against a concurrent rotation of the same token.
			metrics.RotationsTotal.WithLabelValues("unusable").Inc()
			return nil, ErrTokenExpiredOrRevoked
		}
		return nil, err
	}

	metrics.RotationsTotal.WithLabelValues("success").Inc()
	return resp, nil
}

// issuePair mints both credential artifacts for user. With oldToken set,
// the refresh token is written via the atomic rotate path; otherwise it
// is inserted as a new row.
func (s *AuthService) issuePair(ctx context.Context, user *models.User, oldToken *string) (*models.LoginResponse, error) {
	accessToken, err := s.tokenGen.GenerateAccessToken(user.ID, user.Username, user.Email, user.Roles)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshToken, err := s.tokenGen.NewRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	tokenID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token id: %w", err)
	}

	rt := &models.RefreshToken{
		ID:        tokenID.String(),
		Token:     refreshToken,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(s.refreshTTL),
		CreatedAt: time.Now(),
	}

	if oldToken != nil {
		err = s.repo.RotateRefreshToken(ctx, *oldToken, rt)
	} else {
		err = s.repo.CreateRefreshToken(ctx, rt)
	}
	if err != nil {
		return nil, err
	}

	return &models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    s.tokenGen.ExpiresIn(),
		TokenType:    "Bearer",
		Username:     user.Username,
		Email:        user.Email,
		Roles:        user.Roles,
	}, nil
}

// Logout revokes the refresh token. Idempotent: revoking a revoked or
// unknown token is not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	err := s.repo.RevokeRefreshToken(ctx, refreshToken)
	if err != nil && !errors.Is(err, repository.ErrTokenNotFound) {
		return err
	}
	return nil
}

// SweepExpired deletes expired and revoked refresh tokens. Purely storage
// hygiene; such rows are already unusable.
func (s *AuthService) SweepExpired(ctx context.Context) (int64, error) {
	deleted, err := s.repo.DeleteExpiredTokens(ctx)
	if err != nil {
		return 0, err
	}
	metrics.TokensSwept.Add(float64(deleted))
	return deleted, nil
}

// CreateUser registers an account. Roles must come from the closed set;
// an empty list defaults to student.
func (s *AuthService) CreateUser(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	if !models.ValidateRoles(req.Roles) {
		return nil, ErrInvalidRole
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	userID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user id: %w", err)
	}

	user := &models.User{
		ID:           userID.String(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		Roles:        req.Roles,
		CreatedAt:    time.Now(),
	}

	if len(user.Roles) == 0 {
		user.Roles = []string{string(models.RoleStudent)}
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "user created",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return user, nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.repo.ListUsers(ctx)
}

func (s *AuthService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}
