package repository

import (
	"context"
	"sync"
	"time"

	"github.com/classpulse-systems/classpulse/internal/models"
)

// InMemoryRepository is a development-only repository. State is lost on
// restart.
type InMemoryRepository struct {
	mu              sync.RWMutex
	users           map[string]*models.User
	usersByUsername map[string]*models.User
	tokens          map[string]*models.RefreshToken
	students        map[string]string // student id -> user id
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		users:           make(map[string]*models.User),
		usersByUsername: make(map[string]*models.User),
		tokens:          make(map[string]*models.RefreshToken),
		students:        make(map[string]string),
	}
}

func (r *InMemoryRepository) CreateUser(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.usersByUsername[user.Username]; exists {
		return ErrUserExists
	}
	r.users[user.ID] = user
	r.usersByUsername[user.Username] = user
	return nil
}

func (r *InMemoryRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.usersByUsername[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (r *InMemoryRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (r *InMemoryRepository) ListUsers(ctx context.Context) ([]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*models.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, u)
	}
	return users, nil
}

func (r *InMemoryRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tokens[token.Token] = token
	return nil
}

func (r *InMemoryRepository) GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rt, ok := r.tokens[token]
	if !ok {
		return nil, ErrTokenNotFound
	}
	copied := *rt
	return &copied, nil
}

func (r *InMemoryRepository) RevokeRefreshToken(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rt, ok := r.tokens[token]
	if !ok {
		return ErrTokenNotFound
	}
	if !rt.Revoked {
		now := time.Now()
		rt.Revoked = true
		rt.RevokedAt = &now
	}
	return nil
}

func (r *InMemoryRepository) RotateRefreshToken(ctx context.Context, oldToken string, next *models.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rt, ok := r.tokens[oldToken]
	if !ok || !rt.IsUsable(time.Now()) {
		return ErrTokenNotUsable
	}

	now := time.Now()
	rt.Revoked = true
	rt.RevokedAt = &now
	r.tokens[next.Token] = next
	return nil
}

func (r *InMemoryRepository) DeleteExpiredTokens(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var deleted int64
	for key, rt := range r.tokens {
		if rt.Revoked || rt.IsExpired(now) {
			delete(r.tokens, key)
			deleted++
		}
	}
	return deleted, nil
}

func (r *InMemoryRepository) GetStudentUserID(ctx context.Context, studentID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userID, ok := r.students[studentID]
	if !ok {
		return "", ErrStudentNotFound
	}
	return userID, nil
}

// AddStudent links a student record to its owning user account.
func (r *InMemoryRepository) AddStudent(studentID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.students[studentID] = userID
}
